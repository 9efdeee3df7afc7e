package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/nominas/internal/common"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS documents (
	id           TEXT PRIMARY KEY,
	source_path  TEXT NOT NULL,
	content_hash TEXT NOT NULL UNIQUE,
	pages        INTEGER NOT NULL DEFAULT 0,
	created_at   TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS payslips (
	id             TEXT PRIMARY KEY,
	document_id    TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	page           INTEGER NOT NULL,
	status         TEXT NOT NULL,
	dni            TEXT NOT NULL DEFAULT '',
	cif            TEXT NOT NULL DEFAULT '',
	periodo_hasta  TEXT NOT NULL DEFAULT '',
	result_json    TEXT NOT NULL,
	raw_model_json TEXT NOT NULL DEFAULT '',
	verified       INTEGER NOT NULL DEFAULT 0,
	error          TEXT NOT NULL DEFAULT '',
	created_at     TEXT NOT NULL,
	UNIQUE (document_id, page)
);
CREATE INDEX IF NOT EXISTS payslips_dni_idx ON payslips (dni);
CREATE INDEX IF NOT EXISTS payslips_cif_idx ON payslips (cif);
`

const (
	sqliteUpsertDocument = `
INSERT INTO documents (id, source_path, content_hash, pages, created_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (content_hash) DO UPDATE SET source_path = excluded.source_path, pages = excluded.pages
RETURNING id, created_at`

	sqliteSavePayslip = `
INSERT INTO payslips (id, document_id, page, status, dni, cif, periodo_hasta, result_json, raw_model_json, verified, error, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (document_id, page) DO UPDATE SET
	status = excluded.status, dni = excluded.dni, cif = excluded.cif, periodo_hasta = excluded.periodo_hasta,
	result_json = excluded.result_json, raw_model_json = excluded.raw_model_json,
	verified = excluded.verified, error = excluded.error
RETURNING id, created_at`

	payslipColumns = `id, document_id, page, status, dni, cif, periodo_hasta, result_json, raw_model_json, verified, error, created_at`
)

type sqliteRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenSQLite opens (or creates) a SQLite database file and applies the schema.
// ":memory:" is accepted for tests.
func OpenSQLite(ctx context.Context, path string, logger *slog.Logger) (PayslipRepository, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(on)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// one connection avoids SQLITE_BUSY and keeps :memory: databases shared
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}
	logger.Info("db.sqlite.open", "path", path)
	return &sqliteRepository{db: db, logger: logger}, nil
}

func (r *sqliteRepository) UpsertDocument(ctx context.Context, doc *Document) (*Document, error) {
	if doc == nil || doc.ContentHash == "" {
		return nil, ErrInvalidRecord
	}
	out := *doc
	if out.ID == uuid.Nil {
		out.ID = uuid.New()
	}

	var id, created string
	err := r.db.QueryRowContext(ctx, sqliteUpsertDocument,
		out.ID.String(), out.SourcePath, out.ContentHash, out.Pages, formatTime(time.Now()),
	).Scan(&id, &created)
	if err != nil {
		r.logger.Error("db.document.upsert_failed", "content_hash", doc.ContentHash, "error", err)
		return nil, fmt.Errorf("upsert document: %w: %w", common.ErrDatabase, err)
	}
	if out.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("upsert document: %w", err)
	}
	out.CreatedAt = parseTime(created)
	return &out, nil
}

func (r *sqliteRepository) SavePayslip(ctx context.Context, rec *PayslipRecord) (*PayslipRecord, error) {
	rw, err := toRow(rec)
	if err != nil {
		return nil, err
	}

	var id, created string
	err = r.db.QueryRowContext(ctx, sqliteSavePayslip,
		rw.id.String(), rw.documentID.String(), rw.page, rw.status, rw.dni, rw.cif, rw.periodoHasta,
		string(rw.resultJSON), rw.rawModelJSON, rw.verified, rw.errMsg, formatTime(rw.createdAt),
	).Scan(&id, &created)
	if err != nil {
		r.logger.Error("db.payslip.save_failed", "document_id", rec.DocumentID, "page", rec.Page, "error", err)
		return nil, fmt.Errorf("save payslip: %w: %w", common.ErrDatabase, err)
	}
	if rw.id, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("save payslip: %w", err)
	}
	rw.createdAt = parseTime(created)
	return rw.record()
}

func (r *sqliteRepository) ListPayslips(ctx context.Context, f Filter) ([]*PayslipRecord, error) {
	query, args := listQuery(f, func(int) string { return "?" })

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("db.payslip.list_failed", "error", err)
		return nil, fmt.Errorf("list payslips: %w: %w", common.ErrDatabase, err)
	}
	defer rows.Close()

	var out []*PayslipRecord
	for rows.Next() {
		var (
			rw                 row
			id, docID, created string
			result             string
		)
		if err := rows.Scan(&id, &docID, &rw.page, &rw.status, &rw.dni, &rw.cif, &rw.periodoHasta,
			&result, &rw.rawModelJSON, &rw.verified, &rw.errMsg, &created); err != nil {
			return nil, fmt.Errorf("scan payslip: %w", err)
		}
		rw.id, _ = uuid.Parse(id)
		rw.documentID, _ = uuid.Parse(docID)
		rw.resultJSON = []byte(result)
		rw.createdAt = parseTime(created)
		rec, err := rw.record()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list payslips: %w", err)
	}
	return out, nil
}

func (r *sqliteRepository) Close() error {
	r.logger.Info("db.sqlite.close")
	return r.db.Close()
}

// listQuery builds the filtered SELECT; ph renders the n-th placeholder.
func listQuery(f Filter, ph func(n int) string) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, cond+" "+ph(len(args)))
	}
	if f.DNI != "" {
		add("dni =", strings.ToUpper(strings.TrimSpace(f.DNI)))
	}
	if f.CIF != "" {
		add("cif =", strings.ToUpper(strings.TrimSpace(f.CIF)))
	}
	if f.From != nil {
		add("periodo_hasta >=", dateArg(f.From))
	}
	if f.To != nil {
		add("periodo_hasta <=", dateArg(f.To))
	}
	if f.From != nil || f.To != nil {
		// undated pages never match a date range
		where = append(where, "periodo_hasta <> ''")
	}

	q := "SELECT " + payslipColumns + " FROM payslips"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY periodo_hasta, document_id, page"
	return q, args
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
