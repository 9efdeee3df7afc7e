package repository

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joseph-ayodele/nominas/internal/common"
)

// PgxPool abstracts the subset of pgxpool.Pool used by the repository to allow mocking in tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

var _ PgxPool = (*pgxpool.Pool)(nil)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS documents (
	id           UUID PRIMARY KEY,
	source_path  TEXT NOT NULL,
	content_hash TEXT NOT NULL UNIQUE,
	pages        INTEGER NOT NULL DEFAULT 0,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS payslips (
	id             UUID PRIMARY KEY,
	document_id    UUID NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	page           INTEGER NOT NULL,
	status         TEXT NOT NULL,
	dni            TEXT NOT NULL DEFAULT '',
	cif            TEXT NOT NULL DEFAULT '',
	periodo_hasta  TEXT NOT NULL DEFAULT '',
	result_json    JSONB NOT NULL,
	raw_model_json TEXT NOT NULL DEFAULT '',
	verified       BOOLEAN NOT NULL DEFAULT false,
	error          TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (document_id, page)
);
CREATE INDEX IF NOT EXISTS payslips_dni_idx ON payslips (dni);
CREATE INDEX IF NOT EXISTS payslips_cif_idx ON payslips (cif);
`

const (
	upsertDocumentQuery = `
INSERT INTO documents (id, source_path, content_hash, pages, created_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (content_hash) DO UPDATE SET source_path = EXCLUDED.source_path, pages = EXCLUDED.pages
RETURNING id, created_at`

	savePayslipQuery = `
INSERT INTO payslips (id, document_id, page, status, dni, cif, periodo_hasta, result_json, raw_model_json, verified, error, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (document_id, page) DO UPDATE SET
	status = EXCLUDED.status, dni = EXCLUDED.dni, cif = EXCLUDED.cif, periodo_hasta = EXCLUDED.periodo_hasta,
	result_json = EXCLUDED.result_json, raw_model_json = EXCLUDED.raw_model_json,
	verified = EXCLUDED.verified, error = EXCLUDED.error
RETURNING id, created_at`
)

type postgresRepository struct {
	pgpool PgxPool
	logger *slog.Logger
}

// NewPostgresRepository wraps an open pool. The schema is not applied; see Migrate.
func NewPostgresRepository(pgpool PgxPool, logger *slog.Logger) PayslipRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &postgresRepository{pgpool: pgpool, logger: logger}
}

// Migrate creates the tables when missing.
func Migrate(ctx context.Context, pgpool PgxPool) error {
	if _, err := pgpool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("apply postgres schema: %w", err)
	}
	return nil
}

func (r *postgresRepository) UpsertDocument(ctx context.Context, doc *Document) (*Document, error) {
	if doc == nil || doc.ContentHash == "" {
		return nil, ErrInvalidRecord
	}
	out := *doc
	if out.ID == uuid.Nil {
		out.ID = uuid.New()
	}

	err := r.pgpool.QueryRow(ctx, upsertDocumentQuery,
		out.ID, out.SourcePath, out.ContentHash, out.Pages, time.Now().UTC(),
	).Scan(&out.ID, &out.CreatedAt)
	if err != nil {
		r.logger.Error("db.document.upsert_failed", "content_hash", doc.ContentHash, "error", err)
		return nil, fmt.Errorf("upsert document: %w: %w", common.ErrDatabase, err)
	}
	return &out, nil
}

func (r *postgresRepository) SavePayslip(ctx context.Context, rec *PayslipRecord) (*PayslipRecord, error) {
	rw, err := toRow(rec)
	if err != nil {
		return nil, err
	}

	err = r.pgpool.QueryRow(ctx, savePayslipQuery,
		rw.id, rw.documentID, rw.page, rw.status, rw.dni, rw.cif, rw.periodoHasta,
		rw.resultJSON, rw.rawModelJSON, rw.verified, rw.errMsg, rw.createdAt,
	).Scan(&rw.id, &rw.createdAt)
	if err != nil {
		r.logger.Error("db.payslip.save_failed", "document_id", rec.DocumentID, "page", rec.Page, "error", err)
		return nil, fmt.Errorf("save payslip: %w: %w", common.ErrDatabase, err)
	}
	return rw.record()
}

func (r *postgresRepository) ListPayslips(ctx context.Context, f Filter) ([]*PayslipRecord, error) {
	query, args := listQuery(f, pgPlaceholder)

	rows, err := r.pgpool.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("db.payslip.list_failed", "error", err)
		return nil, fmt.Errorf("list payslips: %w: %w", common.ErrDatabase, err)
	}
	defer rows.Close()

	var out []*PayslipRecord
	for rows.Next() {
		var rw row
		if err := rows.Scan(&rw.id, &rw.documentID, &rw.page, &rw.status, &rw.dni, &rw.cif, &rw.periodoHasta,
			&rw.resultJSON, &rw.rawModelJSON, &rw.verified, &rw.errMsg, &rw.createdAt); err != nil {
			return nil, fmt.Errorf("scan payslip: %w", err)
		}
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

func (r *postgresRepository) Close() error {
	r.logger.Info("db.postgres.close")
	r.pgpool.Close()
	return nil
}

func pgPlaceholder(n int) string { return "$" + strconv.Itoa(n) }
