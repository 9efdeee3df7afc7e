package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/nominas/constants"
	"github.com/joseph-ayodele/nominas/internal/common"
	"github.com/joseph-ayodele/nominas/internal/nomina"
)

// Document is one source file, deduplicated by content hash.
type Document struct {
	ID          uuid.UUID
	SourcePath  string
	ContentHash string
	Pages       int
	CreatedAt   time.Time
}

// PayslipRecord is the stored reading of one page of a document.
type PayslipRecord struct {
	ID           uuid.UUID
	DocumentID   uuid.UUID
	Page         int
	Status       constants.PageStatus
	Result       nomina.Result
	RawModelJSON []byte
	Verified     bool
	Error        string
	CreatedAt    time.Time
}

// Filter narrows ListPayslips. Zero fields match everything; From and To
// bound the period end date, both inclusive.
type Filter struct {
	DNI  string
	CIF  string
	From *time.Time
	To   *time.Time
}

type PayslipRepository interface {
	UpsertDocument(ctx context.Context, doc *Document) (*Document, error)
	SavePayslip(ctx context.Context, rec *PayslipRecord) (*PayslipRecord, error)
	ListPayslips(ctx context.Context, filter Filter) ([]*PayslipRecord, error)
	Close() error
}

var ErrInvalidRecord = errors.New("repository: invalid record")

// row is the column form of a PayslipRecord shared by both drivers.
type row struct {
	id, documentID uuid.UUID
	page           int
	status         string
	dni, cif       string
	periodoHasta   string
	resultJSON     []byte
	rawModelJSON   string
	verified       bool
	errMsg         string
	createdAt      time.Time
}

func toRow(rec *PayslipRecord) (row, error) {
	if rec == nil || rec.DocumentID == uuid.Nil || rec.Page < 1 {
		return row{}, ErrInvalidRecord
	}
	b, err := json.Marshal(rec.Result.Recompute())
	if err != nil {
		return row{}, fmt.Errorf("encode result: %w", err)
	}
	id := rec.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	status := rec.Status
	if status == "" {
		status = constants.PageStatusParsed
	}
	return row{
		id:           id,
		documentID:   rec.DocumentID,
		page:         rec.Page,
		status:       string(status),
		dni:          deref(rec.Result.Trabajador.DNI),
		cif:          deref(rec.Result.Empresa.CIF),
		periodoHasta: deref(rec.Result.Periodo.Hasta),
		resultJSON:   b,
		rawModelJSON: string(rec.RawModelJSON),
		verified:     rec.Verified,
		errMsg:       rec.Error,
		createdAt:    time.Now().UTC(),
	}, nil
}

func (r row) record() (*PayslipRecord, error) {
	var res nomina.Result
	if err := json.Unmarshal(r.resultJSON, &res); err != nil {
		return nil, common.NewAppError("DECODE_ERROR", "stored payslip is not valid JSON", err)
	}
	var raw []byte
	if r.rawModelJSON != "" {
		raw = []byte(r.rawModelJSON)
	}
	return &PayslipRecord{
		ID:           r.id,
		DocumentID:   r.documentID,
		Page:         r.page,
		Status:       constants.PageStatus(r.status),
		Result:       res.Recompute(),
		RawModelJSON: raw,
		Verified:     r.verified,
		Error:        r.errMsg,
		CreatedAt:    r.createdAt,
	}, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func dateArg(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.DateOnly)
}
