package llm

import (
	"context"
	"errors"

	"github.com/joseph-ayodele/nominas/internal/nomina"
)

// ErrInvalidResponse is returned when a model answer cannot be turned into a
// payslip result, even after repair and sanitizing.
var ErrInvalidResponse = errors.New("llm: invalid model response")

// VerifyRequest is one page handed to a verification model.
type VerifyRequest struct {
	Page     int
	Image    []byte // rendered page; may be empty for text-only runs
	MimeType string
	Text     string        // extracted page text
	Parsed   nomina.Result // deterministic reading, sent as a draft
}

// Verifier is the interface our pipeline depends on. It returns the corrected
// result with totals recomputed, and the raw JSON the model produced.
type Verifier interface {
	Verify(ctx context.Context, req VerifyRequest) (nomina.Result, []byte, error)
}

// NoopVerifier returns the deterministic reading unchanged.
type NoopVerifier struct{}

func (NoopVerifier) Verify(_ context.Context, req VerifyRequest) (nomina.Result, []byte, error) {
	return req.Parsed, nil, nil
}
