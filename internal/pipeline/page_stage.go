package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/nominas/constants"
	"github.com/joseph-ayodele/nominas/internal/common"
	"github.com/joseph-ayodele/nominas/internal/llm"
	"github.com/joseph-ayodele/nominas/internal/nomina"
	"github.com/joseph-ayodele/nominas/internal/observability"
	"github.com/joseph-ayodele/nominas/internal/ocr"
	"github.com/joseph-ayodele/nominas/internal/repository"
)

// pageOutcome is what a page produced before storage. Successful outcomes
// are cached by page text.
type pageOutcome struct {
	result   nomina.Result
	raw      []byte
	status   constants.PageStatus
	verified bool
	errMsg   string
}

// QualityOf grades the worker identity fields of a result.
func QualityOf(r nomina.Result) constants.Quality {
	name, dni := r.Trabajador.Nombre != nil, r.Trabajador.DNI != nil
	switch {
	case name && dni:
		return constants.QualityComplete
	case name || dni:
		return constants.QualityPartial
	default:
		return constants.QualityMissing
	}
}

func (p *Processor) processPage(ctx context.Context, doc *ocr.Document, docID uuid.UUID, page ocr.Page) PageSummary {
	start := time.Now()

	key := textKey(page.Text)
	var (
		out    pageOutcome
		cached bool
	)
	if v, ok := p.cache.Get(key); ok {
		out, cached = v.(pageOutcome), true
		observability.CacheHits.Inc()
	} else {
		out = p.readPage(ctx, doc, page)
		if out.status != constants.PageStatusFailed {
			p.cache.SetDefault(key, out)
		}
	}

	ps := p.store(ctx, docID, page.Number, out)
	ps.Cached = cached

	observability.PageDuration.WithLabelValues(strconv.FormatBool(out.verified)).Observe(time.Since(start).Seconds())
	p.logPage(ctx, ps, out.result, page, time.Since(start))
	return ps
}

// readPage parses the page text and, when enabled, asks the verifier to
// correct the reading. A verification error keeps the parsed result and marks
// the page FAILED.
func (p *Processor) readPage(ctx context.Context, doc *ocr.Document, page ocr.Page) pageOutcome {
	parsed := nomina.ParseText(page.Text)
	out := pageOutcome{result: parsed, status: constants.PageStatusParsed}
	if !p.verify {
		return out
	}

	vctx, cancel := context.WithTimeout(ctx, p.pageTimeout)
	defer cancel()

	req := llm.VerifyRequest{Page: page.Number, Text: page.Text, Parsed: parsed}
	if doc.Format == "PDF" {
		img, err := doc.RenderPNG(vctx, page.Number)
		if err != nil {
			p.logger.Warn("processor.page.render_failed", "page", page.Number, "error", err)
		} else {
			req.Image, req.MimeType = img, "image/png"
		}
	}

	verified, raw, err := p.verifier.Verify(vctx, req)
	if err != nil {
		out.status = constants.PageStatusFailed
		out.raw = raw
		out.errMsg = "verify: " + err.Error()
		return out
	}
	out.result = verified.Recompute()
	out.raw = raw
	out.verified = true
	out.status = constants.PageStatusVerified
	return out
}

// failPage stores a page that could not be read at all.
func (p *Processor) failPage(ctx context.Context, docID uuid.UUID, n int, cause error) PageSummary {
	out := pageOutcome{
		result: nomina.ParseText(""),
		status: constants.PageStatusFailed,
		errMsg: "extract: " + cause.Error(),
	}
	ps := p.store(ctx, docID, n, out)
	p.logger.Error("processor.page.extract_failed", "page", n, "error", cause)
	return ps
}

func (p *Processor) store(ctx context.Context, docID uuid.UUID, n int, out pageOutcome) PageSummary {
	ps := PageSummary{
		Page:    n,
		Status:  out.status,
		Quality: QualityOf(out.result),
		Err:     out.errMsg,
	}
	saved, err := p.repo.SavePayslip(ctx, &repository.PayslipRecord{
		DocumentID:   docID,
		Page:         n,
		Status:       out.status,
		Result:       out.result,
		RawModelJSON: out.raw,
		Verified:     out.verified,
		Error:        out.errMsg,
	})
	if err != nil {
		ps.Status = constants.PageStatusFailed
		ps.Err = err.Error()
	} else {
		ps.RecordID = saved.ID
	}
	observability.PagesTotal.WithLabelValues(string(ps.Status)).Inc()
	observability.PageQuality.WithLabelValues(string(ps.Quality)).Inc()
	return ps
}

func (p *Processor) logPage(ctx context.Context, ps PageSummary, r nomina.Result, page ocr.Page, elapsed time.Duration) {
	level := slog.LevelInfo
	if ps.Status == constants.PageStatusFailed {
		level = slog.LevelError
	} else if ps.Quality != constants.QualityComplete {
		level = slog.LevelWarn
	}
	p.logger.Log(ctx, level, "processor.page",
		"document_id", common.DocumentIDFromContext(ctx),
		"page", ps.Page,
		"status", ps.Status,
		"quality", ps.Quality,
		"method", page.Method,
		"confidence", page.Confidence,
		"has_nombre", r.Trabajador.Nombre != nil,
		"has_dni", r.Trabajador.DNI != nil,
		"liquido", r.Totales.LiquidoAPercibir.String(),
		"warnings", len(r.Warnings),
		"cached", ps.Cached,
		"error", ps.Err,
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

func textKey(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}
