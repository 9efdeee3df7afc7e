package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/nominas/constants"
	"github.com/joseph-ayodele/nominas/internal/llm"
	"github.com/joseph-ayodele/nominas/internal/observability"
	"github.com/joseph-ayodele/nominas/internal/ocr"
	"github.com/joseph-ayodele/nominas/internal/repository"
)

// Source opens a payslip file as a page document.
type Source interface {
	Open(ctx context.Context, path string) (*ocr.Document, error)
}

var _ Source = (*ocr.Extractor)(nil)

// PageSummary is the outcome of one page.
type PageSummary struct {
	Page     int
	RecordID uuid.UUID
	Status   constants.PageStatus
	Quality  constants.Quality
	Cached   bool
	Err      string
}

// Summary is the outcome of one file.
type Summary struct {
	Path       string
	DocumentID uuid.UUID
	Pages      []PageSummary
	Parsed     int
	Verified   int
	Failed     int
	Err        string
}

// Processor coordinates page extraction, parsing, optional verification and storage.
type Processor struct {
	source      Source
	repo        repository.PayslipRepository
	verifier    llm.Verifier
	verify      bool
	pageTimeout time.Duration
	cache       *cache.Cache
	logger      *slog.Logger
}

type Option func(*Processor)

// WithVerifier enables the verification pass with v.
func WithVerifier(v llm.Verifier) Option {
	return func(p *Processor) {
		if v != nil {
			p.verifier = v
			p.verify = true
		}
	}
}

func WithPageTimeout(d time.Duration) Option {
	return func(p *Processor) {
		if d > 0 {
			p.pageTimeout = d
		}
	}
}

// WithCacheTTL sets how long page results are remembered, keyed by page text.
func WithCacheTTL(d time.Duration) Option {
	return func(p *Processor) {
		if d > 0 {
			p.cache = cache.New(d, 2*d)
		}
	}
}

func NewProcessor(source Source, repo repository.PayslipRepository, logger *slog.Logger, opts ...Option) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Processor{
		source:      source,
		repo:        repo,
		verifier:    llm.NoopVerifier{},
		pageTimeout: 2 * time.Minute,
		cache:       cache.New(30*time.Minute, time.Hour),
		logger:      logger,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// ProcessFile reads every page of path and stores one record per page. Page
// failures are recorded and processing continues; the returned error is for
// failures that stop the whole file.
func (p *Processor) ProcessFile(ctx context.Context, path string) (Summary, error) {
	observability.ActiveDocuments.Inc()
	defer observability.ActiveDocuments.Dec()
	start := time.Now()

	sum, err := p.processFile(ctx, path)
	if err != nil {
		sum.Err = err.Error()
		observability.DocumentsTotal.WithLabelValues("error").Inc()
		p.logger.Error("processor.file.failed", "path", path, "error", err)
		return sum, err
	}
	observability.DocumentsTotal.WithLabelValues("ok").Inc()
	p.logger.Info("processor.file.ok",
		"path", path,
		"document_id", sum.DocumentID,
		"pages", len(sum.Pages),
		"parsed", sum.Parsed,
		"verified", sum.Verified,
		"failed", sum.Failed,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return sum, nil
}

func (p *Processor) processFile(ctx context.Context, path string) (Summary, error) {
	sum := Summary{Path: path}

	doc, stored, err := p.openDocument(ctx, path)
	if err != nil {
		return sum, err
	}
	defer func() {
		if err := doc.Close(); err != nil {
			p.logger.Warn("processor.document.close_failed", "path", path, "error", err)
		}
	}()
	sum.DocumentID = stored.ID
	ctx = withDocument(ctx, stored.ID)

	it, err := doc.Pages()
	if err != nil {
		return sum, err
	}
	for {
		page, err := it.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		var ps PageSummary
		switch {
		case err != nil && page.Number == 0:
			// cancelled or closed: nothing more can be read
			return sum, err
		case err != nil:
			ps = p.failPage(ctx, stored.ID, page.Number, err)
		default:
			ps = p.processPage(ctx, doc, stored.ID, page)
		}
		sum.add(ps)
	}
	return sum, nil
}

func (s *Summary) add(ps PageSummary) {
	s.Pages = append(s.Pages, ps)
	switch ps.Status {
	case constants.PageStatusVerified:
		s.Verified++
	case constants.PageStatusFailed:
		s.Failed++
	default:
		s.Parsed++
	}
}

// ProcessFiles runs ProcessFile over paths with at most workers files in
// flight. Summaries keep the order of paths. A failed file does not stop the
// others; the returned error joins every file error.
func (p *Processor) ProcessFiles(ctx context.Context, paths []string, workers int) ([]Summary, error) {
	if workers <= 0 {
		workers = 1
	}
	out := make([]Summary, len(paths))
	errs := make([]error, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				out[i] = Summary{Path: path, Err: err.Error()}
				errs[i] = err
				return nil
			}
			out[i], errs[i] = p.ProcessFile(gctx, path)
			return nil
		})
	}
	_ = g.Wait()
	return out, errors.Join(errs...)
}
