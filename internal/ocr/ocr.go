package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/nominas/constants"
)

var (
	ErrUnsupportedFormat = errors.New("ocr: unsupported file format")
	ErrNoPages           = errors.New("ocr: document has no pages")
)

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // optional; when set, pages without a text layer are OCRed

	TesseractLang string // default "spa"
	DPI           int    // rasterization DPI, default 144 (2x zoom)
	MaxPages      int    // 0 = no limit
	Layout        bool   // pass -layout to pdftotext; off keeps one text span per line

	ArtifactCacheDir string // parent of the per-document render directory
}

type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "spa"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 144
	}
	if cfg.ArtifactCacheDir == "" {
		cfg.ArtifactCacheDir = os.TempDir()
	}
	return &Extractor{cfg: cfg, runner: execRunner{logger: logger}, logger: logger}
}

// WithRunner replaces the command runner (tests).
func (e *Extractor) WithRunner(r Runner) *Extractor {
	e.runner = r
	return e
}

// Open extracts the text layer of a PDF (or reads a .txt file) and returns a
// Document. The caller must Close it.
func (e *Extractor) Open(ctx context.Context, path string) (*Document, error) {
	start := time.Now()
	format := constants.FormatForExt(filepath.Ext(path))
	e.logger.Debug("ocr.open.start", "path", path, "format", format)

	var (
		pages []string
		err   error
	)
	switch format {
	case "PDF":
		pages, err = e.pdfToText(ctx, path)
	case "TXT":
		pages, err = readTextPages(path)
	default:
		e.logger.Error("ocr.open.unsupported", "path", path, "ext", filepath.Ext(path))
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, ErrNoPages
	}
	if e.cfg.MaxPages > 0 && len(pages) > e.cfg.MaxPages {
		e.logger.Warn("ocr.open.truncated", "path", path, "pages", len(pages), "max_pages", e.cfg.MaxPages)
		pages = pages[:e.cfg.MaxPages]
	}

	doc := &Document{
		Path:   path,
		Format: format,
		ext:    e,
		pages:  pages,
	}
	if format == "PDF" {
		if doc.tmpDir, err = os.MkdirTemp(e.cfg.ArtifactCacheDir, "nominas-*"); err != nil {
			return nil, fmt.Errorf("create render dir: %w", err)
		}
	}

	e.logger.Info("ocr.open.ok",
		"path", path,
		"format", format,
		"pages", len(pages),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return doc, nil
}

func (e *Extractor) pdfToText(ctx context.Context, path string) ([]string, error) {
	// pdftotext [-layout] -enc UTF-8 -eol unix <path> -
	args := []string{"-enc", "UTF-8", "-eol", "unix", path, "-"}
	if e.cfg.Layout {
		args = append([]string{"-layout"}, args...)
	}
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, args...)
	if err != nil {
		return nil, fmt.Errorf("pdftotext: %w: %s", err, truncate(strings.TrimSpace(string(errb)), 512))
	}
	return splitPages(string(out)), nil
}

func readTextPages(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return splitPages(string(b)), nil
}

// splitPages splits on form feeds, the page separator pdftotext emits after
// every page.
func splitPages(text string) []string {
	parts := strings.Split(text, "\f")
	if len(parts) > 1 && strings.TrimSpace(parts[len(parts)-1]) == "" {
		parts = parts[:len(parts)-1]
	}
	for i := range parts {
		parts[i] = Normalize(parts[i])
	}
	return parts
}

func (e *Extractor) tesseractOCR(ctx context.Context, imgPath string) (string, error) {
	// tesseract <file> stdout -l <lang>
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, imgPath, "stdout", "-l", e.cfg.TesseractLang)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, truncate(strings.TrimSpace(string(errb)), 512))
	}
	return Normalize(string(out)), nil
}
