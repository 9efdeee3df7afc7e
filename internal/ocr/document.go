package ocr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
)

var (
	ErrClosed       = errors.New("ocr: document closed")
	ErrIteratorUsed = errors.New("ocr: pages already iterated")
	ErrNoImage      = errors.New("ocr: document has no renderable pages")
	ErrPageRange    = errors.New("ocr: page out of range")
)

// Page is the text of one page. Number is 1-based.
type Page struct {
	Number     int
	Text       string
	Method     string // "pdf-text" | "pdf-ocr" | "text"
	Confidence float32
}

// Document is an opened payslip file. Its pages can be iterated once; Close
// releases the render directory and is safe to call more than once.
type Document struct {
	Path   string
	Format string

	ext    *Extractor
	pages  []string
	tmpDir string

	iterated  atomic.Bool
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

func (d *Document) PageCount() int { return len(d.pages) }

// Pages returns the single-pass iterator over the document's pages.
func (d *Document) Pages() (*PageIterator, error) {
	if d.closed.Load() {
		return nil, ErrClosed
	}
	if !d.iterated.CompareAndSwap(false, true) {
		return nil, ErrIteratorUsed
	}
	return &PageIterator{doc: d}, nil
}

// RenderPNG rasterizes page n (1-based) with pdftoppm.
func (d *Document) RenderPNG(ctx context.Context, n int) ([]byte, error) {
	if d.closed.Load() {
		return nil, ErrClosed
	}
	if d.Format != "PDF" {
		return nil, ErrNoImage
	}
	if n < 1 || n > len(d.pages) {
		return nil, fmt.Errorf("%w: %d of %d", ErrPageRange, n, len(d.pages))
	}

	e := d.ext
	prefix := filepath.Join(d.tmpDir, "page-"+strconv.Itoa(n))
	// pdftoppm -f n -l n -r <dpi> -png -singlefile <in.pdf> <prefix>
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm,
		"-f", strconv.Itoa(n), "-l", strconv.Itoa(n),
		"-r", strconv.Itoa(e.cfg.DPI), "-png", "-singlefile",
		d.Path, prefix)
	if err != nil {
		return nil, fmt.Errorf("pdftoppm page %d: %w: %s", n, err, truncate(string(errb), 512))
	}
	img, err := os.ReadFile(prefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("pdftoppm page %d produced no image: %w", n, err)
	}
	return img, nil
}

// Close removes the render directory exactly once.
func (d *Document) Close() error {
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		if d.tmpDir != "" {
			d.closeErr = os.RemoveAll(d.tmpDir)
		}
		d.ext.logger.Debug("ocr.document.closed", "path", d.Path)
	})
	return d.closeErr
}

// PageIterator yields pages in order. Next returns io.EOF after the last page
// and ErrClosed once the document is closed; it cannot be restarted. Any other
// error belongs to the returned page and iteration may continue.
type PageIterator struct {
	doc  *Document
	next int
}

func (it *PageIterator) Next(ctx context.Context) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}
	d := it.doc
	if d.closed.Load() {
		return Page{}, ErrClosed
	}
	if it.next >= len(d.pages) {
		return Page{}, io.EOF
	}
	i := it.next
	it.next++

	p := Page{Number: i + 1, Text: d.pages[i], Method: "pdf-text"}
	if d.Format == "TXT" {
		p.Method = "text"
	}
	p.Confidence = TextConfidence(p.Text)

	if d.Format == "PDF" && p.Confidence == 0 && d.ext.cfg.Tesseract != "" {
		txt, err := d.ocrPage(ctx, p.Number)
		if err != nil {
			return p, err
		}
		p.Text, p.Method, p.Confidence = txt, "pdf-ocr", TextConfidence(txt)
	}
	return p, nil
}

// ocrPage renders a page without a text layer and runs tesseract on it.
func (d *Document) ocrPage(ctx context.Context, n int) (string, error) {
	if _, err := d.RenderPNG(ctx, n); err != nil {
		return "", err
	}
	return d.ext.tesseractOCR(ctx, filepath.Join(d.tmpDir, "page-"+strconv.Itoa(n)+".png"))
}
