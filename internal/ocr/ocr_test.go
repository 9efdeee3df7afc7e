package ocr

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	name string
	args []string
}

// fakeRunner answers pdftotext with canned text and fakes pdftoppm by
// writing a PNG where the real tool would.
type fakeRunner struct {
	mu      sync.Mutex
	calls   []call
	text    string
	ocrText string
	failOn  string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{name: name, args: args})
	f.mu.Unlock()

	if name == f.failOn {
		return nil, []byte("boom"), errors.New("exit status 1")
	}
	switch name {
	case "pdftotext":
		return []byte(f.text), nil, nil
	case "pdftoppm":
		prefix := args[len(args)-1]
		if err := os.WriteFile(prefix+".png", []byte("\x89PNG fake"), 0o600); err != nil {
			return nil, nil, err
		}
		return nil, nil, nil
	case "tesseract":
		return []byte(f.ocrText), nil, nil
	}
	return nil, nil, errors.New("unexpected command " + name)
}

func (f *fakeRunner) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.name == name {
			n++
		}
	}
	return n
}

func newTestExtractor(t *testing.T, cfg Config, r Runner) *Extractor {
	t.Helper()
	cfg.ArtifactCacheDir = t.TempDir()
	return NewExtractor(cfg, slog.New(slog.NewTextHandler(io.Discard, nil))).WithRunner(r)
}

func drain(t *testing.T, it *PageIterator) []Page {
	t.Helper()
	var out []Page
	for {
		p, err := it.Next(context.Background())
		if errors.Is(err, io.EOF) {
			return out
		}
		require.NoError(t, err)
		out = append(out, p)
	}
}

const twoPages = "CONCEPTO\n1.200,00\nSALARIO BASE\n\fAPORTACIÓN EMPRESA\t\tTOTAL\n--------\n1.557,19\n\f"

func TestOpenPDFSplitsPages(t *testing.T) {
	r := &fakeRunner{text: twoPages}
	e := newTestExtractor(t, Config{}, r)

	doc, err := e.Open(context.Background(), "nomina.pdf")
	require.NoError(t, err)
	defer doc.Close()

	assert.Equal(t, 2, doc.PageCount())
	it, err := doc.Pages()
	require.NoError(t, err)
	pages := drain(t, it)

	require.Len(t, pages, 2)
	assert.Equal(t, 1, pages[0].Number)
	assert.Equal(t, "CONCEPTO\n1.200,00\nSALARIO BASE", pages[0].Text)
	assert.Equal(t, "pdf-text", pages[0].Method)
	assert.Equal(t, "APORTACIÓN EMPRESA TOTAL\n\n1.557,19", pages[1].Text)

	require.Len(t, r.calls, 1)
	assert.Equal(t, []string{"-enc", "UTF-8", "-eol", "unix", "nomina.pdf", "-"}, r.calls[0].args)
}

func TestOpenLayoutFlagAndMaxPages(t *testing.T) {
	r := &fakeRunner{text: "A\fB\fC\f"}
	e := newTestExtractor(t, Config{Layout: true, MaxPages: 2}, r)

	doc, err := e.Open(context.Background(), "x.PDF")
	require.NoError(t, err)
	defer doc.Close()

	assert.Equal(t, 2, doc.PageCount())
	assert.Equal(t, "-layout", r.calls[0].args[0])
}

func TestOpenTextFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nomina.txt")
	require.NoError(t, os.WriteFile(path, []byte("CONCEPTO\r\n259,27\r\nSALARIO BASE\r\n"), 0o600))
	r := &fakeRunner{}
	e := newTestExtractor(t, Config{}, r)

	doc, err := e.Open(context.Background(), path)
	require.NoError(t, err)
	defer doc.Close()

	it, err := doc.Pages()
	require.NoError(t, err)
	pages := drain(t, it)
	require.Len(t, pages, 1)
	assert.Equal(t, "text", pages[0].Method)
	assert.Equal(t, "CONCEPTO\n259,27\nSALARIO BASE", pages[0].Text)
	assert.Empty(t, r.calls)

	_, err = doc.RenderPNG(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNoImage)
}

func TestOpenErrors(t *testing.T) {
	e := newTestExtractor(t, Config{}, &fakeRunner{failOn: "pdftotext"})

	_, err := e.Open(context.Background(), "nomina.docx")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = e.Open(context.Background(), "nomina.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	_, err = e.Open(context.Background(), filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestPagesIsSinglePass(t *testing.T) {
	e := newTestExtractor(t, Config{}, &fakeRunner{text: "A\fB"})
	doc, err := e.Open(context.Background(), "n.pdf")
	require.NoError(t, err)
	defer doc.Close()

	it, err := doc.Pages()
	require.NoError(t, err)
	_, err = doc.Pages()
	assert.ErrorIs(t, err, ErrIteratorUsed)

	_, err = it.Next(context.Background())
	require.NoError(t, err)
	_, err = it.Next(context.Background())
	require.NoError(t, err)
	_, err = it.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)
	_, err = it.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestCloseEndsIterationAndRemovesRenders(t *testing.T) {
	r := &fakeRunner{text: "A\fB\fC"}
	e := newTestExtractor(t, Config{}, r)
	doc, err := e.Open(context.Background(), "n.pdf")
	require.NoError(t, err)

	img, err := doc.RenderPNG(context.Background(), 2)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(img), "\x89PNG"))
	dir := doc.tmpDir
	assert.DirExists(t, dir)

	it, err := doc.Pages()
	require.NoError(t, err)
	_, err = it.Next(context.Background())
	require.NoError(t, err)

	require.NoError(t, doc.Close())
	require.NoError(t, doc.Close())
	assert.NoDirExists(t, dir)

	_, err = it.Next(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	_, err = doc.RenderPNG(context.Background(), 1)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = doc.Pages()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestRenderPNGArgs(t *testing.T) {
	r := &fakeRunner{text: "A\fB"}
	e := newTestExtractor(t, Config{DPI: 200}, r)
	doc, err := e.Open(context.Background(), "n.pdf")
	require.NoError(t, err)
	defer doc.Close()

	_, err = doc.RenderPNG(context.Background(), 3)
	assert.ErrorIs(t, err, ErrPageRange)

	_, err = doc.RenderPNG(context.Background(), 2)
	require.NoError(t, err)
	last := r.calls[len(r.calls)-1]
	assert.Equal(t, "pdftoppm", last.name)
	assert.Equal(t, []string{"-f", "2", "-l", "2", "-r", "200", "-png", "-singlefile", "n.pdf"}, last.args[:9])
}

func TestScannedPageFallsBackToTesseract(t *testing.T) {
	r := &fakeRunner{text: "CONCEPTO\n1.000,00\nSALARIO\f   \f", ocrText: "DEVENGOS\n1.200,00\nSALARIO BASE"}
	e := newTestExtractor(t, Config{Tesseract: "tesseract"}, r)
	doc, err := e.Open(context.Background(), "n.pdf")
	require.NoError(t, err)
	defer doc.Close()

	it, err := doc.Pages()
	require.NoError(t, err)
	pages := drain(t, it)

	require.Len(t, pages, 2)
	assert.Equal(t, "pdf-text", pages[0].Method)
	assert.Equal(t, "pdf-ocr", pages[1].Method)
	assert.Equal(t, "DEVENGOS\n1.200,00\nSALARIO BASE", pages[1].Text)
	assert.Equal(t, 1, r.count("tesseract"))
}

func TestNextHonoursContext(t *testing.T) {
	e := newTestExtractor(t, Config{}, &fakeRunner{text: "A"})
	doc, err := e.Open(context.Background(), "n.pdf")
	require.NoError(t, err)
	defer doc.Close()

	it, err := doc.Pages()
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = it.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTextConfidence(t *testing.T) {
	assert.Zero(t, TextConfidence("  \n"))
	low := TextConfidence("hola")
	high := TextConfidence("PERIODO 01-03-2024\nCONCEPTO\n1.200,00\nDEVENGOS\nLÍQUIDO A PERCIBIR\n1.000,00")
	assert.Greater(t, high, low)
	assert.LessOrEqual(t, high, float32(1))
}
