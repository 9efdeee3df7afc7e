package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/nominas/internal/common"
	"github.com/joseph-ayodele/nominas/internal/export"
	"github.com/joseph-ayodele/nominas/internal/llm/gemini"
	"github.com/joseph-ayodele/nominas/internal/llm/openai"
)

const fixture = "../../internal/nomina/testdata/nomina_completa.txt"

// isolate points storage at a temp sqlite file and keeps the developer's
// environment out of the run.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_URL", filepath.Join(dir, "nominas.db"))
	t.Setenv("VERIFY", "false")
	t.Setenv("LOG_LEVEL", "error")
	return dir
}

func newTestCmd(t *testing.T, out io.Writer, args ...string) *cobra.Command {
	t.Helper()
	cmd := newRootCmd()
	cmd.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "missing.env")}, args...))
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	return cmd
}

func run(t *testing.T, stdin io.Reader, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newTestCmd(t, &out, args...)
	if stdin != nil {
		cmd.SetIn(stdin)
	}
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// syncBuffer is written by the watch loop and read by the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestParseCommand(t *testing.T) {
	isolate(t)

	out, err := run(t, nil, "parse", "--in", fixture)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	totales := got["totales"].(map[string]any)
	assert.Equal(t, 1136.29, totales["liquido_a_percibir"])
	assert.Len(t, got["devengo_items"], 2)
}

func TestParseCommandStdinAndOutFile(t *testing.T) {
	dir := isolate(t)
	b, err := os.ReadFile(fixture)
	require.NoError(t, err)

	dest := filepath.Join(dir, "out.json")
	out, err := run(t, bytes.NewReader(b), "parse", "--out", dest)
	require.NoError(t, err)
	assert.Empty(t, out)

	written, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(written), `"liquido_a_percibir": 1136.29`)
}

func TestParseCommandRejectsBinary(t *testing.T) {
	isolate(t)
	_, err := run(t, bytes.NewReader([]byte{0xff, 0xfe, 0x00, 0x01}), "parse")
	assert.Error(t, err)
}

func TestProcessThenExport(t *testing.T) {
	dir := isolate(t)
	b, err := os.ReadFile(fixture)
	require.NoError(t, err)
	src := filepath.Join(dir, "enero.txt")
	require.NoError(t, os.WriteFile(src, b, 0o644))

	out, err := run(t, nil, "process", src)
	require.NoError(t, err)
	assert.Contains(t, out, "pages=1 parsed=1 verified=0 failed=0")

	xlsx := filepath.Join(dir, "nominas.xlsx")
	out, err = run(t, nil, "export", "--out", xlsx)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "wrote "+xlsx))

	f, err := excelize.OpenFile(xlsx)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(export.SheetPayslips)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestWatchProcessesThenStopsOnCancel(t *testing.T) {
	dir := isolate(t)
	b, err := os.ReadFile(fixture)
	require.NoError(t, err)
	inbox := filepath.Join(dir, "inbox")
	require.NoError(t, os.Mkdir(inbox, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(inbox, "enero.txt"), b, 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := &syncBuffer{}
	cmd := newTestCmd(t, out, "watch", inbox, "--debounce", "20ms")

	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "enero.txt\tpages=1 parsed=1 verified=0 failed=0")
	}, 10*time.Second, 20*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}

	// the processed page was stored before shutdown
	listed, err := run(t, nil, "export", "--out", filepath.Join(dir, "watch.xlsx"))
	require.NoError(t, err)
	assert.Contains(t, listed, "wrote ")
	f, err := excelize.OpenFile(filepath.Join(dir, "watch.xlsx"))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(export.SheetPayslips)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestProcessNoFiles(t *testing.T) {
	dir := isolate(t)
	_, err := run(t, nil, "process", dir)
	assert.Error(t, err)
}

func TestExportBadDate(t *testing.T) {
	isolate(t)
	_, err := run(t, nil, "export", "--from", "31/01/2024")
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestNewVerifier(t *testing.T) {
	a := &app{cfg: common.LoadConfig(), logger: nil}
	a.cfg.LLM.APIKey = "test-key"

	a.cfg.LLM.Provider = common.ProviderOpenAI
	v, err := a.newVerifier(context.Background())
	require.NoError(t, err)
	assert.IsType(t, &openai.Client{}, v)

	a.cfg.LLM.Provider = common.ProviderGemini
	v, err = a.newVerifier(context.Background())
	require.NoError(t, err)
	assert.IsType(t, &gemini.Client{}, v)

	a.cfg.LLM.Provider = "mistral"
	_, err = a.newVerifier(context.Background())
	assert.ErrorIs(t, err, common.ErrUnsupported)
}
