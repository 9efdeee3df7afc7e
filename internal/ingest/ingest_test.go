package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestAllowedExtAndHidden(t *testing.T) {
	assert.True(t, AllowedExt(".PDF"))
	assert.True(t, AllowedExt("txt"))
	assert.False(t, AllowedExt(".png"))

	assert.True(t, IsHidden("/a/.cache"))
	assert.False(t, IsHidden("/a/b.pdf"))
	assert.False(t, IsHidden("."))
}

func TestHashFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "a.txt")
	writeFile(t, p, "abc")
	h, err := HashFile(p)
	require.NoError(t, err)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", h)

	_, err = HashFile(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "b.pdf"), "x")
	writeFile(t, filepath.Join(root, "sub", "a.TXT"), "x")
	writeFile(t, filepath.Join(root, "notes.md"), "x")
	writeFile(t, filepath.Join(root, ".hidden", "c.pdf"), "x")
	single := filepath.Join(t.TempDir(), "single.txt")
	writeFile(t, single, "x")

	files, stats, err := Discover([]string{root, single, root}, true)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "b.pdf"),
		filepath.Join(root, "sub", "a.TXT"),
		single,
	}, files)
	assert.Equal(t, uint32(3), stats.Matched)

	withHidden, _, err := Discover([]string{root}, false)
	require.NoError(t, err)
	assert.Len(t, withHidden, 3)

	_, _, err = Discover([]string{filepath.Join(root, "notes.md")}, true)
	assert.Error(t, err)
	_, _, err = Discover([]string{t.TempDir()}, true)
	assert.Error(t, err)
}

func TestStartWatcherInitialScanAndEvents(t *testing.T) {
	root := t.TempDir()
	existing := filepath.Join(root, "existing.pdf")
	writeFile(t, existing, "x")

	ev, _, err := StartWatcher(t.Context(), WatchConfig{
		Roots:       []string{root},
		InitialScan: true,
		Debounce:    20 * time.Millisecond,
	})
	require.NoError(t, err)

	select {
	case p := <-ev:
		assert.Equal(t, existing, p)
	case <-time.After(2 * time.Second):
		t.Fatal("initial scan not emitted")
	}

	writeFile(t, filepath.Join(root, "ignored.png"), "x")
	created := filepath.Join(root, "new.txt")
	writeFile(t, created, "x")

	select {
	case p := <-ev:
		assert.Equal(t, created, p)
	case <-time.After(3 * time.Second):
		t.Fatal("create event not emitted")
	}
}

func TestStartWatcherStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	ev, errs, err := StartWatcher(ctx, WatchConfig{Roots: []string{t.TempDir()}})
	require.NoError(t, err)
	cancel()

	require.Eventually(t, func() bool {
		select {
		case _, ok := <-ev:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
	_, ok := <-errs
	assert.False(t, ok)

	_, _, err = StartWatcher(t.Context(), WatchConfig{})
	assert.Error(t, err)
}
