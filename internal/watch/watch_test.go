package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherDebouncesChanges(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "md2html.watch")
	defer teardown()

	dir := t.TempDir()
	sub := filepath.Join(dir, "docs")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	var calls atomic.Int32
	changed := make(chan string, 8)
	w, err := New([]string{dir, filepath.Join(dir, "missing")}, 50*time.Millisecond, func(path string) {
		calls.Add(1)
		changed <- path
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	target := filepath.Join(sub, "page.md")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(target, []byte("# edit"), 0o644))
	}

	select {
	case got := <-changed:
		assert.Equal(t, target, got)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcherIgnoresHiddenFiles(t *testing.T) {
	dir := t.TempDir()
	changed := make(chan string, 1)
	w, err := New([]string{dir}, 20*time.Millisecond, func(path string) { changed <- path })
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".swap"), []byte("x"), 0o644))
	select {
	case got := <-changed:
		t.Fatalf("unexpected change %s", got)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcherSingleFileIgnoresSiblings(t *testing.T) {
	dir := t.TempDir()
	tmpl := filepath.Join(dir, "template.html")
	require.NoError(t, os.WriteFile(tmpl, []byte("<html>"), 0o644))

	changed := make(chan string, 4)
	w, err := New([]string{tmpl}, 20*time.Millisecond, func(path string) { changed <- path })
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "public"), 0o755))
	select {
	case got := <-changed:
		t.Fatalf("unexpected change %s", got)
	case <-time.After(300 * time.Millisecond):
	}

	require.NoError(t, os.WriteFile(tmpl, []byte("<html><body>"), 0o644))
	select {
	case got := <-changed:
		assert.Equal(t, tmpl, got)
	case <-time.After(5 * time.Second):
		t.Fatal("template change not reported")
	}
}
