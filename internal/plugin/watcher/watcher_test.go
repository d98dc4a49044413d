package watcher

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func startWatcher(t *testing.T, dir string) *Watcher {
	t.Helper()
	w, err := New([]string{dir},
		WithDebounce(30*time.Millisecond),
		WithWatcherLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		if err := w.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("watcher did not stop")
		}
	})
	return w
}

func waitForBatch(t *testing.T, w *Watcher) []string {
	t.Helper()
	select {
	case batch := <-w.Changes():
		return batch
	case <-time.After(5 * time.Second):
		t.Fatal("no change batch delivered")
		return nil
	}
}

func TestWatcherReportsSourceChanges(t *testing.T) {
	dir := t.TempDir()
	w := startWatcher(t, dir)

	path := filepath.Join(dir, "plugin.ts")
	if err := os.WriteFile(path, []byte("// v1"), 0o644); err != nil {
		t.Fatal(err)
	}

	batch := waitForBatch(t, w)
	found := false
	for _, p := range batch {
		if p == path {
			found = true
		}
	}
	if !found {
		t.Errorf("batch %v does not contain %s", batch, path)
	}
}

func TestWatcherCoalescesBurst(t *testing.T) {
	dir := t.TempDir()
	w := startWatcher(t, dir)

	for i := 0; i < 5; i++ {
		name := filepath.Join(dir, "burst.ts")
		if err := os.WriteFile(name, []byte{byte('0' + i)}, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	batch := waitForBatch(t, w)
	if len(batch) != 1 {
		t.Errorf("burst produced batch %v, want a single path", batch)
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	w := startWatcher(t, dir)

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case batch := <-w.Changes():
		t.Errorf("unexpected batch %v for a non-source file", batch)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcherSeesNewDirectory(t *testing.T) {
	dir := t.TempDir()
	w := startWatcher(t, dir)

	sub := filepath.Join(dir, "newplugin")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	waitForBatch(t, w)

	// Files inside the new directory are watched too.
	if err := os.WriteFile(filepath.Join(sub, "init.ts"), []byte("// init"), 0o644); err != nil {
		t.Fatal(err)
	}
	batch := waitForBatch(t, w)
	found := false
	for _, p := range batch {
		if p == filepath.Join(sub, "init.ts") {
			found = true
		}
	}
	if !found {
		t.Errorf("batch %v missing file in new directory", batch)
	}
}

func TestWatchMissingPath(t *testing.T) {
	w, err := New([]string{filepath.Join(t.TempDir(), "absent")},
		WithWatcherLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		t.Fatalf("New() with a missing path should not fail: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
