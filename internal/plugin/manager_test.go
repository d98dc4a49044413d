package plugin

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fathom-editor/fathom/internal/plugin/api"
	"github.com/fathom-editor/fathom/internal/plugin/js"
)

func newTestManager(t *testing.T, dir string, opts ...ManagerOption) *Manager {
	t.Helper()
	view := api.NewStateView()
	sink := &api.CaptureSink{}
	opts = append([]ManagerOption{
		WithManagerLogger(testLogger()),
		WithLoader(NewLoader(WithPaths(dir))),
	}, opts...)
	m, err := NewManager(view, sink, opts...)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)
	t.Cleanup(func() {
		if err := m.Close(context.Background()); err != nil {
			t.Errorf("Close() error = %v", err)
		}
		cancel()
	})
	return m
}

func managerGlobal(t *testing.T, m *Manager, name string) string {
	t.Helper()
	var got string
	err := m.Runtime().Do(context.Background(), func(h *js.Host) error {
		v := h.GetGlobal(name)
		if v == nil {
			got = "<unset>"
			return nil
		}
		got = v.String()
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	return got
}

func TestManagerLoadAll(t *testing.T) {
	dir := t.TempDir()
	writePluginFile(t, filepath.Join(dir, "greet.ts"), `
		globalThis.greeting = "hi";
		function onTick(): void { globalThis.ticks = (globalThis.ticks || 0) + 1; }
		editor.on("tick", "onTick");
	`)
	writePluginFile(t, filepath.Join(dir, "broken.ts"), `function oops( {`)

	m := newTestManager(t, dir)
	err := m.LoadAll(context.Background())
	if err == nil {
		t.Fatal("LoadAll() should report the broken plugin")
	}
	if !strings.Contains(err.Error(), "broken") {
		t.Errorf("LoadAll() error %q does not name the broken plugin", err)
	}

	greet, ok := m.Get("greet")
	if !ok || greet.State != StateLoaded {
		t.Errorf("greet state = %v, want loaded", greet)
	}
	broken, ok := m.Get("broken")
	if !ok || broken.State != StateError {
		t.Errorf("broken state = %v, want error", broken)
	}
	if broken.Err == nil {
		t.Error("broken plugin has no recorded error")
	}

	if got := managerGlobal(t, m, "greeting"); got != "hi" {
		t.Errorf("greeting = %q, want hi", got)
	}
	accepted, err := m.Emit(context.Background(), "tick", "")
	if err != nil || !accepted {
		t.Fatalf("Emit() = %v, %v", accepted, err)
	}
	if got := managerGlobal(t, m, "ticks"); got != "1" {
		t.Errorf("ticks = %q, want 1", got)
	}
}

func TestManagerDisabledPlugin(t *testing.T) {
	dir := t.TempDir()
	writePluginFile(t, filepath.Join(dir, "noisy.ts"), `globalThis.noise = true;`)

	m := newTestManager(t, dir, WithDisabled("noisy"))
	if err := m.LoadAll(context.Background()); err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}

	info, ok := m.Get("noisy")
	if !ok || info.State != StateDisabled {
		t.Errorf("noisy state = %v, want disabled", info)
	}
	if got := managerGlobal(t, m, "noise"); got != "<unset>" {
		t.Error("disabled plugin was evaluated")
	}
}

func TestManagerReloadPicksUpChanges(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "mut.ts")
	writePluginFile(t, entry, `globalThis.version = "v1";`)

	m := newTestManager(t, dir)
	if err := m.LoadAll(context.Background()); err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if got := managerGlobal(t, m, "version"); got != "v1" {
		t.Fatalf("version = %q, want v1", got)
	}

	writePluginFile(t, entry, `globalThis.version = "v2";`)
	if err := m.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if got := managerGlobal(t, m, "version"); got != "v2" {
		t.Errorf("version after reload = %q, want v2", got)
	}

	info, ok := m.Get("mut")
	if !ok || info.State != StateLoaded {
		t.Errorf("mut state after reload = %v, want loaded", info)
	}
}

func TestManagerReloadDropsOldRegistrations(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "sub.ts")
	writePluginFile(t, entry, `
		function onTick() { globalThis.ticked = true; }
		editor.on("tick", "onTick");
	`)

	m := newTestManager(t, dir)
	if err := m.LoadAll(context.Background()); err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}

	// The new source subscribes to a different event; the old
	// subscription must not survive the reload.
	writePluginFile(t, entry, `
		function onSave() { globalThis.savedSeen = true; }
		editor.on("buffer_saved", "onSave");
	`)
	if err := m.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}

	if _, err := m.Emit(context.Background(), "tick", ""); err != nil {
		t.Fatal(err)
	}
	if got := managerGlobal(t, m, "ticked"); got != "<unset>" {
		t.Error("old subscription fired after reload")
	}
	if _, err := m.Emit(context.Background(), "buffer_saved", ""); err != nil {
		t.Fatal(err)
	}
	if got := managerGlobal(t, m, "savedSeen"); got != "true" {
		t.Errorf("new subscription did not fire, savedSeen = %q", got)
	}
}

func TestManagerLoadPluginTwice(t *testing.T) {
	dir := t.TempDir()
	writePluginFile(t, filepath.Join(dir, "once.ts"), `globalThis.loads = (globalThis.loads || 0) + 1;`)

	m := newTestManager(t, dir)
	plugins := m.loader.Discover()
	if len(plugins) != 1 {
		t.Fatalf("discovered %d plugins, want 1", len(plugins))
	}
	if err := m.LoadPlugin(context.Background(), plugins[0]); err != nil {
		t.Fatalf("first load: %v", err)
	}
	if err := m.LoadPlugin(context.Background(), plugins[0]); !errors.Is(err, ErrAlreadyLoaded) {
		t.Errorf("second load = %v, want ErrAlreadyLoaded", err)
	}
	if got := managerGlobal(t, m, "loads"); got != "1" {
		t.Errorf("plugin evaluated %s times, want 1", got)
	}
}

func TestManagerCloseStopsRuntime(t *testing.T) {
	dir := t.TempDir()
	m := newTestManager(t, dir)
	rt := m.Runtime()
	if err := m.Close(context.Background()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	err := rt.Do(context.Background(), func(h *js.Host) error { return nil })
	if !errors.Is(err, ErrRuntimeClosed) {
		t.Errorf("Do() after Close = %v, want ErrRuntimeClosed", err)
	}
}
