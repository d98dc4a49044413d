package plugin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/fathom-editor/fathom/internal/plugin/api"
	"github.com/fathom-editor/fathom/internal/plugin/js"
	"github.com/fathom-editor/fathom/internal/plugin/protocol"
)

// Manager owns the plugin system: discovery, the interpreter runtime,
// and per-plugin bookkeeping. One Manager means one shared interpreter;
// plugins are isolated by scope, not by instance.
type Manager struct {
	mu       sync.RWMutex
	loader   *Loader
	view     *api.StateView
	sink     api.Sink
	pending  *protocol.Map
	runtime  *Runtime
	plugins  map[string]*Info
	order    []string
	disabled map[string]bool
	log      *slog.Logger

	runCtx  context.Context
	runDone chan struct{}
	started bool
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithManagerLogger sets the logger for the manager and its interpreter.
func WithManagerLogger(log *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

// WithLoader replaces the plugin loader.
func WithLoader(l *Loader) ManagerOption {
	return func(m *Manager) {
		if l != nil {
			m.loader = l
		}
	}
}

// WithDisabled marks plugin names that must never be loaded.
func WithDisabled(names ...string) ManagerOption {
	return func(m *Manager) {
		for _, name := range names {
			m.disabled[name] = true
		}
	}
}

// NewManager creates a Manager with a fresh interpreter. Start must be
// called before any plugin is loaded.
func NewManager(view *api.StateView, sink api.Sink, opts ...ManagerOption) (*Manager, error) {
	m := &Manager{
		loader:   NewLoader(),
		view:     view,
		sink:     sink,
		pending:  protocol.NewMap(),
		plugins:  make(map[string]*Info),
		disabled: make(map[string]bool),
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}

	host, err := js.NewHost(view, sink, m.pending, js.WithLogger(m.log))
	if err != nil {
		return nil, fmt.Errorf("plugin: creating interpreter: %w", err)
	}
	m.runtime = NewRuntime(host, m.log)
	return m, nil
}

// Start launches the interpreter goroutine. The context bounds the whole
// plugin system's lifetime, including interpreters created by reloads.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return
	}
	m.runCtx = ctx
	m.started = true
	m.startLocked()
}

func (m *Manager) startLocked() {
	done := make(chan struct{})
	rt := m.runtime
	ctx := m.runCtx
	go func() {
		rt.Run(ctx)
		close(done)
	}()
	m.runDone = done
}

// Runtime returns the current interpreter runtime. The value changes
// across reloads; do not cache it.
func (m *Manager) Runtime() *Runtime {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.runtime
}

// LoadAll discovers and loads every plugin. A plugin that fails to load
// is recorded in StateError and does not stop the others; the joined
// error reports every failure.
func (m *Manager) LoadAll(ctx context.Context) error {
	var errs []error
	for _, info := range m.loader.Discover() {
		if err := m.LoadPlugin(ctx, info); err != nil {
			if errors.Is(err, ErrPluginDisabled) || errors.Is(err, ErrAlreadyLoaded) {
				continue
			}
			errs = append(errs, fmt.Errorf("plugin %s: %w", info.Name, err))
		}
	}
	return errors.Join(errs...)
}

// LoadPlugin evaluates one plugin and records the outcome.
func (m *Manager) LoadPlugin(ctx context.Context, info *Info) error {
	m.mu.Lock()
	if existing, ok := m.plugins[info.Name]; ok && existing.State == StateLoaded {
		m.mu.Unlock()
		return ErrAlreadyLoaded
	}
	if m.disabled[info.Name] {
		info.State = StateDisabled
		m.record(info)
		m.mu.Unlock()
		return ErrPluginDisabled
	}
	rt := m.runtime
	m.mu.Unlock()

	err := rt.Load(ctx, info.Entry)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		info.State = StateError
		info.Err = err
		m.record(info)
		return err
	}
	info.State = StateLoaded
	info.Err = nil
	m.record(info)
	m.log.Info("plugin loaded", "plugin", info.Name, "entry", info.Entry)
	return nil
}

// record must be called with mu held.
func (m *Manager) record(info *Info) {
	if _, ok := m.plugins[info.Name]; !ok {
		m.order = append(m.order, info.Name)
	}
	m.plugins[info.Name] = info
}

// Plugins returns all known plugins in load order.
func (m *Manager) Plugins() []*Info {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Info, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, m.plugins[name])
	}
	return out
}

// Get returns a plugin by name.
func (m *Manager) Get(name string) (*Info, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	info, ok := m.plugins[name]
	return info, ok
}

// Emit dispatches an event through the current runtime.
func (m *Manager) Emit(ctx context.Context, event, payload string) (bool, error) {
	return m.Runtime().Emit(ctx, event, payload)
}

// ExecuteAction runs a registered action through the current runtime.
func (m *Manager) ExecuteAction(ctx context.Context, name string) (bool, error) {
	return m.Runtime().ExecuteAction(ctx, name)
}

// Deliver routes an asynchronous response to the current runtime.
func (m *Manager) Deliver(resp api.Response) bool {
	return m.Runtime().Deliver(resp)
}

// Reload tears down the interpreter, fails outstanding requests, and
// loads every discovered plugin into a fresh interpreter. Handler and
// action registrations from the old interpreter disappear with it.
func (m *Manager) Reload(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started {
		return errors.New("plugin: reload before Start")
	}

	if err := m.stopRuntimeLocked(ctx, "plugin reloaded"); err != nil {
		return err
	}

	host, err := js.NewHost(m.view, m.sink, m.pending, js.WithLogger(m.log))
	if err != nil {
		return fmt.Errorf("plugin: recreating interpreter: %w", err)
	}
	m.runtime = NewRuntime(host, m.log)
	m.startLocked()

	plugins := m.plugins
	m.plugins = make(map[string]*Info)
	m.order = nil
	m.mu.Unlock()

	var errs []error
	for _, info := range m.loader.Discover() {
		if _, known := plugins[info.Name]; !known {
			m.log.Info("plugin discovered during reload", "plugin", info.Name)
		}
		if err := m.LoadPlugin(ctx, info); err != nil {
			if errors.Is(err, ErrPluginDisabled) {
				continue
			}
			errs = append(errs, fmt.Errorf("plugin %s: %w", info.Name, err))
		}
	}

	m.mu.Lock()
	return errors.Join(errs...)
}

// stopRuntimeLocked closes the current runtime, waits for its goroutine
// to exit, and rejects every in-flight request with reason. Must be
// called with mu held.
func (m *Manager) stopRuntimeLocked(ctx context.Context, reason string) error {
	m.runtime.Close()
	if m.runDone != nil {
		select {
		case <-m.runDone:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	// The old interpreter is quiescent now; rejecting on this goroutine
	// is safe because nothing else can touch it again.
	for _, p := range m.pending.Drain() {
		p.Reject(reason)
	}
	m.runtime.Host().Close()
	return nil
}

// Close stops the interpreter and fails outstanding requests.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started {
		return nil
	}
	m.started = false
	return m.stopRuntimeLocked(ctx, "editor shutting down")
}
