package js

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/dop251/goja"

	"github.com/fathom-editor/fathom/internal/plugin/api"
	"github.com/fathom-editor/fathom/internal/plugin/protocol"
	"github.com/fathom-editor/fathom/internal/plugin/transpile"
)

// Host owns a single goja runtime with the editor API installed. All
// methods that touch the interpreter must be called from one goroutine.
type Host struct {
	vm      *goja.Runtime
	view    *api.StateView
	sink    api.Sink
	pending *protocol.Map
	events  *HandlerRegistry
	actions *ActionRegistry
	log     *slog.Logger

	// loadingHandlers collects handler names registered while a module
	// is being evaluated, so they can be promoted out of the module's
	// wrapper scope once evaluation finishes.
	loading         bool
	loadingHandlers []string

	installErr error
	closed     bool
}

// Option configures a Host.
type Option func(*Host)

// WithLogger sets the logger used for plugin console output and handler
// error reports.
func WithLogger(log *slog.Logger) Option {
	return func(h *Host) {
		if log != nil {
			h.log = log
		}
	}
}

// NewHost creates an interpreter, installs the editor API, and runs the
// built-in prelude. The returned Host holds no goroutines of its own.
func NewHost(view *api.StateView, sink api.Sink, pending *protocol.Map, opts ...Option) (*Host, error) {
	h := &Host{
		vm:      goja.New(),
		view:    view,
		sink:    sink,
		pending: pending,
		events:  NewHandlerRegistry(),
		actions: NewActionRegistry(),
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.installAPI()
	if h.installErr != nil {
		return nil, fmt.Errorf("js: installing api: %w", h.installErr)
	}
	if _, err := h.vm.RunScript("<prelude>", prelude); err != nil {
		return nil, fmt.Errorf("js: installing prelude: %w", err)
	}
	return h, nil
}

// Events exposes the handler registry for inspection.
func (h *Host) Events() *HandlerRegistry { return h.events }

// Actions exposes the action registry for inspection.
func (h *Host) Actions() *ActionRegistry { return h.actions }

// Close marks the host unusable. Pending entries are left to the owner of
// the protocol map.
func (h *Host) Close() {
	h.closed = true
}

// LoadFile reads and evaluates the plugin rooted at path.
func (h *Host) LoadFile(path string) error {
	source, err := os.ReadFile(path)
	if err != nil {
		return &EvalError{Unit: path, Cause: err}
	}
	return h.LoadModule(path, string(source))
}

// LoadModule prepares and evaluates one plugin. Sources containing module
// syntax are bundled together with their local imports starting from
// path; plain sources are transpiled alone. The result runs inside a
// function wrapper so that top-level declarations do not collide across
// plugins, and handler names registered during the load are promoted to
// globals so later event dispatch can reach them.
func (h *Host) LoadModule(path, source string) error {
	if h.closed {
		return ErrHostClosed
	}
	var (
		code string
		err  error
	)
	if transpile.HasModuleSyntax(source) {
		code, err = transpile.Bundle(path)
	} else {
		code, err = transpile.Transpile(source, path)
	}
	if err != nil {
		return &EvalError{Unit: path, Cause: err}
	}

	h.loading = true
	h.loadingHandlers = nil
	defer func() {
		h.loading = false
		h.loadingHandlers = nil
	}()

	wrapped := wrapModule(code)
	if _, err := h.vm.RunScript(path, wrapped); err != nil {
		return &EvalError{Unit: path, Cause: err}
	}
	return nil
}

// wrapModule encloses code in an immediately invoked function. The
// trailing call hands an eval-backed resolver to the host so functions
// declared in the wrapper scope can be looked up by name and promoted.
func wrapModule(code string) string {
	var b strings.Builder
	b.Grow(len(code) + 160)
	b.WriteString("(function() {\n")
	b.WriteString(code)
	b.WriteString("\n__fathom_expose(function(__name) { try { return eval(__name); } catch (_) { return undefined; } });\n")
	b.WriteString("})();")
	return b.String()
}

// DoString evaluates src in the global scope. Intended for tests and the
// interactive check command.
func (h *Host) DoString(src string) (goja.Value, error) {
	if h.closed {
		return nil, ErrHostClosed
	}
	return h.vm.RunScript("<input>", src)
}

// GetGlobal returns the value bound to name in the global scope, or nil
// if unset.
func (h *Host) GetGlobal(name string) goja.Value {
	return h.vm.Get(name)
}
