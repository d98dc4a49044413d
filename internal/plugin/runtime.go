package plugin

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/fathom-editor/fathom/internal/plugin/api"
	"github.com/fathom-editor/fathom/internal/plugin/js"
)

// hostCall is one script operation to run on the interpreter goroutine.
type hostCall struct {
	fn     func(h *js.Host) error
	result chan error
}

// Runtime serializes all interpreter work through a single goroutine.
//
// The goja runtime is not goroutine-safe: every script, handler, and
// promise reaction must run on one goroutine. Runtime provides the
// channel plumbing to marshal calls from the rest of the editor onto
// that goroutine, and a separate completion queue through which
// asynchronous responses re-enter the interpreter. Queued completions
// are always delivered before the next call executes, so a response
// never lands while plugin code is mid-script.
type Runtime struct {
	host        *js.Host
	calls       chan *hostCall
	completions chan api.Response
	closed      atomic.Bool
	done        chan struct{}
	closeOnce   sync.Once
	log         *slog.Logger
}

// DefaultQueueSize bounds both the call queue and the completion queue.
const DefaultQueueSize = 128

// NewRuntime creates a Runtime for the given host. Run must be started
// before any call is submitted.
func NewRuntime(host *js.Host, log *slog.Logger) *Runtime {
	if log == nil {
		log = slog.Default()
	}
	return &Runtime{
		host:        host,
		calls:       make(chan *hostCall, DefaultQueueSize),
		completions: make(chan api.Response, DefaultQueueSize),
		done:        make(chan struct{}),
		log:         log,
	}
}

// Host returns the interpreter host owned by this runtime. Callers must
// only touch it through Do.
func (r *Runtime) Host() *js.Host { return r.host }

// Run processes calls and completions until the context is cancelled or
// Close is called. It owns the interpreter for its entire duration.
func (r *Runtime) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			r.drainCalls(ctx.Err())
			return
		case <-r.done:
			r.drainCalls(ErrRuntimeClosed)
			return
		case resp := <-r.completions:
			r.host.DeliverResponse(resp)
		case call := <-r.calls:
			r.deliverQueued()
			err := r.execute(call)
			select {
			case call.result <- err:
			default:
			}
			close(call.result)
		}
	}
}

// deliverQueued flushes every completion already waiting, so responses
// that arrived while a previous script ran are delivered before the next
// one starts.
func (r *Runtime) deliverQueued() {
	for {
		select {
		case resp := <-r.completions:
			r.host.DeliverResponse(resp)
		default:
			return
		}
	}
}

// execute runs a single call with panic recovery, so a misbehaving
// binding cannot take down the runtime goroutine.
func (r *Runtime) execute(call *hostCall) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			switch v := rec.(type) {
			case error:
				err = v
			case string:
				err = errors.New(v)
			default:
				err = errors.New("interpreter panic")
			}
			r.log.Error("interpreter call panicked", "error", err)
		}
	}()
	return call.fn(r.host)
}

// drainCalls fails every queued call with err.
func (r *Runtime) drainCalls(err error) {
	for {
		select {
		case call := <-r.calls:
			select {
			case call.result <- err:
			default:
			}
			close(call.result)
		default:
			return
		}
	}
}

// Do runs fn on the interpreter goroutine and waits for its result.
func (r *Runtime) Do(ctx context.Context, fn func(h *js.Host) error) error {
	if r.closed.Load() {
		return ErrRuntimeClosed
	}
	call := &hostCall{fn: fn, result: make(chan error, 1)}
	select {
	case r.calls <- call:
	case <-r.done:
		return ErrRuntimeClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err, ok := <-call.result:
		if !ok {
			return ErrRuntimeClosed
		}
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Deliver enqueues a response for delivery between scripts. It reports
// false when the runtime is closed or the completion queue is full; the
// pending entry then stays unresolved until the map is drained.
func (r *Runtime) Deliver(resp api.Response) bool {
	if r.closed.Load() {
		return false
	}
	select {
	case r.completions <- resp:
		return true
	default:
		return false
	}
}

// Load evaluates the plugin rooted at path.
func (r *Runtime) Load(ctx context.Context, path string) error {
	return r.Do(ctx, func(h *js.Host) error {
		return h.LoadFile(path)
	})
}

// Emit dispatches an event to every subscribed handler and reports
// whether the event was accepted (no handler returned false).
func (r *Runtime) Emit(ctx context.Context, event, payload string) (bool, error) {
	accepted := true
	err := r.Do(ctx, func(h *js.Host) error {
		accepted = h.Emit(event, payload)
		return nil
	})
	return accepted, err
}

// ExecuteAction runs a registered action and reports whether it was
// known.
func (r *Runtime) ExecuteAction(ctx context.Context, name string) (bool, error) {
	known := false
	err := r.Do(ctx, func(h *js.Host) error {
		known = h.ExecuteAction(name)
		return nil
	})
	return known, err
}

// Close stops the runtime. Queued calls fail with ErrRuntimeClosed.
func (r *Runtime) Close() {
	r.closeOnce.Do(func() {
		r.closed.Store(true)
		close(r.done)
	})
}
