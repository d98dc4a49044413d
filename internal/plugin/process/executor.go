package process

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/tidwall/sjson"

	"github.com/fathom-editor/fathom/internal/plugin/api"
)

// Deliverer routes a finished Response back toward the interpreter.
type Deliverer interface {
	// Deliver enqueues the response and reports whether it was accepted.
	Deliver(resp api.Response) bool
}

// TextProvider answers buffer text reads. Implemented by the editor's
// buffer store.
type TextProvider interface {
	// BufferText returns the byte range [start, end) of a buffer. An end
	// of -1 means the end of the buffer.
	BufferText(buffer api.BufferID, start, end int) (string, error)
}

// Forwarder receives the commands the Executor does not handle itself
// (the fire-and-forget editor commands).
type Forwarder func(cmd api.Command)

// Executor services correlated commands.
type Executor struct {
	deliver Deliverer
	text    TextProvider
	forward Forwarder
	log     *slog.Logger

	mu      sync.Mutex
	cancels map[uint64]context.CancelFunc
	procs   map[int]*os.Process

	wg sync.WaitGroup
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithTextProvider wires buffer reads to the editor's buffer store.
// Without one, getBufferText requests fail.
func WithTextProvider(p TextProvider) ExecutorOption {
	return func(e *Executor) { e.text = p }
}

// WithForwarder routes non-correlated commands to the editor.
func WithForwarder(f Forwarder) ExecutorOption {
	return func(e *Executor) { e.forward = f }
}

// WithExecutorLogger sets the executor's logger.
func WithExecutorLogger(log *slog.Logger) ExecutorOption {
	return func(e *Executor) {
		if log != nil {
			e.log = log
		}
	}
}

// NewExecutor creates an Executor delivering responses through d.
func NewExecutor(d Deliverer, opts ...ExecutorOption) *Executor {
	e := &Executor{
		deliver: d,
		log:     slog.Default(),
		cancels: make(map[uint64]context.CancelFunc),
		procs:   make(map[int]*os.Process),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run consumes commands until the channel closes or the context is
// cancelled, then waits for in-flight operations to finish.
func (e *Executor) Run(ctx context.Context, commands <-chan api.Command) {
	for {
		select {
		case <-ctx.Done():
			e.wg.Wait()
			return
		case cmd, ok := <-commands:
			if !ok {
				e.wg.Wait()
				return
			}
			e.handle(ctx, cmd)
		}
	}
}

func (e *Executor) handle(ctx context.Context, cmd api.Command) {
	switch c := cmd.(type) {
	case api.Delay:
		e.startDelay(ctx, c)
	case api.GetBufferText:
		e.handleBufferText(c)
	case api.SpawnProcess:
		e.startSpawn(ctx, c)
	case api.SpawnBackgroundProcess:
		e.handleSpawnBackground(c)
	case api.KillProcess:
		e.handleKill(c)
	case api.Cancel:
		e.cancel(c.RequestID)
	default:
		if e.forward != nil {
			e.forward(cmd)
		} else {
			e.log.Debug("unhandled command", "command", cmd.CommandName())
		}
	}
}

// registerCancel installs a per-request cancel derived from ctx.
func (e *Executor) registerCancel(ctx context.Context, id uint64) context.Context {
	reqCtx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.cancels[id] = cancel
	e.mu.Unlock()
	return reqCtx
}

// clearCancel removes and releases the per-request cancel.
func (e *Executor) clearCancel(id uint64) {
	e.mu.Lock()
	cancel, ok := e.cancels[id]
	delete(e.cancels, id)
	e.mu.Unlock()
	if ok {
		cancel()
	}
}

// cancel stops the operation registered under id, if it is still running.
func (e *Executor) cancel(id uint64) {
	e.mu.Lock()
	cancel, ok := e.cancels[id]
	delete(e.cancels, id)
	e.mu.Unlock()
	if ok {
		cancel()
	}
}

func (e *Executor) respond(resp api.Response) {
	if !e.deliver.Deliver(resp) {
		e.log.Warn("response dropped", "request", resp.RequestID)
	}
}

func (e *Executor) startDelay(ctx context.Context, c api.Delay) {
	reqCtx := e.registerCancel(ctx, c.ID)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer e.clearCancel(c.ID)

		timer := time.NewTimer(time.Duration(c.Millis) * time.Millisecond)
		defer timer.Stop()
		select {
		case <-timer.C:
			e.respond(api.Success(c.ID, "null"))
		case <-reqCtx.Done():
		}
	}()
}

func (e *Executor) handleBufferText(c api.GetBufferText) {
	if e.text == nil {
		e.respond(api.Failure(c.ID, "buffer text is not available"))
		return
	}
	text, err := e.text.BufferText(c.Buffer, c.Start, c.End)
	if err != nil {
		e.respond(api.Failure(c.ID, err.Error()))
		return
	}
	payload, err := json.Marshal(text)
	if err != nil {
		e.respond(api.Failure(c.ID, err.Error()))
		return
	}
	e.respond(api.Success(c.ID, string(payload)))
}

func (e *Executor) startSpawn(ctx context.Context, c api.SpawnProcess) {
	reqCtx := e.registerCancel(ctx, c.ID)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer e.clearCancel(c.ID)

		var stdout, stderr bytes.Buffer
		cmd := exec.CommandContext(reqCtx, c.Command, c.Args...)
		cmd.Dir = c.Dir
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr

		err := cmd.Run()
		if reqCtx.Err() != nil {
			// Cancelled: the promise is already rejected, stay silent.
			return
		}

		exitCode := 0
		if err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				exitCode = exitErr.ExitCode()
			} else {
				e.respond(api.Failure(c.ID, err.Error()))
				return
			}
		}
		payload := "{}"
		payload, _ = sjson.Set(payload, "stdout", stdout.String())
		payload, _ = sjson.Set(payload, "stderr", stderr.String())
		payload, _ = sjson.Set(payload, "exitCode", exitCode)
		e.respond(api.Success(c.ID, payload))
	}()
}

func (e *Executor) handleSpawnBackground(c api.SpawnBackgroundProcess) {
	cmd := exec.Command(c.Command, c.Args...)
	cmd.Dir = c.Dir
	if err := cmd.Start(); err != nil {
		e.respond(api.Failure(c.ID, err.Error()))
		return
	}

	pid := cmd.Process.Pid
	e.mu.Lock()
	e.procs[pid] = cmd.Process
	e.mu.Unlock()

	// Reap the process so it never lingers as a zombie.
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		_ = cmd.Wait()
		e.mu.Lock()
		delete(e.procs, pid)
		e.mu.Unlock()
	}()

	payload, _ := sjson.Set("{}", "pid", pid)
	e.respond(api.Success(c.ID, payload))
}

func (e *Executor) handleKill(c api.KillProcess) {
	e.mu.Lock()
	proc, ok := e.procs[c.PID]
	e.mu.Unlock()
	if !ok {
		e.respond(api.Failure(c.ID, "unknown process id"))
		return
	}
	if err := proc.Kill(); err != nil {
		e.respond(api.Failure(c.ID, err.Error()))
		return
	}
	e.respond(api.Success(c.ID, "null"))
}
