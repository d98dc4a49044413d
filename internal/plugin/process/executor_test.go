package process

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/tidwall/gjson"

	"github.com/fathom-editor/fathom/internal/plugin/api"
)

// captureDeliverer collects responses and signals each arrival.
type captureDeliverer struct {
	mu    sync.Mutex
	resps []api.Response
	ch    chan api.Response
}

func newCaptureDeliverer() *captureDeliverer {
	return &captureDeliverer{ch: make(chan api.Response, 16)}
}

func (d *captureDeliverer) Deliver(resp api.Response) bool {
	d.mu.Lock()
	d.resps = append(d.resps, resp)
	d.mu.Unlock()
	d.ch <- resp
	return true
}

func (d *captureDeliverer) wait(t *testing.T) api.Response {
	t.Helper()
	select {
	case resp := <-d.ch:
		return resp
	case <-time.After(5 * time.Second):
		t.Fatal("no response delivered")
		return api.Response{}
	}
}

func (d *captureDeliverer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.resps)
}

type stubText struct {
	text string
	err  error
}

func (s stubText) BufferText(buffer api.BufferID, start, end int) (string, error) {
	return s.text, s.err
}

func startExecutor(t *testing.T, e *Executor) chan<- api.Command {
	t.Helper()
	commands := make(chan api.Command, 16)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		e.Run(ctx, commands)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("executor did not stop")
		}
	})
	return commands
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDelayDelivers(t *testing.T) {
	d := newCaptureDeliverer()
	e := NewExecutor(d, WithExecutorLogger(quietLogger()))
	commands := startExecutor(t, e)

	commands <- api.Delay{Request: api.Request{ID: 7}, Millis: 5}

	resp := d.wait(t)
	if resp.RequestID != 7 || resp.Failed() {
		t.Errorf("response = %+v, want success for request 7", resp)
	}
	if resp.Payload != "null" {
		t.Errorf("payload = %q, want null", resp.Payload)
	}
}

func TestDelayCancelled(t *testing.T) {
	d := newCaptureDeliverer()
	e := NewExecutor(d, WithExecutorLogger(quietLogger()))
	commands := startExecutor(t, e)

	commands <- api.Delay{Request: api.Request{ID: 3}, Millis: 60_000}
	commands <- api.Cancel{RequestID: 3}

	time.Sleep(50 * time.Millisecond)
	if got := d.count(); got != 0 {
		t.Errorf("cancelled delay delivered %d responses, want 0", got)
	}
}

func TestGetBufferText(t *testing.T) {
	d := newCaptureDeliverer()
	e := NewExecutor(d, WithExecutorLogger(quietLogger()), WithTextProvider(stubText{text: "line one\nline two"}))
	commands := startExecutor(t, e)

	commands <- api.GetBufferText{Request: api.Request{ID: 1}, Buffer: 4, Start: 0, End: -1}

	resp := d.wait(t)
	if resp.Failed() {
		t.Fatalf("response failed: %s", resp.Err)
	}
	if got := gjson.Parse(resp.Payload).String(); got != "line one\nline two" {
		t.Errorf("payload decodes to %q", got)
	}
}

func TestGetBufferTextErrors(t *testing.T) {
	d := newCaptureDeliverer()
	e := NewExecutor(d, WithExecutorLogger(quietLogger()), WithTextProvider(stubText{err: errors.New("no such buffer")}))
	commands := startExecutor(t, e)

	commands <- api.GetBufferText{Request: api.Request{ID: 2}, Buffer: 99}

	resp := d.wait(t)
	if !resp.Failed() || resp.Err != "no such buffer" {
		t.Errorf("response = %+v, want failure no such buffer", resp)
	}
}

func TestGetBufferTextWithoutProvider(t *testing.T) {
	d := newCaptureDeliverer()
	e := NewExecutor(d, WithExecutorLogger(quietLogger()))
	commands := startExecutor(t, e)

	commands <- api.GetBufferText{Request: api.Request{ID: 2}}

	if resp := d.wait(t); !resp.Failed() {
		t.Errorf("response = %+v, want failure without a provider", resp)
	}
}

func TestSpawnProcessCapturesOutput(t *testing.T) {
	d := newCaptureDeliverer()
	e := NewExecutor(d, WithExecutorLogger(quietLogger()))
	commands := startExecutor(t, e)

	commands <- api.SpawnProcess{
		Request: api.Request{ID: 5},
		Command: "sh",
		Args:    []string{"-c", "printf out; printf err >&2; exit 3"},
	}

	resp := d.wait(t)
	if resp.Failed() {
		t.Fatalf("response failed: %s", resp.Err)
	}
	doc := gjson.Parse(resp.Payload)
	if got := doc.Get("stdout").String(); got != "out" {
		t.Errorf("stdout = %q, want out", got)
	}
	if got := doc.Get("stderr").String(); got != "err" {
		t.Errorf("stderr = %q, want err", got)
	}
	if got := doc.Get("exitCode").Int(); got != 3 {
		t.Errorf("exitCode = %d, want 3", got)
	}
}

func TestSpawnProcessStartFailure(t *testing.T) {
	d := newCaptureDeliverer()
	e := NewExecutor(d, WithExecutorLogger(quietLogger()))
	commands := startExecutor(t, e)

	commands <- api.SpawnProcess{Request: api.Request{ID: 6}, Command: "/no/such/binary"}

	if resp := d.wait(t); !resp.Failed() {
		t.Errorf("response = %+v, want failure for missing binary", resp)
	}
}

func TestSpawnProcessCancelKillsAndStaysSilent(t *testing.T) {
	d := newCaptureDeliverer()
	e := NewExecutor(d, WithExecutorLogger(quietLogger()))
	commands := startExecutor(t, e)

	commands <- api.SpawnProcess{Request: api.Request{ID: 8}, Command: "sleep", Args: []string{"60"}}
	time.Sleep(50 * time.Millisecond)
	commands <- api.Cancel{RequestID: 8}

	time.Sleep(100 * time.Millisecond)
	if got := d.count(); got != 0 {
		t.Errorf("cancelled spawn delivered %d responses, want 0", got)
	}
}

func TestSpawnBackgroundAndKill(t *testing.T) {
	d := newCaptureDeliverer()
	e := NewExecutor(d, WithExecutorLogger(quietLogger()))
	commands := startExecutor(t, e)

	commands <- api.SpawnBackgroundProcess{Request: api.Request{ID: 10}, Command: "sleep", Args: []string{"60"}}

	resp := d.wait(t)
	if resp.Failed() {
		t.Fatalf("spawn failed: %s", resp.Err)
	}
	pid := int(gjson.Get(resp.Payload, "pid").Int())
	if pid <= 0 {
		t.Fatalf("pid = %d", pid)
	}

	commands <- api.KillProcess{Request: api.Request{ID: 11}, PID: pid}
	resp = d.wait(t)
	if resp.Failed() {
		t.Fatalf("kill failed: %s", resp.Err)
	}

	// The process must actually be gone once the reaper has run.
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if err := syscall.Kill(pid, 0); err != nil {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Errorf("process %d still alive after kill", pid)
}

func TestKillUnknownPID(t *testing.T) {
	d := newCaptureDeliverer()
	e := NewExecutor(d, WithExecutorLogger(quietLogger()))
	commands := startExecutor(t, e)

	commands <- api.KillProcess{Request: api.Request{ID: 12}, PID: 999999}

	if resp := d.wait(t); !resp.Failed() {
		t.Errorf("response = %+v, want failure for unknown pid", resp)
	}
}

func TestForwarderReceivesFireAndForget(t *testing.T) {
	d := newCaptureDeliverer()
	forwarded := make(chan api.Command, 1)
	e := NewExecutor(d, WithExecutorLogger(quietLogger()), WithForwarder(func(cmd api.Command) {
		forwarded <- cmd
	}))
	commands := startExecutor(t, e)

	commands <- api.SetStatus{Message: "hello"}

	select {
	case cmd := <-forwarded:
		if s, ok := cmd.(api.SetStatus); !ok || s.Message != "hello" {
			t.Errorf("forwarded = %#v", cmd)
		}
	case <-time.After(time.Second):
		t.Fatal("command was not forwarded")
	}
}
