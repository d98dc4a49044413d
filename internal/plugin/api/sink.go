package api

import "sync"

// Sink receives commands issued by plugin code. Send must never block:
// synchronous API calls run on the interpreter goroutine and a stalled
// editor must not stall script execution.
type Sink interface {
	// Send enqueues a command and reports whether it was accepted.
	Send(cmd Command) bool
}

// ChannelSink delivers commands over a buffered channel. When the buffer
// is full the command is dropped and Send reports false.
type ChannelSink struct {
	ch chan Command
}

// DefaultSinkBuffer is the default command buffer size.
const DefaultSinkBuffer = 256

// NewChannelSink creates a channel-backed sink with the given buffer size.
func NewChannelSink(size int) *ChannelSink {
	if size <= 0 {
		size = DefaultSinkBuffer
	}
	return &ChannelSink{ch: make(chan Command, size)}
}

// Send implements Sink.
func (s *ChannelSink) Send(cmd Command) bool {
	select {
	case s.ch <- cmd:
		return true
	default:
		return false
	}
}

// Commands returns the receive side of the sink.
func (s *ChannelSink) Commands() <-chan Command {
	return s.ch
}

// CaptureSink records every command for later inspection. Intended for
// tests and the non-interactive CLI paths.
type CaptureSink struct {
	mu   sync.Mutex
	cmds []Command
}

// Send implements Sink.
func (s *CaptureSink) Send(cmd Command) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cmds = append(s.cmds, cmd)
	return true
}

// Commands returns a copy of the recorded commands.
func (s *CaptureSink) Commands() []Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Command, len(s.cmds))
	copy(out, s.cmds)
	return out
}

// Reset discards all recorded commands.
func (s *CaptureSink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cmds = nil
}
