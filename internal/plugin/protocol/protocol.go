// Package protocol tracks in-flight asynchronous requests between the
// interpreter and the editor process.
//
// Every asynchronous call is correlated by a RequestID allocated here.
// Completion order is never guaranteed to match issue order; the only
// contract is ID correlation. The pending map is the one piece of state
// shared across the interpreter goroutine and the editor goroutine, so it
// is the single place where a cancellation can race a delivery: whichever
// side removes the entry first wins, and the loser observes an absent entry
// and does nothing.
package protocol

import "sync"

// Pending is a single-use completion slot for one in-flight request.
// Exactly one of Resolve or Reject is invoked, at most once, by whichever
// party removed the slot from the Map.
type Pending struct {
	resolve func(value any)
	reject  func(reason any)
}

// NewPending creates a completion slot from resolve and reject callbacks.
// Either callback may be nil.
func NewPending(resolve, reject func(any)) *Pending {
	return &Pending{resolve: resolve, reject: reject}
}

// Resolve completes the slot successfully.
func (p *Pending) Resolve(value any) {
	if p.resolve != nil {
		p.resolve(value)
	}
}

// Reject completes the slot with a failure reason.
func (p *Pending) Reject(reason any) {
	if p.reject != nil {
		p.reject(reason)
	}
}

// Map allocates RequestIDs and tracks pending completion slots.
//
// It is safe for concurrent use by exactly the two parties that share it:
// the interpreter goroutine (allocate, register, cancel, deliver) and the
// editor goroutine (inspect). IDs are unique per Map instance, strictly
// increasing from 1, and never reused within the instance's lifetime.
type Map struct {
	mu      sync.Mutex
	nextID  uint64
	entries map[uint64]*Pending
}

// NewMap creates an empty pending-request map.
func NewMap() *Map {
	return &Map{
		nextID:  1,
		entries: make(map[uint64]*Pending),
	}
}

// NextID allocates the next RequestID.
func (m *Map) NextID() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	return id
}

// Register installs the completion slot for id. At most one slot may ever
// be registered per id; callers allocate the id with NextID and register
// exactly once.
func (m *Map) Register(id uint64, p *Pending) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[id] = p
}

// Take removes and returns the slot for id. The second return is false if
// the id is unknown or the slot was already consumed; callers treat that as
// a no-op, not an error, since the other side of a race may have removed
// the entry first.
func (m *Map) Take(id uint64) (*Pending, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.entries[id]
	if ok {
		delete(m.entries, id)
	}
	return p, ok
}

// Drain removes and returns every in-flight slot. Used when the
// interpreter is torn down and outstanding requests must be failed in
// bulk. ID allocation is unaffected, so requests issued after a drain
// still cannot collide with responses to drained ones.
func (m *Map) Drain() map[uint64]*Pending {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.entries
	m.entries = make(map[uint64]*Pending)
	return out
}

// Len returns the number of in-flight requests.
func (m *Map) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
