package api

import (
	"sort"
	"strconv"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// BufferInfo describes one open buffer.
type BufferInfo struct {
	ID       BufferID
	Path     string
	Length   int
	Modified bool
}

// CursorInfo describes one cursor. Line and Column are 1-based.
type CursorInfo struct {
	Position int
	Line     int
	Column   int
}

// ViewportInfo describes the visible region of the active split.
type ViewportInfo struct {
	TopLine int
	Lines   int
	Columns int
}

// Snapshot is a read-only copy of editor state. The editor publishes a
// fresh one each tick; plugin API reads never see editor internals.
type Snapshot struct {
	ActiveBuffer BufferID
	ActiveSplit  SplitID
	EditorMode   string

	// Cursors holds all cursors, primary first.
	Cursors []CursorInfo

	Buffers  map[BufferID]BufferInfo
	Viewport ViewportInfo

	// Config and UserConfig are JSON documents.
	Config     string
	UserConfig string
}

// PrimaryCursor returns the primary cursor, if any.
func (s Snapshot) PrimaryCursor() (CursorInfo, bool) {
	if len(s.Cursors) == 0 {
		return CursorInfo{}, false
	}
	return s.Cursors[0], true
}

// Buffer returns the info for one buffer.
func (s Snapshot) Buffer(id BufferID) (BufferInfo, bool) {
	b, ok := s.Buffers[id]
	return b, ok
}

// ConfigValue answers a dotted-path query against the merged config
// document. The result is the raw JSON for the value, or "" when the path
// does not exist.
func (s Snapshot) ConfigValue(path string) string {
	res := gjson.Get(s.configJSON(), path)
	if !res.Exists() {
		return ""
	}
	return res.Raw
}

// BuffersJSON renders all buffers as a JSON array, ordered by ID.
func (s Snapshot) BuffersJSON() string {
	ids := make([]BufferID, 0, len(s.Buffers))
	for id := range s.Buffers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	doc := "[]"
	for i, id := range ids {
		b := s.Buffers[id]
		prefix := strconv.Itoa(i)
		doc, _ = sjson.Set(doc, prefix+".id", int(b.ID))
		doc, _ = sjson.Set(doc, prefix+".path", b.Path)
		doc, _ = sjson.Set(doc, prefix+".length", b.Length)
		doc, _ = sjson.Set(doc, prefix+".modified", b.Modified)
	}
	return doc
}

// CursorsJSON renders all cursors as a JSON array, primary first.
func (s Snapshot) CursorsJSON() string {
	doc := "[]"
	for i, c := range s.Cursors {
		prefix := strconv.Itoa(i)
		doc, _ = sjson.Set(doc, prefix+".position", c.Position)
		doc, _ = sjson.Set(doc, prefix+".line", c.Line)
		doc, _ = sjson.Set(doc, prefix+".column", c.Column)
	}
	return doc
}

// PrimaryCursorJSON renders the primary cursor as a JSON object, or
// "null" when there is none.
func (s Snapshot) PrimaryCursorJSON() string {
	c, ok := s.PrimaryCursor()
	if !ok {
		return "null"
	}
	doc := "{}"
	doc, _ = sjson.Set(doc, "position", c.Position)
	doc, _ = sjson.Set(doc, "line", c.Line)
	doc, _ = sjson.Set(doc, "column", c.Column)
	return doc
}

// ViewportJSON renders the viewport as a JSON object.
func (s Snapshot) ViewportJSON() string {
	doc := "{}"
	doc, _ = sjson.Set(doc, "topLine", s.Viewport.TopLine)
	doc, _ = sjson.Set(doc, "lines", s.Viewport.Lines)
	doc, _ = sjson.Set(doc, "columns", s.Viewport.Columns)
	return doc
}

// ConfigJSON returns the merged config document, never empty.
func (s Snapshot) ConfigJSON() string {
	return s.configJSON()
}

// UserConfigJSON returns the user config document, never empty.
func (s Snapshot) UserConfigJSON() string {
	if s.UserConfig == "" {
		return "{}"
	}
	return s.UserConfig
}

func (s Snapshot) configJSON() string {
	if s.Config == "" {
		return "{}"
	}
	return s.Config
}

// StateView is the shared read-only state handle. The editor goroutine
// replaces the snapshot each tick; the interpreter goroutine reads it from
// API bindings. Readers always observe a complete, consistent snapshot.
type StateView struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewStateView creates a view holding an empty snapshot.
func NewStateView() *StateView {
	return &StateView{}
}

// Update publishes a new snapshot.
func (v *StateView) Update(s Snapshot) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.snap = s
}

// Load returns the current snapshot. The buffer map is copied so callers
// can hold the result across a concurrent Update.
func (v *StateView) Load() Snapshot {
	v.mu.RLock()
	defer v.mu.RUnlock()

	snap := v.snap
	if snap.Buffers != nil {
		buffers := make(map[BufferID]BufferInfo, len(snap.Buffers))
		for id, b := range snap.Buffers {
			buffers[id] = b
		}
		snap.Buffers = buffers
	}
	if snap.Cursors != nil {
		cursors := make([]CursorInfo, len(snap.Cursors))
		copy(cursors, snap.Cursors)
		snap.Cursors = cursors
	}
	return snap
}
