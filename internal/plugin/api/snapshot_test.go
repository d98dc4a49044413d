package api

import (
	"sync"
	"testing"

	"github.com/tidwall/gjson"
)

func testSnapshot() Snapshot {
	return Snapshot{
		ActiveBuffer: 2,
		ActiveSplit:  1,
		EditorMode:   "normal",
		Cursors: []CursorInfo{
			{Position: 120, Line: 5, Column: 3},
			{Position: 240, Line: 9, Column: 1},
		},
		Buffers: map[BufferID]BufferInfo{
			1: {ID: 1, Path: "/tmp/a.txt", Length: 100, Modified: false},
			2: {ID: 2, Path: "/tmp/b.txt", Length: 250, Modified: true},
		},
		Viewport:   ViewportInfo{TopLine: 3, Lines: 40, Columns: 120},
		Config:     `{"editor":{"tabWidth":4,"theme":"dusk"}}`,
		UserConfig: `{"editor":{"theme":"dusk"}}`,
	}
}

func TestSnapshotConfigValue(t *testing.T) {
	s := testSnapshot()

	if got := s.ConfigValue("editor.tabWidth"); got != "4" {
		t.Errorf("ConfigValue(editor.tabWidth) = %q, want %q", got, "4")
	}
	if got := s.ConfigValue("editor.theme"); got != `"dusk"` {
		t.Errorf("ConfigValue(editor.theme) = %q, want %q", got, `"dusk"`)
	}
	if got := s.ConfigValue("editor.missing"); got != "" {
		t.Errorf("ConfigValue(editor.missing) = %q, want empty", got)
	}
}

func TestSnapshotBuffersJSON(t *testing.T) {
	s := testSnapshot()
	doc := s.BuffersJSON()

	if !gjson.Valid(doc) {
		t.Fatalf("BuffersJSON() is not valid JSON: %s", doc)
	}
	if got := gjson.Get(doc, "#").Int(); got != 2 {
		t.Fatalf("BuffersJSON() length = %d, want 2", got)
	}
	// Ordered by ID.
	if got := gjson.Get(doc, "0.id").Int(); got != 1 {
		t.Errorf("BuffersJSON() first id = %d, want 1", got)
	}
	if got := gjson.Get(doc, "1.path").String(); got != "/tmp/b.txt" {
		t.Errorf("BuffersJSON() second path = %q, want %q", got, "/tmp/b.txt")
	}
	if !gjson.Get(doc, "1.modified").Bool() {
		t.Error("BuffersJSON() second modified = false, want true")
	}
}

func TestSnapshotCursorJSON(t *testing.T) {
	s := testSnapshot()

	primary := s.PrimaryCursorJSON()
	if got := gjson.Get(primary, "position").Int(); got != 120 {
		t.Errorf("PrimaryCursorJSON() position = %d, want 120", got)
	}

	all := s.CursorsJSON()
	if got := gjson.Get(all, "#").Int(); got != 2 {
		t.Errorf("CursorsJSON() length = %d, want 2", got)
	}
	if got := gjson.Get(all, "1.line").Int(); got != 9 {
		t.Errorf("CursorsJSON() second line = %d, want 9", got)
	}
}

func TestSnapshotEmptyDefaults(t *testing.T) {
	var s Snapshot

	if got := s.ConfigJSON(); got != "{}" {
		t.Errorf("ConfigJSON() = %q, want {}", got)
	}
	if got := s.UserConfigJSON(); got != "{}" {
		t.Errorf("UserConfigJSON() = %q, want {}", got)
	}
	if got := s.PrimaryCursorJSON(); got != "null" {
		t.Errorf("PrimaryCursorJSON() = %q, want null", got)
	}
	if got := s.BuffersJSON(); got != "[]" {
		t.Errorf("BuffersJSON() = %q, want []", got)
	}
	if _, ok := s.PrimaryCursor(); ok {
		t.Error("PrimaryCursor() ok = true for empty snapshot")
	}
}

func TestStateViewLoadCopies(t *testing.T) {
	v := NewStateView()
	v.Update(testSnapshot())

	snap := v.Load()
	snap.Buffers[99] = BufferInfo{ID: 99}
	snap.Cursors[0].Position = -1

	fresh := v.Load()
	if _, ok := fresh.Buffers[99]; ok {
		t.Error("Load() returned shared buffer map")
	}
	if fresh.Cursors[0].Position != 120 {
		t.Error("Load() returned shared cursor slice")
	}
}

func TestStateViewConcurrentAccess(t *testing.T) {
	v := NewStateView()
	v.Update(testSnapshot())

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			s := testSnapshot()
			s.ActiveBuffer = BufferID(i % 3)
			v.Update(s)
		}
	}()

	for i := 0; i < 1000; i++ {
		snap := v.Load()
		if len(snap.Buffers) != 2 {
			t.Errorf("Load() buffers = %d, want 2", len(snap.Buffers))
			break
		}
	}
	close(stop)
	wg.Wait()
}

func TestChannelSinkDropsWhenFull(t *testing.T) {
	s := NewChannelSink(1)

	if !s.Send(SetStatus{Message: "one"}) {
		t.Fatal("Send() first = false, want true")
	}
	if s.Send(SetStatus{Message: "two"}) {
		t.Error("Send() on full sink = true, want false")
	}

	got := <-s.Commands()
	if cmd, ok := got.(SetStatus); !ok || cmd.Message != "one" {
		t.Errorf("Commands() = %#v, want SetStatus{one}", got)
	}
}

func TestCaptureSinkRecords(t *testing.T) {
	s := &CaptureSink{}

	s.Send(SetStatus{Message: "hello"})
	s.Send(Delay{Request: Request{ID: 7}, Millis: 10})

	cmds := s.Commands()
	if len(cmds) != 2 {
		t.Fatalf("Commands() length = %d, want 2", len(cmds))
	}
	if cmds[0].CommandName() != "setStatus" {
		t.Errorf("Commands()[0] name = %q, want setStatus", cmds[0].CommandName())
	}
	corr, ok := cmds[1].(Correlated)
	if !ok {
		t.Fatalf("Commands()[1] = %T, want Correlated", cmds[1])
	}
	if corr.CorrelationID() != 7 {
		t.Errorf("CorrelationID() = %d, want 7", corr.CorrelationID())
	}

	s.Reset()
	if len(s.Commands()) != 0 {
		t.Error("Reset() did not clear commands")
	}
}
