package js

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/dop251/goja"

	"github.com/fathom-editor/fathom/internal/plugin/api"
	"github.com/fathom-editor/fathom/internal/plugin/protocol"
)

// APIVersion is reported to plugins via editor.apiVersion(). Bump on any
// incompatible change to the editor object.
const APIVersion = "1.0.0"

// installAPI builds the editor global and its helpers. Any Set failure is
// recorded in h.installErr and surfaced by NewHost.
func (h *Host) installAPI() {
	ed := h.vm.NewObject()
	set := func(name string, v any) {
		if h.installErr == nil {
			h.installErr = ed.Set(name, v)
		}
	}

	// Logging.
	set("debug", func(msg string) { h.log.Debug(msg) })
	set("info", func(msg string) { h.log.Info(msg) })
	set("warn", func(msg string) { h.log.Warn(msg) })
	set("error", func(msg string) { h.log.Error(msg) })
	set("log", func(msg string) { h.log.Info(msg) })

	// State reads. Every call sees one coherent snapshot; two calls may
	// straddle a tick and see different ones.
	set("getActiveBufferId", func() int {
		return int(h.view.Load().ActiveBuffer)
	})
	set("getActiveSplitId", func() int {
		return int(h.view.Load().ActiveSplit)
	})
	set("getEditorMode", func() string {
		return h.view.Load().EditorMode
	})
	set("getBufferPath", func(id int) goja.Value {
		b, ok := h.view.Load().Buffer(api.BufferID(id))
		if !ok {
			return goja.Null()
		}
		return h.vm.ToValue(b.Path)
	})
	set("getBufferName", func(id int) goja.Value {
		b, ok := h.view.Load().Buffer(api.BufferID(id))
		if !ok {
			return goja.Null()
		}
		return h.vm.ToValue(filepath.Base(b.Path))
	})
	set("getBufferLength", func(id int) goja.Value {
		b, ok := h.view.Load().Buffer(api.BufferID(id))
		if !ok {
			return goja.Null()
		}
		return h.vm.ToValue(b.Length)
	})
	set("isBufferModified", func(id int) goja.Value {
		b, ok := h.view.Load().Buffer(api.BufferID(id))
		if !ok {
			return goja.Null()
		}
		return h.vm.ToValue(b.Modified)
	})
	set("listBuffers", func() goja.Value {
		return h.fromJSON(h.view.Load().BuffersJSON())
	})
	set("getPrimaryCursor", func() goja.Value {
		return h.fromJSON(h.view.Load().PrimaryCursorJSON())
	})
	set("getAllCursors", func() goja.Value {
		return h.fromJSON(h.view.Load().CursorsJSON())
	})
	set("getViewport", func() goja.Value {
		return h.fromJSON(h.view.Load().ViewportJSON())
	})
	set("getConfig", func() goja.Value {
		return h.fromJSON(h.view.Load().ConfigJSON())
	})
	set("getUserConfig", func() goja.Value {
		return h.fromJSON(h.view.Load().UserConfigJSON())
	})
	set("getConfigValue", func(path string) goja.Value {
		return h.fromJSON(h.view.Load().ConfigValue(path))
	})

	// Local computation, no editor round trip.
	set("pathJoin", func(parts ...string) string { return filepath.Join(parts...) })
	set("pathDirname", filepath.Dir)
	set("pathBasename", filepath.Base)
	set("pathExtname", filepath.Ext)
	set("pathIsAbsolute", filepath.IsAbs)
	set("fileExists", func(path string) bool {
		info, err := os.Stat(path)
		return err == nil && !info.IsDir()
	})
	set("readFile", func(path string) goja.Value {
		data, err := os.ReadFile(path)
		if err != nil {
			return goja.Null()
		}
		return h.vm.ToValue(string(data))
	})
	set("writeFile", func(path, content string) bool {
		return os.WriteFile(path, []byte(content), 0o644) == nil
	})
	set("getEnv", func(name string) goja.Value {
		val, ok := os.LookupEnv(name)
		if !ok {
			return goja.Null()
		}
		return h.vm.ToValue(val)
	})
	set("getCwd", func() string {
		wd, err := os.Getwd()
		if err != nil {
			return ""
		}
		return wd
	})

	// Fire-and-forget commands. The boolean result reports acceptance by
	// the outbound channel, not execution by the editor.
	set("setStatus", func(msg string) bool {
		return h.sink.Send(api.SetStatus{Message: msg})
	})
	set("setClipboard", func(text string) bool {
		return h.sink.Send(api.SetClipboard{Text: text})
	})
	set("insertText", func(buf, pos int, text string) bool {
		return h.sink.Send(api.InsertText{Buffer: api.BufferID(buf), Position: pos, Text: text})
	})
	set("deleteRange", func(buf, start, end int) bool {
		return h.sink.Send(api.DeleteRange{Buffer: api.BufferID(buf), Start: start, End: end})
	})
	set("insertAtCursor", func(text string) bool {
		return h.sink.Send(api.InsertAtCursor{Text: text})
	})
	set("openFile", func(path string, line, column int) bool {
		return h.sink.Send(api.OpenFile{Path: path, Line: line, Column: column})
	})
	set("showBuffer", func(buf int) bool {
		return h.sink.Send(api.ShowBuffer{Buffer: api.BufferID(buf)})
	})
	set("closeBuffer", func(buf int) bool {
		return h.sink.Send(api.CloseBuffer{Buffer: api.BufferID(buf)})
	})
	set("setContext", func(name string, active bool) bool {
		return h.sink.Send(api.SetContext{Name: name, Active: active})
	})
	set("applyTheme", func(name string) bool {
		return h.sink.Send(api.ApplyTheme{Name: name})
	})
	set("reloadConfig", func() bool {
		return h.sink.Send(api.ReloadConfig{})
	})
	set("startPrompt", func(label, kind, initial string) bool {
		return h.sink.Send(api.StartPrompt{Label: label, Kind: kind, Initial: initial})
	})
	set("refreshLines", func(buf int) bool {
		return h.sink.Send(api.RefreshLines{Buffer: api.BufferID(buf)})
	})
	set("setEditorMode", func(mode string) bool {
		return h.sink.Send(api.SetEditorMode{Mode: mode})
	})
	set("closeSplit", func(split int) bool {
		return h.sink.Send(api.CloseSplit{Split: api.SplitID(split)})
	})
	set("focusSplit", func(split int) bool {
		return h.sink.Send(api.FocusSplit{Split: api.SplitID(split)})
	})
	set("setSplitBuffer", func(split, buf int) bool {
		return h.sink.Send(api.SetSplitBuffer{Split: api.SplitID(split), Buffer: api.BufferID(buf)})
	})
	set("setBufferCursor", func(buf, pos int) bool {
		return h.sink.Send(api.SetBufferCursor{Buffer: api.BufferID(buf), Position: pos})
	})

	// Events and actions.
	set("on", func(event, handler string) {
		h.events.On(event, handler)
		h.trackHandler(handler)
	})
	set("off", func(event, handler string) {
		h.events.Off(event, handler)
	})
	set("registerCommand", func(name, handler, description string) bool {
		h.actions.Register(name, handler)
		h.trackHandler(handler)
		return h.sink.Send(api.RegisterAction{Name: name, Handler: handler, Description: description})
	})
	set("unregisterCommand", func(name string) bool {
		h.actions.Remove(name)
		return h.sink.Send(api.UnregisterAction{Name: name})
	})
	set("executeAction", func(name string) bool {
		return h.ExecuteAction(name)
	})
	set("apiVersion", func() string { return APIVersion })

	// Asynchronous starts. Each allocates a RequestID, sends the
	// correlated command, and returns the id for the prelude to wrap in a
	// promise. A zero return means the command was not accepted.
	set("_delayStart", func(millis int64) uint64 {
		return h.start(func(id uint64) api.Command {
			return api.Delay{Request: api.Request{ID: id}, Millis: millis}
		})
	})
	set("_getBufferTextStart", func(buf, start, end int) uint64 {
		return h.start(func(id uint64) api.Command {
			return api.GetBufferText{Request: api.Request{ID: id}, Buffer: api.BufferID(buf), Start: start, End: end}
		})
	})
	set("_spawnProcessStart", func(command string, args []string, dir string) uint64 {
		return h.start(func(id uint64) api.Command {
			return api.SpawnProcess{Request: api.Request{ID: id}, Command: command, Args: args, Dir: dir}
		})
	})
	set("_spawnBackgroundProcessStart", func(command string, args []string, dir string) uint64 {
		return h.start(func(id uint64) api.Command {
			return api.SpawnBackgroundProcess{Request: api.Request{ID: id}, Command: command, Args: args, Dir: dir}
		})
	})
	set("_killProcessStart", func(pid int) uint64 {
		return h.start(func(id uint64) api.Command {
			return api.KillProcess{Request: api.Request{ID: id}, PID: pid}
		})
	})
	set("_registerPending", func(call goja.FunctionCall) goja.Value {
		id := uint64(call.Argument(0).ToInteger())
		resolve, _ := goja.AssertFunction(call.Argument(1))
		reject, _ := goja.AssertFunction(call.Argument(2))
		h.pending.Register(id, h.newPending(resolve, reject))
		return goja.Undefined()
	})
	set("_cancelRequest", func(id uint64) bool {
		return h.cancelRequest(id)
	})

	h.setGlobal("editor", ed)
	h.setGlobal("getEditor", func() *goja.Object { return ed })
	h.installConsole()
	h.installExpose()
}

func (h *Host) installConsole() {
	console := h.vm.NewObject()
	set := func(name string, fn func(string)) {
		if h.installErr == nil {
			h.installErr = console.Set(name, func(call goja.FunctionCall) goja.Value {
				fn(consoleLine(call))
				return goja.Undefined()
			})
		}
	}
	set("log", func(msg string) { h.log.Info(msg) })
	set("info", func(msg string) { h.log.Info(msg) })
	set("warn", func(msg string) { h.log.Warn(msg) })
	set("error", func(msg string) { h.log.Error(msg) })
	set("debug", func(msg string) { h.log.Debug(msg) })
	h.setGlobal("console", console)
}

// consoleLine joins console arguments the way browsers do.
func consoleLine(call goja.FunctionCall) string {
	parts := make([]byte, 0, 64)
	for i, arg := range call.Arguments {
		if i > 0 {
			parts = append(parts, ' ')
		}
		parts = append(parts, arg.String()...)
	}
	return string(parts)
}

// installExpose registers the resolver hook called at the end of every
// module wrapper. It copies the functions behind names registered during
// the load out of the wrapper scope into the global namespace.
func (h *Host) installExpose() {
	h.setGlobal("__fathom_expose", func(call goja.FunctionCall) goja.Value {
		resolver, ok := goja.AssertFunction(call.Argument(0))
		if !ok || !h.loading {
			return goja.Undefined()
		}
		global := h.vm.GlobalObject()
		for _, name := range h.loadingHandlers {
			v, err := resolver(goja.Undefined(), h.vm.ToValue(name))
			if err != nil || v == nil || goja.IsUndefined(v) {
				continue
			}
			if _, isFn := goja.AssertFunction(v); !isFn {
				continue
			}
			if err := global.Set(name, v); err != nil {
				h.log.Warn("exposing handler failed", "handler", name, "error", err)
			}
		}
		return goja.Undefined()
	})
}

func (h *Host) setGlobal(name string, v any) {
	if h.installErr == nil {
		h.installErr = h.vm.Set(name, v)
	}
}

// trackHandler remembers a handler name registered during a module load so
// the wrapper epilogue can promote it.
func (h *Host) trackHandler(name string) {
	if h.loading {
		h.loadingHandlers = append(h.loadingHandlers, name)
	}
}

// start allocates a RequestID and sends the command built for it. IDs are
// burned even when the sink refuses the command; only acceptance returns a
// usable id.
func (h *Host) start(build func(id uint64) api.Command) uint64 {
	id := h.pending.NextID()
	if !h.sink.Send(build(id)) {
		return 0
	}
	return id
}

// newPending wraps a pair of JS callables into a completion slot. The
// callables run on the interpreter goroutine when the slot is consumed.
func (h *Host) newPending(resolve, reject goja.Callable) *protocol.Pending {
	return protocol.NewPending(
		func(value any) {
			if resolve != nil {
				if _, err := resolve(goja.Undefined(), h.vm.ToValue(value)); err != nil {
					h.log.Error("resolving pending request failed", "error", err)
				}
			}
		},
		func(reason any) {
			if reject != nil {
				if _, err := reject(goja.Undefined(), h.vm.ToValue(reason)); err != nil {
					h.log.Error("rejecting pending request failed", "error", err)
				}
			}
		},
	)
}

// cancelRequest implements editor._cancelRequest. Winning the race against
// delivery removes the slot, tells the editor to stop the work, and
// rejects the promise; losing it reports false.
func (h *Host) cancelRequest(id uint64) bool {
	p, ok := h.pending.Take(id)
	if !ok {
		return false
	}
	h.sink.Send(api.Cancel{RequestID: id})
	p.Reject("cancelled")
	return true
}

// fromJSON converts a JSON document into an interpreter value. Empty and
// null documents become JS null.
func (h *Host) fromJSON(doc string) goja.Value {
	if doc == "" || doc == "null" {
		return goja.Null()
	}
	var v any
	if err := json.Unmarshal([]byte(doc), &v); err != nil {
		return goja.Null()
	}
	return h.vm.ToValue(v)
}
