package js

import (
	"encoding/json"

	"github.com/dop251/goja"

	"github.com/fathom-editor/fathom/internal/plugin/api"
)

// Emit invokes every handler subscribed to event, in registration order,
// passing the decoded JSON payload. A handler that throws is logged and
// skipped; later handlers still run. The return value is false only when
// at least one handler returned the literal false, which editors treat as
// an objection to the event's default behavior.
func (h *Host) Emit(event, payload string) bool {
	if h.closed {
		return true
	}
	arg := h.payloadValue(payload)
	accepted := true
	for _, name := range h.events.Handlers(event) {
		fn, ok := goja.AssertFunction(h.vm.Get(name))
		if !ok {
			h.log.Warn("event handler is not callable", "event", event, "handler", name)
			continue
		}
		ret, err := fn(goja.Undefined(), arg)
		if err != nil {
			h.log.Error("event handler failed", "event", event, "handler", name, "error", err)
			continue
		}
		if ret != nil {
			if b, isBool := ret.Export().(bool); isBool && !b {
				accepted = false
			}
		}
	}
	return accepted
}

// HasHandlers reports whether any handler is subscribed to event. The
// editor side uses this to skip serializing payloads nobody wants.
func (h *Host) HasHandlers(event string) bool {
	return h.events.Has(event)
}

// ExecuteAction runs the handler registered for a named action and
// reports whether the action was known. Handler failures are logged, not
// propagated; an action that throws was still executed.
func (h *Host) ExecuteAction(name string) bool {
	if h.closed {
		return false
	}
	handler, ok := h.actions.Handler(name)
	if !ok {
		h.log.Warn("unknown action", "action", name)
		return false
	}
	fn, callable := goja.AssertFunction(h.vm.Get(handler))
	if !callable {
		h.log.Warn("action handler is not callable", "action", name, "handler", handler)
		return false
	}
	if _, err := fn(goja.Undefined()); err != nil {
		h.log.Error("action failed", "action", name, "error", err)
	}
	return true
}

// DeliverResponse completes the pending request named by the response.
// An unknown RequestID means the request was cancelled first; the
// response is dropped silently. Promise reactions run before this
// returns, since the resolve callable re-enters the interpreter at stack
// depth zero.
func (h *Host) DeliverResponse(resp api.Response) {
	p, ok := h.pending.Take(resp.RequestID)
	if !ok {
		return
	}
	if resp.Failed() {
		p.Reject(resp.Err)
		return
	}
	p.Resolve(decodePayload(resp.Payload))
}

// payloadValue decodes an event payload for handler arguments. Malformed
// documents fall back to the raw string so handlers still see something.
func (h *Host) payloadValue(payload string) goja.Value {
	if payload == "" {
		return goja.Undefined()
	}
	var v any
	if err := json.Unmarshal([]byte(payload), &v); err != nil {
		return h.vm.ToValue(payload)
	}
	return h.vm.ToValue(v)
}

// decodePayload turns a response payload into a value for promise
// resolution.
func decodePayload(payload string) any {
	if payload == "" {
		return nil
	}
	var v any
	if err := json.Unmarshal([]byte(payload), &v); err != nil {
		return payload
	}
	return v
}
