// Package js hosts the shared ECMAScript interpreter that executes plugin
// code.
//
// One Host owns one goja runtime. The runtime is not goroutine-safe and
// executes cooperatively: all plugin code, every event handler, and every
// action runs sequentially to completion on the goroutine that owns the
// Host (see the plugin package's Runtime for the owning loop).
//
// The Host installs a fixed, versioned "editor" global before any plugin
// code runs. Every exposed operation is one of three kinds:
//
//   - Sync: answers from the read-only state snapshot or a local
//     computation; never touches the outbound command channel's capacity.
//   - Async-Simple: allocates a RequestID, sends a correlated command, and
//     returns a promise that resolves when the matching response is
//     delivered back.
//   - Async-Thenable: Async-Simple plus a cancel() entry point keyed by the
//     same RequestID. Cancelling after completion is a no-op that reports
//     "not cancelled"; cancelling before completion suppresses the late
//     response.
//
// Nothing inside the interpreter ever blocks waiting for the editor: an
// asynchronous call returns its promise immediately, and responses are
// delivered between script invocations, never while plugin code is on the
// stack.
package js
