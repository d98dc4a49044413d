// Package plugin manages the lifecycle of editor plugins: discovery on
// disk, loading into the shared interpreter, event and action dispatch,
// and reloads.
//
// The interpreter is single-threaded. All script execution is funneled
// through a Runtime, which owns the goroutine the interpreter lives on;
// the Manager ties discovery, the Runtime, and the host-side state
// together. Responses to asynchronous requests enter through the
// Runtime's completion queue and are delivered to the interpreter only
// between script invocations.
package plugin
