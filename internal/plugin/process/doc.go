// Package process executes the editor-side half of asynchronous plugin
// requests: timers, buffer reads, and external processes.
//
// The Executor consumes correlated commands from the plugin command
// stream, performs the work off the interpreter goroutine, and feeds
// each Response back through a Deliverer. Cancellation arrives as a
// Cancel command carrying the RequestID of the operation to stop; a
// cancelled operation produces no Response at all, since the plugin side
// already settled the promise.
package process
