// Package watcher observes plugin directories and reports changed
// source files, coalescing bursts of filesystem events into single
// batches. The editor uses it to drive plugin hot reload.
package watcher
