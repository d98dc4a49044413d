// Package api defines the message types exchanged between the scripting
// runtime and the editor process.
//
// Plugin code never touches editor internals. Reads go through a Snapshot,
// a copy of editor state refreshed each tick and shared via a StateView.
// Mutations travel the other way as Commands placed on a Sink; a command
// that expects an answer carries a RequestID, and the editor answers with a
// Response bearing the same ID. The types here are deliberately plain: the
// runtime core only cares about ID correlation, never about what a command
// means to the editor.
package api
