package api

// BufferID identifies an open buffer.
type BufferID int

// SplitID identifies a window split.
type SplitID int

// Command is a request from plugin code to the editor process.
// Fire-and-forget commands carry no correlation; commands that expect an
// answer additionally implement Correlated.
type Command interface {
	// CommandName returns the wire name of the command.
	CommandName() string
}

// Correlated is implemented by commands that expect a Response.
type Correlated interface {
	Command

	// CorrelationID returns the RequestID the eventual Response must carry.
	CorrelationID() uint64
}

// Request embeds a RequestID into a correlated command.
type Request struct {
	ID uint64
}

// CorrelationID implements Correlated.
func (r Request) CorrelationID() uint64 { return r.ID }

// --- Fire-and-forget commands ---

// SetStatus displays a message in the status bar.
type SetStatus struct {
	Message string
}

// SetClipboard replaces the system clipboard contents.
type SetClipboard struct {
	Text string
}

// InsertText inserts text at a byte position in a buffer.
type InsertText struct {
	Buffer   BufferID
	Position int
	Text     string
}

// DeleteRange deletes the byte range [Start, End) from a buffer.
type DeleteRange struct {
	Buffer BufferID
	Start  int
	End    int
}

// InsertAtCursor inserts text at the primary cursor.
type InsertAtCursor struct {
	Text string
}

// OpenFile opens a file, optionally jumping to a 1-based location.
// Line and Column are 0 when unset.
type OpenFile struct {
	Path   string
	Line   int
	Column int
}

// ShowBuffer brings a buffer into the active split.
type ShowBuffer struct {
	Buffer BufferID
}

// CloseBuffer closes a buffer.
type CloseBuffer struct {
	Buffer BufferID
}

// RegisterAction makes a plugin action invocable from the editor
// (command palette, keybindings). The handler name is resolved in the
// interpreter's global namespace at execution time.
type RegisterAction struct {
	Name        string
	Handler     string
	Description string
}

// UnregisterAction removes a previously registered plugin action.
type UnregisterAction struct {
	Name string
}

// SetContext toggles a named UI context flag.
type SetContext struct {
	Name   string
	Active bool
}

// ApplyTheme switches the active theme.
type ApplyTheme struct {
	Name string
}

// ReloadConfig asks the editor to reload configuration from disk.
type ReloadConfig struct{}

// StartPrompt opens an interactive prompt.
type StartPrompt struct {
	Label   string
	Kind    string
	Initial string
}

// RefreshLines forces a redraw of a buffer's visible lines.
type RefreshLines struct {
	Buffer BufferID
}

// SetEditorMode switches the editor input mode. An empty mode resets to
// the default.
type SetEditorMode struct {
	Mode string
}

// CloseSplit closes a window split.
type CloseSplit struct {
	Split SplitID
}

// FocusSplit moves focus to a window split.
type FocusSplit struct {
	Split SplitID
}

// SetSplitBuffer shows a buffer in a specific split.
type SetSplitBuffer struct {
	Split  SplitID
	Buffer BufferID
}

// SetBufferCursor moves a buffer's cursor to a byte position.
type SetBufferCursor struct {
	Buffer   BufferID
	Position int
}

// --- Correlated commands ---

// Delay asks the editor to answer after the given number of milliseconds.
type Delay struct {
	Request
	Millis int64
}

// GetBufferText reads the byte range [Start, End) of a buffer. End of -1
// means the end of the buffer.
type GetBufferText struct {
	Request
	Buffer BufferID
	Start  int
	End    int
}

// SpawnProcess runs an external command to completion and answers with its
// output. Cancellable: a Cancel for the same RequestID kills the process.
type SpawnProcess struct {
	Request
	Command string
	Args    []string
	Dir     string
}

// SpawnBackgroundProcess starts an external command without waiting for it
// and answers immediately with the process ID.
type SpawnBackgroundProcess struct {
	Request
	Command string
	Args    []string
	Dir     string
}

// KillProcess terminates a process started by SpawnBackgroundProcess.
type KillProcess struct {
	Request
	PID int
}

// Cancel withdraws an earlier correlated command. The RequestID names the
// operation being cancelled, not a new operation; no Response is expected.
type Cancel struct {
	RequestID uint64
}

// CommandName implementations.

func (SetStatus) CommandName() string              { return "setStatus" }
func (SetClipboard) CommandName() string           { return "setClipboard" }
func (InsertText) CommandName() string             { return "insertText" }
func (DeleteRange) CommandName() string            { return "deleteRange" }
func (InsertAtCursor) CommandName() string         { return "insertAtCursor" }
func (OpenFile) CommandName() string               { return "openFile" }
func (ShowBuffer) CommandName() string             { return "showBuffer" }
func (CloseBuffer) CommandName() string            { return "closeBuffer" }
func (RegisterAction) CommandName() string         { return "registerAction" }
func (UnregisterAction) CommandName() string       { return "unregisterAction" }
func (SetContext) CommandName() string             { return "setContext" }
func (ApplyTheme) CommandName() string             { return "applyTheme" }
func (ReloadConfig) CommandName() string           { return "reloadConfig" }
func (StartPrompt) CommandName() string            { return "startPrompt" }
func (RefreshLines) CommandName() string           { return "refreshLines" }
func (SetEditorMode) CommandName() string          { return "setEditorMode" }
func (CloseSplit) CommandName() string             { return "closeSplit" }
func (FocusSplit) CommandName() string             { return "focusSplit" }
func (SetSplitBuffer) CommandName() string         { return "setSplitBuffer" }
func (SetBufferCursor) CommandName() string        { return "setBufferCursor" }
func (Delay) CommandName() string                  { return "delay" }
func (GetBufferText) CommandName() string          { return "getBufferText" }
func (SpawnProcess) CommandName() string           { return "spawnProcess" }
func (SpawnBackgroundProcess) CommandName() string { return "spawnBackgroundProcess" }
func (KillProcess) CommandName() string            { return "killProcess" }
func (Cancel) CommandName() string                 { return "cancel" }
