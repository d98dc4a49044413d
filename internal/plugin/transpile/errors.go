package transpile

import (
	"fmt"
	"strings"
)

// Stage identifies the pipeline stage at which transpilation failed.
type Stage int

// Transpile pipeline stages.
const (
	// StageSyntax - the source could not be parsed.
	StageSyntax Stage = iota

	// StageSemantic - the source parsed but scope analysis failed.
	StageSemantic

	// StageTransform - a construct could not be lowered to plain JavaScript.
	StageTransform

	// StageCodegen - the emitted JavaScript failed the interpreter
	// compile check.
	StageCodegen
)

// String returns a string representation of the stage.
func (s Stage) String() string {
	switch s {
	case StageSyntax:
		return "syntax"
	case StageSemantic:
		return "semantic"
	case StageTransform:
		return "transform"
	case StageCodegen:
		return "codegen"
	default:
		return "unknown"
	}
}

// Error is a failed transpilation. It carries every message collected by
// the failing stage, not just the first.
type Error struct {
	Stage    Stage
	Unit     string
	Messages []string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("transpile %s: %s errors: %s", e.Unit, e.Stage, strings.Join(e.Messages, "; "))
}

// BundleErrorKind classifies a bundling failure.
type BundleErrorKind int

// Bundle failure kinds.
const (
	// UnresolvedImport - a relative import specifier matched no file.
	UnresolvedImport BundleErrorKind = iota

	// ReadFailure - a module file could not be read.
	ReadFailure
)

// String returns a string representation of the kind.
func (k BundleErrorKind) String() string {
	switch k {
	case UnresolvedImport:
		return "unresolved import"
	case ReadFailure:
		return "read failure"
	default:
		return "unknown"
	}
}

// BundleError is a failed bundle attempt.
type BundleError struct {
	Kind BundleErrorKind

	// Specifier is the import specifier that failed to resolve
	// (UnresolvedImport only).
	Specifier string

	// Importer is the path of the file being processed when the failure
	// occurred.
	Importer string

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *BundleError) Error() string {
	switch e.Kind {
	case UnresolvedImport:
		return fmt.Sprintf("cannot resolve import %q from %s", e.Specifier, e.Importer)
	case ReadFailure:
		return fmt.Sprintf("cannot read module %s: %v", e.Importer, e.Err)
	default:
		return fmt.Sprintf("bundle %s failed: %v", e.Importer, e.Err)
	}
}

// Unwrap returns the underlying error.
func (e *BundleError) Unwrap() error {
	return e.Err
}
