package transpile

import (
	"fmt"
	"strings"

	"github.com/dop251/goja"
	"github.com/evanw/esbuild/pkg/api"
)

// Transpile converts one typed source unit into executable JavaScript.
//
// The pipeline is staged and fatal on the first failing stage: parse,
// scope analysis, type stripping, code generation. Identical input text and
// unit name always produce identical output.
func Transpile(source, unitName string) (string, error) {
	result := api.Transform(source, api.TransformOptions{
		Loader:     loaderFor(unitName),
		Sourcefile: unitName,
		Target:     api.ES2017,
		Format:     api.FormatDefault,
		Charset:    api.CharsetUTF8,
		LogLevel:   api.LogLevelSilent,
	})
	if len(result.Errors) > 0 {
		return "", classify(unitName, result.Errors)
	}

	code := string(result.Code)

	// Compile-check the emitted code with the interpreter's own parser so
	// that a printer bug or an unsupported construct surfaces here, at load
	// time, rather than as a confusing eval failure inside a live plugin.
	if _, err := goja.Compile(unitName, code, false); err != nil {
		return "", &Error{
			Stage:    StageCodegen,
			Unit:     unitName,
			Messages: []string{err.Error()},
		}
	}

	return code, nil
}

// loaderFor picks the esbuild loader from the unit's extension.
// Anything that is not explicitly plain JavaScript is treated as typed.
func loaderFor(unitName string) api.Loader {
	if strings.HasSuffix(unitName, ".js") || strings.HasSuffix(unitName, ".mjs") {
		return api.LoaderJS
	}
	return api.LoaderTS
}

// classify folds esbuild messages into a staged Error, keeping every
// message. Scope-level complaints map to the semantic stage and lowering
// complaints to the transform stage; everything else is a parse error.
func classify(unitName string, msgs []api.Message) *Error {
	stage := StageSyntax
	messages := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		messages = append(messages, formatMessage(msg))
		switch {
		case strings.Contains(msg.Text, "has already been declared"),
			strings.Contains(msg.Text, "Multiple exports with the same name"):
			stage = StageSemantic
		case strings.Contains(msg.Text, "is not supported"),
			strings.Contains(msg.Text, "Transforming"):
			if stage == StageSyntax {
				stage = StageTransform
			}
		}
	}
	return &Error{Stage: stage, Unit: unitName, Messages: messages}
}

// formatMessage renders one esbuild message with its location.
func formatMessage(msg api.Message) string {
	if msg.Location == nil {
		return msg.Text
	}
	return fmt.Sprintf("%s:%d:%d: %s", msg.Location.File, msg.Location.Line, msg.Location.Column, msg.Text)
}

// HasModuleSyntax reports whether the source uses ECMAScript module syntax
// and therefore needs bundling before execution.
//
// This is a cheap textual detector, not a parse: an import statement whose
// logical statement carries a "from" clause, a bare side-effect import, or
// any line beginning with "export" counts. Plain scripts skip the bundler
// entirely.
func HasModuleSyntax(source string) bool {
	inImport := false
	for _, line := range strings.Split(source, "\n") {
		trimmed := strings.TrimSpace(line)
		if inImport {
			if strings.Contains(trimmed, "from ") {
				return true
			}
			if strings.HasSuffix(trimmed, ";") {
				inImport = false
			}
			continue
		}
		switch {
		case strings.HasPrefix(trimmed, "export"):
			return true
		case strings.HasPrefix(trimmed, `import "`), strings.HasPrefix(trimmed, "import '"):
			return true
		case strings.HasPrefix(trimmed, "import "):
			if strings.Contains(trimmed, " from ") {
				return true
			}
			// Import statement continues on following lines.
			if !strings.HasSuffix(trimmed, ";") {
				inImport = true
			}
		}
	}
	return false
}
