package transpile

import (
	"os"
	"path/filepath"
	"strings"
)

// Bundle flattens the entry module and every local relative import it
// reaches into a single executable script.
//
// Traversal is depth-first and dependency-first: a module's imports are
// emitted before the module's own body, so the output needs no hoisting
// across unit boundaries. A visited set of canonical paths guards against
// cycles: a module already emitted (or currently being emitted) is skipped
// silently, which means the second participant of a genuine cycle observes
// only whatever the first participant's body had produced so far.
func Bundle(entryPath string) (string, error) {
	b := &bundler{visited: make(map[string]bool)}
	var out strings.Builder
	if err := b.walk(entryPath, &out); err != nil {
		return "", err
	}
	return out.String(), nil
}

type bundler struct {
	visited map[string]bool
}

func (b *bundler) walk(path string, out *strings.Builder) error {
	canonical := canonicalPath(path)
	if b.visited[canonical] {
		return nil
	}
	b.visited[canonical] = true

	data, err := os.ReadFile(path)
	if err != nil {
		return &BundleError{Kind: ReadFailure, Importer: path, Err: err}
	}
	source := string(data)

	// Dependencies first.
	dir := filepath.Dir(path)
	for _, specifier := range localImports(source) {
		resolved, err := resolveImport(specifier, dir)
		if err != nil {
			return &BundleError{Kind: UnresolvedImport, Specifier: specifier, Importer: path}
		}
		if err := b.walk(resolved, out); err != nil {
			return err
		}
	}

	js, err := Transpile(stripModuleSyntax(source), path)
	if err != nil {
		return err
	}
	out.WriteString(js)
	out.WriteString("\n")
	return nil
}

// canonicalPath normalizes a path for cycle detection. Symlinks are
// resolved when possible; a path that cannot be resolved still has to be
// tracked, so it falls back to the cleaned absolute form.
func canonicalPath(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		path = resolved
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// localImports extracts relative import specifiers ("./x" or "../x") from
// the source. Bare and package specifiers are intentionally ignored: the
// bundler covers the plugin's own file tree, never external packages.
func localImports(source string) []string {
	var specifiers []string
	for _, line := range strings.Split(source, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "import ") {
			continue
		}
		idx := strings.Index(trimmed, " from ")
		if idx < 0 {
			continue
		}
		specifier, ok := quotedSpecifier(trimmed[idx+len(" from "):])
		if !ok {
			continue
		}
		if strings.HasPrefix(specifier, "./") || strings.HasPrefix(specifier, "../") {
			specifiers = append(specifiers, specifier)
		}
	}
	return specifiers
}

// quotedSpecifier extracts the leading quoted string from s.
func quotedSpecifier(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return "", false
	}
	quote := s[0]
	if quote != '"' && quote != '\'' {
		return "", false
	}
	end := strings.IndexByte(s[1:], quote)
	if end < 0 {
		return "", false
	}
	return s[1 : 1+end], true
}

// resolveImport resolves an import specifier against the importing file's
// directory. The search order is part of the plugin author contract:
// the literal path, the literal path with ".ts" appended, with ".js"
// appended, then "index.ts" and "index.js" inside the literal path treated
// as a directory. First match wins.
func resolveImport(specifier, fromDir string) (string, error) {
	base := filepath.Join(fromDir, specifier)
	candidates := []string{
		base,
		base + ".ts",
		base + ".js",
		filepath.Join(base, "index.ts"),
		filepath.Join(base, "index.js"),
	}
	for _, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", &BundleError{Kind: UnresolvedImport, Specifier: specifier, Importer: fromDir}
}

// exportedDeclarations are the declaration keywords that may follow
// "export"; stripping the keyword leaves a valid unprefixed declaration
// with the same binding name.
var exportedDeclarations = []string{
	"const ", "let ", "var ", "function ", "async ", "class ", "enum ",
	"interface ", "type ", "abstract ",
}

// stripModuleSyntax rewrites one module body for inclusion in the bundle:
// import lines are removed, "export" keywords on declarations are dropped,
// and "export default" plus re-export-from lines are removed entirely
// (their targets are bundled elsewhere or intentionally unreachable).
func stripModuleSyntax(source string) string {
	lines := strings.Split(source, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "import ") && strings.Contains(trimmed, " from "):
			continue
		case strings.HasPrefix(trimmed, `import "`), strings.HasPrefix(trimmed, "import '"):
			continue
		case strings.HasPrefix(trimmed, "export default"):
			continue
		case strings.HasPrefix(trimmed, "export ") && strings.Contains(trimmed, " from "):
			// Re-export: export { x } from "./y" or export * from "./y".
			continue
		case strings.HasPrefix(trimmed, "export "):
			rest := strings.TrimPrefix(trimmed, "export ")
			if isDeclaration(rest) {
				indent := line[:strings.Index(line, "export ")]
				kept = append(kept, indent+rest)
				continue
			}
			kept = append(kept, line)
		default:
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// isDeclaration reports whether s begins with a declaration keyword.
func isDeclaration(s string) bool {
	for _, keyword := range exportedDeclarations {
		if strings.HasPrefix(s, keyword) {
			return true
		}
	}
	return false
}
