// Package transpile turns typed plugin source into executable JavaScript.
//
// Plugins are written in a typed superset of JavaScript (TypeScript syntax:
// annotations, interfaces, type aliases, enums, generics). The interpreter
// only executes plain JavaScript, so every plugin unit passes through a
// staged pipeline: parse, scope analysis, type stripping, code generation.
// The heavy lifting is done by esbuild's transform API; the emitted code is
// then compile-checked against the interpreter's own parser so that nothing
// the engine cannot execute ever reaches a live plugin.
//
// Plugins that use ECMAScript module syntax are flattened by the bundler
// before execution: relative imports are resolved against the plugin's own
// file tree, dependencies are emitted before their dependents, and module
// syntax is rewritten away. The interpreter has no module loader, so the
// bundle is the only module system plugins get.
package transpile
