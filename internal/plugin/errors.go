package plugin

import "errors"

// Plugin system errors.
var (
	// ErrPluginNotFound is returned when a plugin cannot be located.
	ErrPluginNotFound = errors.New("plugin not found")

	// ErrNoEntryPoint is returned when a plugin directory has no valid
	// entry point.
	ErrNoEntryPoint = errors.New("plugin has no entry point (init.ts, init.js, index.ts or index.js)")

	// ErrAlreadyLoaded is returned when attempting to load an already
	// loaded plugin.
	ErrAlreadyLoaded = errors.New("plugin is already loaded")

	// ErrPluginDisabled is returned when attempting to load a disabled
	// plugin.
	ErrPluginDisabled = errors.New("plugin is disabled")

	// ErrRuntimeClosed is returned when an operation is submitted to a
	// stopped runtime.
	ErrRuntimeClosed = errors.New("plugin runtime is closed")
)
