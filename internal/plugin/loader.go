package plugin

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// entryCandidates are the files probed, in order, to find a directory
// plugin's entry point.
var entryCandidates = []string{"init.ts", "init.js", "index.ts", "index.js"}

// Loader discovers plugins on the filesystem.
//
// A plugin is either a single .ts or .js file directly inside a search
// path, or a directory containing one of the entry candidates. Later
// search paths do not shadow earlier ones: the first discovery of a name
// wins.
type Loader struct {
	paths []string
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithPaths replaces the plugin search paths.
func WithPaths(paths ...string) LoaderOption {
	return func(l *Loader) {
		l.paths = paths
	}
}

// NewLoader creates a plugin loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{paths: DefaultPluginPaths()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// DefaultPluginPaths returns the default plugin search paths.
func DefaultPluginPaths() []string {
	paths := make([]string, 0, 3)

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "fathom", "plugins"))
		paths = append(paths, filepath.Join(home, ".local", "share", "fathom", "plugins"))
	}
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".fathom", "plugins"))
	}
	return paths
}

// Paths returns the configured search paths.
func (l *Loader) Paths() []string {
	return l.paths
}

// AddPath appends a search path.
func (l *Loader) AddPath(path string) {
	l.paths = append(l.paths, path)
}

// Discover finds all plugins in the search paths, sorted by name.
// Missing search paths are skipped silently.
func (l *Loader) Discover() []*Info {
	found := make(map[string]*Info)
	for _, base := range l.paths {
		entries, err := os.ReadDir(base)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			info, ok := discoverEntry(base, entry)
			if !ok {
				continue
			}
			if _, exists := found[info.Name]; exists {
				continue
			}
			found[info.Name] = info
		}
	}

	plugins := make([]*Info, 0, len(found))
	for _, info := range found {
		plugins = append(plugins, info)
	}
	sort.Slice(plugins, func(i, j int) bool { return plugins[i].Name < plugins[j].Name })
	return plugins
}

func discoverEntry(base string, entry os.DirEntry) (*Info, bool) {
	path := filepath.Join(base, entry.Name())
	if entry.IsDir() {
		for _, candidate := range entryCandidates {
			entryPath := filepath.Join(path, candidate)
			if fileExists(entryPath) {
				return &Info{
					Name:  entry.Name(),
					Path:  path,
					Entry: entryPath,
					State: StateDiscovered,
				}, true
			}
		}
		return nil, false
	}

	ext := filepath.Ext(entry.Name())
	if ext != ".ts" && ext != ".js" {
		return nil, false
	}
	return &Info{
		Name:  strings.TrimSuffix(entry.Name(), ext),
		Path:  path,
		Entry: path,
		State: StateDiscovered,
	}, true
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
