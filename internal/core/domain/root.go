// Package domain holds the core types of envreload: roots, their settings and reconciliation reports.
package domain

import (
	"maps"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// Settings describes how an environment root is rebuilt and which files carry its freshness signal.
type Settings struct {
	// Descriptor is the file, relative to the root, whose mtime the external watcher polls.
	Descriptor string
	// CacheDir is the cache state directory, relative to the root.
	CacheDir string
	// ArtifactGlob selects the profile artifacts inside CacheDir.
	ArtifactGlob string
	// Command is the forced rebuild invocation. RootPlaceholder is substituted.
	Command []string
	// ForceEnv is set on the rebuild process only.
	ForceEnv map[string]string
	// Watch lists additional files, relative to the root, that trigger a reload in watch mode.
	Watch []string
	// Timeout bounds the rebuild invocation. Zero means no limit.
	Timeout time.Duration
}

// DefaultSettings returns the nix-direnv settings.
func DefaultSettings() Settings {
	return Settings{
		Descriptor:   DefaultDescriptor,
		CacheDir:     DefaultCacheDir,
		ArtifactGlob: DefaultArtifactGlob,
		Command:      DefaultCommand(),
		ForceEnv:     DefaultForceEnv(),
	}
}

// Clone returns a deep copy of s.
func (s Settings) Clone() Settings {
	c := s
	c.Command = slices.Clone(s.Command)
	c.ForceEnv = maps.Clone(s.ForceEnv)
	c.Watch = slices.Clone(s.Watch)
	return c
}

// Root is an environment root: a directory expected to contain a descriptor
// file and a cache state directory owned by the external tool.
type Root struct {
	Name string
	Path string
	Settings
}

// NewRoot creates a root at path with a private copy of settings.
func NewRoot(name, path string, settings Settings) Root {
	return Root{
		Name:     name,
		Path:     filepath.Clean(path),
		Settings: settings.Clone(),
	}
}

// DescriptorPath returns the absolute path of the descriptor file.
func (r Root) DescriptorPath() string {
	return r.join(r.Descriptor)
}

// CacheDirPath returns the absolute path of the cache state directory.
func (r Root) CacheDirPath() string {
	return r.join(r.CacheDir)
}

// WatchPaths returns the descriptor followed by every additional watch file, deduplicated.
func (r Root) WatchPaths() []string {
	paths := []string{r.DescriptorPath()}
	for _, w := range r.Watch {
		p := r.join(w)
		if !slices.Contains(paths, p) {
			paths = append(paths, p)
		}
	}
	return paths
}

// Invocation builds the forced rebuild invocation for this root.
func (r Root) Invocation() *Invocation {
	cmd := make([]string, len(r.Command))
	for i, arg := range r.Command {
		cmd[i] = strings.ReplaceAll(arg, RootPlaceholder, r.Path)
	}
	return &Invocation{
		Command: cmd,
		Dir:     r.Path,
		Env:     maps.Clone(r.ForceEnv),
	}
}

func (r Root) join(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(r.Path, p)
}

// Invocation is a single run of the external environment manager.
type Invocation struct {
	// Command is the argv of the process.
	Command []string
	// Dir is the working directory.
	Dir string
	// Env holds variables added to the inherited environment for this process only.
	Env map[string]string
}
