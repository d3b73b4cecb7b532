package domain

import "path/filepath"

const (
	// ConfigFileName is the name of the project configuration file.
	ConfigFileName = "envreload.yaml"

	// DefaultDescriptor is the file whose mtime direnv polls to decide whether to reload.
	DefaultDescriptor = ".envrc"

	// DefaultCacheDir is the directory where nix-direnv keeps its cached profiles.
	DefaultCacheDir = ".direnv"

	// DefaultArtifactGlob matches the cached profile artifacts inside the cache directory.
	DefaultArtifactGlob = "*.rc"

	// ForceReloadVar is the variable nix-direnv reads to bypass its change detection.
	ForceReloadVar = "_nix_direnv_force_reload"

	// RootPlaceholder is replaced by the absolute root path in the rebuild command.
	RootPlaceholder = "{root}"

	// DefaultRootName is the name given to the root when none is configured.
	DefaultRootName = "default"

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644
)

// DefaultCommand returns the rebuild command used when none is configured.
func DefaultCommand() []string {
	return []string{"direnv", "exec", RootPlaceholder, "true"}
}

// DefaultForceEnv returns the variables set on the rebuild invocation by default.
func DefaultForceEnv() map[string]string {
	return map[string]string{ForceReloadVar: "1"}
}

// DefaultDescriptorPath returns the descriptor path for the given root.
// It joins root and .envrc.
func DefaultDescriptorPath(root string) string {
	return filepath.Join(root, DefaultDescriptor)
}

// DefaultCacheDirPath returns the cache state directory for the given root.
// It joins root and .direnv.
func DefaultCacheDirPath(root string) string {
	return filepath.Join(root, DefaultCacheDir)
}
