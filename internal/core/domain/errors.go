package domain

import "go.trai.ch/zerr"

var (
	// ErrRootNotFound is returned when the environment root is missing or is not a directory.
	ErrRootNotFound = zerr.New("cannot find source directory")

	// ErrExternalToolFailed is returned when the forced rebuild invocation exits non-zero.
	ErrExternalToolFailed = zerr.New("forced rebuild failed")

	// ErrEmptyCommand is returned when a root has no rebuild command configured.
	ErrEmptyCommand = zerr.New("rebuild command is empty")

	// ErrDescriptorStatFailed is returned when the descriptor file cannot be inspected.
	ErrDescriptorStatFailed = zerr.New("failed to stat descriptor file")

	// ErrDescriptorTouchFailed is returned when the descriptor timestamp cannot be advanced.
	ErrDescriptorTouchFailed = zerr.New("failed to touch descriptor file")

	// ErrArtifactPropagationFailed is returned when a profile artifact timestamp cannot be updated.
	ErrArtifactPropagationFailed = zerr.New("failed to propagate timestamp to profile artifact")

	// ErrCacheDirReadFailed is returned when the cache state directory exists but cannot be listed.
	ErrCacheDirReadFailed = zerr.New("failed to read cache state directory")

	// ErrInvalidArtifactGlob is returned when the artifact pattern is malformed.
	ErrInvalidArtifactGlob = zerr.New("invalid artifact glob")

	// ErrConfigReadFailed is returned when the config file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when the config file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrConfigEnvFailed is returned when environment overrides cannot be parsed.
	ErrConfigEnvFailed = zerr.New("failed to parse environment overrides")

	// ErrInvalidRootName is returned when a configured root name contains invalid characters.
	ErrInvalidRootName = zerr.New("root name can only contain alphanumeric characters, hyphens and underscores")

	// ErrMissingRootPath is returned when a configured root has no path.
	ErrMissingRootPath = zerr.New("root path is required")

	// ErrInvalidTimeout is returned when a configured timeout cannot be parsed.
	ErrInvalidTimeout = zerr.New("invalid timeout, expected a duration such as 90s or 10m")

	// ErrUnknownRoot is returned when a requested root name is not configured.
	ErrUnknownRoot = zerr.New("root not configured")

	// ErrFailedToGetRoot is returned when the absolute path of a root cannot be determined.
	ErrFailedToGetRoot = zerr.New("failed to get absolute path of root")

	// ErrWatcherStartFailed is returned when the file watcher cannot be started.
	ErrWatcherStartFailed = zerr.New("failed to start file watcher")

	// ErrNothingToWatch is returned when watch mode has no files to observe.
	ErrNothingToWatch = zerr.New("no files to watch")
)
