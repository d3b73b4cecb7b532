package config

import (
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"go.trai.ch/envreload/internal/core/domain"
	"go.trai.ch/zerr"
)

// Overrides are read from ENVRELOAD_* variables and take precedence over the config file.
type Overrides struct {
	Config       string        `env:"ENVRELOAD_CONFIG"`
	Root         string        `env:"ENVRELOAD_ROOT"`
	Command      []string      `env:"ENVRELOAD_COMMAND" envSeparator:" "`
	Descriptor   string        `env:"ENVRELOAD_DESCRIPTOR"`
	CacheDir     string        `env:"ENVRELOAD_CACHE_DIR"`
	ArtifactGlob string        `env:"ENVRELOAD_ARTIFACT_GLOB"`
	Timeout      time.Duration `env:"ENVRELOAD_TIMEOUT"`
}

// ParseEnv loads the overrides from the process environment.
func ParseEnv() (Overrides, error) {
	var ov Overrides
	if err := env.Parse(&ov); err != nil {
		return Overrides{}, zerr.Wrap(err, domain.ErrConfigEnvFailed.Error())
	}
	if ov.Timeout < 0 {
		return Overrides{}, zerr.With(zerr.Wrap(domain.ErrInvalidTimeout, "ENVRELOAD_TIMEOUT"), "timeout", ov.Timeout)
	}
	if ov.ArtifactGlob != "" {
		if _, err := filepath.Match(ov.ArtifactGlob, ""); err != nil {
			return Overrides{}, zerr.With(zerr.Wrap(domain.ErrInvalidArtifactGlob, "ENVRELOAD_ARTIFACT_GLOB"), "artifactGlob", ov.ArtifactGlob)
		}
	}
	return ov, nil
}

// apply writes the set overrides onto s.
func (ov Overrides) apply(s *domain.Settings) {
	if len(ov.Command) > 0 {
		s.Command = append([]string(nil), ov.Command...)
	}
	if ov.Descriptor != "" {
		s.Descriptor = ov.Descriptor
	}
	if ov.CacheDir != "" {
		s.CacheDir = ov.CacheDir
	}
	if ov.ArtifactGlob != "" {
		s.ArtifactGlob = ov.ArtifactGlob
	}
	if ov.Timeout > 0 {
		s.Timeout = ov.Timeout
	}
}
