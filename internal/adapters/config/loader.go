// Package config provides the configuration loader for envreload.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"time"

	"go.trai.ch/envreload/internal/core/domain"
	"go.trai.ch/envreload/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// SupportedVersion is the config file version this loader understands.
const SupportedVersion = "1"

var validRootNameRegex = regexp.MustCompile("^[a-zA-Z0-9_-]+$")

// Loader implements ports.ConfigLoader using a YAML file and environment overrides.
type Loader struct {
	Logger ports.Logger
}

// NewLoader creates a new Loader with the given logger.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{Logger: logger}
}

// Load resolves the configuration for cwd.
// An explicit path wins over ENVRELOAD_CONFIG, which wins over discovery.
func (l *Loader) Load(cwd, path string) (*domain.Config, error) {
	ov, err := ParseEnv()
	if err != nil {
		return nil, err
	}

	if path == "" {
		path = ov.Config
	}
	if path == "" {
		path = findConfiguration(cwd)
	} else if !filepath.IsAbs(path) {
		path = filepath.Join(cwd, path)
	}

	if path == "" {
		return l.adHocConfig(cwd, ov)
	}
	return l.loadFile(path, ov)
}

// findConfiguration walks up from cwd and returns the first config file found, or "".
func findConfiguration(cwd string) string {
	currentDir := cwd
	for {
		candidate := filepath.Join(currentDir, domain.ConfigFileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			// Reached root
			return ""
		}
		currentDir = parentDir
	}
}

func (l *Loader) adHocConfig(cwd string, ov Overrides) (*domain.Config, error) {
	defaults := domain.DefaultSettings()
	ov.apply(&defaults)

	rootPath := cwd
	if ov.Root != "" {
		rootPath = resolvePath(cwd, ov.Root)
	}
	rootPath, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrFailedToGetRoot.Error()), "root", rootPath)
	}

	cfg := &domain.Config{Defaults: defaults}
	cfg.Roots = []domain.Root{cfg.AdHoc(rootPath)}
	return cfg, nil
}

func (l *Loader) loadFile(configPath string, ov Overrides) (*domain.Config, error) {
	var file File
	if err := readAndUnmarshalYAML(configPath, &file); err != nil {
		return nil, zerr.With(err, "config", configPath)
	}

	if file.Version != "" && file.Version != SupportedVersion {
		l.Logger.Warn(fmt.Sprintf("unknown version %q in %s, reading it as version %s",
			file.Version, configPath, SupportedVersion))
	}

	configDir := filepath.Dir(configPath)

	defaults := domain.DefaultSettings()
	if err := mergeSettings(&defaults, &file.Defaults); err != nil {
		return nil, zerr.With(err, "config", configPath)
	}

	cfg := &domain.Config{Source: configPath}

	names := slices.Sorted(maps.Keys(file.Roots))
	for _, name := range names {
		root, err := buildRoot(name, file.Roots[name], configDir, defaults, ov)
		if err != nil {
			return nil, zerr.With(err, "config", configPath)
		}
		cfg.Roots = append(cfg.Roots, root)
	}

	ov.apply(&defaults)
	cfg.Defaults = defaults

	if len(cfg.Roots) == 0 {
		rootPath := configDir
		if ov.Root != "" {
			rootPath = resolvePath(configDir, ov.Root)
		}
		cfg.Roots = []domain.Root{cfg.AdHoc(rootPath)}
	}

	return cfg, nil
}

func buildRoot(name string, dto *RootDTO, configDir string, defaults domain.Settings, ov Overrides) (domain.Root, error) {
	if err := validateRootName(name); err != nil {
		return domain.Root{}, err
	}
	if dto == nil || dto.Path == "" {
		return domain.Root{}, zerr.With(zerr.Wrap(domain.ErrMissingRootPath, "invalid root"), "root", name)
	}

	settings := defaults.Clone()
	if err := mergeSettings(&settings, &dto.SettingsDTO); err != nil {
		return domain.Root{}, zerr.With(err, "root", name)
	}
	ov.apply(&settings)

	return domain.NewRoot(name, resolvePath(configDir, dto.Path), settings), nil
}

// mergeSettings overlays the non-empty fields of dto onto s.
func mergeSettings(s *domain.Settings, dto *SettingsDTO) error {
	if dto.Descriptor != "" {
		s.Descriptor = dto.Descriptor
	}
	if dto.CacheDir != "" {
		s.CacheDir = dto.CacheDir
	}
	if dto.ArtifactGlob != "" {
		if _, err := filepath.Match(dto.ArtifactGlob, ""); err != nil {
			return zerr.With(zerr.Wrap(domain.ErrInvalidArtifactGlob, "invalid settings"), "artifactGlob", dto.ArtifactGlob)
		}
		s.ArtifactGlob = dto.ArtifactGlob
	}
	if len(dto.Command) > 0 {
		s.Command = slices.Clone(dto.Command)
	}
	if len(dto.Environment) > 0 {
		if s.ForceEnv == nil {
			s.ForceEnv = make(map[string]string, len(dto.Environment))
		}
		maps.Copy(s.ForceEnv, dto.Environment)
	}
	if len(dto.Watch) > 0 {
		s.Watch = append(s.Watch, dto.Watch...)
	}
	if dto.Timeout != "" {
		timeout, err := time.ParseDuration(dto.Timeout)
		if err != nil || timeout < 0 {
			return zerr.With(zerr.Wrap(domain.ErrInvalidTimeout, "invalid settings"), "timeout", dto.Timeout)
		}
		s.Timeout = timeout
	}
	return nil
}

func resolvePath(base, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readAndUnmarshalYAML reads a YAML file and unmarshals it into the target struct.
func readAndUnmarshalYAML[T any](configPath string, target *T) error {
	// #nosec G304 -- configPath is discovered or passed explicitly by the user
	configFile, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return zerr.Wrap(domain.ErrConfigReadFailed, "config file does not exist")
		}
		return zerr.Wrap(err, domain.ErrConfigReadFailed.Error())
	}

	if parseErr := yaml.Unmarshal(configFile, target); parseErr != nil {
		return zerr.Wrap(parseErr, domain.ErrConfigParseFailed.Error())
	}

	return nil
}

// validateRootName checks that the name is usable on the command line.
func validateRootName(name string) error {
	if !validRootNameRegex.MatchString(name) {
		return zerr.With(zerr.Wrap(domain.ErrInvalidRootName, "invalid root"), "root", name)
	}
	return nil
}
