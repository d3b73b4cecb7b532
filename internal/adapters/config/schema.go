package config

// File represents the structure of the envreload.yaml configuration file.
type File struct {
	Version  string              `yaml:"version"`
	Defaults SettingsDTO         `yaml:"defaults"`
	Roots    map[string]*RootDTO `yaml:"roots"`
}

// SettingsDTO holds the per-root settings. Empty fields inherit.
type SettingsDTO struct {
	Descriptor   string            `yaml:"descriptor"`
	CacheDir     string            `yaml:"cacheDir"`
	ArtifactGlob string            `yaml:"artifactGlob"`
	Command      []string          `yaml:"command"`
	Environment  map[string]string `yaml:"environment"`
	Watch        []string          `yaml:"watch"`
	Timeout      string            `yaml:"timeout"`
}

// RootDTO represents a named environment root in the configuration.
type RootDTO struct {
	Path        string `yaml:"path"`
	SettingsDTO `yaml:",inline"`
}
