package ports

import "go.trai.ch/envreload/internal/core/domain"

// ConfigLoader defines the interface for loading the envreload configuration.
//
//go:generate mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Load resolves the configuration for the given working directory.
	// If path is empty, the config file is discovered by walking up from cwd.
	// A missing config file is not an error: a single default root at cwd is returned.
	Load(cwd, path string) (*domain.Config, error)
}
