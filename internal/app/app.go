// Package app implements the application layer for envreload.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.trai.ch/envreload/internal/adapters/detector"
	"go.trai.ch/envreload/internal/core/domain"
	"go.trai.ch/envreload/internal/core/ports"
	"go.trai.ch/envreload/internal/engine/reconciler"
	"go.trai.ch/zerr"
)

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	reconciler   *reconciler.Reconciler
	executor     ports.Executor
	watcher      ports.Watcher
	logger       ports.Logger
	getwd        func() (string, error)
}

// Components contains all the initialized application components.
// This struct provides controlled access to components needed by the CLI layer.
type Components struct {
	App    *App
	Logger ports.Logger
}

// New creates a new App instance.
func New(
	loader ports.ConfigLoader,
	rec *reconciler.Reconciler,
	executor ports.Executor,
	watcher ports.Watcher,
	log ports.Logger,
) *App {
	return &App{
		configLoader: loader,
		reconciler:   rec,
		executor:     executor,
		watcher:      watcher,
		logger:       log,
		getwd:        os.Getwd,
	}
}

// WithWorkingDir pins the directory config discovery and relative roots start from.
// This is primarily used for testing.
func (a *App) WithWorkingDir(dir string) *App {
	a.getwd = func() (string, error) { return dir, nil }
	return a
}

// SetOutput redirects the rebuild tool output and the missing root diagnostic.
func (a *App) SetOutput(stdout, stderr io.Writer) {
	a.reconciler.WithOutput(stdout, stderr)
}

// ConfigureLogging switches the logger between pretty and JSON output.
func (a *App) ConfigureLogging(jsonOutput bool) {
	if l, ok := a.logger.(interface{ SetJSON(bool) }); ok {
		l.SetJSON(jsonOutput)
	}
}

// ConfigureExecMode applies the --exec-mode flag: "auto", "pty" or "pipe".
func (a *App) ConfigureExecMode(flag string) {
	mode := detector.ResolveMode(detector.ModeAuto, flag)
	if e, ok := a.executor.(interface{ SetMode(detector.ExecMode) }); ok {
		e.SetMode(mode)
	}
}

// ReloadOptions configuration for the Reload method.
type ReloadOptions struct {
	// ConfigPath overrides config discovery.
	ConfigPath string
	// Root adds an explicit root directory.
	Root string
}

// Reload force-reloads the named roots one after another and stops at the first failure.
func (a *App) Reload(ctx context.Context, names []string, opts ReloadOptions) error {
	roots, err := a.resolveRoots(names, opts.ConfigPath, opts.Root)
	if err != nil {
		return err
	}

	for _, root := range roots {
		report, err := a.reconciler.Reconcile(ctx, root)
		if err != nil {
			return err
		}
		a.logger.Info(fmt.Sprintf("%s: reloaded, %d profile artifacts stamped %s",
			root.Name, len(report.Artifacts), report.DescriptorAfter.Format(time.RFC3339)))
	}
	return nil
}

// resolveRoots loads the configuration and picks the roots to act on.
// An explicit root is appended after the named ones; alone, it replaces the configured set.
func (a *App) resolveRoots(names []string, configPath, explicitRoot string) ([]domain.Root, error) {
	cwd, err := a.getwd()
	if err != nil {
		return nil, zerr.Wrap(err, "failed to get working directory")
	}

	cfg, err := a.configLoader.Load(cwd, configPath)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load configuration")
	}

	var roots []domain.Root
	if len(names) > 0 || explicitRoot == "" {
		roots, err = cfg.Select(names)
		if err != nil {
			return nil, err
		}
	}

	if explicitRoot != "" {
		path := explicitRoot
		if !filepath.IsAbs(path) {
			path = filepath.Join(cwd, path)
		}
		roots = append(roots, cfg.AdHoc(path))
	}

	for i := range roots {
		abs, err := filepath.Abs(roots[i].Path)
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, domain.ErrFailedToGetRoot.Error()), "root", roots[i].Path)
		}
		roots[i].Path = abs
	}
	return roots, nil
}
