package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.trai.ch/envreload/internal/adapters/watcher"
	"go.trai.ch/envreload/internal/core/domain"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// WatchOptions configuration for the Watch method.
type WatchOptions struct {
	ConfigPath string
	// Initial reloads every root once before watching.
	Initial bool
	// Window is the debounce window. Zero means watcher.DefaultDebounceWindow.
	Window time.Duration
}

// Watch reloads a root whenever the content of its descriptor or one of its
// watch files changes. It returns when ctx is canceled.
// Reload failures are logged and do not end the watch.
func (a *App) Watch(ctx context.Context, names []string, opts WatchOptions) error {
	roots, err := a.resolveRoots(names, opts.ConfigPath, "")
	if err != nil {
		return err
	}

	window := opts.Window
	if window <= 0 {
		window = watcher.DefaultDebounceWindow
	}

	owners := make(map[string][]domain.Root)
	var paths []string
	for _, root := range roots {
		for _, p := range root.WatchPaths() {
			if _, seen := owners[p]; !seen {
				paths = append(paths, p)
			}
			owners[p] = append(owners[p], root)
		}
	}

	digests := watcher.NewDigestCache()
	if err := digests.Prime(paths); err != nil {
		return zerr.Wrap(err, domain.ErrWatcherStartFailed.Error())
	}

	g, gctx := errgroup.WithContext(ctx)
	runs := newRootRuns()

	reload := func(root domain.Root) {
		if !runs.begin(root.Path) {
			return
		}
		for again := true; again; again = runs.next(root.Path) && gctx.Err() == nil {
			if _, err := a.reconciler.Reconcile(gctx, root); err != nil {
				if gctx.Err() == nil {
					a.logger.Error(zerr.With(err, "root", root.Name))
				}
				continue
			}
			a.logger.Info(root.Name + ": reloaded")
		}
	}

	if opts.Initial {
		for _, root := range roots {
			reload(root)
		}
	}

	if err := a.watcher.Start(gctx, paths); err != nil {
		return err
	}
	defer func() { _ = a.watcher.Stop() }()

	a.logger.Info(fmt.Sprintf("watching %d files for %d roots", len(paths), len(roots)))

	triggers := make(chan []string, 1)
	debouncer := watcher.NewDebouncer(window, func(changed []string) {
		select {
		case triggers <- changed:
		case <-gctx.Done():
		}
	})

	g.Go(func() error {
		defer debouncer.Stop()
		for event := range a.watcher.Events() {
			debouncer.Add(event.Path)
		}
		return nil
	})

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case changed := <-triggers:
				for _, root := range a.changedRoots(changed, owners, digests) {
					g.Go(func() error {
						reload(root)
						return nil
					})
				}
			}
		}
	})

	return g.Wait()
}

// rootRuns keeps at most one reload per root in flight. A trigger for a root
// that is already reloading marks it dirty, and the running reload repeats
// once it finishes so the latest content is always rebuilt.
type rootRuns struct {
	mu    sync.Mutex
	state map[string]*rootRun
}

type rootRun struct {
	running bool
	dirty   bool
}

func newRootRuns() *rootRuns {
	return &rootRuns{state: make(map[string]*rootRun)}
}

// begin reports whether the caller owns the reload of key.
// When another reload is running, key is marked dirty instead.
func (r *rootRuns) begin(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	run, ok := r.state[key]
	if !ok {
		run = &rootRun{}
		r.state[key] = run
	}
	if run.running {
		run.dirty = true
		return false
	}
	run.running = true
	return true
}

// next reports whether key was triggered during the last pass.
// If it was not, the caller gives up ownership.
func (r *rootRuns) next(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	run := r.state[key]
	if run.dirty {
		run.dirty = false
		return true
	}
	run.running = false
	return false
}

// changedRoots returns each root owning a path whose content digest changed, once.
func (a *App) changedRoots(paths []string, owners map[string][]domain.Root, digests *watcher.DigestCache) []domain.Root {
	var roots []domain.Root
	seen := make(map[string]struct{})
	for _, p := range paths {
		changed, err := digests.Changed(p)
		if err != nil {
			a.logger.Warn(fmt.Sprintf("cannot read %s: %v", p, err))
			continue
		}
		if !changed {
			continue
		}
		for _, root := range owners[p] {
			if _, ok := seen[root.Path]; ok {
				continue
			}
			seen[root.Path] = struct{}{}
			roots = append(roots, root)
		}
	}
	return roots
}
