// Package reconciler forces an environment cache rebuild and realigns the
// descriptor and profile artifact timestamps afterwards.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"
	"time"

	"go.trai.ch/envreload/internal/core/domain"
	"go.trai.ch/envreload/internal/core/ports"
	"go.trai.ch/zerr"
)

// Reconciler runs the reload sequence for a single root at a time.
type Reconciler struct {
	executor ports.Executor
	logger   ports.Logger

	mu     sync.RWMutex
	stdout io.Writer
	stderr io.Writer
	now    func() time.Time
}

// New creates a Reconciler writing tool output to the process stdout and stderr.
func New(executor ports.Executor, logger ports.Logger) *Reconciler {
	return &Reconciler{
		executor: executor,
		logger:   logger,
		stdout:   os.Stdout,
		stderr:   os.Stderr,
		now:      time.Now,
	}
}

// WithOutput sets where the rebuild tool output and the missing root diagnostic go.
func (r *Reconciler) WithOutput(stdout, stderr io.Writer) *Reconciler {
	r.mu.Lock()
	defer r.mu.Unlock()

	if stdout != nil {
		r.stdout = stdout
	}
	if stderr != nil {
		r.stderr = stderr
	}
	return r
}

// WithClock replaces the wall clock used to stamp the descriptor.
func (r *Reconciler) WithClock(now func() time.Time) *Reconciler {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.now = now
	return r
}

func (r *Reconciler) outputs() (stdout, stderr io.Writer, now func() time.Time) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stdout, r.stderr, r.now
}

// Reconcile checks the root, forces a rebuild and aligns the timestamps.
// The returned report records the last state reached, also on failure.
// Nothing is rolled back on failure.
func (r *Reconciler) Reconcile(ctx context.Context, root domain.Root) (*domain.Report, error) {
	stdout, stderr, now := r.outputs()
	report := domain.NewReport(root)

	if !isDir(root.Path) {
		writeMissingRootDiagnostic(stderr, root.Path)
		report.Fail()
		return report, zerr.With(zerr.Wrap(domain.ErrRootNotFound, "cannot reload environment"), "root", root.Path)
	}
	report.Advance(domain.StateRootChecked)

	// The pattern is checked before anything is touched.
	if err := checkArtifactGlob(root); err != nil {
		report.Fail()
		return report, zerr.With(err, "root", root.Path)
	}

	if info, err := os.Stat(root.DescriptorPath()); err == nil {
		report.DescriptorBefore = info.ModTime()
	}

	if err := r.rebuild(ctx, root, stdout, stderr); err != nil {
		report.Fail()
		return report, err
	}
	report.Advance(domain.StateRebuiltForcefully)

	stamp, err := touchDescriptor(root.DescriptorPath(), now)
	if err != nil {
		report.Fail()
		return report, zerr.With(err, "root", root.Path)
	}
	report.DescriptorAfter = stamp
	report.Advance(domain.StateDescriptorTouched)

	artifacts, err := listArtifacts(root)
	if err != nil {
		report.Fail()
		return report, zerr.With(err, "root", root.Path)
	}
	if len(artifacts) == 0 {
		r.logger.Warn("no profile artifacts in " + root.CacheDirPath())
	}
	if err := propagate(artifacts, stamp); err != nil {
		report.Fail()
		return report, zerr.With(err, "root", root.Path)
	}
	report.Artifacts = artifacts
	report.Advance(domain.StateArtifactsTouched)

	report.Advance(domain.StateDone)
	return report, nil
}

func (r *Reconciler) rebuild(ctx context.Context, root domain.Root, stdout, stderr io.Writer) error {
	if len(root.Command) == 0 {
		return zerr.With(zerr.Wrap(domain.ErrEmptyCommand, "cannot rebuild"), "root", root.Path)
	}

	if root.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, root.Timeout)
		defer cancel()
	}

	if err := r.executor.Execute(ctx, root.Invocation(), stdout, stderr); err != nil {
		err = zerr.With(zerr.Wrap(err, domain.ErrExternalToolFailed.Error()), "root", root.Path)
		if root.Timeout > 0 && errors.Is(err, context.DeadlineExceeded) {
			err = zerr.With(err, "timeout", root.Timeout.String())
		}
		return err
	}
	return nil
}

// writeMissingRootDiagnostic prints the three-line message users of direnv know.
func writeMissingRootDiagnostic(w io.Writer, root string) {
	_, _ = fmt.Fprintf(w,
		"Cannot find source directory; Did you move it?\n"+
			"(Looking for \"%s\")\n"+
			"Cannot force reload with this script - use \"direnv reload\" manually and then try again\n",
		root)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// touchDescriptor moves the descriptor mtime strictly forward and returns the stored value.
// Coarse filesystem timestamps may swallow a sub-second step, so larger steps are tried.
func touchDescriptor(path string, now func() time.Time) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return time.Time{}, zerr.With(zerr.Wrap(domain.ErrDescriptorStatFailed, "descriptor file is missing"), "descriptor", path)
		}
		return time.Time{}, zerr.With(zerr.Wrap(err, domain.ErrDescriptorStatFailed.Error()), "descriptor", path)
	}
	prev := info.ModTime()

	candidates := []time.Time{now(), prev.Add(time.Second), prev.Add(2 * time.Second)}
	for _, target := range candidates {
		if !target.After(prev) {
			continue
		}
		if err := os.Chtimes(path, target, target); err != nil {
			return time.Time{}, zerr.With(zerr.Wrap(err, domain.ErrDescriptorTouchFailed.Error()), "descriptor", path)
		}

		stored, err := os.Stat(path)
		if err != nil {
			return time.Time{}, zerr.With(zerr.Wrap(err, domain.ErrDescriptorStatFailed.Error()), "descriptor", path)
		}
		if stored.ModTime().After(prev) {
			return stored.ModTime(), nil
		}
	}

	err = zerr.With(zerr.Wrap(domain.ErrDescriptorTouchFailed, "timestamp did not move forward"), "descriptor", path)
	return time.Time{}, zerr.With(err, "previous", prev.Format(time.RFC3339Nano))
}

// propagate sets every artifact's atime and mtime to stamp.
// The first failure aborts; artifacts already updated stay updated.
func propagate(artifacts []string, stamp time.Time) error {
	for _, p := range artifacts {
		if err := os.Chtimes(p, stamp, stamp); err != nil {
			return zerr.With(zerr.Wrap(err, domain.ErrArtifactPropagationFailed.Error()), "artifact", p)
		}
	}
	return nil
}
