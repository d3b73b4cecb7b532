package reconciler_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/envreload/internal/core/domain"
	"go.trai.ch/envreload/internal/core/ports/mocks"
	"go.trai.ch/envreload/internal/engine/reconciler"
	"go.uber.org/mock/gomock"
)

// fixture is an environment root on disk with a descriptor and profile artifacts.
type fixture struct {
	root      domain.Root
	artifacts []string
}

func newFixture(t *testing.T, descriptorTime time.Time, artifactTimes ...time.Time) fixture {
	t.Helper()
	dir := t.TempDir()
	root := domain.NewRoot("api", dir, domain.DefaultSettings())

	require.NoError(t, os.WriteFile(root.DescriptorPath(), []byte("use flake\n"), domain.FilePerm))
	require.NoError(t, os.Chtimes(root.DescriptorPath(), descriptorTime, descriptorTime))
	require.NoError(t, os.Mkdir(root.CacheDirPath(), 0o750))

	f := fixture{root: root}
	for i, ts := range artifactTimes {
		p := filepath.Join(root.CacheDirPath(), "flake-profile-"+string(rune('a'+i))+".rc")
		require.NoError(t, os.WriteFile(p, []byte("export FOO=bar\n"), domain.FilePerm))
		require.NoError(t, os.Chtimes(p, ts, ts))
		f.artifacts = append(f.artifacts, p)
	}
	return f
}

func mtime(t *testing.T, path string) time.Time {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	return info.ModTime()
}

func newReconciler(t *testing.T) (*reconciler.Reconciler, *mocks.MockExecutor, *mocks.MockLogger, *bytes.Buffer) {
	t.Helper()
	ctrl := gomock.NewController(t)
	executor := mocks.NewMockExecutor(ctrl)
	log := mocks.NewMockLogger(ctrl)

	stderr := &bytes.Buffer{}
	rec := reconciler.New(executor, log).WithOutput(io.Discard, stderr)
	return rec, executor, log, stderr
}

func TestReconcile_MissingRoot(t *testing.T) {
	rec, _, _, stderr := newReconciler(t)
	missing := filepath.Join(t.TempDir(), "moved-away")
	root := domain.NewRoot("api", missing, domain.DefaultSettings())

	report, err := rec.Reconcile(context.Background(), root)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRootNotFound)
	assert.Equal(t, 1, domain.ExitCode(err))
	assert.Equal(t, domain.StateFailed, report.State)
	assert.Equal(t, domain.StateStart, report.Reached)
	assert.Equal(t,
		"Cannot find source directory; Did you move it?\n"+
			"(Looking for \""+missing+"\")\n"+
			"Cannot force reload with this script - use \"direnv reload\" manually and then try again\n",
		stderr.String())

	_, statErr := os.Stat(missing)
	assert.True(t, os.IsNotExist(statErr), "nothing may be created for a missing root")
}

func TestReconcile_RootIsAFile(t *testing.T) {
	rec, _, _, stderr := newReconciler(t)
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, nil, domain.FilePerm))

	_, err := rec.Reconcile(context.Background(), domain.NewRoot("api", file, domain.DefaultSettings()))

	assert.ErrorIs(t, err, domain.ErrRootNotFound)
	assert.Contains(t, stderr.String(), "Cannot find source directory")
}

func TestReconcile_ThreeArtifacts(t *testing.T) {
	t0 := time.Now().Add(-time.Hour).Truncate(time.Second)
	f := newFixture(t, t0, t0.Add(-10*time.Second), t0.Add(-5*time.Second), t0)

	rec, executor, _, _ := newReconciler(t)
	executor.EXPECT().
		Execute(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, inv *domain.Invocation, _, _ io.Writer) error {
			assert.Equal(t, []string{"direnv", "exec", f.root.Path, "true"}, inv.Command)
			assert.Equal(t, "1", inv.Env[domain.ForceReloadVar])
			return nil
		})

	report, err := rec.Reconcile(context.Background(), f.root)
	require.NoError(t, err)

	t1 := mtime(t, f.root.DescriptorPath())
	assert.True(t, t1.After(t0), "descriptor mtime must strictly increase")
	for _, a := range f.artifacts {
		assert.True(t, t1.Equal(mtime(t, a)), "artifact %s must carry the descriptor mtime", a)
	}

	assert.True(t, report.Succeeded())
	assert.Equal(t, domain.StateDone, report.Reached)
	assert.True(t, report.DescriptorBefore.Equal(t0))
	assert.True(t, report.DescriptorAfter.Equal(t1))
	assert.ElementsMatch(t, f.artifacts, report.Artifacts)
}

func TestReconcile_Idempotent(t *testing.T) {
	t0 := time.Now().Add(-time.Hour)
	f := newFixture(t, t0, t0.Add(-time.Minute))

	rec, executor, _, _ := newReconciler(t)
	executor.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(2)

	_, err := rec.Reconcile(context.Background(), f.root)
	require.NoError(t, err)
	first := mtime(t, f.root.DescriptorPath())

	_, err = rec.Reconcile(context.Background(), f.root)
	require.NoError(t, err)
	second := mtime(t, f.root.DescriptorPath())

	assert.True(t, second.After(first))
	assert.True(t, second.Equal(mtime(t, f.artifacts[0])))
}

func TestReconcile_FrozenClock(t *testing.T) {
	t0 := time.Now().Add(-time.Hour).Truncate(time.Second)
	f := newFixture(t, t0, t0)

	rec, executor, _, _ := newReconciler(t)
	rec.WithClock(func() time.Time { return t0 })
	executor.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	_, err := rec.Reconcile(context.Background(), f.root)
	require.NoError(t, err)

	t1 := mtime(t, f.root.DescriptorPath())
	assert.True(t, t1.After(t0))
	assert.True(t, t1.Equal(mtime(t, f.artifacts[0])))
}

func TestReconcile_FutureDescriptor(t *testing.T) {
	future := time.Now().Add(24 * time.Hour).Truncate(time.Second)
	f := newFixture(t, future, future.Add(-time.Hour))

	rec, executor, _, _ := newReconciler(t)
	executor.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	_, err := rec.Reconcile(context.Background(), f.root)
	require.NoError(t, err)

	t1 := mtime(t, f.root.DescriptorPath())
	assert.True(t, t1.After(future))
	assert.True(t, t1.Equal(mtime(t, f.artifacts[0])))
}

func TestReconcile_ToolFailureLeavesTimestamps(t *testing.T) {
	t0 := time.Now().Add(-time.Hour)
	f := newFixture(t, t0, t0.Add(-time.Minute))

	rec, executor, _, _ := newReconciler(t)
	executor.EXPECT().
		Execute(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&domain.ToolFailure{Command: "direnv", Code: 4})

	report, err := rec.Reconcile(context.Background(), f.root)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrExternalToolFailed)
	assert.Equal(t, 4, domain.ExitCode(err))
	assert.Equal(t, domain.StateRootChecked, report.Reached)
	assert.True(t, mtime(t, f.root.DescriptorPath()).Equal(t0))
	assert.True(t, mtime(t, f.artifacts[0]).Equal(t0.Add(-time.Minute)))
}

func TestReconcile_NoArtifacts(t *testing.T) {
	t0 := time.Now().Add(-time.Hour)
	f := newFixture(t, t0)

	rec, executor, log, _ := newReconciler(t)
	executor.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	log.EXPECT().Warn("no profile artifacts in " + f.root.CacheDirPath())

	report, err := rec.Reconcile(context.Background(), f.root)
	require.NoError(t, err)
	assert.True(t, report.Succeeded())
	assert.Empty(t, report.Artifacts)
	assert.True(t, mtime(t, f.root.DescriptorPath()).After(t0))
}

func TestReconcile_MissingCacheDir(t *testing.T) {
	dir := t.TempDir()
	root := domain.NewRoot("api", dir, domain.DefaultSettings())
	require.NoError(t, os.WriteFile(root.DescriptorPath(), []byte("use flake\n"), domain.FilePerm))

	rec, executor, log, _ := newReconciler(t)
	executor.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	log.EXPECT().Warn(gomock.Any())

	_, err := rec.Reconcile(context.Background(), root)
	require.NoError(t, err)

	_, statErr := os.Stat(root.CacheDirPath())
	assert.True(t, os.IsNotExist(statErr))
}

func TestReconcile_MissingDescriptor(t *testing.T) {
	root := domain.NewRoot("api", t.TempDir(), domain.DefaultSettings())

	rec, executor, _, _ := newReconciler(t)
	executor.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	report, err := rec.Reconcile(context.Background(), root)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDescriptorStatFailed)
	assert.Equal(t, domain.StateRebuiltForcefully, report.Reached)
	_, statErr := os.Stat(root.DescriptorPath())
	assert.True(t, os.IsNotExist(statErr), "the descriptor is never created")
}

func TestReconcile_IgnoresNonArtifacts(t *testing.T) {
	t0 := time.Now().Add(-time.Hour)
	f := newFixture(t, t0, t0)

	other := filepath.Join(f.root.CacheDirPath(), "flake-inputs")
	require.NoError(t, os.Mkdir(other, 0o750))
	notes := filepath.Join(f.root.CacheDirPath(), "notes.txt")
	require.NoError(t, os.WriteFile(notes, nil, domain.FilePerm))
	old := t0.Add(-time.Hour)
	require.NoError(t, os.Chtimes(notes, old, old))
	rcDir := filepath.Join(f.root.CacheDirPath(), "dir.rc")
	require.NoError(t, os.Mkdir(rcDir, 0o750))

	rec, executor, _, _ := newReconciler(t)
	executor.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	report, err := rec.Reconcile(context.Background(), f.root)
	require.NoError(t, err)

	assert.Equal(t, f.artifacts, report.Artifacts)
	assert.True(t, mtime(t, notes).Equal(old))
}

func TestReconcile_EmptyCommand(t *testing.T) {
	t0 := time.Now().Add(-time.Hour)
	f := newFixture(t, t0, t0)
	f.root.Command = nil

	rec, _, _, _ := newReconciler(t)

	_, err := rec.Reconcile(context.Background(), f.root)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmptyCommand)
	assert.True(t, mtime(t, f.root.DescriptorPath()).Equal(t0))
}

func TestReconcile_InvalidArtifactGlob(t *testing.T) {
	t0 := time.Now().Add(-time.Hour)
	f := newFixture(t, t0, t0)
	f.root.ArtifactGlob = "[*.rc"

	// The executor must not run: no expectation is set.
	rec, _, _, _ := newReconciler(t)

	report, err := rec.Reconcile(context.Background(), f.root)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidArtifactGlob)
	assert.Equal(t, domain.StateRootChecked, report.Reached)
	assert.True(t, mtime(t, f.root.DescriptorPath()).Equal(t0))
	assert.True(t, mtime(t, f.artifacts[0]).Equal(t0))
}

func TestReconcile_Timeout(t *testing.T) {
	t0 := time.Now().Add(-time.Hour)
	f := newFixture(t, t0, t0)
	f.root.Timeout = 10 * time.Millisecond

	rec, executor, _, _ := newReconciler(t)
	executor.EXPECT().
		Execute(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ *domain.Invocation, _, _ io.Writer) error {
			<-ctx.Done()
			return ctx.Err()
		})

	_, err := rec.Reconcile(context.Background(), f.root)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, mtime(t, f.root.DescriptorPath()).Equal(t0))
}

func TestReconcile_PassesOutputWriters(t *testing.T) {
	t0 := time.Now().Add(-time.Hour)
	f := newFixture(t, t0, t0)

	ctrl := gomock.NewController(t)
	executor := mocks.NewMockExecutor(ctrl)
	log := mocks.NewMockLogger(ctrl)

	var stdout, stderr bytes.Buffer
	rec := reconciler.New(executor, log).WithOutput(&stdout, &stderr)
	executor.EXPECT().
		Execute(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ *domain.Invocation, out, errOut io.Writer) error {
			_, _ = io.WriteString(out, "direnv: loading .envrc\n")
			_, _ = io.WriteString(errOut, "direnv: export +FOO\n")
			return nil
		})

	_, err := rec.Reconcile(context.Background(), f.root)
	require.NoError(t, err)
	assert.Equal(t, "direnv: loading .envrc\n", stdout.String())
	assert.Equal(t, "direnv: export +FOO\n", stderr.String())
}
