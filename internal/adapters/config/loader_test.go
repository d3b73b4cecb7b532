package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/envreload/internal/adapters/config"
	"go.trai.ch/envreload/internal/core/domain"
	"go.trai.ch/envreload/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func newLoader(t *testing.T) *config.Loader {
	t.Helper()
	ctrl := gomock.NewController(t)
	mockLogger := mocks.NewMockLogger(ctrl)
	mockLogger.EXPECT().Warn(gomock.Any()).AnyTimes()
	return config.NewLoader(mockLogger)
}

func createFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), domain.FilePerm))
	return path
}

func TestLoader_Load_NoConfig(t *testing.T) {
	cwd := t.TempDir()

	cfg, err := newLoader(t).Load(cwd, "")
	require.NoError(t, err)

	assert.Empty(t, cfg.Source)
	require.Len(t, cfg.Roots, 1)
	assert.Equal(t, domain.DefaultRootName, cfg.Roots[0].Name)
	assert.Equal(t, cwd, cfg.Roots[0].Path)
	assert.Equal(t, domain.DefaultCommand(), cfg.Roots[0].Command)
	assert.Equal(t, domain.DefaultForceEnv(), cfg.Roots[0].ForceEnv)
}

func TestLoader_Load_NamedRoots(t *testing.T) {
	dir := t.TempDir()
	source := createFile(t, dir, domain.ConfigFileName, `
version: "1"
defaults:
  timeout: 5m
  watch: ["flake.nix"]
roots:
  web:
    path: services/web
    watch: ["flake.lock"]
  api:
    path: /srv/api
    command: ["nix-direnv-reload", "{root}"]
    environment:
      EXTRA: "yes"
`)

	cfg, err := newLoader(t).Load(dir, "")
	require.NoError(t, err)

	assert.Equal(t, source, cfg.Source)
	require.Len(t, cfg.Roots, 2)

	api := cfg.Roots[0]
	assert.Equal(t, "api", api.Name)
	assert.Equal(t, "/srv/api", api.Path)
	assert.Equal(t, []string{"nix-direnv-reload", "{root}"}, api.Command)
	assert.Equal(t, map[string]string{domain.ForceReloadVar: "1", "EXTRA": "yes"}, api.ForceEnv)
	assert.Equal(t, 5*time.Minute, api.Timeout)

	web := cfg.Roots[1]
	assert.Equal(t, "web", web.Name)
	assert.Equal(t, filepath.Join(dir, "services", "web"), web.Path)
	assert.Equal(t, domain.DefaultCommand(), web.Command)
	assert.Equal(t, []string{
		filepath.Join(dir, "services", "web", ".envrc"),
		filepath.Join(dir, "services", "web", "flake.nix"),
		filepath.Join(dir, "services", "web", "flake.lock"),
	}, web.WatchPaths())
}

func TestLoader_Load_DiscoversUpward(t *testing.T) {
	dir := t.TempDir()
	createFile(t, dir, domain.ConfigFileName, `
roots:
  app:
    path: .
`)
	nested := filepath.Join(dir, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o750))

	cfg, err := newLoader(t).Load(nested, "")
	require.NoError(t, err)

	require.Len(t, cfg.Roots, 1)
	assert.Equal(t, "app", cfg.Roots[0].Name)
	assert.Equal(t, dir, cfg.Roots[0].Path)
}

func TestLoader_Load_ConfigWithoutRoots(t *testing.T) {
	dir := t.TempDir()
	createFile(t, dir, domain.ConfigFileName, `
defaults:
  descriptor: devenv.nix
`)
	nested := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(nested, 0o750))

	cfg, err := newLoader(t).Load(nested, "")
	require.NoError(t, err)

	require.Len(t, cfg.Roots, 1)
	assert.Equal(t, dir, cfg.Roots[0].Path)
	assert.Equal(t, filepath.Join(dir, "devenv.nix"), cfg.Roots[0].DescriptorPath())
}

func TestLoader_Load_ExplicitPath(t *testing.T) {
	dir := t.TempDir()
	createFile(t, dir, "custom.yaml", `
roots:
  api:
    path: api
`)

	cfg, err := newLoader(t).Load(dir, "custom.yaml")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "custom.yaml"), cfg.Source)
	assert.Equal(t, filepath.Join(dir, "api"), cfg.Roots[0].Path)
}

func TestLoader_Load_ExplicitPathMissing(t *testing.T) {
	_, err := newLoader(t).Load(t.TempDir(), "missing.yaml")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfigReadFailed)
}

func TestLoader_Load_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	createFile(t, dir, domain.ConfigFileName, "roots: [unterminated")

	_, err := newLoader(t).Load(dir, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), domain.ErrConfigParseFailed.Error())
}

func TestLoader_Load_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{
			name:    "invalid root name",
			content: "roots:\n  \"my root\":\n    path: .\n",
			wantErr: domain.ErrInvalidRootName,
		},
		{
			name:    "missing root path",
			content: "roots:\n  api:\n    descriptor: .envrc\n",
			wantErr: domain.ErrMissingRootPath,
		},
		{
			name:    "invalid timeout",
			content: "roots:\n  api:\n    path: .\n    timeout: soon\n",
			wantErr: domain.ErrInvalidTimeout,
		},
		{
			name:    "negative timeout",
			content: "defaults:\n  timeout: -1s\n",
			wantErr: domain.ErrInvalidTimeout,
		},
		{
			name:    "invalid artifact glob",
			content: "defaults:\n  artifactGlob: \"[\"\n",
			wantErr: domain.ErrInvalidArtifactGlob,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			createFile(t, dir, domain.ConfigFileName, tt.content)

			_, err := newLoader(t).Load(dir, "")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoader_Load_UnknownVersionWarns(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockLogger := mocks.NewMockLogger(ctrl)
	mockLogger.EXPECT().Warn(gomock.Any()).Times(1)

	dir := t.TempDir()
	createFile(t, dir, domain.ConfigFileName, "version: \"9\"\n")

	_, err := config.NewLoader(mockLogger).Load(dir, "")
	require.NoError(t, err)
}

func TestLoader_Load_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	createFile(t, dir, domain.ConfigFileName, `
roots:
  api:
    path: api
    command: ["from-file"]
`)
	t.Setenv("ENVRELOAD_COMMAND", "direnv exec {root} true")
	t.Setenv("ENVRELOAD_CACHE_DIR", "cache")
	t.Setenv("ENVRELOAD_TIMEOUT", "30s")

	cfg, err := newLoader(t).Load(dir, "")
	require.NoError(t, err)

	api := cfg.Roots[0]
	assert.Equal(t, []string{"direnv", "exec", "{root}", "true"}, api.Command)
	assert.Equal(t, filepath.Join(dir, "api", "cache"), api.CacheDirPath())
	assert.Equal(t, 30*time.Second, api.Timeout)
	assert.Equal(t, 30*time.Second, cfg.Defaults.Timeout)
}

func TestLoader_Load_EnvRoot(t *testing.T) {
	cwd := t.TempDir()
	t.Setenv("ENVRELOAD_ROOT", "project")

	cfg, err := newLoader(t).Load(cwd, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cwd, "project"), cfg.Roots[0].Path)
}

func TestLoader_Load_EnvConfig(t *testing.T) {
	dir := t.TempDir()
	source := createFile(t, dir, "elsewhere.yaml", "roots:\n  api:\n    path: api\n")
	t.Setenv("ENVRELOAD_CONFIG", source)

	cfg, err := newLoader(t).Load(t.TempDir(), "")
	require.NoError(t, err)
	assert.Equal(t, source, cfg.Source)
}

func TestLoader_Load_InvalidEnv(t *testing.T) {
	t.Setenv("ENVRELOAD_TIMEOUT", "later")

	_, err := newLoader(t).Load(t.TempDir(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), domain.ErrConfigEnvFailed.Error())
}

func TestLoader_Load_InvalidEnvArtifactGlob(t *testing.T) {
	t.Setenv("ENVRELOAD_ARTIFACT_GLOB", "[*.rc")

	_, err := newLoader(t).Load(t.TempDir(), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidArtifactGlob)
}
