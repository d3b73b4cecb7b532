package reconciler

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"go.trai.ch/envreload/internal/core/domain"
	"go.trai.ch/zerr"
)

// listArtifacts returns the regular files in the cache state directory that
// match the artifact glob, in directory order. A missing directory has none.
func listArtifacts(root domain.Root) ([]string, error) {
	if err := checkArtifactGlob(root); err != nil {
		return nil, err
	}

	dir := root.CacheDirPath()
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, zerr.With(zerr.Wrap(err, domain.ErrCacheDirReadFailed.Error()), "cache_dir", dir)
	}

	var artifacts []string
	for _, entry := range entries {
		// Matching on the base name keeps glob characters in the root path literal.
		if ok, _ := filepath.Match(root.ArtifactGlob, entry.Name()); !ok {
			continue
		}
		p := filepath.Join(dir, entry.Name())
		info, err := os.Stat(p)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		artifacts = append(artifacts, p)
	}
	return artifacts, nil
}

// checkArtifactGlob rejects a malformed artifact pattern.
func checkArtifactGlob(root domain.Root) error {
	if _, err := filepath.Match(root.ArtifactGlob, ""); err != nil {
		return zerr.With(zerr.Wrap(domain.ErrInvalidArtifactGlob, "cannot list artifacts"), "artifactGlob", root.ArtifactGlob)
	}
	return nil
}
