package reconciler

import (
	"os"

	"go.trai.ch/envreload/internal/core/domain"
	"go.trai.ch/zerr"
)

// Inspect reports the descriptor and artifact timestamps of root without changing anything.
func (r *Reconciler) Inspect(root domain.Root) (domain.Freshness, error) {
	freshness := domain.Freshness{Root: root}

	if !isDir(root.Path) {
		return freshness, nil
	}
	freshness.RootExists = true

	if info, err := os.Stat(root.DescriptorPath()); err == nil {
		freshness.DescriptorExists = true
		freshness.Descriptor = info.ModTime()
	}

	artifacts, err := listArtifacts(root)
	if err != nil {
		return freshness, zerr.With(err, "root", root.Path)
	}
	for _, p := range artifacts {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		freshness.Artifacts = append(freshness.Artifacts, domain.ArtifactState{Path: p, ModTime: info.ModTime()})
	}
	return freshness, nil
}
