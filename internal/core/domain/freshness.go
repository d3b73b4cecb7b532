package domain

import "time"

// ArtifactState is the observed timestamp of one profile artifact.
type ArtifactState struct {
	Path    string
	ModTime time.Time
}

// Freshness is a read-only snapshot of a root's cache signals.
type Freshness struct {
	Root             Root
	RootExists       bool
	DescriptorExists bool
	Descriptor       time.Time
	Artifacts        []ArtifactState
}

// Stale returns the artifacts whose mtime differs from the descriptor's.
func (f Freshness) Stale() []ArtifactState {
	var stale []ArtifactState
	for _, a := range f.Artifacts {
		if !a.ModTime.Equal(f.Descriptor) {
			stale = append(stale, a)
		}
	}
	return stale
}

// InSync reports whether the descriptor exists and every artifact carries its exact mtime.
// A root with no artifacts is not in sync: there is no cached profile to trust.
func (f Freshness) InSync() bool {
	return f.RootExists && f.DescriptorExists && len(f.Artifacts) > 0 && len(f.Stale()) == 0
}
