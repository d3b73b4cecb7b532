package domain

import (
	"slices"

	"go.trai.ch/zerr"
)

// Config is the resolved configuration: defaults plus the named roots.
type Config struct {
	// Source is the config file the roots were loaded from, empty when none was found.
	Source string
	// Defaults apply to ad-hoc roots and to every configured root unless overridden.
	Defaults Settings
	// Roots are sorted by name.
	Roots []Root
}

// Select returns the roots with the given names, in the requested order.
// With no names it returns every configured root.
func (c *Config) Select(names []string) ([]Root, error) {
	if len(names) == 0 {
		return slices.Clone(c.Roots), nil
	}

	roots := make([]Root, 0, len(names))
	for _, name := range names {
		idx := slices.IndexFunc(c.Roots, func(r Root) bool { return r.Name == name })
		if idx < 0 {
			err := zerr.With(zerr.Wrap(ErrUnknownRoot, "cannot select root"), "root", name)
			if c.Source != "" {
				err = zerr.With(err, "config", c.Source)
			}
			return nil, err
		}
		roots = append(roots, c.Roots[idx])
	}
	return roots, nil
}

// AdHoc returns a root at path using the configured defaults.
func (c *Config) AdHoc(path string) Root {
	return NewRoot(DefaultRootName, path, c.Defaults)
}
