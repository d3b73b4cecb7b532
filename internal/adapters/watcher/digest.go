package watcher

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"sync"
	"unique"

	"github.com/cespare/xxhash/v2"
)

// missingDigest stands in for a file that does not exist.
const missingDigest uint64 = 0

// DigestCache remembers the content digest of watched files.
// Touching a file changes its mtime but not its digest, so envreload's own
// timestamp updates never trigger another reload.
type DigestCache struct {
	mu      sync.Mutex
	digests map[unique.Handle[string]]uint64
}

// NewDigestCache creates an empty cache.
func NewDigestCache() *DigestCache {
	return &DigestCache{digests: make(map[unique.Handle[string]]uint64)}
}

// Prime records the current digest of each path without reporting changes.
func (c *DigestCache) Prime(paths []string) error {
	for _, p := range paths {
		sum, err := digestFile(p)
		if err != nil {
			return err
		}
		c.mu.Lock()
		c.digests[unique.Make(p)] = sum
		c.mu.Unlock()
	}
	return nil
}

// Changed re-digests path, stores the result, and reports whether it differs
// from the previous digest. A path never seen before counts as changed.
func (c *DigestCache) Changed(path string) (bool, error) {
	sum, err := digestFile(path)
	if err != nil {
		return false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key := unique.Make(path)
	prev, known := c.digests[key]
	c.digests[key] = sum
	return !known || prev != sum, nil
}

func digestFile(path string) (uint64, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from the configured watch list
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return missingDigest, nil
		}
		return 0, err
	}
	defer func() { _ = f.Close() }()

	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return 0, err
	}
	return h.Sum64(), nil
}
