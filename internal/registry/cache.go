package registry

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/npmyap/yap/internal/yaperr"
)

// Cache is the on-disk, read-through mapping from package name to registry
// document. There is no eviction or invalidation: once written, an entry is
// trusted indefinitely.
type Cache struct {
	dir string
}

// NewCache returns a Cache rooted at dir, creating it if necessary.
func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &yaperr.CacheError{Name: dir, Op: "mkdir", Err: err}
	}
	return &Cache{dir: dir}, nil
}

func (c *Cache) path(name string) string {
	return filepath.Join(c.dir, Escape(name))
}

// Get reads the cached document for name. The second return value is false
// if no entry exists yet.
func (c *Cache) Get(name string) (Document, bool, error) {
	b, err := os.ReadFile(c.path(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Document{}, false, nil
		}
		return Document{}, false, &yaperr.CacheError{Name: name, Op: "read", Err: err}
	}
	var doc Document
	if err := json.Unmarshal(b, &doc); err != nil {
		return Document{}, false, &yaperr.CacheError{Name: name, Op: "decode", Err: err}
	}
	return doc, true, nil
}

// Put writes doc for name, replacing any prior entry. The write is staged
// through a temp file and renamed into place so a concurrent reader never
// observes a partial file.
func (c *Cache) Put(name string, doc Document) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return &yaperr.CacheError{Name: name, Op: "encode", Err: err}
	}
	dst := c.path(name)
	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return &yaperr.CacheError{Name: name, Op: "write", Err: err}
	}
	if err := os.Rename(tmp, dst); err != nil {
		return &yaperr.CacheError{Name: name, Op: "rename", Err: err}
	}
	return nil
}
