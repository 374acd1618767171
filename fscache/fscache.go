// Package fscache memoizes filesystem reads and directory listings.
//
// Entries are keyed by the absolute resolved path, so relative and absolute
// spellings of the same file share a single cache slot.  The cache stores the
// in-flight operation itself rather than its eventual result: concurrent
// callers asking for the same key join the pending operation instead of racing
// independent filesystem calls.  A failed operation is evicted before the
// error propagates, so a later retry is never stuck behind a poisoned slot.
package fscache

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/text/encoding/htmlindex"
)

// DefaultSize is the entry capacity used when no size is given.  It is large
// enough that eviction never happens for a typical views directory.
const DefaultSize = 4096

// FS is the filesystem surface the cache reads through.  It exists so tests
// can substitute a read-counting stub.
type FS interface {
	ReadFile(name string) ([]byte, error)
	ReadDir(name string) ([]os.DirEntry, error)
	Stat(name string) (fs.FileInfo, error)
}

type osFS struct{}

func (osFS) ReadFile(name string) ([]byte, error)       { return os.ReadFile(name) }
func (osFS) ReadDir(name string) ([]os.DirEntry, error) { return os.ReadDir(name) }
func (osFS) Stat(name string) (fs.FileInfo, error)      { return os.Stat(name) }

// OS is the default filesystem.
var OS FS = osFS{}

// ReadOptions control a single ReadFile call.
type ReadOptions struct {
	// Cache joins or populates the shared cache slot for the path.  When
	// false the read always goes to the filesystem and nothing is stored.
	Cache bool
	// Encoding names the character encoding of the file.  Empty or any
	// spelling of UTF-8 reads the bytes as-is; other names are resolved
	// through x/text's encoding index.
	Encoding string
}

// ListOptions control a single ListFiles call.
type ListOptions struct {
	Cache bool
}

// key identifies a cache slot.  Listings carry the extension they matched so
// a directory listing never collides with a file read of the same path.
type key struct {
	path string
	ext  string
}

// entry is a pending-or-settled operation.  done is closed once val and err
// are final.
type entry struct {
	done chan struct{}
	val  interface{}
	err  error
}

// Cache memoizes file reads and directory listings.
type Cache struct {
	mu    sync.Mutex
	store *lru.Cache
	fs    FS
}

// New returns a Cache holding at most size entries.  A non-positive size uses
// DefaultSize.
func New(size int) *Cache {
	return NewFS(size, OS)
}

// NewFS is New with an explicit filesystem.
func NewFS(size int, fsys FS) *Cache {
	if size <= 0 {
		size = DefaultSize
	}
	store, err := lru.New(size)
	if err != nil {
		// lru.New only fails on a non-positive size.
		panic(err)
	}
	return &Cache{store: store, fs: fsys}
}

// ReadFile returns the content of the file at path, decoded per o.Encoding.
func (c *Cache) ReadFile(path string, o ReadOptions) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	v, err := c.do(key{path: abs}, o.Cache, func() (interface{}, error) {
		b, err := c.fs.ReadFile(abs)
		if err != nil {
			return nil, err
		}
		return decode(b, o.Encoding)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// ListFiles returns the slash-separated relative paths of every file under
// dir (following symlinks) whose name ends in ext.
func (c *Cache) ListFiles(dir, ext string, o ListOptions) ([]string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	v, err := c.do(key{path: abs, ext: ext}, o.Cache, func() (interface{}, error) {
		return c.listDir(abs, ext)
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

// do implements the shared-slot protocol: look up or install a pending entry
// under the lock, then settle it outside the lock.
func (c *Cache) do(k key, cached bool, fn func() (interface{}, error)) (interface{}, error) {
	if !cached {
		return fn()
	}
	c.mu.Lock()
	if v, ok := c.store.Get(k); ok {
		c.mu.Unlock()
		e := v.(*entry)
		<-e.done
		return e.val, e.err
	}
	e := &entry{done: make(chan struct{})}
	c.store.Add(k, e)
	c.mu.Unlock()

	e.val, e.err = fn()
	if e.err != nil {
		c.mu.Lock()
		c.store.Remove(k)
		c.mu.Unlock()
	}
	close(e.done)
	return e.val, e.err
}

// listDir walks the tree rooted at root.  Symlinked directories are followed,
// which plain filepath.Walk does not do.
func (c *Cache) listDir(root, ext string) ([]string, error) {
	var files []string
	var walk func(dir, rel string) error
	walk = func(dir, rel string) error {
		entries, err := c.fs.ReadDir(dir)
		if err != nil {
			return err
		}
		for _, de := range entries {
			name := de.Name()
			full := filepath.Join(dir, name)
			info, err := c.fs.Stat(full)
			if err != nil {
				return err
			}
			childRel := name
			if rel != "" {
				childRel = rel + "/" + name
			}
			if info.IsDir() {
				if err := walk(full, childRel); err != nil {
					return err
				}
			} else if strings.HasSuffix(name, ext) {
				files = append(files, childRel)
			}
		}
		return nil
	}
	if err := walk(root, ""); err != nil {
		return nil, err
	}
	return files, nil
}

// Reset evicts entries.  With no arguments every entry is dropped; otherwise
// each named path is evicted, along with any listing rooted at it.  Unknown
// paths are ignored.
func (c *Cache) Reset(paths ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(paths) == 0 {
		c.store.Purge()
		return
	}
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		for _, k := range c.store.Keys() {
			if k.(key).path == abs {
				c.store.Remove(k)
			}
		}
	}
}

// ResetFunc evicts every entry whose path satisfies pred.
func (c *Cache) ResetFunc(pred func(path string) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range c.store.Keys() {
		if pred(k.(key).path) {
			c.store.Remove(k)
		}
	}
}

// Len reports the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Len()
}

func decode(b []byte, name string) (string, error) {
	switch strings.ToLower(name) {
	case "", "utf8", "utf-8":
		return string(b), nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return "", fmt.Errorf("fscache: unknown encoding %q: %w", name, err)
	}
	out, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("fscache: decode %s: %w", name, err)
	}
	return string(out), nil
}
