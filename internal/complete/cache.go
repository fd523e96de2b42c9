package complete

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"
)

// Cache holds the contents of files handed to the engine for the lifetime of
// a console session. Entries are filled lazily through the loader or replaced
// wholesale by Install. Nothing is invalidated when files change on storage
// unless a caller invokes Invalidate (see internal/monitor).
type Cache struct {
	mu     sync.Mutex
	loader FileLoader
	root   string
	files  map[string]string
}

type CacheOption func(*Cache)

// WithLoader fixes the loader used to resolve files missing from the cache.
func WithLoader(l FileLoader) CacheOption {
	return func(c *Cache) { c.loader = l }
}

// WithRoot resolves relative paths other than VirtualRoot against dir, so
// submodules of the composed source are looked up next to the file it was
// built from and entries are keyed by the absolute paths a watcher reports.
func WithRoot(dir string) CacheOption {
	return func(c *Cache) {
		if abs, err := filepath.Abs(dir); err == nil {
			dir = abs
		}
		c.root = dir
	}
}

// NewCache returns an empty cache resolving files with Resolver.
func NewCache(opts ...CacheOption) *Cache {
	c := &Cache{loader: Resolver{}, files: map[string]string{}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) key(path string) string {
	p := filepath.Clean(path)
	if p == VirtualRoot || c.root == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.root, p)
}

// Install sets the contents of name, overwriting any previous entry.
func (c *Cache) Install(name, contents string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.files[c.key(name)] = contents
}

// Load returns the cached contents of path, resolving and caching them on
// first use. Failed loads are not cached.
func (c *Cache) Load(path string) (string, error) {
	key := c.key(path)
	c.mu.Lock()
	if s, ok := c.files[key]; ok {
		c.mu.Unlock()
		return s, nil
	}
	c.mu.Unlock()

	s, err := c.loader.LoadFile(key)
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	// An Install that raced the load wins.
	if cur, ok := c.files[key]; ok {
		return cur, nil
	}
	c.files[key] = s
	return s, nil
}

// Invalidate drops path so the next Load reads it again. The installed
// VirtualRoot is never dropped; it does not come from storage.
func (c *Cache) Invalidate(path string) {
	key := c.key(path)
	if key == VirtualRoot {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.files, key)
}

func (c *Cache) Contains(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.files[c.key(path)]
	return ok
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.files)
}

// Preload resolves paths concurrently so later completions find them cached.
// Every failure is reported; successful loads stay cached.
func (c *Cache) Preload(ctx context.Context, paths ...string) error {
	var (
		mu   sync.Mutex
		errs *multierror.Error
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, p := range paths {
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if _, err := c.Load(p); err != nil {
				mu.Lock()
				errs = multierror.Append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return errs.ErrorOrNil()
}
