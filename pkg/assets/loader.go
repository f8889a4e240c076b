// Package assets loads named illustration resources for story cards.
//
// Illustrations are plain text art stored as files in an asset directory
// (name "rocket" resolves to rocket.txt). Loaded assets are cached; Prefetch
// warms the cache concurrently so the render loop never waits on disk.
package assets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/storyreel/pkg/debug"
	"github.com/vanderheijden86/storyreel/pkg/metrics"
)

// DefaultExt is appended to asset names that carry no extension.
const DefaultExt = ".txt"

// maxPrefetch bounds the number of concurrent reads in Prefetch.
const maxPrefetch = 8

// ErrNotFound is returned when no file exists for an asset name.
var ErrNotFound = errors.New("asset not found")

// Handle is a loaded asset.
type Handle struct {
	Name string
	Data []byte
}

// Text returns the asset content as text with trailing newlines removed.
func (h Handle) Text() string {
	return strings.TrimRight(string(h.Data), "\n")
}

// Lines splits the text content into lines.
func (h Handle) Lines() []string {
	t := h.Text()
	if t == "" {
		return nil
	}
	return strings.Split(t, "\n")
}

// Dir loads assets from a directory. It is safe for concurrent use.
type Dir struct {
	root string

	mu    sync.RWMutex
	cache map[string]Handle
}

// NewDir returns a loader rooted at root.
func NewDir(root string) *Dir {
	return &Dir{root: root, cache: make(map[string]Handle)}
}

// Root returns the asset directory.
func (d *Dir) Root() string { return d.root }

// Load returns the named asset, reading it from disk on first use.
func (d *Dir) Load(name string) (Handle, error) {
	d.mu.RLock()
	h, ok := d.cache[name]
	d.mu.RUnlock()
	if ok {
		return h, nil
	}

	defer metrics.Timer(metrics.AssetLoad)()
	path, err := d.resolve(name)
	if err != nil {
		return Handle{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Handle{}, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return Handle{}, fmt.Errorf("reading asset %s: %w", name, err)
	}

	h = Handle{Name: name, Data: data}
	d.mu.Lock()
	d.cache[name] = h
	d.mu.Unlock()
	debug.Log("assets: loaded %s (%d bytes)", name, len(data))
	return h, nil
}

// Prefetch loads every named asset concurrently. Missing assets are not an
// error; the first other failure cancels the remaining reads.
func (d *Dir) Prefetch(ctx context.Context, names []string) error {
	start := time.Now()
	defer func() { debug.LogTiming(fmt.Sprintf("assets: prefetch of %d", len(names)), time.Since(start)) }()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxPrefetch)
	for _, name := range unique(names) {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if _, err := d.Load(name); err != nil && !errors.Is(err, ErrNotFound) {
				return err
			}
			return nil
		})
	}
	return g.Wait()
}

// Cached reports how many assets are in the cache.
func (d *Dir) Cached() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.cache)
}

// Forget drops the cache, e.g. after the asset directory changed.
func (d *Dir) Forget() {
	d.mu.Lock()
	d.cache = make(map[string]Handle)
	d.mu.Unlock()
}

func (d *Dir) resolve(name string) (string, error) {
	if name == "" || strings.Contains(name, "..") || filepath.IsAbs(name) {
		return "", fmt.Errorf("invalid asset name %q", name)
	}
	if filepath.Ext(name) == "" {
		name += DefaultExt
	}
	return filepath.Join(d.root, filepath.FromSlash(name)), nil
}

func unique(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// Static is an in-memory loader, used for built-in decks and tests.
type Static map[string]string

// Load returns the named entry or ErrNotFound.
func (s Static) Load(name string) (Handle, error) {
	text, ok := s[name]
	if !ok {
		return Handle{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return Handle{Name: name, Data: []byte(text)}, nil
}
