// Package watcher reports edits to a deck file and its illustration
// directory.
package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vanderheijden86/storyreel/pkg/debug"
)

// DefaultPollInterval is how often the polling fallback stats the files.
const DefaultPollInterval = 2 * time.Second

var (
	ErrFileRemoved    = errors.New("deck file was removed")
	ErrPermission     = errors.New("permission denied")
	ErrAlreadyStarted = errors.New("watcher already started")
)

// Change says what was edited during one debounced burst.
type Change uint8

const (
	DeckChanged Change = 1 << iota
	AssetsChanged
)

// Deck reports whether the deck file itself changed.
func (c Change) Deck() bool { return c&DeckChanged != 0 }

// Assets reports whether an illustration changed.
func (c Change) Assets() bool { return c&AssetsChanged != 0 }

func (c Change) String() string {
	var parts []string
	if c.Deck() {
		parts = append(parts, "deck")
	}
	if c.Assets() {
		parts = append(parts, "assets")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "+")
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounceDuration sets the quiet period that ends a burst of writes.
func WithDebounceDuration(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithPollInterval sets the polling interval.
func WithPollInterval(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.pollInterval = d
		}
	}
}

// WithOnChange sets a callback run for every delivered change, before it is
// queued on Changes.
func WithOnChange(fn func(Change)) Option {
	return func(w *Watcher) { w.onChange = fn }
}

// WithOnError sets the callback for watch errors.
func WithOnError(fn func(error)) Option {
	return func(w *Watcher) { w.onError = fn }
}

// WithForcePoll skips fsnotify. REEL_FORCE_POLL does the same.
func WithForcePoll(force bool) Option {
	return func(w *Watcher) { w.forcePoll = force }
}

// WithAssetDir also watches the files directly inside dir.
func WithAssetDir(dir string) Option {
	return func(w *Watcher) {
		if dir == "" {
			return
		}
		if abs, err := filepath.Abs(dir); err == nil {
			w.assetDir = abs
		}
	}
}

// Watcher follows one deck file and, optionally, its illustration
// directory. It prefers fsnotify and falls back to polling.
type Watcher struct {
	path         string
	assetDir     string
	debounce     time.Duration
	pollInterval time.Duration
	forcePoll    bool
	onChange     func(Change)
	onError      func(error)

	debouncer *Debouncer
	changes   chan Change

	mu       sync.Mutex
	pending  Change
	polling  bool
	last     snapshot
	cancel   context.CancelFunc
	done     chan struct{}
	fsnotify *fsnotify.Watcher
}

// NewWatcher creates a watcher for the deck at path. Nothing is watched
// until Start.
func NewWatcher(path string, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		path:         abs,
		pollInterval: DefaultPollInterval,
		onChange:     func(Change) {},
		onError:      func(error) {},
		changes:      make(chan Change, 1),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.debouncer = NewDebouncer(w.debounce)
	return w, nil
}

// Start begins watching until ctx ends or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done != nil {
		return ErrAlreadyStarted
	}

	snap, err := w.snapshot()
	if os.IsPermission(err) {
		return ErrPermission
	}
	w.last = snap

	w.polling = w.forcePoll || envBool("REEL_FORCE_POLL")
	if !w.polling {
		fsw, err := w.newFsnotify()
		if err != nil {
			debug.Log("watcher: fsnotify unavailable, polling: %v", err)
			w.polling = true
		} else {
			w.fsnotify = fsw
		}
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	if w.polling {
		go w.poll(ctx, w.done)
	} else {
		go w.listen(ctx, w.fsnotify, w.done)
	}
	return nil
}

// Stop ends watching and waits for the watch goroutine. Pending bursts are
// dropped. Changes stays open.
func (w *Watcher) Stop() {
	w.mu.Lock()
	cancel, done, fsw := w.cancel, w.done, w.fsnotify
	w.cancel, w.done, w.fsnotify = nil, nil, nil
	w.pending = 0
	w.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	if fsw != nil {
		fsw.Close()
	}
	<-done
	w.debouncer.Cancel()
}

// Changes delivers one value per debounced burst. An unread value absorbs
// later bursts, so a slow reader sees the union of what changed.
func (w *Watcher) Changes() <-chan Change { return w.changes }

// Polling reports whether the watcher fell back to polling.
func (w *Watcher) Polling() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.polling
}

// Running reports whether Start succeeded and Stop has not been called.
func (w *Watcher) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.done != nil
}

// Path returns the absolute deck path.
func (w *Watcher) Path() string { return w.path }

// AssetDir returns the absolute illustration directory, if any.
func (w *Watcher) AssetDir() string { return w.assetDir }

func (w *Watcher) newFsnotify() (*fsnotify.Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// directories, not files: editors save by renaming over the original
	dirs := []string{filepath.Dir(w.path)}
	if w.assetDir != "" && w.assetDir != dirs[0] {
		dirs = append(dirs, w.assetDir)
	}
	for _, dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, err
		}
	}
	return fsw, nil
}

// classify maps an event path to what it edits.
func (w *Watcher) classify(name string) Change {
	abs, err := filepath.Abs(name)
	switch {
	case err != nil:
		return 0
	case abs == w.path:
		return DeckChanged
	case w.assetDir != "" && filepath.Dir(abs) == w.assetDir:
		// subdirectories hold no illustrations
		if info, err := os.Stat(abs); err == nil && info.IsDir() {
			return 0
		}
		return AssetsChanged
	}
	return 0
}

func (w *Watcher) listen(ctx context.Context, fsw *fsnotify.Watcher, done chan struct{}) {
	defer close(done)
	const edits = fsnotify.Write | fsnotify.Create | fsnotify.Rename | fsnotify.Remove
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			c := w.classify(ev.Name)
			if c == 0 || ev.Op&edits == 0 {
				continue
			}
			if c.Deck() && ev.Op.Has(fsnotify.Remove) {
				w.onError(ErrFileRemoved)
			}
			w.record(c)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.onError(err)
		}
	}
}

func (w *Watcher) poll(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		snap, err := w.snapshot()
		w.mu.Lock()
		prev := w.last
		w.last = snap
		w.mu.Unlock()

		switch {
		case os.IsNotExist(err):
			if prev.deck.exists {
				w.onError(ErrFileRemoved)
			}
		case os.IsPermission(err):
			w.onError(ErrPermission)
		case err != nil:
			w.onError(err)
		}
		if c := prev.diff(snap); c != 0 {
			w.record(c)
		}
	}
}

// record folds c into the current burst and restarts its quiet period.
func (w *Watcher) record(c Change) {
	w.mu.Lock()
	w.pending |= c
	w.mu.Unlock()
	w.debouncer.Trigger(w.flush)
}

func (w *Watcher) flush() {
	w.mu.Lock()
	c := w.pending
	w.pending = 0
	running := w.done != nil
	w.mu.Unlock()
	if c == 0 || !running {
		return
	}

	debug.Log("watcher: %s changed (%s)", w.path, c)
	w.onChange(c)
	for {
		select {
		case w.changes <- c:
			return
		case old := <-w.changes:
			c |= old
		}
	}
}

// stamp identifies a set of file states cheaply.
type stamp struct {
	exists bool
	count  int
	bytes  int64
	latest int64 // UnixNano of the newest mtime
}

func (s *stamp) add(info os.FileInfo) {
	s.exists = true
	s.count++
	s.bytes += info.Size()
	s.latest = max(s.latest, info.ModTime().UnixNano())
}

// snapshot is what polling compares between ticks. Counting the assets
// catches deletions that a newest-mtime check alone would miss.
type snapshot struct {
	deck   stamp
	assets stamp
}

func (s snapshot) diff(next snapshot) Change {
	var c Change
	if s.deck != next.deck {
		c |= DeckChanged
	}
	if s.assets != next.assets {
		c |= AssetsChanged
	}
	return c
}

// snapshot stats the deck and its assets. The error is the deck's; an
// unreadable asset directory counts as empty.
func (w *Watcher) snapshot() (snapshot, error) {
	var s snapshot
	if w.assetDir != "" {
		entries, _ := os.ReadDir(w.assetDir)
		for _, e := range entries {
			if e.IsDir() || filepath.Join(w.assetDir, e.Name()) == w.path {
				continue
			}
			if info, err := e.Info(); err == nil {
				s.assets.add(info)
			}
		}
	}

	info, err := os.Stat(w.path)
	if err != nil {
		return s, err
	}
	s.deck.add(info)
	return s, nil
}

func envBool(name string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(name)))
	switch v {
	case "yes", "y", "on":
		return true
	}
	b, err := strconv.ParseBool(v)
	return err == nil && b
}
