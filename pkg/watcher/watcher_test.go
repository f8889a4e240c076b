package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// fixture is a deck file with an illustration directory next to it.
type fixture struct {
	dir  string
	deck string
	art  string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	f := fixture{dir: dir, deck: filepath.Join(dir, "deck.yaml"), art: filepath.Join(dir, "art")}
	if err := os.Mkdir(f.art, 0o755); err != nil {
		t.Fatal(err)
	}
	f.write(t, f.deck, "title: Tour\n")
	f.write(t, filepath.Join(f.art, "rocket.txt"), "  /\\\n /  \\\n")
	return f
}

func (f fixture) write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// start runs a fast watcher over f in the given mode.
func (f fixture) start(t *testing.T, poll bool, opts ...Option) *Watcher {
	t.Helper()
	opts = append([]Option{
		WithAssetDir(f.art),
		WithDebounceDuration(20 * time.Millisecond),
		WithPollInterval(30 * time.Millisecond),
		WithForcePoll(poll),
	}, opts...)
	w, err := NewWatcher(f.deck, opts...)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(t.Context()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(w.Stop)
	// let polling take its first look before the test edits anything
	time.Sleep(50 * time.Millisecond)
	return w
}

func wait(t *testing.T, w *Watcher) Change {
	t.Helper()
	select {
	case c := <-w.Changes():
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("no change delivered")
		return 0
	}
}

func quiet(t *testing.T, w *Watcher, d time.Duration) {
	t.Helper()
	select {
	case c := <-w.Changes():
		t.Errorf("unexpected change %s", c)
	case <-time.After(d):
	}
}

var modes = []struct {
	name string
	poll bool
}{
	{"fsnotify", false},
	{"polling", true},
}

func TestWatcherClassifiesEdits(t *testing.T) {
	for _, mode := range modes {
		t.Run(mode.name, func(t *testing.T) {
			f := newFixture(t)
			w := f.start(t, mode.poll)

			f.write(t, f.deck, "title: Tour\ncards: []\n")
			if c := wait(t, w); c != DeckChanged {
				t.Errorf("deck edit = %s, want deck", c)
			}

			f.write(t, filepath.Join(f.art, "rocket.txt"), "^\n")
			if c := wait(t, w); c != AssetsChanged {
				t.Errorf("art edit = %s, want assets", c)
			}

			if err := os.Remove(filepath.Join(f.art, "rocket.txt")); err != nil {
				t.Fatal(err)
			}
			if c := wait(t, w); c != AssetsChanged {
				t.Errorf("art removal = %s, want assets", c)
			}
		})
	}
}

func TestWatcherIgnoresUnrelatedFiles(t *testing.T) {
	for _, mode := range modes {
		t.Run(mode.name, func(t *testing.T) {
			f := newFixture(t)
			w := f.start(t, mode.poll)

			f.write(t, filepath.Join(f.dir, "notes.md"), "draft")
			if err := os.Mkdir(filepath.Join(f.art, "nested"), 0o755); err != nil {
				t.Fatal(err)
			}
			quiet(t, w, 200*time.Millisecond)
		})
	}
}

func TestWatcherMergesBurst(t *testing.T) {
	f := newFixture(t)
	var (
		mu   sync.Mutex
		seen []Change
	)
	w := f.start(t, false, WithDebounceDuration(80*time.Millisecond), WithOnChange(func(c Change) {
		mu.Lock()
		seen = append(seen, c)
		mu.Unlock()
	}))

	f.write(t, f.deck, "title: A\n")
	f.write(t, filepath.Join(f.art, "moon.txt"), "o\n")
	f.write(t, f.deck, "title: B\n")

	if c := wait(t, w); c != DeckChanged|AssetsChanged {
		t.Errorf("burst = %s, want deck+assets", c)
	}
	quiet(t, w, 150*time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 1 {
		t.Errorf("onChange calls = %d, want 1", len(seen))
	}
}

func TestUnreadChangesAccumulate(t *testing.T) {
	f := newFixture(t)
	w := f.start(t, true)

	f.write(t, f.deck, "title: A\n")
	time.Sleep(200 * time.Millisecond)
	f.write(t, filepath.Join(f.art, "moon.txt"), "o\n")
	time.Sleep(200 * time.Millisecond)

	if c := wait(t, w); c != DeckChanged|AssetsChanged {
		t.Errorf("Changes() = %s, want deck+assets", c)
	}
}

func TestWatcherReportsRemovedDeck(t *testing.T) {
	for _, mode := range modes {
		t.Run(mode.name, func(t *testing.T) {
			f := newFixture(t)
			errs := make(chan error, 8)
			w := f.start(t, mode.poll, WithOnError(func(err error) {
				select {
				case errs <- err:
				default:
				}
			}))

			if err := os.Remove(f.deck); err != nil {
				t.Fatal(err)
			}
			select {
			case err := <-errs:
				if err != ErrFileRemoved {
					t.Errorf("error = %v, want ErrFileRemoved", err)
				}
			case <-time.After(2 * time.Second):
				t.Fatal("removal not reported")
			}
			if c := wait(t, w); !c.Deck() {
				t.Errorf("removal = %s, want deck", c)
			}
		})
	}
}

func TestWatcherLifecycle(t *testing.T) {
	f := newFixture(t)
	w, err := NewWatcher(f.deck, WithForcePoll(true))
	if err != nil {
		t.Fatal(err)
	}
	if w.Running() {
		t.Error("Running() before Start")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := w.Start(ctx); err != ErrAlreadyStarted {
		t.Errorf("second Start() = %v, want ErrAlreadyStarted", err)
	}
	if !w.Polling() {
		t.Error("forced polling not used")
	}
	w.Stop()
	w.Stop()
	if w.Running() {
		t.Error("Running() after Stop")
	}
	if err := w.Start(ctx); err != nil {
		t.Errorf("restart: %v", err)
	}
	w.Stop()
}

func TestWatcherPollsWhenForcedByEnv(t *testing.T) {
	t.Setenv("REEL_FORCE_POLL", "yes")
	f := newFixture(t)
	w, err := NewWatcher(f.deck)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(t.Context()); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()
	if !w.Polling() {
		t.Error("REEL_FORCE_POLL=yes did not force polling")
	}
}

func TestWatcherPaths(t *testing.T) {
	t.Chdir(t.TempDir())
	w, err := NewWatcher("deck.yaml", WithAssetDir("art"), WithPollInterval(-1))
	if err != nil {
		t.Fatal(err)
	}
	if !filepath.IsAbs(w.Path()) || filepath.Base(w.Path()) != "deck.yaml" {
		t.Errorf("Path() = %q", w.Path())
	}
	if !filepath.IsAbs(w.AssetDir()) || filepath.Base(w.AssetDir()) != "art" {
		t.Errorf("AssetDir() = %q", w.AssetDir())
	}
	if w.pollInterval != DefaultPollInterval {
		t.Errorf("pollInterval = %v, want the default for a negative option", w.pollInterval)
	}
}

func TestSnapshotDiff(t *testing.T) {
	dir := t.TempDir()
	deck := filepath.Join(dir, "deck.yaml")
	// the deck shares its directory with the art and is not counted as art
	w, err := NewWatcher(deck, WithAssetDir(dir))
	if err != nil {
		t.Fatal(err)
	}

	missing, err := w.snapshot()
	if !os.IsNotExist(err) || missing.deck.exists {
		t.Fatalf("snapshot of a missing deck = %+v, %v", missing, err)
	}

	if err := os.WriteFile(deck, []byte("cards: []"), 0o644); err != nil {
		t.Fatal(err)
	}
	withDeck, err := w.snapshot()
	if err != nil {
		t.Fatal(err)
	}
	if withDeck.deck.bytes != 9 || withDeck.assets.count != 0 {
		t.Errorf("snapshot = %+v", withDeck)
	}
	if c := missing.diff(withDeck); c != DeckChanged {
		t.Errorf("diff = %s, want deck", c)
	}

	if err := os.WriteFile(filepath.Join(dir, "sun.txt"), []byte("*"), 0o644); err != nil {
		t.Fatal(err)
	}
	withArt, _ := w.snapshot()
	if c := withDeck.diff(withArt); c != AssetsChanged {
		t.Errorf("diff = %s, want assets", c)
	}
	again, _ := w.snapshot()
	if c := withArt.diff(again); c != 0 {
		t.Errorf("unchanged files diff = %s", c)
	}
}

func TestChangeString(t *testing.T) {
	tests := map[Change]string{
		0:                           "none",
		DeckChanged:                 "deck",
		AssetsChanged:               "assets",
		DeckChanged | AssetsChanged: "deck+assets",
	}
	for c, want := range tests {
		if got := c.String(); got != want {
			t.Errorf("Change(%d).String() = %q, want %q", c, got, want)
		}
	}
}

func TestEnvBool(t *testing.T) {
	tests := map[string]bool{
		"":      false,
		"1":     true,
		"true":  true,
		" T ":   true,
		"0":     false,
		"nope":  false,
		"on":    true,
		"false": false,
	}
	for v, want := range tests {
		t.Setenv("REEL_TEST_FLAG", v)
		if got := envBool("REEL_TEST_FLAG"); got != want {
			t.Errorf("envBool(%q) = %v, want %v", v, got, want)
		}
	}
}
