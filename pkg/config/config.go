// Package config reads and writes the reel configuration file.
//
// Files live in the XDG base directories:
//   - ~/.config/reel/config.yaml   registered decks, favorites, UI settings
//   - ~/.local/state/reel/         progress database
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const appName = "reel"

// ErrUnreadable wraps read and parse failures. The Config returned with it
// holds defaults only and must not be saved over the file.
var ErrUnreadable = errors.New("config file unreadable")

// Favorite keys are the digits 1-9.
const (
	MinFavorite = 1
	MaxFavorite = 9
)

// Deck is a registered deck.
type Deck struct {
	Name   string `yaml:"name"`
	Path   string `yaml:"path"`             // deck YAML file
	Assets string `yaml:"assets,omitempty"` // illustration directory, next to the deck if empty
}

// AssetDir returns the illustration directory of the deck.
func (d Deck) AssetDir() string {
	if d.Assets != "" {
		return ExpandHome(d.Assets)
	}
	return filepath.Dir(ExpandHome(d.Path))
}

// UIConfig holds terminal presentation settings.
type UIConfig struct {
	CellWidth  float64       `yaml:"cell_width,omitempty"`  // pixels per terminal column
	CellHeight float64       `yaml:"cell_height,omitempty"` // pixels per terminal row
	FPS        int           `yaml:"fps,omitempty"`
	Autoplay   time.Duration `yaml:"autoplay,omitempty"` // 0 = off
	NoBrowser  bool          `yaml:"no_browser,omitempty"`
}

// ProgressConfig controls the record of steps seen.
type ProgressConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path,omitempty"` // sqlite file, StateDir()/progress.db if empty
}

// Config is the whole configuration file.
type Config struct {
	Decks     []Deck         `yaml:"decks,omitempty"`
	Favorites map[int]string `yaml:"favorites,omitempty"` // digit key -> deck name
	UI        UIConfig       `yaml:"ui,omitempty"`
	Progress  ProgressConfig `yaml:"progress,omitempty"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	return Config{
		Favorites: map[int]string{},
		UI:        UIConfig{CellWidth: 8, CellHeight: 16, FPS: 30},
		Progress:  ProgressConfig{Enabled: true},
	}
}

// ConfigDir returns the XDG config directory for reel.
func ConfigDir() string { return xdgDir("XDG_CONFIG_HOME", ".config") }

// StateDir returns the XDG state directory for reel.
func StateDir() string { return xdgDir("XDG_STATE_HOME", ".local", "state") }

func xdgDir(env string, fallback ...string) string {
	if dir := os.Getenv(env); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(append(append([]string{home}, fallback...), appName)...)
}

// ConfigPath returns the path of config.yaml, or "" without a home
// directory.
func ConfigPath() string {
	if dir := ConfigDir(); dir != "" {
		return filepath.Join(dir, "config.yaml")
	}
	return ""
}

// Load reads ConfigPath. A missing file yields DefaultConfig.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads the configuration at path. A missing file yields
// DefaultConfig. Out-of-range UI values fall back to their defaults and
// favorites naming unknown decks are dropped; both are reported in the
// returned error alongside a usable Config.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("%w: %s: %v", ErrUnreadable, path, err)
	}

	for i := range cfg.Decks {
		cfg.Decks[i].Path = ExpandHome(cfg.Decks[i].Path)
		cfg.Decks[i].Assets = ExpandHome(cfg.Decks[i].Assets)
	}
	cfg.Progress.Path = ExpandHome(cfg.Progress.Path)
	cfg.normalizeUI()

	if err := cfg.pruneFavorites(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) normalizeUI() {
	def := DefaultConfig().UI
	if c.UI.CellWidth <= 0 {
		c.UI.CellWidth = def.CellWidth
	}
	if c.UI.CellHeight <= 0 {
		c.UI.CellHeight = def.CellHeight
	}
	if c.UI.FPS <= 0 || c.UI.FPS > 120 {
		c.UI.FPS = def.FPS
	}
	c.UI.Autoplay = max(c.UI.Autoplay, 0)
}

// pruneFavorites drops favorites that cannot resolve and says why.
func (c *Config) pruneFavorites() error {
	if c.Favorites == nil {
		c.Favorites = map[int]string{}
	}
	var errs []error
	for n, name := range c.Favorites {
		switch {
		case n < MinFavorite || n > MaxFavorite:
			errs = append(errs, fmt.Errorf("favorite %d: key must be %d-%d", n, MinFavorite, MaxFavorite))
		case c.FindDeck(name) == nil:
			errs = append(errs, fmt.Errorf("favorite %d: no deck named %q", n, name))
		default:
			continue
		}
		delete(c.Favorites, n)
	}
	return errors.Join(errs...)
}

// Validate reports every problem that would make the file unusable after a
// save: unnamed or pathless decks, duplicate names and favorites that do not
// resolve.
func (c Config) Validate() error {
	var errs []error
	seen := map[string]bool{}
	for i, d := range c.Decks {
		key := strings.ToLower(d.Name)
		switch {
		case d.Name == "":
			errs = append(errs, fmt.Errorf("deck %d: missing name", i+1))
		case seen[key]:
			errs = append(errs, fmt.Errorf("deck %q: registered twice", d.Name))
		}
		if d.Path == "" {
			errs = append(errs, fmt.Errorf("deck %q: missing path", d.Name))
		}
		seen[key] = true
	}
	clone := c
	clone.Favorites = make(map[int]string, len(c.Favorites))
	for n, name := range c.Favorites {
		clone.Favorites[n] = name
	}
	if err := clone.pruneFavorites(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Save writes cfg to ConfigPath.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return errors.New("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo validates cfg and writes it to path. The file is replaced
// atomically, so a failed save leaves the previous one intact.
func SaveTo(cfg Config, path string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".config-*.yaml")
	if err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

// FindDeck returns the deck with the given name, ignoring case, or nil.
func (c Config) FindDeck(name string) *Deck {
	for i := range c.Decks {
		if strings.EqualFold(c.Decks[i].Name, name) {
			return &c.Decks[i]
		}
	}
	return nil
}

// FavoriteDeck returns the deck on digit key n, or nil.
func (c Config) FavoriteDeck(n int) *Deck {
	if name, ok := c.Favorites[n]; ok {
		return c.FindDeck(name)
	}
	return nil
}

// SetFavorite puts the named deck on digit key n. An empty name clears the
// key.
func (c *Config) SetFavorite(n int, name string) error {
	if n < MinFavorite || n > MaxFavorite {
		return fmt.Errorf("favorite key %d: must be %d-%d", n, MinFavorite, MaxFavorite)
	}
	if c.Favorites == nil {
		c.Favorites = map[int]string{}
	}
	if name == "" {
		delete(c.Favorites, n)
		return nil
	}
	d := c.FindDeck(name)
	if d == nil {
		return fmt.Errorf("favorite key %d: no deck named %q", n, name)
	}
	c.Favorites[n] = d.Name
	return nil
}

// AddDeck registers d, replacing a deck of the same name.
func (c *Config) AddDeck(d Deck) {
	if existing := c.FindDeck(d.Name); existing != nil {
		*existing = d
		return
	}
	c.Decks = append(c.Decks, d)
}

// ProgressPath returns the sqlite file for progress records.
func (c Config) ProgressPath() string {
	if c.Progress.Path != "" {
		return c.Progress.Path
	}
	if dir := StateDir(); dir != "" {
		return filepath.Join(dir, "progress.db")
	}
	return ""
}

// ExpandHome replaces a leading ~ or ~/ with the home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
