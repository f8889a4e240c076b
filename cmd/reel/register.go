package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/vanderheijden86/storyreel/pkg/config"
	"github.com/vanderheijden86/storyreel/pkg/story"
)

// listFlag collects a repeatable string flag.
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ",") }

func (l *listFlag) Set(v string) error {
	*l = append(*l, v)
	return nil
}

// assignment splits KEY=VALUE. The value may be empty.
func assignment(s string) (string, string, error) {
	k, v, ok := strings.Cut(s, "=")
	k = strings.TrimSpace(k)
	if !ok || k == "" {
		return "", "", fmt.Errorf("%q: want KEY=VALUE", s)
	}
	return k, strings.TrimSpace(v), nil
}

// register applies --add-deck NAME=PATH and --favorite N=NAME to cfg, in
// that order, and returns one line per change. Decks are loaded before they
// are registered so a typo never reaches the config file.
func register(cfg *config.Config, addDecks, favorites []string) ([]string, error) {
	var done []string
	for _, a := range addDecks {
		name, path, err := assignment(a)
		if err != nil {
			return nil, fmt.Errorf("--add-deck %w", err)
		}
		if path == "" {
			return nil, fmt.Errorf("--add-deck %s: missing path", name)
		}
		if !strings.HasPrefix(path, "~") {
			if path, err = filepath.Abs(path); err != nil {
				return nil, err
			}
		}
		d := config.Deck{Name: name, Path: path}
		deck, err := story.LoadDeck(config.ExpandHome(path))
		if err != nil {
			return nil, fmt.Errorf("--add-deck %s: %w", name, err)
		}
		cfg.AddDeck(d)
		done = append(done, fmt.Sprintf("Registered %s (%d cards): %s", name, len(deck.Cards), path))
	}

	for _, f := range favorites {
		key, name, err := assignment(f)
		if err != nil {
			return nil, fmt.Errorf("--favorite %w", err)
		}
		n, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("--favorite %s: key is not a number", key)
		}
		if err := cfg.SetFavorite(n, name); err != nil {
			return nil, err
		}
		if name == "" {
			done = append(done, fmt.Sprintf("Cleared favorite %d", n))
		} else {
			done = append(done, fmt.Sprintf("Favorite %d: %s", n, cfg.Favorites[n]))
		}
	}
	return done, nil
}
