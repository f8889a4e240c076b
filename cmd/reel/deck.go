package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/vanderheijden86/storyreel/internal/progress"
	"github.com/vanderheijden86/storyreel/pkg/anim"
	"github.com/vanderheijden86/storyreel/pkg/carousel"
	"github.com/vanderheijden86/storyreel/pkg/config"
	"github.com/vanderheijden86/storyreel/pkg/export"
	"github.com/vanderheijden86/storyreel/pkg/story"
	"github.com/vanderheijden86/storyreel/pkg/ui"
	"github.com/vanderheijden86/storyreel/pkg/version"
)

// defaultDeckFile is looked up in the working directory when nothing else
// names a deck.
const defaultDeckFile = "deck.yaml"

// errNoDeck is returned when no deck could be found.
var errNoDeck = errors.New("no deck: pass --deck or register one in the config file")

// picker chooses one of several registered decks.
type picker func(decks []config.Deck) (config.Deck, error)

// resolveDeck finds the deck to play. arg may be a file path, the name of a
// registered deck or a favorite number. Without arg the only registered deck
// is used, pick chooses among several, and deck.yaml in the working
// directory is the last resort.
func resolveDeck(cfg config.Config, arg string, pick picker) (config.Deck, error) {
	if arg != "" {
		if n, err := strconv.Atoi(arg); err == nil && n >= 1 && n <= 9 {
			if d := cfg.FavoriteDeck(n); d != nil {
				return *d, nil
			}
			return config.Deck{}, fmt.Errorf("no favorite deck %d", n)
		}
		if d := cfg.FindDeck(arg); d != nil {
			return *d, nil
		}
		if _, err := os.Stat(arg); err != nil {
			return config.Deck{}, fmt.Errorf("deck %q is neither a file nor a registered deck: %w", arg, err)
		}
		return config.Deck{Name: deckName(arg), Path: arg}, nil
	}

	switch len(cfg.Decks) {
	case 0:
	case 1:
		return cfg.Decks[0], nil
	default:
		if pick != nil {
			return pick(cfg.Decks)
		}
		if d := cfg.FavoriteDeck(1); d != nil {
			return *d, nil
		}
		return cfg.Decks[0], nil
	}

	if _, err := os.Stat(defaultDeckFile); err == nil {
		return config.Deck{Name: deckName(defaultDeckFile), Path: defaultDeckFile}, nil
	}
	return config.Deck{}, errNoDeck
}

func deckName(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}

// pickerFor returns an interactive deck picker when stdin is a terminal.
func pickerFor(cfg config.Config) picker {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil
	}
	return func(decks []config.Deck) (config.Deck, error) {
		name := decks[0].Name
		if fav := cfg.FavoriteDeck(1); fav != nil {
			name = fav.Name
		}
		opts := make([]huh.Option[string], 0, len(decks))
		for _, d := range decks {
			opts = append(opts, huh.NewOption(fmt.Sprintf("%s  (%s)", d.Name, d.Path), d.Name))
		}
		err := huh.NewSelect[string]().
			Title("Which deck?").
			Options(opts...).
			Value(&name).
			Run()
		if err != nil {
			return config.Deck{}, fmt.Errorf("choosing a deck: %w", err)
		}
		return *cfg.FindDeck(name), nil
	}
}

// terminalSize returns the size of stdout, or 80x24 when it is not a
// terminal.
func terminalSize() (int, int) {
	cols, rows, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || cols <= 0 || rows <= 0 {
		return 80, 24
	}
	return cols, rows
}

// stateRequest describes a headless run for --dump-state.
type stateRequest struct {
	Deck    story.Deck
	DeckKey string
	Assets  story.AssetLoader
	Store   *progress.Store
	Cells   ui.Cells
	Cols    int
	Rows    int
}

// writeState lays the deck out for a terminal of the requested size, plays
// the first card to rest and writes the resulting state.
func writeState(w io.Writer, req stateRequest) error {
	sched := anim.NewManualScheduler()
	cards, err := req.Deck.Build(nil, story.Env{Scheduler: sched, Assets: req.Assets})
	if err != nil {
		return err
	}
	ctl := carousel.New(cards, sched)
	ctl.SetMeasurer(ui.Measurer(req.Cells))
	// the player keeps a header row and two footer rows
	rows := max(1, req.Rows-3)
	ctl.Layout(float64(req.Cols)*req.Cells.Width, float64(rows)*req.Cells.Height)
	ctl.ScrollToCard(0, true)
	sched.Settle(10 * time.Second)

	dump := export.StateDump{
		Version:     version.Version,
		Deck:        req.Deck.Title,
		Description: req.Deck.Description,
		Carousel:    ctl.State(),
	}
	if req.Store != nil {
		recorded, err := req.Store.Deck(context.Background(), req.DeckKey)
		if err != nil {
			return err
		}
		byTitle := make(map[string]progress.Card, len(recorded))
		for _, c := range recorded {
			byTitle[c.Title] = c
		}
		for _, def := range req.Deck.Cards {
			c := byTitle[def.Title]
			dump.Progress = append(dump.Progress, export.CardProgress{
				Title:    def.Title,
				LastStep: c.LastStep,
				Seen:     c.Seen,
				Steps:    len(def.Steps),
			})
		}
	}
	return export.DumpState(w, dump)
}
