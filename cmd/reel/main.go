package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/pprof"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/storyreel/internal/progress"
	"github.com/vanderheijden86/storyreel/pkg/assets"
	"github.com/vanderheijden86/storyreel/pkg/config"
	"github.com/vanderheijden86/storyreel/pkg/debug"
	"github.com/vanderheijden86/storyreel/pkg/export"
	"github.com/vanderheijden86/storyreel/pkg/metrics"
	"github.com/vanderheijden86/storyreel/pkg/navigate"
	"github.com/vanderheijden86/storyreel/pkg/story"
	"github.com/vanderheijden86/storyreel/pkg/ui"
	"github.com/vanderheijden86/storyreel/pkg/version"
	"github.com/vanderheijden86/storyreel/pkg/watcher"
)

func main() {
	cpuProfile := flag.String("cpu-profile", "", "Write CPU profile to file")
	help := flag.Bool("help", false, "Show help")
	versionFlag := flag.Bool("version", false, "Show version")
	deckFlag := flag.String("deck", "", "Deck file, registered deck name, or favorite number (1-9)")
	assetsFlag := flag.String("assets", "", "Illustration directory (default: next to the deck)")
	exportPath := flag.String("export", "", "Write a storyboard of every card and step to a .svg or .png file and exit")
	dumpState := flag.Bool("dump-state", false, "Print the settled carousel state as JSON and exit")
	metricsPath := flag.String("metrics", "", "Write timing metrics as JSON to file on exit ('-' for stdout)")
	autoplay := flag.Duration("autoplay", 0, "Advance the focused card this often (e.g. 4s)")
	noBrowser := flag.Bool("no-browser", false, "Copy call-to-action URLs instead of opening them")
	fps := flag.Int("fps", 0, "Animation frame rate")
	noWatch := flag.Bool("no-watch", false, "Do not reload the deck when it changes")
	var addDecks, favorites listFlag
	flag.Var(&addDecks, "add-deck", "Register a deck in the config file as NAME=PATH and exit (repeatable)")
	flag.Var(&favorites, "favorite", "Put a registered deck on number key N as N=NAME, or clear it with N= (repeatable)")
	flag.Parse()

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not create CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Could not start CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	if *help {
		fmt.Println("Usage: reel [options]")
		fmt.Println("\nPlay a deck of animated story cards in the terminal.")
		flag.PrintDefaults()
		os.Exit(0)
	}

	if *versionFlag {
		fmt.Printf("reel %s\n", version.Version)
		os.Exit(0)
	}

	cfg, cfgErr := config.Load()
	if cfgErr != nil {
		// Non-fatal: Load still returns a usable config
		fmt.Fprintf(os.Stderr, "Warning: %v\n", cfgErr)
	}

	if len(addDecks) > 0 || len(favorites) > 0 {
		if errors.Is(cfgErr, config.ErrUnreadable) {
			fmt.Fprintln(os.Stderr, "Error: fix the config file before registering decks")
			os.Exit(1)
		}
		changes, err := register(&cfg, addDecks, favorites)
		if err == nil {
			err = config.Save(cfg)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		for _, c := range changes {
			fmt.Println(c)
		}
		fmt.Printf("Saved %s\n", config.ConfigPath())
		os.Exit(0)
	}
	applyFlags(&cfg, *autoplay, *fps, *noBrowser)

	src, err := resolveDeck(cfg, *deckFlag, pickerFor(cfg))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *assetsFlag != "" {
		src.Assets = *assetsFlag
	}

	deck, err := story.LoadDeck(src.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading deck %s: %v\n", src.Path, err)
		os.Exit(1)
	}
	loader := assets.NewDir(src.AssetDir())

	var store *progress.Store
	if cfg.Progress.Enabled {
		if path := cfg.ProgressPath(); path != "" {
			store, err = progress.Open(path)
			if err != nil {
				// Non-fatal: play without recording progress
				fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
				store = nil
			} else {
				defer store.Close()
			}
		}
	}

	switch {
	case *exportPath != "":
		err = export.SaveStoryboard(export.StoryboardOptions{
			Path:   *exportPath,
			Deck:   deck,
			Assets: loader,
		})
		if err == nil {
			fmt.Printf("Wrote %s\n", *exportPath)
		}
	case *dumpState:
		cols, rows := terminalSize()
		err = writeState(os.Stdout, stateRequest{
			Deck:    deck,
			DeckKey: src.Path,
			Assets:  loader,
			Store:   store,
			Cells:   cells(cfg),
			Cols:    cols,
			Rows:    rows,
		})
	default:
		err = play(cfg, src, deck, loader, store, *noWatch)
	}

	if *metricsPath != "" {
		if mErr := writeMetrics(*metricsPath); mErr != nil {
			fmt.Fprintf(os.Stderr, "Error writing metrics: %v\n", mErr)
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// applyFlags lets command-line values override the config file.
func applyFlags(cfg *config.Config, autoplay time.Duration, fps int, noBrowser bool) {
	if autoplay > 0 {
		cfg.UI.Autoplay = autoplay
	}
	if fps > 0 {
		cfg.UI.FPS = fps
	}
	if noBrowser {
		cfg.UI.NoBrowser = true
	}
}

func cells(cfg config.Config) ui.Cells {
	return ui.Cells{Width: cfg.UI.CellWidth, Height: cfg.UI.CellHeight}
}

func play(cfg config.Config, src config.Deck, deck story.Deck, loader *assets.Dir, store *progress.Store, noWatch bool) error {
	browser := navigate.NewBrowser()
	browser.Disabled = cfg.UI.NoBrowser

	var w *watcher.Watcher
	if !noWatch {
		var err error
		w, err = watcher.NewWatcher(src.Path,
			watcher.WithAssetDir(src.AssetDir()),
			watcher.WithOnError(func(err error) { debug.Log("watcher: %v", err) }),
		)
		if err == nil {
			err = w.Start(context.Background())
		}
		if err != nil {
			// Non-fatal: play without live reload
			fmt.Fprintf(os.Stderr, "Warning: live reload disabled: %v\n", err)
			w = nil
		} else {
			defer w.Stop()
		}
	}

	m, err := ui.NewModel(ui.Options{
		Deck:      deck,
		DeckPath:  src.Path,
		Assets:    loader,
		Navigator: browser,
		Progress:  store,
		Watcher:   w,
		Cells:     cells(cfg),
		FPS:       cfg.UI.FPS,
		Autoplay:  cfg.UI.Autoplay,
	})
	if err != nil {
		return err
	}
	return runTUIProgram(m)
}

func runTUIProgram(m ui.Model) error {
	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithoutSignalHandler(),
	)

	runDone := make(chan struct{})
	defer close(runDone)

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-runDone:
			return
		case <-sigCh:
		}

		p.Quit()

		select {
		case <-runDone:
			return
		case <-sigCh:
		case <-time.After(5 * time.Second):
		}

		p.Kill()
	}()

	// Optional auto-quit for automated tests: set REEL_TUI_AUTOCLOSE_MS.
	if v := os.Getenv("REEL_TUI_AUTOCLOSE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			go func() {
				timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
				defer timer.Stop()

				select {
				case <-runDone:
					return
				case <-timer.C:
				}

				p.Quit()
			}()
		}
	}

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted) {
		return nil
	}
	return err
}

func writeMetrics(path string) error {
	if path == "-" {
		return metrics.WriteJSON(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := metrics.WriteJSON(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
