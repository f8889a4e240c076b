// Package testutil provides deck generators and assertions for tests.
// All generators produce deterministic output for reproducible tests.
package testutil

import (
	"fmt"
	"math/rand"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/storyreel/pkg/assets"
	"github.com/vanderheijden86/storyreel/pkg/story"
)

// GeneratorConfig controls deck generation.
type GeneratorConfig struct {
	Seed        int64        // Random seed for determinism (0 = 42)
	TitlePrefix string       // Prefix for card titles (default: "Card")
	MinSteps    int          // Fewest steps per card (default: 1)
	MaxSteps    int          // Most steps per card (default: MinSteps)
	Kinds       []story.Kind // Kind rotation (nil = all caption)
	CallToEnd   bool         // Give the last step of every card a URL
}

// DefaultConfig returns a config suitable for most tests.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:        42,
		TitlePrefix: "Card",
		MinSteps:    3,
		MaxSteps:    3,
		Kinds:       []story.Kind{story.KindCaption},
	}
}

// Generator creates decks.
type Generator struct {
	cfg GeneratorConfig
	rng *rand.Rand
}

// New creates a Generator with the given config.
func New(cfg GeneratorConfig) *Generator {
	if cfg.Seed == 0 {
		cfg.Seed = 42
	}
	if cfg.TitlePrefix == "" {
		cfg.TitlePrefix = "Card"
	}
	if cfg.MinSteps < 1 {
		cfg.MinSteps = 1
	}
	if cfg.MaxSteps < cfg.MinSteps {
		cfg.MaxSteps = cfg.MinSteps
	}
	if len(cfg.Kinds) == 0 {
		cfg.Kinds = []story.Kind{story.KindCaption}
	}
	return &Generator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}
}

// NewDefault creates a Generator with default config.
func NewDefault() *Generator {
	return New(DefaultConfig())
}

// Deck generates a deck of n cards. Cards with an illustrated kind get one
// illustration per step, named "<card>-<step>".
func (g *Generator) Deck(n int) story.Deck {
	d := story.Deck{
		Title:       fmt.Sprintf("Generated deck (%d cards)", n),
		Description: "Deterministic fixture deck.",
	}
	for i := 0; i < n; i++ {
		kind := g.cfg.Kinds[i%len(g.cfg.Kinds)]
		steps := g.cfg.MinSteps
		if span := g.cfg.MaxSteps - g.cfg.MinSteps; span > 0 {
			steps += g.rng.Intn(span + 1)
		}
		def := story.CardDef{
			Title: fmt.Sprintf("%s %d", g.cfg.TitlePrefix, i+1),
			Kind:  kind,
		}
		for j := 1; j <= steps; j++ {
			st := story.StepDef{Caption: g.caption(i+1, j)}
			if kind != story.KindCaption {
				st.Illustration = IllustrationName(i+1, j)
			}
			if g.cfg.CallToEnd && j == steps {
				st.URL = fmt.Sprintf("https://example.com/card/%d", i+1)
			}
			def.Steps = append(def.Steps, st)
		}
		d.Cards = append(d.Cards, def)
	}
	return d
}

var words = []string{"quick", "story", "about", "cards", "that", "turn", "and", "slide", "into", "view"}

func (g *Generator) caption(card, step int) string {
	n := 2 + g.rng.Intn(5)
	parts := make([]string, 0, n+1)
	parts = append(parts, fmt.Sprintf("Step %d.%d:", card, step))
	for i := 0; i < n; i++ {
		parts = append(parts, words[g.rng.Intn(len(words))])
	}
	return strings.Join(parts, " ")
}

// IllustrationName is the name generated decks use for a card's step art.
func IllustrationName(card, step int) string {
	return fmt.Sprintf("card%d-%d", card, step)
}

// Art returns an in-memory loader with a small drawing for every
// illustration the deck uses.
func Art(d story.Deck) assets.Static {
	out := make(assets.Static)
	for _, name := range d.Illustrations() {
		out[name] = fmt.Sprintf("+------+\n| %-4s |\n+------+", strings.ToUpper(name[len(name)-1:]))
	}
	return out
}

// ToYAML renders a deck as a deck file.
func ToYAML(d story.Deck) string {
	data, err := yaml.Marshal(d)
	if err != nil {
		panic(fmt.Sprintf("testutil: marshal deck: %v", err))
	}
	return string(data)
}

// ============================================================================
// Convenience Functions
// ============================================================================

// QuickDeck creates a caption-only deck with fixed step counts.
func QuickDeck(cards, steps int) story.Deck {
	return New(GeneratorConfig{MinSteps: steps, MaxSteps: steps}).Deck(cards)
}

// MixedDeck creates a deck cycling through every built-in kind.
func MixedDeck(cards int) story.Deck {
	return New(GeneratorConfig{
		MinSteps: 2,
		MaxSteps: 4,
		Kinds:    story.DefaultRegistry().Kinds(),
	}).Deck(cards)
}
