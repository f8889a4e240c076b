package story

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/storyreel/pkg/anim"
	"github.com/vanderheijden86/storyreel/pkg/metrics"
)

// StepDef is one step of a card definition.
type StepDef struct {
	Caption      string `yaml:"caption"`
	URL          string `yaml:"url,omitempty"`
	Illustration string `yaml:"illustration,omitempty"`
}

// CardDef declares a card in a deck file.
type CardDef struct {
	Title  string         `yaml:"title"`
	Kind   Kind           `yaml:"kind,omitempty"`
	Easing string         `yaml:"easing,omitempty"`
	Curve  [][]float64    `yaml:"curve,omitempty"`  // control points (t, v) of a custom easing
	Period time.Duration  `yaml:"period,omitempty"` // gear cards: duration of one rotation
	Steps  []StepDef      `yaml:"steps"`
	Extra  map[string]any `yaml:",inline"`
}

func (d CardDef) easing() (anim.Easing, error) {
	if len(d.Curve) > 0 {
		pts := make([]anim.Point, len(d.Curve))
		for i, p := range d.Curve {
			if len(p) != 2 {
				return nil, fmt.Errorf("curve point %d needs 2 values, got %d", i+1, len(p))
			}
			pts[i] = anim.Point{T: p[0], V: p[1]}
		}
		return anim.Curve(pts)
	}
	return anim.EasingByName(d.Easing)
}

// Deck is a parsed deck file.
type Deck struct {
	Title       string    `yaml:"title"`
	Description string    `yaml:"description,omitempty"`
	Cards       []CardDef `yaml:"cards"`
}

// ParseDeck decodes and validates a deck document.
func ParseDeck(data []byte) (Deck, error) {
	var d Deck
	if err := yaml.Unmarshal(data, &d); err != nil {
		return Deck{}, fmt.Errorf("parsing deck: %w", err)
	}
	if err := d.Validate(); err != nil {
		return Deck{}, err
	}
	return d, nil
}

// LoadDeck reads and validates a deck file.
func LoadDeck(path string) (Deck, error) {
	defer metrics.Timer(metrics.DeckLoad)()
	data, err := os.ReadFile(path)
	if err != nil {
		return Deck{}, fmt.Errorf("reading deck: %w", err)
	}
	return ParseDeck(data)
}

// Validate checks the structural rules of a deck: at least one card, every
// card titled and with at least one captioned step.
func (d Deck) Validate() error {
	if len(d.Cards) == 0 {
		return errors.New("deck has no cards")
	}
	var errs []error
	for i, c := range d.Cards {
		if strings.TrimSpace(c.Title) == "" {
			errs = append(errs, fmt.Errorf("card %d: missing title", i+1))
		}
		if len(c.Steps) == 0 {
			errs = append(errs, fmt.Errorf("card %q: %w", c.Title, ErrNoSteps))
		}
		for j, st := range c.Steps {
			if strings.TrimSpace(st.Caption) == "" {
				errs = append(errs, fmt.Errorf("card %q step %d: missing caption", c.Title, j+1))
			}
		}
		if len(c.Extra) > 0 {
			keys := make([]string, 0, len(c.Extra))
			for k := range c.Extra {
				keys = append(keys, k)
			}
			errs = append(errs, fmt.Errorf("card %q: unknown fields %v", c.Title, keys))
		}
	}
	return errors.Join(errs...)
}

// Illustrations lists every illustration name the deck refers to.
func (d Deck) Illustrations() []string {
	var out []string
	for _, c := range d.Cards {
		for _, st := range c.Steps {
			if st.Illustration != "" {
				out = append(out, st.Illustration)
			}
		}
	}
	return out
}

// Build creates the cards of the deck using the kinds of r.
func (d Deck) Build(r *Registry, env Env) ([]*Card, error) {
	if r == nil {
		r = DefaultRegistry()
	}
	cards := make([]*Card, 0, len(d.Cards))
	for _, def := range d.Cards {
		s, err := r.Build(def, env)
		if err != nil {
			return nil, fmt.Errorf("card %q: %w", def.Title, err)
		}
		kind := def.Kind
		if kind == "" {
			kind = KindCaption
		}
		c, err := NewCard(def.Title, kind, s, env)
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, nil
}
