package testutil

import (
	"strings"
	"testing"

	"github.com/vanderheijden86/storyreel/pkg/anim"
	"github.com/vanderheijden86/storyreel/pkg/story"
)

func TestQuickDeck(t *testing.T) {
	tests := []struct {
		name  string
		cards int
		steps int
	}{
		{"single", 1, 1},
		{"small", 3, 2},
		{"wide", 8, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := QuickDeck(tt.cards, tt.steps)
			if len(d.Cards) != tt.cards {
				t.Fatalf("QuickDeck(%d, %d) cards = %d", tt.cards, tt.steps, len(d.Cards))
			}
			for _, c := range d.Cards {
				if len(c.Steps) != tt.steps {
					t.Errorf("card %q steps = %d, want %d", c.Title, len(c.Steps), tt.steps)
				}
			}
			if err := d.Validate(); err != nil {
				t.Errorf("generated deck invalid: %v", err)
			}
		})
	}
}

func TestGeneratorIsDeterministic(t *testing.T) {
	a := ToYAML(MixedDeck(6))
	b := ToYAML(MixedDeck(6))
	if a != b {
		t.Error("same seed produced different decks")
	}
}

func TestMixedDeckRoundTrips(t *testing.T) {
	d := MixedDeck(6)
	parsed, err := story.ParseDeck([]byte(ToYAML(d)))
	if err != nil {
		t.Fatalf("ParseDeck(ToYAML(...)): %v", err)
	}
	if parsed.Title != d.Title || len(parsed.Cards) != len(d.Cards) {
		t.Fatalf("parsed deck %q with %d cards", parsed.Title, len(parsed.Cards))
	}
	for i := range d.Cards {
		if parsed.Cards[i].Kind != d.Cards[i].Kind {
			t.Errorf("card %d kind = %q, want %q", i, parsed.Cards[i].Kind, d.Cards[i].Kind)
		}
		AssertJSONEqual(t, d.Cards[i].Steps, parsed.Cards[i].Steps)
	}

	art := Art(d)
	for _, name := range d.Illustrations() {
		if _, ok := art[name]; !ok {
			t.Errorf("no art for %s", name)
		}
	}
}

func TestCallToEnd(t *testing.T) {
	d := New(GeneratorConfig{MinSteps: 2, CallToEnd: true}).Deck(2)
	for _, c := range d.Cards {
		last := c.Steps[len(c.Steps)-1]
		if !strings.HasPrefix(last.URL, "https://") {
			t.Errorf("card %q: last step has no URL", c.Title)
		}
		if c.Steps[0].URL != "" {
			t.Errorf("card %q: first step should not be a call to action", c.Title)
		}
	}
}

func TestBuildCards(t *testing.T) {
	sched := anim.NewManualScheduler()
	cards := BuildCards(t, MixedDeck(6), sched)
	if len(cards) != 6 {
		t.Fatalf("cards = %d", len(cards))
	}
	for _, c := range cards {
		c.Advance()
	}
	AssertSteps(t, cards, 1, 1, 1, 1, 1, 1)
	AssertIdle(t, sched)
}
