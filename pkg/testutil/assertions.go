package testutil

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/storyreel/pkg/anim"
	"github.com/vanderheijden86/storyreel/pkg/story"
)

// BuildCards builds the cards of d on sched with generated art.
func BuildCards(t *testing.T, d story.Deck, sched anim.Scheduler) []*story.Card {
	t.Helper()
	cards, err := d.Build(nil, story.Env{Scheduler: sched, Assets: Art(d)})
	if err != nil {
		t.Fatalf("failed to build deck: %v", err)
	}
	return cards
}

// AssertStep verifies the current step of a card.
func AssertStep(t *testing.T, c *story.Card, expected int) {
	t.Helper()
	if c.Step() != expected {
		t.Errorf("card %q: expected step %d, got %d", c.Title, expected, c.Step())
	}
}

// AssertSteps verifies the current step of every card, in order.
func AssertSteps(t *testing.T, cards []*story.Card, expected ...int) {
	t.Helper()
	if len(cards) != len(expected) {
		t.Fatalf("expected %d cards, got %d", len(expected), len(cards))
	}
	for i, c := range cards {
		if c.Step() != expected[i] {
			t.Errorf("card %d (%q): expected step %d, got %d", i, c.Title, expected[i], c.Step())
		}
	}
}

// AssertIdle verifies that nothing is scheduled.
func AssertIdle(t *testing.T, sched *anim.ManualScheduler) {
	t.Helper()
	if n := sched.PendingFrames(); n != 0 {
		t.Errorf("expected no pending frames, got %d", n)
	}
	if n := sched.PendingTimers(); n != 0 {
		t.Errorf("expected no pending timers, got %d", n)
	}
}

// AssertJSONEqual fails unless want and got encode to the same JSON value.
// Key order and whitespace do not matter.
func AssertJSONEqual(t *testing.T, want, got any) {
	t.Helper()
	w, err := jsonValue(want)
	if err != nil {
		t.Fatalf("encode want: %v", err)
	}
	g, err := jsonValue(got)
	if err != nil {
		t.Fatalf("encode got: %v", err)
	}
	if !reflect.DeepEqual(w, g) {
		wb, _ := json.Marshal(w)
		gb, _ := json.Marshal(g)
		t.Errorf("JSON mismatch:\nwant: %s\ngot:  %s", wb, gb)
	}
}

// jsonValue decodes raw JSON bytes as-is and round-trips anything else.
func jsonValue(v any) (any, error) {
	raw, ok := v.([]byte)
	if !ok {
		var err error
		if raw, err = json.Marshal(v); err != nil {
			return nil, err
		}
	}
	var out any
	err := json.Unmarshal(raw, &out)
	return out, err
}

// WriteDeckFile writes d as YAML into dir and returns the path.
func WriteDeckFile(t *testing.T, dir string, d story.Deck) string {
	t.Helper()
	path := filepath.Join(dir, "deck.yaml")
	if err := os.WriteFile(path, []byte(ToYAML(d)), 0644); err != nil {
		t.Fatalf("failed to write deck file: %v", err)
	}
	return path
}

// WriteArt writes every entry of the deck's generated art into dir as
// text illustrations.
func WriteArt(t *testing.T, dir string, d story.Deck) {
	t.Helper()
	for name, text := range Art(d) {
		if err := os.WriteFile(filepath.Join(dir, name+".txt"), []byte(text), 0644); err != nil {
			t.Fatalf("failed to write art %s: %v", name, err)
		}
	}
}
