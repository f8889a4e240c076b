// Package story implements the per-card step state machine.
//
// A Card walks a 1-indexed sequence of narrative steps. Each step has a
// caption; the first step without one is the terminal boundary. What a step
// looks like is decided by the card's Strategy, which fills a transition batch
// for the step being entered. Step 0 means the card has never been activated.
package story

import (
	"errors"
	"fmt"

	"github.com/vanderheijden86/storyreel/pkg/anim"
	"github.com/vanderheijden86/storyreel/pkg/assets"
	"github.com/vanderheijden86/storyreel/pkg/debug"
	"github.com/vanderheijden86/storyreel/pkg/metrics"
)

// maxSteps bounds terminal probing; a strategy answering every step is broken.
const maxSteps = 1000

var (
	// ErrNoSteps means a strategy has no caption for step 1.
	ErrNoSteps = errors.New("card has no steps")
	// ErrUnknownKind means a deck names a card kind that is not registered.
	ErrUnknownKind = errors.New("unknown card kind")
)

// Direction of the last step change.
type Direction int

const (
	Forward Direction = iota
	Backward
)

func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

// Caption is the text shown for a step. A non-empty URL turns the step into a
// call to action: advancing from it opens the URL instead of moving on.
type Caption struct {
	Text string
	URL  string
}

// IsAction reports whether the caption is a call to action.
func (c Caption) IsAction() bool { return c.URL != "" }

// Strategy is the per-card content: captions and the transition recipe for
// entering a step.
type Strategy interface {
	Caption(step int) (Caption, bool)
	PrepareTransition(step int, dir Direction, tr *anim.Transition)
}

// Visibility is implemented by strategies that run continuous effects and must
// stop them while the card is off screen.
type Visibility interface {
	SetVisible(visible bool)
}

// Navigator opens call-to-action URLs.
type Navigator interface {
	OpenURL(url string) error
}

// AssetLoader resolves illustration names.
type AssetLoader interface {
	Load(name string) (assets.Handle, error)
}

// Env bundles the external capabilities a card and its strategy consume.
type Env struct {
	Scheduler anim.Scheduler
	Navigator Navigator
	Assets    AssetLoader
}

// Card is one story card of the carousel.
type Card struct {
	Title string
	Kind  Kind

	strategy Strategy
	nav      Navigator

	step       int
	forwarding bool
	tr         *anim.Transition
	terminal   int
	visible    bool

	requestLayout func()
	onStep        []func(c *Card, step int)
}

// NewCard creates a card at step 0. It fails with ErrNoSteps when the
// strategy has no first step.
func NewCard(title string, kind Kind, s Strategy, env Env) (*Card, error) {
	if s == nil {
		return nil, fmt.Errorf("card %q: nil strategy", title)
	}
	if _, ok := s.Caption(1); !ok {
		return nil, fmt.Errorf("card %q: %w", title, ErrNoSteps)
	}
	return &Card{
		Title:    title,
		Kind:     kind,
		strategy: s,
		nav:      env.Navigator,
		tr:       anim.NewTransition(env.Scheduler),
	}, nil
}

// MustCard is NewCard for built-in content; a broken card definition is a
// programming error.
func MustCard(title string, kind Kind, s Strategy, env Env) *Card {
	c, err := NewCard(title, kind, s, env)
	if err != nil {
		panic(err)
	}
	return c
}

// Step returns the current step; 0 until the card is first activated.
func (c *Card) Step() int { return c.step }

// Forwarding reports whether the last step change moved forward.
func (c *Card) Forwarding() bool { return c.forwarding }

// Strategy returns the card's content strategy.
func (c *Card) Strategy() Strategy { return c.strategy }

// Transition returns the card's step transition.
func (c *Card) Transition() *anim.Transition { return c.tr }

// Animating reports whether a step transition is in flight.
func (c *Card) Animating() bool { return c.tr.Running() }

// Caption returns the caption of the current step.
func (c *Card) Caption() (Caption, bool) {
	if c.step == 0 {
		return Caption{}, false
	}
	return c.strategy.Caption(c.step)
}

// Terminal returns N+1 for a card with N steps: the first step without a
// caption.
func (c *Card) Terminal() int {
	if c.terminal > 0 {
		return c.terminal
	}
	k := 1
	for ; k <= maxSteps; k++ {
		if _, ok := c.strategy.Caption(k); !ok {
			break
		}
	}
	debug.Assert(k <= maxSteps, fmt.Sprintf("card %q never reaches a terminal step", c.Title))
	c.terminal = k
	return k
}

// StepCount returns the number of steps.
func (c *Card) StepCount() int { return c.Terminal() - 1 }

// Captions returns the captions of every step in order.
func (c *Card) Captions() []Caption {
	n := c.StepCount()
	out := make([]Caption, 0, n)
	for k := 1; k <= n; k++ {
		caption, _ := c.strategy.Caption(k)
		out = append(out, caption)
	}
	return out
}

// SetLayoutRequest installs the hook fired whenever a step change alters the
// caption and so the card's preferred size.
func (c *Card) SetLayoutRequest(fn func()) { c.requestLayout = fn }

// OnStep registers an observer notified after every step change.
func (c *Card) OnStep(fn func(c *Card, step int)) {
	if fn != nil {
		c.onStep = append(c.onStep, fn)
	}
}

// Advance moves to the next step, wrapping to step 1 past the last one. On a
// call-to-action step it opens the URL instead and the step is unchanged; the
// only error Advance returns is the navigator's.
func (c *Card) Advance() error {
	if caption, ok := c.Caption(); ok && caption.IsAction() {
		if c.nav == nil {
			return fmt.Errorf("card %q: no navigator for %s", c.Title, caption.URL)
		}
		debug.Log("story: %q opens %s", c.Title, caption.URL)
		if err := c.nav.OpenURL(caption.URL); err != nil {
			return fmt.Errorf("opening %s: %w", caption.URL, err)
		}
		return nil
	}

	before := c.step
	c.forwarding = true
	c.step++
	if _, ok := c.strategy.Caption(c.step); !ok {
		c.step = 1
	}
	c.enter(before, Forward)
	return nil
}

// Rewind moves to the previous step. It does nothing on the first step.
func (c *Card) Rewind() {
	if c.step <= 1 {
		return
	}
	before := c.step
	c.forwarding = false
	c.step--
	c.enter(before, Backward)
}

// Click handles a pointer click on the card: a plain click advances, a click
// with a modifier held rewinds.
func (c *Card) Click(modified bool) error {
	if modified {
		c.Rewind()
		return nil
	}
	return c.Advance()
}

// Reset stops any step transition and returns the card to step 0.
func (c *Card) Reset() {
	c.tr.Stop()
	c.step = 0
	c.forwarding = false
}

// Visible reports the last visibility pushed by the carousel.
func (c *Card) Visible() bool { return c.visible }

// SetVisible records whether the card is on screen and forwards it to
// strategies with continuous effects.
func (c *Card) SetVisible(visible bool) {
	if c.visible == visible {
		return
	}
	c.visible = visible
	if v, ok := c.strategy.(Visibility); ok {
		v.SetVisible(visible)
	}
}

func (c *Card) enter(before int, dir Direction) {
	defer metrics.Timer(metrics.StepChange)()

	// the first activation shows the resting state without animating
	animate := dir == Backward || before > 0

	c.tr.Stop()
	c.strategy.PrepareTransition(c.step, dir, c.tr)
	c.tr.Run(animate)
	debug.Log("story: %q step %d -> %d (%s, animate=%v)", c.Title, before, c.step, dir, animate)

	if c.requestLayout != nil {
		c.requestLayout()
	}
	for _, fn := range c.onStep {
		fn(c, c.step)
	}
}
