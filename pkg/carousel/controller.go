// Package carousel scrolls a horizontal strip of story cards.
//
// The Controller decides how many cards fit the viewport, animates the strip
// so the focused card is in view and, when asked to, advances the focused
// card once the strip has arrived. Geometry is in pixels; the hosting shell
// decides what a pixel is.
package carousel

import (
	"math"
	"time"

	"github.com/vanderheijden86/storyreel/pkg/anim"
	"github.com/vanderheijden86/storyreel/pkg/debug"
	"github.com/vanderheijden86/storyreel/pkg/metrics"
	"github.com/vanderheijden86/storyreel/pkg/story"
)

const (
	// ScrollDuration is how long the strip takes to reach a new focus.
	ScrollDuration = 500 * time.Millisecond

	// Viewports smaller than this area show a single card.
	tinyArea = 640 * 360
	minGap   = 5.0
	epsilon  = 1e-6
)

// SwipeDirection of a horizontal gesture.
type SwipeDirection int

const (
	// SwipeLeft moves to the next card.
	SwipeLeft SwipeDirection = iota
	// SwipeRight moves to the previous card.
	SwipeRight
)

func (d SwipeDirection) String() string {
	if d == SwipeRight {
		return "right"
	}
	return "left"
}

// Controller owns the card strip and its single scroll transition.
type Controller struct {
	cards   []*story.Card
	offsets []*anim.Float // horizontal translation of every card
	scroll  *anim.Transition

	focused int // -1 until something is focused

	width, height float64
	visible       int
	gap           float64
	cardWidth     float64

	target float64 // destination of the in-flight scroll
	play   bool    // advance the focused card when the scroll lands
	dirty  bool    // a layout arrived during a scroll

	measurer story.Measurer
	cache    story.LayoutCache
	layouts  int
	onError  func(error)
}

// New creates a controller over cards. The list is fixed for the lifetime of
// the controller.
func New(cards []*story.Card, s anim.Scheduler) *Controller {
	c := &Controller{
		cards:    cards,
		offsets:  make([]*anim.Float, len(cards)),
		scroll:   anim.NewTransition(s),
		focused:  -1,
		measurer: story.CellMeasurer{CellWidth: 8, Padding: 4},
	}
	for i, card := range cards {
		c.offsets[i] = anim.NewFloat(0)
		card.SetLayoutRequest(c.requestLayout)
	}
	return c
}

// SetMeasurer replaces the text measurer used to fill the layout cache.
func (c *Controller) SetMeasurer(m story.Measurer) {
	if m != nil {
		c.measurer = m
	}
}

// SetErrorHandler installs fn to receive errors from card playback, such as a
// call to action that could not be opened.
func (c *Controller) SetErrorHandler(fn func(error)) { c.onError = fn }

// Cards returns the cards in strip order.
func (c *Controller) Cards() []*story.Card { return c.cards }

// Len returns the number of cards.
func (c *Controller) Len() int { return len(c.cards) }

// Focused returns the focused index, or -1.
func (c *Controller) Focused() int { return c.focused }

// FocusedCard returns the focused card, or nil.
func (c *Controller) FocusedCard() *story.Card {
	if c.focused < 0 || c.focused >= len(c.cards) {
		return nil
	}
	return c.cards[c.focused]
}

// VisibleCount returns how many cards the last layout fits side by side.
func (c *Controller) VisibleCount() int { return c.visible }

// Gap returns the space between cards.
func (c *Controller) Gap() float64 { return c.gap }

// CardWidth returns the width of one card.
func (c *Controller) CardWidth() float64 { return c.cardWidth }

// Offset returns the current horizontal translation of the strip.
func (c *Controller) Offset() float64 {
	if len(c.offsets) == 0 {
		return 0
	}
	return c.offsets[0].Get()
}

// Scrolling reports whether the strip is moving.
func (c *Controller) Scrolling() bool { return c.scroll.Running() }

// Dirty reports whether a layout is waiting for the scroll to finish.
func (c *Controller) Dirty() bool { return c.dirty }

// Layouts returns how many full layout passes have run.
func (c *Controller) Layouts() int { return c.layouts }

// LayoutCache returns the measurements shared by every card render. The
// controller is the only writer.
func (c *Controller) LayoutCache() *story.LayoutCache { return &c.cache }

// CardX returns the left edge of card i in viewport coordinates.
func (c *Controller) CardX(i int) float64 {
	return c.gap + float64(i)*(c.cardWidth+c.gap) + c.offsets[i].Get()
}

// VisibleCount computes how many cards fit a width x height viewport.
func VisibleCount(width, height float64, n int) int {
	if n < 1 {
		return 0
	}
	if width*height < tinyArea || height <= 0 {
		return 1
	}
	return clamp(int(math.Floor(1.5*width/height)), 1, n)
}

// Layout sizes the cards for a width x height viewport and snaps the strip to
// the focused card. While a scroll is running the layout is deferred until it
// lands.
func (c *Controller) Layout(width, height float64) {
	defer metrics.Timer(metrics.CarouselLayout)()

	c.width, c.height = width, height
	if c.scroll.Running() {
		c.dirty = true
		debug.Log("carousel: layout %.0fx%.0f deferred during scroll", width, height)
		return
	}
	if len(c.cards) == 0 {
		return
	}

	c.visible = VisibleCount(width, height, len(c.cards))
	c.gap = math.Max(minGap, 0.01*width)
	c.cardWidth = math.Max(0, (width-float64(c.visible+1)*c.gap)/float64(c.visible))
	c.cache.Recompute(c.cards, c.cardWidth, c.measurer)
	c.layouts++
	debug.Log("carousel: layout %.0fx%.0f visible=%d card=%.1f gap=%.1f", width, height, c.visible, c.cardWidth, c.gap)

	c.scrollToFocused(false, false)
}

// ScrollToCard focuses card index, clamped to the strip, and scrolls it into
// view. With playOnArrival the card advances one step once the strip lands.
func (c *Controller) ScrollToCard(index int, playOnArrival bool) {
	if len(c.cards) == 0 {
		return
	}
	c.focused = clamp(index, 0, len(c.cards)-1)
	c.scrollToFocused(true, playOnArrival)
}

// IndexAt maps a horizontal viewport position to a card index. The result is
// never more than one card away from the focus.
func (c *Controller) IndexAt(x float64) int {
	if len(c.cards) == 0 {
		return -1
	}
	f := max(c.focused, 0)
	pitch := c.cardWidth + c.gap
	if pitch <= 0 {
		return f
	}
	i := int(math.Floor((x - c.Offset()) / pitch))
	i = clamp(i, f-1, f+1)
	return clamp(i, 0, len(c.cards)-1)
}

// Click handles a click at x. Clicking the focused card forwards to the card;
// clicking a neighbour scrolls to it and plays it on arrival.
func (c *Controller) Click(x float64, modified bool) {
	i := c.IndexAt(x)
	if i < 0 {
		return
	}
	if i == c.focused {
		c.report(c.cards[i].Click(modified))
		return
	}
	c.ScrollToCard(i, true)
}

// Swipe moves the focus by one card without playing it.
func (c *Controller) Swipe(dir SwipeDirection) {
	switch dir {
	case SwipeLeft:
		c.ScrollToCard(c.focused+1, false)
	case SwipeRight:
		c.ScrollToCard(c.focused-1, false)
	}
}

// Focus focuses card index and snaps the strip to it without scrolling. A
// reloaded deck uses it to restore the previous position.
func (c *Controller) Focus(index int, play bool) {
	if len(c.cards) == 0 {
		return
	}
	c.focused = clamp(index, 0, len(c.cards)-1)
	c.scrollToFocused(false, play)
}

// Release stops the scroll and hides every card so that effect loops stop.
// The controller must not be used afterwards.
func (c *Controller) Release() {
	c.scroll.Stop()
	for _, card := range c.cards {
		card.Reset()
		card.SetVisible(false)
		card.SetLayoutRequest(nil)
	}
}

// targetOffset keeps the card before the focus in view as context. With a
// single visible card the focus itself is the leftmost card.
func (c *Controller) targetOffset() float64 {
	if c.visible == 0 {
		return 0
	}
	f := max(c.focused, 0)
	lead := min(1, c.visible-1)
	left := clamp(f-lead, 0, len(c.cards)-c.visible)
	return -float64(left) * (c.width - c.gap) / float64(c.visible)
}

func (c *Controller) scrollToFocused(animate, play bool) {
	// not laid out yet: nothing to move
	if c.visible == 0 {
		c.settle(play)
		return
	}
	target := c.targetOffset()

	if !animate {
		c.scroll.Stop()
		if !c.applyDeferred() {
			for _, o := range c.offsets {
				o.Set(target)
			}
		}
		c.settle(play)
		return
	}

	if c.scroll.Running() {
		if math.Abs(c.target-target) < epsilon {
			c.play = c.play || play
			return
		}
		c.scroll.Stop()
	}
	if math.Abs(c.Offset()-target) < epsilon {
		c.applyDeferred()
		c.settle(play)
		return
	}

	c.target = target
	c.play = play
	for _, o := range c.offsets {
		c.scroll.AddKeyframe(o, target, anim.EaseInOut)
	}
	c.scroll.SetDuration(ScrollDuration)
	c.scroll.AddFinishCallback(c.arrive)
	c.scroll.Run(true)
	debug.Log("carousel: scroll to %d (offset %.1f, play=%v)", c.focused, target, play)
}

func (c *Controller) arrive() {
	play := c.play
	c.play = false
	c.applyDeferred()
	c.settle(play)
}

// applyDeferred runs the layout held back by a scroll once the strip is at
// rest, whichever way the scroll ended. It reports whether it ran; the layout
// snaps the strip to the focused card itself.
func (c *Controller) applyDeferred() bool {
	if !c.dirty || c.scroll.Running() {
		return false
	}
	c.dirty = false
	c.Layout(c.width, c.height)
	return true
}

// settle pushes visibility to every card and plays the focused one.
func (c *Controller) settle(play bool) {
	c.pushVisibility()
	if play && c.focused >= 0 {
		c.report(c.cards[c.focused].Advance())
	}
}

func (c *Controller) pushVisibility() {
	for i, card := range c.cards {
		if c.visible == 0 {
			card.SetVisible(i == c.focused)
			continue
		}
		x := c.CardX(i)
		card.SetVisible(x < c.width && x+c.cardWidth > 0)
	}
}

// requestLayout is installed on every card; a step change may alter the
// card's preferred size.
func (c *Controller) requestLayout() {
	if c.visible == 0 {
		return
	}
	if c.scroll.Running() {
		c.dirty = true
		return
	}
	c.cache.Recompute(c.cards, c.cardWidth, c.measurer)
}

func (c *Controller) report(err error) {
	if err == nil {
		return
	}
	debug.Log("carousel: %v", err)
	if c.onError != nil {
		c.onError(err)
	}
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
