package carousel

import "github.com/vanderheijden86/storyreel/pkg/story"

// State is a read-only snapshot of the controller.
type State struct {
	Width        float64     `json:"width"`
	Height       float64     `json:"height"`
	Focused      int         `json:"focused"`
	VisibleCount int         `json:"visible_count"`
	Gap          float64     `json:"gap"`
	CardWidth    float64     `json:"card_width"`
	Offset       float64     `json:"offset"`
	Scrolling    bool        `json:"scrolling"`
	Dirty        bool        `json:"dirty,omitempty"`
	Cards        []CardState `json:"cards"`
}

// CardState describes one card of a State.
type CardState struct {
	Title     string     `json:"title"`
	Kind      story.Kind `json:"kind"`
	Step      int        `json:"step"`
	Steps     int        `json:"steps"`
	Caption   string     `json:"caption,omitempty"`
	URL       string     `json:"url,omitempty"`
	X         float64    `json:"x"`
	Visible   bool       `json:"visible"`
	Animating bool       `json:"animating,omitempty"`
}

// State captures the controller and its cards.
func (c *Controller) State() State {
	s := State{
		Width:        c.width,
		Height:       c.height,
		Focused:      c.focused,
		VisibleCount: c.visible,
		Gap:          c.gap,
		CardWidth:    c.cardWidth,
		Offset:       c.Offset(),
		Scrolling:    c.scroll.Running(),
		Dirty:        c.dirty,
		Cards:        make([]CardState, len(c.cards)),
	}
	for i, card := range c.cards {
		cs := CardState{
			Title:     card.Title,
			Kind:      card.Kind,
			Step:      card.Step(),
			Steps:     card.StepCount(),
			X:         c.CardX(i),
			Visible:   card.Visible(),
			Animating: card.Animating(),
		}
		if caption, ok := card.Caption(); ok {
			cs.Caption = caption.Text
			cs.URL = caption.URL
		}
		s.Cards[i] = cs
	}
	return s
}
