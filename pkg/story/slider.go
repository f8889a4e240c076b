package story

import (
	"github.com/vanderheijden86/storyreel/pkg/anim"
)

// CaptionSlot is one of the two caption positions of a CaptionSlider.
// Offset is measured in card widths: 0 is at rest, +1 is one card width to the
// right.
type CaptionSlot struct {
	Caption Caption
	Offset  *anim.Float
	Opacity *anim.Float
	Hidden  bool
}

// CaptionSlider cross-slides captions between steps: the entering caption
// comes in from the side the story is moving towards, the leaving one slides
// out the opposite way and is hidden once off screen.
type CaptionSlider struct {
	slots  [2]*CaptionSlot
	cur    int
	easing anim.Easing
}

// NewCaptionSlider returns a slider with both slots hidden.
func NewCaptionSlider(e anim.Easing) *CaptionSlider {
	if e == nil {
		e = anim.EaseInOut
	}
	s := &CaptionSlider{easing: e}
	for i := range s.slots {
		s.slots[i] = &CaptionSlot{
			Offset:  anim.NewFloat(0),
			Opacity: anim.NewFloat(0),
			Hidden:  true,
		}
	}
	return s
}

// Prepare queues the slide to caption c on tr.
func (s *CaptionSlider) Prepare(c Caption, dir Direction, tr *anim.Transition) {
	leaving := s.slots[s.cur]
	s.cur = 1 - s.cur
	entering := s.slots[s.cur]

	from := 1.0
	if dir == Backward {
		from = -1
	}
	entering.Caption = c
	entering.Hidden = false
	entering.Offset.Set(from)
	entering.Opacity.Set(0)
	tr.AddKeyframe(entering.Offset, 0, s.easing)
	tr.AddKeyframe(entering.Opacity, 1, s.easing)

	if leaving.Hidden {
		return
	}
	tr.AddKeyframe(leaving.Offset, -from, s.easing)
	tr.AddKeyframe(leaving.Opacity, 0, s.easing)
	tr.AddFinishCallback(func() {
		// the slot may have been reused by a later step
		if s.slots[s.cur] != leaving {
			leaving.Hidden = true
		}
	})
}

// Current returns the slot holding the latest caption.
func (s *CaptionSlider) Current() *CaptionSlot { return s.slots[s.cur] }

// Slots returns the visible slots, leaving caption first.
func (s *CaptionSlider) Slots() []*CaptionSlot {
	out := make([]*CaptionSlot, 0, 2)
	for _, i := range []int{1 - s.cur, s.cur} {
		if !s.slots[i].Hidden {
			out = append(out, s.slots[i])
		}
	}
	return out
}
