// Package flip implements a two-slot content container that swaps what it
// displays, either by flipping between a front and a back face or by fading
// one layer out and another in.
package flip

import (
	"github.com/vanderheijden86/storyreel/pkg/anim"
)

// Rotation end points of the flip, in degrees.
const (
	FrontAngle = 0.0
	BackAngle  = 180.0
	edgeAngle  = 90.0
)

// Content is anything a slot can hold. Two contents with the same key are
// considered identical.
type Content interface {
	Key() string
}

// Layer is a content with its own opacity.
type Layer struct {
	Content Content
	Opacity *anim.Float
}

func newLayer(c Content, opacity float64) *Layer {
	return &Layer{Content: c, Opacity: anim.NewFloat(opacity)}
}

// Switcher holds a front and a back slot; exactly one of them is shown.
type Switcher struct {
	front, back *Layer
	showBack    bool

	// Rotation is animated between FrontAngle and BackAngle by flips.
	Rotation *anim.Float

	layers []*Layer // layers currently attached to the container
	easing anim.Easing
}

// New returns an empty switcher showing its front slot.
func New() *Switcher {
	s := &Switcher{
		front:    newLayer(nil, 1),
		back:     newLayer(nil, 0),
		Rotation: anim.NewFloat(FrontAngle),
		easing:   anim.EaseInOut,
	}
	s.layers = []*Layer{s.front}
	return s
}

// SetEasing changes the easing used for flips and fades.
func (s *Switcher) SetEasing(e anim.Easing) {
	if e != nil {
		s.easing = e
	}
}

func (s *Switcher) shown() *Layer {
	if s.showBack {
		return s.back
	}
	return s.front
}

func (s *Switcher) hidden() *Layer {
	if s.showBack {
		return s.front
	}
	return s.back
}

// ChangeContent writes c into the slot that is not shown and swaps it in
// synchronously, without any transition.
func (s *Switcher) ChangeContent(c Content) {
	next := s.hidden()
	prev := s.shown()
	next.Content = c
	s.showBack = !s.showBack

	next.Opacity.Set(1)
	prev.Opacity.Set(0)
	s.layers = []*Layer{next}
	if s.showBack {
		s.Rotation.Set(BackAngle)
	} else {
		s.Rotation.Set(FrontAngle)
	}
}

// Displayed returns the content currently visible. During a flip the face is
// chosen from the rotation, so the two faces are never visible together.
func (s *Switcher) Displayed() Content {
	a := s.Rotation.Get()
	if a < edgeAngle {
		return s.front.Content
	}
	return s.back.Content
}

// ShowingBack reports which slot is the target of the last flip.
func (s *Switcher) ShowingBack() bool { return s.showBack }

// FlipToNewContent places c in the face that is not on screen and flips to
// it. The face on screen is read from the rotation, so a flip stopped halfway
// never has its visible face overwritten. The rotation is added to tr, or
// applied immediately when tr is nil. It returns false when c is already the
// displayed content; a rotation left between the faces is then only turned
// back to rest.
func (s *Switcher) FlipToNewContent(c Content, tr *anim.Transition) bool {
	onBack := s.Rotation.Get() >= edgeAngle
	cur, next := s.front, s.back
	if onBack {
		cur, next = s.back, s.front
	}

	if sameContent(cur.Content, c) {
		s.showBack = onBack
		s.rotateTo(faceAngle(onBack), tr)
		return false
	}
	next.Content = c
	next.Opacity.Set(1)
	s.attach(next)
	s.showBack = !onBack
	s.rotateTo(faceAngle(s.showBack), tr)
	return true
}

func faceAngle(back bool) float64 {
	if back {
		return BackAngle
	}
	return FrontAngle
}

func (s *Switcher) rotateTo(target float64, tr *anim.Transition) {
	switch {
	case s.Rotation.Get() == target:
	case tr == nil:
		s.Rotation.Set(target)
	default:
		tr.AddKeyframe(s.Rotation, target, s.easing)
	}
}

// PerformFadingTransition fades the shown layer out and entering in. When
// parallel is false the fade-in is queued from a finish callback that runs tr
// again, so it starts only after the fade-out has completed. The leaving layer
// is detached once it is hidden.
func (s *Switcher) PerformFadingTransition(entering Content, tr *anim.Transition, parallel bool) {
	leaving := s.shown()
	incoming := s.hidden()
	incoming.Content = entering
	incoming.Opacity.Set(0)
	s.attach(incoming)
	s.showBack = !s.showBack

	tr.AddKeyframe(leaving.Opacity, 0, s.easing)
	tr.AddFinishCallback(func() { s.detach(leaving) })
	if parallel {
		tr.AddKeyframe(incoming.Opacity, 1, s.easing)
		return
	}
	tr.AddFinishCallback(func() {
		tr.AddKeyframe(incoming.Opacity, 1, s.easing)
		tr.Run(true)
	})
}

// Layers returns the layers attached to the container, bottom first.
func (s *Switcher) Layers() []*Layer {
	return append([]*Layer(nil), s.layers...)
}

// Visible returns the content of the topmost attached layer with a non-zero
// opacity, or nil.
func (s *Switcher) Visible() Content {
	for i := len(s.layers) - 1; i >= 0; i-- {
		if s.layers[i].Opacity.Get() > 0 {
			return s.layers[i].Content
		}
	}
	return nil
}

func (s *Switcher) attach(l *Layer) {
	for _, cur := range s.layers {
		if cur == l {
			return
		}
	}
	s.layers = append(s.layers, l)
}

func (s *Switcher) detach(l *Layer) {
	// a later fade may have re-attached the same slot as the entering layer
	if l == s.shown() {
		return
	}
	for i, cur := range s.layers {
		if cur == l {
			s.layers = append(s.layers[:i], s.layers[i+1:]...)
			return
		}
	}
}

func sameContent(a, b Content) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Key() == b.Key()
}
