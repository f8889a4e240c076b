// Package anim batches property changes into transitions and drives them
// from an external frame scheduler.
//
// A Transition collects keyframes (property, end value, easing) and finish
// callbacks, then either applies them instantly or interpolates them over a
// duration. Nothing in this package blocks or starts goroutines: progress is
// made only when the Scheduler delivers a frame.
//
// Usage:
//
//	tr := anim.NewTransition(sched)
//	tr.AddKeyframe(offset, 0, anim.EaseOut)
//	tr.AddFinishCallback(func() { debug.Log("landed") })
//	tr.Run(true)
package anim

// Property is an animatable scalar.
type Property interface {
	Get() float64
	Set(v float64)
}

// Float is the basic Property implementation.
type Float struct {
	v float64
}

// NewFloat returns a Float initialised to v.
func NewFloat(v float64) *Float {
	return &Float{v: v}
}

func (f *Float) Get() float64 { return f.v }

func (f *Float) Set(v float64) { f.v = v }

// Lerp interpolates between a and b.
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// Clamp01 limits t to [0, 1].
func Clamp01(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}
