package anim

import (
	"time"

	"github.com/vanderheijden86/storyreel/pkg/metrics"
)

// DefaultDuration is the duration of a batch unless SetDuration overrides it.
const DefaultDuration = 1000 * time.Millisecond

// Keyframe is one pending property change.
type Keyframe struct {
	Target Property
	End    float64
	Easing Easing
}

// Transition batches keyframes and finish callbacks and runs them together,
// either instantly or animated. A Transition is owned by a single controller;
// starting a new run supersedes the previous one.
//
// Finish callbacks may add keyframes and call Run again on the same
// Transition; this is how multi-stage choreography is chained.
type Transition struct {
	sched     Scheduler
	keyframes []Keyframe
	callbacks []func()
	duration  time.Duration

	running  bool
	animated bool
	gen      uint64 // bumped on every run and stop; stale frames compare against it

	// in-flight animation state
	active  []Keyframe
	from    []float64
	pending []func()
	runFor  time.Duration
	start   time.Time
	started bool
}

// NewTransition creates an idle Transition driven by sched.
func NewTransition(sched Scheduler) *Transition {
	return &Transition{sched: sched, duration: DefaultDuration}
}

// SetDuration overrides the duration of the pending batch. The override is
// cleared together with the batch.
func (t *Transition) SetDuration(d time.Duration) {
	t.duration = d
}

// Duration returns the duration the pending batch will run for.
func (t *Transition) Duration() time.Duration { return t.duration }

// AddKeyframe appends a property change to the pending batch. A nil easing
// means Linear.
func (t *Transition) AddKeyframe(target Property, end float64, e Easing) {
	if e == nil {
		e = Linear
	}
	t.keyframes = append(t.keyframes, Keyframe{Target: target, End: end, Easing: e})
}

// AddFinishCallback appends a callback fired once after the batch completes.
func (t *Transition) AddFinishCallback(fn func()) {
	if fn == nil {
		return
	}
	t.callbacks = append(t.callbacks, fn)
}

// Pending returns the keyframes of the batch that has not been run yet.
func (t *Transition) Pending() []Keyframe {
	return append([]Keyframe(nil), t.keyframes...)
}

// Running reports whether an animated run is in flight.
func (t *Transition) Running() bool { return t.running }

// Animated reports whether the most recent Run interpolated. Finish callbacks
// use it to run follow-up stages the same way.
func (t *Transition) Animated() bool { return t.animated }

// Run executes the pending batch. With animate false every end value is
// applied synchronously and the callbacks fire in order. With animate true
// the values are interpolated from their current values over the batch
// duration, and the callbacks fire on natural completion.
//
// The batch is detached before any callback fires, so callbacks see an empty
// Transition they can program and run again. Running an empty batch requests
// no frame; its callbacks, if any, fire immediately.
func (t *Transition) Run(animate bool) {
	keyframes, callbacks, duration := t.detach()
	if t.running {
		t.cancelInFlight()
	}

	t.animated = animate && len(keyframes) > 0 && duration > 0
	if !t.animated {
		for _, kf := range keyframes {
			kf.Target.Set(kf.End)
		}
		for _, fn := range callbacks {
			fn()
		}
		return
	}

	t.gen++
	t.running = true
	t.active = keyframes
	t.pending = callbacks
	t.runFor = duration
	t.started = false
	t.from = make([]float64, len(keyframes))
	for i, kf := range keyframes {
		t.from[i] = kf.Target.Get()
	}

	gen := t.gen
	t.sched.RequestFrame(func(now time.Time) { t.frame(gen, now) })
}

// Stop cancels an in-flight run. End values are not forced and the pending
// callbacks never fire. Any batch that has not been run yet is discarded.
func (t *Transition) Stop() {
	t.cancelInFlight()
	t.detach()
}

func (t *Transition) cancelInFlight() {
	t.gen++
	t.running = false
	t.active = nil
	t.from = nil
	t.pending = nil
}

func (t *Transition) detach() ([]Keyframe, []func(), time.Duration) {
	kfs, cbs, d := t.keyframes, t.callbacks, t.duration
	t.keyframes = nil
	t.callbacks = nil
	t.duration = DefaultDuration
	return kfs, cbs, d
}

func (t *Transition) frame(gen uint64, now time.Time) {
	if gen != t.gen || !t.running {
		return
	}
	defer metrics.Timer(metrics.TransitionFrame)()

	if !t.started {
		t.start = now
		t.started = true
	}
	progress := 1.0
	if t.runFor > 0 {
		progress = Clamp01(float64(now.Sub(t.start)) / float64(t.runFor))
	}

	if progress >= 1 {
		for _, kf := range t.active {
			kf.Target.Set(kf.End)
		}
		callbacks := t.pending
		t.running = false
		t.active = nil
		t.from = nil
		t.pending = nil
		for _, fn := range callbacks {
			fn()
		}
		return
	}

	for i, kf := range t.active {
		kf.Target.Set(Lerp(t.from[i], kf.End, kf.Easing(progress)))
	}
	t.sched.RequestFrame(func(now time.Time) { t.frame(gen, now) })
}
