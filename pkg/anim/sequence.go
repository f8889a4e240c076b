package anim

import "time"

// Stage is one step of a Sequence: a set of keyframes animated together.
type Stage struct {
	Name      string
	Keyframes []Keyframe
	Duration  time.Duration // zero means DefaultDuration

	// Before runs right before the stage's keyframes are queued, e.g. to swap
	// content that the stage then reveals.
	Before func()
	// After runs once the stage's keyframes have completed.
	After func()
}

// Sequence plays stages one after another on a single Transition. Stage N+1
// is queued from stage N's finish callback, so it starts only after every
// keyframe of stage N has completed.
type Sequence struct {
	stages []Stage
	onDone []func()
}

// NewSequence returns a sequence of the given stages.
func NewSequence(stages ...Stage) *Sequence {
	return &Sequence{stages: stages}
}

// Then appends a stage and returns the sequence for chaining.
func (s *Sequence) Then(st Stage) *Sequence {
	s.stages = append(s.stages, st)
	return s
}

// OnDone registers a callback fired after the last stage.
func (s *Sequence) OnDone(fn func()) *Sequence {
	if fn != nil {
		s.onDone = append(s.onDone, fn)
	}
	return s
}

// Stages returns a copy of the stages.
func (s *Sequence) Stages() []Stage {
	return append([]Stage(nil), s.stages...)
}

// Len returns the number of stages.
func (s *Sequence) Len() int { return len(s.stages) }

// Program queues the first stage on tr without running it, chaining the rest
// through finish callbacks. The caller runs tr, which lets a sequence share a
// batch with other keyframes (the first stage joins that batch). Later stages
// run animated only if the stage before them was.
func (s *Sequence) Program(tr *Transition) {
	s.queue(tr, 0)
}

// Play programs the sequence on tr and runs it.
func (s *Sequence) Play(tr *Transition, animate bool) {
	s.Program(tr)
	tr.Run(animate)
}

func (s *Sequence) queue(tr *Transition, i int) {
	if i >= len(s.stages) {
		for _, fn := range s.onDone {
			tr.AddFinishCallback(fn)
		}
		return
	}
	st := s.stages[i]
	if st.Before != nil {
		st.Before()
	}
	for _, kf := range st.Keyframes {
		tr.AddKeyframe(kf.Target, kf.End, kf.Easing)
	}
	if st.Duration > 0 {
		tr.SetDuration(st.Duration)
	}
	if st.After != nil {
		tr.AddFinishCallback(st.After)
	}
	if i == len(s.stages)-1 {
		for _, fn := range s.onDone {
			tr.AddFinishCallback(fn)
		}
		return
	}
	tr.AddFinishCallback(func() {
		animated := tr.Animated()
		s.queue(tr, i+1)
		tr.Run(animated)
	})
}
