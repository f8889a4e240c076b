package anim

import (
	"sort"
	"time"
)

// Scheduler delivers animation frames and delayed callbacks. Implementations
// must invoke callbacks on the same goroutine that drives the core.
type Scheduler interface {
	// RequestFrame schedules fn for the next animation frame.
	RequestFrame(fn func(now time.Time))
	// After schedules fn once d has elapsed.
	After(d time.Duration, fn func())
}

// ManualScheduler is a deterministic Scheduler driven by an explicit clock.
// Frames are delivered every FrameInterval of simulated time.
type ManualScheduler struct {
	FrameInterval time.Duration

	now    time.Time
	frames []func(time.Time)
	timers []manualTimer
	seq    int
}

type manualTimer struct {
	at  time.Time
	seq int
	fn  func()
}

// NewManualScheduler returns a scheduler at a fixed epoch ticking at 60fps.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{
		FrameInterval: time.Second / 60,
		now:           time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (s *ManualScheduler) RequestFrame(fn func(now time.Time)) {
	s.frames = append(s.frames, fn)
}

func (s *ManualScheduler) After(d time.Duration, fn func()) {
	s.seq++
	s.timers = append(s.timers, manualTimer{at: s.now.Add(d), seq: s.seq, fn: fn})
}

// Now returns the simulated time.
func (s *ManualScheduler) Now() time.Time { return s.now }

// PendingFrames reports how many frame callbacks are queued.
func (s *ManualScheduler) PendingFrames() int { return len(s.frames) }

// PendingTimers reports how many delayed callbacks are queued.
func (s *ManualScheduler) PendingTimers() int { return len(s.timers) }

// Frame delivers one frame at the current time without advancing the clock.
// Callbacks requested while delivering are queued for the next frame.
func (s *ManualScheduler) Frame() {
	frames := s.frames
	s.frames = nil
	for _, fn := range frames {
		fn(s.now)
	}
}

// Advance moves the clock forward by d, delivering a frame every
// FrameInterval and firing timers as they come due.
func (s *ManualScheduler) Advance(d time.Duration) {
	step := s.FrameInterval
	if step <= 0 {
		step = time.Second / 60
	}
	end := s.now.Add(d)
	for s.now.Before(end) {
		next := s.now.Add(step)
		if next.After(end) {
			next = end
		}
		s.now = next
		s.fireTimers()
		s.Frame()
	}
}

// Settle advances until no frames or timers remain, up to limit of simulated
// time. It reports whether the scheduler went idle.
func (s *ManualScheduler) Settle(limit time.Duration) bool {
	deadline := s.now.Add(limit)
	for len(s.frames) > 0 || len(s.timers) > 0 {
		if !s.now.Before(deadline) {
			return false
		}
		s.Advance(s.FrameInterval)
	}
	return true
}

func (s *ManualScheduler) fireTimers() {
	if len(s.timers) == 0 {
		return
	}
	sort.SliceStable(s.timers, func(i, j int) bool {
		if s.timers[i].at.Equal(s.timers[j].at) {
			return s.timers[i].seq < s.timers[j].seq
		}
		return s.timers[i].at.Before(s.timers[j].at)
	})
	var due []manualTimer
	keep := s.timers[:0]
	for _, t := range s.timers {
		if !t.at.After(s.now) {
			due = append(due, t)
		} else {
			keep = append(keep, t)
		}
	}
	s.timers = keep
	for _, t := range due {
		t.fn()
	}
}
