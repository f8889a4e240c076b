package anim

import (
	"testing"
	"time"
)

func TestSequenceRunsStagesInOrder(t *testing.T) {
	sched := NewManualScheduler()
	tr := NewTransition(sched)
	a, b := NewFloat(0), NewFloat(0)

	var log []string
	seq := NewSequence(
		Stage{
			Name:      "raise",
			Keyframes: []Keyframe{{Target: a, End: 1, Easing: Linear}},
			Duration:  200 * time.Millisecond,
			After:     func() { log = append(log, "raise") },
		},
		Stage{
			Name:      "slide",
			Keyframes: []Keyframe{{Target: b, End: 1, Easing: Linear}},
			Before: func() {
				if a.Get() != 1 {
					t.Errorf("stage 2 started before stage 1 completed (a=%v)", a.Get())
				}
			},
			After: func() { log = append(log, "slide") },
		},
	).OnDone(func() { log = append(log, "done") })

	if seq.Len() != 2 || seq.Stages()[1].Name != "slide" {
		t.Fatalf("unexpected stages %+v", seq.Stages())
	}

	seq.Play(tr, true)
	sched.Advance(100 * time.Millisecond)
	if b.Get() != 0 {
		t.Errorf("stage 2 value moved during stage 1: %v", b.Get())
	}
	sched.Settle(5 * time.Second)

	want := []string{"raise", "slide", "done"}
	if len(log) != len(want) {
		t.Fatalf("log = %v, want %v", log, want)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Errorf("log[%d] = %q, want %q", i, log[i], want[i])
		}
	}
}

func TestSequenceInstant(t *testing.T) {
	tr := NewTransition(NewManualScheduler())
	a, b := NewFloat(0), NewFloat(0)
	done := false
	NewSequence().
		Then(Stage{Keyframes: []Keyframe{{Target: a, End: 3}}}).
		Then(Stage{Keyframes: []Keyframe{{Target: b, End: 4}}}).
		OnDone(func() { done = true }).
		Play(tr, false)

	if a.Get() != 3 || b.Get() != 4 || !done {
		t.Errorf("instant sequence: a=%v b=%v done=%v", a.Get(), b.Get(), done)
	}
}

func TestSequenceStopEndsChain(t *testing.T) {
	sched := NewManualScheduler()
	tr := NewTransition(sched)
	a, b := NewFloat(0), NewFloat(0)
	NewSequence(
		Stage{Keyframes: []Keyframe{{Target: a, End: 1}}},
		Stage{Keyframes: []Keyframe{{Target: b, End: 1}}},
	).Play(tr, true)

	sched.Advance(300 * time.Millisecond)
	tr.Stop()
	sched.Settle(5 * time.Second)
	if b.Get() != 0 {
		t.Errorf("second stage ran after Stop: b=%v", b.Get())
	}
}

func TestLoopStartStop(t *testing.T) {
	sched := NewManualScheduler()
	ticks := 0
	l := NewLoop(sched, 400*time.Millisecond, func(float64) { ticks++ })

	l.Start()
	l.Start()
	sched.Advance(200 * time.Millisecond)
	if ticks == 0 || !l.Running() {
		t.Fatal("loop did not tick")
	}
	if p := l.Phase(); p <= 0 || p >= 1 {
		t.Errorf("phase %v outside (0,1)", p)
	}

	l.Stop()
	before := ticks
	sched.Advance(time.Second)
	if ticks != before {
		t.Errorf("loop ticked %d times after Stop", ticks-before)
	}
	if sched.PendingFrames() != 0 {
		t.Error("stopped loop left frames queued")
	}
}
