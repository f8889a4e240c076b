package story

import (
	"errors"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/vanderheijden86/storyreel/pkg/anim"
)

type fakeStrategy struct {
	captions []Caption
	prop     *anim.Float
	prepared []int
	dirs     []Direction
	finished int
}

func newFake(n int) *fakeStrategy {
	f := &fakeStrategy{prop: anim.NewFloat(0)}
	for i := 0; i < n; i++ {
		f.captions = append(f.captions, Caption{Text: "step"})
	}
	return f
}

func (f *fakeStrategy) Caption(step int) (Caption, bool) {
	if step < 1 || step > len(f.captions) {
		return Caption{}, false
	}
	return f.captions[step-1], true
}

func (f *fakeStrategy) PrepareTransition(step int, dir Direction, tr *anim.Transition) {
	f.prepared = append(f.prepared, step)
	f.dirs = append(f.dirs, dir)
	tr.AddKeyframe(f.prop, float64(step*10), nil)
	tr.AddFinishCallback(func() { f.finished++ })
}

type fakeNav struct {
	opened []string
	err    error
}

func (n *fakeNav) OpenURL(url string) error {
	n.opened = append(n.opened, url)
	return n.err
}

func newTestCard(t *testing.T, steps int) (*Card, *fakeStrategy, *anim.ManualScheduler) {
	t.Helper()
	sched := anim.NewManualScheduler()
	f := newFake(steps)
	c, err := NewCard("test", KindCaption, f, Env{Scheduler: sched, Navigator: &fakeNav{}})
	if err != nil {
		t.Fatalf("NewCard: %v", err)
	}
	return c, f, sched
}

func TestNewCardRejectsZeroSteps(t *testing.T) {
	_, err := NewCard("empty", KindCaption, newFake(0), Env{Scheduler: anim.NewManualScheduler()})
	if !errors.Is(err, ErrNoSteps) {
		t.Fatalf("expected ErrNoSteps, got %v", err)
	}
}

func TestMustCardPanicsOnZeroSteps(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	MustCard("empty", KindCaption, newFake(0), Env{Scheduler: anim.NewManualScheduler()})
}

func TestTerminalStep(t *testing.T) {
	c, _, _ := newTestCard(t, 4)
	if c.Terminal() != 5 {
		t.Errorf("Terminal() = %d, want 5", c.Terminal())
	}
	if c.StepCount() != 4 || len(c.Captions()) != 4 {
		t.Errorf("StepCount() = %d, captions %d", c.StepCount(), len(c.Captions()))
	}
}

func TestAdvanceWrapsAfterTerminal(t *testing.T) {
	c, _, _ := newTestCard(t, 3)
	for want := 1; want <= 3; want++ {
		c.Advance()
		if c.Step() != want {
			t.Fatalf("step = %d, want %d", c.Step(), want)
		}
	}
	c.Advance()
	if c.Step() != 1 {
		t.Errorf("advance past terminal: step = %d, want 1", c.Step())
	}
	if !c.Forwarding() {
		t.Error("expected forwarding after Advance")
	}
}

func TestRewindFloor(t *testing.T) {
	c, f, _ := newTestCard(t, 3)
	c.Rewind()
	if c.Step() != 0 || len(f.prepared) != 0 {
		t.Errorf("rewind at step 0 changed state: step=%d prepared=%v", c.Step(), f.prepared)
	}

	c.Advance()
	c.Rewind()
	if c.Step() != 1 {
		t.Errorf("rewind at step 1: step = %d, want 1", c.Step())
	}
	if len(f.prepared) != 1 {
		t.Errorf("rewind at step 1 prepared a transition: %v", f.prepared)
	}

	c.Advance()
	c.Rewind()
	if c.Step() != 1 || c.Forwarding() {
		t.Errorf("after rewind: step=%d forwarding=%v", c.Step(), c.Forwarding())
	}
	if f.dirs[len(f.dirs)-1] != Backward {
		t.Error("rewind should prepare a backward transition")
	}
}

func TestFirstActivationIsUnanimated(t *testing.T) {
	c, f, sched := newTestCard(t, 3)
	c.Advance()

	if f.prop.Get() != 10 {
		t.Errorf("end value not applied synchronously: %v", f.prop.Get())
	}
	if c.Animating() || sched.PendingFrames() != 0 {
		t.Error("first activation must not animate")
	}
	if f.finished != 1 {
		t.Errorf("finish callbacks = %d, want 1", f.finished)
	}
}

func TestLaterStepsAnimate(t *testing.T) {
	c, f, sched := newTestCard(t, 3)
	c.Advance()
	c.Advance()

	if !c.Animating() {
		t.Fatal("second step should animate")
	}
	if f.prop.Get() == 20 {
		t.Error("end value applied before any frame")
	}
	sched.Settle(5 * time.Second)
	if f.prop.Get() != 20 {
		t.Errorf("value = %v, want 20", f.prop.Get())
	}
}

func TestRewindAlwaysAnimates(t *testing.T) {
	c, _, sched := newTestCard(t, 3)
	c.Advance()
	c.Advance()
	sched.Settle(5 * time.Second)
	c.Rewind()
	if !c.Animating() {
		t.Error("rewind should animate")
	}
}

func TestStepTransitionSupersedes(t *testing.T) {
	c, f, sched := newTestCard(t, 4)
	c.Advance()
	c.Advance() // animating to step 2
	sched.Advance(100 * time.Millisecond)
	finishedBefore := f.finished

	c.Advance() // supersedes
	sched.Settle(5 * time.Second)

	if f.finished != finishedBefore+1 {
		t.Errorf("finish callbacks fired %d times, want exactly 1 (the superseding batch)", f.finished-finishedBefore)
	}
	if f.prop.Get() != 30 {
		t.Errorf("value = %v, want 30", f.prop.Get())
	}
}

func TestCallToActionOpensURL(t *testing.T) {
	sched := anim.NewManualScheduler()
	nav := &fakeNav{}
	f := newFake(2)
	f.captions[1].URL = "https://example.com/signup"
	c, err := NewCard("cta", KindCaption, f, Env{Scheduler: sched, Navigator: nav})
	if err != nil {
		t.Fatal(err)
	}

	c.Advance()
	c.Advance()
	if c.Step() != 2 {
		t.Fatalf("step = %d, want 2", c.Step())
	}
	if err := c.Advance(); err != nil {
		t.Fatalf("Advance on CTA: %v", err)
	}
	if c.Step() != 2 {
		t.Errorf("CTA advance changed step to %d", c.Step())
	}
	if len(nav.opened) != 1 || nav.opened[0] != "https://example.com/signup" {
		t.Errorf("opened = %v", nav.opened)
	}

	nav.err = errors.New("no browser")
	if err := c.Advance(); err == nil {
		t.Error("expected navigation error")
	}
	if c.Step() != 2 {
		t.Error("failed navigation must not change step")
	}
}

func TestClickModifiers(t *testing.T) {
	c, _, _ := newTestCard(t, 3)
	c.Click(false)
	c.Click(false)
	if c.Step() != 2 {
		t.Fatalf("step = %d, want 2", c.Step())
	}
	c.Click(true)
	if c.Step() != 1 {
		t.Errorf("modified click should rewind, step = %d", c.Step())
	}
}

func TestStepHooks(t *testing.T) {
	c, _, _ := newTestCard(t, 2)
	layouts := 0
	var seen []int
	c.SetLayoutRequest(func() { layouts++ })
	c.OnStep(func(_ *Card, step int) { seen = append(seen, step) })

	c.Advance()
	c.Advance()
	c.Rewind()
	if layouts != 3 {
		t.Errorf("layout requests = %d, want 3", layouts)
	}
	if len(seen) != 3 || seen[2] != 1 {
		t.Errorf("seen = %v, want [1 2 1]", seen)
	}
}

func TestReset(t *testing.T) {
	c, _, _ := newTestCard(t, 2)
	c.Advance()
	c.Advance()
	c.Reset()
	if c.Step() != 0 || c.Animating() {
		t.Errorf("after Reset: step=%d animating=%v", c.Step(), c.Animating())
	}
}

func TestStepBoundsProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 12).Draw(t, "steps")
		c, err := NewCard("p", KindCaption, newFake(n), Env{Scheduler: anim.NewManualScheduler()})
		if err != nil {
			t.Fatal(err)
		}
		ops := rapid.SliceOf(rapid.Bool()).Draw(t, "ops")
		for _, forward := range ops {
			before := c.Step()
			if forward {
				c.Advance()
				switch {
				case before == n && c.Step() != 1:
					t.Fatalf("advance from terminal %d landed on %d", n, c.Step())
				case before < n && c.Step() != before+1:
					t.Fatalf("advance from %d landed on %d", before, c.Step())
				}
			} else {
				c.Rewind()
				if before <= 1 && c.Step() != before {
					t.Fatalf("rewind at %d moved to %d", before, c.Step())
				}
				if before > 1 && c.Step() != before-1 {
					t.Fatalf("rewind from %d landed on %d", before, c.Step())
				}
			}
			if c.Step() < 0 || c.Step() > n {
				t.Fatalf("step %d outside [0,%d]", c.Step(), n)
			}
		}
	})
}
