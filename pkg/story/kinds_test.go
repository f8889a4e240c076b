package story

import (
	"testing"
	"time"

	"github.com/vanderheijden86/storyreel/pkg/anim"
	"github.com/vanderheijden86/storyreel/pkg/assets"
	"github.com/vanderheijden86/storyreel/pkg/flip"
)

var art = assets.Static{
	"a": "AAA\nAAA",
	"b": "BBB\nBBB\nBBB",
}

func buildCard(t *testing.T, kind Kind, steps ...StepDef) (*Card, *anim.ManualScheduler) {
	t.Helper()
	sched := anim.NewManualScheduler()
	env := Env{Scheduler: sched, Assets: art}
	def := CardDef{Title: string(kind), Kind: kind, Steps: steps}
	s, err := DefaultRegistry().Build(def, env)
	if err != nil {
		t.Fatalf("Build(%s): %v", kind, err)
	}
	c, err := NewCard(def.Title, kind, s, env)
	if err != nil {
		t.Fatal(err)
	}
	return c, sched
}

func viewOf(t *testing.T, c *Card) View {
	t.Helper()
	v, ok := c.Strategy().(Viewer)
	if !ok {
		t.Fatalf("%s strategy has no view", c.Kind)
	}
	return v.View()
}

func TestCaptionSlidesIn(t *testing.T) {
	c, sched := buildCard(t, KindCaption, StepDef{Caption: "one"}, StepDef{Caption: "two"})
	c.Advance()

	v := viewOf(t, c)
	if len(v.Captions) != 1 || v.Captions[0].Caption.Text != "one" {
		t.Fatalf("captions after first step = %+v", v.Captions)
	}
	if v.Captions[0].Offset.Get() != 0 || v.Captions[0].Opacity.Get() != 1 {
		t.Error("first caption should rest in place")
	}
	if v.Illustration != nil {
		t.Error("caption cards have no illustration")
	}

	c.Advance()
	v = viewOf(t, c)
	if len(v.Captions) != 2 {
		t.Fatalf("both captions should be visible mid-slide, got %d", len(v.Captions))
	}
	entering := v.Captions[1]
	if entering.Caption.Text != "two" || entering.Offset.Get() <= 0 {
		t.Errorf("entering caption should start on the right: %+v", entering.Offset.Get())
	}

	sched.Settle(5 * time.Second)
	v = viewOf(t, c)
	if len(v.Captions) != 1 || v.Captions[0].Caption.Text != "two" {
		t.Errorf("leaving caption not hidden after slide: %d slots", len(v.Captions))
	}
}

func TestCaptionSlidesFromLeftOnRewind(t *testing.T) {
	c, sched := buildCard(t, KindCaption, StepDef{Caption: "one"}, StepDef{Caption: "two"})
	c.Advance()
	c.Advance()
	sched.Settle(5 * time.Second)

	c.Rewind()
	v := viewOf(t, c)
	entering := v.Captions[len(v.Captions)-1]
	if entering.Caption.Text != "one" || entering.Offset.Get() >= 0 {
		t.Errorf("rewind should enter from the left, offset %v", entering.Offset.Get())
	}
}

func TestFlipKind(t *testing.T) {
	c, sched := buildCard(t, KindFlip,
		StepDef{Caption: "one", Illustration: "a"},
		StepDef{Caption: "two", Illustration: "b"})
	c.Advance()

	sw := viewOf(t, c).Illustration
	if sw.Displayed() == nil || sw.Displayed().Key() != "a" {
		t.Fatalf("first illustration not shown: %v", sw.Displayed())
	}
	if ill := sw.Displayed().(Illustration); len(ill.Lines) != 2 {
		t.Errorf("illustration lines = %v", ill.Lines)
	}

	c.Advance()
	sched.Settle(5 * time.Second)
	if sw.Displayed().Key() != "b" {
		t.Errorf("after flip displayed = %s", sw.Displayed().Key())
	}
	// the first illustration went to the back slot, so the flip returns to the front
	if sw.Rotation.Get() != flip.FrontAngle {
		t.Errorf("rotation = %v, want %v", sw.Rotation.Get(), flip.FrontAngle)
	}
}

func TestRevealKind(t *testing.T) {
	c, sched := buildCard(t, KindReveal,
		StepDef{Caption: "one", Illustration: "a"},
		StepDef{Caption: "two", Illustration: "b"})
	c.Advance()
	if v := viewOf(t, c); v.Reveal != 1 || v.Illustration.Displayed().Key() != "a" {
		t.Fatalf("first step: reveal=%v", v.Reveal)
	}

	c.Advance()
	sched.Advance(150 * time.Millisecond)
	v := viewOf(t, c)
	if v.Reveal >= 1 || v.Illustration.Displayed().Key() != "a" {
		t.Errorf("mid-hide: reveal=%v displayed=%s", v.Reveal, v.Illustration.Displayed().Key())
	}

	sched.Settle(5 * time.Second)
	v = viewOf(t, c)
	if v.Reveal != 1 || v.Illustration.Displayed().Key() != "b" {
		t.Errorf("after reveal: reveal=%v displayed=%s", v.Reveal, v.Illustration.Displayed().Key())
	}
}

func TestFadeKinds(t *testing.T) {
	for _, kind := range []Kind{KindCrossfade, KindFade} {
		t.Run(string(kind), func(t *testing.T) {
			c, sched := buildCard(t, kind,
				StepDef{Caption: "one", Illustration: "a"},
				StepDef{Caption: "two", Illustration: "b"})
			c.Advance()
			c.Advance()
			sched.Settle(5 * time.Second)

			sw := viewOf(t, c).Illustration
			if sw.Visible() == nil || sw.Visible().Key() != "b" {
				t.Errorf("visible = %v, want b", sw.Visible())
			}
			if n := len(sw.Layers()); n != 1 {
				t.Errorf("layers after fade = %d, want 1", n)
			}
		})
	}
}

func TestMissingIllustrationStillShows(t *testing.T) {
	c, _ := buildCard(t, KindFlip, StepDef{Caption: "one", Illustration: "nope"})
	c.Advance()
	sw := viewOf(t, c).Illustration
	if sw.Displayed() == nil || sw.Displayed().Key() != "nope" {
		t.Error("missing art should still produce an (empty) illustration")
	}
}

func TestGearRunsOnlyWhileVisible(t *testing.T) {
	c, sched := buildCard(t, KindGear, StepDef{Caption: "turn", Illustration: "a"})
	g := c.Strategy().(*gear)
	if g.Running() {
		t.Fatal("gear should not run before it is visible")
	}

	c.SetVisible(true)
	sched.Advance(500 * time.Millisecond)
	if !g.Running() || viewOf(t, c).Phase <= 0 {
		t.Errorf("visible gear: running=%v phase=%v", g.Running(), viewOf(t, c).Phase)
	}

	c.SetVisible(false)
	phase := viewOf(t, c).Phase
	sched.Advance(500 * time.Millisecond)
	if g.Running() || viewOf(t, c).Phase != phase {
		t.Error("hidden gear kept ticking")
	}
	if sched.PendingFrames() != 0 {
		t.Errorf("pending frames after hide = %d", sched.PendingFrames())
	}
}
