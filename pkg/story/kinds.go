package story

import (
	"fmt"
	"sort"
	"time"

	"github.com/vanderheijden86/storyreel/pkg/anim"
	"github.com/vanderheijden86/storyreel/pkg/debug"
	"github.com/vanderheijden86/storyreel/pkg/flip"
)

// Kind selects the strategy a card definition is bound to.
type Kind string

const (
	KindCaption   Kind = "caption"
	KindFlip      Kind = "flip"
	KindReveal    Kind = "reveal"
	KindCrossfade Kind = "crossfade"
	KindFade      Kind = "fade"
	KindGear      Kind = "gear"
)

// Durations of the reveal stages.
const (
	revealHide = 300 * time.Millisecond
	revealShow = 700 * time.Millisecond
)

// Illustration is a loaded piece of card art.
type Illustration struct {
	Name  string
	Lines []string
}

// Key implements flip.Content.
func (i Illustration) Key() string { return i.Name }

// View is what a renderer needs to draw a card at the current instant.
type View struct {
	Captions     []*CaptionSlot
	Illustration *flip.Switcher // nil for caption-only cards
	Reveal       float64        // fraction of illustration lines shown
	Phase        float64        // continuous effect phase, -1 when none
}

// Viewer is implemented by strategies that can be rendered.
type Viewer interface {
	View() View
}

// Factory builds a strategy from a card definition.
type Factory func(def CardDef, env Env) (Strategy, error)

// Registry maps card kinds to factories.
type Registry struct {
	factories map[Kind]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[Kind]Factory)}
}

// DefaultRegistry returns a registry with every built-in kind.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(KindCaption, func(def CardDef, env Env) (Strategy, error) {
		return newScripted(def, env, illusNone)
	})
	r.Register(KindFlip, func(def CardDef, env Env) (Strategy, error) {
		return newScripted(def, env, illusFlip)
	})
	r.Register(KindReveal, func(def CardDef, env Env) (Strategy, error) {
		return newScripted(def, env, illusReveal)
	})
	r.Register(KindCrossfade, func(def CardDef, env Env) (Strategy, error) {
		return newScripted(def, env, illusCrossfade)
	})
	r.Register(KindFade, func(def CardDef, env Env) (Strategy, error) {
		return newScripted(def, env, illusFade)
	})
	r.Register(KindGear, func(def CardDef, env Env) (Strategy, error) {
		s, err := newScripted(def, env, illusFlip)
		if err != nil {
			return nil, err
		}
		return newGear(s, env, def.Period), nil
	})
	return r
}

// Register binds a kind to a factory, replacing any previous binding.
func (r *Registry) Register(k Kind, f Factory) {
	r.factories[k] = f
}

// Kinds lists the registered kinds in order.
func (r *Registry) Kinds() []Kind {
	out := make([]Kind, 0, len(r.factories))
	for k := range r.factories {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Build creates the strategy for def. An empty kind means KindCaption.
func (r *Registry) Build(def CardDef, env Env) (Strategy, error) {
	kind := def.Kind
	if kind == "" {
		kind = KindCaption
	}
	f, ok := r.factories[kind]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownKind, kind)
	}
	return f(def, env)
}

type illusMode int

const (
	illusNone illusMode = iota
	illusFlip
	illusReveal
	illusCrossfade
	illusFade
)

// scripted plays the steps of a card definition: every step slides its
// caption and, depending on the mode, swaps the illustration.
type scripted struct {
	steps  []StepDef
	mode   illusMode
	easing anim.Easing
	assets AssetLoader

	slider   *CaptionSlider
	switcher *flip.Switcher
	reveal   *anim.Float
}

func newScripted(def CardDef, env Env, mode illusMode) (*scripted, error) {
	e, err := def.easing()
	if err != nil {
		return nil, err
	}
	s := &scripted{
		steps:  def.Steps,
		mode:   mode,
		easing: e,
		assets: env.Assets,
		slider: NewCaptionSlider(e),
		reveal: anim.NewFloat(1),
	}
	if mode != illusNone {
		s.switcher = flip.New()
		s.switcher.SetEasing(e)
	}
	return s, nil
}

func (s *scripted) Caption(step int) (Caption, bool) {
	if step < 1 || step > len(s.steps) {
		return Caption{}, false
	}
	st := s.steps[step-1]
	return Caption{Text: st.Caption, URL: st.URL}, true
}

func (s *scripted) PrepareTransition(step int, dir Direction, tr *anim.Transition) {
	caption, ok := s.Caption(step)
	if !ok {
		return
	}
	s.slider.Prepare(caption, dir, tr)
	if s.switcher == nil {
		return
	}

	name := s.steps[step-1].Illustration
	if name == "" {
		return
	}
	ill := s.load(name)

	// nothing displayed yet: show the art directly
	if s.switcher.Displayed() == nil && s.switcher.Visible() == nil {
		s.switcher.ChangeContent(ill)
		return
	}

	switch s.mode {
	case illusFlip:
		s.switcher.FlipToNewContent(ill, tr)
	case illusCrossfade:
		if !sameKey(s.switcher.Visible(), ill) {
			s.switcher.PerformFadingTransition(ill, tr, true)
		}
	case illusFade:
		if !sameKey(s.switcher.Visible(), ill) {
			s.switcher.PerformFadingTransition(ill, tr, false)
		}
	case illusReveal:
		if sameKey(s.switcher.Visible(), ill) {
			return
		}
		anim.NewSequence(
			anim.Stage{
				Name:      "hide",
				Keyframes: []anim.Keyframe{{Target: s.reveal, End: 0, Easing: s.easing}},
				Duration:  revealHide,
			},
			anim.Stage{
				Name:      "show",
				Before:    func() { s.switcher.ChangeContent(ill) },
				Keyframes: []anim.Keyframe{{Target: s.reveal, End: 1, Easing: s.easing}},
				Duration:  revealShow,
			},
		).Program(tr)
	}
}

func (s *scripted) load(name string) Illustration {
	ill := Illustration{Name: name}
	if s.assets == nil {
		return ill
	}
	h, err := s.assets.Load(name)
	if err != nil {
		debug.Log("story: illustration %s: %v", name, err)
		return ill
	}
	ill.Lines = h.Lines()
	return ill
}

func (s *scripted) View() View {
	return View{
		Captions:     s.slider.Slots(),
		Illustration: s.switcher,
		Reveal:       s.reveal.Get(),
		Phase:        -1,
	}
}

// Illustrations returns the distinct illustration names used by the card.
func (s *scripted) Illustrations() []string {
	var out []string
	for _, st := range s.steps {
		if st.Illustration != "" {
			out = append(out, st.Illustration)
		}
	}
	return out
}

// gear adds a continuously rotating effect that runs only while visible.
type gear struct {
	*scripted
	loop  *anim.Loop
	phase float64
}

func newGear(s *scripted, env Env, period time.Duration) *gear {
	g := &gear{scripted: s}
	if period <= 0 {
		period = 2 * time.Second
	}
	g.loop = anim.NewLoop(env.Scheduler, period, func(p float64) { g.phase = p })
	return g
}

func (g *gear) SetVisible(visible bool) {
	if visible {
		g.loop.Start()
	} else {
		g.loop.Stop()
	}
}

// Running reports whether the effect loop is ticking.
func (g *gear) Running() bool { return g.loop.Running() }

func (g *gear) View() View {
	v := g.scripted.View()
	v.Phase = g.phase
	return v
}

func sameKey(a, b flip.Content) bool {
	if a == nil || b == nil {
		return false
	}
	return a.Key() == b.Key()
}
