package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// DefaultFPS is the frame rate used when none is configured.
const DefaultFPS = 30

// frameMsg delivers one animation frame.
type frameMsg struct {
	at time.Time
}

// timerMsg fires a callback registered with After.
type timerMsg struct {
	id uint64
}

// TickScheduler implements anim.Scheduler on top of bubbletea: requested
// frames and delayed callbacks are queued, turned into tea.Tick commands by
// Cmd, and run inside Update by Handle. Everything happens on the program's
// update goroutine, so the core never sees concurrent callbacks.
type TickScheduler struct {
	interval time.Duration

	frames []func(time.Time)
	armed  bool // a frame tick is in flight

	timers  map[uint64]func()
	nextID  uint64
	pending []tea.Cmd
}

// NewTickScheduler returns a scheduler delivering frames at fps.
func NewTickScheduler(fps int) *TickScheduler {
	if fps <= 0 {
		fps = DefaultFPS
	}
	return &TickScheduler{
		interval: time.Second / time.Duration(fps),
		timers:   make(map[uint64]func()),
	}
}

// Interval returns the time between frames.
func (s *TickScheduler) Interval() time.Duration { return s.interval }

func (s *TickScheduler) RequestFrame(fn func(now time.Time)) {
	s.frames = append(s.frames, fn)
}

func (s *TickScheduler) After(d time.Duration, fn func()) {
	s.nextID++
	id := s.nextID
	s.timers[id] = fn
	s.pending = append(s.pending, tea.Tick(d, func(time.Time) tea.Msg {
		return timerMsg{id: id}
	}))
}

// Busy reports whether frames or timers are outstanding.
func (s *TickScheduler) Busy() bool {
	return len(s.frames) > 0 || len(s.timers) > 0
}

// Cmd returns the commands needed to deliver everything queued since the
// last call, or nil when there is nothing to wait for.
func (s *TickScheduler) Cmd() tea.Cmd {
	cmds := s.pending
	s.pending = nil
	if len(s.frames) > 0 && !s.armed {
		s.armed = true
		cmds = append(cmds, tea.Tick(s.interval, func(t time.Time) tea.Msg {
			return frameMsg{at: t}
		}))
	}
	switch len(cmds) {
	case 0:
		return nil
	case 1:
		return cmds[0]
	default:
		return tea.Batch(cmds...)
	}
}

// Handle runs the callbacks a scheduler message stands for. It reports
// whether msg belonged to the scheduler.
func (s *TickScheduler) Handle(msg tea.Msg) bool {
	switch msg := msg.(type) {
	case frameMsg:
		s.armed = false
		frames := s.frames
		s.frames = nil
		for _, fn := range frames {
			fn(msg.at)
		}
		return true
	case timerMsg:
		fn, ok := s.timers[msg.id]
		if !ok {
			return true
		}
		delete(s.timers, msg.id)
		fn()
		return true
	}
	return false
}
