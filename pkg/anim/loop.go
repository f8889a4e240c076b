package anim

import "time"

// Loop is a continuous effect, such as a rotating gear, that advances a phase
// in [0, 1) every frame until stopped. Whoever starts a Loop must stop it when
// the content is no longer visible; nothing else will.
type Loop struct {
	sched  Scheduler
	period time.Duration
	onTick func(phase float64)

	running bool
	gen     uint64
	origin  time.Time
	hasOrig bool
	phase   float64
}

// NewLoop creates a stopped loop that completes one cycle every period.
func NewLoop(sched Scheduler, period time.Duration, onTick func(phase float64)) *Loop {
	if period <= 0 {
		period = time.Second
	}
	return &Loop{sched: sched, period: period, onTick: onTick}
}

// Start begins ticking. Starting a running loop has no effect.
func (l *Loop) Start() {
	if l.running {
		return
	}
	l.running = true
	l.gen++
	l.hasOrig = false
	gen := l.gen
	l.sched.RequestFrame(func(now time.Time) { l.tick(gen, now) })
}

// Stop halts the loop; the phase is kept so a restart continues smoothly.
func (l *Loop) Stop() {
	l.running = false
	l.gen++
}

// Running reports whether the loop is ticking.
func (l *Loop) Running() bool { return l.running }

// Phase returns the last phase delivered.
func (l *Loop) Phase() float64 { return l.phase }

func (l *Loop) tick(gen uint64, now time.Time) {
	if gen != l.gen || !l.running {
		return
	}
	if !l.hasOrig {
		// resume from the stored phase
		l.origin = now.Add(-time.Duration(l.phase * float64(l.period)))
		l.hasOrig = true
	}
	elapsed := now.Sub(l.origin) % l.period
	l.phase = float64(elapsed) / float64(l.period)
	if l.onTick != nil {
		l.onTick(l.phase)
	}
	l.sched.RequestFrame(func(now time.Time) { l.tick(gen, now) })
}
