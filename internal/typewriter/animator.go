package typewriter

import (
	"math/rand"
	"sync"
	"time"
)

// Config tunes an Animator. Delays are drawn uniformly from [MinDelay, MaxDelay).
type Config struct {
	MinDelay time.Duration
	MaxDelay time.Duration

	// Loop restarts the script LoopPause after it completes.
	Loop      bool
	LoopPause time.Duration

	// CaretWhenDone keeps the caret visible once the script is complete.
	CaretWhenDone bool
}

// Once is the home page terminal: types once, then hides the caret.
func Once() Config {
	return Config{
		MinDelay: 60 * time.Millisecond,
		MaxDelay: 100 * time.Millisecond,
	}
}

// Looping types the script, pauses, and starts over. The caret never hides.
func Looping() Config {
	return Config{
		MinDelay:      50 * time.Millisecond,
		MaxDelay:      100 * time.Millisecond,
		Loop:          true,
		LoopPause:     3 * time.Second,
		CaretWhenDone: true,
	}
}

// Timer is a pending single-shot callback.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Option configures an Animator.
type Option func(*Animator)

// WithScheduler replaces the wall-clock scheduler.
func WithScheduler(s Scheduler) Option {
	return func(a *Animator) { a.sched = s }
}

// WithRand replaces the source of the uniform delay fraction in [0,1).
func WithRand(f func() float64) Option {
	return func(a *Animator) { a.rand = f }
}

// Animator drives Advance from a single pending timer.
type Animator struct {
	script Script
	cfg    Config
	render func(Frame)
	sched  Scheduler
	rand   func() float64

	// emitMu is held for a whole callback, from state change through render
	// to arming the next timer, so frames are delivered one at a time and in
	// order.
	emitMu sync.Mutex

	mu      sync.Mutex
	state   State
	timer   Timer
	started bool
	stopped bool

	done     chan struct{}
	doneOnce sync.Once
}

// New builds an Animator for script. render receives every frame, one call at
// a time; the next step is not scheduled until it returns. render must not
// call Stop.
func New(script Script, cfg Config, render func(Frame), opts ...Option) *Animator {
	if cfg.MaxDelay < cfg.MinDelay {
		cfg.MaxDelay = cfg.MinDelay
	}
	if render == nil {
		render = func(Frame) {}
	}
	a := &Animator{
		script: append(Script(nil), script...),
		cfg:    cfg,
		render: render,
		sched:  realScheduler{},
		rand:   rand.Float64,
		state:  Initial(),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Start emits the initial frame and schedules the first step. Calling it again
// is a no-op.
func (a *Animator) Start() {
	a.emitMu.Lock()
	defer a.emitMu.Unlock()

	a.mu.Lock()
	if a.started || a.stopped {
		a.mu.Unlock()
		return
	}
	a.started = true
	frame := Render(a.state, a.script, a.cfg)
	a.mu.Unlock()

	a.render(frame)
	a.next()
}

// Stop cancels the pending timer and waits for a frame being delivered. No
// state change or frame happens after it returns.
func (a *Animator) Stop() {
	a.mu.Lock()
	a.stopped = true
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.mu.Unlock()

	// wait out a frame being delivered
	a.emitMu.Lock()
	a.emitMu.Unlock()
	a.finish()
}

// Done is closed when the script completes without looping, or on Stop.
func (a *Animator) Done() <-chan struct{} {
	return a.done
}

// State returns a copy of the current state.
func (a *Animator) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.Clone()
}

// Frame renders the current state.
func (a *Animator) Frame() Frame {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Render(a.state, a.script, a.cfg)
}

func (a *Animator) step() {
	a.transition(func(s State) State { return Advance(s, a.script) })
}

func (a *Animator) reset() {
	a.transition(func(State) State { return Initial() })
}

// transition applies f, emits the resulting frame and then arms the next
// timer. It does nothing once the animator is stopped.
func (a *Animator) transition(f func(State) State) {
	a.emitMu.Lock()
	defer a.emitMu.Unlock()

	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return
	}
	a.timer = nil
	a.state = f(a.state)
	frame := Render(a.state, a.script, a.cfg)
	a.mu.Unlock()

	a.render(frame)
	a.next()
}

// next schedules whatever follows the frame just emitted, or finishes.
func (a *Animator) next() {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return
	}
	finished := a.scheduleLocked()
	a.mu.Unlock()
	if finished {
		a.finish()
	}
}

// scheduleLocked arms exactly one timer for whatever comes next. It reports
// true when nothing is left to schedule.
func (a *Animator) scheduleLocked() bool {
	if !a.state.Terminal(a.script) {
		a.timer = a.sched.AfterFunc(a.delay(), a.step)
		return false
	}
	if a.cfg.Loop {
		a.timer = a.sched.AfterFunc(a.cfg.LoopPause, a.reset)
		return false
	}
	return true
}

func (a *Animator) delay() time.Duration {
	span := a.cfg.MaxDelay - a.cfg.MinDelay
	if span <= 0 {
		return a.cfg.MinDelay
	}
	return a.cfg.MinDelay + time.Duration(a.rand()*float64(span))
}

func (a *Animator) finish() {
	a.doneOnce.Do(func() { close(a.done) })
}
