/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package spin implements the wheel's spin engine: the outcome calculation
// and the lifecycle that reveals it.
//
// An outcome is decided the moment a spin starts; the lifecycle only
// animates its reveal:
//
//	Idle -> Spinning -> Resolving -> Announcing -> Idle
//
// An Engine is not safe for concurrent use. It must be driven from a single
// goroutine, and its Scheduler must deliver callbacks on that same goroutine.
package spin

import (
	"fmt"
	"slices"
	"time"
)

// Phase is the lifecycle state of an Engine.
type Phase int

const (
	Idle Phase = iota
	Spinning
	Resolving
	Announcing
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Spinning:
		return "spinning"
	case Resolving:
		return "resolving"
	case Announcing:
		return "announcing"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// EventKind tags lifecycle events.
type EventKind int

const (
	EventPhase EventKind = iota
	EventHighlight
	EventProgress
	EventReveal
	EventAnnounce
	EventConfettiStart
	EventConfettiEnd
	EventReset
)

func (k EventKind) String() string {
	switch k {
	case EventPhase:
		return "phase"
	case EventHighlight:
		return "highlight"
	case EventProgress:
		return "progress"
	case EventReveal:
		return "reveal"
	case EventAnnounce:
		return "announce"
	case EventConfettiStart:
		return "confetti_start"
	case EventConfettiEnd:
		return "confetti_end"
	case EventReset:
		return "reset"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event is emitted to the Listener on every transition and cosmetic tick.
// Only the fields relevant to Kind are set.
type Event struct {
	Kind      EventKind
	Phase     Phase
	Request   Request
	Highlight int
	Progress  float64
	Outcome   Outcome
	Winner    string
}

// Listener receives events synchronously on the engine's goroutine.
type Listener func(Event)

// Request is read once when a spin starts.
type Request struct {
	Profile  Profile
	Duration time.Duration
	Curve    string
}

// Validate checks the request can drive a spin.
func (r Request) Validate() error {
	if r.Duration <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidDuration, r.Duration)
	}
	return r.Profile.Validate()
}

// Engine runs one wheel's spins, one at a time.
type Engine struct {
	scheduler Scheduler
	random    Random
	timing    Timing
	listener  Listener

	phase     Phase
	rotation  float64
	names     []string
	request   Request
	outcome   *Outcome
	highlight int
	elapsed   time.Duration
	closed    bool

	duration    Timer
	highlighter Timer
	progress    Timer
	settle      Timer
	confetti    Timer
}

// New returns an idle engine driven by s.
func New(s Scheduler, opts ...Option) *Engine {
	e := &Engine{
		scheduler: s,
		random:    NewRandom(),
		timing:    DefaultTiming(),
		highlight: -1,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Phase returns the current lifecycle phase.
func (e *Engine) Phase() Phase { return e.phase }

// Rotation returns the revealed rotation accumulated across spins. An
// in-flight rotation is not visible until the spin resolves.
func (e *Engine) Rotation() float64 { return e.rotation }

// Highlight returns the highlighted segment, or -1 for none.
func (e *Engine) Highlight() int { return e.highlight }

// Busy reports whether a spin is in flight, during which the name list
// must not change.
func (e *Engine) Busy() bool {
	return e.phase == Spinning || e.phase == Resolving
}

// Winner returns the announced winner, if any.
func (e *Engine) Winner() (string, int, bool) {
	if e.phase != Announcing || e.outcome == nil {
		return "", -1, false
	}
	return e.names[e.outcome.WinningIndex], e.outcome.WinningIndex, true
}

func (e *Engine) emit(ev Event) {
	if e.listener != nil {
		e.listener(ev)
	}
}

func (e *Engine) setPhase(p Phase) {
	e.phase = p

	ev := Event{Kind: EventPhase, Phase: p, Highlight: e.highlight}
	if p == Spinning {
		ev.Request = e.request
	}
	e.emit(ev)
}

func stop(t *Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}

func (e *Engine) stopLifecycleTimers() {
	stop(&e.duration)
	stop(&e.highlighter)
	stop(&e.progress)
	stop(&e.settle)
}

// Spin starts a spin over names. The outcome is fixed before Spin returns;
// callers should keep it hidden until the engine reveals it. Starting a spin
// while a winner is announced clears the announcement first and keeps the
// accumulated rotation.
func (e *Engine) Spin(names []string, req Request) (Outcome, error) {
	if e.closed {
		return Outcome{}, ErrEngineClosed
	}
	if e.Busy() {
		return Outcome{}, ErrAlreadySpinning
	}
	if len(names) < 2 {
		return Outcome{}, fmt.Errorf("%w: have %d", ErrInsufficientSegments, len(names))
	}
	if err := req.Validate(); err != nil {
		return Outcome{}, err
	}

	outcome, err := ComputeOutcome(e.rotation, req.Profile, len(names), e.random)
	if err != nil {
		return Outcome{}, err
	}

	if e.phase == Announcing {
		e.outcome = nil
		e.names = nil
		e.highlight = -1
		e.setPhase(Idle)
	}

	e.names = slices.Clone(names)
	e.request = req
	e.outcome = &outcome
	e.elapsed = 0

	e.setPhase(Spinning)

	e.duration = e.scheduler.After(req.Duration, e.resolve)
	e.highlighter = e.scheduler.Every(e.timing.Highlight, e.highlightTick)
	e.progress = e.scheduler.Every(e.timing.Progress, e.progressTick)

	return outcome, nil
}

func (e *Engine) highlightTick() {
	if e.phase != Spinning {
		return
	}

	n := len(e.names)
	e.highlight = max(0, min(int(e.random.Float64()*float64(n)), n-1))

	e.emit(Event{Kind: EventHighlight, Phase: e.phase, Highlight: e.highlight})
}

func (e *Engine) progressTick() {
	if e.phase != Spinning {
		return
	}

	e.elapsed += e.timing.Progress
	fraction := min(1, float64(e.elapsed)/float64(e.request.Duration))

	e.emit(Event{Kind: EventProgress, Phase: e.phase, Progress: fraction})
}

func (e *Engine) resolve() {
	e.duration = nil
	if e.phase != Spinning || e.outcome == nil {
		return
	}

	stop(&e.highlighter)
	stop(&e.progress)

	e.rotation = e.outcome.TotalRotation
	e.highlight = e.outcome.WinningIndex
	e.setPhase(Resolving)

	e.emit(Event{
		Kind:      EventReveal,
		Phase:     Resolving,
		Highlight: e.highlight,
		Outcome:   *e.outcome,
		Winner:    e.names[e.outcome.WinningIndex],
	})

	e.settle = e.scheduler.After(e.timing.Settle, e.announce)
}

func (e *Engine) announce() {
	e.settle = nil
	if e.phase != Resolving || e.outcome == nil {
		return
	}

	e.setPhase(Announcing)

	e.emit(Event{
		Kind:      EventAnnounce,
		Phase:     Announcing,
		Highlight: e.highlight,
		Outcome:   *e.outcome,
		Winner:    e.names[e.outcome.WinningIndex],
	})

	e.startConfetti()
}

func (e *Engine) startConfetti() {
	stop(&e.confetti)

	e.emit(Event{Kind: EventConfettiStart, Phase: e.phase})

	e.confetti = e.scheduler.After(e.timing.Confetti, func() {
		e.confetti = nil
		e.emit(Event{Kind: EventConfettiEnd, Phase: e.phase})
	})
}

// Reset cancels any in-flight spin without announcing it, clears the winner
// and zeroes the rotation. Resetting an idle, zeroed engine does nothing.
// Confetti is left to expire on its own.
func (e *Engine) Reset() {
	e.stopLifecycleTimers()

	if e.phase == Idle && e.rotation == 0 && e.outcome == nil {
		return
	}

	e.phase = Idle
	e.rotation = 0
	e.outcome = nil
	e.names = nil
	e.highlight = -1
	e.elapsed = 0

	e.emit(Event{Kind: EventReset, Phase: Idle, Highlight: -1})
}

// Close tears the engine down, cancelling every timer. It is idempotent.
func (e *Engine) Close() {
	if e.closed {
		return
	}

	e.Reset()
	stop(&e.confetti)
	e.closed = true
}
