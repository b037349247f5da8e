/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package spin

import "time"

// Default lifecycle cadences.
const (
	defaultHighlightEvery = 100 * time.Millisecond
	defaultProgressEvery  = 50 * time.Millisecond
	defaultSettleDelay    = 500 * time.Millisecond
	defaultConfettiWindow = 5 * time.Second
)

// Timing holds the fixed cadences of the lifecycle. Zero fields fall back to
// the defaults.
type Timing struct {
	Highlight time.Duration
	Progress  time.Duration
	Settle    time.Duration
	Confetti  time.Duration
}

// DefaultTiming returns the standard cadences.
func DefaultTiming() Timing {
	return Timing{
		Highlight: defaultHighlightEvery,
		Progress:  defaultProgressEvery,
		Settle:    defaultSettleDelay,
		Confetti:  defaultConfettiWindow,
	}
}

func (t Timing) withDefaults() Timing {
	d := DefaultTiming()
	if t.Highlight <= 0 {
		t.Highlight = d.Highlight
	}
	if t.Progress <= 0 {
		t.Progress = d.Progress
	}
	if t.Settle <= 0 {
		t.Settle = d.Settle
	}
	if t.Confetti <= 0 {
		t.Confetti = d.Confetti
	}
	return t
}

// Option configures an Engine.
type Option func(*Engine)

// WithTiming overrides the lifecycle cadences.
func WithTiming(t Timing) Option {
	return func(e *Engine) {
		e.timing = t.withDefaults()
	}
}

// WithRandom injects the random source used for outcomes and highlights.
func WithRandom(r Random) Option {
	return func(e *Engine) {
		if r != nil {
			e.random = r
		}
	}
}

// WithListener registers the function receiving lifecycle events.
func WithListener(l Listener) Option {
	return func(e *Engine) {
		e.listener = l
	}
}
