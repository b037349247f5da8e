/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/gdamore/tcell/v2"

	"github.com/Seednode/namewheel/spin"
)

const terminalHelp = "space: spin  r: reset  q: quit"

var terminalPalette = []tcell.Color{
	tcell.ColorRed,
	tcell.ColorOrange,
	tcell.ColorYellow,
	tcell.ColorGreen,
	tcell.ColorTeal,
	tcell.ColorBlue,
	tcell.ColorPurple,
	tcell.ColorFuchsia,
}

// terminalWheel draws the wheel and name list onto a tcell screen. It only
// changes in response to engine events, plus the start of each spin.
type terminalWheel struct {
	screen tcell.Screen
	names  []string

	phase     spin.Phase
	highlight int
	rotation  float64
	from      float64
	to        float64
	progress  float64
	winner    string
	confetti  bool
	status    string
}

func newTerminalWheel(screen tcell.Screen, names []string) *terminalWheel {
	return &terminalWheel{
		screen:    screen,
		names:     names,
		highlight: -1,
	}
}

// start eases the drawn rotation towards target over the spin's progress.
func (t *terminalWheel) start(target float64) {
	t.from = t.rotation
	t.to = target
	t.progress = 0
}

func easeOut(p float64) float64 {
	return 1 - math.Pow(1-p, 3)
}

func (t *terminalWheel) onEvent(ev spin.Event) {
	switch ev.Kind {
	case spin.EventPhase:
		t.phase = ev.Phase
		if ev.Phase == spin.Spinning {
			t.winner = ""
			t.status = ""
		}
	case spin.EventHighlight:
		t.highlight = ev.Highlight
	case spin.EventProgress:
		t.progress = ev.Progress
		t.rotation = t.from + (t.to-t.from)*easeOut(ev.Progress)
	case spin.EventReveal:
		t.progress = 1
		t.rotation = ev.Outcome.TotalRotation
		t.highlight = ev.Outcome.WinningIndex
	case spin.EventAnnounce:
		t.winner = ev.Winner
		t.status = fmt.Sprintf("%s wins!", ev.Winner)
	case spin.EventConfettiStart:
		t.confetti = true
	case spin.EventConfettiEnd:
		t.confetti = false
	case spin.EventReset:
		t.phase = spin.Idle
		t.highlight = -1
		t.rotation, t.from, t.to = 0, 0, 0
		t.progress = 0
		t.winner = ""
		t.status = "Reset."
	}
}

// segmentAt returns the segment drawn at angle degrees clockwise from the top
// of the screen, given the current rotation.
func (t *terminalWheel) segmentAt(angle float64) int {
	return spin.WinningIndex(t.rotation-angle, len(t.names))
}

func putString(s tcell.Screen, x, y int, text string, style tcell.Style) {
	for _, r := range text {
		s.SetContent(x, y, r, nil, style)
		x++
	}
}

func (t *terminalWheel) draw() {
	s := t.screen
	s.Clear()

	w, h := s.Size()
	base := tcell.StyleDefault

	putString(s, 0, 0, "namewheel", base.Bold(true))

	radius := min((h-5)/2, w/6)
	cx, cy := radius*2+1, radius+2

	if len(t.names) > 0 && radius > 0 {
		s.SetContent(cx, cy-radius-1, '▼', nil, base.Bold(true))

		for y := cy - radius; y <= cy+radius; y++ {
			for x := cx - radius*2; x <= cx+radius*2; x++ {
				dx := float64(x-cx) / 2
				dy := float64(y - cy)
				if math.Hypot(dx, dy) > float64(radius) {
					continue
				}

				angle := math.Atan2(dx, -dy) * 180 / math.Pi
				i := t.segmentAt(angle)

				style := base.Background(terminalPalette[i%len(terminalPalette)])
				r := ' '
				if i == t.highlight {
					r = '▒'
				}
				s.SetContent(x, y, r, nil, style)
			}
		}
	}

	listX := cx + radius*2 + 4
	for i, name := range t.names {
		y := 2 + i
		if y >= h-2 {
			break
		}

		marker := "  "
		style := base.Foreground(terminalPalette[i%len(terminalPalette)])
		switch {
		case name == t.winner:
			marker = "* "
			style = style.Bold(true)
		case i == t.highlight:
			marker = "> "
		}
		putString(s, listX, y, marker+name, style)
	}

	status := t.phase.String()
	if t.phase == spin.Spinning {
		width := 20
		filled := int(t.progress * float64(width))
		status += " [" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
	}
	if t.status != "" {
		status += "  " + t.status
	}
	if t.confetti {
		status += "  *:・゜✧"
	}
	putString(s, 0, h-2, status, base)
	putString(s, 0, h-1, terminalHelp, base.Dim(true))

	s.Show()
}

// runTerminal spins names in the terminal until the user quits or ctx ends.
func runTerminal(ctx context.Context, cfg *Config, profiles map[string]spin.Profile, args []string) error {
	profile, ok := profiles[cfg.intensity]
	if !ok {
		return fmt.Errorf("unknown --intensity %q", cfg.intensity)
	}

	list := newNameList()
	if _, err := list.AddMany(args); err != nil && list.Len() == 0 {
		return fmt.Errorf("no names to spin: %w", err)
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()

	tasks := make(chan func())
	done := make(chan struct{})
	defer close(done)

	tw := newTerminalWheel(screen, list.Names())
	engine := spin.New(spin.NewLoopScheduler(tasks, done), spin.WithListener(tw.onEvent))
	defer engine.Close()

	events := make(chan tcell.Event)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-done:
				return
			}
		}
	}()

	request := spin.Request{
		Profile:  profile,
		Duration: cfg.spinDuration,
		Curve:    curves[0],
	}

	tw.draw()

	for {
		select {
		case <-ctx.Done():
			return nil

		case task := <-tasks:
			task()

		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventResize:
				screen.Sync()

			case *tcell.EventKey:
				switch {
				case ev.Key() == tcell.KeyEscape, ev.Key() == tcell.KeyCtrlC, ev.Rune() == 'q':
					return nil

				case ev.Key() == tcell.KeyEnter, ev.Rune() == ' ':
					outcome, err := engine.Spin(tw.names, request)
					if err != nil {
						tw.status = userMessage(err)
					} else {
						tw.start(outcome.TotalRotation)
					}

				case ev.Rune() == 'r':
					engine.Reset()
				}
			}
		}

		tw.draw()
	}
}
