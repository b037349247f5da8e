/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package spin

import (
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

type recorder struct {
	events []Event
}

func (r *recorder) listen(ev Event) {
	r.events = append(r.events, ev)
}

func (r *recorder) count(kind EventKind) int {
	n := 0
	for _, ev := range r.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

func (r *recorder) phases() []Phase {
	var out []Phase
	for _, ev := range r.events {
		if ev.Kind == EventPhase {
			out = append(out, ev.Phase)
		}
	}
	return out
}

func (r *recorder) last(kind EventKind) (Event, bool) {
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Kind == kind {
			return r.events[i], true
		}
	}
	return Event{}, false
}

func newTestEngine() (*Engine, *ManualScheduler, *recorder) {
	sched := NewManualScheduler()
	rec := &recorder{}
	e := New(sched,
		WithRandom(&sequenceRandom{values: []float64{0, 0.125}}),
		WithListener(rec.listen),
	)
	return e, sched, rec
}

func testRequest() Request {
	return Request{
		Profile:  Profile{Name: "test", MinSpins: 3, MaxSpins: 4},
		Duration: 2 * time.Second,
		Curve:    "ease-out",
	}
}

func TestEngineLifecycle(t *testing.T) {
	Convey("Given an idle engine", t, func() {
		e, sched, rec := newTestEngine()

		So(e.Phase(), ShouldEqual, Idle)
		So(e.Highlight(), ShouldEqual, -1)

		Convey("When a spin starts", func() {
			outcome, err := e.Spin(fourNames, testRequest())

			Convey("Then the outcome is fixed immediately but not revealed", func() {
				So(err, ShouldBeNil)
				So(outcome.WinningIndex, ShouldEqual, 3)
				So(e.Phase(), ShouldEqual, Spinning)
				So(e.Busy(), ShouldBeTrue)
				So(e.Rotation(), ShouldEqual, 0.0)

				ev, ok := rec.last(EventPhase)
				So(ok, ShouldBeTrue)
				So(ev.Request.Curve, ShouldEqual, "ease-out")
			})

			Convey("And a second spin is rejected", func() {
				_, err := e.Spin(fourNames, testRequest())
				So(errors.Is(err, ErrAlreadySpinning), ShouldBeTrue)
				So(e.Phase(), ShouldEqual, Spinning)
			})

			Convey("And cosmetic ticks run until the duration elapses", func() {
				sched.Advance(time.Second)

				So(e.Phase(), ShouldEqual, Spinning)
				So(rec.count(EventHighlight), ShouldEqual, 10)
				So(rec.count(EventProgress), ShouldEqual, 20)
				So(rec.count(EventReveal), ShouldEqual, 0)

				progress, _ := rec.last(EventProgress)
				So(progress.Progress, ShouldAlmostEqual, 0.5, 1e-9)
			})

			Convey("And the duration timer resolves the spin", func() {
				sched.Advance(2 * time.Second)

				So(e.Phase(), ShouldEqual, Resolving)
				So(e.Rotation(), ShouldEqual, 1125.0)
				So(e.Highlight(), ShouldEqual, 3)

				reveal, ok := rec.last(EventReveal)
				So(ok, ShouldBeTrue)
				So(reveal.Winner, ShouldEqual, "Diana")
				So(reveal.Outcome.TotalRotation, ShouldEqual, 1125.0)

				highlights := rec.count(EventHighlight)
				sched.Advance(400 * time.Millisecond)
				So(rec.count(EventHighlight), ShouldEqual, highlights)
				So(e.Phase(), ShouldEqual, Resolving)
				So(rec.count(EventAnnounce), ShouldEqual, 0)

				Convey("And the settle delay announces exactly once", func() {
					sched.Advance(100 * time.Millisecond)

					So(e.Phase(), ShouldEqual, Announcing)
					So(rec.count(EventAnnounce), ShouldEqual, 1)
					So(rec.count(EventConfettiStart), ShouldEqual, 1)

					winner, index, ok := e.Winner()
					So(ok, ShouldBeTrue)
					So(winner, ShouldEqual, "Diana")
					So(index, ShouldEqual, 3)

					sched.Advance(10 * time.Second)
					So(rec.count(EventAnnounce), ShouldEqual, 1)
					So(rec.count(EventConfettiEnd), ShouldEqual, 1)
					So(e.Phase(), ShouldEqual, Announcing)
					So(sched.Pending(), ShouldEqual, 0)
				})
			})

			Convey("And the phases follow the lifecycle order", func() {
				sched.Advance(3 * time.Second)

				So(rec.phases(), ShouldResemble, []Phase{Spinning, Resolving, Announcing})
			})
		})

		Convey("When spinning with too few names", func() {
			_, err := e.Spin([]string{"Solo"}, testRequest())

			Convey("Then the spin is rejected and nothing changes", func() {
				So(errors.Is(err, ErrInsufficientSegments), ShouldBeTrue)
				So(e.Phase(), ShouldEqual, Idle)
				So(rec.events, ShouldBeEmpty)
				So(sched.Pending(), ShouldEqual, 0)
			})
		})

		Convey("When the request is invalid", func() {
			req := testRequest()
			req.Duration = 0
			_, errDuration := e.Spin(fourNames, req)

			req = testRequest()
			req.Profile.MinSpins = 0
			_, errProfile := e.Spin(fourNames, req)

			So(errors.Is(errDuration, ErrInvalidDuration), ShouldBeTrue)
			So(errors.Is(errProfile, ErrInvalidProfile), ShouldBeTrue)
			So(e.Phase(), ShouldEqual, Idle)
		})
	})
}

func TestEngineSpinAgain(t *testing.T) {
	Convey("Given an engine announcing a winner", t, func() {
		e, sched, rec := newTestEngine()

		_, err := e.Spin(fourNames, testRequest())
		So(err, ShouldBeNil)
		sched.Advance(3 * time.Second)
		So(e.Phase(), ShouldEqual, Announcing)

		first := e.Rotation()

		Convey("When the names are mutated and spun again", func() {
			names := []string{"Eve", "Frank", "Grace"}
			outcome, err := e.Spin(names, testRequest())

			Convey("Then the announcement clears and the rotation keeps accumulating", func() {
				So(err, ShouldBeNil)
				So(e.Phase(), ShouldEqual, Spinning)
				So(outcome.TotalRotation, ShouldBeGreaterThan, first)

				phases := rec.phases()
				So(phases[len(phases)-2:], ShouldResemble, []Phase{Idle, Spinning})

				sched.Advance(3 * time.Second)
				winner, _, ok := e.Winner()
				So(ok, ShouldBeTrue)
				So(names, ShouldContain, winner)
				So(rec.count(EventAnnounce), ShouldEqual, 2)
			})
		})

		Convey("When a spin again is attempted with one name", func() {
			_, err := e.Spin([]string{"Solo"}, testRequest())

			Convey("Then the current announcement stays", func() {
				So(errors.Is(err, ErrInsufficientSegments), ShouldBeTrue)
				So(e.Phase(), ShouldEqual, Announcing)
			})
		})
	})
}

func TestEngineReset(t *testing.T) {
	Convey("Given an idle engine", t, func() {
		e, _, rec := newTestEngine()

		Convey("When reset twice", func() {
			e.Reset()
			once := *e
			e.Reset()

			Convey("Then the state matches a single reset and no events fire", func() {
				So(e.Phase(), ShouldEqual, once.Phase())
				So(e.Rotation(), ShouldEqual, once.Rotation())
				So(e.Highlight(), ShouldEqual, once.Highlight())
				So(rec.events, ShouldBeEmpty)
			})
		})
	})

	Convey("Given a spin in flight", t, func() {
		e, sched, rec := newTestEngine()

		_, err := e.Spin(fourNames, testRequest())
		So(err, ShouldBeNil)
		sched.Advance(time.Second)

		Convey("When reset before the duration elapses", func() {
			e.Reset()

			Convey("Then every timer is cancelled and no winner is announced", func() {
				So(e.Phase(), ShouldEqual, Idle)
				So(e.Highlight(), ShouldEqual, -1)
				So(e.Rotation(), ShouldEqual, 0.0)
				So(sched.Pending(), ShouldEqual, 0)

				ticks := rec.count(EventHighlight) + rec.count(EventProgress)
				sched.Advance(time.Minute)

				So(rec.count(EventReveal), ShouldEqual, 0)
				So(rec.count(EventAnnounce), ShouldEqual, 0)
				So(rec.count(EventHighlight)+rec.count(EventProgress), ShouldEqual, ticks)
				So(rec.count(EventReset), ShouldEqual, 1)
			})

			Convey("And a new spin can start", func() {
				_, err := e.Spin(fourNames, testRequest())
				So(err, ShouldBeNil)
				So(e.Phase(), ShouldEqual, Spinning)
			})
		})

		Convey("When reset while resolving", func() {
			sched.Advance(1100 * time.Millisecond)
			So(e.Phase(), ShouldEqual, Resolving)

			e.Reset()
			sched.Advance(time.Minute)

			So(e.Phase(), ShouldEqual, Idle)
			So(rec.count(EventAnnounce), ShouldEqual, 0)
		})
	})

	Convey("Given an announced winner", t, func() {
		e, sched, rec := newTestEngine()

		_, err := e.Spin(fourNames, testRequest())
		So(err, ShouldBeNil)
		sched.Advance(3 * time.Second)

		e.Reset()

		Convey("Then the rotation is zeroed and the winner cleared", func() {
			So(e.Phase(), ShouldEqual, Idle)
			So(e.Rotation(), ShouldEqual, 0.0)
			_, _, ok := e.Winner()
			So(ok, ShouldBeFalse)

			Convey("And confetti still expires on its own", func() {
				sched.Advance(5 * time.Second)
				So(rec.count(EventConfettiEnd), ShouldEqual, 1)
			})
		})
	})
}

func TestEngineClose(t *testing.T) {
	Convey("Given an engine with confetti running", t, func() {
		e, sched, rec := newTestEngine()

		_, err := e.Spin(fourNames, testRequest())
		So(err, ShouldBeNil)
		sched.Advance(3 * time.Second)

		Convey("When closed twice", func() {
			e.Close()
			e.Close()

			Convey("Then nothing stays scheduled and spins are refused", func() {
				So(sched.Pending(), ShouldEqual, 0)

				sched.Advance(time.Minute)
				So(rec.count(EventConfettiEnd), ShouldEqual, 0)

				_, err := e.Spin(fourNames, testRequest())
				So(errors.Is(err, ErrEngineClosed), ShouldBeTrue)
			})
		})
	})
}

func TestPhaseString(t *testing.T) {
	Convey("Phases and event kinds have stable names", t, func() {
		So(Idle.String(), ShouldEqual, "idle")
		So(Spinning.String(), ShouldEqual, "spinning")
		So(Resolving.String(), ShouldEqual, "resolving")
		So(Announcing.String(), ShouldEqual, "announcing")
		So(EventConfettiStart.String(), ShouldEqual, "confetti_start")
	})
}
