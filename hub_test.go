/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"slices"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/Seednode/namewheel/spin"
)

type testHub struct {
	*Hub
	sched  *spin.ManualScheduler
	client *Client
}

func newTestHub() *testHub {
	sched := spin.NewManualScheduler()
	h := newHub(testConfig(), "Ab12Cd34", spin.DefaultProfiles(), newWheelMetrics(), sched)

	c := &Client{send: make(chan any, 1024), clientID: "test"}
	h.clients[c] = true

	return &testHub{Hub: h, sched: sched, client: c}
}

func (h *testHub) do(msg ClientMessage) {
	h.handleCommand(command{client: h.client, msg: msg})
}

func (h *testHub) advance(d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.sched.Advance(d)
}

// drain returns every message queued for the test client.
func (h *testHub) drain() []any {
	var out []any
	for {
		select {
		case msg, ok := <-h.client.send:
			if !ok {
				return out
			}
			out = append(out, msg)
		default:
			return out
		}
	}
}

func messageType(msg any) string {
	switch m := msg.(type) {
	case WheelStateMessage:
		return m.Type
	case PhaseMessage:
		return m.Type
	case HighlightMessage:
		return m.Type
	case ProgressMessage:
		return m.Type
	case RevealMessage:
		return m.Type
	case AnnounceMessage:
		return m.Type
	case ConfettiMessage:
		return m.Type
	case SimpleMessage:
		return m.Type
	}
	return ""
}

func ofType[T any](msgs []any) []T {
	var out []T
	for _, msg := range msgs {
		if m, ok := msg.(T); ok {
			out = append(out, m)
		}
	}
	return out
}

func intp(i int) *int { return &i }

func TestHubNames(t *testing.T) {
	Convey("Given a wheel with no names", t, func() {
		h := newTestHub()

		Convey("When names are pasted", func() {
			h.do(ClientMessage{Type: "add_name", Name: "Alice\nBob\nCharlie"})
			msgs := h.drain()

			Convey("Then everyone gets the new state", func() {
				states := ofType[WheelStateMessage](msgs)
				So(states, ShouldHaveLength, 1)
				So(states[0].Names, ShouldResemble, []string{"Alice", "Bob", "Charlie"})
				So(states[0].Segments, ShouldHaveLength, 3)
				So(states[0].Segments[1].StartAngle, ShouldEqual, 120.0)
				So(states[0].Phase, ShouldEqual, "idle")
				So(states[0].Highlight, ShouldEqual, -1)
			})

			Convey("Then they can be renamed, moved and removed", func() {
				h.do(ClientMessage{Type: "rename_name", Index: intp(0), Name: "Alicia"})
				h.do(ClientMessage{Type: "move_name", From: intp(2), To: intp(0)})
				h.do(ClientMessage{Type: "remove_name", Index: intp(1)})

				So(h.names.Names(), ShouldResemble, []string{"Charlie", "Bob"})
			})

			Convey("Then a bad position produces a notice", func() {
				h.do(ClientMessage{Type: "remove_name"})
				notices := ofType[SimpleMessage](h.drain())

				So(notices, ShouldHaveLength, 1)
				So(notices[0].Type, ShouldEqual, "notice")
				So(notices[0].Message, ShouldEqual, userMessage(ErrIndexOutOfRange))
			})

			Convey("Then sort and clear apply", func() {
				h.do(ClientMessage{Type: "add_name", Name: "aaron"})
				h.do(ClientMessage{Type: "sort_names"})
				So(h.names.Names(), ShouldResemble, []string{"aaron", "Alice", "Bob", "Charlie"})

				h.do(ClientMessage{Type: "clear_names"})
				So(h.names.Len(), ShouldEqual, 0)
			})
		})

		Convey("When a spin is requested with one name", func() {
			h.do(ClientMessage{Type: "add_name", Name: "Alice"})
			h.drain()
			h.do(ClientMessage{Type: "spin"})
			msgs := h.drain()

			Convey("Then the spin is refused with a notice", func() {
				So(h.engine.Phase(), ShouldEqual, spin.Idle)
				So(ofType[SimpleMessage](msgs), ShouldHaveLength, 1)
				So(testutil.ToFloat64(h.metrics.spinRejections.WithLabelValues("insufficient_segments")), ShouldEqual, 1.0)
			})
		})

		Convey("When a preference is set", func() {
			h.do(ClientMessage{Type: "set_preference", Key: prefTheme, Value: "dark"})
			h.do(ClientMessage{Type: "set_preference", Key: prefVolume, Value: "loud"})
			msgs := h.drain()

			Convey("Then valid values are shared and invalid ones are reported", func() {
				states := ofType[WheelStateMessage](msgs)
				So(states[len(states)-1].Preferences[prefTheme], ShouldEqual, "dark")
				So(ofType[SimpleMessage](msgs), ShouldHaveLength, 1)
			})
		})

		Convey("When an unknown message arrives", func() {
			h.do(ClientMessage{Type: "dance"})

			So(h.drain(), ShouldBeEmpty)
		})
	})
}

func TestHubSpin(t *testing.T) {
	Convey("Given a wheel with four names", t, func() {
		h := newTestHub()
		h.do(ClientMessage{Type: "add_name", Name: "Alice\nBob\nCharlie\nDiana"})
		h.drain()

		Convey("When it is spun", func() {
			h.do(ClientMessage{Type: "spin"})
			msgs := h.drain()

			phases := ofType[PhaseMessage](msgs)
			So(phases, ShouldHaveLength, 1)
			So(phases[0].Phase, ShouldEqual, "spinning")
			So(phases[0].DurationMS, ShouldEqual, int64(5000))
			So(phases[0].Curve, ShouldEqual, "ease-out")

			Convey("Then the names are locked", func() {
				h.do(ClientMessage{Type: "add_name", Name: "Eve"})
				h.do(ClientMessage{Type: "clear_names"})
				notices := ofType[SimpleMessage](h.drain())

				So(h.names.Len(), ShouldEqual, 4)
				So(notices, ShouldHaveLength, 2)
				So(notices[0].Message, ShouldEqual, userMessage(ErrListLocked))
			})

			Convey("Then a second spin is refused", func() {
				h.do(ClientMessage{Type: "spin"})
				notices := ofType[SimpleMessage](h.drain())

				So(notices, ShouldHaveLength, 1)
				So(notices[0].Message, ShouldEqual, userMessage(spin.ErrAlreadySpinning))
			})

			Convey("Then highlights and progress stream until the duration elapses", func() {
				h.advance(time.Second)
				msgs := h.drain()

				So(len(ofType[HighlightMessage](msgs)), ShouldEqual, 10)
				progress := ofType[ProgressMessage](msgs)
				So(progress[len(progress)-1].Progress, ShouldAlmostEqual, 0.2, 1e-9)
				So(ofType[RevealMessage](msgs), ShouldBeEmpty)
			})

			Convey("Then the winner is revealed, announced once and exported", func() {
				h.advance(5 * time.Second)
				reveals := ofType[RevealMessage](h.drain())
				So(reveals, ShouldHaveLength, 1)
				So(reveals[0].SettleMS, ShouldEqual, int64(500))
				So(reveals[0].Index, ShouldEqual, spin.WinningIndex(reveals[0].Rotation, 4))

				h.advance(500 * time.Millisecond)
				msgs := h.drain()

				announces := ofType[AnnounceMessage](msgs)
				So(announces, ShouldHaveLength, 1)
				So(announces[0].Index, ShouldEqual, reveals[0].Index)
				So(announces[0].Winner, ShouldEqual, h.names.Names()[reveals[0].Index])
				So(announces[0].Sound, ShouldEqual, "/sounds/win?volume=70")

				confetti := ofType[ConfettiMessage](msgs)
				So(confetti, ShouldHaveLength, 1)
				So(confetti[0].Active, ShouldBeTrue)

				states := ofType[WheelStateMessage](msgs)
				So(states[len(states)-1].Winner, ShouldEqual, announces[0].Winner)
				So(states[len(states)-1].Locked, ShouldBeFalse)

				doc := h.export(time.Now())
				So(doc.Winner, ShouldEqual, announces[0].Winner)
				So(doc.Names, ShouldResemble, h.names.Names())

				So(testutil.ToFloat64(h.metrics.winnersAnnounced), ShouldEqual, 1.0)

				h.advance(10 * time.Second)
				msgs = h.drain()
				So(ofType[AnnounceMessage](msgs), ShouldBeEmpty)
				confetti = ofType[ConfettiMessage](msgs)
				So(confetti, ShouldHaveLength, 1)
				So(confetti[0].Active, ShouldBeFalse)
			})

			Convey("Then a reset cancels it without an announcement", func() {
				h.do(ClientMessage{Type: "reset"})
				h.advance(time.Minute)
				msgs := h.drain()

				So(ofType[RevealMessage](msgs), ShouldBeEmpty)
				So(ofType[AnnounceMessage](msgs), ShouldBeEmpty)
				So(h.engine.Phase(), ShouldEqual, spin.Idle)
				So(h.engine.Rotation(), ShouldEqual, 0.0)
				So(h.sched.Pending(), ShouldEqual, 0)
				So(testutil.ToFloat64(h.metrics.spinsCancelled), ShouldEqual, 1.0)

				h.do(ClientMessage{Type: "add_name", Name: "Eve"})
				So(h.names.Len(), ShouldEqual, 5)
			})
		})

		Convey("When reset is sent twice while idle", func() {
			h.do(ClientMessage{Type: "reset"})
			h.do(ClientMessage{Type: "reset"})

			So(h.drain(), ShouldBeEmpty)
			So(testutil.ToFloat64(h.metrics.spinsCancelled), ShouldEqual, 0.0)
		})
	})
}

func TestHubClose(t *testing.T) {
	Convey("Given a wheel mid-spin", t, func() {
		h := newTestHub()
		h.do(ClientMessage{Type: "add_name", Name: "Alice\nBob"})
		h.do(ClientMessage{Type: "spin"})
		h.drain()

		Convey("When it is closed", func() {
			h.closeAll()
			h.closeAll()

			Convey("Then clients are dropped and timers stopped", func() {
				So(h.clients, ShouldBeEmpty)
				So(h.sched.Pending(), ShouldEqual, 0)

				_, open := <-h.client.send
				for open {
					_, open = <-h.client.send
				}
				So(open, ShouldBeFalse)

				h.mu.Lock()
				_, err := h.engine.Spin([]string{"Alice", "Bob"}, spin.Request{
					Profile:  spin.DefaultProfiles()["normal"],
					Duration: time.Second,
				})
				h.mu.Unlock()
				So(err, ShouldEqual, spin.ErrEngineClosed)
			})
		})
	})
}

func TestMessageTypes(t *testing.T) {
	Convey("Every server message names its type", t, func() {
		h := newTestHub()
		h.do(ClientMessage{Type: "add_name", Name: "Alice\nBob"})
		h.do(ClientMessage{Type: "spin"})
		h.advance(6 * time.Second)

		var kinds []string
		for _, msg := range h.drain() {
			kinds = append(kinds, messageType(msg))
		}

		for _, kind := range []string{"wheel_state", "phase", "highlight", "progress", "reveal", "announce", "confetti"} {
			So(slices.Contains(kinds, kind), ShouldBeTrue)
		}
		So(slices.Contains(kinds, ""), ShouldBeFalse)
	})
}

func TestHubRegister(t *testing.T) {
	Convey("Given a running wheel with one viewer", t, func() {
		h := newTestHub()
		go h.run()
		defer h.closeAll()

		// A task round-trip means the loop has finished the registration.
		settle := func() {
			done := make(chan struct{})
			h.tasks <- func() { close(done) }
			<-done
		}

		Convey("When another client joins", func() {
			joined := &Client{send: make(chan any, 16), clientID: "joined"}
			h.register <- joined
			settle()

			Convey("Then the newcomer receives the state exactly once", func() {
				states := 0
				for len(joined.send) > 0 {
					if _, ok := (<-joined.send).(WheelStateMessage); ok {
						states++
					}
				}
				So(states, ShouldEqual, 1)
			})

			Convey("Then the existing viewer sees the new client count", func() {
				h.mu.RLock()
				defer h.mu.RUnlock()

				states := ofType[WheelStateMessage](h.drain())
				So(states, ShouldHaveLength, 1)
				So(states[0].Clients, ShouldEqual, 2)
			})
		})
	})
}
