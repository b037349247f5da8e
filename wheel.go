// Namewheel
//
// Players type names onto a shared wheel and spin it. The winner is decided
// server-side the instant a spin starts; every connected browser only
// animates the reveal the engine drives.
//
// Features:
// - WebSockets per wheel ID: /wheel/:wheelid and /wheel/:wheelid/ws
// - Everyone connected to a wheel sees the same names, spin and winner
// - Names can be added (one per line), removed, renamed, dragged, shuffled,
//   sorted and cleared, but never while a spin is in flight
// - Per-wheel preferences: theme, volume, spin duration, speech, intensity, curve
// - Server-synthesised tick and fanfare sounds, confetti and speech cues
// - Save the wheel and its winner as JSON or YAML
// - Wheels auto-reaped after configurable idle timeout
// - In-browser QR button to share the current wheel, backed by go-qrcode

package main

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Seednode/namewheel/spin"
)

// Messages coming from clients
type ClientMessage struct {
	Type  string `json:"type"`            // see handleCommand
	Name  string `json:"name,omitempty"`  // add_name (may hold several lines) / rename_name
	Index *int   `json:"index,omitempty"` // remove_name / rename_name
	From  *int   `json:"from,omitempty"`  // move_name
	To    *int   `json:"to,omitempty"`    // move_name
	Key   string `json:"key,omitempty"`   // set_preference
	Value string `json:"value,omitempty"` // set_preference
}

// WheelStateMessage is a full snapshot, sent on connect and after any
// change to names or preferences.
type WheelStateMessage struct {
	Type        string            `json:"type"` // "wheel_state"
	Names       []string          `json:"names"`
	Segments    []spin.Segment    `json:"segments"`
	Phase       string            `json:"phase"`
	Locked      bool              `json:"locked"`
	Rotation    float64           `json:"rotation"`
	Highlight   int               `json:"highlight"`
	Winner      string            `json:"winner,omitempty"`
	Preferences map[string]string `json:"preferences"`
	TickSound   string            `json:"tick_sound,omitempty"`
	Clients     int               `json:"clients"`
}

// PhaseMessage announces a lifecycle transition.
type PhaseMessage struct {
	Type       string `json:"type"` // "phase"
	Phase      string `json:"phase"`
	DurationMS int64  `json:"duration_ms,omitempty"` // spinning only
	Curve      string `json:"curve,omitempty"`       // spinning only
}

// HighlightMessage marks a cosmetic segment while spinning.
type HighlightMessage struct {
	Type  string `json:"type"` // "highlight"
	Index int    `json:"index"`
}

// ProgressMessage reports how much of the spin duration has elapsed.
type ProgressMessage struct {
	Type     string  `json:"type"` // "progress"
	Progress float64 `json:"progress"`
}

// RevealMessage hands the renderer the final rotation to ease onto.
type RevealMessage struct {
	Type     string  `json:"type"` // "reveal"
	Rotation float64 `json:"rotation"`
	Index    int     `json:"index"`
	SettleMS int64   `json:"settle_ms"`
}

// AnnounceMessage is sent exactly once per completed spin.
type AnnounceMessage struct {
	Type   string `json:"type"` // "announce"
	Winner string `json:"winner"`
	Index  int    `json:"index"`
	Sound  string `json:"sound,omitempty"`
	Speech bool   `json:"speech"`
}

// ConfettiMessage toggles the confetti overlay.
type ConfettiMessage struct {
	Type       string `json:"type"` // "confetti"
	Active     bool   `json:"active"`
	DurationMS int64  `json:"duration_ms,omitempty"`
}

// SimpleMessage is for generic notifications ("notice").
type SimpleMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type Client struct {
	conn     *websocket.Conn
	send     chan any
	clientID string
}

type command struct {
	client *Client
	msg    ClientMessage
}

type Hub struct {
	id      string
	cfg     *Config
	clients map[*Client]bool

	names   *NameList
	prefs   *Preferences
	engine  *spin.Engine
	timing  spin.Timing
	metrics *wheelMetrics

	register chan *Client
	unreg    chan *Client
	commands chan command
	tasks    chan func()
	done     chan struct{}

	closeOnce sync.Once

	mu sync.RWMutex

	createdAt   time.Time
	lastActive  time.Time
	spinStarted time.Time
}

// newHub builds a wheel session. A nil scheduler drives the engine from the
// hub's own loop.
func newHub(cfg *Config, wheelID string, profiles map[string]spin.Profile, metrics *wheelMetrics, sched spin.Scheduler) *Hub {
	now := time.Now()

	h := &Hub{
		id:         wheelID,
		cfg:        cfg,
		clients:    make(map[*Client]bool),
		names:      newNameList(),
		prefs:      newPreferences(cfg, profiles),
		timing:     spin.DefaultTiming(),
		metrics:    metrics,
		register:   make(chan *Client),
		unreg:      make(chan *Client),
		commands:   make(chan command),
		tasks:      make(chan func()),
		done:       make(chan struct{}),
		createdAt:  now,
		lastActive: now,
	}

	if sched == nil {
		sched = spin.NewLoopScheduler(h.tasks, h.done)
	}

	h.engine = spin.New(sched,
		spin.WithTiming(h.timing),
		spin.WithListener(h.onEngineEvent),
	)

	return h
}

func (h *Hub) run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.lastActive = time.Now()
			h.clients[c] = true
			h.metrics.connectedClients.Inc()

			h.broadcastStateLocked()
			h.mu.Unlock()

		case c := <-h.unreg:
			h.mu.Lock()
			h.lastActive = time.Now()
			h.dropLocked(c)
			h.broadcastStateLocked()
			h.mu.Unlock()

		case cmd := <-h.commands:
			h.handleCommand(cmd)

		case task := <-h.tasks:
			h.mu.Lock()
			task()
			h.mu.Unlock()

		case <-h.done:
			return
		}
	}
}

// dropLocked disconnects a client if it is still registered.
func (h *Hub) dropLocked(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}

	delete(h.clients, c)
	close(c.send)
	h.metrics.connectedClients.Dec()
}

func (h *Hub) sendLocked(c *Client, msg any) {
	select {
	case c.send <- msg:
	default:
		h.dropLocked(c)
	}
}

func (h *Hub) broadcastLocked(msg any) {
	for client := range h.clients {
		h.sendLocked(client, msg)
	}
}

func (h *Hub) stateLocked() WheelStateMessage {
	names := h.names.Names()

	winner, _, _ := h.engine.Winner()

	return WheelStateMessage{
		Type:        "wheel_state",
		Names:       names,
		Segments:    spin.Segments(names),
		Phase:       h.engine.Phase().String(),
		Locked:      h.engine.Busy(),
		Rotation:    h.engine.Rotation(),
		Highlight:   h.engine.Highlight(),
		Winner:      winner,
		Preferences: h.prefs.All(),
		TickSound:   soundURL(h.cfg, soundTick, h.prefs.Volume()),
		Clients:     len(h.clients),
	}
}

func (h *Hub) broadcastStateLocked() {
	h.broadcastLocked(h.stateLocked())
}

func (h *Hub) noticeLocked(c *Client, err error) {
	h.sendLocked(c, SimpleMessage{
		Type:    "notice",
		Message: userMessage(err),
	})
}

// onEngineEvent relays lifecycle events to every client. The engine only
// calls it while h.mu is held.
func (h *Hub) onEngineEvent(ev spin.Event) {
	switch ev.Kind {
	case spin.EventPhase:
		msg := PhaseMessage{
			Type:  "phase",
			Phase: ev.Phase.String(),
		}
		if ev.Phase == spin.Spinning {
			msg.DurationMS = ev.Request.Duration.Milliseconds()
			msg.Curve = ev.Request.Curve
		}
		h.broadcastLocked(msg)

	case spin.EventHighlight:
		h.broadcastLocked(HighlightMessage{
			Type:  "highlight",
			Index: ev.Highlight,
		})

	case spin.EventProgress:
		h.broadcastLocked(ProgressMessage{
			Type:     "progress",
			Progress: ev.Progress,
		})

	case spin.EventReveal:
		h.broadcastLocked(RevealMessage{
			Type:     "reveal",
			Rotation: ev.Outcome.TotalRotation,
			Index:    ev.Outcome.WinningIndex,
			SettleMS: h.timing.Settle.Milliseconds(),
		})

	case spin.EventAnnounce:
		h.metrics.winner(h.spinStarted)
		h.spinStarted = time.Time{}

		logf(h.cfg, "WHEEL: %q won on %s", ev.Winner, h.id)

		h.broadcastLocked(AnnounceMessage{
			Type:   "announce",
			Winner: ev.Winner,
			Index:  ev.Outcome.WinningIndex,
			Sound:  soundURL(h.cfg, soundWin, h.prefs.Volume()),
			Speech: h.prefs.Speech(),
		})
		h.broadcastStateLocked()

	case spin.EventConfettiStart:
		h.broadcastLocked(ConfettiMessage{
			Type:       "confetti",
			Active:     true,
			DurationMS: h.timing.Confetti.Milliseconds(),
		})

	case spin.EventConfettiEnd:
		h.broadcastLocked(ConfettiMessage{
			Type:   "confetti",
			Active: false,
		})

	case spin.EventReset:
		h.broadcastStateLocked()
	}
}

// mutateNamesLocked applies a name list change unless a spin is in flight.
func (h *Hub) mutateNamesLocked(fn func() error) error {
	if h.engine.Busy() {
		return ErrListLocked
	}

	return fn()
}

func (h *Hub) spinLocked() error {
	req, err := h.prefs.Request()
	if err == nil {
		_, err = h.engine.Spin(h.names.Names(), req)
	}
	if err != nil {
		h.metrics.spinRejected(err)
		return err
	}

	h.metrics.spinsStarted.Inc()
	h.spinStarted = time.Now()

	logf(h.cfg, "WHEEL: Spinning %s (%d names, %s, %s)", h.id, h.names.Len(), req.Profile.Name, req.Duration)

	return nil
}

func (h *Hub) resetLocked() {
	if h.engine.Busy() {
		h.metrics.spinsCancelled.Inc()
		logf(h.cfg, "WHEEL: Spin on %s cancelled", h.id)
	}

	h.spinStarted = time.Time{}
	h.engine.Reset()
}

func position(p *int) int {
	if p == nil {
		return -1
	}
	return *p
}

// handleCommand processes every client message type.
func (h *Hub) handleCommand(cmd command) {
	c := cmd.client
	msg := cmd.msg

	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastActive = time.Now()

	var err error
	changed := true

	switch msg.Type {
	case "add_name":
		err = h.mutateNamesLocked(func() error {
			_, err := h.names.AddMany(splitNames(msg.Name))
			return err
		})
		// Partial adds still change the list.
		changed = err == nil || !errors.Is(err, ErrListLocked)

	case "remove_name":
		err = h.mutateNamesLocked(func() error {
			_, err := h.names.Remove(position(msg.Index))
			return err
		})

	case "rename_name":
		err = h.mutateNamesLocked(func() error {
			return h.names.Rename(position(msg.Index), msg.Name)
		})

	case "move_name":
		err = h.mutateNamesLocked(func() error {
			return h.names.Move(position(msg.From), position(msg.To))
		})

	case "shuffle_names":
		err = h.mutateNamesLocked(func() error {
			h.names.Shuffle()
			return nil
		})

	case "sort_names":
		err = h.mutateNamesLocked(func() error {
			h.names.Sort()
			return nil
		})

	case "clear_names":
		err = h.mutateNamesLocked(func() error {
			h.names.Clear()
			return nil
		})

	case "set_preference":
		err = h.prefs.Set(msg.Key, msg.Value)

	case "spin":
		err = h.spinLocked()
		changed = false

	case "reset":
		h.resetLocked()
		changed = false

	default:
		// ignore unknown types
		return
	}

	if err != nil {
		h.noticeLocked(c, err)
	}
	if changed {
		h.broadcastStateLocked()
	}
}

// export snapshots the wheel for the save action.
func (h *Hub) export(now time.Time) exportDocument {
	h.mu.RLock()
	defer h.mu.RUnlock()

	winner, _, _ := h.engine.Winner()

	return newExportDocument(h.id, h.names.Names(), winner, now)
}

func (h *Hub) idleSince() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.lastActive
}

// closeAll stops the hub loop and engine and disconnects every client (used
// by reaper).
func (h *Hub) closeAll() {
	h.closeOnce.Do(func() {
		close(h.done)

		h.mu.Lock()
		defer h.mu.Unlock()

		h.engine.Close()

		for c := range h.clients {
			h.dropLocked(c)
			if c.conn != nil {
				_ = c.conn.Close()
			}
		}
	})
}

// userMessage turns an error into notification text.
func userMessage(err error) string {
	switch {
	case errors.Is(err, spin.ErrInsufficientSegments):
		return "Add at least two names before spinning."
	case errors.Is(err, spin.ErrAlreadySpinning):
		return "The wheel is already spinning."
	case errors.Is(err, ErrListLocked):
		return "Names cannot be changed while the wheel is spinning."
	case errors.Is(err, ErrDuplicateName):
		return "That name is already on the wheel."
	case errors.Is(err, ErrEmptyName):
		return "Please enter a name."
	case errors.Is(err, ErrNameTooLong):
		return fmt.Sprintf("Names can be at most %d characters long.", maxNameLength)
	case errors.Is(err, ErrTooManyNames):
		return fmt.Sprintf("The wheel holds at most %d names.", maxNames)
	case errors.Is(err, ErrIndexOutOfRange):
		return "That name is no longer on the wheel."
	case errors.Is(err, ErrUnknownPreference), errors.Is(err, ErrInvalidPreference):
		return "That setting could not be changed."
	default:
		return "An error has occurred. Please try again."
	}
}
