/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"crypto/rand"
	_ "embed"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"

	"github.com/Seednode/namewheel/spin"
)

const (
	wheelIDLength    = 8
	wheelIDLetters   = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	clientCookieName = "namewheel_id"
	qrSize           = 320
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func getOrSetClientID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(clientCookieName); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			return c.Value
		}
	}

	id := uuid.NewString()

	http.SetCookie(w, &http.Cookie{
		Name:     clientCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

func validWheelID(id string) bool {
	if len(id) == 0 || len(id) > 32 {
		return false
	}
	for _, r := range id {
		if !strings.ContainsRune(wheelIDLetters, r) {
			return false
		}
	}
	return true
}

// WheelManager holds a set of hubs keyed by wheel ID, so each $path/$wheelid
// is its own isolated session.
type WheelManager struct {
	mu          sync.Mutex
	cfg         *Config
	hubs        map[string]*Hub
	profiles    map[string]spin.Profile
	metrics     *wheelMetrics
	idleTimeout time.Duration
}

func newWheelManager(cfg *Config, profiles map[string]spin.Profile, metrics *wheelMetrics) *WheelManager {
	wm := &WheelManager{
		cfg:         cfg,
		hubs:        make(map[string]*Hub),
		profiles:    profiles,
		metrics:     metrics,
		idleTimeout: cfg.sessionTimeout,
	}
	if wm.idleTimeout > 0 {
		go wm.reaperLoop()
	}
	return wm
}

func (wm *WheelManager) getHub(wheelID string) *Hub {
	wm.mu.Lock()
	defer wm.mu.Unlock()

	if hub, ok := wm.hubs[wheelID]; ok {
		return hub
	}

	hub := newHub(wm.cfg, wheelID, wm.profiles, wm.metrics, nil)
	wm.hubs[wheelID] = hub
	wm.metrics.activeWheels.Inc()
	go hub.run()

	logf(wm.cfg, "WHEEL: Opened %s", wheelID)

	return hub
}

func (wm *WheelManager) lookup(wheelID string) (*Hub, bool) {
	wm.mu.Lock()
	defer wm.mu.Unlock()

	hub, ok := wm.hubs[wheelID]
	return hub, ok
}

// newWheelID generates a crypto-random wheel ID and ensures it doesn't
// collide with existing wheels.
func (wm *WheelManager) newWheelID() string {
	for {
		id := rand.Text()[:wheelIDLength]

		wm.mu.Lock()
		_, exists := wm.hubs[id]
		wm.mu.Unlock()

		if !exists {
			return id
		}
	}
}

// reap closes hubs idle since before cutoff.
func (wm *WheelManager) reap(cutoff time.Time) int {
	wm.mu.Lock()
	defer wm.mu.Unlock()

	reaped := 0
	for id, hub := range wm.hubs {
		if hub.idleSince().Before(cutoff) {
			delete(wm.hubs, id)
			wm.metrics.activeWheels.Dec()
			go hub.closeAll()
			reaped++

			logf(wm.cfg, "WHEEL: Reaped idle %s", id)
		}
	}
	return reaped
}

// reaperLoop periodically removes hubs that have been idle longer than idleTimeout.
func (wm *WheelManager) reaperLoop() {
	ticker := time.NewTicker(wm.idleTimeout / 2)
	for range ticker.C {
		wm.reap(time.Now().Add(-wm.idleTimeout))
	}
}

// WebSocket handler that picks the hub based on :wheelid
func serveWSForManager(cfg *Config, wm *WheelManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		wheelID := ps.ByName("wheelid")
		if !validWheelID(wheelID) {
			http.Error(w, "invalid wheel id", http.StatusBadRequest)
			return
		}

		clientID := getOrSetClientID(w, r)

		hub := wm.getHub(wheelID)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade error:", err)
			return
		}

		client := &Client{
			conn:     conn,
			send:     make(chan any, 64),
			clientID: clientID,
		}

		select {
		case hub.register <- client:
		case <-hub.done:
			_ = conn.Close()
			return
		}

		logf(cfg, "WHEEL: Client %s joined %s from %s", clientID, wheelID, realIP(r))

		go client.writePump()
		client.readPump(hub)
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unreg <- c:
		case <-h.done:
		}
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		select {
		case h.commands <- command{client: c, msg: msg}:
		case <-h.done:
			return
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// QR handler: generates a PNG QR code for the current wheel URL using go-qrcode.
func qrHandler(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if !validWheelID(ps.ByName("wheelid")) {
			http.Error(w, "invalid wheel id", http.StatusBadRequest)
			return
		}

		// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}

		// We are at /.../:wheelid/qr; strip trailing "/qr" to get the wheel URL.
		url := scheme + "://" + r.Host + strings.TrimSuffix(r.URL.Path, "/qr")

		png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
		if err != nil {
			logf(cfg, "WHEEL: Sharing unavailable for %s: %v", url, err)
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		securityHeaders(cfg, w)
		_, _ = w.Write(png)
	}
}

//go:embed assets/wheel/index.html
var indexHTML string

func getIndexHandler(cfg *Config) httprouter.Handle {
	page := []byte(strings.NewReplacer(
		"{{prefix}}", cfg.prefix,
		"{{favicon}}", getFavicon(cfg),
		"{{version}}", releaseVersion,
	).Replace(indexHTML))

	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if !validWheelID(ps.ByName("wheelid")) {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		securityHeaders(cfg, w)

		_ = getOrSetClientID(w, r)

		_, _ = w.Write(page)
	}
}

// redirectNewWheel handles GET /path by generating a new random wheel ID
// (with server-side collision detection) and redirecting to /path/:wheelid.
func redirectNewWheel(cfg *Config, path string, wm *WheelManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		wheelID := wm.newWheelID()
		logf(cfg, "WHEEL: Created wheel %s/%s", path, wheelID)
		http.Redirect(w, r, cfg.prefix+path+"/"+wheelID, http.StatusTemporaryRedirect)
	}
}

// registerWheel sets up routes so that:
//   - $path                      → redirects to new random wheel (8-char ID)
//   - $path/:wheelid             → HTML client
//   - $path/:wheelid/ws          → WebSocket for that wheel
//   - $path/:wheelid/qr          → PNG QR code for that wheel URL
//   - $path/:wheelid/export      → JSON or YAML download of names and winner
func registerWheel(cfg *Config, path string, mux *httprouter.Router, wm *WheelManager, errs chan<- error) {
	mux.GET(cfg.prefix+path, redirectNewWheel(cfg, path, wm))

	mux.GET(cfg.prefix+path+"/:wheelid", getIndexHandler(cfg))

	mux.GET(cfg.prefix+path+"/:wheelid/ws", serveWSForManager(cfg, wm))

	mux.GET(cfg.prefix+path+"/:wheelid/qr", qrHandler(cfg))

	mux.GET(cfg.prefix+path+"/:wheelid/export", serveExport(cfg, wm, errs))
}
