/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/wav"
	"github.com/julienschmidt/httprouter"

	"github.com/Seednode/namewheel/spin"
)

const (
	soundSampleRate = beep.SampleRate(44100)
	soundEdge       = 4 * time.Millisecond

	soundTick = "tick"
	soundWin  = "win"
)

type note struct {
	freq     float64
	duration time.Duration
}

// Short blip played on each highlight, and a rising arpeggio for the winner.
var soundScores = map[string][]note{
	soundTick: {
		{freq: 1318.51, duration: 25 * time.Millisecond},
	},
	soundWin: {
		{freq: 523.25, duration: 110 * time.Millisecond},
		{freq: 659.25, duration: 110 * time.Millisecond},
		{freq: 783.99, duration: 110 * time.Millisecond},
		{freq: 1046.50, duration: 420 * time.Millisecond},
	},
}

// fade applies a linear attack and release to avoid clicks at note edges.
type fade struct {
	streamer beep.Streamer
	position int
	total    int
	edge     int
}

func (f *fade) Stream(samples [][2]float64) (int, bool) {
	n, ok := f.streamer.Stream(samples)

	for i := 0; i < n; i++ {
		gain := 1.0
		switch {
		case f.position < f.edge:
			gain = float64(f.position) / float64(f.edge)
		case f.total-f.position < f.edge:
			gain = float64(f.total-f.position) / float64(f.edge)
		}

		samples[i][0] *= gain
		samples[i][1] *= gain
		f.position++
	}

	return n, ok
}

func (f *fade) Err() error { return f.streamer.Err() }

func tone(n note) (beep.Streamer, error) {
	sine, err := generators.SineTone(soundSampleRate, n.freq)
	if err != nil {
		return nil, err
	}

	samples := soundSampleRate.N(n.duration)

	return &fade{
		streamer: beep.Take(samples, sine),
		total:    samples,
		edge:     min(soundSampleRate.N(soundEdge), samples/2),
	}, nil
}

// memFile is an in-memory io.WriteSeeker for the WAV encoder, which seeks
// back to patch its header.
type memFile struct {
	buf []byte
	pos int
}

func (m *memFile) Write(p []byte) (int, error) {
	if end := m.pos + len(p); end > len(m.buf) {
		m.buf = append(m.buf, make([]byte, end-len(m.buf))...)
	}
	copy(m.buf[m.pos:], p)
	m.pos += len(p)

	return len(p), nil
}

func (m *memFile) Seek(offset int64, whence int) (int64, error) {
	var abs int64

	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(m.pos) + offset
	case io.SeekEnd:
		abs = int64(len(m.buf)) + offset
	default:
		return 0, fmt.Errorf("seek: invalid whence %d", whence)
	}
	if abs < 0 {
		return 0, errors.New("seek: negative position")
	}

	m.pos = int(abs)

	return abs, nil
}

// renderSound synthesises a named clip as 16-bit mono WAV at volume 0-100.
func renderSound(name string, volume int) ([]byte, error) {
	score, ok := soundScores[name]
	if !ok {
		return nil, fmt.Errorf("%w: sound %q", spin.ErrUnsupportedCapability, name)
	}

	streamers := make([]beep.Streamer, 0, len(score))
	for _, n := range score {
		s, err := tone(n)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", spin.ErrUnsupportedCapability, err)
		}
		streamers = append(streamers, s)
	}

	volume = min(max(volume, 0), 100)

	out := &effects.Gain{
		Streamer: beep.Seq(streamers...),
		Gain:     float64(volume)/100 - 1,
	}

	format := beep.Format{
		SampleRate:  soundSampleRate,
		NumChannels: 1,
		Precision:   2,
	}

	f := &memFile{}
	if err := wav.Encode(f, out, format); err != nil {
		return nil, fmt.Errorf("%w: %w", spin.ErrUnsupportedCapability, err)
	}

	return f.buf, nil
}

type soundKey struct {
	name   string
	volume int
}

// soundLibrary caches rendered clips per name and volume.
type soundLibrary struct {
	mu    sync.RWMutex
	store map[soundKey][]byte
}

func newSoundLibrary() *soundLibrary {
	return &soundLibrary{store: make(map[soundKey][]byte)}
}

func (l *soundLibrary) get(name string, volume int) ([]byte, error) {
	key := soundKey{name: name, volume: min(max(volume, 0), 100)}

	l.mu.RLock()
	data, ok := l.store[key]
	l.mu.RUnlock()
	if ok {
		return data, nil
	}

	data, err := renderSound(key.name, key.volume)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.store[key] = data
	l.mu.Unlock()

	return data, nil
}

// soundURL returns the clip location for a volume, or "" when muted.
func soundURL(cfg *Config, name string, volume int) string {
	if volume <= 0 {
		return ""
	}
	return cfg.prefix + "/sounds/" + name + "?volume=" + strconv.Itoa(volume)
}

func serveSound(cfg *Config, sounds *soundLibrary, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		startTime := time.Now()

		volume := 100
		if v := r.URL.Query().Get("volume"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				http.Error(w, "invalid volume", http.StatusBadRequest)
				return
			}
			volume = n
		}

		data, err := sounds.get(p.ByName("sound"), volume)
		if err != nil {
			logf(cfg, "SOUND: Skipping %q: %v", p.ByName("sound"), err)
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", "audio/wav")
		w.Header().Set("Cache-Control", "public, max-age=86400")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		securityHeaders(cfg, w)

		written, err := w.Write(data)
		if err != nil {
			errs <- err

			return
		}

		logf(cfg, "SOUND: %s (%s) to %s in %s",
			p.ByName("sound"),
			humanReadableSize(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}
