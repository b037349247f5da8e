/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/Seednode/namewheel/spin"
)

const (
	prefTheme        = "theme"
	prefVolume       = "volume"
	prefSpinDuration = "spin_duration"
	prefSpeech       = "speech"
	prefIntensity    = "intensity"
	prefCurve        = "curve"

	minSpinSeconds = 1
	maxSpinSeconds = 60
)

var (
	ErrUnknownPreference = errors.New("unknown preference")
	ErrInvalidPreference = errors.New("invalid preference value")
)

var (
	themes = []string{"light", "dark", "colorful"}
	curves = []string{"ease-out", "linear", "bounce"}
)

// Preferences holds a wheel's opaque key/value settings. The spin request is
// derived from it each time a spin starts.
type Preferences struct {
	values   map[string]string
	profiles map[string]spin.Profile
}

func newPreferences(cfg *Config, profiles map[string]spin.Profile) *Preferences {
	seconds := int(cfg.spinDuration.Round(time.Second) / time.Second)

	return &Preferences{
		values: map[string]string{
			prefTheme:        themes[0],
			prefVolume:       "70",
			prefSpinDuration: strconv.Itoa(min(max(seconds, minSpinSeconds), maxSpinSeconds)),
			prefSpeech:       "false",
			prefIntensity:    cfg.intensity,
			prefCurve:        curves[0],
		},
		profiles: profiles,
	}
}

func invalid(key, value, want string) error {
	return fmt.Errorf("%w: %s=%q (want %s)", ErrInvalidPreference, key, value, want)
}

func (p *Preferences) normalize(key, value string) (string, error) {
	value = strings.TrimSpace(value)

	switch key {
	case prefTheme:
		if !slices.Contains(themes, value) {
			return "", invalid(key, value, strings.Join(themes, "|"))
		}
	case prefCurve:
		if !slices.Contains(curves, value) {
			return "", invalid(key, value, strings.Join(curves, "|"))
		}
	case prefVolume:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 || n > 100 {
			return "", invalid(key, value, "0-100")
		}
		value = strconv.Itoa(n)
	case prefSpinDuration:
		n, err := strconv.Atoi(value)
		if err != nil || n < minSpinSeconds || n > maxSpinSeconds {
			return "", invalid(key, value, fmt.Sprintf("%d-%d seconds", minSpinSeconds, maxSpinSeconds))
		}
		value = strconv.Itoa(n)
	case prefSpeech:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return "", invalid(key, value, "true|false")
		}
		value = strconv.FormatBool(b)
	case prefIntensity:
		if _, ok := p.profiles[value]; !ok {
			return "", invalid(key, value, strings.Join(slices.Sorted(maps.Keys(p.profiles)), "|"))
		}
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPreference, key)
	}

	return value, nil
}

// Set validates and stores a preference.
func (p *Preferences) Set(key, value string) error {
	value, err := p.normalize(key, value)
	if err != nil {
		return err
	}

	p.values[key] = value

	return nil
}

func (p *Preferences) Get(key string) string {
	return p.values[key]
}

// All returns a copy of every preference.
func (p *Preferences) All() map[string]string {
	return maps.Clone(p.values)
}

func (p *Preferences) Volume() int {
	n, _ := strconv.Atoi(p.values[prefVolume])
	return n
}

func (p *Preferences) Speech() bool {
	b, _ := strconv.ParseBool(p.values[prefSpeech])
	return b
}

// Request builds the spin request from the current preferences.
func (p *Preferences) Request() (spin.Request, error) {
	profile, ok := p.profiles[p.values[prefIntensity]]
	if !ok {
		return spin.Request{}, fmt.Errorf("%w: intensity %q", ErrInvalidPreference, p.values[prefIntensity])
	}

	seconds, err := strconv.Atoi(p.values[prefSpinDuration])
	if err != nil {
		return spin.Request{}, fmt.Errorf("%w: spin_duration: %v", ErrInvalidPreference, err)
	}

	return spin.Request{
		Profile:  profile,
		Duration: time.Duration(seconds) * time.Second,
		Curve:    p.values[prefCurve],
	}, nil
}
