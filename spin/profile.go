/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package spin

import (
	"fmt"
	"math"
)

// Profile bounds how many full rotations a spin performs. Spin counts are drawn
// from [MinSpins, MaxSpins) and are deliberately fractional.
type Profile struct {
	Name     string  `json:"name" koanf:"name"`
	MinSpins float64 `json:"min_spins" koanf:"min"`
	MaxSpins float64 `json:"max_spins" koanf:"max"`
}

// Validate reports whether the profile can produce a forward spin.
func (p Profile) Validate() error {
	if !finite(p.MinSpins) || !finite(p.MaxSpins) {
		return fmt.Errorf("%w: %q spin counts must be finite, got %v-%v", ErrInvalidProfile, p.Name, p.MinSpins, p.MaxSpins)
	}
	if p.MinSpins <= 0 {
		return fmt.Errorf("%w: %q min spins must be positive, got %v", ErrInvalidProfile, p.Name, p.MinSpins)
	}
	if p.MaxSpins < p.MinSpins {
		return fmt.Errorf("%w: %q max spins %v is below min spins %v", ErrInvalidProfile, p.Name, p.MaxSpins, p.MinSpins)
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// DefaultProfiles returns the built-in intensity presets, keyed by name.
func DefaultProfiles() map[string]Profile {
	return map[string]Profile{
		"gentle": {Name: "gentle", MinSpins: 2, MaxSpins: 4},
		"normal": {Name: "normal", MinSpins: 5, MaxSpins: 8},
		"wild":   {Name: "wild", MinSpins: 10, MaxSpins: 16},
	}
}

// DefaultProfileName is used when no intensity preference has been chosen.
const DefaultProfileName = "normal"
