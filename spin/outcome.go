/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package spin

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// Random supplies uniform draws in [0, 1).
type Random interface {
	Float64() float64
}

// stdRandom delegates to math/rand/v2, which is seeded automatically.
type stdRandom struct{}

func (stdRandom) Float64() float64 { return rand.Float64() }

// NewRandom returns the production random source.
func NewRandom() Random {
	return stdRandom{}
}

// Outcome is the result of one spin. TotalRotation accumulates across spins.
type Outcome struct {
	TotalRotation float64 `json:"total_rotation"`
	WinningIndex  int     `json:"winning_index"`
}

// ComputeOutcome draws a spin count from the profile and a landing offset,
// then maps the resulting rotation onto one of segmentCount segments.
func ComputeOutcome(prior float64, profile Profile, segmentCount int, r Random) (Outcome, error) {
	if segmentCount < 2 {
		return Outcome{}, fmt.Errorf("%w: have %d", ErrInsufficientSegments, segmentCount)
	}
	if err := profile.Validate(); err != nil {
		return Outcome{}, err
	}

	spinCount := profile.MinSpins + r.Float64()*(profile.MaxSpins-profile.MinSpins)
	offset := r.Float64() * FullTurn

	return OutcomeFromDraws(prior, spinCount, offset, segmentCount)
}

// OutcomeFromDraws is ComputeOutcome with the random draws supplied directly.
func OutcomeFromDraws(prior, spinCount, offset float64, segmentCount int) (Outcome, error) {
	if segmentCount < 2 {
		return Outcome{}, fmt.Errorf("%w: have %d", ErrInsufficientSegments, segmentCount)
	}

	total := prior + spinCount*FullTurn + offset

	return Outcome{
		TotalRotation: total,
		WinningIndex:  WinningIndex(total, segmentCount),
	}, nil
}

// NormalizedAngle reflects a clockwise wheel rotation into the wheel-frame
// angle sitting under a pointer fixed at the top.
func NormalizedAngle(rotation float64) float64 {
	landed := math.Mod(rotation, FullTurn)
	if landed < 0 {
		landed += FullTurn
	}
	return math.Mod(FullTurn-landed, FullTurn)
}

// WinningIndex returns the segment under the pointer for the given rotation.
func WinningIndex(rotation float64, segmentCount int) int {
	if segmentCount <= 0 {
		return -1
	}

	width := FullTurn / float64(segmentCount)
	index := int(math.Floor(NormalizedAngle(rotation) / width))

	return max(0, min(index, segmentCount-1))
}
