/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package spin

// FullTurn is one rotation of the wheel, in degrees.
const FullTurn = 360.0

// Segment is one named slice of the wheel. Angles are in degrees, measured
// clockwise from the top in the wheel's own frame.
type Segment struct {
	Name       string  `json:"name"`
	StartAngle float64 `json:"start_angle"`
	EndAngle   float64 `json:"end_angle"`
}

// Segments partitions [0, 360) into len(names) equal slices, in list order.
func Segments(names []string) []Segment {
	segments := make([]Segment, len(names))
	if len(names) == 0 {
		return segments
	}

	width := FullTurn / float64(len(names))
	for i, name := range names {
		segments[i] = Segment{
			Name:       name,
			StartAngle: float64(i) * width,
			EndAngle:   float64(i+1) * width,
		}
	}

	// Avoid 359.99999 for the last slice.
	segments[len(segments)-1].EndAngle = FullTurn

	return segments
}
