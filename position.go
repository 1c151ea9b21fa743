package tahti

import (
	"fmt"
	"math"
)

// BeatsPerBar is the number of beats in a bar. The project is always in 4/4;
// loop progress and bar arithmetic assume this.
const BeatsPerBar = 4

// Position represents a position in musical time: the bar, the beat within
// the bar and the fraction of the beat. The zero value is bar 0, beat 0. A
// normalized Position has Bar >= 0, 0 <= Beat < BeatsPerBar and 0 <= Sub < 1.
type Position struct {
	Bar  int
	Beat int
	Sub  float64
}

// PositionOf converts a number of beats (since bar 0 beat 0) into a
// normalized Position. Negative beats are clamped to zero.
func PositionOf(beats float64) Position {
	if beats <= 0 || math.IsNaN(beats) {
		return Position{}
	}
	whole := math.Floor(beats)
	sub := beats - whole
	b := int(whole)
	return Position{Bar: b / BeatsPerBar, Beat: b % BeatsPerBar, Sub: sub}
}

// Beats returns the position as the number of beats since bar 0 beat 0.
func (p Position) Beats() float64 {
	return float64(p.Bar*BeatsPerBar+p.Beat) + p.Sub
}

// Normalize carries any overflow of Sub and Beat into the higher fields.
func (p Position) Normalize() Position {
	return PositionOf(p.Beats())
}

// Compare returns -1, 0 or 1 depending on whether p is before, at or after q.
// The order is lexicographic by (Bar, Beat, Sub) of the normalized values.
func (p Position) Compare(q Position) int {
	a, b := p.Beats(), q.Beats()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Less reports whether p is strictly before q.
func (p Position) Less(q Position) bool { return p.Compare(q) < 0 }

// Seconds returns the wall-clock time from bar 0 to p at a constant tempo.
func (p Position) Seconds(bpm float64) float64 {
	return p.Beats() * SecondsPerBeat(bpm)
}

// PositionAt returns the musical position reached after seconds of playback
// at a constant tempo.
func PositionAt(seconds, bpm float64) Position {
	if bpm <= 0 {
		return Position{}
	}
	return PositionOf(seconds * bpm / 60)
}

// SecondsPerBeat returns the length of one beat in seconds; zero for
// non-positive tempos.
func SecondsPerBeat(bpm float64) float64 {
	if bpm <= 0 {
		return 0
	}
	return 60 / bpm
}

// SecondsPerBar returns the length of one bar in seconds.
func SecondsPerBar(bpm float64) float64 {
	return SecondsPerBeat(bpm) * BeatsPerBar
}

// String formats the position as 1-based "bar.beat.sixteenth", the way
// arrangement views usually display it.
func (p Position) String() string {
	return fmt.Sprintf("%d.%d.%d", p.Bar+1, p.Beat+1, int(p.Sub*4)+1)
}
