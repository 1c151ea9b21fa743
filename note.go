package tahti

import (
	"errors"
	"fmt"
	"strconv"
)

// DefaultPitch is returned by PitchNumber when the name does not parse: middle
// C, MIDI note 60.
const DefaultPitch = 60

var ErrInvalidNoteName = errors.New("invalid note name")

var pitchNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

var letterPitch = map[byte]int{'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11}

// PitchName returns the name of a MIDI note number, e.g. 60 is "C4" and 0 is
// "C-1". Values are clamped to 0..127.
func PitchName(n int) string {
	n = max(0, min(127, n))
	return pitchNames[n%12] + strconv.Itoa(n/12-1)
}

// PitchClass returns the sharp-spelled pitch class of a MIDI note number,
// e.g. 61 is "C#".
func PitchClass(n int) string {
	return pitchNames[((n%12)+12)%12]
}

// PitchNumber returns the MIDI note number of a name like "C4", "F#2" or
// "Bb3". Names that do not parse give DefaultPitch; use ParsePitch when the
// caller needs to know.
func PitchNumber(name string) int {
	n, err := ParsePitch(name)
	if err != nil {
		return DefaultPitch
	}
	return n
}

// ParsePitch parses a note name of the form <Letter>[#|b]<octave>, where the
// octave may be negative. It returns ErrInvalidNoteName for anything else,
// including names outside the MIDI range.
func ParsePitch(name string) (int, error) {
	if len(name) < 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNoteName, name)
	}
	base, ok := letterPitch[name[0]]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNoteName, name)
	}
	rest := name[1:]
	switch rest[0] {
	case '#':
		base++
		rest = rest[1:]
	case 'b':
		base--
		rest = rest[1:]
	}
	if rest == "" || rest[0] == '+' {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNoteName, name)
	}
	octave, err := strconv.Atoi(rest)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNoteName, name)
	}
	n := (octave+1)*12 + base
	if n < 0 || n > 127 {
		return 0, fmt.Errorf("%w: %q out of range", ErrInvalidNoteName, name)
	}
	return n, nil
}
