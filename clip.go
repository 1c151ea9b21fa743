package tahti

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

type (
	// MidiNote is a single note in a MidiClip. Start and Duration are given in
	// bars, relative to the start of the clip. Velocity is in (0, 1].
	//
	// A note may extend past the end of its clip; the overhang is kept in the
	// data and cut when the clip is rendered (see MidiClip.Audible).
	MidiNote struct {
		ID       string
		Pitch    int
		Start    float64
		Duration float64
		Velocity float32
	}

	// MidiClip is the MIDI payload of a track: a number of bars placed at
	// StartBar, and the notes in it.
	MidiClip struct {
		ID       string
		StartBar int `yaml:",omitempty"`
		Bars     int
		Notes    []MidiNote `yaml:",omitempty"`
	}
)

var ErrInvalidClip = errors.New("invalid clip")

// NewID returns a new identity for tracks, clips and notes.
func NewID() string { return uuid.NewString() }

// NewMidiClip returns an empty clip of given length in bars, with a new
// identity.
func NewMidiClip(bars int) MidiClip {
	if bars < 1 {
		bars = 1
	}
	return MidiClip{ID: NewID(), Bars: bars}
}

// DemoMidiClip returns the one-bar clip used to scaffold a new project: C4,
// E4, G4 and C5 on the four beats. The content is always the same but every
// call gets new identities.
func DemoMidiClip() MidiClip {
	c := NewMidiClip(1)
	for i, p := range [...]int{60, 64, 67, 72} {
		c.Notes = append(c.Notes, MidiNote{
			ID:       NewID(),
			Pitch:    p,
			Start:    float64(i) / BeatsPerBar,
			Duration: 1.0 / BeatsPerBar,
			Velocity: 0.8,
		})
	}
	return c
}

// NewMidiNote returns a note with a new identity.
func NewMidiNote(pitch int, start, duration float64, velocity float32) MidiNote {
	return MidiNote{ID: NewID(), Pitch: pitch, Start: start, Duration: duration, Velocity: velocity}
}

// End returns the bar offset where the note ends, overhang included.
func (n MidiNote) End() float64 { return n.Start + n.Duration }

// Validate checks that the note is within the value ranges: pitch 0..127,
// non-negative start, positive duration and velocity in (0, 1].
func (n MidiNote) Validate() error {
	switch {
	case n.Pitch < 0 || n.Pitch > 127:
		return fmt.Errorf("note %s: pitch %d out of range", n.ID, n.Pitch)
	case n.Start < 0:
		return fmt.Errorf("note %s: negative start %v", n.ID, n.Start)
	case n.Duration <= 0:
		return fmt.Errorf("note %s: duration %v should be > 0", n.ID, n.Duration)
	case n.Velocity <= 0 || n.Velocity > 1:
		return fmt.Errorf("note %s: velocity %v out of range", n.ID, n.Velocity)
	}
	return nil
}

// Validate checks the clip length and all its notes. Notes must start inside
// the clip but may end after it.
func (c *MidiClip) Validate() error {
	if c.Bars < 1 {
		return fmt.Errorf("%w: clip %s has %d bars", ErrInvalidClip, c.ID, c.Bars)
	}
	for _, n := range c.Notes {
		if err := n.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidClip, err)
		}
		if n.Start >= float64(c.Bars) {
			return fmt.Errorf("%w: note %s starts after the clip end", ErrInvalidClip, n.ID)
		}
	}
	return nil
}

// Audible returns the notes as they sound: sorted by start, with any note
// extending past the end of the clip truncated at the end. Notes starting
// outside the clip are dropped.
func (c *MidiClip) Audible() []MidiNote {
	ret := make([]MidiNote, 0, len(c.Notes))
	end := float64(c.Bars)
	for _, n := range c.Notes {
		if n.Start < 0 || n.Start >= end || n.Duration <= 0 {
			continue
		}
		if n.End() > end {
			n.Duration = end - n.Start
		}
		ret = append(ret, n)
	}
	sort.SliceStable(ret, func(i, j int) bool { return ret[i].Start < ret[j].Start })
	return ret
}

// Copy makes a deep copy of a MidiClip.
func (c *MidiClip) Copy() MidiClip {
	notes := make([]MidiNote, len(c.Notes))
	copy(notes, c.Notes)
	return MidiClip{ID: c.ID, StartBar: c.StartBar, Bars: c.Bars, Notes: notes}
}
