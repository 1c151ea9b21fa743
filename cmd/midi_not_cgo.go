//go:build !cgo

package cmd

import (
	"errors"
	"io"

	"github.com/vsariola/tahti/tracker"
)

// OpenMidiOutput always fails: with no cgo, we cannot use MIDI.
func OpenMidiOutput(prefix string) (tracker.NoteSink, io.Closer, error) {
	return nil, nil, errors.New("MIDI output is not available in builds without cgo")
}

func MidiOutputs() []string { return nil }
