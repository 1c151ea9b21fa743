//go:build cgo

package cmd

import (
	"io"

	"github.com/vsariola/tahti/tracker"
	"github.com/vsariola/tahti/tracker/gomidi"
)

// OpenMidiOutput opens the first MIDI output port whose name starts with
// prefix; an empty prefix takes the first port. The returned closer closes the
// port and the driver.
func OpenMidiOutput(prefix string) (tracker.NoteSink, io.Closer, error) {
	ctx := gomidi.NewContext()
	out, err := ctx.OpenBy(prefix, prefix == "")
	if err != nil {
		ctx.Close()
		return nil, nil, err
	}
	return out, ctx, nil
}

// MidiOutputs lists the names of the MIDI output ports.
func MidiOutputs() []string {
	ctx := gomidi.NewContext()
	defer ctx.Close()
	var ret []string
	ctx.OutputDevices(func(name string) bool {
		ret = append(ret, name)
		return true
	})
	return ret
}
