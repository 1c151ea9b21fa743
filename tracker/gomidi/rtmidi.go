//go:build cgo

package gomidi

import (
	"errors"
	"fmt"
	"strings"

	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

// RTMIDIContext lists and opens the MIDI output ports of the system.
type RTMIDIContext struct {
	driver     *rtmididrv.Driver
	currentOut drivers.Out
	output     *Output
}

// NewContext opens the driver. If it cannot be opened, the context has no
// devices.
func NewContext() *RTMIDIContext {
	var m RTMIDIContext
	m.driver, _ = rtmididrv.New()
	return &m
}

// OutputDevices yields the names of the output ports.
func (m *RTMIDIContext) OutputDevices(yield func(string) bool) {
	if m.driver == nil {
		return
	}
	outs, err := m.driver.Outs()
	if err != nil {
		return
	}
	for _, out := range outs {
		if !yield(out.String()) {
			break
		}
	}
}

// OpenBy opens the first output port whose name starts with namePrefix, or
// the first port at all if takeFirst is set, and returns an Output sending to
// it. The previously opened port is closed.
func (m *RTMIDIContext) OpenBy(namePrefix string, takeFirst bool) (*Output, error) {
	if m.driver == nil {
		return nil, errors.New("no driver available")
	}
	outs, err := m.driver.Outs()
	if err != nil {
		return nil, fmt.Errorf("listing MIDI outputs failed: %w", err)
	}
	for _, out := range outs {
		if !takeFirst && !strings.HasPrefix(out.String(), namePrefix) {
			continue
		}
		m.closeCurrent()
		if err := out.Open(); err != nil {
			return nil, fmt.Errorf("opening MIDI output failed: %w", err)
		}
		m.currentOut = out
		m.output = NewOutput(out)
		return m.output, nil
	}
	if takeFirst {
		return nil, errors.New("could not find any MIDI output")
	}
	return nil, fmt.Errorf("could not find any MIDI output starting with %q", namePrefix)
}

func (m *RTMIDIContext) closeCurrent() {
	if m.output != nil {
		m.output.Close()
		m.output = nil
	}
	if m.currentOut != nil && m.currentOut.IsOpen() {
		m.currentOut.Close()
	}
	m.currentOut = nil
}

func (m *RTMIDIContext) Close() error {
	if m.driver == nil {
		return nil
	}
	m.closeCurrent()
	return m.driver.Close()
}
