package tahti

import (
	"fmt"
	"io"
	"math"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// TicksPerBeat is the resolution of exported Standard MIDI Files.
const TicksPerBeat = 960

type smfEvent struct {
	tick uint32
	on   bool
	key  uint8
	vel  uint8
}

// WriteSMF writes the clip as a format 1 Standard MIDI File: a tempo track
// with the meter and the tempo, followed by one track with the audible notes
// on channel 0. Note overhang past the clip end is cut.
func (c *MidiClip) WriteSMF(w io.Writer, bpm float64) error {
	if err := ValidateTempo(bpm); err != nil {
		return err
	}
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(TicksPerBeat)
	var tempo smf.Track
	tempo.Add(0, smf.MetaMeter(BeatsPerBar, 4))
	tempo.Add(0, smf.MetaTempo(bpm))
	tempo.Close(0)
	if err := s.Add(tempo); err != nil {
		return fmt.Errorf("could not add tempo track: %w", err)
	}
	events := make([]smfEvent, 0, len(c.Notes)*2)
	for _, n := range c.Audible() {
		start, end := barsToTicks(n.Start), barsToTicks(n.End())
		if end <= start {
			continue
		}
		vel := uint8(max(1, min(127, math.Round(float64(n.Velocity)*127))))
		key := uint8(n.Pitch)
		events = append(events, smfEvent{start, true, key, vel}, smfEvent{end, false, key, 0})
	}
	// at equal ticks, note offs go first so that repeated notes retrigger
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].tick != events[j].tick {
			return events[i].tick < events[j].tick
		}
		return !events[i].on && events[j].on
	})
	var tr smf.Track
	var prev uint32
	for _, e := range events {
		if e.on {
			tr.Add(e.tick-prev, midi.NoteOn(0, e.key, e.vel))
		} else {
			tr.Add(e.tick-prev, midi.NoteOff(0, e.key))
		}
		prev = e.tick
	}
	tr.Close(barsToTicks(float64(c.Bars)) - prev)
	if err := s.Add(tr); err != nil {
		return fmt.Errorf("could not add note track: %w", err)
	}
	if _, err := s.WriteTo(w); err != nil {
		return fmt.Errorf("could not write midi file: %w", err)
	}
	return nil
}

// ReadMidiClip reads the notes of a Standard MIDI File into a new clip. All
// tracks and channels are merged. If bars is zero or less, the clip is made
// long enough to hold every note start.
func ReadMidiClip(r io.Reader, bars int) (MidiClip, error) {
	s, err := smf.ReadFrom(r)
	if err != nil {
		return MidiClip{}, fmt.Errorf("could not read midi file: %w", err)
	}
	tf, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok || tf == 0 {
		return MidiClip{}, fmt.Errorf("%w: only metric time format is supported", ErrInvalidClip)
	}
	ticksPerBar := float64(uint32(tf)) * BeatsPerBar
	type open struct {
		tick uint32
		vel  uint8
	}
	var notes []MidiNote
	var last float64
	for _, track := range s.Tracks {
		pending := map[uint8][]open{}
		var tick uint32
		for _, ev := range track {
			tick += ev.Delta
			var ch, key, vel uint8
			msg := midi.Message(ev.Message)
			switch {
			case msg.GetNoteStart(&ch, &key, &vel):
				pending[key] = append(pending[key], open{tick, vel})
			case msg.GetNoteEnd(&ch, &key):
				p := pending[key]
				if len(p) == 0 {
					continue
				}
				o := p[0]
				pending[key] = p[1:]
				if tick <= o.tick || key > 127 {
					continue
				}
				n := NewMidiNote(int(key), float64(o.tick)/ticksPerBar, float64(tick-o.tick)/ticksPerBar, float32(o.vel)/127)
				last = max(last, n.Start)
				notes = append(notes, n)
			}
		}
	}
	if bars <= 0 {
		bars = int(math.Floor(last)) + 1
	}
	c := NewMidiClip(bars)
	for _, n := range notes {
		if n.Start < float64(c.Bars) {
			c.Notes = append(c.Notes, n)
		}
	}
	sort.SliceStable(c.Notes, func(i, j int) bool { return c.Notes[i].Start < c.Notes[j].Start })
	return c, nil
}

func barsToTicks(bars float64) uint32 {
	return uint32(math.Round(bars * BeatsPerBar * TicksPerBeat))
}
