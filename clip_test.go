package tahti_test

import (
	"errors"
	"testing"

	"github.com/vsariola/tahti"
)

func TestDemoMidiClip(t *testing.T) {
	a, b := tahti.DemoMidiClip(), tahti.DemoMidiClip()
	if a.ID == b.ID {
		t.Fatal("demo clips should get new identities")
	}
	if len(a.Notes) != 4 || a.Bars != 1 {
		t.Fatalf("unexpected demo clip %+v", a)
	}
	for i := range a.Notes {
		x, y := a.Notes[i], b.Notes[i]
		if x.Pitch != y.Pitch || x.Start != y.Start || x.Duration != y.Duration || x.Velocity != y.Velocity {
			t.Fatalf("note %d differs between demo clips", i)
		}
		if x.ID == y.ID {
			t.Fatalf("note %d shares an identity", i)
		}
	}
	if err := a.Validate(); err != nil {
		t.Fatalf("demo clip does not validate: %v", err)
	}
}

func TestNewMidiClip(t *testing.T) {
	c := tahti.NewMidiClip(0)
	if c.Bars != 1 || len(c.Notes) != 0 || c.ID == "" {
		t.Fatalf("unexpected clip %+v", c)
	}
}

func TestAudibleTruncatesOverhang(t *testing.T) {
	c := tahti.NewMidiClip(2)
	c.Notes = []tahti.MidiNote{
		tahti.NewMidiNote(64, 1.5, 1, 1),
		tahti.NewMidiNote(60, 0, 0.25, 1),
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("overhang should be allowed: %v", err)
	}
	a := c.Audible()
	if len(a) != 2 || a[0].Pitch != 60 || a[1].Duration != 0.5 {
		t.Fatalf("Audible() = %+v", a)
	}
	if c.Notes[0].Duration != 1 {
		t.Fatal("Audible should not modify the stored notes")
	}
}

func TestMidiClipValidate(t *testing.T) {
	c := tahti.NewMidiClip(1)
	c.Notes = []tahti.MidiNote{tahti.NewMidiNote(60, 1, 0.25, 1)}
	if err := c.Validate(); !errors.Is(err, tahti.ErrInvalidClip) {
		t.Fatalf("note starting at the clip end should not validate, got %v", err)
	}
	c.Notes = []tahti.MidiNote{tahti.NewMidiNote(128, 0, 0.25, 1)}
	if err := c.Validate(); err == nil {
		t.Fatal("pitch 128 should not validate")
	}
	c.Notes = []tahti.MidiNote{tahti.NewMidiNote(60, 0, 0.25, 0)}
	if err := c.Validate(); err == nil {
		t.Fatal("zero velocity should not validate")
	}
}

func TestMidiClipCopy(t *testing.T) {
	c := tahti.DemoMidiClip()
	d := c.Copy()
	d.Notes[0].Pitch = 10
	if c.Notes[0].Pitch == 10 {
		t.Fatal("Copy shares the notes")
	}
}

func TestTrackCopy(t *testing.T) {
	clip := tahti.DemoMidiClip()
	tr := tahti.Track{ID: "a", Kind: tahti.MidiTrack, Midi: &clip}
	c := tr.Copy()
	c.Midi.Notes[0].Pitch = 1
	if tr.Midi.Notes[0].Pitch == 1 {
		t.Fatal("Track.Copy shares the clip")
	}
	bad := tahti.Track{ID: "b", Kind: tahti.AudioTrack, Midi: &clip}
	if err := bad.Validate(); err == nil {
		t.Fatal("audio track with a MIDI clip should not validate")
	}
}

func TestClampVolume(t *testing.T) {
	for _, c := range [][2]float64{{-1, 0}, {0.5, 0.5}, {3, 1}} {
		if got := tahti.ClampVolume(c[0]); got != c[1] {
			t.Errorf("ClampVolume(%v) = %v, expected %v", c[0], got, c[1])
		}
	}
}
