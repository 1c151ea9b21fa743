package tahti_test

import (
	"bytes"
	"math"
	"testing"

	"github.com/vsariola/tahti"
)

func TestSMFRoundTrip(t *testing.T) {
	c := tahti.NewMidiClip(2)
	c.Notes = []tahti.MidiNote{
		tahti.NewMidiNote(60, 0, 0.25, 1),
		tahti.NewMidiNote(64, 0.5, 0.25, 0.5),
		tahti.NewMidiNote(67, 1.75, 1, 0.8), // overhang, cut at bar 2
	}
	var buf bytes.Buffer
	if err := c.WriteSMF(&buf, 120); err != nil {
		t.Fatalf("WriteSMF failed: %v", err)
	}
	got, err := tahti.ReadMidiClip(&buf, 0)
	if err != nil {
		t.Fatalf("ReadMidiClip failed: %v", err)
	}
	if got.Bars != 2 || len(got.Notes) != 3 {
		t.Fatalf("unexpected clip %+v", got)
	}
	expected := []struct {
		pitch           int
		start, duration float64
	}{{60, 0, 0.25}, {64, 0.5, 0.25}, {67, 1.75, 0.25}}
	for i, e := range expected {
		n := got.Notes[i]
		if n.Pitch != e.pitch || math.Abs(n.Start-e.start) > 1e-9 || math.Abs(n.Duration-e.duration) > 1e-9 {
			t.Errorf("note %d = %+v, expected %+v", i, n, e)
		}
	}
	if v := got.Notes[1].Velocity; math.Abs(float64(v)-64.0/127) > 1e-6 {
		t.Errorf("velocity = %v", v)
	}
}

func TestWriteSMFInvalidTempo(t *testing.T) {
	c := tahti.DemoMidiClip()
	if err := c.WriteSMF(&bytes.Buffer{}, 0); err == nil {
		t.Fatal("expected an error for zero tempo")
	}
}
