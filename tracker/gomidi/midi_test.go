package gomidi_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vsariola/tahti"
	"github.com/vsariola/tahti/tracker"
	"github.com/vsariola/tahti/tracker/gomidi"
	"gitlab.com/gomidi/midi/v2"
)

type fakePort struct {
	mu   sync.Mutex
	sent []midi.Message
	at   []time.Time
	fail bool
}

func (p *fakePort) Send(data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, midi.Message(append([]byte(nil), data...)))
	p.at = append(p.at, time.Now())
	if p.fail {
		return errors.New("unplugged")
	}
	return nil
}

func TestMessage(t *testing.T) {
	var ch, key, vel uint8
	on := gomidi.Message(tracker.NoteEvent{On: true, Pitch: 60, Velocity: 1, Gain: 0.5}, 3)
	if !on.GetNoteOn(&ch, &key, &vel) || ch != 3 || key != 60 || vel != 64 {
		t.Errorf("note on %v: channel %d key %d velocity %d", on, ch, key, vel)
	}
	quiet := gomidi.Message(tracker.NoteEvent{On: true, Pitch: 60, Velocity: 0.5, Gain: 0}, 0)
	if !quiet.GetNoteOn(&ch, &key, &vel) || vel != 1 {
		t.Errorf("silent note on has velocity %d, want 1", vel)
	}
	off := gomidi.Message(tracker.NoteEvent{Pitch: 200}, 0)
	if !off.GetNoteOff(&ch, &key, &vel) || key != 127 {
		t.Errorf("note off %v: key %d", off, key)
	}
}

func TestOutputChannelsPerTrack(t *testing.T) {
	port := &fakePort{}
	o := gomidi.NewOutput(port)
	o.Note(tracker.NoteEvent{On: true, TrackID: "a", Pitch: 60, Velocity: 1, Gain: 1})
	o.Note(tracker.NoteEvent{On: true, TrackID: "b", Pitch: 62, Velocity: 1, Gain: 1})
	o.Note(tracker.NoteEvent{TrackID: "a", Pitch: 60})
	if err := o.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if len(port.sent) != 3 {
		t.Fatalf("sent %d messages, want 3", len(port.sent))
	}
	wantCh := []uint8{0, 1, 0}
	for i, msg := range port.sent {
		var ch, key, vel uint8
		if !msg.GetNoteOn(&ch, &key, &vel) && !msg.GetNoteOff(&ch, &key, &vel) {
			t.Fatalf("message %d is not a note: %v", i, msg)
		}
		if ch != wantCh[i] {
			t.Errorf("message %d on channel %d, want %d", i, ch, wantCh[i])
		}
	}
}

func TestOutputReportsSendError(t *testing.T) {
	o := gomidi.NewOutput(&fakePort{fail: true})
	o.Note(tracker.NoteEvent{On: true, Pitch: 60, Velocity: 1, Gain: 1})
	if err := o.Close(); err == nil {
		t.Errorf("send error not reported")
	}
	if err := o.Close(); err == nil {
		t.Errorf("second close lost the error")
	}
}

func (p *fakePort) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sent)
}

func TestOutputOrdersByFrame(t *testing.T) {
	port := &fakePort{}
	o := gomidi.NewOutput(port)
	o.Note(tracker.NoteEvent{Frame: 4410, On: true, TrackID: "a", Pitch: 72, Velocity: 1, Gain: 1})
	o.Note(tracker.NoteEvent{Frame: 0, On: true, TrackID: "a", Pitch: 60, Velocity: 1, Gain: 1})
	if err := o.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	var ch, key, vel uint8
	if len(port.sent) != 2 || !port.sent[0].GetNoteOn(&ch, &key, &vel) || key != 60 {
		t.Errorf("the later frame was sent first: %v", port.sent)
	}
}

func TestOutputPacesByFrame(t *testing.T) {
	port := &fakePort{}
	o := gomidi.NewOutput(port)
	defer o.Close()
	start := time.Now()
	o.Note(tracker.NoteEvent{Frame: tahti.SampleRate / 20, On: true, TrackID: "a", Pitch: 60, Velocity: 1, Gain: 1})
	deadline := time.Now().Add(5 * time.Second)
	for port.count() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("message never sent")
		}
		time.Sleep(time.Millisecond)
	}
	port.mu.Lock()
	elapsed := port.at[0].Sub(start)
	port.mu.Unlock()
	if elapsed < 40*time.Millisecond {
		t.Errorf("message for a frame 50 ms into the buffer sent after %v", elapsed)
	}
}
