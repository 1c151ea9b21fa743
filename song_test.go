package tahti_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/vsariola/tahti"
)

func testSong() tahti.Song {
	s := tahti.NewSong()
	s.BPM = 96
	s.Key = tahti.KeySignature{Root: "F#", Mode: tahti.Minor}
	clip := tahti.DemoMidiClip()
	s.Tracks = []tahti.Track{
		{ID: "drums", Name: "Drums", Kind: tahti.AudioTrack, Volume: 0.8, Audio: &tahti.AudioClip{ID: "c1", Ref: "http://example.com/a.mp3"}},
		{ID: "keys", Name: "Keys", Kind: tahti.MidiTrack, Volume: 1, Solo: true, Midi: &clip},
	}
	return s
}

func TestSongYamlRoundTrip(t *testing.T) {
	s := testSong()
	var buf bytes.Buffer
	if err := s.Write(&buf, ".yml"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	got, err := tahti.ReadSong(&buf)
	if err != nil {
		t.Fatalf("ReadSong failed: %v", err)
	}
	if got.BPM != 96 || got.Key != s.Key || got.LoopEnd != tahti.DefaultLoopBars || len(got.Tracks) != 2 {
		t.Fatalf("song did not survive: %+v", got)
	}
	if got.Tracks[1].Kind != tahti.MidiTrack || len(got.Tracks[1].Midi.Notes) != 4 || !got.Tracks[1].Solo {
		t.Fatalf("midi track did not survive: %+v", got.Tracks[1])
	}
	if got.Tracks[0].Audio.Ref != "http://example.com/a.mp3" {
		t.Fatalf("audio ref did not survive: %+v", got.Tracks[0].Audio)
	}
}

func TestSongJSON(t *testing.T) {
	s := testSong()
	var buf bytes.Buffer
	if err := s.Write(&buf, ".json"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if !strings.Contains(buf.String(), `"minor"`) {
		t.Fatalf("mode should be written as text: %s", buf.String())
	}
	got, err := tahti.ReadSong(&buf)
	if err != nil {
		t.Fatalf("ReadSong failed: %v", err)
	}
	if got.Key != s.Key || got.Tracks[0].Kind != tahti.AudioTrack {
		t.Fatalf("song did not survive: %+v", got)
	}
}

func TestReadSongDefaults(t *testing.T) {
	got, err := tahti.ReadSong(strings.NewReader("tracks: []\n"))
	if err != nil {
		t.Fatalf("ReadSong failed: %v", err)
	}
	if got.BPM != tahti.DefaultBPM || got.Key != tahti.DefaultKey || got.LoopLength() != tahti.DefaultLoopBars {
		t.Fatalf("defaults not applied: %+v", got)
	}
}

func TestReadSongInvalid(t *testing.T) {
	if _, err := tahti.ReadSong(strings.NewReader("bpm: 120\nloopstart: 8\nloopend: 8\n")); !errors.Is(err, tahti.ErrInvalidLoop) {
		t.Fatalf("expected ErrInvalidLoop, got %v", err)
	}
	if _, err := tahti.ReadSong(strings.NewReader("bpm: 0\n")); !errors.Is(err, tahti.ErrInvalidTempo) {
		t.Fatalf("expected ErrInvalidTempo, got %v", err)
	}
	dup := "tracks:\n  - id: a\n    kind: audio\n  - id: a\n    kind: audio\n"
	if _, err := tahti.ReadSong(strings.NewReader(dup)); err == nil {
		t.Fatal("duplicate track ids should not be accepted")
	}
}

func TestSongCopy(t *testing.T) {
	s := testSong()
	c := s.Copy()
	c.Tracks[0].Audio.Ref = "changed"
	c.Tracks[1].Midi.Notes[0].Pitch = 0
	if s.Tracks[0].Audio.Ref == "changed" || s.Tracks[1].Midi.Notes[0].Pitch == 0 {
		t.Fatal("Song.Copy is not deep")
	}
	if s.TrackIndex("keys") != 1 || s.TrackIndex("nope") != -1 {
		t.Fatal("TrackIndex failed")
	}
}
