package tracker

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/vsariola/tahti"
)

// ReadSong replaces the song with one read from r, json or yaml. Loading a
// song is undoable. r is closed.
func (m *Model) ReadSong(r io.ReadCloser) error {
	song, err := tahti.ReadSong(r)
	if cerr := r.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		m.Alerts().Add(fmt.Sprintf("Error reading a song file: %v", err), Error)
		return err
	}
	f := m.change("LoadSong")
	m.d.Song = song
	f()
	if f, ok := r.(*os.File); ok {
		m.d.FilePath = f.Name()
		m.d.ChangedSinceSave = false
	}
	return nil
}

// WriteSong writes the song to w, as json if w is a file with the .json
// extension, otherwise as yaml. w is closed.
func (m *Model) WriteSong(w io.WriteCloser) error {
	ext := ".yml"
	f, isFile := w.(*os.File)
	if isFile {
		ext = filepath.Ext(f.Name())
	}
	err := m.d.Song.Write(w, ext)
	if cerr := w.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		m.Alerts().Add(fmt.Sprintf("Error writing a song file: %v", err), Error)
		return err
	}
	if isFile {
		m.d.FilePath = f.Name()
		m.d.ChangedSinceSave = false
	}
	return nil
}

// FilePath returns the path the song was last read from or written to.
func (m *Model) FilePath() string { return m.d.FilePath }

// ExportMidi writes the MIDI clip of a track as a Standard MIDI File at the
// song tempo.
func (m *Model) ExportMidi(trackID string, w io.Writer) error {
	i := m.d.Song.TrackIndex(trackID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNoSuchTrack, trackID)
	}
	t := &m.d.Song.Tracks[i]
	if t.Kind != tahti.MidiTrack || t.Midi == nil {
		return fmt.Errorf("%w: track %s has no MIDI clip", ErrKindMismatch, t.Name)
	}
	return t.Midi.WriteSMF(w, m.d.Song.BPM)
}

// ImportMidi reads a Standard MIDI File into the clip of a MIDI track,
// replacing its notes. The clip keeps its placement and length.
func (m *Model) ImportMidi(trackID string, r io.Reader) error {
	i := m.d.Song.TrackIndex(trackID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNoSuchTrack, trackID)
	}
	bars := 0
	startBar := 0
	if c := m.d.Song.Tracks[i].Midi; c != nil {
		bars, startBar = c.Bars, c.StartBar
	}
	clip, err := tahti.ReadMidiClip(r, bars)
	if err != nil {
		m.Alerts().Add(fmt.Sprintf("Error importing a MIDI file: %v", err), Error)
		return err
	}
	clip.StartBar = startBar
	return m.Track().SetMidiClip(trackID, clip)
}
