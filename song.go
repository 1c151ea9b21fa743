package tahti

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"

	"gopkg.in/yaml.v3"
)

// Song is the project document: the tempo, the key, the loop bounds and the
// ordered list of tracks. Order of Tracks is the display and mix order.
type Song struct {
	BPM       float64
	Key       KeySignature
	LoopStart int `yaml:",omitempty"`
	LoopEnd   int
	Tracks    []Track `yaml:",omitempty"`
}

// DefaultLoopBars is the length of the project loop in a new song.
const DefaultLoopBars = 16

// DefaultBPM is the tempo used when nothing else is known.
const DefaultBPM = 120

// Tempo limits accepted by the transport.
const (
	MinBPM = 20
	MaxBPM = 400
)

var (
	ErrInvalidTempo = errors.New("invalid tempo")
	ErrInvalidLoop  = errors.New("invalid loop bounds")
)

// NewSong returns an empty song at the default tempo and key, looping the
// first DefaultLoopBars bars.
func NewSong() Song {
	return Song{BPM: DefaultBPM, Key: DefaultKey, LoopEnd: DefaultLoopBars}
}

// ValidateTempo returns ErrInvalidTempo unless MinBPM <= bpm <= MaxBPM.
func ValidateTempo(bpm float64) error {
	if math.IsNaN(bpm) || bpm < MinBPM || bpm > MaxBPM {
		return fmt.Errorf("%w: %v", ErrInvalidTempo, bpm)
	}
	return nil
}

// ValidateLoop returns ErrInvalidLoop unless 0 <= start < end.
func ValidateLoop(start, end int) error {
	if start < 0 || end <= start {
		return fmt.Errorf("%w: %d..%d", ErrInvalidLoop, start, end)
	}
	return nil
}

// LoopLength returns the length of the loop in bars.
func (s *Song) LoopLength() int { return s.LoopEnd - s.LoopStart }

// TrackIndex returns the index of the track with given id, or -1.
func (s *Song) TrackIndex(id string) int {
	for i := range s.Tracks {
		if s.Tracks[i].ID == id {
			return i
		}
	}
	return -1
}

// Copy makes a deep copy of a Song.
func (s *Song) Copy() Song {
	tracks := make([]Track, len(s.Tracks))
	for i := range s.Tracks {
		tracks[i] = s.Tracks[i].Copy()
	}
	return Song{BPM: s.BPM, Key: s.Key, LoopStart: s.LoopStart, LoopEnd: s.LoopEnd, Tracks: tracks}
}

// Validate checks the tempo, the loop bounds and every track. Track ids must
// be unique.
func (s *Song) Validate() error {
	if err := ValidateTempo(s.BPM); err != nil {
		return err
	}
	if err := ValidateLoop(s.LoopStart, s.LoopEnd); err != nil {
		return err
	}
	seen := map[string]bool{}
	for i := range s.Tracks {
		t := &s.Tracks[i]
		if seen[t.ID] {
			return fmt.Errorf("duplicate track id %s", t.ID)
		}
		seen[t.ID] = true
		if err := t.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ReadSong parses a song from json or yaml. Missing tempo, loop and key
// fields get their defaults.
func ReadSong(r io.Reader) (Song, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return Song{}, fmt.Errorf("could not read song: %w", err)
	}
	song := NewSong()
	if errJSON := json.Unmarshal(b, &song); errJSON != nil {
		song = NewSong()
		if errYaml := yaml.Unmarshal(b, &song); errYaml != nil {
			return Song{}, fmt.Errorf("the song could not be parsed as .json (%v) or .yml (%v)", errJSON, errYaml)
		}
	}
	if song.Key.Root == "" {
		song.Key = DefaultKey
	}
	if err := song.Validate(); err != nil {
		return Song{}, fmt.Errorf("invalid song: %w", err)
	}
	return song, nil
}

// Write serializes the song as json if ext is ".json", otherwise as yaml.
func (s *Song) Write(w io.Writer, ext string) error {
	var b []byte
	var err error
	if ext == ".json" {
		b, err = json.MarshalIndent(s, "", "  ")
	} else {
		b, err = yaml.Marshal(s)
	}
	if err != nil {
		return fmt.Errorf("could not marshal song: %w", err)
	}
	if _, err := w.Write(b); err != nil {
		return fmt.Errorf("could not write song: %w", err)
	}
	return nil
}
