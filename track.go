package tahti

import "fmt"

type (
	// TrackKind tells which payload a track can hold.
	TrackKind int

	// AudioClip is the audio payload of a track: an opaque reference to
	// audio content (an URL or a file path), placed at StartBar.
	AudioClip struct {
		ID       string
		Ref      string
		Name     string `yaml:",omitempty"`
		StartBar int    `yaml:",omitempty"`
	}

	// AudioClipSlot identifies where a generated audio clip goes: the track,
	// the bar, and optionally the clip it replaces. An empty ClipID means a
	// new clip is inserted.
	AudioClipSlot struct {
		TrackID  string
		StartBar int
		ClipID   string
	}

	// Track is a single lane of the arrangement. A track holds at most one
	// payload, which must match its Kind: Audio for AudioTrack, Midi for
	// MidiTrack.
	Track struct {
		ID     string
		Name   string
		Color  string `yaml:",omitempty"`
		Kind   TrackKind
		Muted  bool       `yaml:",omitempty"`
		Solo   bool       `yaml:",omitempty"`
		Volume float64
		Audio  *AudioClip `yaml:",omitempty"`
		Midi   *MidiClip  `yaml:",omitempty"`
	}
)

const (
	AudioTrack TrackKind = iota
	MidiTrack
)

// The gain range of track volumes.
const (
	MinVolume     = 0.0
	MaxVolume     = 1.0
	DefaultVolume = 0.8
)

// ClampVolume clamps v into [MinVolume, MaxVolume].
func ClampVolume(v float64) float64 {
	if v != v { // NaN
		return DefaultVolume
	}
	return max(MinVolume, min(MaxVolume, v))
}

func (k TrackKind) String() string {
	switch k {
	case AudioTrack:
		return "audio"
	case MidiTrack:
		return "midi"
	}
	return fmt.Sprintf("TrackKind(%d)", int(k))
}

func (k TrackKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *TrackKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "audio":
		*k = AudioTrack
	case "midi":
		*k = MidiTrack
	default:
		return fmt.Errorf("unknown track kind %q", text)
	}
	return nil
}

// HasContent reports whether the track has a payload.
func (t *Track) HasContent() bool { return t.Audio != nil || t.Midi != nil }

// Copy makes a deep copy of a Track.
func (t *Track) Copy() Track {
	ret := *t
	if t.Audio != nil {
		a := *t.Audio
		ret.Audio = &a
	}
	if t.Midi != nil {
		m := t.Midi.Copy()
		ret.Midi = &m
	}
	return ret
}

// Validate checks that the payload matches the kind.
func (t *Track) Validate() error {
	switch t.Kind {
	case AudioTrack:
		if t.Midi != nil {
			return fmt.Errorf("audio track %s has a MIDI clip", t.ID)
		}
	case MidiTrack:
		if t.Audio != nil {
			return fmt.Errorf("MIDI track %s has an audio clip", t.ID)
		}
		if t.Midi != nil {
			if err := t.Midi.Validate(); err != nil {
				return fmt.Errorf("track %s: %w", t.ID, err)
			}
		}
	default:
		return fmt.Errorf("track %s: %v", t.ID, t.Kind)
	}
	return nil
}
