package tracker

import (
	"fmt"
	"strings"

	"github.com/vsariola/tahti"
)

// TrackModel is the view of the model for manipulating the tracks of the song.
// Every modification is undoable and is sent to the player.
type TrackModel Model

// Track returns the Track view of the model.
func (m *Model) Track() *TrackModel { return (*TrackModel)(m) }

func (m *TrackModel) song() *tahti.Song { return &m.d.Song }

func (m *TrackModel) find(id string) (*tahti.Track, error) {
	i := m.song().TrackIndex(id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchTrack, id)
	}
	return &m.d.Song.Tracks[i], nil
}

// Count returns the number of tracks.
func (m *TrackModel) Count() int { return len(m.d.Song.Tracks) }

// List returns a copy of the tracks, in order.
func (m *TrackModel) List() []tahti.Track {
	ret := make([]tahti.Track, len(m.d.Song.Tracks))
	for i := range m.d.Song.Tracks {
		ret[i] = m.d.Song.Tracks[i].Copy()
	}
	return ret
}

// Get returns a copy of the track with the given id.
func (m *TrackModel) Get(id string) (tahti.Track, bool) {
	t, err := m.find(id)
	if err != nil {
		return tahti.Track{}, false
	}
	return t.Copy(), true
}

// Audible returns the tracks that sound during playback. When any track is
// soloed, the tracks that are not soloed are silent; muted tracks are always
// silent.
func (m *TrackModel) Audible() []tahti.Track {
	idx := audible(m.d.Song.Tracks)
	ret := make([]tahti.Track, len(idx))
	for i, j := range idx {
		ret[i] = m.d.Song.Tracks[j].Copy()
	}
	return ret
}

// Add appends a new track of the given kind with a new identity and returns
// the identity. An empty name gets a default like "MIDI 2".
func (m *TrackModel) Add(kind tahti.TrackKind, name string) string {
	defer (*Model)(m).change("AddTrack")()
	n := len(m.d.Song.Tracks)
	if name = strings.TrimSpace(name); name == "" {
		count := 1
		for i := range m.d.Song.Tracks {
			if m.d.Song.Tracks[i].Kind == kind {
				count++
			}
		}
		name = fmt.Sprintf("%s %d", kindLabel(kind), count)
	}
	t := tahti.Track{
		ID:     tahti.NewID(),
		Name:   name,
		Color:  trackColors[n%len(trackColors)],
		Kind:   kind,
		Volume: tahti.DefaultVolume,
	}
	m.d.Song.Tracks = append(m.d.Song.Tracks, t)
	return t.ID
}

func kindLabel(k tahti.TrackKind) string {
	if k == tahti.MidiTrack {
		return "MIDI"
	}
	return "Audio"
}

// Remove deletes a track. The order of the other tracks is kept.
func (m *TrackModel) Remove(id string) error {
	i := m.song().TrackIndex(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNoSuchTrack, id)
	}
	defer (*Model)(m).change("RemoveTrack")()
	m.d.Song.Tracks = append(m.d.Song.Tracks[:i], m.d.Song.Tracks[i+1:]...)
	return nil
}

// Swap exchanges the positions of two tracks.
func (m *TrackModel) Swap(a, b string) error {
	i, j := m.song().TrackIndex(a), m.song().TrackIndex(b)
	if i < 0 || j < 0 {
		return fmt.Errorf("%w: %s or %s", ErrNoSuchTrack, a, b)
	}
	if i == j {
		return nil
	}
	defer (*Model)(m).change("SwapTracks")()
	tr := m.d.Song.Tracks
	tr[i], tr[j] = tr[j], tr[i]
	return nil
}

// SetName renames a track.
func (m *TrackModel) SetName(id, name string) error {
	t, err := m.find(id)
	if err != nil {
		return err
	}
	if t.Name == name {
		return nil
	}
	defer (*Model)(m).change("SetName")()
	t.Name = name
	return nil
}

// SetMidiClip replaces the MIDI payload of a MIDI track. A clip without an
// identity gets a new one.
func (m *TrackModel) SetMidiClip(id string, clip tahti.MidiClip) error {
	t, err := m.find(id)
	if err != nil {
		return err
	}
	if t.Kind != tahti.MidiTrack {
		return fmt.Errorf("%w: %s is an audio track", ErrKindMismatch, t.Name)
	}
	if err := clip.Validate(); err != nil {
		return err
	}
	if clip.ID == "" {
		clip.ID = tahti.NewID()
	}
	defer (*Model)(m).change("SetMidiClip")()
	c := clip.Copy()
	t.Midi = &c
	return nil
}

// SetAudioClip replaces the audio payload of an audio track. A clip without
// an identity gets a new one.
func (m *TrackModel) SetAudioClip(id string, clip tahti.AudioClip) error {
	t, err := m.find(id)
	if err != nil {
		return err
	}
	if t.Kind != tahti.AudioTrack {
		return fmt.Errorf("%w: %s is a MIDI track", ErrKindMismatch, t.Name)
	}
	if clip.Ref == "" {
		return fmt.Errorf("%w: audio clip without a reference", tahti.ErrInvalidClip)
	}
	if clip.ID == "" {
		clip.ID = tahti.NewID()
	}
	defer (*Model)(m).change("SetAudioClip")()
	t.Audio = &clip
	return nil
}

// ClearContent removes the payload of a track.
func (m *TrackModel) ClearContent(id string) error {
	t, err := m.find(id)
	if err != nil {
		return err
	}
	if !t.HasContent() {
		return nil
	}
	defer (*Model)(m).change("ClearContent")()
	t.Audio, t.Midi = nil, nil
	return nil
}

// CommitAudio writes an audio reference into a slot. Without a ClipID, a new
// clip with a new identity is attached at slot.StartBar. With a ClipID, the
// existing clip with that identity gets the new reference and name, keeping
// its identity; the track order and identities never change.
//
// It returns the identity of the written clip.
func (m *TrackModel) CommitAudio(slot tahti.AudioClipSlot, ref, name string) (string, error) {
	t, err := m.find(slot.TrackID)
	if err != nil {
		return "", err
	}
	if t.Kind != tahti.AudioTrack {
		return "", fmt.Errorf("%w: %s is a MIDI track", ErrKindMismatch, t.Name)
	}
	if ref == "" {
		return "", fmt.Errorf("%w: audio clip without a reference", tahti.ErrInvalidClip)
	}
	clip := tahti.AudioClip{ID: slot.ClipID, Ref: ref, Name: name, StartBar: max(slot.StartBar, 0)}
	if slot.ClipID == "" {
		clip.ID = tahti.NewID()
	} else if t.Audio == nil || t.Audio.ID != slot.ClipID {
		return "", fmt.Errorf("%w: %s on track %s", ErrNoSuchClip, slot.ClipID, t.Name)
	}
	defer (*Model)(m).change("CommitAudio")()
	t.Audio = &clip
	return clip.ID, nil
}

// SetMuted mutes or unmutes a track.
func (m *TrackModel) SetMuted(id string, muted bool) error {
	t, err := m.find(id)
	if err != nil {
		return err
	}
	if t.Muted == muted {
		return nil
	}
	defer (*Model)(m).change("SetMuted")()
	t.Muted = muted
	return nil
}

// SetSolo solos or unsolos a track.
func (m *TrackModel) SetSolo(id string, solo bool) error {
	t, err := m.find(id)
	if err != nil {
		return err
	}
	if t.Solo == solo {
		return nil
	}
	defer (*Model)(m).change("SetSolo")()
	t.Solo = solo
	return nil
}

// Muted returns a Bool to toggle the mute of a track.
func (m *TrackModel) Muted(id string) Bool { return MakeBool(&trackFlag{m, id, false}) }

// Solo returns a Bool to toggle the solo of a track.
func (m *TrackModel) Solo(id string) Bool { return MakeBool(&trackFlag{m, id, true}) }

type trackFlag struct {
	m    *TrackModel
	id   string
	solo bool
}

func (f *trackFlag) Enabled() bool { return f.m.song().TrackIndex(f.id) >= 0 }

func (f *trackFlag) Value() bool {
	t, ok := f.m.Get(f.id)
	if f.solo {
		return ok && t.Solo
	}
	return ok && t.Muted
}

func (f *trackFlag) SetValue(v bool) {
	if f.solo {
		f.m.SetSolo(f.id, v)
	} else {
		f.m.SetMuted(f.id, v)
	}
}

// SetVolume sets the gain of a track, clamped to [MinVolume, MaxVolume].
// Consecutive volume changes are merged into one undo step. It returns the
// value actually set.
func (m *TrackModel) SetVolume(id string, volume float64) (float64, error) {
	t, err := m.find(id)
	if err != nil {
		return 0, err
	}
	v := tahti.ClampVolume(volume)
	if t.Volume == v {
		return v, nil
	}
	defer (*Model)(m).change("SetVolume:" + id)()
	t.Volume = v
	return v, nil
}
