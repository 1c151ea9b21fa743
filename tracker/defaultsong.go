package tracker

import "github.com/vsariola/tahti"

var trackColors = []string{"#e06c75", "#61afef", "#98c379", "#e5c07b", "#c678dd", "#56b6c2"}

// defaultSong is the first-run scaffolding: an empty audio track for generated
// audio and a MIDI track with the demo clip. Every call gets new identities.
func defaultSong() tahti.Song {
	song := tahti.NewSong()
	clip := tahti.DemoMidiClip()
	song.Tracks = []tahti.Track{
		{ID: tahti.NewID(), Name: "Audio 1", Color: trackColors[0], Kind: tahti.AudioTrack, Volume: tahti.DefaultVolume},
		{ID: tahti.NewID(), Name: "MIDI 1", Color: trackColors[1], Kind: tahti.MidiTrack, Volume: tahti.DefaultVolume, Midi: &clip},
	}
	return song
}
