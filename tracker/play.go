package tracker

import (
	"fmt"

	"github.com/vsariola/tahti"
)

type Play Model

func (m *Model) Play() *Play { return (*Play)(m) }

// Position returns the play position as last reported by the player.
func (m *Play) Position() tahti.Position { return m.playerStatus.Position }

// LoopProgress returns how far the playback is into the loop, in [0,1).
func (m *Play) LoopProgress() float64 { return m.playerStatus.Progress }

// CurrentTempo returns the tempo the player is running at; it lags the song
// tempo while a tempo ramp is in progress.
func (m *Play) CurrentTempo() float64 { return m.playerStatus.BPM }

// Running reports whether the player has reported the transport running.
func (m *Play) Running() bool { return m.playerStatus.Running }

// Level returns the peak level of the last buffer rendered by the player.
func (m *Play) Level() float32 { return m.level }

// Tempo returns the tempo of the song.
func (m *Play) Tempo() float64 { return m.d.Song.BPM }

// SetTempo changes the tempo of the song; the player ramps to it. Invalid
// tempos are rejected and the song keeps its tempo.
func (m *Play) SetTempo(bpm float64) error {
	if err := tahti.ValidateTempo(bpm); err != nil {
		(*Model)(m).Alerts().AddNamed("SetTempo", err.Error(), Warning)
		return err
	}
	if bpm == m.d.Song.BPM {
		return nil
	}
	defer (*Model)(m).change("SetTempo")()
	m.d.Song.BPM = bpm
	return nil
}

// Loop returns the loop bounds of the song in bars, end exclusive.
func (m *Play) Loop() (start, end int) { return m.d.Song.LoopStart, m.d.Song.LoopEnd }

// SetLoop changes the loop bounds. end must exceed start; otherwise the bounds
// are rejected, the song keeps its previous loop and playback is not affected.
func (m *Play) SetLoop(start, end int) error {
	if err := tahti.ValidateLoop(start, end); err != nil {
		(*Model)(m).Alerts().AddNamed("SetLoop", fmt.Sprintf("Loop not changed: %v", err), Warning)
		return err
	}
	if start == m.d.Song.LoopStart && end == m.d.Song.LoopEnd {
		return nil
	}
	defer (*Model)(m).change("SetLoop")()
	m.d.Song.LoopStart, m.d.Song.LoopEnd = start, end
	return nil
}

// Seek moves the play position.
func (m *Play) Seek(p tahti.Position) { TrySend(m.broker.ToPlayer, any(SeekMsg{p})) }

// Start returns an Action to start playing the loop.
func (m *Play) Start() Action { return MakeAction((*playStart)(m)) }

type playStart Play

func (m *playStart) Enabled() bool { return !m.playing }
func (m *playStart) Do() {
	m.playing = true
	TrySend(m.broker.ToPlayer, any(StartMsg{}))
}

// Stop returns an Action to stop playing; the position returns to the loop
// start.
func (m *Play) Stop() Action { return MakeAction((*stopPlaying)(m)) }

type stopPlaying Play

func (m *stopPlaying) Enabled() bool { return m.playing }
func (m *stopPlaying) Do() {
	m.playing = false
	TrySend(m.broker.ToPlayer, any(StopMsg{}))
}

// Playing returns a Bool to start and stop the playback.
func (m *Play) Playing() Bool { return MakeBool((*playPlaying)(m)) }

type playPlaying Play

func (m *playPlaying) Value() bool { return m.playing }
func (m *playPlaying) SetValue(val bool) {
	if val {
		(*Play)(m).Start().Do()
	} else {
		(*Play)(m).Stop().Do()
	}
}

// Metronome returns a Bool to toggle the metronome click.
func (m *Play) Metronome() Bool { return MakeBool((*playMetronome)(m)) }

type playMetronome Play

func (m *playMetronome) Value() bool { return m.metronome }
func (m *playMetronome) SetValue(val bool) {
	m.metronome = val
	TrySend(m.broker.ToPlayer, any(MetronomeMsg{val}))
}
