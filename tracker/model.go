package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vsariola/tahti"
)

// Model implements the mutable state of a session: the song, the undo
// history, the alerts, the last seen player status and the generation
// workflows in progress.
//
// It is owned by the UI goroutine, while the Player is owned by the audio
// goroutine. They communicate only through the Broker: the model sends
// messages to Broker.ToPlayer, and the UI goroutine feeds everything arriving
// in Broker.ToModel to ProcessMsg. Background requests never touch the model;
// their results arrive the same way.
type (
	modelData struct {
		Song             tahti.Song
		FilePath         string
		ChangedSinceSave bool
	}

	Model struct {
		d modelData

		undoStack    []tahti.Song
		redoStack    []tahti.Song
		prevUndoKind string
		changeLevel  int
		changeCancel bool
		changeSong   tahti.Song

		playerStatus PlayerStatus
		playing      bool
		metronome    bool
		level        float32

		alerts []Alert

		services    Services
		generations map[int]*Generation
		nextGenID   int
		ctx         context.Context
		cancel      context.CancelFunc

		broker *Broker
	}

	// Services are the outside collaborators of a session. Any of them may be
	// nil, in which case the operations needing it fail with
	// ErrNoService.
	Services struct {
		Generator Generator
		Previewer Previewer
		Library   Library
	}
)

const maxUndo = 64

// consecutive changes of these kinds are merged into one undo step. A kind
// may carry a target after a colon, e.g. "SetVolume:<track id>"; only changes
// to the same target merge.
var undoMerge = map[string]bool{
	"SetVolume": true,
	"SetTempo":  true,
}

func mergeable(kind string) bool {
	k, _, _ := strings.Cut(kind, ":")
	return undoMerge[k]
}

var (
	ErrNoSuchTrack  = errors.New("no such track")
	ErrNoSuchClip   = errors.New("no such clip")
	ErrKindMismatch = errors.New("payload does not match the track kind")
	ErrNoService    = errors.New("service not configured")
)

// NewModel returns a model with the default song, and sends the song to the
// player.
func NewModel(broker *Broker, services Services) *Model {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Model{
		broker:      broker,
		services:    services,
		generations: map[int]*Generation{},
		metronome:   true,
		ctx:         ctx,
		cancel:      cancel,
	}
	m.d.Song = defaultSong()
	TrySend(m.broker.ToPlayer, any(m.d.Song.Copy()))
	TrySend(m.broker.ToPlayer, any(MetronomeMsg{m.metronome}))
	return m
}

// change is called before modifying the song; the returned func must be
// called (usually deferred) after the modification. Nested changes are
// collapsed. If changeCancel is set when the outermost change ends, the song
// is restored.
func (m *Model) change(kind string) func() {
	if m.changeLevel == 0 {
		m.changeCancel = false
		m.changeSong = m.d.Song.Copy()
	}
	m.changeLevel++
	return func() {
		m.changeLevel--
		if m.changeLevel > 0 {
			return
		}
		if m.changeCancel {
			m.d.Song = m.changeSong
			return
		}
		if kind != m.prevUndoKind || !mergeable(kind) {
			m.undoStack = append(m.undoStack, m.changeSong)
			if len(m.undoStack) > maxUndo {
				copy(m.undoStack, m.undoStack[len(m.undoStack)-maxUndo:])
				m.undoStack = m.undoStack[:maxUndo]
			}
		}
		m.redoStack = m.redoStack[:0]
		m.prevUndoKind = kind
		m.d.ChangedSinceSave = true
		TrySend(m.broker.ToPlayer, any(m.d.Song.Copy()))
	}
}

// setSongNoUndo replaces the song, clearing the history.
func (m *Model) setSongNoUndo(song tahti.Song) {
	m.d.Song = song
	m.undoStack = m.undoStack[:0]
	m.redoStack = m.redoStack[:0]
	m.prevUndoKind = ""
	TrySend(m.broker.ToPlayer, any(m.d.Song.Copy()))
}

// ProcessMsg applies a message that arrived in Broker.ToModel.
func (m *Model) ProcessMsg(msg MsgToModel) {
	if msg.HasStatus {
		m.playerStatus = msg.Status
	}
	switch e := msg.Data.(type) {
	case nil:
		// nothing
	case Alert:
		m.Alerts().AddAlert(e)
	case *tahti.AudioBuffer:
		m.level = e.Peak()
		m.broker.PutAudioBuffer(e)
	case generationResult:
		if g, ok := m.generations[e.gen]; ok {
			g.handleResult(e)
		}
	case previewReady:
		if g, ok := m.generations[e.gen]; ok {
			g.handlePreview(e)
		} else {
			m.closeOrphan(e.preview)
		}
	case librarySaved:
		if e.err != nil {
			m.Alerts().AddNamed("LibrarySave", fmt.Sprintf("Could not save %q to the library: %v", e.name, e.err), Error)
		} else {
			m.Alerts().AddNamed("LibrarySave", fmt.Sprintf("Saved %q to the library", e.name), Info)
		}
	default:
		// ignore unknown messages
	}
}

// NewSong starts a new unsaved song with the tempo, key and loop of base,
// clearing the history. A base without tracks gets the first-run tracks.
func (m *Model) NewSong(base tahti.Song) {
	song := base.Copy()
	if len(song.Tracks) == 0 {
		song.Tracks = defaultSong().Tracks
	}
	m.setSongNoUndo(song)
	m.d.FilePath = ""
	m.d.ChangedSinceSave = false
}

// Close disposes every generation workflow (stopping their previews) and
// abandons the requests in flight.
func (m *Model) Close() {
	for _, g := range m.generations {
		g.Close()
	}
	m.cancel()
}

// Song returns a copy of the current song.
func (m *Model) Song() tahti.Song { return m.d.Song.Copy() }

// ChangedSinceSave reports whether the song has been modified since it was
// last read or written.
func (m *Model) ChangedSinceSave() bool { return m.d.ChangedSinceSave }

// Key returns the key signature of the song.
func (m *Model) Key() tahti.KeySignature { return m.d.Song.Key }

// SetKey changes the key of the song. The root is normalized; an unknown root
// is accepted but gives an empty scale.
func (m *Model) SetKey(k tahti.KeySignature) {
	k.Root = tahti.NormalizePitchClass(k.Root)
	if k == m.d.Song.Key {
		return
	}
	defer m.change("SetKey")()
	m.d.Song.Key = k
}

// Scale returns the diatonic set of the song key; empty if the key is not
// known.
func (m *Model) Scale() tahti.Scale { return m.d.Song.Key.Scale() }

// InScale reports whether the MIDI pitch belongs to the song key, e.g. for
// highlighting piano roll rows.
func (m *Model) InScale(pitch int) bool {
	return m.Scale().Contains(tahti.PitchClass(pitch))
}

// ApplySongSpec takes the tempo and the key of an outside song description,
// as one undoable change.
func (m *Model) ApplySongSpec(spec tahti.SongSpec) {
	defer m.change("ApplySongSpec")()
	m.d.Song.BPM = spec.Tempo()
	m.d.Song.Key = spec.KeySignature()
}
