package tracker

import (
	"fmt"
	"math"

	"github.com/vsariola/tahti"
)

type (
	// Player is the audio player of a session, run in the audio goroutine. It
	// owns the Transport and is controlled by messages from the model via the
	// broker. The player sends its status, alerts and rendered buffers back
	// to the model, never blocking.
	Player struct {
		transport   *Transport
		song        tahti.Song
		metronome   *Metronome
		clickOn     bool
		metronomeID CallbackID
		sink        NoteSink
		sounding    []soundingNote
		frames      int // length of the buffer being processed

		broker *Broker
	}

	// NoteSink receives the note events of the audible MIDI tracks, e.g. to
	// drive a synth or a MIDI output. Frame is relative to the start of the
	// buffer being processed.
	NoteSink interface {
		Note(ev NoteEvent)
	}

	// NoteEvent triggers or releases a note of a MIDI track.
	NoteEvent struct {
		Frame    int
		On       bool
		TrackID  string
		NoteID   string
		Pitch    int
		Velocity float32
		Gain     float64
	}

	soundingNote struct {
		NoteEvent
		end float64 // in beats
	}

	// StartMsg starts the transport.
	StartMsg struct{}
	// StopMsg stops the transport and rewinds it to the loop start.
	StopMsg struct{}
	// TempoMsg ramps the tempo to BPM.
	TempoMsg struct{ BPM float64 }
	// LoopMsg sets the loop bounds, in bars.
	LoopMsg struct{ Start, End int }
	// SeekMsg moves the play position.
	SeekMsg struct{ Position tahti.Position }
	// MetronomeMsg turns the metronome click on or off.
	MetronomeMsg struct{ On bool }
)

const metronomeGain = 0.5

// NewPlayer returns a player with its transport configured from song. sink
// may be nil.
func NewPlayer(broker *Broker, song tahti.Song, sink NoteSink) *Player {
	p := &Player{
		transport: NewTransport(song.BPM, song.LoopStart, song.LoopEnd),
		song:      song.Copy(),
		metronome: NewMetronome(metronomeGain),
		sink:      sink,
		broker:    broker,
	}
	p.metronomeID, _ = p.transport.Schedule(1, p.tick)
	return p
}

// Transport returns the transport owned by the player. It must only be used
// from the goroutine calling Process.
func (p *Player) Transport() *Transport { return p.transport }

// Process renders the next buffer of audio: the pending messages are applied,
// the transport is advanced by the length of the buffer, note events of the
// traversed spans go to the sink and the metronome is mixed in.
func (p *Player) Process(buffer tahti.AudioBuffer) {
	p.processMessages()
	buffer.Clear()
	p.frames = len(buffer)
	spans := p.transport.Advance(float64(len(buffer)) / tahti.SampleRate)
	if p.sink != nil {
		for _, s := range spans {
			p.scheduleNotes(s)
		}
	}
	p.metronome.Render(buffer)
	bufPtr := p.broker.GetAudioBuffer() // borrow a buffer from the broker
	*bufPtr = append(*bufPtr, buffer...)
	if len(*bufPtr) == 0 || !TrySend(p.broker.ToModel, MsgToModel{Data: bufPtr}) {
		p.broker.PutAudioBuffer(bufPtr)
	}
	p.send(nil)
}

func (p *Player) tick(t Tick) {
	if !p.clickOn {
		return
	}
	frame := int(math.Round(t.Offset * tahti.SampleRate))
	p.metronome.Trigger(min(frame, max(p.frames-1, 0)), t.Count%tahti.BeatsPerBar == 0)
}

// audible returns the indices of the tracks that sound: when any track is
// soloed only soloed tracks play, and muted tracks never play.
func audible(tracks []tahti.Track) []int {
	solo := false
	for i := range tracks {
		solo = solo || tracks[i].Solo
	}
	ret := make([]int, 0, len(tracks))
	for i := range tracks {
		t := &tracks[i]
		if t.Muted || (solo && !t.Solo) {
			continue
		}
		ret = append(ret, i)
	}
	return ret
}

func (p *Player) scheduleNotes(s Span) {
	if s.To <= s.From {
		return
	}
	frameOf := func(beat float64) int {
		sec := s.Offset + (beat-s.From)/(s.To-s.From)*s.Duration
		return min(int(math.Round(sec*tahti.SampleRate)), max(p.frames-1, 0))
	}
	// releases first, so a note ending where another starts retriggers
	sounding := p.sounding[:0]
	for _, n := range p.sounding {
		if n.end < s.To {
			p.sink.Note(NoteEvent{Frame: frameOf(max(n.end, s.From)), TrackID: n.TrackID, NoteID: n.NoteID, Pitch: n.Pitch})
			continue
		}
		sounding = append(sounding, n)
	}
	p.sounding = sounding
	for _, i := range audible(p.song.Tracks) {
		t := &p.song.Tracks[i]
		if t.Kind != tahti.MidiTrack || t.Midi == nil {
			continue
		}
		clipStart := float64(t.Midi.StartBar * tahti.BeatsPerBar)
		for _, n := range t.Midi.Audible() {
			start := clipStart + n.Start*tahti.BeatsPerBar
			if start < s.From || start >= s.To {
				continue
			}
			ev := NoteEvent{Frame: frameOf(start), On: true, TrackID: t.ID, NoteID: n.ID, Pitch: n.Pitch, Velocity: n.Velocity, Gain: t.Volume}
			p.sink.Note(ev)
			p.sounding = append(p.sounding, soundingNote{ev, start + n.Duration*tahti.BeatsPerBar})
		}
	}
	if _, end := p.transport.LoopBounds(); s.To >= float64(end*tahti.BeatsPerBar) {
		p.releaseAll(frameOf(s.To))
	}
}

func (p *Player) releaseAll(frame int) {
	if p.sink != nil {
		for _, n := range p.sounding {
			p.sink.Note(NoteEvent{Frame: frame, TrackID: n.TrackID, NoteID: n.NoteID, Pitch: n.Pitch})
		}
	}
	p.sounding = p.sounding[:0]
}

func (p *Player) processMessages() {
loop:
	for { // process new message
		select {
		case msg := <-p.broker.ToPlayer:
			switch m := msg.(type) {
			case tahti.Song:
				p.song = m
				if m.BPM != p.transport.TargetTempo() {
					if err := p.transport.SetTempo(m.BPM); err != nil {
						p.SendAlert("PlayerTempo", err.Error(), Warning)
					}
				}
				if s, e := p.transport.LoopBounds(); s != m.LoopStart || e != m.LoopEnd {
					if err := p.transport.SetLoopBounds(m.LoopStart, m.LoopEnd); err != nil {
						p.SendAlert("PlayerLoop", err.Error(), Warning)
					}
				}
			case StartMsg:
				p.transport.Start()
			case StopMsg:
				p.transport.Stop()
				p.releaseAll(0)
				p.metronome.Reset()
			case TempoMsg:
				if err := p.transport.SetTempo(m.BPM); err != nil {
					p.SendAlert("PlayerTempo", err.Error(), Warning)
				}
			case LoopMsg:
				if err := p.transport.SetLoopBounds(m.Start, m.End); err != nil {
					p.SendAlert("PlayerLoop", fmt.Sprintf("loop not changed: %v", err), Warning)
				}
			case SeekMsg:
				p.releaseAll(0)
				p.transport.Seek(m.Position)
			case MetronomeMsg:
				p.clickOn = m.On
				if !m.On {
					p.metronome.Reset()
				}
			default:
				// ignore unknown messages
			}
		default:
			break loop
		}
	}
}

func (p *Player) SendAlert(name, message string, priority AlertPriority) {
	p.send(Alert{
		Name:     name,
		Priority: priority,
		Message:  message,
		Duration: defaultAlertDuration,
	})
}

// Status returns the current state of the transport.
func (p *Player) Status() PlayerStatus {
	t := p.transport
	return PlayerStatus{
		Position: t.Position(),
		Progress: t.LoopProgress(),
		BPM:      t.Tempo(),
		Running:  t.Running(),
	}
}

// all sends from player are always non-blocking, to ensure that the player
// goroutine cannot end up in a dead-lock
func (p *Player) send(message any) {
	TrySend(p.broker.ToModel, MsgToModel{HasStatus: true, Status: p.Status(), Data: message})
}
