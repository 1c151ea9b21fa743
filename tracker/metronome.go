package tracker

import (
	"math"

	"github.com/viterin/vek/vek32"
	"github.com/vsariola/tahti"
)

type (
	// Metronome renders a click on every beat, with an accented click on the
	// downbeat of each bar. Clicks are triggered from a periodic transport
	// callback and mixed into the buffer being processed.
	Metronome struct {
		Gain float32

		accent, normal []float32
		voices         []click
		tmp            []float32
	}

	click struct {
		samples []float32
		pos     int // next sample of samples to be played
		frame   int // frame in the current buffer where the click starts
	}
)

const (
	clickLength    = 0.03 // seconds
	accentFreq     = 1760
	normalFreq     = 880
	clickDecayRate = 150 // 1/s
)

func NewMetronome(gain float32) *Metronome {
	return &Metronome{
		Gain:   gain,
		accent: makeClick(accentFreq),
		normal: makeClick(normalFreq),
	}
}

func makeClick(freq float64) []float32 {
	n := int(clickLength * tahti.SampleRate)
	osc := make([]float32, n)
	env := make([]float32, n)
	for i := range osc {
		t := float64(i) / tahti.SampleRate
		osc[i] = float32(math.Sin(2 * math.Pi * freq * t))
		env[i] = float32(math.Exp(-clickDecayRate * t))
	}
	return vek32.Mul_Into(make([]float32, n), osc, env)
}

// Trigger starts a click at the given frame of the next rendered buffer.
func (m *Metronome) Trigger(frame int, accent bool) {
	s := m.normal
	if accent {
		s = m.accent
	}
	m.voices = append(m.voices, click{samples: s, frame: max(frame, 0)})
}

// Active reports whether any click is still sounding.
func (m *Metronome) Active() bool { return len(m.voices) > 0 }

// Render adds the sounding clicks to buffer, to both channels.
func (m *Metronome) Render(buffer tahti.AudioBuffer) {
	if len(m.voices) == 0 || len(buffer) == 0 {
		return
	}
	if cap(m.tmp) < len(buffer) {
		m.tmp = make([]float32, len(buffer))
	}
	mono := vek32.Zeros_Into(m.tmp[:0], len(buffer))
	voices := m.voices[:0]
	for _, v := range m.voices {
		if v.frame >= len(buffer) {
			v.frame -= len(buffer)
			voices = append(voices, v)
			continue
		}
		n := min(len(buffer)-v.frame, len(v.samples)-v.pos)
		vek32.Add_Inplace(mono[v.frame:v.frame+n], v.samples[v.pos:v.pos+n])
		v.pos += n
		v.frame = 0
		if v.pos < len(v.samples) {
			voices = append(voices, v)
		}
	}
	m.voices = voices
	vek32.MulNumber_Inplace(mono, m.Gain)
	for i, s := range mono {
		buffer[i][0] += s
		buffer[i][1] += s
	}
}

// Reset silences all clicks.
func (m *Metronome) Reset() { m.voices = m.voices[:0] }
