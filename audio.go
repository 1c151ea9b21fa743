package tahti

import (
	"io"
	"math"
)

type (
	// AudioBuffer is a buffer of stereo audio samples of variable length,
	// each sample represented by [2]float32. [0] is left channel, [1] is
	// right.
	AudioBuffer [][2]float32

	// AudioSource fills buf with audio. Returning io.EOF ends the playback.
	AudioSource func(buf AudioBuffer) error

	// AudioContext represents the low-level audio drivers. There should be at
	// most one AudioContext at a time; creating it is the platform's audio
	// unlock. Play starts pulling audio from the source until it returns an
	// error or the returned CloserWaiter is closed.
	AudioContext interface {
		Play(r AudioSource) CloserWaiter
	}

	// CloserWaiter is a handle to an audio stream. Close stops it and Wait
	// blocks until the stream has finished.
	CloserWaiter interface {
		io.Closer
		Wait()
	}
)

// SampleRate is the sample rate of all audio in the project.
const SampleRate = 44100

// Resize sets the length of the buffer to n, reusing the capacity if it can.
func (b *AudioBuffer) Resize(n int) {
	if cap(*b) < n {
		*b = append((*b)[:cap(*b)], make(AudioBuffer, n-cap(*b))...)
	}
	*b = (*b)[:n]
}

// Clear sets every sample of the buffer to silence.
func (b AudioBuffer) Clear() {
	for i := range b {
		b[i] = [2]float32{}
	}
}

// Source returns an AudioSource that plays the buffer once.
func (b AudioBuffer) Source() AudioSource {
	pos := 0
	return func(buf AudioBuffer) error {
		n := copy(buf, b[pos:])
		pos += n
		buf[n:].Clear()
		if n == 0 {
			return io.EOF
		}
		return nil
	}
}

// Peak returns the largest absolute sample value in the buffer.
func (b AudioBuffer) Peak() float32 {
	var peak float32
	for _, s := range b {
		peak = max(peak, float32(math.Abs(float64(s[0]))), float32(math.Abs(float64(s[1]))))
	}
	return peak
}

// Duration returns how long the buffer lasts at SampleRate, in seconds.
func (b AudioBuffer) Duration() float64 { return float64(len(b)) / SampleRate }
