package oto

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/ebitengine/oto/v3"
	"github.com/vsariola/tahti"
)

type (
	// OtoContext is the audio output of the process. Creating it is the audio
	// unlock: there can be only one per process, so NewContext is meant to be
	// called through Transport.Unlock.
	OtoContext struct {
		context *oto.Context
	}

	OtoPlayer struct {
		player *oto.Player
		reader *OtoReader
	}

	// OtoReader pulls audio from an AudioSource and serves it to oto as
	// float32 little endian samples.
	OtoReader struct {
		audioSource tahti.AudioSource
		tmpBuffer   tahti.AudioBuffer
		tmpBytes    []byte
		waitGroup   sync.WaitGroup
		done        bool
		err         error
		errMutex    sync.RWMutex
	}
)

const otoBufferSize = 8192 // bytes

var (
	contextOnce sync.Once
	theContext  *OtoContext
	contextErr  error
)

// NewContext returns the audio context, creating it on the first call. Later
// calls return the same context.
func NewContext() (*OtoContext, error) {
	contextOnce.Do(func() {
		op := oto.NewContextOptions{
			SampleRate:   tahti.SampleRate,
			ChannelCount: 2,
			Format:       oto.FormatFloat32LE,
		}
		context, readyChan, err := oto.NewContext(&op)
		if err != nil {
			contextErr = fmt.Errorf("cannot create oto context: %w", err)
			return
		}
		<-readyChan
		theContext = &OtoContext{context: context}
	})
	return theContext, contextErr
}

// Play starts playing audio from r; the returned CloserWaiter waits until r
// returns io.EOF or stops the playback when closed.
func (c *OtoContext) Play(r tahti.AudioSource) tahti.CloserWaiter {
	reader := &OtoReader{audioSource: r}
	reader.waitGroup.Add(1)
	player := c.context.NewPlayer(reader)
	player.SetBufferSize(otoBufferSize)
	player.Play()
	return &OtoPlayer{player: player, reader: reader}
}

func (o *OtoPlayer) Wait() {
	o.reader.waitGroup.Wait()
}

// Close stops the playback; the source is not read anymore.
func (o *OtoPlayer) Close() error {
	o.player.Pause()
	o.reader.finish(nil)
	return o.reader.Err()
}

func (o *OtoReader) Read(b []byte) (n int, err error) {
	if o.isDone() {
		return 0, io.EOF
	}
	samples := len(b) / 8
	if samples == 0 {
		return 0, nil
	}
	o.tmpBuffer.Resize(samples)
	if err := o.audioSource(o.tmpBuffer); err != nil {
		if !errors.Is(err, io.EOF) {
			o.finish(fmt.Errorf("audio source: %w", err))
		} else {
			o.finish(nil)
		}
		// the buffer is still played; a source returning io.EOF has padded it
		// with silence
	}
	o.tmpBytes = FloatBufferToBytes(o.tmpBuffer, o.tmpBytes[:0])
	return copy(b, o.tmpBytes), nil
}

func (o *OtoReader) isDone() bool {
	o.errMutex.RLock()
	defer o.errMutex.RUnlock()
	return o.done
}

func (o *OtoReader) finish(err error) {
	o.errMutex.Lock()
	defer o.errMutex.Unlock()
	if o.done {
		return
	}
	o.done = true
	o.err = err
	o.waitGroup.Done()
}

func (o *OtoReader) Err() error {
	o.errMutex.RLock()
	defer o.errMutex.RUnlock()
	return o.err
}
