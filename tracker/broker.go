package tracker

import (
	"sync"
	"time"

	"github.com/vsariola/tahti"
)

type (
	// Broker is the centralized message broker of a session. It is used to
	// communicate between the player, the model and the background requests
	// of the generation workflow. The broker is many-to-one communication,
	// implemented with one channel for each recipient. Additionally, the
	// broker has a sync.Pool for *tahti.AudioBuffers, from which the player
	// can borrow buffers without allocating new memory every time.
	//
	// For closing the model, Close has a capacity of 1, so an empty message
	// can always be sent without blocking; if the channel is already full,
	// someone else has already requested the closure.
	Broker struct {
		ToModel  chan MsgToModel
		ToPlayer chan any

		CloseModel chan struct{}

		bufferPool sync.Pool
	}

	// MsgToModel is a message sent to the model. The player status is sent
	// with nearly every processed buffer, so it is not boxed to avoid
	// allocations. All the infrequently passed messages are boxed in Data.
	MsgToModel struct {
		HasStatus bool
		Status    PlayerStatus

		Data any
	}

	// PlayerStatus is the state of the transport as last seen by the player.
	PlayerStatus struct {
		Position tahti.Position
		Progress float64
		BPM      float64
		Running  bool
	}
)

func NewBroker() *Broker {
	return &Broker{
		ToPlayer:   make(chan any, 1024),
		ToModel:    make(chan MsgToModel, 1024),
		CloseModel: make(chan struct{}, 1),
		bufferPool: sync.Pool{New: func() any { return &tahti.AudioBuffer{} }},
	}
}

// GetAudioBuffer returns an audio buffer from the buffer pool. The buffer is
// guaranteed to be empty. After using the buffer, it should be returned to the
// pool with PutAudioBuffer.
func (b *Broker) GetAudioBuffer() *tahti.AudioBuffer {
	return b.bufferPool.Get().(*tahti.AudioBuffer)
}

// PutAudioBuffer returns an audio buffer to the buffer pool. If the buffer is
// not empty, its length is reset (but capacity kept) before returning it to
// the pool.
func (b *Broker) PutAudioBuffer(buf *tahti.AudioBuffer) {
	if len(*buf) > 0 {
		*buf = (*buf)[:0]
	}
	b.bufferPool.Put(buf)
}

// TrySend is a helper function to send a value to a channel if it is not full.
// It is guaranteed to be non-blocking. Return true if the value was sent, false
// otherwise.
func TrySend[T any](c chan<- T, v T) bool {
	select {
	case c <- v:
	default:
		return false
	}
	return true
}

// TimeoutReceive is a helper function to block until a value is received from a
// channel, or timing out after t. ok will be false if the timeout occurred or
// if the channel is closed.
func TimeoutReceive[T any](c <-chan T, t time.Duration) (v T, ok bool) {
	select {
	case v, ok = <-c:
		return v, ok
	case <-time.After(t):
		return v, false
	}
}
