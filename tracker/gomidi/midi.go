package gomidi

import (
	"container/heap"
	"sync"
	"time"

	"github.com/vsariola/tahti"
	"github.com/vsariola/tahti/tracker"
	"gitlab.com/gomidi/midi/v2"
)

type (
	// Output sends the note events of the player to a MIDI port. Every track
	// gets its own MIDI channel, in the order the tracks first play.
	//
	// Note is called from the audio goroutine and never blocks: messages are
	// queued and sent from a goroutine of their own. If the queue is full,
	// the message is dropped. The player reports all events of a buffer at
	// once, so each message is held back by the frame offset of its event
	// within the buffer.
	Output struct {
		port     Port
		events   chan pending
		channels map[string]uint8
		seq      uint64
		done     chan struct{}
		closeMu  sync.Once
		errMu    sync.Mutex
		err      error
	}

	// Port is the part of a MIDI output driver needed by Output, e.g. a
	// drivers.Out.
	Port interface {
		Send(data []byte) error
	}

	pending struct {
		due time.Time
		seq uint64
		msg midi.Message
	}

	// pendingQueue is a min-heap by due time, then by arrival
	pendingQueue []pending
)

const numChannels = 16

// NewOutput starts sending to port.
func NewOutput(port Port) *Output {
	o := &Output{
		port:     port,
		events:   make(chan pending, 1024),
		channels: map[string]uint8{},
		done:     make(chan struct{}),
	}
	go o.run()
	return o
}

func (o *Output) run() {
	defer close(o.done)
	var queue pendingQueue
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()
	for {
		var wait <-chan time.Time
		if len(queue) > 0 {
			timer.Reset(time.Until(queue[0].due))
			wait = timer.C
		} else {
			timer.Stop()
		}
		select {
		case p, ok := <-o.events:
			if !ok {
				for len(queue) > 0 {
					o.send(heap.Pop(&queue).(pending).msg)
				}
				return
			}
			heap.Push(&queue, p)
		case now := <-wait:
			for len(queue) > 0 && !queue[0].due.After(now) {
				o.send(heap.Pop(&queue).(pending).msg)
			}
		}
	}
}

func (o *Output) send(msg midi.Message) {
	if err := o.port.Send(msg); err != nil {
		o.errMu.Lock()
		o.err = err
		o.errMu.Unlock()
	}
}

// Note implements tracker.NoteSink.
func (o *Output) Note(ev tracker.NoteEvent) {
	o.seq++
	p := pending{
		due: time.Now().Add(time.Duration(ev.Frame) * time.Second / tahti.SampleRate),
		seq: o.seq,
		msg: Message(ev, o.channel(ev.TrackID)),
	}
	select {
	case o.events <- p:
	default:
	}
}

func (o *Output) channel(trackID string) uint8 {
	ch, ok := o.channels[trackID]
	if !ok {
		ch = uint8(len(o.channels) % numChannels)
		o.channels[trackID] = ch
	}
	return ch
}

// Message converts a note event to a MIDI message. The velocity is scaled by
// the track gain; a note on never has zero velocity, as that would be read as
// a note off.
func Message(ev tracker.NoteEvent, channel uint8) midi.Message {
	key := uint8(min(max(ev.Pitch, 0), 127))
	if !ev.On {
		return midi.NoteOff(channel, key)
	}
	v := int(float64(ev.Velocity)*ev.Gain*127 + 0.5)
	return midi.NoteOn(channel, key, uint8(min(max(v, 1), 127)))
}

// Close sends the queued messages without waiting for them to be due and
// stops sending. It returns the last error sending to the port, if any.
func (o *Output) Close() error {
	o.closeMu.Do(func() { close(o.events) })
	<-o.done
	o.errMu.Lock()
	defer o.errMu.Unlock()
	return o.err
}

func (q pendingQueue) Len() int { return len(q) }
func (q pendingQueue) Less(i, j int) bool {
	if q[i].due.Equal(q[j].due) {
		return q[i].seq < q[j].seq
	}
	return q[i].due.Before(q[j].due)
}
func (q pendingQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *pendingQueue) Push(x any)   { *q = append(*q, x.(pending)) }
func (q *pendingQueue) Pop() any {
	old := *q
	p := old[len(old)-1]
	*q = old[:len(old)-1]
	return p
}
