package tracker_test

import (
	"testing"

	"github.com/vsariola/tahti"
	"github.com/vsariola/tahti/tracker"
)

func TestMetronomeClickSpansBuffers(t *testing.T) {
	m := tracker.NewMetronome(1)
	m.Trigger(100, true)
	buf := make(tahti.AudioBuffer, 256)
	for i := 0; m.Active(); i++ {
		if i > 10 {
			t.Fatalf("click did not end")
		}
		buf.Clear()
		m.Render(buf)
		if i == 0 {
			for j := range 100 {
				if buf[j] != [2]float32{} {
					t.Fatalf("sound before the trigger frame at %d", j)
				}
			}
			if buf.Peak() == 0 {
				t.Fatalf("no click rendered")
			}
		}
		for j := range buf {
			if buf[j][0] != buf[j][1] {
				t.Fatalf("channels differ at %d", j)
			}
		}
	}
}

func TestMetronomePeakInRange(t *testing.T) {
	m := tracker.NewMetronome(0.5)
	m.Trigger(0, false)
	m.Trigger(0, true)
	buf := make(tahti.AudioBuffer, 512)
	m.Render(buf)
	if p := buf.Peak(); p == 0 || p > 1 {
		t.Errorf("peak %v out of range", p)
	}
	m.Reset()
	if m.Active() {
		t.Errorf("active after reset")
	}
}

func TestBrokerBufferPool(t *testing.T) {
	b := tracker.NewBroker()
	buf := b.GetAudioBuffer()
	*buf = append(*buf, [2]float32{1, 1})
	b.PutAudioBuffer(buf)
	if got := b.GetAudioBuffer(); len(*got) != 0 {
		t.Errorf("buffer from the pool not empty")
	}
	c := make(chan int, 1)
	if !tracker.TrySend(c, 1) || tracker.TrySend(c, 2) {
		t.Errorf("TrySend did not respect the capacity")
	}
}
