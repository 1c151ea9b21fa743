package tracker_test

import (
	"errors"
	"math"
	"testing"

	"github.com/vsariola/tahti"
	"github.com/vsariola/tahti/tracker"
)

func TestTransportStartStopIdempotent(t *testing.T) {
	tr := tracker.NewTransport(120, 0, 4)
	tr.Stop()
	if tr.State() != tracker.Stopped {
		t.Fatalf("stopping a stopped transport changed the state")
	}
	tr.Start()
	tr.Advance(0.75)
	tr.Start()
	if got := tr.Beats(); got != 1.5 {
		t.Errorf("second Start moved the position: got %v beats, want 1.5", got)
	}
	tr.Stop()
	tr.Stop()
	if tr.Running() {
		t.Fatalf("transport still running after Stop")
	}
	if got := tr.Beats(); got != 0 {
		t.Errorf("Stop did not rewind to the loop start: got %v beats", got)
	}
	if spans := tr.Advance(1); spans != nil {
		t.Errorf("stopped transport advanced: %v", spans)
	}
}

func TestTransportDegenerateLoopRejected(t *testing.T) {
	tr := tracker.NewTransport(120, 0, 16)
	tr.Start()
	err := tr.SetLoopBounds(8, 8)
	if !errors.Is(err, tahti.ErrInvalidLoop) {
		t.Fatalf("SetLoopBounds(8, 8) = %v, want ErrInvalidLoop", err)
	}
	if err := tr.SetLoopBounds(9, 3); err == nil {
		t.Fatalf("inverted loop accepted")
	}
	if s, e := tr.LoopBounds(); s != 0 || e != 16 {
		t.Errorf("bounds changed to %d..%d after rejection", s, e)
	}
	if !tr.Running() {
		t.Errorf("rejected loop bounds stopped the transport")
	}
}

func TestTransportLoopWrapFiresOncePerPass(t *testing.T) {
	tr := tracker.NewTransport(120, 0, 1) // 4 beats, 2 seconds
	var beats []float64
	if _, err := tr.Schedule(1, func(tick tracker.Tick) { beats = append(beats, tick.Beat) }); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	tr.Start()
	for range 8 {
		tr.Advance(0.5)
	}
	want := []float64{0, 1, 2, 3, 0, 1, 2, 3}
	if len(beats) != len(want) {
		t.Fatalf("got %d firings %v, want %v", len(beats), beats, want)
	}
	for i := range want {
		if beats[i] != want[i] {
			t.Errorf("firing %d at beat %v, want %v", i, beats[i], want[i])
		}
	}
}

func TestTransportAdvanceSplitsAtWrap(t *testing.T) {
	tr := tracker.NewTransport(120, 0, 1)
	var beats []float64
	tr.Schedule(1, func(tick tracker.Tick) { beats = append(beats, tick.Beat) })
	tr.Seek(tahti.Position{Beat: 3})
	tr.Start()
	spans := tr.Advance(1) // two beats: 3..4, then 0..1
	if len(spans) != 2 {
		t.Fatalf("got %d spans, want 2: %v", len(spans), spans)
	}
	if spans[0].From != 3 || spans[0].To != 4 || spans[1].From != 0 || spans[1].To != 1 {
		t.Errorf("unexpected spans %v", spans)
	}
	if math.Abs(spans[1].Offset-0.5) > 1e-9 {
		t.Errorf("second span offset %v, want 0.5", spans[1].Offset)
	}
	if len(beats) != 2 || beats[0] != 3 || beats[1] != 0 {
		t.Errorf("firings %v, want [3 0]", beats)
	}
	if got := tr.Beats(); got != 1 {
		t.Errorf("position after wrap %v, want 1", got)
	}
}

func TestTransportCallbackPhaseAligned(t *testing.T) {
	tr := tracker.NewTransport(120, 0, 16)
	tr.Seek(tahti.Position{Beat: 1, Sub: 0.5})
	tr.Start()
	tr.Advance(0.1)
	var ticks []tracker.Tick
	tr.Schedule(2, func(tick tracker.Tick) { ticks = append(ticks, tick) })
	tr.Advance(1.5) // 1.7 .. 4.7 beats
	if len(ticks) != 2 {
		t.Fatalf("got %d ticks, want 2", len(ticks))
	}
	if ticks[0].Beat != 2 || ticks[1].Beat != 4 {
		t.Errorf("ticks at beats %v and %v, want 2 and 4", ticks[0].Beat, ticks[1].Beat)
	}
	if ticks[1].Count != 2 {
		t.Errorf("tick count %d, want 2", ticks[1].Count)
	}
	if want := (tahti.Position{Bar: 1}); ticks[1].Position != want {
		t.Errorf("tick position %v, want %v", ticks[1].Position, want)
	}
	if math.Abs(ticks[0].Offset-0.15) > 1e-9 {
		t.Errorf("first tick offset %v, want 0.15", ticks[0].Offset)
	}
}

func TestTransportUnschedule(t *testing.T) {
	tr := tracker.NewTransport(120, 0, 16)
	count := 0
	var id tracker.CallbackID
	id, _ = tr.Schedule(0.5, func(tracker.Tick) {
		count++
		tr.Unschedule(id)
	})
	tr.Start()
	tr.Advance(2)
	if count != 1 {
		t.Errorf("callback fired %d times after unscheduling itself, want 1", count)
	}
	if tr.Unschedule(id) {
		t.Errorf("unscheduling twice succeeded")
	}
	if _, err := tr.Schedule(0, func(tracker.Tick) {}); err == nil {
		t.Errorf("zero interval accepted")
	}
}

func TestTransportLoopProgress(t *testing.T) {
	tr := tracker.NewTransport(120, 2, 4) // beats 8..16
	atStart := tr.LoopProgress()
	tr.Seek(tahti.Position{Bar: 2})
	if got := tr.LoopProgress(); got != 0 {
		t.Fatalf("progress at loop start %v, want 0", got)
	}
	tr.Start()
	tr.Advance(2) // 4 beats
	if got := tr.LoopProgress(); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("progress %v, want 0.5", got)
	}
	tr.Advance(2) // wraps exactly
	if got := tr.LoopProgress(); got != atStart {
		t.Errorf("progress after wrap %v, want %v", got, atStart)
	}
}

func TestTransportTempoRamp(t *testing.T) {
	tr := tracker.NewTransport(120, 0, 16)
	if err := tr.SetTempo(60); err != nil {
		t.Fatalf("SetTempo: %v", err)
	}
	if tr.Tempo() != 60 {
		t.Fatalf("stopped transport ramped, tempo %v", tr.Tempo())
	}
	tr.SetTempo(120)
	tr.Start()
	if err := tr.SetTempo(60); err != nil {
		t.Fatalf("SetTempo: %v", err)
	}
	if tr.Tempo() != 120 || tr.TargetTempo() != 60 {
		t.Fatalf("tempo jumped: %v (target %v)", tr.Tempo(), tr.TargetTempo())
	}
	tr.Advance(tracker.TempoRamp.Seconds() / 2)
	if got := tr.Tempo(); math.Abs(got-90) > 1e-9 {
		t.Errorf("tempo halfway through the ramp %v, want 90", got)
	}
	tr.Seek(tahti.Position{})
	tr.SetTempo(60) // restart the ramp from 90
	tr.Advance(tracker.TempoRamp.Seconds())
	// integral of 90 -> 60 over 0.1s is 0.125 beats
	if got := tr.Beats(); math.Abs(got-0.125) > 1e-9 {
		t.Errorf("beats after ramp %v, want 0.125", got)
	}
	if tr.Tempo() != 60 {
		t.Errorf("tempo after ramp %v, want 60", tr.Tempo())
	}
	if err := tr.SetTempo(-5); err == nil {
		t.Errorf("negative tempo accepted")
	}
	if tr.TargetTempo() != 60 {
		t.Errorf("rejected tempo changed the target")
	}
}

func TestTransportUnlockOnce(t *testing.T) {
	tr := tracker.NewTransport(120, 0, 16)
	calls := 0
	init := func() error { calls++; return nil }
	for range 3 {
		if err := tr.Unlock(init); err != nil {
			t.Fatalf("Unlock: %v", err)
		}
	}
	if calls != 1 || !tr.Unlocked() {
		t.Errorf("initializer called %d times, unlocked %v", calls, tr.Unlocked())
	}
}
