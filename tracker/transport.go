package tracker

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/vsariola/tahti"
)

type (
	// Transport is the musical clock of a session: tempo, loop bounds, the
	// current position and a registry of periodic callbacks. It is explicitly
	// constructed and owned by the Player; all methods except Unlock must be
	// called from the goroutine that owns it.
	//
	// Time only moves when Advance is called. While running, the position
	// wraps from the loop end back to the loop start without a gap.
	Transport struct {
		beats     float64 // position, in beats since bar 0 beat 0
		running   bool
		loopStart int
		loopEnd   int

		rampFrom    float64 // tempo at the start of the current ramp
		target      float64
		rampElapsed float64 // seconds; >= rampSeconds means no ramp in progress

		callbacks []*periodic
		nextID    CallbackID

		unlockOnce sync.Once
		unlockErr  error
		unlocked   bool
		unlockMu   sync.Mutex
	}

	// TransportState is either Stopped or Running.
	TransportState int

	// CallbackID identifies a registered periodic callback.
	CallbackID int

	// Tick is given to a periodic callback when it fires. Beat is the aligned
	// boundary, Count is Beat divided by the interval, and Offset is the time
	// in seconds from the start of the Advance call to the boundary.
	Tick struct {
		Position tahti.Position
		Beat     float64
		Count    int
		Offset   float64
	}

	// Span is a contiguous stretch of musical time traversed by one Advance
	// call; a loop wrap splits the traversal into several spans. From and To
	// are in beats, To exclusive. Offset and Duration are in seconds, relative
	// to the start of the Advance call.
	Span struct {
		From, To         float64
		Offset, Duration float64
	}

	periodic struct {
		id       CallbackID
		interval float64
		fn       func(Tick)
		removed  bool
	}

	// tempoCurve is the tempo over one Advance call: a linear ramp of rampDur
	// seconds starting from bpm0, then constant at bpm1.
	tempoCurve struct {
		bpm0, slope, rampDur, bpm1 float64
	}
)

const (
	Stopped TransportState = iota
	Running
)

// TempoRamp is how long a tempo change takes to reach its target.
const TempoRamp = 100 * time.Millisecond

var rampSeconds = TempoRamp.Seconds()

// NewTransport returns a stopped transport at bar 0. Invalid values fall back
// to the defaults of a new song.
func NewTransport(bpm float64, loopStart, loopEnd int) *Transport {
	if tahti.ValidateTempo(bpm) != nil {
		bpm = tahti.DefaultBPM
	}
	if tahti.ValidateLoop(loopStart, loopEnd) != nil {
		loopStart, loopEnd = 0, tahti.DefaultLoopBars
	}
	return &Transport{
		loopStart:   loopStart,
		loopEnd:     loopEnd,
		rampFrom:    bpm,
		target:      bpm,
		rampElapsed: rampSeconds,
	}
}

// Unlock runs the audio unlock initializer. Only the first call runs init;
// later calls are no-ops that return the result of the first one.
func (t *Transport) Unlock(init func() error) error {
	t.unlockOnce.Do(func() {
		err := init()
		t.unlockMu.Lock()
		t.unlockErr = err
		t.unlocked = err == nil
		t.unlockMu.Unlock()
	})
	t.unlockMu.Lock()
	defer t.unlockMu.Unlock()
	return t.unlockErr
}

// Unlocked reports whether the audio unlock has succeeded.
func (t *Transport) Unlocked() bool {
	t.unlockMu.Lock()
	defer t.unlockMu.Unlock()
	return t.unlocked
}

func (t *Transport) State() TransportState {
	if t.running {
		return Running
	}
	return Stopped
}

func (t *Transport) Running() bool { return t.running }

// Start starts the clock. Starting a running transport does nothing.
func (t *Transport) Start() { t.running = true }

// Stop stops the clock and rewinds the position to the loop start. Stopping a
// stopped transport does nothing.
func (t *Transport) Stop() {
	if !t.running {
		return
	}
	t.running = false
	t.finishRamp()
	t.beats = float64(t.loopStart * tahti.BeatsPerBar)
}

// Tempo returns the current tempo, which differs from the target while a
// ramp is in progress.
func (t *Transport) Tempo() float64 {
	if t.rampElapsed >= rampSeconds {
		return t.target
	}
	return t.rampFrom + (t.target-t.rampFrom)*t.rampElapsed/rampSeconds
}

// TargetTempo returns the tempo last set with SetTempo.
func (t *Transport) TargetTempo() float64 { return t.target }

// SetTempo changes the tempo. While running, the tempo ramps linearly from the
// current value to bpm in TempoRamp; a stopped transport changes immediately.
// Invalid tempos are rejected and the previous tempo is retained.
func (t *Transport) SetTempo(bpm float64) error {
	if err := tahti.ValidateTempo(bpm); err != nil {
		return err
	}
	if !t.running {
		t.rampFrom, t.target, t.rampElapsed = bpm, bpm, rampSeconds
		return nil
	}
	t.rampFrom = t.Tempo()
	t.target = bpm
	t.rampElapsed = 0
	return nil
}

func (t *Transport) finishRamp() {
	t.rampFrom = t.target
	t.rampElapsed = rampSeconds
}

// LoopBounds returns the loop start and end bars.
func (t *Transport) LoopBounds() (start, end int) { return t.loopStart, t.loopEnd }

// SetLoopBounds sets the loop to bars [start, end). end must exceed start;
// otherwise the bounds are rejected and the previous ones retained. The
// running state is never changed.
func (t *Transport) SetLoopBounds(start, end int) error {
	if err := tahti.ValidateLoop(start, end); err != nil {
		return err
	}
	t.loopStart, t.loopEnd = start, end
	return nil
}

// Position returns the current musical position.
func (t *Transport) Position() tahti.Position { return tahti.PositionOf(t.beats) }

// Beats returns the current position in beats.
func (t *Transport) Beats() float64 { return t.beats }

// Seek moves the position. Negative positions are clamped to bar 0.
func (t *Transport) Seek(p tahti.Position) {
	t.beats = max(0, p.Beats())
}

// LoopProgress returns how far the position is into the loop, in [0,1): the
// beats elapsed since the last loop start divided by the beats in the loop.
// A degenerate loop gives 0.
func (t *Transport) LoopProgress() float64 {
	length := float64((t.loopEnd - t.loopStart) * tahti.BeatsPerBar)
	if length <= 0 {
		return 0
	}
	rel := math.Mod(t.beats-float64(t.loopStart*tahti.BeatsPerBar), length)
	if rel < 0 {
		rel += length
	}
	p := rel / length
	if p >= 1 {
		return 0
	}
	return p
}

// Schedule registers fn to be called once per interval beats of musical time,
// at positions that are multiples of interval counted from bar 0 beat 0. The
// phase does not depend on when the callback was registered.
func (t *Transport) Schedule(interval float64, fn func(Tick)) (CallbackID, error) {
	if !(interval > 0) || math.IsInf(interval, 0) || fn == nil {
		return 0, fmt.Errorf("invalid callback interval %v", interval)
	}
	t.nextID++
	t.callbacks = append(t.callbacks, &periodic{id: t.nextID, interval: interval, fn: fn})
	return t.nextID, nil
}

// Unschedule removes a callback. It is safe to call from within a callback;
// a removed callback does not fire again, even later in the same Advance.
func (t *Transport) Unschedule(id CallbackID) bool {
	for i, c := range t.callbacks {
		if c.id == id {
			c.removed = true
			t.callbacks = append(t.callbacks[:i], t.callbacks[i+1:]...)
			return true
		}
	}
	return false
}

// Advance moves the clock forward by seconds of wall-clock time, firing every
// periodic callback whose boundary was crossed, in musical order. The
// traversed musical time is returned as spans, split at each loop wrap. A
// stopped transport does not move.
//
// Spans are half-open, so a boundary is fired in exactly one Advance call and,
// at a loop wrap, only the loop start fires; the loop end is never reached.
func (t *Transport) Advance(seconds float64) []Span {
	if !t.running || !(seconds > 0) {
		return nil
	}
	curve := tempoCurve{bpm0: t.Tempo(), bpm1: t.target}
	if t.rampElapsed < rampSeconds {
		curve.rampDur = min(rampSeconds-t.rampElapsed, seconds)
		curve.slope = (t.target - t.rampFrom) / rampSeconds
		t.rampElapsed += curve.rampDur
		if t.rampElapsed >= rampSeconds {
			t.finishRamp()
		}
	}
	remaining := curve.beats(seconds)
	loopStart := float64(t.loopStart * tahti.BeatsPerBar)
	loopEnd := float64(t.loopEnd * tahti.BeatsPerBar)
	if t.beats >= loopEnd {
		t.beats = loopStart
	}
	var spans []Span
	var traversed float64
	for remaining > 0 {
		from := t.beats
		to := min(from+remaining, loopEnd)
		if to <= from {
			break
		}
		offset := curve.timeAt(traversed)
		spans = append(spans, Span{From: from, To: to, Offset: offset, Duration: curve.timeAt(traversed+to-from) - offset})
		t.fire(from, to, traversed, &curve)
		traversed += to - from
		remaining -= to - from
		t.beats = to
		if t.beats >= loopEnd {
			t.beats = loopStart
		}
	}
	return spans
}

type firing struct {
	beat  float64
	count int
	cb    *periodic
}

func (t *Transport) fire(from, to, traversed float64, curve *tempoCurve) {
	var firings []firing
	for _, c := range t.callbacks {
		for n := int(math.Ceil(from / c.interval)); float64(n)*c.interval < to; n++ {
			firings = append(firings, firing{beat: float64(n) * c.interval, count: n, cb: c})
		}
	}
	sort.SliceStable(firings, func(i, j int) bool { return firings[i].beat < firings[j].beat })
	for _, f := range firings {
		if f.cb.removed {
			continue
		}
		f.cb.fn(Tick{
			Position: tahti.PositionOf(f.beat),
			Beat:     f.beat,
			Count:    f.count,
			Offset:   curve.timeAt(traversed + f.beat - from),
		})
	}
}

// beats returns the beats elapsed after s seconds.
func (c *tempoCurve) beats(s float64) float64 {
	r := min(s, c.rampDur)
	b := (c.bpm0*r + 0.5*c.slope*r*r) / 60
	if s > c.rampDur {
		b += c.bpm1 * (s - c.rampDur) / 60
	}
	return b
}

// timeAt is the inverse of beats.
func (c *tempoCurve) timeAt(b float64) float64 {
	rampBeats := c.beats(c.rampDur)
	if b <= rampBeats && c.rampDur > 0 {
		// solve 0.5*slope*t^2 + bpm0*t = 60*b, written to stay stable when
		// slope is near zero
		return 120 * b / (c.bpm0 + math.Sqrt(c.bpm0*c.bpm0+120*c.slope*b))
	}
	return c.rampDur + (b-rampBeats)*60/c.bpm1
}
