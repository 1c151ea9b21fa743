package tracker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/vsariola/tahti"
)

type (
	// Generation is the workflow of inserting one externally generated audio
	// asset into a clip slot: Idle -> Generating -> Generated -> (Previewing
	// <-> Generated) -> Committed, or back to Idle when cancelled or failed.
	//
	// A Generation belongs to the model and must only be used from the UI
	// goroutine. The generation request runs in its own goroutine; its result
	// arrives through Broker.ToModel and is applied in Model.ProcessMsg.
	Generation struct {
		m      *Model
		id     int
		slot   tahti.AudioClipSlot
		state  GenerationState
		prompt string
		ref    string
		err    error
		clipID string

		// results of requests submitted in an earlier epoch are stale
		epoch int

		// previews requested before the last release are stale
		preview       Preview
		previewSeq    int
		previewCancel context.CancelFunc

		ctx    context.Context
		cancel context.CancelFunc
		closed bool
	}

	GenerationState int

	generationResult struct {
		gen    int
		epoch  int
		prompt string
		resp   GenerationResponse
		err    error
	}

	previewReady struct {
		gen     int
		seq     int
		preview Preview
		err     error
	}

	librarySaved struct {
		name string
		err  error
	}
)

const (
	Idle GenerationState = iota
	Generating
	Generated
	Previewing
	Committed
)

// GenerationBars is the length of the generated audio, in bars.
const GenerationBars = 4

const maxDisplayName = 30

var (
	ErrEmptyPrompt = errors.New("empty prompt")
	ErrBadState    = errors.New("operation not allowed in this state")
	ErrClosed      = errors.New("generation closed")
)

func (s GenerationState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Generating:
		return "generating"
	case Generated:
		return "generated"
	case Previewing:
		return "previewing"
	case Committed:
		return "committed"
	}
	return "GenerationState(" + strconv.Itoa(int(s)) + ")"
}

// TargetDurationMs returns the duration of GenerationBars bars at the given
// tempo, in milliseconds.
func TargetDurationMs(bpm float64) float64 {
	return tahti.SecondsPerBar(bpm) * GenerationBars * 1000
}

// DisplayName derives a clip name from a prompt: the first 30 characters,
// followed by "..." if the prompt was longer.
func DisplayName(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	r := []rune(prompt)
	if len(r) <= maxDisplayName {
		return prompt
	}
	return strings.TrimSpace(string(r[:maxDisplayName])) + "..."
}

// NewGeneration starts a workflow targeting slot. The slot is checked only
// when the result is accepted.
func (m *Model) NewGeneration(slot tahti.AudioClipSlot) *Generation {
	ctx, cancel := context.WithCancel(m.ctx)
	m.nextGenID++
	g := &Generation{m: m, id: m.nextGenID, slot: slot, ctx: ctx, cancel: cancel}
	m.generations[g.id] = g
	return g
}

func (g *Generation) State() GenerationState { return g.state }

// Ref returns the audio reference of the last successful result; empty unless
// the state is Generated, Previewing or Committed.
func (g *Generation) Ref() string { return g.ref }

// Err returns the error of the last failed request.
func (g *Generation) Err() error { return g.err }

func (g *Generation) Prompt() string { return g.prompt }

func (g *Generation) Slot() tahti.AudioClipSlot { return g.slot }

// ClipID returns the identity of the clip the result was committed to.
func (g *Generation) ClipID() string { return g.clipID }

// Submit requests a generation for prompt. It never blocks: the request runs
// in the background and the state is Generating until the result arrives.
// Submitting again while Generating starts another independent request; the
// result arriving last wins. A previous result is discarded and its preview
// stopped.
func (g *Generation) Submit(prompt string) error {
	if g.closed {
		return ErrClosed
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return ErrEmptyPrompt
	}
	if g.state == Committed {
		return fmt.Errorf("%w: already committed", ErrBadState)
	}
	gen := g.m.services.Generator
	if gen == nil {
		return fmt.Errorf("%w: generator", ErrNoService)
	}
	g.releasePreview()
	g.prompt = prompt
	g.ref = ""
	g.err = nil
	g.state = Generating
	req := GenerationRequest{Prompt: prompt, DurationMs: TargetDurationMs(g.m.d.Song.BPM)}
	ctx, id, epoch, toModel := g.ctx, g.id, g.epoch, g.m.broker.ToModel
	go func() {
		resp, err := gen.Generate(ctx, req)
		select {
		case toModel <- MsgToModel{Data: generationResult{gen: id, epoch: epoch, prompt: prompt, resp: resp, err: err}}:
		case <-ctx.Done():
		}
	}()
	return nil
}

func (g *Generation) handleResult(r generationResult) {
	if g.closed || r.epoch != g.epoch {
		return // stale
	}
	err := r.err
	if err == nil && !r.resp.Success {
		err = errors.New(r.resp.Error)
		if r.resp.Error == "" {
			err = errors.New("generation failed")
		}
	}
	if err == nil && r.resp.AudioRef == "" {
		err = errors.New("no audio in the result")
	}
	g.releasePreview()
	if err != nil {
		g.state = Idle
		g.ref = ""
		g.err = err
		g.m.Alerts().AddNamed("Generation", fmt.Sprintf("Generation failed: %v", err), Error)
		return
	}
	g.prompt = r.prompt
	g.ref = r.resp.AudioRef
	g.err = nil
	g.state = Generated
}

// StartPreview auditions the result. A preview already playing is stopped and
// disposed first. It never blocks: the state is Previewing at once, while the
// asset is opened in the background and starts playing when it arrives in
// Model.ProcessMsg. If it cannot be opened, the state returns to Generated.
func (g *Generation) StartPreview() error {
	if g.closed {
		return ErrClosed
	}
	if g.state != Generated && g.state != Previewing {
		return fmt.Errorf("%w: nothing to preview", ErrBadState)
	}
	pr := g.m.services.Previewer
	if pr == nil {
		return fmt.Errorf("%w: previewer", ErrNoService)
	}
	g.releasePreview()
	g.state = Previewing
	ctx, cancel := context.WithCancel(g.ctx)
	g.previewCancel = cancel
	ref, id, seq, toModel := g.ref, g.id, g.previewSeq, g.m.broker.ToModel
	go func() {
		p, err := pr.Preview(ctx, ref)
		select {
		case toModel <- MsgToModel{Data: previewReady{gen: id, seq: seq, preview: p, err: err}}:
		case <-ctx.Done():
			if p != nil {
				p.Close()
			}
		}
	}()
	return nil
}

// PreviewPlaying reports whether the preview has been opened and is playing.
func (g *Generation) PreviewPlaying() bool { return g.preview != nil }

func (g *Generation) handlePreview(r previewReady) {
	if g.closed || r.seq != g.previewSeq || g.state != Previewing {
		g.m.closeOrphan(r.preview)
		return
	}
	err := r.err
	if err == nil && r.preview == nil {
		err = errors.New("nothing to play")
	}
	if err != nil {
		g.releasePreview()
		g.state = Generated
		g.m.Alerts().AddNamed("Preview", fmt.Sprintf("Could not preview: %v", err), Error)
		return
	}
	g.preview = r.preview
}

// StopPreview stops the audition, if any.
func (g *Generation) StopPreview() {
	if g.state != Previewing {
		return
	}
	g.releasePreview()
	g.state = Generated
}

// TogglePreview starts the preview if it is not playing and stops it if it
// is.
func (g *Generation) TogglePreview() error {
	if g.state == Previewing {
		g.StopPreview()
		return nil
	}
	return g.StartPreview()
}

// Previewing returns a Bool for a preview toggle button.
func (g *Generation) Previewing() Bool { return MakeBool((*generationPreview)(g)) }

type generationPreview Generation

func (g *generationPreview) Value() bool { return g.state == Previewing }
func (g *generationPreview) SetValue(val bool) {
	if val {
		(*Generation)(g).StartPreview()
	} else {
		(*Generation)(g).StopPreview()
	}
}
func (g *generationPreview) Enabled() bool {
	return g.state == Generated || g.state == Previewing
}

// releasePreview is the only place where a preview is disposed. A preview
// still being opened is abandoned.
func (g *Generation) releasePreview() {
	g.previewSeq++
	if g.previewCancel != nil {
		g.previewCancel()
		g.previewCancel = nil
	}
	if g.preview == nil {
		return
	}
	err := g.preview.Close()
	g.preview = nil
	if err != nil {
		g.m.Alerts().AddNamed("Preview", fmt.Sprintf("Error stopping preview: %v", err), Warning)
	}
}

// Accept stops the preview and writes the result into the slot: a new clip if
// the slot has no ClipID, otherwise the clip with that identity is replaced.
// The committed asset is then saved to the library in the background, if a
// library is configured, and the workflow leaves the model. It returns the
// identity of the written clip.
func (g *Generation) Accept() (string, error) {
	if g.closed {
		return "", ErrClosed
	}
	if g.state != Generated && g.state != Previewing {
		return "", fmt.Errorf("%w: nothing to accept", ErrBadState)
	}
	g.releasePreview()
	g.state = Generated
	name := DisplayName(g.prompt)
	id, err := g.m.Track().CommitAudio(g.slot, g.ref, name)
	if err != nil {
		g.m.Alerts().AddNamed("Generation", fmt.Sprintf("Could not commit: %v", err), Error)
		return "", err
	}
	g.clipID = id
	g.slot.ClipID = id
	g.state = Committed
	g.epoch++
	g.cancel()
	delete(g.m.generations, g.id)
	if lib := g.m.services.Library; lib != nil {
		entry := LibraryEntry{
			Name: name,
			Kind: LibraryAudio,
			Ref:  g.ref,
			Metadata: map[string]string{
				"prompt":     g.prompt,
				"bpm":        strconv.FormatFloat(g.m.d.Song.BPM, 'f', -1, 64),
				"key":        g.m.d.Song.Key.String(),
				"durationMs": strconv.FormatFloat(TargetDurationMs(g.m.d.Song.BPM), 'f', 0, 64),
			},
			Tags: []string{"generated"},
		}
		ctx, toModel := g.m.ctx, g.m.broker.ToModel
		go func() {
			_, err := lib.Save(ctx, entry)
			select {
			case toModel <- MsgToModel{Data: librarySaved{name: entry.Name, err: err}}:
			case <-ctx.Done():
			}
		}()
	}
	return id, nil
}

// Cancel discards the result and stops the preview. Results of requests
// still in flight are ignored when they arrive.
func (g *Generation) Cancel() {
	g.releasePreview()
	g.epoch++
	g.state = Idle
	g.ref = ""
	g.err = nil
}

// Close disposes the workflow: the preview is stopped, requests in flight are
// abandoned and the generation is removed from the model.
func (g *Generation) Close() {
	if g.closed {
		return
	}
	if g.state != Committed {
		g.Cancel()
	}
	g.closed = true
	g.cancel()
	delete(g.m.generations, g.id)
}

// closeOrphan disposes a preview that was opened for a workflow that no longer
// wants it.
func (m *Model) closeOrphan(p Preview) {
	if p == nil {
		return
	}
	if err := p.Close(); err != nil {
		m.Alerts().AddNamed("Preview", fmt.Sprintf("Error stopping preview: %v", err), Warning)
	}
}

// Generations returns the number of workflows in the model, i.e. neither
// committed nor closed.
func (m *Model) Generations() int { return len(m.generations) }
