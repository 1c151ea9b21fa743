package oto

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os/exec"
	"strconv"

	"github.com/vsariola/tahti"
	"github.com/vsariola/tahti/tracker"
)

// Previewer auditions generated audio on the audio context. The asset is
// decoded with ffmpeg and played on its own player, independent of the
// transport.
type Previewer struct {
	Context tahti.AudioContext
	// Decode turns an audio reference into samples; DecodeFile if nil.
	Decode func(ctx context.Context, ref string) (tahti.AudioBuffer, error)
}

// DecodeFile runs ffmpeg to decode an audio file or URL into stereo float32
// samples at tahti.SampleRate.
func DecodeFile(ctx context.Context, ref string) (tahti.AudioBuffer, error) {
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-i", ref,
		"-f", "f32le",
		"-acodec", "pcm_f32le",
		"-ar", strconv.Itoa(tahti.SampleRate),
		"-ac", "2",
		"-loglevel", "error",
		"pipe:1",
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg decode %s: %w (%s)", ref, err, bytes.TrimSpace(stderr.Bytes()))
	}
	return BytesToFloatBuffer(out), nil
}

// Preview decodes the asset and starts playing it. Decoding is aborted when
// ctx is done. The returned preview stops the playback when closed.
func (p *Previewer) Preview(ctx context.Context, ref string) (tracker.Preview, error) {
	if p.Context == nil {
		return nil, errors.New("no audio context")
	}
	decode := p.Decode
	if decode == nil {
		decode = DecodeFile
	}
	buffer, err := decode(ctx, ref)
	if err != nil {
		return nil, err
	}
	log.Printf("previewing %s (%.1fs)", ref, buffer.Duration())
	return p.Context.Play(buffer.Source()), nil
}
