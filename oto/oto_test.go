package oto_test

import (
	"context"
	"errors"
	"testing"

	"github.com/vsariola/tahti"
	"github.com/vsariola/tahti/oto"
)

func TestFloatBufferToBytes(t *testing.T) {
	buf := tahti.AudioBuffer{{0, 1}, {-0.5, 0.25}}
	b := oto.FloatBufferToBytes(buf, nil)
	if len(b) != 16 {
		t.Fatalf("got %d bytes, want 16", len(b))
	}
	// 1.0 is 0x3f800000
	if b[4] != 0x00 || b[5] != 0x00 || b[6] != 0x80 || b[7] != 0x3f {
		t.Errorf("unexpected encoding of 1.0: % x", b[4:8])
	}
	back := oto.BytesToFloatBuffer(append(b, 0xff))
	if len(back) != 2 || back[1] != buf[1] {
		t.Errorf("decoded %v, want %v", back, buf)
	}
}

type fakeContext struct {
	played []tahti.AudioBuffer
}

type fakeStream struct{ closed bool }

func (s *fakeStream) Close() error { s.closed = true; return nil }
func (s *fakeStream) Wait()        {}

func (c *fakeContext) Play(r tahti.AudioSource) tahti.CloserWaiter {
	buf := make(tahti.AudioBuffer, 4)
	r(buf)
	c.played = append(c.played, buf)
	return &fakeStream{}
}

func TestPreviewerPlaysDecodedAudio(t *testing.T) {
	ctx := &fakeContext{}
	p := &oto.Previewer{
		Context: ctx,
		Decode: func(_ context.Context, ref string) (tahti.AudioBuffer, error) {
			if ref != "take.flac" {
				return nil, errors.New("not found")
			}
			return tahti.AudioBuffer{{0.5, 0.5}, {0.25, 0.25}}, nil
		},
	}
	preview, err := p.Preview(context.Background(), "take.flac")
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if len(ctx.played) != 1 || ctx.played[0][0] != [2]float32{0.5, 0.5} || ctx.played[0][2] != [2]float32{} {
		t.Errorf("unexpected audio %v", ctx.played)
	}
	if err := preview.Close(); err != nil || !preview.(*fakeStream).closed {
		t.Errorf("preview not closed: %v", err)
	}
	if _, err := p.Preview(context.Background(), "missing.flac"); err == nil {
		t.Errorf("decode error not returned")
	}
}

func TestPreviewerStopsDecodingWhenCancelled(t *testing.T) {
	ctx := &fakeContext{}
	p := &oto.Previewer{
		Context: ctx,
		Decode: func(ctx context.Context, ref string) (tahti.AudioBuffer, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	cctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Preview(cctx, "slow.flac"); !errors.Is(err, context.Canceled) {
		t.Errorf("Preview after cancel: %v", err)
	}
	if len(ctx.played) != 0 {
		t.Errorf("cancelled preview played")
	}
}
