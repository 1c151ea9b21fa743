package tracker

import (
	"context"
	"time"
)

type (
	// Generator produces an audio asset from a text prompt. Generate may
	// block for a long time; it is always called outside the UI goroutine.
	Generator interface {
		Generate(ctx context.Context, req GenerationRequest) (GenerationResponse, error)
	}

	GenerationRequest struct {
		Prompt     string  `json:"prompt"`
		DurationMs float64 `json:"targetDurationMs"`
	}

	// GenerationResponse is the outcome of a generation. AudioRef is opaque to
	// the session: a URL or a path that the Previewer and the Library know how
	// to open.
	GenerationResponse struct {
		Success  bool   `json:"success"`
		AudioRef string `json:"audioReference,omitempty"`
		Error    string `json:"error,omitempty"`
	}

	// Previewer starts an audition of an audio asset, independent of the
	// transport. The audition lasts until the returned Preview is closed.
	// Preview may block while the asset is fetched and decoded; it is always
	// called outside the UI goroutine and should give up when ctx is done.
	Previewer interface {
		Preview(ctx context.Context, ref string) (Preview, error)
	}

	Preview interface {
		Close() error
	}

	// Library persists assets. Save is called only after a generation has
	// been committed to a track.
	Library interface {
		Save(ctx context.Context, entry LibraryEntry) (id string, err error)
		List(ctx context.Context, filter LibraryFilter) ([]LibraryEntry, error)
		Delete(ctx context.Context, id string) error
	}

	LibraryEntry struct {
		ID       string            `yaml:"id"`
		Name     string            `yaml:"name"`
		Kind     string            `yaml:"kind"`
		Ref      string            `yaml:"ref,omitempty"`
		Metadata map[string]string `yaml:"metadata,omitempty"`
		Tags     []string          `yaml:"tags,omitempty"`
		Created  time.Time         `yaml:"created"`
		Size     int64             `yaml:"size,omitempty"`
	}

	// LibraryFilter selects entries; zero fields match everything.
	LibraryFilter struct {
		Kind string
		Tag  string
	}
)

const (
	LibraryAudio = "audio"
	LibraryMidi  = "midi"
)

// Match reports whether the entry passes the filter.
func (f LibraryFilter) Match(e LibraryEntry) bool {
	if f.Kind != "" && e.Kind != f.Kind {
		return false
	}
	if f.Tag == "" {
		return true
	}
	for _, t := range e.Tags {
		if t == f.Tag {
			return true
		}
	}
	return false
}
