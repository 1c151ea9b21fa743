package tahti

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

type (
	// SongSpec is the read-only description of a song produced by an outside
	// agent. Only the tempo and the key are consumed; explicit fields take
	// precedence over the Aggregate fallbacks.
	SongSpec struct {
		SongSpecFields `yaml:",inline"`
		Aggregate      *SongSpecFields `json:"aggregate,omitempty" yaml:",omitempty"`
	}

	// SongSpecFields are the fields that can appear both at the top level of
	// a SongSpec and in its aggregate.
	SongSpecFields struct {
		BPM   *float64 `json:"bpm,omitempty" yaml:",omitempty"`
		Key   string   `json:"key,omitempty" yaml:",omitempty"`
		Scale string   `json:"scale,omitempty" yaml:",omitempty"`
		Genre string   `json:"genre,omitempty" yaml:",omitempty"`
	}
)

// ParseSongSpec parses a SongSpec blob, given as json or yaml.
func ParseSongSpec(b []byte) (SongSpec, error) {
	var s SongSpec
	if errJSON := json.Unmarshal(b, &s); errJSON != nil {
		s = SongSpec{}
		if errYaml := yaml.Unmarshal(b, &s); errYaml != nil {
			return SongSpec{}, fmt.Errorf("the song spec could not be parsed as .json (%v) or .yml (%v)", errJSON, errYaml)
		}
	}
	return s, nil
}

func (s *SongSpec) aggregate() SongSpecFields {
	if s.Aggregate == nil {
		return SongSpecFields{}
	}
	return *s.Aggregate
}

// Tempo returns the explicit bpm, then the aggregate bpm, then DefaultBPM.
// Values outside the accepted tempo range are ignored.
func (s *SongSpec) Tempo() float64 {
	for _, v := range [...]*float64{s.BPM, s.aggregate().BPM} {
		if v != nil && ValidateTempo(*v) == nil {
			return *v
		}
	}
	return DefaultBPM
}

// GenreName returns the explicit genre, falling back to the aggregate.
func (s *SongSpec) GenreName() string {
	if s.Genre != "" {
		return s.Genre
	}
	return s.aggregate().Genre
}

// KeySignature returns the key described by the spec. The key field may hold
// the mode too ("F# minor", "Am"), in which case a separate scale field only
// overrides it when present. Explicit fields win over the aggregate, and if
// neither yields a key, DefaultKey is returned.
func (s *SongSpec) KeySignature() KeySignature {
	agg := s.aggregate()
	key := firstNonEmpty(s.Key, agg.Key)
	if key == "" {
		return DefaultKey
	}
	k, err := ParseKey(key)
	if err != nil {
		return DefaultKey
	}
	if scale := firstNonEmpty(s.Scale, agg.Scale); scale != "" {
		if m, err := ParseMode(scale); err == nil {
			k.Mode = m
		}
	}
	return k
}

func firstNonEmpty(s ...string) string {
	for _, v := range s {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
