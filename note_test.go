package tahti_test

import (
	"errors"
	"testing"

	"github.com/vsariola/tahti"
)

func TestPitchName(t *testing.T) {
	cases := []struct {
		n    int
		name string
	}{
		{60, "C4"}, {0, "C-1"}, {127, "G9"}, {61, "C#4"}, {69, "A4"}, {-5, "C-1"}, {200, "G9"},
	}
	for _, c := range cases {
		if got := tahti.PitchName(c.n); got != c.name {
			t.Errorf("PitchName(%d) = %q, expected %q", c.n, got, c.name)
		}
	}
}

func TestPitchNumber(t *testing.T) {
	cases := []struct {
		name string
		n    int
	}{
		{"C4", 60}, {"A4", 69}, {"C#4", 61}, {"Bb3", 58}, {"C-1", 0}, {"G9", 127},
		{"not-a-note", 60}, {"", 60}, {"H2", 60}, {"C", 60}, {"C+4", 60}, {"G#9", 60},
	}
	for _, c := range cases {
		if got := tahti.PitchNumber(c.name); got != c.n {
			t.Errorf("PitchNumber(%q) = %d, expected %d", c.name, got, c.n)
		}
	}
}

func TestParsePitchStrict(t *testing.T) {
	if _, err := tahti.ParsePitch("not-a-note"); !errors.Is(err, tahti.ErrInvalidNoteName) {
		t.Fatalf("expected ErrInvalidNoteName, got %v", err)
	}
	if n, err := tahti.ParsePitch("E2"); err != nil || n != 40 {
		t.Fatalf("ParsePitch(E2) = %d, %v", n, err)
	}
}

func TestPitchNameRoundTrip(t *testing.T) {
	for n := 0; n <= 127; n++ {
		name := tahti.PitchName(n)
		if got := tahti.PitchName(tahti.PitchNumber(name)); got != name {
			t.Fatalf("round trip of %d: %q became %q", n, name, got)
		}
	}
}

func TestPitchClass(t *testing.T) {
	if got := tahti.PitchClass(66); got != "F#" {
		t.Fatalf("PitchClass(66) = %q", got)
	}
}
