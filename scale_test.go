package tahti_test

import (
	"errors"
	"testing"

	"github.com/vsariola/tahti"
)

var majorRoots = []string{"C", "G", "D", "A", "E", "B", "F#", "C#", "F", "Bb", "Eb", "Ab", "Db", "Gb", "Cb"}
var minorRoots = []string{"A", "E", "B", "F#", "C#", "G#", "D#", "A#", "D", "G", "C", "F", "Bb", "Eb", "Ab", "Fb"}

func TestResolveScaleSevenDistinct(t *testing.T) {
	check := func(root string, mode tahti.Mode) {
		s := tahti.ResolveScale(root, mode)
		if len(s) != 7 {
			t.Fatalf("%s %v: got %d notes", root, mode, len(s))
		}
		seen := map[string]bool{}
		for _, pc := range s {
			if seen[pc] {
				t.Fatalf("%s %v: duplicate %s", root, mode, pc)
			}
			seen[pc] = true
		}
		if s[0] != root {
			t.Fatalf("%s %v: scale starts at %s", root, mode, s[0])
		}
	}
	for _, r := range majorRoots {
		check(r, tahti.Major)
	}
	for _, r := range minorRoots {
		check(r, tahti.Minor)
	}
}

func TestResolveScaleNormalization(t *testing.T) {
	s := tahti.ResolveScale("  f♯ ", tahti.Major)
	if len(s) != 7 || s[0] != "F#" {
		t.Fatalf("f♯ major = %v", s)
	}
	if s := tahti.ResolveScale("b♭", tahti.Minor); len(s) != 7 || s[0] != "Bb" {
		t.Fatalf("b♭ minor = %v", s)
	}
}

func TestResolveScaleEnharmonicFallback(t *testing.T) {
	// D# major is not in the table, Eb major is
	s := tahti.ResolveScale("D#", tahti.Major)
	if len(s) != 7 || s[0] != "Eb" {
		t.Fatalf("D# major = %v", s)
	}
	// B# major falls back to C major
	if s := tahti.ResolveScale("B#", tahti.Major); len(s) != 7 || s[0] != "C" {
		t.Fatalf("B# major = %v", s)
	}
	// Db minor falls back to C# minor
	if s := tahti.ResolveScale("Db", tahti.Minor); len(s) != 7 || s[0] != "C#" {
		t.Fatalf("Db minor = %v", s)
	}
}

func TestResolveScaleUnknown(t *testing.T) {
	for _, root := range []string{"", "H", "X#", "Q minor"} {
		if s := tahti.ResolveScale(root, tahti.Major); len(s) != 0 {
			t.Fatalf("%q should give an empty scale, got %v", root, s)
		}
	}
	if _, err := tahti.ResolveScaleStrict("H", tahti.Major); !errors.Is(err, tahti.ErrUnknownKey) {
		t.Fatalf("expected ErrUnknownKey, got %v", err)
	}
	var empty tahti.Scale
	if tahti.IsInScale("C", empty) {
		t.Fatal("empty scale should contain nothing")
	}
}

func TestResolveScaleReturnsCopy(t *testing.T) {
	s := tahti.ResolveScale("C", tahti.Major)
	s[0] = "X"
	if tahti.ResolveScale("C", tahti.Major)[0] != "C" {
		t.Fatal("modifying a resolved scale changed the table")
	}
}

func TestIsInScaleEnharmonic(t *testing.T) {
	f := tahti.ResolveScale("F", tahti.Major)
	if !tahti.IsInScale("Bb", f) || !tahti.IsInScale("A#", f) || !tahti.IsInScale("a♯", f) {
		t.Fatalf("F major %v should contain Bb and A#", f)
	}
	if tahti.IsInScale("B", f) {
		t.Fatal("F major should not contain B")
	}
	d := tahti.ResolveScale("D", tahti.Major)
	if !tahti.IsInScale("Gb", d) {
		t.Fatal("D major should contain Gb through F#")
	}
	fb := tahti.ResolveScale("Fb", tahti.Minor)
	if !tahti.IsInScale("A", fb) || !tahti.IsInScale("E", fb) {
		t.Fatalf("Fb minor %v should contain A (Bbb) and E (Fb)", fb)
	}
}

func TestDisplayName(t *testing.T) {
	cases := []struct {
		pc     string
		flats  bool
		result string
	}{
		{"F#", true, "Gb"}, {"Gb", false, "F#"}, {"F#", false, "F#"}, {"C", true, "C"}, {"e♭", false, "D#"},
	}
	for _, c := range cases {
		if got := tahti.DisplayName(c.pc, c.flats); got != c.result {
			t.Errorf("DisplayName(%q, %v) = %q, expected %q", c.pc, c.flats, got, c.result)
		}
	}
}

func TestParseKey(t *testing.T) {
	cases := []struct {
		s   string
		key tahti.KeySignature
	}{
		{"F# minor", tahti.KeySignature{Root: "F#", Mode: tahti.Minor}},
		{"Bb", tahti.KeySignature{Root: "Bb", Mode: tahti.Major}},
		{"Am", tahti.KeySignature{Root: "A", Mode: tahti.Minor}},
		{"c♯ min", tahti.KeySignature{Root: "C#", Mode: tahti.Minor}},
		{"eb Major", tahti.KeySignature{Root: "Eb", Mode: tahti.Major}},
	}
	for _, c := range cases {
		k, err := tahti.ParseKey(c.s)
		if err != nil {
			t.Fatalf("ParseKey(%q) failed: %v", c.s, err)
		}
		if k != c.key {
			t.Errorf("ParseKey(%q) = %v, expected %v", c.s, k, c.key)
		}
	}
	if _, err := tahti.ParseKey("C dorian"); !errors.Is(err, tahti.ErrUnknownMode) {
		t.Fatalf("expected ErrUnknownMode, got %v", err)
	}
}
