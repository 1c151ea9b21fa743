package tahti

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type (
	// Mode is the mode of a key signature. Only the major and natural minor
	// modes are supported.
	Mode int

	// KeySignature is the key of a song: a root pitch class and a mode.
	KeySignature struct {
		Root string
		Mode Mode
	}

	// Scale is the ordered diatonic set of a key: seven pitch class names,
	// starting from the root. An empty Scale means the key was not
	// recognized and nothing should be highlighted.
	Scale []string
)

const (
	Major Mode = iota
	Minor
)

var (
	ErrUnknownKey  = errors.New("unknown key")
	ErrUnknownMode = errors.New("unknown mode")
)

// DefaultKey is the key used when nothing else is known: C major.
var DefaultKey = KeySignature{Root: "C", Mode: Major}

var majorScales = map[string]Scale{
	"C":  {"C", "D", "E", "F", "G", "A", "B"},
	"G":  {"G", "A", "B", "C", "D", "E", "F#"},
	"D":  {"D", "E", "F#", "G", "A", "B", "C#"},
	"A":  {"A", "B", "C#", "D", "E", "F#", "G#"},
	"E":  {"E", "F#", "G#", "A", "B", "C#", "D#"},
	"B":  {"B", "C#", "D#", "E", "F#", "G#", "A#"},
	"F#": {"F#", "G#", "A#", "B", "C#", "D#", "E#"},
	"C#": {"C#", "D#", "E#", "F#", "G#", "A#", "B#"},
	"F":  {"F", "G", "A", "Bb", "C", "D", "E"},
	"Bb": {"Bb", "C", "D", "Eb", "F", "G", "A"},
	"Eb": {"Eb", "F", "G", "Ab", "Bb", "C", "D"},
	"Ab": {"Ab", "Bb", "C", "Db", "Eb", "F", "G"},
	"Db": {"Db", "Eb", "F", "Gb", "Ab", "Bb", "C"},
	"Gb": {"Gb", "Ab", "Bb", "Cb", "Db", "Eb", "F"},
	"Cb": {"Cb", "Db", "Eb", "Fb", "Gb", "Ab", "Bb"},
}

var minorScales = map[string]Scale{
	"A":  {"A", "B", "C", "D", "E", "F", "G"},
	"E":  {"E", "F#", "G", "A", "B", "C", "D"},
	"B":  {"B", "C#", "D", "E", "F#", "G", "A"},
	"F#": {"F#", "G#", "A", "B", "C#", "D", "E"},
	"C#": {"C#", "D#", "E", "F#", "G#", "A", "B"},
	"G#": {"G#", "A#", "B", "C#", "D#", "E", "F#"},
	"D#": {"D#", "E#", "F#", "G#", "A#", "B", "C#"},
	"A#": {"A#", "B#", "C#", "D#", "E#", "F#", "G#"},
	"D":  {"D", "E", "F", "G", "A", "Bb", "C"},
	"G":  {"G", "A", "Bb", "C", "D", "Eb", "F"},
	"C":  {"C", "D", "Eb", "F", "G", "Ab", "Bb"},
	"F":  {"F", "G", "Ab", "Bb", "C", "Db", "Eb"},
	"Bb": {"Bb", "C", "Db", "Eb", "F", "Gb", "Ab"},
	"Eb": {"Eb", "F", "Gb", "Ab", "Bb", "Cb", "Db"},
	"Ab": {"Ab", "Bb", "Cb", "Db", "Eb", "Fb", "Gb"},
	"Fb": {"Fb", "Gb", "Abb", "Bbb", "Cb", "Dbb", "Ebb"},
}

// enharmonics is the canonical equivalence table between the common
// spellings. It is symmetric: every entry has its reverse.
var enharmonics = map[string]string{
	"C#": "Db", "Db": "C#",
	"D#": "Eb", "Eb": "D#",
	"F#": "Gb", "Gb": "F#",
	"G#": "Ab", "Ab": "G#",
	"A#": "Bb", "Bb": "A#",
	"B#": "C", "C": "B#",
	"Cb": "B", "B": "Cb",
	"E#": "F", "F": "E#",
	"Fb": "E", "E": "Fb",
}

var glyphReplacer = strings.NewReplacer("♭", "b", "♯", "#", "𝄫", "bb", "𝄪", "##")

// NormalizePitchClass trims whitespace, converts Unicode accidentals to
// ASCII and capitalizes the letter name, e.g. " f♯ " becomes "F#".
func NormalizePitchClass(s string) string {
	s = glyphReplacer.Replace(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	_, size := utf8.DecodeRuneInString(s)
	return cases.Upper(language.Und).String(s[:size]) + cases.Lower(language.Und).String(s[size:])
}

// Enharmonic returns the canonical alternative spelling of a pitch class,
// e.g. "Gb" for "F#". ok is false if the table has no entry.
func Enharmonic(pc string) (alt string, ok bool) {
	alt, ok = enharmonics[NormalizePitchClass(pc)]
	return
}

// DisplayName spells a pitch class with flats or sharps as preferred, using
// the same equivalence table as scale lookup.
func DisplayName(pc string, preferFlats bool) string {
	pc = NormalizePitchClass(pc)
	alt, ok := enharmonics[pc]
	if !ok || len(pc) != 2 {
		return pc
	}
	if preferFlats && pc[1] == '#' && strings.HasSuffix(alt, "b") {
		return alt
	}
	if !preferFlats && pc[1] == 'b' && strings.HasSuffix(alt, "#") {
		return alt
	}
	return pc
}

// Semitone returns the chromatic index 0..11 of a spelled pitch class. Any
// number of sharps or flats is accepted, so "Abb" and "G" both give 7.
func Semitone(pc string) (int, bool) {
	pc = NormalizePitchClass(pc)
	if pc == "" {
		return 0, false
	}
	n, ok := letterPitch[pc[0]]
	if !ok {
		return 0, false
	}
	for _, c := range pc[1:] {
		switch c {
		case '#':
			n++
		case 'b':
			n--
		default:
			return 0, false
		}
	}
	return ((n % 12) + 12) % 12, true
}

// ResolveScale returns the diatonic pitch classes of the key (root, mode).
// The root is normalized first; if the exact spelling is not a known key, its
// enharmonic equivalent is tried once. Unknown keys give an empty Scale.
func ResolveScale(root string, mode Mode) Scale {
	s, _ := ResolveScaleStrict(root, mode)
	return s
}

// ResolveScaleStrict is like ResolveScale but returns ErrUnknownKey instead of
// an empty scale.
func ResolveScaleStrict(root string, mode Mode) (Scale, error) {
	var table map[string]Scale
	switch mode {
	case Major:
		table = majorScales
	case Minor:
		table = minorScales
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownMode, int(mode))
	}
	r := NormalizePitchClass(root)
	if s, ok := table[r]; ok {
		return s.Copy(), nil
	}
	if alt, ok := enharmonics[r]; ok {
		if s, ok := table[alt]; ok {
			return s.Copy(), nil
		}
	}
	return nil, fmt.Errorf("%w: %q %v", ErrUnknownKey, root, mode)
}

// Scale returns the diatonic set of the key signature.
func (k KeySignature) Scale() Scale { return ResolveScale(k.Root, k.Mode) }

func (k KeySignature) String() string { return k.Root + " " + k.Mode.String() }

// Copy returns a copy of the scale that can be modified freely.
func (s Scale) Copy() Scale {
	ret := make(Scale, len(s))
	copy(ret, s)
	return ret
}

// Contains reports whether pc is a member of the scale, either literally or
// as an enharmonic equivalent of a member: a scale with "F#" contains "Gb".
func (s Scale) Contains(pc string) bool {
	pc = NormalizePitchClass(pc)
	n, ok := Semitone(pc)
	if !ok {
		return false
	}
	alt := enharmonics[pc]
	for _, m := range s {
		if m == pc || m == alt || enharmonics[m] == pc {
			return true
		}
		if k, ok := Semitone(m); ok && k == n {
			return true
		}
	}
	return false
}

// IsInScale reports whether pc belongs to the scale; see Scale.Contains.
func IsInScale(pc string, s Scale) bool { return s.Contains(pc) }

func (m Mode) String() string {
	switch m {
	case Major:
		return "major"
	case Minor:
		return "minor"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode parses mode names like "major", "Minor", "min" or "aeolian".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "major", "maj", "ionian", "":
		return Major, nil
	case "minor", "min", "m", "aeolian":
		return Minor, nil
	}
	return Major, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *Mode) UnmarshalText(text []byte) error {
	v, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// ParseKey parses key names such as "F# minor", "Bb", "Am" or "c♯ min". The
// root is normalized but not validated against the known keys; resolving an
// unknown root simply gives an empty scale.
func ParseKey(s string) (KeySignature, error) {
	fields := strings.Fields(s)
	switch len(fields) {
	case 0:
		return KeySignature{}, fmt.Errorf("%w: empty", ErrUnknownKey)
	case 1:
		root := glyphReplacer.Replace(fields[0])
		if len(root) > 1 && strings.HasSuffix(root, "m") {
			return KeySignature{Root: NormalizePitchClass(root[:len(root)-1]), Mode: Minor}, nil
		}
		return KeySignature{Root: NormalizePitchClass(root), Mode: Major}, nil
	case 2:
		mode, err := ParseMode(fields[1])
		if err != nil {
			return KeySignature{}, err
		}
		return KeySignature{Root: NormalizePitchClass(fields[0]), Mode: mode}, nil
	}
	return KeySignature{}, fmt.Errorf("%w: %q", ErrUnknownKey, s)
}
