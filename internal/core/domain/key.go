package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/music-theory.v0/key"
	"gopkg.in/music-theory.v0/note"
)

// PitchClass is a note name independent of octave, C = 0 through B = 11.
type PitchClass int

var pitchNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

func (p PitchClass) String() string {
	return pitchNames[p.norm()]
}

func (p PitchClass) norm() int {
	return ((int(p) % 12) + 12) % 12
}

// Scale is the mode of a key. Only major and minor are modelled.
type Scale string

const (
	Major Scale = "major"
	Minor Scale = "minor"
)

// Key is a tonic plus scale.
type Key struct {
	Tonic PitchClass
	Scale Scale
}

// String renders the short catalog form: "C", "Am", "F#m".
func (k Key) String() string {
	if k.Scale == Minor {
		return k.Tonic.String() + "m"
	}
	return k.Tonic.String()
}

// Long renders "A minor".
func (k Key) Long() string {
	return k.Tonic.String() + " " + string(k.Scale)
}

// Title renders "A Minor", the form used by the search filter options.
func (k Key) Title() string {
	if k.Scale == Minor {
		return k.Tonic.String() + " Minor"
	}
	return k.Tonic.String() + " Major"
}

// Relative returns the relative major of a minor key and vice versa.
func (k Key) Relative() Key {
	if k.Scale == Minor {
		return Key{Tonic: PitchClass((k.Tonic.norm() + 3) % 12), Scale: Major}
	}
	return Key{Tonic: PitchClass((k.Tonic.norm() + 9) % 12), Scale: Minor}
}

// Transpose shifts the tonic by n semitones, keeping the scale.
func (k Key) Transpose(n int) Key {
	return Key{Tonic: PitchClass(((k.Tonic.norm()+n)%12 + 12) % 12), Scale: k.Scale}
}

// ParseKey reads labels such as "Am", "A minor", "F#m", "Bb", "c maj",
// "Eb Minor". It reports false for anything it cannot place.
func ParseKey(label string) (Key, bool) {
	s := strings.TrimSpace(label)
	if s == "" {
		return Key{}, false
	}
	letter := strings.ToUpper(s[:1])
	if !strings.Contains("ABCDEFG", letter) {
		return Key{}, false
	}
	rest := s[1:]
	accidental := ""
	switch {
	case strings.HasPrefix(rest, "#"):
		accidental, rest = "#", rest[1:]
	case strings.HasPrefix(rest, "♯"):
		accidental, rest = "#", strings.TrimPrefix(rest, "♯")
	case strings.HasPrefix(rest, "b"):
		accidental, rest = "b", rest[1:]
	case strings.HasPrefix(rest, "♭"):
		accidental, rest = "b", strings.TrimPrefix(rest, "♭")
	default:
		trimmed := strings.TrimSpace(rest)
		lower := strings.ToLower(trimmed)
		if strings.HasPrefix(lower, "sharp") {
			accidental, rest = "#", trimmed[len("sharp"):]
		} else if strings.HasPrefix(lower, "flat") {
			accidental, rest = "b", trimmed[len("flat"):]
		}
	}

	scale, ok := parseScale(strings.TrimSpace(rest))
	if !ok {
		return Key{}, false
	}

	mode := "major"
	if scale == Minor {
		mode = "minor"
	}
	parsed := key.Of(letter + accidental + " " + mode)
	if parsed.Root == note.Nil {
		return Key{}, false
	}
	k := Key{Tonic: PitchClass(int(parsed.Root) - 1), Scale: Major}
	if parsed.Mode == key.Minor {
		k.Scale = Minor
	}
	return k, true
}

func parseScale(s string) (Scale, bool) {
	switch strings.ToLower(s) {
	case "", "maj", "major":
		return Major, true
	case "m", "min", "minor":
		return Minor, true
	}
	return "", false
}

// MustParseKey panics on an unparseable label. Test and table helper.
func MustParseKey(label string) Key {
	k, ok := ParseKey(label)
	if !ok {
		panic(fmt.Sprintf("domain: bad key label %q", label))
	}
	return k
}

// KeyEstimate is a detected key with its strength in [0, 1].
type KeyEstimate struct {
	Key
	Strength float64
}

type keyEstimateJSON struct {
	Tonic    string  `json:"tonic"`
	Scale    Scale   `json:"scale"`
	Strength float64 `json:"strength"`
}

func (k KeyEstimate) MarshalJSON() ([]byte, error) {
	return json.Marshal(keyEstimateJSON{Tonic: k.Tonic.String(), Scale: k.Scale, Strength: k.Strength})
}

func (k *KeyEstimate) UnmarshalJSON(data []byte) error {
	var raw keyEstimateJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, ok := ParseKey(raw.Tonic + " " + string(raw.Scale))
	if !ok {
		return fmt.Errorf("domain: bad key %q %q", raw.Tonic, raw.Scale)
	}
	k.Key = parsed
	k.Strength = raw.Strength
	return nil
}
