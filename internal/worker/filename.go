package worker

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/ewilliams-labs/loopmatch/internal/core/domain"
)

var bpmPattern = regexp.MustCompile(`(?i)(\d{2,3})\s*bpm|bpm\s*(\d{2,3})`)

const (
	minFilenameBPM = 50
	maxFilenameBPM = 250
)

// ParseFilename guesses tempo and key from a loop's filename, e.g.
// "Afro_Perc_Loop_122bpm_Am.wav" gives 122 and "Am". Zero and "" mean the
// name did not say.
func ParseFilename(name string) (float64, string) {
	base := filepath.Base(name)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	var bpm float64
	if m := bpmPattern.FindStringSubmatch(base); m != nil {
		digits := m[1]
		if digits == "" {
			digits = m[2]
		}
		if n, err := strconv.Atoi(digits); err == nil && n > minFilenameBPM && n <= maxFilenameBPM {
			bpm = float64(n)
		}
	}

	var label, fallback string
	pieces := splitName(base)
	for i, piece := range pieces {
		// bare numbers are tempos unless they name an 808
		if n, err := strconv.Atoi(piece); err == nil {
			if bpm == 0 && n > minFilenameBPM && n <= maxFilenameBPM && n != 808 {
				bpm = float64(n)
			}
			continue
		}
		if label != "" || len(piece) > 6 || !startsWithRoot(piece) {
			continue
		}
		k, ok := domain.ParseKey(piece)
		if !ok {
			continue
		}
		// "Bb minor" arrives as two pieces
		if i+1 < len(pieces) && len(piece) <= 2 {
			if joined, ok := domain.ParseKey(piece + " " + pieces[i+1]); ok && isScaleWord(pieces[i+1]) {
				label = joined.String()
				continue
			}
		}
		if len(piece) == 1 {
			// a lone letter is weak evidence; keep looking for "Am" and friends
			if fallback == "" {
				fallback = k.String()
			}
			continue
		}
		label = k.String()
	}
	if label == "" {
		label = fallback
	}
	return bpm, label
}

func splitName(base string) []string {
	return strings.FieldsFunc(base, func(r rune) bool {
		return r == '-' || r == '_' || r == '.' || r == '(' || r == ')' || unicode.IsSpace(r)
	})
}

func isScaleWord(s string) bool {
	switch strings.ToLower(s) {
	case "major", "maj", "minor", "min":
		return true
	}
	return false
}

// startsWithRoot requires an upper-case note letter so words like "bass"
// and "ambient" are never read as keys.
func startsWithRoot(piece string) bool {
	return piece != "" && strings.ContainsRune("ABCDEFG", rune(piece[0]))
}
