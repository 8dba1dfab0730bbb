// Package scoring rates catalog loops against a detected tempo and key and
// ranks the catalog by that rating.
package scoring

import (
	"math"
	"strings"

	"github.com/ewilliams-labs/loopmatch/internal/core/domain"
)

const (
	// MaxScore caps the summed components.
	MaxScore = 100.0
	// Threshold is the minimum score worth showing; anything below is zeroed.
	Threshold = 75.0

	styleBase = 15.0
)

type tempoBand struct {
	lo, hi float64
	points float64
}

// tempoBands are checked in order against item/detected BPM. The first band
// containing the ratio wins, so the near-unison band shadows the small
// absolute-difference bonuses below.
var tempoBands = []tempoBand{
	{0.98, 1.02, 15},
	{0.50, 0.52, 25},
	{1.98, 2.02, 25},
	{0.33, 0.35, 20},
	{2.98, 3.02, 20},
}

// TempoScore rates how well itemBPM locks to detectedBPM. Unknown tempos
// (zero or negative) score nothing.
func TempoScore(detectedBPM, itemBPM float64) float64 {
	if detectedBPM <= 0 || itemBPM <= 0 {
		return 0
	}
	ratio := itemBPM / detectedBPM
	for _, b := range tempoBands {
		if ratio >= b.lo && ratio <= b.hi {
			return b.points
		}
	}

	diff := math.Abs(itemBPM - detectedBPM)
	switch {
	case diff <= 5:
		return 18
	case diff <= 10:
		return 12
	case diff <= 20:
		return 8
	}
	return math.Max(0, 15-diff/2)
}

type substringRule struct {
	needles []string
	points  float64
}

// rhythmRoles maps filename fragments to how well the loop layers over a
// full groove. First match wins.
var rhythmRoles = []substringRule{
	{[]string{"fill", "roll"}, 20},
	{[]string{"kick", "bass"}, 25},
	{[]string{"shaker", "hi", "perc"}, 30},
	{[]string{"full", "complete"}, 15},
	{[]string{"top", "melody"}, 22},
}

// frequencyRoles reward loops that occupy a distinct band. First match wins.
var frequencyRoles = []substringRule{
	{[]string{"kick", "bass", "low"}, 10},
	{[]string{"hi", "cymbal", "shaker"}, 12},
	{[]string{"mid", "tom", "snare"}, 8},
}

// houseStyles are the label/producer tags of the in-house loop packs.
var houseStyles = []string{"afro", "amapiano", "gqom", "log drum"}

type pairing struct {
	instrument string
	keys       []string
}

// traditionalPairings lists instruments and the keys their loops are
// commonly tuned to.
var traditionalPairings = []pairing{
	{"djembe", []string{"Am", "Dm", "Em"}},
	{"talking drum", []string{"C", "F", "G"}},
	{"shekere", []string{"Am", "C"}},
	{"kalimba", []string{"C", "G", "Am"}},
	{"udu", []string{"Dm", "Gm"}},
	{"conga", []string{"Am", "Em", "Dm"}},
	{"bongo", []string{"G", "D", "Em"}},
	{"marimba", []string{"C", "F", "Am"}},
	{"kora", []string{"F", "C", "Dm"}},
}

func firstMatch(name string, rules []substringRule) float64 {
	for _, r := range rules {
		for _, n := range r.needles {
			if strings.Contains(name, n) {
				return r.points
			}
		}
	}
	return 0
}

// RhythmScore rates the loop's rhythmic role from its filename.
func RhythmScore(filename string) float64 {
	return firstMatch(strings.ToLower(filename), rhythmRoles)
}

// TimbreScore adds a house-style bonus and a frequency-band bonus.
func TimbreScore(filename string) float64 {
	name := strings.ToLower(filename)
	var score float64
	for _, s := range houseStyles {
		if strings.Contains(name, s) {
			score += 15
			break
		}
	}
	return score + firstMatch(name, frequencyRoles)
}

// StyleScore is a flat base plus a bonus when the filename names a
// traditional instrument usually played in the detected key.
func StyleScore(filename, detectedKey string) float64 {
	d, ok := domain.ParseKey(detectedKey)
	if !ok {
		return styleBase
	}
	name := strings.ToLower(filename)
	for _, p := range traditionalPairings {
		if !strings.Contains(name, p.instrument) {
			continue
		}
		for _, label := range p.keys {
			if domain.MustParseKey(label) == d {
				return styleBase + 10
			}
		}
	}
	return styleBase
}

// Score sums the component ratings for one catalog item, caps the total at
// MaxScore and zeroes anything under Threshold. It depends on nothing but
// its arguments.
func Score(detectedBPM float64, detectedKey string, item domain.CatalogItem) float64 {
	total := KeyScore(detectedKey, item.Key) +
		TempoScore(detectedBPM, item.BPM) +
		RhythmScore(item.Filename) +
		TimbreScore(item.Filename) +
		StyleScore(item.Filename, detectedKey)
	if total > MaxScore {
		total = MaxScore
	}
	if total < Threshold {
		return 0
	}
	return total
}
