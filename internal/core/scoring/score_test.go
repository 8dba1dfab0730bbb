package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ewilliams-labs/loopmatch/internal/core/domain"
)

func TestTempoScore(t *testing.T) {
	tests := []struct {
		name     string
		detected float64
		item     float64
		want     float64
	}{
		{"unison", 120, 120, 15},
		{"unison lower edge", 100, 98, 15},
		{"unison upper edge", 100, 102, 15},
		{"near unison shadows small diff", 120, 121, 15},
		{"half time", 120, 60, 25},
		{"half time upper edge", 100, 51, 25},
		{"double time", 100, 200, 25},
		{"third time", 90, 30, 20},
		{"triple time", 40, 120, 20},
		{"diff within 5", 100, 104, 18},
		{"diff exactly 5", 100, 95, 18},
		{"diff within 10", 100, 108, 12},
		{"diff within 20", 100, 115, 8},
		{"diff 24 decays", 100, 124, 3},
		{"diff 30 floors at zero", 100, 130, 0},
		{"far apart", 90, 170, 0},
		{"unknown item tempo", 120, 0, 0},
		{"unknown detected tempo", 0, 120, 0},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, TempoScore(tc.detected, tc.item), 1e-9)
		})
	}
}

func TestKeyScore(t *testing.T) {
	tests := []struct {
		detected string
		item     string
		want     float64
	}{
		{"Am", "Am", 25},
		{"Am", "A minor", 25},
		{"Am", "C", 35},
		{"C", "Am", 35},
		{"Am", "Em", 30},
		{"Am", "Dm", 28},
		{"Am", "G", 22},
		{"Am", "A", 20},
		{"Am", "Bm", 18},
		{"C", "G", 30},
		{"C", "F", 28},
		{"C", "Em", 22},
		{"C", "Cm", 20},
		{"C", "D", 18},
		{"B", "F#", 30},
		{"Am", "F#", 10},
		{"Am", "", 10},
		{"", "Am", 10},
		{"Am", "not a key", 10},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.detected+"_vs_"+tc.item, func(t *testing.T) {
			assert.Equal(t, tc.want, KeyScore(tc.detected, tc.item))
		})
	}
}

func TestHarmonicTableCoversEveryKey(t *testing.T) {
	assert.Len(t, harmonicTable, 24)
	for k, rel := range harmonicTable {
		assert.Len(t, rel, len(relations), "key %s", k)
		for _, r := range rel {
			assert.NotEqual(t, k, r.key)
			assert.GreaterOrEqual(t, r.bonus, 18.0)
			assert.LessOrEqual(t, r.bonus, 35.0)
		}
	}
}

func TestCamelotRoundTrip(t *testing.T) {
	assert.Equal(t, camelot{Num: 8, Minor: false}, toCamelot(domain.MustParseKey("C")))
	assert.Equal(t, camelot{Num: 8, Minor: true}, toCamelot(domain.MustParseKey("Am")))
	assert.Equal(t, camelot{Num: 1, Minor: false}, toCamelot(domain.MustParseKey("B")))
	assert.Equal(t, camelot{Num: 12, Minor: true}, toCamelot(domain.MustParseKey("C#m")))
	for k := range harmonicTable {
		assert.Equal(t, k, fromCamelot(toCamelot(k)))
	}
}

func TestRhythmScore(t *testing.T) {
	assert.Equal(t, 20.0, RhythmScore("Snare Roll.wav"))
	assert.Equal(t, 20.0, RhythmScore("Kick Fill.wav"))
	assert.Equal(t, 25.0, RhythmScore("Deep Kick Loop.wav"))
	assert.Equal(t, 30.0, RhythmScore("Shaker Top.wav"))
	assert.Equal(t, 30.0, RhythmScore("PERC_loop.wav"))
	assert.Equal(t, 15.0, RhythmScore("Full Groove.wav"))
	assert.Equal(t, 22.0, RhythmScore("melody.wav"))
	assert.Equal(t, 0.0, RhythmScore("conga.wav"))
}

func TestTimbreScore(t *testing.T) {
	assert.Equal(t, 27.0, TimbreScore("Afro Shaker.wav"))
	assert.Equal(t, 10.0, TimbreScore("Low Tom.wav"))
	assert.Equal(t, 8.0, TimbreScore("snare.wav"))
	assert.Equal(t, 15.0, TimbreScore("amapiano log drum.wav"))
	assert.Equal(t, 0.0, TimbreScore("generic.wav"))
}

func TestStyleScore(t *testing.T) {
	assert.Equal(t, 25.0, StyleScore("Djembe Groove.wav", "Am"))
	assert.Equal(t, 25.0, StyleScore("talking drum 01.wav", "G"))
	assert.Equal(t, 15.0, StyleScore("Djembe Groove.wav", "C"))
	assert.Equal(t, 15.0, StyleScore("generic.wav", "Am"))
	assert.Equal(t, 15.0, StyleScore("djembe.wav", ""))
}

func TestScore(t *testing.T) {
	tests := []struct {
		name string
		bpm  float64
		key  string
		item domain.CatalogItem
		want float64
	}{
		{
			// key 25 + half time 25 + kick role 25 + style 15 makes 90; the
			// low band +10 that "kick" also earns lifts it to 100
			name: "half time kick in the same key",
			bpm:  120,
			key:  "Am",
			item: domain.CatalogItem{Filename: "Deep Kick Loop.wav", BPM: 60, Key: "Am"},
			want: 100,
		},
		{
			// key 25 + unison 15 + style 15 = 55, under the threshold
			name: "plain loop at near tempo is zeroed",
			bpm:  120,
			key:  "C",
			item: domain.CatalogItem{Filename: "generic.wav", BPM: 121, Key: "C"},
			want: 0,
		},
		{
			// relative 35 + unison 15 + perc 30 + style 15
			name: "relative key percussion",
			bpm:  120,
			key:  "Am",
			item: domain.CatalogItem{Filename: "Perc Loop.wav", BPM: 120, Key: "C"},
			want: 95,
		},
		{
			name: "capped at the maximum",
			bpm:  120,
			key:  "Am",
			item: domain.CatalogItem{Filename: "Afro Djembe Shaker.wav", BPM: 60, Key: "C"},
			want: 100,
		},
		{
			// 10 + 0 + 0 + 0 + 15
			name: "nothing known",
			bpm:  0,
			key:  "",
			item: domain.CatalogItem{Filename: "untitled.wav"},
			want: 0,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got := Score(tc.bpm, tc.key, tc.item)
			assert.Equal(t, tc.want, got)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, MaxScore)
			if got > 0 {
				assert.GreaterOrEqual(t, got, Threshold)
			}
		})
	}
}

func TestScoreIsPure(t *testing.T) {
	item := domain.CatalogItem{Filename: "Shaker Top.wav", BPM: 118, Key: "Em"}
	first := Score(120, "Am", item)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Score(120, "Am", item))
	}
}
