package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ewilliams-labs/loopmatch/internal/core/domain"
)

func filenames(recs []domain.Recommendation) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Item.Filename
	}
	return out
}

func TestRank(t *testing.T) {
	catalog := []domain.CatalogItem{
		{ID: "1", Filename: "generic.wav", BPM: 121, Key: "C"},     // 0
		{ID: "2", Filename: "Perc Loop.wav", BPM: 120, Key: "C"},   // 95
		{ID: "3", Filename: "Kick 1.wav", BPM: 60, Key: "Am"},      // 100
		{ID: "4", Filename: "Shaker Top.wav", BPM: 120, Key: "Em"}, // 100 (capped)
		{ID: "5", Filename: "Kick 2.wav", BPM: 60, Key: "Am"},      // 100
		{ID: "6", Filename: "Snare Roll.wav", BPM: 240, Key: "Am"}, // 93
		{ID: "7", Filename: "Kick 3.wav", BPM: 240, Key: "Am"},     // 100
	}

	recs := Rank(120, "Am", catalog)
	require.Len(t, recs, MaxRecommendations)
	assert.Equal(t, []string{"Kick 1.wav", "Shaker Top.wav", "Kick 2.wav", "Kick 3.wav", "Perc Loop.wav"}, filenames(recs))
	assert.Equal(t, 95.0, recs[4].Score)

	for i := 1; i < len(recs); i++ {
		assert.GreaterOrEqual(t, recs[i-1].Score, recs[i].Score)
	}
}

func TestRankExcludesZeroScores(t *testing.T) {
	catalog := []domain.CatalogItem{
		{Filename: "generic.wav", BPM: 121, Key: "C"},
		{Filename: "Deep Kick Loop.wav", BPM: 60, Key: "Am"},
		{Filename: "pad.wav", BPM: 90, Key: "F#"},
	}

	recs := Rank(120, "Am", catalog)
	require.Len(t, recs, 1)
	assert.Equal(t, "Deep Kick Loop.wav", recs[0].Item.Filename)
}

func TestRankEmpty(t *testing.T) {
	assert.Empty(t, Rank(120, "Am", nil))
	assert.Empty(t, Rank(120, "C", []domain.CatalogItem{{Filename: "generic.wav", BPM: 121, Key: "C"}}))
}

func TestRankDoesNotMutateCatalog(t *testing.T) {
	catalog := []domain.CatalogItem{
		{Filename: "Perc Loop.wav", BPM: 120, Key: "C"},
		{Filename: "Kick 1.wav", BPM: 60, Key: "Am"},
	}
	before := append([]domain.CatalogItem(nil), catalog...)
	_ = Rank(120, "Am", catalog)
	assert.Equal(t, before, catalog)
}
