package scoring

import (
	"sort"

	"github.com/ewilliams-labs/loopmatch/internal/core/domain"
)

// MaxRecommendations bounds Rank's output.
const MaxRecommendations = 5

// Rank scores every catalog item, drops the ones that scored zero, and
// returns at most MaxRecommendations ordered by score. Equal scores keep
// catalog order.
func Rank(detectedBPM float64, detectedKey string, catalog []domain.CatalogItem) []domain.Recommendation {
	recs := make([]domain.Recommendation, 0, len(catalog))
	for _, item := range catalog {
		s := Score(detectedBPM, detectedKey, item)
		if s <= 0 {
			continue
		}
		recs = append(recs, domain.Recommendation{Item: item, Score: s})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Score > recs[j].Score
	})

	if len(recs) > MaxRecommendations {
		recs = recs[:MaxRecommendations]
	}
	return recs
}
