package ports

import (
	"context"

	"github.com/ewilliams-labs/loopmatch/internal/core/domain"
)

// CatalogRepository provides a read-only snapshot of the loop library.
type CatalogRepository interface {
	ListSamples(ctx context.Context) ([]domain.CatalogItem, error)
}

// CatalogStore is a CatalogRepository that can also be written to by the
// batch scanner.
type CatalogStore interface {
	CatalogRepository
	GetSample(ctx context.Context, id string) (domain.CatalogItem, error)
	SaveSamples(ctx context.Context, items []domain.CatalogItem) error
	UpdateSampleFeatures(ctx context.Context, id string, bpm float64, key string) error
}

// AnalysisCache remembers analyses by the content of the uploaded bytes.
type AnalysisCache interface {
	Get(ctx context.Context, audio []byte) (domain.Analysis, bool, error)
	Put(ctx context.Context, audio []byte, a domain.Analysis) error
}
