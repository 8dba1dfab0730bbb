package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ewilliams-labs/loopmatch/internal/core/domain"
)

func newTestAdapter(t *testing.T) *Adapter {
	t.Helper()
	a, err := NewAdapter(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func seed() []domain.CatalogItem {
	return []domain.CatalogItem{
		{ID: "b", Filename: "Kick Loop 120 Am.wav", Name: "Kick Loop", BPM: 120, Key: "Am", Category: "kick", URL: "/loops/kick.wav", DrumType: "Kick Loop"},
		{ID: "a", Filename: "Shaker Top.wav", URL: "/loops/shaker.wav"},
	}
}

func TestAdapter_ListSamples(t *testing.T) {
	a := newTestAdapter(t)

	items, err := a.ListSamples(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)

	require.NoError(t, a.SaveSamples(context.Background(), seed()))
	items, err = a.ListSamples(context.Background())
	require.NoError(t, err)
	assert.Equal(t, seed(), items, "insertion order, nulls read back as zero values")
}

func TestAdapter_GetSample(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr error
		want    string
	}{
		{name: "found", id: "b", want: "Kick Loop 120 Am.wav"},
		{name: "not found", id: "missing", wantErr: domain.ErrNotFound},
	}

	a := newTestAdapter(t)
	require.NoError(t, a.SaveSamples(context.Background(), seed()))

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got, err := a.GetSample(context.Background(), tc.id)
			if tc.wantErr != nil {
				assert.True(t, errors.Is(err, tc.wantErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.Filename)
		})
	}
}

func TestAdapter_SaveSamplesUpsertKeepsKnownFeatures(t *testing.T) {
	a := newTestAdapter(t)
	require.NoError(t, a.SaveSamples(context.Background(), seed()))

	// rescan without bpm/key must not erase them
	require.NoError(t, a.SaveSamples(context.Background(), []domain.CatalogItem{
		{ID: "b", Filename: "Kick Loop 120 Am.wav", Name: "Kick Loop (renamed)", URL: "/loops/kick.wav"},
	}))

	got, err := a.GetSample(context.Background(), "b")
	require.NoError(t, err)
	assert.Equal(t, "Kick Loop (renamed)", got.Name)
	assert.Equal(t, 120.0, got.BPM)
	assert.Equal(t, "Am", got.Key)

	items, err := a.ListSamples(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestAdapter_SaveSamplesRequiresID(t *testing.T) {
	a := newTestAdapter(t)
	err := a.SaveSamples(context.Background(), []domain.CatalogItem{{Filename: "x.wav"}})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	items, err := a.ListSamples(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items, "failed batch is rolled back")
}

func TestAdapter_UpdateSampleFeatures(t *testing.T) {
	a := newTestAdapter(t)
	require.NoError(t, a.SaveSamples(context.Background(), seed()))

	require.NoError(t, a.UpdateSampleFeatures(context.Background(), "a", 98, "F#m"))
	got, err := a.GetSample(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, 98.0, got.BPM)
	assert.Equal(t, "F#m", got.Key)

	require.NoError(t, a.UpdateSampleFeatures(context.Background(), "a", 0, "Gm"))
	got, err = a.GetSample(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, 98.0, got.BPM)
	assert.Equal(t, "Gm", got.Key)

	err = a.UpdateSampleFeatures(context.Background(), "missing", 120, "C")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestAdapter_ReopenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	a, err := NewAdapter(path)
	require.NoError(t, err)
	require.NoError(t, a.SaveSamples(context.Background(), seed()))
	require.NoError(t, a.Close())

	// migration is idempotent
	b, err := NewAdapter(path)
	require.NoError(t, err)
	defer b.Close()
	items, err := b.ListSamples(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 2)
}
