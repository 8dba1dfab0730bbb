package badgercache

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ewilliams-labs/loopmatch/internal/core/domain"
)

func sampleAnalysis() domain.Analysis {
	bpm := 124.0
	return domain.Analysis{
		Filename: "loop.wav",
		Size:     20480,
		Duration: 4.2,
		Engine:   domain.EnginePrimary,
		MoodTag:  "dance",
		Result: domain.DetectionResult{
			BPM:          &bpm,
			Alternatives: domain.TempoAlternatives(bpm, 0.8),
			Beats:        []float64{0.25, 0.734},
			Confidence:   0.8,
			Key:          domain.KeyEstimate{Key: domain.MustParseKey("F#m"), Strength: 0.7},
			Danceability: 0.9,
			Energy:       0.75,
			Valence:      0.5,
			Moods:        domain.Moods{Happy: 0.4, Energetic: 0.75},
			MFCC:         &domain.Timbre{Mean: []float64{1, 2}, Std: []float64{0.1, 0.2}},
		},
	}
}

func openMemory(t *testing.T, ttl time.Duration) *Cache {
	t.Helper()
	c, err := Open("", ttl, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCacheRoundTrip(t *testing.T) {
	c := openMemory(t, time.Hour)
	ctx := context.Background()
	audio := []byte("some uploaded bytes")

	_, ok, err := c.Get(ctx, audio)
	require.NoError(t, err)
	assert.False(t, ok)

	want := sampleAnalysis()
	require.NoError(t, c.Put(ctx, audio, want))

	got, ok, err := c.Get(ctx, audio)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)

	_, ok, err = c.Get(ctx, []byte("some uploaded bytez"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCachePersistsOnDisk(t *testing.T) {
	dir := t.TempDir()
	audio := []byte{1, 2, 3, 4}

	c, err := Open(dir, 0, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, c.Put(context.Background(), audio, sampleAnalysis()))
	require.NoError(t, c.Close())

	c, err = Open(dir, 0, zerolog.Nop())
	require.NoError(t, err)
	defer c.Close()
	got, ok, err := c.Get(context.Background(), audio)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "F#m", got.Result.Key.String())
}

func TestCacheKeyIncludesLength(t *testing.T) {
	a, b := key([]byte("abc")), key([]byte("abcd"))
	assert.NotEqual(t, a, b)
	assert.Equal(t, key([]byte("abc")), a)
	assert.Len(t, a, len(keyPrefix)+16)
}

func TestCacheHonoursContext(t *testing.T) {
	c := openMemory(t, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, c.Put(ctx, []byte("x"), sampleAnalysis()), context.Canceled)
	_, _, err := c.Get(ctx, []byte("x"))
	assert.ErrorIs(t, err, context.Canceled)
}
