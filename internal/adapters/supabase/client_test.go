package supabase

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ewilliams-labs/loopmatch/internal/core/domain"
)

func newTestClient(url string) *Client {
	c := NewClient(url, "anon-key", "", zerolog.Nop())
	c.backoff = time.Millisecond
	return c
}

func TestClient_ListSamples(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/samples", r.URL.Path)
		assert.Equal(t, selectColumns, r.URL.Query().Get("select"))
		assert.Equal(t, "id.asc", r.URL.Query().Get("order"))
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer anon-key", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id": 7, "filename": "Kick Loop.wav", "name": "Kick Loop", "bpm": 120, "key": "Am", "category": "kick", "audio_url": "https://cdn.test/kick.wav", "drum_type": "Kick Loop"},
			{"id": "uuid-1", "filename": "Shaker.wav", "name": null, "bpm": null, "key": null, "category": null, "audio_url": null, "drum_type": null}
		]`))
	}))
	defer ts.Close()

	items, err := newTestClient(ts.URL).ListSamples(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.CatalogItem{
		{ID: "7", Filename: "Kick Loop.wav", Name: "Kick Loop", BPM: 120, Key: "Am", Category: "kick", URL: "https://cdn.test/kick.wav", DrumType: "Kick Loop"},
		{ID: "uuid-1", Filename: "Shaker.wav"},
	}, items)
}

func TestClient_ListSamplesRetries(t *testing.T) {
	tests := []struct {
		name         string
		statuses     []int
		retryAfter   string
		timeout      time.Duration
		wantErr      string
		wantAttempts int32
	}{
		{
			name:         "retries on 503 then succeeds",
			statuses:     []int{http.StatusServiceUnavailable, http.StatusServiceUnavailable, http.StatusOK},
			timeout:      5 * time.Second,
			wantAttempts: 3,
		},
		{
			name:         "does not retry 401",
			statuses:     []int{http.StatusUnauthorized},
			timeout:      5 * time.Second,
			wantErr:      "status 401",
			wantAttempts: 1,
		},
		{
			name:         "gives up when Retry-After outlasts the deadline",
			statuses:     []int{http.StatusTooManyRequests},
			retryAfter:   "60",
			timeout:      2 * time.Second,
			wantErr:      "after 1 attempt(s): status 429",
			wantAttempts: 1,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			var attempts int32
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				n := atomic.AddInt32(&attempts, 1)
				status := tc.statuses[len(tc.statuses)-1]
				if int(n) <= len(tc.statuses) {
					status = tc.statuses[n-1]
				}
				if tc.retryAfter != "" {
					w.Header().Set("Retry-After", tc.retryAfter)
				}
				w.WriteHeader(status)
				if status == http.StatusOK {
					_, _ = w.Write([]byte(`[]`))
				}
			}))
			defer ts.Close()

			ctx, cancel := context.WithTimeout(context.Background(), tc.timeout)
			defer cancel()
			items, err := newTestClient(ts.URL).ListSamples(ctx)
			if tc.wantErr != "" {
				assert.ErrorContains(t, err, tc.wantErr)
			} else {
				require.NoError(t, err)
				assert.Empty(t, items)
			}
			assert.Equal(t, tc.wantAttempts, atomic.LoadInt32(&attempts))
		})
	}
}

func TestClient_ListSamplesStopsAtDeadline(t *testing.T) {
	var attempts int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	c := newTestClient(ts.URL)
	c.backoff = 10 * time.Millisecond
	c.budget = 300 * time.Millisecond

	start := time.Now()
	_, err := c.ListSamples(context.Background())
	assert.ErrorContains(t, err, "status 502")
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Greater(t, atomic.LoadInt32(&attempts), int32(1))
}

func TestClient_ListSamplesCanceled(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestClient(ts.URL).ListSamples(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_ListSamplesBadPayload(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message": "not a list"}`))
	}))
	defer ts.Close()

	_, err := newTestClient(ts.URL).ListSamples(context.Background())
	assert.ErrorContains(t, err, "decode catalog")
}
