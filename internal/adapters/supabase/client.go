// Package supabase reads the loop catalog from a Supabase (PostgREST) table.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/ewilliams-labs/loopmatch/internal/core/domain"
	"github.com/ewilliams-labs/loopmatch/internal/core/ports"
)

const (
	requestTimeout = 15 * time.Second
	retryBudget    = 30 * time.Second
	firstBackoff   = 250 * time.Millisecond
	selectColumns  = "id,filename,name,bpm,key,category,audio_url,drum_type"
)

// Client is a read-only catalog over PostgREST.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	table      string
	budget     time.Duration
	backoff    time.Duration
	log        zerolog.Logger
}

// compile-time interface assertion
var _ ports.CatalogRepository = (*Client)(nil)

// NewClient builds a Client for the project at baseURL. The key goes out both
// as the apikey header and as the bearer token.
func NewClient(baseURL, apiKey, table string, log zerolog.Logger) *Client {
	httpClient := oauth2.NewClient(context.Background(), oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: apiKey,
		TokenType:   "Bearer",
	}))
	httpClient.Timeout = requestTimeout

	if table == "" {
		table = "samples"
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		table:      table,
		budget:     retryBudget,
		backoff:    firstBackoff,
		log:        log.With().Str("component", "supabase").Logger(),
	}
}

// sampleRow is the PostgREST wire shape. Ids may be text or bigint
// depending on how the table was created.
type sampleRow struct {
	ID       flexibleID `json:"id"`
	Filename string     `json:"filename"`
	Name     *string    `json:"name"`
	BPM      *float64   `json:"bpm"`
	Key      *string    `json:"key"`
	Category *string    `json:"category"`
	AudioURL *string    `json:"audio_url"`
	DrumType *string    `json:"drum_type"`
}

type flexibleID string

func (f *flexibleID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*f = flexibleID(n.String())
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (r sampleRow) toDomain() domain.CatalogItem {
	item := domain.CatalogItem{
		ID:       string(r.ID),
		Filename: r.Filename,
		Name:     deref(r.Name),
		Key:      deref(r.Key),
		Category: deref(r.Category),
		URL:      deref(r.AudioURL),
		DrumType: deref(r.DrumType),
	}
	if r.BPM != nil {
		item.BPM = *r.BPM
	}
	return item
}

// ListSamples fetches the whole table ordered by id.
func (c *Client) ListSamples(ctx context.Context) ([]domain.CatalogItem, error) {
	q := url.Values{}
	q.Set("select", selectColumns)
	q.Set("order", "id.asc")
	endpoint := fmt.Sprintf("%s/rest/v1/%s?%s", c.baseURL, url.PathEscape(c.table), q.Encode())

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.budget)
		defer cancel()
	}

	resp, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.log.Warn().Int("status", resp.StatusCode).Str("body", string(snippet)).Msg("catalog request rejected")
		return nil, fmt.Errorf("supabase adapter: status %d", resp.StatusCode)
	}

	var rows []sampleRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("supabase adapter: decode catalog: %w", err)
	}

	items := make([]domain.CatalogItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, r.toDomain())
	}
	c.log.Debug().Int("samples", len(items)).Msg("fetched catalog")
	return items, nil
}

// get issues a GET, repeating it on transport errors, 429 and 5xx until a
// response is final or the next wait would run past ctx's deadline. The
// backoff doubles each round; a Retry-After in seconds takes precedence.
func (c *Client) get(ctx context.Context, endpoint string) (*http.Response, error) {
	wait := c.backoff
	for attempt := 1; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("supabase adapter: %w", err)
		}
		req.Header.Set("apikey", c.apiKey)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if ctxErr := ctx.Err(); ctxErr != nil {
			if resp != nil {
				_ = resp.Body.Close()
			}
			return nil, fmt.Errorf("supabase adapter: catalog request abandoned after %d attempt(s): %w", attempt, ctxErr)
		}

		var failure error
		switch {
		case err != nil:
			failure = err
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
			failure = fmt.Errorf("status %d", resp.StatusCode)
			if secs, convErr := strconv.Atoi(resp.Header.Get("Retry-After")); convErr == nil && secs > 0 {
				wait = time.Duration(secs) * time.Second
			}
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			_ = resp.Body.Close()
		default:
			return resp, nil
		}

		if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) <= wait {
			return nil, fmt.Errorf("supabase adapter: catalog unavailable after %d attempt(s): %w", attempt, failure)
		}
		c.log.Warn().Err(failure).Int("attempt", attempt).Dur("wait", wait).Msg("catalog request failed, retrying")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("supabase adapter: catalog request abandoned after %d attempt(s): %w", attempt, ctx.Err())
		case <-timer.C:
		}
		wait *= 2
	}
}
