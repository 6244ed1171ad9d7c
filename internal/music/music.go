// Package music looks up tracks via the iTunes Search API. The API is
// unauthenticated, so the client is always enabled; only network failures
// surface as errors.
package music

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrNoResults is returned when the search matched nothing.
var ErrNoResults = errors.New("music: no results")

const defaultBaseURL = "https://itunes.apple.com"

// Track is one search result.
type Track struct {
	Title    string
	Artist   string
	Album    string
	URL      string
	Duration time.Duration
}

// Client queries the iTunes Search API.
type Client struct {
	baseURL string
	httpc   *http.Client
}

// New constructs a Client. An empty baseURL selects the public endpoint;
// tests point it at a local server.
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: 10 * time.Second},
	}
}

// itunesResult mirrors the subset of the search response we consume.
type itunesResult struct {
	TrackName       string `json:"trackName"`
	ArtistName      string `json:"artistName"`
	CollectionName  string `json:"collectionName"`
	TrackViewURL    string `json:"trackViewUrl"`
	TrackTimeMillis int64  `json:"trackTimeMillis"`
}

// Search returns up to limit tracks matching the query, best match first.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Track, error) {
	if limit <= 0 {
		limit = 1
	}
	q := url.Values{}
	q.Set("term", query)
	q.Set("media", "music")
	q.Set("entity", "song")
	q.Set("limit", fmt.Sprintf("%d", limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("music search: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("music search: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload struct {
		ResultCount int            `json:"resultCount"`
		Results     []itunesResult `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("music search: decode: %w", err)
	}
	if payload.ResultCount == 0 || len(payload.Results) == 0 {
		return nil, ErrNoResults
	}

	tracks := make([]Track, 0, len(payload.Results))
	for _, r := range payload.Results {
		tracks = append(tracks, Track{
			Title:    r.TrackName,
			Artist:   r.ArtistName,
			Album:    r.CollectionName,
			URL:      r.TrackViewURL,
			Duration: time.Duration(r.TrackTimeMillis) * time.Millisecond,
		})
	}
	return tracks, nil
}
