package music

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSearchParsesResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("term"); got != "daft punk" {
			t.Errorf("term = %q, want %q", got, "daft punk")
		}
		if got := r.URL.Query().Get("entity"); got != "song" {
			t.Errorf("entity = %q, want song", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"resultCount": 2,
			"results": [
				{"trackName":"One More Time","artistName":"Daft Punk","collectionName":"Discovery","trackViewUrl":"https://example.com/1","trackTimeMillis":320357},
				{"trackName":"Around the World","artistName":"Daft Punk","collectionName":"Homework","trackViewUrl":"https://example.com/2","trackTimeMillis":429533}
			]
		}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	tracks, err := c.Search(context.Background(), "daft punk", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(tracks) != 2 {
		t.Fatalf("got %d tracks, want 2", len(tracks))
	}
	first := tracks[0]
	if first.Title != "One More Time" || first.Artist != "Daft Punk" || first.Album != "Discovery" {
		t.Errorf("unexpected first track: %+v", first)
	}
	if want := 320357 * time.Millisecond; first.Duration != want {
		t.Errorf("duration = %v, want %v", first.Duration, want)
	}
}

func TestSearchNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"resultCount":0,"results":[]}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).Search(context.Background(), "zzzzzz", 1)
	if !errors.Is(err, ErrNoResults) {
		t.Fatalf("err = %v, want ErrNoResults", err)
	}
}

func TestSearchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := New(srv.URL).Search(context.Background(), "anything", 1)
	if err == nil {
		t.Fatal("expected error for non-200 response")
	}
}
