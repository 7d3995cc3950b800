package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/pwheeler/streamrec/internal/models"
	"github.com/pwheeler/streamrec/internal/observability"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPClient(srv.URL, time.Second, zap.NewNop(), observability.NewNoOpRegistry())
}

func TestTopGames(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/games/top" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("first"); got != "3" {
			t.Errorf("expected first=3, got %s", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"id":"g1","name":"Alpha"},{"id":"g2","name":"Beta"}]}`))
	})

	games, err := c.TopGames(context.Background(), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(games) != 2 {
		t.Fatalf("expected 2 games, got %d", len(games))
	}
	if games[0].ID != "g1" || games[1].Name != "Beta" {
		t.Errorf("unexpected games: %+v", games)
	}
}

func TestTopGamesTruncatesOverLimit(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"id":"g1"},{"id":"g2"},{"id":"g3"},{"id":"g4"}]}`))
	})

	games, err := c.TopGames(context.Background(), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(games) != 3 {
		t.Fatalf("expected truncation to 3, got %d", len(games))
	}
}

func TestSearchByType(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/clips" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("game_id"); got != "g1" {
			t.Errorf("expected game_id=g1, got %s", got)
		}
		_, _ = w.Write([]byte(`{"data":[{"id":"c1","title":"Clip One"},{"id":"c2","title":"Clip Two","game_id":"g1"}]}`))
	})

	items, err := c.SearchByType(context.Background(), "g1", models.ItemTypeClip, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	for _, it := range items {
		if it.Type != models.ItemTypeClip {
			t.Errorf("expected clip type, got %s", it.Type)
		}
		if it.GameID != "g1" {
			t.Errorf("expected game id g1 to be filled in, got %q", it.GameID)
		}
	}
}

func TestSearchGameNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	})

	g, err := c.SearchGame(context.Background(), "nope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g != nil {
		t.Fatalf("expected nil game, got %+v", g)
	}
}

func TestUpstreamErrorsMapToCatalogUnavailable(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}},
		{"garbage body", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"data":`))
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, tc.handler)
			if _, err := c.TopGames(context.Background(), 3); !errors.Is(err, ErrCatalogUnavailable) {
				t.Fatalf("expected ErrCatalogUnavailable, got %v", err)
			}
		})
	}
}

func TestConnectionRefusedMapsToCatalogUnavailable(t *testing.T) {
	c := NewHTTPClient("http://127.0.0.1:1", 100*time.Millisecond, zap.NewNop(), observability.NewNoOpRegistry())
	if _, err := c.SearchByType(context.Background(), "g1", models.ItemTypeStream, 10); !errors.Is(err, ErrCatalogUnavailable) {
		t.Fatalf("expected ErrCatalogUnavailable, got %v", err)
	}
}
