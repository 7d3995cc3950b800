package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/pwheeler/streamrec/internal/models"
	"github.com/pwheeler/streamrec/internal/observability"
)

// itemPaths maps each item type to its upstream search path.
var itemPaths = map[models.ItemType]string{
	models.ItemTypeStream: "/streams",
	models.ItemTypeVideo:  "/videos",
	models.ItemTypeClip:   "/clips",
}

// HTTPClient talks to a Helix-style catalog API. All responses wrap their
// payload in a top-level "data" array.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
	metrics    observability.MetricsRegistry
}

// NewHTTPClient creates a catalog client against baseURL. The timeout bounds
// every upstream call made through the client.
func NewHTTPClient(baseURL string, timeout time.Duration, logger *zap.Logger, metrics observability.MetricsRegistry) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger:  logger,
		metrics: metrics,
	}
}

type gamePayload struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	BoxArtURL string `json:"box_art_url"`
}

type itemPayload struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	URL             string `json:"url"`
	ThumbnailURL    string `json:"thumbnail_url"`
	BroadcasterName string `json:"broadcaster_name"`
	GameID          string `json:"game_id"`
}

// TopGames returns the globally most popular games, at most limit of them.
func (c *HTTPClient) TopGames(ctx context.Context, limit int) ([]models.Game, error) {
	q := url.Values{}
	q.Set("first", strconv.Itoa(limit))

	var out struct {
		Data []gamePayload `json:"data"`
	}
	if err := c.get(ctx, "/games/top", q, &out); err != nil {
		return nil, err
	}

	games := make([]models.Game, 0, len(out.Data))
	for _, g := range out.Data {
		games = append(games, models.Game{ID: g.ID, Name: g.Name, BoxArtURL: g.BoxArtURL})
	}
	if len(games) > limit {
		games = games[:limit]
	}
	return games, nil
}

// SearchByType returns items of one type for a single game, at most limit of
// them, in the order the upstream ranked them.
func (c *HTTPClient) SearchByType(ctx context.Context, gameID string, itemType models.ItemType, limit int) ([]models.Item, error) {
	path, ok := itemPaths[itemType]
	if !ok {
		return nil, fmt.Errorf("%w: unknown item type %q", ErrCatalogUnavailable, itemType)
	}

	q := url.Values{}
	q.Set("game_id", gameID)
	q.Set("first", strconv.Itoa(limit))

	var out struct {
		Data []itemPayload `json:"data"`
	}
	if err := c.get(ctx, path, q, &out); err != nil {
		return nil, err
	}

	items := make([]models.Item, 0, len(out.Data))
	for _, it := range out.Data {
		item := models.Item{
			ID:              it.ID,
			Title:           it.Title,
			URL:             it.URL,
			ThumbnailURL:    it.ThumbnailURL,
			BroadcasterName: it.BroadcasterName,
			GameID:          it.GameID,
			Type:            itemType,
		}
		if item.GameID == "" {
			item.GameID = gameID
		}
		items = append(items, item)
	}
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// SearchGame looks a game up by exact name.
func (c *HTTPClient) SearchGame(ctx context.Context, name string) (*models.Game, error) {
	q := url.Values{}
	q.Set("name", name)

	var out struct {
		Data []gamePayload `json:"data"`
	}
	if err := c.get(ctx, "/games", q, &out); err != nil {
		return nil, err
	}
	if len(out.Data) == 0 {
		return nil, nil
	}
	g := out.Data[0]
	return &models.Game{ID: g.ID, Name: g.Name, BoxArtURL: g.BoxArtURL}, nil
}

// get performs one upstream GET and decodes the JSON body into dst. Every
// failure mode maps to ErrCatalogUnavailable so callers see a single
// failure condition.
func (c *HTTPClient) get(ctx context.Context, path string, q url.Values, dst any) error {
	start := time.Now()
	outcome := "success"
	defer func() {
		c.metrics.RecordCatalogLatency(path, time.Since(start))
		c.metrics.IncrementCatalogRequests(path, outcome)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		outcome = "failure"
		return fmt.Errorf("%w: create request: %v", ErrCatalogUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		outcome = "failure"
		return fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil && c.logger != nil {
			c.logger.Warn("failed to close response body", zap.Error(err))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		outcome = "failure"
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: http %d: %s", ErrCatalogUnavailable, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		outcome = "failure"
		return fmt.Errorf("%w: decode response: %v", ErrCatalogUnavailable, err)
	}
	return nil
}
