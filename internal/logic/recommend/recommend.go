// Package recommend computes per-type item recommendations, either from
// globally popular games or from a user's favorite history.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/pwheeler/streamrec/internal/models"
	"github.com/pwheeler/streamrec/internal/observability"
)

// ErrRecommendationUnavailable is returned whenever a collaborator failure
// prevents computing a complete result. There is no partial result: callers
// get the full per-type map or this error.
var ErrRecommendationUnavailable = errors.New("recommendation unavailable")

const (
	// DefaultGameLimit is how many seed games drive each per-type search.
	DefaultGameLimit = 3
	// DefaultPerGameLimit caps how many items one seed game may contribute
	// per fetch, spreading results across games instead of exhausting one.
	DefaultPerGameLimit = 10
	// DefaultTotalLimit caps the result list per item type.
	DefaultTotalLimit = 20
)

// Catalog is the upstream game/item source consumed by the recommender.
type Catalog interface {
	TopGames(ctx context.Context, limit int) ([]models.Game, error)
	SearchByType(ctx context.Context, gameID string, itemType models.ItemType, limit int) ([]models.Item, error)
}

// FavoriteHistory answers read-only favorite queries for the personalized path.
type FavoriteHistory interface {
	FavoriteItemIDs(ctx context.Context, userID string) (map[string]struct{}, error)
	FavoriteGameIDsByType(ctx context.Context, itemIDs map[string]struct{}) (map[models.ItemType][]string, error)
}

// Recommender derives ranked item recommendations from the catalog and,
// for known users, from their favorite history.
type Recommender struct {
	catalog   Catalog
	favorites FavoriteHistory
	logger    *zap.Logger
	metrics   observability.MetricsRegistry

	gameLimit    int
	perGameLimit int
	totalLimit   int
}

// NewRecommender constructs a Recommender with the default limits.
func NewRecommender(catalog Catalog, favorites FavoriteHistory, logger *zap.Logger, metrics observability.MetricsRegistry) *Recommender {
	return &Recommender{
		catalog:      catalog,
		favorites:    favorites,
		logger:       logger,
		metrics:      metrics,
		gameLimit:    DefaultGameLimit,
		perGameLimit: DefaultPerGameLimit,
		totalLimit:   DefaultTotalLimit,
	}
}

// SetLimits overrides the seed, per-game and total caps. Zero values keep the
// current setting.
func (r *Recommender) SetLimits(gameLimit, perGameLimit, totalLimit int) {
	if gameLimit > 0 {
		r.gameLimit = gameLimit
	}
	if perGameLimit > 0 {
		r.perGameLimit = perGameLimit
	}
	if totalLimit > 0 {
		r.totalLimit = totalLimit
	}
}

// Default recommends items for an anonymous user: every item type is seeded
// by the currently most popular games.
func (r *Recommender) Default(ctx context.Context) (models.RecommendedItems, error) {
	topGames, err := r.catalog.TopGames(ctx, r.gameLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: top games: %v", ErrRecommendationUnavailable, err)
	}
	seeds := gameIDs(topGames)

	results, err := r.collectByType(ctx, func(ctx context.Context, t models.ItemType) ([]models.Item, error) {
		return r.mergeByGames(ctx, t, seeds, nil)
	})
	if err != nil {
		return nil, err
	}
	r.observe("default", results)
	return results, nil
}

// ForUser recommends items personalized to the user's favorite history. Item
// types with no favorites fall back to popular-game seeding; ranked types
// never include items the user already favorited.
func (r *Recommender) ForUser(ctx context.Context, userID string) (models.RecommendedItems, error) {
	favoriteIDs, err := r.favorites.FavoriteItemIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: favorite ids: %v", ErrRecommendationUnavailable, err)
	}
	favoriteGames, err := r.favorites.FavoriteGameIDsByType(ctx, favoriteIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: favorite games: %v", ErrRecommendationUnavailable, err)
	}

	// Fetch the popular-game seeds once if any type needs the fallback; the
	// catalog is read-only within a request so every empty type sees the
	// same seeds.
	var fallback []string
	for _, t := range models.ItemTypes() {
		if len(favoriteGames[t]) == 0 {
			topGames, err := r.catalog.TopGames(ctx, r.gameLimit)
			if err != nil {
				return nil, fmt.Errorf("%w: top games: %v", ErrRecommendationUnavailable, err)
			}
			fallback = gameIDs(topGames)
			break
		}
	}

	results, err := r.collectByType(ctx, func(ctx context.Context, t models.ItemType) ([]models.Item, error) {
		if len(favoriteGames[t]) == 0 {
			return r.mergeByGames(ctx, t, fallback, nil)
		}
		seeds := rankFavoriteGames(favoriteGames[t], r.gameLimit)
		return r.mergeByGames(ctx, t, seeds, favoriteIDs)
	})
	if err != nil {
		return nil, err
	}
	r.observe("personalized", results)
	return results, nil
}

// mergeByGames fetches up to perGameLimit items per seed game and appends
// them in fetch order, skipping excluded ids. The loop returns the moment the
// total cap is reached, so seed games past that point are never fetched.
func (r *Recommender) mergeByGames(ctx context.Context, itemType models.ItemType, seeds []string, exclude map[string]struct{}) ([]models.Item, error) {
	recommended := make([]models.Item, 0, r.totalLimit)
	for _, gameID := range seeds {
		items, err := r.catalog.SearchByType(ctx, gameID, itemType, r.perGameLimit)
		if err != nil {
			return nil, fmt.Errorf("%w: search %s items for game %s: %v", ErrRecommendationUnavailable, itemType, gameID, err)
		}
		for _, item := range items {
			if len(recommended) == r.totalLimit {
				return recommended, nil
			}
			if _, ok := exclude[item.ID]; ok {
				continue
			}
			recommended = append(recommended, item)
		}
	}
	return recommended, nil
}

// rankFavoriteGames orders distinct game ids by how often the user favorited
// items from them, most favorited first, truncated to limit. Ties keep the
// first-appearance order of the input sequence, which makes the ranking
// deterministic for a given favorite-history response.
func rankFavoriteGames(gameIDs []string, limit int) []string {
	counts := make(map[string]int, len(gameIDs))
	order := make([]string, 0, len(gameIDs))
	for _, id := range gameIDs {
		if counts[id] == 0 {
			order = append(order, id)
		}
		counts[id]++
	}
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > limit {
		order = order[:limit]
	}
	return order
}

// collectByType runs compute for every item type concurrently and assembles
// the per-type map. The types share no state, so one goroutine per type; any
// failure discards all partial results and surfaces the first error.
func (r *Recommender) collectByType(ctx context.Context, compute func(ctx context.Context, t models.ItemType) ([]models.Item, error)) (models.RecommendedItems, error) {
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error
	results := make(models.RecommendedItems, len(models.ItemTypes()))

	for _, t := range models.ItemTypes() {
		wg.Add(1)
		go func(t models.ItemType) {
			defer wg.Done()
			items, err := compute(ctx, t)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			results[t] = items
		}(t)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}

func (r *Recommender) observe(source string, results models.RecommendedItems) {
	r.metrics.IncrementRecommendations(source)
	total := 0
	for t, items := range results {
		if len(items) == 0 {
			r.metrics.IncrementEmptyResults(string(t))
		}
		total += len(items)
	}
	if r.logger != nil {
		r.logger.Debug("recommendation computed",
			zap.String("source", source),
			zap.Int("total_items", total))
	}
}

func gameIDs(games []models.Game) []string {
	ids := make([]string, 0, len(games))
	for _, g := range games {
		ids = append(ids, g.ID)
	}
	return ids
}
