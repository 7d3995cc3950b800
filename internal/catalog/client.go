// Package catalog provides access to the upstream content catalog: globally
// popular games, per-game item search and game lookup by name.
package catalog

import (
	"context"
	"errors"

	"github.com/pwheeler/streamrec/internal/models"
)

// ErrCatalogUnavailable is returned when the upstream catalog cannot be
// reached or answers with an unusable response. Callers treat it as a
// hard failure; there is no retry or degraded mode.
var ErrCatalogUnavailable = errors.New("catalog unavailable")

// Client is the catalog surface consumed by the rest of the service.
type Client interface {
	// TopGames returns up to limit games ranked by global popularity.
	TopGames(ctx context.Context, limit int) ([]models.Game, error)

	// SearchByType returns up to limit items of the given type belonging to
	// the game, in upstream relevance order.
	SearchByType(ctx context.Context, gameID string, itemType models.ItemType, limit int) ([]models.Item, error)

	// SearchGame looks a game up by exact name. A nil game with a nil error
	// means the name is unknown upstream.
	SearchGame(ctx context.Context, name string) (*models.Game, error)
}
