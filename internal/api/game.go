package api

import (
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/pwheeler/streamrec/internal/middleware"
	"github.com/pwheeler/streamrec/internal/models"
)

const defaultTopGameLimit = 20

// GameHandler handles GET /game. With a game_name query it looks a single
// game up by name; without one it returns the current top games.
func (s *Server) GameHandler(w http.ResponseWriter, r *http.Request) {
	logger := middleware.LoggerFromRequest(r, s.Logger)

	start := time.Now()
	const endpoint = "game"
	const method = "GET"

	if name := r.URL.Query().Get("game_name"); name != "" {
		game, err := s.Catalog.SearchGame(r.Context(), name)
		if err != nil {
			logger.Error("search game", zap.Error(err), zap.String("game_name", name))
			s.Metrics.IncrementRequests(endpoint, method, "500")
			s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
			writeError(w, http.StatusInternalServerError, "failed to search game")
			return
		}
		if game == nil {
			s.Metrics.IncrementRequests(endpoint, method, "404")
			s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
			writeError(w, http.StatusNotFound, "game not found")
			return
		}
		s.Metrics.IncrementRequests(endpoint, method, "200")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		_ = writeJSON(w, http.StatusOK, game)
		return
	}

	limit := defaultTopGameLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	games, err := s.Catalog.TopGames(r.Context(), limit)
	if err != nil {
		logger.Error("top games", zap.Error(err))
		s.Metrics.IncrementRequests(endpoint, method, "500")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		writeError(w, http.StatusInternalServerError, "failed to get top games")
		return
	}

	s.Metrics.IncrementRequests(endpoint, method, "200")
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
	_ = writeJSON(w, http.StatusOK, games)
}

// SearchHandler handles GET /search?game_id=. It returns the game's items of
// every type, in the upstream's relevance order.
func (s *Server) SearchHandler(w http.ResponseWriter, r *http.Request) {
	logger := middleware.LoggerFromRequest(r, s.Logger)

	start := time.Now()
	const endpoint = "search"
	const method = "GET"

	gameID := r.URL.Query().Get("game_id")
	if gameID == "" {
		s.Metrics.IncrementRequests(endpoint, method, "400")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		writeError(w, http.StatusBadRequest, "game_id required")
		return
	}

	results := make(map[models.ItemType][]models.Item, len(models.ItemTypes()))
	for _, t := range models.ItemTypes() {
		items, err := s.Catalog.SearchByType(r.Context(), gameID, t, defaultTopGameLimit)
		if err != nil {
			logger.Error("search items",
				zap.Error(err),
				zap.String("game_id", gameID),
				zap.String("item_type", string(t)))
			s.Metrics.IncrementRequests(endpoint, method, "500")
			s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
			writeError(w, http.StatusInternalServerError, "failed to search items")
			return
		}
		results[t] = items
	}

	s.Metrics.IncrementRequests(endpoint, method, "200")
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
	_ = writeJSON(w, http.StatusOK, results)
}
