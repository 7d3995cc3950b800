package api

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/pwheeler/streamrec/internal/middleware"
	"github.com/pwheeler/streamrec/internal/models"
)

// favoriteRequest is the body for POST and DELETE /favorite.
type favoriteRequest struct {
	Favorite models.Item `json:"favorite"`
}

// FavoriteHandler handles GET, POST and DELETE /favorite for the logged-in
// user. Anonymous requests are rejected.
func (s *Server) FavoriteHandler(w http.ResponseWriter, r *http.Request) {
	logger := middleware.LoggerFromRequest(r, s.Logger)

	start := time.Now()
	const endpoint = "favorite"
	method := r.Method

	userID, ok := s.currentUser(r)
	if !ok {
		s.Metrics.IncrementRequests(endpoint, method, "401")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		writeError(w, http.StatusUnauthorized, "login required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		items, err := s.Favorites.FavoriteItems(r.Context(), userID)
		if err != nil {
			logger.Error("list favorites", zap.Error(err), zap.String("user_id", userID))
			s.Metrics.IncrementRequests(endpoint, method, "500")
			s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
			writeError(w, http.StatusInternalServerError, "failed to list favorites")
			return
		}
		s.Metrics.IncrementRequests(endpoint, method, "200")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		_ = writeJSON(w, http.StatusOK, items)

	case http.MethodPost:
		req, ok := s.decodeFavorite(w, r, start)
		if !ok {
			return
		}
		if err := s.Favorites.SetFavorite(r.Context(), userID, req.Favorite); err != nil {
			logger.Error("set favorite",
				zap.Error(err),
				zap.String("user_id", userID),
				zap.String("item_id", req.Favorite.ID))
			s.Metrics.IncrementFavoriteMutations("set", "error")
			s.Metrics.IncrementRequests(endpoint, method, "500")
			s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
			writeError(w, http.StatusInternalServerError, "failed to set favorite")
			return
		}
		s.Metrics.IncrementFavoriteMutations("set", "ok")
		s.Metrics.IncrementRequests(endpoint, method, "200")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		w.WriteHeader(http.StatusOK)

	case http.MethodDelete:
		req, ok := s.decodeFavorite(w, r, start)
		if !ok {
			return
		}
		if err := s.Favorites.UnsetFavorite(r.Context(), userID, req.Favorite.ID); err != nil {
			logger.Error("unset favorite",
				zap.Error(err),
				zap.String("user_id", userID),
				zap.String("item_id", req.Favorite.ID))
			s.Metrics.IncrementFavoriteMutations("unset", "error")
			s.Metrics.IncrementRequests(endpoint, method, "500")
			s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
			writeError(w, http.StatusInternalServerError, "failed to unset favorite")
			return
		}
		s.Metrics.IncrementFavoriteMutations("unset", "ok")
		s.Metrics.IncrementRequests(endpoint, method, "200")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		w.WriteHeader(http.StatusOK)

	default:
		s.Metrics.IncrementRequests(endpoint, method, "405")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// decodeFavorite parses and validates a favorite mutation body. It writes the
// error response itself and returns ok=false on failure.
func (s *Server) decodeFavorite(w http.ResponseWriter, r *http.Request, start time.Time) (favoriteRequest, bool) {
	const endpoint = "favorite"

	var req favoriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.Metrics.IncrementRequests(endpoint, r.Method, "400")
		s.Metrics.RecordRequestLatency(endpoint, r.Method, time.Since(start))
		writeError(w, http.StatusBadRequest, "invalid request body")
		return favoriteRequest{}, false
	}
	if req.Favorite.ID == "" {
		s.Metrics.IncrementRequests(endpoint, r.Method, "400")
		s.Metrics.RecordRequestLatency(endpoint, r.Method, time.Since(start))
		writeError(w, http.StatusBadRequest, "favorite.id required")
		return favoriteRequest{}, false
	}
	if r.Method == http.MethodPost && !req.Favorite.Type.Valid() {
		s.Metrics.IncrementRequests(endpoint, r.Method, "400")
		s.Metrics.RecordRequestLatency(endpoint, r.Method, time.Since(start))
		writeError(w, http.StatusBadRequest, "unknown item type")
		return favoriteRequest{}, false
	}
	return req, true
}
