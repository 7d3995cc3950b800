// Package api exposes the HTTP surface: recommendations, game and item
// search, favorites and the user session lifecycle.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/pwheeler/streamrec/internal/catalog"
	"github.com/pwheeler/streamrec/internal/config"
	"github.com/pwheeler/streamrec/internal/favorites"
	"github.com/pwheeler/streamrec/internal/logic/recommend"
	"github.com/pwheeler/streamrec/internal/models"
	"github.com/pwheeler/streamrec/internal/observability"
)

// sessionCookie is the cookie carrying the signed session token.
const sessionCookie = "sr_session"

// FavoriteStore is the persistence surface the handlers need. Implemented by
// *favorites.Store in production.
type FavoriteStore interface {
	FavoriteItems(ctx context.Context, userID string) (map[models.ItemType][]models.Item, error)
	SetFavorite(ctx context.Context, userID string, item models.Item) error
	UnsetFavorite(ctx context.Context, userID, itemID string) error
	CreateUser(ctx context.Context, u favorites.User) error
	VerifyUser(ctx context.Context, username, passwordHash string) (string, error)
}

// SessionStore is the session surface the handlers need. Implemented by
// *session.Store in production.
type SessionStore interface {
	Create(ctx context.Context, userID string) (string, error)
	Resolve(ctx context.Context, token string) (string, error)
	Destroy(ctx context.Context, token string) error
}

// Server groups dependencies for HTTP handlers.
type Server struct {
	Logger      *zap.Logger
	Favorites   FavoriteStore
	Sessions    SessionStore
	Catalog     catalog.Client
	Recommender *recommend.Recommender
	Metrics     observability.MetricsRegistry
	Config      config.Config
}

// NewServer constructs a Server.
func NewServer(logger *zap.Logger, favs FavoriteStore, sessions SessionStore, cat catalog.Client, rec *recommend.Recommender, metrics observability.MetricsRegistry, cfg config.Config) *Server {
	return &Server{
		Logger:      logger,
		Favorites:   favs,
		Sessions:    sessions,
		Catalog:     cat,
		Recommender: rec,
		Metrics:     metrics,
		Config:      cfg,
	}
}

// currentUser resolves the session cookie to a user id. The second return is
// false for anonymous requests and invalid or revoked sessions alike.
func (s *Server) currentUser(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	userID, err := s.Sessions.Resolve(r.Context(), cookie.Value)
	if err != nil {
		return "", false
	}
	return userID, true
}

// writeJSON serializes v with the standard content type.
func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// errorResponse is the JSON body for failed requests.
type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	_ = writeJSON(w, status, errorResponse{Error: msg})
}
