package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pwheeler/streamrec/internal/config"
	"github.com/pwheeler/streamrec/internal/favorites"
	"github.com/pwheeler/streamrec/internal/logic/recommend"
	"github.com/pwheeler/streamrec/internal/models"
	"github.com/pwheeler/streamrec/internal/observability"
)

type fakeCatalogClient struct {
	topGames []models.Game
	topErr   error
	game     *models.Game
	items    map[string]map[models.ItemType][]models.Item
}

func (c *fakeCatalogClient) TopGames(ctx context.Context, limit int) ([]models.Game, error) {
	if c.topErr != nil {
		return nil, c.topErr
	}
	if len(c.topGames) > limit {
		return c.topGames[:limit], nil
	}
	return c.topGames, nil
}

func (c *fakeCatalogClient) SearchByType(ctx context.Context, gameID string, itemType models.ItemType, limit int) ([]models.Item, error) {
	items := c.items[gameID][itemType]
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (c *fakeCatalogClient) SearchGame(ctx context.Context, name string) (*models.Game, error) {
	return c.game, nil
}

type fakeSessions struct {
	tokens map[string]string // token -> user id
}

func (s *fakeSessions) Create(ctx context.Context, userID string) (string, error) {
	if s.tokens == nil {
		s.tokens = make(map[string]string)
	}
	token := "tok-" + userID
	s.tokens[token] = userID
	return token, nil
}

func (s *fakeSessions) Resolve(ctx context.Context, token string) (string, error) {
	if uid, ok := s.tokens[token]; ok {
		return uid, nil
	}
	return "", errors.New("no session")
}

func (s *fakeSessions) Destroy(ctx context.Context, token string) error {
	delete(s.tokens, token)
	return nil
}

type fakeFavStore struct {
	users       map[string]favorites.User // username -> user
	favoriteIDs map[string]struct{}
	gamesByType map[models.ItemType][]string
	setItems    []models.Item
	unsetIDs    []string
}

func (f *fakeFavStore) FavoriteItems(ctx context.Context, userID string) (map[models.ItemType][]models.Item, error) {
	out := make(map[models.ItemType][]models.Item)
	for _, t := range models.ItemTypes() {
		out[t] = []models.Item{}
	}
	return out, nil
}

func (f *fakeFavStore) SetFavorite(ctx context.Context, userID string, item models.Item) error {
	f.setItems = append(f.setItems, item)
	return nil
}

func (f *fakeFavStore) UnsetFavorite(ctx context.Context, userID, itemID string) error {
	f.unsetIDs = append(f.unsetIDs, itemID)
	return nil
}

func (f *fakeFavStore) CreateUser(ctx context.Context, u favorites.User) error {
	if f.users == nil {
		f.users = make(map[string]favorites.User)
	}
	if _, ok := f.users[u.Username]; ok {
		return favorites.ErrUserExists
	}
	f.users[u.Username] = u
	return nil
}

func (f *fakeFavStore) VerifyUser(ctx context.Context, username, passwordHash string) (string, error) {
	u, ok := f.users[username]
	if !ok || u.PasswordHash != passwordHash {
		return "", favorites.ErrInvalidCredentials
	}
	return u.ID, nil
}

func (f *fakeFavStore) FavoriteItemIDs(ctx context.Context, userID string) (map[string]struct{}, error) {
	if f.favoriteIDs == nil {
		return map[string]struct{}{}, nil
	}
	return f.favoriteIDs, nil
}

func (f *fakeFavStore) FavoriteGameIDsByType(ctx context.Context, itemIDs map[string]struct{}) (map[models.ItemType][]string, error) {
	out := make(map[models.ItemType][]string)
	for _, t := range models.ItemTypes() {
		out[t] = f.gamesByType[t]
	}
	return out, nil
}

func testCatalog() *fakeCatalogClient {
	c := &fakeCatalogClient{items: make(map[string]map[models.ItemType][]models.Item)}
	for _, g := range []string{"g1", "g2", "g3"} {
		c.topGames = append(c.topGames, models.Game{ID: g, Name: "Game " + g})
		c.items[g] = make(map[models.ItemType][]models.Item)
		for _, t := range models.ItemTypes() {
			for i := 0; i < 5; i++ {
				c.items[g][t] = append(c.items[g][t], models.Item{
					ID:     fmt.Sprintf("%s-%s-%d", g, t, i),
					GameID: g,
					Type:   t,
				})
			}
		}
	}
	return c
}

func newTestServer(cat *fakeCatalogClient, favs *fakeFavStore, sessions *fakeSessions) *Server {
	rec := recommend.NewRecommender(cat, favs, zap.NewNop(), observability.NewNoOpRegistry())
	return NewServer(zap.NewNop(), favs, sessions, cat, rec, observability.NewNoOpRegistry(), config.Config{})
}

func TestRecommendationHandler_Default(t *testing.T) {
	srv := newTestServer(testCatalog(), &fakeFavStore{}, &fakeSessions{})

	req := httptest.NewRequest(http.MethodGet, "/recommendation", nil)
	rec := httptest.NewRecorder()
	srv.RecommendationHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[models.ItemType][]models.Item
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body, len(models.ItemTypes()))
	for _, typ := range models.ItemTypes() {
		assert.Contains(t, body, typ)
	}
}

func TestRecommendationHandler_Personalized(t *testing.T) {
	favs := &fakeFavStore{
		favoriteIDs: map[string]struct{}{"g1-stream-0": {}},
		gamesByType: map[models.ItemType][]string{
			models.ItemTypeStream: {"g1"},
			models.ItemTypeVideo:  {"g1"},
			models.ItemTypeClip:   {"g1"},
		},
	}
	sessions := &fakeSessions{tokens: map[string]string{"tok-user1": "user1"}}
	srv := newTestServer(testCatalog(), favs, sessions)

	req := httptest.NewRequest(http.MethodGet, "/recommendation", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: "tok-user1"})
	rec := httptest.NewRecorder()
	srv.RecommendationHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[models.ItemType][]models.Item
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	for _, items := range body {
		for _, it := range items {
			assert.NotEqual(t, "g1-stream-0", it.ID, "favorited item must not be recommended")
		}
	}
}

func TestRecommendationHandler_Metrics(t *testing.T) {
	metrics := observability.NewMockMetricsRegistry()
	cat := testCatalog()
	favs := &fakeFavStore{}
	rec := recommend.NewRecommender(cat, favs, zap.NewNop(), metrics)
	srv := NewServer(zap.NewNop(), favs, &fakeSessions{}, cat, rec, metrics, config.Config{})

	req := httptest.NewRequest(http.MethodGet, "/recommendation", nil)
	srv.RecommendationHandler(httptest.NewRecorder(), req)

	assert.Equal(t, 1, metrics.Count("recommendations:default"))
	assert.Equal(t, 1, metrics.Count("requests:recommendation:GET:200"))
}

func TestRecommendationHandler_CatalogDown(t *testing.T) {
	cat := testCatalog()
	cat.topErr = errors.New("upstream down")
	srv := newTestServer(cat, &fakeFavStore{}, &fakeSessions{})

	req := httptest.NewRequest(http.MethodGet, "/recommendation", nil)
	rec := httptest.NewRecorder()
	srv.RecommendationHandler(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestFavoriteHandler_Unauthorized(t *testing.T) {
	srv := newTestServer(testCatalog(), &fakeFavStore{}, &fakeSessions{})

	req := httptest.NewRequest(http.MethodGet, "/favorite", nil)
	rec := httptest.NewRecorder()
	srv.FavoriteHandler(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestFavoriteHandler_Set(t *testing.T) {
	favs := &fakeFavStore{}
	sessions := &fakeSessions{tokens: map[string]string{"tok-user1": "user1"}}
	srv := newTestServer(testCatalog(), favs, sessions)

	body := `{"favorite":{"id":"s1","title":"A Stream","game_id":"g1","item_type":"stream"}}`
	req := httptest.NewRequest(http.MethodPost, "/favorite", strings.NewReader(body))
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: "tok-user1"})
	rec := httptest.NewRecorder()
	srv.FavoriteHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, favs.setItems, 1)
	assert.Equal(t, "s1", favs.setItems[0].ID)
	assert.Equal(t, models.ItemTypeStream, favs.setItems[0].Type)
}

func TestFavoriteHandler_SetRejectsUnknownType(t *testing.T) {
	sessions := &fakeSessions{tokens: map[string]string{"tok-user1": "user1"}}
	srv := newTestServer(testCatalog(), &fakeFavStore{}, sessions)

	body := `{"favorite":{"id":"s1","item_type":"podcast"}}`
	req := httptest.NewRequest(http.MethodPost, "/favorite", strings.NewReader(body))
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: "tok-user1"})
	rec := httptest.NewRecorder()
	srv.FavoriteHandler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFavoriteHandler_Delete(t *testing.T) {
	favs := &fakeFavStore{}
	sessions := &fakeSessions{tokens: map[string]string{"tok-user1": "user1"}}
	srv := newTestServer(testCatalog(), favs, sessions)

	body := `{"favorite":{"id":"s1"}}`
	req := httptest.NewRequest(http.MethodDelete, "/favorite", strings.NewReader(body))
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: "tok-user1"})
	rec := httptest.NewRecorder()
	srv.FavoriteHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"s1"}, favs.unsetIDs)
}

func TestRegisterAndLogin(t *testing.T) {
	favs := &fakeFavStore{}
	srv := newTestServer(testCatalog(), favs, &fakeSessions{})

	reg := `{"username":"Alice","password":"hunter2","first_name":"Alice"}`
	req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(reg))
	rec := httptest.NewRecorder()
	srv.RegisterHandler(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	// Duplicate registration conflicts (username comparison is case folded).
	req = httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(`{"username":"alice","password":"other"}`))
	rec = httptest.NewRecorder()
	srv.RegisterHandler(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Login with the right password sets a session cookie.
	req = httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"username":"alice","password":"hunter2"}`))
	rec = httptest.NewRecorder()
	srv.LoginHandler(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	found := false
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookie && c.Value != "" {
			found = true
		}
	}
	assert.True(t, found, "expected session cookie to be set")
}

func TestLoginHandler_InvalidCredentials(t *testing.T) {
	favs := &fakeFavStore{}
	srv := newTestServer(testCatalog(), favs, &fakeSessions{})

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"username":"ghost","password":"nope"}`))
	rec := httptest.NewRecorder()
	srv.LoginHandler(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutHandler_DestroysSession(t *testing.T) {
	sessions := &fakeSessions{tokens: map[string]string{"tok-user1": "user1"}}
	srv := newTestServer(testCatalog(), &fakeFavStore{}, sessions)

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: "tok-user1"})
	rec := httptest.NewRecorder()
	srv.LogoutHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, sessions.tokens)
}

func TestGameHandler_TopGames(t *testing.T) {
	srv := newTestServer(testCatalog(), &fakeFavStore{}, &fakeSessions{})

	req := httptest.NewRequest(http.MethodGet, "/game", nil)
	rec := httptest.NewRecorder()
	srv.GameHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var games []models.Game
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &games))
	assert.Len(t, games, 3)
}

func TestGameHandler_NotFound(t *testing.T) {
	cat := testCatalog()
	cat.game = nil
	srv := newTestServer(cat, &fakeFavStore{}, &fakeSessions{})

	req := httptest.NewRequest(http.MethodGet, "/game?game_name=unknown", nil)
	rec := httptest.NewRecorder()
	srv.GameHandler(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSearchHandler_MissingGameID(t *testing.T) {
	srv := newTestServer(testCatalog(), &fakeFavStore{}, &fakeSessions{})

	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	rec := httptest.NewRecorder()
	srv.SearchHandler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchHandler_AllTypes(t *testing.T) {
	srv := newTestServer(testCatalog(), &fakeFavStore{}, &fakeSessions{})

	req := httptest.NewRequest(http.MethodGet, "/search?game_id=g1", nil)
	rec := httptest.NewRecorder()
	srv.SearchHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[models.ItemType][]models.Item
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	for _, typ := range models.ItemTypes() {
		assert.Contains(t, body, typ)
		assert.Len(t, body[typ], 5)
	}
}
