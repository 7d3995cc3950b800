// Package favorites persists users and their favorited catalog items in
// Postgres and answers the favorite-history queries the recommender needs.
package favorites

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/XSAM/otelsql"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/pwheeler/streamrec/internal/models"
)

// ErrUserExists is returned by CreateUser when the username is taken.
var ErrUserExists = errors.New("user already exists")

// ErrInvalidCredentials is returned by VerifyUser on a bad username/password pair.
var ErrInvalidCredentials = errors.New("invalid credentials")

// User is an account row. PasswordHash is an opaque digest computed by the
// caller; the store never sees plaintext passwords.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	FirstName    string
	LastName     string
}

// Store wraps a postgres DB connection.
type Store struct {
	DB *sql.DB
}

// schemaSQL sets up the necessary tables if they don't exist.
const schemaSQL = `CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    username TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    first_name TEXT,
    last_name TEXT
);

CREATE TABLE IF NOT EXISTS items (
    id TEXT PRIMARY KEY,
    title TEXT,
    url TEXT,
    thumbnail_url TEXT,
    broadcaster_name TEXT,
    game_id TEXT NOT NULL,
    item_type TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS favorites (
    user_id TEXT NOT NULL REFERENCES users(id),
    item_id TEXT NOT NULL REFERENCES items(id),
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (user_id, item_id)
);

-- Lookup paths used by the recommender
CREATE INDEX IF NOT EXISTS idx_favorites_user_id ON favorites (user_id);
CREATE INDEX IF NOT EXISTS idx_items_game_id ON items (game_id);
`

// InitPostgres connects to Postgres with connection pooling configuration.
func InitPostgres(dsn string, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) (*Store, error) {
	// Register the otelsql wrapper for postgres
	driverName, err := otelsql.Register("postgres",
		otelsql.WithAttributes(
			attribute.String("db.system", "postgresql"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("register otelsql: %w", err)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)
	db.SetConnMaxIdleTime(connMaxIdleTime)

	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	s := &Store{DB: db}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	zap.L().Info("Connected to Postgres",
		zap.Int("max_open_conns", maxOpenConns),
		zap.Int("max_idle_conns", maxIdleConns))
	return s, nil
}

// Close terminates the Postgres connection.
func (s *Store) Close() {
	if s != nil && s.DB != nil {
		if err := s.DB.Close(); err != nil {
			zap.L().Error("postgres close", zap.Error(err))
		}
	}
}

// ensureSchema creates the required tables if they do not exist.
func (s *Store) ensureSchema() error {
	if _, err := s.DB.ExecContext(context.Background(), schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// FavoriteItemIDs returns the set of item ids the user has favorited. An
// unknown user or a user with no favorites yields an empty set, not an error.
func (s *Store) FavoriteItemIDs(ctx context.Context, userID string) (map[string]struct{}, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT item_id FROM favorites WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("query favorite ids: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan favorite id: %w", err)
		}
		ids[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return ids, nil
}

// FavoriteGameIDsByType resolves each favorited item id to its owning game,
// grouped by item type. Every item type is present in the result even when
// the user favorited nothing of that type; the per-type order follows row
// iteration order and carries one entry per favorited item.
func (s *Store) FavoriteGameIDsByType(ctx context.Context, itemIDs map[string]struct{}) (map[models.ItemType][]string, error) {
	byType := make(map[models.ItemType][]string, len(models.ItemTypes()))
	for _, t := range models.ItemTypes() {
		byType[t] = []string{}
	}
	if len(itemIDs) == 0 {
		return byType, nil
	}

	ids := make([]string, 0, len(itemIDs))
	for id := range itemIDs {
		ids = append(ids, id)
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT game_id, item_type FROM items WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("query favorite games: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	for rows.Next() {
		var gameID, itemType string
		if err := rows.Scan(&gameID, &itemType); err != nil {
			return nil, fmt.Errorf("scan favorite game: %w", err)
		}
		t := models.ItemType(itemType)
		if !t.Valid() {
			continue
		}
		byType[t] = append(byType[t], gameID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return byType, nil
}

// FavoriteItems returns the user's favorited items grouped by type, for
// display. Every item type is present in the result.
func (s *Store) FavoriteItems(ctx context.Context, userID string) (map[models.ItemType][]models.Item, error) {
	byType := make(map[models.ItemType][]models.Item, len(models.ItemTypes()))
	for _, t := range models.ItemTypes() {
		byType[t] = []models.Item{}
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT i.id, i.title, i.url, i.thumbnail_url, i.broadcaster_name, i.game_id, i.item_type
		FROM favorites f JOIN items i ON i.id = f.item_id
		WHERE f.user_id = $1
		ORDER BY f.created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query favorite items: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	for rows.Next() {
		var it models.Item
		var title, itemURL, thumb, broadcaster sql.NullString
		var itemType string
		if err := rows.Scan(&it.ID, &title, &itemURL, &thumb, &broadcaster, &it.GameID, &itemType); err != nil {
			return nil, fmt.Errorf("scan favorite item: %w", err)
		}
		it.Title = title.String
		it.URL = itemURL.String
		it.ThumbnailURL = thumb.String
		it.BroadcasterName = broadcaster.String
		it.Type = models.ItemType(itemType)
		if !it.Type.Valid() {
			continue
		}
		byType[it.Type] = append(byType[it.Type], it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return byType, nil
}

// SetFavorite records that the user favorited the item, storing the item row
// if it is not known yet. The operation is idempotent.
func (s *Store) SetFavorite(ctx context.Context, userID string, item models.Item) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	// Rollback is a no-op after Commit. It is only reached when one of the
	// statements below fails inside a transaction that was actually begun.
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO items (id, title, url, thumbnail_url, broadcaster_name, game_id, item_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			url = EXCLUDED.url,
			thumbnail_url = EXCLUDED.thumbnail_url,
			broadcaster_name = EXCLUDED.broadcaster_name`,
		item.ID, item.Title, item.URL, item.ThumbnailURL, item.BroadcasterName, item.GameID, string(item.Type)); err != nil {
		return fmt.Errorf("upsert item: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO favorites (user_id, item_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, userID, item.ID); err != nil {
		return fmt.Errorf("insert favorite: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit favorite: %w", err)
	}
	return nil
}

// UnsetFavorite removes the favorite link. Removing an item the user never
// favorited is not an error.
func (s *Store) UnsetFavorite(ctx context.Context, userID, itemID string) error {
	if _, err := s.DB.ExecContext(ctx, `DELETE FROM favorites WHERE user_id = $1 AND item_id = $2`, userID, itemID); err != nil {
		return fmt.Errorf("delete favorite: %w", err)
	}
	return nil
}

// CreateUser inserts a new account.
func (s *Store) CreateUser(ctx context.Context, u User) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO users (id, username, password_hash, first_name, last_name)
		VALUES ($1, $2, $3, $4, $5)`,
		u.ID, u.Username, u.PasswordHash, u.FirstName, u.LastName)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return ErrUserExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// VerifyUser checks a username/password-hash pair and returns the user id.
func (s *Store) VerifyUser(ctx context.Context, username, passwordHash string) (string, error) {
	var id string
	err := s.DB.QueryRowContext(ctx,
		`SELECT id FROM users WHERE username = $1 AND password_hash = $2`,
		username, passwordHash).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", fmt.Errorf("query user: %w", err)
	}
	return id, nil
}
