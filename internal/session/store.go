// Package session issues and resolves login sessions. A session is an HMAC
// signed token held by the client plus a Redis key holding the server-side
// state, so a session can be revoked before its token expires.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pwheeler/streamrec/internal/observability"
)

// ErrNoSession is returned when a token verifies but the server-side session
// no longer exists (logged out or expired in Redis).
var ErrNoSession = errors.New("session not found")

// Store wraps a redis client with session signing configuration.
type Store struct {
	Client  *redis.Client
	secret  []byte
	ttl     time.Duration
	metrics observability.MetricsRegistry
}

// InitRedis initializes a Redis client and returns a session Store.
func InitRedis(addr string, secret []byte, ttl time.Duration, metrics observability.MetricsRegistry) (*Store, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	// Add OpenTelemetry instrumentation to the Redis client
	if err := redisotel.InstrumentTracing(client); err != nil {
		return nil, fmt.Errorf("failed to instrument redis tracing: %w", err)
	}

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	zap.L().Info("Connected to Redis", zap.String("addr", addr))
	return NewStore(client, secret, ttl, metrics), nil
}

// NewStore builds a Store around an existing client. Used by tests to plug in
// miniredis.
func NewStore(client *redis.Client, secret []byte, ttl time.Duration, metrics observability.MetricsRegistry) *Store {
	return &Store{Client: client, secret: secret, ttl: ttl, metrics: metrics}
}

func sessionKey(sessionID string) string {
	return "session:" + sessionID
}

// Create opens a session for the user and returns the signed token.
func (s *Store) Create(ctx context.Context, userID string) (string, error) {
	sessionID := uuid.NewString()
	if err := s.Client.Set(ctx, sessionKey(sessionID), userID, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	token, err := SignToken(sessionID, userID, s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	s.metrics.IncrementSessions("created")
	return token, nil
}

// Resolve validates a token and returns the user id it belongs to.
func (s *Store) Resolve(ctx context.Context, token string) (string, error) {
	sessionID, userID, err := VerifyToken(token, s.secret, s.ttl)
	if err != nil {
		return "", err
	}
	stored, err := s.Client.Get(ctx, sessionKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoSession
	}
	if err != nil {
		return "", fmt.Errorf("load session: %w", err)
	}
	// The Redis value is authoritative; a token signed for another user
	// must not resolve even if it verifies.
	if stored != userID {
		return "", ErrInvalidToken
	}
	return userID, nil
}

// Destroy revokes the session behind a token. Destroying an already revoked
// session is not an error.
func (s *Store) Destroy(ctx context.Context, token string) error {
	sessionID, _, err := VerifyToken(token, s.secret, s.ttl)
	if err != nil {
		return err
	}
	if err := s.Client.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	s.metrics.IncrementSessions("destroyed")
	return nil
}

// Close shuts down the Redis client.
func (s *Store) Close() {
	if s != nil && s.Client != nil {
		if err := s.Client.Close(); err != nil {
			zap.L().Error("redis close", zap.Error(err))
		}
	}
}
