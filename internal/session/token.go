package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

var (
	ErrInvalidToken = errors.New("invalid session token")
	ErrExpiredToken = errors.New("session token expired")
)

// payload structure for encoding/decoding
type payload struct {
	SID string `json:"s"` // session ID
	UID string `json:"u"` // user ID
	TS  int64  `json:"t"`
}

// SignToken creates a signed session token binding a session id to a user id.
func SignToken(sessionID, userID string, secret []byte) (string, error) {
	pl := payload{
		SID: sessionID,
		UID: userID,
		TS:  time.Now().Unix(),
	}
	data, err := json.Marshal(pl)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write(data)
	sig := mac.Sum(nil)

	enc := base64.RawURLEncoding
	return enc.EncodeToString(data) + "." + enc.EncodeToString(sig), nil
}

// VerifyToken checks the token integrity and expiry and returns the session
// and user ids.
func VerifyToken(token string, secret []byte, ttl time.Duration) (sessionID, userID string, err error) {
	parts := strings.Split(token, ".")
	if len(parts) != 2 {
		return "", "", ErrInvalidToken
	}
	enc := base64.RawURLEncoding
	data, err := enc.DecodeString(parts[0])
	if err != nil {
		return "", "", ErrInvalidToken
	}
	sig, err := enc.DecodeString(parts[1])
	if err != nil {
		return "", "", ErrInvalidToken
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write(data)
	if !hmac.Equal(mac.Sum(nil), sig) {
		return "", "", ErrInvalidToken
	}

	var pl payload
	if err := json.Unmarshal(data, &pl); err != nil {
		return "", "", ErrInvalidToken
	}
	if ttl > 0 && time.Since(time.Unix(pl.TS, 0)) > ttl {
		return "", "", ErrExpiredToken
	}
	return pl.SID, pl.UID, nil
}
