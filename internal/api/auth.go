package api

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pwheeler/streamrec/internal/favorites"
	"github.com/pwheeler/streamrec/internal/middleware"
)

type registerRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// hashPassword derives the stored password digest. The username acts as a
// per-user salt so equal passwords hash differently.
func hashPassword(username, password string) string {
	sum := sha256.Sum256([]byte(username + ":" + password))
	return hex.EncodeToString(sum[:])
}

// RegisterHandler handles POST /register.
func (s *Server) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	logger := middleware.LoggerFromRequest(r, s.Logger)

	start := time.Now()
	const endpoint = "register"
	const method = "POST"

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.Metrics.IncrementRequests(endpoint, method, "400")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Username = strings.TrimSpace(strings.ToLower(req.Username))
	if req.Username == "" || req.Password == "" {
		s.Metrics.IncrementRequests(endpoint, method, "400")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		writeError(w, http.StatusBadRequest, "username and password required")
		return
	}

	user := favorites.User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		PasswordHash: hashPassword(req.Username, req.Password),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
	}
	if err := s.Favorites.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, favorites.ErrUserExists) {
			s.Metrics.IncrementRequests(endpoint, method, "409")
			s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
			writeError(w, http.StatusConflict, "username already taken")
			return
		}
		logger.Error("create user", zap.Error(err), zap.String("username", req.Username))
		s.Metrics.IncrementRequests(endpoint, method, "500")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		writeError(w, http.StatusInternalServerError, "failed to register")
		return
	}

	s.Metrics.IncrementRequests(endpoint, method, "200")
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
	w.WriteHeader(http.StatusOK)
}

// LoginHandler handles POST /login. A successful login opens a session and
// sets the session cookie.
func (s *Server) LoginHandler(w http.ResponseWriter, r *http.Request) {
	logger := middleware.LoggerFromRequest(r, s.Logger)

	start := time.Now()
	const endpoint = "login"
	const method = "POST"

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.Metrics.IncrementRequests(endpoint, method, "400")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Username = strings.TrimSpace(strings.ToLower(req.Username))

	userID, err := s.Favorites.VerifyUser(r.Context(), req.Username, hashPassword(req.Username, req.Password))
	if err != nil {
		if errors.Is(err, favorites.ErrInvalidCredentials) {
			s.Metrics.IncrementRequests(endpoint, method, "401")
			s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
			writeError(w, http.StatusUnauthorized, "invalid username or password")
			return
		}
		logger.Error("verify user", zap.Error(err), zap.String("username", req.Username))
		s.Metrics.IncrementRequests(endpoint, method, "500")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		writeError(w, http.StatusInternalServerError, "failed to log in")
		return
	}

	token, err := s.Sessions.Create(r.Context(), userID)
	if err != nil {
		logger.Error("create session", zap.Error(err), zap.String("user_id", userID))
		s.Metrics.IncrementRequests(endpoint, method, "500")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		writeError(w, http.StatusInternalServerError, "failed to log in")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.Config.SessionTTL / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	s.Metrics.IncrementRequests(endpoint, method, "200")
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
	_ = writeJSON(w, http.StatusOK, loginResponse{UserID: userID, Username: req.Username})
}

// LogoutHandler handles POST /logout. It revokes the session server-side and
// clears the cookie. Logging out without a session succeeds silently.
func (s *Server) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	logger := middleware.LoggerFromRequest(r, s.Logger)

	start := time.Now()
	const endpoint = "logout"
	const method = "POST"

	if cookie, err := r.Cookie(sessionCookie); err == nil && cookie.Value != "" {
		if err := s.Sessions.Destroy(r.Context(), cookie.Value); err != nil {
			logger.Warn("destroy session", zap.Error(err))
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	s.Metrics.IncrementRequests(endpoint, method, "200")
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
	w.WriteHeader(http.StatusOK)
}
