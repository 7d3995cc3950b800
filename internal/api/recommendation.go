package api

import (
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/pwheeler/streamrec/internal/middleware"
)

var tracer = otel.Tracer("streamrec")

// RecommendationHandler handles GET /recommendation. With a valid session the
// result is personalized to the user's favorite history; otherwise it falls
// back to globally popular games. On any collaborator failure the whole
// request fails; there is no partial payload.
func (s *Server) RecommendationHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "RecommendationHandler",
		trace.WithAttributes(
			attribute.String("http.method", "GET"),
			attribute.String("http.route", "/recommendation"),
		))
	defer span.End()

	logger := middleware.LoggerFromRequest(r, s.Logger)

	start := time.Now()
	const endpoint = "recommendation"
	const method = "GET"

	source := "default"
	userID, loggedIn := s.currentUser(r)

	var (
		items any
		err   error
	)
	if loggedIn {
		source = "personalized"
		items, err = s.Recommender.ForUser(ctx, userID)
	} else {
		items, err = s.Recommender.Default(ctx)
	}

	span.SetAttributes(attribute.String("recommendation.source", source))

	if err != nil {
		logger.Error("compute recommendation",
			zap.Error(err),
			zap.String("source", source))
		s.Metrics.IncrementRequests(endpoint, method, "500")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		writeError(w, http.StatusInternalServerError, "failed to compute recommendation")
		return
	}

	s.Metrics.IncrementRequests(endpoint, method, "200")
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))

	if err := writeJSON(w, http.StatusOK, items); err != nil {
		logger.Error("encode recommendation response", zap.Error(err))
	}
}
