// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/duel/internal/adapters/catalog"
	service "github.com/okian/duel/internal/app"
	"github.com/okian/duel/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Pair(ctx context.Context) ([2]catalog.Competitor, error)
	SubmitVote(ctx context.Context, req service.VoteRequest) (service.VoteAck, error)
	Rankings(ctx context.Context, limit int) (types.Rankings, error)
	Probability(ctx context.Context, a, b string) (float64, error)
	Shape(ctx context.Context, name string) (json.RawMessage, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	pairHandler        *PairHandler
	voteHandler        *VoteHandler
	rankingsHandler    *RankingsHandler
	probabilityHandler *ProbabilityHandler
	shapeHandler       *ShapeHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	o := options{maxRankingsLimit: defaultMaxRankingsLimit}
	for _, opt := range opts {
		opt(&o)
	}
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		pairHandler:        NewPairHandler(deps),
		voteHandler:        NewVoteHandler(deps),
		rankingsHandler:    NewRankingsHandler(deps, o.maxRankingsLimit),
		probabilityHandler: NewProbabilityHandler(deps),
		shapeHandler:       NewShapeHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleMetrics, "healthz"))
	mux.HandleFunc("GET /metrics", MetricsMiddleware(s.healthHandler.HandleMetrics, "metrics"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("GET /api", MetricsMiddleware(s.healthHandler.HandleStatus, "status"))
	mux.HandleFunc("GET /api/pair", MetricsMiddleware(s.pairHandler.HandleGetPair, "pair"))
	mux.HandleFunc("POST /api/vote", MetricsMiddleware(s.voteHandler.HandlePostVote, "vote"))
	mux.HandleFunc("GET /api/rankings", MetricsMiddleware(s.rankingsHandler.HandleGetRankings, "rankings"))
	mux.HandleFunc("GET /api/probability", MetricsMiddleware(s.probabilityHandler.HandleGetProbability, "probability"))
	mux.HandleFunc("GET /api/shape/{name}", MetricsMiddleware(s.shapeHandler.HandleGetShape, "shape"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps service sentinels to a status and error code.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrMissingCompetitor),
		errors.Is(err, service.ErrSameCompetitor),
		errors.Is(err, service.ErrInvalidLimit):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, errorCode(err), err)
	case errors.Is(err, service.ErrInvalidCompetitor),
		errors.Is(err, service.ErrUnknownCompetitor):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, service.ErrBackpressure):
		writeError(w, http.StatusTooManyRequests, "backpressure", err)
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
