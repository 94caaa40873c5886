package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/okian/duel/internal/domain/types"
)

// RankingsDependencies defines the interface for ranking reads.
type RankingsDependencies interface {
	Rankings(ctx context.Context, limit int) (types.Rankings, error)
}

// RankingsHandler handles rankings requests.
type RankingsHandler struct {
	deps     RankingsDependencies
	maxLimit int
}

// NewRankingsHandler creates a new rankings handler.
func NewRankingsHandler(deps RankingsDependencies, maxLimit int) *RankingsHandler {
	return &RankingsHandler{deps: deps, maxLimit: maxLimit}
}

// HandleGetRankings handles GET /api/rankings?limit=N. Without limit every
// competitor is returned up to the configured maximum.
func (h *RankingsHandler) HandleGetRankings(w http.ResponseWriter, r *http.Request) {
	n := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		var err error
		n, err = strconv.Atoi(s)
		if err != nil || n < 1 {
			writeServiceError(w, fmt.Errorf("limit %q: %w", s, ErrBadRequest))
			return
		}
		if n > h.maxLimit {
			writeServiceError(w, fmt.Errorf("limit %d above %d: %w: %w", n, h.maxLimit, ErrBadRequest, ErrLimitExceeded))
			return
		}
	}
	rankings, err := h.deps.Rankings(r.Context(), n)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rankings)
}
