package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/okian/duel/internal/adapters/catalog"
)

// PairDependencies draws competitor pairs.
type PairDependencies interface {
	Pair(ctx context.Context) ([2]catalog.Competitor, error)
}

type competitorResponse struct {
	Name     string          `json:"name"`
	Center   json.RawMessage `json:"center"`
	ShapeURL string          `json:"shape_url"`
}

// PairHandler handles pair requests.
type PairHandler struct {
	deps PairDependencies
}

// NewPairHandler creates a new pair handler.
func NewPairHandler(deps PairDependencies) *PairHandler {
	return &PairHandler{deps: deps}
}

// HandleGetPair handles GET /api/pair. Shapes are fetched separately so the
// pair response stays small.
func (h *PairHandler) HandleGetPair(w http.ResponseWriter, r *http.Request) {
	pair, err := h.deps.Pair(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]competitorResponse, len(pair))
	for i, c := range pair {
		out[i] = competitorResponse{
			Name:     c.Name,
			Center:   c.Center,
			ShapeURL: "/api/shape/" + url.PathEscape(c.Name),
		}
	}
	writeJSON(w, http.StatusOK, out)
}
