package api

import (
	"context"
	"fmt"
	"net/http"
)

// ProbabilityDependencies computes head-to-head probabilities.
type ProbabilityDependencies interface {
	Probability(ctx context.Context, a, b string) (float64, error)
}

type probabilityResponse struct {
	A           string  `json:"a"`
	B           string  `json:"b"`
	Probability float64 `json:"probability"`
}

// ProbabilityHandler handles probability requests.
type ProbabilityHandler struct {
	deps ProbabilityDependencies
}

// NewProbabilityHandler creates a new probability handler.
func NewProbabilityHandler(deps ProbabilityDependencies) *ProbabilityHandler {
	return &ProbabilityHandler{deps: deps}
}

// HandleGetProbability handles GET /api/probability?a=X&b=Y, the modelled
// chance that X is preferred over Y.
func (h *ProbabilityHandler) HandleGetProbability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	a, b := q.Get("a"), q.Get("b")
	if a == "" || b == "" {
		writeServiceError(w, fmt.Errorf("a and b are required: %w: %w", ErrBadRequest, ErrMissingParam))
		return
	}
	p, err := h.deps.Probability(r.Context(), a, b)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, probabilityResponse{A: a, B: b, Probability: p})
}
