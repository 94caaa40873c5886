package api

import (
	"context"
	"encoding/json"
	"net/http"
)

// ShapeDependencies looks up competitor geometry.
type ShapeDependencies interface {
	Shape(ctx context.Context, name string) (json.RawMessage, error)
}

// ShapeHandler handles shape requests.
type ShapeHandler struct {
	deps ShapeDependencies
}

// NewShapeHandler creates a new shape handler.
func NewShapeHandler(deps ShapeDependencies) *ShapeHandler {
	return &ShapeHandler{deps: deps}
}

// HandleGetShape handles GET /api/shape/{name} and returns the stored
// GeoJSON verbatim.
func (h *ShapeHandler) HandleGetShape(w http.ResponseWriter, r *http.Request) {
	shape, err := h.deps.Shape(r.Context(), r.PathValue("name"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(shape)
}
