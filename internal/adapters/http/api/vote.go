package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	service "github.com/okian/duel/internal/app"
)

const maxVoteBodyBytes = 4 << 10

// VoteDependencies accepts votes.
type VoteDependencies interface {
	SubmitVote(ctx context.Context, req service.VoteRequest) (service.VoteAck, error)
}

type voteRequest struct {
	VoteID string `json:"vote_id"`
	Winner string `json:"winner"`
	Loser  string `json:"loser"`
}

type ackResponse struct {
	Status    string `json:"status"`
	VoteID    string `json:"vote_id"`
	Winner    string `json:"winner"`
	Loser     string `json:"loser"`
	Duplicate bool   `json:"duplicate"`
}

// VoteHandler handles vote requests.
type VoteHandler struct {
	deps VoteDependencies
}

// NewVoteHandler creates a new vote handler.
func NewVoteHandler(deps VoteDependencies) *VoteHandler {
	return &VoteHandler{deps: deps}
}

// HandlePostVote handles POST /api/vote. Accepted votes are recorded
// asynchronously: 202 for a new vote, 200 for a repeated vote_id.
func (h *VoteHandler) HandlePostVote(w http.ResponseWriter, r *http.Request) {
	var req voteRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxVoteBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeServiceError(w, fmt.Errorf("decode vote: %w: %w", ErrBadRequest, err))
		return
	}

	ack, err := h.deps.SubmitVote(r.Context(), service.VoteRequest{
		VoteID: req.VoteID,
		Winner: req.Winner,
		Loser:  req.Loser,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := ackResponse{Status: "accepted", VoteID: ack.VoteID, Winner: req.Winner, Loser: req.Loser}
	status := http.StatusAccepted
	if ack.Duplicate {
		resp.Status, resp.Duplicate = "duplicate", true
		status = http.StatusOK
	}
	writeJSON(w, status, resp)
}
