// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/danielhkuo/quota-vote/middleware"
	"github.com/danielhkuo/quota-vote/models"
	"github.com/danielhkuo/quota-vote/vote"
)

type VotingHandler struct {
	coord *vote.Coordinator
}

func NewVotingHandler(coord *vote.Coordinator) *VotingHandler {
	return &VotingHandler{coord: coord}
}

// CastVote handles POST /votes
func (h *VotingHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFrom(r.Context())
	if !ok {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Session required")
		return
	}

	// Parse request
	var req models.CastVoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	resp, err := h.coord.CastVote(r.Context(), req.CampaignID, session.ElectorID, req.CandidateID, vote.RequestMeta{
		IP:        middleware.GetClientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		middleware.AppError(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, resp)
}

// GetRemainingVotes handles GET /votes/remaining/{campaignId}
func (h *VotingHandler) GetRemainingVotes(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFrom(r.Context())
	if !ok {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Session required")
		return
	}

	campaignID := r.PathValue("campaignId")
	if campaignID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "campaignId is required")
		return
	}

	resp, err := h.coord.Remaining(r.Context(), campaignID, session.ElectorID)
	if err != nil {
		middleware.AppError(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, resp)
}
