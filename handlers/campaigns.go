// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"net/http"

	"github.com/danielhkuo/quota-vote/campaign"
	"github.com/danielhkuo/quota-vote/middleware"
	"github.com/danielhkuo/quota-vote/models"
)

type CampaignHandler struct {
	svc *campaign.Service
}

func NewCampaignHandler(svc *campaign.Service) *CampaignHandler {
	return &CampaignHandler{svc: svc}
}

// CreateCampaign handles POST /admin/campaigns
func (h *CampaignHandler) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var req models.CreateCampaignRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	c, err := h.svc.Create(r.Context(), req)
	if err != nil {
		middleware.AppError(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusCreated, models.CreateCampaignResponse{Campaign: c})
}

// UpdateCampaign handles PUT /admin/campaigns/{id}
func (h *CampaignHandler) UpdateCampaign(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "id is required")
		return
	}

	var req models.UpdateCampaignRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	c, err := h.svc.UpdateCampaign(r.Context(), id, req)
	if err != nil {
		middleware.AppError(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, c)
}

// DeleteCampaign handles DELETE /admin/campaigns/{id}
func (h *CampaignHandler) DeleteCampaign(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		middleware.AppError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AddCandidate handles POST /admin/campaigns/{id}/candidates
func (h *CampaignHandler) AddCandidate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "id is required")
		return
	}

	var req models.AddCandidateRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	cand, err := h.svc.AddCandidate(r.Context(), id, req.Name)
	if err != nil {
		middleware.AppError(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusCreated, models.AddCandidateResponse{CandidateID: cand.ID})
}

// UpdateCandidate handles PUT /admin/campaigns/{id}/candidates/{candidateId}
func (h *CampaignHandler) UpdateCandidate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	candidateID := r.PathValue("candidateId")
	if id == "" || candidateID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "id and candidateId are required")
		return
	}

	var req models.UpdateCandidateRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	cand, err := h.svc.UpdateCandidate(r.Context(), id, candidateID, req.Name)
	if err != nil {
		middleware.AppError(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, cand)
}

// RemoveCandidate handles DELETE /admin/campaigns/{id}/candidates/{candidateId}
func (h *CampaignHandler) RemoveCandidate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	candidateID := r.PathValue("candidateId")
	if id == "" || candidateID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "id and candidateId are required")
		return
	}

	if err := h.svc.RemoveCandidate(r.Context(), id, candidateID); err != nil {
		middleware.AppError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// EnableCampaign handles POST /admin/campaigns/{id}/enable
func (h *CampaignHandler) EnableCampaign(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Enable)
}

// CloseCampaign handles POST /admin/campaigns/{id}/close
func (h *CampaignHandler) CloseCampaign(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Close)
}

// ReopenCampaign handles POST /admin/campaigns/{id}/reopen
func (h *CampaignHandler) ReopenCampaign(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Reopen)
}

func (h *CampaignHandler) transition(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id string) (campaign.Transition, error)) {
	id := r.PathValue("id")
	if id == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "id is required")
		return
	}

	t, err := op(r.Context(), id)
	if err != nil {
		middleware.AppError(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.CampaignTransitionResponse{
		Campaign: t.Campaign,
		Changed:  t.Changed(),
	})
}

// ListCampaigns handles GET /campaigns
func (h *CampaignHandler) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	campaigns, err := h.svc.List(r.Context())
	if err != nil {
		middleware.AppError(w, err)
		return
	}
	if campaigns == nil {
		campaigns = []models.Campaign{}
	}

	middleware.JSONResponse(w, http.StatusOK, models.ListCampaignsResponse{Campaigns: campaigns})
}

// GetCampaign handles GET /campaigns/{id}
func (h *CampaignHandler) GetCampaign(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "id is required")
		return
	}

	c, err := h.svc.Get(r.Context(), id)
	if err != nil {
		middleware.AppError(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, c)
}
