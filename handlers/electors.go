// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielhkuo/quota-vote/apperrors"
	"github.com/danielhkuo/quota-vote/auth"
	"github.com/danielhkuo/quota-vote/middleware"
	"github.com/danielhkuo/quota-vote/models"
	"github.com/danielhkuo/quota-vote/store"
)

// SessionIssuer mints session tokens
type SessionIssuer interface {
	Issue(role, electorID string, ttl time.Duration) (string, error)
}

type ElectorHandler struct {
	store    store.Store
	sessions SessionIssuer
	ttl      time.Duration
	attempts int
}

func NewElectorHandler(st store.Store, sessions SessionIssuer, ttl time.Duration, attempts int) *ElectorHandler {
	return &ElectorHandler{store: st, sessions: sessions, ttl: ttl, attempts: attempts}
}

// CreateElector handles POST /admin/electors
func (h *ElectorHandler) CreateElector(w http.ResponseWriter, r *http.Request) {
	var req models.CreateElectorRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	req.Code = strings.TrimSpace(req.Code)
	req.Name = strings.TrimSpace(req.Name)
	if req.Code == "" || req.Name == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "code and name are required")
		return
	}
	if req.Quota < 1 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "quota must be a positive integer")
		return
	}

	e := models.Elector{
		ID:        auth.NewID(),
		Code:      req.Code,
		Name:      req.Name,
		Quota:     req.Quota,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	err := store.Transact(r.Context(), h.store, h.attempts, func(tx store.Tx) error {
		return tx.InsertElector(r.Context(), e)
	})
	if errors.Is(err, store.ErrConstraint) {
		middleware.ErrorResponse(w, http.StatusConflict, "Elector code already exists")
		return
	}
	if err != nil {
		middleware.AppError(w, store.ToAppError(err, "Elector"))
		return
	}

	slog.Info("elector created", "elector_id", e.ID, "quota", e.Quota)

	middleware.JSONResponse(w, http.StatusCreated, models.CreateElectorResponse{ElectorID: e.ID})
}

// ListElectors handles GET /admin/electors
func (h *ElectorHandler) ListElectors(w http.ResponseWriter, r *http.Request) {
	var electors []models.Elector
	err := store.Transact(r.Context(), h.store, h.attempts, func(tx store.Tx) error {
		var err error
		electors, err = tx.ListElectors(r.Context())
		return err
	})
	if err != nil {
		middleware.AppError(w, store.ToAppError(err, "Elector"))
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.ListElectorsResponse{Electors: electors})
}

// CampaignUsage handles GET /admin/campaigns/{id}/electors
func (h *ElectorHandler) CampaignUsage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "id is required")
		return
	}

	var usage []models.ElectorUsage
	err := store.Transact(r.Context(), h.store, h.attempts, func(tx store.Tx) error {
		if _, err := tx.Campaign(r.Context(), id); err != nil {
			return err
		}
		var err error
		usage, err = tx.ElectorUsage(r.Context(), id)
		return err
	})
	if err != nil {
		middleware.AppError(w, store.ToAppError(err, "Campaign"))
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.ElectorUsageResponse{CampaignID: id, Electors: usage})
}

// GetElector handles GET /admin/electors/{id}
func (h *ElectorHandler) GetElector(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "id is required")
		return
	}

	var e models.Elector
	err := store.Transact(r.Context(), h.store, h.attempts, func(tx store.Tx) error {
		var err error
		e, err = tx.Elector(r.Context(), id)
		return err
	})
	if err != nil {
		middleware.AppError(w, store.ToAppError(err, "Elector"))
		return
	}

	middleware.JSONResponse(w, http.StatusOK, e)
}

// SetElectorActive handles PUT /admin/electors/{id}/active
func (h *ElectorHandler) SetElectorActive(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "id is required")
		return
	}

	var req models.SetElectorActiveRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	var e models.Elector
	err := store.Transact(r.Context(), h.store, h.attempts, func(tx store.Tx) error {
		if err := tx.SetElectorActive(r.Context(), id, req.Active); err != nil {
			return err
		}
		var err error
		e, err = tx.Elector(r.Context(), id)
		return err
	})
	if err != nil {
		middleware.AppError(w, store.ToAppError(err, "Elector"))
		return
	}

	slog.Info("elector updated", "elector_id", id, "active", req.Active)

	middleware.JSONResponse(w, http.StatusOK, e)
}

// IssueSession handles POST /admin/electors/{id}/session
func (h *ElectorHandler) IssueSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := electorActive(r.Context(), h.store, h.attempts, id); err != nil {
		middleware.AppError(w, err)
		return
	}

	token, err := h.sessions.Issue(models.RoleElector, id, h.ttl)
	if err != nil {
		slog.Error("failed to issue session", "elector_id", id, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to issue session")
		return
	}

	middleware.JSONResponse(w, http.StatusCreated, models.SessionTokenResponse{
		Token:     token,
		ExpiresAt: time.Now().UTC().Add(h.ttl),
	})
}

// electorActive fails with ELECTOR_NOT_ELIGIBLE unless the elector exists
// and is active
func electorActive(ctx context.Context, st store.Store, attempts int, id string) error {
	var e models.Elector
	err := store.Transact(ctx, st, attempts, func(tx store.Tx) error {
		var err error
		e, err = tx.Elector(ctx, id)
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return apperrors.New(apperrors.CodeElectorNotEligible, "Elector not found")
	}
	if err != nil {
		return store.ToAppError(err, "Elector")
	}
	if !e.Active {
		return apperrors.New(apperrors.CodeElectorNotEligible, "Elector is not active")
	}
	return nil
}
