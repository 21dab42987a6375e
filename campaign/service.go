// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package campaign

import (
	"context"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/danielhkuo/quota-vote/apperrors"
	"github.com/danielhkuo/quota-vote/auth"
	"github.com/danielhkuo/quota-vote/models"
	"github.com/danielhkuo/quota-vote/store"
	"github.com/danielhkuo/quota-vote/telemetry"
)

// Publisher receives events after their transaction commits.
type Publisher interface {
	Publish(ev models.Event)
}

// Service runs campaign administration and reads in their own transactions
// and publishes committed transitions.
type Service struct {
	store     store.Store
	machine   *Machine
	publisher Publisher
	attempts  int
	tracer    trace.Tracer
	logger    *slog.Logger
}

func NewService(st store.Store, machine *Machine, publisher Publisher, attempts int) *Service {
	if attempts < 1 {
		attempts = 1
	}
	return &Service{
		store:     st,
		machine:   machine,
		publisher: publisher,
		attempts:  attempts,
		tracer:    telemetry.Tracer("github.com/danielhkuo/quota-vote/campaign"),
		logger:    slog.Default().With("module", "campaign"),
	}
}

// Create inserts a campaign in the Created state with its candidates.
func (s *Service) Create(ctx context.Context, req models.CreateCampaignRequest) (models.Campaign, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return models.Campaign{}, apperrors.New(apperrors.CodeInvalidArgument, "title is required")
	}
	if req.EndTime.IsZero() {
		return models.Campaign{}, apperrors.New(apperrors.CodeInvalidArgument, "end_time is required")
	}
	now := s.machine.Now()
	if !req.EndTime.After(now) {
		return models.Campaign{}, apperrors.New(apperrors.CodeInvalidArgument, "end_time must be in the future")
	}
	for _, name := range req.Candidates {
		if strings.TrimSpace(name) == "" {
			return models.Campaign{}, apperrors.New(apperrors.CodeInvalidArgument, "candidate names cannot be empty")
		}
	}

	c := models.Campaign{
		ID:          auth.NewID(),
		Title:       title,
		Description: req.Description,
		State:       models.StateCreated,
		EndTime:     req.EndTime.UTC(),
		CreatedAt:   now,
	}

	var created models.Campaign
	err := store.Transact(ctx, s.store, s.attempts, func(tx store.Tx) error {
		if err := tx.InsertCampaign(ctx, c); err != nil {
			return err
		}
		for _, name := range req.Candidates {
			if err := tx.InsertCandidate(ctx, models.Candidate{
				ID:         auth.NewID(),
				CampaignID: c.ID,
				Name:       strings.TrimSpace(name),
			}); err != nil {
				return err
			}
		}
		var err error
		created, err = tx.CampaignWithCandidates(ctx, c.ID)
		return err
	})
	if err != nil {
		return models.Campaign{}, store.ToAppError(err, "Campaign")
	}

	s.logger.Info("campaign created", "campaign_id", c.ID, "candidates", len(req.Candidates))
	return created, nil
}

// Get returns the campaign with candidates, closing it first if it expired.
func (s *Service) Get(ctx context.Context, id string) (models.Campaign, error) {
	var c models.Campaign
	var expiry *Transition
	err := store.Transact(ctx, s.store, s.attempts, func(tx store.Tx) error {
		var err error
		_, expiry, err = s.machine.Resolve(ctx, tx, id)
		if err != nil {
			return err
		}
		c, err = tx.CampaignWithCandidates(ctx, id)
		return err
	})
	if err != nil {
		return models.Campaign{}, store.ToAppError(err, "Campaign")
	}

	if expiry != nil {
		s.publish(*expiry)
	}
	return c, nil
}

// List returns all campaigns, applying passive expiry to each.
func (s *Service) List(ctx context.Context) ([]models.Campaign, error) {
	var campaigns []models.Campaign
	var expired []Transition
	err := store.Transact(ctx, s.store, s.attempts, func(tx store.Tx) error {
		expired = expired[:0]
		var err error
		campaigns, err = tx.ListCampaigns(ctx)
		if err != nil {
			return err
		}
		now := s.machine.Now()
		for i, c := range campaigns {
			if !Expired(c, now) {
				continue
			}
			resolved, t, err := s.machine.Resolve(ctx, tx, c.ID)
			if err != nil {
				return err
			}
			campaigns[i] = resolved
			if t != nil {
				expired = append(expired, *t)
			}
		}
		return nil
	})
	if err != nil {
		return nil, store.ToAppError(err, "Campaign")
	}

	for _, t := range expired {
		s.publish(t)
	}
	return campaigns, nil
}

func (s *Service) Enable(ctx context.Context, id string) (Transition, error) {
	return s.transition(ctx, "enable", id, s.machine.Enable)
}

func (s *Service) Close(ctx context.Context, id string) (Transition, error) {
	return s.transition(ctx, "close", id, s.machine.Close)
}

func (s *Service) Reopen(ctx context.Context, id string) (Transition, error) {
	return s.transition(ctx, "reopen", id, s.machine.Reopen)
}

func (s *Service) transition(ctx context.Context, op, id string, fn func(context.Context, store.Tx, string) (Transition, error)) (Transition, error) {
	ctx, span := s.tracer.Start(ctx, "campaign."+op, trace.WithAttributes(
		attribute.String("campaign.id", id),
	))
	defer span.End()

	var t Transition
	err := store.Transact(ctx, s.store, s.attempts, func(tx store.Tx) error {
		var err error
		t, err = fn(ctx, tx, id)
		return err
	})
	if err != nil {
		err = store.ToAppError(err, "Campaign")
		span.SetStatus(codes.Error, string(apperrors.CodeOf(err)))
		return Transition{}, err
	}

	span.SetAttributes(
		attribute.String("campaign.from", t.From),
		attribute.String("campaign.to", t.To),
		attribute.Bool("campaign.changed", t.Changed()),
	)
	if t.Changed() {
		s.logger.Info("campaign transition", "campaign_id", id, "op", op, "from", t.From, "to", t.To)
		s.publish(t)
	}
	return t, nil
}

// Delete removes a campaign that has never received a vote.
func (s *Service) Delete(ctx context.Context, id string) error {
	err := store.Transact(ctx, s.store, s.attempts, func(tx store.Tx) error {
		c, err := tx.Campaign(ctx, id)
		if err != nil {
			return err
		}
		if c.TotalVotes > 0 {
			return apperrors.New(apperrors.CodeCampaignLocked, "Campaign with votes cannot be deleted")
		}
		return tx.DeleteCampaign(ctx, id)
	})
	if err != nil {
		return store.ToAppError(err, "Campaign")
	}

	s.logger.Info("campaign deleted", "campaign_id", id)
	return nil
}

// UpdateCampaign edits the fields present in req. An enabled campaign past
// its end time is closed before the edit, so extending the end time never
// revives it; Reopen does that explicitly.
func (s *Service) UpdateCampaign(ctx context.Context, id string, req models.UpdateCampaignRequest) (models.Campaign, error) {
	if req.Title == nil && req.Description == nil && req.EndTime == nil {
		return models.Campaign{}, apperrors.New(apperrors.CodeInvalidArgument, "no fields to update")
	}
	var title string
	if req.Title != nil {
		title = strings.TrimSpace(*req.Title)
		if title == "" {
			return models.Campaign{}, apperrors.New(apperrors.CodeInvalidArgument, "title cannot be empty")
		}
	}
	if req.EndTime != nil && !req.EndTime.After(s.machine.Now()) {
		return models.Campaign{}, apperrors.New(apperrors.CodeInvalidArgument, "end_time must be in the future")
	}

	var updated models.Campaign
	var expiry *Transition
	err := store.Transact(ctx, s.store, s.attempts, func(tx store.Tx) error {
		c, t, err := s.machine.Resolve(ctx, tx, id)
		if err != nil {
			return err
		}
		expiry = t

		if req.Title != nil {
			c.Title = title
		}
		if req.Description != nil {
			c.Description = *req.Description
		}
		if req.EndTime != nil {
			c.EndTime = req.EndTime.UTC()
		}
		if _, err := tx.UpdateCampaign(ctx, id, c.Title, c.Description, c.EndTime); err != nil {
			return err
		}
		updated, err = tx.CampaignWithCandidates(ctx, id)
		return err
	})
	if err != nil {
		return models.Campaign{}, store.ToAppError(err, "Campaign")
	}

	if expiry != nil {
		s.publish(*expiry)
	}
	s.logger.Info("campaign updated", "campaign_id", id)
	s.publishUpdate(models.ChangeCampaignEdited, "", updated)
	return updated, nil
}

// AddCandidate appends a candidate while the campaign has no votes.
func (s *Service) AddCandidate(ctx context.Context, campaignID, name string) (models.Candidate, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Candidate{}, apperrors.New(apperrors.CodeInvalidArgument, "name is required")
	}

	var cand models.Candidate
	var snapshot models.Campaign
	err := store.Transact(ctx, s.store, s.attempts, func(tx store.Tx) error {
		if err := s.checkCandidatesEditable(ctx, tx, campaignID); err != nil {
			return err
		}
		id := auth.NewID()
		if err := tx.InsertCandidate(ctx, models.Candidate{ID: id, CampaignID: campaignID, Name: name}); err != nil {
			return err
		}
		var err error
		if cand, err = tx.Candidate(ctx, campaignID, id); err != nil {
			return err
		}
		snapshot, err = s.touch(ctx, tx, campaignID)
		return err
	})
	if err != nil {
		return models.Candidate{}, store.ToAppError(err, "Campaign")
	}

	s.logger.Info("candidate added", "campaign_id", campaignID, "candidate_id", cand.ID)
	s.publishUpdate(models.ChangeCandidateAdded, cand.ID, snapshot)
	return cand, nil
}

// UpdateCandidate renames a candidate while the campaign has no votes.
func (s *Service) UpdateCandidate(ctx context.Context, campaignID, candidateID, name string) (models.Candidate, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Candidate{}, apperrors.New(apperrors.CodeInvalidArgument, "name is required")
	}

	var cand models.Candidate
	var snapshot models.Campaign
	err := store.Transact(ctx, s.store, s.attempts, func(tx store.Tx) error {
		if err := s.checkCandidatesEditable(ctx, tx, campaignID); err != nil {
			return err
		}
		if _, err := tx.Candidate(ctx, campaignID, candidateID); err != nil {
			return store.ToAppError(err, "Candidate")
		}
		if err := tx.RenameCandidate(ctx, campaignID, candidateID, name); err != nil {
			return err
		}
		var err error
		if cand, err = tx.Candidate(ctx, campaignID, candidateID); err != nil {
			return err
		}
		snapshot, err = s.touch(ctx, tx, campaignID)
		return err
	})
	if err != nil {
		return models.Candidate{}, store.ToAppError(err, "Candidate")
	}

	s.logger.Info("candidate updated", "campaign_id", campaignID, "candidate_id", candidateID)
	s.publishUpdate(models.ChangeCandidateUpdated, candidateID, snapshot)
	return cand, nil
}

// RemoveCandidate deletes a candidate while the campaign has no votes.
func (s *Service) RemoveCandidate(ctx context.Context, campaignID, candidateID string) error {
	var snapshot models.Campaign
	err := store.Transact(ctx, s.store, s.attempts, func(tx store.Tx) error {
		if err := s.checkCandidatesEditable(ctx, tx, campaignID); err != nil {
			return err
		}
		if _, err := tx.Candidate(ctx, campaignID, candidateID); err != nil {
			return store.ToAppError(err, "Candidate")
		}
		if err := tx.DeleteCandidate(ctx, campaignID, candidateID); err != nil {
			return err
		}
		var err error
		snapshot, err = s.touch(ctx, tx, campaignID)
		return err
	})
	if err != nil {
		return store.ToAppError(err, "Candidate")
	}

	s.logger.Info("candidate removed", "campaign_id", campaignID, "candidate_id", candidateID)
	s.publishUpdate(models.ChangeCandidateRemoved, candidateID, snapshot)
	return nil
}

// touch advances the campaign sequence after a candidate change and
// returns the campaign as observers should now see it.
func (s *Service) touch(ctx context.Context, tx store.Tx, campaignID string) (models.Campaign, error) {
	if _, err := tx.BumpCampaignSeq(ctx, campaignID); err != nil {
		return models.Campaign{}, err
	}
	return tx.CampaignWithCandidates(ctx, campaignID)
}

func (s *Service) checkCandidatesEditable(ctx context.Context, tx store.Tx, campaignID string) error {
	c, err := tx.Campaign(ctx, campaignID)
	if err != nil {
		return store.ToAppError(err, "Campaign")
	}
	if c.TotalVotes > 0 {
		return apperrors.New(apperrors.CodeCandidatesLocked, "Candidates cannot change once votes are cast")
	}
	return nil
}

// ExpireDue closes every enabled campaign past its end time and returns
// how many were closed.
func (s *Service) ExpireDue(ctx context.Context) (int, error) {
	var candidates []string
	err := store.Transact(ctx, s.store, 1, func(tx store.Tx) error {
		campaigns, err := tx.ListCampaigns(ctx)
		if err != nil {
			return err
		}
		now := s.machine.Now()
		candidates = candidates[:0]
		for _, c := range campaigns {
			if Expired(c, now) {
				candidates = append(candidates, c.ID)
			}
		}
		return nil
	})
	if err != nil {
		return 0, store.ToAppError(err, "Campaign")
	}

	closed := 0
	for _, id := range candidates {
		var expiry *Transition
		err := store.Transact(ctx, s.store, s.attempts, func(tx store.Tx) error {
			var err error
			_, expiry, err = s.machine.Resolve(ctx, tx, id)
			return err
		})
		if err != nil {
			s.logger.Warn("failed to expire campaign", "campaign_id", id, "error", err)
			continue
		}
		if expiry != nil {
			closed++
			s.logger.Info("campaign expired", "campaign_id", id)
			s.publish(*expiry)
		}
	}
	return closed, nil
}

func (s *Service) publish(t Transition) {
	if s.publisher == nil || !t.Changed() {
		return
	}
	s.publisher.Publish(t.Event())
}

func (s *Service) publishUpdate(change, candidateID string, c models.Campaign) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(models.Event{
		Type:       models.EventCampaignUpdated,
		CampaignID: c.ID,
		Seq:        c.Seq,
		Data: models.CampaignUpdatedData{
			CampaignID:  c.ID,
			Change:      change,
			CandidateID: candidateID,
			Campaign:    c,
			Timestamp:   s.machine.Now(),
		},
	})
}
