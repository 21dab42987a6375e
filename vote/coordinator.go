// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package vote

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/danielhkuo/quota-vote/apperrors"
	"github.com/danielhkuo/quota-vote/auth"
	"github.com/danielhkuo/quota-vote/campaign"
	"github.com/danielhkuo/quota-vote/ledger"
	"github.com/danielhkuo/quota-vote/models"
	"github.com/danielhkuo/quota-vote/store"
	"github.com/danielhkuo/quota-vote/telemetry"
)

const (
	DefaultAttempts = 3
	DefaultTimeout  = 5 * time.Second
)

// Options tunes a Coordinator. Zero values take the defaults.
type Options struct {
	Attempts   int
	Timeout    time.Duration
	IPHashSalt string
}

// RequestMeta is the provenance recorded with a ballot.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// Coordinator accepts votes.
type Coordinator struct {
	store     store.Store
	machine   *campaign.Machine
	publisher campaign.Publisher
	attempts  int
	timeout   time.Duration
	ipSalt    string
	tracer    trace.Tracer
	logger    *slog.Logger
}

func NewCoordinator(st store.Store, machine *campaign.Machine, publisher campaign.Publisher, opts Options) *Coordinator {
	if opts.Attempts < 1 {
		opts.Attempts = DefaultAttempts
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Coordinator{
		store:     st,
		machine:   machine,
		publisher: publisher,
		attempts:  opts.Attempts,
		timeout:   opts.Timeout,
		ipSalt:    opts.IPHashSalt,
		tracer:    telemetry.Tracer("github.com/danielhkuo/quota-vote/vote"),
		logger:    slog.Default().With("module", "vote"),
	}
}

// accepted is what one successful attempt produced.
type accepted struct {
	ballot    models.Ballot
	remaining int
	event     models.Event
}

// CastVote records one vote by electorID for candidateID in campaignID.
func (c *Coordinator) CastVote(ctx context.Context, campaignID, electorID, candidateID string, meta RequestMeta) (models.CastVoteResponse, error) {
	campaignID = strings.TrimSpace(campaignID)
	candidateID = strings.TrimSpace(candidateID)
	if campaignID == "" {
		return models.CastVoteResponse{}, apperrors.New(apperrors.CodeInvalidArgument, "campaign_id is required")
	}
	if candidateID == "" {
		return models.CastVoteResponse{}, apperrors.New(apperrors.CodeInvalidArgument, "candidate_id is required")
	}

	ctx, span := c.tracer.Start(ctx, "vote.cast", trace.WithAttributes(
		attribute.String("campaign.id", campaignID),
		attribute.String("candidate.id", candidateID),
		attribute.String("elector.id", electorID),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var ipHash string
	if meta.IP != "" {
		ipHash = auth.HashIP(meta.IP, c.ipSalt)
	}

	attempts := 0
	var result *accepted
	var expiry *campaign.Transition
	err := store.Transact(ctx, c.store, c.attempts, func(tx store.Tx) error {
		attempts++
		result, expiry = nil, nil

		camp, t, err := c.machine.Resolve(ctx, tx, campaignID)
		if err != nil {
			return err
		}
		if t != nil {
			// commit the expiry; the vote itself is refused below
			expiry = t
			return nil
		}

		now := c.machine.Now()
		if err := campaign.CheckAcceptingVotes(camp, now); err != nil {
			return err
		}

		cand, err := tx.Candidate(ctx, campaignID, candidateID)
		if errors.Is(err, store.ErrNotFound) {
			return apperrors.Wrap(apperrors.CodeCandidateNotFound, "Candidate not found in this campaign", err)
		}
		if err != nil {
			return err
		}

		elector, err := tx.Elector(ctx, electorID)
		if errors.Is(err, store.ErrNotFound) {
			return apperrors.Wrap(apperrors.CodeElectorNotEligible, "Elector not found", err)
		}
		if err != nil {
			return err
		}
		if !elector.Active {
			return apperrors.New(apperrors.CodeElectorNotEligible, "Elector is not active")
		}

		before, err := ledger.Reserve(ctx, tx, campaignID, elector.ID, elector.Quota)
		if err != nil {
			return err
		}

		ballot := models.Ballot{
			ID:          auth.NewID(),
			CampaignID:  campaignID,
			ElectorID:   elector.ID,
			CandidateID: cand.ID,
			CastAt:      now,
			IPHash:      ipHash,
			UserAgent:   meta.UserAgent,
		}
		if err := tx.InsertBallot(ctx, ballot); err != nil {
			return err
		}

		candidateVotes, totalVotes, seq, err := tx.IncrementTally(ctx, campaignID, cand.ID)
		if err != nil {
			return err
		}

		if err := ledger.Consume(ctx, tx, campaignID, elector.ID, elector.Quota, before); err != nil {
			return err
		}

		result = &accepted{
			ballot:    ballot,
			remaining: elector.Quota - (before + 1),
			event: models.Event{
				Type:       models.EventVoteCast,
				CampaignID: campaignID,
				Seq:        seq,
				Data: models.VoteCastData{
					CampaignID:    campaignID,
					CandidateID:   cand.ID,
					CandidateName: cand.Name,
					ElectorName:   elector.Name,
					NewVoteCount:  candidateVotes,
					NewTotalVotes: totalVotes,
					Timestamp:     now,
				},
			},
		}
		return nil
	})
	span.SetAttributes(attribute.Int("vote.attempts", attempts))

	if err != nil {
		err = c.classify(ctx, err, "Vote timed out, try again")
		code := apperrors.CodeOf(err)
		span.SetStatus(codes.Error, string(code))
		switch code {
		case apperrors.CodeStoreUnavailable:
			c.logger.Error("vote failed", "campaign_id", campaignID, "elector_id", electorID, "attempts", attempts, "error", err)
		case apperrors.CodeRetryable:
			c.logger.Warn("vote gave up", "campaign_id", campaignID, "elector_id", electorID, "attempts", attempts, "error", err)
		}
		return models.CastVoteResponse{}, err
	}

	if expiry != nil {
		c.publish(expiry.Event())
		span.SetStatus(codes.Error, string(apperrors.CodeCampaignClosed))
		return models.CastVoteResponse{}, apperrors.New(apperrors.CodeCampaignClosed, "Campaign voting has ended")
	}

	c.publish(result.event)
	c.logger.Info("vote cast",
		"campaign_id", campaignID,
		"candidate_id", candidateID,
		"elector_id", electorID,
		"ballot_id", result.ballot.ID,
		"attempts", attempts,
	)

	return models.CastVoteResponse{
		Ballot:         result.ballot,
		VotesRemaining: result.remaining,
	}, nil
}

// Remaining reports the elector's quota usage in a campaign. Reading it
// applies passive expiry like any other campaign read.
func (c *Coordinator) Remaining(ctx context.Context, campaignID, electorID string) (models.RemainingVotesResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var resp models.RemainingVotesResponse
	var expiry *campaign.Transition
	err := store.Transact(ctx, c.store, c.attempts, func(tx store.Tx) error {
		var err error
		_, expiry, err = c.machine.Resolve(ctx, tx, campaignID)
		if err != nil {
			return err
		}

		elector, err := tx.Elector(ctx, electorID)
		if errors.Is(err, store.ErrNotFound) {
			return apperrors.Wrap(apperrors.CodeElectorNotEligible, "Elector not found", err)
		}
		if err != nil {
			return err
		}

		resp, err = ledger.Remaining(ctx, tx, campaignID, elector)
		return err
	})
	if err != nil {
		return models.RemainingVotesResponse{}, c.classify(ctx, err, "Request timed out, try again")
	}

	if expiry != nil {
		c.publish(expiry.Event())
	}
	return resp, nil
}

// classify maps a failed transaction onto the error taxonomy. A call whose
// deadline passed is retryable with timeoutMsg whatever the driver reported.
func (c *Coordinator) classify(ctx context.Context, err error, timeoutMsg string) error {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	if ctx.Err() != nil {
		return apperrors.Wrap(apperrors.CodeRetryable, timeoutMsg, err)
	}
	return store.ToAppError(err, "Campaign")
}

func (c *Coordinator) publish(ev models.Event) {
	if c.publisher == nil {
		return
	}
	c.publisher.Publish(ev)
}
