// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"errors"
	"time"

	"github.com/danielhkuo/quota-vote/models"
)

var (
	// ErrNotFound is returned when a looked-up row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrWriteConflict signals the transaction lost a race and may be retried.
	ErrWriteConflict = errors.New("write conflict")

	// ErrConstraint is returned when a write violates a uniqueness or check constraint.
	ErrConstraint = errors.New("constraint violation")
)

// Store opens transactions against the durable store.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
}

// Tx is a transaction handle. All reads and writes made through it commit
// or abort together.
type Tx interface {
	Commit() error
	Rollback() error

	// Campaign reads the campaign row without candidates. Implementations
	// that support row locks lock it for the rest of the transaction.
	Campaign(ctx context.Context, id string) (models.Campaign, error)
	CampaignWithCandidates(ctx context.Context, id string) (models.Campaign, error)
	ListCampaigns(ctx context.Context) ([]models.Campaign, error)
	InsertCampaign(ctx context.Context, c models.Campaign) error
	// SetCampaignState writes state and start time and returns the new
	// campaign sequence.
	SetCampaignState(ctx context.Context, id, state string, startTime *time.Time) (int64, error)
	// UpdateCampaign writes the editable fields and returns the new
	// campaign sequence.
	UpdateCampaign(ctx context.Context, id, title, description string, endTime time.Time) (int64, error)
	// BumpCampaignSeq advances the campaign sequence for a change that
	// touched only child rows.
	BumpCampaignSeq(ctx context.Context, id string) (int64, error)
	DeleteCampaign(ctx context.Context, id string) error

	Candidate(ctx context.Context, campaignID, candidateID string) (models.Candidate, error)
	InsertCandidate(ctx context.Context, c models.Candidate) error
	RenameCandidate(ctx context.Context, campaignID, candidateID, name string) error
	DeleteCandidate(ctx context.Context, campaignID, candidateID string) error

	Elector(ctx context.Context, id string) (models.Elector, error)
	InsertElector(ctx context.Context, e models.Elector) error
	SetElectorActive(ctx context.Context, id string, active bool) error
	ListElectors(ctx context.Context) ([]models.Elector, error)
	// ElectorUsage lists every active elector with its consumption in the
	// campaign; electors without a ledger entry report zero used.
	ElectorUsage(ctx context.Context, campaignID string) ([]models.ElectorUsage, error)

	// LedgerConsumed returns 0 when no entry exists.
	LedgerConsumed(ctx context.Context, campaignID, electorID string) (int, error)
	// ConsumeQuota increments the ledger entry only while consumed < quota,
	// creating it at 1 if absent. It returns ErrWriteConflict when the
	// condition no longer holds.
	ConsumeQuota(ctx context.Context, campaignID, electorID string, quota int) (int, error)

	InsertBallot(ctx context.Context, b models.Ballot) error
	CountBallots(ctx context.Context, campaignID, electorID string) (int, error)

	// IncrementTally adds one vote to the candidate and the campaign total and
	// returns the new candidate count, campaign total and campaign sequence.
	IncrementTally(ctx context.Context, campaignID, candidateID string) (candidateVotes, totalVotes, seq int64, err error)
}

// IsRetryable reports whether err came from a lost transaction race.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrWriteConflict)
}
