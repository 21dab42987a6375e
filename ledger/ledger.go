// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package ledger enforces that an elector never consumes more than its quota
// in a campaign.
package ledger

import (
	"context"
	"fmt"

	"github.com/danielhkuo/quota-vote/apperrors"
	"github.com/danielhkuo/quota-vote/models"
	"github.com/danielhkuo/quota-vote/store"
)

// Reserve reads the votes consumed by electorID in campaignID and fails with
// CodeQuotaExhausted when no quota remains. It must run inside tx; the
// caller increments the entry with Consume as part of the same transaction.
func Reserve(ctx context.Context, tx store.Tx, campaignID, electorID string, quota int) (int, error) {
	consumed, err := tx.LedgerConsumed(ctx, campaignID, electorID)
	if err != nil {
		return 0, fmt.Errorf("reserve: %w", err)
	}
	if consumed >= quota {
		return consumed, apperrors.WithMetadata(apperrors.CodeQuotaExhausted, "No votes remaining for this campaign", map[string]string{
			"quota":    fmt.Sprint(quota),
			"consumed": fmt.Sprint(consumed),
		})
	}
	return consumed, nil
}

// Consume increments the entry created or read by Reserve. A concurrent
// writer that consumed the last vote first surfaces as store.ErrWriteConflict.
func Consume(ctx context.Context, tx store.Tx, campaignID, electorID string, quota, consumedBefore int) error {
	consumed, err := tx.ConsumeQuota(ctx, campaignID, electorID, quota)
	if err != nil {
		return err
	}
	if consumed != consumedBefore+1 {
		return fmt.Errorf("ledger moved from %d to %d: %w", consumedBefore, consumed, store.ErrWriteConflict)
	}
	return nil
}

// Remaining reports quota usage for one elector in one campaign.
func Remaining(ctx context.Context, tx store.Tx, campaignID string, elector models.Elector) (models.RemainingVotesResponse, error) {
	consumed, err := tx.LedgerConsumed(ctx, campaignID, elector.ID)
	if err != nil {
		return models.RemainingVotesResponse{}, fmt.Errorf("remaining: %w", err)
	}
	remaining := elector.Quota - consumed
	if remaining < 0 {
		remaining = 0
	}
	return models.RemainingVotesResponse{
		Quota:     elector.Quota,
		Consumed:  consumed,
		Remaining: remaining,
	}, nil
}
