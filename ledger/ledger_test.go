// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ledger_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/quota-vote/apperrors"
	"github.com/danielhkuo/quota-vote/ledger"
	"github.com/danielhkuo/quota-vote/models"
	"github.com/danielhkuo/quota-vote/store"
	"github.com/danielhkuo/quota-vote/testutil"
)

func TestReserveConsume_StopsAtQuota(t *testing.T) {
	ctx := context.Background()
	st := testutil.SetupTestDB(t)
	c := testutil.CreateTestCampaign(t, st, models.StateEnabled, "Ana")
	e := testutil.CreateTestElector(t, st, 2, true)

	spend := func() error {
		return store.Transact(ctx, st, 1, func(tx store.Tx) error {
			before, err := ledger.Reserve(ctx, tx, c.ID, e.ID, e.Quota)
			if err != nil {
				return err
			}
			return ledger.Consume(ctx, tx, c.ID, e.ID, e.Quota, before)
		})
	}

	require.NoError(t, spend())
	require.NoError(t, spend())

	err := spend()
	var appErr *apperrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeQuotaExhausted, appErr.Code)
	assert.Equal(t, "2", appErr.Metadata["quota"])
	assert.Equal(t, "2", appErr.Metadata["consumed"])
}

func TestConsume_DetectsConcurrentSpend(t *testing.T) {
	ctx := context.Background()
	st := testutil.SetupTestDB(t)
	c := testutil.CreateTestCampaign(t, st, models.StateEnabled, "Ana")
	e := testutil.CreateTestElector(t, st, 1, true)

	err := store.Transact(ctx, st, 1, func(tx store.Tx) error {
		// another writer took the only vote after this one read the ledger
		if _, err := tx.ConsumeQuota(ctx, c.ID, e.ID, e.Quota); err != nil {
			return err
		}
		return ledger.Consume(ctx, tx, c.ID, e.ID, e.Quota, 0)
	})
	assert.True(t, errors.Is(err, store.ErrWriteConflict))

	var consumed int
	err = store.Transact(ctx, st, 1, func(tx store.Tx) error {
		var err error
		consumed, err = tx.LedgerConsumed(ctx, c.ID, e.ID)
		return err
	})
	require.NoError(t, err)
	assert.Zero(t, consumed, "aborted transaction leaves the ledger untouched")
}

func TestRemaining(t *testing.T) {
	ctx := context.Background()
	st := testutil.SetupTestDB(t)
	c := testutil.CreateTestCampaign(t, st, models.StateEnabled, "Ana")
	other := testutil.CreateTestCampaign(t, st, models.StateEnabled, "Luis")
	e := testutil.CreateTestElector(t, st, 3, true)

	err := store.Transact(ctx, st, 1, func(tx store.Tx) error {
		return ledger.Consume(ctx, tx, c.ID, e.ID, e.Quota, 0)
	})
	require.NoError(t, err)

	var got, untouched models.RemainingVotesResponse
	err = store.Transact(ctx, st, 1, func(tx store.Tx) error {
		var err error
		if got, err = ledger.Remaining(ctx, tx, c.ID, e); err != nil {
			return err
		}
		untouched, err = ledger.Remaining(ctx, tx, other.ID, e)
		return err
	})
	require.NoError(t, err)

	assert.Equal(t, models.RemainingVotesResponse{Quota: 3, Consumed: 1, Remaining: 2}, got)
	assert.Equal(t, models.RemainingVotesResponse{Quota: 3, Consumed: 0, Remaining: 3}, untouched, "quota is per campaign")
}
