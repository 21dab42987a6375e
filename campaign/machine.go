// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package campaign

import (
	"context"
	"fmt"
	"time"

	"github.com/danielhkuo/quota-vote/apperrors"
	"github.com/danielhkuo/quota-vote/models"
	"github.com/danielhkuo/quota-vote/store"
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// Transition is the outcome of a lifecycle operation.
type Transition struct {
	Campaign models.Campaign
	From     string
	To       string
	// Kind is the broadcast event type; empty when nothing changed.
	Kind string
	At   time.Time
}

// Changed reports whether the operation wrote a new state.
func (t Transition) Changed() bool {
	return t.Kind != ""
}

// Event builds the broadcast event for a changed transition.
func (t Transition) Event() models.Event {
	return models.Event{
		Type:       t.Kind,
		CampaignID: t.Campaign.ID,
		Seq:        t.Campaign.Seq,
		Data: models.CampaignStateData{
			CampaignID: t.Campaign.ID,
			State:      t.Campaign.State,
			StartTime:  t.Campaign.StartTime,
			EndTime:    t.Campaign.EndTime,
			TotalVotes: t.Campaign.TotalVotes,
			Timestamp:  t.At,
		},
	}
}

// Machine applies lifecycle transitions inside a caller-owned transaction.
// It is the only place that decides whether a campaign has expired.
type Machine struct {
	clock Clock
}

func NewMachine(clock Clock) *Machine {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Machine{clock: clock}
}

func (m *Machine) Now() time.Time {
	return m.clock.Now()
}

// Expired reports whether an enabled campaign has reached its end time.
func Expired(c models.Campaign, now time.Time) bool {
	return c.State == models.StateEnabled && !now.Before(c.EndTime)
}

// Resolve loads the campaign and closes it first if it has expired. The
// returned transition is nil unless the expiry was written.
func (m *Machine) Resolve(ctx context.Context, tx store.Tx, id string) (models.Campaign, *Transition, error) {
	c, err := tx.Campaign(ctx, id)
	if err != nil {
		return models.Campaign{}, nil, store.ToAppError(err, "Campaign")
	}

	now := m.clock.Now()
	if !Expired(c, now) {
		return c, nil, nil
	}

	t, err := m.apply(ctx, tx, c, models.StateClosed, nil, models.EventCampaignClosed, now)
	if err != nil {
		return models.Campaign{}, nil, err
	}
	return t.Campaign, &t, nil
}

// Enable moves a Created or Closed campaign to Enabled. The start time is
// set on the first enable only. Enabling an Enabled campaign is a no-op.
func (m *Machine) Enable(ctx context.Context, tx store.Tx, id string) (Transition, error) {
	c, err := tx.Campaign(ctx, id)
	if err != nil {
		return Transition{}, store.ToAppError(err, "Campaign")
	}

	now := m.clock.Now()
	if !now.Before(c.EndTime) {
		return Transition{}, invalidTransition(c, models.StateEnabled, "campaign window has ended")
	}

	switch c.State {
	case models.StateEnabled:
		return unchanged(c, now), nil
	case models.StateCreated, models.StateClosed:
		var start *time.Time
		if c.StartTime == nil {
			start = &now
		}
		return m.apply(ctx, tx, c, models.StateEnabled, start, models.EventCampaignToggled, now)
	default:
		return Transition{}, invalidTransition(c, models.StateEnabled, "unknown state")
	}
}

// Close moves any campaign to Closed. Closing a Closed campaign is a no-op.
func (m *Machine) Close(ctx context.Context, tx store.Tx, id string) (Transition, error) {
	c, expiry, err := m.Resolve(ctx, tx, id)
	if err != nil {
		return Transition{}, err
	}
	if expiry != nil {
		return *expiry, nil
	}

	now := m.clock.Now()
	if c.State == models.StateClosed {
		return unchanged(c, now), nil
	}
	return m.apply(ctx, tx, c, models.StateClosed, nil, models.EventCampaignClosed, now)
}

// Reopen moves a Closed campaign back to Enabled. Ballots and the ledger
// are kept; the start time is only set if the campaign was never enabled.
func (m *Machine) Reopen(ctx context.Context, tx store.Tx, id string) (Transition, error) {
	c, expiry, err := m.Resolve(ctx, tx, id)
	if err != nil {
		return Transition{}, err
	}
	if expiry != nil {
		return Transition{}, invalidTransition(expiry.Campaign, models.StateEnabled, "campaign window has ended")
	}
	if c.State != models.StateClosed {
		return Transition{}, invalidTransition(c, models.StateEnabled, "only closed campaigns can be reopened")
	}

	now := m.clock.Now()
	if !now.Before(c.EndTime) {
		return Transition{}, invalidTransition(c, models.StateEnabled, "campaign window has ended")
	}
	var start *time.Time
	if c.StartTime == nil {
		start = &now
	}
	return m.apply(ctx, tx, c, models.StateEnabled, start, models.EventCampaignReopened, now)
}

// CheckAcceptingVotes gates vote acceptance on a resolved campaign.
func CheckAcceptingVotes(c models.Campaign, now time.Time) error {
	switch c.State {
	case models.StateClosed:
		return apperrors.New(apperrors.CodeCampaignClosed, "Campaign is closed")
	case models.StateEnabled:
	default:
		return apperrors.WithMetadata(apperrors.CodeNotAcceptingVotes, "Campaign is not enabled", map[string]string{
			"reason": apperrors.ReasonNotEnabled,
		})
	}

	if c.StartTime == nil || now.Before(*c.StartTime) {
		return apperrors.WithMetadata(apperrors.CodeNotAcceptingVotes, "Campaign has not started", map[string]string{
			"reason": apperrors.ReasonNotStarted,
		})
	}
	if !now.Before(c.EndTime) {
		return apperrors.New(apperrors.CodeCampaignClosed, "Campaign voting has ended")
	}
	return nil
}

func (m *Machine) apply(ctx context.Context, tx store.Tx, c models.Campaign, to string, start *time.Time, kind string, now time.Time) (Transition, error) {
	seq, err := tx.SetCampaignState(ctx, c.ID, to, start)
	if err != nil {
		return Transition{}, store.ToAppError(fmt.Errorf("%s -> %s: %w", c.State, to, err), "Campaign")
	}

	from := c.State
	c.State = to
	c.Seq = seq
	if start != nil {
		st := *start
		c.StartTime = &st
	}
	return Transition{Campaign: c, From: from, To: to, Kind: kind, At: now}, nil
}

func unchanged(c models.Campaign, now time.Time) Transition {
	return Transition{Campaign: c, From: c.State, To: c.State, At: now}
}

func invalidTransition(c models.Campaign, to, message string) error {
	return apperrors.WithMetadata(apperrors.CodeInvalidTransition, message, map[string]string{
		"from": c.State,
		"to":   to,
	})
}
