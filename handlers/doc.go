// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP and websocket handlers for the quota-vote API.

# Handler Types

  - CampaignHandler: campaign lifecycle and candidates
  - ElectorHandler: elector registration and session issuance
  - VotingHandler: vote casting and remaining quota
  - WebSocketHandler: live tally subscriptions

Handlers hold no state of their own; they translate requests into calls
on campaign.Service, vote.Coordinator or the store, and render failures
through middleware.AppError so every error carries its code.

# Campaign Lifecycle

	created → enabled ⇄ closed

Enabling sets the start time once. Closing is idempotent, and a campaign
whose end time has passed is closed the next time anyone touches it.

# Websocket Protocol

Clients send JSON frames:

	{"type":"subscribe","campaign_id":"..."}
	{"type":"unsubscribe","campaign_id":"..."}
	{"type":"ping"}

The server acknowledges a subscription with a "subscribed" frame holding
the campaign snapshot and its sequence, then streams vote_cast and
campaign state events in sequence order. Failures are "error" frames
with a code; the connection stays open.
*/
package handlers
