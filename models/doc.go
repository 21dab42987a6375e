// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, domain, and event types for the API.

# Request Types

  - CreateCampaignRequest: title, description, end_time, candidates
  - UpdateCampaignRequest: title, description, end_time (all optional)
  - AddCandidateRequest: name
  - UpdateCandidateRequest: name
  - CreateElectorRequest: code, name, quota
  - SetElectorActiveRequest: active
  - CastVoteRequest: campaign_id, candidate_id

# Response Types

  - CastVoteResponse: ballot, votes_remaining
  - RemainingVotesResponse: quota, consumed, remaining
  - CampaignTransitionResponse: campaign, changed
  - ListElectorsResponse: electors
  - ElectorUsageResponse: campaign_id, per-elector quota, used, available
  - ErrorResponse: error, message, code, metadata

# Domain Types

  - Campaign: lifecycle state, time window, candidates and tallies
  - Candidate: vote count within one campaign
  - Elector: voting unit with a fixed quota
  - Ballot: one immutable accepted vote
  - LedgerEntry: votes consumed per (campaign, elector)
  - ElectorUsage: one elector's quota, used and available votes in a campaign
  - Session: identity resolved from a credential

# Events

Event wraps the payload broadcast to observers. Types:

	EventVoteCast         = "vote_cast"
	EventCampaignToggled  = "campaign_toggled"
	EventCampaignClosed   = "campaign_closed"
	EventCampaignReopened = "campaign_reopened"
	EventCampaignUpdated  = "campaign_updated"

A campaign_updated event carries the change kind (campaign_edited,
candidate_added, candidate_updated, candidate_removed) and a snapshot of
the campaign with its candidates.

# Constants

Campaign states:

	StateCreated = "created"
	StateEnabled = "enabled"
	StateClosed  = "closed"
*/
package models
