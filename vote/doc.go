// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package vote runs the cast-a-vote protocol.

A vote is accepted inside one store transaction that:

  - loads the campaign and closes it first if its end time has passed
  - checks that the campaign is enabled and inside its window
  - checks that the candidate belongs to the campaign
  - checks that the elector exists and is active
  - reserves one unit of the elector's quota for the campaign
  - inserts the ballot, increments the candidate and campaign tallies and
    consumes the reserved quota

Precondition failures abort before any write. Write conflicts restart the
whole sequence in a fresh transaction; when the attempts run out, or the
call times out, the caller gets apperrors.CodeRetryable. Any other store
failure is apperrors.CodeStoreUnavailable.

The vote_cast event is published only after the commit succeeds, tagged with
the campaign sequence the commit produced.
*/
package vote
