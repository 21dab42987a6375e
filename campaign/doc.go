// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package campaign governs the campaign lifecycle.

# States

	created ──enable──▶ enabled ──close / expiry──▶ closed
	                       ▲                          │
	                       └─────reopen / enable──────┘

enable sets start_time on the first transition only. close is idempotent.
reopen is valid from closed only and keeps start_time, ballots and the
quota ledger.

# Expiry

An enabled campaign whose end_time has passed is closed lazily by
Machine.Resolve, which every read and every vote goes through inside its
own transaction. The Sweeper closes expired campaigns nobody touched.

# Machine vs Service

Machine methods take a store.Tx and never commit. The vote coordinator
calls them inside its own transaction. Service wraps each admin operation
in a transaction, retries write conflicts, and publishes the committed
transition.
*/
package campaign
