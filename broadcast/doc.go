// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package broadcast fans committed campaign events out to connected observers.

A Hub owns one room per campaign with at least one subscriber. Each room
serializes its publishes under its own mutex, so events for one campaign
reach every subscriber in a single order while different campaigns never
contend.

	hub := broadcast.NewHub(broadcast.Options{QueueSize: 64})
	o := hub.Connect()
	hub.Subscribe(o, campaignID, broadcast.UnknownSeq)
	snapshot := readCampaign(campaignID)
	hub.Anchor(o, campaignID, snapshot.Seq)
	defer hub.Disconnect(o)

	for ev := range o.Events() { ... }

# Ordering

Events carry the campaign's store sequence. Each subscriber gets sequence
n+1 only after n; an event that arrives early is held until its
predecessor is published or the gap timeout passes, and events at or below
what the subscriber has seen are discarded. Subscribing before reading the
snapshot and anchoring afterwards means no event falls between the two.

# Slow observers

Publish never blocks. Each observer has a bounded queue; when it is full
the oldest queued event is discarded for that observer only.
*/
package broadcast
