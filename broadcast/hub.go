// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package broadcast

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/danielhkuo/quota-vote/models"
)

const (
	DefaultQueueSize  = 64
	DefaultGapTimeout = 250 * time.Millisecond
)

type Options struct {
	// QueueSize bounds each observer's outgoing queue.
	QueueSize int
	// GapTimeout is how long a room holds an early event waiting for its
	// predecessor.
	GapTimeout time.Duration
}

// Hub maps campaigns to their subscribed observers.
type Hub struct {
	queueSize  int
	gapTimeout time.Duration

	mu        sync.Mutex
	rooms     map[string]*campaignRoom
	observers map[*Observer]struct{}
}

func NewHub(opts Options) *Hub {
	if opts.QueueSize < 1 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.GapTimeout <= 0 {
		opts.GapTimeout = DefaultGapTimeout
	}
	return &Hub{
		queueSize:  opts.QueueSize,
		gapTimeout: opts.GapTimeout,
		rooms:      make(map[string]*campaignRoom),
		observers:  make(map[*Observer]struct{}),
	}
}

// Connect registers a new observer with no subscriptions.
func (h *Hub) Connect() *Observer {
	o := newObserver(h.queueSize)

	h.mu.Lock()
	h.observers[o] = struct{}{}
	h.mu.Unlock()

	return o
}

// UnknownSeq is the Subscribe baseline for an observer that has not read
// its snapshot yet. Its events are held until Anchor is called.
const UnknownSeq int64 = -1

// Subscribe adds o to campaignID. baseline is the campaign sequence the
// observer has already seen, or UnknownSeq. It reports whether the
// subscription is new; repeated calls are no-ops.
//
// To pair a subscription with a snapshot, subscribe with UnknownSeq, read
// the snapshot, then Anchor at the snapshot's sequence. Events committed
// after the read are then delivered and those before it are not.
func (h *Hub) Subscribe(o *Observer, campaignID string, baseline int64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if o.closed() {
		return false
	}

	r, ok := h.rooms[campaignID]
	if !ok {
		r = newCampaignRoom(campaignID, h.gapTimeout)
		h.rooms[campaignID] = r
	}
	added := r.join(o, baseline)
	o.remember(campaignID)
	return added
}

// Anchor records that o has seen campaignID up to seq and releases the
// events held since o subscribed with UnknownSeq. It reports whether o was
// waiting for an anchor.
func (h *Hub) Anchor(o *Observer, campaignID string, seq int64) bool {
	h.mu.Lock()
	r := h.rooms[campaignID]
	h.mu.Unlock()

	if r == nil {
		return false
	}
	return r.anchor(o, seq)
}

// Unsubscribe removes o from campaignID. Rooms without subscribers are dropped.
func (h *Hub) Unsubscribe(o *Observer, campaignID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unsubscribeLocked(o, campaignID)
}

func (h *Hub) unsubscribeLocked(o *Observer, campaignID string) {
	o.forget(campaignID)

	r, ok := h.rooms[campaignID]
	if !ok {
		return
	}
	if r.leave(o) == 0 {
		delete(h.rooms, campaignID)
		r.close()
	}
}

// UnsubscribeAll removes every subscription held by o.
func (h *Hub) UnsubscribeAll(o *Observer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unsubscribeAllLocked(o)
}

func (h *Hub) unsubscribeAllLocked(o *Observer) {
	for _, id := range o.Campaigns() {
		h.unsubscribeLocked(o, id)
	}
}

// Disconnect removes all of o's subscriptions and closes its Done channel.
func (h *Hub) Disconnect(o *Observer) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.unsubscribeAllLocked(o)
	delete(h.observers, o)
	o.close()
}

// Publish delivers ev to the current subscribers of ev.CampaignID. It never
// blocks on observers.
func (h *Hub) Publish(ev models.Event) {
	h.mu.Lock()
	r := h.rooms[ev.CampaignID]
	h.mu.Unlock()

	if r == nil {
		return
	}
	r.publish(ev)
}

// Stats reports connection and subscription counts.
func (h *Hub) Stats() models.ConnectionStats {
	h.mu.Lock()
	defer h.mu.Unlock()

	stats := models.ConnectionStats{
		TotalConnections: len(h.observers),
		TotalCampaigns:   len(h.rooms),
		Campaigns:        make([]models.CampaignStats, 0, len(h.rooms)),
	}
	for id, r := range h.rooms {
		stats.Campaigns = append(stats.Campaigns, models.CampaignStats{
			CampaignID:  id,
			Subscribers: r.size(),
		})
	}
	sort.Slice(stats.Campaigns, func(i, j int) bool {
		return stats.Campaigns[i].CampaignID < stats.Campaigns[j].CampaignID
	})
	return stats
}

// Close disconnects every observer.
func (h *Hub) Close() {
	h.mu.Lock()
	observers := make([]*Observer, 0, len(h.observers))
	for o := range h.observers {
		observers = append(observers, o)
	}
	h.mu.Unlock()

	for _, o := range observers {
		h.Disconnect(o)
	}
	slog.Info("broadcast hub closed", "observers", len(observers))
}
