// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package broadcast

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/danielhkuo/quota-vote/models"
)

// Observer is one connected client. Events are queued on a bounded channel
// that the owning connection drains; a full queue drops its oldest event.
type Observer struct {
	id     string
	events chan models.Event
	done   chan struct{}

	closeOnce sync.Once
	dropped   atomic.Int64

	mu        sync.Mutex
	campaigns map[string]struct{}
}

func newObserver(queueSize int) *Observer {
	return &Observer{
		id:        uuid.NewString(),
		events:    make(chan models.Event, queueSize),
		done:      make(chan struct{}),
		campaigns: make(map[string]struct{}),
	}
}

func (o *Observer) ID() string {
	return o.id
}

// Events is the observer's outgoing queue.
func (o *Observer) Events() <-chan models.Event {
	return o.events
}

// Done is closed when the observer is disconnected from the hub.
func (o *Observer) Done() <-chan struct{} {
	return o.done
}

// Dropped counts events discarded because the queue was full.
func (o *Observer) Dropped() int64 {
	return o.dropped.Load()
}

// Campaigns lists the campaigns the observer is subscribed to.
func (o *Observer) Campaigns() []string {
	o.mu.Lock()
	defer o.mu.Unlock()

	ids := make([]string, 0, len(o.campaigns))
	for id := range o.campaigns {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// deliver enqueues ev without blocking and reports whether an older event
// had to be discarded to make room.
func (o *Observer) deliver(ev models.Event) bool {
	select {
	case o.events <- ev:
		return false
	default:
	}

	select {
	case <-o.events:
		o.dropped.Add(1)
	default:
	}

	select {
	case o.events <- ev:
	default:
		o.dropped.Add(1)
	}
	return true
}

func (o *Observer) remember(campaignID string) {
	o.mu.Lock()
	o.campaigns[campaignID] = struct{}{}
	o.mu.Unlock()
}

func (o *Observer) forget(campaignID string) {
	o.mu.Lock()
	delete(o.campaigns, campaignID)
	o.mu.Unlock()
}

func (o *Observer) close() {
	o.closeOnce.Do(func() { close(o.done) })
}

func (o *Observer) closed() bool {
	select {
	case <-o.done:
		return true
	default:
		return false
	}
}
