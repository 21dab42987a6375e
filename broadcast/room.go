// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package broadcast

import (
	"log/slog"
	"sync"
	"time"

	"github.com/danielhkuo/quota-vote/models"
)

// campaignRoom fans events for one campaign out to its subscribers. Each
// member is sequenced on its own: it receives sequence n+1 only after n,
// and an early event waits in the member's pending set until its
// predecessor is published or gapTimeout passes.
type campaignRoom struct {
	id         string
	gapTimeout time.Duration

	mu      sync.Mutex
	members map[*Observer]*member
	timer   *time.Timer
	closed  bool
}

// member is one observer's position in the room. An unanchored member
// holds every event until Anchor tells it which sequence it has seen.
type member struct {
	anchored bool
	next     int64
	held     []models.Event
	pending  map[int64]models.Event
}

func newMember(baseline int64) *member {
	m := &member{pending: make(map[int64]models.Event)}
	if baseline >= 0 {
		m.anchored = true
		m.next = baseline + 1
	}
	return m
}

func newCampaignRoom(id string, gapTimeout time.Duration) *campaignRoom {
	return &campaignRoom{
		id:         id,
		gapTimeout: gapTimeout,
		members:    make(map[*Observer]*member),
	}
}

func (r *campaignRoom) join(o *Observer, baseline int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.members[o]; ok {
		return false
	}
	r.members[o] = newMember(baseline)
	return true
}

// anchor sets the sequence o has already seen and releases held events
// newer than it. Anchoring an anchored member is a no-op.
func (r *campaignRoom) anchor(o *Observer, seq int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.members[o]
	if !ok || m.anchored {
		return false
	}
	m.anchored = true
	m.next = seq + 1
	held := m.held
	m.held = nil
	for _, ev := range held {
		r.offer(o, m, ev)
	}
	return true
}

// leave removes o and returns the number of remaining subscribers.
func (r *campaignRoom) leave(o *Observer) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.members, o)
	return len(r.members)
}

func (r *campaignRoom) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

func (r *campaignRoom) publish(ev models.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	for o, m := range r.members {
		if !m.anchored {
			m.held = append(m.held, ev)
			continue
		}
		r.offer(o, m, ev)
	}
}

// offer applies ev to an anchored member. Caller holds r.mu.
func (r *campaignRoom) offer(o *Observer, m *member, ev models.Event) {
	switch {
	case ev.Seq == 0:
		r.deliver(o, ev)
	case ev.Seq == m.next:
		r.deliver(o, ev)
		m.next = ev.Seq + 1
		r.drain(o, m)
	case ev.Seq < m.next:
		slog.Debug("dropping stale event", "campaign_id", r.id, "observer_id", o.ID(), "seq", ev.Seq, "next", m.next)
	default:
		m.pending[ev.Seq] = ev
		r.armTimer()
	}
}

// drain delivers the member's consecutive pending events. Caller holds r.mu.
func (r *campaignRoom) drain(o *Observer, m *member) {
	for {
		ev, ok := m.pending[m.next]
		if !ok {
			return
		}
		delete(m.pending, m.next)
		r.deliver(o, ev)
		m.next++
	}
}

// armTimer starts the gap timer unless it is running. Caller holds r.mu.
func (r *campaignRoom) armTimer() {
	if r.timer != nil {
		return
	}
	r.timer = time.AfterFunc(r.gapTimeout, r.skipGap)
}

// skipGap gives up on missing sequence numbers and resumes each waiting
// member from its lowest pending event.
func (r *campaignRoom) skipGap() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.timer = nil
	if r.closed {
		return
	}

	for o, m := range r.members {
		if len(m.pending) == 0 {
			continue
		}
		lowest := int64(-1)
		for seq := range m.pending {
			if lowest == -1 || seq < lowest {
				lowest = seq
			}
		}
		slog.Warn("sequence gap, skipping", "campaign_id", r.id, "observer_id", o.ID(), "from", m.next, "to", lowest)
		m.next = lowest
		r.drain(o, m)
		if len(m.pending) > 0 {
			r.armTimer()
		}
	}
}

// deliver hands ev to o's queue. Caller holds r.mu.
func (r *campaignRoom) deliver(o *Observer, ev models.Event) {
	if o.deliver(ev) {
		slog.Warn("observer queue full, dropped oldest event",
			"observer_id", o.ID(),
			"campaign_id", r.id,
			"dropped_total", o.Dropped(),
		)
	}
}

func (r *campaignRoom) close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.members = nil
}
