// Package live fans newly stored messages out to connected stream readers.
package live

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/igoorng/webhook/internal/constants"
	"github.com/igoorng/webhook/internal/logger"
	"github.com/igoorng/webhook/internal/store"
	"github.com/igoorng/webhook/pkg/metrics"
)

var ErrClosed = errors.New("live: hub closed")

// Event is one frame delivered to a reader.
type Event struct {
	Type string         `json:"type"`
	Data *store.Message `json:"data,omitempty"`
}

func NewMessageEvent(msg store.Message) Event {
	return Event{Type: constants.EventTypeNewMessage, Data: &msg}
}

func HeartbeatEvent() Event {
	return Event{Type: constants.EventTypeHeartbeat}
}

// Hub is the process-wide broadcast point. Each subscription owns a bounded
// queue; when it is full the oldest queued message is dropped so Broadcast
// never blocks.
type Hub struct {
	buffer int
	logger logger.Logger

	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	closed bool
}

func NewHub(buffer int, log logger.Logger) *Hub {
	if buffer < 1 {
		buffer = constants.DefaultSubscriberBuffer
	}
	return &Hub{
		buffer: buffer,
		logger: log,
		subs:   make(map[*Subscription]struct{}),
	}
}

type Subscription struct {
	hub     *Hub
	ch      chan store.Message
	done    chan struct{}
	once    sync.Once
	dropped int
}

// Subscribe registers a reader. It only sees messages broadcast after this
// call returns.
func (h *Hub) Subscribe() *Subscription {
	sub := &Subscription{
		hub:  h,
		ch:   make(chan store.Message, h.buffer),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		sub.once.Do(func() { close(sub.done) })
		return sub
	}
	h.subs[sub] = struct{}{}
	metrics.LiveSubscribers.Set(float64(len(h.subs)))
	return sub
}

// Broadcast queues msg for every current reader without blocking.
func (h *Hub) Broadcast(msg store.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs {
		select {
		case sub.ch <- msg:
			continue
		default:
		}

		select {
		case <-sub.ch:
			sub.dropped++
			metrics.LiveDroppedTotal.Inc()
			h.logger.Warnw("Live reader queue full, dropped oldest message",
				"message_id", msg.ID,
				"dropped_total", sub.dropped,
			)
		default:
		}

		select {
		case sub.ch <- msg:
		default:
		}
	}
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[sub]; ok {
		delete(h.subs, sub)
		metrics.LiveSubscribers.Set(float64(len(h.subs)))
	}
}

// Count returns the number of connected readers.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close ends every subscription. Later subscriptions are closed on arrival.
func (h *Hub) Close() {
	h.mu.Lock()
	subs := h.subs
	h.subs = make(map[*Subscription]struct{})
	h.closed = true
	metrics.LiveSubscribers.Set(0)
	h.mu.Unlock()

	for sub := range subs {
		sub.once.Do(func() { close(sub.done) })
	}
}

// Next blocks for the next message. If none arrives within heartbeat a
// heartbeat event is returned instead. It returns ctx.Err() when ctx ends
// and ErrClosed once the subscription or hub is closed.
func (s *Subscription) Next(ctx context.Context, heartbeat time.Duration) (Event, error) {
	if heartbeat <= 0 {
		heartbeat = constants.DefaultHeartbeat
	}

	timer := time.NewTimer(heartbeat)
	defer timer.Stop()

	select {
	case msg := <-s.ch:
		return NewMessageEvent(msg), nil
	case <-timer.C:
		return HeartbeatEvent(), nil
	case <-s.done:
		return Event{}, ErrClosed
	case <-ctx.Done():
		return Event{}, ctx.Err()
	}
}

// Close unregisters the reader. It is safe to call more than once.
func (s *Subscription) Close() {
	s.hub.remove(s)
	s.once.Do(func() { close(s.done) })
}
