// Package fanout is the in-process notification hub: ephemeral, best-effort
// delivery of alert updates to currently connected subscribers. Nothing is
// persisted and nothing is replayed; a late subscriber starts from silence.
package fanout

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"workguard360/core/metrics"
)

// TopicGlobal receives every alert update. Connected subscribers are
// members implicitly.
const TopicGlobal = "alerts"

// TypeTopic names the per-type topic ("alerts:security" etc).
func TypeTopic(alertType string) string {
	return "alerts:" + strings.ToLower(strings.TrimSpace(alertType))
}

type Event struct {
	Name  string          `json:"event"`
	Topic string          `json:"topic"`
	Data  json.RawMessage `json:"data"`
}

type Subscription struct {
	C chan Event

	mu     sync.Mutex
	topics map[string]struct{}
	closed bool
}

func (s *Subscription) member(topic string) bool {
	if topic == TopicGlobal {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.topics[topic]
	return ok
}

// Join adds a type-scoped topic. Global membership is unaffected.
func (s *Subscription) Join(topic string) {
	if topic == "" || topic == TopicGlobal {
		return
	}
	s.mu.Lock()
	s.topics[topic] = struct{}{}
	s.mu.Unlock()
}

func (s *Subscription) Leave(topic string) {
	if topic == TopicGlobal {
		return
	}
	s.mu.Lock()
	delete(s.topics, topic)
	s.mu.Unlock()
}

type Hub struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	buffer int
	logger zerolog.Logger
}

func NewHub(buffer int, logger zerolog.Logger) *Hub {
	if buffer <= 0 {
		buffer = 32
	}
	return &Hub{
		subs:   make(map[*Subscription]struct{}),
		buffer: buffer,
		logger: logger,
	}
}

func (h *Hub) Subscribe() *Subscription {
	sub := &Subscription{
		C:      make(chan Event, h.buffer),
		topics: make(map[string]struct{}),
	}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	metrics.StreamSubscribers.Inc()
	return sub
}

func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	h.mu.Lock()
	_, present := h.subs[sub]
	delete(h.subs, sub)
	h.mu.Unlock()
	if !present {
		return
	}
	sub.mu.Lock()
	if !sub.closed {
		sub.closed = true
		close(sub.C)
	}
	sub.mu.Unlock()
	metrics.StreamSubscribers.Dec()
}

// Publish delivers the event to every current member of the topic. Sends
// never block: a subscriber with a full buffer loses the event, which is
// acceptable under at-most-once semantics.
func (h *Hub) Publish(topic string, name string, data json.RawMessage) {
	event := Event{Name: name, Topic: topic, Data: data}
	h.mu.RLock()
	subs := make([]*Subscription, 0, len(h.subs))
	for sub := range h.subs {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()
	for _, sub := range subs {
		if !sub.member(topic) {
			continue
		}
		sub.mu.Lock()
		if sub.closed {
			sub.mu.Unlock()
			continue
		}
		select {
		case sub.C <- event:
			sub.mu.Unlock()
			metrics.FanoutEvents.WithLabelValues("delivered").Inc()
		default:
			sub.mu.Unlock()
			metrics.FanoutEvents.WithLabelValues("dropped").Inc()
			h.logger.Warn().Str("topic", topic).Msg("subscriber buffer full, event dropped")
		}
	}
}

// SubscriberCount reports current connections (used by tests and the
// health endpoint).
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
