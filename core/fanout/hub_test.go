package fanout

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func recv(t *testing.T, ch chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func expectNone(t *testing.T, ch chan Event) {
	t.Helper()
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event %q on topic %q", ev.Name, ev.Topic)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestGlobalTopicImplicit(t *testing.T) {
	hub := NewHub(4, zerolog.Nop())
	sub := hub.Subscribe()
	defer hub.Unsubscribe(sub)

	hub.Publish(TopicGlobal, "alertUpdated", json.RawMessage(`{"id":"a1"}`))
	ev := recv(t, sub.C)
	if ev.Name != "alertUpdated" || ev.Topic != TopicGlobal {
		t.Fatalf("got %q on %q", ev.Name, ev.Topic)
	}
}

func TestTypeTopicRequiresJoin(t *testing.T) {
	hub := NewHub(4, zerolog.Nop())
	sub := hub.Subscribe()
	defer hub.Unsubscribe(sub)

	hub.Publish(TypeTopic("security"), "alertTypeUpdated", nil)
	expectNone(t, sub.C)

	sub.Join(TypeTopic("security"))
	hub.Publish(TypeTopic("security"), "alertTypeUpdated", nil)
	ev := recv(t, sub.C)
	if ev.Topic != "alerts:security" {
		t.Fatalf("topic = %q", ev.Topic)
	}

	// other types stay invisible
	hub.Publish(TypeTopic("system"), "alertTypeUpdated", nil)
	expectNone(t, sub.C)

	sub.Leave(TypeTopic("security"))
	hub.Publish(TypeTopic("security"), "alertTypeUpdated", nil)
	expectNone(t, sub.C)
}

func TestLeaveGlobalIgnored(t *testing.T) {
	hub := NewHub(4, zerolog.Nop())
	sub := hub.Subscribe()
	defer hub.Unsubscribe(sub)

	sub.Leave(TopicGlobal)
	hub.Publish(TopicGlobal, "alertUpdated", nil)
	recv(t, sub.C)
}

func TestSlowSubscriberDrops(t *testing.T) {
	hub := NewHub(2, zerolog.Nop())
	slow := hub.Subscribe()
	fast := hub.Subscribe()
	defer hub.Unsubscribe(slow)
	defer hub.Unsubscribe(fast)

	// fill the slow buffer without reading
	for i := 0; i < 5; i++ {
		hub.Publish(TopicGlobal, "alertUpdated", nil)
	}
	// publishing never blocked; fast subscriber kept up to its buffer
	if got := len(slow.C); got != 2 {
		t.Fatalf("slow buffer = %d, want 2 (rest dropped)", got)
	}
	for i := 0; i < 2; i++ {
		recv(t, fast.C)
	}
}

func TestNoReplayForLateSubscriber(t *testing.T) {
	hub := NewHub(4, zerolog.Nop())
	hub.Publish(TopicGlobal, "alertUpdated", nil)

	late := hub.Subscribe()
	defer hub.Unsubscribe(late)
	expectNone(t, late.C)
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	hub := NewHub(4, zerolog.Nop())
	sub := hub.Subscribe()
	if hub.SubscriberCount() != 1 {
		t.Fatalf("count = %d", hub.SubscriberCount())
	}
	hub.Unsubscribe(sub)
	if hub.SubscriberCount() != 0 {
		t.Fatalf("count after unsubscribe = %d", hub.SubscriberCount())
	}
	if _, open := <-sub.C; open {
		t.Fatal("channel should be closed")
	}
	// double unsubscribe is a no-op, publish after close must not panic
	hub.Unsubscribe(sub)
	hub.Publish(TopicGlobal, "alertUpdated", nil)
}
