package realtime

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func newTestClient(topics ...string) *Client {
	return &Client{ID: "c", Topics: topics, Send: make(chan []byte, 4)}
}

func TestLocationTopic(t *testing.T) {
	if got := LocationTopic("abc"); got != "location:abc" {
		t.Errorf("unexpected topic %q", got)
	}
}

func TestHub_RegisterAndBroadcast(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client := newTestClient("location:1")
	hub.Register(client)

	if hub.ClientCount() != 1 {
		t.Fatalf("expected 1 client, got %d", hub.ClientCount())
	}
	if hub.TopicCount("location:1") != 1 {
		t.Fatalf("expected 1 subscriber, got %d", hub.TopicCount("location:1"))
	}

	hub.Broadcast("location:1", Event{Type: EventFormAssigned, Topic: "location:1"})

	select {
	case raw := <-client.Send:
		var event Event
		if err := json.Unmarshal(raw, &event); err != nil {
			t.Fatalf("bad payload: %v", err)
		}
		if event.Type != EventFormAssigned {
			t.Errorf("wrong event type %q", event.Type)
		}
	default:
		t.Fatal("expected a delivered event")
	}
}

func TestHub_BroadcastOnlyToTopic(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	a := newTestClient("location:1")
	b := newTestClient("location:2")
	hub.Register(a)
	hub.Register(b)

	hub.Broadcast("location:1", Event{Type: EventFormAssigned, Topic: "location:1"})

	if len(a.Send) != 1 {
		t.Errorf("expected delivery to location:1 subscriber, got %d", len(a.Send))
	}
	if len(b.Send) != 0 {
		t.Errorf("expected no delivery to location:2 subscriber, got %d", len(b.Send))
	}
}

func TestHub_FullBufferSkipped(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	slow := &Client{ID: "slow", Topics: []string{"location:1"}, Send: make(chan []byte)}
	hub.Register(slow)

	// Nothing reads slow.Send; Broadcast must not block.
	hub.Broadcast("location:1", Event{Type: EventFormAssigned, Topic: "location:1"})
}

func TestHub_SubscribeUnsubscribe(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client := newTestClient()
	hub.Register(client)

	hub.ProcessMessage(client, ClientMessage{Action: "subscribe", Topics: []string{"location:1"}})
	if hub.TopicCount("location:1") != 1 {
		t.Fatal("subscribe did not register the topic")
	}

	hub.ProcessMessage(client, ClientMessage{Action: "unsubscribe", Topics: []string{"location:1"}})
	if hub.TopicCount("location:1") != 0 {
		t.Fatal("unsubscribe did not remove the topic")
	}
	if len(client.Topics) != 0 {
		t.Errorf("client topic list not pruned: %v", client.Topics)
	}
}

func TestHub_UnregisterClosesSend(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client := newTestClient("location:1")
	hub.Register(client)
	hub.Unregister(client)

	if hub.ClientCount() != 0 {
		t.Errorf("expected 0 clients, got %d", hub.ClientCount())
	}
	if _, open := <-client.Send; open {
		t.Error("expected Send channel closed")
	}

	// Double unregister must be a no-op, not a double close.
	hub.Unregister(client)
}

func TestHub_PublishStampsTimestamp(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client := newTestClient("location:1")
	hub.Register(client)

	if err := hub.Publish(context.Background(), Event{Type: EventFormAssigned, Topic: "location:1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	raw := <-client.Send
	var event Event
	if err := json.Unmarshal(raw, &event); err != nil {
		t.Fatalf("bad payload: %v", err)
	}
	if event.Timestamp.IsZero() {
		t.Error("expected Publish to stamp a timestamp")
	}
}
