package websocket

import (
	"encoding/json"
	"log/slog"
	"testing"
)

func testHub() *Hub {
	return NewHub(slog.New(slog.DiscardHandler))
}

func recvMessage(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case data := <-c.send:
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return msg
	default:
		t.Fatal("no message queued")
		return Message{}
	}
}

func TestBroadcastHouseholdScoping(t *testing.T) {
	hub := testHub()

	inHousehold := NewClient(hub, nil, "u1", "hh-1")
	otherHousehold := NewClient(hub, nil, "u2", "hh-2")
	hub.Register(inHousehold)
	hub.Register(otherHousehold)

	hub.BroadcastHousehold("hh-1", NewMessage("item", "created", "item-1", "hh-1"))

	msg := recvMessage(t, inHousehold)
	if msg.Type != "item_created" || msg.HouseholdID != "hh-1" {
		t.Errorf("msg = %+v, want item_created for hh-1", msg)
	}
	select {
	case <-otherHousehold.send:
		t.Error("message leaked to a client in another household")
	default:
	}
}

func TestBroadcastUserReachesAllConnections(t *testing.T) {
	hub := testHub()

	phone := NewClient(hub, nil, "u1", "hh-1")
	laptop := NewClient(hub, nil, "u1", "hh-2")
	other := NewClient(hub, nil, "u2", "hh-1")
	hub.Register(phone)
	hub.Register(laptop)
	hub.Register(other)

	hub.BroadcastUser("u1", Message{Type: "snapshot", Entity: "pending_items"})

	recvMessage(t, phone)
	recvMessage(t, laptop)
	select {
	case <-other.send:
		t.Error("user-scoped message reached another user")
	default:
	}
}

func TestUnregisterStopsDelivery(t *testing.T) {
	hub := testHub()

	c := NewClient(hub, nil, "u1", "hh-1")
	hub.Register(c)
	if hub.ClientCount() != 1 {
		t.Fatalf("count = %d, want 1", hub.ClientCount())
	}

	hub.Unregister(c)
	if hub.ClientCount() != 0 {
		t.Fatalf("count = %d, want 0", hub.ClientCount())
	}
	hub.BroadcastHousehold("hh-1", NewMessage("item", "created", "x", "hh-1"))
	if _, ok := <-c.send; ok {
		t.Error("received message after unregister")
	}
}

func TestBroadcastDropsWhenBufferFull(t *testing.T) {
	hub := testHub()

	c := NewClient(hub, nil, "u1", "hh-1")
	hub.Register(c)

	// Nothing drains c.send; flooding must not block the hub.
	for i := 0; i < sendBufferSize*2; i++ {
		hub.BroadcastHousehold("hh-1", NewMessage("item", "created", "x", "hh-1"))
	}
	if n := len(c.send); n != sendBufferSize {
		t.Errorf("queued = %d, want full buffer of %d", n, sendBufferSize)
	}
}
