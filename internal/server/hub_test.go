package server

import (
	"context"
	"testing"
	"time"

	"chatline/internal/protocol"

	"go.uber.org/zap"
)

func recvFrame(t *testing.T, ch <-chan string, within time.Duration) string {
	t.Helper()
	select {
	case frame, ok := <-ch:
		if !ok {
			t.Fatalf("client outbox closed unexpectedly")
		}
		return frame
	case <-time.After(within):
		t.Fatalf("timed out waiting for frame")
		return "" // unreachable
	}
}

func decodeFrame(t *testing.T, text string) protocol.Envelope {
	t.Helper()
	env, err := protocol.Decode(text)
	if err != nil {
		t.Fatalf("server sent undecodable frame %q: %v", text, err)
	}
	return env
}

func newHub(t *testing.T) *Hub {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return NewHub(ctx, zap.NewNop())
}

func register(t *testing.T, h *Hub, id, name string) chan string {
	t.Helper()
	out := make(chan string, 8)
	h.Inbox() <- Join{ClientID: id, Outbox: out}
	frame, err := protocol.Encode(protocol.Register(name))
	if err != nil {
		t.Fatalf("encode register: %v", err)
	}
	h.Inbox() <- Frame{ClientID: id, Text: frame}
	return out
}

func TestHub_RegisterBroadcastsRoster(t *testing.T) {
	h := newHub(t)

	aliceOut := register(t, h, "c1", "Alice")
	env := decodeFrame(t, recvFrame(t, aliceOut, time.Second))
	if env.MessageType != protocol.TypeUsers || len(env.DataArray) != 1 || env.DataArray[0] != "Alice" {
		t.Fatalf("after first register: %+v", env)
	}

	bobOut := register(t, h, "c2", "Bob")

	env = decodeFrame(t, recvFrame(t, aliceOut, time.Second))
	if len(env.DataArray) != 2 || env.DataArray[0] != "Alice" || env.DataArray[1] != "Bob" {
		t.Fatalf("roster after second register: %+v", env.DataArray)
	}
	env = decodeFrame(t, recvFrame(t, bobOut, time.Second))
	if len(env.DataArray) != 2 {
		t.Fatalf("new client should see the full roster: %+v", env.DataArray)
	}
}

func TestHub_MessageFanOutWithSelfMarker(t *testing.T) {
	h := newHub(t)

	aliceOut := register(t, h, "c1", "Alice")
	bobOut := register(t, h, "c2", "Bob")
	_ = recvFrame(t, aliceOut, time.Second) // roster [Alice]
	_ = recvFrame(t, aliceOut, time.Second) // roster [Alice Bob]
	_ = recvFrame(t, bobOut, time.Second)   // roster [Alice Bob]

	chat, err := protocol.Encode(protocol.Message("hi"))
	if err != nil {
		t.Fatalf("encode chat: %v", err)
	}
	h.Inbox() <- Frame{ClientID: "c1", Text: chat}

	env := decodeFrame(t, recvFrame(t, aliceOut, time.Second))
	entry, err := protocol.DecodeEntry(*env.Data)
	if err != nil {
		t.Fatalf("decode author echo: %v", err)
	}
	if entry.From != protocol.LocalSender || entry.Message != "hi" {
		t.Fatalf("author should see the self marker, got %+v", entry)
	}

	env = decodeFrame(t, recvFrame(t, bobOut, time.Second))
	entry, err = protocol.DecodeEntry(*env.Data)
	if err != nil {
		t.Fatalf("decode peer copy: %v", err)
	}
	if entry.From != "Alice" || entry.Message != "hi" {
		t.Fatalf("peer should see the author name, got %+v", entry)
	}
}

func TestHub_UnregisteredClientCannotChat(t *testing.T) {
	h := newHub(t)

	aliceOut := register(t, h, "c1", "Alice")
	_ = recvFrame(t, aliceOut, time.Second) // roster [Alice]

	out := make(chan string, 8)
	h.Inbox() <- Join{ClientID: "c2", Outbox: out}
	chat, err := protocol.Encode(protocol.Message("sneak"))
	if err != nil {
		t.Fatalf("encode chat: %v", err)
	}
	h.Inbox() <- Frame{ClientID: "c2", Text: chat}

	select {
	case frame := <-aliceOut:
		t.Fatalf("unregistered client reached the room: %s", frame)
	case <-time.After(100 * time.Millisecond):
		// good: nothing delivered
	}
}

func TestHub_LeaveShrinksRoster(t *testing.T) {
	h := newHub(t)

	aliceOut := register(t, h, "c1", "Alice")
	bobOut := register(t, h, "c2", "Bob")
	_ = recvFrame(t, aliceOut, time.Second)
	_ = recvFrame(t, aliceOut, time.Second)
	_ = recvFrame(t, bobOut, time.Second)

	h.Inbox() <- Leave{ClientID: "c2"}

	env := decodeFrame(t, recvFrame(t, aliceOut, time.Second))
	if len(env.DataArray) != 1 || env.DataArray[0] != "Alice" {
		t.Fatalf("roster after leave: %+v", env.DataArray)
	}

	reply := make(chan HubView, 1)
	h.Inbox() <- GetState{Reply: reply}
	view := <-reply
	if view.NumClients != 1 {
		t.Fatalf("want 1 client after leave, got %d", view.NumClients)
	}
}

func TestHub_DropSlowClient(t *testing.T) {
	h := newHub(t)

	out := make(chan string) // no buffer: first broadcast cannot be delivered
	h.Inbox() <- Join{ClientID: "c1", Outbox: out}
	frame, err := protocol.Encode(protocol.Register("Alice"))
	if err != nil {
		t.Fatalf("encode register: %v", err)
	}
	h.Inbox() <- Frame{ClientID: "c1", Text: frame}

	reply := make(chan HubView, 1)
	h.Inbox() <- GetState{Reply: reply}
	view := <-reply
	if view.NumClients != 0 {
		t.Fatalf("expected slow client to be dropped; NumClients=%d", view.NumClients)
	}
}
