// Package server is a minimal chat server speaking the same wire protocol as
// the client engine: registration, roster snapshots, and message fan-out
// with the "You" self-marker on echoes.
package server

import (
	"context"

	"chatline/internal/protocol"

	"go.uber.org/zap"
)

type HubMsg interface{ isHubMsg() }

// Join announces a new connection and where to deliver its frames.
type Join struct {
	ClientID string
	Outbox   chan string
}

type Leave struct{ ClientID string }

// Frame carries one raw inbound frame from a connection.
type Frame struct {
	ClientID string
	Text     string
}

type GetState struct {
	Reply chan HubView
}

type ShutdownHub struct{}

func (Join) isHubMsg()        {}
func (Leave) isHubMsg()       {}
func (Frame) isHubMsg()       {}
func (GetState) isHubMsg()    {}
func (ShutdownHub) isHubMsg() {}

// HubView reflects hub internals without data races; test-only.
type HubView struct {
	NumClients int
	Roster     []string
}

type client struct {
	name   string // empty until the client registers
	outbox chan string
}

type Hub struct {
	inbox   chan HubMsg
	clients map[string]*client
	order   []string // client IDs in join order; roster order follows it
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewHub(parent context.Context, log *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:   make(chan HubMsg, 64),
		clients: make(map[string]*client),
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case Join:
				h.clients[msg.ClientID] = &client{outbox: msg.Outbox}
				h.order = append(h.order, msg.ClientID)

			case Leave:
				if _, ok := h.clients[msg.ClientID]; !ok {
					break
				}
				h.drop(msg.ClientID)
				h.broadcastRoster()

			case Frame:
				h.handleFrame(msg.ClientID, msg.Text)

			case GetState:
				msg.Reply <- HubView{
					NumClients: len(h.clients),
					Roster:     h.roster(),
				}

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) handleFrame(clientID, text string) {
	c := h.clients[clientID]
	if c == nil {
		return
	}
	env, err := protocol.Decode(text)
	if err != nil {
		h.log.Debug("dropping client frame", zap.String("client", clientID), zap.Error(err))
		return
	}

	switch env.MessageType {
	case protocol.TypeRegister:
		if env.Data == nil {
			return
		}
		c.name = *env.Data
		h.broadcastRoster()

	case protocol.TypeMessage:
		if env.Data == nil || c.name == "" {
			return
		}
		h.broadcastMessage(c.name, *env.Data)

	case protocol.TypeUsers:
		// Server-only frame; clients never send it.
	}
}

// roster lists registered display names in join order.
func (h *Hub) roster() []string {
	names := make([]string, 0, len(h.order))
	for _, id := range h.order {
		if c := h.clients[id]; c != nil && c.name != "" {
			names = append(names, c.name)
		}
	}
	return names
}

func (h *Hub) broadcastRoster() {
	frame, err := protocol.Encode(protocol.Users(h.roster()))
	if err != nil {
		h.log.Error("encode roster frame", zap.Error(err))
		return
	}
	// send may drop a slow client and reshuffle h.order; walk a snapshot.
	for _, id := range append([]string(nil), h.order...) {
		if c := h.clients[id]; c != nil && c.name != "" {
			h.send(id, c, frame)
		}
	}
}

// broadcastMessage fans a chat entry out to every registered client. The
// author sees it from "You"; everyone else sees the author's name.
func (h *Hub) broadcastMessage(author, body string) {
	for _, id := range append([]string(nil), h.order...) {
		c := h.clients[id]
		if c == nil || c.name == "" {
			continue
		}
		from := author
		if c.name == author {
			from = protocol.LocalSender
		}
		data, err := protocol.EncodeEntry(protocol.ChatEntry{From: from, Message: body})
		if err != nil {
			h.log.Error("encode chat entry", zap.Error(err))
			return
		}
		frame, err := protocol.Encode(protocol.Message(data))
		if err != nil {
			h.log.Error("encode chat frame", zap.Error(err))
			return
		}
		h.send(id, c, frame)
	}
}

func (h *Hub) send(id string, c *client, frame string) {
	select {
	case c.outbox <- frame:
		// ok
	default:
		// Client is slow/full - drop them.
		h.log.Warn("dropping slow client", zap.String("client", id))
		h.drop(id)
	}
}

func (h *Hub) drop(id string) {
	c := h.clients[id]
	if c == nil {
		return
	}
	close(c.outbox)
	delete(h.clients, id)
	for i, other := range h.order {
		if other == id {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
}

func (h *Hub) shutdown() {
	for id := range h.clients {
		h.drop(id)
	}
	h.order = nil
	h.cancel()
}
