// Package session owns the client-side chat state: the participant roster
// and the message log, mutated only by a single event loop fed by inbound
// frames and local submissions.
package session

import (
	"context"

	"chatline/internal/protocol"
	"chatline/internal/roster"

	"go.uber.org/zap"
)

// Channel is the outbound half of the connection collaborator. Send must not
// block; implementations report a closed or saturated transport through the
// returned error.
type Channel interface {
	Send(text string) error
}

type Msg interface{ isSessionMsg() }

// Inbound carries one raw frame delivered by the connection.
type Inbound struct{ Text string }

func (Inbound) isSessionMsg() {}

// Submit carries text the local user wants to send.
type Submit struct{ Text string }

func (Submit) isSessionMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isSessionMsg() {}

type Shutdown struct{}

func (Shutdown) isSessionMsg() {}

// View is a copy of the observable session state, safe to read outside the
// loop. DroppedFrames and FailedSends are diagnostic only; errors never
// surface past this layer.
type View struct {
	Name          string
	Users         []roster.Participant
	Messages      []protocol.ChatEntry
	DroppedFrames int
	FailedSends   int
}

type Session struct {
	inbox   chan Msg
	updates chan struct{}
	ch      Channel
	log     *zap.Logger

	name          string
	users         []roster.Participant
	messages      []protocol.ChatEntry
	droppedFrames int
	failedSends   int

	ctx    context.Context
	cancel context.CancelFunc
}

// New starts a session for the given display name and immediately registers
// it with the server. Registration is fire-and-forget: a failed send is
// logged and swallowed, the server being the authority on membership either
// way.
func New(parent context.Context, name string, ch Channel, log *zap.Logger) *Session {
	ctx, cancel := context.WithCancel(parent)
	s := &Session{
		inbox:   make(chan Msg, 64),
		updates: make(chan struct{}, 1),
		ch:      ch,
		log:     log,
		name:    name,
		ctx:     ctx,
		cancel:  cancel,
	}
	s.register()
	go s.loop()
	return s
}

func (s *Session) Inbox() chan<- Msg { return s.inbox }

// Updates signals whenever the observable state changed. Notifications are
// coalesced; consumers re-read the full state via GetState.
func (s *Session) Updates() <-chan struct{} { return s.updates }

func (s *Session) register() {
	frame, err := protocol.Encode(protocol.Register(s.name))
	if err != nil {
		s.log.Debug("encode register frame", zap.Error(err))
		return
	}
	if err := s.ch.Send(frame); err != nil {
		s.failedSends++
		s.log.Debug("register send failed", zap.Error(err))
	}
}

func (s *Session) loop() {
	for {
		select {
		case <-s.ctx.Done():
			return

		case m := <-s.inbox:
			switch msg := m.(type) {
			case Inbound:
				s.handleInbound(msg.Text)

			case Submit:
				s.handleSubmit(msg.Text)

			case GetState:
				msg.Reply <- View{
					Name:          s.name,
					Users:         append([]roster.Participant(nil), s.users...),
					Messages:      append([]protocol.ChatEntry(nil), s.messages...),
					DroppedFrames: s.droppedFrames,
					FailedSends:   s.failedSends,
				}

			case Shutdown:
				s.cancel()
				return
			}
		}
	}
}

// handleInbound dispatches one frame. Every decode failure drops the frame
// silently: the wire format may drift, and a chat client should shrug rather
// than tear the session down.
func (s *Session) handleInbound(text string) {
	env, err := protocol.Decode(text)
	if err != nil {
		s.droppedFrames++
		s.log.Debug("dropping inbound frame", zap.Error(err))
		return
	}

	switch env.MessageType {
	case protocol.TypeUsers:
		s.users = roster.Reconcile(env.DataArray)
		s.notify()

	case protocol.TypeMessage:
		if env.Data == nil {
			s.droppedFrames++
			return
		}
		entry, err := protocol.DecodeEntry(*env.Data)
		if err != nil {
			s.droppedFrames++
			s.log.Debug("dropping chat payload", zap.Error(err))
			return
		}
		s.messages = append(s.messages, entry)
		s.notify()

	case protocol.TypeRegister:
		// Never expected inbound; ignore.
	}
}

// handleSubmit sends the raw text to the server. The entry is not appended
// locally: it shows up in the log only once the server echoes it back.
func (s *Session) handleSubmit(text string) {
	if text == "" {
		return
	}
	frame, err := protocol.Encode(protocol.Message(text))
	if err != nil {
		s.log.Debug("encode chat frame", zap.Error(err))
		return
	}
	if err := s.ch.Send(frame); err != nil {
		s.failedSends++
		s.log.Debug("chat send failed", zap.Error(err))
	}
}

func (s *Session) notify() {
	select {
	case s.updates <- struct{}{}:
	default:
		// A pending notification already covers this change.
	}
}
