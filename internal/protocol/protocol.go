// Package protocol defines the wire frames exchanged with the chat server
// and the codec that reads and writes them.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

type MessageType string

const (
	TypeUsers    MessageType = "users"
	TypeRegister MessageType = "register"
	TypeMessage  MessageType = "message"
)

// LocalSender is the marker the server uses when echoing a client's own
// message back to it. The client never tags outbound entries itself.
const LocalSender = "You"

var (
	ErrMalformed   = errors.New("malformed frame")
	ErrUnknownType = errors.New("unknown message type")
)

// Envelope is the outer tagged union. Exactly one of DataArray and Data is
// set per frame: DataArray for "users", Data for "register" and "message".
type Envelope struct {
	MessageType MessageType `json:"messageType"`
	DataArray   []string    `json:"dataArray,omitempty"`
	Data        *string     `json:"data,omitempty"`
}

// ChatEntry is a decoded chat message, carried encoded inside the Data field
// of a "message" envelope. Immutable once constructed.
type ChatEntry struct {
	From    string `json:"from"`
	Message string `json:"message"`
}

// FromSelf reports whether the server labeled this entry as authored by the
// local user.
func (e ChatEntry) FromSelf() bool {
	return e.From == LocalSender
}

// Register builds the frame a client sends once on session start.
func Register(name string) Envelope {
	return Envelope{MessageType: TypeRegister, Data: &name}
}

// Message builds an outbound chat frame. The text goes out raw; the server
// wraps it into a ChatEntry before broadcasting.
func Message(text string) Envelope {
	return Envelope{MessageType: TypeMessage, Data: &text}
}

// Users builds a roster snapshot frame.
func Users(names []string) Envelope {
	return Envelope{MessageType: TypeUsers, DataArray: names}
}

func Encode(env Envelope) (string, error) {
	b, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("encode %s frame: %w", env.MessageType, err)
	}
	return string(b), nil
}

// Decode parses one frame. Unknown extra fields are ignored so the wire
// format can grow without breaking older clients. Decoding a "message" frame
// does not touch the nested payload; that is DecodeEntry's job.
func Decode(text string) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal([]byte(text), &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	switch env.MessageType {
	case TypeUsers, TypeRegister, TypeMessage:
		return env, nil
	default:
		return Envelope{}, fmt.Errorf("%w: %q", ErrUnknownType, env.MessageType)
	}
}

// DecodeEntry parses the payload of a "message" frame. It is a second,
// independently fallible decode step.
func DecodeEntry(data string) (ChatEntry, error) {
	var entry ChatEntry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		return ChatEntry{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return entry, nil
}

// EncodeEntry serializes a ChatEntry for nesting inside a "message" frame.
// Used by the server side when broadcasting.
func EncodeEntry(entry ChatEntry) (string, error) {
	b, err := json.Marshal(entry)
	if err != nil {
		return "", fmt.Errorf("encode chat entry: %w", err)
	}
	return string(b), nil
}
