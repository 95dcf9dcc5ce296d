// Package event defines the wire-level real-time events exchanged with
// connected clients. Inbound events form a closed set of variants so the
// dispatch router can be exhaustively matched without a live transport;
// outbound events are typed payloads wrapped in a named frame.
package event

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Inbound wire event names.
const (
	InMessagePrivate = "message:private"
	InTypingStart    = "typing:start"
	InTypingStop     = "typing:stop"
	InStatusSet      = "status:set"
)

// ErrUnknownEvent is returned by DecodeInbound for event names outside the
// closed inbound set.
var ErrUnknownEvent = errors.New("unknown event")

// Inbound is a client-originated event. The set of implementations is closed.
type Inbound interface {
	isInbound()
}

// PrivateMessage asks the router to deliver a point-to-point message.
type PrivateMessage struct {
	RecipientID string `json:"recipientId"`
	Content     string `json:"content"`
}

// TypingStart signals that the sender began typing to a recipient.
type TypingStart struct {
	RecipientID string `json:"recipientId"`
}

// TypingStop signals that the sender stopped typing to a recipient.
type TypingStop struct {
	RecipientID string `json:"recipientId"`
}

// StatusSet switches the sender's presence status (online, away, busy).
type StatusSet struct {
	Status string `json:"status"`
}

func (PrivateMessage) isInbound() {}
func (TypingStart) isInbound()    {}
func (TypingStop) isInbound()     {}
func (StatusSet) isInbound()      {}

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// DecodeInbound parses a raw client frame into its typed variant.
// Unknown event names yield ErrUnknownEvent; malformed payloads yield a
// wrapped unmarshal error.
func DecodeInbound(raw []byte) (Inbound, error) {
	var f frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	var (
		ev  Inbound
		err error
	)
	switch f.Event {
	case InMessagePrivate:
		var p PrivateMessage
		err = json.Unmarshal(f.Data, &p)
		ev = p
	case InTypingStart:
		var p TypingStart
		err = json.Unmarshal(f.Data, &p)
		ev = p
	case InTypingStop:
		var p TypingStop
		err = json.Unmarshal(f.Data, &p)
		ev = p
	case InStatusSet:
		var p StatusSet
		err = json.Unmarshal(f.Data, &p)
		ev = p
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, f.Event)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", f.Event, err)
	}
	return ev, nil
}
