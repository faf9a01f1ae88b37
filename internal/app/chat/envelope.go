/*
Package chat contains the relay core: the connection registry, the message router that
decodes and routes inbound frames, and the WebSocket client and hub that drive them.

This file defines the wire protocol. Inbound frames decode into a closed set of variants
(Init, Text); outbound envelopes are one struct per server-to-client kind.
*/
package chat

import (
	"encoding/json"
	"fmt"
)

// MType is the kind tag carried in the "mtype" field of every envelope.
type MType string

const (
	MTypeMsg       MType = "MSG"
	MTypeDM        MType = "DM"
	MTypeUserEnter MType = "USER_ENTER"
	MTypeUserLeave MType = "USER_LEAVE"
	MTypeInit      MType = "INIT"
	MTypeText      MType = "TEXT"

	// MTypeError is only sent when sender error notices are enabled.
	MTypeError MType = "ERROR"
)

// PingFrame is the bare liveness probe a client may send instead of an envelope.
const PingFrame = "ping"

// pongReply is the JSON-encoded string "pong".
var pongReply = []byte(`"pong"`)

// Inbound is a decoded client-to-hub frame. The concrete type is Init or Text.
type Inbound interface {
	Kind() MType
	Sender() string
}

// Init asks the hub to register the connection under ID.
type Init struct {
	ID string
}

func (m Init) Kind() MType    { return MTypeInit }
func (m Init) Sender() string { return m.ID }

// Text carries a chat line. An empty To means broadcast.
type Text struct {
	ID   string
	Text string
	To   string
}

func (m Text) Kind() MType    { return MTypeText }
func (m Text) Sender() string { return m.ID }

// IsDirect reports whether the message names a single recipient.
func (m Text) IsDirect() bool { return m.To != "" }

// inboundWire is the loose JSON shape; pointers tell absent fields from empty ones.
type inboundWire struct {
	MType *MType  `json:"mtype"`
	ID    *string `json:"id"`
	Text  *string `json:"text"`
	To    *string `json:"to"`
}

// Decode parses a raw text frame into an Inbound variant.
// Every failure wraps ErrDecode.
func Decode(raw []byte) (Inbound, error) {
	var w inboundWire

	// Unmarshal rejects anything after the top-level value
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	if w.MType == nil {
		return nil, fmt.Errorf("%w: missing mtype", ErrDecode)
	}
	// identities are non-empty; an empty "to" already means broadcast
	if w.ID == nil || *w.ID == "" {
		return nil, fmt.Errorf("%w: missing or empty id", ErrDecode)
	}

	switch *w.MType {
	case MTypeInit:
		return Init{ID: *w.ID}, nil

	case MTypeText:
		if w.Text == nil {
			return nil, fmt.Errorf("%w: TEXT without text", ErrDecode)
		}
		msg := Text{ID: *w.ID, Text: *w.Text}
		if w.To != nil {
			msg.To = *w.To
		}
		return msg, nil

	case MTypeMsg, MTypeDM, MTypeUserEnter, MTypeUserLeave, MTypeError:
		return nil, fmt.Errorf("%w: %s is server-to-client only", ErrDecode, *w.MType)

	default:
		return nil, fmt.Errorf("%w: unknown mtype %q", ErrDecode, *w.MType)
	}
}

// Envelope is an outbound hub-to-client message.
type Envelope interface {
	Kind() MType
}

// UserEnter announces that ID joined.
type UserEnter struct {
	ID string
}

// UserLeave announces that ID disconnected.
type UserLeave struct {
	ID string
}

// Broadcast is a MSG from ID to every other participant.
type Broadcast struct {
	ID   string
	Text string
}

// Direct is a DM from ID to To.
type Direct struct {
	ID   string
	To   string
	Text string
}

// ErrorNotice tells the sender why its frame was dropped.
type ErrorNotice struct {
	Code    int
	Message string
}

func (UserEnter) Kind() MType   { return MTypeUserEnter }
func (UserLeave) Kind() MType   { return MTypeUserLeave }
func (Broadcast) Kind() MType   { return MTypeMsg }
func (Direct) Kind() MType      { return MTypeDM }
func (ErrorNotice) Kind() MType { return MTypeError }

func (m UserEnter) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		MType MType  `json:"mtype"`
		ID    string `json:"id"`
	}{MTypeUserEnter, m.ID})
}

func (m UserLeave) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		MType MType  `json:"mtype"`
		ID    string `json:"id"`
	}{MTypeUserLeave, m.ID})
}

func (m Broadcast) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		MType MType  `json:"mtype"`
		ID    string `json:"id"`
		Text  string `json:"text"`
	}{MTypeMsg, m.ID, m.Text})
}

func (m Direct) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		MType MType  `json:"mtype"`
		ID    string `json:"id"`
		To    string `json:"to"`
		Text  string `json:"text"`
	}{MTypeDM, m.ID, m.To, m.Text})
}

func (m ErrorNotice) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		MType   MType  `json:"mtype"`
		Code    int    `json:"code"`
		Message string `json:"message"`
	}{MTypeError, m.Code, m.Message})
}

// Encode marshals an outbound envelope into a text frame.
func Encode(e Envelope) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", e.Kind(), err)
	}
	return data, nil
}
