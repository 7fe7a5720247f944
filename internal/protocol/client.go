// Package protocol defines the wire schema: one JSON object per text
// frame with a mandatory "type" discriminator. Inbound frames are
// decoded and validated eagerly here; nothing malformed reaches the
// dispatch layer.
package protocol

import (
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
)

var (
	ErrInvalidJSON        = errors.New("invalid json payload")
	ErrInvalidMessage     = errors.New("message does not conform to protocol")
	ErrUnsupportedMessage = errors.New("unsupported message type")
)

// ClientMessage is one variant of the inbound tagged union.
type ClientMessage interface {
	clientMessage()
}

type Hello struct {
	ProtocolVersion string `json:"protocolVersion" validate:"required"`
	AuthToken       string `json:"authToken"`
}

type JoinRoom struct {
	RoomID      string `json:"roomId" validate:"required,max=64"`
	DisplayName string `json:"displayName" validate:"required,max=50"`
}

type LeaveRoom struct {
	RoomID string `json:"roomId" validate:"required,max=64"`
}

type SetMute struct {
	RoomID string `json:"roomId" validate:"required,max=64"`
	Muted  bool   `json:"muted"`
}

type ChatMessage struct {
	RoomID  string `json:"roomId" validate:"required,max=64"`
	Content string `json:"content" validate:"required,max=2000"`
}

type CreateChannel struct {
	Name        string `json:"name" validate:"required,max=50"`
	Description string `json:"description" validate:"max=200"`
}

type DeleteChannel struct {
	ChannelID string `json:"channelId" validate:"required,max=64"`
}

type Offer struct {
	ToPeerID string `json:"toPeerId" validate:"required,max=128"`
	SDP      string `json:"sdp" validate:"required,max=20000"`
}

type Answer struct {
	ToPeerID string `json:"toPeerId" validate:"required,max=128"`
	SDP      string `json:"sdp" validate:"required,max=20000"`
}

type ICECandidate struct {
	ToPeerID  string `json:"toPeerId" validate:"required,max=128"`
	Candidate string `json:"candidate" validate:"required,max=5000"`
}

type Ping struct{}

func (Hello) clientMessage()         {}
func (JoinRoom) clientMessage()      {}
func (LeaveRoom) clientMessage()     {}
func (SetMute) clientMessage()       {}
func (ChatMessage) clientMessage()   {}
func (CreateChannel) clientMessage() {}
func (DeleteChannel) clientMessage() {}
func (Offer) clientMessage()         {}
func (Answer) clientMessage()        {}
func (ICECandidate) clientMessage()  {}
func (Ping) clientMessage()          {}

var validate = validator.New()

// Decode parses a raw frame into its typed variant. Errors distinguish
// broken JSON, schema violations, and unknown discriminators so the
// caller can reply with the matching error code.
func Decode(raw []byte) (ClientMessage, error) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, ErrInvalidJSON
	}

	var msg ClientMessage
	switch env.Type {
	case "client_hello":
		msg = &Hello{}
	case "join_room":
		msg = &JoinRoom{}
	case "leave_room":
		msg = &LeaveRoom{}
	case "set_mute":
		msg = &SetMute{}
	case "chat_message":
		msg = &ChatMessage{}
	case "create_channel":
		msg = &CreateChannel{}
	case "delete_channel":
		msg = &DeleteChannel{}
	case "webrtc_offer":
		msg = &Offer{}
	case "webrtc_answer":
		msg = &Answer{}
	case "webrtc_ice_candidate":
		msg = &ICECandidate{}
	case "ping":
		msg = &Ping{}
	default:
		return nil, ErrUnsupportedMessage
	}

	if err := json.Unmarshal(raw, msg); err != nil {
		return nil, ErrInvalidMessage
	}
	if err := validate.Struct(msg); err != nil {
		return nil, ErrInvalidMessage
	}
	return msg, nil
}
