package protocol

import "github.com/vvoice/signaling/internal/domain"

// Server → client frames. Every struct carries its own discriminator so
// a frame marshals to exactly one wire shape.

type ServerNotice struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewServerNotice(message string) ServerNotice {
	return ServerNotice{Type: "server_notice", Message: message}
}

type ChannelList struct {
	Type     string           `json:"type"`
	Channels []domain.Channel `json:"channels"`
}

func NewChannelList(channels []domain.Channel) ChannelList {
	return ChannelList{Type: "channel_list", Channels: channels}
}

// ICEServer is one relay-credential entry handed to a joiner. Username
// and credential are absent on the public STUN entries.
type ICEServer struct {
	URLs       string `json:"urls"`
	Username   string `json:"username,omitempty"`
	Credential string `json:"credential,omitempty"`
}

type RoomJoined struct {
	Type         string        `json:"type"`
	RoomID       domain.RoomID `json:"roomId"`
	SelfPeerID   domain.PeerID `json:"selfPeerId"`
	Participants []domain.View `json:"participants"`
	ICEServers   []ICEServer   `json:"iceServers"`
}

func NewRoomJoined(roomID domain.RoomID, self domain.PeerID, participants []domain.View, servers []ICEServer) RoomJoined {
	return RoomJoined{Type: "room_joined", RoomID: roomID, SelfPeerID: self, Participants: participants, ICEServers: servers}
}

type ParticipantJoined struct {
	Type        string        `json:"type"`
	RoomID      domain.RoomID `json:"roomId"`
	PeerID      domain.PeerID `json:"peerId"`
	DisplayName string        `json:"displayName"`
	Muted       bool          `json:"muted"`
	AvatarURL   string        `json:"avatarUrl,omitempty"`
	Bio         string        `json:"bio,omitempty"`
	Role        string        `json:"role,omitempty"`
}

func NewParticipantJoined(roomID domain.RoomID, v domain.View) ParticipantJoined {
	return ParticipantJoined{
		Type:        "participant_joined",
		RoomID:      roomID,
		PeerID:      v.PeerID,
		DisplayName: v.DisplayName,
		Muted:       v.Muted,
		AvatarURL:   v.AvatarURL,
		Bio:         v.Bio,
		Role:        v.Role,
	}
}

type ParticipantLeft struct {
	Type   string        `json:"type"`
	RoomID domain.RoomID `json:"roomId"`
	PeerID domain.PeerID `json:"peerId"`
}

func NewParticipantLeft(roomID domain.RoomID, peerID domain.PeerID) ParticipantLeft {
	return ParticipantLeft{Type: "participant_left", RoomID: roomID, PeerID: peerID}
}

type ParticipantMuted struct {
	Type   string        `json:"type"`
	RoomID domain.RoomID `json:"roomId"`
	PeerID domain.PeerID `json:"peerId"`
	Muted  bool          `json:"muted"`
}

func NewParticipantMuted(roomID domain.RoomID, peerID domain.PeerID, muted bool) ParticipantMuted {
	return ParticipantMuted{Type: "participant_muted", RoomID: roomID, PeerID: peerID, Muted: muted}
}

type ChatEvent struct {
	Type        string        `json:"type"`
	RoomID      domain.RoomID `json:"roomId"`
	SenderID    string        `json:"senderId"`
	DisplayName string        `json:"displayName"`
	Content     string        `json:"content"`
	Timestamp   int64         `json:"timestamp"`
}

func NewChatEvent(roomID domain.RoomID, senderID, displayName, content string, ts int64) ChatEvent {
	return ChatEvent{Type: "chat_message", RoomID: roomID, SenderID: senderID, DisplayName: displayName, Content: content, Timestamp: ts}
}

type OfferEvent struct {
	Type       string        `json:"type"`
	FromPeerID domain.PeerID `json:"fromPeerId"`
	SDP        string        `json:"sdp"`
}

func NewOfferEvent(from domain.PeerID, sdp string) OfferEvent {
	return OfferEvent{Type: "webrtc_offer", FromPeerID: from, SDP: sdp}
}

type AnswerEvent struct {
	Type       string        `json:"type"`
	FromPeerID domain.PeerID `json:"fromPeerId"`
	SDP        string        `json:"sdp"`
}

func NewAnswerEvent(from domain.PeerID, sdp string) AnswerEvent {
	return AnswerEvent{Type: "webrtc_answer", FromPeerID: from, SDP: sdp}
}

type ICECandidateEvent struct {
	Type       string        `json:"type"`
	FromPeerID domain.PeerID `json:"fromPeerId"`
	Candidate  string        `json:"candidate"`
}

func NewICECandidateEvent(from domain.PeerID, candidate string) ICECandidateEvent {
	return ICECandidateEvent{Type: "webrtc_ice_candidate", FromPeerID: from, Candidate: candidate}
}

type Pong struct {
	Type string `json:"type"`
	TS   int64  `json:"ts"`
}

func NewPong(ts int64) Pong {
	return Pong{Type: "pong", TS: ts}
}

type SignalError struct {
	Type    string    `json:"type"`
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func NewSignalError(code ErrorCode, message string) SignalError {
	return SignalError{Type: "signal_error", Code: code, Message: message}
}
