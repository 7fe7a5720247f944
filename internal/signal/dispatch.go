package signal

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/vvoice/signaling/internal/app"
	"github.com/vvoice/signaling/internal/domain"
	"github.com/vvoice/signaling/internal/metrics"
	"github.com/vvoice/signaling/internal/protocol"
	"github.com/vvoice/signaling/internal/security"
)

// dispatch runs one validated message through the state machine. Only
// client_hello is allowed before authentication; everything else is
// rejected without side effects. Handler errors map to the closed code
// set and leave shared state untouched.
func (ctl *Controller) dispatch(ctx context.Context, state *app.Conn, msg protocol.ClientMessage) {
	metrics.MessagesDispatched.WithLabelValues(messageType(msg)).Inc()

	if _, isHello := msg.(*protocol.Hello); !state.Authenticated && !isHello {
		ctl.sendError(state.Transport, protocol.CodeUnauthorized, "Send client_hello first")
		return
	}

	var err error
	switch m := msg.(type) {
	case *protocol.Hello:
		err = ctl.handleHello(ctx, state, m)
	case *protocol.JoinRoom:
		err = ctl.handleJoinRoom(ctx, state, m)
	case *protocol.LeaveRoom:
		err = ctl.handleLeaveRoom(state, m)
	case *protocol.SetMute:
		err = ctl.handleSetMute(state, m)
	case *protocol.ChatMessage:
		err = ctl.handleChat(ctx, state, m)
	case *protocol.CreateChannel:
		err = ctl.handleCreateChannel(ctx, state, m)
	case *protocol.DeleteChannel:
		err = ctl.handleDeleteChannel(ctx, state, m)
	case *protocol.Offer:
		err = ctl.handleOffer(state, m)
	case *protocol.Answer:
		err = ctl.handleAnswer(state, m)
	case *protocol.ICECandidate:
		err = ctl.handleICECandidate(state, m)
	case *protocol.Ping:
		ctl.handlePing(state)
	default:
		ctl.sendError(state.Transport, protocol.CodeUnsupportedMessage, "Unsupported message type")
		return
	}

	if err != nil {
		code := mapErrorCode(err)
		if code == protocol.CodeInternalError {
			log.Error().Err(err).Str("module", "signal").Str("conn", string(state.ID)).Msg("dispatch failed")
		}
		ctl.sendError(state.Transport, code, "Request failed")
	}
}

// mapErrorCode folds handler failures into the closed machine-readable
// set; anything unanticipated degrades to internal_error.
func mapErrorCode(err error) protocol.ErrorCode {
	switch {
	case errors.Is(err, errProtocolMismatch):
		return protocol.CodeProtocolMismatch
	case errors.Is(err, security.ErrMissingToken):
		return protocol.CodeMissingToken
	case errors.Is(err, security.ErrInvalidToken):
		return protocol.CodeInvalidToken
	case errors.Is(err, domain.ErrMaxRoomsExceeded):
		return protocol.CodeMaxRooms
	case errors.Is(err, domain.ErrRoomFull):
		return protocol.CodeRoomFull
	case errors.Is(err, domain.ErrRoomNotFound):
		return protocol.CodeRoomNotFound
	case errors.Is(err, domain.ErrParticipantNotFound):
		return protocol.CodeParticipantNotFound
	case errors.Is(err, domain.ErrNotInRoom):
		return protocol.CodeNotInRoom
	case errors.Is(err, domain.ErrPeerNotFound):
		return protocol.CodePeerNotFound
	case errors.Is(err, domain.ErrPermissionDenied):
		return protocol.CodePermissionDenied
	default:
		return protocol.CodeInternalError
	}
}

func messageType(msg protocol.ClientMessage) string {
	switch msg.(type) {
	case *protocol.Hello:
		return "client_hello"
	case *protocol.JoinRoom:
		return "join_room"
	case *protocol.LeaveRoom:
		return "leave_room"
	case *protocol.SetMute:
		return "set_mute"
	case *protocol.ChatMessage:
		return "chat_message"
	case *protocol.CreateChannel:
		return "create_channel"
	case *protocol.DeleteChannel:
		return "delete_channel"
	case *protocol.Offer:
		return "webrtc_offer"
	case *protocol.Answer:
		return "webrtc_answer"
	case *protocol.ICECandidate:
		return "webrtc_ice_candidate"
	case *protocol.Ping:
		return "ping"
	default:
		return "unknown"
	}
}
