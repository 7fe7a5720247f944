package signal

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/vvoice/signaling/internal/app"
	"github.com/vvoice/signaling/internal/domain"
	"github.com/vvoice/signaling/internal/metrics"
	"github.com/vvoice/signaling/internal/protocol"
)

// handleJoinRoom completes the join synchronously before the joiner is
// acknowledged, so everyone already in the room observes the arrival
// before the joiner can send any further room-scoped message.
func (ctl *Controller) handleJoinRoom(ctx context.Context, state *app.Conn, m *protocol.JoinRoom) error {
	roomID := domain.RoomID(m.RoomID)
	joined, err := ctl.Rooms.Join(state.ID, state.UserID, m.DisplayName, roomID, state.Profile)
	if err != nil {
		return err
	}
	metrics.ActiveRooms.Set(float64(ctl.Rooms.RoomCount()))

	ctl.send(state.Transport, protocol.NewRoomJoined(
		roomID,
		joined.Self.PeerID,
		joined.Others,
		ctl.Issuer.Issue(string(state.UserID)),
	))

	ctl.broadcastRoom(roomID, protocol.NewParticipantJoined(roomID, joined.Self.View()), joined.Self.PeerID)

	// Replay recent chat to the joiner only, oldest first. History
	// failures degrade the replay, not the join.
	history, err := ctl.Store.RecentMessages(ctx, roomID, ctl.Cfg.ChatHistoryLimit)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("room", string(roomID)).Msg("chat history replay failed")
		return nil
	}
	for _, rec := range history {
		ctl.send(state.Transport, protocol.NewChatEvent(roomID, rec.SenderID, rec.UserName, rec.Content, rec.CreatedAt))
	}
	return nil
}

func (ctl *Controller) handleLeaveRoom(state *app.Conn, m *protocol.LeaveRoom) error {
	roomID := domain.RoomID(m.RoomID)
	removed := ctl.Rooms.Leave(state.ID, roomID)
	metrics.ActiveRooms.Set(float64(ctl.Rooms.RoomCount()))
	for _, p := range removed {
		ctl.broadcastRoom(roomID, protocol.NewParticipantLeft(roomID, p.PeerID), "")
	}
	return nil
}

func (ctl *Controller) handleSetMute(state *app.Conn, m *protocol.SetMute) error {
	roomID := domain.RoomID(m.RoomID)
	view, err := ctl.Rooms.SetMute(state.ID, roomID, m.Muted)
	if err != nil {
		return err
	}
	ctl.broadcastRoom(roomID, protocol.NewParticipantMuted(roomID, view.PeerID, view.Muted), "")
	return nil
}
