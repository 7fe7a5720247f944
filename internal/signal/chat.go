package signal

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vvoice/signaling/internal/app"
	"github.com/vvoice/signaling/internal/domain"
	"github.com/vvoice/signaling/internal/protocol"
)

// handleChat persists the message and fans it out to the room, sender
// included. Live broadcasts identify the sender by peer identity when
// one exists so receivers can correlate with the participant list;
// history rows keep the stable user id.
func (ctl *Controller) handleChat(ctx context.Context, state *app.Conn, m *protocol.ChatMessage) error {
	roomID := domain.RoomID(m.RoomID)
	if !ctl.Rooms.IsMember(state.ID, roomID) {
		return domain.ErrNotInRoom
	}

	senderID := string(state.UserID)
	for _, p := range ctl.Rooms.Participants(roomID) {
		if p.ConnectionID == state.ID {
			senderID = string(p.PeerID)
			break
		}
	}

	ts := time.Now().UnixMilli()
	rec := domain.ChatRecord{
		RoomID:    roomID,
		SenderID:  string(state.UserID),
		UserName:  state.DisplayName,
		Content:   m.Content,
		CreatedAt: ts,
	}
	if err := ctl.Store.AppendMessage(ctx, rec); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("room", string(roomID)).Msg("chat persist failed")
		return err
	}

	ctl.broadcastRoom(roomID, protocol.NewChatEvent(roomID, senderID, state.DisplayName, m.Content, ts), "")
	return nil
}
