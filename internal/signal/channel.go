package signal

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/vvoice/signaling/internal/app"
	"github.com/vvoice/signaling/internal/domain"
	"github.com/vvoice/signaling/internal/protocol"
)

// Channel catalog administration. Both operations are admin-gated and,
// on success, push the refreshed catalog to every live connection, not
// just one room.

func (ctl *Controller) handleCreateChannel(ctx context.Context, state *app.Conn, m *protocol.CreateChannel) error {
	if state.Role != domain.RoleAdmin {
		return domain.ErrPermissionDenied
	}

	ch, err := ctl.Store.CreateChannel(ctx, m.Name, m.Description)
	if err != nil {
		return err
	}
	log.Info().Str("module", "signal").Str("channel", string(ch.ID)).Str("name", ch.Name).Msg("channel created")

	return ctl.broadcastChannelList(ctx)
}

func (ctl *Controller) handleDeleteChannel(ctx context.Context, state *app.Conn, m *protocol.DeleteChannel) error {
	if state.Role != domain.RoleAdmin {
		return domain.ErrPermissionDenied
	}

	deleted, err := ctl.Store.DeleteChannel(ctx, domain.ChannelID(m.ChannelID))
	if err != nil {
		return err
	}
	if !deleted {
		// Protected or unknown channel; either way the catalog stands.
		return domain.ErrPermissionDenied
	}
	log.Info().Str("module", "signal").Str("channel", m.ChannelID).Msg("channel deleted")

	return ctl.broadcastChannelList(ctx)
}

func (ctl *Controller) broadcastChannelList(ctx context.Context) error {
	channels, err := ctl.Store.ListChannels(ctx)
	if err != nil {
		return err
	}
	ctl.broadcastAll(protocol.NewChannelList(channels))
	return nil
}
