package signal

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/vvoice/signaling/internal/app"
	"github.com/vvoice/signaling/internal/config"
	"github.com/vvoice/signaling/internal/protocol"
)

var errProtocolMismatch = errors.New("protocol mismatch")

// handleHello performs the single Unauthenticated → Authenticated
// transition: version check, token verification, profile lookup. A
// failed handshake leaves the transport open; policy elsewhere decides
// whether to hang up.
func (ctl *Controller) handleHello(ctx context.Context, state *app.Conn, m *protocol.Hello) error {
	if m.ProtocolVersion != config.ProtocolVersion {
		return fmt.Errorf("%w: expected %s", errProtocolMismatch, config.ProtocolVersion)
	}

	claims, err := ctl.Verifier.Verify(m.AuthToken)
	if err != nil {
		return err
	}

	state.UserID = claims.UserID
	state.DisplayName = claims.DisplayName
	state.Role = claims.Role
	state.Profile.Role = claims.Role

	// Profile fields are best-effort; an absent row is not a failure.
	if user, err := ctl.Store.FindUser(ctx, claims.UserID); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("user", string(claims.UserID)).Msg("profile lookup failed")
	} else if user != nil {
		state.Profile.AvatarURL = user.AvatarURL
		state.Profile.Bio = user.Bio
	}

	state.Authenticated = true
	log.Info().Str("module", "signal").Str("conn", string(state.ID)).Str("user", string(claims.UserID)).Str("role", string(claims.Role)).Msg("authenticated")

	ctl.send(state.Transport, protocol.NewServerNotice(fmt.Sprintf("Authenticated as %s", state.DisplayName)))

	channels, err := ctl.Store.ListChannels(ctx)
	if err != nil {
		return err
	}
	ctl.send(state.Transport, protocol.NewChannelList(channels))
	return nil
}
