package signal

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/vvoice/signaling/internal/app"
	"github.com/vvoice/signaling/internal/metrics"
	"github.com/vvoice/signaling/internal/protocol"
)

const writeDeadline = 5 * time.Second

func (ctl *Controller) writePump(ctx context.Context, c *wsConn) {
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *Controller) readPump(ctx context.Context, cancel context.CancelFunc, state *app.Conn, c *wsConn) {
	defer func() {
		cancel()
		ctl.teardown(state)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Info().Err(err).Str("module", "signal").Str("conn", string(state.ID)).Msg("readPump closing")
				return
			}
			if !ctl.handleFrame(ctx, state, c, data) {
				return
			}
		}
	}
}

// handleFrame applies the message rate limit, decodes, and dispatches
// one inbound frame. A false return forces the transport closed: rate
// abuse is the one violation that ends the connection.
func (ctl *Controller) handleFrame(ctx context.Context, state *app.Conn, c *wsConn, data []byte) bool {
	if !ctl.limiter.Allow(string(state.ID)) {
		metrics.RateLimitTrips.Inc()
		ctl.sendError(c, protocol.CodeRateLimited, "Too many messages")
		_ = c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "rate_limited"),
			time.Now().Add(writeDeadline),
		)
		return false
	}

	msg, err := protocol.Decode(data)
	if err != nil {
		switch err {
		case protocol.ErrInvalidJSON:
			ctl.sendError(c, protocol.CodeInvalidJSON, "Invalid JSON payload")
		case protocol.ErrUnsupportedMessage:
			ctl.sendError(c, protocol.CodeUnsupportedMessage, "Unsupported message type")
		default:
			ctl.sendError(c, protocol.CodeInvalidMessage, "Message does not conform to protocol")
		}
		return true
	}

	ctl.dispatch(ctx, state, msg)
	return true
}

// teardown runs the disconnect path: membership cleanup, departure
// broadcasts, registry and limiter eviction. It is the same path for
// abrupt and graceful closes.
func (ctl *Controller) teardown(state *app.Conn) {
	departures := ctl.Rooms.LeaveAll(state.ID)
	for _, ev := range departures {
		ctl.broadcastRoom(ev.RoomID, protocol.NewParticipantLeft(ev.RoomID, ev.Participant.PeerID), "")
	}

	ctl.Registry.Remove(state.ID)
	ctl.limiter.Clear(string(state.ID))
	ctl.releaseIP(state.IP)
	state.Transport.Close()

	metrics.ActiveConnections.Dec()
	metrics.ActiveRooms.Set(float64(ctl.Rooms.RoomCount()))
	log.Info().Str("module", "signal").Str("conn", string(state.ID)).Int("departures", len(departures)).Msg("connection torn down")
}
