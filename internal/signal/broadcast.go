package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/vvoice/signaling/internal/app"
	"github.com/vvoice/signaling/internal/domain"
	"github.com/vvoice/signaling/internal/metrics"
	"github.com/vvoice/signaling/internal/protocol"
)

// send marshals v and hands it to the transport. Fire-and-forget: a full
// or closed peer drops its copy without affecting anyone else.
func (ctl *Controller) send(c app.Sender, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("send marshal")
		return
	}
	if e := log.Debug(); e.Enabled() {
		e.Str("module", "signal").RawJSON("frame", redactForLogs(v, b)).Msg("ws send")
	}
	if err := c.TrySend(b); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("send dropped")
	}
}

func (ctl *Controller) sendError(c app.Sender, code protocol.ErrorCode, message string) {
	metrics.SignalErrors.WithLabelValues(string(code)).Inc()
	ctl.send(c, protocol.NewSignalError(code, message))
}

// broadcastRoom fans a message out to every participant of the room,
// skipping excludePeer when set.
func (ctl *Controller) broadcastRoom(roomID domain.RoomID, v any, excludePeer domain.PeerID) {
	for _, p := range ctl.Rooms.Participants(roomID) {
		if excludePeer != "" && p.PeerID == excludePeer {
			continue
		}
		if conn, ok := ctl.Registry.Get(p.ConnectionID); ok {
			ctl.send(conn.Transport, v)
		}
	}
}

// broadcastAll reaches every live connection regardless of room; used
// only for catalog-wide events.
func (ctl *Controller) broadcastAll(v any) {
	for _, conn := range ctl.Registry.Snapshot() {
		ctl.send(conn.Transport, v)
	}
}

// sendToPeer delivers directly to the connection owning a peer identity.
func (ctl *Controller) sendToPeer(peerID domain.PeerID, v any) bool {
	connID, ok := ctl.Rooms.ConnectionOfPeer(peerID)
	if !ok {
		return false
	}
	conn, ok := ctl.Registry.Get(connID)
	if !ok {
		return false
	}
	ctl.send(conn.Transport, v)
	return true
}

// redactForLogs blanks negotiation payloads before they hit the log;
// SDP and candidate bodies are opaque and potentially sensitive.
func redactForLogs(v any, raw []byte) []byte {
	switch v.(type) {
	case protocol.OfferEvent, protocol.AnswerEvent, protocol.ICECandidateEvent:
		var m map[string]any
		if err := json.Unmarshal(raw, &m); err != nil {
			return []byte(`{}`)
		}
		for _, k := range []string{"sdp", "candidate"} {
			if _, ok := m[k]; ok {
				m[k] = "[redacted]"
			}
		}
		b, err := json.Marshal(m)
		if err != nil {
			return []byte(`{}`)
		}
		return b
	default:
		return raw
	}
}
