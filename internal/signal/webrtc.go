package signal

import (
	"github.com/vvoice/signaling/internal/app"
	"github.com/vvoice/signaling/internal/domain"
	"github.com/vvoice/signaling/internal/protocol"
)

// Point-to-point negotiation relay. Payloads stay opaque end to end; the
// server only swaps the declared sender for the connection's own peer
// identity and forwards.

// relayIdentity resolves the sender's peer identity: the connection must
// hold at least one before it may signal anybody.
func (ctl *Controller) relayIdentity(state *app.Conn) (domain.PeerID, error) {
	for _, roomID := range ctl.Rooms.RoomsOf(state.ID) {
		for _, p := range ctl.Rooms.Participants(roomID) {
			if p.ConnectionID == state.ID {
				return p.PeerID, nil
			}
		}
	}
	return "", domain.ErrNotInRoom
}

func (ctl *Controller) handleOffer(state *app.Conn, m *protocol.Offer) error {
	from, err := ctl.relayIdentity(state)
	if err != nil {
		return err
	}
	if !ctl.sendToPeer(domain.PeerID(m.ToPeerID), protocol.NewOfferEvent(from, m.SDP)) {
		return domain.ErrPeerNotFound
	}
	return nil
}

func (ctl *Controller) handleAnswer(state *app.Conn, m *protocol.Answer) error {
	from, err := ctl.relayIdentity(state)
	if err != nil {
		return err
	}
	if !ctl.sendToPeer(domain.PeerID(m.ToPeerID), protocol.NewAnswerEvent(from, m.SDP)) {
		return domain.ErrPeerNotFound
	}
	return nil
}

func (ctl *Controller) handleICECandidate(state *app.Conn, m *protocol.ICECandidate) error {
	from, err := ctl.relayIdentity(state)
	if err != nil {
		return err
	}
	if !ctl.sendToPeer(domain.PeerID(m.ToPeerID), protocol.NewICECandidateEvent(from, m.Candidate)) {
		return domain.ErrPeerNotFound
	}
	return nil
}
