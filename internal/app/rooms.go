package app

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vvoice/signaling/internal/domain"
)

type room struct {
	id           domain.RoomID
	participants map[domain.PeerID]*domain.Participant
}

// RoomManager is the authoritative in-memory registry of rooms and
// participants. The peer index lives under the same mutex as the rooms
// so a peer entry exists exactly while its participant does, and the
// capacity check and insert of a join are atomic as a unit. No blocking
// I/O happens while the lock is held.
type RoomManager struct {
	mu           sync.RWMutex
	rooms        map[domain.RoomID]*room
	byConnection map[domain.ConnectionID]map[domain.RoomID]struct{}
	byPeer       map[domain.PeerID]*domain.Participant

	maxParticipantsPerRoom int
	maxRoomsPerConnection  int
}

func NewRoomManager(maxParticipantsPerRoom, maxRoomsPerConnection int) *RoomManager {
	return &RoomManager{
		rooms:                  make(map[domain.RoomID]*room),
		byConnection:           make(map[domain.ConnectionID]map[domain.RoomID]struct{}),
		byPeer:                 make(map[domain.PeerID]*domain.Participant),
		maxParticipantsPerRoom: maxParticipantsPerRoom,
		maxRoomsPerConnection:  maxRoomsPerConnection,
	}
}

// JoinResult carries the new participant plus views of everyone already
// in the room, self excluded, in no particular order.
type JoinResult struct {
	Self   *domain.Participant
	Others []domain.View
}

// Join inserts a fresh participant into roomID, creating the room lazily.
// The peer identity is generated anew on every join so identities cannot
// be correlated across rejoins.
func (m *RoomManager) Join(connID domain.ConnectionID, userID domain.UserID, displayName string, roomID domain.RoomID, profile domain.Profile) (JoinResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	joined := m.byConnection[connID]
	if _, already := joined[roomID]; !already && len(joined) >= m.maxRoomsPerConnection {
		return JoinResult{}, domain.ErrMaxRoomsExceeded
	}

	r, ok := m.rooms[roomID]
	if !ok {
		r = &room{id: roomID, participants: make(map[domain.PeerID]*domain.Participant)}
		m.rooms[roomID] = r
	}
	if len(r.participants) >= m.maxParticipantsPerRoom {
		if len(r.participants) == 0 {
			delete(m.rooms, roomID)
		}
		return JoinResult{}, domain.ErrRoomFull
	}

	p := &domain.Participant{
		PeerID:       domain.PeerID(uuid.NewString()),
		ConnectionID: connID,
		UserID:       userID,
		DisplayName:  displayName,
		Profile:      profile,
	}
	r.participants[p.PeerID] = p
	m.byPeer[p.PeerID] = p

	if joined == nil {
		joined = make(map[domain.RoomID]struct{})
		m.byConnection[connID] = joined
	}
	joined[roomID] = struct{}{}

	others := make([]domain.View, 0, len(r.participants)-1)
	for peerID, other := range r.participants {
		if peerID == p.PeerID {
			continue
		}
		others = append(others, other.View())
	}

	log.Info().Str("module", "app.rooms").Str("room", string(roomID)).Str("peer", string(p.PeerID)).Int("count", len(r.participants)).Msg("participant joined")
	return JoinResult{Self: p, Others: others}, nil
}

// Leave removes every participant owned by connID in roomID and deletes
// the room when it empties. Not being a member is not an error; the
// result is just empty.
func (m *RoomManager) Leave(connID domain.ConnectionID, roomID domain.RoomID) []*domain.Participant {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.leaveLocked(connID, roomID)
}

func (m *RoomManager) leaveLocked(connID domain.ConnectionID, roomID domain.RoomID) []*domain.Participant {
	r, ok := m.rooms[roomID]
	if !ok {
		return nil
	}

	var removed []*domain.Participant
	for peerID, p := range r.participants {
		if p.ConnectionID == connID {
			delete(r.participants, peerID)
			delete(m.byPeer, peerID)
			removed = append(removed, p)
		}
	}

	if joined, ok := m.byConnection[connID]; ok {
		delete(joined, roomID)
		if len(joined) == 0 {
			delete(m.byConnection, connID)
		}
	}
	if len(r.participants) == 0 {
		delete(m.rooms, roomID)
		log.Info().Str("module", "app.rooms").Str("room", string(roomID)).Msg("room deleted (empty)")
	}
	return removed
}

// Departure pairs a removed participant with the room it was removed
// from so callers can broadcast one departure per room.
type Departure struct {
	RoomID      domain.RoomID
	Participant *domain.Participant
}

// LeaveAll removes the connection from every room it belongs to. Safe to
// call twice; the second call returns nothing.
func (m *RoomManager) LeaveAll(connID domain.ConnectionID) []Departure {
	m.mu.Lock()
	defer m.mu.Unlock()

	joined, ok := m.byConnection[connID]
	if !ok {
		return nil
	}
	roomIDs := make([]domain.RoomID, 0, len(joined))
	for roomID := range joined {
		roomIDs = append(roomIDs, roomID)
	}

	var events []Departure
	for _, roomID := range roomIDs {
		for _, p := range m.leaveLocked(connID, roomID) {
			events = append(events, Departure{RoomID: roomID, Participant: p})
		}
	}
	return events
}

// SetMute toggles the mute flag of the connection's participant in
// roomID and returns the updated view.
func (m *RoomManager) SetMute(connID domain.ConnectionID, roomID domain.RoomID, muted bool) (domain.View, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rooms[roomID]
	if !ok {
		return domain.View{}, domain.ErrRoomNotFound
	}
	for _, p := range r.participants {
		if p.ConnectionID == connID {
			p.Muted = muted
			return p.View(), nil
		}
	}
	return domain.View{}, domain.ErrParticipantNotFound
}

// Participants returns a copied snapshot of the room's members, safe to
// iterate while mutations proceed elsewhere.
func (m *RoomManager) Participants(roomID domain.RoomID) []domain.Participant {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.rooms[roomID]
	if !ok {
		return nil
	}
	out := make([]domain.Participant, 0, len(r.participants))
	for _, p := range r.participants {
		out = append(out, *p)
	}
	return out
}

// ConnectionOfPeer resolves a peer identity to its owning connection via
// the peer index. An entry exists iff the participant is in some room.
func (m *RoomManager) ConnectionOfPeer(peerID domain.PeerID) (domain.ConnectionID, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.byPeer[peerID]
	if !ok {
		return "", false
	}
	return p.ConnectionID, true
}

// RoomsOf lists the rooms the connection currently belongs to.
func (m *RoomManager) RoomsOf(connID domain.ConnectionID) []domain.RoomID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.RoomID, 0, len(m.byConnection[connID]))
	for roomID := range m.byConnection[connID] {
		out = append(out, roomID)
	}
	return out
}

// IsMember reports whether the connection has a participant in roomID.
func (m *RoomManager) IsMember(connID domain.ConnectionID, roomID domain.RoomID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.byConnection[connID][roomID]
	return ok
}

// RoomCount is used by the metrics collector.
func (m *RoomManager) RoomCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}
