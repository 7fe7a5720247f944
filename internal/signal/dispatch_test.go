package signal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvoice/signaling/internal/app"
	"github.com/vvoice/signaling/internal/config"
	"github.com/vvoice/signaling/internal/domain"
	"github.com/vvoice/signaling/internal/protocol"
	"github.com/vvoice/signaling/internal/security"
)

type mockSender struct {
	mu     sync.Mutex
	frames [][]byte
	closed bool
}

func (m *mockSender) TrySend(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames = append(m.frames, data)
	return nil
}

func (m *mockSender) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
}

// received decodes every captured frame into a generic map.
func (m *mockSender) received(t *testing.T) []map[string]any {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]map[string]any, 0, len(m.frames))
	for _, f := range m.frames {
		var v map[string]any
		require.NoError(t, json.Unmarshal(f, &v))
		out = append(out, v)
	}
	return out
}

func (m *mockSender) ofType(t *testing.T, typ string) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, f := range m.received(t) {
		if f["type"] == typ {
			out = append(out, f)
		}
	}
	return out
}

func (m *mockSender) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames = nil
}

type staticVerifier struct {
	tokens map[string]domain.Claims
}

func (v *staticVerifier) Verify(token string) (domain.Claims, error) {
	if token == "" {
		return domain.Claims{}, security.ErrMissingToken
	}
	claims, ok := v.tokens[token]
	if !ok {
		return domain.Claims{}, security.ErrInvalidToken
	}
	return claims, nil
}

type fakeStore struct {
	mu       sync.Mutex
	channels []domain.Channel
	messages []domain.ChatRecord
	users    map[domain.UserID]*domain.User
	failing  bool
}

var errStoreDown = errors.New("store down")

func newFakeStore() *fakeStore {
	return &fakeStore{
		channels: []domain.Channel{{ID: "1", Name: "General", Position: 0}},
		users:    make(map[domain.UserID]*domain.User),
	}
}

func (s *fakeStore) ListChannels(context.Context) ([]domain.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return nil, errStoreDown
	}
	return append([]domain.Channel(nil), s.channels...), nil
}

func (s *fakeStore) CreateChannel(_ context.Context, name, description string) (domain.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return domain.Channel{}, errStoreDown
	}
	ch := domain.Channel{
		ID:          domain.ChannelID(fmt.Sprintf("%d", len(s.channels)+1)),
		Name:        name,
		Description: description,
		Position:    len(s.channels),
	}
	s.channels = append(s.channels, ch)
	return ch, nil
}

func (s *fakeStore) RenameChannel(_ context.Context, id domain.ChannelID, name string) (domain.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.channels {
		if s.channels[i].ID == id {
			s.channels[i].Name = name
			return s.channels[i], nil
		}
	}
	return domain.Channel{}, errStoreDown
}

func (s *fakeStore) DeleteChannel(_ context.Context, id domain.ChannelID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return false, errStoreDown
	}
	if id == "1" {
		return false, nil // protected
	}
	for i := range s.channels {
		if s.channels[i].ID == id {
			s.channels = append(s.channels[:i], s.channels[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) AppendMessage(_ context.Context, rec domain.ChatRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return errStoreDown
	}
	s.messages = append(s.messages, rec)
	return nil
}

func (s *fakeStore) RecentMessages(_ context.Context, roomID domain.RoomID, limit int) ([]domain.ChatRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return nil, errStoreDown
	}
	var out []domain.ChatRecord
	for _, rec := range s.messages {
		if rec.RoomID == roomID {
			out = append(out, rec)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *fakeStore) FindUser(_ context.Context, id domain.UserID) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[id], nil
}

func (s *fakeStore) Close() error { return nil }

func testConfig() *config.Config {
	return &config.Config{
		Mode:                  "test",
		MaxRoomParticipants:   8,
		MaxRoomsPerConnection: 2,
		MaxConnectionsPerIP:   5,
		MessageBurst:          60,
		MessageWindow:         10 * time.Second,
		ChatHistoryLimit:      50,
	}
}

type harness struct {
	ctl   *Controller
	store *fakeStore
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	st := newFakeStore()
	cfg := testConfig()
	ctl := NewController(
		cfg,
		app.NewRoomManager(cfg.MaxRoomParticipants, cfg.MaxRoomsPerConnection),
		app.NewRegistry(),
		&staticVerifier{tokens: map[string]domain.Claims{
			"tok-a":     {UserID: "u-a", DisplayName: "Alice", Role: domain.RoleMember},
			"tok-b":     {UserID: "u-b", DisplayName: "Bob", Role: domain.RoleMember},
			"tok-admin": {UserID: "u-r", DisplayName: "Root", Role: domain.RoleAdmin},
		}},
		security.NewCredentialIssuer(security.TURNConfig{}),
		st,
	)
	return &harness{ctl: ctl, store: st}
}

// connect registers a fresh unauthenticated connection backed by a mock
// transport.
func (h *harness) connect() (*app.Conn, *mockSender) {
	sender := &mockSender{}
	state := &app.Conn{
		ID:          domain.ConnectionID(uuid.NewString()),
		IP:          "127.0.0.1",
		Transport:   sender,
		DisplayName: "Anonymous",
		Role:        domain.RoleMember,
	}
	h.ctl.Registry.Add(state)
	return state, sender
}

func (h *harness) hello(t *testing.T, state *app.Conn, token string) {
	t.Helper()
	h.ctl.dispatch(context.Background(), state, &protocol.Hello{
		ProtocolVersion: config.ProtocolVersion,
		AuthToken:       token,
	})
	require.True(t, state.Authenticated)
}

func (h *harness) join(t *testing.T, state *app.Conn, sender *mockSender, roomID, name string) domain.PeerID {
	t.Helper()
	h.ctl.dispatch(context.Background(), state, &protocol.JoinRoom{RoomID: roomID, DisplayName: name})
	joined := sender.ofType(t, "room_joined")
	require.NotEmpty(t, joined, "expected room_joined reply")
	return domain.PeerID(joined[len(joined)-1]["selfPeerId"].(string))
}

func TestDispatch_UnauthenticatedIsRejected(t *testing.T) {
	h := newHarness(t)
	state, sender := h.connect()

	h.ctl.dispatch(context.Background(), state, &protocol.JoinRoom{RoomID: "r1", DisplayName: "x"})

	frames := sender.received(t)
	require.Len(t, frames, 1)
	assert.Equal(t, "signal_error", frames[0]["type"])
	assert.Equal(t, "unauthorized", frames[0]["code"])
	assert.Equal(t, 0, h.ctl.Rooms.RoomCount(), "handler logic must not run")
}

func TestDispatch_HelloFailures(t *testing.T) {
	tests := []struct {
		name     string
		msg      *protocol.Hello
		wantCode string
	}{
		{"protocol mismatch", &protocol.Hello{ProtocolVersion: "0.9.0", AuthToken: "tok-a"}, "protocol_mismatch"},
		{"missing token", &protocol.Hello{ProtocolVersion: config.ProtocolVersion}, "missing_token"},
		{"invalid token", &protocol.Hello{ProtocolVersion: config.ProtocolVersion, AuthToken: "bogus"}, "invalid_token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			state, sender := h.connect()

			h.ctl.dispatch(context.Background(), state, tt.msg)

			assert.False(t, state.Authenticated)
			errFrames := sender.ofType(t, "signal_error")
			require.Len(t, errFrames, 1)
			assert.Equal(t, tt.wantCode, errFrames[0]["code"])
		})
	}
}

func TestDispatch_HelloSendsNoticeAndCatalog(t *testing.T) {
	h := newHarness(t)
	h.store.users["u-a"] = &domain.User{ID: "u-a", Username: "alice", AvatarURL: "http://a/b.png", Bio: "hi"}
	state, sender := h.connect()

	h.hello(t, state, "tok-a")

	assert.Equal(t, domain.UserID("u-a"), state.UserID)
	assert.Equal(t, "Alice", state.DisplayName)
	assert.Equal(t, "http://a/b.png", state.Profile.AvatarURL)

	require.Len(t, sender.ofType(t, "server_notice"), 1)
	lists := sender.ofType(t, "channel_list")
	require.Len(t, lists, 1)
	channels := lists[0]["channels"].([]any)
	require.Len(t, channels, 1)
	assert.Equal(t, "General", channels[0].(map[string]any)["name"])
}

func TestDispatch_TwoPartyRelay(t *testing.T) {
	h := newHarness(t)

	stateA, senderA := h.connect()
	h.hello(t, stateA, "tok-a")
	peerA := h.join(t, stateA, senderA, "r1", "Alice")

	stateB, senderB := h.connect()
	h.hello(t, stateB, "tok-b")
	senderA.reset()
	peerB := h.join(t, stateB, senderB, "r1", "Bob")

	// A observes B's arrival with a fresh peer id.
	joinedEvents := senderA.ofType(t, "participant_joined")
	require.Len(t, joinedEvents, 1)
	assert.Equal(t, "Bob", joinedEvents[0]["displayName"])
	assert.Equal(t, string(peerB), joinedEvents[0]["peerId"])

	// B's own view of the room names A.
	roomJoined := senderB.ofType(t, "room_joined")
	require.Len(t, roomJoined, 1)
	participants := roomJoined[0]["participants"].([]any)
	require.Len(t, participants, 1)
	assert.Equal(t, "Alice", participants[0].(map[string]any)["displayName"])

	// Offer relays verbatim with the sender identity substituted.
	h.ctl.dispatch(context.Background(), stateA, &protocol.Offer{ToPeerID: string(peerB), SDP: "X"})

	offers := senderB.ofType(t, "webrtc_offer")
	require.Len(t, offers, 1)
	assert.Equal(t, string(peerA), offers[0]["fromPeerId"])
	assert.Equal(t, "X", offers[0]["sdp"])
}

func TestDispatch_RelayErrors(t *testing.T) {
	h := newHarness(t)

	state, sender := h.connect()
	h.hello(t, state, "tok-a")

	// Not in any room yet.
	h.ctl.dispatch(context.Background(), state, &protocol.Offer{ToPeerID: "nobody", SDP: "X"})
	errFrames := sender.ofType(t, "signal_error")
	require.Len(t, errFrames, 1)
	assert.Equal(t, "not_in_room", errFrames[0]["code"])

	// In a room, but the destination peer does not exist.
	h.join(t, state, sender, "r1", "Alice")
	h.ctl.dispatch(context.Background(), state, &protocol.ICECandidate{ToPeerID: "nobody", Candidate: "c"})
	errFrames = sender.ofType(t, "signal_error")
	require.Len(t, errFrames, 2)
	assert.Equal(t, "peer_not_found", errFrames[1]["code"])
}

func TestDispatch_ChatReplay(t *testing.T) {
	h := newHarness(t)

	stateA, senderA := h.connect()
	h.hello(t, stateA, "tok-a")
	h.join(t, stateA, senderA, "r1", "Alice")

	h.ctl.dispatch(context.Background(), stateA, &protocol.ChatMessage{RoomID: "r1", Content: "hi"})
	broadcastTS := senderA.ofType(t, "chat_message")[0]["timestamp"].(float64)

	stateB, senderB := h.connect()
	h.hello(t, stateB, "tok-b")
	h.join(t, stateB, senderB, "r1", "Bob")

	replay := senderB.ofType(t, "chat_message")
	require.Len(t, replay, 1)
	assert.Equal(t, "hi", replay[0]["content"])
	assert.Equal(t, "u-a", replay[0]["senderId"], "history carries the stable user id")
	assert.LessOrEqual(t, replay[0]["timestamp"].(float64), broadcastTS)
}

func TestDispatch_ChatRequiresMembership(t *testing.T) {
	h := newHarness(t)
	state, sender := h.connect()
	h.hello(t, state, "tok-a")

	h.ctl.dispatch(context.Background(), state, &protocol.ChatMessage{RoomID: "r1", Content: "hi"})

	errFrames := sender.ofType(t, "signal_error")
	require.Len(t, errFrames, 1)
	assert.Equal(t, "not_in_room", errFrames[0]["code"])
	assert.Empty(t, h.store.messages, "rejected chat must not persist")
}

func TestDispatch_SetMuteBroadcasts(t *testing.T) {
	h := newHarness(t)

	stateA, senderA := h.connect()
	h.hello(t, stateA, "tok-a")
	peerA := h.join(t, stateA, senderA, "r1", "Alice")

	stateB, senderB := h.connect()
	h.hello(t, stateB, "tok-b")
	h.join(t, stateB, senderB, "r1", "Bob")

	h.ctl.dispatch(context.Background(), stateA, &protocol.SetMute{RoomID: "r1", Muted: true})

	muted := senderB.ofType(t, "participant_muted")
	require.Len(t, muted, 1)
	assert.Equal(t, string(peerA), muted[0]["peerId"])
	assert.Equal(t, true, muted[0]["muted"])
}

func TestDispatch_LeaveRoomBroadcasts(t *testing.T) {
	h := newHarness(t)

	stateA, senderA := h.connect()
	h.hello(t, stateA, "tok-a")
	peerA := h.join(t, stateA, senderA, "r1", "Alice")

	stateB, senderB := h.connect()
	h.hello(t, stateB, "tok-b")
	h.join(t, stateB, senderB, "r1", "Bob")

	h.ctl.dispatch(context.Background(), stateA, &protocol.LeaveRoom{RoomID: "r1"})

	left := senderB.ofType(t, "participant_left")
	require.Len(t, left, 1)
	assert.Equal(t, string(peerA), left[0]["peerId"])
	assert.Len(t, h.ctl.Rooms.Participants("r1"), 1)
}

func TestTeardown_DisconnectCleanup(t *testing.T) {
	h := newHarness(t)

	stateA, senderA := h.connect()
	h.hello(t, stateA, "tok-a")
	peerA := h.join(t, stateA, senderA, "r1", "Alice")

	stateB, senderB := h.connect()
	h.hello(t, stateB, "tok-b")
	peerB := h.join(t, stateB, senderB, "r1", "Bob")

	h.ctl.teardown(stateA)

	left := senderB.ofType(t, "participant_left")
	require.Len(t, left, 1, "exactly one departure notice")
	assert.Equal(t, string(peerA), left[0]["peerId"])

	remaining := h.ctl.Rooms.Participants("r1")
	require.Len(t, remaining, 1)
	assert.Equal(t, peerB, remaining[0].PeerID)

	_, ok := h.ctl.Registry.Get(stateA.ID)
	assert.False(t, ok)
	senderA.mu.Lock()
	assert.True(t, senderA.closed)
	senderA.mu.Unlock()

	// Cleanup is idempotent: nothing further is broadcast.
	senderB.reset()
	assert.Empty(t, h.ctl.Rooms.LeaveAll(stateA.ID))
	assert.Empty(t, senderB.received(t))
}

func TestDispatch_ChannelAdminGate(t *testing.T) {
	h := newHarness(t)

	member, memberSender := h.connect()
	h.hello(t, member, "tok-a")
	memberSender.reset()

	bystander, bystanderSender := h.connect()
	h.hello(t, bystander, "tok-b")
	bystanderSender.reset()

	// Non-admin create fails and nobody hears about it.
	h.ctl.dispatch(context.Background(), member, &protocol.CreateChannel{Name: "lounge"})
	errFrames := memberSender.ofType(t, "signal_error")
	require.Len(t, errFrames, 1)
	assert.Equal(t, "permission_denied", errFrames[0]["code"])
	assert.Empty(t, bystanderSender.received(t))
	assert.Len(t, h.store.channels, 1)

	// Admin create succeeds and every connection gets the new catalog.
	admin, adminSender := h.connect()
	h.hello(t, admin, "tok-admin")
	adminSender.reset()
	bystanderSender.reset()
	memberSender.reset()

	h.ctl.dispatch(context.Background(), admin, &protocol.CreateChannel{Name: "lounge"})

	for _, s := range []*mockSender{memberSender, bystanderSender, adminSender} {
		lists := s.ofType(t, "channel_list")
		require.Len(t, lists, 1)
		assert.Len(t, lists[0]["channels"].([]any), 2)
	}
}

func TestDispatch_DeleteProtectedChannel(t *testing.T) {
	h := newHarness(t)
	admin, adminSender := h.connect()
	h.hello(t, admin, "tok-admin")
	adminSender.reset()

	h.ctl.dispatch(context.Background(), admin, &protocol.DeleteChannel{ChannelID: "1"})

	errFrames := adminSender.ofType(t, "signal_error")
	require.Len(t, errFrames, 1)
	assert.Equal(t, "permission_denied", errFrames[0]["code"])
	assert.Empty(t, adminSender.ofType(t, "channel_list"))
}

func TestDispatch_StoreFailureDegrades(t *testing.T) {
	h := newHarness(t)
	state, sender := h.connect()
	h.hello(t, state, "tok-a")
	h.join(t, state, sender, "r1", "Alice")
	sender.reset()

	h.store.failing = true
	h.ctl.dispatch(context.Background(), state, &protocol.ChatMessage{RoomID: "r1", Content: "hi"})

	errFrames := sender.ofType(t, "signal_error")
	require.Len(t, errFrames, 1)
	assert.Equal(t, "internal_error", errFrames[0]["code"])

	// The connection stays usable.
	h.store.failing = false
	h.ctl.dispatch(context.Background(), state, &protocol.Ping{})
	assert.Len(t, sender.ofType(t, "pong"), 1)
}

func TestDispatch_Ping(t *testing.T) {
	h := newHarness(t)
	state, sender := h.connect()
	h.hello(t, state, "tok-a")
	sender.reset()

	before := time.Now().UnixMilli()
	h.ctl.dispatch(context.Background(), state, &protocol.Ping{})

	pongs := sender.ofType(t, "pong")
	require.Len(t, pongs, 1)
	assert.GreaterOrEqual(t, int64(pongs[0]["ts"].(float64)), before)
}

func TestDispatch_RoomFullSurfaces(t *testing.T) {
	h := newHarness(t)
	h.ctl.Cfg.MaxRoomParticipants = 1
	h.ctl.Rooms = app.NewRoomManager(1, 2)

	stateA, senderA := h.connect()
	h.hello(t, stateA, "tok-a")
	h.join(t, stateA, senderA, "r1", "Alice")

	stateB, senderB := h.connect()
	h.hello(t, stateB, "tok-b")
	h.ctl.dispatch(context.Background(), stateB, &protocol.JoinRoom{RoomID: "r1", DisplayName: "Bob"})

	errFrames := senderB.ofType(t, "signal_error")
	require.Len(t, errFrames, 1)
	assert.Equal(t, "room_full", errFrames[0]["code"])
	assert.Len(t, h.ctl.Rooms.Participants("r1"), 1)
}
