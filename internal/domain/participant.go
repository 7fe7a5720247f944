package domain

type (
	RoomID       string
	ConnectionID string
	PeerID       string
	UserID       string
)

// Profile carries the optional user fields captured at authentication
// time and copied into every participant the connection creates.
type Profile struct {
	AvatarURL string
	Bio       string
	Role      Role
}

// Participant is a connection's membership in one room. Only Muted is
// mutated after creation; everything else is fixed for its lifetime.
type Participant struct {
	PeerID       PeerID
	ConnectionID ConnectionID
	UserID       UserID
	DisplayName  string
	Muted        bool
	Profile      Profile
}

// View is the read-only shape of a participant that goes over the wire.
// Transport and connection fields never leave the room manager.
type View struct {
	PeerID      PeerID `json:"peerId"`
	UserID      UserID `json:"userId"`
	DisplayName string `json:"displayName"`
	Muted       bool   `json:"muted"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
	Bio         string `json:"bio,omitempty"`
	Role        string `json:"role,omitempty"`
}

func (p *Participant) View() View {
	return View{
		PeerID:      p.PeerID,
		UserID:      p.UserID,
		DisplayName: p.DisplayName,
		Muted:       p.Muted,
		AvatarURL:   p.Profile.AvatarURL,
		Bio:         p.Profile.Bio,
		Role:        string(p.Profile.Role),
	}
}
