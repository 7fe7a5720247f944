package domain

type ChannelID string

// Channel is one entry of the persisted voice-channel catalog.
type Channel struct {
	ID          ChannelID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Position    int       `json:"position"`
}

// ChatRecord is a persisted chat message, replayed to late joiners.
type ChatRecord struct {
	RoomID    RoomID
	SenderID  string
	UserName  string
	Content   string
	CreatedAt int64 // unix milliseconds
}
