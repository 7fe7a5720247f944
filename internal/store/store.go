package store

import (
	"context"

	"github.com/vvoice/signaling/internal/domain"
)

// ChannelStore is the persisted voice-channel catalog. One seeded entry
// is protected and can never be deleted.
type ChannelStore interface {
	ListChannels(ctx context.Context) ([]domain.Channel, error)
	CreateChannel(ctx context.Context, name, description string) (domain.Channel, error)
	RenameChannel(ctx context.Context, id domain.ChannelID, name string) (domain.Channel, error)
	// DeleteChannel reports false when the channel is protected or absent.
	DeleteChannel(ctx context.Context, id domain.ChannelID) (bool, error)
}

// MessageStore appends chat messages and replays the most recent N per
// room in chronological order.
type MessageStore interface {
	AppendMessage(ctx context.Context, rec domain.ChatRecord) error
	RecentMessages(ctx context.Context, roomID domain.RoomID, limit int) ([]domain.ChatRecord, error)
}

// UserStore resolves profile fields for authenticated users.
type UserStore interface {
	// FindUser returns (nil, nil) when the user does not exist.
	FindUser(ctx context.Context, id domain.UserID) (*domain.User, error)
}

// DataStore is everything the signaling server needs from persistence.
type DataStore interface {
	ChannelStore
	MessageStore
	UserStore
	Close() error
}
