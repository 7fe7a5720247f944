package domain

import "errors"

// Membership rule violations. The dispatch layer maps these onto the
// wire error codes; nothing here crosses the transport boundary as-is.
var (
	ErrMaxRoomsExceeded    = errors.New("max rooms per connection exceeded")
	ErrRoomFull            = errors.New("room full")
	ErrRoomNotFound        = errors.New("room not found")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrNotInRoom           = errors.New("not in room")
	ErrPeerNotFound        = errors.New("peer not found")
	ErrPermissionDenied    = errors.New("permission denied")
)
