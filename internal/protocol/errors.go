package protocol

// ErrorCode is the closed set of machine-readable failure codes a client
// can receive in a signal_error frame. Anything the dispatcher cannot
// classify becomes CodeInternalError; internal detail never leaks.
type ErrorCode string

const (
	CodeUnauthorized        ErrorCode = "unauthorized"
	CodeProtocolMismatch    ErrorCode = "protocol_mismatch"
	CodeMissingToken        ErrorCode = "missing_token"
	CodeInvalidToken        ErrorCode = "invalid_token"
	CodeInvalidJSON         ErrorCode = "invalid_json"
	CodeInvalidMessage      ErrorCode = "invalid_message"
	CodeMaxRooms            ErrorCode = "max_rooms_per_connection"
	CodeRoomFull            ErrorCode = "room_full"
	CodeRoomNotFound        ErrorCode = "room_not_found"
	CodeParticipantNotFound ErrorCode = "participant_not_found"
	CodeNotInRoom           ErrorCode = "not_in_room"
	CodePeerNotFound        ErrorCode = "peer_not_found"
	CodePermissionDenied    ErrorCode = "permission_denied"
	CodeRateLimited         ErrorCode = "rate_limited"
	CodeUnsupportedMessage  ErrorCode = "unsupported_message"
	CodeInternalError       ErrorCode = "internal_error"
)
