package game

// Error is a protocol error surfaced to clients as the short string code
// in the error slot of an ack tuple.
type Error struct {
	code string
}

func (e *Error) Error() string { return e.code }

// Code returns the wire representation of the error.
func (e *Error) Code() string { return e.code }

var (
	ErrNameTaken        = &Error{"name_taken"}
	ErrRoomNotFound     = &Error{"room_not_found"}
	ErrRoomFull         = &Error{"room_full"}
	ErrRoomClosed       = &Error{"room_closed"}
	ErrNotInRoom        = &Error{"not_in_room"}
	ErrNotLeader        = &Error{"not_leader"}
	ErrBadInput         = &Error{"bad_input"}
	ErrNotEnoughPlayers = &Error{"not_enough_players"}
	ErrInternal         = &Error{"internal"}
)
