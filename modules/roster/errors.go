package roster

import "errors"

// Sentinel errors for roster operations.
var (
	// ErrUsernameTaken is returned when the requested userID is already
	// joined to the room.
	ErrUsernameTaken = errors.New("username already taken")

	// ErrAlreadyBound is returned when a connection attempts a second join.
	// This signals a logic error in the transport layer, not user input.
	ErrAlreadyBound = errors.New("connection already bound")

	// ErrNotJoined is returned when an operation requires a joined
	// connection but the connection never completed a join.
	ErrNotJoined = errors.New("connection not joined to a room")
)
