package tmi

import (
	"errors"

	"git.sr.ht/~taiite/tmi/irc"
)

var (
	ErrNotConnected       = errors.New("not connected")
	ErrAnonymous          = errors.New("cannot send commands anonymously")
	ErrReconnectExhausted = errors.New("maximum reconnection attempts reached")
	ErrClosed             = errors.New("client closed")
	ErrInvalidMessage     = errors.New("message contains a line break or a NUL character")

	ErrCommandTimeout = irc.ErrCommandTimeout
	ErrConnectionLost = irc.ErrConnectionLost
	ErrParse          = irc.ErrParse
)

// CommandRejectedError is returned when the server refuses a command.
type CommandRejectedError = irc.CommandRejectedError

// AuthError is returned by Connect when the server refuses the credentials.
type AuthError struct {
	Message string
}

func (err *AuthError) Error() string {
	return "authentication failed: " + err.Message
}
