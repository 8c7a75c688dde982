package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUsernameTooLong = errors.New("username too long")
	ErrUsernameEmpty   = errors.New("username empty")
	ErrUserIDTooLong   = errors.New("user id too long")
	ErrRoomEmpty       = errors.New("room empty")

	// ErrNotJoined marks a connection or identity that is already gone.
	// Callers log it and move on.
	ErrNotJoined = errors.New("connection has no identity")
)

// NotFoundError names the identity a lookup failed on.
type NotFoundError struct {
	ID   UserID
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("User with name: %s and id: %s not found", e.Name, e.ID)
}

// InvariantViolationError reports a room holding more than one GM.
type InvariantViolationError struct {
	Room RoomName
	Gms  []UserID
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("room %s has %d GMs: %v", e.Room, len(e.Gms), e.Gms)
}
