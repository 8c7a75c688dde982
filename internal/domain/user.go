// Package domain contains entity without logic, just meta-data
package domain

import "github.com/dkeye/Candles/internal/core"

const (
	MaxUserIDLen   = 64
	MaxUsernameLen = 36
)

type (
	UserID   string
	RoomName string
)

// Identity is one tracked participant. Conn refers to the live transport
// connection; it does not own it.
type Identity struct {
	ID   UserID      `json:"id"`
	Name string      `json:"name"`
	Room RoomName    `json:"room"`
	IsGm bool        `json:"isGm"`
	Conn core.ConnID `json:"socketId"`
}

// NewIdentity validates caller input. Legacy clients only send a name, in
// which case the name doubles as the id.
func NewIdentity(id, name string, room RoomName, isGm bool, conn core.ConnID) (Identity, error) {
	if name == "" {
		return Identity{}, ErrUsernameEmpty
	}
	if len(name) > MaxUsernameLen {
		return Identity{}, ErrUsernameTooLong
	}
	if room == "" {
		return Identity{}, ErrRoomEmpty
	}
	if id == "" {
		id = name
	}
	if len(id) > MaxUserIDLen {
		return Identity{}, ErrUserIDTooLong
	}
	return Identity{ID: UserID(id), Name: name, Room: room, IsGm: isGm, Conn: conn}, nil
}

func (i Identity) Role() string {
	if i.IsGm {
		return "GM"
	}
	return "player"
}
