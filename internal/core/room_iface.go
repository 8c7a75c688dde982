package core

// RoomInfo is a read-only summary of an active room.
type RoomInfo struct {
	Name        string `json:"name"`
	MemberCount int    `json:"memberCount"`
}
