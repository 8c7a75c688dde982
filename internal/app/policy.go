package app

import (
	"fmt"

	"github.com/dkeye/Candles/internal/domain"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	KickMember
	DropFrame
)

// Policy decides what happens to a member whose send buffer is full.
type Policy interface {
	OnBackPressure(room domain.RoomName, member domain.Identity) BackpressureAction
}

// DropPolicy loses the frame and keeps the member.
type DropPolicy struct{}

func (DropPolicy) OnBackPressure(domain.RoomName, domain.Identity) BackpressureAction {
	return DropFrame
}

// KickPolicy closes the slow connection; its disconnect then runs the
// usual leave path.
type KickPolicy struct{}

func (KickPolicy) OnBackPressure(domain.RoomName, domain.Identity) BackpressureAction {
	return KickMember
}

func PolicyByName(name string) (Policy, error) {
	switch name {
	case "", "drop":
		return DropPolicy{}, nil
	case "kick":
		return KickPolicy{}, nil
	default:
		return nil, fmt.Errorf("unknown backpressure policy %q", name)
	}
}
