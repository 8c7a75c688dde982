package app

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dkeye/Candles/internal/core"
	"github.com/dkeye/Candles/internal/domain"
	"github.com/dkeye/Candles/internal/protocol"
	"github.com/rs/zerolog/log"
)

const DefaultMaxDice = 10

var ErrUnknownEvent = errors.New("unknown event")

// Broadcast is one outbound event addressed to every member of Room.
type Broadcast struct {
	Room    domain.RoomName
	Event   string
	Payload any
}

// Relay turns inbound events into registry mutations and broadcasts. It
// holds no state of its own.
type Relay struct {
	Registry *Registry
	Roller   *domain.Roller
	MaxDice  int
}

func NewRelay(reg *Registry, roller *domain.Roller, maxDice int) *Relay {
	if maxDice <= 0 {
		maxDice = DefaultMaxDice
	}
	return &Relay{Registry: reg, Roller: roller, MaxDice: maxDice}
}

// Handle decodes one inbound event from conn and returns what to send.
func (rl *Relay) Handle(conn core.ConnID, event string, data json.RawMessage) ([]Broadcast, error) {
	switch event {
	case protocol.EventUserJoined:
		p, err := protocol.Decode[protocol.UserJoined](data)
		if err != nil {
			return nil, err
		}
		return rl.Join(conn, p)
	case protocol.EventPassInitialState:
		return handle(rl, conn, data, rl.PassInitialState)
	case protocol.EventUpdateGm:
		return handle(rl, conn, data, rl.UpdateGm)
	case protocol.EventCandleChange:
		return handle(rl, conn, data, rl.CandleChange)
	case protocol.EventRoll:
		return handle(rl, conn, data, rl.Roll)
	case protocol.EventDieDragStart:
		return handle(rl, conn, data, rl.DieDragStart)
	case protocol.EventDieDragEnd:
		return handle(rl, conn, data, rl.DieDragEnd)
	case protocol.EventTransferCard:
		return handle(rl, conn, data, rl.TransferCard)
	case protocol.EventChangeLock:
		return handle(rl, conn, data, rl.ChangeLock)
	case protocol.EventUpdatePeerUserCards:
		return handle(rl, conn, data, rl.UpdatePeerUserCards)
	case protocol.EventRevealBrink:
		return handle(rl, conn, data, rl.RevealBrink)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, event)
	}
}

// roomScoped is implemented by every payload that names a room.
type roomScoped interface {
	RoomName() string
}

func handle[T roomScoped](rl *Relay, conn core.ConnID, data json.RawMessage, fn func(domain.Identity, T) []Broadcast) ([]Broadcast, error) {
	p, err := protocol.Decode[T](data)
	if err != nil {
		return nil, err
	}
	sender, err := rl.sender(conn, p.RoomName())
	if err != nil {
		return nil, err
	}
	return fn(sender, p), nil
}

// sender resolves the identity bound to conn. Events are always routed to
// that identity's room, whatever room the payload names.
func (rl *Relay) sender(conn core.ConnID, claimed string) (domain.Identity, error) {
	ident, ok := rl.Registry.IdentityOf(conn)
	if !ok {
		return domain.Identity{}, domain.ErrNotJoined
	}
	if claimed != "" && domain.RoomName(claimed) != ident.Room {
		log.Warn().Str("module", "app.relay").Str("conn", string(conn)).Str("room", string(ident.Room)).Str("claimed", claimed).Msg("payload room differs from joined room")
	}
	return ident, nil
}

func (rl *Relay) Join(conn core.ConnID, p protocol.UserJoined) ([]Broadcast, error) {
	id, name, wantsGm := p.Identity()
	ident, err := domain.NewIdentity(id, name, domain.RoomName(p.Room), wantsGm, conn)
	if err != nil {
		return nil, fmt.Errorf("join: %w", err)
	}
	res, err := rl.Registry.Join(ident)
	if err != nil {
		return nil, fmt.Errorf("join: %w", err)
	}

	out := make([]Broadcast, 0, len(res.Released)+1)
	for _, rel := range res.Released {
		if b, ok := leaveBroadcast(rel); ok {
			out = append(out, b)
		}
	}
	joined := res.Joined
	log.Info().Str("module", "app.relay").Str("user", joined.Name).Str("room", string(joined.Room)).Str("role", joined.Role()).Msg("joined room")

	role := "a player"
	if joined.IsGm {
		role = "the GM. To invite other players, send them this page’s URL"
	}
	out = append(out, Broadcast{
		Room:  res.Room,
		Event: protocol.EventUsersUpdated,
		Payload: protocol.UsersUpdated{
			UpdatedUsers:    res.Members,
			ToastText:       protocol.Text(fmt.Sprintf("%s has joined the room as %s.", joined.Name, role)),
			IsToastInfinite: joined.IsGm,
		},
	})
	return out, nil
}

// Leave is driven by the transport, never by client payloads.
func (rl *Relay) Leave(conn core.ConnID) ([]Broadcast, error) {
	res, err := rl.Registry.Leave(conn)
	if err != nil {
		return nil, fmt.Errorf("leave: %w", err)
	}
	b, ok := leaveBroadcast(res)
	if !ok {
		return nil, nil
	}
	return []Broadcast{b}, nil
}

func leaveBroadcast(res LeaveResult) (Broadcast, bool) {
	if !res.Succeeded() {
		return Broadcast{}, false
	}
	text := fmt.Sprintf("%s has left the room.", res.Removed.Name)
	if res.NewGm != nil {
		text += fmt.Sprintf(" %s is now the GM.", res.NewGm.Name)
	}
	return Broadcast{
		Room:  res.Room,
		Event: protocol.EventUsersUpdated,
		Payload: protocol.UsersUpdated{
			UpdatedUsers: res.Members,
			ToastText:    protocol.Text(text),
		},
	}, true
}

func (rl *Relay) PassInitialState(sender domain.Identity, p protocol.PassInitialState) []Broadcast {
	return []Broadcast{{
		Room:  sender.Room,
		Event: protocol.EventPassedInitialState,
		Payload: protocol.PassedInitialState{
			DicePools:      p.DicePools,
			Candles:        p.Candles,
			AreCardsLocked: p.AreCardsLocked,
		},
	}}
}

// UpdateGm reports lookup failures to the whole room and never applies a
// partial transfer.
func (rl *Relay) UpdateGm(sender domain.Identity, p protocol.UpdateGm) []Broadcast {
	snap, err := rl.Registry.TransferGm(sender.Room, domain.UserID(p.OldGm.ID), domain.UserID(p.NewGm.ID))
	if err != nil {
		var nf *domain.NotFoundError
		if errors.As(err, &nf) {
			nf.Name = p.NewGm.Name
			if nf.ID == domain.UserID(p.OldGm.ID) {
				nf.Name = p.OldGm.Name
			}
		}
		log.Error().Err(err).Str("module", "app.relay").Str("room", string(sender.Room)).Msg("gm transfer failed")
		return []Broadcast{{
			Room:    sender.Room,
			Event:   protocol.EventError,
			Payload: protocol.Error{Message: "There was a problem reassigning the GM. Error message - " + err.Error()},
		}}
	}

	newGm := p.NewGm.Name
	for _, m := range snap.Members {
		if m.IsGm {
			newGm = m.Name
		}
	}
	log.Info().Str("module", "app.relay").Str("user", newGm).Str("room", string(sender.Room)).Msg("is now the GM")
	return []Broadcast{{
		Room:  sender.Room,
		Event: protocol.EventUsersUpdated,
		Payload: protocol.UsersUpdated{
			UpdatedUsers: snap.Members,
			ToastText:    protocol.Text(newGm + " is now the GM."),
		},
	}}
}

func (rl *Relay) CandleChange(sender domain.Identity, p protocol.CandleChange) []Broadcast {
	return []Broadcast{{
		Room:    sender.Room,
		Event:   protocol.EventCandleChanged,
		Payload: protocol.CandleChanged{Username: p.Username, Index: p.Index, IsLit: p.IsLit},
	}}
}

func (rl *Relay) Roll(sender domain.Identity, p protocol.Roll) []Broadcast {
	count := p.DiceCount
	if count > rl.MaxDice {
		log.Warn().Str("module", "app.relay").Int("count", count).Int("max", rl.MaxDice).Msg("dice count clamped")
		count = rl.MaxDice
	}
	dice := rl.Roller.Roll(count)
	log.Info().Str("module", "app.relay").Str("user", p.Username).Str("pool", p.DicePool).Ints("dice", dice).Str("room", string(sender.Room)).Msg("rolled")
	return []Broadcast{{
		Room:    sender.Room,
		Event:   protocol.EventRolled,
		Payload: protocol.Rolled{DicePool: p.DicePool, Dice: dice, Username: p.Username},
	}}
}

func (rl *Relay) DieDragStart(sender domain.Identity, p protocol.DieDragStart) []Broadcast {
	return []Broadcast{{
		Room:    sender.Room,
		Event:   protocol.EventDieDragStarted,
		Payload: protocol.DieDragStarted{DicePool: p.DicePool, Username: p.Username, DieID: p.DieID},
	}}
}

func (rl *Relay) DieDragEnd(sender domain.Identity, p protocol.DieDragEnd) []Broadcast {
	return []Broadcast{{
		Room:  sender.Room,
		Event: protocol.EventDieDragEnded,
		Payload: protocol.DieDragEnded{
			PrevDicePool: p.PrevDicePool,
			NewDicePool:  p.NewDicePool,
			Username:     p.Username,
			DieID:        p.DieID,
		},
	}}
}

func (rl *Relay) TransferCard(sender domain.Identity, p protocol.TransferCard) []Broadcast {
	return []Broadcast{{
		Room:    sender.Room,
		Event:   protocol.EventCardTransferred,
		Payload: protocol.CardTransferred{NewUsername: p.NewUsername, OldUsername: p.OldUsername, Card: p.Card},
	}}
}

// ChangeLock broadcasts the bare boolean, as clients expect.
func (rl *Relay) ChangeLock(sender domain.Identity, p protocol.ChangeLock) []Broadcast {
	return []Broadcast{{Room: sender.Room, Event: protocol.EventLockChanged, Payload: p.IsLocked}}
}

func (rl *Relay) UpdatePeerUserCards(sender domain.Identity, p protocol.UpdatePeerUserCards) []Broadcast {
	return []Broadcast{{
		Room:    sender.Room,
		Event:   protocol.EventPeerUserCardsUpdated,
		Payload: protocol.PeerUserCardsUpdated{UserID: p.UserID, Cards: p.Cards, ToastText: p.ToastText},
	}}
}

func (rl *Relay) RevealBrink(sender domain.Identity, p protocol.RevealBrink) []Broadcast {
	return []Broadcast{{Room: sender.Room, Event: protocol.EventBrinkRevealed, Payload: protocol.BrinkRevealed{UserID: p.UserID}}}
}
