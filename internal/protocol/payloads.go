package protocol

import (
	"encoding/json"

	"github.com/dkeye/Candles/internal/domain"
)

// UserRef is the user object sent by id-keyed clients. IsGm is nil when
// the client does not state a role.
type UserRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	IsGm *bool  `json:"isGm,omitempty"`
}

// UserJoined accepts both client generations: {room, user} and the older
// name-only {room, username}.
type UserJoined struct {
	Room     string   `json:"room"`
	User     *UserRef `json:"user,omitempty"`
	Username string   `json:"username,omitempty"`
}

// Identity flattens both shapes. wantsGm is true unless the client
// explicitly asked to join as a player.
func (p UserJoined) Identity() (id, name string, wantsGm bool) {
	name, wantsGm = p.Username, true
	if p.User != nil {
		id = p.User.ID
		if p.User.Name != "" {
			name = p.User.Name
		}
		if p.User.IsGm != nil {
			wantsGm = *p.User.IsGm
		}
	}
	return id, name, wantsGm
}

// Dice pools, candles and card lock state are owned by the GM's client.
// The hub forwards them untouched.
type PassInitialState struct {
	Room           string          `json:"room"`
	DicePools      json.RawMessage `json:"dicePools"`
	Candles        json.RawMessage `json:"candles"`
	AreCardsLocked json.RawMessage `json:"areCardsLocked"`
}

type UpdateGm struct {
	Room  string  `json:"room"`
	OldGm UserRef `json:"oldGm"`
	NewGm UserRef `json:"newGm"`
}

type CandleChange struct {
	Room     string `json:"room"`
	Username string `json:"username"`
	Index    int    `json:"index"`
	IsLit    bool   `json:"isLit"`
}

type Roll struct {
	Room      string `json:"room"`
	Username  string `json:"username"`
	DicePool  string `json:"dicePool"`
	DiceCount int    `json:"diceCount"`
}

type DieDragStart struct {
	Room     string          `json:"room"`
	Username string          `json:"username"`
	DieID    json.RawMessage `json:"dieId"`
	DicePool string          `json:"dicePool"`
}

type DieDragEnd struct {
	Room         string          `json:"room"`
	Username     string          `json:"username"`
	DieID        json.RawMessage `json:"dieId"`
	PrevDicePool string          `json:"prevDicePool"`
	NewDicePool  string          `json:"newDicePool"`
}

type TransferCard struct {
	Room        string          `json:"room"`
	OldUsername string          `json:"oldUsername"`
	NewUsername string          `json:"newUsername"`
	Card        json.RawMessage `json:"card"`
}

type ChangeLock struct {
	Room     string `json:"room"`
	IsLocked bool   `json:"isLocked"`
}

type UpdatePeerUserCards struct {
	Room      string          `json:"room"`
	UserID    string          `json:"userId"`
	Cards     json.RawMessage `json:"cards"`
	ToastText *string         `json:"toastText"`
}

type RevealBrink struct {
	Room   string `json:"room"`
	UserID string `json:"userId"`
}

// Outbound payloads.

type UsersUpdated struct {
	UpdatedUsers    []domain.Identity `json:"updatedUsers"`
	ToastText       *string           `json:"toastText"`
	IsToastInfinite bool              `json:"isToastInfinite,omitempty"`
}

type PassedInitialState struct {
	DicePools      json.RawMessage `json:"dicePools"`
	Candles        json.RawMessage `json:"candles"`
	AreCardsLocked json.RawMessage `json:"areCardsLocked"`
}

type Error struct {
	Message string `json:"message"`
}

type CandleChanged struct {
	Username string `json:"username"`
	Index    int    `json:"index"`
	IsLit    bool   `json:"isLit"`
}

type Rolled struct {
	DicePool string `json:"dicePool"`
	Dice     []int  `json:"dice"`
	Username string `json:"username"`
}

type DieDragStarted struct {
	DicePool string          `json:"dicePool"`
	Username string          `json:"username"`
	DieID    json.RawMessage `json:"dieId"`
}

type DieDragEnded struct {
	PrevDicePool string          `json:"prevDicePool"`
	NewDicePool  string          `json:"newDicePool"`
	Username     string          `json:"username"`
	DieID        json.RawMessage `json:"dieId"`
}

type CardTransferred struct {
	NewUsername string          `json:"newUsername"`
	OldUsername string          `json:"oldUsername"`
	Card        json.RawMessage `json:"card"`
}

type PeerUserCardsUpdated struct {
	UserID    string          `json:"userId"`
	Cards     json.RawMessage `json:"cards"`
	ToastText *string         `json:"toastText"`
}

type BrinkRevealed struct {
	UserID string `json:"userId"`
}

func (p PassInitialState) RoomName() string    { return p.Room }
func (p UpdateGm) RoomName() string            { return p.Room }
func (p CandleChange) RoomName() string        { return p.Room }
func (p Roll) RoomName() string                { return p.Room }
func (p DieDragStart) RoomName() string        { return p.Room }
func (p DieDragEnd) RoomName() string          { return p.Room }
func (p TransferCard) RoomName() string        { return p.Room }
func (p ChangeLock) RoomName() string          { return p.Room }
func (p UpdatePeerUserCards) RoomName() string { return p.Room }
func (p RevealBrink) RoomName() string         { return p.Room }
