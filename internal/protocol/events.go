// Package protocol holds the event names and payload shapes exchanged with
// browser clients. Names and JSON fields are shared with deployed clients
// and must not change.
package protocol

// Client -> Server
const (
	EventUserJoined          = "userJoined"
	EventPassInitialState    = "passInitialState"
	EventUpdateGm            = "updateGm"
	EventCandleChange        = "candleChange"
	EventRoll                = "roll"
	EventDieDragStart        = "dieDragStart"
	EventDieDragEnd          = "dieDragEnd"
	EventTransferCard        = "transferCard"
	EventChangeLock          = "changeLock"
	EventUpdatePeerUserCards = "updatePeerUserCards"
	EventRevealBrink         = "revealBrink"
	EventPing                = "ping"
)

// Server -> Client
const (
	EventUsersUpdated         = "usersUpdated"
	EventPassedInitialState   = "passedInitialState"
	EventError                = "error"
	EventCandleChanged        = "candleChanged"
	EventRolled               = "rolled"
	EventDieDragStarted       = "dieDragStarted"
	EventDieDragEnded         = "dieDragEnded"
	EventCardTransferred      = "cardTransferred"
	EventLockChanged          = "lockChanged"
	EventPeerUserCardsUpdated = "peerUserCardsUpdated"
	EventBrinkRevealed        = "brinkRevealed"
	EventPong                 = "pong"
)
