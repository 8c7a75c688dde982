package app

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/dkeye/Candles/internal/core"
	"github.com/dkeye/Candles/internal/domain"
	"github.com/dkeye/Candles/internal/protocol"
	"github.com/rs/zerolog/log"
)

// Orchestrator binds transport connections to identities. Every inbound
// event and every disconnect runs to completion under mu, so registry
// mutation and fan-out for one event never interleave with another.
type Orchestrator struct {
	Registry *Registry
	Relay    *Relay
	Policy   Policy

	mu    sync.Mutex
	conns map[core.ConnID]core.SignalConnection
}

func NewOrchestrator(reg *Registry, relay *Relay, policy Policy) *Orchestrator {
	if policy == nil {
		policy = DropPolicy{}
	}
	return &Orchestrator{
		Registry: reg,
		Relay:    relay,
		Policy:   policy,
		conns:    make(map[core.ConnID]core.SignalConnection),
	}
}

// Connect registers a room-less connection. No identity exists until the
// connection sends userJoined.
func (o *Orchestrator) Connect(conn core.SignalConnection) core.ConnID {
	id := core.NewConnID()
	o.mu.Lock()
	o.conns[id] = conn
	o.mu.Unlock()
	log.Info().Str("module", "app.orchestrator").Str("conn", string(id)).Msg("connected")
	return id
}

func (o *Orchestrator) Dispatch(id core.ConnID, event string, data json.RawMessage) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.conns[id]; !ok {
		log.Debug().Str("module", "app.orchestrator").Str("conn", string(id)).Str("event", event).Msg("event after disconnect dropped")
		return
	}

	out, err := o.Relay.Handle(id, event, data)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotJoined):
		log.Info().Str("module", "app.orchestrator").Str("conn", string(id)).Str("event", event).Msg("event before join dropped")
		return
	case errors.Is(err, ErrUnknownEvent):
		log.Warn().Str("module", "app.orchestrator").Str("conn", string(id)).Str("event", event).Msg("unknown event")
		return
	default:
		log.Error().Err(err).Str("module", "app.orchestrator").Str("conn", string(id)).Str("event", event).Msg("event rejected")
		o.sendLocked(id, protocol.EventError, protocol.Error{Message: err.Error()})
		return
	}
	o.deliverLocked(out)
}

// Disconnect runs the leave path once per connection. Later calls, and
// calls for connections that never joined, do nothing.
func (o *Orchestrator) Disconnect(id core.ConnID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.conns[id]; !ok {
		log.Debug().Str("module", "app.orchestrator").Str("conn", string(id)).Msg("already disconnected")
		return
	}
	delete(o.conns, id)

	out, err := o.Relay.Leave(id)
	if err != nil {
		log.Error().Err(err).Str("module", "app.orchestrator").Str("conn", string(id)).Msg("leave failed")
	}
	if len(out) == 0 {
		log.Info().Str("module", "app.orchestrator").Str("conn", string(id)).Msg("disconnected without identity")
	}
	o.deliverLocked(out)
}

// Send addresses a single connection, outside of any room.
func (o *Orchestrator) Send(id core.ConnID, event string, payload any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sendLocked(id, event, payload)
}

func (o *Orchestrator) sendLocked(id core.ConnID, event string, payload any) {
	conn, ok := o.conns[id]
	if !ok {
		return
	}
	frame, err := protocol.Encode(event, payload)
	if err != nil {
		log.Error().Err(err).Str("module", "app.orchestrator").Msg("encode")
		return
	}
	_ = conn.TrySend(frame)
}

func (o *Orchestrator) deliverLocked(out []Broadcast) {
	for _, b := range out {
		frame, err := protocol.Encode(b.Event, b.Payload)
		if err != nil {
			log.Error().Err(err).Str("module", "app.orchestrator").Str("event", b.Event).Msg("encode")
			continue
		}
		sent := 0
		for _, m := range o.Registry.MembersOf(b.Room) {
			conn, ok := o.conns[m.Conn]
			if !ok {
				continue
			}
			err := conn.TrySend(frame)
			if err == nil {
				sent++
				continue
			}
			if errors.Is(err, core.ErrConnClosed) {
				continue
			}
			switch o.Policy.OnBackPressure(b.Room, m) {
			case KickMember:
				log.Warn().Str("module", "app.orchestrator").Str("conn", string(m.Conn)).Str("user", string(m.ID)).Msg("kicking slow member")
				conn.Close()
			case DropFrame, NoAction:
			}
		}
		log.Debug().Str("module", "app.orchestrator").Str("room", string(b.Room)).Str("event", b.Event).Int("sent_to", sent).Msg("broadcast result")
	}
}
