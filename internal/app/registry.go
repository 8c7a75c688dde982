package app

import (
	"sort"
	"sync"

	"github.com/dkeye/Candles/internal/core"
	"github.com/dkeye/Candles/internal/domain"
	"github.com/rs/zerolog/log"
)

// RoomSnapshot is a copy of a room's membership in join order.
type RoomSnapshot struct {
	Room    domain.RoomName
	Members []domain.Identity
}

type JoinResult struct {
	RoomSnapshot
	Joined domain.Identity
	// Released holds rooms the identity or its connection left as part of
	// the join, so their remaining members can be told.
	Released []LeaveResult
}

type LeaveResult struct {
	Removed *domain.Identity
	NewGm   *domain.Identity
	RoomSnapshot
}

func (l LeaveResult) Succeeded() bool { return l.Removed != nil }

// Registry is the only owner of identity records. Rooms are not stored;
// a room is the set of identities carrying its name.
type Registry struct {
	mu      sync.RWMutex
	members []*domain.Identity
	byID    map[domain.UserID]*domain.Identity
	byConn  map[core.ConnID]domain.UserID
}

func NewRegistry() *Registry {
	return &Registry{
		byID:   make(map[domain.UserID]*domain.Identity),
		byConn: make(map[core.ConnID]domain.UserID),
	}
}

// Join inserts ident or rebinds the existing record with the same id.
// ident.IsGm is a request: it is honoured only while the room has no GM.
func (r *Registry) Join(ident domain.Identity) (JoinResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var res JoinResult
	if held, ok := r.byConn[ident.Conn]; ok && held != ident.ID {
		res.Released = append(res.Released, r.removeLocked(held))
	}

	if cur, ok := r.byID[ident.ID]; ok && cur.Room != ident.Room {
		res.Released = append(res.Released, r.removeLocked(cur.ID))
	}

	if cur, ok := r.byID[ident.ID]; ok {
		if cur.Conn != ident.Conn {
			delete(r.byConn, cur.Conn)
		}
		cur.Conn = ident.Conn
		cur.Name = ident.Name
		r.byConn[ident.Conn] = cur.ID
		if ident.IsGm && !cur.IsGm && r.gmOfLocked(cur.Room) == nil {
			cur.IsGm = true
		}
		log.Info().Str("module", "app.registry").Str("user", string(cur.ID)).Str("room", string(cur.Room)).Str("conn", string(cur.Conn)).Msg("rebound identity")
		res.Joined = *cur
	} else {
		rec := ident
		if rec.IsGm {
			if gm := r.gmOfLocked(rec.Room); gm != nil {
				log.Warn().Str("module", "app.registry").Str("user", string(rec.ID)).Str("room", string(rec.Room)).Str("gm", string(gm.ID)).Msg("room already has a GM, joining as player")
				rec.IsGm = false
			}
		}
		r.members = append(r.members, &rec)
		r.byID[rec.ID] = &rec
		r.byConn[rec.Conn] = rec.ID
		log.Info().Str("module", "app.registry").Str("user", string(rec.ID)).Str("room", string(rec.Room)).Bool("gm", rec.IsGm).Msg("identity joined")
		res.Joined = rec
	}

	res.RoomSnapshot = r.snapshotLocked(ident.Room)
	if err := r.verifyLocked(ident.Room); err != nil {
		return res, err
	}
	for _, rel := range res.Released {
		if err := r.verifyLocked(rel.Room); err != nil {
			return res, err
		}
	}
	return res, nil
}

// Leave drops the identity bound to conn. An unknown connection is not an
// error: the result simply reports nothing removed.
func (r *Registry) Leave(conn core.ConnID) (LeaveResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byConn[conn]
	if !ok {
		log.Info().Str("module", "app.registry").Str("conn", string(conn)).Msg("leave for unknown connection")
		return LeaveResult{}, nil
	}
	res := r.removeLocked(id)
	return res, r.verifyLocked(res.Room)
}

// TransferGm hands the GM flag from oldID to newID. Both must be members of
// room. Every other member of the room is cleared so the room ends with
// exactly one GM.
func (r *Registry) TransferGm(room domain.RoomName, oldID, newID domain.UserID) (RoomSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.memberLocked(room, oldID) == nil {
		return RoomSnapshot{}, &domain.NotFoundError{ID: oldID}
	}
	next := r.memberLocked(room, newID)
	if next == nil {
		return RoomSnapshot{}, &domain.NotFoundError{ID: newID}
	}
	if !next.IsGm {
		for _, m := range r.members {
			if m.Room == room {
				m.IsGm = m.ID == newID
			}
		}
		log.Info().Str("module", "app.registry").Str("room", string(room)).Str("from", string(oldID)).Str("to", string(newID)).Msg("gm transferred")
	}
	return r.snapshotLocked(room), r.verifyLocked(room)
}

func (r *Registry) MembersOf(room domain.RoomName) []domain.Identity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked(room).Members
}

func (r *Registry) IdentityOf(conn core.ConnID) (domain.Identity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byConn[conn]
	if !ok {
		return domain.Identity{}, false
	}
	return *r.byID[id], true
}

func (r *Registry) IsActive(room domain.RoomName) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.members {
		if m.Room == room {
			return true
		}
	}
	return false
}

func (r *Registry) MemberByName(room domain.RoomName, name string) (domain.Identity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.members {
		if m.Room == room && m.Name == name {
			return *m, true
		}
	}
	return domain.Identity{}, false
}

func (r *Registry) HasMember(room domain.RoomName, name string) bool {
	_, ok := r.MemberByName(room, name)
	return ok
}

// Rooms lists active rooms sorted by name.
func (r *Registry) Rooms() []core.RoomInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[domain.RoomName]int)
	for _, m := range r.members {
		counts[m.Room]++
	}
	out := make([]core.RoomInfo, 0, len(counts))
	for name, n := range counts {
		out = append(out, core.RoomInfo{Name: string(name), MemberCount: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Verify checks the GM invariant across every room.
func (r *Registry) Verify() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[domain.RoomName]bool)
	for _, m := range r.members {
		if seen[m.Room] {
			continue
		}
		seen[m.Room] = true
		if err := r.verifyLocked(m.Room); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) removeLocked(id domain.UserID) LeaveResult {
	rec, ok := r.byID[id]
	if !ok {
		return LeaveResult{}
	}
	for i, m := range r.members {
		if m == rec {
			r.members = append(r.members[:i], r.members[i+1:]...)
			break
		}
	}
	delete(r.byID, id)
	if r.byConn[rec.Conn] == id {
		delete(r.byConn, rec.Conn)
	}
	removed := *rec
	res := LeaveResult{Removed: &removed}
	log.Info().Str("module", "app.registry").Str("user", string(id)).Str("room", string(rec.Room)).Str("conn", string(rec.Conn)).Msg("identity left")

	// Successor is the earliest joined member still in the room.
	if rec.IsGm {
		for _, m := range r.members {
			if m.Room == rec.Room {
				m.IsGm = true
				next := *m
				res.NewGm = &next
				log.Info().Str("module", "app.registry").Str("user", string(m.ID)).Str("room", string(m.Room)).Msg("gm succeeded")
				break
			}
		}
	}
	res.RoomSnapshot = r.snapshotLocked(rec.Room)
	return res
}

func (r *Registry) memberLocked(room domain.RoomName, id domain.UserID) *domain.Identity {
	m, ok := r.byID[id]
	if !ok || m.Room != room {
		return nil
	}
	return m
}

func (r *Registry) gmOfLocked(room domain.RoomName) *domain.Identity {
	for _, m := range r.members {
		if m.Room == room && m.IsGm {
			return m
		}
	}
	return nil
}

func (r *Registry) snapshotLocked(room domain.RoomName) RoomSnapshot {
	out := RoomSnapshot{Room: room, Members: make([]domain.Identity, 0)}
	for _, m := range r.members {
		if m.Room == room {
			out.Members = append(out.Members, *m)
		}
	}
	return out
}

func (r *Registry) verifyLocked(room domain.RoomName) error {
	var gms []domain.UserID
	for _, m := range r.members {
		if m.Room == room && m.IsGm {
			gms = append(gms, m.ID)
		}
	}
	if len(gms) > 1 {
		err := &domain.InvariantViolationError{Room: room, Gms: gms}
		log.Error().Err(err).Str("module", "app.registry").Str("room", string(room)).Msg("gm invariant violated")
		return err
	}
	return nil
}
