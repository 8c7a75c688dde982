package app

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/dkeye/Candles/internal/core"
	"github.com/dkeye/Candles/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ident(id, name string, room domain.RoomName, gm bool, conn core.ConnID) domain.Identity {
	return domain.Identity{ID: domain.UserID(id), Name: name, Room: room, IsGm: gm, Conn: conn}
}

func mustJoin(t *testing.T, reg *Registry, i domain.Identity) JoinResult {
	t.Helper()
	res, err := reg.Join(i)
	require.NoError(t, err)
	return res
}

func gmsOf(members []domain.Identity) []string {
	var out []string
	for _, m := range members {
		if m.IsGm {
			out = append(out, m.Name)
		}
	}
	return out
}

func TestJoinReturnsMembershipInJoinOrder(t *testing.T) {
	reg := NewRegistry()
	mustJoin(t, reg, ident("a", "Alice", "R1", true, "c1"))
	mustJoin(t, reg, ident("x", "Xena", "R2", true, "c9"))
	res := mustJoin(t, reg, ident("b", "Bob", "R1", false, "c2"))

	require.Len(t, res.Members, 2)
	assert.Equal(t, "Alice", res.Members[0].Name)
	assert.True(t, res.Members[0].IsGm)
	assert.Equal(t, "Bob", res.Members[1].Name)
	assert.False(t, res.Joined.IsGm)
}

func TestRejoinRebindsWithoutDuplicate(t *testing.T) {
	reg := NewRegistry()
	mustJoin(t, reg, ident("a", "Alice", "R1", true, "c1"))
	mustJoin(t, reg, ident("b", "Bob", "R1", false, "c2"))

	res := mustJoin(t, reg, ident("a", "Alice", "R1", true, "c3"))
	require.Len(t, res.Members, 2)
	assert.Equal(t, core.ConnID("c3"), res.Members[0].Conn)
	assert.Empty(t, res.Released)

	// the stale connection no longer resolves
	left, err := reg.Leave("c1")
	require.NoError(t, err)
	assert.False(t, left.Succeeded())
	assert.Len(t, reg.MembersOf("R1"), 2)

	got, ok := reg.IdentityOf("c3")
	require.True(t, ok)
	assert.Equal(t, domain.UserID("a"), got.ID)
}

func TestJoinClaimingGmIntoRoomWithGmIsPlayer(t *testing.T) {
	reg := NewRegistry()
	mustJoin(t, reg, ident("a", "Alice", "R1", true, "c1"))
	res := mustJoin(t, reg, ident("b", "Bob", "R1", true, "c2"))

	assert.False(t, res.Joined.IsGm)
	assert.Equal(t, []string{"Alice"}, gmsOf(res.Members))
}

func TestLeaveGmPromotesEarliestMember(t *testing.T) {
	reg := NewRegistry()
	mustJoin(t, reg, ident("a", "Alice", "R1", true, "c1"))
	mustJoin(t, reg, ident("b", "Bob", "R1", false, "c2"))
	mustJoin(t, reg, ident("c", "Carol", "R1", false, "c3"))

	res, err := reg.Leave("c1")
	require.NoError(t, err)
	require.True(t, res.Succeeded())
	assert.Equal(t, "Alice", res.Removed.Name)
	require.NotNil(t, res.NewGm)
	assert.Equal(t, "Bob", res.NewGm.Name)
	assert.Equal(t, []string{"Bob"}, gmsOf(res.Members))

	res, err = reg.Leave("c2")
	require.NoError(t, err)
	require.NotNil(t, res.NewGm)
	assert.Equal(t, "Carol", res.NewGm.Name)
}

func TestLeaveLastMemberLeavesRoomWithoutGm(t *testing.T) {
	reg := NewRegistry()
	mustJoin(t, reg, ident("a", "Alice", "R1", true, "c1"))

	res, err := reg.Leave("c1")
	require.NoError(t, err)
	assert.True(t, res.Succeeded())
	assert.Nil(t, res.NewGm)
	assert.Empty(t, res.Members)
	assert.False(t, reg.IsActive("R1"))
	assert.Empty(t, reg.Rooms())
}

func TestLeavePlayerKeepsGm(t *testing.T) {
	reg := NewRegistry()
	mustJoin(t, reg, ident("a", "Alice", "R1", true, "c1"))
	mustJoin(t, reg, ident("b", "Bob", "R1", false, "c2"))

	res, err := reg.Leave("c2")
	require.NoError(t, err)
	assert.Nil(t, res.NewGm)
	assert.Equal(t, []string{"Alice"}, gmsOf(res.Members))
}

func TestLeaveUnknownConnectionIsNoOp(t *testing.T) {
	reg := NewRegistry()
	mustJoin(t, reg, ident("a", "Alice", "R1", true, "c1"))

	res, err := reg.Leave("ghost")
	require.NoError(t, err)
	assert.False(t, res.Succeeded())

	_, err = reg.Leave("c1")
	require.NoError(t, err)
	res, err = reg.Leave("c1")
	require.NoError(t, err)
	assert.False(t, res.Succeeded())
}

func TestTransferGm(t *testing.T) {
	reg := NewRegistry()
	mustJoin(t, reg, ident("a", "Alice", "R1", true, "c1"))
	mustJoin(t, reg, ident("b", "Bob", "R1", false, "c2"))

	snap, err := reg.TransferGm("R1", "a", "b")
	require.NoError(t, err)
	assert.Equal(t, []string{"Bob"}, gmsOf(snap.Members))

	// reapplying is a no-op
	snap, err = reg.TransferGm("R1", "a", "b")
	require.NoError(t, err)
	assert.Equal(t, []string{"Bob"}, gmsOf(snap.Members))
}

func TestTransferGmUnknownNewGm(t *testing.T) {
	reg := NewRegistry()
	mustJoin(t, reg, ident("a", "Alice", "R1", true, "c1"))
	mustJoin(t, reg, ident("x", "Xena", "R2", false, "c2"))

	for _, missing := range []domain.UserID{"nobody", "x"} {
		_, err := reg.TransferGm("R1", "a", missing)
		var nf *domain.NotFoundError
		require.True(t, errors.As(err, &nf), "got %v", err)
		assert.Equal(t, missing, nf.ID)
		assert.Equal(t, []string{"Alice"}, gmsOf(reg.MembersOf("R1")))
	}
}

func TestTransferGmUnknownOldGm(t *testing.T) {
	reg := NewRegistry()
	mustJoin(t, reg, ident("a", "Alice", "R1", true, "c1"))
	mustJoin(t, reg, ident("b", "Bob", "R1", false, "c2"))

	_, err := reg.TransferGm("R1", "gone", "b")
	var nf *domain.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, domain.UserID("gone"), nf.ID)
	assert.Equal(t, []string{"Alice"}, gmsOf(reg.MembersOf("R1")))
}

func TestRejoinIntoOtherRoomReleasesOldRoom(t *testing.T) {
	reg := NewRegistry()
	mustJoin(t, reg, ident("a", "Alice", "R1", true, "c1"))
	mustJoin(t, reg, ident("b", "Bob", "R1", false, "c2"))

	res := mustJoin(t, reg, ident("a", "Alice", "R2", true, "c1"))
	require.Len(t, res.Released, 1)
	assert.Equal(t, domain.RoomName("R1"), res.Released[0].Room)
	require.NotNil(t, res.Released[0].NewGm)
	assert.Equal(t, "Bob", res.Released[0].NewGm.Name)

	assert.True(t, res.Joined.IsGm)
	assert.Equal(t, []string{"Bob"}, gmsOf(reg.MembersOf("R1")))
	assert.Equal(t, []string{"Alice"}, gmsOf(reg.MembersOf("R2")))
}

func TestConnectionHoldsOneIdentity(t *testing.T) {
	reg := NewRegistry()
	mustJoin(t, reg, ident("a", "Alice", "R1", true, "c1"))
	res := mustJoin(t, reg, ident("z", "Zoe", "R1", false, "c1"))

	require.Len(t, res.Released, 1)
	assert.Equal(t, "Alice", res.Released[0].Removed.Name)
	require.Len(t, res.Members, 1)
	assert.Equal(t, "Zoe", res.Members[0].Name)
	assert.Empty(t, gmsOf(res.Members), "Zoe asked to join as a player")
}

func TestReadProjections(t *testing.T) {
	reg := NewRegistry()
	mustJoin(t, reg, ident("a", "Alice", "R1", true, "c1"))
	mustJoin(t, reg, ident("b", "Bob", "R1", false, "c2"))
	mustJoin(t, reg, ident("x", "Xena", "R0", true, "c3"))

	assert.True(t, reg.IsActive("R1"))
	assert.False(t, reg.IsActive("R9"))
	assert.True(t, reg.HasMember("R1", "Bob"))
	assert.False(t, reg.HasMember("R0", "Bob"))
	assert.Equal(t, []core.RoomInfo{{Name: "R0", MemberCount: 1}, {Name: "R1", MemberCount: 2}}, reg.Rooms())

	members := reg.MembersOf("R1")
	members[0].IsGm = false
	assert.Equal(t, []string{"Alice"}, gmsOf(reg.MembersOf("R1")), "snapshots are copies")
}

func TestRandomSequencesKeepSingleGm(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 1))
	reg := NewRegistry()
	rooms := []domain.RoomName{"R1", "R2", "R3"}

	for step := 0; step < 5000; step++ {
		conn := core.ConnID(fmt.Sprintf("c%d", rng.IntN(12)))
		switch rng.IntN(3) {
		case 0:
			id := fmt.Sprintf("u%d", rng.IntN(10))
			_, err := reg.Join(ident(id, id, rooms[rng.IntN(len(rooms))], rng.IntN(2) == 0, conn))
			require.NoError(t, err, "step %d", step)
		case 1:
			before, hadIdentity := reg.IdentityOf(conn)
			res, err := reg.Leave(conn)
			require.NoError(t, err, "step %d", step)
			require.Equal(t, hadIdentity, res.Succeeded())
			if hadIdentity && before.IsGm && len(res.Members) > 0 {
				require.Len(t, gmsOf(res.Members), 1, "step %d: GM left, successor expected", step)
			}
		case 2:
			room := rooms[rng.IntN(len(rooms))]
			members := reg.MembersOf(room)
			if len(members) == 0 {
				continue
			}
			from := members[rng.IntN(len(members))].ID
			to := members[rng.IntN(len(members))].ID
			snap, err := reg.TransferGm(room, from, to)
			require.NoError(t, err, "step %d", step)
			require.Len(t, gmsOf(snap.Members), 1)
		}

		require.NoError(t, reg.Verify(), "step %d", step)
		for _, room := range rooms {
			require.LessOrEqual(t, len(gmsOf(reg.MembersOf(room))), 1, "step %d room %s", step, room)
		}
	}
}
