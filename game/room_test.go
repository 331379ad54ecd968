package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/curvy/server/utils"
)

func newTestRoom(t *testing.T) *Room {
	t.Helper()
	cfg := utils.Defaults().Game
	r := NewRoom("Arena", cfg, zap.NewNop(), nil)
	t.Cleanup(func() {
		r.Do(func() { r.close() })
	})
	return r
}

func joinRoom(t *testing.T, r *Room, c *fakeClient, name string) RoomState {
	t.Helper()
	var state RoomState
	roomDo(t, r, func() {
		var err error
		state, err = r.Join(c, name, "")
		require.NoError(t, err)
	})
	return state
}

func TestRoomJoinAssignsLeader(t *testing.T) {
	r := newTestRoom(t)
	c1 := newFakeClient("c1")
	c2 := newFakeClient("c2")

	state := joinRoom(t, r, c1, "alice")
	assert.Equal(t, "c1", state.Leader)
	_, got := c1.lastEvent("room:leader")
	assert.True(t, got)

	state = joinRoom(t, r, c2, "bob")
	assert.Equal(t, "c1", state.Leader)
	require.Len(t, state.Players, 2)

	// The second join is announced to the first player only.
	_, got = c1.lastEvent("room:join")
	assert.True(t, got)
	_, got = c2.lastEvent("room:join")
	assert.False(t, got)
}

func TestRoomJoinNameCollision(t *testing.T) {
	r := newTestRoom(t)
	joinRoom(t, r, newFakeClient("c1"), "Alice")

	roomDo(t, r, func() {
		_, err := r.Join(newFakeClient("c2"), "alice", "")
		assert.ErrorIs(t, err, ErrNameTaken)

		_, err = r.Join(newFakeClient("c3"), "  ", "")
		assert.ErrorIs(t, err, ErrBadInput)
	})
}

func TestRoomJoinFull(t *testing.T) {
	r := newTestRoom(t)
	roomDo(t, r, func() {
		require.NoError(t, r.config.Set("maxPlayers", []byte("1")))
	})
	joinRoom(t, r, newFakeClient("c1"), "alice")

	roomDo(t, r, func() {
		_, err := r.Join(newFakeClient("c2"), "bob", "")
		assert.ErrorIs(t, err, ErrRoomFull)
	})
}

func TestRoomJoinClosed(t *testing.T) {
	r := newTestRoom(t)
	roomDo(t, r, func() {
		require.NoError(t, r.config.Set("open", []byte("false")))
		_, err := r.Join(newFakeClient("c1"), "alice", "")
		assert.ErrorIs(t, err, ErrRoomClosed)
	})
}

func TestRoomLeaveRenominatesLeader(t *testing.T) {
	r := newTestRoom(t)
	c1 := newFakeClient("c1")
	c2 := newFakeClient("c2")
	joinRoom(t, r, c1, "alice")
	joinRoom(t, r, c2, "bob")

	roomDo(t, r, func() {
		require.NoError(t, r.Leave("c1"))
		assert.Equal(t, "c2", r.leader)
	})
	leader, got := c2.lastEvent("room:leader")
	require.True(t, got)
	assert.Equal(t, "c2", leader)
}

func TestRoomLeaveUnknown(t *testing.T) {
	r := newTestRoom(t)
	roomDo(t, r, func() {
		assert.ErrorIs(t, r.Leave("ghost"), ErrNotInRoom)
	})
}

func TestRoomNameFreedAfterLeave(t *testing.T) {
	r := newTestRoom(t)
	joinRoom(t, r, newFakeClient("c1"), "alice")
	roomDo(t, r, func() {
		require.NoError(t, r.Leave("c1"))
		_, err := r.Join(newFakeClient("c2"), "alice", "")
		assert.NoError(t, err)
	})
}

func TestRoomRecolorAndRename(t *testing.T) {
	r := newTestRoom(t)
	c1 := newFakeClient("c1")
	c2 := newFakeClient("c2")
	joinRoom(t, r, c1, "alice")
	joinRoom(t, r, c2, "bob")

	roomDo(t, r, func() {
		require.NoError(t, r.SetColor("c1", "#ffcc00"))
		assert.ErrorIs(t, r.SetColor("c1", "yellow"), ErrBadInput)
		assert.ErrorIs(t, r.SetColor("ghost", "#ffcc00"), ErrNotInRoom)

		assert.ErrorIs(t, r.Rename("c2", "Alice"), ErrNameTaken)
		assert.ErrorIs(t, r.Rename("c2", "  "), ErrBadInput)
		require.NoError(t, r.Rename("c2", "robert"))
	})

	data, got := c1.lastEvent("player:name")
	require.True(t, got)
	assert.Equal(t, "robert", data.(PlayerSummary).Name)
	data, got = c2.lastEvent("player:color")
	require.True(t, got)
	assert.Equal(t, "#ffcc00", data.(PlayerSummary).Color)

	// Profile changes are frozen while a game runs.
	roomDo(t, r, func() {
		require.NoError(t, r.SetReady("c1", true))
		require.NoError(t, r.SetReady("c2", true))
		require.NoError(t, r.StartGame("c1"))
		assert.ErrorIs(t, r.SetColor("c1", "#ffcc00"), ErrRoomClosed)
		assert.ErrorIs(t, r.Rename("c2", "bobby"), ErrRoomClosed)
	})
}

func TestRoomConfigureLeaderOnly(t *testing.T) {
	r := newTestRoom(t)
	joinRoom(t, r, newFakeClient("c1"), "alice")
	joinRoom(t, r, newFakeClient("c2"), "bob")

	roomDo(t, r, func() {
		assert.ErrorIs(t, r.Configure("c2", "maxScore", []byte("20")), ErrNotLeader)
		assert.ErrorIs(t, r.Configure("ghost", "maxScore", []byte("20")), ErrNotInRoom)
		require.NoError(t, r.Configure("c1", "maxScore", []byte("20")))
		assert.Equal(t, 20, r.config.MaxScore(2))
	})
}

func TestRoomStartNeedsReadyPlayers(t *testing.T) {
	r := newTestRoom(t)
	c1 := newFakeClient("c1")
	c2 := newFakeClient("c2")
	joinRoom(t, r, c1, "alice")
	joinRoom(t, r, c2, "bob")

	roomDo(t, r, func() {
		assert.ErrorIs(t, r.StartGame("c1"), ErrNotEnoughPlayers)

		require.NoError(t, r.SetReady("c1", true))
		require.NoError(t, r.SetReady("c2", true))
		require.NoError(t, r.StartGame("c1"))
		require.NotNil(t, r.game)
		assert.Equal(t, PhaseWarmup, r.game.Phase())

		// Only one game at a time.
		assert.ErrorIs(t, r.StartGame("c1"), ErrRoomClosed)
	})
	_, got := c1.lastEvent("game:start")
	assert.True(t, got)
}

func TestRoomStartNeedsTwoPlayers(t *testing.T) {
	r := newTestRoom(t)
	joinRoom(t, r, newFakeClient("c1"), "alice")
	roomDo(t, r, func() {
		require.NoError(t, r.SetReady("c1", true))
		assert.ErrorIs(t, r.StartGame("c1"), ErrNotEnoughPlayers)
	})
}

func TestRoomSoloStartWhenAllowed(t *testing.T) {
	cfg := utils.Defaults().Game
	cfg.SoloAllowed = true
	r := NewRoom("Arena", cfg, zap.NewNop(), nil)
	t.Cleanup(func() { r.Do(func() { r.close() }) })

	c1 := newFakeClient("c1")
	joinRoom(t, r, c1, "alice")
	roomDo(t, r, func() {
		require.NoError(t, r.SetReady("c1", true))
		require.NoError(t, r.StartGame("c1"))
	})
}

func TestRoomGameRunsOnTicker(t *testing.T) {
	r := newTestRoom(t)
	c1 := newFakeClient("c1")
	c2 := newFakeClient("c2")
	joinRoom(t, r, c1, "alice")
	joinRoom(t, r, c2, "bob")
	roomDo(t, r, func() {
		require.NoError(t, r.SetReady("c1", true))
		require.NoError(t, r.SetReady("c2", true))
		require.NoError(t, r.StartGame("c1"))
	})

	// The room goroutine drives the simulation off its ticker.
	require.Eventually(t, func() bool {
		var ticks int
		roomDo(t, r, func() { ticks = r.game.tickCount })
		return ticks > 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRoomLeaveDuringGame(t *testing.T) {
	r := newTestRoom(t)
	c1 := newFakeClient("c1")
	c2 := newFakeClient("c2")
	joinRoom(t, r, c1, "alice")
	joinRoom(t, r, c2, "bob")
	roomDo(t, r, func() {
		require.NoError(t, r.SetReady("c1", true))
		require.NoError(t, r.SetReady("c2", true))
		require.NoError(t, r.StartGame("c1"))
		require.NoError(t, r.Leave("c2"))
	})

	// Losing all but one player ends the match; the room returns to
	// the lobby on a later tick.
	require.Eventually(t, func() bool {
		var lobby bool
		roomDo(t, r, func() { lobby = r.game == nil })
		return lobby
	}, 5*time.Second, 20*time.Millisecond)
	_, got := c1.lastEvent("room:lobby")
	assert.True(t, got)
}

func TestRoomSpectatorJoinsMidGame(t *testing.T) {
	r := newTestRoom(t)
	c1 := newFakeClient("c1")
	c2 := newFakeClient("c2")
	joinRoom(t, r, c1, "alice")
	joinRoom(t, r, c2, "bob")
	roomDo(t, r, func() {
		require.NoError(t, r.SetReady("c1", true))
		require.NoError(t, r.SetReady("c2", true))
		require.NoError(t, r.StartGame("c1"))
	})

	c3 := newFakeClient("c3")
	joinRoom(t, r, c3, "carol")
	_, got := c3.lastEvent("spectate")
	assert.True(t, got)
	roomDo(t, r, func() {
		assert.Nil(t, r.players.Items()[2].Avatar(), "spectators play from the next match")
	})
}
