package game

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/curvy/server/utils"
)

// recObserver records lifecycle notifications in order.
type recObserver struct {
	NopObserver
	calls []string
}

func (o *recObserver) GameStart()       { o.calls = append(o.calls, "game:start") }
func (o *recObserver) GameStop()        { o.calls = append(o.calls, "game:stop") }
func (o *recObserver) RoundNew()        { o.calls = append(o.calls, "round:new") }
func (o *recObserver) RoundEnd(*Avatar) { o.calls = append(o.calls, "round:end") }
func (o *recObserver) End(*Avatar)      { o.calls = append(o.calls, "end") }

func TestBoardSizeScalesWithPlayers(t *testing.T) {
	assert.Equal(t, 100.0, boardSize(100, 1))
	assert.Equal(t, 110.0, boardSize(100, 2))
	assert.Equal(t, math.Round(math.Sqrt(2)*100), boardSize(100, 6))
}

func TestGameWarmupFreezesAvatars(t *testing.T) {
	g, players := newTestGame(t, "alice", "bob")
	g.Start()
	require.Equal(t, PhaseWarmup, g.Phase())

	a := players[0].Avatar()
	x, y := a.X, a.Y
	stepTicks(g, 10)
	assert.Equal(t, x, a.X)
	assert.Equal(t, y, a.Y)
}

func TestGameWarmupToPlaying(t *testing.T) {
	g, _ := newTestGame(t, "alice", "bob")
	g.Start()

	stepTicks(g, utils.Ticks(utils.WarmupTime)-1)
	assert.Equal(t, PhaseWarmup, g.Phase())
	stepTicks(g, 1)
	assert.Equal(t, PhasePlaying, g.Phase())

	// Heads are indexed once play opens.
	for _, a := range g.AliveAvatars() {
		assert.NotEmpty(t, a.Body().islands)
	}
}

func TestGameAdvanceRunsFixedSteps(t *testing.T) {
	g, _ := newTestGame(t, "alice", "bob")
	g.Start()

	t0 := time.Now()
	g.Advance(t0)
	require.Equal(t, 0, g.tickCount)

	g.Advance(t0.Add(500 * time.Millisecond))
	assert.Equal(t, 30, g.tickCount)

	// A long stall is capped to one second of catch-up.
	g.Advance(t0.Add(30 * time.Second))
	assert.Equal(t, 90, g.tickCount)
}

func TestGameWallDeath(t *testing.T) {
	g, players := newTestGame(t, "alice", "bob")
	g.Start()
	stepTicks(g, utils.Ticks(utils.WarmupTime))
	require.Equal(t, PhasePlaying, g.Phase())

	a := players[0].Avatar()
	b := players[1].Avatar()
	a.SetPosition(1, 50)
	a.SetAngle(math.Pi)
	b.SetPosition(g.Size()/2, g.Size()/2)
	b.SetAngle(0)

	stepTicks(g, 3)
	assert.False(t, a.Alive)
	assert.True(t, b.Alive)
	assert.Equal(t, PhaseRoundEnd, g.Phase())

	// The survivor scores one point per opponent down.
	assert.Equal(t, 1, b.Score)
	assert.Equal(t, 0, a.Score)
	assert.Same(t, b, g.RoundWinner())
}

func TestGameBoardResizesToPresentPlayers(t *testing.T) {
	g, players := newTestGame(t, "alice", "bob", "carol")
	g.Start()
	require.Equal(t, boardSize(100, 3), g.Size())
	stepTicks(g, utils.Ticks(utils.WarmupTime))
	require.Equal(t, PhasePlaying, g.Phase())

	g.RemoveAvatar(players[2].Avatar())

	a := players[0].Avatar()
	b := players[1].Avatar()
	a.SetPosition(1, 50)
	a.SetAngle(math.Pi)
	b.SetPosition(g.Size()/2, g.Size()/2)
	b.SetAngle(0)
	stepTicks(g, 3)
	require.Equal(t, PhaseRoundEnd, g.Phase())

	// The next round plays on a board sized for the two players left.
	stepTicks(g, utils.Ticks(utils.RoundEndTime))
	require.Equal(t, PhaseWarmup, g.Phase())
	assert.Equal(t, boardSize(100, 2), g.Size())
}

func TestGameHeadOnKillsBoth(t *testing.T) {
	g, players := newTestGame(t, "alice", "bob")
	g.Start()
	stepTicks(g, utils.Ticks(utils.WarmupTime))

	a := players[0].Avatar()
	b := players[1].Avatar()
	mid := g.Size() / 2
	a.SetPosition(mid-1, mid)
	a.SetAngle(0)
	b.SetPosition(mid+1, mid)
	b.SetAngle(math.Pi)

	stepTicks(g, 4)
	assert.False(t, a.Alive)
	assert.False(t, b.Alive)
	assert.Equal(t, PhaseRoundEnd, g.Phase())

	// Simultaneous deaths share the same score base.
	assert.Equal(t, 0, a.Score)
	assert.Equal(t, 0, b.Score)
	assert.Nil(t, g.RoundWinner())
}

func TestGameTrailKills(t *testing.T) {
	g, players := newTestGame(t, "alice", "bob")
	g.Start()
	stepTicks(g, utils.Ticks(utils.WarmupTime))

	a := players[0].Avatar()
	b := players[1].Avatar()
	mid := g.Size() / 2

	// A short wall of bob's trail straight across alice's path.
	for i := 0; i < 8; i++ {
		g.depositPoint(b, mid+2, mid-1+float64(i)*0.3)
	}
	b.SetPosition(mid, mid+20)
	b.SetAngle(0)
	a.SetPosition(mid, mid)
	a.SetAngle(0)

	stepTicks(g, 12)
	assert.False(t, a.Alive)
	assert.True(t, b.Alive)
}

func TestGameSequentialScores(t *testing.T) {
	g, players := newTestGame(t, "alice", "bob", "carol")
	g.Start()
	stepTicks(g, utils.Ticks(utils.WarmupTime))

	a := players[0].Avatar()
	b := players[1].Avatar()
	c := players[2].Avatar()

	g.kill(a, nil, g.deaths.Count())
	g.kill(b, nil, g.deaths.Count())
	g.endRound()

	assert.Equal(t, 0, a.Score)
	assert.Equal(t, 1, b.Score)
	assert.Equal(t, 2, c.Score)
	assert.Same(t, c, g.RoundWinner())
}

func TestGameRoundCycle(t *testing.T) {
	obs := &recObserver{}
	players := []*Player{newTestPlayer("p1", "alice"), newTestPlayer("p2", "bob")}
	config := NewRoomConfig()
	for _, kind := range BonusKinds {
		config.bonuses[kind.Name] = false
	}
	g := NewGame("arena", players, config, 100, 42, obs, zap.NewNop())

	g.Start()
	stepTicks(g, utils.Ticks(utils.WarmupTime))
	require.Equal(t, []string{"game:start", "round:new"}, obs.calls)

	// Nobody has the target score, so the next warmup follows.
	g.kill(players[0].Avatar(), nil, 0)
	g.endRound()
	stepTicks(g, utils.Ticks(utils.RoundEndTime))
	assert.Equal(t, PhaseWarmup, g.Phase())
	assert.True(t, players[0].Avatar().Alive)
	assert.Equal(t, []string{"game:start", "round:new", "round:end"}, obs.calls)
}

func TestGameEndsAtMaxScore(t *testing.T) {
	g, players := newTestGame(t, "alice", "bob")
	require.Equal(t, 10, g.MaxScore())
	g.Start()
	stepTicks(g, utils.Ticks(utils.WarmupTime))

	a := players[0].Avatar()
	b := players[1].Avatar()
	a.SetScore(10)

	winner, decided := g.wonBy()
	require.True(t, decided)
	assert.Same(t, a, winner)

	// A tie at the top keeps the match going.
	b.SetScore(10)
	_, decided = g.wonBy()
	assert.False(t, decided)

	// An outright lead past the target decides it.
	a.SetScore(12)
	winner, decided = g.wonBy()
	require.True(t, decided)
	assert.Same(t, a, winner)
}

func TestGameEndTransition(t *testing.T) {
	g, players := newTestGame(t, "alice", "bob")
	g.Start()
	stepTicks(g, utils.Ticks(utils.WarmupTime))

	players[1].Avatar().SetScore(10)
	g.kill(players[0].Avatar(), nil, 0)
	g.endRound()
	stepTicks(g, utils.Ticks(utils.RoundEndTime))

	assert.Equal(t, PhaseEnded, g.Phase())
	assert.False(t, g.Started())

	// An ended game ignores further time.
	ticks := g.tickCount
	g.Advance(time.Now().Add(time.Minute))
	assert.Equal(t, ticks, g.tickCount)
}

func TestGameRemoveAvatarEndsMatch(t *testing.T) {
	g, players := newTestGame(t, "alice", "bob")
	g.Start()
	stepTicks(g, utils.Ticks(utils.WarmupTime))

	g.RemoveAvatar(players[0].Avatar())
	assert.Equal(t, PhaseRoundEnd, g.Phase())

	stepTicks(g, utils.Ticks(utils.RoundEndTime))
	assert.Equal(t, PhaseEnded, g.Phase())
}

func TestGameClearTrails(t *testing.T) {
	g, players := newTestGame(t, "alice", "bob")
	g.Start()
	stepTicks(g, utils.Ticks(utils.WarmupTime))

	a := players[0].Avatar()
	mid := g.Size() / 2
	a.SetPosition(mid, mid)
	g.depositPoint(a, mid+10, mid)
	probe := NewBody(mid+10, mid, 1)
	require.NotNil(t, g.world.GetBody(probe))

	g.ClearTrails()
	assert.Nil(t, g.world.GetBody(probe))

	// Heads survive the wipe.
	headProbe := NewBody(a.X, a.Y, 1)
	assert.NotNil(t, g.world.GetBody(headProbe))
}

func TestGameBorderlessWrap(t *testing.T) {
	g, players := newTestGame(t, "alice", "bob")
	g.Start()
	stepTicks(g, utils.Ticks(utils.WarmupTime))

	g.SetBorderless(true)
	a := players[0].Avatar()
	b := players[1].Avatar()
	a.SetPosition(0.5, 50)
	a.SetAngle(math.Pi)
	b.SetPosition(g.Size()/2, g.Size()/2)
	b.SetAngle(0)

	stepTicks(g, 3)
	assert.True(t, a.Alive)
	assert.Equal(t, g.Size(), a.X)
}
