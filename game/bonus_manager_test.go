package game

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/curvy/server/utils"
)

// newBonusGame builds a seeded playing match with the full bonus
// registry armed but random spawning suppressed.
func newBonusGame(t *testing.T, names ...string) (*Game, *BonusManager, []*Player) {
	t.Helper()
	players := make([]*Player, len(names))
	for i, name := range names {
		players[i] = newTestPlayer(fmt.Sprintf("p%d", i+1), name)
	}
	g := NewGame("arena", players, NewRoomConfig(), 100, 42, NopObserver{}, zap.NewNop())
	g.Start()
	stepTicks(g, utils.Ticks(utils.WarmupTime))
	require.Equal(t, PhasePlaying, g.Phase())

	m := g.Bonuses()
	m.spawnIn = 1 << 30
	return g, m, players
}

// plantBonus puts a crafted pickup on the board.
func plantBonus(m *BonusManager, kind *BonusKind, x, y float64) *Bonus {
	m.nextID++
	b := NewBonus(m.nextID, kind, x, y, m.rng)
	m.bonuses.Add(b)
	m.world.AddBody(b.body)
	m.expiry[b.ID] = utils.Ticks(utils.BonusLifetime)
	return b
}

func TestBonusSpawnLandsOnFreeGround(t *testing.T) {
	g, m, _ := newBonusGame(t, "alice", "bob")

	for i := 0; i < 10; i++ {
		m.spawn()
	}
	require.Equal(t, 10, m.bonuses.Count())

	margin := utils.BonusRadius + utils.BonusSpawnMargin*g.Size()
	for _, b := range m.Bonuses() {
		assert.GreaterOrEqual(t, b.X, margin)
		assert.LessOrEqual(t, b.X, g.Size()-margin)
		assert.GreaterOrEqual(t, b.Y, margin)
		assert.LessOrEqual(t, b.Y, g.Size()-margin)
		// Pickups are ghosts: the lethal world never sees them.
		assert.Nil(t, g.World().GetBody(b.Body()))
	}
}

func TestBonusSpawnCap(t *testing.T) {
	_, m, _ := newBonusGame(t, "alice", "bob")
	for i := 0; i < utils.BonusCap+10; i++ {
		m.spawn()
	}
	assert.Equal(t, utils.BonusCap, m.bonuses.Count())
}

func TestBonusCatchAppliesAndExpires(t *testing.T) {
	_, m, players := newBonusGame(t, "alice", "bob")
	a := players[0].Avatar()

	b := plantBonus(m, BonusSelfFast, 20, 20)
	a.SetPosition(20, 20)
	m.TestCatch(a)

	assert.Equal(t, 0, m.bonuses.Count())
	assert.InDelta(t, 1.5*utils.DefaultVelocity, a.Velocity(), 1e-9)
	assert.Equal(t, 1, a.Stack().Count())

	for i := 0; i < utils.Ticks(b.Kind.Duration); i++ {
		m.Tick()
	}
	assert.InDelta(t, utils.DefaultVelocity, a.Velocity(), 1e-9)
	assert.Equal(t, 0, a.Stack().Count())
}

func TestBonusCatchMissesWhenApart(t *testing.T) {
	_, m, players := newBonusGame(t, "alice", "bob")
	a := players[0].Avatar()

	plantBonus(m, BonusSelfFast, 20, 20)
	a.SetPosition(60, 60)
	m.TestCatch(a)

	assert.Equal(t, 1, m.bonuses.Count())
	assert.InDelta(t, utils.DefaultVelocity, a.Velocity(), 1e-9)
}

func TestBonusEnemyScope(t *testing.T) {
	_, m, players := newBonusGame(t, "alice", "bob", "carol")
	a := players[0].Avatar()
	b := players[1].Avatar()
	c := players[2].Avatar()

	bonus := plantBonus(m, BonusEnemySlow, 20, 20)
	a.SetPosition(20, 20)
	m.TestCatch(a)

	assert.InDelta(t, utils.DefaultVelocity, a.Velocity(), 1e-9)
	assert.InDelta(t, utils.DefaultVelocity/2, b.Velocity(), 1e-9)
	assert.InDelta(t, utils.DefaultVelocity/2, c.Velocity(), 1e-9)
	assert.Len(t, bonus.targets, 2)
}

func TestBonusUncollectedExpires(t *testing.T) {
	_, m, _ := newBonusGame(t, "alice", "bob")

	b := plantBonus(m, BonusSelfFast, 20, 20)
	m.expiry[b.ID] = 2

	m.Tick()
	assert.Equal(t, 1, m.bonuses.Count())
	m.Tick()
	assert.Equal(t, 0, m.bonuses.Count())
}

func TestBonusBorderlessScope(t *testing.T) {
	g, m, players := newBonusGame(t, "alice", "bob")
	a := players[0].Avatar()

	b := plantBonus(m, BonusAllBorderless, 20, 20)
	a.SetPosition(20, 20)
	m.TestCatch(a)
	assert.True(t, g.Borderless())

	for i := 0; i < utils.Ticks(b.Kind.Duration); i++ {
		m.Tick()
	}
	assert.False(t, g.Borderless())
}

func TestBonusGameClearWipesTrails(t *testing.T) {
	g, m, players := newBonusGame(t, "alice", "bob")
	a := players[0].Avatar()
	players[1].Avatar().SetPosition(90, 90)

	a.SetPosition(50, 50)
	g.depositPoint(a, 60, 60)
	probe := NewBody(60, 60, 1)
	require.NotNil(t, g.World().GetBody(probe))

	plantBonus(m, BonusGameClear, 20, 20)
	a.SetPosition(20, 20)
	m.TestCatch(a)

	assert.Nil(t, g.World().GetBody(probe))
	assert.Equal(t, 0, a.Stack().Count(), "instant kinds never stack")
}

func TestBonusStopClearsBoard(t *testing.T) {
	_, m, _ := newBonusGame(t, "alice", "bob")
	m.spawn()
	m.spawn()
	require.Equal(t, 2, m.bonuses.Count())

	m.Stop()
	assert.Equal(t, 0, m.bonuses.Count())
	assert.Empty(t, m.active)
}

func TestBonusSpawnIntervalBounds(t *testing.T) {
	_, m, _ := newBonusGame(t, "alice", "bob")

	low := utils.Ticks(m.spawnBase)
	high := utils.Ticks(2 * m.spawnBase)
	for i := 0; i < 100; i++ {
		m.scheduleSpawn()
		assert.GreaterOrEqual(t, m.spawnIn, low-1)
		assert.LessOrEqual(t, m.spawnIn, high+1)
	}
}

func TestBonusRateScalesSpawnBase(t *testing.T) {
	players := []*Player{newTestPlayer("p1", "alice"), newTestPlayer("p2", "bob")}
	config := NewRoomConfig()
	require.NoError(t, config.Set("bonusRate", []byte("1")))
	g := NewGame("arena", players, config, 100, 42, NopObserver{}, zap.NewNop())

	// Full rate halves the base interval.
	assert.Equal(t, utils.BonusSpawnBase/2, g.Bonuses().spawnBase)
}
