package game

import (
	"math/rand"
	"time"

	"github.com/curvy/server/utils"
)

// activeBonus is a picked-up timed bonus counting down to its revert.
type activeBonus struct {
	bonus *Bonus
	ticks int
}

// BonusManager spawns pickups, detects catches and reverts expired
// effects. Pickups live in their own single-island world so lethal
// collision queries never see them.
type BonusManager struct {
	game    *Game
	world   *World
	kinds   []*BonusKind
	bonuses *Collection[int, *Bonus]
	active  []*activeBonus

	// spawnBase is the bonusRate-scaled interval T; the next spawn
	// lands uniformly in [T, 2T].
	spawnBase time.Duration
	spawnIn   int
	expiry    map[int]int
	nextID    int
	rng       *rand.Rand
}

// NewBonusManager wires the manager for one game. rate is the room's
// bonusRate variable in [-1, 1]; positive rates spawn faster.
func NewBonusManager(game *Game, kinds []*BonusKind, rate float64, rng *rand.Rand) *BonusManager {
	base := time.Duration(float64(utils.BonusSpawnBase) * (1 - rate/2))
	return &BonusManager{
		game:      game,
		world:     NewWorld(game.Size(), 1, rng),
		kinds:     kinds,
		bonuses:   NewCollection[int](func(b *Bonus) int { return b.ID }),
		spawnBase: base,
		expiry:    make(map[int]int),
		rng:       rng,
	}
}

// Resize rebuilds the pickup world for a new board side. The caller
// stops the manager first, so no pickup bodies carry over.
func (m *BonusManager) Resize(size float64) {
	m.world = NewWorld(size, 1, m.rng)
}

// Bonuses returns the uncollected pickups on the board.
func (m *BonusManager) Bonuses() []*Bonus { return m.bonuses.Items() }

// Start arms spawning for a round.
func (m *BonusManager) Start() {
	m.Stop()
	m.world.Activate()
	if len(m.kinds) > 0 {
		m.scheduleSpawn()
	}
}

// Stop clears the board and forgets active effects without reverting
// them; round teardown resets the avatars anyway.
func (m *BonusManager) Stop() {
	for _, b := range m.bonuses.Items() {
		m.game.obs.BonusClear(b)
	}
	m.bonuses.Clear()
	m.world.Clear()
	m.active = nil
	m.expiry = make(map[int]int)
	m.spawnIn = 0
}

func (m *BonusManager) scheduleSpawn() {
	delay := time.Duration(float64(m.spawnBase) * (1 + m.rng.Float64()))
	m.spawnIn = utils.Ticks(delay)
}

// Tick advances spawn and expiry countdowns by one simulation tick.
func (m *BonusManager) Tick() {
	if m.spawnIn > 0 {
		m.spawnIn--
		if m.spawnIn == 0 {
			m.spawn()
			m.scheduleSpawn()
		}
	}

	// Uncollected pickups rot off the board.
	for _, b := range m.bonuses.Items() {
		m.expiry[b.ID]--
	}
	for id, left := range m.expiry {
		if left <= 0 {
			if b, ok := m.bonuses.GetByID(id); ok {
				m.removeBonus(b)
			}
		}
	}

	kept := m.active[:0]
	for _, ab := range m.active {
		ab.ticks--
		if ab.ticks > 0 {
			kept = append(kept, ab)
			continue
		}
		m.revert(ab.bonus)
	}
	m.active = kept
}

func (m *BonusManager) spawn() {
	if m.bonuses.Count() >= utils.BonusCap {
		return
	}
	kind := m.randomKind()
	if kind == nil {
		return
	}

	x, y := m.randomPosition(utils.BonusRadius, utils.BonusSpawnMargin)
	m.nextID++
	bonus := NewBonus(m.nextID, kind, x, y, m.rng)

	m.bonuses.Add(bonus)
	m.world.AddBody(bonus.body)
	m.expiry[bonus.ID] = utils.Ticks(utils.BonusLifetime)
	m.game.obs.BonusPop(bonus)
}

// randomPosition rejects spots that touch trails, heads or other
// pickups.
func (m *BonusManager) randomPosition(radius, border float64) (float64, float64) {
	margin := radius + border*m.game.Size()
	probe := NewBody(m.game.world.randomPoint(margin), m.game.world.randomPoint(margin), margin)
	for attempts := 0; attempts < 100; attempts++ {
		if m.game.world.TestBody(probe) && m.world.TestBody(probe) {
			break
		}
		probe.X = m.game.world.randomPoint(margin)
		probe.Y = m.game.world.randomPoint(margin)
	}
	return probe.X, probe.Y
}

// randomKind samples the registry by cumulative probability.
func (m *BonusManager) randomKind() *BonusKind {
	var total float64
	weights := make([]float64, len(m.kinds))
	for i, kind := range m.kinds {
		p := kind.Probability(m.game)
		if p > 0 {
			total += p
		}
		weights[i] = total
	}
	if total == 0 {
		return nil
	}

	value := m.rng.Float64() * total
	for i, cumulative := range weights {
		if value < cumulative {
			return m.kinds[i]
		}
	}
	return m.kinds[len(m.kinds)-1]
}

// TestCatch picks up any bonus overlapping the avatar's head.
func (m *BonusManager) TestCatch(avatar *Avatar) {
	body := m.world.GetBody(avatar.body)
	if body == nil {
		return
	}
	bonus, ok := m.bonuses.GetByID(body.BonusID)
	if !ok {
		return
	}
	m.removeBonus(bonus)
	m.apply(bonus, avatar)
}

func (m *BonusManager) removeBonus(b *Bonus) {
	if m.bonuses.Remove(b) {
		m.world.RemoveBody(b.body)
		delete(m.expiry, b.ID)
		m.game.obs.BonusClear(b)
	}
}

// apply resolves the targets and pushes the effect, or runs it
// immediately for instant kinds.
func (m *BonusManager) apply(b *Bonus, collector *Avatar) {
	if b.Kind.Instant() {
		b.Kind.instant(m.game)
		return
	}

	switch b.Kind.Scope {
	case ScopeSelf:
		if collector.Alive {
			b.targets = []*Avatar{collector}
		}
	case ScopeEnemy:
		for _, a := range m.game.AliveAvatars() {
			if a.ID != collector.ID {
				b.targets = append(b.targets, a)
			}
		}
	case ScopeAll:
		b.targets = m.game.AliveAvatars()
	case ScopeGame:
		m.game.stack.Add(b)
	}

	for _, target := range b.targets {
		target.stack.Add(b)
	}

	if b.Kind.Duration > 0 {
		m.active = append(m.active, &activeBonus{bonus: b, ticks: utils.Ticks(b.Kind.Duration)})
	}
}

// revert unwinds a timed effect from its targets.
func (m *BonusManager) revert(b *Bonus) {
	if b.Kind.Scope == ScopeGame {
		m.game.stack.Remove(b)
		return
	}
	for _, target := range b.targets {
		target.stack.Remove(b)
	}
}
