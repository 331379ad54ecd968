package game

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/curvy/server/utils"
)

// BonusScope selects who a picked-up bonus lands on.
type BonusScope int

const (
	// ScopeSelf targets the avatar that collected the bonus.
	ScopeSelf BonusScope = iota
	// ScopeEnemy targets every other alive avatar.
	ScopeEnemy
	// ScopeAll targets every alive avatar, collector included.
	ScopeAll
	// ScopeGame targets the board itself.
	ScopeGame
)

// Effect is one (property, delta) pair contributed to a bonus stack.
// Numeric deltas accumulate; directionInLoop, angularVelocityBase and
// color replace.
type Effect struct {
	Property string
	Value    any
}

// BonusKind describes one bonus variant: its scope, lifetime and the
// effects it stacks. Kind names are part of the wire protocol.
type BonusKind struct {
	Name     string
	Scope    BonusScope
	Duration time.Duration

	probability float64
	dynamicProb func(g *Game) float64
	effects     func(b *Bonus) []Effect
	// instant runs once at pickup instead of stacking.
	instant func(g *Game)
}

// Probability returns the spawn weight, possibly depending on game
// state.
func (k *BonusKind) Probability(g *Game) float64 {
	if k.dynamicProb != nil {
		return k.dynamicProb(g)
	}
	return k.probability
}

// Effects returns the stacked effects of one spawned bonus.
func (k *BonusKind) Effects(b *Bonus) []Effect {
	if k.effects == nil {
		return nil
	}
	return k.effects(b)
}

// Instant reports whether the kind applies once at pickup.
func (k *BonusKind) Instant() bool { return k.instant != nil }

// Bonus is one spawned pickup. Its body is a ghost in the bonus world:
// detected for pickup, never lethal.
type Bonus struct {
	ID   int
	Kind *BonusKind
	X, Y float64

	body *Body
	// color is drawn at spawn for the shared-color bonus so every
	// target gets the same one.
	color string
	// targets are resolved at pickup and kept for the revert.
	targets []*Avatar
}

func NewBonus(id int, kind *BonusKind, x, y float64, rng *rand.Rand) *Bonus {
	b := &Bonus{ID: id, Kind: kind, X: x, Y: y}
	b.body = &Body{X: x, Y: y, Radius: utils.BonusRadius, Kind: BodyBonus, BonusID: id}
	if kind == BonusAllColor {
		b.color = randomBrightColor(rng)
	}
	return b
}

func (b *Bonus) Body() *Body { return b.body }

func randomBrightColor(rng *rand.Rand) string {
	return fmt.Sprintf("#%02x%02x%02x", 100+rng.Intn(156), 100+rng.Intn(156), 100+rng.Intn(156))
}

// The bonus registry. Effects follow the stack's aggregation rules:
// radius deltas are powers of two around the default, velocity deltas
// are fractions of the default speed, inverse/invincible/borderless are
// counters.
var (
	BonusSelfSmall = &BonusKind{
		Name: "BonusSelfSmall", Scope: ScopeSelf, Duration: 7500 * time.Millisecond,
		probability: 1,
		effects: func(*Bonus) []Effect {
			return []Effect{{Property: "radius", Value: -1.0}}
		},
	}
	BonusSelfBig = &BonusKind{
		Name: "BonusSelfBig", Scope: ScopeSelf, Duration: 7500 * time.Millisecond,
		probability: 1,
		effects: func(*Bonus) []Effect {
			return []Effect{{Property: "radius", Value: 1.0}}
		},
	}
	BonusSelfFast = &BonusKind{
		Name: "BonusSelfFast", Scope: ScopeSelf, Duration: 7500 * time.Millisecond,
		probability: 1,
		effects: func(*Bonus) []Effect {
			return []Effect{{Property: "velocity", Value: 0.5 * utils.DefaultVelocity}}
		},
	}
	BonusSelfSlow = &BonusKind{
		Name: "BonusSelfSlow", Scope: ScopeSelf, Duration: 7500 * time.Millisecond,
		probability: 1,
		effects: func(*Bonus) []Effect {
			return []Effect{{Property: "velocity", Value: -0.5 * utils.DefaultVelocity}}
		},
	}
	BonusSelfMaster = &BonusKind{
		Name: "BonusSelfMaster", Scope: ScopeSelf, Duration: 2 * time.Second,
		probability: 0.1,
		effects: func(*Bonus) []Effect {
			return []Effect{{Property: "invincible", Value: 1.0}}
		},
	}
	BonusEnemyFast = &BonusKind{
		Name: "BonusEnemyFast", Scope: ScopeEnemy, Duration: 7500 * time.Millisecond,
		probability: 1,
		effects: func(*Bonus) []Effect {
			return []Effect{{Property: "velocity", Value: 0.5 * utils.DefaultVelocity}}
		},
	}
	BonusEnemySlow = &BonusKind{
		Name: "BonusEnemySlow", Scope: ScopeEnemy, Duration: 7500 * time.Millisecond,
		probability: 1,
		effects: func(*Bonus) []Effect {
			return []Effect{{Property: "velocity", Value: -0.5 * utils.DefaultVelocity}}
		},
	}
	BonusEnemyBig = &BonusKind{
		Name: "BonusEnemyBig", Scope: ScopeEnemy, Duration: 7500 * time.Millisecond,
		probability: 1,
		effects: func(*Bonus) []Effect {
			return []Effect{{Property: "radius", Value: 1.0}}
		},
	}
	BonusEnemyInverse = &BonusKind{
		Name: "BonusEnemyInverse", Scope: ScopeEnemy, Duration: 7500 * time.Millisecond,
		probability: 1,
		effects: func(*Bonus) []Effect {
			return []Effect{{Property: "inverse", Value: 1.0}}
		},
	}
	BonusEnemyStraightAngle = &BonusKind{
		Name: "BonusEnemyStraightAngle", Scope: ScopeEnemy, Duration: 5 * time.Second,
		probability: 1,
		effects: func(*Bonus) []Effect {
			return []Effect{
				{Property: "directionInLoop", Value: false},
				{Property: "angularVelocityBase", Value: math.Pi / 2},
			}
		},
	}
	BonusAllBorderless = &BonusKind{
		Name: "BonusAllBorderless", Scope: ScopeGame, Duration: 7500 * time.Millisecond,
		probability: 1,
		effects: func(*Bonus) []Effect {
			return []Effect{{Property: "borderless", Value: 1.0}}
		},
	}
	BonusAllColor = &BonusKind{
		Name: "BonusAllColor", Scope: ScopeAll, Duration: 8 * time.Second,
		probability: 0.3,
		effects: func(b *Bonus) []Effect {
			return []Effect{{Property: "color", Value: b.color}}
		},
	}
	BonusGameClear = &BonusKind{
		Name: "BonusGameClear", Scope: ScopeGame,
		// Clearing the board gets likelier as more players are down.
		dynamicProb: func(g *Game) float64 {
			present := len(g.PresentAvatars())
			if present == 0 {
				return 0
			}
			ratio := 1 - float64(len(g.AliveAvatars()))/float64(present)
			if ratio < 0.5 {
				return 1
			}
			return math.Round((1-ratio)*10) / 10
		},
		instant: func(g *Game) { g.ClearTrails() },
	}
)

// BonusKinds lists every kind in registry order.
var BonusKinds = []*BonusKind{
	BonusSelfSmall,
	BonusSelfBig,
	BonusSelfFast,
	BonusSelfSlow,
	BonusSelfMaster,
	BonusEnemyFast,
	BonusEnemySlow,
	BonusEnemyBig,
	BonusEnemyInverse,
	BonusEnemyStraightAngle,
	BonusAllBorderless,
	BonusAllColor,
	BonusGameClear,
}

// BonusKindByName resolves a registry name, for config toggles.
func BonusKindByName(name string) (*BonusKind, bool) {
	for _, k := range BonusKinds {
		if k.Name == name {
			return k, true
		}
	}
	return nil, false
}
