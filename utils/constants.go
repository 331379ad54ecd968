package utils

import "time"

// Simulation timing. The step is fixed: a lagging loop runs extra steps,
// it never integrates measured elapsed time.
const (
	TickRate     = 60
	TickDuration = time.Second / TickRate
	TickStep     = 1.0 / TickRate // seconds per tick, as float
)

// Avatar defaults, in world units and seconds.
const (
	DefaultVelocity     = 16.0 // world units per second
	DefaultRadius       = 0.6
	AngularVelocityBase = 2.8 // radians per second at default velocity
	TrailLatency        = 3   // own trail bodies ignored behind the head
	OldTrailAge         = 2 * time.Second
)

// Trail printing. Intervals are in ticks; the countdown is drawn
// uniformly from [0.25,0.75]*PrintInterval while printing and from
// [0.5,1.5]*GapInterval while in a gap.
const (
	PrintInterval = 150
	GapInterval   = 10
)

// Bonus tuning.
const (
	BonusRadius      = 3.0
	BonusCap         = 20
	BonusSpawnBase   = 3 * time.Second
	BonusLifetime    = 8 * time.Second
	BonusSpawnMargin = 0.01
)

// Round lifecycle.
const (
	WarmupTime      = 3 * time.Second
	RoundEndTime    = 2 * time.Second
	PrintStartDelay = 3 * time.Second
)

// World partitioning and spawning.
const (
	IslandGridSize   = 40.0
	SpawnMargin      = 0.05
	SpawnAngleMargin = 0.3
)

// Lobby limits.
const (
	MaxNameLength     = 25
	MinPlayers        = 2
	DefaultMaxPlayers = 8
	MaxScorePerPlayer = 10
)

// Emission cadence: positions are decimated to ~20 Hz.
const PositionEmitInterval = 3 // ticks

// Ticks converts a wall-clock duration into a whole number of simulation
// ticks, rounding to the nearest tick with a floor of one so short timers
// never collapse to zero.
func Ticks(d time.Duration) int {
	n := int((d + TickDuration/2) / TickDuration)
	if n < 1 {
		n = 1
	}
	return n
}
