package game

import (
	"encoding/json"
	"fmt"

	"github.com/curvy/server/utils"
)

// RoomConfig is the leader-tunable game setup of a room. Mutation goes
// through Set so the lobby protocol can drive every knob with one
// (key, value) operation.
type RoomConfig struct {
	maxScore   int // 0 means derive from player count
	maxPlayers int
	open       bool
	bonusRate  float64
	bonuses    map[string]bool
}

func NewRoomConfig() *RoomConfig {
	bonuses := make(map[string]bool, len(BonusKinds))
	for _, kind := range BonusKinds {
		bonuses[kind.Name] = true
	}
	return &RoomConfig{
		maxPlayers: utils.DefaultMaxPlayers,
		open:       true,
		bonuses:    bonuses,
	}
}

func (c *RoomConfig) MaxPlayers() int    { return c.maxPlayers }
func (c *RoomConfig) Open() bool         { return c.open }
func (c *RoomConfig) BonusRate() float64 { return c.bonusRate }

// MaxScore returns the configured target, or one derived from the
// player count: ten points per opponent.
func (c *RoomConfig) MaxScore(players int) int {
	if c.maxScore > 0 {
		return c.maxScore
	}
	score := (players - 1) * utils.MaxScorePerPlayer
	if score < 1 {
		score = 1
	}
	return score
}

// EnabledBonuses lists the kinds switched on, in registry order.
func (c *RoomConfig) EnabledBonuses() []*BonusKind {
	var kinds []*BonusKind
	for _, kind := range BonusKinds {
		if c.bonuses[kind.Name] {
			kinds = append(kinds, kind)
		}
	}
	return kinds
}

// Set applies one configuration key. Recognized keys: maxScore,
// maxPlayers, bonusRate, open, and any bonus kind name with a boolean
// value. Unknown keys and out-of-range values return ErrBadInput.
func (c *RoomConfig) Set(key string, value json.RawMessage) error {
	switch key {
	case "maxScore":
		var score int
		if err := json.Unmarshal(value, &score); err != nil || score < 0 {
			return ErrBadInput
		}
		c.maxScore = score
	case "maxPlayers":
		var players int
		if err := json.Unmarshal(value, &players); err != nil || players < 1 {
			return ErrBadInput
		}
		c.maxPlayers = players
	case "bonusRate":
		var rate float64
		if err := json.Unmarshal(value, &rate); err != nil || rate < -1 || rate > 1 {
			return ErrBadInput
		}
		c.bonusRate = rate
	case "open":
		var open bool
		if err := json.Unmarshal(value, &open); err != nil {
			return ErrBadInput
		}
		c.open = open
	default:
		if _, ok := BonusKindByName(key); !ok {
			return fmt.Errorf("%w: unknown config key %q", ErrBadInput, key)
		}
		var enabled bool
		if err := json.Unmarshal(value, &enabled); err != nil {
			return ErrBadInput
		}
		c.bonuses[key] = enabled
	}
	return nil
}

// ConfigSummary is the wire shape of a room's configuration.
type ConfigSummary struct {
	MaxScore   int             `json:"maxScore"`
	MaxPlayers int             `json:"maxPlayers"`
	Open       bool            `json:"open"`
	BonusRate  float64         `json:"bonusRate"`
	Bonuses    map[string]bool `json:"bonuses"`
}

func (c *RoomConfig) Summary() ConfigSummary {
	bonuses := make(map[string]bool, len(c.bonuses))
	for name, enabled := range c.bonuses {
		bonuses[name] = enabled
	}
	return ConfigSummary{
		MaxScore:   c.maxScore,
		MaxPlayers: c.maxPlayers,
		Open:       c.open,
		BonusRate:  c.bonusRate,
		Bonuses:    bonuses,
	}
}
