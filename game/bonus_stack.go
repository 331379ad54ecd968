package game

import (
	"math"

	"github.com/curvy/server/utils"
)

// BonusStack aggregates the active bonus effects on one avatar. Every
// add or remove re-resolves the affected properties from scratch, so
// stacking and unwinding in any order land on the same values.
type BonusStack struct {
	avatar  *Avatar
	bonuses *Collection[int, *Bonus]
}

func NewBonusStack(avatar *Avatar) *BonusStack {
	return &BonusStack{
		avatar:  avatar,
		bonuses: NewCollection[int](func(b *Bonus) int { return b.ID }),
	}
}

func (s *BonusStack) Count() int       { return s.bonuses.Count() }
func (s *BonusStack) Active() []*Bonus { return s.bonuses.Items() }

func (s *BonusStack) Add(b *Bonus) {
	if s.bonuses.Add(b) {
		s.resolve(nil)
		s.avatar.obs.StackChange(s.avatar, "add", b)
	}
}

func (s *BonusStack) Remove(b *Bonus) {
	if s.bonuses.Remove(b) {
		s.resolve(b)
		s.avatar.obs.StackChange(s.avatar, "remove", b)
	}
}

// Clear drops every bonus without resolving; callers reset the avatar
// right after.
func (s *BonusStack) Clear() {
	s.bonuses.Clear()
}

// resolve recomputes every property touched by the active bonuses,
// plus the properties of a just-removed bonus so they fall back to
// their defaults.
func (s *BonusStack) resolve(removed *Bonus) {
	properties := make(map[string]any)

	if removed != nil {
		for _, effect := range removed.Kind.Effects(removed) {
			properties[effect.Property] = s.defaultValue(effect.Property)
		}
	}

	for _, bonus := range s.bonuses.Items() {
		for _, effect := range bonus.Kind.Effects(bonus) {
			if _, ok := properties[effect.Property]; !ok {
				properties[effect.Property] = s.defaultValue(effect.Property)
			}
			properties[effect.Property] = appendValue(properties[effect.Property], effect)
		}
	}

	for property, value := range properties {
		s.apply(property, value)
	}
}

func (s *BonusStack) apply(property string, value any) {
	switch property {
	case "radius":
		s.avatar.SetRadius(utils.DefaultRadius * math.Pow(2, value.(float64)))
	case "velocity":
		s.avatar.SetVelocity(value.(float64))
	case "inverse":
		s.avatar.SetInverse(int(value.(float64))%2 != 0)
	case "invincible":
		s.avatar.SetInvincible(value.(float64) > 0)
	case "color":
		s.avatar.SetColor(value.(string))
	case "directionInLoop":
		s.avatar.SetDirectionInLoop(value.(bool))
	case "angularVelocityBase":
		s.avatar.SetAngularVelocityBase(value.(float64))
	}
}

func (s *BonusStack) defaultValue(property string) any {
	switch property {
	case "radius":
		return 0.0
	case "velocity":
		return utils.DefaultVelocity
	case "color":
		return s.avatar.player.Color
	case "directionInLoop":
		return true
	case "angularVelocityBase":
		// Re-derived from speed once the override is gone.
		ratio := s.avatar.velocity / utils.DefaultVelocity
		return ratio*utils.AngularVelocityBase + math.Log(1/ratio)
	default:
		return 0.0
	}
}

// appendValue folds one effect into an aggregate: replace for the
// override properties, addition for everything numeric.
func appendValue(current any, effect Effect) any {
	switch effect.Property {
	case "directionInLoop", "angularVelocityBase", "color":
		return effect.Value
	}
	return current.(float64) + effect.Value.(float64)
}

// GameBonusStack aggregates board-level effects; today that is the
// borderless counter.
type GameBonusStack struct {
	game    *Game
	bonuses *Collection[int, *Bonus]
}

func NewGameBonusStack(game *Game) *GameBonusStack {
	return &GameBonusStack{
		game:    game,
		bonuses: NewCollection[int](func(b *Bonus) int { return b.ID }),
	}
}

func (s *GameBonusStack) Add(b *Bonus) {
	if s.bonuses.Add(b) {
		s.resolve()
	}
}

func (s *GameBonusStack) Remove(b *Bonus) {
	if s.bonuses.Remove(b) {
		s.resolve()
	}
}

func (s *GameBonusStack) Clear() {
	s.bonuses.Clear()
	s.game.SetBorderless(false)
}

func (s *GameBonusStack) resolve() {
	borderless := 0
	for _, bonus := range s.bonuses.Items() {
		for _, effect := range bonus.Kind.Effects(bonus) {
			if effect.Property == "borderless" {
				borderless++
			}
		}
	}
	s.game.SetBorderless(borderless > 0)
}
