package game

import (
	"time"

	"github.com/curvy/server/utils"
)

// BodyKind tags what a world body belongs to.
type BodyKind int

const (
	// BodyHead is an avatar's live collision circle, re-indexed every tick.
	BodyHead BodyKind = iota
	// BodyTrail is a deposited trail point, static until round end.
	BodyTrail
	// BodyBonus is a pickup ghost: it is detected but never kills.
	BodyBonus
)

// Body is a circle in the world. Trail and head bodies carry the owning
// avatar's id and a per-avatar deposit sequence number; bonus bodies
// carry the bonus id.
type Body struct {
	ID      int
	X, Y    float64
	Radius  float64
	Kind    BodyKind
	OwnerID string
	Num     int
	BonusID int
	Birth   time.Time

	islands []*Island
}

// NewBody builds an anonymous probe body.
func NewBody(x, y, radius float64) *Body {
	return &Body{X: x, Y: y, Radius: radius}
}

// NewTrailBody deposits a trail point for avatar at (x, y).
func NewTrailBody(x, y float64, avatar *Avatar) *Body {
	b := &Body{
		X:       x,
		Y:       y,
		Radius:  avatar.Radius(),
		Kind:    BodyTrail,
		OwnerID: avatar.ID,
		Num:     avatar.BodyCount,
		Birth:   time.Now(),
	}
	avatar.BodyCount++
	return b
}

// Match reports whether b should collide with the probe. An avatar never
// collides with its own head or its most recent trail points: the grace
// window keeps a head from dying on its own neck.
func (b *Body) Match(probe *Body) bool {
	if b.OwnerID == "" || b.OwnerID != probe.OwnerID {
		return true
	}
	return probe.Num-b.Num > utils.TrailLatency
}

// IsOld reports whether a trail point predates the "fresh kill" window,
// used for client-side death feedback.
func (b *Body) IsOld() bool {
	return time.Since(b.Birth) >= utils.OldTrailAge
}
