package game

import (
	"math"
	"math/rand"

	"github.com/curvy/server/utils"
)

// Avatar is one player's entity in the simulation. All mutation happens
// on the room goroutine. Kinematics use world units and seconds; the
// radius and velocity floors keep stacked debuffs from freezing or
// erasing an avatar.
type Avatar struct {
	ID    string
	Name  string
	Color string

	X, Y  float64
	Angle float64

	Alive    bool
	Present  bool
	Printing bool
	Ready    bool

	Score      int
	RoundScore int

	// BodyCount is the per-avatar trail deposit sequence. The head body
	// carries the latest value so the self-collision grace window can
	// exclude the freshest neck segments.
	BodyCount int

	player *Player
	body   *Body
	trail  *Trail
	stack  *BonusStack
	print  *PrintManager

	velocity            float64
	velocityX           float64
	velocityY           float64
	angularVelocity     float64
	angularVelocityBase float64
	radius              float64
	inverse             bool
	invincible          bool
	directionInLoop     bool

	obs     Observer
	deposit func(a *Avatar, x, y float64)
}

// NewAvatar builds the avatar for a player. The deposit hook receives
// every trail point; the observer receives property changes.
func NewAvatar(player *Player, rng *rand.Rand, obs Observer, deposit func(a *Avatar, x, y float64)) *Avatar {
	a := &Avatar{
		ID:      player.ID,
		Name:    player.Name,
		Color:   player.Color,
		Alive:   true,
		Present: true,
		player:  player,
		trail:   &Trail{},
		obs:     obs,
		deposit: deposit,

		velocity:            utils.DefaultVelocity,
		radius:              utils.DefaultRadius,
		angularVelocityBase: utils.AngularVelocityBase,
		directionInLoop:     true,
	}
	a.body = &Body{Kind: BodyHead, OwnerID: a.ID, Radius: a.radius}
	a.stack = NewBonusStack(a)
	a.print = NewPrintManager(a, rng)
	a.updateVelocities()
	return a
}

func (a *Avatar) Body() *Body          { return a.body }
func (a *Avatar) Stack() *BonusStack   { return a.stack }
func (a *Avatar) Print() *PrintManager { return a.print }
func (a *Avatar) Player() *Player      { return a.player }

func (a *Avatar) Radius() float64          { return a.radius }
func (a *Avatar) Velocity() float64        { return a.velocity }
func (a *Avatar) AngularVelocity() float64 { return a.angularVelocity }
func (a *Avatar) Inverse() bool            { return a.inverse }
func (a *Avatar) Invincible() bool         { return a.invincible }
func (a *Avatar) DirectionInLoop() bool    { return a.directionInLoop }

// Update advances the avatar by one fixed step, depositing a trail
// point at the midpoint once it has travelled a radius.
func (a *Avatar) Update(step float64) {
	if !a.Alive {
		return
	}
	a.updateAngle(step)
	a.SetPosition(a.X+a.velocityX*step, a.Y+a.velocityY*step)

	if a.Printing && a.trail.Due(a.X, a.Y, a.radius) {
		if lastX, lastY, ok := a.trail.Last(); ok {
			a.addPoint((lastX+a.X)/2, (lastY+a.Y)/2)
		} else {
			a.addPoint(a.X, a.Y)
		}
		a.trail.Anchor(a.X, a.Y)
	}
}

func (a *Avatar) updateAngle(step float64) {
	if a.angularVelocity == 0 {
		return
	}
	if a.directionInLoop {
		a.SetAngle(a.Angle + a.angularVelocity*step)
		return
	}
	// Right-angle steering: the whole turn lands in one tick, then the
	// input must be re-pressed.
	a.SetAngle(a.Angle + a.angularVelocity)
	a.angularVelocity = 0
}

// Steer applies the latest turn input: -1, 0 or +1, inverted while an
// inverse bonus is active.
func (a *Avatar) Steer(move int) {
	factor := float64(move)
	if a.inverse {
		factor = -factor
	}
	a.setAngularVelocity(factor * a.angularVelocityBase)
}

// refreshTurn re-derives the angular velocity after a base or inverse
// change, keeping the current turn direction.
func (a *Avatar) refreshTurn() {
	if a.angularVelocity == 0 {
		return
	}
	direction := 1.0
	if a.angularVelocity < 0 {
		direction = -1
	}
	if a.inverse {
		direction = -direction
	}
	a.Steer(int(direction))
}

func (a *Avatar) setAngularVelocity(v float64) {
	a.angularVelocity = v
}

// SetAngle updates the heading and re-projects the velocity vector.
func (a *Avatar) SetAngle(angle float64) {
	if a.Angle == angle {
		return
	}
	a.Angle = angle
	a.updateVelocities()
	a.obs.Angle(a)
}

// SetPosition moves the avatar and its head body together.
func (a *Avatar) SetPosition(x, y float64) {
	a.X = x
	a.Y = y
	a.body.X = x
	a.body.Y = y
	a.body.Num = a.BodyCount
}

// SetVelocity applies the speed floor, then recomputes the velocity
// vector and the speed-scaled turning base.
func (a *Avatar) SetVelocity(v float64) {
	v = math.Max(v, utils.DefaultVelocity/2)
	if a.velocity == v {
		return
	}
	a.velocity = v
	a.updateVelocities()
	a.obs.Property(a, "velocity", a.velocity)
}

func (a *Avatar) updateVelocities() {
	a.velocityX = math.Cos(a.Angle) * a.velocity
	a.velocityY = math.Sin(a.Angle) * a.velocity
	a.updateBaseAngularVelocity()
}

// updateBaseAngularVelocity scales the turning rate with speed so a
// fast avatar is not uncontrollable and a slow one not trivially tight.
func (a *Avatar) updateBaseAngularVelocity() {
	if !a.directionInLoop {
		return
	}
	ratio := a.velocity / utils.DefaultVelocity
	a.angularVelocityBase = ratio*utils.AngularVelocityBase + math.Log(1/ratio)
	a.refreshTurn()
}

// SetRadius applies the size floor and resizes the head body.
func (a *Avatar) SetRadius(r float64) {
	r = math.Max(r, utils.DefaultRadius/8)
	if a.radius == r {
		return
	}
	a.radius = r
	a.body.Radius = r
	a.obs.Property(a, "radius", a.radius)
}

func (a *Avatar) SetInverse(inverse bool) {
	if a.inverse == inverse {
		return
	}
	a.inverse = inverse
	a.refreshTurn()
	a.obs.Property(a, "inverse", a.inverse)
}

func (a *Avatar) SetInvincible(invincible bool) {
	if a.invincible == invincible {
		return
	}
	a.invincible = invincible
	a.obs.Property(a, "invincible", a.invincible)
}

// SetDirectionInLoop switches between continuous steering and
// right-angle turns.
func (a *Avatar) SetDirectionInLoop(inLoop bool) {
	if a.directionInLoop == inLoop {
		return
	}
	a.directionInLoop = inLoop
	if inLoop {
		a.updateBaseAngularVelocity()
	} else {
		a.angularVelocity = 0
	}
}

// SetAngularVelocityBase overrides the turning base, used by the
// right-angle steering bonus.
func (a *Avatar) SetAngularVelocityBase(base float64) {
	a.angularVelocityBase = base
}

func (a *Avatar) SetColor(color string) {
	if a.Color == color {
		return
	}
	a.Color = color
	a.obs.Property(a, "color", a.Color)
}

// SetPrinting flips trail deposition. Both edges drop a point so the
// segment starts and ends exactly where the toggle happened; leaving
// print mode also drops the anchor.
func (a *Avatar) SetPrinting(printing bool) {
	if a.Printing == printing {
		return
	}
	a.Printing = printing
	a.addPoint(a.X, a.Y)
	a.trail.Anchor(a.X, a.Y)
	if !a.Printing {
		a.trail.Clear()
	}
	a.obs.Property(a, "printing", a.Printing)
}

func (a *Avatar) addPoint(x, y float64) {
	if a.deposit != nil {
		a.deposit(a, x, y)
	}
}

// Die ends the avatar's round: the bonus stack unwinds, printing stops
// and a final trail point marks the death spot.
func (a *Avatar) Die(killer *Body) {
	a.stack.Clear()
	a.Alive = false
	a.addPoint(a.X, a.Y)
	a.print.Stop()
	a.obs.Die(a, killer)
}

func (a *Avatar) AddScore(points int) {
	a.SetRoundScore(a.RoundScore + points)
}

func (a *Avatar) SetRoundScore(score int) {
	if a.RoundScore == score {
		return
	}
	a.RoundScore = score
	a.obs.RoundScore(a)
}

func (a *Avatar) SetScore(score int) {
	if a.Score == score {
		return
	}
	a.Score = score
	a.obs.Score(a)
}

// ResolveScore folds the round score into the total.
func (a *Avatar) ResolveScore() {
	a.SetScore(a.Score + a.RoundScore)
	a.RoundScore = 0
}

// ClearRound resets the avatar for a new round. Position and angle are
// assigned afterwards by the game.
func (a *Avatar) ClearRound() {
	a.stack.Clear()
	a.print.Stop()
	a.trail.Clear()

	a.X = 0
	a.Y = 0
	a.Angle = 0
	a.angularVelocity = 0
	a.RoundScore = 0
	a.BodyCount = 0
	a.Alive = true
	a.Printing = false
	a.Color = a.player.Color

	a.velocity = utils.DefaultVelocity
	a.radius = utils.DefaultRadius
	a.angularVelocityBase = utils.AngularVelocityBase
	a.inverse = false
	a.invincible = false
	a.directionInLoop = true
	a.body.Radius = a.radius
	a.body.Num = 0
	a.updateVelocities()
}

// Destroy removes the avatar from play for the rest of the match.
func (a *Avatar) Destroy() {
	a.ClearRound()
	a.Present = false
	a.Alive = false
}
