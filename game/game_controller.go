package game

import "go.uber.org/zap"

// GameController translates simulation changes into wire events for a
// room's client group. Position-heavy payloads are flat arrays with
// fixed-point coordinates; everything else rides small JSON objects.
// All methods run on the room goroutine and only enqueue.
type GameController struct {
	group      *Group
	spectators *Group
	game       *Game
	logger     *zap.Logger
}

func NewGameController(group *Group, logger *zap.Logger) *GameController {
	return &GameController{
		group:      group,
		spectators: NewGroup(),
		logger:     logger.Named("broadcast"),
	}
}

// Bind attaches the running game the controller reports on. The game
// must be bound before its Start, since start events need it.
func (c *GameController) Bind(g *Game) { c.game = g }

func (c *GameController) send(name string, data any) {
	c.group.Send(name, data)
}

func (c *GameController) GameStart() { c.send("game:start", nil) }

func (c *GameController) GameStop() { c.send("game:stop", nil) }

func (c *GameController) RoundNew() { c.send("round:new", nil) }

func (c *GameController) RoundEnd(winner *Avatar) {
	c.send("round:end", avatarRef(winner))
}

func (c *GameController) End(winner *Avatar) {
	c.send("end", avatarRef(winner))
	c.spectators = NewGroup()
}

func (c *GameController) Clear() { c.send("clear", nil) }

func (c *GameController) Borderless(on bool) { c.send("borderless", on) }

func (c *GameController) Position(a *Avatar) {
	c.send("position", []any{a.ID, Compress(a.X), Compress(a.Y)})
}

func (c *GameController) Angle(a *Avatar) {
	c.send("angle", []any{a.ID, Compress(a.Angle)})
}

func (c *GameController) Die(a *Avatar, killer *Body) {
	c.send("avatar:die", dieEvent(a, killer))
}

func (c *GameController) Property(a *Avatar, property string, value any) {
	if property == "radius" {
		value = Compress(value.(float64))
	}
	c.send("property", []any{a.ID, property, value})
}

func (c *GameController) Score(a *Avatar) {
	c.send("score", []any{a.ID, a.Score})
}

func (c *GameController) RoundScore(a *Avatar) {
	c.send("score:round", []any{a.ID, a.RoundScore})
}

func (c *GameController) StackChange(a *Avatar, method string, b *Bonus) {
	c.send("bonus:stack", []any{a.ID, method, b.ID, b.Kind.Name, b.Kind.Duration.Milliseconds()})
}

func (c *GameController) BonusPop(b *Bonus) {
	c.send("bonus:pop", bonusEvent(b))
}

func (c *GameController) BonusClear(b *Bonus) {
	c.send("bonus:clear", b.ID)
}

// AttachSpectator catches a mid-game joiner up to the current board:
// who is where, who is dead, what pickups are out.
func (c *GameController) AttachSpectator(client Client) {
	if c.game == nil {
		return
	}
	c.spectators.Add(client)

	client.Send("spectate", map[string]any{
		"inRound":  c.game.Phase() == PhasePlaying || c.game.Phase() == PhaseWarmup,
		"maxScore": c.game.MaxScore(),
	})
	if c.game.Borderless() {
		client.Send("borderless", true)
	}

	for _, a := range c.game.Avatars() {
		if !a.Present {
			continue
		}
		client.Send("position", []any{a.ID, Compress(a.X), Compress(a.Y)})
		client.Send("property", []any{a.ID, "angle", Compress(a.Angle)})
		client.Send("property", []any{a.ID, "radius", Compress(a.Radius())})
		client.Send("property", []any{a.ID, "color", a.Color})
		client.Send("property", []any{a.ID, "printing", a.Printing})
		client.Send("score", []any{a.ID, a.Score})
		if !a.Alive {
			client.Send("avatar:die", dieEvent(a, nil))
		}
	}

	for _, b := range c.game.Bonuses().Bonuses() {
		client.Send("bonus:pop", bonusEvent(b))
	}

	c.group.Send("game:spectators", c.spectators.Count())
	c.logger.Debug("spectator attached", zap.String("session", client.ID()))
}

// SpectatorCount reports how many mid-game joiners are watching.
func (c *GameController) SpectatorCount() int { return c.spectators.Count() }

// avatarRef encodes an avatar as its player id, null when absent.
func avatarRef(a *Avatar) any {
	if a == nil {
		return nil
	}
	return a.ID
}

func dieEvent(a *Avatar, killer *Body) []any {
	var killerID any
	old := false
	if killer != nil && killer.OwnerID != "" {
		killerID = killer.OwnerID
		old = killer.IsOld()
	}
	return []any{a.ID, killerID, old}
}

func bonusEvent(b *Bonus) []any {
	return []any{b.ID, Compress(b.X), Compress(b.Y), b.Kind.Name}
}

var _ Observer = (*GameController)(nil)
