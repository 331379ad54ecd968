package game

import (
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/curvy/server/utils"
)

// Phase is the round state machine position.
type Phase int

const (
	// PhaseWarmup is the frozen countdown before a round plays.
	PhaseWarmup Phase = iota
	// PhasePlaying is the live simulation.
	PhasePlaying
	// PhaseRoundEnd is the pause between a round's last death and the
	// next warmup or the match end.
	PhaseRoundEnd
	// PhaseEnded means the match is over and the game is inert.
	PhaseEnded
)

// Game is one match: the world, the avatars, the bonus subsystem and
// the round state machine. Everything runs on the owning room's
// goroutine; Advance converts wall-clock progress into fixed steps, so
// a lagging loop catches up with extra steps instead of bigger ones.
type Game struct {
	name     string
	baseSize float64
	size     float64
	world    *World
	avatars  *Collection[string, *Avatar]
	deaths   *Collection[string, *Avatar]
	bonuses  *BonusManager
	stack    *GameBonusStack
	maxScore int

	phase           Phase
	phaseTicks      int
	printStartTicks int
	tickCount       int
	started         bool
	borderless      bool
	roundWinner     *Avatar

	accumulated time.Duration
	last        time.Time

	rng    *rand.Rand
	obs    Observer
	logger *zap.Logger
}

// NewGame builds a match for the room's present players. The board
// side grows with the head count; the rng seeds every random draw in
// the simulation, so a fixed seed replays identically.
func NewGame(name string, players []*Player, config *RoomConfig, baseSize float64, seed int64, obs Observer, logger *zap.Logger) *Game {
	if obs == nil {
		obs = NopObserver{}
	}
	rng := rand.New(rand.NewSource(seed))

	g := &Game{
		name:     name,
		baseSize: baseSize,
		size:     boardSize(baseSize, len(players)),
		avatars:  NewCollection[string](func(a *Avatar) string { return a.ID }),
		deaths:   NewCollection[string](func(a *Avatar) string { return a.ID }),
		maxScore: config.MaxScore(len(players)),
		rng:      rng,
		obs:      obs,
		logger:   logger,
	}
	g.world = NewWorld(g.size, 0, rng)
	g.stack = NewGameBonusStack(g)
	g.bonuses = NewBonusManager(g, config.EnabledBonuses(), config.BonusRate(), rng)

	for _, player := range players {
		avatar := NewAvatar(player, rng, obs, g.depositPoint)
		player.avatar = avatar
		g.avatars.Add(avatar)
	}
	return g
}

// boardSize grows the base side so the area scales with player count.
func boardSize(base float64, players int) float64 {
	if players < 1 {
		players = 1
	}
	square := base * base
	return math.Round(math.Sqrt(square + float64(players-1)*square/5))
}

func (g *Game) Name() string     { return g.name }
func (g *Game) Size() float64    { return g.size }
func (g *Game) Phase() Phase     { return g.phase }
func (g *Game) MaxScore() int    { return g.maxScore }
func (g *Game) Borderless() bool { return g.borderless }
func (g *Game) Started() bool    { return g.started }
func (g *Game) World() *World    { return g.world }

func (g *Game) RoundWinner() *Avatar   { return g.roundWinner }
func (g *Game) Bonuses() *BonusManager { return g.bonuses }
func (g *Game) Avatars() []*Avatar     { return g.avatars.Items() }

// Avatar resolves an avatar by player id.
func (g *Game) Avatar(id string) (*Avatar, bool) {
	return g.avatars.GetByID(id)
}

func (g *Game) AliveAvatars() []*Avatar {
	return g.avatars.Filter(func(a *Avatar) bool { return a.Alive })
}

func (g *Game) PresentAvatars() []*Avatar {
	return g.avatars.Filter(func(a *Avatar) bool { return a.Present })
}

// Start launches the match: the start event goes out immediately, the
// first round opens with its warmup.
func (g *Game) Start() {
	if g.started {
		return
	}
	g.started = true
	g.obs.GameStart()
	g.beginRound()
}

// Steer records a player's latest turn input.
func (g *Game) Steer(playerID string, move int) {
	if avatar, ok := g.avatars.GetByID(playerID); ok && avatar.Alive {
		avatar.Steer(move)
	}
}

// Advance runs the fixed steps covered by the wall clock since the
// last call. Steps are always exactly one tick; a long stall is capped
// to a second of catch-up instead of a runaway burst.
func (g *Game) Advance(now time.Time) {
	if g.phase == PhaseEnded {
		return
	}
	if g.last.IsZero() {
		g.last = now
		return
	}
	g.accumulated += now.Sub(g.last)
	g.last = now
	if g.accumulated > time.Second {
		g.accumulated = time.Second
	}
	for g.accumulated >= utils.TickDuration {
		g.accumulated -= utils.TickDuration
		g.step()
		if g.phase == PhaseEnded {
			return
		}
	}
}

func (g *Game) step() {
	g.tickCount++
	switch g.phase {
	case PhaseWarmup:
		g.phaseTicks--
		if g.phaseTicks <= 0 {
			g.startPlay()
		}
	case PhasePlaying:
		g.simulate()
	case PhaseRoundEnd:
		g.phaseTicks--
		if g.phaseTicks <= 0 {
			g.finishRound()
		}
	}
}

// beginRound resets the arena and freezes everyone for the warmup.
func (g *Game) beginRound() {
	g.phase = PhaseWarmup
	g.phaseTicks = utils.Ticks(utils.WarmupTime)
	g.roundWinner = nil

	g.bonuses.Stop()
	g.stack.Clear()
	g.world.Clear()
	g.deaths.Clear()

	// The arena is sized for the players actually present, so it
	// shrinks when someone left during the previous round.
	if size := boardSize(g.baseSize, len(g.PresentAvatars())); size != g.size {
		g.size = size
		g.world = NewWorld(size, 0, g.rng)
		g.bonuses.Resize(size)
	}

	for _, avatar := range g.avatars.Items() {
		if !avatar.Present {
			g.deaths.Add(avatar)
			continue
		}
		avatar.ClearRound()
		x, y := g.world.GetRandomPosition(avatar.Radius(), utils.SpawnMargin)
		avatar.SetPosition(x, y)
		avatar.SetAngle(g.world.GetRandomDirection(x, y, utils.SpawnAngleMargin))
	}
}

// startPlay opens the live round: the world starts indexing, heads go
// in, bonuses arm, and printing begins shortly after.
func (g *Game) startPlay() {
	g.phase = PhasePlaying
	g.world.Activate()
	for _, avatar := range g.AliveAvatars() {
		g.world.AddBody(avatar.Body())
	}
	g.bonuses.Start()
	g.printStartTicks = utils.Ticks(utils.PrintStartDelay)
	g.obs.RoundNew()
}

// simulate is one live tick: move everyone, then resolve deaths
// against pre-step positions so mutual head-ons kill both, then
// refresh the index.
func (g *Game) simulate() {
	if g.printStartTicks > 0 {
		g.printStartTicks--
		if g.printStartTicks == 0 {
			for _, avatar := range g.AliveAvatars() {
				avatar.Print().Start()
			}
		}
	}

	priorDeaths := g.deaths.Count()

	type casualty struct {
		avatar *Avatar
		killer *Body
	}
	var casualties []casualty

	alive := g.AliveAvatars()
	for _, avatar := range alive {
		avatar.Update(utils.TickStep)
	}

	for _, avatar := range alive {
		margin := avatar.Radius()
		if g.borderless {
			margin = 0
		}
		if x, y, hit := g.world.GetBoundIntersect(avatar.Body(), margin); hit {
			if g.borderless {
				avatar.SetPosition(g.world.GetOpposite(x, y))
				continue
			}
			if !avatar.Invincible() {
				casualties = append(casualties, casualty{avatar: avatar, killer: nil})
				continue
			}
		}
		if !avatar.Invincible() {
			if killer := g.world.GetBody(avatar.Body()); killer != nil {
				casualties = append(casualties, casualty{avatar: avatar, killer: killer})
			}
		}
	}

	// Deaths land atomically: everyone who died this tick shares the
	// same prior-deaths score base.
	for _, c := range casualties {
		g.kill(c.avatar, c.killer, priorDeaths)
	}

	for _, avatar := range g.avatars.Items() {
		if avatar.Alive {
			g.world.RemoveBody(avatar.Body())
			g.world.AddBody(avatar.Body())
			avatar.Print().Tick()
			g.bonuses.TestCatch(avatar)
		} else {
			g.world.RemoveBody(avatar.Body())
		}
	}

	g.bonuses.Tick()

	if g.tickCount%utils.PositionEmitInterval == 0 {
		for _, avatar := range g.AliveAvatars() {
			g.obs.Position(avatar)
		}
	}

	if len(casualties) > 0 && len(g.AliveAvatars()) <= 1 {
		g.endRound()
	}
}

func (g *Game) kill(avatar *Avatar, killer *Body, score int) {
	avatar.Die(killer)
	avatar.AddScore(score)
	g.deaths.Add(avatar)
}

// endRound scores the survivors and pauses before the next warmup.
// Every survivor earns one point per opponent already down, which
// keeps the round total at alive*dead + C(dead, 2).
func (g *Game) endRound() {
	if g.phase != PhasePlaying && g.phase != PhaseWarmup {
		return
	}
	g.phase = PhaseRoundEnd
	g.phaseTicks = utils.Ticks(utils.RoundEndTime)

	dead := g.deaths.Count()
	for _, avatar := range g.AliveAvatars() {
		avatar.AddScore(dead)
		avatar.Print().Stop()
		if g.roundWinner == nil {
			g.roundWinner = avatar
		}
	}
	for _, avatar := range g.avatars.Items() {
		avatar.ResolveScore()
	}

	g.bonuses.Stop()
	g.obs.RoundEnd(g.roundWinner)
}

// finishRound decides between another round and the match end.
func (g *Game) finishRound() {
	winner, decided := g.wonBy()
	if decided {
		g.end(winner)
		return
	}
	g.beginRound()
}

// wonBy reports whether the match is over: someone present reached the
// target score and leads outright, or fewer than two players remain.
func (g *Game) wonBy() (*Avatar, bool) {
	present := g.PresentAvatars()
	if len(present) == 0 {
		return nil, true
	}
	if g.avatars.Count() > 1 && len(present) <= 1 {
		return present[0], true
	}

	var leaders []*Avatar
	for _, avatar := range present {
		if avatar.Score >= g.maxScore {
			leaders = append(leaders, avatar)
		}
	}
	switch len(leaders) {
	case 0:
		return nil, false
	case 1:
		return leaders[0], true
	}

	best, second := leaders[0], leaders[1]
	for _, avatar := range leaders[1:] {
		if avatar.Score > best.Score {
			second = best
			best = avatar
		} else if avatar.Score > second.Score {
			second = avatar
		}
	}
	if best.Score == second.Score {
		return nil, false
	}
	return best, true
}

func (g *Game) end(winner *Avatar) {
	g.phase = PhaseEnded
	g.started = false
	g.bonuses.Stop()
	g.world.Clear()
	g.obs.GameStop()
	g.obs.End(winner)
	if g.logger != nil {
		name := "nobody"
		if winner != nil {
			name = winner.Name
		}
		g.logger.Info("match ended", zap.String("winner", name))
	}
}

// RemoveAvatar takes a leaver out of play. The avatar dies in place so
// its trail stays consistent, and the round may end as a result.
func (g *Game) RemoveAvatar(avatar *Avatar) {
	if !g.avatars.Exists(avatar) {
		return
	}
	wasAlive := avatar.Alive
	if wasAlive {
		g.kill(avatar, nil, g.deaths.Count())
	}
	g.world.RemoveBody(avatar.Body())
	avatar.Destroy()

	if wasAlive && len(g.AliveAvatars()) <= 1 {
		g.endRound()
	}
}

// ClearTrails wipes every body from the board, then re-indexes the
// live heads so nobody dies to a trail that no longer exists.
func (g *Game) ClearTrails() {
	g.world.Clear()
	g.world.Activate()
	for _, avatar := range g.AliveAvatars() {
		g.world.AddBody(avatar.Body())
	}
	g.obs.Clear()
}

// SetBorderless flips wall behavior between lethal and wrap-around.
func (g *Game) SetBorderless(on bool) {
	if g.borderless == on {
		return
	}
	g.borderless = on
	g.obs.Borderless(on)
}

// depositPoint turns an avatar trail point into a world body.
func (g *Game) depositPoint(avatar *Avatar, x, y float64) {
	if !g.world.Active() {
		return
	}
	g.world.AddBody(NewTrailBody(x, y, avatar))
}
