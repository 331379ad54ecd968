package game

import (
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"github.com/curvy/server/utils"
)

// Room is a named lobby that wraps at most one running Game. All room
// and game state belongs to the room goroutine: sessions post closures
// to the inbox, and the run loop alternates between draining the inbox
// and ticking the simulation. The inbox always drains first, so every
// input received since the previous tick lands before the next one.
type Room struct {
	Name       string
	normalized string

	config  *RoomConfig
	players *Collection[string, *Player]
	group   *Group
	leader  string

	game       *Game
	controller *GameController

	inbox  chan func()
	done   chan struct{}
	ticker *time.Ticker
	idle   *time.Timer
	closed bool

	cfg     utils.GameConfig
	logger  *zap.Logger
	onClose func(*Room)
}

// NewRoom creates the room and starts its goroutine. onClose runs once
// when the room dies, with the room already unusable.
func NewRoom(name string, cfg utils.GameConfig, logger *zap.Logger, onClose func(*Room)) *Room {
	r := &Room{
		Name:       name,
		normalized: NormalizeName(name),
		config:     NewRoomConfig(),
		players:    NewCollection[string](func(p *Player) string { return p.ID }),
		group:      NewGroup(),
		inbox:      make(chan func(), 64),
		done:       make(chan struct{}),
		cfg:        cfg,
		logger:     logger.With(zap.String("room", name)),
		onClose:    onClose,
	}
	r.idle = time.NewTimer(cfg.IdleRoomTimeout)
	go r.run()
	return r
}

// Do posts fn to the room goroutine. It reports false when the room is
// already closed, in which case fn never runs.
func (r *Room) Do(fn func()) bool {
	select {
	case <-r.done:
		return false
	case r.inbox <- fn:
		return true
	}
}

func (r *Room) run() {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("room loop panicked",
				zap.Any("panic", rec),
				zap.ByteString("stack", debug.Stack()),
			)
			r.teardown()
		}
	}()

	for !r.closed {
		// Inputs drain before the simulation advances.
		select {
		case fn := <-r.inbox:
			fn()
			continue
		default:
		}

		select {
		case fn := <-r.inbox:
			fn()
		case <-r.tickerC():
			r.tick()
		case <-r.idle.C:
			if r.players.IsEmpty() {
				r.logger.Info("closing idle room")
				r.close()
			}
		case <-r.done:
			r.drain()
			return
		}
	}
	r.drain()
}

// drain runs whatever was queued when the room closed. The state checks
// in every operation make them fail with room_closed instead of hanging
// their callers.
func (r *Room) drain() {
	for {
		select {
		case fn := <-r.inbox:
			fn()
		default:
			return
		}
	}
}

func (r *Room) tickerC() <-chan time.Time {
	if r.ticker == nil {
		return nil
	}
	return r.ticker.C
}

func (r *Room) tick() {
	if r.game == nil {
		return
	}
	r.game.Advance(time.Now())
	if r.game.Phase() == PhaseEnded {
		r.closeGame()
	}
}

// Join seats a client. Joining a running game makes the new player a
// spectator for the current match; they play from the next one.
func (r *Room) Join(client Client, name, color string) (RoomState, error) {
	if r.closed || !r.config.Open() {
		return RoomState{}, ErrRoomClosed
	}
	if r.players.Count() >= r.config.MaxPlayers() {
		return RoomState{}, ErrRoomFull
	}
	name = DisplayName(name)
	if name == "" {
		return RoomState{}, ErrBadInput
	}
	normalized := NormalizeName(name)
	if _, taken := r.players.Match(func(p *Player) bool { return NormalizeName(p.Name) == normalized }); taken {
		return RoomState{}, ErrNameTaken
	}

	player := NewPlayer(client, name, color)
	if !r.players.Add(player) {
		return RoomState{}, ErrBadInput
	}
	r.group.Add(client)
	if r.leader == "" {
		r.leader = player.ID
		client.Send("room:leader", player.ID)
	}
	r.idle.Stop()

	r.group.SendExcept(player.ID, "room:join", player.Summary())
	if r.controller != nil {
		r.controller.AttachSpectator(client)
	}
	r.logger.Info("player joined", zap.String("player", name))
	return r.State(), nil
}

// Leave unseats a client, re-nominating the leader and scheduling the
// idle close when the room empties.
func (r *Room) Leave(clientID string) error {
	player, ok := r.players.GetByID(clientID)
	if !ok {
		return ErrNotInRoom
	}
	r.players.Remove(player)
	r.group.Remove(player.Client)

	if r.game != nil && player.Avatar() != nil {
		r.game.RemoveAvatar(player.Avatar())
		r.group.Send("game:leave", player.ID)
	}
	player.Reset()

	r.group.Send("room:leave", player.ID)
	if r.leader == player.ID {
		r.leader = ""
		if first, ok := r.players.First(); ok {
			r.leader = first.ID
			r.group.Send("room:leader", r.leader)
		}
	}
	if r.players.IsEmpty() {
		r.idle.Reset(r.cfg.IdleRoomTimeout)
	}
	r.logger.Info("player left", zap.String("player", player.Name))
	return nil
}

// SetReady flips a player's ready flag.
func (r *Room) SetReady(clientID string, ready bool) error {
	player, ok := r.players.GetByID(clientID)
	if !ok {
		return ErrNotInRoom
	}
	player.Ready = ready
	r.group.Send("player:ready", PlayerSummary{ID: player.ID, Name: player.Name, Color: player.Color, Ready: ready})
	return nil
}

// SetColor recolors a seated player. Lobby only: the avatar copies the
// color at spawn.
func (r *Room) SetColor(clientID, color string) error {
	player, ok := r.players.GetByID(clientID)
	if !ok {
		return ErrNotInRoom
	}
	if r.game != nil {
		return ErrRoomClosed
	}
	if !player.SetColor(color) {
		return ErrBadInput
	}
	r.group.Send("player:color", player.Summary())
	return nil
}

// Rename changes a seated player's display name, keeping names unique
// within the room. Lobby only.
func (r *Room) Rename(clientID, name string) error {
	player, ok := r.players.GetByID(clientID)
	if !ok {
		return ErrNotInRoom
	}
	if r.game != nil {
		return ErrRoomClosed
	}
	name = DisplayName(name)
	if name == "" {
		return ErrBadInput
	}
	normalized := NormalizeName(name)
	taken := func(p *Player) bool { return p.ID != clientID && NormalizeName(p.Name) == normalized }
	if _, collision := r.players.Match(taken); collision {
		return ErrNameTaken
	}
	player.Name = name
	r.group.Send("player:name", player.Summary())
	return nil
}

// Configure applies a config mutation; only the leader may.
func (r *Room) Configure(clientID, key string, value []byte) error {
	if _, ok := r.players.GetByID(clientID); !ok {
		return ErrNotInRoom
	}
	if clientID != r.leader {
		return ErrNotLeader
	}
	if r.game != nil {
		return ErrRoomClosed
	}
	if err := r.config.Set(key, value); err != nil {
		return err
	}
	r.group.Send("room:config", r.config.Summary())
	return nil
}

// StartGame launches a match once everyone is ready.
func (r *Room) StartGame(clientID string) error {
	if _, ok := r.players.GetByID(clientID); !ok {
		return ErrNotInRoom
	}
	if r.game != nil {
		return ErrRoomClosed
	}
	if r.players.Count() < utils.MinPlayers && !r.cfg.SoloAllowed {
		return ErrNotEnoughPlayers
	}
	if _, notReady := r.players.Match(func(p *Player) bool { return !p.Ready }); notReady {
		return ErrNotEnoughPlayers
	}

	players := r.players.Items()
	config := r.config
	if !r.cfg.BonusesEnabled {
		clone := *r.config
		clone.bonuses = make(map[string]bool, len(r.config.bonuses))
		for name := range r.config.bonuses {
			clone.bonuses[name] = false
		}
		config = &clone
	}

	r.controller = NewGameController(r.group, r.logger)
	r.game = NewGame(r.Name, players, config, r.cfg.BoardSize, time.Now().UnixNano(), r.controller, r.logger)
	r.controller.Bind(r.game)
	r.ticker = time.NewTicker(utils.TickDuration)
	r.game.Start()
	r.logger.Info("game started", zap.Int("players", len(players)))
	return nil
}

// Steer routes a move input into the running game.
func (r *Room) Steer(clientID string, move int) {
	if r.game != nil {
		r.game.Steer(clientID, move)
	}
}

// closeGame returns the room to lobby state after a match.
func (r *Room) closeGame() {
	if r.game == nil {
		return
	}
	r.ticker.Stop()
	r.ticker = nil
	r.game = nil
	r.controller = nil
	for _, player := range r.players.Items() {
		player.Reset()
	}
	r.group.Send("room:lobby", r.State())
	r.logger.Info("game closed")
}

// close ends the room for good.
func (r *Room) close() {
	if r.closed {
		return
	}
	r.closed = true
	close(r.done)
	if r.ticker != nil {
		r.ticker.Stop()
	}
	r.idle.Stop()
	if r.onClose != nil {
		r.onClose(r)
	}
}

// teardown is the panic path: players are kicked back to the lobby
// list and the room dies.
func (r *Room) teardown() {
	for _, player := range r.players.Items() {
		player.Client.Send("room:kicked", r.Name)
	}
	r.close()
}

// RoomState is the full wire shape of a room, sent on join.
type RoomState struct {
	Name    string          `json:"name"`
	Players []PlayerSummary `json:"players"`
	Leader  string          `json:"leader"`
	Game    bool            `json:"game"`
	Config  ConfigSummary   `json:"config"`
}

// RoomSummary is the compact wire shape used in room listings.
type RoomSummary struct {
	Name    string `json:"name"`
	Players int    `json:"players"`
	Open    bool   `json:"open"`
	Game    bool   `json:"game"`
}

func (r *Room) State() RoomState {
	players := make([]PlayerSummary, 0, r.players.Count())
	for _, p := range r.players.Items() {
		players = append(players, p.Summary())
	}
	return RoomState{
		Name:    r.Name,
		Players: players,
		Leader:  r.leader,
		Game:    r.game != nil,
		Config:  r.config.Summary(),
	}
}

func (r *Room) Summary() RoomSummary {
	return RoomSummary{
		Name:    r.Name,
		Players: r.players.Count(),
		Open:    r.config.Open(),
		Game:    r.game != nil,
	}
}
