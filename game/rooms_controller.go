package game

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/curvy/server/server"
	"github.com/curvy/server/utils"
)

// RoomsController owns the room registry and speaks the lobby protocol
// with every session. The registry mutex guards only create, lookup and
// delete; everything inside a room runs on that room's goroutine.
type RoomsController struct {
	mu       sync.Mutex
	rooms    map[string]*Room
	byClient map[string]*Room

	cfg    utils.GameConfig
	logger *zap.Logger
}

func NewRoomsController(cfg utils.GameConfig, logger *zap.Logger) *RoomsController {
	return &RoomsController{
		rooms:    make(map[string]*Room),
		byClient: make(map[string]*Room),
		cfg:      cfg,
		logger:   logger.Named("rooms"),
	}
}

// RoomCount reports the number of open rooms.
func (c *RoomsController) RoomCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.rooms)
}

// Attach registers the lobby handlers on a session. Handlers run on the
// session's read goroutine and hop onto the room goroutine for any room
// mutation.
func (c *RoomsController) Attach(client Client) {
	client.On("room:fetch", func(data json.RawMessage, ack server.Ack) {
		ack(c.listRooms(), nil)
	})
	client.On("room:create", func(data json.RawMessage, ack server.Ack) {
		c.handleCreate(client, data, ack)
	})
	client.On("room:join", func(data json.RawMessage, ack server.Ack) {
		c.handleJoin(client, data, ack)
	})
	client.On("room:leave", func(data json.RawMessage, ack server.Ack) {
		c.handleLeave(client, ack)
	})
	client.On("player:ready", func(data json.RawMessage, ack server.Ack) {
		c.handleReady(client, data, ack)
	})
	client.On("player:color", func(data json.RawMessage, ack server.Ack) {
		c.handleColor(client, data, ack)
	})
	client.On("player:name", func(data json.RawMessage, ack server.Ack) {
		c.handleName(client, data, ack)
	})
	client.On("room:config", func(data json.RawMessage, ack server.Ack) {
		c.handleConfig(client, data, ack)
	})
	client.On("room:start", func(data json.RawMessage, ack server.Ack) {
		c.handleStart(client, ack)
	})
	client.On("player:move", func(data json.RawMessage, ack server.Ack) {
		c.handleMove(client, data)
	})
	client.OnClose(func() {
		c.handleLeave(client, func(any, error) {})
	})
	c.logger.Debug("session attached", zap.String("session", client.ID()))
}

func (c *RoomsController) listRooms() []RoomSummary {
	c.mu.Lock()
	rooms := make([]*Room, 0, len(c.rooms))
	for _, room := range c.rooms {
		rooms = append(rooms, room)
	}
	c.mu.Unlock()

	summaries := make([]RoomSummary, 0, len(rooms))
	for _, room := range rooms {
		result := make(chan RoomSummary, 1)
		if !room.Do(func() { result <- room.Summary() }) {
			continue
		}
		select {
		case s := <-result:
			summaries = append(summaries, s)
		case <-room.done:
			// Closed while we waited; leave it out of the listing.
		}
	}
	return summaries
}

type createParams struct {
	Name string `json:"name"`
}

func (c *RoomsController) handleCreate(client Client, data json.RawMessage, ack server.Ack) {
	var params createParams
	if err := json.Unmarshal(data, &params); err != nil {
		ack(nil, ErrBadInput)
		return
	}
	name := DisplayName(params.Name)
	if name == "" {
		ack(nil, ErrBadInput)
		return
	}

	c.mu.Lock()
	key := NormalizeName(name)
	if _, exists := c.rooms[key]; exists {
		c.mu.Unlock()
		ack(nil, ErrNameTaken)
		return
	}
	room := NewRoom(name, c.cfg, c.logger, c.removeRoom)
	c.rooms[key] = room
	c.mu.Unlock()

	c.logger.Info("room created", zap.String("room", name))
	ack(room.Summary(), nil)
}

// removeRoom runs when a room closes itself; any client mapping into it
// is dropped.
func (c *RoomsController) removeRoom(room *Room) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.rooms, room.normalized)
	for id, r := range c.byClient {
		if r == room {
			delete(c.byClient, id)
		}
	}
}

type joinParams struct {
	Name       string `json:"name"`
	PlayerName string `json:"playerName"`
	Color      string `json:"color"`
}

func (c *RoomsController) handleJoin(client Client, data json.RawMessage, ack server.Ack) {
	var params joinParams
	if err := json.Unmarshal(data, &params); err != nil {
		ack(nil, ErrBadInput)
		return
	}

	c.mu.Lock()
	if _, already := c.byClient[client.ID()]; already {
		c.mu.Unlock()
		ack(nil, ErrBadInput)
		return
	}
	room, ok := c.rooms[NormalizeName(params.Name)]
	c.mu.Unlock()
	if !ok {
		ack(nil, ErrRoomNotFound)
		return
	}

	posted := room.Do(func() {
		state, err := room.Join(client, params.PlayerName, params.Color)
		if err != nil {
			ack(nil, err)
			return
		}
		c.mu.Lock()
		c.byClient[client.ID()] = room
		c.mu.Unlock()
		// A disconnect can race this closure: the Attach close hook then
		// ran before the seat existed and found nothing to undo. Hooks
		// registered after close run immediately, so this one still
		// unseats in that case.
		client.OnClose(func() {
			go c.handleLeave(client, func(any, error) {})
		})
		ack(state, nil)
	})
	if !posted {
		ack(nil, ErrRoomNotFound)
	}
}

func (c *RoomsController) handleLeave(client Client, ack server.Ack) {
	c.mu.Lock()
	room, ok := c.byClient[client.ID()]
	delete(c.byClient, client.ID())
	c.mu.Unlock()
	if !ok {
		ack(nil, ErrNotInRoom)
		return
	}

	posted := room.Do(func() {
		ack(nil, room.Leave(client.ID()))
	})
	if !posted {
		ack(true, nil)
	}
}

func (c *RoomsController) handleReady(client Client, data json.RawMessage, ack server.Ack) {
	var ready bool
	if err := json.Unmarshal(data, &ready); err != nil {
		ack(nil, ErrBadInput)
		return
	}
	c.inRoom(client, ack, func(room *Room) error {
		return room.SetReady(client.ID(), ready)
	})
}

type colorParams struct {
	Color string `json:"color"`
}

func (c *RoomsController) handleColor(client Client, data json.RawMessage, ack server.Ack) {
	var params colorParams
	if err := json.Unmarshal(data, &params); err != nil {
		ack(nil, ErrBadInput)
		return
	}
	c.inRoom(client, ack, func(room *Room) error {
		return room.SetColor(client.ID(), params.Color)
	})
}

type nameParams struct {
	Name string `json:"name"`
}

func (c *RoomsController) handleName(client Client, data json.RawMessage, ack server.Ack) {
	var params nameParams
	if err := json.Unmarshal(data, &params); err != nil {
		ack(nil, ErrBadInput)
		return
	}
	c.inRoom(client, ack, func(room *Room) error {
		return room.Rename(client.ID(), params.Name)
	})
}

type configParams struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

func (c *RoomsController) handleConfig(client Client, data json.RawMessage, ack server.Ack) {
	var params configParams
	if err := json.Unmarshal(data, &params); err != nil || params.Key == "" {
		ack(nil, ErrBadInput)
		return
	}
	c.inRoom(client, ack, func(room *Room) error {
		return room.Configure(client.ID(), params.Key, params.Value)
	})
}

func (c *RoomsController) handleStart(client Client, ack server.Ack) {
	c.inRoom(client, ack, func(room *Room) error {
		return room.StartGame(client.ID())
	})
}

type moveParams struct {
	Move int `json:"move"`
}

// handleMove is fire-and-forget: input is latest-wins, a lost one is
// replaced by the next within a tick.
func (c *RoomsController) handleMove(client Client, data json.RawMessage) {
	var params moveParams
	if err := json.Unmarshal(data, &params); err != nil {
		return
	}
	if params.Move < -1 || params.Move > 1 {
		return
	}

	c.mu.Lock()
	room, ok := c.byClient[client.ID()]
	c.mu.Unlock()
	if !ok {
		return
	}
	room.Do(func() {
		room.Steer(client.ID(), params.Move)
	})
}

// inRoom runs op against the caller's room on that room's goroutine,
// acking the result.
func (c *RoomsController) inRoom(client Client, ack server.Ack, op func(*Room) error) {
	c.mu.Lock()
	room, ok := c.byClient[client.ID()]
	c.mu.Unlock()
	if !ok {
		ack(nil, ErrNotInRoom)
		return
	}
	posted := room.Do(func() {
		if err := op(room); err != nil {
			ack(nil, err)
			return
		}
		ack(true, nil)
	})
	if !posted {
		ack(nil, ErrRoomClosed)
	}
}
