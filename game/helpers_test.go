package game

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/curvy/server/server"
)

// fakeClient records outbound events and lets tests invoke the handlers
// a controller registered on it.
type fakeClient struct {
	mu       sync.Mutex
	id       string
	events   []recordedEvent
	handlers map[string]server.Handler
	closeFns []func()
	closed   bool
}

type recordedEvent struct {
	name string
	data any
}

func newFakeClient(id string) *fakeClient {
	return &fakeClient{id: id, handlers: make(map[string]server.Handler)}
}

func (c *fakeClient) ID() string { return c.id }

func (c *fakeClient) Send(name string, data any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, recordedEvent{name: name, data: data})
}

func (c *fakeClient) SendNow(name string, data any) { c.Send(name, data) }

func (c *fakeClient) On(name string, h server.Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[name] = h
}

func (c *fakeClient) Off(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.handlers, name)
}

func (c *fakeClient) OnClose(fn func()) {
	c.mu.Lock()
	closed := c.closed
	if !closed {
		c.closeFns = append(c.closeFns, fn)
	}
	c.mu.Unlock()
	if closed {
		fn()
	}
}

func (c *fakeClient) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	fns := c.closeFns
	c.closeFns = nil
	c.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (c *fakeClient) Latency() time.Duration { return 0 }

// emit invokes the handler registered for name and waits for its ack.
func (c *fakeClient) emit(name string, data any) (any, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	h := c.handlers[name]
	c.mu.Unlock()
	if h == nil {
		return nil, errors.New("no handler for " + name)
	}

	type reply struct {
		result any
		err    error
	}
	ch := make(chan reply, 1)
	h(raw, func(result any, err error) {
		ch <- reply{result: result, err: err}
	})
	select {
	case r := <-ch:
		return r.result, r.err
	case <-time.After(2 * time.Second):
		return nil, errors.New("ack timed out")
	}
}

// fire invokes the handler for name without waiting for an ack.
func (c *fakeClient) fire(name string, data any) {
	raw, _ := json.Marshal(data)
	c.mu.Lock()
	h := c.handlers[name]
	c.mu.Unlock()
	if h != nil {
		h(raw, func(any, error) {})
	}
}

func (c *fakeClient) eventNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, len(c.events))
	for i, e := range c.events {
		names[i] = e.name
	}
	return names
}

func (c *fakeClient) lastEvent(name string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.events) - 1; i >= 0; i-- {
		if c.events[i].name == name {
			return c.events[i].data, true
		}
	}
	return nil, false
}

func (c *fakeClient) clearEvents() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
}

func newTestPlayer(id, name string) *Player {
	return NewPlayer(newFakeClient(id), name, "#aabbcc")
}

// newTestGame builds a seeded match with bonuses disabled, so collision
// and scoring tests are free of random pickups.
func newTestGame(t *testing.T, names ...string) (*Game, []*Player) {
	t.Helper()
	players := make([]*Player, len(names))
	for i, name := range names {
		players[i] = newTestPlayer(fmt.Sprintf("p%d", i+1), name)
	}
	config := NewRoomConfig()
	for _, kind := range BonusKinds {
		config.bonuses[kind.Name] = false
	}
	return NewGame("arena", players, config, 100, 42, NopObserver{}, zap.NewNop()), players
}

func stepTicks(g *Game, n int) {
	for i := 0; i < n; i++ {
		g.step()
	}
}

// roomDo posts fn to the room goroutine and waits for it.
func roomDo(t *testing.T, r *Room, fn func()) {
	t.Helper()
	done := make(chan struct{})
	require.True(t, r.Do(func() {
		fn()
		close(done)
	}))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("room operation timed out")
	}
}
