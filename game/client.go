package game

import (
	"time"

	"github.com/curvy/server/server"
)

// Client is the session surface the game layer needs. *server.Client
// implements it; tests substitute a recorder.
type Client interface {
	ID() string
	Send(name string, data any)
	SendNow(name string, data any)
	On(name string, h server.Handler)
	Off(name string)
	OnClose(fn func())
	Close()
	Latency() time.Duration
}

// Group fans an event out to a set of sessions. Events go through each
// session's queue, so delivery stays batched per client.
type Group struct {
	clients *Collection[string, Client]
}

func NewGroup() *Group {
	return &Group{clients: NewCollection[string](Client.ID)}
}

func (g *Group) Add(c Client) bool    { return g.clients.Add(c) }
func (g *Group) Remove(c Client) bool { return g.clients.Remove(c) }
func (g *Group) Count() int           { return g.clients.Count() }

func (g *Group) Clients() []Client { return g.clients.Items() }

// Send queues the event on every member.
func (g *Group) Send(name string, data any) {
	for _, c := range g.clients.Items() {
		c.Send(name, data)
	}
}

// SendExcept queues the event on every member but one.
func (g *Group) SendExcept(exclude string, name string, data any) {
	for _, c := range g.clients.Items() {
		if c.ID() != exclude {
			c.Send(name, data)
		}
	}
}
