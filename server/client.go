package server

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/net/websocket"
)

// Client is one WebSocket session. Outbound events are coalesced into
// one frame per flush interval; ack responses and pings bypass the
// queue. Inbound frames are dispatched to registered handlers on the
// read goroutine.
type Client struct {
	id     string
	conn   *websocket.Conn
	logger *zap.Logger

	flushInterval time.Duration
	pingInterval  time.Duration
	sendTimeout   time.Duration

	mu        sync.Mutex
	queue     []Event
	handlers  map[string]Handler
	callbacks map[int]func(json.RawMessage, error)
	ackCount  int
	latency   time.Duration
	lastPing  time.Time
	closed    bool

	closeOnce sync.Once
	closeFns  []func()
	done      chan struct{}

	armOnce sync.Once
	pingArm chan struct{}
}

// NewClient wraps an accepted connection. Run must be called to start
// the session loops.
func NewClient(conn *websocket.Conn, logger *zap.Logger, flush, ping, sendTimeout time.Duration) *Client {
	id := uuid.NewString()[:8]
	c := &Client{
		id:            id,
		conn:          conn,
		logger:        logger.With(zap.String("session", id)),
		flushInterval: flush,
		pingInterval:  ping,
		sendTimeout:   sendTimeout,
		handlers:      make(map[string]Handler),
		callbacks:     make(map[int]func(json.RawMessage, error)),
		done:          make(chan struct{}),
		pingArm:       make(chan struct{}),
	}

	c.On("pong", c.handlePong)
	c.On("whoami", func(data json.RawMessage, ack Ack) {
		ack(c.id, nil)
	})

	return c
}

func (c *Client) ID() string { return c.id }

// Latency is half the last measured ping round trip.
func (c *Client) Latency() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latency
}

// On registers the handler for an event name, replacing any previous
// one.
func (c *Client) On(name string, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[name] = h
}

// Off removes the handler for an event name.
func (c *Client) Off(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.handlers, name)
}

// OnClose registers a hook run exactly once when the session ends. A
// hook registered after close runs immediately.
func (c *Client) OnClose(fn func()) {
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

// Send queues an event for the next flush.
func (c *Client) Send(name string, data any) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.queue = append(c.queue, Event{Name: name, Data: data})
	c.mu.Unlock()
}

// SendNow writes an event immediately in its own frame.
func (c *Client) SendNow(name string, data any) {
	c.write([]any{Event{Name: name, Data: data}})
}

// SendWithAck sends an event carrying an ack id; cb runs with the
// client's response payload when it arrives, or with ErrDisconnected
// if the session closes first.
func (c *Client) SendWithAck(name string, data any, cb func(json.RawMessage, error)) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.ackCount++
	id := c.ackCount
	c.callbacks[id] = cb
	c.queue = append(c.queue, Event{Name: name, Data: data, Ack: id})
	c.mu.Unlock()
}

// Run services the session until the connection drops: a flush loop, a
// ping loop, and the blocking read loop.
func (c *Client) Run() {
	go c.flushLoop()
	go c.pingLoop()
	c.readLoop()
	c.Close()
}

// Close tears the session down: pending ack callbacks complete with
// ErrDisconnected and close hooks run exactly once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		callbacks := c.callbacks
		c.callbacks = nil
		fns := c.closeFns
		c.closeFns = nil
		c.queue = nil
		c.mu.Unlock()

		close(c.done)
		_ = c.conn.Close()

		for _, cb := range callbacks {
			cb(nil, ErrDisconnected)
		}
		for _, fn := range fns {
			fn()
		}
		c.logger.Debug("session closed")
	})
}

func (c *Client) flushLoop() {
	ticker := time.NewTicker(c.flushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.flush()
		case <-c.done:
			return
		}
	}
}

func (c *Client) flush() {
	c.mu.Lock()
	if len(c.queue) == 0 || c.closed {
		c.mu.Unlock()
		return
	}
	queue := c.queue
	c.queue = nil
	c.mu.Unlock()

	frame := make([]any, len(queue))
	for i, e := range queue {
		frame[i] = e
	}
	c.write(frame)
}

func (c *Client) pingLoop() {
	// The session stays silent until the client's first frame.
	select {
	case <-c.pingArm:
	case <-c.done:
		return
	}

	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			c.lastPing = time.Now()
			stamp := c.lastPing.UnixMilli()
			c.mu.Unlock()
			c.write([]any{Event{Name: "ping", Data: stamp}})
		case <-c.done:
			return
		}
	}
}

func (c *Client) handlePong(data json.RawMessage, ack Ack) {
	var stamp int64
	if err := json.Unmarshal(data, &stamp); err != nil {
		return
	}
	latency := time.Duration(time.Now().UnixMilli()-stamp) * time.Millisecond / 2
	c.mu.Lock()
	c.latency = latency
	c.mu.Unlock()
	c.Send("latency", latency.Milliseconds())
}

func (c *Client) readLoop() {
	for {
		var raw []byte
		if err := websocket.Message.Receive(c.conn, &raw); err != nil {
			c.logger.Debug("read loop ended", zap.Error(err))
			return
		}
		c.armOnce.Do(func() { close(c.pingArm) })
		messages, err := DecodeFrame(raw)
		if err != nil {
			c.logger.Warn("bad frame", zap.Error(err))
			continue
		}
		for _, msg := range messages {
			c.dispatch(msg)
		}
	}
}

func (c *Client) dispatch(msg Message) {
	if msg.IsAck {
		c.mu.Lock()
		cb := c.callbacks[msg.AckID]
		delete(c.callbacks, msg.AckID)
		c.mu.Unlock()
		if cb != nil {
			cb(msg.Data, nil)
		}
		return
	}

	c.mu.Lock()
	h := c.handlers[msg.Name]
	c.mu.Unlock()

	ack := Ack(func(any, error) {})
	if msg.AckID > 0 {
		id := msg.AckID
		ack = func(result any, err error) {
			if err != nil {
				c.write([]any{ackReply{id: id, errStr: errCode(err)}})
				return
			}
			c.write([]any{ackReply{id: id, result: result}})
		}
	}

	if h == nil {
		c.logger.Debug("unhandled event", zap.String("event", msg.Name))
		ack(nil, errUnknownEvent)
		return
	}
	h(msg.Data, ack)
}

// write serializes and sends one frame with the send deadline applied.
// A write failure closes the session.
func (c *Client) write(frame []any) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	payload, err := json.Marshal(frame)
	if err != nil {
		c.logger.Error("encode frame", zap.Error(err))
		return
	}

	_ = c.conn.SetWriteDeadline(time.Now().Add(c.sendTimeout))
	if err := websocket.Message.Send(c.conn, string(payload)); err != nil {
		c.logger.Debug("write failed", zap.Error(err))
		c.Close()
	}
}

type unknownEventError struct{}

func (unknownEventError) Error() string { return "bad_input" }
func (unknownEventError) Code() string  { return "bad_input" }

var errUnknownEvent error = unknownEventError{}

type disconnectedError struct{}

func (disconnectedError) Error() string { return "disconnected" }
func (disconnectedError) Code() string  { return "disconnected" }

// ErrDisconnected completes a pending ack whose session closed before
// the client answered.
var ErrDisconnected error = disconnectedError{}
