package server

import (
	"encoding/json"
	"errors"
	"fmt"
)

// The wire protocol is a JSON array of events per frame, even for a
// single event. An event is [name, data] or [name, data, ackId]; an ack
// response is [ackId, [errorOrNull, resultOrNull]]. Ack ids are positive
// and monotonic per sender.

// Event is one outbound protocol event.
type Event struct {
	Name string
	Data any
	Ack  int
}

func (e Event) MarshalJSON() ([]byte, error) {
	if e.Ack > 0 {
		return json.Marshal([]any{e.Name, e.Data, e.Ack})
	}
	return json.Marshal([]any{e.Name, e.Data})
}

// ackReply is the response to a client-initiated ack.
type ackReply struct {
	id     int
	errStr any
	result any
}

func (r ackReply) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{r.id, []any{r.errStr, r.result}})
}

// Message is one decoded inbound frame element: either a named event,
// optionally carrying an ack id, or the client's reply to a server ack.
type Message struct {
	Name  string
	Data  json.RawMessage
	AckID int
	IsAck bool
}

// DecodeFrame parses an inbound frame into its messages.
func DecodeFrame(raw []byte) ([]Message, error) {
	var frame []json.RawMessage
	if err := json.Unmarshal(raw, &frame); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	messages := make([]Message, 0, len(frame))
	for _, item := range frame {
		var parts []json.RawMessage
		if err := json.Unmarshal(item, &parts); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		if len(parts) == 0 {
			return nil, fmt.Errorf("decode event: empty tuple")
		}

		var msg Message
		if err := json.Unmarshal(parts[0], &msg.Name); err == nil {
			if len(parts) > 1 {
				msg.Data = parts[1]
			}
			if len(parts) > 2 {
				if err := json.Unmarshal(parts[2], &msg.AckID); err != nil {
					return nil, fmt.Errorf("decode ack id: %w", err)
				}
			}
			messages = append(messages, msg)
			continue
		}

		// First element is a number: the client is answering an ack.
		if err := json.Unmarshal(parts[0], &msg.AckID); err != nil {
			return nil, fmt.Errorf("decode event name: %w", err)
		}
		msg.IsAck = true
		if len(parts) > 1 {
			msg.Data = parts[1]
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// Ack completes a client request. A nil error acks with the result; a
// non-nil error acks with its short code and a null result.
type Ack func(result any, err error)

// Handler processes one inbound event. The ack is never nil; for events
// sent without an ack id it is a no-op.
type Handler func(data json.RawMessage, ack Ack)

// coder is implemented by protocol errors carrying a short string code.
type coder interface{ Code() string }

func errCode(err error) string {
	var c coder
	if errors.As(err, &c) {
		return c.Code()
	}
	return "internal"
}
