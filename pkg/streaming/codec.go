package streaming

import (
	"encoding/json"
	"fmt"
)

// ErrUnknownType is returned by Decode for an envelope type it cannot map.
var ErrUnknownType = fmt.Errorf("unknown message type")

// Decode turns an input envelope into its typed message.
func Decode(env Envelope) (Message, error) {
	var (
		msg Message
		err error
	)
	switch env.Type {
	case TypeHeader:
		var m Header
		err = unmarshalPayload(env.Payload, &m)
		msg = m
	case TypeClassTable:
		var m ClassTable
		err = unmarshalPayload(env.Payload, &m)
		msg = m
	case TypeStringEntry:
		var m StringEntry
		err = unmarshalPayload(env.Payload, &m)
		msg = m
	case TypeEntityUpdate:
		var m EntityUpdate
		err = unmarshalPayload(env.Payload, &m)
		if err == nil && m.Kind == "" {
			m.Kind = UpdateUpdate
		}
		msg = m
	case TypeGameEvent:
		var m GameEventMessage
		err = unmarshalPayload(env.Payload, &m)
		msg = m
	case TypePacketBoundary:
		var m PacketBoundary
		err = unmarshalPayload(env.Payload, &m)
		msg = m
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("error decoding %s payload: %w", env.Type, err)
	}
	return msg, nil
}

// Encode wraps a message into an envelope.
func Encode(msg Message) (Envelope, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return Envelope{}, fmt.Errorf("error encoding %s payload: %w", msg.MessageType(), err)
	}
	return Envelope{Type: msg.MessageType(), Payload: payload}, nil
}

func unmarshalPayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return fmt.Errorf("empty payload")
	}
	return json.Unmarshal(raw, v)
}
