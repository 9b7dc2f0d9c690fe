// Package ws implements the two websocket channels of the session layer: the
// lobby channel (authenticated, pre-game) and the game channel (anonymous
// reads allowed, all mutations identity-gated). Message framing is a typed
// envelope with a free-form payload.
package ws

import "encoding/json"

// Envelope is the wire frame for every inbound message.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// message builds an outbound {type, payload} frame. A nil payload omits the
// field entirely.
func message(msgType string, payload interface{}) map[string]interface{} {
	m := map[string]interface{}{"type": msgType}
	if payload != nil {
		m["payload"] = payload
	}
	return m
}

// statusError builds the {type, payload: {status}} error frame the karaoke
// namespaces use instead of the flat {type, message} shape.
func statusError(msgType, status string) map[string]interface{} {
	return message(msgType, map[string]interface{}{"status": status})
}
