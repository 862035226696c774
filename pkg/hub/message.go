// Package hub fans websocket messages out to connected clients. Each client owns a
// buffered send channel and is the only writer on its connection.
package hub

import "github.com/teslashibe/go-tryon/pkg/protocol"

// Message is one outgoing websocket text frame holding encoded JSON.
type Message struct {
	Data []byte
}

// NewJSONMessage wraps pre-encoded JSON.
func NewJSONMessage(data []byte) Message {
	return Message{Data: data}
}

// Encode turns a protocol envelope into a text frame.
func Encode(msg *protocol.Message) (Message, error) {
	data, err := msg.Bytes()
	if err != nil {
		return Message{}, err
	}
	return NewJSONMessage(data), nil
}
