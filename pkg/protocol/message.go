// Package protocol defines the WebSocket message types exchanged between detectors,
// the try-on service and renderers.
package protocol

import (
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/teslashibe/go-tryon/pkg/anchor"
	"github.com/teslashibe/go-tryon/pkg/catalog"
	"github.com/teslashibe/go-tryon/pkg/landmark"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Detector → Service messages
	TypeLandmarks MessageType = "landmarks" // One processed video frame
	TypeViewport  MessageType = "viewport"  // Rendering surface resized
	TypeSelect    MessageType = "select"    // Asset selection

	// Service → Renderer messages
	TypeTransform MessageType = "transform" // Per-frame eyewear transform
	TypeAsset     MessageType = "asset"     // Selected asset changed
	TypeError     MessageType = "error"     // Rejected message

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType         `json:"type"`
	Timestamp int64               `json:"ts,omitempty"` // Unix milliseconds
	Data      jsoniter.RawMessage `json:"data,omitempty"`
}

// NewMessage stamps data with the current time. A nil data leaves the payload empty.
func NewMessage(msgType MessageType, data interface{}) (*Message, error) {
	msg := &Message{Type: msgType, Timestamp: time.Now().UnixMilli()}
	if data == nil {
		return msg, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("protocol: encode %s payload: %w", msgType, err)
	}
	msg.Data = raw
	return msg, nil
}

// ParseData decodes the payload into v. An empty payload leaves v untouched.
func (m *Message) ParseData(v interface{}) error {
	if len(m.Data) == 0 {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes encodes the whole envelope.
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// Time returns the message timestamp.
func (m *Message) Time() time.Time {
	return time.UnixMilli(m.Timestamp)
}

// ParseMessage decodes an envelope. The payload is decoded lazily by the Get*Data
// accessors.
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("protocol: parse message: %w", err)
	}
	if msg.Type == "" {
		return nil, errors.New("protocol: parse message: missing type")
	}
	return &msg, nil
}

// Detector to service payloads.

// LandmarksData carries the detector output for one frame.
// An empty Landmarks list means no face was found.
type LandmarksData struct {
	FrameID   uint64              `json:"frame_id,omitempty"`
	Landmarks []landmark.Landmark `json:"landmarks"`
}

// Frame returns the landmarks as a frame.
func (d *LandmarksData) Frame() landmark.Frame {
	return landmark.Frame(d.Landmarks)
}

// ViewportData reports the rendering surface's content-box size in CSS pixels.
type ViewportData struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	DPR    float64 `json:"dpr,omitempty"` // Device pixel ratio, default 1
}

// SelectData selects an asset. An empty variant picks the model's first variant.
type SelectData struct {
	Model   string `json:"model"`
	Variant string `json:"variant,omitempty"`
}

// Selection converts to a catalog selection.
func (d *SelectData) Selection() catalog.Selection {
	return catalog.Selection{Model: d.Model, Variant: d.Variant}
}

// Service to renderer payloads.

// TransformData is the transform for one rendered frame.
type TransformData struct {
	anchor.Transform
	Asset string `json:"asset"` // "Model/Variant"
}

// AssetData announces the selected asset so renderers can load its model file.
type AssetData struct {
	catalog.Asset
}

// ErrorData reports a rejected message back to its sender.
type ErrorData struct {
	Message string `json:"message"`
}

// PingData contains ping information
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains pong response
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
