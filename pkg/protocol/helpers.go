package protocol

import (
	"errors"
	"fmt"
	"time"

	"github.com/teslashibe/go-tryon/pkg/anchor"
	"github.com/teslashibe/go-tryon/pkg/catalog"
	"github.com/teslashibe/go-tryon/pkg/landmark"
)

// NewLandmarksMessage creates a landmarks message; a nil frame reports no face
func NewLandmarksMessage(frame landmark.Frame, frameID uint64) (*Message, error) {
	lms := []landmark.Landmark(frame)
	if lms == nil {
		lms = []landmark.Landmark{}
	}
	return NewMessage(TypeLandmarks, LandmarksData{
		FrameID:   frameID,
		Landmarks: lms,
	})
}

// NewViewportMessage creates a viewport resize message
func NewViewportMessage(width, height, dpr float64) (*Message, error) {
	return NewMessage(TypeViewport, ViewportData{
		Width:  width,
		Height: height,
		DPR:    dpr,
	})
}

// NewSelectMessage creates an asset selection message
func NewSelectMessage(model, variant string) (*Message, error) {
	return NewMessage(TypeSelect, SelectData{
		Model:   model,
		Variant: variant,
	})
}

// NewTransformMessage creates a transform message for asset
func NewTransformMessage(t anchor.Transform, asset catalog.Asset) (*Message, error) {
	return NewMessage(TypeTransform, TransformData{
		Transform: t,
		Asset:     asset.ID(),
	})
}

// NewAssetMessage creates an asset changed message
func NewAssetMessage(asset catalog.Asset) (*Message, error) {
	return NewMessage(TypeAsset, AssetData{Asset: asset})
}

// NewErrorMessage creates an error message
func NewErrorMessage(err error) (*Message, error) {
	return NewMessage(TypeError, ErrorData{Message: err.Error()})
}

// NewPingMessage creates a ping message
func NewPingMessage(id string) (*Message, error) {
	return NewMessage(TypePing, PingData{
		ID:        id,
		Timestamp: time.Now().UnixMilli(),
	})
}

// NewPongMessage creates a pong response message
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

// ErrWrongType is returned when a payload accessor does not match the message type.
var ErrWrongType = errors.New("protocol: wrong message type")

func decode[T any](m *Message, want MessageType) (*T, error) {
	if m.Type != want {
		return nil, fmt.Errorf("%w: have %q, want %q", ErrWrongType, m.Type, want)
	}
	var data T
	if err := m.ParseData(&data); err != nil {
		return nil, fmt.Errorf("protocol: %s payload: %w", want, err)
	}
	return &data, nil
}

// GetLandmarksData decodes a landmarks payload.
func (m *Message) GetLandmarksData() (*LandmarksData, error) {
	return decode[LandmarksData](m, TypeLandmarks)
}

// GetViewportData decodes a viewport payload. A missing device pixel ratio reads as 1.
func (m *Message) GetViewportData() (*ViewportData, error) {
	data, err := decode[ViewportData](m, TypeViewport)
	if err == nil && data.DPR == 0 {
		data.DPR = 1
	}
	return data, err
}

func (m *Message) GetSelectData() (*SelectData, error) {
	return decode[SelectData](m, TypeSelect)
}

func (m *Message) GetTransformData() (*TransformData, error) {
	return decode[TransformData](m, TypeTransform)
}

func (m *Message) GetAssetData() (*AssetData, error) {
	return decode[AssetData](m, TypeAsset)
}

func (m *Message) GetErrorData() (*ErrorData, error) {
	return decode[ErrorData](m, TypeError)
}

func (m *Message) GetPingData() (*PingData, error) {
	return decode[PingData](m, TypePing)
}

func (m *Message) GetPongData() (*PongData, error) {
	return decode[PongData](m, TypePong)
}
