package detection

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-tryon/pkg/camera"
	"github.com/teslashibe/go-tryon/pkg/landmark"
)

func TestManagedSource_InvalidConfig(t *testing.T) {
	cfg := camera.DefaultConfig()
	cfg.Width = 1
	manager := camera.NewManager(cfg)
	src := NewManagedSource(manager, NewPipeline(nil, nil))

	err := src.Run(context.Background(), func(landmark.Frame) {})
	assert.ErrorIs(t, err, camera.ErrInvalidConfig)
}

func TestManagedSource_ConfigChangeSignalsRestart(t *testing.T) {
	manager := camera.NewManager(camera.DefaultConfig())
	src := NewManagedSource(manager, NewPipeline(nil, nil))

	require.NoError(t, manager.Update([]byte(`{"width":1280,"height":720}`)))
	require.NoError(t, manager.Update([]byte(`{"framerate":15}`)))
	assert.Len(t, src.changed, 1, "pending restarts coalesce")
}
