package detection

import (
	"context"

	"github.com/teslashibe/go-tryon/internal/log"
	"github.com/teslashibe/go-tryon/pkg/camera"
	"github.com/teslashibe/go-tryon/pkg/landmark"
)

// ManagedSource captures with the manager's current configuration and reopens the
// device whenever that configuration changes.
type ManagedSource struct {
	manager  *camera.Manager
	pipeline *Pipeline
	changed  chan struct{}
}

// NewManagedSource takes over manager.OnConfigChange.
func NewManagedSource(manager *camera.Manager, pipeline *Pipeline) *ManagedSource {
	m := &ManagedSource{
		manager:  manager,
		pipeline: pipeline,
		changed:  make(chan struct{}, 1),
	}
	manager.OnConfigChange = func(camera.Config) error {
		select {
		case m.changed <- struct{}{}:
		default:
		}
		return nil
	}
	return m
}

// Run implements tracking.Source.
func (m *ManagedSource) Run(ctx context.Context, publish func(landmark.Frame)) error {
	for {
		runCtx, cancel := context.WithCancel(ctx)
		errCh := make(chan error, 1)
		cfg := m.manager.Config()
		go func() {
			errCh <- NewCameraSource(cfg, m.pipeline).Run(runCtx, publish)
		}()

		select {
		case err := <-errCh:
			cancel()
			return err
		case <-m.changed:
			cancel()
			if err := <-errCh; err != nil {
				log.Warn("camera stopped with error during reconfigure", "error", err)
			}
			log.Info("camera reconfigured", "device", m.manager.Config().Device)
		}
	}
}
