package viewport

import (
	"math"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl64"
)

// ProjectionConfig controls how detector depth becomes world depth.
type ProjectionConfig struct {
	// worldZ = DepthPlane - depth*DepthScale
	DepthPlane float64 `json:"depth_plane"`
	DepthScale float64 `json:"depth_scale"`

	// NDC depth of the second point that defines the view ray.
	ReferenceNDCDepth float64 `json:"reference_ndc_depth"`

	// Rays with |dir.z| below this (unit direction) are treated as parallel to the depth plane.
	ParallelEpsilon float64 `json:"parallel_epsilon"`
}

// DefaultProjectionConfig maps the detector's usual ±0.08 eye depth range to
// roughly ±0.4 world units around z=1.
func DefaultProjectionConfig() ProjectionConfig {
	return ProjectionConfig{
		DepthPlane:        1,
		DepthScale:        5,
		ReferenceNDCDepth: 0.5,
		ParallelEpsilon:   1e-9,
	}
}

// WorldDepth returns the world-space z plane for a detector depth.
func (p ProjectionConfig) WorldDepth(depth float64) float64 {
	return p.DepthPlane - depth*p.DepthScale
}

// Project maps a normalized position (x, y in [0,1], z detector depth) to world space:
// the view ray through (x, y) is intersected with the plane z = WorldDepth(depth), then
// offset is added. It returns false when the camera cannot project (surface not laid
// out yet) and never returns NaN.
func (c *Camera) Project(position, offset mgl64.Vec3, cfg ProjectionConfig) (mgl64.Vec3, bool) {
	if !c.Ready() {
		return mgl64.Vec3{}, false
	}

	ndcX := 2*position.X() - 1
	ndcY := -(2*position.Y() - 1)
	worldZ := cfg.WorldDepth(position.Z())

	origin := c.Unproject(mgl64.Vec3{ndcX, ndcY, -1})
	ref := c.Unproject(mgl64.Vec3{ndcX, ndcY, cfg.ReferenceNDCDepth})

	hit := mgl64.Vec3{ref.X(), ref.Y(), worldZ}
	if dir := ref.Sub(origin); dir.Len() > 0 {
		dir = dir.Normalize()
		if math.Abs(dir.Z()) >= cfg.ParallelEpsilon {
			// Planes behind the ray origin keep the fallback point.
			if t := (worldZ - origin.Z()) / dir.Z(); t >= 0 {
				hit = origin.Add(dir.Mul(t))
			}
		}
	}

	out := hit.Add(offset)
	if !finite(out) {
		return mgl64.Vec3{}, false
	}
	return out, true
}

func finite(v mgl64.Vec3) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// Projector projects with whichever camera is current at call time.
// The camera pointer is swapped atomically by the ResizeHandler.
type Projector struct {
	camera atomic.Pointer[Camera]
	cfg    ProjectionConfig
}

// NewProjector creates a projector with no camera; Project reports false until
// the first resize is observed.
func NewProjector(cfg ProjectionConfig) *Projector {
	return &Projector{cfg: cfg}
}

// Camera returns the current camera snapshot (nil before the first resize).
func (p *Projector) Camera() *Camera {
	return p.camera.Load()
}

// SetCamera publishes a new camera snapshot.
func (p *Projector) SetCamera(c *Camera) {
	p.camera.Store(c)
}

// Config returns the depth mapping.
func (p *Projector) Config() ProjectionConfig {
	return p.cfg
}

// Project projects with the current camera.
// Callers that project several points for one frame should load Camera once and use
// Camera.Project so every point sees the same snapshot.
func (p *Projector) Project(position, offset mgl64.Vec3) (mgl64.Vec3, bool) {
	return p.Camera().Project(position, offset, p.cfg)
}
