package scene

import (
	"errors"

	"github.com/jasmouth/nimbus/types"
)

var (
	ErrCameraNotDefined = errors.New("scene: no camera defined")
	ErrFrozen           = errors.New("scene: cannot modify a frozen scene")
)

// Scene owns every primitive, light and medium to be rendered. Once
// frozen it is immutable and safe for unsynchronized concurrent reads
// from render workers.
type Scene struct {
	Camera     *Camera
	Background types.Vec3

	prims  []Primitive
	lights []Light
	media  int
	frozen bool
}

// New creates an empty scene.
func New() *Scene {
	return &Scene{}
}

// Add appends primitives to the scene in deterministic insertion
// order.
func (s *Scene) Add(prims ...Primitive) error {
	if s.frozen {
		return ErrFrozen
	}
	s.prims = append(s.prims, prims...)
	return nil
}

// Freeze validates the scene, indexes emissive primitives and marks
// the scene immutable.
func (s *Scene) Freeze() error {
	if s.frozen {
		return nil
	}
	if s.Camera == nil {
		return ErrCameraNotDefined
	}

	s.lights = s.lights[:0]
	s.media = 0
	for _, prim := range s.prims {
		if _, ok := prim.(*VolumeRegion); ok {
			s.media++
			continue
		}
		light, ok := prim.(Light)
		if !ok {
			continue
		}
		if _, emits := prim.Material().(Emitter); emits {
			s.lights = append(s.lights, light)
		}
	}

	s.frozen = true
	return nil
}

// Primitives returns the scene primitive list in insertion order.
func (s *Scene) Primitives() []Primitive {
	return s.prims
}

// Lights returns the sampled light list built by Freeze.
func (s *Scene) Lights() []Light {
	return s.lights
}

// HasMedia reports whether the scene contains participating media.
// Shadow queries need the slower transmittance walk when it does.
func (s *Scene) HasMedia() bool {
	return s.media > 0
}
