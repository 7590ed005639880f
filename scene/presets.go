package scene

import (
	"fmt"
	"sort"

	"github.com/jasmouth/nimbus/types"
)

// Preset builds one of the built-in scenes by name. The returned
// scene is not yet frozen; the caller configures the projection and
// freezes it before rendering.
func Preset(name string) (*Scene, error) {
	builder, exists := presets[name]
	if !exists {
		return nil, fmt.Errorf("scene: unknown preset %q", name)
	}
	return builder()
}

// PresetNames returns the sorted list of built-in scene names.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var presets = map[string]func() (*Scene, error){
	"sphere":        spherePreset,
	"cornell-smoke": cornellSmokePreset,
	"mist":          mistPreset,
}

// spherePreset is a single diffuse sphere on a ground plane lit by a
// spherical light.
func spherePreset() (*Scene, error) {
	sc := New()
	sc.Background = types.XYZ(0.05, 0.07, 0.1)

	sc.Camera = NewCamera(45)
	sc.Camera.Position = types.XYZ(0, 1.5, 4)
	sc.Camera.LookAt = types.XYZ(0, 0.5, 0)

	err := sc.Add(
		&Sphere{
			Center: types.XYZ(0, -1000, 0),
			Radius: 1000,
			Mat: &Lambert{Albedo: CheckerTexture{
				Odd:   ConstantTexture{Color: types.XYZ(0.2, 0.3, 0.1)},
				Even:  ConstantTexture{Color: types.XYZ(0.9, 0.9, 0.9)},
				Scale: 0.8,
			}},
		},
		&Sphere{
			Center: types.XYZ(0, 1, 0),
			Radius: 1,
			Mat:    &Lambert{Albedo: ConstantTexture{Color: types.XYZ(0.7, 0.3, 0.25)}},
		},
		&Sphere{
			Center: types.XYZ(-2, 1, 1),
			Radius: 1,
			Mat:    &Metal{Albedo: ConstantTexture{Color: types.XYZ(0.8, 0.85, 0.9)}, Fuzz: 0.05},
		},
		&Sphere{
			Center: types.XYZ(2, 1, 1),
			Radius: 1,
			Mat:    &Dielectric{RefractiveIndex: 1.5},
		},
		&Sphere{
			Center: types.XYZ(3, 6, 2),
			Radius: 1.5,
			Mat:    &DiffuseLight{Emission: ConstantTexture{Color: types.XYZ(18, 17, 15)}},
		},
	)
	return sc, err
}

// cornellSmokePreset is the classic Cornell box with the two interior
// boxes replaced by participating media: one a constant white fog, the
// other a dense turbulent smoke.
func cornellSmokePreset() (*Scene, error) {
	sc := New()

	sc.Camera = NewCamera(40)
	sc.Camera.Position = types.XYZ(278, 278, -800)
	sc.Camera.LookAt = types.XYZ(278, 278, 0)

	white := &Lambert{Albedo: ConstantTexture{Color: types.XYZ(0.73, 0.73, 0.73)}}
	green := &Lambert{Albedo: ConstantTexture{Color: types.XYZ(0.12, 0.45, 0.15)}}
	red := &Lambert{Albedo: ConstantTexture{Color: types.XYZ(0.65, 0.05, 0.05)}}
	light := &DiffuseLight{Emission: ConstantTexture{Color: types.XYZ(7, 7, 7)}}

	fogBoundary := &Translate{
		Prim:   NewRotateY(NewBox(types.Vec3{}, types.XYZ(165, 165, 165), nil), -18),
		Offset: types.XYZ(130, 0, 65),
	}
	smokeBoundary := &Translate{
		Prim:   NewRotateY(NewBox(types.Vec3{}, types.XYZ(165, 330, 165), nil), 15),
		Offset: types.XYZ(265, 0, 295),
	}

	err := sc.Add(
		&FlipNormals{Prim: &RectYZ{Y0: 0, Y1: 555, Z0: 0, Z1: 555, K: 555, Mat: green}},
		&RectYZ{Y0: 0, Y1: 555, Z0: 0, Z1: 555, K: 0, Mat: red},
		&FlipNormals{Prim: &RectXZ{X0: 113, X1: 443, Z0: 127, Z1: 432, K: 554, Mat: light}},
		&FlipNormals{Prim: &RectXZ{X0: 0, X1: 555, Z0: 0, Z1: 555, K: 555, Mat: white}},
		&RectXZ{X0: 0, X1: 555, Z0: 0, Z1: 555, K: 0, Mat: white},
		&FlipNormals{Prim: &RectXY{X0: 0, X1: 555, Y0: 0, Y1: 555, K: 555, Mat: white}},
		&VolumeRegion{
			Boundary: fogBoundary,
			Med: &Medium{
				Density: UniformDensity{Value: 1},
				SigmaT:  0.01,
				Albedo:  types.XYZ(1, 1, 1),
				Phase:   IsotropicPhase{},
			},
		},
		&VolumeRegion{
			Boundary: smokeBoundary,
			Med: &Medium{
				Density: TurbulenceDensity{Noise: NewPerlin(7), Max: 1, Scale: 0.05},
				SigmaT:  0.02,
				Albedo:  types.XYZ(0.1, 0.1, 0.1),
				Phase:   IsotropicPhase{},
			},
		},
	)
	return sc, err
}

// mistPreset is a loose cluster of spheres sunk in turbulent,
// forward-scattering ground fog.
func mistPreset() (*Scene, error) {
	sc := New()
	sc.Background = types.XYZ(0.4, 0.55, 0.7)

	sc.Camera = NewCamera(50)
	sc.Camera.Position = types.XYZ(0, 3, 12)
	sc.Camera.LookAt = types.XYZ(0, 1, 0)

	err := sc.Add(
		&Sphere{
			Center: types.XYZ(0, -1000, 0),
			Radius: 1000,
			Mat:    &Lambert{Albedo: ConstantTexture{Color: types.XYZ(0.35, 0.4, 0.3)}},
		},
		&Sphere{
			Center: types.XYZ(-3, 1, -1),
			Radius: 1,
			Mat:    &Lambert{Albedo: ConstantTexture{Color: types.XYZ(0.6, 0.2, 0.2)}},
		},
		&Sphere{
			Center: types.XYZ(0, 1.5, -3),
			Radius: 1.5,
			Mat:    &Lambert{Albedo: NoiseTexture{Noise: NewPerlin(3), Scale: 2}},
		},
		&Sphere{
			Center: types.XYZ(3, 1, 0),
			Radius: 1,
			Mat:    &Metal{Albedo: ConstantTexture{Color: types.XYZ(0.7, 0.7, 0.75)}, Fuzz: 0.1},
		},
		&Sphere{
			Center: types.XYZ(-5, 9, 5),
			Radius: 2,
			Mat:    &DiffuseLight{Emission: ConstantTexture{Color: types.XYZ(14, 13, 12)}},
		},
		// Fog layer hugging the ground across the whole cluster.
		&VolumeRegion{
			Boundary: NewBox(types.XYZ(-12, 0, -12), types.XYZ(12, 3, 12), nil),
			Med: &Medium{
				Density: TurbulenceDensity{Noise: NewPerlin(11), Max: 1, Scale: 0.35},
				SigmaT:  0.25,
				Albedo:  types.XYZ(0.85, 0.85, 0.9),
				Phase:   HenyeyGreenstein{G: 0.4},
			},
		},
	)
	return sc, err
}
