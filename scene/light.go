package scene

import (
	"math/rand"

	"github.com/achilleasa/bihtrace/geom"
	"github.com/achilleasa/bihtrace/types"
	"github.com/chewxy/math32"
)

type LightType uint8

const (
	PointLight LightType = iota
	SphereLight
	DirectionalLight
)

// A scene light.
type Light struct {
	Type LightType

	// Light color.
	Color types.Color

	// Light position (point and sphere lights).
	Center types.Vec3

	// Unit vector pointing towards the light (directional lights).
	Dir types.Vec3

	// Sphere light radius.
	Radius float32

	// Distance scaling for the inverse square falloff. Zero disables falloff.
	Falloff float32

	// Scene bounds used to place directional light sources.
	bounds types.BBox
}

// Create a point light.
func NewPointLight(color types.Color, center types.Vec3, falloff float32) *Light {
	return &Light{Type: PointLight, Color: color, Center: center, Falloff: falloff}
}

// Create a spherical light that casts soft shadows.
func NewSphereLight(color types.Color, center types.Vec3, radius, falloff float32) *Light {
	return &Light{Type: SphereLight, Color: color, Center: center, Radius: radius, Falloff: falloff}
}

// Create a light infinitely far away along dir.
func NewDirectionalLight(color types.Color, dir types.Vec3) *Light {
	return &Light{Type: DirectionalLight, Color: color, Dir: dir.Normalize()}
}

// Set the scene bounds. Directional lights place their sources outside them.
func (l *Light) SetSceneBounds(b types.BBox) {
	l.bounds = b
}

// Light intensity at the given distance.
func (l *Light) Intensity(dist float32) types.Color {
	d := dist * l.Falloff
	return l.Color.Mul(1.0 / (d*d + 1.0))
}

// Populate out with up to n rays from origin towards the light and return
// the number of rays generated. Point and directional lights always
// generate a single ray since every sample would follow the same path.
func (l *Light) FindRays(out []geom.Ray, origin types.Vec3, n int, rng *rand.Rand) int {
	if n > len(out) {
		n = len(out)
	}
	if n < 1 {
		return 0
	}

	switch l.Type {
	case DirectionalLight:
		dist := l.bounds.Side().Len() + l.bounds.Center().Sub(origin).Len() + 1
		out[0] = geom.NewRayTo(origin, origin.Add(l.Dir.Mul(dist)))
		return 1
	case SphereLight:
		if n == 1 || l.Radius == 0 || rng == nil {
			out[0] = geom.NewRayTo(origin, l.Center)
			return 1
		}

		for i := 0; i < n; i++ {
			a := rng.Float32() * 2 * math32.Pi
			b := rng.Float32() * math32.Pi
			r := rng.Float32() * l.Radius
			sinB := math32.Sin(b)
			offset := types.XYZ(r*math32.Cos(a)*sinB, r*math32.Sin(a)*sinB, r*math32.Cos(b))
			out[i] = geom.NewRayTo(origin, l.Center.Add(offset))
		}
		return n
	default:
		out[0] = geom.NewRayTo(origin, l.Center)
		return 1
	}
}
