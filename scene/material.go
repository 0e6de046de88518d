package scene

import (
	"math/rand"

	"github.com/achilleasa/bihtrace/geom"
	"github.com/achilleasa/bihtrace/types"
)

// Engine is the view of the ray tracing engine that materials get while
// generating rays and shading. Shadow rays are requested through
// GenerateRaysToLight and read back, with their magnitude set to the
// visible fraction, through Illumination.
type Engine interface {
	// The scene lights.
	Lights() []*Light

	// Request shadow rays from the destination of r towards a light.
	GenerateRaysToLight(r *geom.Ray, hit geom.Hit, light int)

	// Get the resolved shadow ray for a light. Its Magnitude holds the
	// fraction of shadow rays that reached the light.
	Illumination(light int) *geom.Ray

	// A random source private to the calling engine.
	Rand() *rand.Rand
}

// Material is implemented by surface shaders.
type Material interface {
	// Request shadow rays for every light and fill the reflection and
	// refraction sets.
	GenerateRays(e Engine, r *geom.Ray, n types.Vec3, hit geom.Hit, reflect, refract *SecondaryRays)

	// Compute the direct lighting term.
	Shade(e Engine, r *geom.Ray, n types.Vec3, hit geom.Hit) types.Color

	// Combine the direct term with the resolved secondary ray colors.
	Combine(e Engine, c types.Color, reflect, refract *SecondaryRays) types.Color

	// Light emitting materials never occlude.
	IsLight() bool

	// Transparent materials never occlude.
	IsTransparent() bool
}

// A bounded set of secondary rays and, once traced, their colors.
type SecondaryRays struct {
	Rays   [geom.MaxSecondaryRays]geom.Ray
	Colors [geom.MaxSecondaryRays]types.Color

	// The number of valid rays.
	Count int

	// The coefficient the material used to spawn the rays.
	Coefficient float32
}

// Clear the set.
func (s *SecondaryRays) Reset() {
	s.Count = 0
	s.Coefficient = 0
}

// Average of the traced colors. Returns black for an empty set.
func (s *SecondaryRays) Average() types.Color {
	var avg types.Color
	if s.Count == 0 {
		return avg
	}
	for i := 0; i < s.Count; i++ {
		avg = avg.Add(s.Colors[i])
	}
	return avg.Mul(1.0 / float32(s.Count))
}
