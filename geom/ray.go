package geom

import (
	"math/rand"

	"github.com/achilleasa/bihtrace/types"
	"github.com/chewxy/math32"
)

// Component values are capped so that repeated diffuse bounces cannot overflow.
const maxComponent int32 = 1 << 20

// A ray with an origin, a unit direction and the bookkeeping used by the
// secondary ray protocol.
type Ray struct {
	Origin types.Vec3
	Dir    types.Vec3

	// The destination point. Only meaningful after CalculateDestination
	// or when the ray was created with NewRayTo.
	Dst types.Vec3

	// The distance from the origin to the destination.
	Length float32

	// The accumulated throughput of this ray in [0, 1].
	Magnitude float32

	// Importance sampling divisor that bounds the fan-out of diffuse
	// secondary rays spawned from this ray.
	Component int32
}

// Create a ray starting at origin and travelling along dir. The direction
// is normalized.
func NewRay(origin, dir types.Vec3) Ray {
	return Ray{
		Origin:    origin,
		Dir:       dir.Normalize(),
		Dst:       origin,
		Length:    MaxDist,
		Magnitude: 1,
		Component: 1,
	}
}

// Create a ray from origin towards dst. The ray length is the distance
// between the two points.
func NewRayTo(origin, dst types.Vec3) Ray {
	dir := dst.Sub(origin)
	l := dir.Len()
	return Ray{
		Origin:    origin,
		Dir:       dir.Normalize(),
		Dst:       dst,
		Length:    l,
		Magnitude: 1,
		Component: 1,
	}
}

// Set the ray length to d and return the resulting destination point.
func (r *Ray) CalculateDestination(d float32) types.Vec3 {
	r.Length = d
	r.Dst = r.Origin.Add(r.Dir.Mul(d))
	return r.Dst
}

// Component-wise reciprocal of the ray direction.
func (r *Ray) InvDir() types.Vec3 {
	return r.Dir.Inv()
}

// Get the point on the ray at distance t.
func (r *Ray) At(t float32) types.Vec3 {
	return r.Origin.Add(r.Dir.Mul(t))
}

// Return the destination point nudged along the ray direction. A positive
// side moves the point back towards the ray origin, a negative side pushes
// it through the surface.
func (r *Ray) OffsetStart(side float32) types.Vec3 {
	return r.Dst.Sub(r.Dir.Mul(side * originOffset))
}

// The number of shadow rays to request per light for a hit on this ray.
// Rays spawned by diffuse bounces request fewer samples.
func (r *Ray) ShadowSamples(samples int) int {
	if samples > SoftShadowSamples {
		samples = SoftShadowSamples
	}
	n := samples / int(r.Component)
	if n < 1 {
		return 1
	}
	return n
}

// Populate out with the reflection of this ray at its destination point
// about the surface normal n and return the number of emitted rays.
//
// No rays are emitted if the resulting throughput does not exceed
// MinReflectivePower. A non-zero spread emits several rays perturbed around
// the mirror direction, each with a larger component. The out slice should
// have room for MaxSecondaryRays rays.
func (r *Ray) Reflect(out []Ray, n types.Vec3, coefficient, spread float32, rng *rand.Rand) int {
	power := r.Magnitude * clampCoefficient(coefficient)
	if power <= MinReflectivePower {
		return 0
	}

	ref := r.Dir.Sub(n.Mul(2 * r.Dir.Dot(n)))
	return r.emit(out, r.OffsetStart(1), ref, power, spread, rng)
}

// Populate out with the refraction of this ray at its destination point
// and return the number of emitted rays. The refractive index ri is
// inverted for rays entering the surface (kind == OutIn). No rays are
// emitted on total internal reflection or when the resulting throughput
// does not exceed MinReflectivePower.
func (r *Ray) Refract(out []Ray, n types.Vec3, coefficient, ri float32, kind HitKind, spread float32, rng *rand.Rand) int {
	power := r.Magnitude * clampCoefficient(coefficient)
	if power <= MinReflectivePower {
		return 0
	}

	// Work with the normal facing the incoming ray
	if r.Dir.Dot(n) > 0 {
		n = n.Neg()
	}
	cosI := -r.Dir.Dot(n)

	if kind == OutIn {
		ri = 1.0 / ri
	}

	cosT2 := 1.0 - ri*ri*(1.0-cosI*cosI)
	if cosT2 < 0 {
		return 0
	}

	ref := r.Dir.Mul(ri).Add(n.Mul(ri*cosI - math32.Sqrt(cosT2)))
	return r.emit(out, r.OffsetStart(-1), ref, power, spread, rng)
}

// Emit either a single ray along dir or a diffuse bundle around it.
func (r *Ray) emit(out []Ray, start, dir types.Vec3, power, spread float32, rng *rand.Rand) int {
	if spread == 0 || rng == nil {
		out[0] = NewRay(start, dir)
		out[0].Magnitude = power
		out[0].Component = r.Component
		return 1
	}

	comp := r.Component << 2
	if comp > maxComponent || comp <= 0 {
		comp = maxComponent
	}

	count := DiffuseReflections / int(r.Component)
	if count < 1 {
		count = 1
	}
	if count > len(out) {
		count = len(out)
	}

	dir = dir.Normalize()
	perp := dir.Perpendicular()
	cross := dir.Cross(perp)
	for i := 0; i < count; i++ {
		rOff := rng.Float32() * spread
		aOff := rng.Float32() * 2 * math32.Pi
		sin, cos := math32.Sin(aOff), math32.Cos(aOff)

		d := dir.Add(perp.Mul(rOff * cos)).Add(cross.Mul(rOff * sin))
		out[i] = NewRay(start, d)
		out[i].Magnitude = power
		out[i].Component = comp
	}

	return count
}

func clampCoefficient(c float32) float32 {
	if c > MaxCoefficient {
		return MaxCoefficient
	}
	if c < 0 {
		return 0
	}
	return c
}
