package geom

import (
	"github.com/achilleasa/bihtrace/types"
	"github.com/chewxy/math32"
)

// Relative padding applied to every frustum bound so that rounding in the
// per-ray tests can never fall outside the culling volume.
const frustumPad float32 = 1e-4

// A conservative bounding volume over the rays of a coherent packet.
//
// Every ray r in the packet can be written as p(x) = o + s * (x - o[A])
// where A is the dominant axis, x the coordinate along A and s the slope
// d / d[A]. The frustum keeps interval bounds for o, the inverse direction
// and s so that plane distances and triangle separation can be evaluated
// without touching individual rays.
type Frustum struct {
	MinOrigin, MaxOrigin types.Vec3
	MinDir, MaxDir       types.Vec3
	MinInvDir, MaxInvDir types.Vec3

	// The direction sign shared by all rays along each axis.
	Negative [3]bool

	// The dominant axis; the one maximizing the smallest absolute
	// direction component over all rays.
	Axis types.Axis

	// Slope bounds relative to the dominant axis.
	MinSlope, MaxSlope types.Vec3

	// Per-leaf slab along the dominant axis set by PrepareLeaf.
	leafLo, leafHi float32
}

// Build a frustum for a set of lane groups. The second return value is
// false if the rays are not coherent in which case the frustum must not
// be used.
func NewFrustum(p []PacketRay) (Frustum, bool) {
	var f Frustum
	if !Coherent(p) {
		return f, false
	}

	inf := math32.Inf(1)
	f.MinOrigin = types.Vec3{inf, inf, inf}
	f.MaxOrigin = types.Vec3{-inf, -inf, -inf}
	f.MinDir, f.MaxDir = f.MinOrigin, f.MaxOrigin
	f.MinInvDir, f.MaxInvDir = f.MinOrigin, f.MaxOrigin

	var minAbs = types.Vec3{inf, inf, inf}
	for g := range p {
		for lane := 0; lane < LaneWidth; lane++ {
			if !p[g].Active.Has(lane) {
				continue
			}
			f.MinOrigin = types.MinVec3(f.MinOrigin, p[g].LaneOrigin(lane))
			f.MaxOrigin = types.MaxVec3(f.MaxOrigin, p[g].LaneOrigin(lane))
			dir := p[g].LaneDir(lane)
			f.MinDir = types.MinVec3(f.MinDir, dir)
			f.MaxDir = types.MaxVec3(f.MaxDir, dir)
			f.MinInvDir = types.MinVec3(f.MinInvDir, p[g].LaneInvDir(lane))
			f.MaxInvDir = types.MaxVec3(f.MaxInvDir, p[g].LaneInvDir(lane))
			for axis := 0; axis < 3; axis++ {
				minAbs[axis] = math32.Min(minAbs[axis], math32.Abs(dir[axis]))
				f.Negative[axis] = dir[axis] < 0
			}
		}
	}

	f.Axis = types.XAxis
	for axis := types.YAxis; axis <= types.ZAxis; axis++ {
		if minAbs[axis] > minAbs[f.Axis] {
			f.Axis = axis
		}
	}

	f.MinSlope = types.Vec3{inf, inf, inf}
	f.MaxSlope = types.Vec3{-inf, -inf, -inf}
	for g := range p {
		for lane := 0; lane < LaneWidth; lane++ {
			if !p[g].Active.Has(lane) {
				continue
			}
			dir := p[g].LaneDir(lane)
			for axis := 0; axis < 3; axis++ {
				s := dir[axis] / dir[f.Axis]
				f.MinSlope[axis] = math32.Min(f.MinSlope[axis], s)
				f.MaxSlope[axis] = math32.Max(f.MaxSlope[axis], s)
			}
		}
	}

	return f, true
}

// Return bounds for the distance, over all rays in the frustum, to the
// plane at split along axis.
func (f *Frustum) PlaneDistance(axis types.Axis, split float32) (lo, hi float32) {
	return mulInterval(split-f.MaxOrigin[axis], split-f.MinOrigin[axis], f.MinInvDir[axis], f.MaxInvDir[axis])
}

// Compute the per-leaf culling coefficients: the slab along the dominant
// axis that rays can occupy for distances in [tmin, tmax].
func (f *Frustum) PrepareLeaf(tmin, tmax float32) {
	a := f.Axis
	lo, hi := mulInterval(f.MinDir[a], f.MaxDir[a], tmin, tmax)
	f.leafLo = pad(f.MinOrigin[a]+lo, -1)
	f.leafHi = pad(f.MaxOrigin[a]+hi, 1)
}

// Returns true if no ray in the frustum can hit the triangle abc within the
// slab set by the last PrepareLeaf call. A false result means the triangle
// must be tested against each ray.
func (f *Frustum) Cull(a, b, c types.Vec3) bool {
	dom := f.Axis
	if (a[dom] < f.leafLo && b[dom] < f.leafLo && c[dom] < f.leafLo) ||
		(a[dom] > f.leafHi && b[dom] > f.leafHi && c[dom] > f.leafHi) {
		return true
	}

	for axis := types.XAxis; axis <= types.ZAxis; axis++ {
		if axis == dom {
			continue
		}

		aLo, aHi := f.crossBounds(axis, a[dom])
		bLo, bHi := f.crossBounds(axis, b[dom])
		cLo, cHi := f.crossBounds(axis, c[dom])

		if a[axis] < aLo && b[axis] < bLo && c[axis] < cLo {
			return true
		}
		if a[axis] > aHi && b[axis] > bHi && c[axis] > cHi {
			return true
		}
	}

	return false
}

// Bounds of the coordinate along axis for any ray in the frustum at
// dominant axis coordinate x. The lower bound is concave and the upper
// bound convex in x so vertex tests extend to the whole triangle.
func (f *Frustum) crossBounds(axis types.Axis, x float32) (lo, hi float32) {
	dom := f.Axis
	lo, hi = mulInterval(x-f.MaxOrigin[dom], x-f.MinOrigin[dom], f.MinSlope[axis], f.MaxSlope[axis])
	return pad(f.MinOrigin[axis]+lo, -1), pad(f.MaxOrigin[axis]+hi, 1)
}

// Product of the intervals [a0, a1] and [b0, b1].
func mulInterval(a0, a1, b0, b1 float32) (lo, hi float32) {
	p0, p1, p2, p3 := a0*b0, a0*b1, a1*b0, a1*b1
	lo = math32.Min(math32.Min(p0, p1), math32.Min(p2, p3))
	hi = math32.Max(math32.Max(p0, p1), math32.Max(p2, p3))
	return lo, hi
}

// Move v away from the frustum interior by a relative amount.
func pad(v, dir float32) float32 {
	return v + dir*frustumPad*(1+math32.Abs(v))
}
