package accel

import (
	"github.com/achilleasa/bihtrace/geom"
	"github.com/achilleasa/bihtrace/scene"
	"github.com/chewxy/math32"
)

// The primitive id reported when a ray hits nothing.
const NoHit int32 = -1

// The maximum depth of the explicit traversal stack.
const MaxStackHeight = 100

// Relative slack applied to split plane and bounding box distances so
// that rounding never excludes a node that holds a hit.
const traversalSlack float32 = 1e-4

// RayIndex is implemented by spatial indices that trace single rays.
type RayIndex interface {
	// Find the nearest primitive hit by r. Returns NoHit and sets h.D to
	// geom.MaxDist if nothing is hit.
	FindNearest(r *geom.Ray, h *geom.Hit) int32

	// Returns true if any primitive that is neither a light nor
	// transparent intersects r at a distance in (geom.Epsilon, maxDist).
	FoundNearer(r *geom.Ray, maxDist float32) bool
}

// PacketIndex is implemented by spatial indices that trace packets of rays.
// Results must match those of tracing each ray on its own.
type PacketIndex interface {
	// Find the nearest primitive for each ray in the packet. Results are
	// stored at index group*geom.LaneWidth+lane of prims and hits.
	FindNearestPacket(p []geom.PacketRay, prims []int32, hits []geom.Hit)

	// Run an occlusion query for every active lane using the lane length
	// as the maximum distance. A set bit in closer means the lane is
	// occluded.
	FoundNearerPacket(p []geom.PacketRay, closer []geom.LaneMask)
}

// Index combines both traversal contracts.
type Index interface {
	RayIndex
	PacketIndex

	// The primitive store this index was built for.
	Store() *scene.Store
}

// Returns true if a hit at distance d on primitive id beats the current
// best. Ties are resolved towards the lower primitive id so that every
// traversal order reports the same primitive.
func nearer(d float32, id int32, best float32, bestID int32) bool {
	return d < best || (d == best && bestID != NoHit && id < bestID)
}

// Returns true if the primitive can block shadow rays.
func occluder(tri *scene.Triangle) bool {
	return !tri.IsLight() && !tri.IsTransparent()
}

func widen(t float32) float32 {
	return t + traversalSlack*(1+math32.Abs(t))
}

func narrow(t float32) float32 {
	return t - traversalSlack*(1+math32.Abs(t))
}

var (
	_ Index = (*BIH)(nil)
	_ Index = (*Linear)(nil)
)
