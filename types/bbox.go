package types

import "github.com/chewxy/math32"

// An axis aligned bounding box.
type BBox [2]Vec3

// Create an empty (inverted) bounding box that any Grow call will reset.
func EmptyBBox() BBox {
	inf := math32.Inf(1)
	return BBox{
		Vec3{inf, inf, inf},
		Vec3{-inf, -inf, -inf},
	}
}

// Expand box to include point p.
func (b BBox) Grow(p Vec3) BBox {
	return BBox{MinVec3(b[0], p), MaxVec3(b[1], p)}
}

// Expand box to include another box.
func (b BBox) Union(b2 BBox) BBox {
	return BBox{MinVec3(b[0], b2[0]), MaxVec3(b[1], b2[1])}
}

// Returns true if the box contains no points.
func (b BBox) Empty() bool {
	return b[0][0] > b[1][0] || b[0][1] > b[1][1] || b[0][2] > b[1][2]
}

// Box side lengths.
func (b BBox) Side() Vec3 {
	return b[1].Sub(b[0])
}

// Box center.
func (b BBox) Center() Vec3 {
	return b[0].Add(b[1]).Mul(0.5)
}

// Half of the box surface area. Empty boxes have zero area.
func (b BBox) HalfArea() float32 {
	if b.Empty() {
		return 0
	}
	side := b.Side()
	return side[0]*side[1] + side[1]*side[2] + side[0]*side[2]
}
