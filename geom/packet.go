package geom

import (
	"fmt"

	"github.com/achilleasa/bihtrace/types"
)

// One float per lane.
type Lanes [LaneWidth]float32

// A bitmask with one bit per lane.
type LaneMask uint8

// Mask with every lane set.
const AllLanes LaneMask = 1<<LaneWidth - 1

// Returns true if lane is set.
func (m LaneMask) Has(lane int) bool {
	return m&(1<<uint(lane)) != 0
}

// A group of LaneWidth rays stored lane-wise. Lanes that are not part of the
// packet are cleared in Active and replicate the last active lane so that
// lane-wide min/max reductions stay meaningful.
type PacketRay struct {
	Origin [3]Lanes
	Dir    [3]Lanes
	InvDir [3]Lanes

	// The maximum distance for each lane. Used by occlusion queries.
	Length Lanes

	Active LaneMask
}

// Load ray r into the given lane and mark the lane as active.
func (p *PacketRay) Set(lane int, r *Ray) {
	inv := r.InvDir()
	for axis := 0; axis < 3; axis++ {
		p.Origin[axis][lane] = r.Origin[axis]
		p.Dir[axis][lane] = r.Dir[axis]
		p.InvDir[axis][lane] = inv[axis]
	}
	p.Length[lane] = r.Length
	p.Active |= 1 << uint(lane)
}

// Extract the ray stored in a lane.
func (p *PacketRay) Ray(lane int) Ray {
	var r Ray
	for axis := 0; axis < 3; axis++ {
		r.Origin[axis] = p.Origin[axis][lane]
		r.Dir[axis] = p.Dir[axis][lane]
	}
	r.Dst = r.Origin
	r.Length = p.Length[lane]
	r.Magnitude = 1
	r.Component = 1
	return r
}

// Get the origin of a lane.
func (p *PacketRay) LaneOrigin(lane int) types.Vec3 {
	return types.Vec3{p.Origin[0][lane], p.Origin[1][lane], p.Origin[2][lane]}
}

// Get the direction of a lane.
func (p *PacketRay) LaneDir(lane int) types.Vec3 {
	return types.Vec3{p.Dir[0][lane], p.Dir[1][lane], p.Dir[2][lane]}
}

// Get the inverse direction of a lane.
func (p *PacketRay) LaneInvDir(lane int) types.Vec3 {
	return types.Vec3{p.InvDir[0][lane], p.InvDir[1][lane], p.InvDir[2][lane]}
}

// Returns true if every active lane has a non-zero direction with the same
// sign along each axis.
func (p *PacketRay) Coherent() bool {
	return Coherent([]PacketRay{*p})
}

// Pack rays into lane groups and return the number of groups used. It
// panics if rays exceed MaxPacketRays or do not fit in out.
func PackRays(rays []Ray, out []PacketRay) int {
	if len(rays) > MaxPacketRays {
		panic(fmt.Sprintf("geom: packet of %d rays exceeds the maximum of %d", len(rays), MaxPacketRays))
	}

	groups := (len(rays) + LaneWidth - 1) / LaneWidth
	if groups > len(out) {
		panic(fmt.Sprintf("geom: %d lane groups required but only %d supplied", groups, len(out)))
	}

	for g := 0; g < groups; g++ {
		p := &out[g]
		p.Active = 0
		for lane := 0; lane < LaneWidth; lane++ {
			idx := g*LaneWidth + lane
			if idx < len(rays) {
				p.Set(lane, &rays[idx])
				continue
			}

			// Replicate the last active lane
			p.Set(lane, &rays[len(rays)-1])
			p.Active &^= 1 << uint(lane)
		}
	}

	return groups
}

// Returns true if every active ray in the packet has a non-zero direction
// component along each axis and all rays agree on the sign of each
// component. Incoherent packets must be traced lane by lane or ray by ray.
func Coherent(p []PacketRay) bool {
	var seen bool
	var negative [3]bool

	for g := range p {
		for lane := 0; lane < LaneWidth; lane++ {
			if !p[g].Active.Has(lane) {
				continue
			}

			for axis := 0; axis < 3; axis++ {
				d := p[g].Dir[axis][lane]
				if d == 0 {
					return false
				}
				if !seen {
					negative[axis] = d < 0
				} else if negative[axis] != (d < 0) {
					return false
				}
			}
			seen = true
		}
	}

	return seen
}
