package accel

import (
	"fmt"

	"github.com/achilleasa/bihtrace/geom"
	"github.com/chewxy/math32"
)

// The rays of a packet unpacked for per-ray primitive tests together with
// the conservative union of their intervals against the scene bounds.
type packetRays struct {
	rays  [geom.MaxPacketRays]geom.Ray
	alive [geom.MaxPacketRays]bool
	count int

	tmin, tmax float32
}

func (h *BIH) unpack(p []geom.PacketRay, pr *packetRays) bool {
	pr.count = len(p) * geom.LaneWidth
	pr.tmin, pr.tmax = geom.MaxDist, 0

	entered := false
	for i := 0; i < pr.count; i++ {
		g, lane := i/geom.LaneWidth, i%geom.LaneWidth
		pr.alive[i] = false
		if !p[g].Active.Has(lane) {
			continue
		}

		pr.rays[i] = p[g].Ray(lane)
		r := &pr.rays[i]
		tmin, tmax, ok := h.clipBox(r.Origin, r.InvDir(), r.Dir)
		if !ok {
			continue
		}
		pr.alive[i] = true
		pr.tmin = math32.Min(pr.tmin, tmin)
		pr.tmax = math32.Max(pr.tmax, tmax)
		entered = true
	}
	return entered
}

func checkPacket(p []geom.PacketRay, out int) {
	if len(p) > geom.MaxPacketSize {
		panic(fmt.Sprintf("accel: packet of %d lane groups exceeds the maximum of %d", len(p), geom.MaxPacketSize))
	}
	if out < len(p)*geom.LaneWidth {
		panic(fmt.Sprintf("accel: %d result slots supplied for %d rays", out, len(p)*geom.LaneWidth))
	}
}

// Walk the BIH with a frustum. bound returns the largest distance that is
// still of interest; subtrees starting beyond it are skipped. leaf is
// invoked for every visited leaf and returns true to stop the traversal.
func (h *BIH) walkFrustum(f *geom.Frustum, tmin, tmax float32, bound func() float32, leaf func(node *Node, tmin, tmax float32) bool) {
	var stack traversalStack
	addr := uint32(0)
	for {
		if tmin <= bound() {
			blockIdx, slot := SplitAddress(addr)
			block := &h.blocks[blockIdx]

			if block.IsGeneric(slot) {
				axis := block.SplitAxis(slot)
				node := block.Node(slot)
				near, far := block.LeftChild(blockIdx, slot), block.RightChild(blockIdx, slot)
				nearSplit, farSplit := node.LeftSplit(), node.RightSplit()
				if f.Negative[axis] {
					near, far = far, near
					nearSplit, farSplit = farSplit, nearSplit
				}

				_, nearHi := f.PlaneDistance(axis, nearSplit)
				farLo, _ := f.PlaneDistance(axis, farSplit)
				nearHi, farLo = widen(nearHi), narrow(farLo)

				visitNear := tmin <= nearHi
				visitFar := tmax >= farLo
				switch {
				case visitNear && visitFar:
					stack.push(far, math32.Max(tmin, farLo), tmax)
					addr, tmax = near, math32.Min(tmax, nearHi)
					continue
				case visitNear:
					addr, tmax = near, math32.Min(tmax, nearHi)
					continue
				case visitFar:
					addr, tmin = far, math32.Max(tmin, farLo)
					continue
				}
			} else if leaf(block.Node(slot), tmin, tmax) {
				return
			}
		}

		entry, ok := stack.pop()
		if !ok {
			return
		}
		addr, tmin, tmax = entry.addr, entry.tmin, entry.tmax
	}
}

// Find the nearest primitive for every active ray in the packet. Coherent
// batches are traced with a single frustum; otherwise each coherent lane
// group gets its own frustum and the remaining rays are traced one by one.
func (h *BIH) FindNearestPacket(p []geom.PacketRay, prims []int32, hits []geom.Hit) {
	checkPacket(p, len(prims))
	checkPacket(p, len(hits))

	for i := 0; i < len(p)*geom.LaneWidth; i++ {
		prims[i] = NoHit
		hits[i] = geom.NewHit(geom.MaxDist)
	}

	if f, ok := geom.NewFrustum(p); ok {
		h.frustumNearest(p, &f, prims, hits)
		return
	}

	for g := range p {
		group := p[g : g+1]
		base := g * geom.LaneWidth
		if f, ok := geom.NewFrustum(group); ok {
			h.frustumNearest(group, &f, prims[base:], hits[base:])
			continue
		}

		for lane := 0; lane < geom.LaneWidth; lane++ {
			if !p[g].Active.Has(lane) {
				continue
			}
			r := p[g].Ray(lane)
			prims[base+lane] = h.FindNearest(&r, &hits[base+lane])
		}
	}
}

func (h *BIH) frustumNearest(p []geom.PacketRay, f *geom.Frustum, prims []int32, hits []geom.Hit) {
	var pr packetRays
	if !h.unpack(p, &pr) {
		return
	}

	// The worst best distance over all rays still in flight
	bound := func() float32 {
		worst := float32(0)
		for i := 0; i < pr.count; i++ {
			if pr.alive[i] && hits[i].D > worst {
				worst = hits[i].D
			}
		}
		return worst
	}

	h.walkFrustum(f, pr.tmin, pr.tmax, bound, func(node *Node, tmin, tmax float32) bool {
		f.PrepareLeaf(tmin, tmax)
		for pos := node.Begin(); pos < node.End(); pos++ {
			id := h.store.Indirection[pos]
			tri := h.store.Primitive(id)
			if f.Cull(tri.Vertices[0], tri.Vertices[1], tri.Vertices[2]) {
				continue
			}

			for i := 0; i < pr.count; i++ {
				if !pr.alive[i] {
					continue
				}
				candidate := tri.IsIntersecting(&pr.rays[i])
				if candidate.Kind != geom.Miss && nearer(candidate.D, id, hits[i].D, prims[i]) {
					hits[i] = candidate
					prims[i] = id
				}
			}
		}
		return false
	})
}

// Run an occlusion query for every active ray using its lane length as the
// maximum distance.
func (h *BIH) FoundNearerPacket(p []geom.PacketRay, closer []geom.LaneMask) {
	if len(closer) < len(p) {
		panic(fmt.Sprintf("accel: %d result masks supplied for %d lane groups", len(closer), len(p)))
	}
	checkPacket(p, len(p)*geom.LaneWidth)

	for g := range closer[:len(p)] {
		closer[g] = 0
	}

	if f, ok := geom.NewFrustum(p); ok {
		h.frustumNearer(p, &f, closer)
		return
	}

	for g := range p {
		group := p[g : g+1]
		if f, ok := geom.NewFrustum(group); ok {
			h.frustumNearer(group, &f, closer[g:g+1])
			continue
		}

		for lane := 0; lane < geom.LaneWidth; lane++ {
			if !p[g].Active.Has(lane) {
				continue
			}
			r := p[g].Ray(lane)
			if h.FoundNearer(&r, r.Length) {
				closer[g] |= 1 << uint(lane)
			}
		}
	}
}

func (h *BIH) frustumNearer(p []geom.PacketRay, f *geom.Frustum, closer []geom.LaneMask) {
	var pr packetRays
	if !h.unpack(p, &pr) {
		return
	}

	pending := 0
	maxLength := float32(0)
	for i := 0; i < pr.count; i++ {
		if pr.alive[i] {
			pending++
			maxLength = math32.Max(maxLength, pr.rays[i].Length)
		}
	}

	tmax := math32.Min(pr.tmax, widen(maxLength))
	if pr.tmin > tmax {
		return
	}

	bound := func() float32 {
		return geom.MaxDist
	}

	h.walkFrustum(f, pr.tmin, tmax, bound, func(node *Node, tmin, tmax float32) bool {
		f.PrepareLeaf(tmin, tmax)
		for pos := node.Begin(); pos < node.End(); pos++ {
			tri := h.store.At(pos)
			if !occluder(tri) || f.Cull(tri.Vertices[0], tri.Vertices[1], tri.Vertices[2]) {
				continue
			}

			for i := 0; i < pr.count; i++ {
				if !pr.alive[i] {
					continue
				}
				if hit := tri.IsIntersecting(&pr.rays[i]); hit.Kind != geom.Miss && hit.D < pr.rays[i].Length {
					closer[i/geom.LaneWidth] |= 1 << uint(i%geom.LaneWidth)
					pr.alive[i] = false
					pending--
				}
			}

			if pending == 0 {
				return true
			}
		}
		return false
	})
}
