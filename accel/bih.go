package accel

import (
	"fmt"

	"github.com/achilleasa/bihtrace/geom"
	"github.com/achilleasa/bihtrace/scene"
	"github.com/achilleasa/bihtrace/types"
	"github.com/chewxy/math32"
)

// A pending subtree and the ray interval that overlaps it.
type stackEntry struct {
	addr       uint32
	tmin, tmax float32
}

// A fixed size traversal stack.
type traversalStack struct {
	entries [MaxStackHeight]stackEntry
	top     int
}

func (s *traversalStack) push(addr uint32, tmin, tmax float32) {
	if s.top == MaxStackHeight {
		panic(fmt.Sprintf("accel: traversal stack overflow (max height %d)", MaxStackHeight))
	}
	s.entries[s.top] = stackEntry{addr: addr, tmin: tmin, tmax: tmax}
	s.top++
}

func (s *traversalStack) pop() (stackEntry, bool) {
	if s.top == 0 {
		return stackEntry{}, false
	}
	s.top--
	return s.entries[s.top], true
}

// BIH is a bounding interval hierarchy stored as a flat list of 64-byte
// blocks. It is immutable once built and safe for concurrent traversal.
type BIH struct {
	store  *scene.Store
	blocks []Block

	// Scene bounds padded so that rays grazing the scene still enter the
	// root.
	bounds types.BBox

	stats BuildStats
}

func newBIH(store *scene.Store, blocks []Block, stats BuildStats) *BIH {
	bounds := store.Bounds()
	if store.Len() > 0 {
		side := bounds.Side()
		for axis := 0; axis < 3; axis++ {
			p := traversalSlack * (side[axis] + 1)
			bounds[0][axis] -= p
			bounds[1][axis] += p
		}
	}

	return &BIH{
		store:  store,
		blocks: blocks,
		bounds: bounds,
		stats:  stats,
	}
}

// The primitive store this index was built for.
func (h *BIH) Store() *scene.Store {
	return h.store
}

// The block list.
func (h *BIH) Blocks() []Block {
	return h.blocks
}

// Build statistics.
func (h *BIH) Stats() BuildStats {
	return h.stats
}

// Visit every leaf in depth-first order, left child first. The callback
// receives the leaf indirection range and its depth.
func (h *BIH) Leaves(fn func(begin, end, depth int)) {
	h.visit(0, 0, fn)
}

func (h *BIH) visit(addr uint32, depth int, fn func(begin, end, depth int)) {
	blockIdx, slot := SplitAddress(addr)
	block := &h.blocks[blockIdx]
	if !block.IsGeneric(slot) {
		node := block.Node(slot)
		fn(node.Begin(), node.End(), depth)
		return
	}
	h.visit(block.LeftChild(blockIdx, slot), depth+1, fn)
	h.visit(block.RightChild(blockIdx, slot), depth+1, fn)
}

// Clip a ray against the padded scene bounds. Returns false if the ray
// misses them.
func (h *BIH) clipBox(origin, invDir, dir types.Vec3) (tmin, tmax float32, ok bool) {
	if h.store.Len() == 0 {
		return 0, 0, false
	}

	tmin, tmax = 0, geom.MaxDist
	for axis := 0; axis < 3; axis++ {
		lo, hi := h.bounds[0][axis], h.bounds[1][axis]
		if dir[axis] == 0 {
			if origin[axis] < lo || origin[axis] > hi {
				return 0, 0, false
			}
			continue
		}

		t0 := (lo - origin[axis]) * invDir[axis]
		t1 := (hi - origin[axis]) * invDir[axis]
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		tmin = math32.Max(tmin, t0)
		tmax = math32.Min(tmax, t1)
	}

	tmin, tmax = narrow(tmin), widen(tmax)
	if tmin < 0 {
		tmin = 0
	}
	return tmin, tmax, tmin <= tmax
}

// Select the children of a generic node that the interval [tmin, tmax]
// overlaps. The near child is returned first.
func splitChildren(block *Block, blockIdx uint32, slot int, o, d, inv, tmin, tmax float32) (near, far stackEntry, visitNear, visitFar bool) {
	node := block.Node(slot)
	left, right := block.LeftChild(blockIdx, slot), block.RightChild(blockIdx, slot)

	if d == 0 {
		visitLeft := o <= widen(node.LeftSplit())
		visitRight := o >= narrow(node.RightSplit())
		near = stackEntry{addr: left, tmin: tmin, tmax: tmax}
		far = stackEntry{addr: right, tmin: tmin, tmax: tmax}
		return near, far, visitLeft, visitRight
	}

	near.addr, far.addr = left, right
	nearSplit, farSplit := node.LeftSplit(), node.RightSplit()
	if d < 0 {
		near.addr, far.addr = right, left
		nearSplit, farSplit = farSplit, nearSplit
	}

	tNear := widen((nearSplit - o) * inv)
	tFar := narrow((farSplit - o) * inv)

	visitNear = tmin <= tNear
	visitFar = tmax >= tFar
	near.tmin, near.tmax = tmin, math32.Min(tmax, tNear)
	far.tmin, far.tmax = math32.Max(tmin, tFar), tmax
	return near, far, visitNear, visitFar
}

// Find the nearest primitive hit by r.
func (h *BIH) FindNearest(r *geom.Ray, hit *geom.Hit) int32 {
	*hit = geom.NewHit(geom.MaxDist)
	bestID := NoHit

	invDir := r.InvDir()
	tmin, tmax, ok := h.clipBox(r.Origin, invDir, r.Dir)
	if !ok {
		return NoHit
	}

	var stack traversalStack
	addr := uint32(0)
	for {
		if tmin <= hit.D {
			blockIdx, slot := SplitAddress(addr)
			block := &h.blocks[blockIdx]

			if block.IsGeneric(slot) {
				axis := block.SplitAxis(slot)
				near, far, visitNear, visitFar := splitChildren(block, blockIdx, slot, r.Origin[axis], r.Dir[axis], invDir[axis], tmin, tmax)
				switch {
				case visitNear && visitFar:
					stack.push(far.addr, far.tmin, far.tmax)
					addr, tmin, tmax = near.addr, near.tmin, near.tmax
					continue
				case visitNear:
					addr, tmin, tmax = near.addr, near.tmin, near.tmax
					continue
				case visitFar:
					addr, tmin, tmax = far.addr, far.tmin, far.tmax
					continue
				}
			} else {
				node := block.Node(slot)
				for pos := node.Begin(); pos < node.End(); pos++ {
					id := h.store.Indirection[pos]
					candidate := h.store.Primitive(id).IsIntersecting(r)
					if candidate.Kind != geom.Miss && nearer(candidate.D, id, hit.D, bestID) {
						*hit = candidate
						bestID = id
					}
				}
			}
		}

		entry, ok := stack.pop()
		if !ok {
			break
		}
		addr, tmin, tmax = entry.addr, entry.tmin, entry.tmax
	}

	return bestID
}

// Returns true if an occluding primitive intersects r at a distance below
// maxDist.
func (h *BIH) FoundNearer(r *geom.Ray, maxDist float32) bool {
	invDir := r.InvDir()
	tmin, tmax, ok := h.clipBox(r.Origin, invDir, r.Dir)
	if !ok {
		return false
	}
	tmax = math32.Min(tmax, widen(maxDist))
	if tmin > tmax {
		return false
	}

	var stack traversalStack
	addr := uint32(0)
	for {
		blockIdx, slot := SplitAddress(addr)
		block := &h.blocks[blockIdx]

		if block.IsGeneric(slot) {
			axis := block.SplitAxis(slot)
			near, far, visitNear, visitFar := splitChildren(block, blockIdx, slot, r.Origin[axis], r.Dir[axis], invDir[axis], tmin, tmax)
			switch {
			case visitNear && visitFar:
				stack.push(far.addr, far.tmin, far.tmax)
				addr, tmin, tmax = near.addr, near.tmin, near.tmax
				continue
			case visitNear:
				addr, tmin, tmax = near.addr, near.tmin, near.tmax
				continue
			case visitFar:
				addr, tmin, tmax = far.addr, far.tmin, far.tmax
				continue
			}
		} else {
			node := block.Node(slot)
			for pos := node.Begin(); pos < node.End(); pos++ {
				tri := h.store.At(pos)
				if !occluder(tri) {
					continue
				}
				if hit := tri.IsIntersecting(r); hit.Kind != geom.Miss && hit.D < maxDist {
					return true
				}
			}
		}

		entry, ok := stack.pop()
		if !ok {
			return false
		}
		addr, tmin, tmax = entry.addr, entry.tmin, entry.tmax
	}
}
