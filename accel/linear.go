package accel

import (
	"github.com/achilleasa/bihtrace/geom"
	"github.com/achilleasa/bihtrace/scene"
)

// Linear tests every primitive against every ray. It is used as ground
// truth for the BIH and for scenes too small to justify building one.
type Linear struct {
	store *scene.Store
}

func NewLinear(store *scene.Store) *Linear {
	return &Linear{store: store}
}

func (l *Linear) Store() *scene.Store {
	return l.store
}

func (l *Linear) FindNearest(r *geom.Ray, hit *geom.Hit) int32 {
	*hit = geom.NewHit(geom.MaxDist)
	bestID := NoHit

	for id := int32(0); int(id) < l.store.Len(); id++ {
		candidate := l.store.Primitive(id).IsIntersecting(r)
		if candidate.Kind != geom.Miss && nearer(candidate.D, id, hit.D, bestID) {
			*hit = candidate
			bestID = id
		}
	}
	return bestID
}

func (l *Linear) FoundNearer(r *geom.Ray, maxDist float32) bool {
	for id := int32(0); int(id) < l.store.Len(); id++ {
		tri := l.store.Primitive(id)
		if !occluder(tri) {
			continue
		}
		if hit := tri.IsIntersecting(r); hit.Kind != geom.Miss && hit.D < maxDist {
			return true
		}
	}
	return false
}

func (l *Linear) FindNearestPacket(p []geom.PacketRay, prims []int32, hits []geom.Hit) {
	checkPacket(p, len(prims))
	checkPacket(p, len(hits))

	for g := range p {
		for lane := 0; lane < geom.LaneWidth; lane++ {
			idx := g*geom.LaneWidth + lane
			if !p[g].Active.Has(lane) {
				prims[idx] = NoHit
				hits[idx] = geom.NewHit(geom.MaxDist)
				continue
			}
			r := p[g].Ray(lane)
			prims[idx] = l.FindNearest(&r, &hits[idx])
		}
	}
}

func (l *Linear) FoundNearerPacket(p []geom.PacketRay, closer []geom.LaneMask) {
	checkPacket(p, len(p)*geom.LaneWidth)

	for g := range p {
		closer[g] = 0
		for lane := 0; lane < geom.LaneWidth; lane++ {
			if !p[g].Active.Has(lane) {
				continue
			}
			r := p[g].Ray(lane)
			if l.FoundNearer(&r, r.Length) {
				closer[g] |= 1 << uint(lane)
			}
		}
	}
}
