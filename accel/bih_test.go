package accel

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/achilleasa/bihtrace/geom"
	"github.com/achilleasa/bihtrace/material"
	"github.com/achilleasa/bihtrace/scene"
	"github.com/achilleasa/bihtrace/types"
)

func randomVec(rng *rand.Rand, min, max float32) types.Vec3 {
	return types.XYZ(
		min+rng.Float32()*(max-min),
		min+rng.Float32()*(max-min),
		min+rng.Float32()*(max-min),
	)
}

// Generate a soup of small triangles. Every tenth triangle is transparent
// and every seventeenth is emissive.
func randomSoup(rng *rand.Rand, count int) *scene.Store {
	diffuse := material.NewDiffuse(types.RGB(1, 1, 1))
	glass := material.NewGlass(1.5)
	light := material.NewEmissive(types.RGB(4, 4, 4))

	tris := make([]scene.Triangle, count)
	for i := range tris {
		center := randomVec(rng, -10, 10)
		var mat scene.Material = diffuse
		switch {
		case i%17 == 0:
			mat = light
		case i%10 == 0:
			mat = glass
		}
		tris[i] = scene.NewTriangle([3]types.Vec3{
			center.Add(randomVec(rng, -1, 1)),
			center.Add(randomVec(rng, -1, 1)),
			center.Add(randomVec(rng, -1, 1)),
		}, mat)
	}
	return scene.NewStore(tris)
}

// Generate random rays. Some of them travel along a coordinate axis so the
// zero direction paths are exercised.
func randomRays(rng *rand.Rand, count int) []geom.Ray {
	rays := make([]geom.Ray, count)
	for i := range rays {
		origin := randomVec(rng, -12, 12)
		dir := randomVec(rng, -1, 1)
		if i%5 == 0 {
			dir = types.Vec3{}
			dir[rng.Intn(3)] = 1 - 2*float32(rng.Intn(2))
		}
		rays[i] = geom.NewRay(origin, dir)
		rays[i].Length = rng.Float32() * 30
	}
	return rays
}

func TestBuildOptionsValidate(t *testing.T) {
	type spec struct {
		opts  BuildOptions
		valid bool
	}
	specs := []spec{
		{DefaultBuildOptions(), true},
		{BuildOptions{MaxLeafSize: 1, MaxDepth: 1, SplitBins: 2}, true},
		{BuildOptions{MaxLeafSize: 0, MaxDepth: 10, SplitBins: 16}, false},
		{BuildOptions{MaxLeafSize: 5, MaxDepth: MaxStackHeight, SplitBins: 16}, false},
		{BuildOptions{MaxLeafSize: 5, MaxDepth: 10, SplitBins: 1}, false},
	}

	for index, s := range specs {
		err := s.opts.Validate()
		if s.valid && err != nil {
			t.Fatalf("[spec %d] expected options to be valid; got %v", index, err)
		}
		if !s.valid && err == nil {
			t.Fatalf("[spec %d] expected validation error", index)
		}
	}
}

// Check that leaf ranges partition the indirection array and that every
// primitive lies inside the region carved out by the split planes above it.
func checkPartition(t *testing.T, h *BIH) {
	type leafRange struct{ begin, end int }
	var leaves []leafRange
	h.Leaves(func(begin, end, depth int) {
		leaves = append(leaves, leafRange{begin, end})
	})

	sort.Slice(leaves, func(i, j int) bool { return leaves[i].begin < leaves[j].begin })
	next := 0
	for _, l := range leaves {
		if l.begin != next {
			t.Fatalf("expected leaf to begin at %d; got range [%d, %d)", next, l.begin, l.end)
		}
		next = l.end
	}
	if next != h.Store().Len() {
		t.Fatalf("expected leaves to cover %d primitives; covered %d", h.Store().Len(), next)
	}
	if err := h.Store().Validate(); err != nil {
		t.Fatal(err)
	}
	if stats := h.Stats(); stats.Leaves != len(leaves) {
		t.Fatalf("expected stats to report %d leaves; got %d", len(leaves), stats.Leaves)
	}

	var walk func(addr uint32, region types.BBox)
	walk = func(addr uint32, region types.BBox) {
		blockIdx, slot := SplitAddress(addr)
		block := &h.blocks[blockIdx]
		node := block.Node(slot)
		if !block.IsGeneric(slot) {
			for pos := node.Begin(); pos < node.End(); pos++ {
				bbox := h.Store().At(pos).BBox()
				for axis := 0; axis < 3; axis++ {
					if bbox[0][axis] < region[0][axis] || bbox[1][axis] > region[1][axis] {
						t.Fatalf("primitive at position %d with bounds %v escapes region %v", pos, bbox, region)
					}
				}
			}
			return
		}

		axis := block.SplitAxis(slot)
		left, right := region, region
		left[1][axis] = node.LeftSplit()
		right[0][axis] = node.RightSplit()
		walk(block.LeftChild(blockIdx, slot), left)
		walk(block.RightChild(blockIdx, slot), right)
	}
	walk(0, h.Store().Bounds())
}

func TestBuildPartition(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	type spec struct {
		count int
		opts  BuildOptions
	}
	specs := []spec{
		{1, DefaultBuildOptions()},
		{7, DefaultBuildOptions()},
		{500, DefaultBuildOptions()},
		{3000, DefaultBuildOptions()},
		{500, BuildOptions{MaxLeafSize: 1, MaxDepth: 8, SplitBins: 4}},
	}

	for index, s := range specs {
		h := BuildBIH(randomSoup(rng, s.count), s.opts)
		checkPartition(t, h)

		stats := h.Stats()
		if stats.Primitives != s.count {
			t.Fatalf("[spec %d] expected stats to report %d primitives; got %d", index, s.count, stats.Primitives)
		}
		if stats.MaxDepth > s.opts.MaxDepth {
			t.Fatalf("[spec %d] expected max depth <= %d; got %d", index, s.opts.MaxDepth, stats.MaxDepth)
		}
		if stats.Blocks != len(h.Blocks()) {
			t.Fatalf("[spec %d] expected stats to report %d blocks; got %d", index, len(h.Blocks()), stats.Blocks)
		}
	}
}

func TestBuildCoincidentPrimitives(t *testing.T) {
	mat := material.NewDiffuse(types.RGB(1, 1, 1))
	tris := make([]scene.Triangle, 50)
	for i := range tris {
		tris[i] = scene.NewTriangle([3]types.Vec3{
			types.XYZ(0, 0, 0),
			types.XYZ(1, 0, 0),
			types.XYZ(0, 1, 0),
		}, mat)
	}

	h := BuildBIH(scene.NewStore(tris), BuildOptions{MaxLeafSize: 1, MaxDepth: 32, SplitBins: 16})
	checkPartition(t, h)

	h.Leaves(func(begin, end, depth int) {
		if end-begin > 1 {
			t.Fatalf("expected object median splits to produce single primitive leaves; got [%d, %d)", begin, end)
		}
	})

	r := geom.NewRay(types.XYZ(0.2, 0.2, 1), types.XYZ(0, 0, -1))
	var hit geom.Hit
	if id := h.FindNearest(&r, &hit); id != 0 {
		t.Fatalf("expected coincident primitives to resolve to the lowest id 0; got %d", id)
	}
}

func TestEmptyStore(t *testing.T) {
	h := BuildBIH(scene.NewStore(nil), DefaultBuildOptions())
	if len(h.Blocks()) != 1 || h.Blocks()[0].IsGeneric(0) {
		t.Fatalf("expected a single root leaf; got %d blocks", len(h.Blocks()))
	}

	r := geom.NewRay(types.XYZ(0, 0, 0), types.XYZ(0, 0, 1))
	var hit geom.Hit
	if id := h.FindNearest(&r, &hit); id != NoHit || hit.D != geom.MaxDist {
		t.Fatalf("expected a miss at max distance; got id %d at %f", id, hit.D)
	}
	if h.FoundNearer(&r, 100) {
		t.Fatal("expected empty scene not to occlude anything")
	}
}

func TestSplitSidesAreIsolated(t *testing.T) {
	mat := material.NewDiffuse(types.RGB(1, 1, 1))
	quad := func(x float32) scene.Triangle {
		return scene.NewTriangle([3]types.Vec3{
			types.XYZ(x, -1, -1),
			types.XYZ(x, 1, -1),
			types.XYZ(x, 0, 1),
		}, mat)
	}
	store := scene.NewStore([]scene.Triangle{quad(-1), quad(1)})
	h := BuildBIH(store, BuildOptions{MaxLeafSize: 1, MaxDepth: 8, SplitBins: 16})

	root := &h.Blocks()[0]
	if !root.IsGeneric(0) || root.SplitAxis(0) != types.XAxis {
		t.Fatal("expected root to be a generic node splitting along X")
	}
	if l, r := root.Node(0).LeftSplit(), root.Node(0).RightSplit(); l != -1 || r != 1 {
		t.Fatalf("expected split planes (-1, 1); got (%f, %f)", l, r)
	}

	type spec struct {
		origin types.Vec3
		dir    types.Vec3
		expID  int32
	}
	specs := []spec{
		{types.XYZ(0.5, 0, 0), types.XYZ(1, 0, 0), 1},
		{types.XYZ(0.5, 0, 0), types.XYZ(1, 0.1, 0.1), 1},
		{types.XYZ(0.5, 5, 5), types.XYZ(1, 0, 0), NoHit},
		{types.XYZ(0.5, 0, 0), types.XYZ(0, 1, 0), NoHit},
		{types.XYZ(-0.5, 0, 0), types.XYZ(-1, 0, 0), 0},
	}

	for index, s := range specs {
		r := geom.NewRay(s.origin, s.dir)
		var hit geom.Hit
		if id := h.FindNearest(&r, &hit); id != s.expID {
			t.Fatalf("[spec %d] expected primitive %d; got %d", index, s.expID, id)
		}
	}
}

func TestBIHMatchesLinear(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	store := randomSoup(rng, 1500)
	lin := NewLinear(store)
	h := BuildBIH(store, DefaultBuildOptions())

	rays := randomRays(rng, 3000)
	for index := range rays {
		r := &rays[index]

		var expHit, hit geom.Hit
		expID := lin.FindNearest(r, &expHit)
		id := h.FindNearest(r, &hit)
		if id != expID || hit != expHit {
			t.Fatalf("[ray %d] expected primitive %d with hit %+v; got %d with %+v", index, expID, expHit, id, hit)
		}

		if exp, got := lin.FoundNearer(r, r.Length), h.FoundNearer(r, r.Length); exp != got {
			t.Fatalf("[ray %d] expected occlusion result %t for max dist %f; got %t", index, exp, r.Length, got)
		}
	}
}

func TestOcclusionSkipsLightsAndTransparentPrimitives(t *testing.T) {
	tri := func(z float32, mat scene.Material) scene.Triangle {
		return scene.NewTriangle([3]types.Vec3{
			types.XYZ(-1, -1, z),
			types.XYZ(1, -1, z),
			types.XYZ(0, 1, z),
		}, mat)
	}

	type spec struct {
		mat      scene.Material
		maxDist  float32
		occluded bool
	}
	specs := []spec{
		{material.NewDiffuse(types.RGB(1, 1, 1)), 10, true},
		{material.NewDiffuse(types.RGB(1, 1, 1)), 4, false},
		{material.NewGlass(1.5), 10, false},
		{material.NewEmissive(types.RGB(1, 1, 1)), 10, false},
	}

	for index, s := range specs {
		store := scene.NewStore([]scene.Triangle{tri(5, s.mat)})
		r := geom.NewRay(types.XYZ(0, 0, 0), types.XYZ(0, 0, 1))
		for _, idx := range []Index{BuildBIH(store, DefaultBuildOptions()), NewLinear(store)} {
			if got := idx.FoundNearer(&r, s.maxDist); got != s.occluded {
				t.Fatalf("[spec %d] expected occlusion %t; got %t", index, s.occluded, got)
			}
		}
	}
}

func TestTraversalStackOverflow(t *testing.T) {
	var s traversalStack
	for i := 0; i < MaxStackHeight; i++ {
		s.push(uint32(i), 0, 1)
	}
	expectPanic(t, "pushing past the stack height", func() {
		s.push(0, 0, 1)
	})

	entry, ok := s.pop()
	if !ok || entry.addr != MaxStackHeight-1 {
		t.Fatalf("expected to pop address %d; got %d", MaxStackHeight-1, entry.addr)
	}
}
