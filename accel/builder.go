package accel

import (
	"fmt"
	"sort"
	"time"

	"github.com/achilleasa/bihtrace/log"
	"github.com/achilleasa/bihtrace/scene"
	"github.com/achilleasa/bihtrace/types"
	"github.com/chewxy/math32"
)

const (
	// The default maximum number of primitives in a leaf.
	DefaultLeafSize = 5

	// The default maximum tree depth.
	DefaultMaxDepth = 64

	// The default number of SAH bins per axis.
	DefaultSplitBins = 16

	// Upper bounds for build options.
	maxLeafSizeLimit = 64
	maxSplitBins     = 256

	// Ranges with at least this many primitives have their split axes
	// scored in parallel.
	parallelScoreThreshold = 1024
)

// BuildOptions control BIH construction.
type BuildOptions struct {
	// Ranges with at most this many primitives become leaves.
	MaxLeafSize int

	// Nodes at this depth become leaves regardless of their size.
	MaxDepth int

	// The number of bins used for evaluating SAH split candidates.
	SplitBins int
}

// Get the default build options.
func DefaultBuildOptions() BuildOptions {
	return BuildOptions{
		MaxLeafSize: DefaultLeafSize,
		MaxDepth:    DefaultMaxDepth,
		SplitBins:   DefaultSplitBins,
	}
}

// Check build options.
func (o BuildOptions) Validate() error {
	if o.MaxLeafSize < 1 || o.MaxLeafSize > maxLeafSizeLimit {
		return fmt.Errorf("accel: max leaf size must be in [1, %d]; got %d", maxLeafSizeLimit, o.MaxLeafSize)
	}
	if o.MaxDepth < 1 || o.MaxDepth >= MaxStackHeight {
		return fmt.Errorf("accel: max depth must be in [1, %d); got %d", MaxStackHeight, o.MaxDepth)
	}
	if o.SplitBins < 2 || o.SplitBins > maxSplitBins {
		return fmt.Errorf("accel: split bins must be in [2, %d]; got %d", maxSplitBins, o.SplitBins)
	}
	return nil
}

// BuildStats summarizes a BIH build.
type BuildStats struct {
	Primitives   int
	GenericNodes int
	Leaves       int
	EmptyLeaves  int
	MaxLeafSize  int
	AvgLeafSize  float32
	MaxDepth     int
	Blocks       int
	BuildTime    time.Duration
}

// A scored split candidate: split after the given bin along axis.
type splitScore struct {
	axis  types.Axis
	bin   int
	score float32
	valid bool
}

// The split chosen for a range.
type split struct {
	axis       types.Axis
	mid        int
	leftSplit  float32
	rightSplit float32
}

// A generic level-2 slot waiting for its child blocks.
type pendingNode struct {
	begin, mid, end int
	depth           int
}

type builder struct {
	logger log.Logger

	store *scene.Store
	opts  BuildOptions

	// Blocks stored as a contiguous list.
	blocks []Block

	// Cached primitive bounds and centroids indexed by primitive id.
	bboxes  []types.BBox
	centers []types.Vec3

	// A channel for receiving axis scores.
	scoreChan chan splitScore

	stats            BuildStats
	partitionedItems int
}

// Build a BIH over the primitives of store. The store indirection array is
// reordered in place.
//
// Splits are chosen with a binned surface area heuristic:
// score = left count * left half area + right count * right half area.
// When every candidate leaves a side empty the range is split at its
// object median so every level strictly shrinks the range. Invalid options
// and range invariant violations panic.
func BuildBIH(store *scene.Store, opts BuildOptions) *BIH {
	if err := opts.Validate(); err != nil {
		panic(err.Error())
	}

	b := &builder{
		logger:    log.New("bih builder"),
		store:     store,
		opts:      opts,
		blocks:    make([]Block, 1, 1+store.Len()/2),
		bboxes:    make([]types.BBox, store.Len()),
		centers:   make([]types.Vec3, store.Len()),
		scoreChan: make(chan splitScore, 3),
		stats: BuildStats{
			Primitives: store.Len(),
		},
	}

	for id := range b.bboxes {
		tri := store.Primitive(int32(id))
		b.bboxes[id] = tri.BBox()
		b.centers[id] = tri.Center()
	}

	start := time.Now()
	b.buildBlock(0, 0, store.Len(), 0)

	if b.partitionedItems != store.Len() {
		panic(fmt.Sprintf("accel: leaves cover %d primitives; expected %d", b.partitionedItems, store.Len()))
	}

	b.stats.Blocks = len(b.blocks)
	b.stats.BuildTime = time.Since(start)
	if b.stats.Leaves > 0 {
		b.stats.AvgLeafSize = float32(b.partitionedItems) / float32(b.stats.Leaves)
	}

	b.logger.Debugf(
		"BIH build time: %d ms, maxDepth: %d, nodes: %d, leafs: %d, blocks: %d",
		b.stats.BuildTime.Nanoseconds()/1e6,
		b.stats.MaxDepth, b.stats.GenericNodes, b.stats.Leaves, b.stats.Blocks,
	)

	return newBIH(store, b.blocks, b.stats)
}

// Fill the three levels of a block and then build its child blocks.
func (b *builder) buildBlock(blockIdx uint32, begin, end, depth int) {
	pending := make([]pendingNode, 0, 4)
	b.fillSlot(blockIdx, 0, begin, end, depth, &pending)
	if len(pending) == 0 {
		return
	}

	required := b.blocks[blockIdx].ChildBlocksRequired()
	if required != 2*len(pending) {
		panic(fmt.Sprintf("accel: block %d requires %d child blocks but %d level-2 nodes are pending", blockIdx, required, len(pending)))
	}

	first := uint32(len(b.blocks))
	b.blocks = append(b.blocks, make([]Block, required)...)
	b.blocks[blockIdx].SetChildBlock(NodeAddress(first, 0))

	for i, p := range pending {
		b.buildBlock(first+uint32(2*i), p.begin, p.mid, p.depth)
		b.buildBlock(first+uint32(2*i+1), p.mid, p.end, p.depth)
	}
}

// Write the node for the indirection range [begin, end) to a block slot.
// Generic level-2 slots are appended to pending.
func (b *builder) fillSlot(blockIdx uint32, slot, begin, end, depth int, pending *[]pendingNode) {
	if begin < 0 || end < begin || end > len(b.store.Indirection) {
		panic(fmt.Sprintf("accel: invalid primitive range [%d, %d) for %d primitives", begin, end, len(b.store.Indirection)))
	}
	if depth > b.stats.MaxDepth {
		b.stats.MaxDepth = depth
	}

	count := end - begin
	if count <= b.opts.MaxLeafSize || depth >= b.opts.MaxDepth {
		b.blocks[blockIdx].CreateLeafNode(begin, end, slot)
		b.stats.Leaves++
		if count == 0 {
			b.stats.EmptyLeaves++
		}
		if count > b.stats.MaxLeafSize {
			b.stats.MaxLeafSize = count
		}
		b.partitionedItems += count
		return
	}

	s := b.partition(begin, end)
	if s.mid <= begin || s.mid >= end {
		panic(fmt.Sprintf("accel: split of range [%d, %d) at %d does not make progress", begin, end, s.mid))
	}

	b.blocks[blockIdx].CreateGenericNode(s.leftSplit, s.rightSplit, slot, s.axis)
	b.stats.GenericNodes++

	if slot < firstOverflowSlot {
		b.fillSlot(blockIdx, 2*slot+1, begin, s.mid, depth+1, pending)
		b.fillSlot(blockIdx, 2*slot+2, s.mid, end, depth+1, pending)
		return
	}

	*pending = append(*pending, pendingNode{begin: begin, mid: s.mid, end: end, depth: depth + 1})
}

// Choose a split for [begin, end), partition the indirection range in place
// and compute the tightest split planes.
func (b *builder) partition(begin, end int) split {
	ind := b.store.Indirection

	centroidBox := types.EmptyBBox()
	for i := begin; i < end; i++ {
		centroidBox = centroidBox.Grow(b.centers[ind[i]])
	}
	side := centroidBox.Side()

	// Score every axis with a non-zero centroid extent
	var scores [3]splitScore
	if end-begin >= parallelScoreThreshold {
		pendingScores := 0
		for axis := types.XAxis; axis <= types.ZAxis; axis++ {
			if side[axis] <= 0 {
				continue
			}
			pendingScores++
			go func(axis types.Axis) {
				b.scoreChan <- b.scoreAxis(axis, begin, end, centroidBox)
			}(axis)
		}
		for ; pendingScores > 0; pendingScores-- {
			candidate := <-b.scoreChan
			scores[candidate.axis] = candidate
		}
	} else {
		for axis := types.XAxis; axis <= types.ZAxis; axis++ {
			if side[axis] > 0 {
				scores[axis] = b.scoreAxis(axis, begin, end, centroidBox)
			}
		}
	}

	// Pick the best candidate; ties go to the lower axis
	var best *splitScore
	for axis := range scores {
		if !scores[axis].valid {
			continue
		}
		if best == nil || scores[axis].score < best.score {
			best = &scores[axis]
		}
	}

	var s split
	if best == nil {
		s = b.objectMedian(begin, end)
	} else {
		s.axis = best.axis
		scale := float32(b.opts.SplitBins) / side[best.axis]
		lo, hi := begin, end-1
		for lo <= hi {
			if binIndex(b.centers[ind[lo]][best.axis], centroidBox[0][best.axis], scale, b.opts.SplitBins) <= best.bin {
				lo++
				continue
			}
			ind[lo], ind[hi] = ind[hi], ind[lo]
			hi--
		}
		s.mid = lo
	}

	s.leftSplit = -math32.MaxFloat32
	for i := begin; i < s.mid; i++ {
		s.leftSplit = math32.Max(s.leftSplit, b.bboxes[ind[i]][1][s.axis])
	}
	s.rightSplit = math32.MaxFloat32
	for i := s.mid; i < end; i++ {
		s.rightSplit = math32.Min(s.rightSplit, b.bboxes[ind[i]][0][s.axis])
	}

	return s
}

// Score the binned SAH split candidates along an axis and return the best.
func (b *builder) scoreAxis(axis types.Axis, begin, end int, centroidBox types.BBox) splitScore {
	ind := b.store.Indirection
	bins := b.opts.SplitBins
	scale := float32(bins) / centroidBox.Side()[axis]

	counts := make([]int, bins)
	boxes := make([]types.BBox, bins)
	for i := range boxes {
		boxes[i] = types.EmptyBBox()
	}
	for i := begin; i < end; i++ {
		id := ind[i]
		bin := binIndex(b.centers[id][axis], centroidBox[0][axis], scale, bins)
		counts[bin]++
		boxes[bin] = boxes[bin].Union(b.bboxes[id])
	}

	// Sweep from the right to accumulate the right side areas
	rightArea := make([]float32, bins)
	rightCount := make([]int, bins)
	acc := types.EmptyBBox()
	n := 0
	for i := bins - 1; i > 0; i-- {
		acc = acc.Union(boxes[i])
		n += counts[i]
		rightArea[i] = acc.HalfArea()
		rightCount[i] = n
	}

	best := splitScore{axis: axis}
	acc = types.EmptyBBox()
	n = 0
	for i := 0; i < bins-1; i++ {
		acc = acc.Union(boxes[i])
		n += counts[i]
		if n == 0 || rightCount[i+1] == 0 {
			continue
		}

		score := float32(n)*acc.HalfArea() + float32(rightCount[i+1])*rightArea[i+1]
		if !best.valid || score < best.score {
			best.bin = i
			best.score = score
			best.valid = true
		}
	}

	return best
}

// Split the range at its object median along the longest axis of its
// bounds. Used when the centroids cannot be separated by binning.
func (b *builder) objectMedian(begin, end int) split {
	ind := b.store.Indirection

	box := types.EmptyBBox()
	for i := begin; i < end; i++ {
		box = box.Union(b.bboxes[ind[i]])
	}
	axis := box.Side().MaxAxis()

	r := ind[begin:end]
	sort.Slice(r, func(i, j int) bool {
		ci, cj := b.centers[r[i]][axis], b.centers[r[j]][axis]
		if ci != cj {
			return ci < cj
		}
		return r[i] < r[j]
	})

	return split{axis: axis, mid: begin + (end-begin)/2}
}

func binIndex(c, lo, scale float32, bins int) int {
	bin := int((c - lo) * scale)
	if bin < 0 {
		return 0
	}
	if bin >= bins {
		return bins - 1
	}
	return bin
}
