package tracer

import "math"

// The BlockScheduler interface is implemented by all block scheduling algorithms.
type BlockScheduler interface {
	// Split frame into blocks of variable height and assign to the pool
	// of tracers using feedback collected from previous frames.
	//
	// This function returns the block height assignment for each tracer
	// in the input list.
	Schedule(tracers []Tracer, frameH uint32) []uint32
}

// The naive scheduler splits the frame proportionally to each tracer's
// speed estimate.
type naiveScheduler struct {
	blockAssignment []uint32
}

// Create a new naive scheduler instance.
func NaiveScheduler() BlockScheduler {
	return &naiveScheduler{}
}

func (sch *naiveScheduler) Schedule(tracers []Tracer, frameH uint32) []uint32 {
	if len(sch.blockAssignment) != len(tracers) {
		sch.blockAssignment = make([]uint32, len(tracers))
	}
	assignBySpeed(tracers, frameH, sch.blockAssignment)
	return sch.blockAssignment
}

// The perfect scheduler assumes that the volume of tracing work between two
// subsequent frames is approximately the same.
type perfectScheduler struct {
	blockAssignment []uint32
}

// Create a new perfect scheduler instance.
func PerfectScheduler() BlockScheduler {
	return &perfectScheduler{}
}

// Split frame into blocks of variable height and assign to the pool
// of tracers using feedback collected from previous frames.
//
// This function returns the block height assignment for each tracer in the
// input list. When previous frame information is available the scheduler
// uses the following formula for estimating the workload for tracer w and frame i+1:
// w_i, f_i+1 = (blockH,w_i / time,w_i) / Σ(blockH_i-1 / time,i-1)
func (sch *perfectScheduler) Schedule(tracers []Tracer, frameH uint32) []uint32 {
	// If this is the first time we try to schedule or the number of tracers
	// has changed we need to reset the block assignments
	if len(sch.blockAssignment) != len(tracers) {
		sch.blockAssignment = make([]uint32, len(tracers))
		assignBySpeed(tracers, frameH, sch.blockAssignment)
		return sch.blockAssignment
	}

	// Use last frame statistics
	weights := make([]float64, len(tracers))
	for idx, tr := range tracers {
		weights[idx] = rowsPerNanosecond(tr.Stats())
	}

	assignByWeight(weights, frameH, sch.blockAssignment)
	return sch.blockAssignment
}

func rowsPerNanosecond(stats *Stats) float64 {
	renderTime := stats.RenderTime
	if renderTime <= 0 {
		renderTime = 1
	}
	return float64(stats.BlockH) / float64(renderTime)
}

// Distribute rows proportionally to each tracer's speed.
func assignBySpeed(tracers []Tracer, frameH uint32, blockAssignment []uint32) {
	weights := make([]float64, len(tracers))
	for idx, tr := range tracers {
		weights[idx] = float64(tr.Speed())
	}

	assignByWeight(weights, frameH, blockAssignment)
}

// Distribute rows proportionally to weights. Every tracer gets at least one
// row unless there are fewer rows than tracers. If all weights are zero the
// rows are split evenly.
func assignByWeight(weights []float64, frameH uint32, blockAssignment []uint32) {
	if len(weights) == 0 {
		return
	}

	var total float64
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		for idx := range weights {
			weights[idx] = 1
		}
		total = float64(len(weights))
	}

	scaler := float64(frameH) / total
	for idx, w := range weights {
		blockAssignment[idx] = uint32(math.Max(1.0, math.Floor(w*scaler)))
	}

	balance(blockAssignment, weights, frameH)
}

// Make the assignments add up to the frame height. Missing rows go to the
// first tracer. Extra rows are taken from the largest blocks; among equally
// sized blocks the one with the lowest weight gives up a row first.
func balance(blockAssignment []uint32, weights []float64, frameH uint32) {
	var scheduledRows uint32
	for _, rows := range blockAssignment {
		scheduledRows += rows
	}

	if scheduledRows <= frameH {
		blockAssignment[0] += frameH - scheduledRows
		return
	}

	for ; scheduledRows > frameH; scheduledRows-- {
		victim := 0
		for idx, rows := range blockAssignment {
			if rows > blockAssignment[victim] ||
				(rows == blockAssignment[victim] && weights[idx] < weights[victim]) {
				victim = idx
			}
		}
		if blockAssignment[victim] == 0 {
			return
		}
		blockAssignment[victim]--
	}
}
