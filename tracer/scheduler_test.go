package tracer

import (
	"reflect"
	"testing"
	"time"
)

func TestNaiveScheduler(t *testing.T) {
	type spec struct {
		speeds  []uint32
		frameH  uint32
		expRows []uint32
	}
	specs := []spec{
		{[]uint32{1, 2}, 10, []uint32{4, 6}},
		{[]uint32{2, 1}, 10, []uint32{7, 3}},
		{[]uint32{1, 1000}, 10, []uint32{1, 9}},
		// Zero speeds split the frame evenly
		{[]uint32{0, 0}, 10, []uint32{5, 5}},
		// A zero speed tracer still gets a row
		{[]uint32{0, 4}, 10, []uint32{1, 9}},
		// Fewer rows than tracers; the slowest tracers give up their rows
		{[]uint32{10, 1, 1}, 2, []uint32{1, 0, 1}},
		{[]uint32{1, 2, 3, 10}, 2, []uint32{0, 0, 1, 1}},
		{[]uint32{1, 2, 3, 4, 5}, 3, []uint32{0, 0, 1, 1, 1}},
		{[]uint32{3}, 0, []uint32{0}},
		{[]uint32{}, 10, []uint32{}},
	}

	for index, s := range specs {
		blockAssignment := NaiveScheduler().Schedule(mockTracers(s.speeds...), s.frameH)
		if !reflect.DeepEqual(normalize(blockAssignment), normalize(s.expRows)) {
			t.Fatalf("[spec %d] expected block assignment %v; got %v", index, s.expRows, blockAssignment)
		}
	}
}

func TestPerfectScheduler(t *testing.T) {
	type spec struct {
		blockH  []uint32
		rTime   []time.Duration
		expRows []uint32
	}
	specs := []spec{
		// First call uses the tracer speeds
		{nil, nil, []uint32{5, 5}},
		// Later calls use the render times of the previous frame
		{nil, []time.Duration{1, 5}, []uint32{9, 1}},
		{nil, []time.Duration{5, 1}, []uint32{7, 3}},
		// A tracer that rendered nothing last frame gets a row back
		{[]uint32{10, 0}, []time.Duration{1, 1}, []uint32{9, 1}},
		// Without any feedback the frame is split evenly
		{[]uint32{0, 0}, []time.Duration{0, 0}, []uint32{5, 5}},
	}

	tracers := mockTracers(1, 1)
	sch := PerfectScheduler()
	for index, s := range specs {
		for idx, tr := range tracers {
			stats := tr.Stats()
			if s.blockH != nil {
				stats.BlockH = s.blockH[idx]
			}
			if s.rTime != nil {
				stats.RenderTime = s.rTime[idx]
			}
		}

		blockAssignment := sch.Schedule(tracers, 10)
		if !reflect.DeepEqual(blockAssignment, s.expRows) {
			t.Fatalf("[spec %d] expected block assignment %v; got %v", index, s.expRows, blockAssignment)
		}

		for idx, tr := range tracers {
			tr.Stats().BlockH = blockAssignment[idx]
		}
	}
}

func TestSchedulersCoverFrame(t *testing.T) {
	speeds := []uint32{7, 0, 3, 3, 1, 12}
	for _, frameH := range []uint32{1, 5, 6, 17, 480} {
		for name, sch := range map[string]BlockScheduler{"naive": NaiveScheduler(), "perfect": PerfectScheduler()} {
			var total uint32
			for _, rows := range sch.Schedule(mockTracers(speeds...), frameH) {
				total += rows
			}
			if total != frameH {
				t.Fatalf("[%s] expected assignments to add up to %d rows; got %d", name, frameH, total)
			}
		}
	}
}

// Treat nil and empty assignments as equal.
func normalize(rows []uint32) []uint32 {
	if len(rows) == 0 {
		return nil
	}
	return rows
}

type mockTracer struct {
	id    string
	speed uint32
	stats Stats
}

func mockTracers(speeds ...uint32) []Tracer {
	tracers := make([]Tracer, len(speeds))
	for idx, speed := range speeds {
		tracers[idx] = &mockTracer{id: "mock", speed: speed}
	}
	return tracers
}

func (mt *mockTracer) Id() string                         { return mt.id }
func (mt *mockTracer) Flags() Flag                        { return Local }
func (mt *mockTracer) Speed() uint32                      { return mt.speed }
func (mt *mockTracer) Init(_, _ uint32) error             { return nil }
func (mt *mockTracer) Close()                             {}
func (mt *mockTracer) Enqueue(_ BlockRequest)             {}
func (mt *mockTracer) Update(_ UpdateType, _ interface{}) {}
func (mt *mockTracer) Stats() *Stats                      { return &mt.stats }
