package tracer

import (
	"fmt"
	"math/rand"

	"github.com/achilleasa/bihtrace/accel"
	"github.com/achilleasa/bihtrace/geom"
	"github.com/achilleasa/bihtrace/scene"
	"github.com/achilleasa/bihtrace/types"
)

// Mode selects how an engine traces primary rays.
type Mode uint8

const (
	// Trace each pixel on its own.
	ScalarMode Mode = iota

	// Trace tiles of pixels as ray packets.
	PacketMode
)

// Packet mode traces square tiles with this many pixels per side.
const tileSize = geom.MaxPacketRays / 8

func (m Mode) String() string {
	switch m {
	case ScalarMode:
		return "scalar"
	case PacketMode:
		return "packet"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// Parse a trace mode name.
func ParseMode(name string) (Mode, error) {
	switch name {
	case "scalar":
		return ScalarMode, nil
	case "packet":
		return PacketMode, nil
	default:
		return ScalarMode, fmt.Errorf("tracer: unknown trace mode %q", name)
	}
}

// Ray counters collected by an engine.
type Counters struct {
	PrimaryRays   uint64
	ShadowRays    uint64
	SecondaryRays uint64
	Packets       uint64
}

// Add another set of counters.
func (c *Counters) Add(other Counters) {
	c.PrimaryRays += other.PrimaryRays
	c.ShadowRays += other.ShadowRays
	c.SecondaryRays += other.SecondaryRays
	c.Packets += other.Packets
}

// Pending shadow rays for every shader slot of a single light.
type shadowSlots [geom.MaxPacketRays][geom.SoftShadowSamples]geom.Ray

// Locates a ray collected into a batch.
type rayRef struct {
	slot   int
	set    int
	sample int
}

// Scratch space for one level of packet recursion.
type packetFrame struct {
	rays    [geom.MaxPacketRays]geom.Ray
	packet  [geom.MaxPacketSize]geom.PacketRay
	prims   [geom.MaxPacketRays]int32
	hits    [geom.MaxPacketRays]geom.Hit
	normals [geom.MaxPacketRays]types.Vec3
	colors  [geom.MaxPacketRays]types.Color

	reflect [geom.MaxPacketRays]scene.SecondaryRays
	refract [geom.MaxPacketRays]scene.SecondaryRays

	batch       [geom.MaxPacketRays]geom.Ray
	batchColors [geom.MaxPacketRays]types.Color
	refs        [geom.MaxPacketRays]rayRef
	closer      [geom.MaxPacketSize]geom.LaneMask
}

// Engine traces rays through an index and shades them. The index, store,
// lights and camera are shared and must not be modified while tracing;
// everything else is private scratch space so each goroutine needs its own
// engine (see Clone).
type Engine struct {
	index  accel.Index
	store  *scene.Store
	lights []*scene.Light
	camera *scene.Camera

	// Soft shadow samples requested per light.
	samples int

	// Shadow rays requested by the shader in each slot, per light.
	pending      []shadowSlots
	pendingCount [][geom.MaxPacketRays]int

	// The slot of the hit currently being shaded.
	shaderNr int

	rng      *rand.Rand
	counters Counters

	// Packet scratch indexed by recursion depth.
	frames []*packetFrame
	depth  int
}

// Create an engine for a scene and an index built over the scene store.
func NewEngine(sc *scene.Scene, idx accel.Index, samples int, seed int64) (*Engine, error) {
	if sc == nil {
		return nil, ErrNoSceneData
	}
	if sc.Camera == nil {
		return nil, scene.ErrNoCamera
	}
	if idx == nil {
		return nil, ErrNoIndex
	}
	if idx.Store() != sc.Store {
		return nil, ErrIndexMismatch
	}
	if samples < 1 || samples > geom.SoftShadowSamples {
		return nil, fmt.Errorf("tracer: shadow samples must be in [1, %d]; got %d", geom.SoftShadowSamples, samples)
	}

	e := &Engine{
		index:   idx,
		samples: samples,
		rng:     rand.New(rand.NewSource(seed)),
	}
	e.setScene(sc)
	return e, nil
}

func (e *Engine) setScene(sc *scene.Scene) {
	e.store = sc.Store
	e.lights = sc.Lights
	e.camera = sc.Camera
	if len(e.pending) != len(e.lights) {
		e.pending = make([]shadowSlots, len(e.lights))
		e.pendingCount = make([][geom.MaxPacketRays]int, len(e.lights))
	}
}

// Create an engine that shares the scene and index with e but owns a
// fresh copy of every scratch buffer.
func (e *Engine) Clone(seed int64) *Engine {
	clone := &Engine{
		index:        e.index,
		store:        e.store,
		lights:       e.lights,
		camera:       e.camera,
		samples:      e.samples,
		pending:      make([]shadowSlots, len(e.pending)),
		pendingCount: make([][geom.MaxPacketRays]int, len(e.pendingCount)),
		rng:          rand.New(rand.NewSource(seed)),
	}
	copy(clone.pending, e.pending)
	copy(clone.pendingCount, e.pendingCount)
	return clone
}

// Replace the camera.
func (e *Engine) SetCamera(camera *scene.Camera) {
	e.camera = camera
}

// Replace the index. It must be built over the engine's store.
func (e *Engine) SetIndex(idx accel.Index) error {
	if idx.Store() != e.store {
		return ErrIndexMismatch
	}
	e.index = idx
	return nil
}

// The engine's camera.
func (e *Engine) Camera() *scene.Camera {
	return e.camera
}

// Get the ray counters.
func (e *Engine) Counters() Counters {
	return e.counters
}

// Reset the ray counters.
func (e *Engine) ResetCounters() {
	e.counters = Counters{}
}

// The scene lights.
func (e *Engine) Lights() []*scene.Light {
	return e.lights
}

// The engine's private random source.
func (e *Engine) Rand() *rand.Rand {
	return e.rng
}

// Request shadow rays from the destination of r towards a light. The rays
// are stored in the current shader slot and resolved before shading.
func (e *Engine) GenerateRaysToLight(r *geom.Ray, _ geom.Hit, light int) {
	origin := r.OffsetStart(1)
	n := r.ShadowSamples(e.samples)
	e.pendingCount[light][e.shaderNr] = e.lights[light].FindRays(e.pending[light][e.shaderNr][:n], origin, n, e.rng)
}

// Get the resolved shadow ray for a light in the current shader slot. Its
// magnitude holds the fraction of shadow rays that reached the light.
func (e *Engine) Illumination(light int) *geom.Ray {
	return &e.pending[light][e.shaderNr][0]
}

func (e *Engine) clearSlot(slot int) {
	for l := range e.pendingCount {
		e.pendingCount[l][slot] = 0
	}
}

// Resolve the shadow rays of a slot one by one.
func (e *Engine) resolveShadows(slot int) {
	for l := range e.pending {
		count := e.pendingCount[l][slot]
		if count == 0 {
			continue
		}

		rays := e.pending[l][slot][:count]
		visible := 0
		for i := range rays {
			if !e.index.FoundNearer(&rays[i], rays[i].Length) {
				visible++
			}
		}
		e.counters.ShadowRays += uint64(count)
		rays[0].Magnitude = float32(visible) / float32(count)
	}
}

// Trace a single ray and return its color. The ray length is set to the
// distance of the nearest hit.
func (e *Engine) RayTrace(r *geom.Ray) types.Color {
	var hit geom.Hit
	id := e.index.FindNearest(r, &hit)
	if id == accel.NoHit {
		return e.camera.Shade(r)
	}

	r.CalculateDestination(hit.D)
	tri := e.store.Primitive(id)

	var reflect, refract scene.SecondaryRays
	e.shaderNr = 0
	e.clearSlot(0)
	n := tri.GenerateRays(e, r, hit, &reflect, &refract)
	e.resolveShadows(0)

	e.shaderNr = 0
	c := tri.Shade(e, r, n, hit)

	for i := 0; i < reflect.Count; i++ {
		reflect.Colors[i] = e.RayTrace(&reflect.Rays[i])
	}
	for i := 0; i < refract.Count; i++ {
		refract.Colors[i] = e.RayTrace(&refract.Rays[i])
	}
	e.counters.SecondaryRays += uint64(reflect.Count + refract.Count)

	return tri.CombineSecondaryRays(e, c, &reflect, &refract)
}

func (e *Engine) frame() *packetFrame {
	for len(e.frames) <= e.depth {
		e.frames = append(e.frames, &packetFrame{})
	}
	return e.frames[e.depth]
}

// Trace up to geom.MaxPacketRays rays as a packet and write their colors to
// out. Shadow and secondary rays are batched across the packet; batches
// that do not fill a lane group are traced one ray at a time. The result
// for every ray matches RayTrace when no randomness is involved.
func (e *Engine) RayTracePacket(rays []geom.Ray, out []types.Color) {
	if len(rays) > geom.MaxPacketRays {
		panic(fmt.Sprintf("tracer: packet of %d rays exceeds the maximum of %d", len(rays), geom.MaxPacketRays))
	}
	if len(rays) == 0 {
		return
	}

	f := e.frame()
	e.depth++
	defer func() { e.depth-- }()

	n := copy(f.rays[:], rays)
	groups := geom.PackRays(f.rays[:n], f.packet[:])
	e.index.FindNearestPacket(f.packet[:groups], f.prims[:], f.hits[:])
	e.counters.Packets++

	// Request shadow and secondary rays for every hit
	for slot := 0; slot < n; slot++ {
		f.reflect[slot].Reset()
		f.refract[slot].Reset()
		e.clearSlot(slot)
		if f.prims[slot] == accel.NoHit {
			continue
		}

		f.rays[slot].CalculateDestination(f.hits[slot].D)
		e.shaderNr = slot
		f.normals[slot] = e.store.Primitive(f.prims[slot]).GenerateRays(e, &f.rays[slot], f.hits[slot], &f.reflect[slot], &f.refract[slot])
	}

	for l := range e.pending {
		e.resolvePacketShadows(f, l, n)
	}

	for slot := 0; slot < n; slot++ {
		if f.prims[slot] == accel.NoHit {
			f.colors[slot] = e.camera.Shade(&f.rays[slot])
			continue
		}
		e.shaderNr = slot
		f.colors[slot] = e.store.Primitive(f.prims[slot]).Shade(e, &f.rays[slot], f.normals[slot], f.hits[slot])
	}

	e.tracePacketSecondaryRays(f, n)

	for slot := 0; slot < n; slot++ {
		if f.prims[slot] == accel.NoHit {
			out[slot] = f.colors[slot]
			continue
		}
		out[slot] = e.store.Primitive(f.prims[slot]).CombineSecondaryRays(e, f.colors[slot], &f.reflect[slot], &f.refract[slot])
	}
}

// Resolve the pending shadow rays of a light for every slot in the frame.
func (e *Engine) resolvePacketShadows(f *packetFrame, light, n int) {
	var visible [geom.MaxPacketRays]int

	batched := 0
	flush := func() {
		e.occlusionBatch(f, batched)
		for i := 0; i < batched; i++ {
			if f.closer[i/geom.LaneWidth].Has(i % geom.LaneWidth) {
				continue
			}
			visible[f.refs[i].slot]++
		}
		e.counters.ShadowRays += uint64(batched)
		batched = 0
	}

	for slot := 0; slot < n; slot++ {
		for sample := 0; sample < e.pendingCount[light][slot]; sample++ {
			f.batch[batched] = e.pending[light][slot][sample]
			f.refs[batched] = rayRef{slot: slot, sample: sample}
			batched++
			if batched == geom.MaxPacketRays {
				flush()
			}
		}
	}
	if batched > 0 {
		flush()
	}

	for slot := 0; slot < n; slot++ {
		if count := e.pendingCount[light][slot]; count > 0 {
			e.pending[light][slot][0].Magnitude = float32(visible[slot]) / float32(count)
		}
	}
}

// Run occlusion queries for the first count rays of the frame batch and
// store the results in the frame closer masks. Full lane groups are traced
// as a packet and the remainder ray by ray.
func (e *Engine) occlusionBatch(f *packetFrame, count int) {
	packed := count - count%geom.LaneWidth
	if packed > 0 {
		groups := geom.PackRays(f.batch[:packed], f.packet[:])
		e.index.FoundNearerPacket(f.packet[:groups], f.closer[:])
		e.counters.Packets++
	}

	for i := packed; i < count; i++ {
		g, lane := i/geom.LaneWidth, i%geom.LaneWidth
		if lane == 0 {
			f.closer[g] = 0
		}
		if e.index.FoundNearer(&f.batch[i], f.batch[i].Length) {
			f.closer[g] |= 1 << uint(lane)
		}
	}
}

// Trace the reflection and refraction rays of every slot in the frame.
func (e *Engine) tracePacketSecondaryRays(f *packetFrame, n int) {
	sets := [2]*[geom.MaxPacketRays]scene.SecondaryRays{&f.reflect, &f.refract}

	batched := 0
	flush := func() {
		packed := batched - batched%geom.LaneWidth
		if packed > 0 {
			e.RayTracePacket(f.batch[:packed], f.batchColors[:packed])
		}
		for i := packed; i < batched; i++ {
			f.batchColors[i] = e.RayTrace(&f.batch[i])
		}

		for i := 0; i < batched; i++ {
			ref := f.refs[i]
			sets[ref.set][ref.slot].Colors[ref.sample] = f.batchColors[i]
		}
		e.counters.SecondaryRays += uint64(batched)
		batched = 0
	}

	for slot := 0; slot < n; slot++ {
		for set := range sets {
			s := &sets[set][slot]
			for i := 0; i < s.Count; i++ {
				f.batch[batched] = s.Rays[i]
				f.refs[batched] = rayRef{slot: slot, set: set, sample: i}
				batched++
				if batched == geom.MaxPacketRays {
					flush()
				}
			}
		}
	}
	if batched > 0 {
		flush()
	}
}

// Trace the primary ray through pixel (x, y).
func (e *Engine) TracePixel(x, y uint32) types.Color {
	r := e.camera.PixelToRay(x, y)
	e.counters.PrimaryRays++
	return e.RayTrace(&r)
}

// Render frame rows [y0, y1) into the camera frame buffer.
func (e *Engine) TraceRows(y0, y1 uint32, mode Mode) {
	frameW, _ := e.camera.FrameSize()

	if mode == ScalarMode {
		for y := y0; y < y1; y++ {
			for x := uint32(0); x < frameW; x++ {
				e.camera.SetPixel(e.TracePixel(x, y), x, y)
			}
		}
		return
	}

	var rays [geom.MaxPacketRays]geom.Ray
	var colors [geom.MaxPacketRays]types.Color
	for ty := y0; ty < y1; ty += tileSize {
		tileH := min(tileSize, y1-ty)
		for tx := uint32(0); tx < frameW; tx += tileSize {
			tileW := min(tileSize, frameW-tx)

			n := 0
			for y := ty; y < ty+tileH; y++ {
				for x := tx; x < tx+tileW; x++ {
					rays[n] = e.camera.PixelToRay(x, y)
					n++
				}
			}
			e.counters.PrimaryRays += uint64(n)
			e.RayTracePacket(rays[:n], colors[:n])

			n = 0
			for y := ty; y < ty+tileH; y++ {
				for x := tx; x < tx+tileW; x++ {
					e.camera.SetPixel(colors[n], x, y)
					n++
				}
			}
		}
	}
}
