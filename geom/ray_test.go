package geom

import (
	"math/rand"
	"testing"

	"github.com/achilleasa/bihtrace/types"
	"github.com/chewxy/math32"
)

func approxEqual(a, b, tol float32) bool {
	return math32.Abs(a-b) <= tol
}

func vecApproxEqual(a, b types.Vec3, tol float32) bool {
	return approxEqual(a[0], b[0], tol) && approxEqual(a[1], b[1], tol) && approxEqual(a[2], b[2], tol)
}

func TestCalculateDestination(t *testing.T) {
	r := NewRay(types.XYZ(1, 2, 3), types.XYZ(0, 0, 2))
	dst := r.CalculateDestination(5)

	if exp := types.XYZ(1, 2, 8); dst != exp || r.Dst != exp {
		t.Fatalf("expected destination %v; got %v", exp, dst)
	}
	if r.Length != 5 {
		t.Fatalf("expected length 5; got %f", r.Length)
	}
}

func TestNewRayTo(t *testing.T) {
	r := NewRayTo(types.XYZ(0, 0, 0), types.XYZ(0, 3, 4))
	if r.Length != 5 {
		t.Fatalf("expected length 5; got %f", r.Length)
	}
	if !vecApproxEqual(r.Dir, types.XYZ(0, 0.6, 0.8), 1e-6) {
		t.Fatalf("expected normalized direction; got %v", r.Dir)
	}
}

func TestReflect(t *testing.T) {
	r := NewRay(types.XYZ(0, 1, 0), types.XYZ(1, -1, 0))
	r.CalculateDestination(math32.Sqrt(2))

	var out [MaxSecondaryRays]Ray
	n := r.Reflect(out[:], types.XYZ(0, 1, 0), 0.5, 0, nil)
	if n != 1 {
		t.Fatalf("expected 1 reflected ray; got %d", n)
	}

	exp := types.XYZ(1, 1, 0).Normalize()
	if !vecApproxEqual(out[0].Dir, exp, 1e-6) {
		t.Fatalf("expected reflected direction %v; got %v", exp, out[0].Dir)
	}
	if out[0].Magnitude != 0.5 {
		t.Fatalf("expected magnitude 0.5; got %f", out[0].Magnitude)
	}
	if out[0].Component != 1 {
		t.Fatalf("expected component 1; got %d", out[0].Component)
	}
	if out[0].Origin[1] <= 0 {
		t.Fatalf("expected reflected ray origin above the surface; got %v", out[0].Origin)
	}
}

func TestReflectEnergyCutoff(t *testing.T) {
	r := NewRay(types.XYZ(0, 1, 0), types.XYZ(0, -1, 0))
	r.CalculateDestination(1)
	r.Magnitude = 0.2

	var out [MaxSecondaryRays]Ray
	if n := r.Reflect(out[:], types.XYZ(0, 1, 0), 0.5, 0, nil); n != 0 {
		t.Fatalf("expected no rays below the reflective power threshold; got %d", n)
	}
	if n := r.Refract(out[:], types.XYZ(0, 1, 0), 0.5, 1.5, OutIn, 0, nil); n != 0 {
		t.Fatalf("expected no rays below the reflective power threshold; got %d", n)
	}
}

func TestReflectCoefficientIsClamped(t *testing.T) {
	r := NewRay(types.XYZ(0, 1, 0), types.XYZ(0, -1, 0))
	r.CalculateDestination(1)

	var out [MaxSecondaryRays]Ray
	r.Reflect(out[:], types.XYZ(0, 1, 0), 3, 0, nil)
	if out[0].Magnitude != MaxCoefficient {
		t.Fatalf("expected magnitude to be clamped to %f; got %f", MaxCoefficient, out[0].Magnitude)
	}
}

func TestDiffuseReflection(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	r := NewRay(types.XYZ(0, 1, 0), types.XYZ(0, -1, 0))
	r.CalculateDestination(1)

	var out [MaxSecondaryRays]Ray
	n := r.Reflect(out[:], types.XYZ(0, 1, 0), 0.9, 0.2, rng)
	if n != DiffuseReflections {
		t.Fatalf("expected %d diffuse rays; got %d", DiffuseReflections, n)
	}
	for i := 0; i < n; i++ {
		if out[i].Component != 4 {
			t.Fatalf("expected component 4; got %d", out[i].Component)
		}
		if math32.Abs(out[i].Dir.Len()-1) > 1e-5 {
			t.Fatalf("expected unit direction; got length %f", out[i].Dir.Len())
		}
		if out[i].Dir[1] <= 0 {
			t.Fatalf("expected ray %d to leave the surface; got %v", i, out[i].Dir)
		}
	}

	// A ray with a large component only emits one ray
	r.Component = 16
	n = r.Reflect(out[:], types.XYZ(0, 1, 0), 0.9, 0.2, rng)
	if n != 1 {
		t.Fatalf("expected 1 diffuse ray; got %d", n)
	}
	if out[0].Component != 64 {
		t.Fatalf("expected component 64; got %d", out[0].Component)
	}
}

func TestRefract(t *testing.T) {
	var out [MaxSecondaryRays]Ray

	// Head-on rays pass straight through
	r := NewRay(types.XYZ(0, 1, 0), types.XYZ(0, -1, 0))
	r.CalculateDestination(1)
	if n := r.Refract(out[:], types.XYZ(0, 1, 0), 0.5, 1.5, OutIn, 0, nil); n != 1 {
		t.Fatalf("expected 1 refracted ray; got %d", n)
	}
	if !vecApproxEqual(out[0].Dir, types.XYZ(0, -1, 0), 1e-6) {
		t.Fatalf("expected undeflected direction; got %v", out[0].Dir)
	}
	if out[0].Origin[1] >= 0 {
		t.Fatalf("expected refracted ray origin below the surface; got %v", out[0].Origin)
	}

	// Entering a denser medium bends towards the normal
	r = NewRay(types.XYZ(-1, 1, 0), types.XYZ(1, -1, 0))
	r.CalculateDestination(math32.Sqrt(2))
	r.Refract(out[:], types.XYZ(0, 1, 0), 0.5, 1.5, OutIn, 0, nil)
	sinI := math32.Sqrt(0.5)
	sinT := out[0].Dir[0]
	if !approxEqual(sinT, sinI/1.5, 1e-5) {
		t.Fatalf("expected sin of refracted angle %f; got %f", sinI/1.5, sinT)
	}
}

func TestTotalInternalReflection(t *testing.T) {
	var out [MaxSecondaryRays]Ray

	// Leaving glass at 60 degrees exceeds the critical angle (~41.8 degrees)
	dir := types.XYZ(math32.Sin(math32.Pi/3), math32.Cos(math32.Pi/3), 0)
	r := NewRay(dir.Mul(-1), dir)
	r.CalculateDestination(1)

	if n := r.Refract(out[:], types.XYZ(0, 1, 0), 0.9, 1.5, InOut, 0, nil); n != 0 {
		t.Fatalf("expected total internal reflection to emit 0 rays; got %d", n)
	}

	// Below the critical angle a ray is emitted
	dir = types.XYZ(math32.Sin(math32.Pi/9), math32.Cos(math32.Pi/9), 0)
	r = NewRay(dir.Mul(-1), dir)
	r.CalculateDestination(1)
	if n := r.Refract(out[:], types.XYZ(0, 1, 0), 0.9, 1.5, InOut, 0, nil); n != 1 {
		t.Fatalf("expected 1 refracted ray; got %d", n)
	}
}

func TestBoundedFanOut(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	// Bounce a ray between two facing mirrors with both reflection and
	// diffuse refraction until the energy cutoff stops it.
	var emitted int
	var trace func(r Ray, depth int)
	trace = func(r Ray, depth int) {
		if depth > 200 {
			t.Fatalf("expected recursion to terminate; reached depth %d", depth)
		}
		r.CalculateDestination(1)
		n := types.XYZ(0, 0, -1)
		if r.Dir[2] < 0 {
			n = types.XYZ(0, 0, 1)
		}

		var rl, rf [MaxSecondaryRays]Ray
		nl := r.Reflect(rl[:], n, 0.6, 0, rng)
		nf := r.Refract(rf[:], n, 0.4, 1.0, OutIn, 0.1, rng)
		emitted += nl + nf
		for i := 0; i < nl; i++ {
			trace(rl[i], depth+1)
		}
		for i := 0; i < nf; i++ {
			trace(rf[i], depth+1)
		}
	}
	trace(NewRay(types.XYZ(0, 0, 0), types.XYZ(0, 0, 1)), 0)

	if emitted == 0 || emitted > 100000 {
		t.Fatalf("expected a bounded, non-zero number of secondary rays; got %d", emitted)
	}
}

func TestShadowSamples(t *testing.T) {
	r := NewRay(types.XYZ(0, 0, 0), types.XYZ(0, 0, 1))
	if n := r.ShadowSamples(8); n != 8 {
		t.Fatalf("expected 8 samples; got %d", n)
	}
	if n := r.ShadowSamples(1000); n != SoftShadowSamples {
		t.Fatalf("expected samples to be clamped to %d; got %d", SoftShadowSamples, n)
	}
	r.Component = 64
	if n := r.ShadowSamples(16); n != 1 {
		t.Fatalf("expected at least 1 sample; got %d", n)
	}
}
