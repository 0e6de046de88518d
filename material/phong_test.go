package material

import (
	"math/rand"
	"testing"

	"github.com/achilleasa/bihtrace/geom"
	"github.com/achilleasa/bihtrace/scene"
	"github.com/achilleasa/bihtrace/types"
	"github.com/chewxy/math32"
)

type mockEngine struct {
	lights    []*scene.Light
	illum     []geom.Ray
	requested []int
	rng       *rand.Rand
}

func (e *mockEngine) Lights() []*scene.Light {
	return e.lights
}

func (e *mockEngine) GenerateRaysToLight(_ *geom.Ray, _ geom.Hit, light int) {
	e.requested = append(e.requested, light)
}

func (e *mockEngine) Illumination(light int) *geom.Ray {
	return &e.illum[light]
}

func (e *mockEngine) Rand() *rand.Rand {
	return e.rng
}

func TestPhongValidate(t *testing.T) {
	type spec struct {
		mat   Phong
		valid bool
	}
	specs := []spec{
		{*NewDiffuse(types.RGB(1, 0, 0)), true},
		{*NewMirror(types.RGB(1, 1, 1), 0.8, 0), true},
		{*NewGlass(1.5), true},
		{Phong{Reflect: 1.5}, false},
		{Phong{Reflect: 0.6, Refract: 0.6, RefractiveIndex: 1}, false},
		{Phong{Refract: 0.5}, false},
		{Phong{ReflectSpread: -1}, false},
	}

	for index, s := range specs {
		err := s.mat.Validate()
		if s.valid && err != nil {
			t.Fatalf("[spec %d] expected material to be valid; got %v", index, err)
		}
		if !s.valid && err == nil {
			t.Fatalf("[spec %d] expected validation error", index)
		}
	}
}

func TestPhongRequestsRaysForEveryLight(t *testing.T) {
	e := &mockEngine{
		lights: []*scene.Light{
			scene.NewPointLight(types.RGB(1, 1, 1), types.XYZ(0, 5, 0), 0),
			scene.NewPointLight(types.RGB(1, 1, 1), types.XYZ(5, 5, 0), 0),
		},
		rng: rand.New(rand.NewSource(1)),
	}

	r := geom.NewRay(types.XYZ(0, 1, 0), types.XYZ(0, -1, 0))
	r.CalculateDestination(1)
	hit := geom.Hit{D: 1, Kind: geom.OutIn}

	var rl, rf scene.SecondaryRays
	m := NewMirror(types.RGB(1, 1, 1), 0.5, 0)
	m.GenerateRays(e, &r, types.XYZ(0, 1, 0), hit, &rl, &rf)

	if len(e.requested) != 2 || e.requested[0] != 0 || e.requested[1] != 1 {
		t.Fatalf("expected shadow rays to be requested for lights [0 1]; got %v", e.requested)
	}
	if rl.Count != 1 {
		t.Fatalf("expected 1 reflection ray; got %d", rl.Count)
	}
	if rf.Count != 0 {
		t.Fatalf("expected no refraction rays; got %d", rf.Count)
	}
}

func TestPhongShadeUsesVisibleFraction(t *testing.T) {
	light := scene.NewPointLight(types.RGB(1, 1, 1), types.XYZ(0, 5, 0), 0)
	e := &mockEngine{
		lights: []*scene.Light{light},
		illum:  []geom.Ray{geom.NewRayTo(types.XYZ(0, 0, 0), types.XYZ(0, 5, 0))},
	}

	m := &Phong{Diffuse: types.RGB(1, 1, 1)}
	r := geom.NewRay(types.XYZ(0, 1, 0), types.XYZ(0, -1, 0))
	r.CalculateDestination(1)
	n := types.XYZ(0, 1, 0)

	lit := m.Shade(e, &r, n, geom.Hit{})
	if math32.Abs(lit[0]-1) > 1e-5 {
		t.Fatalf("expected fully lit diffuse term 1; got %v", lit)
	}

	e.illum[0].Magnitude = 0.25
	partial := m.Shade(e, &r, n, geom.Hit{})
	if math32.Abs(partial[0]-0.25) > 1e-5 {
		t.Fatalf("expected partially lit diffuse term 0.25; got %v", partial)
	}

	e.illum[0].Magnitude = 0
	if dark := m.Shade(e, &r, n, geom.Hit{}); dark != (types.Color{}) {
		t.Fatalf("expected shadowed point to be black; got %v", dark)
	}
}

func TestPhongCombine(t *testing.T) {
	m := &Phong{}
	var rl, rf scene.SecondaryRays
	rl.Count, rl.Coefficient = 2, 0.5
	rl.Colors[0] = types.RGB(1, 0, 0)
	rl.Colors[1] = types.RGB(0, 1, 0)
	rf.Count, rf.Coefficient = 1, 0.2
	rf.Colors[0] = types.RGB(0, 0, 1)

	c := m.Combine(nil, types.RGB(0.1, 0.1, 0.1), &rl, &rf)
	exp := types.RGB(0.35, 0.35, 0.3)
	for i := 0; i < 3; i++ {
		if math32.Abs(c[i]-exp[i]) > 1e-5 {
			t.Fatalf("expected combined color %v; got %v", exp, c)
		}
	}
}

func TestOcclusionFlags(t *testing.T) {
	if NewDiffuse(types.RGB(1, 1, 1)).IsTransparent() {
		t.Fatal("expected diffuse material to be opaque")
	}
	if !NewGlass(1.5).IsTransparent() {
		t.Fatal("expected glass to be transparent")
	}
	if !NewEmissive(types.RGB(1, 1, 1)).IsLight() {
		t.Fatal("expected emissive material to be a light")
	}
}
