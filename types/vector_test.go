package types

import (
	"testing"

	"github.com/chewxy/math32"
)

func TestVec3Normalize(t *testing.T) {
	v := XYZ(3, 0, 4).Normalize()
	if math32.Abs(v.Len()-1) > 1e-6 {
		t.Fatalf("expected normalized vector length to be 1; got %f", v.Len())
	}

	zero := Vec3{}.Normalize()
	if zero != (Vec3{}) {
		t.Fatalf("expected normalizing the zero vector to return the zero vector; got %v", zero)
	}
}

func TestVec3Perpendicular(t *testing.T) {
	specs := []Vec3{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
		XYZ(1, 1, 1).Normalize(),
		XYZ(-0.3, 0.9, 0.1).Normalize(),
	}

	for index, v := range specs {
		p := v.Perpendicular()
		if dot := math32.Abs(p.Dot(v)); dot > 1e-6 {
			t.Fatalf("[spec %d] expected perpendicular vector; got dot product %f", index, dot)
		}
		if math32.Abs(p.Len()-1) > 1e-5 {
			t.Fatalf("[spec %d] expected unit length; got %f", index, p.Len())
		}
	}
}

func TestMaxAxis(t *testing.T) {
	if ax := XYZ(-5, 1, 2).MaxAxis(); ax != XAxis {
		t.Fatalf("expected x axis; got %d", ax)
	}
	if ax := XYZ(0, -1, 0.5).MaxAxis(); ax != YAxis {
		t.Fatalf("expected y axis; got %d", ax)
	}
	if ax := XYZ(0, 0, 0.1).MaxAxis(); ax != ZAxis {
		t.Fatalf("expected z axis; got %d", ax)
	}
}

func TestBBoxHalfArea(t *testing.T) {
	b := EmptyBBox()
	if b.HalfArea() != 0 {
		t.Fatalf("expected empty box area to be 0; got %f", b.HalfArea())
	}

	b = b.Grow(XYZ(0, 0, 0)).Grow(XYZ(1, 2, 3))
	if exp := float32(1*2 + 2*3 + 1*3); b.HalfArea() != exp {
		t.Fatalf("expected half area %f; got %f", exp, b.HalfArea())
	}
}
