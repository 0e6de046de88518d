package scene

import (
	"github.com/achilleasa/bihtrace/geom"
	"github.com/achilleasa/bihtrace/types"
)

// Determinants below this threshold belong to degenerate triangles or to
// rays parallel to the triangle plane.
const detEpsilon float32 = 1e-12

// A triangle primitive.
type Triangle struct {
	Vertices [3]types.Vec3

	// Optional per-vertex normals for smooth shading.
	Normals *[3]types.Vec3

	// The unit geometric normal. Rays travelling against it enter the surface.
	Normal types.Vec3

	// The primitive material.
	Material Material

	bbox   types.BBox
	center types.Vec3
}

// Create new triangle primitive.
func NewTriangle(vertices [3]types.Vec3, material Material) Triangle {
	tri := Triangle{
		Vertices: vertices,
		Material: material,
		bbox:     types.EmptyBBox(),
	}

	for _, v := range vertices {
		tri.bbox = tri.bbox.Grow(v)
	}
	tri.center = vertices[0].Add(vertices[1]).Add(vertices[2]).Mul(1.0 / 3.0)
	tri.Normal = vertices[1].Sub(vertices[0]).Cross(vertices[2].Sub(vertices[0])).Normalize()
	return tri
}

// Create new triangle primitive with per-vertex normals.
func NewSmoothTriangle(vertices, normals [3]types.Vec3, material Material) Triangle {
	tri := NewTriangle(vertices, material)
	for i := range normals {
		normals[i] = normals[i].Normalize()
	}
	tri.Normals = &normals
	return tri
}

// The triangle bounding box.
func (t *Triangle) BBox() types.BBox {
	return t.bbox
}

// The triangle centroid.
func (t *Triangle) Center() types.Vec3 {
	return t.center
}

// Returns true if the triangle belongs to a light.
func (t *Triangle) IsLight() bool {
	return t.Material != nil && t.Material.IsLight()
}

// Returns true if the triangle does not block light.
func (t *Triangle) IsTransparent() bool {
	return t.Material != nil && t.Material.IsTransparent()
}

// Intersect the triangle with r. Degenerate triangles and parallel rays
// never intersect; hits at distances not exceeding geom.Epsilon are
// reported as misses.
func (t *Triangle) IsIntersecting(r *geom.Ray) geom.Hit {
	miss := geom.Hit{D: geom.MaxDist, Kind: geom.Miss}

	e1 := t.Vertices[1].Sub(t.Vertices[0])
	e2 := t.Vertices[2].Sub(t.Vertices[0])
	p := r.Dir.Cross(e2)
	det := e1.Dot(p)
	if det > -detEpsilon && det < detEpsilon {
		return miss
	}
	inv := 1.0 / det

	s := r.Origin.Sub(t.Vertices[0])
	u := s.Dot(p) * inv
	if u < 0 || u > 1 {
		return miss
	}

	q := s.Cross(e1)
	v := r.Dir.Dot(q) * inv
	if v < 0 || u+v > 1 {
		return miss
	}

	d := e2.Dot(q) * inv
	if d <= geom.Epsilon {
		return miss
	}

	kind := geom.InOut
	if det > 0 {
		kind = geom.OutIn
	}

	return geom.Hit{U: u, V: v, D: d, Kind: kind}
}

// Get the shading normal at a hit point.
func (t *Triangle) NormalAt(hit geom.Hit) types.Vec3 {
	if t.Normals == nil {
		return t.Normal
	}

	w := 1 - hit.U - hit.V
	return t.Normals[0].Mul(w).Add(t.Normals[1].Mul(hit.U)).Add(t.Normals[2].Mul(hit.V)).Normalize()
}

// Let the material request shadow rays and fill the secondary ray sets.
// Returns the shading normal.
func (t *Triangle) GenerateRays(e Engine, r *geom.Ray, hit geom.Hit, reflect, refract *SecondaryRays) types.Vec3 {
	reflect.Reset()
	refract.Reset()

	n := t.NormalAt(hit)
	t.Material.GenerateRays(e, r, n, hit, reflect, refract)
	return n
}

// Compute the direct lighting term at the ray destination.
func (t *Triangle) Shade(e Engine, r *geom.Ray, n types.Vec3, hit geom.Hit) types.Color {
	return t.Material.Shade(e, r, n, hit)
}

// Combine the direct lighting term with the traced secondary rays.
func (t *Triangle) CombineSecondaryRays(e Engine, c types.Color, reflect, refract *SecondaryRays) types.Color {
	return t.Material.Combine(e, c, reflect, refract)
}
