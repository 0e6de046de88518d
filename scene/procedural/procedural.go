// Package procedural builds the scenes used by the command line tools and
// tests without loading any assets.
package procedural

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/achilleasa/bihtrace/material"
	"github.com/achilleasa/bihtrace/scene"
	"github.com/achilleasa/bihtrace/types"
	"github.com/chewxy/math32"
)

// A scene generator.
type Generator func(seed int64) (*scene.Scene, error)

var generators = map[string]Generator{
	"room":       func(_ int64) (*scene.Scene, error) { return Room() },
	"spheregrid": func(_ int64) (*scene.Scene, error) { return SphereGrid(6) },
	"soup":       func(seed int64) (*scene.Scene, error) { return Soup(20000, seed) },
}

// Get the names of the built-in scenes.
func Names() []string {
	names := make([]string, 0, len(generators))
	for name := range generators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build a scene by name.
func ByName(name string, seed int64) (*scene.Scene, error) {
	gen, exists := generators[name]
	if !exists {
		return nil, fmt.Errorf("procedural: unknown scene %q", name)
	}
	return gen(seed)
}

// Append the two triangles of the quad abcd.
func quad(tris []scene.Triangle, a, b, c, d types.Vec3, mat scene.Material) []scene.Triangle {
	return append(tris,
		scene.NewTriangle([3]types.Vec3{a, b, c}, mat),
		scene.NewTriangle([3]types.Vec3{a, c, d}, mat),
	)
}

// Append a UV sphere with smooth normals. The poles are closed with
// triangle fans so no degenerate triangles are produced.
func sphere(tris []scene.Triangle, center types.Vec3, radius float32, rings, segments int, mat scene.Material) []scene.Triangle {
	point := func(ring, seg int) (types.Vec3, types.Vec3) {
		theta := math32.Pi * float32(ring) / float32(rings)
		phi := 2 * math32.Pi * float32(seg) / float32(segments)
		n := types.XYZ(
			math32.Sin(theta)*math32.Cos(phi),
			math32.Cos(theta),
			math32.Sin(theta)*math32.Sin(phi),
		)
		return center.Add(n.Mul(radius)), n
	}

	for ring := 0; ring < rings; ring++ {
		for seg := 0; seg < segments; seg++ {
			p00, n00 := point(ring, seg)
			p01, n01 := point(ring, seg+1)
			p10, n10 := point(ring+1, seg)
			p11, n11 := point(ring+1, seg+1)

			if ring != 0 {
				tris = append(tris, scene.NewSmoothTriangle(
					[3]types.Vec3{p00, p01, p11},
					[3]types.Vec3{n00, n01, n11},
					mat,
				))
			}
			if ring != rings-1 {
				tris = append(tris, scene.NewSmoothTriangle(
					[3]types.Vec3{p00, p11, p10},
					[3]types.Vec3{n00, n11, n10},
					mat,
				))
			}
		}
	}
	return tris
}

// Room is a closed box with a mirror on the back wall, a glass sphere, a
// diffuse block and two lights. Every material is deterministic so
// rendering it never consumes random numbers when a single shadow sample
// is used.
func Room() (*scene.Scene, error) {
	white := material.NewDiffuse(types.RGB(0.8, 0.8, 0.8))
	red := material.NewDiffuse(types.RGB(0.8, 0.1, 0.1))
	green := material.NewDiffuse(types.RGB(0.1, 0.8, 0.1))
	mirror := material.NewMirror(types.RGB(0.1, 0.1, 0.1), 0.8, 0)
	glass := material.NewGlass(1.5)
	lamp := material.NewEmissive(types.RGB(1, 1, 0.9))

	for _, m := range []*material.Phong{white, red, green, mirror, glass} {
		if err := m.Validate(); err != nil {
			return nil, err
		}
	}

	var tris []scene.Triangle
	v := func(x, y, z float32) types.Vec3 { return types.XYZ(x, y, z) }

	// Floor, ceiling, back and side walls
	tris = quad(tris, v(-5, 0, 5), v(5, 0, 5), v(5, 0, -5), v(-5, 0, -5), white)
	tris = quad(tris, v(-5, 8, -5), v(5, 8, -5), v(5, 8, 5), v(-5, 8, 5), white)
	tris = quad(tris, v(-5, 0, -5), v(5, 0, -5), v(5, 8, -5), v(-5, 8, -5), white)
	tris = quad(tris, v(-5, 0, 5), v(-5, 0, -5), v(-5, 8, -5), v(-5, 8, 5), red)
	tris = quad(tris, v(5, 0, -5), v(5, 0, 5), v(5, 8, 5), v(5, 8, -5), green)

	// Mirror panel in front of the back wall
	tris = quad(tris, v(-3, 1, -4.9), v(3, 1, -4.9), v(3, 6, -4.9), v(-3, 6, -4.9), mirror)

	// Ceiling lamp geometry
	tris = quad(tris, v(-1, 7.99, -1), v(1, 7.99, -1), v(1, 7.99, 1), v(-1, 7.99, 1), lamp)

	// Diffuse block
	b := func(x, y, z float32) types.Vec3 { return v(x-2.5, y, z+0.5) }
	tris = quad(tris, b(-1, 2, 1), b(1, 2, 1), b(1, 2, -1), b(-1, 2, -1), white)
	tris = quad(tris, b(-1, 0, 1), b(1, 0, 1), b(1, 2, 1), b(-1, 2, 1), white)
	tris = quad(tris, b(1, 0, -1), b(-1, 0, -1), b(-1, 2, -1), b(1, 2, -1), white)
	tris = quad(tris, b(-1, 0, -1), b(-1, 0, 1), b(-1, 2, 1), b(-1, 2, -1), white)
	tris = quad(tris, b(1, 0, 1), b(1, 0, -1), b(1, 2, -1), b(1, 2, 1), white)

	tris = sphere(tris, v(2, 1.5, 0), 1.5, 12, 24, glass)

	lights := []*scene.Light{
		scene.NewSphereLight(types.RGB(0.9, 0.9, 0.8), v(0, 7, 0), 0.5, 0.05),
		scene.NewPointLight(types.RGB(0.3, 0.3, 0.4), v(-3, 6, 4), 0.1),
	}

	camera := scene.NewCamera(60)
	camera.Position = v(0, 4, 14)
	camera.LookAt = v(0, 3, 0)
	camera.Background = types.RGB(0.05, 0.05, 0.08)

	return scene.NewScene(tris, lights, camera)
}

// SphereGrid is a size x size grid of spheres above a floor. Materials
// cycle through diffuse, blurred mirror and glass.
func SphereGrid(size int) (*scene.Scene, error) {
	if size < 1 {
		return nil, fmt.Errorf("procedural: sphere grid size must be positive; got %d", size)
	}

	floor := material.NewDiffuse(types.RGB(0.6, 0.6, 0.6))
	mats := []scene.Material{
		material.NewDiffuse(types.RGB(0.9, 0.3, 0.2)),
		material.NewMirror(types.RGB(0.2, 0.2, 0.2), 0.6, 0.05),
		material.NewGlass(1.33),
		material.NewDiffuse(types.RGB(0.2, 0.4, 0.9)),
	}

	var tris []scene.Triangle
	extent := float32(size) * 1.5
	tris = quad(tris,
		types.XYZ(-extent, 0, extent),
		types.XYZ(extent, 0, extent),
		types.XYZ(extent, 0, -extent),
		types.XYZ(-extent, 0, -extent),
		floor,
	)

	offset := float32(size-1) * 1.5
	for row := 0; row < size; row++ {
		for col := 0; col < size; col++ {
			center := types.XYZ(float32(col)*3-offset, 1, float32(row)*3-offset)
			tris = sphere(tris, center, 1, 10, 20, mats[(row+col)%len(mats)])
		}
	}

	lights := []*scene.Light{
		scene.NewSphereLight(types.RGB(1, 1, 1), types.XYZ(0, extent*2, extent), 1, 0.01),
		scene.NewDirectionalLight(types.RGB(0.2, 0.2, 0.25), types.XYZ(-1, 2, 1)),
	}

	camera := scene.NewCamera(45)
	camera.Position = types.XYZ(0, extent, extent*2.5)
	camera.LookAt = types.XYZ(0, 0, 0)
	camera.Background = types.RGB(0.4, 0.5, 0.7)

	return scene.NewScene(tris, lights, camera)
}

// Soup is a cloud of count random small triangles. A tenth of them are
// glass.
func Soup(count int, seed int64) (*scene.Scene, error) {
	if count < 0 {
		return nil, fmt.Errorf("procedural: triangle count must not be negative; got %d", count)
	}

	rng := rand.New(rand.NewSource(seed))
	random := func(min, max float32) types.Vec3 {
		return types.XYZ(
			min+rng.Float32()*(max-min),
			min+rng.Float32()*(max-min),
			min+rng.Float32()*(max-min),
		)
	}

	diffuse := material.NewDiffuse(types.RGB(0.7, 0.6, 0.5))
	glass := material.NewGlass(1.5)

	tris := make([]scene.Triangle, count)
	for i := range tris {
		var mat scene.Material = diffuse
		if i%10 == 0 {
			mat = glass
		}
		center := random(-10, 10)
		tris[i] = scene.NewTriangle([3]types.Vec3{
			center.Add(random(-0.5, 0.5)),
			center.Add(random(-0.5, 0.5)),
			center.Add(random(-0.5, 0.5)),
		}, mat)
	}

	lights := []*scene.Light{
		scene.NewPointLight(types.RGB(1, 1, 1), types.XYZ(0, 20, 20), 0.02),
	}

	camera := scene.NewCamera(50)
	camera.Position = types.XYZ(0, 0, 30)
	camera.LookAt = types.XYZ(0, 0, 0)

	return scene.NewScene(tris, lights, camera)
}
