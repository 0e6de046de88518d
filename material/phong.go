package material

import (
	"fmt"

	"github.com/achilleasa/bihtrace/geom"
	"github.com/achilleasa/bihtrace/scene"
	"github.com/achilleasa/bihtrace/types"
	"github.com/chewxy/math32"
)

// A Phong material with optional mirror reflection and refraction.
type Phong struct {
	Ambient  types.Color
	Diffuse  types.Color
	Specular types.Color

	// Specular exponent.
	Shininess float32

	// Reflection coefficient and the spread of diffuse reflections.
	Reflect       float32
	ReflectSpread float32

	// Transmission coefficient, the spread of diffuse refractions and
	// the refractive index.
	Refract         float32
	RefractSpread   float32
	RefractiveIndex float32
}

// Check material coefficients.
func (m *Phong) Validate() error {
	if m.Reflect < 0 || m.Reflect > 1 {
		return fmt.Errorf("material: reflection coefficient %f outside [0, 1]", m.Reflect)
	}
	if m.Refract < 0 || m.Refract > 1 {
		return fmt.Errorf("material: refraction coefficient %f outside [0, 1]", m.Refract)
	}
	if m.Reflect+m.Refract > 1 {
		return fmt.Errorf("material: reflection and refraction coefficients add up to more than 1")
	}
	if m.Refract > 0 && m.RefractiveIndex <= 0 {
		return fmt.Errorf("material: refractive materials need a positive refractive index; got %f", m.RefractiveIndex)
	}
	if m.ReflectSpread < 0 || m.RefractSpread < 0 {
		return fmt.Errorf("material: spread must not be negative")
	}
	return nil
}

// Create a diffuse material.
func NewDiffuse(color types.Color) *Phong {
	return &Phong{
		Ambient:   color.Mul(0.05),
		Diffuse:   color,
		Specular:  types.RGB(0.2, 0.2, 0.2),
		Shininess: 16,
	}
}

// Create a mirror.
func NewMirror(color types.Color, reflect, spread float32) *Phong {
	return &Phong{
		Diffuse:       color.Mul(1 - reflect),
		Specular:      types.RGB(1, 1, 1),
		Shininess:     64,
		Reflect:       reflect,
		ReflectSpread: spread,
	}
}

// Create a glass like material.
func NewGlass(ri float32) *Phong {
	return &Phong{
		Specular:        types.RGB(1, 1, 1),
		Shininess:       128,
		Reflect:         0.1,
		Refract:         0.85,
		RefractiveIndex: ri,
	}
}

// Request shadow rays towards every light and spawn the reflection and
// refraction rays.
func (m *Phong) GenerateRays(e scene.Engine, r *geom.Ray, n types.Vec3, hit geom.Hit, reflect, refract *scene.SecondaryRays) {
	for l := range e.Lights() {
		e.GenerateRaysToLight(r, hit, l)
	}

	if m.Reflect > 0 {
		reflect.Coefficient = m.Reflect
		reflect.Count = r.Reflect(reflect.Rays[:], facing(r, n), m.Reflect, m.ReflectSpread, e.Rand())
	}

	if m.Refract > 0 {
		refract.Coefficient = m.Refract
		refract.Count = r.Refract(refract.Rays[:], n, m.Refract, m.RefractiveIndex, hit.Kind, m.RefractSpread, e.Rand())
	}
}

// Shade using the resolved shadow rays.
func (m *Phong) Shade(e scene.Engine, r *geom.Ray, n types.Vec3, hit geom.Hit) types.Color {
	n = facing(r, n)

	var c types.Color
	for l, light := range e.Lights() {
		illum := e.Illumination(l)
		if illum.Magnitude == 0 {
			continue
		}

		// Ignore lights behind the surface
		shade := illum.Dir.Dot(n)
		if shade < 0 {
			continue
		}

		shadeColor := m.Diffuse.Mul(shade)
		ref := illum.Dir.Sub(n.Mul(2 * shade))
		if rdr := r.Dir.Dot(ref); rdr > 0 {
			shadeColor = shadeColor.Add(m.Specular.Mul(math32.Pow(rdr, m.Shininess)))
		}

		c = c.Add(light.Intensity(illum.Length).Filter(shadeColor.Mul(illum.Magnitude)))
	}

	return c.Add(m.Ambient)
}

// Add the averaged secondary ray colors weighted by their coefficients.
func (m *Phong) Combine(_ scene.Engine, c types.Color, reflect, refract *scene.SecondaryRays) types.Color {
	if reflect.Count > 0 {
		c = c.Add(reflect.Average().Mul(reflect.Coefficient))
	}
	if refract.Count > 0 {
		c = c.Add(refract.Average().Mul(refract.Coefficient))
	}
	return c
}

func (m *Phong) IsLight() bool {
	return false
}

// Refractive materials let shadow rays through.
func (m *Phong) IsTransparent() bool {
	return m.Refract > 0
}

// Flip n so that it faces the incoming ray.
func facing(r *geom.Ray, n types.Vec3) types.Vec3 {
	if r.Dir.Dot(n) > 0 {
		return n.Neg()
	}
	return n
}
