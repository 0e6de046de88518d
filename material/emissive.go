package material

import (
	"github.com/achilleasa/bihtrace/geom"
	"github.com/achilleasa/bihtrace/scene"
	"github.com/achilleasa/bihtrace/types"
)

// Emissive is used for light geometry. It never occludes shadow rays and
// spawns no secondary rays.
type Emissive struct {
	Color types.Color
}

func NewEmissive(color types.Color) *Emissive {
	return &Emissive{Color: color}
}

func (m *Emissive) GenerateRays(_ scene.Engine, _ *geom.Ray, _ types.Vec3, _ geom.Hit, _, _ *scene.SecondaryRays) {
}

func (m *Emissive) Shade(_ scene.Engine, _ *geom.Ray, _ types.Vec3, _ geom.Hit) types.Color {
	return m.Color
}

func (m *Emissive) Combine(_ scene.Engine, c types.Color, _, _ *scene.SecondaryRays) types.Color {
	return c
}

func (m *Emissive) IsLight() bool {
	return true
}

func (m *Emissive) IsTransparent() bool {
	return false
}
