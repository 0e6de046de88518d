package types

import "github.com/chewxy/math32"

// A linear RGB color.
type Color Vec3

// Define a color.
func RGB(r, g, b float32) Color {
	return Color{r, g, b}
}

// Add a color.
func (c Color) Add(c2 Color) Color {
	return Color{c[0] + c2[0], c[1] + c2[1], c[2] + c2[2]}
}

// Scale color by s.
func (c Color) Mul(s float32) Color {
	return Color{c[0] * s, c[1] * s, c[2] * s}
}

// Component-wise color product.
func (c Color) Filter(c2 Color) Color {
	return Color{c[0] * c2[0], c[1] * c2[1], c[2] * c2[2]}
}

// Map color to 8-bit RGB, clamping each channel to [0, 1].
func (c Color) RGB8() [3]uint8 {
	var out [3]uint8
	for i := 0; i < 3; i++ {
		out[i] = uint8(math32.Round(math32.Max(0, math32.Min(1, c[i])) * 255))
	}
	return out
}
