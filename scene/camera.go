package scene

import (
	"fmt"

	"github.com/achilleasa/bihtrace/geom"
	"github.com/achilleasa/bihtrace/types"
	"github.com/go-gl/mathgl/mgl32"
)

// Stores the ray directions at the four corners of the camera frustrum. It
// is used as a shortcut for generating per pixel rays via interpolation of
// the corner rays.
type Frustrum [4]types.Vec3

func (fr Frustrum) String() string {
	return fmt.Sprintf(
		"Frustrum Rays:\nTL : (%3.3f, %3.3f, %3.3f)\nTR : (%3.3f, %3.3f, %3.3f)\nBL : (%3.3f, %3.3f, %3.3f)\nBR : (%3.3f, %3.3f, %3.3f)",
		fr[0][0], fr[0][1], fr[0][2],
		fr[1][0], fr[1][1], fr[1][2],
		fr[2][0], fr[2][1], fr[2][2],
		fr[3][0], fr[3][1], fr[3][2],
	)
}

// The camera type controls the scene camera and owns the frame buffer.
type Camera struct {
	Position types.Vec3
	LookAt   types.Vec3
	Up       types.Vec3

	// Rotations applied by the next Update call.
	Pitch float32
	Yaw   float32

	ViewMat  mgl32.Mat4
	ProjMat  mgl32.Mat4
	Frustrum Frustrum

	// Camera FOV in degrees.
	FOV float32

	// The color returned for rays that escape the scene.
	Background types.Color

	frameW, frameH uint32
	frame          []types.Color
}

func NewCamera(fov float32) *Camera {
	return &Camera{
		ViewMat:  mgl32.Ident4(),
		ProjMat:  mgl32.Ident4(),
		Position: types.Vec3{0, 0, 0},
		LookAt:   types.Vec3{0, 0, -1},
		Up:       types.Vec3{0, 1, 0},
		FOV:      fov,
	}
}

// Setup camera projection matrix and allocate a frame buffer.
func (c *Camera) SetupProjection(frameW, frameH uint32) {
	c.frameW, c.frameH = frameW, frameH
	c.frame = make([]types.Color, frameW*frameH)
	c.ProjMat = mgl32.Perspective(mgl32.DegToRad(c.FOV), float32(frameW)/float32(frameH), 1, 1000)
	c.Update()
}

// Update camera.
func (c *Camera) Update() {
	dir := c.LookAt.Sub(c.Position).Normalize()
	if c.Pitch != 0 || c.Yaw != 0 {
		pitchAxis := dir.Cross(c.Up).Normalize()
		pitchQuat := mgl32.QuatRotate(c.Pitch, mgl32.Vec3(pitchAxis))
		yawQuat := mgl32.QuatRotate(c.Yaw, mgl32.Vec3(c.Up))
		orientQuat := pitchQuat.Mul(yawQuat).Normalize()
		dir = types.Vec3(orientQuat.Rotate(mgl32.Vec3(dir)))
		c.LookAt = c.Position.Add(dir)
		c.Pitch, c.Yaw = 0, 0
	}

	c.ViewMat = mgl32.LookAtV(mgl32.Vec3(c.Position), mgl32.Vec3(c.LookAt), mgl32.Vec3(c.Up))
	c.updateFrustrum()
}

func (c *Camera) InvViewProjMat() mgl32.Mat4 {
	return c.ProjMat.Mul4(c.ViewMat).Inv()
}

// Generate a ray vector for each corner of the camera frustrum by
// multiplying clip space vectors for each corner with the inv proj/view
// matrix, applying perspective and subtracting the camera eye position.
func (c *Camera) updateFrustrum() {
	invProjViewMat := c.InvViewProjMat()
	corners := [4][2]float32{{-1, 1}, {1, 1}, {-1, -1}, {1, -1}}
	for i, corner := range corners {
		v := invProjViewMat.Mul4x1(mgl32.Vec4{corner[0], corner[1], -1, 1})
		c.Frustrum[i] = types.Vec3(v.Mul(1.0 / v[3]).Vec3()).Sub(c.Position)
	}
}

// Frame dimensions.
func (c *Camera) FrameSize() (uint32, uint32) {
	return c.frameW, c.frameH
}

// Generate the primary ray through the center of pixel (x, y). Row 0 is
// the top of the frame.
func (c *Camera) PixelToRay(x, y uint32) geom.Ray {
	u := (float32(x) + 0.5) / float32(c.frameW)
	v := (float32(y) + 0.5) / float32(c.frameH)

	top := c.Frustrum[0].Add(c.Frustrum[1].Sub(c.Frustrum[0]).Mul(u))
	bottom := c.Frustrum[2].Add(c.Frustrum[3].Sub(c.Frustrum[2]).Mul(u))
	return geom.NewRay(c.Position, top.Add(bottom.Sub(top).Mul(v)))
}

// Shade a ray that escaped the scene.
func (c *Camera) Shade(_ *geom.Ray) types.Color {
	return c.Background
}

// Store a pixel in the frame buffer. Concurrent writers must use
// disjoint rows.
func (c *Camera) SetPixel(col types.Color, x, y uint32) {
	c.frame[y*c.frameW+x] = col
}

// Read a pixel from the frame buffer.
func (c *Camera) Pixel(x, y uint32) types.Color {
	return c.frame[y*c.frameW+x]
}

// The frame buffer in row-major order.
func (c *Camera) Frame() []types.Color {
	return c.frame
}
