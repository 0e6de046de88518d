package geom

import "github.com/chewxy/math32"

const (
	// Hits closer than this distance are ignored to avoid self intersections.
	Epsilon float32 = 1e-3

	// Secondary rays whose throughput (magnitude x coefficient) does not
	// exceed this value are not emitted.
	MinReflectivePower float32 = 0.1

	// Upper bound for reflection and refraction coefficients. Keeping it
	// below 1 guarantees that throughput decays geometrically along any path.
	MaxCoefficient float32 = 0.95

	// The number of rays emitted by a diffuse reflection/refraction for a
	// ray with component 1.
	DiffuseReflections = 8

	// The maximum number of secondary rays emitted by a single reflect or
	// refract call.
	MaxSecondaryRays = DiffuseReflections

	// The maximum number of shadow rays requested per light and hit point.
	SoftShadowSamples = 16

	// Number of rays per lane group.
	LaneWidth = 4

	// Maximum number of lane groups in a packet.
	MaxPacketSize = 16

	// Maximum number of rays in a packet.
	MaxPacketRays = LaneWidth * MaxPacketSize

	// Distance by which secondary ray origins are moved away from the
	// surface they were spawned from.
	originOffset float32 = 1e-4

	// The distance reported for rays that do not hit anything.
	MaxDist float32 = math32.MaxFloat32
)
