package geom

// HitKind describes the direction of a ray relative to the surface it hit.
type HitKind int8

const (
	// InOut is reported for rays leaving the surface from its back side.
	InOut HitKind = -1

	// Miss indicates that no intersection was found.
	Miss HitKind = 0

	// OutIn is reported for rays entering the surface from its front side.
	OutIn HitKind = 1
)

func (k HitKind) String() string {
	switch k {
	case InOut:
		return "in-out"
	case OutIn:
		return "out-in"
	default:
		return "miss"
	}
}

// Hit describes a single ray/primitive intersection. It carries no
// primitive identity; callers get that alongside it.
type Hit struct {
	// Barycentric coordinates of the hit point.
	U, V float32

	// Distance along the ray.
	D float32

	Kind HitKind
}

// Create a hit description initialized to a miss at distance d.
func NewHit(d float32) Hit {
	return Hit{D: d, Kind: Miss}
}
