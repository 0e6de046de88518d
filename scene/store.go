package scene

import (
	"fmt"

	"github.com/achilleasa/bihtrace/types"
)

// Store owns the scene primitives and the indirection array that spatial
// indices reorder. The primitive slice is never reordered or reallocated
// after creation so primitive addresses stay stable across index rebuilds.
type Store struct {
	primitives []Triangle

	// A permutation of primitive ids.
	Indirection []int32

	bounds types.BBox
}

// Create a store for a set of triangles.
func NewStore(tris []Triangle) *Store {
	s := &Store{
		primitives:  tris,
		Indirection: make([]int32, len(tris)),
		bounds:      types.EmptyBBox(),
	}

	for i := range tris {
		s.bounds = s.bounds.Union(tris[i].BBox())
	}
	s.Reset()
	return s
}

// The number of primitives.
func (s *Store) Len() int {
	return len(s.primitives)
}

// Get primitive by id.
func (s *Store) Primitive(id int32) *Triangle {
	return &s.primitives[id]
}

// Get the primitive at position pos of the indirection array.
func (s *Store) At(pos int) *Triangle {
	return &s.primitives[s.Indirection[pos]]
}

// The primitives in creation order.
func (s *Store) Primitives() []Triangle {
	return s.primitives
}

// Bounding box of all primitives.
func (s *Store) Bounds() types.BBox {
	return s.bounds
}

// Restore the identity permutation.
func (s *Store) Reset() {
	for i := range s.Indirection {
		s.Indirection[i] = int32(i)
	}
}

// Check that the indirection array is a permutation of primitive ids.
func (s *Store) Validate() error {
	if len(s.Indirection) != len(s.primitives) {
		return fmt.Errorf("scene: indirection length %d does not match primitive count %d", len(s.Indirection), len(s.primitives))
	}

	seen := make([]bool, len(s.primitives))
	for pos, id := range s.Indirection {
		if id < 0 || int(id) >= len(s.primitives) {
			return fmt.Errorf("scene: indirection entry %d references unknown primitive %d", pos, id)
		}
		if seen[id] {
			return fmt.Errorf("scene: primitive %d referenced more than once", id)
		}
		seen[id] = true
	}
	return nil
}
