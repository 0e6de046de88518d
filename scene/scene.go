package scene

import (
	"errors"
	"fmt"
)

var (
	ErrNoCamera = errors.New("scene: no camera defined")
)

type Scene struct {
	Camera *Camera

	Lights []*Light

	Store *Store
}

// Create a scene from a set of triangles, lights and a camera.
func NewScene(tris []Triangle, lights []*Light, camera *Camera) (*Scene, error) {
	if camera == nil {
		return nil, ErrNoCamera
	}

	for idx := range tris {
		if tris[idx].Material == nil {
			return nil, fmt.Errorf("scene: no material assigned to primitive %d", idx)
		}
	}

	store := NewStore(tris)
	for idx, l := range lights {
		if l == nil {
			return nil, fmt.Errorf("scene: light %d is undefined", idx)
		}
		l.SetSceneBounds(store.Bounds())
	}

	return &Scene{
		Camera: camera,
		Lights: lights,
		Store:  store,
	}, nil
}
