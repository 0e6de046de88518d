package tracer

import "errors"

var (
	ErrNoSceneData   = errors.New("tracer: no scene data")
	ErrNoIndex       = errors.New("tracer: no index")
	ErrIndexMismatch = errors.New("tracer: index was built for a different primitive store")
	ErrNotStarted    = errors.New("tracer: tracer not initialized")
	ErrNoEngine      = errors.New("tracer: no engine prototype")
)
