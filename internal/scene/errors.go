package scene

import "errors"

var (
	// ErrSurfaceNotBound is returned when an interactive frame is rendered
	// before BindSurface.
	ErrSurfaceNotBound = errors.New("scene: no surface bound in interactive mode")

	// ErrNotDurable is returned by Finish on an interactive scene.
	ErrNotDurable = errors.New("scene: finish requires a durable output")

	// ErrMissingCollaborator is returned when the mode needs a renderer, video
	// backend or concatenator that was not configured.
	ErrMissingCollaborator = errors.New("scene: collaborator not configured")
)
