package walk

import "errors"

var (
	ErrInvalidConfiguration = errors.New("invalid walker configuration")
	ErrEmptyName            = errors.New("walker name must not be empty")
	ErrDuplicateName        = errors.New("walker name already exists")
	ErrUnknownWalker        = errors.New("no walker with that name")
	ErrNotPrimary           = errors.New("operation needs a primary walker")

	// ErrUnresolvedCollision: every candidate step hit a wall within the attempt budget.
	ErrUnresolvedCollision = errors.New("no wall-free step within the attempt limit")
	// ErrDegenerateShortening: a step could not be cut back to the portal boundary.
	ErrDegenerateShortening = errors.New("portal shortening reached zero distance")
)
