package scene

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("not authorized")
	ErrDuplicate    = errors.New("already exists")
	ErrUnknownKind  = errors.New("unknown shape type")
)
