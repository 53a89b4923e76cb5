package service

import (
	"errors"
	"fmt"
)

// ErrNotFound is matched by every lookup failure below.
var ErrNotFound = errors.New("not found")

var (
	ErrBeerNotFound    = fmt.Errorf("beer %w", ErrNotFound)
	ErrOrderNotFound   = fmt.Errorf("order %w", ErrNotFound)
	ErrLineNotFound    = fmt.Errorf("order line %w", ErrNotFound)
	ErrBeerRefRequired = fmt.Errorf("beer reference required: %w", ErrNotFound)
)
