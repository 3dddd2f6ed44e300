package reliability

import (
	"errors"
	"fmt"
)

// UnsupportedPartError is returned when a part identifier has no registry entry.
type UnsupportedPartError struct {
	Part string
}

func (e *UnsupportedPartError) Error() string {
	return fmt.Sprintf("reliability: unsupported part %q", e.Part)
}

// IsUnsupportedPart reports whether err (or anything it wraps) is an
// *UnsupportedPartError.
func IsUnsupportedPart(err error) bool {
	var upe *UnsupportedPartError
	return errors.As(err, &upe)
}
