package placeholder

import (
	"errors"
	"fmt"
)

// InvalidInputError reports a placeholder source that cannot be turned
// into a collection.
type InvalidInputError struct {
	Got    string
	Reason string
}

func (e *InvalidInputError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid placeholder input: %s", e.Reason)
	}
	return fmt.Sprintf("invalid placeholder input: unsupported type %s", e.Got)
}

// IsInvalidInput checks if err is or wraps an InvalidInputError.
func IsInvalidInput(err error) bool {
	var target *InvalidInputError
	return errors.As(err, &target)
}
