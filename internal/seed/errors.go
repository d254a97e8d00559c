package seed

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	ErrConfig         = errors.New("invalid seed config")
	ErrUnexpectedCode = errors.New("unexpected status code")
)

// invalidConfig wraps ErrConfig with a reason.
func invalidConfig(reason string) error {
	return fmt.Errorf("%w: %s", ErrConfig, reason)
}
