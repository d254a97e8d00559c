package config

import (
	"errors"
	"fmt"
)

// Sentinel error kinds for this package. Every validation failure matches
// ErrInvalidConfig; the narrower kinds below also match their own sentinel.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")

	ErrUnknownDriver   = fmt.Errorf("%w: unknown store_driver", ErrInvalidConfig)
	ErrMissingDSN      = fmt.Errorf("%w: store_dsn is required", ErrInvalidConfig)
	ErrInvalidTimezone = fmt.Errorf("%w: timezone", ErrInvalidConfig)
	ErrInvalidSize     = fmt.Errorf("%w: size out of range", ErrInvalidConfig)
)
