package driver

import "errors"

var (
	ErrDriverNotFound      = errors.New("driver not found")
	ErrInvalidDriverName   = errors.New("invalid driver name")
	ErrInvalidDriverEmail  = errors.New("invalid driver email")
	ErrInvalidDriverStatus = errors.New("invalid driver status")
	ErrDriverNotAvailable  = errors.New("driver is not available")
)
