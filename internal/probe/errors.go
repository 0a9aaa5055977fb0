package probe

import "errors"

// Sentinel kinds for probe errors.
var (
	ErrUnhealthy    = errors.New("service unhealthy")
	ErrStatus       = errors.New("unexpected status")
	ErrVerification = errors.New("verification failed")
)
