// Package oracle classifies failures of external verification services.
// An unreachable oracle is recoverable (verification is skipped); a
// reachable oracle rejecting a value is a legitimate outcome, not an error.
package oracle

import (
	"errors"
	"fmt"
)

// ErrUnavailable marks network-level failures: timeouts, refused
// connections, 5xx responses. Callers degrade to "verification skipped".
var ErrUnavailable = errors.New("oracle unavailable")

// IsUnavailable reports whether err is an unavailability failure.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// WrapTransport converts a transport error into ErrUnavailable, keeping
// the cause in the chain. Every round-trip failure counts: a timeout, a
// refused connection or a 5xx all mean the oracle gave no verdict.
func WrapTransport(oracleName string, err error) error {
	return fmt.Errorf("%s: %w: %v", oracleName, ErrUnavailable, err)
}
