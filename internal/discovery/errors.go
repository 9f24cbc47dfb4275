package discovery

import (
	"errors"
	"fmt"
)

// ErrDiscoveryFailed is returned by FuzzyMSearch when a batch of candidate
// searches drew a reply but none of its candidates verified individually.
// It is distinct from a plain timeout: the gateway answered something, but
// never the same request twice.
var ErrDiscoveryFailed = errors.New("failed to discover gateway")

// SearchTimeoutError is returned when no matching reply arrives before the
// search timeout fires.
type SearchTimeoutError struct {
	// Gateway is the address the search was sent to
	Gateway string

	// Port is the SSDP port the request targeted
	Port int
}

func (e *SearchTimeoutError) Error() string {
	return fmt.Sprintf("M-SEARCH for %s:%d timed out", e.Gateway, e.Port)
}

// IsTimeout reports whether err is a search timeout
func IsTimeout(err error) bool {
	var te *SearchTimeoutError
	return errors.As(err, &te)
}
