package ceptracker

import (
	"errors"
	"fmt"
)

// Sentinel errors for the resolution domain. Every upstream failure kind
// wraps ErrUpstream so callers can branch on the family or the kind.
var (
	ErrNotFound        = errors.New("not found")
	ErrBadRequest      = errors.New("bad request")
	ErrUpstream        = errors.New("upstream failure")
	ErrUpstreamTimeout = fmt.Errorf("%w: timeout", ErrUpstream)
	ErrUpstreamDecode  = fmt.Errorf("%w: malformed response", ErrUpstream)
	ErrCircuitOpen     = fmt.Errorf("%w: circuit open", ErrUpstream)
)
