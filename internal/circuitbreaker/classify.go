package circuitbreaker

import (
	"errors"

	ceptracker "github.com/eugener/ceptracker/internal"
)

// httpStatusError is satisfied by provider.APIError.
type httpStatusError interface {
	HTTPStatus() int
}

// Classify returns the breaker weight for an upstream call outcome.
//
// Weights:
//   - nil -> 0 (a not-found answer is a successful call)
//   - timeout -> 1.5
//   - 429 -> 0.5
//   - other 4xx -> 0 (the request was at fault, not the upstream)
//   - 5xx, transport and decode failures -> 1.0
func Classify(err error) float64 {
	if err == nil {
		return 0
	}
	if errors.Is(err, ceptracker.ErrUpstreamTimeout) {
		return 1.5
	}
	var he httpStatusError
	if errors.As(err, &he) {
		code := he.HTTPStatus()
		switch {
		case code == 429:
			return 0.5
		case code >= 400 && code < 500:
			return 0
		}
	}
	return 1.0
}
