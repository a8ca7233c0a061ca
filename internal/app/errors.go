/**
 * @description
 * Sentinel errors forming the service's error taxonomy. The api layer maps
 * these onto HTTP status codes; provider- and datastore-level detail never
 * crosses that boundary.
 */
package app

import "errors"

var (
	// ErrUnauthenticated means no verified user identity was attached.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrInvalidRequest means a required field was missing or malformed.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrQuotaExceeded means the free-tier allotment is spent and the user
	// holds no active subscription.
	ErrQuotaExceeded = errors.New("free tier limit reached")

	// ErrProviderFailure wraps any upstream generation failure: non-success
	// status, unparseable payload, empty stream, or timeout.
	ErrProviderFailure = errors.New("provider failure")
)
