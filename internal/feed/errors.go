package feed

import "errors"

// ErrInvalidRequest marks feed parameters the mixer or cache refuses to work
// with: non-positive ratios, page sizes, limits or TTLs. Wrapped errors carry
// the offending value.
var ErrInvalidRequest = errors.New("invalid feed request")

// UpstreamError wraps a ContentSource failure so callers can tell a broken
// upstream apart from a bad request. Upstream failures are never cached.
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string {
	return "content source unavailable: " + e.Err.Error()
}

func (e *UpstreamError) Unwrap() error { return e.Err }
