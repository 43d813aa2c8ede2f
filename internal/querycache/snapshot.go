package querycache

import "time"

// Status is the lifecycle state of a query result.
type Status int

const (
	StatusUninitialized Status = iota
	StatusLoading
	StatusSucceeded
	StatusFailed
)

// String returns the lowercase name of the status.
func (s Status) String() string {
	switch s {
	case StatusUninitialized:
		return "uninitialized"
	case StatusLoading:
		return "loading"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Snapshot is a point-in-time copy of a query result.
//
// Value is set if and only if Status is StatusSucceeded, and Err if and
// only if Status is StatusFailed. Values are shared with the cache and
// must be treated as read-only.
type Snapshot struct {
	Key    Key
	Status Status
	Value  any
	Err    error

	// Stale is set after invalidation until the next refetch settles.
	// A stale succeeded result is still displayable.
	Stale bool

	// Fetching is set while a request for the key is in flight,
	// including background refetches of a succeeded result.
	Fetching bool

	// Generation increments on every invalidation. Responses that
	// started under an older generation are discarded on arrival.
	Generation uint64

	// Version increments on every transition of the result.
	Version uint64

	// Previous is the last value the result held while succeeded.
	// It survives a failed refetch but is never substituted into Value.
	Previous any

	UpdatedAt time.Time
}

// IsLoading reports whether the result has no value yet and a fetch is running.
func (s Snapshot) IsLoading() bool {
	return s.Status == StatusLoading
}

// ValueOf extracts a typed value from a succeeded snapshot.
func ValueOf[T any](s Snapshot) (T, bool) {
	if s.Status != StatusSucceeded {
		var zero T
		return zero, false
	}
	v, ok := s.Value.(T)
	return v, ok
}
