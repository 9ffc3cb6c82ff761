package util

import (
	"github.com/oklog/ulid/v2"
)

// NewRunID returns a ULID string identifying one pipeline run in logs.
// ulid.Make is safe for concurrent use and monotonic within a millisecond.
func NewRunID() string {
	return ulid.Make().String()
}
