package common

import (
	"github.com/google/uuid"
)

// NewRequestID returns an identifier the service can use to correlate a
// request with its own logs.
func NewRequestID() string {
	return uuid.NewString()
}
