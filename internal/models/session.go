package models

import (
	"time"
)

// Session is the locally cached proof of authentication for one service host.
type Session struct {
	Token    string     `json:"token" yaml:"token"`
	IssuedAt time.Time  `json:"issued_at" yaml:"issued_at"`
	Expiry   *time.Time `json:"expiry,omitempty" yaml:"expiry,omitempty"`
	Endpoint string     `json:"endpoint,omitempty" yaml:"endpoint,omitempty"` // Base URL the token was issued by
}

// IsExpired only reports true when the service told us when the token expires
// and that moment has passed. Tokens without expiry metadata are valid until
// the service rejects them.
func (s *Session) IsExpired() bool {
	if s == nil || s.Expiry == nil {
		return false
	}
	return time.Now().After(*s.Expiry)
}

// LoginResponse is returned by the token endpoint.
type LoginResponse struct {
	Token  string     `json:"token"`
	Expiry *time.Time `json:"expiry,omitempty"`
}
