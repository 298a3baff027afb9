package repository

import "time"

// SessionCredential represents a cached credential row. Value is opaque to
// the repository (sealed by the caller).
type SessionCredential struct {
	SessionID string
	Value     string
	UpdatedAt time.Time
	ExpiresAt time.Time
}
