package device

import "time"

// Device is a playback endpoint. Identity and ownership are managed outside
// the sync core; the coordinator only resolves tokens and tracks liveness.
type Device struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"user_id"`
	Name        string     `json:"name"`
	Online      bool       `json:"online"`
	LastSeenAt  *time.Time `json:"last_seen_at,omitempty"`
	OwnerActive bool       `json:"-"`
}
