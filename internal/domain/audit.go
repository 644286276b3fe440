package domain

import "time"

// Disclosure audit actions. Every resolution records exactly one.
const (
	ActionResolved     = "ghost_resolved"
	ActionStub         = "ghost_stub"
	ActionNotFound     = "ghost_not_found"
	ActionExpired      = "ghost_expired"
	ActionRevoked      = "ghost_revoked"
	ActionLookupFailed = "ghost_lookup_failed"
)

// DisclosureEvent proves that a disclosure happened and which claim
// categories were exposed. It never carries signal values.
type DisclosureEvent struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	JTI        string    `json:"jti"`
	UserID     string    `json:"user_id,omitempty"`
	PartnerID  string    `json:"partner_id,omitempty"`
	Purpose    string    `json:"purpose,omitempty"`
	Grade      Grade     `json:"grade"`
	Claims     []string  `json:"claims"`
	OccurredAt time.Time `json:"occurred_at"`
}
