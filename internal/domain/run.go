package domain

import "time"

// Run is the aggregate record of one senate evaluation. It is created once
// after judge synthesis and never updated.
type Run struct {
	ID           string      `json:"id"`
	TraceID      string      `json:"trace_id"`
	UserID       string      `json:"user_id"`
	InputText    string      `json:"input_text"`
	Ballots      []Ballot    `json:"ballots"`
	Judge        JudgeOutput `json:"judge_output"`
	WeightsUsed  Weights     `json:"weights_used"`
	ProcessingMS int64       `json:"processing_time_ms"`
	CreatedAt    time.Time   `json:"created_at"`
}

// CalibrationAudit records one accepted weight change.
type CalibrationAudit struct {
	ID        string    `json:"id"`
	ActorID   string    `json:"actor_id"`
	Weights   Weights   `json:"weights"`
	Summary   string    `json:"summary"`
	ChangedAt time.Time `json:"changed_at"`
}

// Actor is the authenticated caller as asserted by the upstream gateway.
type Actor struct {
	UserID string
	Roles  []string
}

// Roles granting elevated calibration access.
const (
	RoleEmployer = "employer"
	RoleAdmin    = "admin"
)

// HasRole reports whether the actor carries the role.
func (a Actor) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsEmployer reports elevated visibility over calibration.
func (a Actor) IsEmployer() bool { return a.HasRole(RoleEmployer) || a.HasRole(RoleAdmin) }
