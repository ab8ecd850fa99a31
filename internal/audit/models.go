package audit

import "time"

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp      time.Time `json:"timestamp"`
	UserID         string    `json:"user_id"`
	Action         string    `json:"action"`
	Branch         string    `json:"branch,omitempty"`
	CatalogVersion string    `json:"catalog_version,omitempty"`
	Reason         string    `json:"reason,omitempty"`
	RequestID      string    `json:"request_id,omitempty"`
}

type AuditEvent string

const (
	EventTriageCompleted    AuditEvent = "triage_completed"
	EventTriageSubmitFailed AuditEvent = "triage_submit_failed"
	EventTriageDraftReset   AuditEvent = "triage_draft_reset"
)
