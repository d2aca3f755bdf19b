package audit

import (
	"context"
	"time"

	"github.com/segmentio/ksuid"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/regulatory significance.
	// Issuing a patient identifier is one: the record must be reconstructable.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to security monitoring.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine activity that can be sampled.
	CategoryOperations EventCategory = "operations"
)

// AuditEvent names an audited action.
type AuditEvent string

const (
	EventPIDIssued           AuditEvent = "pid_issued"
	EventPIDRejected         AuditEvent = "pid_rejected"
	EventWristbandRequested  AuditEvent = "wristband_requested"
	EventSequenceUnavailable AuditEvent = "sequence_unavailable"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventPIDIssued:           CategoryCompliance,
	EventWristbandRequested:  CategoryCompliance,
	EventPIDRejected:         CategorySecurity,
	EventSequenceUnavailable: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        string        `json:"id"`
	Category  EventCategory `json:"category"`
	Timestamp time.Time     `json:"timestamp"`
	Action    string        `json:"action"`
	// Subject is the patient identifier the action concerns.
	Subject  string `json:"subject,omitempty"`
	SiteCode string `json:"site_code,omitempty"`
	Decision string `json:"decision,omitempty"`
	Reason   string `json:"reason,omitempty"`
	// RequestID is the correlation ID from the HTTP request context.
	RequestID string `json:"request_id,omitempty"`
	// ActorID identifies the workstation or clerk when the caller supplies one.
	ActorID string `json:"actor_id,omitempty"`
}

// NewEvent fills ID, Category and Timestamp for action.
func NewEvent(action AuditEvent, at time.Time) Event {
	return Event{
		ID:        ksuid.New().String(),
		Category:  action.Category(),
		Timestamp: at,
		Action:    string(action),
	}
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}
