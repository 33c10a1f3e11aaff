package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies and routing downstream.
type EventCategory string

const (
	// CategoryCompliance covers grants and revocations of access to external
	// systems. These must be retained for access reviews.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers failed revocations and locally disabled access
	// where the external grant may still be live.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine workflow bookkeeping.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category     EventCategory
	Timestamp    time.Time
	Action       string
	ActorID      string
	ResourceType string
	ResourceID   string
	EmployeeID   string
	Decision     string // "success" or "failure"
	Reason       string
	RequestID    string
	ClientIP     string
	UserAgent    string
	Metadata     map[string]string
}

// Decision outcomes.
const (
	DecisionSuccess = "success"
	DecisionFailure = "failure"
)

// Resource types.
const (
	ResourceAccount     = "app_account"
	ResourceWorkflow    = "offboarding_workflow"
	ResourceTask        = "offboarding_task"
	ResourceIntegration = "integration"
)

type AuditEvent string

const (
	// Account events
	EventAccountProvisioned       AuditEvent = "account_provisioned"
	EventAccountProvisionFailed   AuditEvent = "account_provision_failed"
	EventAccountDeprovisioned     AuditEvent = "account_deprovisioned"
	EventAccountDeprovisionFailed AuditEvent = "account_deprovision_failed"
	EventAccountDisabled          AuditEvent = "account_disabled"

	// Offboarding events
	EventOffboardingStarted   AuditEvent = "offboarding_started"
	EventOffboardingCompleted AuditEvent = "offboarding_completed"
	EventOffboardingCancelled AuditEvent = "offboarding_cancelled"
	EventTaskSucceeded        AuditEvent = "offboarding_task_succeeded"
	EventTaskFailed           AuditEvent = "offboarding_task_failed"
	EventTaskSkipped          AuditEvent = "offboarding_task_skipped"
	EventTaskCompleted        AuditEvent = "offboarding_task_completed"

	// Integration events
	EventConnectionTested AuditEvent = "connection_tested"
)

// eventCategories maps each audit event to its category.
var eventCategories = map[AuditEvent]EventCategory{
	EventAccountProvisioned:   CategoryCompliance,
	EventAccountDeprovisioned: CategoryCompliance,
	EventOffboardingStarted:   CategoryCompliance,
	EventOffboardingCompleted: CategoryCompliance,

	EventAccountDeprovisionFailed: CategorySecurity,
	EventAccountDisabled:          CategorySecurity,
	EventTaskFailed:               CategorySecurity,
	EventOffboardingCancelled:     CategorySecurity,

	EventAccountProvisionFailed: CategoryOperations,
	EventTaskSucceeded:          CategoryOperations,
	EventTaskSkipped:            CategoryOperations,
	EventTaskCompleted:          CategoryOperations,
	EventConnectionTested:       CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByResource(ctx context.Context, resourceType, resourceID string) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}
