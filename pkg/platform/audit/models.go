package audit

import (
	"context"
	"time"

	id "kycengine/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with regulatory significance: classification
	// outcomes, review decisions, downstream submissions.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers routine workflow activity such as check dispatch.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	CaseID    id.CaseID
	Action    string
	// Actor is the declared operator identity, empty for system actions.
	Actor     string
	FromState string
	ToState   string
	Decision  string
	Reason    string
	// CatalogVersion records which rule catalog snapshot produced the outcome.
	CatalogVersion string
	RequestID      string
}

type AuditEvent string

const (
	EventCaseCreated          AuditEvent = "case_created"
	EventCaseUpdated          AuditEvent = "case_updated"
	EventCaseTransitioned     AuditEvent = "case_transitioned"
	EventCaseClassified       AuditEvent = "case_classified"
	EventClassificationBlock  AuditEvent = "classification_blocked"
	EventManualClassification AuditEvent = "classification_manual"
	EventValidationDefects    AuditEvent = "validation_defects"
	EventEnrichmentStarted    AuditEvent = "enrichment_started"
	EventEnrichmentCompleted  AuditEvent = "enrichment_completed"
	EventEnrichmentCancelled  AuditEvent = "enrichment_cancelled"
	EventCheckRetriggered     AuditEvent = "check_retriggered"
	EventReviewDecision       AuditEvent = "review_decision"
	EventSubmissionSent       AuditEvent = "submission_sent"
	EventCatalogReloaded      AuditEvent = "catalog_reloaded"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventCaseCreated:          CategoryCompliance,
	EventCaseClassified:       CategoryCompliance,
	EventClassificationBlock:  CategoryCompliance,
	EventManualClassification: CategoryCompliance,
	EventReviewDecision:       CategoryCompliance,
	EventSubmissionSent:       CategoryCompliance,
	EventCatalogReloaded:      CategoryCompliance,

	EventCaseUpdated:         CategoryOperations,
	EventCaseTransitioned:    CategoryOperations,
	EventValidationDefects:   CategoryOperations,
	EventEnrichmentStarted:   CategoryOperations,
	EventEnrichmentCompleted: CategoryOperations,
	EventEnrichmentCancelled: CategoryOperations,
	EventCheckRetriggered:    CategoryOperations,
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
	ListByCase(ctx context.Context, caseID id.CaseID) ([]Event, error)
}
