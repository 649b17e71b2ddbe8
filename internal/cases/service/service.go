// Package service runs the case workflow: intake, classification, gated
// enrichment, review and downstream submission. Every write is an optimistic
// read-modify-write against the case store.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"kycengine/internal/cases/metrics"
	"kycengine/internal/cases/models"
	"kycengine/internal/catalog"
	"kycengine/internal/classification"
	"kycengine/internal/submission"
	vmodels "kycengine/internal/verification/models"
	"kycengine/internal/verification/orchestrator"
	id "kycengine/pkg/domain"
	dErrors "kycengine/pkg/domain-errors"
	"kycengine/pkg/platform/audit"
	"kycengine/pkg/platform/sentinel"
	"kycengine/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,Classifier,Verifier,AuditPublisher

type Store interface {
	Create(ctx context.Context, c *models.Case) error
	FindByID(ctx context.Context, caseID id.CaseID) (*models.Case, error)
	Update(ctx context.Context, c *models.Case) error
	List(ctx context.Context, filter models.ListFilter) (models.Page, error)
}

type Classifier interface {
	Classify(ctx context.Context, in classification.Input) (*classification.Result, error)
	ClassifyManual(ctx context.Context, in classification.Input, roleMain, roleSub string) (*classification.Result, error)
	Catalog() *catalog.Snapshot
}

type Verifier interface {
	Run(ctx context.Context, req orchestrator.Request) (map[vmodels.Provider]vmodels.CheckResult, error)
	Cancel(caseID string) bool
	Running(caseID string) bool
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Transactor runs fn in one unit of work. Store writes and audit appends made
// with fn's context commit or roll back together.
type Transactor interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// inline is the Transactor for stores without transactions.
type inline struct{}

func (inline) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

const maxConflictRetries = 5

// errUnchanged aborts a mutation without writing.
var errUnchanged = errors.New("case unchanged")

// Service orchestrates the case lifecycle.
type Service struct {
	store      Store
	classifier Classifier
	verifier   Verifier
	publisher  submission.Publisher
	audit      AuditPublisher
	tx         Transactor
	logger     *slog.Logger
	metrics    *metrics.Metrics
	clock      func() time.Time

	background sync.WaitGroup
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) { s.audit = p }
}

// WithTransactor makes each case write and its transition audit event one
// transaction.
func WithTransactor(t Transactor) Option {
	return func(s *Service) { s.tx = t }
}

// WithClock sets the clock used for background work that has no request time.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.clock = now }
}

// New constructs a Service.
func New(store Store, classifier Classifier, verifier Verifier, publisher submission.Publisher, opts ...Option) *Service {
	s := &Service{
		store:      store,
		classifier: classifier,
		verifier:   verifier,
		publisher:  publisher,
		tx:         inline{},
		logger:     slog.New(slog.DiscardHandler),
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Shutdown waits for background enrichments to finish or ctx to end.
func (s *Service) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.background.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CreateInput is the intake of a new case.
type CreateInput struct {
	ClientRef    string
	BusinessUnit string
	AssignedUser string
	Entity       models.Entity
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Case, error) {
	c, err := models.NewCase(id.NewCaseID(), in.Entity, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	c.ClientRef = strings.TrimSpace(in.ClientRef)
	c.BusinessUnit = strings.TrimSpace(in.BusinessUnit)
	c.AssignedUser = strings.TrimSpace(in.AssignedUser)

	if err := s.store.Create(ctx, c); err != nil {
		return nil, wrapCaseErr(err)
	}
	s.logger.InfoContext(ctx, "case created", "case_id", c.ID, "entity_name", c.EntityName)
	s.emit(ctx, c, audit.EventCaseCreated, audit.Event{ToState: string(c.Status)})
	return c, nil
}

func (s *Service) Get(ctx context.Context, caseID id.CaseID) (*models.Case, error) {
	c, err := s.store.FindByID(ctx, caseID)
	if err != nil {
		return nil, wrapCaseErr(err)
	}
	return c, nil
}

func (s *Service) List(ctx context.Context, filter models.ListFilter) (models.Page, error) {
	page, err := s.store.List(ctx, filter)
	if err != nil {
		if _, ok := dErrors.As(err); ok {
			return models.Page{}, err
		}
		return models.Page{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list cases")
	}
	return page, nil
}

// UpdateInput changes case metadata and, while the case is still at intake,
// the declared entity. Nil fields are left alone.
type UpdateInput struct {
	// ExpectedVersion rejects the update when the case has moved on; zero skips the check.
	ExpectedVersion int
	ClientRef       *string
	BusinessUnit    *string
	AssignedUser    *string
	Entity          *models.Entity
}

func (s *Service) Update(ctx context.Context, caseID id.CaseID, in UpdateInput) (*models.Case, error) {
	now := requestcontext.Now(ctx)
	entityChanged := false
	c, err := s.mutate(ctx, caseID, func(c *models.Case) error {
		if in.ExpectedVersion > 0 && c.Version != in.ExpectedVersion {
			return dErrors.Newf(dErrors.CodeConflict, "case is at version %d, not %d", c.Version, in.ExpectedVersion)
		}
		if c.Status.IsTerminal() {
			return dErrors.Newf(dErrors.CodeInvalidState, "case in %s cannot be edited", c.Status)
		}
		if in.Entity != nil {
			if err := c.SetEntity(*in.Entity, now); err != nil {
				return err
			}
			entityChanged = true
		}
		if in.ClientRef != nil {
			c.ClientRef = strings.TrimSpace(*in.ClientRef)
		}
		if in.BusinessUnit != nil {
			c.BusinessUnit = strings.TrimSpace(*in.BusinessUnit)
		}
		if in.AssignedUser != nil {
			c.AssignedUser = strings.TrimSpace(*in.AssignedUser)
		}
		c.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	reason := "metadata"
	if entityChanged {
		reason = "entity"
	}
	s.emit(ctx, c, audit.EventCaseUpdated, audit.Event{Reason: reason})
	return c, nil
}

// Submit moves a DRAFT case into the workflow.
func (s *Service) Submit(ctx context.Context, caseID id.CaseID) (*models.Case, error) {
	now := requestcontext.Now(ctx)
	return s.mutate(ctx, caseID, func(c *models.Case) error {
		if err := c.Require("submit", models.StatusDraft); err != nil {
			return err
		}
		var missing []string
		if c.Entity.LegalName == "" {
			missing = append(missing, "legalName")
		}
		if c.Entity.Country == "" {
			missing = append(missing, "country")
		}
		if len(missing) > 0 {
			return dErrors.Newf(dErrors.CodeValidation, "entity is missing %s", strings.Join(missing, ", "))
		}
		return c.TransitionTo(models.StatusSubmitted, now)
	})
}

// Classify runs the classifier against the current catalog. A blocking
// outcome is recorded on the case and returned as the error.
func (s *Service) Classify(ctx context.Context, caseID id.CaseID) (*models.Case, error) {
	now := requestcontext.Now(ctx)
	var classifyErr error
	c, err := s.mutate(ctx, caseID, func(c *models.Case) error {
		if !c.Status.AllowsClassification() {
			return dErrors.Newf(dErrors.CodeInvalidState, "cannot classify a case in %s", c.Status)
		}
		res, err := s.classifier.Classify(ctx, c.ClassificationInput())
		classifyErr = err
		if err != nil {
			if !isBlock(err) {
				return err
			}
			c.Blocked(err, now)
			return nil
		}
		c.Classified(res, now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if classifyErr != nil {
		s.emit(ctx, c, audit.EventClassificationBlock, audit.Event{Reason: string(dErrors.CodeOf(classifyErr))})
		return nil, classifyErr
	}
	s.emit(ctx, c, audit.EventCaseClassified, audit.Event{
		Decision:       c.Classification.FinalRiskProfile,
		CatalogVersion: c.Classification.CatalogVersion,
	})
	return c, nil
}

// ManualClassification is a reviewer-supplied role for a blocked case.
type ManualClassification struct {
	RoleMain string
	RoleSub  string
	Reason   string
}

// ClassifyManually resolves a blocked case with a reviewer-supplied role.
// The matrix and document set still come from the catalog.
func (s *Service) ClassifyManually(ctx context.Context, caseID id.CaseID, in ManualClassification) (*models.Case, error) {
	if strings.TrimSpace(in.Reason) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "reason is required for manual classification")
	}
	now := requestcontext.Now(ctx)
	var classifyErr error
	c, err := s.mutate(ctx, caseID, func(c *models.Case) error {
		if !c.Status.AllowsClassification() {
			return dErrors.Newf(dErrors.CodeInvalidState, "cannot classify a case in %s", c.Status)
		}
		if !c.IsBlocked() {
			return dErrors.New(dErrors.CodeInvalidState, "manual classification is only allowed for blocked cases")
		}
		res, err := s.classifier.ClassifyManual(ctx, c.ClassificationInput(), in.RoleMain, in.RoleSub)
		classifyErr = err
		if err != nil {
			if !isBlock(err) {
				return err
			}
			c.Blocked(err, now)
			return nil
		}
		c.Classified(res, now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if classifyErr != nil {
		s.emit(ctx, c, audit.EventClassificationBlock, audit.Event{Reason: string(dErrors.CodeOf(classifyErr))})
		return nil, classifyErr
	}
	s.emit(ctx, c, audit.EventManualClassification, audit.Event{
		Decision:       c.Classification.RoleMain + "/" + c.Classification.RoleSub,
		Reason:         in.Reason,
		CatalogVersion: c.Classification.CatalogVersion,
	})
	return c, nil
}

// DecisionInput is a reviewer decision.
type DecisionInput struct {
	Outcome  models.Outcome
	Reason   string
	Reviewer string
}

// Decide records a reviewer decision on a case UNDER_REVIEW. Approval needs a
// stable enrichment, no outstanding defects and a classification made against
// the current catalog.
func (s *Service) Decide(ctx context.Context, caseID id.CaseID, in DecisionInput) (*models.Case, error) {
	reviewer := strings.TrimSpace(in.Reviewer)
	if reviewer == "" {
		reviewer = requestcontext.Actor(ctx)
	}
	if reviewer == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "reviewer is required")
	}
	reason := strings.TrimSpace(in.Reason)
	if in.Outcome != models.OutcomeApprove && reason == "" {
		return nil, dErrors.Newf(dErrors.CodeValidation, "reason is required to %s", strings.ToLower(string(in.Outcome)))
	}

	now := requestcontext.Now(ctx)
	c, err := s.mutate(ctx, caseID, func(c *models.Case) error {
		if err := c.Require("decide", models.StatusUnderReview); err != nil {
			return err
		}
		if in.Outcome == models.OutcomeApprove {
			if err := s.approvable(c); err != nil {
				return err
			}
		}
		c.Decision = &models.Decision{Reviewer: reviewer, Outcome: in.Outcome, Reason: reason, DecidedAt: now}
		return c.TransitionTo(in.Outcome.Target(), now)
	})
	if err != nil {
		return nil, err
	}
	catalogVersion := ""
	if c.Classification != nil {
		catalogVersion = c.Classification.CatalogVersion
	}
	s.emit(ctx, c, audit.EventReviewDecision, audit.Event{
		Actor:          reviewer,
		Decision:       string(in.Outcome),
		Reason:         reason,
		CatalogVersion: catalogVersion,
	})
	return c, nil
}

func (s *Service) approvable(c *models.Case) error {
	if c.IsBlocked() || c.Classification == nil {
		return dErrors.New(dErrors.CodeInvalidState, "case has no usable classification")
	}
	if !c.Enrichment.Stable() {
		return dErrors.New(dErrors.CodeInvalidState, "verification checks are still pending")
	}
	if defects := c.Validation.Defects(); len(defects) > 0 {
		codes := make([]string, 0, len(defects))
		for _, d := range defects {
			codes = append(codes, d.CheckCode)
		}
		return dErrors.Newf(dErrors.CodeValidationFailed, "outstanding validation defects: %s", strings.Join(codes, ", "))
	}
	current := s.classifier.Catalog()
	if current == nil {
		return dErrors.New(dErrors.CodeInternal, "no catalog loaded")
	}
	if c.Classification.CatalogVersion != current.Version() {
		return dErrors.Newf(dErrors.CodeCatalogVersionMismatch,
			"classified against catalog %s but %s is current; re-classify", c.Classification.CatalogVersion, current.Version())
	}
	return nil
}

// Resume returns an ON_HOLD case to review and refreshes its defects.
func (s *Service) Resume(ctx context.Context, caseID id.CaseID) (*models.Case, error) {
	now := requestcontext.Now(ctx)
	return s.mutate(ctx, caseID, func(c *models.Case) error {
		if err := c.Require("resume", models.StatusOnHold); err != nil {
			return err
		}
		if err := c.TransitionTo(models.StatusUnderReview, now); err != nil {
			return err
		}
		return s.refreshPostEnrichment(c)
	})
}

// mutate loads a case, applies fn and writes it back. Version conflicts
// re-run fn on a fresh copy. fn returning errUnchanged skips the write.
func (s *Service) mutate(ctx context.Context, caseID id.CaseID, fn func(c *models.Case) error) (*models.Case, error) {
	for attempt := 1; ; attempt++ {
		c, err := s.store.FindByID(ctx, caseID)
		if err != nil {
			return nil, wrapCaseErr(err)
		}
		from := c.Status
		if err := fn(c); err != nil {
			if errors.Is(err, errUnchanged) {
				return c, nil
			}
			return nil, err
		}
		err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
			if err := s.store.Update(ctx, c); err != nil {
				return err
			}
			if c.Status != from {
				s.emit(ctx, c, audit.EventCaseTransitioned, audit.Event{FromState: string(from), ToState: string(c.Status)})
			}
			return nil
		})
		if errors.Is(err, sentinel.ErrConflict) && attempt < maxConflictRetries {
			s.metrics.IncrementConflictRetry()
			s.logger.DebugContext(ctx, "case write conflict, retrying", "case_id", caseID, "attempt", attempt)
			continue
		}
		if err != nil {
			return nil, wrapCaseErr(err)
		}
		if c.Status != from {
			s.metrics.IncrementTransition(string(from), string(c.Status))
			s.logger.InfoContext(ctx, "case transitioned",
				"case_id", c.ID,
				"from", from,
				"to", c.Status,
			)
		}
		return c, nil
	}
}

func (s *Service) emit(ctx context.Context, c *models.Case, action audit.AuditEvent, event audit.Event) {
	if s.audit == nil {
		return
	}
	event.Action = string(action)
	event.CaseID = c.ID
	event.Timestamp = requestcontext.Now(ctx)
	event.RequestID = requestcontext.RequestID(ctx)
	if event.Actor == "" {
		event.Actor = requestcontext.Actor(ctx)
	}
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event",
			"action", action,
			"case_id", c.ID,
			"error", err,
		)
	}
}

// isBlock reports whether a classification error is a case condition a
// reviewer can resolve. Catalog integrity failures are not: they leave the
// case untouched and surface as engine errors.
func isBlock(err error) bool {
	return dErrors.HasCode(err, dErrors.CodeRoleUnresolved) ||
		dErrors.HasCode(err, dErrors.CodeNoMatrixRule)
}

func wrapCaseErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "case not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "case was modified concurrently; retry")
	}
	if _, ok := dErrors.As(err); ok {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "case store failure")
}
