package service

import (
	"context"
	"slices"
	"strings"

	"kycengine/internal/cases/models"
	"kycengine/internal/validation"
	vmodels "kycengine/internal/verification/models"
	"kycengine/internal/verification/orchestrator"
	id "kycengine/pkg/domain"
	dErrors "kycengine/pkg/domain-errors"
	"kycengine/pkg/platform/audit"
	"kycengine/pkg/requestcontext"
)

// dispatch is a prepared enrichment waiting to run.
type dispatch struct {
	caseID id.CaseID
	req    orchestrator.Request
}

// Enrich gates the case on its pre-enrichment checks, dispatches every
// applicable provider and returns once all of them are terminal and the
// case is UNDER_REVIEW. A failing gate parks the case in
// AWAITING_EXTERNAL_RESPONSE with its defects instead.
func (s *Service) Enrich(ctx context.Context, caseID id.CaseID) (*models.Case, error) {
	c, d, err := s.prepareEnrichment(ctx, caseID)
	if err != nil || d == nil {
		return c, err
	}
	return s.runEnrichment(context.WithoutCancel(ctx), d)
}

// StartEnrichment is Enrich without waiting for providers. The returned case
// is ENRICHED (or parked); completion is applied in the background.
func (s *Service) StartEnrichment(ctx context.Context, caseID id.CaseID) (*models.Case, error) {
	c, d, err := s.prepareEnrichment(ctx, caseID)
	if err != nil || d == nil {
		return c, err
	}
	bg := detach(ctx)
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		if _, err := s.runEnrichment(bg, d); err != nil {
			s.logger.ErrorContext(bg, "background enrichment failed", "case_id", caseID, "error", err)
		}
	}()
	return c, nil
}

func (s *Service) prepareEnrichment(ctx context.Context, caseID id.CaseID) (*models.Case, *dispatch, error) {
	now := requestcontext.Now(ctx)
	var (
		d     *dispatch
		gated bool
	)
	c, err := s.mutate(ctx, caseID, func(c *models.Case) error {
		d, gated = nil, false
		if err := c.Require("enrich", models.StatusSubmitted); err != nil {
			return err
		}
		if c.IsBlocked() || c.Classification == nil {
			return dErrors.New(dErrors.CodeInvalidState, "case must be classified before enrichment")
		}
		snap := s.classifier.Catalog()
		if snap == nil {
			return dErrors.New(dErrors.CodeInternal, "no catalog loaded")
		}

		fields := c.Fields()
		pre := validation.PreEnrichment(snap, fields)
		c.Validation = models.Validation{PreEnrichment: &pre}
		if !pre.Passed() {
			gated = true
			return c.TransitionTo(models.StatusAwaitingExternalResponse, now)
		}

		plan := orchestrator.Plan(snap, fields)
		gen := c.Enrichment.Generation + 1
		c.Enrichment = vmodels.Enrichment{Generation: gen, StartedAt: now}
		for _, p := range vmodels.AllProviders {
			if plan[p] {
				c.Enrichment.Set(vmodels.Pending(p, gen, now))
			} else {
				c.Enrichment.Set(vmodels.NotApplicable(p, gen))
			}
		}
		d = &dispatch{caseID: c.ID, req: orchestrator.Request{
			Subject:     c.Subject(),
			Generation:  gen,
			Providers:   orchestrator.Applicable(plan),
			MaxAttempts: snap.MaxRetryAttempts(),
		}}
		return c.TransitionTo(models.StatusEnriched, now)
	})
	if err != nil {
		return nil, nil, err
	}
	if gated {
		s.emit(ctx, c, audit.EventValidationDefects, audit.Event{
			Reason:         defectCodes(c.Validation.Defects()),
			CatalogVersion: c.Validation.PreEnrichment.CatalogVersion,
		})
		return c, nil, nil
	}
	s.logger.InfoContext(ctx, "enrichment dispatched",
		"case_id", c.ID,
		"generation", d.req.Generation,
		"providers", d.req.Providers,
	)
	s.emit(ctx, c, audit.EventEnrichmentStarted, audit.Event{Reason: providerList(d.req.Providers)})
	return c, d, nil
}

func (s *Service) runEnrichment(ctx context.Context, d *dispatch) (*models.Case, error) {
	start := s.clock()
	d.req.OnResult = func(r vmodels.CheckResult) {
		if _, err := s.applyResult(ctx, d.caseID, r); err != nil {
			s.logger.ErrorContext(ctx, "failed to record provider result",
				"case_id", d.caseID,
				"provider", r.Provider,
				"error", err,
			)
		}
	}
	if _, err := s.verifier.Run(ctx, d.req); err != nil {
		return nil, err
	}
	c, err := s.completeEnrichment(ctx, d.caseID, d.req.Generation)
	s.metrics.ObserveEnrichment(start)
	return c, err
}

// completeEnrichment moves an ENRICHED case to review once its checks are
// terminal. A case that has moved on, or a newer generation, is left alone.
func (s *Service) completeEnrichment(ctx context.Context, caseID id.CaseID, generation int) (*models.Case, error) {
	now := s.clock()
	c, err := s.mutate(ctx, caseID, func(c *models.Case) error {
		if c.Status != models.StatusEnriched || c.Enrichment.Generation != generation {
			return errUnchanged
		}
		if !c.Enrichment.Stable() {
			return errUnchanged
		}
		c.Enrichment.CompletedAt = now
		if err := c.TransitionTo(models.StatusUnderReview, now); err != nil {
			return err
		}
		return s.refreshPostEnrichment(c)
	})
	if err != nil {
		return nil, err
	}
	if c.Status == models.StatusUnderReview && c.Enrichment.Generation == generation {
		counts := c.Enrichment.Counts()
		s.logger.InfoContext(ctx, "enrichment completed",
			"case_id", c.ID,
			"generation", generation,
			"succeeded", counts[vmodels.StatusSuccess],
			"failed", counts[vmodels.StatusFailed],
		)
		s.emit(ctx, c, audit.EventEnrichmentCompleted, audit.Event{Reason: providerList(c.Enrichment.Failed())})
	}
	return c, nil
}

// applyResult records a provider result if the case still accepts it. Cases
// already in review have their post-enrichment checks re-run.
func (s *Service) applyResult(ctx context.Context, caseID id.CaseID, r vmodels.CheckResult) (bool, error) {
	applied := false
	_, err := s.mutate(ctx, caseID, func(c *models.Case) error {
		applied = false
		if !c.AcceptsResult(r) {
			return errUnchanged
		}
		c.Enrichment.Set(r)
		c.UpdatedAt = s.clock()
		applied = true
		if c.Status == models.StatusEnriched {
			return nil
		}
		return s.refreshPostEnrichment(c)
	})
	return applied, err
}

// ApplyLateResult records a result whose attempt had been abandoned. It is
// discarded unless the case still accepts enrichment for that generation.
func (s *Service) ApplyLateResult(ctx context.Context, caseID string, r vmodels.CheckResult) {
	cid, err := id.ParseCaseID(caseID)
	if err != nil {
		s.logger.WarnContext(ctx, "late result for malformed case id", "case_id", caseID)
		return
	}
	applied, err := s.applyResult(ctx, cid, r)
	switch {
	case err != nil:
		s.metrics.IncrementLateResult("error")
		s.logger.ErrorContext(ctx, "failed to apply late provider result",
			"case_id", caseID,
			"provider", r.Provider,
			"error", err,
		)
	case applied:
		s.metrics.IncrementLateResult("applied")
		s.logger.InfoContext(ctx, "late provider result applied", "case_id", caseID, "provider", r.Provider)
	default:
		s.metrics.IncrementLateResult("discarded")
		s.logger.InfoContext(ctx, "late provider result discarded",
			"case_id", caseID,
			"provider", r.Provider,
			"generation", r.Generation,
		)
	}
}

// RetriggerCheck re-runs one provider check for the current generation,
// bypassing the result cache, and returns once it is terminal.
func (s *Service) RetriggerCheck(ctx context.Context, caseID id.CaseID, provider vmodels.Provider) (*models.Case, error) {
	now := requestcontext.Now(ctx)
	var req orchestrator.Request
	c, err := s.mutate(ctx, caseID, func(c *models.Case) error {
		if !c.Status.AcceptsEnrichment() {
			return dErrors.Newf(dErrors.CodeInvalidState, "cannot re-trigger checks on a case in %s", c.Status)
		}
		existing, ok := c.Enrichment.Get(provider)
		if !ok || existing.Status == vmodels.StatusNotApplicable {
			return dErrors.Newf(dErrors.CodeInvalidState, "%s does not apply to this case", provider)
		}
		if existing.Status == vmodels.StatusPending && s.verifier.Running(caseID.String()) {
			return dErrors.Newf(dErrors.CodeConflict, "%s check is already running", provider)
		}
		gen := c.Enrichment.Generation
		c.Enrichment.Set(vmodels.Pending(provider, gen, now))
		c.UpdatedAt = now
		req = orchestrator.Request{
			Subject:     c.Subject(),
			Generation:  gen,
			Providers:   []vmodels.Provider{provider},
			BypassCache: true,
		}
		if snap := s.classifier.Catalog(); snap != nil {
			req.MaxAttempts = snap.MaxRetryAttempts()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.emit(ctx, c, audit.EventCheckRetriggered, audit.Event{Reason: string(provider)})

	// The check is pending in the store now; a dropped request must not leave it there.
	run := context.WithoutCancel(ctx)
	req.OnResult = func(r vmodels.CheckResult) {
		if _, err := s.applyResult(run, caseID, r); err != nil {
			s.logger.ErrorContext(run, "failed to record provider result",
				"case_id", caseID,
				"provider", r.Provider,
				"error", err,
			)
		}
	}
	if _, err := s.verifier.Run(run, req); err != nil {
		return nil, err
	}
	if c.Status == models.StatusEnriched {
		return s.completeEnrichment(run, caseID, req.Generation)
	}
	return s.Get(run, caseID)
}

// CancelEnrichment stops further provider attempts for the case. Checks that
// were mid-retry fail as cancelled; the case still moves to review.
func (s *Service) CancelEnrichment(ctx context.Context, caseID id.CaseID) (*models.Case, error) {
	c, err := s.Get(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if !s.verifier.Cancel(caseID.String()) {
		return nil, dErrors.New(dErrors.CodeInvalidState, "no enrichment is running for this case")
	}
	s.logger.InfoContext(ctx, "enrichment cancelled", "case_id", caseID)
	s.emit(ctx, c, audit.EventEnrichmentCancelled, audit.Event{})
	return c, nil
}

// Revalidate re-runs the validation checks for the case's stage. A parked
// case whose gates now pass returns to SUBMITTED; a case in review has its
// post-enrichment defects refreshed, for example after a catalog reload.
func (s *Service) Revalidate(ctx context.Context, caseID id.CaseID) (*models.Case, error) {
	now := requestcontext.Now(ctx)
	c, err := s.mutate(ctx, caseID, func(c *models.Case) error {
		switch c.Status {
		case models.StatusAwaitingExternalResponse:
			snap := s.classifier.Catalog()
			if snap == nil {
				return dErrors.New(dErrors.CodeInternal, "no catalog loaded")
			}
			pre := validation.PreEnrichment(snap, c.Fields())
			c.Validation = models.Validation{PreEnrichment: &pre}
			c.UpdatedAt = now
			if pre.Passed() {
				return c.TransitionTo(models.StatusSubmitted, now)
			}
			return nil
		case models.StatusUnderReview, models.StatusOnHold:
			c.UpdatedAt = now
			return s.refreshPostEnrichment(c)
		default:
			return dErrors.Newf(dErrors.CodeInvalidState, "cannot revalidate a case in %s", c.Status)
		}
	})
	if err != nil {
		return nil, err
	}
	if defects := c.Validation.Defects(); len(defects) > 0 {
		s.emit(ctx, c, audit.EventValidationDefects, audit.Event{Reason: defectCodes(defects)})
	}
	return c, nil
}

// refreshPostEnrichment re-runs post-enrichment checks against the current
// catalog and recomputes the partial-enrichment flag.
func (s *Service) refreshPostEnrichment(c *models.Case) error {
	snap := s.classifier.Catalog()
	if snap == nil {
		return dErrors.New(dErrors.CodeInternal, "no catalog loaded")
	}
	post := validation.PostEnrichment(snap, c.Fields())
	c.Validation.PostEnrichment = &post

	failed := len(c.Enrichment.Failed()) > 0
	switch {
	case failed:
		c.AddFlag(models.FlagPartialEnrichment)
	case c.HasFlag(models.FlagPartialEnrichment):
		c.Flags = slices.DeleteFunc(c.Flags, func(f string) bool { return f == models.FlagPartialEnrichment })
	}
	return nil
}

// detach keeps request identity for background work but drops the request's
// deadline, cancellation and fixed clock.
func detach(ctx context.Context) context.Context {
	bg := requestcontext.WithRequestID(context.Background(), requestcontext.RequestID(ctx))
	return requestcontext.WithActor(bg, requestcontext.Actor(ctx))
}

func defectCodes(defects []validation.Defect) string {
	codes := make([]string, 0, len(defects))
	for _, d := range defects {
		codes = append(codes, d.CheckCode)
	}
	return strings.Join(codes, ",")
}

func providerList(ps []vmodels.Provider) string {
	names := make([]string, 0, len(ps))
	for _, p := range ps {
		names = append(names, string(p))
	}
	return strings.Join(names, ",")
}
