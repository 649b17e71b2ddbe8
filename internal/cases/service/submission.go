package service

import (
	"context"
	"strings"

	"kycengine/internal/cases/models"
	"kycengine/internal/submission"
	id "kycengine/pkg/domain"
	dErrors "kycengine/pkg/domain-errors"
	"kycengine/pkg/platform/audit"
	"kycengine/pkg/requestcontext"
)

// Submission priorities accepted downstream.
const (
	PriorityLow    = "LOW"
	PriorityNormal = "NORMAL"
	PriorityHigh   = "HIGH"
)

// ConvertSubmission builds the downstream document without sending it.
func (s *Service) ConvertSubmission(ctx context.Context, caseID id.CaseID) (*submission.Document, error) {
	c, err := s.Get(ctx, caseID)
	if err != nil {
		return nil, err
	}
	return submission.Convert(c)
}

// SendOptions describe a hand-off request.
type SendOptions struct {
	SentBy          string
	Priority        string
	ReferencePrefix string
}

// SendSubmission publishes an approved case downstream and completes
// onboarding. Sending a case that already completed republishes the same
// bytes and leaves the case untouched.
func (s *Service) SendSubmission(ctx context.Context, caseID id.CaseID, opts SendOptions) (*models.Case, error) {
	priority := strings.ToUpper(strings.TrimSpace(opts.Priority))
	switch priority {
	case "":
		priority = PriorityNormal
	case PriorityLow, PriorityNormal, PriorityHigh:
	default:
		return nil, dErrors.Newf(dErrors.CodeValidation, "priority must be LOW, NORMAL or HIGH, got %q", opts.Priority)
	}
	sentBy := strings.TrimSpace(opts.SentBy)
	if sentBy == "" {
		sentBy = requestcontext.Actor(ctx)
	}

	c, err := s.Get(ctx, caseID)
	if err != nil {
		return nil, err
	}
	doc, err := submission.Convert(c)
	if err != nil {
		return nil, err
	}

	resend := c.Status == models.StatusOnboardingComplete
	msg := submission.Message{
		Key:       c.ID.String(),
		Value:     doc.Bytes,
		Digest:    doc.Digest,
		Priority:  priority,
		Reference: reference(opts.ReferencePrefix, c),
	}
	if resend && c.Submission != nil {
		msg.Priority = c.Submission.Priority
		msg.Reference = c.Submission.Reference
	}
	if err := s.publisher.Publish(ctx, msg); err != nil {
		s.metrics.IncrementSubmission("failed")
		s.logger.ErrorContext(ctx, "submission publish failed", "case_id", c.ID, "error", err)
		return nil, dErrors.Wrap(err, dErrors.CodeProviderUnavailable, "downstream submission failed")
	}
	if resend {
		s.metrics.IncrementSubmission("resent")
		s.logger.InfoContext(ctx, "submission resent", "case_id", c.ID, "digest", doc.Digest)
		return c, nil
	}

	now := requestcontext.Now(ctx)
	c, err = s.mutate(ctx, caseID, func(c *models.Case) error {
		if c.Status == models.StatusOnboardingComplete {
			return errUnchanged
		}
		if err := c.Require("submit downstream", models.StatusApproved); err != nil {
			return err
		}
		c.Submission = &models.Submission{
			ProcessID: doc.ProcessID(),
			Digest:    doc.Digest,
			Status:    submission.StatusQueued,
			Priority:  msg.Priority,
			Reference: msg.Reference,
			SentAt:    now,
			SentBy:    sentBy,
		}
		return c.TransitionTo(models.StatusOnboardingComplete, now)
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncrementSubmission("sent")
	s.logger.InfoContext(ctx, "submission sent",
		"case_id", c.ID,
		"process_id", c.Submission.ProcessID,
		"digest", doc.Digest,
	)
	s.emit(ctx, c, audit.EventSubmissionSent, audit.Event{
		Actor:    sentBy,
		Decision: c.Submission.ProcessID,
		Reason:   priority,
	})
	return c, nil
}

func reference(prefix string, c *models.Case) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return c.ID.Ref()
	}
	return prefix + "-" + c.ID.Ref()
}
