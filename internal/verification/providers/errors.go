package providers

import (
	"context"
	"errors"
	"fmt"

	"kycengine/internal/verification/models"
)

// ErrorCategory is the normalized failure taxonomy shared by all providers.
type ErrorCategory string

const (
	// ErrorTimeout indicates the provider took too long to respond
	ErrorTimeout ErrorCategory = "timeout"

	// ErrorBadData indicates the provider returned invalid/malformed data
	ErrorBadData ErrorCategory = "bad_data"

	// ErrorAuthentication indicates credential or permission issues
	ErrorAuthentication ErrorCategory = "authentication"

	// ErrorProviderOutage indicates the provider is unavailable, including an open circuit
	ErrorProviderOutage ErrorCategory = "provider_outage"

	// ErrorNotFound indicates the provider has no record of the entity
	ErrorNotFound ErrorCategory = "not_found"

	// ErrorRateLimited indicates too many requests
	ErrorRateLimited ErrorCategory = "rate_limited"

	// ErrorInsufficientInput indicates the case lacks the identifiers the provider needs
	ErrorInsufficientInput ErrorCategory = "insufficient_input"

	// ErrorCancelled indicates enrichment was cancelled before the check finished
	ErrorCancelled ErrorCategory = "cancelled"

	// ErrorInternal indicates an unexpected internal error
	ErrorInternal ErrorCategory = "internal"
)

// ProviderError wraps provider failures with normalized categorization.
type ProviderError struct {
	Category   ErrorCategory
	Provider   models.Provider
	Message    string
	Underlying error
	Retryable  bool
}

func (e *ProviderError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("provider %s [%s]: %s: %v", e.Provider, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("provider %s [%s]: %s", e.Provider, e.Category, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Underlying
}

// NewProviderError creates a normalized provider error. Timeouts, outages and
// rate limiting are retryable; everything else is final.
func NewProviderError(category ErrorCategory, provider models.Provider, message string, underlying error) *ProviderError {
	retryable := category == ErrorTimeout ||
		category == ErrorProviderOutage ||
		category == ErrorRateLimited

	return &ProviderError{
		Category:   category,
		Provider:   provider,
		Message:    message,
		Underlying: underlying,
		Retryable:  retryable,
	}
}

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// GetCategory extracts the error category from an error.
func GetCategory(err error) ErrorCategory {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Category
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorTimeout
	case errors.Is(err, context.Canceled):
		return ErrorCancelled
	}
	return ErrorInternal
}

// AsFailure converts err into the failure arm of a check result.
func AsFailure(err error) models.Failure {
	return models.Failure{
		Category:  string(GetCategory(err)),
		Message:   err.Error(),
		Retryable: IsRetryable(err),
	}
}
