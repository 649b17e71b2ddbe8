// Package contract holds reusable conformance checks for verification
// providers: every provider must return the payload keys downstream checks
// read, and must classify failures into the shared error taxonomy.
package contract

import (
	"context"
	"testing"

	"kycengine/internal/verification/models"
	"kycengine/internal/verification/providers"
)

// ContractTest is one successful lookup and the payload keys it must yield.
type ContractTest struct {
	Name         string
	Subject      models.Subject
	RequiredKeys []string
	ValidateFunc func(payload map[string]any) error
}

// ContractSuite is a collection of contract tests for a provider.
type ContractSuite struct {
	Provider providers.Provider
	Tests    []ContractTest
}

// Run executes all contract tests in the suite.
func (s *ContractSuite) Run(t *testing.T) {
	for _, test := range s.Tests {
		t.Run(test.Name, func(t *testing.T) {
			payload, err := s.Provider.Check(context.Background(), test.Subject)
			if err != nil {
				t.Fatalf("provider check failed: %v", err)
			}
			for _, key := range test.RequiredKeys {
				if _, ok := payload[key]; !ok {
					t.Errorf("payload missing %q: %v", key, payload)
				}
			}
			if test.ValidateFunc != nil {
				if err := test.ValidateFunc(payload); err != nil {
					t.Errorf("custom validation failed: %v", err)
				}
			}
		})
	}
}

// ErrorContractTest validates that provider errors follow the taxonomy.
type ErrorContractTest struct {
	Name          string
	Provider      providers.Provider
	Subject       models.Subject
	ExpectedError providers.ErrorCategory
	ExpectedRetry bool
}

// Run executes an error contract test.
func (ect *ErrorContractTest) Run(t *testing.T) {
	t.Run(ect.Name, func(t *testing.T) {
		_, err := ect.Provider.Check(context.Background(), ect.Subject)
		if err == nil {
			t.Fatal("expected error but got none")
		}
		if category := providers.GetCategory(err); category != ect.ExpectedError {
			t.Errorf("expected error category %s, got %s (%v)", ect.ExpectedError, category, err)
		}
		if retry := providers.IsRetryable(err); retry != ect.ExpectedRetry {
			t.Errorf("expected retryable=%v, got %v", ect.ExpectedRetry, retry)
		}
	})
}
