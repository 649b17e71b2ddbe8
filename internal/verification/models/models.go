// Package models holds the verification check types shared by providers, the
// orchestrator and the case aggregate.
package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"kycengine/internal/predicate"
	dErrors "kycengine/pkg/domain-errors"
)

// Provider identifies an external verification source.
type Provider string

const (
	ProviderCompaniesHouse Provider = "companiesHouse" // company registry
	ProviderFCA            Provider = "fca"            // financial regulator
	ProviderDNB            Provider = "dnb"            // credit bureau
	ProviderLexisNexis     Provider = "lexisNexis"     // adverse media and sanctions screening
)

// AllProviders lists every provider in a stable order.
var AllProviders = []Provider{ProviderCompaniesHouse, ProviderFCA, ProviderDNB, ProviderLexisNexis}

func ParseProvider(v string) (Provider, error) {
	for _, p := range AllProviders {
		if strings.EqualFold(string(p), strings.TrimSpace(v)) {
			return p, nil
		}
	}
	return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown provider %q", v)
}

// CheckStatus is the lifecycle of one provider check.
//
//	not_applicable (terminal)
//	pending ──► success | failed
type CheckStatus string

const (
	StatusNotApplicable CheckStatus = "not_applicable"
	StatusPending       CheckStatus = "pending"
	StatusSuccess       CheckStatus = "success"
	StatusFailed        CheckStatus = "failed"
)

func (s CheckStatus) IsTerminal() bool {
	return s == StatusNotApplicable || s == StatusSuccess || s == StatusFailed
}

// Failure explains a failed check.
type Failure struct {
	Category  string `json:"category"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// CheckResult is one provider's check on one case. Payload is set only on
// success and Failure only on failure; use the constructors.
type CheckResult struct {
	Provider    Provider       `json:"provider"`
	Status      CheckStatus    `json:"status"`
	Generation  int            `json:"generation"`
	Attempts    int            `json:"attempts"`
	Cached      bool           `json:"cached,omitempty"`
	RequestedAt time.Time      `json:"requestedAt,omitzero"`
	CompletedAt time.Time      `json:"completedAt,omitzero"`
	Payload     map[string]any `json:"payload,omitempty"`
	Failure     *Failure       `json:"failure,omitempty"`
}

func NotApplicable(p Provider, generation int) CheckResult {
	return CheckResult{Provider: p, Status: StatusNotApplicable, Generation: generation}
}

func Pending(p Provider, generation int, at time.Time) CheckResult {
	return CheckResult{Provider: p, Status: StatusPending, Generation: generation, RequestedAt: at}
}

// Succeeded completes a pending check with the provider's payload.
func (r CheckResult) Succeeded(attempts int, payload map[string]any, at time.Time) CheckResult {
	return CheckResult{
		Provider:    r.Provider,
		Status:      StatusSuccess,
		Generation:  r.Generation,
		Attempts:    attempts,
		RequestedAt: r.RequestedAt,
		CompletedAt: at,
		Payload:     payload,
	}
}

// Failed completes a pending check with a failure.
func (r CheckResult) Failed(attempts int, f Failure, at time.Time) CheckResult {
	return CheckResult{
		Provider:    r.Provider,
		Status:      StatusFailed,
		Generation:  r.Generation,
		Attempts:    attempts,
		RequestedAt: r.RequestedAt,
		CompletedAt: at,
		Failure:     &f,
	}
}

// Subject identifies the entity being verified. Providers pick the
// identifiers they need.
type Subject struct {
	CaseID             string `json:"caseId"`
	LegalName          string `json:"legalName"`
	TradingName        string `json:"tradingName,omitempty"`
	RegistrationNumber string `json:"registrationNumber,omitempty"`
	Country            string `json:"country"`
	Postcode           string `json:"postcode,omitempty"`
	RoleMain           string `json:"roleMain,omitempty"`
}

// CacheKey identifies the subject independently of the case it belongs to.
func (s Subject) CacheKey() string {
	id := strings.TrimSpace(s.RegistrationNumber)
	if id == "" {
		id = "name:" + strings.ToLower(strings.Join(strings.Fields(s.LegalName), " "))
	}
	return strings.ToUpper(strings.TrimSpace(s.Country)) + ":" + id
}

// Enrichment is the case-level union of provider results. Generation increases
// every time enrichment is requested afresh; results from older generations
// are stale.
type Enrichment struct {
	Generation  int                      `json:"generation"`
	StartedAt   time.Time                `json:"startedAt,omitzero"`
	CompletedAt time.Time                `json:"completedAt,omitzero"`
	Checks      map[Provider]CheckResult `json:"checks"`
}

// Set records r, replacing any earlier result for the same provider.
func (e *Enrichment) Set(r CheckResult) {
	if e.Checks == nil {
		e.Checks = make(map[Provider]CheckResult, len(AllProviders))
	}
	e.Checks[r.Provider] = r
}

func (e *Enrichment) Get(p Provider) (CheckResult, bool) {
	r, ok := e.Checks[p]
	return r, ok
}

// Stable reports whether every recorded check is terminal.
func (e *Enrichment) Stable() bool {
	for _, r := range e.Checks {
		if !r.Status.IsTerminal() {
			return false
		}
	}
	return true
}

// Failed lists providers whose check failed, in stable order.
func (e *Enrichment) Failed() []Provider {
	var out []Provider
	for _, p := range AllProviders {
		if r, ok := e.Checks[p]; ok && r.Status == StatusFailed {
			out = append(out, p)
		}
	}
	return out
}

// Counts tallies checks by status.
func (e *Enrichment) Counts() map[CheckStatus]int {
	out := make(map[CheckStatus]int, 4)
	for _, r := range e.Checks {
		out[r.Status]++
	}
	return out
}

// Fields flattens the enrichment for validation predicates:
// enrichment.<provider>.status, enrichment.<provider>.<payload key> and
// enrichment.<provider>.failureCategory.
func (e *Enrichment) Fields() predicate.Fields {
	f := make(predicate.Fields)
	for p, r := range e.Checks {
		prefix := "enrichment." + string(p) + "."
		f[prefix+"status"] = string(r.Status)
		if r.Failure != nil {
			f[prefix+"failureCategory"] = r.Failure.Category
		}
		for k, v := range r.Payload {
			if s, ok := scalar(v); ok {
				f[prefix+k] = s
			}
		}
	}
	return f
}

func scalar(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case bool:
		return strconv.FormatBool(x), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case fmt.Stringer:
		return x.String(), true
	default:
		return "", false
	}
}
