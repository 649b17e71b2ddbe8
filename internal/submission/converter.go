// Package submission turns an approved case into the downstream onboarding
// payload and hands it to a publisher.
//
// Conversion is pure: the payload is built only from case state, encoded as
// RFC 8785 canonical JSON and digested, so converting the same case twice
// yields identical bytes.
package submission

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gowebpki/jcs"

	"kycengine/internal/cases/models"
	"kycengine/internal/classification"
	vmodels "kycengine/internal/verification/models"
	dErrors "kycengine/pkg/domain-errors"
)

// SchemaVersion identifies the payload layout for downstream consumers.
const SchemaVersion = "1"

// StatusQueued is reported for every accepted hand-off.
const StatusQueued = "Queued"

type Payload struct {
	SchemaVersion  string                 `json:"schemaVersion"`
	CaseID         string                 `json:"caseId"`
	CaseRef        string                 `json:"caseRef"`
	ClientRef      string                 `json:"clientRef,omitempty"`
	BusinessUnit   string                 `json:"businessUnit,omitempty"`
	Entity         models.Entity          `json:"entity"`
	Classification *classification.Result `json:"classification"`
	Verification   []Check                `json:"verification"`
	Flags          []string               `json:"flags,omitempty"`
	Approval       Approval               `json:"approval"`
}

// Check is the downstream view of one provider result.
type Check struct {
	Provider        vmodels.Provider    `json:"provider"`
	Status          vmodels.CheckStatus `json:"status"`
	CompletedAt     *time.Time          `json:"completedAt,omitempty"`
	FailureCategory string              `json:"failureCategory,omitempty"`
	Result          map[string]any      `json:"result,omitempty"`
}

type Approval struct {
	ApprovedBy string    `json:"approvedBy"`
	ApprovedAt time.Time `json:"approvedAt"`
	Reason     string    `json:"reason,omitempty"`
}

// Document is a converted case: the payload, its canonical bytes and their
// SHA-256 digest in hex.
type Document struct {
	Payload Payload
	Bytes   []byte
	Digest  string
}

// ProcessID is the downstream process identifier derived from the digest.
func (d Document) ProcessID() string {
	return "pas-" + d.Digest[:12]
}

// Convert builds the submission document for c. Only APPROVED and
// ONBOARDING_COMPLETE cases can be converted.
func Convert(c *models.Case) (*Document, error) {
	if !c.Status.Exportable() {
		return nil, dErrors.Newf(dErrors.CodeCaseNotReady, "case in %s cannot be submitted; approval required", c.Status)
	}
	if c.Classification == nil || c.Decision == nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "approved case is missing its classification or decision")
	}

	p := Payload{
		SchemaVersion:  SchemaVersion,
		CaseID:         c.ID.String(),
		CaseRef:        c.ID.Ref(),
		ClientRef:      c.ClientRef,
		BusinessUnit:   c.BusinessUnit,
		Entity:         c.Entity,
		Classification: c.Classification,
		Verification:   checks(c.Enrichment),
		Flags:          c.Flags,
		Approval: Approval{
			ApprovedBy: c.Decision.Reviewer,
			ApprovedAt: c.Decision.DecidedAt.UTC(),
			Reason:     c.Decision.Reason,
		},
	}

	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode submission payload: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("canonicalize submission payload: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return &Document{Payload: p, Bytes: canonical, Digest: hex.EncodeToString(sum[:])}, nil
}

// checks lists provider results in provider order so the payload does not
// depend on map iteration.
func checks(e vmodels.Enrichment) []Check {
	out := make([]Check, 0, len(e.Checks))
	for _, p := range vmodels.AllProviders {
		r, ok := e.Checks[p]
		if !ok {
			continue
		}
		ch := Check{Provider: p, Status: r.Status, Result: r.Payload}
		if !r.CompletedAt.IsZero() {
			at := r.CompletedAt.UTC()
			ch.CompletedAt = &at
		}
		if r.Failure != nil {
			ch.FailureCategory = r.Failure.Category
		}
		out = append(out, ch)
	}
	return out
}
