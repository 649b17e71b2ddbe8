// Package domain holds typed identifiers shared across modules.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "kycengine/pkg/domain-errors"
)

// CaseID identifies a KYC onboarding case.
type CaseID uuid.UUID

// NewCaseID returns a fresh random case ID.
func NewCaseID() CaseID { return CaseID(uuid.New()) }

// ParseCaseID parses a non-nil UUID string into a CaseID.
func ParseCaseID(s string) (CaseID, error) {
	u, err := parseUUID(s, "case ID")
	return CaseID(u), err
}

func (id CaseID) String() string { return uuid.UUID(id).String() }

// IsNil reports whether the ID is the zero UUID.
func (id CaseID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// Ref renders the short case reference used in operator-facing channels.
func (id CaseID) Ref() string {
	return "KYC-" + strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:8])
}

// MarshalText keeps JSON and log output in canonical UUID form.
func (id CaseID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText accepts the canonical UUID form.
func (id *CaseID) UnmarshalText(b []byte) error {
	parsed, err := ParseCaseID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func parseUUID(s, kind string) (uuid.UUID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+kind)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" must not be nil")
	}
	return u, nil
}
