package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "kycengine/pkg/domain-errors"
)

func TestParseProvider(t *testing.T) {
	p, err := ParseProvider(" LexisNexis ")
	require.NoError(t, err)
	assert.Equal(t, ProviderLexisNexis, p)

	_, err = ParseProvider("experian")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestCheckResult_VariantsCarryOnlyTheirArm(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	pending := Pending(ProviderFCA, 2, at)

	ok := pending.Succeeded(1, map[string]any{"firmStatus": "Authorised"}, at.Add(time.Second))
	assert.Equal(t, StatusSuccess, ok.Status)
	assert.Nil(t, ok.Failure)
	assert.Equal(t, 2, ok.Generation)
	assert.Equal(t, at, ok.RequestedAt)

	failed := pending.Failed(3, Failure{Category: "timeout", Message: "deadline exceeded", Retryable: true}, at)
	assert.Equal(t, StatusFailed, failed.Status)
	assert.Nil(t, failed.Payload)
	assert.Equal(t, 3, failed.Attempts)

	raw, err := json.Marshal(NotApplicable(ProviderDNB, 1))
	require.NoError(t, err)
	assert.JSONEq(t, `{"provider":"dnb","status":"not_applicable","generation":1,"attempts":0}`, string(raw))
}

func TestEnrichment_LastWriteWinsAndFields(t *testing.T) {
	at := time.Now()
	var e Enrichment
	e.Set(Pending(ProviderCompaniesHouse, 1, at))
	e.Set(NotApplicable(ProviderFCA, 1))
	assert.False(t, e.Stable())

	e.Set(Pending(ProviderCompaniesHouse, 1, at).Failed(1, Failure{Category: "timeout"}, at))
	e.Set(Pending(ProviderCompaniesHouse, 1, at).Succeeded(2, map[string]any{
		"companyStatus": "active",
		"officers":      float64(3),
		"address":       map[string]any{"postcode": "EC1A 1BB"},
	}, at))

	assert.True(t, e.Stable())
	assert.Empty(t, e.Failed())
	assert.Equal(t, map[CheckStatus]int{StatusSuccess: 1, StatusNotApplicable: 1}, e.Counts())

	f := e.Fields()
	assert.Equal(t, "success", f["enrichment.companiesHouse.status"])
	assert.Equal(t, "active", f["enrichment.companiesHouse.companyStatus"])
	assert.Equal(t, "3", f["enrichment.companiesHouse.officers"])
	assert.NotContains(t, f, "enrichment.companiesHouse.address")
	assert.Equal(t, "not_applicable", f["enrichment.fca.status"])
}

func TestSubject_CacheKey(t *testing.T) {
	a := Subject{CaseID: "1", Country: "gb", RegistrationNumber: "01234567"}
	b := Subject{CaseID: "2", Country: "GB ", RegistrationNumber: "01234567"}
	assert.Equal(t, a.CacheKey(), b.CacheKey())

	byName := Subject{Country: "FR", LegalName: "  Acme   Assurances  "}
	assert.Equal(t, "FR:name:acme assurances", byName.CacheKey())
}
