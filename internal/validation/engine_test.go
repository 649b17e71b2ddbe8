package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kycengine/internal/catalog"
	"kycengine/internal/catalog/catalogtest"
	"kycengine/internal/predicate"
)

func intake() predicate.Fields {
	return predicate.Fields{
		"legalName":          "Acme Trading Ltd",
		"country":            "GB",
		"registrationNumber": "01234567",
		"statementEmail":     "accounts@acme.example",
	}
}

func statuses(r Report) map[string]Status {
	out := make(map[string]Status, len(r.Outcomes))
	for _, o := range r.Outcomes {
		out[o.CheckCode] = o.Status
	}
	return out
}

func TestPreEnrichment_Passes(t *testing.T) {
	snap := catalogtest.Snapshot(t)

	r := PreEnrichment(snap, intake())

	assert.True(t, r.Passed())
	assert.Equal(t, 1, r.Reached)
	assert.Equal(t, catalogtest.Version, r.CatalogVersion)
	assert.Equal(t, map[string]Status{
		"ENT-001": StatusPass,
		"ENT-002": StatusPass,
		"ENT-003": StatusPass,
		"ENT-004": StatusPass,
		"ENT-005": StatusNotApplicable,
		"ENT-099": StatusNotApplicable,
	}, statuses(r))
}

func TestPreEnrichment_NoGatesWhenEnrichmentIsFirst(t *testing.T) {
	raw := catalogtest.Mutate(t, func(doc map[string]any) {
		catalogtest.Section(doc, "workflowMetadata")["enrichmentPhase"] = 1
	})
	snap, err := catalog.Parse(raw, catalog.FormatJSON)
	require.NoError(t, err)
	require.Equal(t, 1, snap.EnrichmentPhase())

	fields := intake()
	delete(fields, "legalName")
	pre := PreEnrichment(snap, fields)

	assert.True(t, pre.Passed())
	assert.Empty(t, pre.Outcomes, "no phase precedes enrichment")
	assert.Equal(t, 0, pre.Reached)

	post := PostEnrichment(snap, fields)
	assert.Equal(t, 1, post.BlockedAt, "phase 1 is evaluated once, after enrichment")
}

func TestPreEnrichment_FailureBecomesDefect(t *testing.T) {
	snap := catalogtest.Snapshot(t)
	fields := intake()
	fields["registrationNumber"] = "ABC"
	delete(fields, "legalName")

	r := PreEnrichment(snap, fields)

	require.False(t, r.Passed())
	assert.Equal(t, 1, r.BlockedAt)
	assert.Equal(t, 0, r.Reached)
	require.Len(t, r.Defects, 2)
	assert.Equal(t, "ENT-001", r.Defects[0].CheckCode)
	assert.Equal(t, "legalName exists", r.Defects[0].Condition)
	assert.Equal(t, "ENT-003", r.Defects[1].CheckCode)
}

func TestEvaluate_FailConditionGatesFailure(t *testing.T) {
	snap := catalogtest.Snapshot(t)

	fields := intake()
	delete(fields, "statementEmail")
	assert.Equal(t, StatusNotApplicable, statuses(PreEnrichment(snap, fields))["ENT-004"])

	fields["statementEmail"] = "not-an-email"
	assert.Equal(t, StatusFail, statuses(PreEnrichment(snap, fields))["ENT-004"])
}

func TestEvaluate_AppliesWhen(t *testing.T) {
	snap := catalogtest.Snapshot(t)
	fields := intake()
	fields["bankDetailsRequired"] = "true"
	fields["bankName"] = "Northern Bank"
	fields["bankAccountNumber"] = "1234"
	fields["bankSortCode"] = "12-34-56"

	assert.Equal(t, StatusFail, statuses(PreEnrichment(snap, fields))["ENT-005"])

	fields["bankAccountNumber"] = "12345678"
	assert.Equal(t, StatusPass, statuses(PreEnrichment(snap, fields))["ENT-005"])

	fields["bankDetailsRequired"] = "false"
	fields["bankAccountNumber"] = "x"
	assert.Equal(t, StatusNotApplicable, statuses(PreEnrichment(snap, fields))["ENT-005"])
}

func TestPostEnrichment_StopsAtFirstFailingPhase(t *testing.T) {
	snap := catalogtest.Snapshot(t)
	fields := intake()
	fields["roleMain"] = "BROKER"
	fields["enrichment.companiesHouse.status"] = "success"
	fields["enrichment.companiesHouse.companyStatus"] = "dissolved"
	fields["enrichment.lexisNexis.status"] = "success"
	fields["enrichment.lexisNexis.hitCount"] = "3"

	r := PostEnrichment(snap, fields)
	assert.Equal(t, 2, r.BlockedAt)
	assert.Equal(t, 1, r.Reached)
	_, evaluated := statuses(r)["ENR-003"]
	assert.False(t, evaluated, "phase 3 runs only after phase 2 passes")

	fields["enrichment.companiesHouse.companyStatus"] = "Active"
	r = PostEnrichment(snap, fields)
	assert.Equal(t, 3, r.BlockedAt)
	assert.Equal(t, 2, r.Reached)
	assert.Equal(t, StatusNotApplicable, statuses(r)["ENR-002"], "regulator result missing")
	require.Len(t, r.Defects, 1)
	assert.Equal(t, "ENR-003", r.Defects[0].CheckCode)

	fields["enrichment.lexisNexis.hitCount"] = "0"
	r = PostEnrichment(snap, fields)
	assert.True(t, r.Passed())
	assert.Equal(t, 3, r.Reached)
}

func TestRun_AllPhases(t *testing.T) {
	snap := catalogtest.Snapshot(t)
	r := Run(snap, intake(), 1, 0)
	assert.True(t, r.Passed())
	assert.Equal(t, 3, r.Reached)
	assert.Len(t, r.Outcomes, 9)
}
