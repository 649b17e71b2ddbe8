package submission_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kycengine/internal/cases/models"
	"kycengine/internal/classification"
	"kycengine/internal/submission"
	vmodels "kycengine/internal/verification/models"
	id "kycengine/pkg/domain"
	dErrors "kycengine/pkg/domain-errors"
)

var decidedAt = time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)

func approvedCase(t *testing.T) *models.Case {
	t.Helper()
	c, err := models.NewCase(id.NewCaseID(), models.Entity{
		LegalName:          "Acme Ltd",
		Country:            "GB",
		RoleType:           "BROKER",
		RegistrationNumber: "01234567",
	}, decidedAt.Add(-48*time.Hour))
	require.NoError(t, err)
	c.ClientRef = "CR-77"
	c.Status = models.StatusApproved
	c.Classification = &classification.Result{
		CatalogVersion: "2.1.0",
		Role:           classification.Role{RoleMain: "BROKER", RoleSub: "Retail"},
	}
	c.Enrichment.Generation = 1
	started := decidedAt.Add(-time.Hour)
	c.Enrichment.Set(vmodels.Pending(vmodels.ProviderLexisNexis, 1, started).
		Succeeded(1, map[string]any{"hitCount": float64(0)}, started.Add(time.Second)))
	c.Enrichment.Set(vmodels.Pending(vmodels.ProviderCompaniesHouse, 1, started).
		Succeeded(2, map[string]any{"companyStatus": "active"}, started.Add(2*time.Second)))
	c.Enrichment.Set(vmodels.NotApplicable(vmodels.ProviderDNB, 1))
	c.Decision = &models.Decision{Reviewer: "j.smith", Outcome: models.OutcomeApprove, DecidedAt: decidedAt}
	return c
}

func TestConvert(t *testing.T) {
	c := approvedCase(t)

	doc, err := submission.Convert(c)
	require.NoError(t, err)
	assert.Len(t, doc.Digest, 64)
	assert.Equal(t, "pas-"+doc.Digest[:12], doc.ProcessID())
	assert.Equal(t, c.ID.Ref(), doc.Payload.CaseRef)
	assert.Equal(t, "j.smith", doc.Payload.Approval.ApprovedBy)

	providers := make([]vmodels.Provider, 0, len(doc.Payload.Verification))
	for _, ch := range doc.Payload.Verification {
		providers = append(providers, ch.Provider)
	}
	assert.Equal(t, []vmodels.Provider{
		vmodels.ProviderCompaniesHouse, vmodels.ProviderDNB, vmodels.ProviderLexisNexis,
	}, providers, "checks follow provider order")

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(doc.Bytes, &decoded))
	assert.Equal(t, "1", decoded["schemaVersion"])
	assert.NotContains(t, string(doc.Bytes), "\n")
}

func TestConvertIsByteIdentical(t *testing.T) {
	c := approvedCase(t)
	first, err := submission.Convert(c)
	require.NoError(t, err)

	// State that is not part of the payload must not change the bytes.
	c.Status = models.StatusOnboardingComplete
	c.Version = 12
	c.UpdatedAt = time.Now()
	c.Submission = &models.Submission{ProcessID: first.ProcessID(), Status: submission.StatusQueued}

	for range 5 {
		again, err := submission.Convert(c)
		require.NoError(t, err)
		assert.Equal(t, first.Bytes, again.Bytes)
		assert.Equal(t, first.Digest, again.Digest)
	}
}

func TestConvertDigestTracksContent(t *testing.T) {
	c := approvedCase(t)
	first, err := submission.Convert(c)
	require.NoError(t, err)

	c.Entity.TradingName = "Acme"
	second, err := submission.Convert(c)
	require.NoError(t, err)
	assert.NotEqual(t, first.Digest, second.Digest)
}

func TestConvertRequiresApproval(t *testing.T) {
	for _, status := range []models.Status{
		models.StatusDraft, models.StatusUnderReview, models.StatusOnHold, models.StatusRejected,
	} {
		c := approvedCase(t)
		c.Status = status
		_, err := submission.Convert(c)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeCaseNotReady), "status %s", status)
	}
}

func TestMemoryPublisherCopiesValue(t *testing.T) {
	p := submission.NewMemoryPublisher()
	value := []byte(`{"a":1}`)
	require.NoError(t, p.Publish(t.Context(), submission.Message{Key: "k", Value: value}))
	value[0] = 'x'

	msgs := p.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, `{"a":1}`, string(msgs[0].Value))
}
