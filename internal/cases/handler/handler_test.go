package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"kycengine/internal/cases/handler/mocks"
	"kycengine/internal/cases/models"
	"kycengine/internal/cases/service"
	"kycengine/internal/submission"
	vmodels "kycengine/internal/verification/models"
	id "kycengine/pkg/domain"
	dErrors "kycengine/pkg/domain-errors"
	"kycengine/pkg/testutil"
)

type HandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  chi.Router
	caseID  id.CaseID
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	s.router = chi.NewRouter()
	New(s.service, nil).Register(s.router)
	s.caseID = id.NewCaseID()
}

func (s *HandlerSuite) sampleCase(status models.Status) *models.Case {
	c, err := models.NewCase(s.caseID, models.Entity{LegalName: "Acme Brokers Ltd", Country: "gb", RoleType: "BROKER"},
		time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	s.Require().NoError(err)
	c.Status = status
	c.Version = 2
	return c
}

func (s *HandlerSuite) path(suffix string) string {
	return "/cases/" + s.caseID.String() + suffix
}

func (s *HandlerSuite) TestCreate() {
	s.Run("creates the case", func() {
		s.service.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, in service.CreateInput) (*models.Case, error) {
				s.Equal("CR-9", in.ClientRef)
				s.Equal("GB", in.Entity.Country)
				s.Equal("Acme Brokers Ltd", in.Entity.LegalName)
				return s.sampleCase(models.StatusDraft), nil
			})

		rr := testutil.DoJSON(s.T(), s.router, http.MethodPost, "/cases", map[string]any{
			"clientRef": " CR-9 ",
			"entity":    map[string]any{"legalName": " Acme Brokers Ltd ", "country": "gb", "roleType": "BROKER"},
		})
		s.Equal(http.StatusCreated, rr.Code, rr.Body.String())
		s.Equal("/cases/"+s.caseID.String(), rr.Header().Get("Location"))
		got := testutil.UnmarshalResponse[models.Case](s.T(), rr)
		s.Equal(s.caseID, got.ID)
		s.Equal(models.StatusDraft, got.Status)
	})

	s.Run("legal name is required", func() {
		rr := testutil.DoJSON(s.T(), s.router, http.MethodPost, "/cases", map[string]any{
			"entity": map[string]any{"country": "GB"},
		})
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeValidation))
	})

	s.Run("unknown fields are rejected", func() {
		rr := testutil.DoJSON(s.T(), s.router, http.MethodPost, "/cases", map[string]any{
			"entity": map[string]any{"legalName": "Acme"},
			"tenant": "x",
		})
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeBadRequest))
	})
}

func (s *HandlerSuite) TestList() {
	s.Run("parses query parameters", func() {
		s.service.EXPECT().List(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, f models.ListFilter) (models.Page, error) {
				s.Equal(models.StatusUnderReview, f.Status)
				s.Equal("UK", f.BusinessUnit)
				s.Equal("acme", f.Search)
				s.Equal(1, f.Page)
				s.Equal(10, f.PageSize)
				s.Equal(models.SortEntityName, f.SortBy)
				s.False(f.Desc)
				return models.Page{
					Content:       []*models.Case{s.sampleCase(models.StatusUnderReview)},
					TotalElements: 11,
					Size:          10,
					Number:        1,
				}, nil
			})

		rr := testutil.DoJSON(s.T(), s.router, http.MethodGet,
			"/cases?case_status=under_review&businessUnit=UK&search=acme&page=1&pageSize=10&sortBy=entityName&sortOrder=asc", nil)
		s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
		s.Equal("11", rr.Header().Get("X-Total-Count"))
		page := testutil.UnmarshalResponse[PageResponse](s.T(), rr)
		s.Equal(2, page.TotalPages)
		s.Equal(1, page.NumberOfElements)
		s.False(page.First)
		s.True(page.Last)
		s.False(page.Empty)
	})

	s.Run("empty page", func() {
		s.service.EXPECT().List(gomock.Any(), gomock.Any()).Return(models.Page{Size: 25}, nil)
		rr := testutil.DoJSON(s.T(), s.router, http.MethodGet, "/cases", nil)
		s.Require().Equal(http.StatusOK, rr.Code)
		page := testutil.UnmarshalResponse[PageResponse](s.T(), rr)
		s.NotNil(page.Content)
		s.True(page.Empty)
		s.True(page.First)
	})

	s.Run("bad status", func() {
		rr := testutil.DoJSON(s.T(), s.router, http.MethodGet, "/cases?case_status=LIMBO", nil)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeInvalidInput))
	})

	s.Run("bad sort order", func() {
		rr := testutil.DoJSON(s.T(), s.router, http.MethodGet, "/cases?sortOrder=sideways", nil)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeValidation))
	})
}

func (s *HandlerSuite) TestGet() {
	s.Run("found", func() {
		s.service.EXPECT().Get(gomock.Any(), s.caseID).Return(s.sampleCase(models.StatusDraft), nil)
		rr := testutil.DoJSON(s.T(), s.router, http.MethodGet, s.path(""), nil)
		s.Equal(http.StatusOK, rr.Code)
	})

	s.Run("not found", func() {
		s.service.EXPECT().Get(gomock.Any(), s.caseID).Return(nil, dErrors.New(dErrors.CodeNotFound, "case not found"))
		rr := testutil.DoJSON(s.T(), s.router, http.MethodGet, s.path(""), nil)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, string(dErrors.CodeNotFound))
	})

	s.Run("malformed id", func() {
		rr := testutil.DoJSON(s.T(), s.router, http.MethodGet, "/cases/not-a-uuid", nil)
		s.Equal(http.StatusBadRequest, rr.Code)
	})
}

func (s *HandlerSuite) TestUpdate() {
	s.Run("passes expected version", func() {
		s.service.EXPECT().Update(gomock.Any(), s.caseID, gomock.Any()).DoAndReturn(
			func(_ context.Context, _ id.CaseID, in service.UpdateInput) (*models.Case, error) {
				s.Equal(2, in.ExpectedVersion)
				s.Require().NotNil(in.AssignedUser)
				s.Equal("reviewer-7", *in.AssignedUser)
				s.Nil(in.Entity)
				return s.sampleCase(models.StatusDraft), nil
			})
		rr := testutil.DoJSON(s.T(), s.router, http.MethodPut, s.path(""), map[string]any{
			"version":      2,
			"assignedUser": "reviewer-7",
		})
		s.Equal(http.StatusOK, rr.Code, rr.Body.String())
	})

	s.Run("version conflict", func() {
		s.service.EXPECT().Update(gomock.Any(), s.caseID, gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeConflict, "case is at version 3, not 2"))
		rr := testutil.DoJSON(s.T(), s.router, http.MethodPut, s.path(""), map[string]any{"version": 2, "clientRef": "x"})
		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, string(dErrors.CodeConflict))
	})

	s.Run("empty update", func() {
		rr := testutil.DoJSON(s.T(), s.router, http.MethodPut, s.path(""), map[string]any{"version": 2})
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeValidation))
	})
}

func (s *HandlerSuite) TestWorkflowActions() {
	s.service.EXPECT().Submit(gomock.Any(), s.caseID).Return(s.sampleCase(models.StatusSubmitted), nil)
	rr := testutil.DoJSON(s.T(), s.router, http.MethodPost, s.path("/submit"), nil)
	s.Equal(http.StatusOK, rr.Code)

	s.service.EXPECT().Classify(gomock.Any(), s.caseID).
		Return(nil, dErrors.New(dErrors.CodeNoMatrixRule, "no matrix rule for HIGHER/BROKER/Retail"))
	rr = testutil.DoJSON(s.T(), s.router, http.MethodPost, s.path("/classify"), nil)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusUnprocessableEntity, string(dErrors.CodeNoMatrixRule))

	s.service.EXPECT().Revalidate(gomock.Any(), s.caseID).Return(s.sampleCase(models.StatusSubmitted), nil)
	rr = testutil.DoJSON(s.T(), s.router, http.MethodPost, s.path("/revalidate"), nil)
	s.Equal(http.StatusOK, rr.Code)

	s.service.EXPECT().Resume(gomock.Any(), s.caseID).
		Return(nil, dErrors.New(dErrors.CodeInvalidState, "cannot resume a case in DRAFT"))
	rr = testutil.DoJSON(s.T(), s.router, http.MethodPost, s.path("/resume"), nil)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, string(dErrors.CodeInvalidState))

	s.service.EXPECT().CancelEnrichment(gomock.Any(), s.caseID).Return(s.sampleCase(models.StatusEnriched), nil)
	rr = testutil.DoJSON(s.T(), s.router, http.MethodPost, s.path("/enrich/cancel"), nil)
	s.Equal(http.StatusOK, rr.Code)
}

func (s *HandlerSuite) TestManualClassification() {
	s.Run("normalizes role", func() {
		s.service.EXPECT().ClassifyManually(gomock.Any(), s.caseID, service.ManualClassification{
			RoleMain: "BROKER", RoleSub: "Wholesale", Reason: "confirmed",
		}).Return(s.sampleCase(models.StatusSubmitted), nil)
		rr := testutil.DoJSON(s.T(), s.router, http.MethodPost, s.path("/classify/manual"), map[string]any{
			"roleMain": " broker ", "roleSub": "Wholesale", "reason": " confirmed ",
		})
		s.Equal(http.StatusOK, rr.Code, rr.Body.String())
	})

	s.Run("reason required", func() {
		rr := testutil.DoJSON(s.T(), s.router, http.MethodPost, s.path("/classify/manual"), map[string]any{
			"roleMain": "BROKER", "roleSub": "Wholesale",
		})
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeValidation))
	})
}

func (s *HandlerSuite) TestEnrich() {
	s.Run("async by default", func() {
		s.service.EXPECT().StartEnrichment(gomock.Any(), s.caseID).Return(s.sampleCase(models.StatusEnriched), nil)
		rr := testutil.DoJSON(s.T(), s.router, http.MethodPost, s.path("/enrich"), nil)
		s.Equal(http.StatusAccepted, rr.Code)
	})

	s.Run("parked case is returned as is", func() {
		s.service.EXPECT().StartEnrichment(gomock.Any(), s.caseID).
			Return(s.sampleCase(models.StatusAwaitingExternalResponse), nil)
		rr := testutil.DoJSON(s.T(), s.router, http.MethodPost, s.path("/enrich"), nil)
		s.Equal(http.StatusOK, rr.Code)
	})

	s.Run("wait for completion", func() {
		s.service.EXPECT().Enrich(gomock.Any(), s.caseID).Return(s.sampleCase(models.StatusUnderReview), nil)
		rr := testutil.DoJSON(s.T(), s.router, http.MethodPost, s.path("/enrich?wait=true"), nil)
		s.Equal(http.StatusOK, rr.Code)
		got := testutil.UnmarshalResponse[models.Case](s.T(), rr)
		s.Equal(models.StatusUnderReview, got.Status)
	})
}

func (s *HandlerSuite) TestRetrigger() {
	s.Run("provider names are case-insensitive", func() {
		s.service.EXPECT().RetriggerCheck(gomock.Any(), s.caseID, vmodels.ProviderCompaniesHouse).
			Return(s.sampleCase(models.StatusUnderReview), nil)
		rr := testutil.DoJSON(s.T(), s.router, http.MethodPost, s.path("/checks/companieshouse/retrigger"), nil)
		s.Equal(http.StatusOK, rr.Code, rr.Body.String())
	})

	s.Run("unknown provider", func() {
		rr := testutil.DoJSON(s.T(), s.router, http.MethodPost, s.path("/checks/experian/retrigger"), nil)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeInvalidInput))
	})
}

func (s *HandlerSuite) TestDecision() {
	s.Run("approve", func() {
		s.service.EXPECT().Decide(gomock.Any(), s.caseID, service.DecisionInput{
			Outcome: models.OutcomeApprove, Reviewer: "j.smith",
		}).Return(s.sampleCase(models.StatusApproved), nil)
		rr := testutil.DoJSON(s.T(), s.router, http.MethodPost, s.path("/decision"), map[string]any{
			"outcome": "approve", "reviewer": "j.smith",
		})
		s.Equal(http.StatusOK, rr.Code, rr.Body.String())
	})

	s.Run("unknown outcome", func() {
		rr := testutil.DoJSON(s.T(), s.router, http.MethodPost, s.path("/decision"), map[string]any{"outcome": "ESCALATE"})
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeValidation))
	})

	s.Run("approval blocked by defects", func() {
		s.service.EXPECT().Decide(gomock.Any(), s.caseID, gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeValidationFailed, "outstanding validation defects: ENR-003"))
		rr := testutil.DoJSON(s.T(), s.router, http.MethodPost, s.path("/decision"), map[string]any{"outcome": "APPROVE"})
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnprocessableEntity, string(dErrors.CodeValidationFailed))
	})

	s.Run("stale catalog", func() {
		s.service.EXPECT().Decide(gomock.Any(), s.caseID, gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeCatalogVersionMismatch, "re-classify"))
		rr := testutil.DoJSON(s.T(), s.router, http.MethodPost, s.path("/decision"), map[string]any{"outcome": "APPROVE"})
		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, string(dErrors.CodeCatalogVersionMismatch))
	})
}

func (s *HandlerSuite) TestSubmission() {
	s.Run("convert previews the document", func() {
		doc := &submission.Document{Bytes: []byte(`{"caseId":"x"}`), Digest: "0123456789abcdef0123"}
		s.service.EXPECT().ConvertSubmission(gomock.Any(), s.caseID).Return(doc, nil)
		rr := testutil.DoJSON(s.T(), s.router, http.MethodPost, s.path("/convert-to-pas"), nil)
		s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
		got := testutil.UnmarshalResponse[ConvertResponse](s.T(), rr)
		s.Equal("pas-0123456789ab", got.ProcessID)
		s.JSONEq(`{"caseId":"x"}`, string(got.Payload))
	})

	s.Run("send with options", func() {
		s.service.EXPECT().SendSubmission(gomock.Any(), s.caseID, service.SendOptions{
			SentBy: "ops", Priority: "HIGH", ReferencePrefix: "ONB",
		}).Return(s.sampleCase(models.StatusOnboardingComplete), nil)
		rr := testutil.DoJSON(s.T(), s.router, http.MethodPost, s.path("/send-to-pas"), map[string]any{
			"sentToRpaBy": "ops", "priority": "high", "referencePrefix": "ONB",
		})
		s.Equal(http.StatusOK, rr.Code, rr.Body.String())
	})

	s.Run("send without body", func() {
		s.service.EXPECT().SendSubmission(gomock.Any(), s.caseID, service.SendOptions{}).
			Return(nil, dErrors.New(dErrors.CodeCaseNotReady, "case is not approved"))
		rr := testutil.DoJSON(s.T(), s.router, http.MethodPost, s.path("/send-to-pas"), nil)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, string(dErrors.CodeCaseNotReady))
	})

	s.Run("publish failure", func() {
		s.service.EXPECT().SendSubmission(gomock.Any(), s.caseID, gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeProviderUnavailable, "downstream submission failed"))
		rr := testutil.DoJSON(s.T(), s.router, http.MethodPost, s.path("/send-to-pas"), nil)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusServiceUnavailable, string(dErrors.CodeProviderUnavailable))
	})
}

func TestToPageResponse(t *testing.T) {
	p := toPageResponse(models.Page{TotalElements: 0, Size: 25})
	require.NotNil(t, p.Content)
	assert.True(t, p.First)
	assert.True(t, p.Last)
	assert.Equal(t, 0, p.TotalPages)
}
