// Package handler exposes the case workflow over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"kycengine/internal/cases/models"
	"kycengine/internal/cases/service"
	"kycengine/internal/submission"
	vmodels "kycengine/internal/verification/models"
	id "kycengine/pkg/domain"
	dErrors "kycengine/pkg/domain-errors"
	"kycengine/pkg/platform/httputil"
	"kycengine/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

// Service is the case workflow the handler drives.
type Service interface {
	Create(ctx context.Context, in service.CreateInput) (*models.Case, error)
	Get(ctx context.Context, caseID id.CaseID) (*models.Case, error)
	List(ctx context.Context, filter models.ListFilter) (models.Page, error)
	Update(ctx context.Context, caseID id.CaseID, in service.UpdateInput) (*models.Case, error)
	Submit(ctx context.Context, caseID id.CaseID) (*models.Case, error)
	Classify(ctx context.Context, caseID id.CaseID) (*models.Case, error)
	ClassifyManually(ctx context.Context, caseID id.CaseID, in service.ManualClassification) (*models.Case, error)
	Enrich(ctx context.Context, caseID id.CaseID) (*models.Case, error)
	StartEnrichment(ctx context.Context, caseID id.CaseID) (*models.Case, error)
	CancelEnrichment(ctx context.Context, caseID id.CaseID) (*models.Case, error)
	RetriggerCheck(ctx context.Context, caseID id.CaseID, provider vmodels.Provider) (*models.Case, error)
	Revalidate(ctx context.Context, caseID id.CaseID) (*models.Case, error)
	Decide(ctx context.Context, caseID id.CaseID, in service.DecisionInput) (*models.Case, error)
	Resume(ctx context.Context, caseID id.CaseID) (*models.Case, error)
	ConvertSubmission(ctx context.Context, caseID id.CaseID) (*submission.Document, error)
	SendSubmission(ctx context.Context, caseID id.CaseID, opts service.SendOptions) (*models.Case, error)
}

// Handler wires case endpoints to the case service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{service: service, logger: logger}
}

// Register mounts case endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/cases", func(r chi.Router) {
		r.Post("/", h.HandleCreate)
		r.Get("/", h.HandleList)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.HandleGet)
			r.Put("/", h.HandleUpdate)
			r.Post("/submit", h.action("submit", h.service.Submit))
			r.Post("/classify", h.action("classify", h.service.Classify))
			r.Post("/classify/manual", h.HandleManualClassification)
			r.Post("/enrich", h.HandleEnrich)
			r.Post("/enrich/cancel", h.action("cancel enrichment", h.service.CancelEnrichment))
			r.Post("/checks/{provider}/retrigger", h.HandleRetrigger)
			r.Post("/revalidate", h.action("revalidate", h.service.Revalidate))
			r.Post("/decision", h.HandleDecision)
			r.Post("/resume", h.action("resume", h.service.Resume))
			r.Post("/convert-to-pas", h.HandleConvert)
			r.Post("/send-to-pas", h.HandleSend)
		})
	})
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateCaseRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	c, err := h.service.Create(ctx, req.toInput())
	if err != nil {
		h.fail(ctx, w, "create case", err)
		return
	}
	w.Header().Set("Location", "/cases/"+c.ID.String())
	httputil.WriteJSON(w, http.StatusCreated, c)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filter, err := parseListFilter(r.URL.Query())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	page, err := h.service.List(ctx, filter)
	if err != nil {
		h.fail(ctx, w, "list cases", err)
		return
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(page.TotalElements))
	httputil.WriteJSON(w, http.StatusOK, toPageResponse(page))
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	caseID, ok := h.caseID(w, r)
	if !ok {
		return
	}
	c, err := h.service.Get(r.Context(), caseID)
	if err != nil {
		h.fail(r.Context(), w, "get case", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caseID, ok := h.caseID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateCaseRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	c, err := h.service.Update(ctx, caseID, req.toInput())
	if err != nil {
		h.fail(ctx, w, "update case", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) HandleManualClassification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caseID, ok := h.caseID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ManualClassificationRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	c, err := h.service.ClassifyManually(ctx, caseID, service.ManualClassification{
		RoleMain: req.RoleMain,
		RoleSub:  req.RoleSub,
		Reason:   req.Reason,
	})
	if err != nil {
		h.fail(ctx, w, "manual classification", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

// HandleEnrich dispatches enrichment. With ?wait=true it responds once every
// check is terminal; otherwise it returns 202 with the ENRICHED case.
func (h *Handler) HandleEnrich(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caseID, ok := h.caseID(w, r)
	if !ok {
		return
	}
	wait, _ := strconv.ParseBool(r.URL.Query().Get("wait"))
	if wait {
		c, err := h.service.Enrich(ctx, caseID)
		if err != nil {
			h.fail(ctx, w, "enrich", err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, c)
		return
	}
	c, err := h.service.StartEnrichment(ctx, caseID)
	if err != nil {
		h.fail(ctx, w, "enrich", err)
		return
	}
	status := http.StatusAccepted
	if c.Status != models.StatusEnriched {
		status = http.StatusOK
	}
	httputil.WriteJSON(w, status, c)
}

func (h *Handler) HandleRetrigger(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caseID, ok := h.caseID(w, r)
	if !ok {
		return
	}
	provider, err := vmodels.ParseProvider(chi.URLParam(r, "provider"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	c, err := h.service.RetriggerCheck(ctx, caseID, provider)
	if err != nil {
		h.fail(ctx, w, "retrigger check", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) HandleDecision(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caseID, ok := h.caseID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[DecisionRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	c, err := h.service.Decide(ctx, caseID, req.toInput())
	if err != nil {
		h.fail(ctx, w, "decide", err)
		return
	}
	h.logger.InfoContext(ctx, "review decision recorded",
		"request_id", requestcontext.RequestID(ctx),
		"case_id", caseID,
		"outcome", req.parsedOutcome,
	)
	httputil.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) HandleConvert(w http.ResponseWriter, r *http.Request) {
	caseID, ok := h.caseID(w, r)
	if !ok {
		return
	}
	doc, err := h.service.ConvertSubmission(r.Context(), caseID)
	if err != nil {
		h.fail(r.Context(), w, "convert submission", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toConvertResponse(doc))
}

func (h *Handler) HandleSend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caseID, ok := h.caseID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[SendRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	c, err := h.service.SendSubmission(ctx, caseID, req.toOptions())
	if err != nil {
		h.fail(ctx, w, "send submission", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

// action adapts a body-less case operation to a handler.
func (h *Handler) action(name string, fn func(context.Context, id.CaseID) (*models.Case, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caseID, ok := h.caseID(w, r)
		if !ok {
			return
		}
		c, err := fn(r.Context(), caseID)
		if err != nil {
			h.fail(r.Context(), w, name, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, c)
	}
}

func (h *Handler) caseID(w http.ResponseWriter, r *http.Request) (id.CaseID, bool) {
	caseID, err := id.ParseCaseID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.CaseID{}, false
	}
	return caseID, true
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, op string, err error) {
	status := httputil.StatusFor(dErrors.CodeOf(err))
	attrs := []any{
		"request_id", requestcontext.RequestID(ctx),
		"operation", op,
		"error", err,
	}
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, "case request failed", attrs...)
	} else {
		h.logger.WarnContext(ctx, "case request rejected", attrs...)
	}
	httputil.WriteError(w, err)
}
