package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/example/gym-admin/internal/application"
)

type planService interface {
	List(ctx context.Context) (application.Envelope[[]application.PricedPlan], error)
	Get(ctx context.Context, id int) (application.Envelope[application.PricedPlan], error)
	Create(ctx context.Context, input application.PlanInput) (application.Envelope[application.PricedPlan], error)
	Update(ctx context.Context, id int, input application.PlanInput) (application.Envelope[application.PricedPlan], error)
	Delete(ctx context.Context, id int) (application.Envelope[application.PricedPlan], error)
	Clear(ctx context.Context) (application.Envelope[struct{}], error)
}

type PlanHandler struct {
	service   planService
	responder responder
	logger    *slog.Logger
}

func NewPlanHandler(service planService, logger *slog.Logger) *PlanHandler {
	base := defaultLogger(logger)
	return &PlanHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *PlanHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "PlanHandler", operation, attrs...)
}

func (h *PlanHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	result, err := h.service.List(r.Context())
	if err != nil {
		h.log(r.Context(), "List").ErrorContext(r.Context(), "plan listing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, result)
}

func (h *PlanHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := ResourceIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidPlanID)
		return
	}

	result, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.log(r.Context(), "Get", "plan_id", id).ErrorContext(r.Context(), "plan lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, result)
}

func (h *PlanHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if !h.responder.authorizeAdmin(r.Context(), w, h.log(r.Context(), "Create"), "plan creation") {
		return
	}

	var input application.PlanInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode plan request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create")

	result, err := h.service.Create(r.Context(), input)
	if err != nil {
		logger.ErrorContext(r.Context(), "plan creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("plan_id", result.Data.ID).InfoContext(r.Context(), "plan created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, result)
}

func (h *PlanHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if !h.responder.authorizeAdmin(r.Context(), w, h.log(r.Context(), "Update"), "plan update") {
		return
	}

	id, ok := ResourceIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidPlanID)
		return
	}

	var input application.PlanInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.log(r.Context(), "Update", "plan_id", id, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode plan update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "plan_id", id)

	result, err := h.service.Update(r.Context(), id, input)
	if err != nil {
		logger.ErrorContext(r.Context(), "plan update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "plan updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, result)
}

func (h *PlanHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if !h.responder.authorizeAdmin(r.Context(), w, h.log(r.Context(), "Delete"), "plan deletion") {
		return
	}

	id, ok := ResourceIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidPlanID)
		return
	}

	logger := h.log(r.Context(), "Delete", "plan_id", id)

	result, err := h.service.Delete(r.Context(), id)
	if err != nil {
		logger.ErrorContext(r.Context(), "plan deletion failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "plan deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, result)
}

func (h *PlanHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if !h.responder.authorizeAdmin(r.Context(), w, h.log(r.Context(), "Reset"), "plan reset") {
		return
	}

	result, err := h.service.Clear(r.Context())
	if err != nil {
		h.log(r.Context(), "Reset").ErrorContext(r.Context(), "plan reset failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, result)
}
