package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/gym-admin/internal/application"
)

type memberService interface {
	Search(ctx context.Context, filter application.MemberFilter) (application.Envelope[[]application.Member], error)
	Get(ctx context.Context, id int) (application.Envelope[application.Member], error)
	Create(ctx context.Context, input application.MemberInput) (application.Envelope[application.Member], error)
	Update(ctx context.Context, id int, input application.MemberInput) (application.Envelope[application.Member], error)
	Delete(ctx context.Context, id int) (application.Envelope[application.Member], error)
	Clear(ctx context.Context) (application.Envelope[struct{}], error)
}

type MemberHandler struct {
	service   memberService
	responder responder
	logger    *slog.Logger
}

func NewMemberHandler(service memberService, logger *slog.Logger) *MemberHandler {
	base := defaultLogger(logger)
	return &MemberHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *MemberHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "MemberHandler", operation, attrs...)
}

func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	filter := application.MemberFilter{
		Search: strings.TrimSpace(query.Get("q")),
		Status: application.MemberStatus(strings.TrimSpace(query.Get("status"))),
		Plan:   strings.TrimSpace(query.Get("plan")),
	}
	logger := h.log(r.Context(), "List", "filtered", filter != application.MemberFilter{})

	result, err := h.service.Search(r.Context(), filter)
	if err != nil {
		logger.ErrorContext(r.Context(), "member listing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, result)
}

func (h *MemberHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := ResourceIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidMemberID)
		return
	}

	result, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.log(r.Context(), "Get", "member_id", id).ErrorContext(r.Context(), "member lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, result)
}

func (h *MemberHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if !h.responder.authorizeAdmin(r.Context(), w, h.log(r.Context(), "Create"), "member creation") {
		return
	}

	var req memberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode member request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create")

	result, err := h.service.Create(r.Context(), req.toInput())
	if err != nil {
		logger.ErrorContext(r.Context(), "member creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("member_id", result.Data.ID).InfoContext(r.Context(), "member created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, result)
}

func (h *MemberHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := ResourceIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidMemberID)
		return
	}

	var req memberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Update", "member_id", id, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode member update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "member_id", id)
	if req.touchesAdminFields() && !h.responder.authorizeAdmin(r.Context(), w, logger, "member status or due amount change") {
		return
	}

	result, err := h.service.Update(r.Context(), id, req.toInput())
	if err != nil {
		logger.ErrorContext(r.Context(), "member update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "member updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, result)
}

func (h *MemberHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if !h.responder.authorizeAdmin(r.Context(), w, h.log(r.Context(), "Delete"), "member deletion") {
		return
	}

	id, ok := ResourceIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidMemberID)
		return
	}

	logger := h.log(r.Context(), "Delete", "member_id", id)

	result, err := h.service.Delete(r.Context(), id)
	if err != nil {
		logger.ErrorContext(r.Context(), "member deletion failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "member deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, result)
}

func (h *MemberHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if !h.responder.authorizeAdmin(r.Context(), w, h.log(r.Context(), "Reset"), "member reset") {
		return
	}

	result, err := h.service.Clear(r.Context())
	if err != nil {
		h.log(r.Context(), "Reset").ErrorContext(r.Context(), "member reset failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, result)
}

// memberRequest mirrors the member form. Amount arrives as a string from form
// inputs and as a number from scripted callers; both are accepted.
type memberRequest struct {
	Name       *string                   `json:"name"`
	Email      *string                   `json:"email"`
	Phone      *string                   `json:"phone"`
	Plan       *string                   `json:"plan"`
	StartDate  *string                   `json:"startDate"`
	ExpiryDate *string                   `json:"expiryDate"`
	Amount     json.RawMessage           `json:"amount"`
	Status     *application.MemberStatus `json:"status"`
}

// touchesAdminFields reports whether the request sets fields only
// administrators may change. Staff edit contact, plan and date fields.
func (req memberRequest) touchesAdminFields() bool {
	return req.Status != nil || req.hasAmount()
}

func (req memberRequest) hasAmount() bool {
	raw := bytes.TrimSpace(req.Amount)
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}

func (req memberRequest) toInput() application.MemberInput {
	input := application.MemberInput{
		Name:       req.Name,
		Email:      req.Email,
		Phone:      req.Phone,
		Plan:       req.Plan,
		StartDate:  req.StartDate,
		ExpiryDate: req.ExpiryDate,
		Status:     req.Status,
	}

	if !req.hasAmount() {
		return input
	}
	raw := bytes.TrimSpace(req.Amount)
	var amount string
	if err := json.Unmarshal(raw, &amount); err != nil {
		amount = string(raw)
	}
	input.Amount = &amount
	return input
}
