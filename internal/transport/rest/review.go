package rest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/vmakarov/flowtrack-backend/internal/domain"
	"github.com/vmakarov/flowtrack-backend/internal/service/approval"
)

// approvalService defines the minimal interface needed by ReviewHandler.
type approvalService interface {
	TeamLeadReview(ctx context.Context, itemID uuid.UUID, decision approval.Decision, reason *string) (*domain.WorkItem, error)
	QAReview(ctx context.Context, itemID uuid.UUID, decision approval.Decision, reason *string) (*domain.WorkItem, error)
	TeamLeadFinalReview(ctx context.Context, itemID uuid.UUID, decision approval.Decision, notes *string) (*domain.WorkItem, error)
}

// ReviewHandler serves approval pipeline REST endpoints.
type ReviewHandler struct {
	svc approvalService
	log *slog.Logger
}

// NewReviewHandler creates a ReviewHandler.
func NewReviewHandler(svc approvalService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{svc: svc, log: logger.With("handler", "review")}
}

type reviewRequest struct {
	Decision string  `json:"decision"`
	Reason   *string `json:"reason,omitempty"`
}

// TeamLeadReview handles POST /api/v1/items/{id}/review.
func (h *ReviewHandler) TeamLeadReview(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, h.svc.TeamLeadReview)
}

// QAReview handles POST /api/v1/items/{id}/qa-review.
func (h *ReviewHandler) QAReview(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, h.svc.QAReview)
}

// TeamLeadFinalReview handles POST /api/v1/items/{id}/final-review.
func (h *ReviewHandler) TeamLeadFinalReview(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, h.svc.TeamLeadFinalReview)
}

func (h *ReviewHandler) review(w http.ResponseWriter, r *http.Request, op func(context.Context, uuid.UUID, approval.Decision, *string) (*domain.WorkItem, error)) {
	itemID, ok := pathID(w, r)
	if !ok {
		return
	}

	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := op(r.Context(), itemID, approval.Decision(req.Decision), req.Reason)
	if err != nil {
		handleServiceError(h.log, w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toItemResponse(item))
}
