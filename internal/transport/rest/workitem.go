package rest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/vmakarov/flowtrack-backend/internal/domain"
	"github.com/vmakarov/flowtrack-backend/internal/service/tracking"
	"github.com/vmakarov/flowtrack-backend/pkg/ctxutil"
)

// trackingService defines the minimal interface needed by WorkItemHandler.
type trackingService interface {
	CreateWorkItem(ctx context.Context, input tracking.CreateWorkItemInput) (*domain.WorkItem, error)
	GetWorkItem(ctx context.Context, itemID uuid.UUID) (*domain.WorkItem, error)
	ListWorkItems(ctx context.Context, filter domain.WorkItemFilter) ([]*domain.WorkItem, error)
	StartWork(ctx context.Context, itemID uuid.UUID) (*domain.WorkItem, error)
	PauseWork(ctx context.Context, itemID uuid.UUID) (*domain.WorkItem, error)
	ResumeWork(ctx context.Context, itemID uuid.UUID) (*domain.WorkItem, error)
	ResumeAutoPaused(ctx context.Context, itemID uuid.UUID) (*domain.WorkItem, error)
	FinishWork(ctx context.Context, itemID uuid.UUID) (*domain.WorkItem, error)
	GetCurrentWorkTime(ctx context.Context, itemID uuid.UUID) (int64, error)
	GetReworkTime(ctx context.Context, itemID uuid.UUID) (int64, error)
	GetActiveCount(ctx context.Context, userID uuid.UUID) (int, error)
	ListSessions(ctx context.Context, itemID uuid.UUID) ([]*domain.WorkSession, error)
}

// WorkItemHandler serves work-item REST endpoints.
type WorkItemHandler struct {
	svc trackingService
	log *slog.Logger
}

// NewWorkItemHandler creates a WorkItemHandler.
func NewWorkItemHandler(svc trackingService, logger *slog.Logger) *WorkItemHandler {
	return &WorkItemHandler{svc: svc, log: logger.With("handler", "workitem")}
}

type createItemRequest struct {
	ProjectID  string  `json:"projectId"`
	SprintID   *string `json:"sprintId,omitempty"`
	Kind       string  `json:"kind"`
	Title      string  `json:"title"`
	AssigneeID *string `json:"assigneeId,omitempty"`
}

type itemResponse struct {
	ID        string  `json:"id"`
	ProjectID string  `json:"projectId"`
	SprintID  *string `json:"sprintId,omitempty"`
	Kind      string  `json:"kind"`
	Title     string  `json:"title"`

	AssigneeID *string `json:"assigneeId,omitempty"`
	Status     string  `json:"status"`

	IsWorking       bool       `json:"isWorking"`
	WorkStartedAt   *time.Time `json:"workStartedAt,omitempty"`
	AutoPaused      bool       `json:"autoPaused"`
	AutoPauseReason *string    `json:"autoPauseReason,omitempty"`
	AlertCount      int        `json:"alertCount"`

	TotalTimeSeconds    int64  `json:"totalTimeSeconds"`
	OriginalTimeSeconds *int64 `json:"originalTimeSeconds,omitempty"`

	ApprovalStatus           string  `json:"approvalStatus"`
	QAStatus                 string  `json:"qaStatus"`
	RejectionReason          *string `json:"rejectionReason,omitempty"`
	QARejectionReason        *string `json:"qaRejectionReason,omitempty"`
	ReworkNotes              *string `json:"reworkNotes,omitempty"`
	TeamLeadFinalApproval    bool    `json:"teamLeadFinalApproval"`
	TeamLeadRequestedChanges bool    `json:"teamLeadRequestedChanges"`

	ReturnCount    int        `json:"returnCount"`
	LastReturnedBy *string    `json:"lastReturnedBy,omitempty"`
	LastReturnedAt *time.Time `json:"lastReturnedAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type sessionResponse struct {
	ID              string     `json:"id"`
	Action          string     `json:"action"`
	StartedAt       time.Time  `json:"startedAt"`
	PausedAt        *time.Time `json:"pausedAt,omitempty"`
	FinishedAt      *time.Time `json:"finishedAt,omitempty"`
	DurationSeconds *int64     `json:"durationSeconds,omitempty"`
}

// Create handles POST /api/v1/items.
func (h *WorkItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	input := tracking.CreateWorkItemInput{
		Kind:  domain.WorkItemKind(req.Kind),
		Title: req.Title,
	}
	projectID, err := uuid.Parse(req.ProjectID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid projectId")
		return
	}
	input.ProjectID = projectID
	if req.SprintID != nil {
		sprintID, err := uuid.Parse(*req.SprintID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid sprintId")
			return
		}
		input.SprintID = &sprintID
	}
	if req.AssigneeID != nil {
		assigneeID, err := uuid.Parse(*req.AssigneeID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid assigneeId")
			return
		}
		input.AssigneeID = &assigneeID
	}

	item, err := h.svc.CreateWorkItem(r.Context(), input)
	if err != nil {
		handleServiceError(h.log, w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toItemResponse(item))
}

// Get handles GET /api/v1/items/{id}.
func (h *WorkItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	itemID, ok := pathID(w, r)
	if !ok {
		return
	}

	item, err := h.svc.GetWorkItem(r.Context(), itemID)
	if err != nil {
		handleServiceError(h.log, w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toItemResponse(item))
}

// List handles GET /api/v1/items.
func (h *WorkItemHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, err := h.svc.ListWorkItems(r.Context(), filter)
	if err != nil {
		handleServiceError(h.log, w, r, err)
		return
	}

	responses := make([]itemResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, toItemResponse(item))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": responses})
}

// Start handles POST /api/v1/items/{id}/start.
func (h *WorkItemHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.svc.StartWork)
}

// Pause handles POST /api/v1/items/{id}/pause.
func (h *WorkItemHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.svc.PauseWork)
}

// Resume handles POST /api/v1/items/{id}/resume.
func (h *WorkItemHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.svc.ResumeWork)
}

// ResumeAutoPaused handles POST /api/v1/items/{id}/resume-auto-paused.
func (h *WorkItemHandler) ResumeAutoPaused(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.svc.ResumeAutoPaused)
}

// Finish handles POST /api/v1/items/{id}/finish.
func (h *WorkItemHandler) Finish(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.svc.FinishWork)
}

func (h *WorkItemHandler) lifecycle(w http.ResponseWriter, r *http.Request, op func(context.Context, uuid.UUID) (*domain.WorkItem, error)) {
	itemID, ok := pathID(w, r)
	if !ok {
		return
	}

	item, err := op(r.Context(), itemID)
	if err != nil {
		handleServiceError(h.log, w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toItemResponse(item))
}

// Time handles GET /api/v1/items/{id}/time.
func (h *WorkItemHandler) Time(w http.ResponseWriter, r *http.Request) {
	itemID, ok := pathID(w, r)
	if !ok {
		return
	}

	total, err := h.svc.GetCurrentWorkTime(r.Context(), itemID)
	if err != nil {
		handleServiceError(h.log, w, r, err)
		return
	}
	rework, err := h.svc.GetReworkTime(r.Context(), itemID)
	if err != nil {
		handleServiceError(h.log, w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{
		"totalSeconds":  total,
		"reworkSeconds": rework,
	})
}

// Sessions handles GET /api/v1/items/{id}/sessions.
func (h *WorkItemHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	itemID, ok := pathID(w, r)
	if !ok {
		return
	}

	sessions, err := h.svc.ListSessions(r.Context(), itemID)
	if err != nil {
		handleServiceError(h.log, w, r, err)
		return
	}

	responses := make([]sessionResponse, 0, len(sessions))
	for _, s := range sessions {
		responses = append(responses, sessionResponse{
			ID:              s.ID.String(),
			Action:          s.Action.String(),
			StartedAt:       s.StartedAt,
			PausedAt:        s.PausedAt,
			FinishedAt:      s.FinishedAt,
			DurationSeconds: s.DurationSeconds,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": responses})
}

// ActiveCount handles GET /api/v1/users/me/active-count.
func (h *WorkItemHandler) ActiveCount(w http.ResponseWriter, r *http.Request) {
	userID, ok := ctxutil.UserIDFromCtx(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	count, err := h.svc.GetActiveCount(r.Context(), userID)
	if err != nil {
		handleServiceError(h.log, w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"activeCount": count})
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid item id")
		return uuid.Nil, false
	}
	return id, true
}

func filterFromQuery(r *http.Request) (domain.WorkItemFilter, error) {
	var filter domain.WorkItemFilter
	q := r.URL.Query()

	for key, dst := range map[string]**uuid.UUID{
		"projectId":  &filter.ProjectID,
		"sprintId":   &filter.SprintID,
		"assigneeId": &filter.AssigneeID,
	} {
		if raw := q.Get(key); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				return filter, domain.NewValidationError(key, "invalid uuid")
			}
			*dst = &id
		}
	}
	if raw := q.Get("status"); raw != "" {
		status := domain.WorkItemStatus(raw)
		filter.Status = &status
	}
	if raw := q.Get("kind"); raw != "" {
		kind := domain.WorkItemKind(raw)
		filter.Kind = &kind
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return filter, domain.NewValidationError("limit", "must be a non-negative integer")
		}
		filter.Limit = limit
	}
	if raw := q.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return filter, domain.NewValidationError("offset", "must be a non-negative integer")
		}
		filter.Offset = offset
	}

	return filter, nil
}

func toItemResponse(item *domain.WorkItem) itemResponse {
	resp := itemResponse{
		ID:                       item.ID.String(),
		ProjectID:                item.ProjectID.String(),
		Kind:                     item.Kind.String(),
		Title:                    item.Title,
		Status:                   item.Status.String(),
		IsWorking:                item.IsWorking,
		WorkStartedAt:            item.WorkStartedAt,
		AutoPaused:               item.AutoPaused,
		AutoPauseReason:          item.AutoPauseReason,
		AlertCount:               item.AlertCount,
		TotalTimeSeconds:         item.TotalTimeSeconds,
		OriginalTimeSeconds:      item.OriginalTimeSeconds,
		ApprovalStatus:           item.ApprovalStatus.String(),
		QAStatus:                 item.QAStatus.String(),
		RejectionReason:          item.RejectionReason,
		QARejectionReason:        item.QARejectionReason,
		ReworkNotes:              item.ReworkNotes,
		TeamLeadFinalApproval:    item.TeamLeadFinalApproval,
		TeamLeadRequestedChanges: item.TeamLeadRequestedChanges,
		ReturnCount:              item.ReturnCount,
		LastReturnedBy:           nil,
		LastReturnedAt:           item.LastReturnedAt,
		CreatedAt:                item.CreatedAt,
		UpdatedAt:                item.UpdatedAt,
	}
	if item.SprintID != nil {
		s := item.SprintID.String()
		resp.SprintID = &s
	}
	if item.AssigneeID != nil {
		a := item.AssigneeID.String()
		resp.AssigneeID = &a
	}
	if item.LastReturnedBy != nil {
		b := item.LastReturnedBy.String()
		resp.LastReturnedBy = &b
	}
	return resp
}
