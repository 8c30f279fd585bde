package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/civicdesk/caseflow/internal/application/engine"
	"github.com/civicdesk/caseflow/internal/application/service"
	"github.com/civicdesk/caseflow/internal/domain/entity"
	"github.com/civicdesk/caseflow/internal/domain/workflow"
	"github.com/civicdesk/caseflow/internal/report"
)

// principalKey is the gin context key the resolved acting user is stored
// under.
const principalKey = "principal"

// Handlers contains all HTTP request handlers
type Handlers struct {
	engine   engine.Engine
	queries  service.TaskQueryService
	exporter *report.RegisterExporter
	logger   Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(eng engine.Engine, queries service.TaskQueryService, exporter *report.RegisterExporter, logger Logger) *Handlers {
	return &Handlers{
		engine:   eng,
		queries:  queries,
		exporter: exporter,
		logger:   logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// RequestResponse represents a service request in API responses
type RequestResponse struct {
	ID                 int64  `json:"id"`
	Reference          string `json:"reference"`
	SubjectID          string `json:"subject_id"`
	WorkflowID         string `json:"workflow_id"`
	Title              string `json:"title"`
	ApplicantUserID    string `json:"applicant_user_id"`
	ApplicantName      string `json:"applicant_name"`
	Status             string `json:"status"`
	CurrentStepID      string `json:"current_step_id"`
	AssignedToOfficeID string `json:"assigned_to_office_id,omitempty"`
	AssignedToUserID   string `json:"assigned_to_user_id,omitempty"`
	FormData           string `json:"form_data"`
	Version            int64  `json:"version"`
	CreatedAt          string `json:"created_at"`
	UpdatedAt          string `json:"updated_at"`
}

// HistoryEventResponse represents one audit trail entry in API responses
type HistoryEventResponse struct {
	ID           int64  `json:"id"`
	StepID       string `json:"step_id,omitempty"`
	StepName     string `json:"step_name,omitempty"`
	ActorUserID  string `json:"actor_user_id"`
	ActorName    string `json:"actor_name"`
	Action       string `json:"action"`
	Comment      string `json:"comment,omitempty"`
	FormSnapshot string `json:"form_snapshot,omitempty"`
	Timestamp    string `json:"timestamp"`
}

// CreateRequestRequest is the creation payload
type CreateRequestRequest struct {
	SubjectID       string                 `json:"subject_id" binding:"required"`
	Title           string                 `json:"title" binding:"required"`
	InitialOfficeID string                 `json:"initial_office_id"`
	Data            map[string]interface{} `json:"data"`
}

// SubmitTaskRequest is the data submission payload
type SubmitTaskRequest struct {
	Data      map[string]interface{}    `json:"data"`
	Documents []entity.UploadedDocument `json:"documents"`
}

// DecisionRequest carries the approve payload
type DecisionRequest struct {
	Comment      string `json:"comment"`
	NextOfficeID string `json:"next_office_id"`
}

// RejectRequest carries the reject payload
type RejectRequest struct {
	Reason string `json:"reason"`
}

// CorrectionRequest carries the correction payload
type CorrectionRequest struct {
	TargetStepID string `json:"target_step_id" binding:"required"`
	Comment      string `json:"comment"`
}

// ListRequestsRequest represents query parameters for listing requests
type ListRequestsRequest struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   "1.0.0",
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    response,
	})
}

// CreateRequest handles POST /api/requests
func (h *Handlers) CreateRequest(c *gin.Context) {
	actor := h.principal(c)
	if actor == nil {
		return
	}

	var req CreateRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid request body: " + err.Error(),
		})
		return
	}

	created, err := h.engine.CreateServiceRequest(c.Request.Context(), engine.CreateRequestInput{
		SubjectID:       req.SubjectID,
		Title:           req.Title,
		InitialOfficeID: req.InitialOfficeID,
		Data:            req.Data,
	}, actor)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    toRequestResponse(created),
	})
}

// ListRequests handles GET /api/requests
func (h *Handlers) ListRequests(c *gin.Context) {
	var req ListRequestsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid query parameters",
		})
		return
	}

	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 20
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	requests, err := h.queries.ListRequests(c.Request.Context(), req.Limit, req.Offset)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    toRequestResponses(requests),
	})
}

// GetRequest handles GET /api/requests/:id
func (h *Handlers) GetRequest(c *gin.Context) {
	id, ok := h.requestID(c)
	if !ok {
		return
	}

	req, err := h.queries.GetRequest(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    toRequestResponse(req),
	})
}

// GetRequestByReference handles GET /api/references/:reference
func (h *Handlers) GetRequestByReference(c *gin.Context) {
	req, err := h.queries.GetRequestByReference(c.Request.Context(), c.Param("reference"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    toRequestResponse(req),
	})
}

// GetHistory handles GET /api/requests/:id/history
func (h *Handlers) GetHistory(c *gin.Context) {
	id, ok := h.requestID(c)
	if !ok {
		return
	}

	events, err := h.queries.History(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	responses := make([]HistoryEventResponse, 0, len(events))
	for _, ev := range events {
		responses = append(responses, HistoryEventResponse{
			ID:           ev.ID,
			StepID:       ev.StepID,
			StepName:     ev.StepName,
			ActorUserID:  ev.ActorUserID,
			ActorName:    ev.ActorName,
			Action:       ev.Action,
			Comment:      ev.Comment,
			FormSnapshot: ev.FormSnapshot,
			Timestamp:    ev.Timestamp.Format(time.RFC3339),
		})
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    responses,
	})
}

// ListOfficeTasks handles GET /api/offices/:id/tasks
func (h *Handlers) ListOfficeTasks(c *gin.Context) {
	tasks, err := h.queries.TasksForOffice(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    toRequestResponses(tasks),
	})
}

// ListUserTasks handles GET /api/users/:id/tasks
func (h *Handlers) ListUserTasks(c *gin.Context) {
	tasks, err := h.queries.TasksForUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    toRequestResponses(tasks),
	})
}

// ExportOfficeRegister handles GET /api/offices/:id/register, streaming the
// office's register as an xlsx workbook.
func (h *Handlers) ExportOfficeRegister(c *gin.Context) {
	officeID := c.Param("id")

	book, err := h.exporter.Export(c.Request.Context(), officeID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	defer book.Close()

	filename := fmt.Sprintf("register-%s-%s.xlsx", officeID, time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")

	if _, err := book.WriteTo(c.Writer); err != nil {
		h.logger.Error("failed to stream register export", "office_id", officeID, "error", err)
	}
}

// ClaimTask handles POST /api/requests/:id/claim
func (h *Handlers) ClaimTask(c *gin.Context) {
	actor := h.principal(c)
	if actor == nil {
		return
	}
	id, ok := h.requestID(c)
	if !ok {
		return
	}

	req, err := h.engine.ClaimTask(c.Request.Context(), id, actor.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    toRequestResponse(req),
	})
}

// SubmitTask handles POST /api/requests/:id/submit
func (h *Handlers) SubmitTask(c *gin.Context) {
	actor := h.principal(c)
	if actor == nil {
		return
	}
	id, ok := h.requestID(c)
	if !ok {
		return
	}

	var body SubmitTaskRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid request body: " + err.Error(),
		})
		return
	}

	req, err := h.engine.SubmitTaskData(c.Request.Context(), id, actor.ID, body.Data, body.Documents)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    toRequestResponse(req),
	})
}

// ApproveStep handles POST /api/requests/:id/approve
func (h *Handlers) ApproveStep(c *gin.Context) {
	actor := h.principal(c)
	if actor == nil {
		return
	}
	id, ok := h.requestID(c)
	if !ok {
		return
	}

	var body DecisionRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid request body: " + err.Error(),
		})
		return
	}

	req, err := h.engine.ApproveStep(c.Request.Context(), id, actor.ID, body.Comment, body.NextOfficeID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    toRequestResponse(req),
	})
}

// RejectStep handles POST /api/requests/:id/reject
func (h *Handlers) RejectStep(c *gin.Context) {
	actor := h.principal(c)
	if actor == nil {
		return
	}
	id, ok := h.requestID(c)
	if !ok {
		return
	}

	var body RejectRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid request body: " + err.Error(),
		})
		return
	}

	req, err := h.engine.RejectStep(c.Request.Context(), id, actor.ID, body.Reason)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    toRequestResponse(req),
	})
}

// RequestCorrection handles POST /api/requests/:id/correction
func (h *Handlers) RequestCorrection(c *gin.Context) {
	actor := h.principal(c)
	if actor == nil {
		return
	}
	id, ok := h.requestID(c)
	if !ok {
		return
	}

	var body CorrectionRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid request body: " + err.Error(),
		})
		return
	}

	req, err := h.engine.RequestCorrection(c.Request.Context(), id, actor.ID, body.TargetStepID, body.Comment)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    toRequestResponse(req),
	})
}

// principal returns the acting user resolved by the middleware. A nil
// return means the response has already been written.
func (h *Handlers) principal(c *gin.Context) *entity.User {
	value, ok := c.Get(principalKey)
	if !ok {
		c.JSON(http.StatusUnauthorized, Response{
			Success: false,
			Error:   "no acting user",
		})
		return nil
	}
	return value.(*entity.User)
}

func (h *Handlers) requestID(c *gin.Context) (int64, bool) {
	idStr := c.Param("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid request ID",
		})
		return 0, false
	}
	return id, true
}

// respondError maps the engine's error taxonomy onto HTTP status codes.
func (h *Handlers) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, workflow.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, workflow.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, workflow.ErrValidationFailed):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, workflow.ErrInvalidState),
		errors.Is(err, workflow.ErrAlreadyClaimed),
		errors.Is(err, workflow.ErrStaleVersion),
		errors.Is(err, workflow.ErrOfficeUnresolved),
		errors.Is(err, workflow.ErrInvalidTransition),
		errors.Is(err, workflow.ErrGuardFailed):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "path", c.Request.URL.Path, "error", err)
		c.JSON(status, Response{
			Success: false,
			Error:   "internal error",
		})
		return
	}

	c.JSON(status, Response{
		Success: false,
		Error:   err.Error(),
	})
}

func toRequestResponse(req *entity.ServiceRequest) RequestResponse {
	return RequestResponse{
		ID:                 req.ID,
		Reference:          req.Reference,
		SubjectID:          req.SubjectID,
		WorkflowID:         req.WorkflowDefinitionID,
		Title:              req.Title,
		ApplicantUserID:    req.ApplicantUserID,
		ApplicantName:      req.ApplicantName,
		Status:             req.Status,
		CurrentStepID:      req.CurrentStepID,
		AssignedToOfficeID: req.AssignedToOfficeID,
		AssignedToUserID:   req.AssignedToUserID,
		FormData:           req.FormData,
		Version:            req.Version,
		CreatedAt:          req.CreatedAt.Format(time.RFC3339),
		UpdatedAt:          req.UpdatedAt.Format(time.RFC3339),
	}
}

func toRequestResponses(requests []*entity.ServiceRequest) []RequestResponse {
	responses := make([]RequestResponse, 0, len(requests))
	for _, req := range requests {
		responses = append(responses, toRequestResponse(req))
	}
	return responses
}
