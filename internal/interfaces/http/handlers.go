package http

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/ap-invoice-intake/internal/application/service"
	"github.com/garyjia/ap-invoice-intake/internal/domain/entity"
	"github.com/garyjia/ap-invoice-intake/internal/domain/workflow"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handlers contains all HTTP request handlers
type Handlers struct {
	batch   BatchRunner
	tickets TicketManager
	reports RunReporter
	health  HealthChecker
	logger  Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(batch BatchRunner, tickets TicketManager, reports RunReporter, health HealthChecker, logger Logger) *Handlers {
	return &Handlers{
		batch:   batch,
		tickets: tickets,
		reports: reports,
		health:  health,
		logger:  logger,
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
	Status     string      `json:"status"`
	Timestamp  string      `json:"timestamp"`
	Components interface{} `json:"components,omitempty"`
}

// RunBatchRequest is the optional body of POST /api/batches
type RunBatchRequest struct {
	Limit int `json:"limit"`
}

// RunTicketsRequest is the body of POST /api/batches/tickets
type RunTicketsRequest struct {
	TicketIDs []int64 `json:"ticket_ids" binding:"required,min=1"`
}

// ListRunsRequest represents query parameters for listing runs
type ListRunsRequest struct {
	Limit int `form:"limit"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	status := http.StatusOK

	if h.health != nil {
		ok, components := h.health(c.Request.Context())
		resp.Components = components
		if !ok {
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
		}
	}

	c.JSON(status, Response{Success: status == http.StatusOK, Data: resp})
}

// RunBatch handles POST /api/batches
func (h *Handlers) RunBatch(c *gin.Context) {
	var req RunBatchRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.badRequest(c, "invalid request body", err)
			return
		}
	}

	run, err := h.batch.Run(c.Request.Context(), service.BatchRequest{
		Trigger: entity.RunTriggerAPI,
		Limit:   req.Limit,
	})
	h.respondRun(c, run, err)
}

// RunTickets handles POST /api/batches/tickets
func (h *Handlers) RunTickets(c *gin.Context) {
	var req RunTicketsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "ticket_ids is required", err)
		return
	}

	run, err := h.batch.Run(c.Request.Context(), service.BatchRequest{
		Trigger:   entity.RunTriggerAPI,
		TicketIDs: req.TicketIDs,
	})
	h.respondRun(c, run, err)
}

func (h *Handlers) respondRun(c *gin.Context, run *entity.BatchRun, err error) {
	if err == nil {
		c.JSON(http.StatusOK, Response{Success: true, Data: run})
		return
	}

	h.logger.Error("Batch run failed", "error", err)
	status := http.StatusInternalServerError
	if service.IsConfigurationError(err) {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, Response{Success: false, Data: run, Error: err.Error()})
}

// ListRuns handles GET /api/batches
func (h *Handlers) ListRuns(c *gin.Context) {
	var req ListRunsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.badRequest(c, "invalid query parameters", err)
		return
	}
	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 20
	}

	runs, err := h.reports.ListRuns(c.Request.Context(), req.Limit)
	if err != nil {
		h.logger.Error("Failed to list batch runs", "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to retrieve batch runs"})
		return
	}
	if runs == nil {
		runs = []*entity.BatchRun{}
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: runs})
}

// GetRun handles GET /api/batches/:id
func (h *Handlers) GetRun(c *gin.Context) {
	run, err := h.reports.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.serviceError(c, "Failed to get batch run", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: run})
}

// DownloadReport handles GET /api/batches/:id/report
func (h *Handlers) DownloadReport(c *gin.Context) {
	runID := c.Param("id")
	data, err := h.reports.Render(c.Request.Context(), runID)
	if err != nil {
		h.serviceError(c, "Failed to render batch report", err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="batch-%s.xlsx"`, runID))
	c.Data(http.StatusOK, xlsxContentType, data)
}

// OpenTicket handles POST /api/tickets (multipart/form-data)
func (h *Handlers) OpenTicket(c *gin.Context) {
	intake := service.TicketIntake{
		Name:    c.PostForm("name"),
		Team:    c.PostForm("team"),
		Author:  c.PostForm("author"),
		Message: c.PostForm("message"),
	}

	if form, err := c.MultipartForm(); err == nil {
		for _, header := range form.File["files"] {
			file, err := readUpload(header)
			if err != nil {
				h.badRequest(c, "failed to read uploaded file", err)
				return
			}
			intake.Files = append(intake.Files, file)
		}
	}

	ticket, err := h.tickets.Open(c.Request.Context(), intake)
	if err != nil {
		h.serviceError(c, "Failed to open ticket", err)
		return
	}

	h.logger.Info("Ticket opened via API", "ticket_id", ticket.ID, "files", len(intake.Files))
	c.JSON(http.StatusCreated, Response{Success: true, Data: ticket})
}

// GetTicket handles GET /api/tickets/:id
func (h *Handlers) GetTicket(c *gin.Context) {
	id, ok := h.ticketID(c)
	if !ok {
		return
	}

	detail, err := h.tickets.Get(c.Request.Context(), id)
	if err != nil {
		h.serviceError(c, "Failed to get ticket", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: detail})
}

// ReopenTicket handles POST /api/tickets/:id/reopen
func (h *Handlers) ReopenTicket(c *gin.Context) {
	id, ok := h.ticketID(c)
	if !ok {
		return
	}

	ticket, err := h.tickets.Reopen(c.Request.Context(), id)
	if err != nil {
		h.serviceError(c, "Failed to reopen ticket", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: ticket})
}

func (h *Handlers) ticketID(c *gin.Context) (int64, bool) {
	idStr := c.Param("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		h.badRequest(c, "invalid ticket ID", fmt.Errorf("invalid ticket id %q", idStr))
		return 0, false
	}
	return id, true
}

func (h *Handlers) badRequest(c *gin.Context, msg string, err error) {
	h.logger.Error("Bad request", "path", c.Request.URL.Path, "error", err)
	c.JSON(http.StatusBadRequest, Response{Success: false, Error: msg})
}

// serviceError maps service sentinel errors onto HTTP statuses
func (h *Handlers) serviceError(c *gin.Context, msg string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrTicketNotFound), errors.Is(err, service.ErrRunNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrEmptyIntake):
		status = http.StatusBadRequest
	case errors.Is(err, workflow.ErrInvalidTransition):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		h.logger.Error(msg, "error", err)
		c.JSON(status, Response{Success: false, Error: strings.ToLower(msg)})
		return
	}
	c.JSON(status, Response{Success: false, Error: err.Error()})
}

func readUpload(header *multipart.FileHeader) (service.IntakeFile, error) {
	f, err := header.Open()
	if err != nil {
		return service.IntakeFile{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return service.IntakeFile{}, err
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		if strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
			mimeType = entity.MimeTypePDF
		}
	}

	return service.IntakeFile{Name: header.Filename, MimeType: mimeType, Data: data}, nil
}
