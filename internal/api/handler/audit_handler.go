package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/warehouse-inventory-ledger/internal/domain/audit"
)

// AuditHandler serves the movement audit trail recorded in MongoDB. The
// trail is written asynchronously after commit, so a just-created movement
// may briefly have no entries yet.
type AuditHandler struct {
	auditRepo audit.Repository
	logger    *slog.Logger
}

// NewAuditHandler creates a new audit trail handler
func NewAuditHandler(logger *slog.Logger, auditRepo audit.Repository) *AuditHandler {
	return &AuditHandler{
		auditRepo: auditRepo,
		logger:    logger,
	}
}

// GetByMovementID retrieves the full transition history of a movement
func (h *AuditHandler) GetByMovementID(c *gin.Context) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid movement ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid movement ID")
		return
	}

	entries, err := h.auditRepo.GetByMovementID(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}

	responses := make([]AuditEntryResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, mapAuditEntryToResponse(entry))
	}

	RespondOK(c, responses)
}

// GetByCode retrieves the transition history of a movement by its code
func (h *AuditHandler) GetByCode(c *gin.Context) {
	code := c.Param("code")
	if code == "" {
		RespondBadRequest(c, "Movement code is required")
		return
	}

	entries, err := h.auditRepo.GetByCode(c.Request.Context(), code)
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}

	responses := make([]AuditEntryResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, mapAuditEntryToResponse(entry))
	}

	RespondOK(c, responses)
}

// ListByTimeRange retrieves paginated audit entries recorded inside a time
// window, for reconciliation against the Postgres ledger
func (h *AuditHandler) ListByTimeRange(c *gin.Context) {
	var query TimeRangeQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.logger.Error("Invalid time range parameters", "error", err)
		RespondBadRequest(c, "Invalid time range: from and to are required RFC 3339 timestamps")
		return
	}

	start, err := time.Parse(time.RFC3339, query.From)
	if err != nil {
		RespondBadRequest(c, "Invalid from, expected RFC 3339 timestamp")
		return
	}
	end, err := time.Parse(time.RFC3339, query.To)
	if err != nil {
		RespondBadRequest(c, "Invalid to, expected RFC 3339 timestamp")
		return
	}
	if end.Before(start) {
		RespondBadRequest(c, "Time range end precedes start")
		return
	}

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		h.logger.Error("Invalid pagination parameters", "error", err)
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	offset := (pagination.Page - 1) * pagination.PerPage
	entries, err := h.auditRepo.GetByTimeRange(c.Request.Context(), start, end, pagination.PerPage, offset)
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}

	responses := make([]AuditEntryResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, mapAuditEntryToResponse(entry))
	}

	RespondOK(c, responses)
}

// GetByItemID retrieves paginated audit history for an item, newest first
func (h *AuditHandler) GetByItemID(c *gin.Context) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid item ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid item ID")
		return
	}

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		h.logger.Error("Invalid pagination parameters", "error", err)
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	offset := (pagination.Page - 1) * pagination.PerPage
	entries, err := h.auditRepo.GetByItemID(c.Request.Context(), id, pagination.PerPage, offset)
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}

	total, err := h.auditRepo.CountByItemID(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}

	responses := make([]AuditEntryResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, mapAuditEntryToResponse(entry))
	}

	RespondWithPaginatedData(c, http.StatusOK, responses, pagination.Page, pagination.PerPage, int(total))
}
