package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/warehouse-inventory-ledger/internal/api/middleware"
	"github.com/warehouse-inventory-ledger/internal/domain/movement"
	"github.com/warehouse-inventory-ledger/internal/ledger"
)

// MovementHandler handles HTTP requests for stock movement operations
type MovementHandler struct {
	ledgerService ledger.Service
	logger        *slog.Logger
}

// NewMovementHandler creates a new movement handler
func NewMovementHandler(logger *slog.Logger, ledgerService ledger.Service) *MovementHandler {
	return &MovementHandler{
		ledgerService: ledgerService,
		logger:        logger,
	}
}

// CreateReceipt records an inbound movement; the stock increase is applied
// before the response is written
func (h *MovementHandler) CreateReceipt(c *gin.Context) {
	var req CreateReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	itemID, err := uuid.Parse(req.ItemID)
	if err != nil {
		RespondBadRequest(c, "Invalid item ID")
		return
	}

	var effectiveAt time.Time
	if req.EffectiveAt != "" {
		effectiveAt, err = time.Parse(time.RFC3339, req.EffectiveAt)
		if err != nil {
			RespondBadRequest(c, "Invalid effective_at, expected RFC 3339 timestamp")
			return
		}
	}

	ctx := ledger.WithCorrelationID(c.Request.Context(), middleware.GetCorrelationID(c))
	m, err := h.ledgerService.CreateReceipt(ctx, itemID, req.Quantity, req.ReceivedBy, effectiveAt, req.Remarks)
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}

	RespondCreated(c, mapMovementToResponse(m))
}

// CreateIssue records an outbound movement in Pending state
func (h *MovementHandler) CreateIssue(c *gin.Context) {
	var req CreateIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	itemID, err := uuid.Parse(req.ItemID)
	if err != nil {
		RespondBadRequest(c, "Invalid item ID")
		return
	}

	ctx := ledger.WithCorrelationID(c.Request.Context(), middleware.GetCorrelationID(c))
	m, err := h.ledgerService.CreateIssue(ctx, itemID, req.Quantity, req.RequestedBy, req.Remarks)
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}

	RespondCreated(c, mapMovementToResponse(m))
}

// Process settles a pending issue, decrementing the item's stock
func (h *MovementHandler) Process(c *gin.Context) {
	h.transition(c, h.ledgerService.Process)
}

// Cancel retires a pending issue without touching stock
func (h *MovementHandler) Cancel(c *gin.Context) {
	h.transition(c, h.ledgerService.Cancel)
}

func (h *MovementHandler) transition(c *gin.Context, op func(ctx context.Context, id uuid.UUID, actor string) (*movement.StockMovement, error)) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid movement ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid movement ID")
		return
	}

	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	ctx := ledger.WithCorrelationID(c.Request.Context(), middleware.GetCorrelationID(c))
	m, err := op(ctx, id, req.Actor)
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, mapMovementToResponse(m))
}

// GetByID retrieves a movement by its ID
func (h *MovementHandler) GetByID(c *gin.Context) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid movement ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid movement ID")
		return
	}

	m, err := h.ledgerService.GetMovement(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, mapMovementToResponse(m))
}

// GetByCode retrieves a movement by its human-readable code
func (h *MovementHandler) GetByCode(c *gin.Context) {
	code := c.Param("code")
	if code == "" {
		RespondBadRequest(c, "Movement code is required")
		return
	}

	m, err := h.ledgerService.GetMovementByCode(c.Request.Context(), code)
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, mapMovementToResponse(m))
}

// List retrieves a filtered, paginated page of movements
func (h *MovementHandler) List(c *gin.Context) {
	var query ListMovementsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.logger.Error("Invalid filter parameters", "error", err)
		RespondBadRequest(c, "Invalid filter parameters: "+err.Error())
		return
	}

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		h.logger.Error("Invalid pagination parameters", "error", err)
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	filter, err := buildMovementFilter(query)
	if err != nil {
		RespondBadRequest(c, err.Error())
		return
	}

	movements, total, err := h.ledgerService.ListMovements(c.Request.Context(), filter, pagination.Page, pagination.PerPage)
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}

	responses := make([]MovementResponse, 0, len(movements))
	for _, m := range movements {
		responses = append(responses, mapMovementToResponse(m))
	}

	RespondWithPaginatedData(c, http.StatusOK, responses, pagination.Page, pagination.PerPage, int(total))
}

func buildMovementFilter(query ListMovementsQuery) (movement.Filter, error) {
	filter := movement.Filter{
		Direction: movement.Direction(query.Direction),
		Status:    movement.Status(query.Status),
		Actor:     query.Actor,
		Search:    query.Search,
	}

	if query.ItemID != "" {
		itemID, err := uuid.Parse(query.ItemID)
		if err != nil {
			return movement.Filter{}, err
		}
		filter.ItemID = itemID
	}
	if query.From != "" {
		from, err := time.Parse(time.RFC3339, query.From)
		if err != nil {
			return movement.Filter{}, err
		}
		filter.From = from
	}
	if query.To != "" {
		to, err := time.Parse(time.RFC3339, query.To)
		if err != nil {
			return movement.Filter{}, err
		}
		filter.To = to
	}

	return filter, nil
}
