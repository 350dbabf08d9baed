package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/warehouse-inventory-ledger/internal/items"
)

// ItemHandler handles HTTP requests for item master-data operations
type ItemHandler struct {
	itemService items.Service
	logger      *slog.Logger
}

// NewItemHandler creates a new item handler
func NewItemHandler(logger *slog.Logger, itemService items.Service) *ItemHandler {
	return &ItemHandler{
		itemService: itemService,
		logger:      logger,
	}
}

// Create registers a new stock item
func (h *ItemHandler) Create(c *gin.Context) {
	var req CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	it, err := h.itemService.CreateItem(c.Request.Context(), req.SKU, req.Name, req.Unit, req.InitialQuantity)
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}

	RespondCreated(c, mapItemToResponse(it))
}

// GetByID retrieves an item by its ID
func (h *ItemHandler) GetByID(c *gin.Context) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid item ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid item ID")
		return
	}

	it, err := h.itemService.GetItem(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, mapItemToResponse(it))
}

// GetBySKU retrieves an item by its SKU
func (h *ItemHandler) GetBySKU(c *gin.Context) {
	sku := c.Param("sku")
	if sku == "" {
		RespondBadRequest(c, "Item SKU is required")
		return
	}

	it, err := h.itemService.GetItemBySKU(c.Request.Context(), sku)
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, mapItemToResponse(it))
}

// List retrieves a page of items
func (h *ItemHandler) List(c *gin.Context) {
	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		h.logger.Error("Invalid pagination parameters", "error", err)
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	list, err := h.itemService.ListItems(c.Request.Context(), pagination.Page, pagination.PerPage)
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}

	responses := make([]ItemResponse, 0, len(list))
	for _, it := range list {
		responses = append(responses, mapItemToResponse(it))
	}

	RespondOK(c, responses)
}

// Deactivate retires an item. History and on-hand count are kept; further
// movements are rejected.
func (h *ItemHandler) Deactivate(c *gin.Context) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid item ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid item ID")
		return
	}

	if err := h.itemService.DeactivateItem(c.Request.Context(), id); err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}

	RespondNoContent(c)
}
