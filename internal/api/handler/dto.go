package handler

import (
	"time"

	"github.com/warehouse-inventory-ledger/internal/domain/audit"
	"github.com/warehouse-inventory-ledger/internal/domain/item"
	"github.com/warehouse-inventory-ledger/internal/domain/movement"
)

// CreateItemRequest represents a request to register a new stock item
type CreateItemRequest struct {
	SKU             string `json:"sku" binding:"required"`
	Name            string `json:"name" binding:"required"`
	Unit            string `json:"unit,omitempty"`
	InitialQuantity int64  `json:"initial_quantity" binding:"min=0"`
}

// ItemResponse represents a stock item in API responses
type ItemResponse struct {
	ID        string `json:"id"`
	SKU       string `json:"sku"`
	Name      string `json:"name"`
	Unit      string `json:"unit,omitempty"`
	Quantity  int64  `json:"quantity"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// CreateReceiptRequest represents a request to record an inbound movement
type CreateReceiptRequest struct {
	ItemID      string `json:"item_id" binding:"required,uuid"`
	Quantity    int64  `json:"quantity" binding:"required,gt=0"`
	ReceivedBy  string `json:"received_by" binding:"required"`
	EffectiveAt string `json:"effective_at,omitempty"`
	Remarks     string `json:"remarks,omitempty"`
}

// CreateIssueRequest represents a request to record an outbound movement
type CreateIssueRequest struct {
	ItemID      string `json:"item_id" binding:"required,uuid"`
	Quantity    int64  `json:"quantity" binding:"required,gt=0"`
	RequestedBy string `json:"requested_by" binding:"required"`
	Remarks     string `json:"remarks,omitempty"`
}

// TransitionRequest carries the actor of a Process or Cancel transition
type TransitionRequest struct {
	Actor string `json:"actor" binding:"required"`
}

// MovementResponse represents a stock movement in API responses
type MovementResponse struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	ItemID      string `json:"item_id"`
	Quantity    int64  `json:"quantity"`
	Direction   string `json:"direction"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
	EffectiveAt string `json:"effective_at,omitempty"`
	ReceivedBy  string `json:"received_by,omitempty"`
	RequestedBy string `json:"requested_by,omitempty"`
	ProcessedBy string `json:"processed_by,omitempty"`
	CancelledBy string `json:"cancelled_by,omitempty"`
	CancelledAt string `json:"cancelled_at,omitempty"`
	Remarks     string `json:"remarks,omitempty"`
}

// AuditEntryResponse represents an audit trail record in API responses
type AuditEntryResponse struct {
	MovementID    string `json:"movement_id"`
	Code          string `json:"code"`
	ItemID        string `json:"item_id"`
	Direction     string `json:"direction"`
	Quantity      int64  `json:"quantity"`
	Status        string `json:"status"`
	Actor         string `json:"actor,omitempty"`
	Remarks       string `json:"remarks,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
	CreatedAt     string `json:"created_at"`
	EffectiveAt   string `json:"effective_at,omitempty"`
	RecordedAt    string `json:"recorded_at"`
}

// ListMovementsQuery represents the filter parameters for movement listing
type ListMovementsQuery struct {
	ItemID    string `form:"item_id" binding:"omitempty,uuid"`
	Direction string `form:"direction" binding:"omitempty,oneof=RECEIPT ISSUE"`
	Status    string `form:"status" binding:"omitempty,oneof=PENDING COMPLETED CANCELLED"`
	Actor     string `form:"actor"`
	From      string `form:"from"`
	To        string `form:"to"`
	Search    string `form:"search"`
}

// TimeRangeQuery bounds an audit listing to a recording window
type TimeRangeQuery struct {
	From string `form:"from" binding:"required"`
	To   string `form:"to" binding:"required"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=20" binding:"min=1,max=100"`
}

func mapItemToResponse(it *item.Item) ItemResponse {
	return ItemResponse{
		ID:        it.ID.String(),
		SKU:       it.SKU,
		Name:      it.Name,
		Unit:      it.Unit,
		Quantity:  it.Quantity,
		IsActive:  it.IsActive,
		CreatedAt: it.CreatedAt.Format(time.RFC3339),
		UpdatedAt: it.UpdatedAt.Format(time.RFC3339),
	}
}

func mapMovementToResponse(m *movement.StockMovement) MovementResponse {
	response := MovementResponse{
		ID:          m.ID.String(),
		Code:        m.Code,
		ItemID:      m.ItemID.String(),
		Quantity:    m.Quantity,
		Direction:   string(m.Direction),
		Status:      string(m.Status),
		CreatedAt:   m.CreatedAt.Format(time.RFC3339),
		ReceivedBy:  m.ReceivedBy,
		RequestedBy: m.RequestedBy,
		ProcessedBy: m.ProcessedBy,
		CancelledBy: m.CancelledBy,
		Remarks:     m.Remarks,
	}

	if m.EffectiveAt != nil {
		response.EffectiveAt = m.EffectiveAt.Format(time.RFC3339)
	}
	if m.CancelledAt != nil {
		response.CancelledAt = m.CancelledAt.Format(time.RFC3339)
	}

	return response
}

func mapAuditEntryToResponse(entry *audit.Entry) AuditEntryResponse {
	response := AuditEntryResponse{
		MovementID:    entry.MovementID.String(),
		Code:          entry.Code,
		ItemID:        entry.ItemID.String(),
		Direction:     string(entry.Direction),
		Quantity:      entry.Quantity,
		Status:        string(entry.Status),
		Actor:         entry.Actor,
		Remarks:       entry.Remarks,
		CorrelationID: entry.CorrelationID,
		CreatedAt:     entry.CreatedAt.Format(time.RFC3339),
		RecordedAt:    entry.RecordedAt.Format(time.RFC3339),
	}

	if entry.EffectiveAt != nil {
		response.EffectiveAt = entry.EffectiveAt.Format(time.RFC3339)
	}

	return response
}
