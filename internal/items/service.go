// Package items provides the master-data surface for stock items. It covers
// registration, lookup and retirement only; stock quantities are owned by
// the transaction ledger and never change through this package.
package items

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/warehouse-inventory-ledger/internal/domain/item"
)

// Service defines item master-data operations
type Service interface {
	CreateItem(ctx context.Context, sku, name, unit string, initialQuantity int64) (*item.Item, error)
	GetItem(ctx context.Context, id uuid.UUID) (*item.Item, error)
	GetItemBySKU(ctx context.Context, sku string) (*item.Item, error)
	ListItems(ctx context.Context, page, perPage int) ([]*item.Item, error)
	DeactivateItem(ctx context.Context, id uuid.UUID) error
}

// ServiceImpl implements the Service interface
type ServiceImpl struct {
	repo   item.Repository
	logger *slog.Logger
}

// NewService creates a new item master-data service
func NewService(logger *slog.Logger, repo item.Repository) *ServiceImpl {
	return &ServiceImpl{
		repo:   repo,
		logger: logger,
	}
}

// CreateItem registers a new item. An initial quantity is allowed so that
// stock existing before the ledger went live can be carried in without a
// synthetic receipt.
func (s *ServiceImpl) CreateItem(ctx context.Context, sku, name, unit string, initialQuantity int64) (*item.Item, error) {
	it, err := item.NewItem(sku, name, unit, initialQuantity)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, it); err != nil {
		return nil, err
	}

	s.logger.Info("Item created", "item_id", it.ID.String(), "sku", it.SKU)
	return it, nil
}

// GetItem retrieves an item by ID
func (s *ServiceImpl) GetItem(ctx context.Context, id uuid.UUID) (*item.Item, error) {
	return s.repo.GetByID(ctx, id)
}

// GetItemBySKU retrieves an item by its SKU
func (s *ServiceImpl) GetItemBySKU(ctx context.Context, sku string) (*item.Item, error) {
	return s.repo.GetBySKU(ctx, sku)
}

// ListItems retrieves a page of items
func (s *ServiceImpl) ListItems(ctx context.Context, page, perPage int) ([]*item.Item, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}
	return s.repo.List(ctx, perPage, (page-1)*perPage)
}

// DeactivateItem retires an item. Retired items keep their history and
// on-hand count but accept no further movements.
func (s *ServiceImpl) DeactivateItem(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return err
	}

	s.logger.Info("Item deactivated", "item_id", id.String())
	return nil
}
