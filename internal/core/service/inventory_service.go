package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/rl1809/locofly/internal/core/domain"
	"github.com/rl1809/locofly/internal/port"
)

const (
	// SearchLimit caps the rows returned by a global search.
	SearchLimit = 50

	adjustKeyPrefix = "adjust:"
)

var ErrDuplicateRequest = errors.New("duplicate request")

type InventoryService struct {
	db          port.DatabaseRepository
	idempotency port.IdempotencyRepository
	validate    *validator.Validate
}

// NewInventoryService wires the service to its store. idempotency may be nil,
// in which case Idempotency-Key headers are ignored.
func NewInventoryService(db port.DatabaseRepository, idempotency port.IdempotencyRepository) *InventoryService {
	return &InventoryService{
		db:          db,
		idempotency: idempotency,
		validate:    validator.New(),
	}
}

func (s *InventoryService) CreateLocation(ctx context.Context, name string) (*domain.Location, error) {
	if err := s.validate.Var(name, "required"); err != nil {
		return nil, domain.NewValidationError("name is required")
	}

	loc, err := s.db.CreateLocation(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("create location: %w", err)
	}
	return loc, nil
}

func (s *InventoryService) ListLocations(ctx context.Context) ([]domain.Location, error) {
	locs, err := s.db.ListLocations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	if locs == nil {
		locs = []domain.Location{}
	}
	return locs, nil
}

func (s *InventoryService) AddItem(ctx context.Context, item domain.NewItem) (*domain.Item, error) {
	if err := s.validate.Struct(item); err != nil {
		return nil, domain.NewValidationError("item_name and location_id required")
	}
	if item.Barcode != nil && *item.Barcode == "" {
		item.Barcode = nil
	}

	created, err := s.db.CreateItem(ctx, item)
	if err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}
	return created, nil
}

func (s *InventoryService) EditItem(ctx context.Context, id int64, patch domain.ItemPatch) (*domain.Item, error) {
	updated, err := s.db.UpdateItem(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("update item %d: %w", id, err)
	}
	if updated == nil {
		return nil, domain.ErrItemNotFound
	}
	return updated, nil
}

// ListLocationItems returns a location's items. A non-empty query matches the
// lower-cased name as a substring or the barcode exactly, case preserved.
func (s *InventoryService) ListLocationItems(ctx context.Context, locationID int64, query string) ([]domain.Item, error) {
	if locationID == 0 {
		return nil, domain.NewValidationError("location_id is required")
	}

	items, err := s.db.ListLocationItems(ctx, locationID, strings.TrimSpace(query))
	if err != nil {
		return nil, fmt.Errorf("list items of location %d: %w", locationID, err)
	}
	if items == nil {
		items = []domain.Item{}
	}
	return items, nil
}

// Search matches items in every location. An empty query matches everything.
func (s *InventoryService) Search(ctx context.Context, query string) ([]domain.SearchResult, error) {
	results, err := s.db.SearchItems(ctx, strings.TrimSpace(query), SearchLimit)
	if err != nil {
		return nil, fmt.Errorf("search items: %w", err)
	}
	if results == nil {
		results = []domain.SearchResult{}
	}
	return results, nil
}

// Adjust applies the first adjustment only; the rest are ignored. An adjustment
// without an item id or with a zero delta is a no-op.
func (s *InventoryService) Adjust(ctx context.Context, locationID int64, adjustments []domain.Adjustment, idempotencyKey string) ([]domain.Item, error) {
	if locationID == 0 || len(adjustments) == 0 {
		return nil, domain.NewValidationError("location_id and items[] are required")
	}

	adj := adjustments[0]
	if adj.ItemID == 0 || adj.Delta == 0 {
		return []domain.Item{}, nil
	}

	if idempotencyKey != "" && s.idempotency != nil {
		ok, err := s.idempotency.SetIdempotency(ctx, adjustKeyPrefix+idempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("idempotency check failed: %w", err)
		}
		if !ok {
			return nil, ErrDuplicateRequest
		}
	}

	updated, err := s.db.AdjustQuantity(ctx, locationID, adj)
	if err != nil {
		return nil, fmt.Errorf("adjust item %d: %w", adj.ItemID, err)
	}
	if updated == nil {
		updated = []domain.Item{}
	}
	return updated, nil
}

func (s *InventoryService) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
