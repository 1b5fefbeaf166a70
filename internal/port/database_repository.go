package port

import (
	"context"

	"github.com/rl1809/locofly/internal/core/domain"
)

type LocationRepository interface {
	// CreateLocation inserts a location and returns the stored row
	CreateLocation(ctx context.Context, name string) (*domain.Location, error)

	// ListLocations returns every location ordered by id
	ListLocations(ctx context.Context) ([]domain.Location, error)
}

type ItemRepository interface {
	// CreateItem inserts an item stamped with the current time
	CreateItem(ctx context.Context, item domain.NewItem) (*domain.Item, error)

	// UpdateItem applies a coalescing partial update; returns nil, nil when no row matches
	UpdateItem(ctx context.Context, id int64, patch domain.ItemPatch) (*domain.Item, error)

	// ListLocationItems returns the items of one location ordered by name, filtered by search when non-empty
	ListLocationItems(ctx context.Context, locationID int64, search string) ([]domain.Item, error)

	// SearchItems matches items across all locations, at most limit rows
	SearchItems(ctx context.Context, query string, limit int) ([]domain.SearchResult, error)

	// AdjustQuantity atomically adds delta to the item scoped to locationID
	AdjustQuantity(ctx context.Context, locationID int64, adj domain.Adjustment) ([]domain.Item, error)
}

type DatabaseRepository interface {
	LocationRepository
	ItemRepository

	// Ping reports whether the store is reachable
	Ping(ctx context.Context) error
}
