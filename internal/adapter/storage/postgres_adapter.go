package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/rl1809/locofly/internal/core/domain"
)

const itemColumns = "id, item_name, quantity, location_id, updated_at, barcode"

type PostgresAdapter struct {
	db *sqlx.DB
}

func NewPostgresAdapter(db *sqlx.DB) *PostgresAdapter {
	return &PostgresAdapter{db: db}
}

func (p *PostgresAdapter) CreateLocation(ctx context.Context, name string) (*domain.Location, error) {
	var loc domain.Location
	err := p.db.GetContext(ctx, &loc,
		`INSERT INTO locations (name) VALUES ($1) RETURNING id, name`, name)
	if err != nil {
		return nil, fmt.Errorf("insert location: %w", err)
	}
	return &loc, nil
}

func (p *PostgresAdapter) ListLocations(ctx context.Context) ([]domain.Location, error) {
	locs := []domain.Location{}
	if err := p.db.SelectContext(ctx, &locs, `SELECT id, name FROM locations ORDER BY id`); err != nil {
		return nil, fmt.Errorf("select locations: %w", err)
	}
	return locs, nil
}

func (p *PostgresAdapter) CreateItem(ctx context.Context, item domain.NewItem) (*domain.Item, error) {
	var created domain.Item
	err := p.db.GetContext(ctx, &created, `
		INSERT INTO inventory (item_name, quantity, location_id, barcode, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING `+itemColumns,
		item.ItemName, item.Quantity, item.LocationID, item.Barcode,
	)
	if err != nil {
		return nil, fmt.Errorf("insert item: %w", err)
	}
	return &created, nil
}

func (p *PostgresAdapter) UpdateItem(ctx context.Context, id int64, patch domain.ItemPatch) (*domain.Item, error) {
	var updated domain.Item
	err := p.db.GetContext(ctx, &updated, `
		UPDATE inventory
		   SET item_name  = COALESCE($1, item_name),
		       barcode    = COALESCE($2, barcode),
		       quantity   = COALESCE($3, quantity),
		       updated_at = NOW()
		 WHERE id = $4
		RETURNING `+itemColumns,
		patch.ItemName, patch.Barcode, patch.Quantity, id,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update item: %w", err)
	}
	return &updated, nil
}

func (p *PostgresAdapter) ListLocationItems(ctx context.Context, locationID int64, search string) ([]domain.Item, error) {
	args := []any{locationID}
	query := `SELECT ` + itemColumns + ` FROM inventory WHERE location_id = $1`

	if search != "" {
		args = append(args, "%"+strings.ToLower(search)+"%", search)
		query += ` AND (LOWER(item_name) LIKE $2 OR barcode = $3)`
	}
	query += ` ORDER BY item_name ASC`

	items := []domain.Item{}
	if err := p.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("select location items: %w", err)
	}
	return items, nil
}

func (p *PostgresAdapter) SearchItems(ctx context.Context, query string, limit int) ([]domain.SearchResult, error) {
	results := []domain.SearchResult{}
	err := p.db.SelectContext(ctx, &results, `
		SELECT i.id, i.item_name, i.quantity, i.location_id, i.updated_at, i.barcode,
		       l.name AS location_name
		  FROM inventory i
		  JOIN locations l ON l.id = i.location_id
		 WHERE i.item_name ILIKE $1
		    OR i.barcode = $2
		 ORDER BY i.item_name
		 LIMIT $3`,
		"%"+query+"%", query, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("search items: %w", err)
	}
	return results, nil
}

func (p *PostgresAdapter) AdjustQuantity(ctx context.Context, locationID int64, adj domain.Adjustment) ([]domain.Item, error) {
	updated := []domain.Item{}
	err := p.db.SelectContext(ctx, &updated, `
		UPDATE inventory
		   SET quantity   = quantity + $1,
		       updated_at = NOW()
		 WHERE id = $2
		   AND location_id = $3
		RETURNING `+itemColumns,
		adj.Delta, adj.ItemID, locationID,
	)
	if err != nil {
		return nil, fmt.Errorf("adjust quantity: %w", err)
	}
	return updated, nil
}

func (p *PostgresAdapter) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}
