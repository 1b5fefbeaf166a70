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

// MySQLAdapter serves the same contract as PostgresAdapter on MySQL, which
// lacks RETURNING: writes that must echo the row read it back inside the
// same transaction.
type MySQLAdapter struct {
	db *sqlx.DB
}

func NewMySQLAdapter(db *sqlx.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

func (m *MySQLAdapter) CreateLocation(ctx context.Context, name string) (*domain.Location, error) {
	result, err := m.db.ExecContext(ctx, `INSERT INTO locations (name) VALUES (?)`, name)
	if err != nil {
		return nil, fmt.Errorf("insert location: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("location id: %w", err)
	}
	return &domain.Location{ID: id, Name: name}, nil
}

func (m *MySQLAdapter) ListLocations(ctx context.Context) ([]domain.Location, error) {
	locs := []domain.Location{}
	if err := m.db.SelectContext(ctx, &locs, `SELECT id, name FROM locations ORDER BY id`); err != nil {
		return nil, fmt.Errorf("select locations: %w", err)
	}
	return locs, nil
}

func (m *MySQLAdapter) CreateItem(ctx context.Context, item domain.NewItem) (*domain.Item, error) {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO inventory (item_name, quantity, location_id, barcode, updated_at)
		VALUES (?, ?, ?, ?, NOW())`,
		item.ItemName, item.Quantity, item.LocationID, item.Barcode,
	)
	if err != nil {
		return nil, fmt.Errorf("insert item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("item id: %w", err)
	}

	var created domain.Item
	if err := tx.GetContext(ctx, &created, `SELECT `+itemColumns+` FROM inventory WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("read back item: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return &created, nil
}

func (m *MySQLAdapter) UpdateItem(ctx context.Context, id int64, patch domain.ItemPatch) (*domain.Item, error) {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	// RowsAffected is 0 when no column changed, so existence is decided by the read-back
	_, err = tx.ExecContext(ctx, `
		UPDATE inventory
		   SET item_name  = COALESCE(?, item_name),
		       barcode    = COALESCE(?, barcode),
		       quantity   = COALESCE(?, quantity),
		       updated_at = NOW()
		 WHERE id = ?`,
		patch.ItemName, patch.Barcode, patch.Quantity, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update item: %w", err)
	}

	var updated domain.Item
	err = tx.GetContext(ctx, &updated, `SELECT `+itemColumns+` FROM inventory WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read back item: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return &updated, nil
}

func (m *MySQLAdapter) ListLocationItems(ctx context.Context, locationID int64, search string) ([]domain.Item, error) {
	args := []any{locationID}
	query := `SELECT ` + itemColumns + ` FROM inventory WHERE location_id = ?`

	if search != "" {
		args = append(args, "%"+strings.ToLower(search)+"%", search)
		query += ` AND (LOWER(item_name) LIKE ? OR CAST(barcode AS BINARY) = CAST(? AS BINARY))`
	}
	query += ` ORDER BY item_name ASC`

	items := []domain.Item{}
	if err := m.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("select location items: %w", err)
	}
	return items, nil
}

func (m *MySQLAdapter) SearchItems(ctx context.Context, query string, limit int) ([]domain.SearchResult, error) {
	results := []domain.SearchResult{}
	err := m.db.SelectContext(ctx, &results, `
		SELECT i.id, i.item_name, i.quantity, i.location_id, i.updated_at, i.barcode,
		       l.name AS location_name
		  FROM inventory i
		  JOIN locations l ON l.id = i.location_id
		 WHERE LOWER(i.item_name) LIKE LOWER(?)
		    OR CAST(i.barcode AS BINARY) = CAST(? AS BINARY)
		 ORDER BY i.item_name
		 LIMIT ?`,
		"%"+query+"%", query, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("search items: %w", err)
	}
	return results, nil
}

func (m *MySQLAdapter) AdjustQuantity(ctx context.Context, locationID int64, adj domain.Adjustment) ([]domain.Item, error) {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE inventory
		   SET quantity   = quantity + ?,
		       updated_at = NOW()
		 WHERE id = ?
		   AND location_id = ?`,
		adj.Delta, adj.ItemID, locationID,
	)
	if err != nil {
		return nil, fmt.Errorf("adjust quantity: %w", err)
	}

	updated := []domain.Item{}
	rows, _ := result.RowsAffected()
	if rows > 0 {
		err = tx.SelectContext(ctx, &updated,
			`SELECT `+itemColumns+` FROM inventory WHERE id = ? AND location_id = ?`,
			adj.ItemID, locationID,
		)
		if err != nil {
			return nil, fmt.Errorf("read back item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return updated, nil
}

func (m *MySQLAdapter) Ping(ctx context.Context) error {
	return m.db.PingContext(ctx)
}
