package storage

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/rl1809/locofly/internal/core/domain"
	"github.com/rl1809/locofly/internal/core/service"
)

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS locations (
		id   INT AUTO_INCREMENT PRIMARY KEY,
		name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS inventory (
		id          INT AUTO_INCREMENT PRIMARY KEY,
		item_name   TEXT NOT NULL,
		quantity    INT NOT NULL DEFAULT 0,
		location_id INT NOT NULL,
		barcode     VARCHAR(255),
		updated_at  DATETIME(6),
		FOREIGN KEY (location_id) REFERENCES locations(id)
	)`,
}

type mysqlEnv struct {
	db      *sqlx.DB
	redis   *redis.Client
	adapter *MySQLAdapter
	svc     *service.InventoryService
	cleanup func()
}

func setupMySQLEnv(t *testing.T) *mysqlEnv {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/locofly?parseTime=true"
	}

	db, err := sqlx.Open("mysql", dsn)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("MySQL not available: %v", err)
	}
	for _, stmt := range mysqlSchema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			t.Fatalf("failed to create schema: %v", err)
		}
	}

	rdb := getRedisClient(t)
	adapter := NewMySQLAdapter(db)

	return &mysqlEnv{
		db:      db,
		redis:   rdb,
		adapter: adapter,
		svc:     service.NewInventoryService(adapter, NewRedisAdapter(rdb, time.Minute)),
		cleanup: func() {
			rdb.Close()
			db.Close()
		},
	}
}

func TestMySQLIntegration_ConcurrentAdjust(t *testing.T) {
	env := setupMySQLEnv(t)
	defer env.cleanup()

	ctx := context.Background()
	loc, err := env.svc.CreateLocation(ctx, "mysql-it-"+uuid.NewString()[:8])
	if err != nil {
		t.Fatalf("create location: %v", err)
	}
	item, err := env.svc.AddItem(ctx, domain.NewItem{ItemName: "Widget", LocationID: loc.ID, Quantity: 10})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}

	var wg sync.WaitGroup
	var successCount atomic.Int32
	totalRequests := 20

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			updated, err := env.svc.Adjust(ctx, loc.ID,
				[]domain.Adjustment{{ItemID: item.ID, Delta: 1}}, uuid.NewString())
			if err == nil && len(updated) == 1 {
				successCount.Add(1)
			}
		}()
	}
	wg.Wait()

	if successCount.Load() != int32(totalRequests) {
		t.Errorf("expected %d successful adjustments, got %d", totalRequests, successCount.Load())
	}

	var quantity int64
	if err := env.db.GetContext(ctx, &quantity, `SELECT quantity FROM inventory WHERE id = ?`, item.ID); err != nil {
		t.Fatalf("read quantity: %v", err)
	}
	if quantity != 30 {
		t.Errorf("expected quantity 30, got %d", quantity)
	}
}

func TestMySQLIntegration_IdempotencyPreventsDoubleAdjust(t *testing.T) {
	env := setupMySQLEnv(t)
	defer env.cleanup()

	ctx := context.Background()
	key := "same-adjust-" + uuid.NewString()
	env.redis.Del(ctx, idempotencyKeyPrefix+"adjust:"+key)

	loc, err := env.svc.CreateLocation(ctx, "mysql-it-"+uuid.NewString()[:8])
	if err != nil {
		t.Fatalf("create location: %v", err)
	}
	item, err := env.svc.AddItem(ctx, domain.NewItem{ItemName: "Gadget", LocationID: loc.ID, Quantity: 5})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}

	adj := []domain.Adjustment{{ItemID: item.ID, Delta: -2}}
	if _, err := env.svc.Adjust(ctx, loc.ID, adj, key); err != nil {
		t.Fatalf("first adjust failed: %v", err)
	}
	if _, err := env.svc.Adjust(ctx, loc.ID, adj, key); err != service.ErrDuplicateRequest {
		t.Errorf("expected ErrDuplicateRequest, got: %v", err)
	}

	items, err := env.adapter.ListLocationItems(ctx, loc.ID, "")
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if len(items) != 1 || items[0].Quantity != 3 {
		t.Errorf("expected a single item with quantity 3, got %+v", items)
	}
}

func TestMySQLIntegration_BarcodeIsCaseSensitive(t *testing.T) {
	env := setupMySQLEnv(t)
	defer env.cleanup()

	ctx := context.Background()
	loc, err := env.svc.CreateLocation(ctx, "mysql-it-"+uuid.NewString()[:8])
	if err != nil {
		t.Fatalf("create location: %v", err)
	}
	barcode := "Zq-" + uuid.NewString()[:6]
	if _, err := env.svc.AddItem(ctx, domain.NewItem{ItemName: "Nut", LocationID: loc.ID, Barcode: &barcode}); err != nil {
		t.Fatalf("add item: %v", err)
	}

	exact, err := env.svc.ListLocationItems(ctx, loc.ID, barcode)
	if err != nil {
		t.Fatalf("list exact: %v", err)
	}
	if len(exact) != 1 {
		t.Errorf("expected exact barcode to match 1 item, got %d", len(exact))
	}

	folded, err := env.svc.ListLocationItems(ctx, loc.ID, "zQ-"+barcode[3:])
	if err != nil {
		t.Fatalf("list folded: %v", err)
	}
	if len(folded) != 0 {
		t.Errorf("expected case-changed barcode to match nothing, got %d", len(folded))
	}
}
