package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/locofly/internal/core/domain"
)

// Mock DatabaseRepository
type mockDB struct {
	mu        sync.Mutex
	locations []domain.Location
	items     map[int64]*domain.Item
	nextID    int64
	calls     int
	err       error

	lastSearch string
	lastLimit  int
}

func newMockDB() *mockDB {
	return &mockDB{items: make(map[int64]*domain.Item)}
}

func (m *mockDB) CreateLocation(ctx context.Context, name string) (*domain.Location, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	m.nextID++
	loc := domain.Location{ID: m.nextID, Name: name}
	m.locations = append(m.locations, loc)
	return &loc, nil
}

func (m *mockDB) ListLocations(ctx context.Context) ([]domain.Location, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.locations, m.err
}

func (m *mockDB) CreateItem(ctx context.Context, item domain.NewItem) (*domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	m.nextID++
	it := &domain.Item{
		ID:         m.nextID,
		ItemName:   item.ItemName,
		Quantity:   item.Quantity,
		LocationID: item.LocationID,
		Barcode:    item.Barcode,
	}
	m.items[it.ID] = it
	cp := *it
	return &cp, nil
}

func (m *mockDB) UpdateItem(ctx context.Context, id int64, patch domain.ItemPatch) (*domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	it, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	if patch.ItemName != nil {
		it.ItemName = *patch.ItemName
	}
	if patch.Barcode != nil {
		it.Barcode = patch.Barcode
	}
	if patch.Quantity != nil {
		it.Quantity = *patch.Quantity
	}
	cp := *it
	return &cp, nil
}

func (m *mockDB) ListLocationItems(ctx context.Context, locationID int64, search string) ([]domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastSearch = search
	return nil, m.err
}

func (m *mockDB) SearchItems(ctx context.Context, query string, limit int) ([]domain.SearchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastSearch = query
	m.lastLimit = limit
	return nil, m.err
}

func (m *mockDB) AdjustQuantity(ctx context.Context, locationID int64, adj domain.Adjustment) ([]domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	it, ok := m.items[adj.ItemID]
	if !ok || it.LocationID != locationID {
		return nil, nil
	}
	it.Quantity += adj.Delta
	return []domain.Item{*it}, nil
}

func (m *mockDB) Ping(ctx context.Context) error {
	return m.err
}

// Mock IdempotencyRepository
type mockIdempotency struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (m *mockIdempotency) SetIdempotency(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func TestCreateLocation_Success(t *testing.T) {
	db := newMockDB()
	svc := NewInventoryService(db, nil)

	loc, err := svc.CreateLocation(context.Background(), "Warehouse A")
	require.NoError(t, err)
	assert.Equal(t, "Warehouse A", loc.Name)
	assert.Positive(t, loc.ID)
}

func TestCreateLocation_EmptyName(t *testing.T) {
	db := newMockDB()
	svc := NewInventoryService(db, nil)

	_, err := svc.CreateLocation(context.Background(), "")
	require.Error(t, err)
	assert.True(t, domain.IsValidationError(err))
	assert.Equal(t, "name is required", err.Error())
	assert.Zero(t, db.calls, "validation must short-circuit before storage")
}

func TestListLocations_NeverNil(t *testing.T) {
	svc := NewInventoryService(newMockDB(), nil)

	locs, err := svc.ListLocations(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, locs)
	assert.Empty(t, locs)
}

func TestAddItem(t *testing.T) {
	tests := []struct {
		name    string
		item    domain.NewItem
		wantErr bool
	}{
		{name: "missing item name", item: domain.NewItem{LocationID: 1}, wantErr: true},
		{name: "missing location", item: domain.NewItem{ItemName: "Widget"}, wantErr: true},
		{name: "valid", item: domain.NewItem{ItemName: "Widget", LocationID: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newMockDB()
			svc := NewInventoryService(db, nil)

			item, err := svc.AddItem(context.Background(), tt.item)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, "item_name and location_id required", err.Error())
				assert.Zero(t, db.calls)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, int64(0), item.Quantity)
			assert.Nil(t, item.Barcode)
		})
	}
}

func TestAddItem_EmptyBarcodeStoredAsNull(t *testing.T) {
	svc := NewInventoryService(newMockDB(), nil)
	empty := ""

	item, err := svc.AddItem(context.Background(), domain.NewItem{ItemName: "Widget", LocationID: 1, Barcode: &empty})
	require.NoError(t, err)
	assert.Nil(t, item.Barcode)
}

func TestEditItem_PreservesUnsetFields(t *testing.T) {
	db := newMockDB()
	svc := NewInventoryService(db, nil)
	ctx := context.Background()
	barcode := "0123"

	created, err := svc.AddItem(ctx, domain.NewItem{ItemName: "Milk", LocationID: 1, Barcode: &barcode, Quantity: 2})
	require.NoError(t, err)

	qty := int64(7)
	updated, err := svc.EditItem(ctx, created.ID, domain.ItemPatch{Quantity: &qty})
	require.NoError(t, err)
	assert.Equal(t, int64(7), updated.Quantity)
	assert.Equal(t, "Milk", updated.ItemName)
	require.NotNil(t, updated.Barcode)
	assert.Equal(t, "0123", *updated.Barcode)
}

func TestEditItem_NotFound(t *testing.T) {
	svc := NewInventoryService(newMockDB(), nil)

	_, err := svc.EditItem(context.Background(), 42, domain.ItemPatch{})
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
}

func TestListLocationItems_RequiresLocation(t *testing.T) {
	db := newMockDB()
	svc := NewInventoryService(db, nil)

	_, err := svc.ListLocationItems(context.Background(), 0, "milk")
	require.Error(t, err)
	assert.Equal(t, "location_id is required", err.Error())
	assert.Zero(t, db.calls)
}

func TestListLocationItems_TrimsQuery(t *testing.T) {
	db := newMockDB()
	svc := NewInventoryService(db, nil)

	items, err := svc.ListLocationItems(context.Background(), 3, "  Mi ")
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Equal(t, "Mi", db.lastSearch)
}

func TestSearch_LimitAndEmptyQuery(t *testing.T) {
	db := newMockDB()
	svc := NewInventoryService(db, nil)

	results, err := svc.Search(context.Background(), "   ")
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Equal(t, "", db.lastSearch)
	assert.Equal(t, SearchLimit, db.lastLimit)
}

func TestAdjust_Success(t *testing.T) {
	db := newMockDB()
	svc := NewInventoryService(db, nil)
	ctx := context.Background()

	item, err := svc.AddItem(ctx, domain.NewItem{ItemName: "Widget", LocationID: 1, Quantity: 2})
	require.NoError(t, err)

	updated, err := svc.Adjust(ctx, 1, []domain.Adjustment{{ItemID: item.ID, Delta: 3}}, "")
	require.NoError(t, err)
	require.Len(t, updated, 1)
	assert.Equal(t, int64(5), updated[0].Quantity)
}

func TestAdjust_WrongLocation(t *testing.T) {
	db := newMockDB()
	svc := NewInventoryService(db, nil)
	ctx := context.Background()

	item, err := svc.AddItem(ctx, domain.NewItem{ItemName: "Widget", LocationID: 1, Quantity: 2})
	require.NoError(t, err)

	updated, err := svc.Adjust(ctx, 2, []domain.Adjustment{{ItemID: item.ID, Delta: 3}}, "")
	require.NoError(t, err)
	assert.Empty(t, updated)
	assert.NotNil(t, updated)
	assert.Equal(t, int64(2), db.items[item.ID].Quantity)
}

func TestAdjust_OnlyFirstItemApplied(t *testing.T) {
	db := newMockDB()
	svc := NewInventoryService(db, nil)
	ctx := context.Background()

	first, _ := svc.AddItem(ctx, domain.NewItem{ItemName: "A", LocationID: 1})
	second, _ := svc.AddItem(ctx, domain.NewItem{ItemName: "B", LocationID: 1})

	_, err := svc.Adjust(ctx, 1, []domain.Adjustment{
		{ItemID: first.ID, Delta: 2},
		{ItemID: second.ID, Delta: 5},
	}, "")
	require.NoError(t, err)

	assert.Equal(t, int64(2), db.items[first.ID].Quantity)
	assert.Equal(t, int64(0), db.items[second.ID].Quantity)
}

func TestAdjust_NoOps(t *testing.T) {
	tests := []struct {
		name string
		adj  domain.Adjustment
	}{
		{name: "zero delta", adj: domain.Adjustment{ItemID: 1, Delta: 0}},
		{name: "missing id", adj: domain.Adjustment{Delta: 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newMockDB()
			svc := NewInventoryService(db, nil)

			updated, err := svc.Adjust(context.Background(), 1, []domain.Adjustment{tt.adj}, "")
			require.NoError(t, err)
			assert.Empty(t, updated)
			assert.Zero(t, db.calls)
		})
	}
}

func TestAdjust_Validation(t *testing.T) {
	svc := NewInventoryService(newMockDB(), nil)

	_, err := svc.Adjust(context.Background(), 0, []domain.Adjustment{{ItemID: 1, Delta: 1}}, "")
	assert.True(t, domain.IsValidationError(err))

	_, err = svc.Adjust(context.Background(), 1, nil, "")
	assert.True(t, domain.IsValidationError(err))
}

func TestAdjust_DuplicateRequest(t *testing.T) {
	db := newMockDB()
	idem := &mockIdempotency{keys: make(map[string]bool)}
	svc := NewInventoryService(db, idem)
	ctx := context.Background()

	item, _ := svc.AddItem(ctx, domain.NewItem{ItemName: "Widget", LocationID: 1})
	adjustments := []domain.Adjustment{{ItemID: item.ID, Delta: 1}}

	_, err := svc.Adjust(ctx, 1, adjustments, "tap-1")
	require.NoError(t, err)

	_, err = svc.Adjust(ctx, 1, adjustments, "tap-1")
	assert.ErrorIs(t, err, ErrDuplicateRequest)

	// Quantity should only be incremented once
	assert.Equal(t, int64(1), db.items[item.ID].Quantity)
}

func TestAdjust_Concurrent(t *testing.T) {
	db := newMockDB()
	svc := NewInventoryService(db, nil)
	ctx := context.Background()

	item, _ := svc.AddItem(ctx, domain.NewItem{ItemName: "Widget", LocationID: 1})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Adjust(ctx, 1, []domain.Adjustment{{ItemID: item.ID, Delta: 1}}, ""); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(50), db.items[item.ID].Quantity)
}

func TestStorageErrorIsWrapped(t *testing.T) {
	db := newMockDB()
	db.err = errors.New("connection refused")
	svc := NewInventoryService(db, nil)

	_, err := svc.CreateLocation(context.Background(), "Warehouse A")
	require.Error(t, err)
	assert.False(t, domain.IsValidationError(err))
	assert.ErrorIs(t, err, db.err)
}
