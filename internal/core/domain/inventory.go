package domain

import "time"

type Location struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Item is one stock record; it belongs to exactly one Location for its whole life.
type Item struct {
	ID         int64      `db:"id" json:"id"`
	ItemName   string     `db:"item_name" json:"item_name"`
	Quantity   int64      `db:"quantity" json:"quantity"`
	LocationID int64      `db:"location_id" json:"location_id"`
	Barcode    *string    `db:"barcode" json:"barcode"`
	UpdatedAt  *time.Time `db:"updated_at" json:"updated_at"`
}

// SearchResult is an Item annotated with the name of its owning location.
type SearchResult struct {
	Item
	LocationName string `db:"location_name" json:"location_name"`
}

type NewItem struct {
	ItemName   string `validate:"required"`
	LocationID int64  `validate:"required"`
	Quantity   int64
	Barcode    *string
}

// ItemPatch carries a partial update. Nil fields keep the stored value.
type ItemPatch struct {
	ItemName *string
	Barcode  *string
	Quantity *int64
}

type Adjustment struct {
	ItemID int64
	Delta  int64
}
