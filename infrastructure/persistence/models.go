package persistence

import (
	"time"

	"github.com/stylo/wardrobe/internal/database"
)

// CatalogItemFields holds the columns shared by the Postgres and SQLite
// catalog item models. Only the embedding column's type differs between
// the two backends (native vector vs JSON), so it's declared separately on
// each concrete model rather than embedded here.
type CatalogItemFields struct {
	ItemID      string    `gorm:"column:item_id;primaryKey;size:64"`
	OwnerID     string    `gorm:"column:owner_id;size:64;index:idx_catalog_owner"`
	Slot        string    `gorm:"column:slot;size:32;index:idx_catalog_owner_slot,priority:2"`
	Type        string    `gorm:"column:type;size:128"`
	Color       string    `gorm:"column:color;size:64"`
	ImageRef    string    `gorm:"column:image_ref;size:512"`
	Description string    `gorm:"column:description;type:text"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

// PgCatalogItemModel is the Postgres row for a catalog item: one row per
// item, embedding stored as a native vector column (SPEC_FULL.md's
// Persisted State Layout). idx_catalog_owner_slot is completed by adding
// owner_id as its priority-1 column via CatalogItemFields.OwnerID's index
// tag sharing the same name.
type PgCatalogItemModel struct {
	CatalogItemFields
	Embedding *database.PgVector `gorm:"column:embedding;type:vector;index:idx_catalog_embedding,where:embedding IS NOT NULL"`
}

// TableName pins both backends to the same table name; GORM would
// otherwise derive "pg_catalog_item_models"/"sq_lite_catalog_item_models"
// from the Go type name.
func (PgCatalogItemModel) TableName() string { return "catalog_items" }

// SQLiteCatalogItemModel is the SQLite row for a catalog item: identical
// shape, embedding stored as a JSON float array since SQLite has no native
// vector type.
type SQLiteCatalogItemModel struct {
	CatalogItemFields
	Embedding *Float64Slice `gorm:"column:embedding;type:json"`
}

func (SQLiteCatalogItemModel) TableName() string { return "catalog_items" }

// savedOutfitFields holds the columns shared by both backends' saved
// outfit row. Items is stored as JSON on both backends: it's a small
// slot->item_id map, not something either database needs to query into.
type savedOutfitFields struct {
	ID        string    `gorm:"column:id;primaryKey;size:64"`
	OwnerID   string    `gorm:"column:owner_id;size:64;index:idx_saved_owner"`
	Name      string    `gorm:"column:name;size:256"`
	Pinned    bool      `gorm:"column:pinned"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

// SavedOutfitModel is the row backing outfit.SavedStore (SPEC_FULL.md §12:
// read-only from the core's perspective).
type SavedOutfitModel struct {
	savedOutfitFields
	Items JSONSlotMap `gorm:"column:items;type:json"`
}

func (SavedOutfitModel) TableName() string { return "saved_outfits" }
