package persistence

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/stylo/wardrobe/domain/catalog"
	"github.com/stylo/wardrobe/domain/repository"
	"github.com/stylo/wardrobe/domain/search"
	"github.com/stylo/wardrobe/internal/database"
	"gorm.io/gorm"
)

// Float64Slice stores a []float64 as a JSON array for backends (SQLite)
// with no native vector column type.
type Float64Slice []float64

// Scan implements sql.Scanner.
func (s *Float64Slice) Scan(value any) error {
	if value == nil {
		*s = nil
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into Float64Slice", value)
	}
	return json.Unmarshal(raw, s)
}

// Value implements driver.Valuer.
func (s Float64Slice) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal([]float64(s))
}

// JSONSlotMap stores a catalog.Slot->item-ID map as JSON, used by
// SavedOutfitModel.Items on both backends.
type JSONSlotMap map[catalog.Slot]string

// Scan implements sql.Scanner.
func (m *JSONSlotMap) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into JSONSlotMap", value)
	}
	return json.Unmarshal(raw, m)
}

// Value implements driver.Valuer.
func (m JSONSlotMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	return json.Marshal(map[catalog.Slot]string(m))
}

// catalogEmbeddingStore implements search.EmbeddingStore against the same
// catalog_items table domain/catalog.Store reads: SPEC_FULL.md's Persisted
// State Layout keeps the embedding inline on the item row rather than in a
// separate table, so indexing a batch is an UPDATE of one column, not an
// insert into a side table. Postgres and SQLite share this logic; only the
// concrete model type (and therefore the embedding column's driver type)
// differs, so it's injected via the scan/setVec functions.
type catalogEmbeddingStore struct {
	db     database.Database
	scan   func(rows any) []search.Embedding
	setVec func(db *gorm.DB, itemID string, vector []float64) error
}

// NewPgEmbeddingStore returns a search.EmbeddingStore backed by
// PgCatalogItemModel's native vector column.
func NewPgEmbeddingStore(db database.Database) search.EmbeddingStore {
	return &catalogEmbeddingStore{
		db: db,
		scan: func(rowsAny any) []search.Embedding {
			rows := rowsAny.([]PgCatalogItemModel)
			out := make([]search.Embedding, 0, len(rows))
			for _, r := range rows {
				if r.Embedding == nil {
					continue
				}
				out = append(out, search.NewEmbedding(r.ItemID, r.Embedding.Floats()))
			}
			return out
		},
		setVec: func(gdb *gorm.DB, itemID string, vector []float64) error {
			v := database.NewPgVector(vector)
			return gdb.Model(&PgCatalogItemModel{}).Where("item_id = ?", itemID).Update("embedding", &v).Error
		},
	}
}

// NewSQLiteEmbeddingStore returns a search.EmbeddingStore backed by
// SQLiteCatalogItemModel's JSON embedding column.
func NewSQLiteEmbeddingStore(db database.Database) search.EmbeddingStore {
	return &catalogEmbeddingStore{
		db: db,
		scan: func(rowsAny any) []search.Embedding {
			rows := rowsAny.([]SQLiteCatalogItemModel)
			out := make([]search.Embedding, 0, len(rows))
			for _, r := range rows {
				if r.Embedding == nil {
					continue
				}
				out = append(out, search.NewEmbedding(r.ItemID, *r.Embedding))
			}
			return out
		},
		setVec: func(gdb *gorm.DB, itemID string, vector []float64) error {
			v := Float64Slice(vector)
			return gdb.Model(&SQLiteCatalogItemModel{}).Where("item_id = ?", itemID).Update("embedding", &v).Error
		},
	}
}

// SaveAll upserts each embedding's vector onto its catalog item row. The
// item row itself must already exist — it's created by the external
// catalog owner, never by the embedding indexing path (see catalog.Store's
// doc comment on lifecycle ownership) — so an embedding for a nonexistent
// item ID is silently a no-op update affecting zero rows.
func (s *catalogEmbeddingStore) SaveAll(ctx context.Context, embeddings []search.Embedding) error {
	if len(embeddings) == 0 {
		return nil
	}
	return s.db.GORM().Transaction(func(tx *gorm.DB) error {
		tx = tx.WithContext(ctx)
		for _, e := range embeddings {
			if err := s.setVec(tx, e.ItemID(), e.Vector()); err != nil {
				return fmt.Errorf("save embedding %s: %w", e.ItemID(), err)
			}
		}
		return nil
	})
}

// Find returns embeddings for rows matching options, restricted to rows
// that actually carry a non-null embedding.
func (s *catalogEmbeddingStore) Find(ctx context.Context, options ...repository.Option) ([]search.Embedding, error) {
	if s.db.IsPostgres() {
		var rows []PgCatalogItemModel
		db := applyCatalogOptions(s.db.Session(ctx).Model(&PgCatalogItemModel{}), options...)
		if err := db.Where("embedding IS NOT NULL").Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("find embeddings: %w", err)
		}
		return s.scan(rows), nil
	}
	var rows []SQLiteCatalogItemModel
	db := applyCatalogOptions(s.db.Session(ctx).Model(&SQLiteCatalogItemModel{}), options...)
	if err := db.Where("embedding IS NOT NULL").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("find embeddings: %w", err)
	}
	return s.scan(rows), nil
}

// Exists checks whether any row matching options has a non-null embedding.
func (s *catalogEmbeddingStore) Exists(ctx context.Context, options ...repository.Option) (bool, error) {
	var count int64
	db := applyCatalogOptions(s.db.Session(ctx).Table("catalog_items"), options...)
	if err := db.Where("embedding IS NOT NULL").Count(&count).Error; err != nil {
		return false, fmt.Errorf("check embedding exists: %w", err)
	}
	return count > 0, nil
}

// ItemIDs returns the item_id column for rows matching options that carry
// a non-null embedding.
func (s *catalogEmbeddingStore) ItemIDs(ctx context.Context, options ...repository.Option) ([]string, error) {
	var ids []string
	db := applyCatalogOptions(s.db.Session(ctx).Table("catalog_items"), options...)
	if err := db.Where("embedding IS NOT NULL").Pluck("item_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list embedded item ids: %w", err)
	}
	return ids, nil
}

// DeleteBy clears the embedding column (not the item row) for rows
// matching options — "deleting an embedding" means forgetting the vector,
// not forgetting the wardrobe item it belongs to.
func (s *catalogEmbeddingStore) DeleteBy(ctx context.Context, options ...repository.Option) error {
	db := applyCatalogOptions(s.db.Session(ctx).Table("catalog_items"), options...)
	if err := db.Update("embedding", nil).Error; err != nil {
		return fmt.Errorf("clear embeddings: %w", err)
	}
	return nil
}
