package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/stylo/wardrobe/domain/catalog"
	"github.com/stylo/wardrobe/domain/outfit"
	"github.com/stylo/wardrobe/domain/repository"
	"github.com/stylo/wardrobe/internal/database"
	"gorm.io/gorm"
)

// applyCatalogOptions is database.ApplyOptions plus a translation for the
// synthetic "has_embedding" condition (repository.WithHasEmbedding), which
// has no literal column of that name — it maps to an IS (NOT) NULL check
// on the embedding column instead of an equality comparison.
func applyCatalogOptions(db *gorm.DB, options ...repository.Option) *gorm.DB {
	q := repository.Build(options...)

	for _, cond := range q.Conditions() {
		if cond.Field() == "has_embedding" {
			if has, _ := cond.Value().(bool); has {
				db = db.Where("embedding IS NOT NULL")
			} else {
				db = db.Where("embedding IS NULL")
			}
			continue
		}
		if cond.In() {
			db = db.Where(fmt.Sprintf("%s IN ?", cond.Field()), cond.Value())
		} else {
			db = db.Where(fmt.Sprintf("%s = ?", cond.Field()), cond.Value())
		}
	}

	for _, ord := range q.Orders() {
		dir := "ASC"
		if !ord.Ascending() {
			dir = "DESC"
		}
		db = db.Order(fmt.Sprintf("%s %s", ord.Field(), dir))
	}
	if q.LimitValue() > 0 {
		db = db.Limit(q.LimitValue())
	}
	if q.OffsetValue() > 0 {
		db = db.Offset(q.OffsetValue())
	}
	return db
}

// CatalogStore implements domain/catalog.Store over catalog_items, picking
// the Postgres or SQLite model/mapper pair at construction time.
type CatalogStore struct {
	db       database.Database
	postgres bool
}

// NewCatalogStore creates a catalog.Store over db.
func NewCatalogStore(db database.Database) *CatalogStore {
	return &CatalogStore{db: db, postgres: db.IsPostgres()}
}

// FindByOwner returns every item owned by ownerID, optionally narrowed by
// options. Embeddings are attached inline (SPEC_FULL.md's Persisted State
// Layout stores them on the same row).
func (s *CatalogStore) FindByOwner(ctx context.Context, ownerID string, options ...repository.Option) ([]catalog.Item, error) {
	opts := append([]repository.Option{repository.WithOwnerID(ownerID)}, options...)

	if s.postgres {
		var rows []PgCatalogItemModel
		if err := applyCatalogOptions(s.db.Session(ctx).Model(&PgCatalogItemModel{}), opts...).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("find catalog items: %w", err)
		}
		items := make([]catalog.Item, len(rows))
		for i, r := range rows {
			items[i] = pgCatalogMapper{}.ToDomain(r)
		}
		return items, nil
	}

	var rows []SQLiteCatalogItemModel
	if err := applyCatalogOptions(s.db.Session(ctx).Model(&SQLiteCatalogItemModel{}), opts...).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("find catalog items: %w", err)
	}
	items := make([]catalog.Item, len(rows))
	for i, r := range rows {
		items[i] = sqliteCatalogMapper{}.ToDomain(r)
	}
	return items, nil
}

// Get fetches a single item by ID, scoped to ownerID.
func (s *CatalogStore) Get(ctx context.Context, ownerID, itemID string) (catalog.Item, error) {
	if s.postgres {
		var row PgCatalogItemModel
		err := s.db.Session(ctx).Where("owner_id = ? AND item_id = ?", ownerID, itemID).First(&row).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return catalog.Item{}, fmt.Errorf("%w: catalog item %s", database.ErrNotFound, itemID)
			}
			return catalog.Item{}, fmt.Errorf("get catalog item: %w", err)
		}
		return pgCatalogMapper{}.ToDomain(row), nil
	}

	var row SQLiteCatalogItemModel
	err := s.db.Session(ctx).Where("owner_id = ? AND item_id = ?", ownerID, itemID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return catalog.Item{}, fmt.Errorf("%w: catalog item %s", database.ErrNotFound, itemID)
		}
		return catalog.Item{}, fmt.Errorf("get catalog item: %w", err)
	}
	return sqliteCatalogMapper{}.ToDomain(row), nil
}

// GetByID fetches a single item by its globally unique ID, without an
// owner_id scope. Used by the embedding worker, which only knows the item
// ID enqueued by the catalog collaborator's mutation event.
func (s *CatalogStore) GetByID(ctx context.Context, itemID string) (catalog.Item, error) {
	if s.postgres {
		var row PgCatalogItemModel
		err := s.db.Session(ctx).Where("item_id = ?", itemID).First(&row).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return catalog.Item{}, fmt.Errorf("%w: catalog item %s", database.ErrNotFound, itemID)
			}
			return catalog.Item{}, fmt.Errorf("get catalog item by id: %w", err)
		}
		return pgCatalogMapper{}.ToDomain(row), nil
	}

	var row SQLiteCatalogItemModel
	err := s.db.Session(ctx).Where("item_id = ?", itemID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return catalog.Item{}, fmt.Errorf("%w: catalog item %s", database.ErrNotFound, itemID)
		}
		return catalog.Item{}, fmt.Errorf("get catalog item by id: %w", err)
	}
	return sqliteCatalogMapper{}.ToDomain(row), nil
}

// FindMissingEmbeddings returns every catalog item, across all owners, that
// has no embedding yet. Used by the administrative refresh-missing CLI
// operation (SPEC_FULL.md §12), which runs outside any single owner's
// request path.
func (s *CatalogStore) FindMissingEmbeddings(ctx context.Context, limit int) ([]catalog.Item, error) {
	opts := []repository.Option{repository.WithHasEmbedding(false)}
	if limit > 0 {
		opts = append(opts, repository.WithLimit(limit))
	}

	if s.postgres {
		var rows []PgCatalogItemModel
		if err := applyCatalogOptions(s.db.Session(ctx).Model(&PgCatalogItemModel{}), opts...).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("find catalog items missing embeddings: %w", err)
		}
		items := make([]catalog.Item, len(rows))
		for i, r := range rows {
			items[i] = pgCatalogMapper{}.ToDomain(r)
		}
		return items, nil
	}

	var rows []SQLiteCatalogItemModel
	if err := applyCatalogOptions(s.db.Session(ctx).Model(&SQLiteCatalogItemModel{}), opts...).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("find catalog items missing embeddings: %w", err)
	}
	items := make([]catalog.Item, len(rows))
	for i, r := range rows {
		items[i] = sqliteCatalogMapper{}.ToDomain(r)
	}
	return items, nil
}

// Count returns the number of items owned by ownerID.
func (s *CatalogStore) Count(ctx context.Context, ownerID string) (int, error) {
	var count int64
	if err := s.db.Session(ctx).Table("catalog_items").Where("owner_id = ?", ownerID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count catalog items: %w", err)
	}
	return int(count), nil
}

// SavedOutfitStore implements domain/outfit.SavedStore over saved_outfits.
type SavedOutfitStore struct {
	repo database.Repository[outfit.Saved, SavedOutfitModel]
}

// NewSavedOutfitStore creates an outfit.SavedStore over db.
func NewSavedOutfitStore(db database.Database) *SavedOutfitStore {
	return &SavedOutfitStore{repo: database.NewRepository[outfit.Saved, SavedOutfitModel](db, savedOutfitMapper{}, "saved outfit")}
}

// ListByOwner returns every saved outfit owned by ownerID.
func (s *SavedOutfitStore) ListByOwner(ctx context.Context, ownerID string) ([]outfit.Saved, error) {
	return s.repo.Find(ctx, repository.WithOwnerID(ownerID))
}

// Get fetches a single saved outfit by ID, scoped to ownerID.
func (s *SavedOutfitStore) Get(ctx context.Context, ownerID, id string) (outfit.Saved, error) {
	return s.repo.FindOne(ctx, repository.WithOwnerID(ownerID), repository.WithCondition("id", id))
}

var (
	_ catalog.Store     = (*CatalogStore)(nil)
	_ outfit.SavedStore = (*SavedOutfitStore)(nil)
)
