package persistence

import (
	"github.com/stylo/wardrobe/domain/catalog"
	"github.com/stylo/wardrobe/domain/outfit"
	"github.com/stylo/wardrobe/internal/database"
)

// pgCatalogMapper maps between catalog.Item and PgCatalogItemModel.
type pgCatalogMapper struct{}

func (pgCatalogMapper) ToDomain(m PgCatalogItemModel) catalog.Item {
	item := catalog.Item{
		ID:          m.ItemID,
		OwnerID:     m.OwnerID,
		Slot:        catalog.Slot(m.Slot),
		Type:        m.Type,
		Color:       m.Color,
		ImageRef:    m.ImageRef,
		Description: m.Description,
		UpdatedAt:   m.UpdatedAt,
	}
	if m.Embedding != nil {
		item.Embedding = m.Embedding.Floats()
	}
	return item
}

func (pgCatalogMapper) ToModel(item catalog.Item) PgCatalogItemModel {
	m := PgCatalogItemModel{
		CatalogItemFields: CatalogItemFields{
			ItemID:      item.ID,
			OwnerID:     item.OwnerID,
			Slot:        string(item.Slot),
			Type:        item.Type,
			Color:       item.Color,
			ImageRef:    item.ImageRef,
			Description: item.Description,
			UpdatedAt:   item.UpdatedAt,
		},
	}
	if len(item.Embedding) > 0 {
		v := database.NewPgVector(item.Embedding)
		m.Embedding = &v
	}
	return m
}

// sqliteCatalogMapper maps between catalog.Item and SQLiteCatalogItemModel.
type sqliteCatalogMapper struct{}

func (sqliteCatalogMapper) ToDomain(m SQLiteCatalogItemModel) catalog.Item {
	item := catalog.Item{
		ID:          m.ItemID,
		OwnerID:     m.OwnerID,
		Slot:        catalog.Slot(m.Slot),
		Type:        m.Type,
		Color:       m.Color,
		ImageRef:    m.ImageRef,
		Description: m.Description,
		UpdatedAt:   m.UpdatedAt,
	}
	if m.Embedding != nil {
		item.Embedding = *m.Embedding
	}
	return item
}

func (sqliteCatalogMapper) ToModel(item catalog.Item) SQLiteCatalogItemModel {
	m := SQLiteCatalogItemModel{
		CatalogItemFields: CatalogItemFields{
			ItemID:      item.ID,
			OwnerID:     item.OwnerID,
			Slot:        string(item.Slot),
			Type:        item.Type,
			Color:       item.Color,
			ImageRef:    item.ImageRef,
			Description: item.Description,
			UpdatedAt:   item.UpdatedAt,
		},
	}
	if len(item.Embedding) > 0 {
		v := Float64Slice(item.Embedding)
		m.Embedding = &v
	}
	return m
}

// savedOutfitMapper maps between outfit.Saved and SavedOutfitModel.
type savedOutfitMapper struct{}

func (savedOutfitMapper) ToDomain(m SavedOutfitModel) outfit.Saved {
	items := make(map[catalog.Slot]string, len(m.Items))
	for slot, id := range m.Items {
		items[slot] = id
	}
	return outfit.Saved{
		ID:        m.ID,
		OwnerID:   m.OwnerID,
		Name:      m.Name,
		Items:     items,
		Pinned:    m.Pinned,
		CreatedAt: m.CreatedAt,
	}
}

func (savedOutfitMapper) ToModel(s outfit.Saved) SavedOutfitModel {
	items := make(JSONSlotMap, len(s.Items))
	for slot, id := range s.Items {
		items[slot] = id
	}
	return SavedOutfitModel{
		savedOutfitFields: savedOutfitFields{
			ID:        s.ID,
			OwnerID:   s.OwnerID,
			Name:      s.Name,
			Pinned:    s.Pinned,
			CreatedAt: s.CreatedAt,
		},
		Items: items,
	}
}
