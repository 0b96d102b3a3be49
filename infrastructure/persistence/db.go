// Package persistence provides database storage implementations.
package persistence

import (
	"fmt"
	"strings"

	"github.com/stylo/wardrobe/internal/database"
	"gorm.io/gorm"
)

// createVectorExtension enables pgvector so the embedding column on
// catalog_items can use the native "vector" type. A no-op on SQLite.
const createVectorExtension = `CREATE EXTENSION IF NOT EXISTS vector`

// PreMigrate prepares a Postgres database for AutoMigrate by ensuring the
// pgvector extension is installed. This is a fresh schema with no
// Python-era (or any prior) data to convert, so unlike the git-indexing
// service this module is adapted from, there is no enum-to-text or
// index-rename migration to run here.
func PreMigrate(db database.Database) error {
	if !db.IsPostgres() {
		return nil
	}
	if err := db.GORM().Exec(createVectorExtension).Error; err != nil {
		return fmt.Errorf("create vector extension: %w", err)
	}
	return nil
}

// AutoMigrate runs GORM auto migration for all models. The concrete
// catalog item model (Postgres vs SQLite) is chosen by db's dialect so the
// embedding column gets the right underlying type.
func AutoMigrate(db database.Database) error {
	return db.GORM().AutoMigrate(allModels(db)...)
}

// allModels returns every GORM model AutoMigrate and ValidateSchema manage.
func allModels(db database.Database) []interface{} {
	if db.IsPostgres() {
		return []interface{}{&PgCatalogItemModel{}, &SavedOutfitModel{}}
	}
	return []interface{}{&SQLiteCatalogItemModel{}, &SavedOutfitModel{}}
}

// ValidateSchema verifies every GORM model field has a corresponding column
// in the database. Returns an error listing any missing columns.
func ValidateSchema(db database.Database) error {
	gdb := db.GORM()
	migrator := gdb.Migrator()

	var missing []string
	for _, model := range allModels(db) {
		stmt := &gorm.Statement{DB: gdb}
		if err := stmt.Parse(model); err != nil {
			return fmt.Errorf("parse model schema: %w", err)
		}

		columnTypes, err := migrator.ColumnTypes(model)
		if err != nil {
			return fmt.Errorf("get column types for %s: %w", stmt.Table, err)
		}

		actual := make(map[string]bool, len(columnTypes))
		for _, ct := range columnTypes {
			actual[ct.Name()] = true
		}

		for _, field := range stmt.Schema.Fields {
			if field.DBName == "" || field.DBName == "-" {
				continue
			}
			if !actual[field.DBName] {
				missing = append(missing, stmt.Table+"."+field.DBName)
			}
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("schema validation failed — missing columns: %s", strings.Join(missing, ", "))
	}
	return nil
}
