// Package testutil provides shared test fixtures for the pipeline packages.
package testutil

import (
	"context"
	"testing"

	"github.com/mfitchett/tally/internal/model"
	"github.com/mfitchett/tally/internal/service"
	"github.com/mfitchett/tally/internal/storage"
)

// TestDB wraps an in-memory migrated database with seeded categories.
type TestDB struct {
	Storage    service.Storage
	Categories map[string]model.Category
	t          *testing.T
}

// Seed describes a category to create during test setup.
type Seed struct {
	Name        string
	Description string
	Type        model.CategoryType
}

// SetupTestDB creates an in-memory SQLite database, runs migrations, and
// creates the given categories alongside the migration defaults. Cleanup
// is registered automatically.
func SetupTestDB(t *testing.T, seeds ...Seed) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	db := &TestDB{
		Storage:    store,
		Categories: make(map[string]model.Category),
		t:          t,
	}

	for _, seed := range seeds {
		kind := seed.Type
		if kind == "" {
			kind = model.CategoryTypeExpense
		}
		cat, err := store.CreateCategory(ctx, seed.Name, seed.Description, kind, "")
		if err != nil {
			t.Fatalf("failed to seed category %q: %v", seed.Name, err)
		}
		db.Categories[seed.Name] = *cat
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return db
}

// MustCategory returns the seeded category with the given name or fails
// the test.
func (db *TestDB) MustCategory(name string) model.Category {
	db.t.Helper()
	cat, ok := db.Categories[name]
	if !ok {
		db.t.Fatalf("category %q was not seeded", name)
	}
	return cat
}
