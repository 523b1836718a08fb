package product

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/prostorehq/prostore-backend/pkg/db/models"
)

func openProductTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:products_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  slug TEXT NOT NULL UNIQUE,
  category TEXT NOT NULL,
  brand TEXT NOT NULL,
  description TEXT NOT NULL,
  images TEXT,
  price NUMERIC NOT NULL,
  stock INTEGER NOT NULL DEFAULT 0,
  rating NUMERIC NOT NULL DEFAULT 0,
  num_reviews INTEGER NOT NULL DEFAULT 0,
  is_featured INTEGER NOT NULL DEFAULT 0,
  banner TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func mustCreateProduct(t *testing.T, db *gorm.DB, name string, price string, stock int) *models.Product {
	t.Helper()

	product := &models.Product{
		ID:          uuid.New(),
		Name:        name,
		Slug:        fmt.Sprintf("%s-%s", name, uuid.NewString()[:8]),
		Category:    "Shirts",
		Brand:       "ProStore",
		Description: "Test product",
		Images:      pq.StringArray{"/images/sample.jpg"},
		Price:       decimal.RequireFromString(price),
		Stock:       stock,
		Rating:      decimal.Zero,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}
