package cart

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/prostorehq/prostore-backend/pkg/db/models"
)

func openCartTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:carts_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	carts := `
CREATE TABLE IF NOT EXISTS carts (
  id TEXT PRIMARY KEY,
  user_id TEXT,
  session_cart_id TEXT,
  version INTEGER NOT NULL DEFAULT 1,
  items_price NUMERIC NOT NULL,
  shipping_price NUMERIC NOT NULL,
  tax_price NUMERIC NOT NULL,
  total_price NUMERIC NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`
	cartItems := `
CREATE TABLE IF NOT EXISTS cart_items (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  name TEXT NOT NULL,
  slug TEXT NOT NULL,
  image TEXT,
  unit_price NUMERIC NOT NULL,
  quantity INTEGER NOT NULL,
  position INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(carts).Error)
	require.NoError(t, db.Exec(cartItems).Error)
	return db
}

// gormTxRunner satisfies txRunner over a raw test handle.
type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func mustCreateCart(t *testing.T, repo *Repository, cart *models.Cart) *models.Cart {
	t.Helper()

	if cart.ID == uuid.Nil {
		cart.ID = uuid.New()
	}
	for i := range cart.Items {
		if cart.Items[i].ID == uuid.Nil {
			cart.Items[i].ID = uuid.New()
		}
		cart.Items[i].CartID = cart.ID
	}
	ComputeTotals(cart.Items).ApplyTo(cart)

	created, err := repo.Create(context.Background(), cart)
	require.NoError(t, err)
	return created
}
