package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartItem is one product line within a cart. A cart holds at most one line
// per product; a line's quantity is always >= 1 (a line that would reach 0
// is deleted instead). Name, slug and image are display snapshots, not
// authoritative product data.
type CartItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CartID    uuid.UUID       `gorm:"column:cart_id;type:uuid;not null;uniqueIndex:idx_cart_product,priority:1"`
	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_cart_product,priority:2"`
	Name      string          `gorm:"column:name;not null"`
	Slug      string          `gorm:"column:slug;not null"`
	Image     string          `gorm:"column:image"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Quantity  int             `gorm:"column:quantity;not null"`

	// Position preserves insertion order across reloads.
	Position int `gorm:"column:position;not null;default:0"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
