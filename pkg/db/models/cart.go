package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cart is a shopping basket keyed by exactly one owner: an authenticated
// user or an anonymous browser session. The four price columns are derived
// from Items and are only ever written by the cart service after a
// recomputation; they are never edited directly.
type Cart struct {
	ID            uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID        *uuid.UUID `gorm:"column:user_id;type:uuid"`
	SessionCartID *string    `gorm:"column:session_cart_id"`

	// Version backs the compare-and-swap on every mutation. Two concurrent
	// read-modify-write cycles on the same cart cannot both commit.
	Version int64 `gorm:"column:version;not null;default:1"`

	ItemsPrice    decimal.Decimal `gorm:"column:items_price;type:numeric(12,2);not null"`
	ShippingPrice decimal.Decimal `gorm:"column:shipping_price;type:numeric(12,2);not null"`
	TaxPrice      decimal.Decimal `gorm:"column:tax_price;type:numeric(12,2);not null"`
	TotalPrice    decimal.Decimal `gorm:"column:total_price;type:numeric(12,2);not null"`

	Items []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// OwnedByUser reports whether the cart is keyed by a user id.
func (c *Cart) OwnedByUser() bool {
	return c != nil && c.UserID != nil && *c.UserID != uuid.Nil
}
