package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Product is a catalog entry. Stock is the inventory count the cart service
// validates increments against.
type Product struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string          `gorm:"column:name;not null"`
	Slug        string          `gorm:"column:slug;not null;uniqueIndex"`
	Category    string          `gorm:"column:category;not null"`
	Brand       string          `gorm:"column:brand;not null"`
	Description string          `gorm:"column:description;not null"`
	Images      pq.StringArray  `gorm:"column:images;type:text[]"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Stock       int             `gorm:"column:stock;not null;default:0"`
	Rating      decimal.Decimal `gorm:"column:rating;type:numeric(3,2);not null;default:0"`
	NumReviews  int             `gorm:"column:num_reviews;not null;default:0"`
	IsFeatured  bool            `gorm:"column:is_featured;not null;default:false"`
	Banner      *string         `gorm:"column:banner"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// FirstImage returns the lead image for cart line snapshots.
func (p *Product) FirstImage() string {
	if p == nil || len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}
