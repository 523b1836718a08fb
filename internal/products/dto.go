package product

import (
	"time"

	"github.com/google/uuid"

	"github.com/prostorehq/prostore-backend/pkg/db/models"
)

const (
	// LatestProductsLimit caps the storefront's "newest arrivals" strip.
	LatestProductsLimit = 4

	// DefaultPageSize is the catalog listing page size.
	DefaultPageSize = 12
)

// ProductDTO is the catalog read model. Prices and ratings are serialized as
// fixed two-decimal strings so clients never do float math on money.
type ProductDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Category    string    `json:"category"`
	Brand       string    `json:"brand"`
	Description string    `json:"description"`
	Images      []string  `json:"images"`
	Price       string    `json:"price"`
	Stock       int       `json:"stock"`
	Rating      string    `json:"rating"`
	NumReviews  int       `json:"num_reviews"`
	IsFeatured  bool      `json:"is_featured"`
	Banner      *string   `json:"banner,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ProductListDTO is one catalog page.
type ProductListDTO struct {
	Products   []ProductDTO `json:"products"`
	TotalCount int64        `json:"total_count"`
	TotalPages int          `json:"total_pages"`
	Page       int          `json:"page"`
}

func toDTO(product *models.Product) *ProductDTO {
	if product == nil {
		return nil
	}
	return &ProductDTO{
		ID:          product.ID,
		Name:        product.Name,
		Slug:        product.Slug,
		Category:    product.Category,
		Brand:       product.Brand,
		Description: product.Description,
		Images:      product.Images,
		Price:       product.Price.StringFixed(2),
		Stock:       product.Stock,
		Rating:      product.Rating.StringFixed(2),
		NumReviews:  product.NumReviews,
		IsFeatured:  product.IsFeatured,
		Banner:      product.Banner,
		CreatedAt:   product.CreatedAt,
	}
}

func toDTOs(products []models.Product) []ProductDTO {
	out := make([]ProductDTO, 0, len(products))
	for i := range products {
		out = append(out, *toDTO(&products[i]))
	}
	return out
}
