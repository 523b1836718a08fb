package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/prostorehq/prostore-backend/pkg/db/models"
	pkgerrors "github.com/prostorehq/prostore-backend/pkg/errors"
)

// Service exposes catalog reads and the admin product management surface.
type Service interface {
	GetByID(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	GetBySlug(ctx context.Context, slug string) (*ProductDTO, error)
	ListLatest(ctx context.Context) ([]ProductDTO, error)
	List(ctx context.Context, filters ListFilters) (*ProductListDTO, error)
	ListCategories(ctx context.Context) ([]string, error)
	ListFeatured(ctx context.Context, limit int) ([]ProductDTO, error)
	GetStock(ctx context.Context, id uuid.UUID) (int, error)
	Create(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	Name        string
	Slug        string
	Category    string
	Brand       string
	Description string
	Images      []string
	Price       decimal.Decimal
	Stock       int
	IsFeatured  bool
	Banner      *string
}

// UpdateProductInput holds optional mutation values for a product.
type UpdateProductInput struct {
	Name        *string
	Slug        *string
	Category    *string
	Brand       *string
	Description *string
	Images      *[]string
	Price       *decimal.Decimal
	Stock       *int
	IsFeatured  *bool
	Banner      *string
}

type service struct {
	repo *Repository
}

// NewService constructs a product service instance.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &service{repo: repo}, nil
}

// GetByID returns the product or not-found.
func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupErr(err)
	}
	return toDTO(product), nil
}

// GetBySlug returns the product with the given slug or not-found.
func (s *service) GetBySlug(ctx context.Context, slug string) (*ProductDTO, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product slug is required")
	}
	product, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, mapLookupErr(err)
	}
	return toDTO(product), nil
}

// ListLatest returns the newest catalog entries for the storefront landing page.
func (s *service) ListLatest(ctx context.Context) ([]ProductDTO, error) {
	rows, err := s.repo.ListLatest(ctx, LatestProductsLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list latest products")
	}
	return toDTOs(rows), nil
}

// List returns a filtered catalog page.
func (s *service) List(ctx context.Context, filters ListFilters) (*ProductListDTO, error) {
	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.PageSize < 1 {
		filters.PageSize = DefaultPageSize
	}
	result, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return &ProductListDTO{
		Products:   toDTOs(result.Products),
		TotalCount: result.TotalCount,
		TotalPages: result.TotalPages,
		Page:       filters.Page,
	}, nil
}

// ListCategories returns the distinct catalog categories.
func (s *service) ListCategories(ctx context.Context) ([]string, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	return categories, nil
}

// ListFeatured returns banner-carrying featured products.
func (s *service) ListFeatured(ctx context.Context, limit int) ([]ProductDTO, error) {
	if limit < 1 {
		limit = LatestProductsLimit
	}
	rows, err := s.repo.ListFeatured(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list featured products")
	}
	return toDTOs(rows), nil
}

// GetStock returns the current inventory count for a product.
func (s *service) GetStock(ctx context.Context, id uuid.UUID) (int, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return 0, mapLookupErr(err)
	}
	return product.Stock, nil
}

// Create inserts a new catalog entry.
func (s *service) Create(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	if err := validatePrice(input.Price); err != nil {
		return nil, err
	}
	if input.Stock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
	}

	product := &models.Product{
		Name:        input.Name,
		Slug:        input.Slug,
		Category:    input.Category,
		Brand:       input.Brand,
		Description: input.Description,
		Images:      pq.StringArray(input.Images),
		Price:       input.Price.Round(2),
		Stock:       input.Stock,
		IsFeatured:  input.IsFeatured,
		Banner:      input.Banner,
	}

	created, err := s.repo.Create(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err,
			fmt.Sprintf("insert product (slug=%s)", input.Slug))
	}
	return toDTO(created), nil
}

// Update applies the provided fields to an existing product.
func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupErr(err)
	}

	if input.Name != nil {
		product.Name = *input.Name
	}
	if input.Slug != nil {
		product.Slug = *input.Slug
	}
	if input.Category != nil {
		product.Category = *input.Category
	}
	if input.Brand != nil {
		product.Brand = *input.Brand
	}
	if input.Description != nil {
		product.Description = *input.Description
	}
	if input.Images != nil {
		product.Images = pq.StringArray(*input.Images)
	}
	if input.Price != nil {
		if err := validatePrice(*input.Price); err != nil {
			return nil, err
		}
		product.Price = input.Price.Round(2)
	}
	if input.Stock != nil {
		if *input.Stock < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
		}
		product.Stock = *input.Stock
	}
	if input.IsFeatured != nil {
		product.IsFeatured = *input.IsFeatured
	}
	if input.Banner != nil {
		product.Banner = input.Banner
	}

	updated, err := s.repo.Update(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err,
			fmt.Sprintf("update product (id=%s)", id))
	}
	return toDTO(updated), nil
}

// Delete removes a catalog entry.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return mapLookupErr(err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err,
			fmt.Sprintf("delete product (id=%s)", id))
	}
	return nil
}

func validatePrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}
	return nil
}

func mapLookupErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
}
