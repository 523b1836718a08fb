package product

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prostorehq/prostore-backend/pkg/db/models"
)

// Repository wires together product catalog persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindByID loads a product by primary key.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindBySlug loads a product by its unique slug.
func (r *Repository) FindBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "slug = ?", slug).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// ListLatest returns the most recently created products.
func (r *Repository) ListLatest(ctx context.Context, limit int) ([]models.Product, error) {
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).
		Error
	return rows, err
}

// ListFilters narrows the catalog listing.
type ListFilters struct {
	Query    string
	Category string
	Page     int
	PageSize int
}

// ListResult is one page of the catalog plus paging metadata.
type ListResult struct {
	Products   []models.Product
	TotalCount int64
	TotalPages int
}

// List returns a filtered, paginated slice of the catalog.
func (r *Repository) List(ctx context.Context, filters ListFilters) (*ListResult, error) {
	page := filters.Page
	if page < 1 {
		page = 1
	}
	pageSize := filters.PageSize
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}

	qb := r.db.WithContext(ctx).Model(&models.Product{})
	if search := strings.TrimSpace(filters.Query); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		qb = qb.Where("LOWER(name) LIKE ?", pattern)
	}
	if category := strings.TrimSpace(filters.Category); category != "" {
		qb = qb.Where("category = ?", category)
	}

	var total int64
	if err := qb.Count(&total).Error; err != nil {
		return nil, err
	}

	var rows []models.Product
	err := qb.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&rows).
		Error
	if err != nil {
		return nil, err
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return &ListResult{Products: rows, TotalCount: total, TotalPages: totalPages}, nil
}

// ListCategories returns the distinct categories present in the catalog.
func (r *Repository) ListCategories(ctx context.Context) ([]string, error) {
	var categories []string
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Distinct("category").
		Order("category ASC").
		Pluck("category", &categories).
		Error
	return categories, err
}

// ListFeatured returns featured products carrying a banner.
func (r *Repository) ListFeatured(ctx context.Context, limit int) ([]models.Product, error) {
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Where("is_featured = ? AND banner IS NOT NULL", true).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).
		Error
	return rows, err
}

// Create inserts a new product row.
func (r *Repository) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// Update saves the provided product row.
func (r *Repository) Update(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Save(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// Delete removes a product by ID.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Product{}).Error
}
