package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prostorehq/prostore-backend/pkg/db/models"
)

// ErrVersionConflict signals a lost compare-and-swap: the cart row moved to a
// newer version between read and write.
var ErrVersionConflict = errors.New("cart version conflict")

// Repository persists carts and their lines.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repository to the provided GORM handle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx scopes the repository to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) CartRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindByUser returns the cart keyed by the user id, or gorm.ErrRecordNotFound.
func (r *Repository) FindByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("user_id = ?", userID).
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// FindBySession returns the cart keyed by the anonymous session token.
func (r *Repository) FindBySession(ctx context.Context, sessionCartID string) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("session_cart_id = ?", sessionCartID).
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// Create inserts the cart together with its lines.
func (r *Repository) Create(ctx context.Context, cart *models.Cart) (*models.Cart, error) {
	if cart.Version == 0 {
		cart.Version = 1
	}
	if err := r.db.WithContext(ctx).Create(cart).Error; err != nil {
		return nil, err
	}
	return cart, nil
}

// UpdateWithVersion saves the derived price columns guarded by the cart's
// current version. On success the in-memory version is advanced; a stale
// version returns ErrVersionConflict.
func (r *Repository) UpdateWithVersion(ctx context.Context, cart *models.Cart) error {
	result := r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ? AND version = ?", cart.ID, cart.Version).
		Updates(map[string]any{
			"version":        cart.Version + 1,
			"items_price":    cart.ItemsPrice,
			"shipping_price": cart.ShippingPrice,
			"tax_price":      cart.TaxPrice,
			"total_price":    cart.TotalPrice,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}
	cart.Version++
	return nil
}

// ReplaceItems swaps the full line set of a cart.
func (r *Repository) ReplaceItems(ctx context.Context, cartID uuid.UUID, items []models.CartItem) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].CartID = cartID
	}
	return tx.Create(&items).Error
}

// ReKeyToUser hands an anonymous cart to a user, guarded by the version.
func (r *Repository) ReKeyToUser(ctx context.Context, cartID, userID uuid.UUID, version int64) error {
	result := r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ? AND version = ?", cartID, version).
		Updates(map[string]any{
			"user_id": userID,
			"version": version + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}

// Delete removes the cart; its lines cascade.
func (r *Repository) Delete(ctx context.Context, cartID uuid.UUID) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error; err != nil {
		return err
	}
	return tx.Where("id = ?", cartID).Delete(&models.Cart{}).Error
}
