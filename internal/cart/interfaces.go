package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prostorehq/prostore-backend/pkg/db/models"
)

// CartRepository defines the persistence surface required by the cart service.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	FindByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	FindBySession(ctx context.Context, sessionCartID string) (*models.Cart, error)
	Create(ctx context.Context, cart *models.Cart) (*models.Cart, error)
	UpdateWithVersion(ctx context.Context, cart *models.Cart) error
	ReplaceItems(ctx context.Context, cartID uuid.UUID, items []models.CartItem) error
	ReKeyToUser(ctx context.Context, cartID, userID uuid.UUID, version int64) error
	Delete(ctx context.Context, cartID uuid.UUID) error
}
