package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prostorehq/prostore-backend/pkg/db"
	"github.com/prostorehq/prostore-backend/pkg/db/models"
	pkgerrors "github.com/prostorehq/prostore-backend/pkg/errors"
	"github.com/prostorehq/prostore-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// Owner identifies whose cart an operation targets. A signed-in user is keyed
// by UserID; an anonymous browser is keyed by its session cart token. When
// both are present the user key wins.
type Owner struct {
	UserID        *uuid.UUID
	SessionCartID string
}

func (o Owner) validate() error {
	if o.UserID != nil && *o.UserID != uuid.Nil {
		return nil
	}
	if strings.TrimSpace(o.SessionCartID) != "" {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "cart owner is required")
}

func (o Owner) isUser() bool {
	return o.UserID != nil && *o.UserID != uuid.Nil
}

// Service exposes the cart engine: reads, line mutations and the
// anonymous-to-user merge that runs at login.
type Service interface {
	GetCart(ctx context.Context, owner Owner) (*CartDTO, error)
	AddItem(ctx context.Context, owner Owner, productID uuid.UUID) (string, error)
	RemoveItem(ctx context.Context, owner Owner, productID uuid.UUID) (string, error)
	MergeAnonymousIntoUser(ctx context.Context, userID uuid.UUID, sessionCartID string) error
}

type service struct {
	repo     CartRepository
	tx       txRunner
	products productLoader
	metrics  *metrics.CartMetrics
}

// NewService builds a cart service backed by the provided stack. The metrics
// collector may be nil.
func NewService(repo CartRepository, tx txRunner, products productLoader, cartMetrics *metrics.CartMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		products: products,
		metrics:  cartMetrics,
	}, nil
}

// GetCart returns the owner's cart, or (nil, nil) when none exists yet. An
// empty cart is not an error state.
func (s *service) GetCart(ctx context.Context, owner Owner) (*CartDTO, error) {
	if err := owner.validate(); err != nil {
		return nil, err
	}
	cart, err := s.findByOwner(ctx, s.repo, owner)
	if err != nil {
		return nil, err
	}
	return toCartDTO(cart), nil
}

// AddItem adds one unit of the product to the owner's cart, creating the cart
// on first use. The returned message names the product and distinguishes a
// fresh line from an incremented one.
func (s *service) AddItem(ctx context.Context, owner Owner, productID uuid.UUID) (string, error) {
	message, err := s.addItem(ctx, owner, productID)
	s.metrics.IncOperation("add", outcomeLabel(err))
	return message, err
}

func (s *service) addItem(ctx context.Context, owner Owner, productID uuid.UUID) (string, error) {
	if err := owner.validate(); err != nil {
		return "", err
	}
	if productID == uuid.Nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	product, err := s.loadProduct(ctx, productID)
	if err != nil {
		return "", err
	}

	var message string
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		cart, err := s.findByOwner(ctx, repo, owner)
		if err != nil {
			return err
		}

		if cart == nil {
			if product.Stock < 1 {
				return errOutOfStock()
			}
			item := newLine(product, 0)
			totals := ComputeTotals([]models.CartItem{item})

			cart = &models.Cart{ID: uuid.New(), Version: 1}
			if owner.isUser() {
				cart.UserID = owner.UserID
			}
			if token := strings.TrimSpace(owner.SessionCartID); token != "" {
				cart.SessionCartID = &token
			}
			totals.ApplyTo(cart)
			item.CartID = cart.ID
			cart.Items = []models.CartItem{item}

			if _, err := repo.Create(ctx, cart); err != nil {
				// a concurrent first-add won the owner's unique index
				if db.IsUniqueViolation(err) {
					return pkgerrors.New(pkgerrors.CodeConflict, "cart was modified concurrently, please retry")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
			}
			message = product.Name + " added to cart"
			return nil
		}

		items := cloneItems(cart.Items)
		if idx := findLine(items, productID); idx >= 0 {
			nextQty := items[idx].Quantity + 1
			if product.Stock < nextQty {
				return errOutOfStock()
			}
			items[idx].Quantity = nextQty
			message = product.Name + " updated in cart"
		} else {
			if product.Stock < 1 {
				return errOutOfStock()
			}
			items = append(items, newLine(product, nextPosition(items)))
			message = product.Name + " added to cart"
		}

		return s.persist(ctx, repo, cart, items)
	})
	if err != nil {
		return "", err
	}
	return message, nil
}

// RemoveItem takes one unit of the product out of the owner's cart. The last
// unit deletes the line entirely.
func (s *service) RemoveItem(ctx context.Context, owner Owner, productID uuid.UUID) (string, error) {
	message, err := s.removeItem(ctx, owner, productID)
	s.metrics.IncOperation("remove", outcomeLabel(err))
	return message, err
}

func (s *service) removeItem(ctx context.Context, owner Owner, productID uuid.UUID) (string, error) {
	if err := owner.validate(); err != nil {
		return "", err
	}
	if productID == uuid.Nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	product, err := s.loadProduct(ctx, productID)
	if err != nil {
		return "", err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		cart, err := s.findByOwner(ctx, repo, owner)
		if err != nil {
			return err
		}
		if cart == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}

		items := cloneItems(cart.Items)
		idx := findLine(items, productID)
		if idx < 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
		}

		if items[idx].Quantity <= 1 {
			items = append(items[:idx], items[idx+1:]...)
		} else {
			items[idx].Quantity--
		}

		return s.persist(ctx, repo, cart, items)
	})
	if err != nil {
		return "", err
	}
	return product.Name + " was removed from cart", nil
}

// MergeAnonymousIntoUser folds the anonymous cart identified by the session
// token into the user's cart. Overlapping lines sum their quantities, the
// rest are appended, and the anonymous cart is deleted last so a replay after
// a partial failure converges to the same state. Callers treat a merge
// failure as non-fatal to login.
func (s *service) MergeAnonymousIntoUser(ctx context.Context, userID uuid.UUID, sessionCartID string) error {
	err := s.mergeAnonymousIntoUser(ctx, userID, sessionCartID)
	s.metrics.IncMerge(outcomeLabel(err))
	return err
}

func (s *service) mergeAnonymousIntoUser(ctx context.Context, userID uuid.UUID, sessionCartID string) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	sessionCartID = strings.TrimSpace(sessionCartID)
	if sessionCartID == "" {
		return nil
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		anon, err := repo.FindBySession(ctx, sessionCartID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load anonymous cart")
		}
		if anon.OwnedByUser() {
			// already merged or re-keyed; replay is a no-op
			return nil
		}

		userCart, err := repo.FindByUser(ctx, userID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user cart")
		}

		if userCart == nil {
			if err := repo.ReKeyToUser(ctx, anon.ID, userID, anon.Version); err != nil {
				return mapPersistErr(err)
			}
			return nil
		}

		merged := mergeLines(userCart.Items, anon.Items)
		if err := s.persist(ctx, repo, userCart, merged); err != nil {
			return err
		}

		// delete last: a replayed merge finds no anonymous cart and stops
		if err := repo.Delete(ctx, anon.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete anonymous cart")
		}
		return nil
	})
}

func (s *service) findByOwner(ctx context.Context, repo CartRepository, owner Owner) (*models.Cart, error) {
	var (
		cart *models.Cart
		err  error
	)
	if owner.isUser() {
		cart, err = repo.FindByUser(ctx, *owner.UserID)
	} else {
		cart, err = repo.FindBySession(ctx, owner.SessionCartID)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return cart, nil
}

func (s *service) loadProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

// persist recomputes totals from the lines and writes cart and lines under
// the version guard.
func (s *service) persist(ctx context.Context, repo CartRepository, cart *models.Cart, items []models.CartItem) error {
	ComputeTotals(items).ApplyTo(cart)
	if err := repo.UpdateWithVersion(ctx, cart); err != nil {
		return mapPersistErr(err)
	}
	if err := repo.ReplaceItems(ctx, cart.ID, items); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replace cart items")
	}
	cart.Items = items
	return nil
}

// mergeLines keeps the user's lines in place, sums quantities for products
// present on both sides, and appends the remaining anonymous lines in their
// original order.
func mergeLines(userItems, anonItems []models.CartItem) []models.CartItem {
	merged := cloneItems(userItems)
	for i := range anonItems {
		anon := anonItems[i]
		if idx := findLine(merged, anon.ProductID); idx >= 0 {
			merged[idx].Quantity += anon.Quantity
			continue
		}
		line := anon
		line.ID = uuid.New()
		line.Position = nextPosition(merged)
		merged = append(merged, line)
	}
	return merged
}

func newLine(product *models.Product, position int) models.CartItem {
	return models.CartItem{
		ID:        uuid.New(),
		ProductID: product.ID,
		Name:      product.Name,
		Slug:      product.Slug,
		Image:     product.FirstImage(),
		UnitPrice: product.Price,
		Quantity:  1,
		Position:  position,
	}
}

func cloneItems(items []models.CartItem) []models.CartItem {
	out := make([]models.CartItem, len(items))
	copy(out, items)
	return out
}

func findLine(items []models.CartItem, productID uuid.UUID) int {
	for i := range items {
		if items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

func nextPosition(items []models.CartItem) int {
	next := 0
	for i := range items {
		if items[i].Position >= next {
			next = items[i].Position + 1
		}
	}
	return next
}

func errOutOfStock() error {
	return pkgerrors.New(pkgerrors.CodeConflict, "not enough stock")
}

func mapPersistErr(err error) error {
	if errors.Is(err, ErrVersionConflict) {
		return pkgerrors.New(pkgerrors.CodeConflict, "cart was modified concurrently, please retry")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist cart")
}

func outcomeLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
