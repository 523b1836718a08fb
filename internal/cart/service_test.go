package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/prostorehq/prostore-backend/pkg/db/models"
	pkgerrors "github.com/prostorehq/prostore-backend/pkg/errors"
)

type stubProducts struct {
	byID map[uuid.UUID]*models.Product
}

func (s stubProducts) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if p, ok := s.byID[id]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func newCatalogProduct(name, price string, stock int) *models.Product {
	return &models.Product{
		ID:     uuid.New(),
		Name:   name,
		Slug:   name,
		Images: pq.StringArray{"/images/" + name + ".jpg"},
		Price:  decimal.RequireFromString(price),
		Stock:  stock,
	}
}

func newTestCartService(t *testing.T, catalog ...*models.Product) (Service, *Repository) {
	t.Helper()

	db := openCartTestDB(t)
	repo := NewRepository(db)

	byID := map[uuid.UUID]*models.Product{}
	for _, p := range catalog {
		byID[p.ID] = p
	}

	svc, err := NewService(repo, gormTxRunner{db: db}, stubProducts{byID: byID}, nil)
	require.NoError(t, err)
	return svc, repo
}

func sessionOwner(token string) Owner {
	return Owner{SessionCartID: token}
}

func TestGetCartReturnsNilWhenAbsent(t *testing.T) {
	t.Parallel()

	svc, _ := newTestCartService(t)

	dto, err := svc.GetCart(context.Background(), sessionOwner(uuid.NewString()))
	require.NoError(t, err)
	assert.Nil(t, dto)
}

func TestAddItemCreatesCartThenIncrements(t *testing.T) {
	t.Parallel()

	shirt := newCatalogProduct("shirt", "25.00", 5)
	svc, _ := newTestCartService(t, shirt)
	owner := sessionOwner(uuid.NewString())

	msg, err := svc.AddItem(context.Background(), owner, shirt.ID)
	require.NoError(t, err)
	assert.Equal(t, "shirt added to cart", msg)

	msg, err = svc.AddItem(context.Background(), owner, shirt.ID)
	require.NoError(t, err)
	assert.Equal(t, "shirt updated in cart", msg)

	dto, err := svc.GetCart(context.Background(), owner)
	require.NoError(t, err)
	require.NotNil(t, dto)
	require.Len(t, dto.Items, 1)
	assert.Equal(t, 2, dto.Items[0].Qty)
	assert.Equal(t, "50.00", dto.ItemsPrice)
	assert.Equal(t, "10.00", dto.ShippingPrice)
	assert.Equal(t, "7.50", dto.TaxPrice)
	assert.Equal(t, "67.50", dto.TotalPrice)
}

func TestAddItemUnknownProduct(t *testing.T) {
	t.Parallel()

	svc, _ := newTestCartService(t)

	_, err := svc.AddItem(context.Background(), sessionOwner(uuid.NewString()), uuid.New())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestAddItemStockBoundary(t *testing.T) {
	t.Parallel()

	scarce := newCatalogProduct("scarce", "10.00", 2)
	svc, _ := newTestCartService(t, scarce)
	owner := sessionOwner(uuid.NewString())

	for i := 0; i < 2; i++ {
		_, err := svc.AddItem(context.Background(), owner, scarce.ID)
		require.NoError(t, err)
	}

	// quantity 2 with stock 2: a third unit must be refused
	_, err := svc.AddItem(context.Background(), owner, scarce.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	// one more unit of stock lets it through
	scarce.Stock = 3
	_, err = svc.AddItem(context.Background(), owner, scarce.ID)
	require.NoError(t, err)

	dto, err := svc.GetCart(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, 3, dto.Items[0].Qty)
}

func TestAddThenRemoveRestoresCart(t *testing.T) {
	t.Parallel()

	shirt := newCatalogProduct("shirt", "25.00", 5)
	hat := newCatalogProduct("hat", "12.50", 5)
	svc, _ := newTestCartService(t, shirt, hat)
	owner := sessionOwner(uuid.NewString())

	_, err := svc.AddItem(context.Background(), owner, shirt.ID)
	require.NoError(t, err)

	before, err := svc.GetCart(context.Background(), owner)
	require.NoError(t, err)

	_, err = svc.AddItem(context.Background(), owner, hat.ID)
	require.NoError(t, err)
	msg, err := svc.RemoveItem(context.Background(), owner, hat.ID)
	require.NoError(t, err)
	assert.Equal(t, "hat was removed from cart", msg)

	after, err := svc.GetCart(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, after.Items, 1)
	assert.Equal(t, before.Items[0].ProductID, after.Items[0].ProductID)
	assert.Equal(t, before.ItemsPrice, after.ItemsPrice)
	assert.Equal(t, before.ShippingPrice, after.ShippingPrice)
	assert.Equal(t, before.TaxPrice, after.TaxPrice)
	assert.Equal(t, before.TotalPrice, after.TotalPrice)
}

func TestRemoveItemDecrementsBeforeDeleting(t *testing.T) {
	t.Parallel()

	shirt := newCatalogProduct("shirt", "25.00", 5)
	svc, _ := newTestCartService(t, shirt)
	owner := sessionOwner(uuid.NewString())

	for i := 0; i < 2; i++ {
		_, err := svc.AddItem(context.Background(), owner, shirt.ID)
		require.NoError(t, err)
	}

	_, err := svc.RemoveItem(context.Background(), owner, shirt.ID)
	require.NoError(t, err)

	dto, err := svc.GetCart(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, dto.Items, 1)
	assert.Equal(t, 1, dto.Items[0].Qty)

	_, err = svc.RemoveItem(context.Background(), owner, shirt.ID)
	require.NoError(t, err)

	dto, err = svc.GetCart(context.Background(), owner)
	require.NoError(t, err)
	assert.Empty(t, dto.Items)
}

func TestRemoveItemMissingCartAndLine(t *testing.T) {
	t.Parallel()

	shirt := newCatalogProduct("shirt", "25.00", 5)
	hat := newCatalogProduct("hat", "12.50", 5)
	svc, _ := newTestCartService(t, shirt, hat)
	owner := sessionOwner(uuid.NewString())

	_, err := svc.RemoveItem(context.Background(), owner, shirt.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.AddItem(context.Background(), owner, shirt.ID)
	require.NoError(t, err)

	_, err = svc.RemoveItem(context.Background(), owner, hat.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestMergeSumsOverlapAndAppendsRest(t *testing.T) {
	t.Parallel()

	svc, repo := newTestCartService(t)
	userID := uuid.New()
	token := uuid.NewString()

	productA := uuid.New()
	productB := uuid.New()
	productC := uuid.New()

	mustCreateCart(t, repo, &models.Cart{
		UserID: &userID,
		Items: []models.CartItem{
			{ProductID: productA, Name: "a", Slug: "a", UnitPrice: decimal.RequireFromString("10.00"), Quantity: 2, Position: 0},
			{ProductID: productB, Name: "b", Slug: "b", UnitPrice: decimal.RequireFromString("5.00"), Quantity: 1, Position: 1},
		},
	})
	mustCreateCart(t, repo, &models.Cart{
		SessionCartID: &token,
		Items: []models.CartItem{
			{ProductID: productB, Name: "b", Slug: "b", UnitPrice: decimal.RequireFromString("5.00"), Quantity: 3, Position: 0},
			{ProductID: productC, Name: "c", Slug: "c", UnitPrice: decimal.RequireFromString("2.00"), Quantity: 1, Position: 1},
		},
	})

	require.NoError(t, svc.MergeAnonymousIntoUser(context.Background(), userID, token))

	merged, err := repo.FindByUser(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, merged.Items, 3)

	quantities := map[uuid.UUID]int{}
	for _, item := range merged.Items {
		quantities[item.ProductID] = item.Quantity
	}
	assert.Equal(t, map[uuid.UUID]int{productA: 2, productB: 4, productC: 1}, quantities)

	// 10*2 + 5*4 + 2*1 = 42.00; shipping 10.00; tax 6.30
	assert.Equal(t, "42.00", merged.ItemsPrice.StringFixed(2))
	assert.Equal(t, "10.00", merged.ShippingPrice.StringFixed(2))
	assert.Equal(t, "6.30", merged.TaxPrice.StringFixed(2))
	assert.Equal(t, "58.30", merged.TotalPrice.StringFixed(2))

	// the anonymous cart is gone
	_, err = repo.FindBySession(context.Background(), token)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestMergeReKeysWhenUserHasNoCart(t *testing.T) {
	t.Parallel()

	svc, repo := newTestCartService(t)
	userID := uuid.New()
	token := uuid.NewString()

	anon := mustCreateCart(t, repo, &models.Cart{
		SessionCartID: &token,
		Items: []models.CartItem{
			{ProductID: uuid.New(), Name: "a", Slug: "a", UnitPrice: decimal.RequireFromString("30.00"), Quantity: 2, Position: 0},
		},
	})

	require.NoError(t, svc.MergeAnonymousIntoUser(context.Background(), userID, token))

	rekeyed, err := repo.FindByUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, anon.ID, rekeyed.ID)
	require.Len(t, rekeyed.Items, 1)
	assert.Equal(t, 2, rekeyed.Items[0].Quantity)
	assert.Equal(t, anon.TotalPrice.StringFixed(2), rekeyed.TotalPrice.StringFixed(2))

	// replaying the merge is a no-op
	require.NoError(t, svc.MergeAnonymousIntoUser(context.Background(), userID, token))
	again, err := repo.FindByUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, rekeyed.Version, again.Version)
}

func TestMergeWithoutAnonymousCartIsNoOp(t *testing.T) {
	t.Parallel()

	svc, _ := newTestCartService(t)
	assert.NoError(t, svc.MergeAnonymousIntoUser(context.Background(), uuid.New(), uuid.NewString()))
	assert.NoError(t, svc.MergeAnonymousIntoUser(context.Background(), uuid.New(), ""))
}

func TestMergeSurfacesVersionConflict(t *testing.T) {
	t.Parallel()

	token := uuid.NewString()
	anon := &models.Cart{ID: uuid.New(), SessionCartID: &token, Version: 1}
	repo := &conflictRepo{anon: anon}

	svc, err := NewService(repo, passthroughTxRunner{}, stubProducts{}, nil)
	require.NoError(t, err)

	err = svc.MergeAnonymousIntoUser(context.Background(), uuid.New(), token)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

type passthroughTxRunner struct{}

func (passthroughTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

// conflictRepo loses every compare-and-swap.
type conflictRepo struct {
	anon *models.Cart
}

func (r *conflictRepo) WithTx(tx *gorm.DB) CartRepository { return r }
func (r *conflictRepo) FindByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	return nil, gorm.ErrRecordNotFound
}
func (r *conflictRepo) FindBySession(ctx context.Context, sessionCartID string) (*models.Cart, error) {
	return r.anon, nil
}
func (r *conflictRepo) Create(ctx context.Context, cart *models.Cart) (*models.Cart, error) {
	return cart, nil
}
func (r *conflictRepo) UpdateWithVersion(ctx context.Context, cart *models.Cart) error {
	return ErrVersionConflict
}
func (r *conflictRepo) ReplaceItems(ctx context.Context, cartID uuid.UUID, items []models.CartItem) error {
	return nil
}
func (r *conflictRepo) ReKeyToUser(ctx context.Context, cartID, userID uuid.UUID, version int64) error {
	return ErrVersionConflict
}
func (r *conflictRepo) Delete(ctx context.Context, cartID uuid.UUID) error { return nil }

func TestAddItemSurfacesConcurrentCreateConflict(t *testing.T) {
	t.Parallel()

	shirt := newCatalogProduct("shirt", "25.00", 10)
	repo := &duplicateCreateRepo{}

	svc, err := NewService(repo, passthroughTxRunner{}, stubProducts{byID: map[uuid.UUID]*models.Product{shirt.ID: shirt}}, nil)
	require.NoError(t, err)

	_, err = svc.AddItem(context.Background(), sessionOwner(uuid.NewString()), shirt.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

// duplicateCreateRepo mimics losing the owner's unique index to a concurrent
// first add.
type duplicateCreateRepo struct{}

func (r *duplicateCreateRepo) WithTx(tx *gorm.DB) CartRepository { return r }
func (r *duplicateCreateRepo) FindByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	return nil, gorm.ErrRecordNotFound
}
func (r *duplicateCreateRepo) FindBySession(ctx context.Context, sessionCartID string) (*models.Cart, error) {
	return nil, gorm.ErrRecordNotFound
}
func (r *duplicateCreateRepo) Create(ctx context.Context, cart *models.Cart) (*models.Cart, error) {
	return nil, &pgconn.PgError{Code: "23505", ConstraintName: "ux_carts_session_cart_id"}
}
func (r *duplicateCreateRepo) UpdateWithVersion(ctx context.Context, cart *models.Cart) error {
	return nil
}
func (r *duplicateCreateRepo) ReplaceItems(ctx context.Context, cartID uuid.UUID, items []models.CartItem) error {
	return nil
}
func (r *duplicateCreateRepo) ReKeyToUser(ctx context.Context, cartID, userID uuid.UUID, version int64) error {
	return nil
}
func (r *duplicateCreateRepo) Delete(ctx context.Context, cartID uuid.UUID) error { return nil }
