package service

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/commercium-dev/storefront/internal/models"
	"github.com/commercium-dev/storefront/internal/pricing"
	"github.com/commercium-dev/storefront/internal/repo"
)

func newTestRepo(t *testing.T) *repo.GormRepo {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Product{}, &models.Cart{}, &models.CartItem{},
		&models.RefreshToken{}, &models.Order{}, &models.OrderItem{},
	))
	return repo.NewGormRepo(db)
}

func newCartService(t *testing.T) *CartService {
	t.Helper()
	return &CartService{
		Repo:     newTestRepo(t),
		Pricing:  pricing.NewEngine("TRY"),
		Currency: "TRY",
		GuestTTL: 24 * time.Hour,
	}
}

func seedProduct(t *testing.T, r *repo.GormRepo, price string) *models.Product {
	t.Helper()
	p := &models.Product{
		ID:       uuid.New(),
		Name:     "widget",
		Price:    decimal.RequireFromString(price),
		Currency: "TRY",
		Count:    100,
	}
	require.NoError(t, r.CreateProduct(context.Background(), p))
	return p
}

func TestResolveCart_SessionIsIdempotent(t *testing.T) {
	t.Parallel()

	svc := newCartService(t)
	ctx := context.Background()
	session := uuid.NewString()

	first, created, err := svc.ResolveCart(ctx, ResolveInput{SessionID: &session})
	require.NoError(t, err)
	assert.True(t, created)
	require.NotNil(t, first.ExpiresAt)

	second, created, err := svc.ResolveCart(ctx, ResolveInput{SessionID: &session})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
}

func TestResolveCart_UserCartHasNoExpiry(t *testing.T) {
	t.Parallel()

	svc := newCartService(t)
	ctx := context.Background()
	userID := uuid.New()

	cart, created, err := svc.ResolveCart(ctx, ResolveInput{UserID: &userID})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Nil(t, cart.ExpiresAt)

	again, created, err := svc.ResolveCart(ctx, ResolveInput{UserID: &userID})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, cart.ID, again.ID)
}

func TestResolveCart_NoIdentityMintsAnonymousCart(t *testing.T) {
	t.Parallel()

	svc := newCartService(t)

	cart, created, err := svc.ResolveCart(context.Background(), ResolveInput{})
	require.NoError(t, err)
	assert.True(t, created)
	require.NotNil(t, cart.SessionID)
	assert.NotEmpty(t, *cart.SessionID)
	assert.NotNil(t, cart.ExpiresAt)
}

func TestAddItem_ZeroQuantityRejected(t *testing.T) {
	t.Parallel()

	svc := newCartService(t)
	ctx := context.Background()
	cart, _, err := svc.ResolveCart(ctx, ResolveInput{})
	require.NoError(t, err)

	_, err = svc.AddItem(ctx, cart.ID, uuid.New(), nil, 0, nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAddItem_UnknownProduct(t *testing.T) {
	t.Parallel()

	svc := newCartService(t)
	ctx := context.Background()
	cart, _, err := svc.ResolveCart(ctx, ResolveInput{})
	require.NoError(t, err)

	_, err = svc.AddItem(ctx, cart.ID, uuid.New(), nil, 1, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetCart_SummaryMatchesItems(t *testing.T) {
	t.Parallel()

	svc := newCartService(t)
	ctx := context.Background()
	cart, _, err := svc.ResolveCart(ctx, ResolveInput{})
	require.NoError(t, err)

	p1 := seedProduct(t, svc.Repo, "100.00")
	p2 := seedProduct(t, svc.Repo, "50.00")

	_, err = svc.AddItem(ctx, cart.ID, p1.ID, nil, 2, nil)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, cart.ID, p2.ID, nil, 1, nil)
	require.NoError(t, err)

	view, err := svc.GetCart(ctx, cart.ID)
	require.NoError(t, err)
	require.Len(t, view.Items, 2)

	assert.Equal(t, "250", view.Summary.Subtotal.String())
	assert.Equal(t, "45", view.Summary.TaxTotal.String())
	assert.Equal(t, "295", view.Summary.GrandTotal.String())
	assert.Equal(t, "TRY", view.Summary.Currency)
}

func TestGetCart_Missing(t *testing.T) {
	t.Parallel()

	svc := newCartService(t)
	_, err := svc.GetCart(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetItemQuantity_ZeroRejectedWithoutDeleting(t *testing.T) {
	t.Parallel()

	svc := newCartService(t)
	ctx := context.Background()
	cart, _, err := svc.ResolveCart(ctx, ResolveInput{})
	require.NoError(t, err)
	p := seedProduct(t, svc.Repo, "10.00")

	item, err := svc.AddItem(ctx, cart.ID, p.ID, nil, 2, nil)
	require.NoError(t, err)

	_, err = svc.SetItemQuantity(ctx, cart.ID, item.ID, 0)
	assert.ErrorIs(t, err, ErrValidation)

	// the line is untouched
	view, err := svc.GetCart(ctx, cart.ID)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, uint(2), view.Items[0].Quantity)
}

func TestExtendExpiration_HoursOutOfRange(t *testing.T) {
	t.Parallel()

	svc := newCartService(t)
	ctx := context.Background()
	cart, _, err := svc.ResolveCart(ctx, ResolveInput{})
	require.NoError(t, err)

	_, err = svc.ExtendExpiration(ctx, cart.ID, 0)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.ExtendExpiration(ctx, cart.ID, 200)
	assert.ErrorIs(t, err, ErrValidation)

	newExp, err := svc.ExtendExpiration(ctx, cart.ID, 24)
	require.NoError(t, err)
	assert.WithinDuration(t, cart.ExpiresAt.Add(24*time.Hour), *newExp, time.Second)
}

func TestCheckout_ConvertsCart(t *testing.T) {
	t.Parallel()

	svc := newCartService(t)
	ctx := context.Background()
	cart, _, err := svc.ResolveCart(ctx, ResolveInput{})
	require.NoError(t, err)
	p := seedProduct(t, svc.Repo, "100.00")

	_, err = svc.AddItem(ctx, cart.ID, p.ID, nil, 2, nil)
	require.NoError(t, err)

	res, err := svc.Checkout(ctx, cart.ID)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "200", res.Order.Subtotal.String())
	assert.Equal(t, "236", res.Order.GrandTotal.String())
	assert.Equal(t, models.OrderStatusNew, res.Order.Status)

	// the converted cart is no longer reachable as active
	_, err = svc.GetCart(ctx, cart.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// checkout is not repeatable
	_, err = svc.Checkout(ctx, cart.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCheckout_EmptyCartRejected(t *testing.T) {
	t.Parallel()

	svc := newCartService(t)
	ctx := context.Background()
	cart, _, err := svc.ResolveCart(ctx, ResolveInput{})
	require.NoError(t, err)

	_, err = svc.Checkout(ctx, cart.ID)
	assert.ErrorIs(t, err, ErrValidation)

	// the failed conversion must not consume the cart
	_, err = svc.GetCart(ctx, cart.ID)
	assert.NoError(t, err)
}

func TestCreateGuestCart(t *testing.T) {
	t.Parallel()

	svc := newCartService(t)
	ctx := context.Background()

	res, err := svc.CreateGuestCart(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, res.SessionToken)
	assert.WithinDuration(t, time.Now().UTC().Add(24*time.Hour), res.ExpiresAt, 5*time.Second)

	// the returned session token resolves back to the same cart
	cart, created, err := svc.ResolveCart(ctx, ResolveInput{SessionID: &res.SessionToken})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, res.GuestCartID, cart.ID)
}
