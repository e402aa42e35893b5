package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/commercium-dev/storefront/internal/logging"
	"github.com/commercium-dev/storefront/internal/models"
	"github.com/commercium-dev/storefront/internal/pricing"
	"github.com/commercium-dev/storefront/internal/repo"
)

const (
	minExtendHours = 1
	maxExtendHours = 168 // one week cap
)

type CartService struct {
	Repo     *repo.GormRepo
	Pricing  *pricing.Engine
	Producer EventPublisher
	Currency string
	GuestTTL time.Duration
}

// ResolveInput carries at most one identity: an authenticated user id or a
// client-held session id. With neither, a fresh anonymous identity is minted.
type ResolveInput struct {
	UserID    *uuid.UUID
	SessionID *string
}

type CartView struct {
	Cart    *models.Cart      `json:"cart"`
	Items   []models.CartItem `json:"items"`
	Summary pricing.Summary   `json:"summary"`
}

type GuestCartResult struct {
	GuestCartID  uuid.UUID `json:"guest_cart_id"`
	SessionToken string    `json:"session_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// ResolveCart maps a request identity to its single active cart, creating one
// when none exists. Lookup is idempotent: resolving the same session twice
// without mutation returns the same cart row. The returned flag reports
// whether a cart was created.
func (s *CartService) ResolveCart(ctx context.Context, in ResolveInput) (*models.Cart, bool, error) {
	l := logging.FromContext(ctx).With("svc", "cart.resolve")

	if in.UserID != nil {
		cart, err := s.Repo.FindActiveCartByUser(ctx, *in.UserID)
		if err == nil {
			return cart, false, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, err
		}

		cart = &models.Cart{
			ID:       uuid.New(),
			UserID:   in.UserID,
			Status:   models.CartStatusActive,
			Currency: s.Currency,
		}
		if err := s.Repo.CreateCart(ctx, cart); err != nil {
			return nil, false, err
		}
		l.Info("cart created", "cart_id", cart.ID, "user_id", *in.UserID)
		return cart, true, nil
	}

	sessionID := uuid.NewString()
	if in.SessionID != nil && *in.SessionID != "" {
		sessionID = *in.SessionID
		cart, err := s.Repo.FindActiveCartBySession(ctx, sessionID)
		if err == nil {
			return cart, false, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, err
		}
	}

	exp := s.Repo.Now().Add(s.GuestTTL)
	cart := &models.Cart{
		ID:        uuid.New(),
		SessionID: &sessionID,
		Status:    models.CartStatusActive,
		Currency:  s.Currency,
		ExpiresAt: &exp,
	}
	if err := s.Repo.CreateCart(ctx, cart); err != nil {
		return nil, false, err
	}
	l.Info("anonymous cart created", "cart_id", cart.ID)
	return cart, true, nil
}

// GetCart is the direct-id lookup: a missing, inactive or lapsed cart is
// NOT_FOUND here, unlike session resolution which creates one.
func (s *CartService) GetCart(ctx context.Context, cartID uuid.UUID) (*CartView, error) {
	cart, err := s.Repo.FindActiveCartByID(ctx, cartID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("cart %s: %w", cartID, ErrNotFound)
		}
		return nil, err
	}

	items, err := s.Repo.ListItems(ctx, cartID)
	if err != nil {
		return nil, err
	}

	return &CartView{
		Cart:    cart,
		Items:   items,
		Summary: s.Pricing.Summarize(items),
	}, nil
}

func (s *CartService) AddItem(ctx context.Context, cartID, productID uuid.UUID, variantID *uuid.UUID, quantity uint, attrs map[string]string) (*models.CartItem, error) {
	if quantity == 0 {
		return nil, fmt.Errorf("quantity must be greater than zero: %w", ErrValidation)
	}

	product, err := s.Repo.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("product %s: %w", productID, ErrNotFound)
		}
		return nil, err
	}

	item, err := s.Repo.AddOrIncrementItem(ctx, cartID, productID, variantID, quantity, product.Price, attrs)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("cart %s: %w", cartID, ErrNotFound)
		}
		return nil, err
	}

	publish(ctx, s.Producer, TopicCartEvents, cartID.String(), map[string]any{
		"type":       "cart_item_added",
		"cart_id":    cartID,
		"product_id": productID,
		"quantity":   item.Quantity,
	})
	return item, nil
}

// SetItemQuantity rejects zero: removal is an explicit operation, never an
// implicit side effect of a quantity write.
func (s *CartService) SetItemQuantity(ctx context.Context, cartID, itemID uuid.UUID, quantity uint) (*models.CartItem, error) {
	if quantity == 0 {
		return nil, fmt.Errorf("quantity must be greater than zero, use remove to delete an item: %w", ErrValidation)
	}

	item, err := s.Repo.SetItemQuantity(ctx, cartID, itemID, quantity)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("item %s in cart %s: %w", itemID, cartID, ErrNotFound)
		}
		return nil, err
	}

	publish(ctx, s.Producer, TopicCartEvents, cartID.String(), map[string]any{
		"type":     "cart_item_updated",
		"cart_id":  cartID,
		"item_id":  itemID,
		"quantity": quantity,
	})
	return item, nil
}

func (s *CartService) RemoveItem(ctx context.Context, cartID, itemID uuid.UUID) (*models.CartItem, error) {
	item, err := s.Repo.RemoveItem(ctx, cartID, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("item %s in cart %s: %w", itemID, cartID, ErrNotFound)
		}
		return nil, err
	}

	publish(ctx, s.Producer, TopicCartEvents, cartID.String(), map[string]any{
		"type":    "cart_item_removed",
		"cart_id": cartID,
		"item_id": itemID,
	})
	return item, nil
}

// CreateGuestCart mints a time-limited anonymous cart and the session
// credential the client stores to reach it again.
func (s *CartService) CreateGuestCart(ctx context.Context) (*GuestCartResult, error) {
	token := uuid.NewString()
	exp := s.Repo.Now().Add(s.GuestTTL)

	cart := &models.Cart{
		ID:        uuid.New(),
		SessionID: &token,
		Status:    models.CartStatusActive,
		Currency:  s.Currency,
		ExpiresAt: &exp,
	}
	if err := s.Repo.CreateCart(ctx, cart); err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("guest cart created", "cart_id", cart.ID, "expires_at", exp)
	return &GuestCartResult{
		GuestCartID:  cart.ID,
		SessionToken: token,
		ExpiresAt:    exp,
	}, nil
}

// ExtendExpiration advances expires_at by the given hours from its prior
// value. An already-lapsed cart is never resurrected: it fails NOT_FOUND.
func (s *CartService) ExtendExpiration(ctx context.Context, cartID uuid.UUID, hours int) (*time.Time, error) {
	if hours < minExtendHours || hours > maxExtendHours {
		return nil, fmt.Errorf("hours must be between %d and %d: %w", minExtendHours, maxExtendHours, ErrValidation)
	}

	newExp, err := s.Repo.ExtendCartExpiration(ctx, cartID, time.Duration(hours)*time.Hour)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("cart %s not active: %w", cartID, ErrNotFound)
		}
		return nil, err
	}
	return newExp, nil
}

type CheckoutResult struct {
	Order   *models.Order      `json:"order"`
	Items   []models.OrderItem `json:"items"`
	Summary pricing.Summary    `json:"summary"`
}

// Checkout converts the cart and snapshots its priced items into an order.
// Totals come from the pricing engine over the frozen items; a pricing or
// write failure rolls the conversion back.
func (s *CartService) Checkout(ctx context.Context, cartID uuid.UUID) (*CheckoutResult, error) {
	var summary pricing.Summary

	order, orderItems, err := s.Repo.ConvertCart(ctx, cartID, func(cart *models.Cart, items []models.CartItem) (*models.Order, []models.OrderItem, error) {
		if len(items) == 0 {
			return nil, nil, fmt.Errorf("cart is empty: %w", ErrValidation)
		}

		summary = s.Pricing.Summarize(items)

		order := &models.Order{
			ID:            uuid.New(),
			CartID:        cart.ID,
			UserID:        cart.UserID,
			Subtotal:      summary.Subtotal,
			TaxTotal:      summary.TaxTotal,
			ShippingTotal: summary.ShippingTotal,
			GrandTotal:    summary.GrandTotal,
			Currency:      summary.Currency,
			Status:        models.OrderStatusNew,
			CreatedAt:     s.Repo.Now(),
		}

		orderItems := make([]models.OrderItem, 0, len(items))
		for _, it := range items {
			orderItems = append(orderItems, models.OrderItem{
				ID:         uuid.New(),
				ProductID:  it.ProductID,
				VariantID:  it.VariantID,
				Quantity:   it.Quantity,
				UnitPrice:  it.UnitPrice,
				TotalPrice: it.TotalPrice,
			})
		}
		return order, orderItems, nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("cart %s: %w", cartID, ErrNotFound)
		}
		return nil, err
	}

	publish(ctx, s.Producer, TopicCartEvents, cartID.String(), map[string]any{
		"type":     "order_created",
		"cart_id":  cartID,
		"order_id": order.ID,
		"total":    order.GrandTotal,
	})
	return &CheckoutResult{Order: order, Items: orderItems, Summary: summary}, nil
}
