package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/commercium-dev/storefront/internal/models"
)

func (r *GormRepo) FindActiveCartByID(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := r.DB.WithContext(ctx).
		Where("id = ? AND status = ? AND (expires_at IS NULL OR expires_at > ?)",
			id, models.CartStatusActive, r.Now()).
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *GormRepo) FindActiveCartBySession(ctx context.Context, sessionID string) (*models.Cart, error) {
	var cart models.Cart
	err := r.DB.WithContext(ctx).
		Where("session_id = ? AND status = ? AND (expires_at IS NULL OR expires_at > ?)",
			sessionID, models.CartStatusActive, r.Now()).
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *GormRepo) FindActiveCartByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND status = ? AND (expires_at IS NULL OR expires_at > ?)",
			userID, models.CartStatusActive, r.Now()).
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *GormRepo) CreateCart(ctx context.Context, cart *models.Cart) error {
	return r.DB.WithContext(ctx).Create(cart).Error
}

func (r *GormRepo) ListItems(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error) {
	var items []models.CartItem
	if err := r.DB.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Order("id ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// AddOrIncrementItem bumps the quantity of an existing line in a single
// conditional UPDATE, recomputing total_price from the snapshotted unit_price
// in the same statement. When no line matches, the cart's liveness is
// re-checked and a new line is created with the caller-supplied price
// snapshot. Increments never re-read the catalog.
func (r *GormRepo) AddOrIncrementItem(ctx context.Context, cartID, productID uuid.UUID, variantID *uuid.UUID, quantity uint, unitPrice decimal.Decimal, attrs map[string]string) (*models.CartItem, error) {
	now := r.Now()
	var item models.CartItem

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&models.CartItem{}).
			Where("cart_id = ? AND product_id = ?", cartID, productID).
			Where("cart_id IN (?)", r.activeCartIDs(now))
		if variantID == nil {
			q = q.Where("variant_id IS NULL")
		} else {
			q = q.Where("variant_id = ?", *variantID)
		}

		res := q.Updates(map[string]any{
			"quantity":    gorm.Expr("quantity + ?", quantity),
			"total_price": gorm.Expr("unit_price * (quantity + ?)", quantity),
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			fetch := tx.Where("cart_id = ? AND product_id = ?", cartID, productID)
			if variantID == nil {
				fetch = fetch.Where("variant_id IS NULL")
			} else {
				fetch = fetch.Where("variant_id = ?", *variantID)
			}
			return fetch.First(&item).Error
		}

		var cart models.Cart
		if err := tx.
			Where("id = ? AND status = ? AND (expires_at IS NULL OR expires_at > ?)",
				cartID, models.CartStatusActive, now).
			First(&cart).Error; err != nil {
			return err
		}

		item = models.CartItem{
			ID:         uuid.New(),
			CartID:     cartID,
			ProductID:  productID,
			VariantID:  variantID,
			Quantity:   quantity,
			UnitPrice:  unitPrice,
			TotalPrice: unitPrice.Mul(decimal.NewFromInt(int64(quantity))),
			Attributes: attrs,
		}
		return tx.Create(&item).Error
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// SetItemQuantity writes quantity and the derived total in one conditional
// UPDATE so no intermediate state where they disagree is ever observable.
// Zero affected rows means the item does not belong to that cart or the cart
// is no longer reachable.
func (r *GormRepo) SetItemQuantity(ctx context.Context, cartID, itemID uuid.UUID, quantity uint) (*models.CartItem, error) {
	now := r.Now()

	res := r.DB.WithContext(ctx).Model(&models.CartItem{}).
		Where("id = ? AND cart_id = ?", itemID, cartID).
		Where("cart_id IN (?)", r.activeCartIDs(now)).
		Updates(map[string]any{
			"quantity":    quantity,
			"total_price": gorm.Expr("unit_price * ?", quantity),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}

	var item models.CartItem
	if err := r.DB.WithContext(ctx).
		Where("id = ? AND cart_id = ?", itemID, cartID).
		First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *GormRepo) RemoveItem(ctx context.Context, cartID, itemID uuid.UUID) (*models.CartItem, error) {
	now := r.Now()
	var item models.CartItem

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("id = ? AND cart_id = ?", itemID, cartID).
			Where("cart_id IN (?)", r.activeCartIDs(now)).
			First(&item).Error; err != nil {
			return err
		}

		res := tx.
			Where("id = ? AND cart_id = ?", itemID, cartID).
			Delete(&models.CartItem{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ExtendCartExpiration is a compare-and-swap on the previous expires_at: a
// concurrent extension or a lapse between read and write leaves zero affected
// rows instead of silently double-applying.
func (r *GormRepo) ExtendCartExpiration(ctx context.Context, cartID uuid.UUID, extension time.Duration) (*time.Time, error) {
	now := r.Now()

	var cart models.Cart
	if err := r.DB.WithContext(ctx).
		Where("id = ? AND status = ? AND expires_at IS NOT NULL AND expires_at > ?",
			cartID, models.CartStatusActive, now).
		First(&cart).Error; err != nil {
		return nil, err
	}

	newExp := cart.ExpiresAt.Add(extension)
	res := r.DB.WithContext(ctx).Model(&models.Cart{}).
		Where("id = ? AND status = ? AND expires_at = ?", cartID, models.CartStatusActive, *cart.ExpiresAt).
		Update("expires_at", newExp)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &newExp, nil
}

// SweepExpiredCarts flips lapsed guest carts to expired and drops their
// items. Reads already treat such carts as absent; the sweep only reclaims
// rows, using the same `now >= expires_at` predicate.
func (r *GormRepo) SweepExpiredCarts(ctx context.Context) (int64, error) {
	now := r.Now()
	var swept int64

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lapsed := tx.Model(&models.Cart{}).
			Select("id").
			Where("status = ? AND expires_at IS NOT NULL AND expires_at <= ?", models.CartStatusActive, now)

		if err := tx.Where("cart_id IN (?)", lapsed).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}

		res := tx.Model(&models.Cart{}).
			Where("status = ? AND expires_at IS NOT NULL AND expires_at <= ?", models.CartStatusActive, now).
			Update("status", models.CartStatusExpired)
		if res.Error != nil {
			return res.Error
		}
		swept = res.RowsAffected
		return nil
	})
	return swept, err
}
