package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/commercium-dev/storefront/internal/models"
)

// ConvertCart flips an active cart to converted and materializes the order
// rows from its line items, all inside one transaction. The status flip is
// the serialization point: once it lands, every item mutation's active-cart
// guard fails, so the items read here are final. The build callback turns the
// frozen items into the order without re-reading anything.
func (r *GormRepo) ConvertCart(ctx context.Context, cartID uuid.UUID, build func(cart *models.Cart, items []models.CartItem) (*models.Order, []models.OrderItem, error)) (*models.Order, []models.OrderItem, error) {
	now := r.Now()
	var (
		order      *models.Order
		orderItems []models.OrderItem
	)

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Cart{}).
			Where("id = ? AND status = ? AND (expires_at IS NULL OR expires_at > ?)",
				cartID, models.CartStatusActive, now).
			Update("status", models.CartStatusConverted)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		var cart models.Cart
		if err := tx.Where("id = ?", cartID).First(&cart).Error; err != nil {
			return err
		}

		var items []models.CartItem
		if err := tx.Where("cart_id = ?", cartID).Order("id ASC").Find(&items).Error; err != nil {
			return err
		}

		built, builtItems, err := build(&cart, items)
		if err != nil {
			return err
		}

		if err := tx.Create(built).Error; err != nil {
			return err
		}
		for i := range builtItems {
			builtItems[i].OrderID = built.ID
			if err := tx.Create(&builtItems[i]).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}

		order = built
		orderItems = builtItems
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return order, orderItems, nil
}

func (r *GormRepo) ListOrders(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Order, error) {
	var orders []models.Order
	if err := r.DB.WithContext(ctx).Model(&models.Order{}).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}
