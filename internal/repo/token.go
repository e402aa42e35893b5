package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/commercium-dev/storefront/internal/models"
)

func (r *GormRepo) SaveRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	return r.DB.WithContext(ctx).Create(token).Error
}

// RotateRefreshToken revokes the presented token and records its successor in
// one transaction. The revocation is conditional on the row still being live,
// so a replayed (already rotated) token fails here instead of minting a
// second pair.
func (r *GormRepo) RotateRefreshToken(ctx context.Context, oldJTI string, next models.RefreshToken) error {
	now := r.Now().Unix()

	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.RefreshToken{}).
			Where("jti = ? AND revoked = ? AND expires_at > ?", oldJTI, false, now).
			Update("revoked", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		return tx.Create(&next).Error
	})
}

func (r *GormRepo) RevokeRefreshToken(ctx context.Context, jti string) error {
	return r.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("jti = ?", jti).
		Update("revoked", true).Error
}

func (r *GormRepo) RefreshTokenLive(ctx context.Context, jti string) (bool, error) {
	var count int64
	if err := r.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("jti = ? AND revoked = ? AND expires_at > ?", jti, false, r.Now().Unix()).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
