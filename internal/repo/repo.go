package repo

import (
	"time"

	"gorm.io/gorm"

	"github.com/commercium-dev/storefront/internal/models"
)

// GormRepo is the injected persistence handle. The Now hook exists so tests
// can pin the clock that every expiry predicate uses.
type GormRepo struct {
	DB  *gorm.DB
	Now func() time.Time
}

func NewGormRepo(db *gorm.DB) *GormRepo {
	return &GormRepo{
		DB:  db,
		Now: func() time.Time { return time.Now().UTC() },
	}
}

// activeCartIDs is the shared reachability predicate: a cart is usable only
// while status is active and its TTL, if any, has not lapsed. The sweep job
// uses the inverse of the same predicate.
func (r *GormRepo) activeCartIDs(now time.Time) *gorm.DB {
	return r.DB.Model(&models.Cart{}).
		Select("id").
		Where("status = ? AND (expires_at IS NULL OR expires_at > ?)", models.CartStatusActive, now)
}
