package coupons

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/arepera-backend/pkg/db/models"
)

// CouponWithUsage is an admin listing row.
type CouponWithUsage struct {
	models.Coupon `gorm:"embedded"`
	UsageCount    int64 `gorm:"column:usage_count"`
}

// Repository persists coupons and their usage rows.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx scopes the repository to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, coupon *models.Coupon) error {
	return r.db.WithContext(ctx).Create(coupon).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	var coupon models.Coupon
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&coupon).Error; err != nil {
		return nil, err
	}
	return &coupon, nil
}

func (r *Repository) FindByHash(ctx context.Context, hash string) (*models.Coupon, error) {
	var coupon models.Coupon
	if err := r.db.WithContext(ctx).Where("code_hash = ?", hash).First(&coupon).Error; err != nil {
		return nil, err
	}
	return &coupon, nil
}

func (r *Repository) ExistsByHash(ctx context.Context, hash string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Coupon{}).Where("code_hash = ?", hash).Count(&count).Error
	return count > 0, err
}

func (r *Repository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return r.db.WithContext(ctx).Model(&models.Coupon{}).
		Where("id = ?", id).
		Update("active", active).Error
}

// Delete removes the coupon and every usage row pointing at it.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	if err := r.db.WithContext(ctx).Where("coupon_id = ?", id).Delete(&models.CouponUsage{}).Error; err != nil {
		return 0, err
	}
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Coupon{})
	return res.RowsAffected, res.Error
}

// ListWithUsage returns every coupon newest first with its usage row count.
func (r *Repository) ListWithUsage(ctx context.Context) ([]CouponWithUsage, error) {
	var rows []CouponWithUsage
	err := r.db.WithContext(ctx).
		Table("coupons").
		Select("coupons.*, COUNT(coupon_usages.id) AS usage_count").
		Joins("LEFT JOIN coupon_usages ON coupon_usages.coupon_id = coupons.id").
		Group("coupons.id").
		Order("coupons.created_at DESC").
		Scan(&rows).Error
	return rows, err
}

// ListActiveCodesForUser returns codes of active coupons assigned to userID, newest first.
func (r *Repository) ListActiveCodesForUser(ctx context.Context, userID uuid.UUID) ([]string, error) {
	var codes []string
	err := r.db.WithContext(ctx).
		Table("coupons").
		Joins("JOIN coupon_usages ON coupon_usages.coupon_id = coupons.id").
		Where("coupon_usages.user_id = ? AND coupons.active = ?", userID, true).
		Order("coupons.created_at DESC").
		Pluck("coupons.code", &codes).Error
	return codes, err
}

func (r *Repository) FindUsage(ctx context.Context, couponID, userID uuid.UUID) (*models.CouponUsage, error) {
	var usage models.CouponUsage
	err := r.db.WithContext(ctx).
		Where("coupon_id = ? AND user_id = ?", couponID, userID).
		First(&usage).Error
	if err != nil {
		return nil, err
	}
	return &usage, nil
}

func (r *Repository) CreateUsage(ctx context.Context, usage *models.CouponUsage) error {
	return r.db.WithContext(ctx).Create(usage).Error
}

// AssignUsage inserts an unused usage row unless the pair already exists.
func (r *Repository) AssignUsage(ctx context.Context, couponID, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "coupon_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).
		Create(&models.CouponUsage{CouponID: couponID, UserID: userID}).Error
}

// ReleaseUsage flips a used row back to unused.
func (r *Repository) ReleaseUsage(ctx context.Context, couponID, userID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.CouponUsage{}).
		Where("coupon_id = ? AND user_id = ? AND used = ?", couponID, userID, true).
		Updates(map[string]any{"used": false, "used_at": nil})
	return res.RowsAffected, res.Error
}

// DecrementUsed gives back one use, never going below zero.
func (r *Repository) DecrementUsed(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Coupon{}).
		Where("id = ? AND used_count > 0", id).
		UpdateColumn("used_count", gorm.Expr("used_count - 1"))
	return res.RowsAffected, res.Error
}

// MarkUsageUsed flips an unused usage row. It affects zero rows when the row
// is missing or already used.
func (r *Repository) MarkUsageUsed(ctx context.Context, couponID, userID uuid.UUID, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.CouponUsage{}).
		Where("coupon_id = ? AND user_id = ? AND used = ?", couponID, userID, false).
		Updates(map[string]any{"used": true, "used_at": at})
	return res.RowsAffected, res.Error
}

// IncrementIfAvailable bumps used_count only while the coupon is active and
// below its limit. Zero rows affected means the last use is gone.
func (r *Repository) IncrementIfAvailable(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Coupon{}).
		Where("id = ? AND active = ? AND (max_uses IS NULL OR used_count < max_uses)", id, true).
		UpdateColumn("used_count", gorm.Expr("used_count + 1"))
	return res.RowsAffected, res.Error
}
