package coupons

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/arepera-backend/pkg/db/models"
)

// CouponDTO is the admin view of a coupon. CodeHash never leaves the service.
type CouponDTO struct {
	ID          uuid.UUID  `json:"id"`
	Code        string     `json:"code"`
	Discount    int        `json:"discount"`
	Description *string    `json:"description,omitempty"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	MaxUses     *int       `json:"maxUses,omitempty"`
	UsedCount   int        `json:"usedCount"`
	Active      bool       `json:"active"`
	UsageCount  int64      `json:"usageCount"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func FromModel(c *models.Coupon) *CouponDTO {
	if c == nil {
		return nil
	}
	return &CouponDTO{
		ID:          c.ID,
		Code:        c.Code,
		Discount:    c.Discount,
		Description: c.Description,
		ExpiresAt:   c.ExpiresAt,
		MaxUses:     c.MaxUses,
		UsedCount:   c.UsedCount,
		Active:      c.Active,
		CreatedAt:   c.CreatedAt,
	}
}

// FromUsageRows maps admin listing rows, carrying the assignment count.
func FromUsageRows(rows []CouponWithUsage) []CouponDTO {
	out := make([]CouponDTO, 0, len(rows))
	for i := range rows {
		dto := FromModel(&rows[i].Coupon)
		dto.UsageCount = rows[i].UsageCount
		out = append(out, *dto)
	}
	return out
}
