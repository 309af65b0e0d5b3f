package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/arepera-backend/pkg/config"
	"github.com/angelmondragon/arepera-backend/pkg/db"
	"github.com/angelmondragon/arepera-backend/pkg/db/dbtest"
	"github.com/angelmondragon/arepera-backend/pkg/db/models"
	"github.com/angelmondragon/arepera-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/arepera-backend/pkg/errors"
	"github.com/angelmondragon/arepera-backend/pkg/logger"
	"github.com/angelmondragon/arepera-backend/pkg/outbox"
	"github.com/angelmondragon/arepera-backend/pkg/security"
)

func newRegisterService(t *testing.T) (RegisterService, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	svc, err := NewRegisterService(RegisterServiceParams{
		DB:             db.NewFromGorm(conn),
		Outbox:         outbox.NewService(outbox.NewRepository(conn), logger.Nop()),
		PasswordConfig: config.PasswordConfig{BcryptCost: 4},
	})
	require.NoError(t, err)
	return svc, conn
}

func validRegisterRequest() RegisterRequest {
	return RegisterRequest{
		Name:           "Ana Pérez",
		Email:          "Ana@Example.com",
		Password:       "Arepa123",
		RepeatPassword: "Arepa123",
	}
}

func TestRegisterCreatesPendingProfileWithWelcomeCoupon(t *testing.T) {
	svc, conn := newRegisterService(t)
	ctx := context.Background()

	resp, err := svc.Register(ctx, validRegisterRequest())
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", resp.User.Email)
	assert.Equal(t, enums.UserStatusPending, resp.User.Status)
	assert.Equal(t, enums.UserRoleUser, resp.User.Role)
	assert.True(t, strings.HasPrefix(resp.WelcomeCoupon, "WELCOME-"))
	assert.Len(t, resp.WelcomeCoupon, len("WELCOME-")+8)

	var profile models.Profile
	require.NoError(t, conn.First(&profile, "id = ?", resp.User.ID).Error)
	require.NotNil(t, profile.PasswordHash)
	ok, err := security.VerifyPassword("Arepa123", *profile.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)

	var coupon models.Coupon
	require.NoError(t, conn.First(&coupon, "code = ?", resp.WelcomeCoupon).Error)
	assert.Equal(t, 15, coupon.Discount)
	require.NotNil(t, coupon.MaxUses)
	assert.Equal(t, 1, *coupon.MaxUses)
	require.NotNil(t, coupon.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(30*24*time.Hour), *coupon.ExpiresAt, time.Minute)

	var usage models.CouponUsage
	require.NoError(t, conn.First(&usage, "coupon_id = ? AND user_id = ?", coupon.ID, profile.ID).Error)
	assert.False(t, usage.Used)

	var events int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).
		Where("event_type = ? AND aggregate_id = ?", enums.EventProfileRegistered, profile.ID).
		Count(&events).Error)
	assert.EqualValues(t, 1, events)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc, conn := newRegisterService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, validRegisterRequest())
	require.NoError(t, err)

	req := validRegisterRequest()
	req.Email = "ANA@example.com "
	_, err = svc.Register(ctx, req)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "got %v", err)

	var coupons int64
	require.NoError(t, conn.Model(&models.Coupon{}).Count(&coupons).Error)
	assert.EqualValues(t, 1, coupons)
}

func TestRegisterValidation(t *testing.T) {
	svc, conn := newRegisterService(t)

	cases := map[string]func(r *RegisterRequest){
		"missing name":     func(r *RegisterRequest) { r.Name = " " },
		"missing repeat":   func(r *RegisterRequest) { r.RepeatPassword = "" },
		"bad email":        func(r *RegisterRequest) { r.Email = "not-an-email" },
		"short password":   func(r *RegisterRequest) { r.Password, r.RepeatPassword = "Ab1", "Ab1" },
		"no digit":         func(r *RegisterRequest) { r.Password, r.RepeatPassword = "Arepaaaa", "Arepaaaa" },
		"no upper":         func(r *RegisterRequest) { r.Password, r.RepeatPassword = "arepa123", "arepa123" },
		"passwords differ": func(r *RegisterRequest) { r.RepeatPassword = "Arepa124" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := validRegisterRequest()
			mutate(&req)
			_, err := svc.Register(context.Background(), req)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
		})
	}

	var profiles int64
	require.NoError(t, conn.Model(&models.Profile{}).Count(&profiles).Error)
	assert.Zero(t, profiles)
}
