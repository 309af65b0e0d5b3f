package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/angelmondragon/arepera-backend/internal/coupons"
	"github.com/angelmondragon/arepera-backend/internal/users"
	"github.com/angelmondragon/arepera-backend/pkg/config"
	"github.com/angelmondragon/arepera-backend/pkg/db"
	"github.com/angelmondragon/arepera-backend/pkg/db/models"
	"github.com/angelmondragon/arepera-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/arepera-backend/pkg/errors"
	"github.com/angelmondragon/arepera-backend/pkg/outbox"
	"github.com/angelmondragon/arepera-backend/pkg/security"
)

const (
	welcomeDiscount = 15
	welcomeValidity = 30 * 24 * time.Hour
)

// RegisterService handles the sign-up transaction.
type RegisterService interface {
	Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error)
}

// RegisterServiceParams packages the dependencies for the registration flow.
type RegisterServiceParams struct {
	DB             *db.Client
	Outbox         outbox.Emitter
	PasswordConfig config.PasswordConfig
}

type registerService struct {
	db          *db.Client
	outbox      outbox.Emitter
	passwordCfg config.PasswordConfig
	validate    *validator.Validate
	now         func() time.Time
}

// NewRegisterService builds a registration service with the provided dependencies.
func NewRegisterService(params RegisterServiceParams) (RegisterService, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "database client required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbox emitter required")
	}
	return &registerService{
		db:          params.DB,
		outbox:      params.Outbox,
		passwordCfg: params.PasswordConfig,
		validate:    validator.New(),
		now:         func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *registerService) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	name := strings.TrimSpace(req.Name)
	email := users.NormalizeEmail(req.Email)
	if name == "" || email == "" || req.Password == "" || req.RepeatPassword == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name, email, password and repeatPassword are required")
	}
	if err := s.validate.Var(email, "email"); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid email")
	}
	if err := security.CheckStrength(req.Password); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	if req.Password != req.RepeatPassword {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "passwords do not match")
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	code, err := coupons.GenerateCode(coupons.WelcomePrefix)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate welcome coupon")
	}

	var profile *models.Profile
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		userRepo := users.NewRepository(tx)
		if _, err := userRepo.FindByEmail(ctx, email); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup email")
		}

		created, err := userRepo.Create(ctx, users.CreateProfileDTO{
			Email:        email,
			PasswordHash: passwordHash,
			FullName:     name,
			Role:         enums.UserRoleUser,
			Status:       enums.UserStatusPending,
		})
		if err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "email already registered")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create profile")
		}
		profile = created

		if err := s.createWelcomeCoupon(ctx, tx, code, created); err != nil {
			return err
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventProfileRegistered,
			AggregateType: enums.AggregateProfile,
			AggregateID:   created.ID,
			Data:          outbox.ProfileEvent{UserID: created.ID, Email: created.Email, Status: string(created.Status)},
		})
	})
	if err != nil {
		return nil, err
	}

	return &RegisterResponse{User: users.FromModel(profile), WelcomeCoupon: code}, nil
}

func (s *registerService) createWelcomeCoupon(ctx context.Context, tx *gorm.DB, code string, profile *models.Profile) error {
	couponRepo := coupons.NewRepository(tx)
	expires := s.now().Add(welcomeValidity)
	maxUses := 1
	description := "Cupón de bienvenida"
	coupon := &models.Coupon{
		Code:        code,
		CodeHash:    coupons.HashCode(code),
		Discount:    welcomeDiscount,
		Description: &description,
		ExpiresAt:   &expires,
		MaxUses:     &maxUses,
		Active:      true,
	}
	if err := couponRepo.Create(ctx, coupon); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create welcome coupon")
	}
	if err := couponRepo.AssignUsage(ctx, coupon.ID, profile.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign welcome coupon")
	}
	return nil
}
