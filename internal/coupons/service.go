package coupons

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/arepera-backend/pkg/auth"
	"github.com/angelmondragon/arepera-backend/pkg/db"
	"github.com/angelmondragon/arepera-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/arepera-backend/pkg/errors"
)

const (
	MinDiscount = 1
	MaxDiscount = 100
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// CreateInput describes a coupon an admin wants to issue. An empty Code
// generates one.
type CreateInput struct {
	Code        string     `json:"code"`
	Discount    int        `json:"discount" validate:"required,min=1,max=100"`
	Description *string    `json:"description"`
	ExpiresAt   *time.Time `json:"expiresAt"`
	MaxUses     *int       `json:"maxUses" validate:"omitempty,min=1"`
}

// Validation is the outcome of a successful coupon check.
type Validation struct {
	CouponID uuid.UUID `json:"couponId"`
	Code     string    `json:"code"`
	Discount int       `json:"discount"`
}

// Service is the coupon engine.
type Service interface {
	Create(ctx context.Context, caller auth.Caller, input CreateInput) (*models.Coupon, error)
	ToggleStatus(ctx context.Context, caller auth.Caller, id uuid.UUID) (*models.Coupon, error)
	Delete(ctx context.Context, caller auth.Caller, id uuid.UUID) error
	List(ctx context.Context, caller auth.Caller) ([]CouponWithUsage, error)
	Validate(ctx context.Context, code string, userID uuid.UUID) (*Validation, error)
	ValidateTx(ctx context.Context, tx *gorm.DB, code string, userID uuid.UUID) (*Validation, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]string, error)
	Assign(ctx context.Context, tx *gorm.DB, couponID, userID uuid.UUID) error
	Reserve(ctx context.Context, tx *gorm.DB, code string, userID uuid.UUID) (*Validation, error)
	Redeem(ctx context.Context, tx *gorm.DB, couponID, userID uuid.UUID) error
	Release(ctx context.Context, tx *gorm.DB, couponID, userID uuid.UUID) error
}

type service struct {
	tx   txRunner
	repo *Repository
	now  func() time.Time
}

func NewService(tx txRunner, repo *Repository) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	return &service{tx: tx, repo: repo, now: time.Now}, nil
}

func (s *service) Create(ctx context.Context, caller auth.Caller, input CreateInput) (*models.Coupon, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return nil, err
	}
	if input.Discount < MinDiscount || input.Discount > MaxDiscount {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount must be between 1 and 100").
			WithDetails(map[string]any{"discount": input.Discount})
	}
	if input.MaxUses != nil && *input.MaxUses < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "max uses must be positive")
	}

	code := NormalizeCode(input.Code)
	if code == "" {
		generated, err := GenerateCode(generatedPrefix)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate coupon code")
		}
		code = generated
	}

	coupon := &models.Coupon{
		Code:        code,
		CodeHash:    HashCode(code),
		Discount:    input.Discount,
		Description: trimmedOrNil(input.Description),
		ExpiresAt:   input.ExpiresAt,
		MaxUses:     input.MaxUses,
		Active:      true,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		exists, err := repo.ExistsByHash(ctx, coupon.CodeHash)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check coupon code")
		}
		if exists {
			return pkgerrors.New(pkgerrors.CodeConflict, "coupon code already exists")
		}
		if err := repo.Create(ctx, coupon); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "coupon code already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create coupon")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return coupon, nil
}

func (s *service) ToggleStatus(ctx context.Context, caller auth.Caller, id uuid.UUID) (*models.Coupon, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return nil, err
	}

	var coupon *models.Coupon
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		found, err := loadCoupon(ctx, repo, id)
		if err != nil {
			return err
		}
		if err := repo.SetActive(ctx, id, !found.Active); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "toggle coupon")
		}
		found.Active = !found.Active
		coupon = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return coupon, nil
}

func (s *service) Delete(ctx context.Context, caller auth.Caller, id uuid.UUID) error {
	if err := auth.RequireAdmin(caller); err != nil {
		return err
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := s.repo.WithTx(tx).Delete(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete coupon")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
		}
		return nil
	})
}

func (s *service) List(ctx context.Context, caller auth.Caller) ([]CouponWithUsage, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListWithUsage(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list coupons")
	}
	return rows, nil
}

func (s *service) Validate(ctx context.Context, code string, userID uuid.UUID) (*Validation, error) {
	return s.validate(ctx, s.repo, code, userID)
}

// ValidateTx runs the same checks as Validate on an open transaction.
func (s *service) ValidateTx(ctx context.Context, tx *gorm.DB, code string, userID uuid.UUID) (*Validation, error) {
	return s.validate(ctx, s.repo.WithTx(tx), code, userID)
}

func (s *service) validate(ctx context.Context, repo *Repository, code string, userID uuid.UUID) (*Validation, error) {
	normalized := NormalizeCode(code)
	if normalized == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidCoupon, "coupon code required")
	}

	coupon, err := repo.FindByHash(ctx, HashCode(normalized))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidCoupon, "coupon not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup coupon")
	}
	if !coupon.Active {
		return nil, pkgerrors.New(pkgerrors.CodeInactiveCoupon, "coupon is not active")
	}
	if coupon.IsExpired(s.now()) {
		return nil, pkgerrors.New(pkgerrors.CodeExpiredCoupon, "coupon has expired")
	}
	if coupon.IsExhausted() {
		return nil, pkgerrors.New(pkgerrors.CodeExhaustedCoupon, "coupon usage limit reached")
	}

	if userID != uuid.Nil {
		usage, err := repo.FindUsage(ctx, coupon.ID, userID)
		switch {
		case err == nil && usage.Used:
			return nil, pkgerrors.New(pkgerrors.CodeCouponAlreadyUsed, "coupon already used")
		case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup coupon usage")
		}
	}

	return &Validation{CouponID: coupon.ID, Code: coupon.Code, Discount: coupon.Discount}, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID) ([]string, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	codes, err := s.repo.ListActiveCodesForUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list user coupons")
	}
	if codes == nil {
		codes = []string{}
	}
	return codes, nil
}

// Assign binds a coupon to a user without consuming it. Assigning twice is a no-op.
func (s *service) Assign(ctx context.Context, tx *gorm.DB, couponID, userID uuid.UUID) error {
	if err := s.repo.WithTx(tx).AssignUsage(ctx, couponID, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign coupon")
	}
	return nil
}

// Reserve re-checks the code on tx and consumes one use. The use is held
// until Release gives it back.
func (s *service) Reserve(ctx context.Context, tx *gorm.DB, code string, userID uuid.UUID) (*Validation, error) {
	validation, err := s.ValidateTx(ctx, tx, code, userID)
	if err != nil {
		return nil, err
	}
	if err := s.Redeem(ctx, tx, validation.CouponID, userID); err != nil {
		return nil, err
	}
	return validation, nil
}

// Release returns a use taken by Reserve. Releasing a use that was never
// taken changes nothing.
func (s *service) Release(ctx context.Context, tx *gorm.DB, couponID, userID uuid.UUID) error {
	repo := s.repo.WithTx(tx)
	rows, err := repo.ReleaseUsage(ctx, couponID, userID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release coupon usage")
	}
	if rows == 0 {
		return nil
	}
	if _, err := repo.DecrementUsed(ctx, couponID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release coupon use")
	}
	return nil
}

// Redeem consumes one use of the coupon for userID.
func (s *service) Redeem(ctx context.Context, tx *gorm.DB, couponID, userID uuid.UUID) error {
	repo := s.repo.WithTx(tx)
	now := s.now().UTC()

	rows, err := repo.MarkUsageUsed(ctx, couponID, userID, now)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark coupon usage")
	}
	if rows == 0 {
		_, err := repo.FindUsage(ctx, couponID, userID)
		switch {
		case err == nil:
			return pkgerrors.New(pkgerrors.CodeCouponAlreadyUsed, "coupon already used")
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup coupon usage")
		}
		usage := &models.CouponUsage{CouponID: couponID, UserID: userID, Used: true, UsedAt: &now}
		if err := repo.CreateUsage(ctx, usage); err != nil {
			if db.IsUniqueViolation(err, "ux_coupon_usages_coupon_user") {
				return pkgerrors.New(pkgerrors.CodeCouponAlreadyUsed, "coupon already used")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record coupon usage")
		}
	}

	rows, err = repo.IncrementIfAvailable(ctx, couponID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment coupon usage")
	}
	if rows == 0 {
		return pkgerrors.New(pkgerrors.CodeExhaustedCoupon, "coupon usage limit reached")
	}
	return nil
}

func loadCoupon(ctx context.Context, repo *Repository, id uuid.UUID) (*models.Coupon, error) {
	coupon, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}
	return coupon, nil
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
