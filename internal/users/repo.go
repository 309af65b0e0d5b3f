package users

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/arepera-backend/pkg/auth"
	"github.com/angelmondragon/arepera-backend/pkg/db/models"
	"github.com/angelmondragon/arepera-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/arepera-backend/pkg/errors"
)

// Repository exposes profile persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Create inserts a new profile and returns the persisted model.
func (r *Repository) Create(ctx context.Context, dto CreateProfileDTO) (*models.Profile, error) {
	profile := dto.ToModel()
	if err := r.db.WithContext(ctx).Create(profile).Error; err != nil {
		return nil, err
	}
	return profile, nil
}

// FindByEmail retrieves the profile matching the provided email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// FindByID loads a profile by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).First(&profile, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// List returns every profile newest first.
func (r *Repository) List(ctx context.Context) ([]models.Profile, error) {
	var profiles []models.Profile
	err := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&profiles).Error
	return profiles, err
}

func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.UserStatus) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Profile{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "updated_at": time.Now().UTC()})
	return res.RowsAffected, res.Error
}

func (r *Repository) UpdateRole(ctx context.Context, id uuid.UUID, role enums.UserRole) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Profile{}).
		Where("id = ?", id).
		Updates(map[string]any{"role": role, "updated_at": time.Now().UTC()})
	return res.RowsAffected, res.Error
}

// LoadCaller resolves the current role and status of a profile for request
// authorization.
func (r *Repository) LoadCaller(ctx context.Context, id uuid.UUID) (auth.Caller, error) {
	profile, err := r.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return auth.Caller{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "profile not found")
		}
		return auth.Caller{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profile")
	}
	return auth.Caller{UserID: profile.ID, Role: profile.Role, Status: profile.Status}, nil
}
