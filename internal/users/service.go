package users

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/arepera-backend/pkg/auth"
	"github.com/angelmondragon/arepera-backend/pkg/db/models"
	"github.com/angelmondragon/arepera-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/arepera-backend/pkg/errors"
	"github.com/angelmondragon/arepera-backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service is the admin user back office.
type Service interface {
	List(ctx context.Context, caller auth.Caller) ([]ProfileDTO, error)
	Approve(ctx context.Context, caller auth.Caller, id uuid.UUID) (*ProfileDTO, error)
	Reject(ctx context.Context, caller auth.Caller, id uuid.UUID) (*ProfileDTO, error)
	ChangeRole(ctx context.Context, caller auth.Caller, id uuid.UUID, role string) (*ProfileDTO, error)
}

type service struct {
	tx     txRunner
	repo   *Repository
	outbox outbox.Emitter
}

func NewService(tx txRunner, repo *Repository, emitter outbox.Emitter) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{tx: tx, repo: repo, outbox: emitter}, nil
}

func (s *service) List(ctx context.Context, caller auth.Caller) ([]ProfileDTO, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return nil, err
	}
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list profiles")
	}
	out := make([]ProfileDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) Approve(ctx context.Context, caller auth.Caller, id uuid.UUID) (*ProfileDTO, error) {
	return s.setStatus(ctx, caller, id, enums.UserStatusApproved)
}

func (s *service) Reject(ctx context.Context, caller auth.Caller, id uuid.UUID) (*ProfileDTO, error) {
	return s.setStatus(ctx, caller, id, enums.UserStatusRejected)
}

func (s *service) setStatus(ctx context.Context, caller auth.Caller, id uuid.UUID, status enums.UserStatus) (*ProfileDTO, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return nil, err
	}

	var updated *models.Profile
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		rows, err := repo.UpdateStatus(ctx, id, status)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update profile status")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		profile, err := repo.FindByID(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload profile")
		}
		updated = profile
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventProfileStatusSet,
			AggregateType: enums.AggregateProfile,
			AggregateID:   profile.ID,
			Actor:         &outbox.ActorRef{UserID: caller.UserID, Role: string(caller.Role)},
			Data:          outbox.ProfileEvent{UserID: profile.ID, Email: profile.Email, Status: string(profile.Status)},
		})
	})
	if err != nil {
		return nil, err
	}
	return FromModel(updated), nil
}

func (s *service) ChangeRole(ctx context.Context, caller auth.Caller, id uuid.UUID, role string) (*ProfileDTO, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return nil, err
	}
	parsed, err := enums.ParseUserRole(role)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid role")
	}

	var updated *models.Profile
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		rows, err := repo.UpdateRole(ctx, id, parsed)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update profile role")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		updated, err = repo.FindByID(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload profile")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromModel(updated), nil
}
