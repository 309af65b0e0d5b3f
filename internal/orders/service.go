package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/arepera-backend/pkg/auth"
	pkgerrors "github.com/angelmondragon/arepera-backend/pkg/errors"
)

// Service exposes the caller's order history.
type Service interface {
	List(ctx context.Context, caller auth.Caller) ([]OrderDTO, error)
	Get(ctx context.Context, caller auth.Caller, id uuid.UUID) (*OrderDTO, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, caller auth.Caller) ([]OrderDTO, error) {
	if !caller.IsAuthenticated() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	rows, err := s.repo.ListByUser(ctx, caller.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	out := make([]OrderDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row))
	}
	return out, nil
}

// Get hides other users' orders behind NotFound and includes the masked
// payment attempts.
func (s *service) Get(ctx context.Context, caller auth.Caller, id uuid.UUID) (*OrderDTO, error) {
	if !caller.IsAuthenticated() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	order, err := s.repo.FindByIDAndUser(ctx, id, caller.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	payments, err := s.repo.ListPaymentsByOrder(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payments")
	}
	dto := FromModel(*order)
	dto.Payments = PaymentsFromModels(payments)
	return &dto, nil
}
