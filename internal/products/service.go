package products

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/arepera-backend/pkg/auth"
	"github.com/angelmondragon/arepera-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/arepera-backend/pkg/errors"
	"github.com/angelmondragon/arepera-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes catalog reads and admin product management.
type Service interface {
	List(ctx context.Context, input ListInput) (*ListResult, error)
	Categories(ctx context.Context) ([]string, error)
	Get(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	ListAdmin(ctx context.Context, caller auth.Caller) ([]ProductDTO, error)
	Create(ctx context.Context, caller auth.Caller, input Input) (*ProductDTO, error)
	Update(ctx context.Context, caller auth.Caller, id uuid.UUID, input Input) (*ProductDTO, error)
	Delete(ctx context.Context, caller auth.Caller, id uuid.UUID) error
	ToggleAvailability(ctx context.Context, caller auth.Caller, id uuid.UUID) (*ProductDTO, error)
}

type service struct {
	tx   txRunner
	repo *Repository
}

// NewService builds the product service.
func NewService(tx txRunner, repo *Repository) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &service{tx: tx, repo: repo}, nil
}

func (s *service) List(ctx context.Context, input ListInput) (*ListResult, error) {
	if _, err := pagination.ParseCursor(input.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	page, err := s.repo.List(ctx, listQuery{
		Category:      strings.TrimSpace(input.Category),
		AvailableOnly: true,
		Pagination:    pagination.Params{Limit: input.Limit, Cursor: input.Cursor},
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return &ListResult{Products: fromModels(page.Products), NextCursor: page.NextCursor}, nil
}

func (s *service) Categories(ctx context.Context) ([]string, error) {
	categories, err := s.repo.Categories(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	if categories == nil {
		categories = []string{}
	}
	return categories, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := loadProduct(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	dto := FromModel(*product)
	return &dto, nil
}

func (s *service) ListAdmin(ctx context.Context, caller auth.Caller) ([]ProductDTO, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return fromModels(rows), nil
}

func (s *service) Create(ctx context.Context, caller auth.Caller, input Input) (*ProductDTO, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return nil, err
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}

	product := &models.Product{
		Name:        strings.TrimSpace(input.Name),
		Description: strings.TrimSpace(input.Description),
		Price:       input.Price,
		ImageURL:    emptyToNil(input.ImageURL),
		Category:    emptyToNil(input.Category),
		Available:   true,
	}
	available := input.Available == nil || *input.Available

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, product); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
		}
		if !available {
			if err := repo.SetAvailable(ctx, product.ID, false); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
			}
			product.Available = false
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	dto := FromModel(*product)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, caller auth.Caller, id uuid.UUID, input Input) (*ProductDTO, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return nil, err
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}

	var updated *models.Product
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		product, err := loadProduct(ctx, repo, id)
		if err != nil {
			return err
		}
		product.Name = strings.TrimSpace(input.Name)
		product.Description = strings.TrimSpace(input.Description)
		product.Price = input.Price
		product.ImageURL = emptyToNil(input.ImageURL)
		product.Category = emptyToNil(input.Category)
		if input.Available != nil {
			product.Available = *input.Available
		}
		if err := repo.Update(ctx, product); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
		}
		updated, err = loadProduct(ctx, repo, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	dto := FromModel(*updated)
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, caller auth.Caller, id uuid.UUID) error {
	if err := auth.RequireAdmin(caller); err != nil {
		return err
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := s.repo.WithTx(tx).Delete(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil
	})
}

func (s *service) ToggleAvailability(ctx context.Context, caller auth.Caller, id uuid.UUID) (*ProductDTO, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return nil, err
	}
	var product *models.Product
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		found, err := loadProduct(ctx, repo, id)
		if err != nil {
			return err
		}
		if err := repo.SetAvailable(ctx, id, !found.Available); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "toggle product")
		}
		found.Available = !found.Available
		product = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	dto := FromModel(*product)
	return &dto, nil
}

func validateInput(input Input) error {
	details := map[string]string{}
	if strings.TrimSpace(input.Name) == "" {
		details["name"] = "required"
	}
	if strings.TrimSpace(input.Description) == "" {
		details["description"] = "required"
	}
	if input.Price <= 0 {
		details["price"] = "must be greater than zero"
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid product").WithDetails(details)
	}
	return nil
}

func loadProduct(ctx context.Context, repo *Repository, id uuid.UUID) (*models.Product, error) {
	product, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

func emptyToNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
