package products

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/arepera-backend/pkg/db/models"
	"github.com/angelmondragon/arepera-backend/pkg/pagination"
)

// Repository persists catalog products.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a product repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByIDs returns the products that still exist, keyed by id.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	out := make(map[uuid.UUID]models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

func (r *Repository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

// Update writes the editable columns of product.
func (r *Repository) Update(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", product.ID).
		Updates(map[string]any{
			"name":        product.Name,
			"description": product.Description,
			"price":       product.Price,
			"image_url":   product.ImageURL,
			"category":    product.Category,
			"available":   product.Available,
			"updated_at":  time.Now().UTC(),
		}).Error
}

func (r *Repository) SetAvailable(ctx context.Context, id uuid.UUID, available bool) error {
	return r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", id).
		Update("available", available).Error
}

// Delete removes the product together with any cart lines pointing at it.
// Order item snapshots keep their copy of name and price.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	if err := r.db.WithContext(ctx).Where("product_id = ?", id).Delete(&models.CartItem{}).Error; err != nil {
		return 0, err
	}
	if err := r.db.WithContext(ctx).Model(&models.OrderItem{}).
		Where("product_id = ?", id).
		Update("product_id", nil).Error; err != nil {
		return 0, err
	}
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Product{})
	return res.RowsAffected, res.Error
}

type listQuery struct {
	Category      string
	AvailableOnly bool
	Pagination    pagination.Params
}

type listPage struct {
	Products   []models.Product
	NextCursor string
}

func (r *Repository) List(ctx context.Context, query listQuery) (*listPage, error) {
	cursor, err := pagination.ParseCursor(query.Pagination.Cursor)
	if err != nil {
		return nil, err
	}

	qb := r.db.WithContext(ctx).Model(&models.Product{})
	if query.AvailableOnly {
		qb = qb.Where("available = ?", true)
	}
	if query.Category != "" {
		qb = qb.Where("category = ?", query.Category)
	}
	if cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Product
	err = qb.Order("created_at DESC").Order("id DESC").
		Limit(pagination.LimitWithBuffer(query.Pagination.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	products, next := pagination.Trim(rows, query.Pagination.Limit, func(p models.Product) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})
	return &listPage{Products: products, NextCursor: next}, nil
}

// ListAll returns every product newest first.
func (r *Repository) ListAll(ctx context.Context) ([]models.Product, error) {
	var rows []models.Product
	err := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&rows).Error
	return rows, err
}

// Categories lists distinct categories of available products.
func (r *Repository) Categories(ctx context.Context) ([]string, error) {
	var categories []string
	err := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("available = ? AND category IS NOT NULL AND category <> ''", true).
		Distinct("category").
		Order("category ASC").
		Pluck("category", &categories).Error
	return categories, err
}
