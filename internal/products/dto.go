package products

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/arepera-backend/pkg/db/models"
)

// ProductDTO is the API representation of a product.
type ProductDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       int       `json:"price"`
	ImageURL    *string   `json:"imageUrl,omitempty"`
	Category    *string   `json:"category,omitempty"`
	Available   bool      `json:"available"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func FromModel(p models.Product) ProductDTO {
	return ProductDTO{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		ImageURL:    p.ImageURL,
		Category:    p.Category,
		Available:   p.Available,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func fromModels(rows []models.Product) []ProductDTO {
	out := make([]ProductDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row))
	}
	return out
}

// Input is the create/update payload for admins.
type Input struct {
	Name        string  `json:"name" validate:"required"`
	Description string  `json:"description" validate:"required"`
	Price       int     `json:"price" validate:"required,gt=0"`
	ImageURL    *string `json:"imageUrl"`
	Category    *string `json:"category"`
	Available   *bool   `json:"available"`
}

// ListInput filters the public catalog.
type ListInput struct {
	Category string
	Limit    int
	Cursor   string
}

// ListResult is one page of the public catalog.
type ListResult struct {
	Products   []ProductDTO `json:"products"`
	NextCursor string       `json:"nextCursor,omitempty"`
}
