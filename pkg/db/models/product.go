package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is a catalog entry. Price is in minor currency units.
type Product struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string    `gorm:"column:name;not null"`
	Description string    `gorm:"column:description;not null"`
	Price       int       `gorm:"column:price;not null"`
	ImageURL    *string   `gorm:"column:image_url"`
	Category    *string   `gorm:"column:category"`
	Available   bool      `gorm:"column:available;not null;default:true"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Product) TableName() string { return "products" }
