package models

import "github.com/google/uuid"

// OrderItem snapshots name and price at purchase time. Rows are never updated.
type OrderItem struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID  `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID   *uuid.UUID `gorm:"column:product_id;type:uuid"`
	ProductName string     `gorm:"column:product_name;not null"`
	Price       int        `gorm:"column:price;not null"`
	Quantity    int        `gorm:"column:quantity;not null"`
}

func (OrderItem) TableName() string { return "order_items" }

// LineTotal returns Price * Quantity.
func (i OrderItem) LineTotal() int {
	return i.Price * i.Quantity
}
