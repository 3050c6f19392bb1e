package models

import (
	"time"

	"github.com/google/uuid"
)

// Product represents a catalog listing with its live stock counters.
// Quantity and Sold only move through guarded updates so concurrent
// orders can never drive Quantity negative.
type Product struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Title       string    `gorm:"column:title;not null"`
	Description *string   `gorm:"column:description"`
	PriceCents  int64     `gorm:"column:price_cents;not null"`
	Quantity    int       `gorm:"column:quantity;not null;default:0"`
	Sold        int       `gorm:"column:sold;not null;default:0"`
	IsActive    bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
