package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lc3lx/backend-zouhal/pkg/enums"
)

// ExchangeRate stores a conversion rate between two currencies. At most
// one row per pair is active at a time.
type ExchangeRate struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	FromCurrency enums.Currency  `gorm:"column:from_currency;type:text;not null"`
	ToCurrency   enums.Currency  `gorm:"column:to_currency;type:text;not null"`
	Rate         decimal.Decimal `gorm:"column:rate;type:numeric(18,6);not null"`
	IsActive     bool            `gorm:"column:is_active;not null;default:true"`
	UpdatedBy    *uuid.UUID      `gorm:"column:updated_by;type:uuid"`
	LastUpdated  time.Time       `gorm:"column:last_updated;autoUpdateTime"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
}
