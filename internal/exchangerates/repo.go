package exchangerates

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/lc3lx/backend-zouhal/pkg/db/models"
	"github.com/lc3lx/backend-zouhal/pkg/enums"
)

// Repository defines persistence for currency conversion rates.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindActive(ctx context.Context, from, to enums.Currency) (*models.ExchangeRate, error)
	DeactivatePair(ctx context.Context, from, to enums.Currency) error
	Create(ctx context.Context, rate *models.ExchangeRate) (*models.ExchangeRate, error)
	ListActive(ctx context.Context) ([]models.ExchangeRate, error)
	ListHistory(ctx context.Context, from, to enums.Currency, limit int) ([]models.ExchangeRate, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an exchange rates repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindActive(ctx context.Context, from, to enums.Currency) (*models.ExchangeRate, error) {
	var rate models.ExchangeRate
	err := r.db.WithContext(ctx).
		Where("from_currency = ? AND to_currency = ? AND is_active = ?", from, to, true).
		First(&rate).Error
	if err != nil {
		return nil, err
	}
	return &rate, nil
}

func (r *repository) DeactivatePair(ctx context.Context, from, to enums.Currency) error {
	return r.db.WithContext(ctx).
		Model(&models.ExchangeRate{}).
		Where("from_currency = ? AND to_currency = ? AND is_active = ?", from, to, true).
		Update("is_active", false).Error
}

func (r *repository) Create(ctx context.Context, rate *models.ExchangeRate) (*models.ExchangeRate, error) {
	if err := r.db.WithContext(ctx).Create(rate).Error; err != nil {
		return nil, err
	}
	return rate, nil
}

func (r *repository) ListActive(ctx context.Context) ([]models.ExchangeRate, error) {
	var rates []models.ExchangeRate
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("from_currency ASC, to_currency ASC").
		Find(&rates).Error
	if err != nil {
		return nil, err
	}
	return rates, nil
}

func (r *repository) ListHistory(ctx context.Context, from, to enums.Currency, limit int) ([]models.ExchangeRate, error) {
	var rates []models.ExchangeRate
	err := r.db.WithContext(ctx).
		Where("from_currency = ? AND to_currency = ?", from, to).
		Order("created_at DESC").
		Limit(limit).
		Find(&rates).Error
	if err != nil {
		return nil, err
	}
	return rates, nil
}

// IsNotFound reports whether err is the driver's missing-row error.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
