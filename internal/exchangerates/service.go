package exchangerates

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lc3lx/backend-zouhal/pkg/db/models"
	"github.com/lc3lx/backend-zouhal/pkg/enums"
	pkgerrors "github.com/lc3lx/backend-zouhal/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// UpsertInput sets a new active rate for a currency pair.
type UpsertInput struct {
	From      enums.Currency
	To        enums.Currency
	Rate      decimal.Decimal
	UpdatedBy uuid.UUID
}

// Conversion is the result of converting an amount through the active
// rate for a pair.
type Conversion struct {
	From            enums.Currency
	To              enums.Currency
	Rate            decimal.Decimal
	AmountCents     int64
	ConvertedAmount decimal.Decimal
}

// Service manages currency conversion rates. Writes replace the active
// rate for a pair; old rows stay behind as history.
type Service interface {
	Current(ctx context.Context, from, to enums.Currency) (*models.ExchangeRate, error)
	Convert(ctx context.Context, from, to enums.Currency, amountCents int64) (*Conversion, error)
	Upsert(ctx context.Context, input UpsertInput) (*models.ExchangeRate, error)
	ListActive(ctx context.Context) ([]models.ExchangeRate, error)
	History(ctx context.Context, from, to enums.Currency, limit int) ([]models.ExchangeRate, error)
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService builds an exchange rates service with the required dependencies.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("exchange rates repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) Current(ctx context.Context, from, to enums.Currency) (*models.ExchangeRate, error) {
	if err := validatePair(from, to); err != nil {
		return nil, err
	}
	rate, err := s.repo.FindActive(ctx, from, to)
	if err != nil {
		if IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no active rate for currency pair").
				WithDetails(map[string]any{"from": from, "to": to})
		}
		return nil, err
	}
	return rate, nil
}

// Convert applies the active rate to an integer cent amount. The result
// keeps decimal precision; callers round for display in the target
// currency's convention.
func (s *service) Convert(ctx context.Context, from, to enums.Currency, amountCents int64) (*Conversion, error) {
	if amountCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must not be negative")
	}
	rate, err := s.Current(ctx, from, to)
	if err != nil {
		return nil, err
	}
	amount := decimal.NewFromInt(amountCents).Div(decimal.NewFromInt(100))
	return &Conversion{
		From:            from,
		To:              to,
		Rate:            rate.Rate,
		AmountCents:     amountCents,
		ConvertedAmount: amount.Mul(rate.Rate),
	}, nil
}

// Upsert deactivates the pair's current rate and inserts the new one in
// a single transaction, keeping the one-active-row-per-pair rule.
func (s *service) Upsert(ctx context.Context, input UpsertInput) (*models.ExchangeRate, error) {
	if err := validatePair(input.From, input.To); err != nil {
		return nil, err
	}
	if !input.Rate.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rate must be positive")
	}

	var created *models.ExchangeRate
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.DeactivatePair(ctx, input.From, input.To); err != nil {
			return err
		}
		updatedBy := input.UpdatedBy
		rate, err := repo.Create(ctx, &models.ExchangeRate{
			FromCurrency: input.From,
			ToCurrency:   input.To,
			Rate:         input.Rate,
			IsActive:     true,
			UpdatedBy:    &updatedBy,
		})
		if err != nil {
			return err
		}
		created = rate
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) ListActive(ctx context.Context) ([]models.ExchangeRate, error) {
	return s.repo.ListActive(ctx)
}

func (s *service) History(ctx context.Context, from, to enums.Currency, limit int) ([]models.ExchangeRate, error) {
	if err := validatePair(from, to); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	return s.repo.ListHistory(ctx, from, to, limit)
}

func validatePair(from, to enums.Currency) error {
	if !from.IsValid() || !to.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown currency")
	}
	if from == to {
		return pkgerrors.New(pkgerrors.CodeValidation, "currencies must differ")
	}
	return nil
}
