package exchangerates

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/lc3lx/backend-zouhal/pkg/db"
	"github.com/lc3lx/backend-zouhal/pkg/db/models"
	"github.com/lc3lx/backend-zouhal/pkg/enums"
	pkgerrors "github.com/lc3lx/backend-zouhal/pkg/errors"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	dsn := "file:rates_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(&models.ExchangeRate{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	svc, err := NewService(NewRepository(conn), db.NewWithConn(conn))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, conn
}

func TestUpsertReplacesActiveRate(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t)
	ctx := context.Background()
	admin := uuid.New()

	first, err := svc.Upsert(ctx, UpsertInput{
		From:      enums.CurrencyUSD,
		To:        enums.CurrencySYP,
		Rate:      decimal.RequireFromString("13000"),
		UpdatedBy: admin,
	})
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	second, err := svc.Upsert(ctx, UpsertInput{
		From:      enums.CurrencyUSD,
		To:        enums.CurrencySYP,
		Rate:      decimal.RequireFromString("13500.25"),
		UpdatedBy: admin,
	})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	current, err := svc.Current(ctx, enums.CurrencyUSD, enums.CurrencySYP)
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if current.ID != second.ID {
		t.Fatalf("expected latest rate active, got %s", current.ID)
	}
	if !current.Rate.Equal(decimal.RequireFromString("13500.25")) {
		t.Fatalf("unexpected rate %s", current.Rate)
	}

	var activeCount int64
	err = conn.Model(&models.ExchangeRate{}).
		Where("from_currency = ? AND to_currency = ? AND is_active = ?", enums.CurrencyUSD, enums.CurrencySYP, true).
		Count(&activeCount).Error
	if err != nil {
		t.Fatalf("count active: %v", err)
	}
	if activeCount != 1 {
		t.Fatalf("expected exactly one active row, got %d", activeCount)
	}

	history, err := svc.History(ctx, enums.CurrencyUSD, enums.CurrencySYP, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 history rows, got %d", len(history))
	}
	_ = first
}

func TestConvertUsesActiveRate(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Upsert(ctx, UpsertInput{
		From:      enums.CurrencyUSD,
		To:        enums.CurrencySYP,
		Rate:      decimal.RequireFromString("13000"),
		UpdatedBy: uuid.New(),
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	// 2550 cents is 25.50 USD
	conversion, err := svc.Convert(ctx, enums.CurrencyUSD, enums.CurrencySYP, 2550)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if !conversion.ConvertedAmount.Equal(decimal.RequireFromString("331500")) {
		t.Fatalf("expected 331500 SYP, got %s", conversion.ConvertedAmount)
	}
}

func TestConvertWithoutRate(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	_, err := svc.Convert(context.Background(), enums.CurrencyUSD, enums.CurrencySYP, 1000)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpsertValidation(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()
	cases := []UpsertInput{
		{From: enums.CurrencyUSD, To: enums.CurrencyUSD, Rate: decimal.RequireFromString("1")},
		{From: enums.CurrencyUSD, To: enums.CurrencySYP, Rate: decimal.Zero},
		{From: enums.Currency("XXX"), To: enums.CurrencySYP, Rate: decimal.RequireFromString("1")},
	}
	for _, input := range cases {
		input.UpdatedBy = uuid.New()
		_, err := svc.Upsert(ctx, input)
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("expected validation error for %+v, got %v", input, err)
		}
	}
}
