package rechargecodes

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/lc3lx/backend-zouhal/internal/wallet"
	"github.com/lc3lx/backend-zouhal/pkg/config"
	"github.com/lc3lx/backend-zouhal/pkg/db"
	"github.com/lc3lx/backend-zouhal/pkg/db/models"
	"github.com/lc3lx/backend-zouhal/pkg/enums"
	pkgerrors "github.com/lc3lx/backend-zouhal/pkg/errors"
	"github.com/lc3lx/backend-zouhal/pkg/pagination"
)

func newTestService(t *testing.T) (Service, wallet.Service, *gorm.DB) {
	t.Helper()
	dsn := "file:rechargecodes_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(
		&models.Wallet{},
		&models.WalletTransaction{},
		&models.RechargeCode{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	client := db.NewWithConn(conn)
	walletSvc, err := wallet.NewService(wallet.NewRepository(conn), client)
	if err != nil {
		t.Fatalf("wallet service: %v", err)
	}
	svc, err := NewService(NewRepository(conn), client, walletSvc, config.RechargeCodesConfig{
		DefaultExpiry: 720 * time.Hour,
		MaxBatchSize:  100,
	})
	if err != nil {
		t.Fatalf("recharge service: %v", err)
	}
	return svc, walletSvc, conn
}

func TestGenerateProducesUniqueUppercaseCodes(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	ctx := context.Background()

	codes, err := svc.Generate(ctx, GenerateInput{
		Count:       10,
		AmountCents: 2500,
		CreatedBy:   uuid.New(),
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(codes) != 10 {
		t.Fatalf("expected 10 codes, got %d", len(codes))
	}

	seen := map[string]bool{}
	for _, c := range codes {
		if len(c.Code) != codeLength {
			t.Fatalf("expected %d-char code, got %q", codeLength, c.Code)
		}
		if c.Code != strings.ToUpper(c.Code) {
			t.Fatalf("expected uppercase code, got %q", c.Code)
		}
		if seen[c.Code] {
			t.Fatalf("duplicate code %q in batch", c.Code)
		}
		seen[c.Code] = true
		if c.Currency != enums.CurrencyUSD {
			t.Fatalf("expected USD default, got %s", c.Currency)
		}
		if !c.ExpiresAt.After(time.Now()) {
			t.Fatalf("expected future expiry, got %v", c.ExpiresAt)
		}
	}
}

func TestGenerateRejectsBadBatch(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	ctx := context.Background()

	cases := []GenerateInput{
		{Count: 0, AmountCents: 100, CreatedBy: uuid.New()},
		{Count: 101, AmountCents: 100, CreatedBy: uuid.New()},
		{Count: 1, AmountCents: 0, CreatedBy: uuid.New()},
		{Count: 1, AmountCents: 100, Currency: "XYZ", CreatedBy: uuid.New()},
	}
	for i, input := range cases {
		_, err := svc.Generate(ctx, input)
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}
}

func TestRedeemCreditsWalletOnce(t *testing.T) {
	t.Parallel()

	svc, walletSvc, _ := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	codes, err := svc.Generate(ctx, GenerateInput{Count: 1, AmountCents: 5000, CreatedBy: uuid.New()})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	result, err := svc.Redeem(ctx, userID, codes[0].Code)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if result.CreditedCents != 5000 {
		t.Fatalf("expected credit of 5000, got %d", result.CreditedCents)
	}
	if result.NewBalanceCents != 5000 {
		t.Fatalf("expected new balance 5000, got %d", result.NewBalanceCents)
	}
	if result.Transaction == nil || result.Transaction.Type != enums.TransactionTypeRecharge {
		t.Fatalf("expected recharge ledger entry, got %+v", result.Transaction)
	}

	w, err := walletSvc.GetByUser(ctx, userID)
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if w.BalanceCents != 5000 {
		t.Fatalf("expected balance 5000, got %d", w.BalanceCents)
	}

	// second redemption must fail without touching the balance
	_, err = svc.Redeem(ctx, uuid.New(), codes[0].Code)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeCodeUsed {
		t.Fatalf("expected code used error, got %v", err)
	}
}

func TestRedeemUnknownAndExpired(t *testing.T) {
	t.Parallel()

	svc, _, conn := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := svc.Redeem(ctx, userID, "NOPE1234")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeCodeInvalid {
		t.Fatalf("expected invalid code error, got %v", err)
	}

	expired := models.RechargeCode{
		ID:          uuid.New(),
		Code:        "EXP12345",
		AmountCents: 1000,
		Currency:    enums.CurrencyUSD,
		CreatedBy:   uuid.New(),
		ExpiresAt:   time.Now().Add(-time.Hour),
	}
	if err := conn.Create(&expired).Error; err != nil {
		t.Fatalf("seed expired code: %v", err)
	}
	_, err = svc.Redeem(ctx, userID, "exp12345")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeCodeExpired {
		t.Fatalf("expected expired code error, got %v", err)
	}
}

func TestRedeemReportsRunningBalance(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	codes, err := svc.Generate(ctx, GenerateInput{Count: 2, AmountCents: 1500, CreatedBy: uuid.New()})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	first, err := svc.Redeem(ctx, userID, codes[0].Code)
	if err != nil {
		t.Fatalf("redeem first: %v", err)
	}
	if first.NewBalanceCents != 1500 {
		t.Fatalf("expected balance 1500 after first redeem, got %d", first.NewBalanceCents)
	}

	second, err := svc.Redeem(ctx, userID, codes[1].Code)
	if err != nil {
		t.Fatalf("redeem second: %v", err)
	}
	if second.NewBalanceCents != 3000 {
		t.Fatalf("expected balance 3000 after second redeem, got %d", second.NewBalanceCents)
	}
}

func TestRedeemUsedAndExpiredReportsUsed(t *testing.T) {
	t.Parallel()

	svc, _, conn := newTestService(t)
	ctx := context.Background()
	redeemer := uuid.New()
	usedAt := time.Now().Add(-2 * time.Hour)

	stale := models.RechargeCode{
		ID:          uuid.New(),
		Code:        "OLD12345",
		AmountCents: 1000,
		Currency:    enums.CurrencyUSD,
		CreatedBy:   uuid.New(),
		IsUsed:      true,
		UsedBy:      &redeemer,
		UsedAt:      &usedAt,
		ExpiresAt:   time.Now().Add(-time.Hour),
	}
	if err := conn.Create(&stale).Error; err != nil {
		t.Fatalf("seed code: %v", err)
	}

	// used wins over expired when both apply
	_, err := svc.Redeem(ctx, uuid.New(), stale.Code)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeCodeUsed {
		t.Fatalf("expected code used error, got %v", err)
	}
}

func TestListAndStats(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	codes, err := svc.Generate(ctx, GenerateInput{Count: 3, AmountCents: 1000, CreatedBy: uuid.New()})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := svc.Redeem(ctx, userID, codes[0].Code); err != nil {
		t.Fatalf("redeem: %v", err)
	}

	used := true
	page, err := svc.List(ctx, pagination.Params{Limit: 10}, ListFilter{Used: &used})
	if err != nil {
		t.Fatalf("list used: %v", err)
	}
	if len(page.Codes) != 1 {
		t.Fatalf("expected 1 used code, got %d", len(page.Codes))
	}

	prefix := codes[1].Code[:4]
	page, err = svc.List(ctx, pagination.Params{Limit: 10}, ListFilter{Code: prefix})
	if err != nil {
		t.Fatalf("list by code prefix: %v", err)
	}
	found := false
	for _, c := range page.Codes {
		if c.Code == codes[1].Code {
			found = true
		}
		if c.Code[:4] != prefix {
			t.Fatalf("code %s does not match prefix %s", c.Code, prefix)
		}
	}
	if !found {
		t.Fatalf("expected code %s in prefix listing", codes[1].Code)
	}

	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 3 || stats.Used != 1 || stats.Unused != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if stats.TotalAmountCents != 3000 || stats.RedeemedAmountCents != 1000 {
		t.Fatalf("unexpected amounts %+v", stats)
	}
}

func TestDeleteOnlyUnused(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	codes, err := svc.Generate(ctx, GenerateInput{Count: 2, AmountCents: 1000, CreatedBy: uuid.New()})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := svc.Redeem(ctx, userID, codes[0].Code); err != nil {
		t.Fatalf("redeem: %v", err)
	}

	if err := svc.Delete(ctx, codes[1].ID); err != nil {
		t.Fatalf("delete unused: %v", err)
	}
	err = svc.Delete(ctx, codes[0].ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict deleting used code, got %v", err)
	}
}
