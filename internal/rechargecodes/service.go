package rechargecodes

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lc3lx/backend-zouhal/internal/wallet"
	"github.com/lc3lx/backend-zouhal/pkg/config"
	"github.com/lc3lx/backend-zouhal/pkg/db"
	"github.com/lc3lx/backend-zouhal/pkg/db/models"
	"github.com/lc3lx/backend-zouhal/pkg/enums"
	pkgerrors "github.com/lc3lx/backend-zouhal/pkg/errors"
	"github.com/lc3lx/backend-zouhal/pkg/pagination"
)

const codeLength = 8

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type walletCreditor interface {
	EnsureWallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
	GetByUserTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*models.Wallet, error)
	ApplyTransactionTx(ctx context.Context, tx *gorm.DB, input wallet.TransactionInput) (*models.WalletTransaction, error)
}

// GenerateInput carries admin parameters for a code batch.
type GenerateInput struct {
	Count       int
	AmountCents int64
	Currency    enums.Currency
	ExpiresIn   time.Duration
	Description *string
	CreatedBy   uuid.UUID
}

// RedeemResult reports the outcome of a successful redemption.
type RedeemResult struct {
	Code            *models.RechargeCode
	Transaction     *models.WalletTransaction
	NewBalanceCents int64
	CreditedCents   int64
}

// CodePage is a cursor-paginated slice of codes.
type CodePage struct {
	Codes      []models.RechargeCode
	NextCursor string
}

// Service exposes recharge code operations.
type Service interface {
	Generate(ctx context.Context, input GenerateInput) ([]models.RechargeCode, error)
	Redeem(ctx context.Context, userID uuid.UUID, code string) (*RedeemResult, error)
	Get(ctx context.Context, id uuid.UUID) (*models.RechargeCode, error)
	List(ctx context.Context, params pagination.Params, filter ListFilter) (*CodePage, error)
	Stats(ctx context.Context) (*Stats, error)
	Delete(ctx context.Context, id uuid.UUID) error
	BulkDelete(ctx context.Context, ids []uuid.UUID) (int64, error)
	PurgeExpired(ctx context.Context) (int64, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	wallets walletCreditor
	cfg     config.RechargeCodesConfig
	now     func() time.Time
}

// NewService builds a recharge code service with the required dependencies.
func NewService(repo Repository, tx txRunner, wallets walletCreditor, cfg config.RechargeCodesConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("recharge code repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if wallets == nil {
		return nil, fmt.Errorf("wallet service required")
	}
	return &service{
		repo:    repo,
		tx:      tx,
		wallets: wallets,
		cfg:     cfg,
		now:     time.Now,
	}, nil
}

func (s *service) Generate(ctx context.Context, input GenerateInput) ([]models.RechargeCode, error) {
	maxBatch := s.cfg.MaxBatchSize
	if maxBatch <= 0 {
		maxBatch = 100
	}
	if input.Count < 1 || input.Count > maxBatch {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "count out of range").
			WithDetails(map[string]any{"min": 1, "max": maxBatch})
	}
	if input.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	currency := input.Currency
	if currency == "" {
		currency = enums.CurrencyUSD
	}
	if !currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid currency")
	}

	expiry := input.ExpiresIn
	if expiry <= 0 {
		expiry = s.cfg.DefaultExpiry
	}
	if expiry <= 0 {
		expiry = 30 * 24 * time.Hour
	}
	expiresAt := s.now().Add(expiry)

	codes := make([]models.RechargeCode, 0, input.Count)
	for i := 0; i < input.Count; i++ {
		codes = append(codes, models.RechargeCode{
			Code:        newCodeToken(),
			AmountCents: input.AmountCents,
			Currency:    currency,
			CreatedBy:   input.CreatedBy,
			ExpiresAt:   expiresAt,
			Description: input.Description,
		})
	}

	if err := s.repo.CreateBatch(ctx, codes); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "code collision, retry generation")
		}
		return nil, err
	}
	return codes, nil
}

// Redeem credits the caller's wallet with the code amount. The guarded
// flip of is_used and the wallet credit commit or roll back together, so
// a code can never pay out twice.
func (s *service) Redeem(ctx context.Context, userID uuid.UUID, code string) (*RedeemResult, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "code is required")
	}

	if _, err := s.wallets.EnsureWallet(ctx, userID); err != nil {
		return nil, err
	}

	var result RedeemResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		record, err := repo.FindByCode(ctx, normalized)
		if err != nil {
			if IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeCodeInvalid, "recharge code not recognized")
			}
			return err
		}

		now := s.now()
		if record.IsUsed {
			return pkgerrors.New(pkgerrors.CodeCodeUsed, "recharge code already used")
		}
		if record.IsExpired(now) {
			return pkgerrors.New(pkgerrors.CodeCodeExpired, "recharge code expired")
		}

		claimed, err := repo.MarkUsed(ctx, record.ID, userID, now)
		if err != nil {
			return err
		}
		if !claimed {
			return pkgerrors.New(pkgerrors.CodeCodeUsed, "recharge code already used")
		}

		entry, err := s.wallets.ApplyTransactionTx(ctx, tx, wallet.TransactionInput{
			UserID:         userID,
			Type:           enums.TransactionTypeRecharge,
			AmountCents:    record.AmountCents,
			Description:    fmt.Sprintf("Recharge code %s", record.Code),
			RechargeCodeID: &record.ID,
		})
		if err != nil {
			return err
		}

		credited, err := s.wallets.GetByUserTx(ctx, tx, userID)
		if err != nil {
			return err
		}

		record.IsUsed = true
		record.UsedBy = &userID
		record.UsedAt = &now
		result = RedeemResult{
			Code:            record,
			Transaction:     entry,
			NewBalanceCents: credited.BalanceCents,
			CreditedCents:   record.AmountCents,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.RechargeCode, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "recharge code not found")
		}
		return nil, err
	}
	return record, nil
}

func (s *service) List(ctx context.Context, params pagination.Params, filter ListFilter) (*CodePage, error) {
	codes, next, err := s.repo.List(ctx, params, filter)
	if err != nil {
		return nil, err
	}
	return &CodePage{Codes: codes, NextCursor: next}, nil
}

func (s *service) Stats(ctx context.Context) (*Stats, error) {
	return s.repo.Stats(ctx)
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.repo.DeleteUnused(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "only unused codes can be deleted")
	}
	return nil
}

func (s *service) BulkDelete(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "at least one code id required")
	}
	return s.repo.DeleteUnusedMany(ctx, ids)
}

func (s *service) PurgeExpired(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpiredUnused(ctx, s.now())
}

func newCodeToken() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(raw[:codeLength])
}
