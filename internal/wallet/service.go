package wallet

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lc3lx/backend-zouhal/pkg/db"
	"github.com/lc3lx/backend-zouhal/pkg/db/models"
	"github.com/lc3lx/backend-zouhal/pkg/enums"
	pkgerrors "github.com/lc3lx/backend-zouhal/pkg/errors"
	"github.com/lc3lx/backend-zouhal/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// TransactionInput carries the data for a single wallet movement.
type TransactionInput struct {
	UserID         uuid.UUID
	Type           enums.TransactionType
	AmountCents    int64
	Description    string
	OrderID        *uuid.UUID
	RechargeCodeID *uuid.UUID
}

// TransactionPage is a cursor-paginated slice of ledger entries.
type TransactionPage struct {
	Entries    []models.WalletTransaction
	NextCursor string
}

// WalletPage is a cursor-paginated slice of wallets for admin views.
type WalletPage struct {
	Wallets    []models.Wallet
	NextCursor string
}

// AdjustmentInput is an admin-initiated balance correction.
type AdjustmentInput struct {
	UserID      uuid.UUID
	Type        enums.TransactionType
	AmountCents int64
	Description string
	AdjustedBy  uuid.UUID
}

// Service exposes wallet operations to controllers and settlement.
type Service interface {
	EnsureWallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
	GetByUser(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
	GetByUserTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*models.Wallet, error)
	HasSufficientBalance(ctx context.Context, userID uuid.UUID, amountCents int64) (bool, error)
	AddTransaction(ctx context.Context, input TransactionInput) (*models.WalletTransaction, error)
	ApplyTransactionTx(ctx context.Context, tx *gorm.DB, input TransactionInput) (*models.WalletTransaction, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, params pagination.Params) (*TransactionPage, error)
	ListWallets(ctx context.Context, params pagination.Params) (*WalletPage, error)
	AdjustBalance(ctx context.Context, input AdjustmentInput) (*models.WalletTransaction, error)
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService builds a wallet service with the required dependencies.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) EnsureWallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	existing, err := s.repo.FindByUser(ctx, userID)
	if err == nil {
		return existing, nil
	}
	if !IsNotFound(err) {
		return nil, err
	}

	created, err := s.repo.Create(ctx, &models.Wallet{
		UserID:   userID,
		Currency: enums.CurrencyUSD,
		IsActive: true,
	})
	if err != nil {
		// a concurrent request may have created the row first
		if db.IsUniqueViolation(err, "") {
			return s.repo.FindByUser(ctx, userID)
		}
		return nil, err
	}
	return created, nil
}

func (s *service) GetByUser(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	wallet, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		if IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wallet not found")
		}
		return nil, err
	}
	return wallet, nil
}

// GetByUserTx reads the wallet inside the caller's transaction, so the
// balance reflects movements applied earlier in the same tx.
func (s *service) GetByUserTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*models.Wallet, error) {
	wallet, err := s.repo.WithTx(tx).FindByUser(ctx, userID)
	if err != nil {
		if IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wallet not found")
		}
		return nil, err
	}
	return wallet, nil
}

func (s *service) HasSufficientBalance(ctx context.Context, userID uuid.UUID, amountCents int64) (bool, error) {
	wallet, err := s.GetByUser(ctx, userID)
	if err != nil {
		return false, err
	}
	if !wallet.IsActive {
		return false, pkgerrors.New(pkgerrors.CodeStateConflict, "wallet is deactivated")
	}
	return wallet.BalanceCents >= amountCents, nil
}

func (s *service) AddTransaction(ctx context.Context, input TransactionInput) (*models.WalletTransaction, error) {
	var entry *models.WalletTransaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		created, terr := s.ApplyTransactionTx(ctx, tx, input)
		if terr != nil {
			return terr
		}
		entry = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// ApplyTransactionTx moves the balance and appends the ledger entry inside
// the caller's transaction. Credit-like types add; debit subtracts through
// a guarded update that fails with INSUFFICIENT_FUNDS on zero rows.
func (s *service) ApplyTransactionTx(ctx context.Context, tx *gorm.DB, input TransactionInput) (*models.WalletTransaction, error) {
	if input.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid transaction type")
	}

	repo := s.repo.WithTx(tx)

	wallet, err := repo.FindByUser(ctx, input.UserID)
	if err != nil {
		if IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wallet not found")
		}
		return nil, err
	}
	if !wallet.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "wallet is deactivated")
	}

	if input.Type.IsCredit() {
		if err := repo.CreditBalance(ctx, wallet.ID, input.AmountCents); err != nil {
			return nil, err
		}
	} else {
		ok, err := repo.DebitBalance(ctx, wallet.ID, input.AmountCents)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeInsufficientFunds, "wallet balance insufficient").
				WithDetails(map[string]any{
					"required_cents": input.AmountCents,
				})
		}
	}

	entry := &models.WalletTransaction{
		WalletID:       wallet.ID,
		Type:           input.Type,
		AmountCents:    input.AmountCents,
		Description:    input.Description,
		OrderID:        input.OrderID,
		RechargeCodeID: input.RechargeCodeID,
	}
	if err := repo.CreateTransaction(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *service) ListWallets(ctx context.Context, params pagination.Params) (*WalletPage, error) {
	wallets, next, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, err
	}
	return &WalletPage{Wallets: wallets, NextCursor: next}, nil
}

// AdjustBalance lets an admin correct a wallet through the ordinary
// ledger path, so adjustments carry the same guarantees as any other
// movement.
func (s *service) AdjustBalance(ctx context.Context, input AdjustmentInput) (*models.WalletTransaction, error) {
	if input.Type != enums.TransactionTypeCredit && input.Type != enums.TransactionTypeDebit {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "adjustment type must be credit or debit")
	}
	description := input.Description
	if description == "" {
		description = "Balance adjustment"
	}
	description = fmt.Sprintf("%s (by admin %s)", description, input.AdjustedBy)

	if _, err := s.EnsureWallet(ctx, input.UserID); err != nil {
		return nil, err
	}
	return s.AddTransaction(ctx, TransactionInput{
		UserID:      input.UserID,
		Type:        input.Type,
		AmountCents: input.AmountCents,
		Description: description,
	})
}

func (s *service) ListTransactions(ctx context.Context, userID uuid.UUID, params pagination.Params) (*TransactionPage, error) {
	wallet, err := s.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	entries, next, err := s.repo.ListTransactions(ctx, wallet.ID, params)
	if err != nil {
		return nil, err
	}
	return &TransactionPage{Entries: entries, NextCursor: next}, nil
}
