package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/lc3lx/backend-zouhal/api/middleware"
	"github.com/lc3lx/backend-zouhal/api/responses"
	"github.com/lc3lx/backend-zouhal/api/validators"
	"github.com/lc3lx/backend-zouhal/internal/rechargecodes"
	walletsvc "github.com/lc3lx/backend-zouhal/internal/wallet"
	"github.com/lc3lx/backend-zouhal/pkg/db/models"
	"github.com/lc3lx/backend-zouhal/pkg/enums"
	pkgerrors "github.com/lc3lx/backend-zouhal/pkg/errors"
	"github.com/lc3lx/backend-zouhal/pkg/logger"
)

type rechargeRequest struct {
	Code string `json:"code" validate:"required,min=8"`
}

type adjustBalanceRequest struct {
	Type        string `json:"type" validate:"required"`
	AmountCents int64  `json:"amount_cents" validate:"required,min=1"`
	Description string `json:"description"`
}

// GetWallet returns the caller's wallet, creating it on first access.
func GetWallet(svc walletsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wallet service unavailable"))
			return
		}

		userID := middleware.UserUUIDFromContext(ctx)
		if userID == uuid.Nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		wallet, err := svc.EnsureWallet(ctx, userID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newWalletResponse(wallet))
	}
}

// CreateWallet provisions a wallet for the caller. Idempotent: an
// existing wallet is returned as-is.
func CreateWallet(svc walletsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wallet service unavailable"))
			return
		}

		userID := middleware.UserUUIDFromContext(ctx)
		if userID == uuid.Nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		wallet, err := svc.EnsureWallet(ctx, userID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newWalletResponse(wallet))
	}
}

// WalletBalance returns just the balance for quick polling.
func WalletBalance(svc walletsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wallet service unavailable"))
			return
		}

		userID := middleware.UserUUIDFromContext(ctx)
		if userID == uuid.Nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		wallet, err := svc.EnsureWallet(ctx, userID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"balance_cents": wallet.BalanceCents,
			"currency":      string(wallet.Currency),
		})
	}
}

// WalletTransactions returns the caller's ledger, newest first.
func WalletTransactions(svc walletsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wallet service unavailable"))
			return
		}

		userID := middleware.UserUUIDFromContext(ctx)
		if userID == uuid.Nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		params, err := paginationFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		page, err := svc.ListTransactions(ctx, userID, params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newTransactionPageResponse(page))
	}
}

// RechargeWallet redeems a recharge code into the caller's wallet.
func RechargeWallet(svc rechargecodes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "recharge service unavailable"))
			return
		}

		userID := middleware.UserUUIDFromContext(ctx)
		if userID == uuid.Nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		var payload rechargeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.Redeem(ctx, userID, payload.Code)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"credited_cents":    result.CreditedCents,
			"new_balance_cents": result.NewBalanceCents,
			"transaction":       newTransactionResponse(*result.Transaction),
		})
	}
}

// AdminListWallets pages through every wallet.
func AdminListWallets(svc walletsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wallet service unavailable"))
			return
		}

		params, err := paginationFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		page, err := svc.ListWallets(ctx, params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		wallets := make([]walletResponse, 0, len(page.Wallets))
		for i := range page.Wallets {
			wallets = append(wallets, newWalletResponse(&page.Wallets[i]))
		}
		responses.WriteSuccess(w, map[string]any{
			"wallets":     wallets,
			"next_cursor": page.NextCursor,
		})
	}
}

// AdminGetWallet returns any user's wallet by user id.
func AdminGetWallet(svc walletsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wallet service unavailable"))
			return
		}

		userID, err := uuidParam(r, "userId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		wallet, err := svc.GetByUser(ctx, userID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newWalletResponse(wallet))
	}
}

// AdminAdjustWallet credits or debits a user's wallet out of band.
func AdminAdjustWallet(svc walletsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wallet service unavailable"))
			return
		}

		adminID := middleware.UserUUIDFromContext(ctx)
		if adminID == uuid.Nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		userID, err := uuidParam(r, "userId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload adjustBalanceRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		txType, err := enums.ParseTransactionType(payload.Type)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid type"))
			return
		}

		entry, err := svc.AdjustBalance(ctx, walletsvc.AdjustmentInput{
			UserID:      userID,
			Type:        txType,
			AmountCents: payload.AmountCents,
			Description: payload.Description,
			AdjustedBy:  adminID,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newTransactionResponse(*entry))
	}
}

type walletResponse struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	BalanceCents int64     `json:"balance_cents"`
	Currency     string    `json:"currency"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type transactionResponse struct {
	ID             uuid.UUID  `json:"id"`
	WalletID       uuid.UUID  `json:"wallet_id"`
	Type           string     `json:"type"`
	AmountCents    int64      `json:"amount_cents"`
	Description    string     `json:"description"`
	OrderID        *uuid.UUID `json:"order_id,omitempty"`
	RechargeCodeID *uuid.UUID `json:"recharge_code_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

type transactionPageResponse struct {
	Transactions []transactionResponse `json:"transactions"`
	NextCursor   string                `json:"next_cursor,omitempty"`
}

func newWalletResponse(wallet *models.Wallet) walletResponse {
	return walletResponse{
		ID:           wallet.ID,
		UserID:       wallet.UserID,
		BalanceCents: wallet.BalanceCents,
		Currency:     string(wallet.Currency),
		IsActive:     wallet.IsActive,
		CreatedAt:    wallet.CreatedAt,
		UpdatedAt:    wallet.UpdatedAt,
	}
}

func newTransactionResponse(entry models.WalletTransaction) transactionResponse {
	return transactionResponse{
		ID:             entry.ID,
		WalletID:       entry.WalletID,
		Type:           string(entry.Type),
		AmountCents:    entry.AmountCents,
		Description:    entry.Description,
		OrderID:        entry.OrderID,
		RechargeCodeID: entry.RechargeCodeID,
		CreatedAt:      entry.CreatedAt,
	}
}

func newTransactionPageResponse(page *walletsvc.TransactionPage) transactionPageResponse {
	entries := make([]transactionResponse, 0, len(page.Entries))
	for _, entry := range page.Entries {
		entries = append(entries, newTransactionResponse(entry))
	}
	return transactionPageResponse{Transactions: entries, NextCursor: page.NextCursor}
}
