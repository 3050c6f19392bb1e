package controllers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lc3lx/backend-zouhal/api/middleware"
	"github.com/lc3lx/backend-zouhal/api/responses"
	"github.com/lc3lx/backend-zouhal/api/validators"
	ratesvc "github.com/lc3lx/backend-zouhal/internal/exchangerates"
	"github.com/lc3lx/backend-zouhal/pkg/db/models"
	"github.com/lc3lx/backend-zouhal/pkg/enums"
	pkgerrors "github.com/lc3lx/backend-zouhal/pkg/errors"
	"github.com/lc3lx/backend-zouhal/pkg/logger"
)

type upsertRateRequest struct {
	From string          `json:"from" validate:"required"`
	To   string          `json:"to" validate:"required"`
	Rate decimal.Decimal `json:"rate" validate:"required"`
}

// CurrentRate returns the active rate for a currency pair.
func CurrentRate(svc ratesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "exchange rate service unavailable"))
			return
		}

		from, to, err := currencyPairFromQuery(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		rate, err := svc.Current(ctx, from, to)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newRateResponse(rate))
	}
}

// ConvertAmount converts an amount through the active rate for a pair.
func ConvertAmount(svc ratesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "exchange rate service unavailable"))
			return
		}

		from, to, err := currencyPairFromQuery(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		raw := strings.TrimSpace(r.URL.Query().Get("amount_cents"))
		amount, parseErr := strconv.ParseInt(raw, 10, 64)
		if raw == "" || parseErr != nil || amount <= 0 {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "amount_cents must be a positive integer"))
			return
		}

		conversion, err := svc.Convert(ctx, from, to, amount)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"from":             string(conversion.From),
			"to":               string(conversion.To),
			"rate":             conversion.Rate,
			"amount_cents":     conversion.AmountCents,
			"converted_amount": conversion.ConvertedAmount,
		})
	}
}

// UpsertRate replaces the active rate for a pair.
func UpsertRate(svc ratesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "exchange rate service unavailable"))
			return
		}

		adminID := middleware.UserUUIDFromContext(ctx)
		if adminID == uuid.Nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		var payload upsertRateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		from, err := enums.ParseCurrency(payload.From)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid from currency"))
			return
		}
		to, err := enums.ParseCurrency(payload.To)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid to currency"))
			return
		}

		rate, err := svc.Upsert(ctx, ratesvc.UpsertInput{
			From:      from,
			To:        to,
			Rate:      payload.Rate,
			UpdatedBy: adminID,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newRateResponse(rate))
	}
}

// ListRates returns every active rate.
func ListRates(svc ratesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "exchange rate service unavailable"))
			return
		}

		rates, err := svc.ListActive(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		out := make([]rateResponse, 0, len(rates))
		for i := range rates {
			out = append(out, newRateResponse(&rates[i]))
		}
		responses.WriteSuccess(w, map[string]any{"rates": out})
	}
}

// RateHistory returns recent rate rows for a pair, newest first.
func RateHistory(svc ratesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "exchange rate service unavailable"))
			return
		}

		from, to, err := currencyPairFromQuery(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 25, 1, 100)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		rates, err := svc.History(ctx, from, to, limit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		out := make([]rateResponse, 0, len(rates))
		for i := range rates {
			out = append(out, newRateResponse(&rates[i]))
		}
		responses.WriteSuccess(w, map[string]any{"rates": out})
	}
}

func currencyPairFromQuery(r *http.Request) (from, to enums.Currency, err error) {
	query := r.URL.Query()
	from, err = enums.ParseCurrency(strings.TrimSpace(query.Get("from")))
	if err != nil {
		return "", "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid from currency")
	}
	to, err = enums.ParseCurrency(strings.TrimSpace(query.Get("to")))
	if err != nil {
		return "", "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid to currency")
	}
	return from, to, nil
}

type rateResponse struct {
	ID           uuid.UUID       `json:"id"`
	FromCurrency string          `json:"from_currency"`
	ToCurrency   string          `json:"to_currency"`
	Rate         decimal.Decimal `json:"rate"`
	IsActive     bool            `json:"is_active"`
	UpdatedBy    *uuid.UUID      `json:"updated_by,omitempty"`
	LastUpdated  time.Time       `json:"last_updated"`
	CreatedAt    time.Time       `json:"created_at"`
}

func newRateResponse(rate *models.ExchangeRate) rateResponse {
	return rateResponse{
		ID:           rate.ID,
		FromCurrency: string(rate.FromCurrency),
		ToCurrency:   string(rate.ToCurrency),
		Rate:         rate.Rate,
		IsActive:     rate.IsActive,
		UpdatedBy:    rate.UpdatedBy,
		LastUpdated:  rate.LastUpdated,
		CreatedAt:    rate.CreatedAt,
	}
}
