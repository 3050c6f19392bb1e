package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lc3lx/backend-zouhal/api/middleware"
	"github.com/lc3lx/backend-zouhal/api/responses"
	"github.com/lc3lx/backend-zouhal/api/validators"
	codesvc "github.com/lc3lx/backend-zouhal/internal/rechargecodes"
	"github.com/lc3lx/backend-zouhal/pkg/db/models"
	"github.com/lc3lx/backend-zouhal/pkg/enums"
	pkgerrors "github.com/lc3lx/backend-zouhal/pkg/errors"
	"github.com/lc3lx/backend-zouhal/pkg/logger"
)

type generateCodesRequest struct {
	Count       int     `json:"count" validate:"required,min=1,max=500"`
	AmountCents int64   `json:"amount_cents" validate:"required,min=1"`
	Currency    string  `json:"currency"`
	ExpiresDays int     `json:"expires_days"`
	Description *string `json:"description"`
}

type bulkDeleteCodesRequest struct {
	IDs []uuid.UUID `json:"ids" validate:"required,min=1"`
}

// GenerateCodes mints a batch of recharge codes.
func GenerateCodes(svc codesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "recharge service unavailable"))
			return
		}

		adminID := middleware.UserUUIDFromContext(ctx)
		if adminID == uuid.Nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		var payload generateCodesRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		currency := enums.CurrencyUSD
		if raw := strings.TrimSpace(payload.Currency); raw != "" {
			parsed, err := enums.ParseCurrency(raw)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid currency"))
				return
			}
			currency = parsed
		}

		var expiresIn time.Duration
		if payload.ExpiresDays > 0 {
			expiresIn = time.Duration(payload.ExpiresDays) * 24 * time.Hour
		}

		codes, err := svc.Generate(ctx, codesvc.GenerateInput{
			Count:       payload.Count,
			AmountCents: payload.AmountCents,
			Currency:    currency,
			ExpiresIn:   expiresIn,
			Description: payload.Description,
			CreatedBy:   adminID,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		out := make([]rechargeCodeResponse, 0, len(codes))
		for i := range codes {
			out = append(out, newRechargeCodeResponse(&codes[i]))
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{"codes": out})
	}
}

// ListCodes pages through codes, optionally filtered by used state and
// a code prefix.
func ListCodes(svc codesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "recharge service unavailable"))
			return
		}

		params, err := paginationFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var filter codesvc.ListFilter
		if raw := strings.TrimSpace(r.URL.Query().Get("used")); raw != "" {
			switch raw {
			case "true":
				used := true
				filter.Used = &used
			case "false":
				used := false
				filter.Used = &used
			default:
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "used must be true or false"))
				return
			}
		}
		filter.Code = r.URL.Query().Get("code")

		page, err := svc.List(ctx, params, filter)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		out := make([]rechargeCodeResponse, 0, len(page.Codes))
		for i := range page.Codes {
			out = append(out, newRechargeCodeResponse(&page.Codes[i]))
		}
		responses.WriteSuccess(w, map[string]any{
			"codes":       out,
			"next_cursor": page.NextCursor,
		})
	}
}

// CodeStats aggregates counts and amounts over all codes.
func CodeStats(svc codesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "recharge service unavailable"))
			return
		}

		stats, err := svc.Stats(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

// GetCode returns one code by id.
func GetCode(svc codesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "recharge service unavailable"))
			return
		}

		id, err := uuidParam(r, "id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		code, err := svc.Get(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newRechargeCodeResponse(code))
	}
}

// DeleteCode removes an unused code.
func DeleteCode(svc codesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "recharge service unavailable"))
			return
		}

		id, err := uuidParam(r, "id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.Delete(ctx, id); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"deleted": true})
	}
}

// BulkDeleteCodes removes a batch of unused codes, skipping used ones.
func BulkDeleteCodes(svc codesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "recharge service unavailable"))
			return
		}

		var payload bulkDeleteCodesRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		deleted, err := svc.BulkDelete(ctx, payload.IDs)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int64{"deleted": deleted})
	}
}

// PurgeExpiredCodes removes every expired, never-redeemed code.
func PurgeExpiredCodes(svc codesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "recharge service unavailable"))
			return
		}

		deleted, err := svc.PurgeExpired(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int64{"deleted": deleted})
	}
}

type rechargeCodeResponse struct {
	ID          uuid.UUID  `json:"id"`
	Code        string     `json:"code"`
	AmountCents int64      `json:"amount_cents"`
	Currency    string     `json:"currency"`
	CreatedBy   uuid.UUID  `json:"created_by"`
	UsedBy      *uuid.UUID `json:"used_by,omitempty"`
	IsUsed      bool       `json:"is_used"`
	UsedAt      *time.Time `json:"used_at,omitempty"`
	ExpiresAt   time.Time  `json:"expires_at"`
	Description *string    `json:"description,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func newRechargeCodeResponse(code *models.RechargeCode) rechargeCodeResponse {
	return rechargeCodeResponse{
		ID:          code.ID,
		Code:        code.Code,
		AmountCents: code.AmountCents,
		Currency:    string(code.Currency),
		CreatedBy:   code.CreatedBy,
		UsedBy:      code.UsedBy,
		IsUsed:      code.IsUsed,
		UsedAt:      code.UsedAt,
		ExpiresAt:   code.ExpiresAt,
		Description: code.Description,
		CreatedAt:   code.CreatedAt,
	}
}
