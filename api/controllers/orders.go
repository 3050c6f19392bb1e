package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lc3lx/backend-zouhal/api/middleware"
	"github.com/lc3lx/backend-zouhal/api/responses"
	"github.com/lc3lx/backend-zouhal/api/validators"
	ordersvc "github.com/lc3lx/backend-zouhal/internal/orders"
	"github.com/lc3lx/backend-zouhal/internal/settlement"
	"github.com/lc3lx/backend-zouhal/pkg/db/models"
	"github.com/lc3lx/backend-zouhal/pkg/enums"
	pkgerrors "github.com/lc3lx/backend-zouhal/pkg/errors"
	"github.com/lc3lx/backend-zouhal/pkg/logger"
	"github.com/lc3lx/backend-zouhal/pkg/pagination"
	"github.com/lc3lx/backend-zouhal/pkg/types"
)

type createOrderRequest struct {
	ShippingAddress shippingAddressPayload `json:"shipping_address" validate:"required"`
}

type createTransferOrderRequest struct {
	ShippingAddress       shippingAddressPayload `json:"shipping_address" validate:"required"`
	PayerPhone            string                 `json:"payer_phone" validate:"required"`
	ExternalTransactionID string                 `json:"external_transaction_id" validate:"required"`
}

type reviewTransferRequest struct {
	AdminNotes *string `json:"admin_notes"`
}

type shippingAddressPayload struct {
	Details    string `json:"details" validate:"required"`
	Phone      string `json:"phone" validate:"required"`
	City       string `json:"city" validate:"required"`
	PostalCode string `json:"postal_code"`
}

func (p shippingAddressPayload) toAddress() types.ShippingAddress {
	return types.ShippingAddress{
		Details:    p.Details,
		Phone:      p.Phone,
		City:       p.City,
		PostalCode: p.PostalCode,
	}
}

// CreateCashOrder settles a cart for cash on delivery.
func CreateCashOrder(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}

		input, err := orderInputFromRequest(r, "id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		order, err := svc.CreateCashOrder(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newOrderResponse(order))
	}
}

// CreateTransferOrder settles a cart against external transfer evidence
// that an admin later reviews.
func CreateTransferOrder(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}

		userID, cartID, err := settlementIdentity(r, "cartId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload createTransferOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		order, err := svc.CreateTransferOrder(ctx, settlement.TransferInput{
			OrderInput: settlement.OrderInput{
				UserID:          userID,
				CartID:          cartID,
				ShippingAddress: payload.ShippingAddress.toAddress(),
			},
			PayerPhone:            payload.PayerPhone,
			ExternalTransactionID: payload.ExternalTransactionID,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newOrderResponse(order))
	}
}

// CreateWalletOrder settles a cart by debiting the buyer's wallet.
func CreateWalletOrder(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}

		input, err := orderInputFromRequest(r, "cartId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		order, err := svc.CreateWalletOrder(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newOrderResponse(order))
	}
}

// CreateCheckoutSession opens a hosted card payment page for the cart.
// The shipping address rides along as query parameters because the
// session is requested with GET.
func CreateCheckoutSession(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}

		userID, cartID, err := settlementIdentity(r, "cartId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		query := r.URL.Query()
		address := types.ShippingAddress{
			Details:    strings.TrimSpace(query.Get("details")),
			Phone:      strings.TrimSpace(query.Get("phone")),
			City:       strings.TrimSpace(query.Get("city")),
			PostalCode: strings.TrimSpace(query.Get("postal_code")),
		}

		session, err := svc.CreateCardCheckoutSession(ctx, settlement.OrderInput{
			UserID:          userID,
			CartID:          cartID,
			ShippingAddress: address,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{
			"session_id": session.SessionID,
			"url":        session.URL,
		})
	}
}

// ListOrders returns the caller's own orders, or every order with
// optional filters when the caller is an admin or manager.
func ListOrders(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
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

		role := enums.Role(middleware.RoleFromContext(ctx))
		var page *ordersvc.OrderPage
		if role == enums.RoleAdmin || role == enums.RoleManager {
			filters, err := orderFiltersFromRequest(r)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			page, err = svc.ListAll(ctx, params, filters)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
		} else {
			page, err = svc.ListMine(ctx, userID, params)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
		}
		responses.WriteSuccess(w, newOrderPageResponse(page))
	}
}

// ListPendingTransfers returns transfer orders awaiting review.
func ListPendingTransfers(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		params, err := paginationFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		method := enums.PaymentMethodTransfer
		status := enums.PaymentStatusPending
		page, err := svc.ListAll(ctx, params, ordersvc.ListFilters{
			PaymentMethod: &method,
			PaymentStatus: &status,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderPageResponse(page))
	}
}

// GetOrder returns a single order. Buyers only see their own; admins
// and managers can fetch any.
func GetOrder(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		orderID, err := uuidParam(r, "id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		role := enums.Role(middleware.RoleFromContext(ctx))
		var order *models.Order
		if role == enums.RoleAdmin || role == enums.RoleManager {
			order, err = svc.Get(ctx, orderID)
		} else {
			userID := middleware.UserUUIDFromContext(ctx)
			if userID == uuid.Nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
				return
			}
			order, err = svc.GetForUser(ctx, orderID, userID)
		}
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// MarkOrderPaid flips the paid flag on an order.
func MarkOrderPaid(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return orderTransition(svc, logg, func(r *http.Request, id uuid.UUID) (*models.Order, error) {
		return svc.MarkPaid(r.Context(), id)
	})
}

// MarkOrderDelivered flips the delivered flag on an order.
func MarkOrderDelivered(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return orderTransition(svc, logg, func(r *http.Request, id uuid.UUID) (*models.Order, error) {
		return svc.MarkDelivered(r.Context(), id)
	})
}

// ApproveTransferPayment confirms a pending transfer order.
func ApproveTransferPayment(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return transferReview(svc, logg, func(r *http.Request, input ordersvc.ReviewInput) (*models.Order, error) {
		return svc.ApproveTransfer(r.Context(), input)
	})
}

// RejectTransferPayment rejects a pending transfer order and releases
// its reserved stock.
func RejectTransferPayment(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return transferReview(svc, logg, func(r *http.Request, input ordersvc.ReviewInput) (*models.Order, error) {
		return svc.RejectTransfer(r.Context(), input)
	})
}

func orderTransition(svc ordersvc.Service, logg *logger.Logger, apply func(*http.Request, uuid.UUID) (*models.Order, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		orderID, err := uuidParam(r, "id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		order, err := apply(r, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

func transferReview(svc ordersvc.Service, logg *logger.Logger, apply func(*http.Request, ordersvc.ReviewInput) (*models.Order, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		orderID, err := uuidParam(r, "id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload reviewTransferRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
		}

		order, err := apply(r, ordersvc.ReviewInput{
			OrderID:    orderID,
			AdminNotes: payload.AdminNotes,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

func orderInputFromRequest(r *http.Request, cartParam string) (settlement.OrderInput, error) {
	userID, cartID, err := settlementIdentity(r, cartParam)
	if err != nil {
		return settlement.OrderInput{}, err
	}

	var payload createOrderRequest
	if err := validators.DecodeJSONBody(r, &payload); err != nil {
		return settlement.OrderInput{}, err
	}

	return settlement.OrderInput{
		UserID:          userID,
		CartID:          cartID,
		ShippingAddress: payload.ShippingAddress.toAddress(),
	}, nil
}

func settlementIdentity(r *http.Request, cartParam string) (userID, cartID uuid.UUID, err error) {
	userID = middleware.UserUUIDFromContext(r.Context())
	if userID == uuid.Nil {
		return uuid.Nil, uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	cartID, err = uuidParam(r, cartParam)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return userID, cartID, nil
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name)
	}
	return id, nil
}

func paginationFromRequest(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}, nil
}

func orderFiltersFromRequest(r *http.Request) (ordersvc.ListFilters, error) {
	var filters ordersvc.ListFilters
	query := r.URL.Query()

	if raw := strings.TrimSpace(query.Get("payment_method")); raw != "" {
		method, err := enums.ParsePaymentMethod(raw)
		if err != nil {
			return ordersvc.ListFilters{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment_method")
		}
		filters.PaymentMethod = &method
	}
	if raw := strings.TrimSpace(query.Get("payment_status")); raw != "" {
		status, err := enums.ParsePaymentStatus(raw)
		if err != nil {
			return ordersvc.ListFilters{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment_status")
		}
		filters.PaymentStatus = &status
	}
	if raw := strings.TrimSpace(query.Get("is_paid")); raw != "" {
		switch raw {
		case "true":
			paid := true
			filters.IsPaid = &paid
		case "false":
			paid := false
			filters.IsPaid = &paid
		default:
			return ordersvc.ListFilters{}, pkgerrors.New(pkgerrors.CodeValidation, "is_paid must be true or false")
		}
	}
	return filters, nil
}

type orderResponse struct {
	ID                   uuid.UUID             `json:"id"`
	UserID               uuid.UUID             `json:"user_id"`
	ShippingAddress      types.ShippingAddress `json:"shipping_address"`
	PaymentMethod        string                `json:"payment_method"`
	PaymentStatus        string                `json:"payment_status"`
	TransferDetail       *types.TransferDetail `json:"transfer_detail,omitempty"`
	AdminNotes           *string               `json:"admin_notes,omitempty"`
	ItemsPriceCents      int64                 `json:"items_price_cents"`
	TaxPriceCents        int64                 `json:"tax_price_cents"`
	ShippingPriceCents   int64                 `json:"shipping_price_cents"`
	DeliveryFeeCents     int64                 `json:"delivery_fee_cents"`
	TotalOrderPriceCents int64                 `json:"total_order_price_cents"`
	IsPaid               bool                  `json:"is_paid"`
	PaidAt               *time.Time            `json:"paid_at,omitempty"`
	IsDelivered          bool                  `json:"is_delivered"`
	DeliveredAt          *time.Time            `json:"delivered_at,omitempty"`
	Items                []orderItemResponse   `json:"items"`
	CreatedAt            time.Time             `json:"created_at"`
	UpdatedAt            time.Time             `json:"updated_at"`
}

type orderItemResponse struct {
	ID             uuid.UUID `json:"id"`
	ProductID      uuid.UUID `json:"product_id"`
	Name           string    `json:"name"`
	Quantity       int       `json:"quantity"`
	Color          *string   `json:"color,omitempty"`
	UnitPriceCents int64     `json:"unit_price_cents"`
}

type orderPageResponse struct {
	Orders     []orderResponse `json:"orders"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

func newOrderResponse(order *models.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemResponse{
			ID:             item.ID,
			ProductID:      item.ProductID,
			Name:           item.Name,
			Quantity:       item.Quantity,
			Color:          item.Color,
			UnitPriceCents: item.UnitPriceCents,
		})
	}

	return orderResponse{
		ID:                   order.ID,
		UserID:               order.UserID,
		ShippingAddress:      order.ShippingAddress,
		PaymentMethod:        string(order.PaymentMethod),
		PaymentStatus:        string(order.PaymentStatus),
		TransferDetail:       order.TransferDetail,
		AdminNotes:           order.AdminNotes,
		ItemsPriceCents:      order.ItemsPriceCents,
		TaxPriceCents:        order.TaxPriceCents,
		ShippingPriceCents:   order.ShippingPriceCents,
		DeliveryFeeCents:     order.DeliveryFeeCents,
		TotalOrderPriceCents: order.TotalOrderPriceCents,
		IsPaid:               order.IsPaid,
		PaidAt:               order.PaidAt,
		IsDelivered:          order.IsDelivered,
		DeliveredAt:          order.DeliveredAt,
		Items:                items,
		CreatedAt:            order.CreatedAt,
		UpdatedAt:            order.UpdatedAt,
	}
}

func newOrderPageResponse(page *ordersvc.OrderPage) orderPageResponse {
	orders := make([]orderResponse, 0, len(page.Orders))
	for i := range page.Orders {
		orders = append(orders, newOrderResponse(&page.Orders[i]))
	}
	return orderPageResponse{Orders: orders, NextCursor: page.NextCursor}
}
