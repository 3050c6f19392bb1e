package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lc3lx/backend-zouhal/api/middleware"
	ordersvc "github.com/lc3lx/backend-zouhal/internal/orders"
	"github.com/lc3lx/backend-zouhal/internal/settlement"
	"github.com/lc3lx/backend-zouhal/pkg/db/models"
	"github.com/lc3lx/backend-zouhal/pkg/enums"
	pkgerrors "github.com/lc3lx/backend-zouhal/pkg/errors"
	"github.com/lc3lx/backend-zouhal/pkg/pagination"
)

type fakeSettlementService struct {
	settlement.Service
	cashInputs     []settlement.OrderInput
	transferInputs []settlement.TransferInput
	err            error
}

func (f *fakeSettlementService) CreateCashOrder(ctx context.Context, input settlement.OrderInput) (*models.Order, error) {
	f.cashInputs = append(f.cashInputs, input)
	if f.err != nil {
		return nil, f.err
	}
	return &models.Order{
		ID:            uuid.New(),
		UserID:        input.UserID,
		PaymentMethod: enums.PaymentMethodCash,
		PaymentStatus: enums.PaymentStatusPending,
	}, nil
}

func (f *fakeSettlementService) CreateTransferOrder(ctx context.Context, input settlement.TransferInput) (*models.Order, error) {
	f.transferInputs = append(f.transferInputs, input)
	if f.err != nil {
		return nil, f.err
	}
	return &models.Order{
		ID:            uuid.New(),
		UserID:        input.UserID,
		PaymentMethod: enums.PaymentMethodTransfer,
		PaymentStatus: enums.PaymentStatusPending,
	}, nil
}

type fakeOrdersService struct {
	ordersvc.Service
	getCalls        int
	getForUserCalls int
	listAllFilters  []ordersvc.ListFilters
}

func (f *fakeOrdersService) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	f.getCalls++
	return &models.Order{ID: orderID}, nil
}

func (f *fakeOrdersService) GetForUser(ctx context.Context, orderID, userID uuid.UUID) (*models.Order, error) {
	f.getForUserCalls++
	return &models.Order{ID: orderID, UserID: userID}, nil
}

func (f *fakeOrdersService) ListAll(ctx context.Context, params pagination.Params, filters ordersvc.ListFilters) (*ordersvc.OrderPage, error) {
	f.listAllFilters = append(f.listAllFilters, filters)
	return &ordersvc.OrderPage{}, nil
}

func authedRequest(method, target string, body string, userID uuid.UUID, role enums.Role) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	ctx := middleware.WithUserID(req.Context(), userID.String())
	ctx = middleware.WithRole(ctx, string(role))
	return req.WithContext(ctx)
}

func ordersRouter(settle settlement.Service, orders ordersvc.Service) http.Handler {
	r := chi.NewRouter()
	r.Post("/orders/{id}", CreateCashOrder(settle, nil))
	r.Post("/orders/transfer/{cartId}", CreateTransferOrder(settle, nil))
	r.Get("/orders/{id}", GetOrder(orders, nil))
	r.Get("/orders/transfer/pending", ListPendingTransfers(orders, nil))
	return r
}

func TestCreateCashOrderForwardsInput(t *testing.T) {
	settle := &fakeSettlementService{}
	router := ordersRouter(settle, &fakeOrdersService{})

	userID := uuid.New()
	cartID := uuid.New()
	body := `{"shipping_address":{"details":"12 Main St","phone":"0999000000","city":"Damascus"}}`
	req := authedRequest(http.MethodPost, "/orders/"+cartID.String(), body, userID, enums.RoleUser)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	if len(settle.cashInputs) != 1 {
		t.Fatalf("expected one settlement call, got %d", len(settle.cashInputs))
	}
	got := settle.cashInputs[0]
	if got.UserID != userID || got.CartID != cartID {
		t.Fatalf("identity not forwarded: %+v", got)
	}
	if got.ShippingAddress.City != "Damascus" {
		t.Fatalf("shipping address not forwarded: %+v", got.ShippingAddress)
	}
}

func TestCreateCashOrderRejectsBadCartID(t *testing.T) {
	settle := &fakeSettlementService{}
	router := ordersRouter(settle, &fakeOrdersService{})

	body := `{"shipping_address":{"details":"12 Main St","phone":"0999000000","city":"Damascus"}}`
	req := authedRequest(http.MethodPost, "/orders/not-a-uuid", body, uuid.New(), enums.RoleUser)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if len(settle.cashInputs) != 0 {
		t.Fatalf("settlement should not be called for a bad cart id")
	}
}

func TestCreateTransferOrderRequiresEvidence(t *testing.T) {
	settle := &fakeSettlementService{}
	router := ordersRouter(settle, &fakeOrdersService{})

	body := `{"shipping_address":{"details":"12 Main St","phone":"0999000000","city":"Damascus"}}`
	req := authedRequest(http.MethodPost, "/orders/transfer/"+uuid.NewString(), body, uuid.New(), enums.RoleUser)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without transfer evidence, got %d", rec.Code)
	}
	if len(settle.transferInputs) != 0 {
		t.Fatalf("settlement should not be called without evidence")
	}
}

func TestCreateTransferOrderForwardsEvidence(t *testing.T) {
	settle := &fakeSettlementService{}
	router := ordersRouter(settle, &fakeOrdersService{})

	cartID := uuid.New()
	body := `{"shipping_address":{"details":"12 Main St","phone":"0999000000","city":"Damascus"},"payer_phone":"0999111222","external_transaction_id":"tx-789"}`
	req := authedRequest(http.MethodPost, "/orders/transfer/"+cartID.String(), body, uuid.New(), enums.RoleUser)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	got := settle.transferInputs[0]
	if got.PayerPhone != "0999111222" || got.ExternalTransactionID != "tx-789" {
		t.Fatalf("evidence not forwarded: %+v", got)
	}
	if got.CartID != cartID {
		t.Fatalf("cart id not forwarded: %+v", got)
	}
}

func TestGetOrderScopesByRole(t *testing.T) {
	orders := &fakeOrdersService{}
	router := ordersRouter(&fakeSettlementService{}, orders)

	req := authedRequest(http.MethodGet, "/orders/"+uuid.NewString(), "", uuid.New(), enums.RoleUser)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("user read failed: %d", rec.Code)
	}
	if orders.getForUserCalls != 1 || orders.getCalls != 0 {
		t.Fatalf("user must go through ownership check: forUser=%d all=%d", orders.getForUserCalls, orders.getCalls)
	}

	req = authedRequest(http.MethodGet, "/orders/"+uuid.NewString(), "", uuid.New(), enums.RoleAdmin)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin read failed: %d", rec.Code)
	}
	if orders.getCalls != 1 {
		t.Fatalf("admin must read without ownership scoping, got %d", orders.getCalls)
	}
}

func TestListPendingTransfersPinsFilters(t *testing.T) {
	orders := &fakeOrdersService{}
	router := ordersRouter(&fakeSettlementService{}, orders)

	req := authedRequest(http.MethodGet, "/orders/transfer/pending", "", uuid.New(), enums.RoleAdmin)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if len(orders.listAllFilters) != 1 {
		t.Fatalf("expected one listing call, got %d", len(orders.listAllFilters))
	}
	filters := orders.listAllFilters[0]
	if filters.PaymentMethod == nil || *filters.PaymentMethod != enums.PaymentMethodTransfer {
		t.Fatalf("expected transfer method filter, got %+v", filters)
	}
	if filters.PaymentStatus == nil || *filters.PaymentStatus != enums.PaymentStatusPending {
		t.Fatalf("expected pending status filter, got %+v", filters)
	}
}

func TestCreateCashOrderSurfacesSettlementErrors(t *testing.T) {
	settle := &fakeSettlementService{err: pkgerrors.New(pkgerrors.CodeOutOfStock, "insufficient stock")}
	router := ordersRouter(settle, &fakeOrdersService{})

	body := `{"shipping_address":{"details":"12 Main St","phone":"0999000000","city":"Damascus"}}`
	req := authedRequest(http.MethodPost, "/orders/"+uuid.NewString(), body, uuid.New(), enums.RoleUser)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for out of stock, got %d (%s)", rec.Code, rec.Body.String())
	}
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse error body: %v", err)
	}
	if payload.Error.Code != string(pkgerrors.CodeOutOfStock) {
		t.Fatalf("expected OUT_OF_STOCK, got %s", payload.Error.Code)
	}
}
