package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/lc3lx/backend-zouhal/internal/inventory"
	"github.com/lc3lx/backend-zouhal/pkg/db"
	"github.com/lc3lx/backend-zouhal/pkg/db/models"
	"github.com/lc3lx/backend-zouhal/pkg/enums"
	pkgerrors "github.com/lc3lx/backend-zouhal/pkg/errors"
	"github.com/lc3lx/backend-zouhal/pkg/pagination"
	"github.com/lc3lx/backend-zouhal/pkg/types"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(&models.Order{}, &models.OrderItem{}, &models.Product{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	svc, err := NewService(NewRepository(conn), db.NewWithConn(conn), inventory.NewManager(), nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, conn
}

func seedTransferOrder(t *testing.T, conn *gorm.DB, userID uuid.UUID) (*models.Order, uuid.UUID) {
	t.Helper()
	product := models.Product{ID: uuid.New(), Title: "widget", PriceCents: 1000, Quantity: 3, Sold: 2}
	if err := conn.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	order := models.Order{
		ID:     uuid.New(),
		UserID: userID,
		ShippingAddress: types.ShippingAddress{
			Details: "main street 1", Phone: "0999", City: "Damascus",
		},
		PaymentMethod: enums.PaymentMethodTransfer,
		PaymentStatus: enums.PaymentStatusPending,
		TransferDetail: &types.TransferDetail{
			PayerPhone:            "0999",
			ExternalTransactionID: "tx-123",
			AmountCents:           2000,
		},
		ItemsPriceCents:      2000,
		TotalOrderPriceCents: 2000,
		Items: []models.OrderItem{
			{ID: uuid.New(), ProductID: product.ID, Name: product.Title, Quantity: 2, UnitPriceCents: 1000},
		},
	}
	if err := conn.Create(&order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return &order, product.ID
}

func TestGetForUserEnforcesOwnership(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	order, _ := seedTransferOrder(t, conn, userID)

	if _, err := svc.GetForUser(ctx, order.ID, userID); err != nil {
		t.Fatalf("owner read failed: %v", err)
	}
	_, err := svc.GetForUser(ctx, order.ID, uuid.New())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestApproveTransferFlipsOnce(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t)
	ctx := context.Background()
	order, _ := seedTransferOrder(t, conn, uuid.New())

	notes := "verified against bank statement"
	approved, err := svc.ApproveTransfer(ctx, ReviewInput{OrderID: order.ID, AdminNotes: &notes})
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.PaymentStatus != enums.PaymentStatusApproved {
		t.Fatalf("expected approved, got %s", approved.PaymentStatus)
	}
	if !approved.IsPaid || approved.PaidAt == nil {
		t.Fatalf("expected paid state, got %+v", approved)
	}
	if approved.AdminNotes == nil || *approved.AdminNotes != notes {
		t.Fatalf("expected admin notes preserved, got %v", approved.AdminNotes)
	}

	_, err = svc.ApproveTransfer(ctx, ReviewInput{OrderID: order.ID})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict on second approve, got %v", err)
	}
}

func TestRejectTransferReturnsStock(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t)
	ctx := context.Background()
	order, productID := seedTransferOrder(t, conn, uuid.New())

	notes := "transaction id not found"
	rejected, err := svc.RejectTransfer(ctx, ReviewInput{OrderID: order.ID, AdminNotes: &notes})
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.PaymentStatus != enums.PaymentStatusRejected {
		t.Fatalf("expected rejected, got %s", rejected.PaymentStatus)
	}
	if rejected.IsPaid {
		t.Fatal("rejected order must not be paid")
	}

	var product models.Product
	if err := conn.First(&product, "id = ?", productID).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	if product.Quantity != 5 || product.Sold != 0 {
		t.Fatalf("expected stock returned to 5/0, got %d/%d", product.Quantity, product.Sold)
	}
}

func TestReviewRejectsNonTransferOrders(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t)
	ctx := context.Background()
	order := models.Order{
		ID:                   uuid.New(),
		UserID:               uuid.New(),
		PaymentMethod:        enums.PaymentMethodCash,
		PaymentStatus:        enums.PaymentStatusPending,
		ItemsPriceCents:      1000,
		TotalOrderPriceCents: 1200,
	}
	if err := conn.Create(&order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}

	_, err := svc.ApproveTransfer(ctx, ReviewInput{OrderID: order.ID})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestMarkPaidAndDelivered(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t)
	ctx := context.Background()
	order, _ := seedTransferOrder(t, conn, uuid.New())

	paid, err := svc.MarkPaid(ctx, order.ID)
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if !paid.IsPaid || paid.PaidAt == nil {
		t.Fatalf("expected paid, got %+v", paid)
	}
	if _, err := svc.MarkPaid(ctx, order.ID); err == nil {
		t.Fatal("expected error on double mark paid")
	}

	delivered, err := svc.MarkDelivered(ctx, order.ID)
	if err != nil {
		t.Fatalf("mark delivered: %v", err)
	}
	if !delivered.IsDelivered || delivered.DeliveredAt == nil {
		t.Fatalf("expected delivered, got %+v", delivered)
	}
}

func TestListMineAndFilters(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t)
	ctx := context.Background()
	userA := uuid.New()
	userB := uuid.New()
	seedTransferOrder(t, conn, userA)
	seedTransferOrder(t, conn, userA)
	seedTransferOrder(t, conn, userB)

	mine, err := svc.ListMine(ctx, userA, pagination.Params{Limit: 10})
	if err != nil {
		t.Fatalf("list mine: %v", err)
	}
	if len(mine.Orders) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(mine.Orders))
	}

	method := enums.PaymentMethodTransfer
	all, err := svc.ListAll(ctx, pagination.Params{Limit: 10}, ListFilters{PaymentMethod: &method})
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all.Orders) != 3 {
		t.Fatalf("expected 3 transfer orders, got %d", len(all.Orders))
	}

	cash := enums.PaymentMethodCash
	none, err := svc.ListAll(ctx, pagination.Params{Limit: 10}, ListFilters{PaymentMethod: &cash})
	if err != nil {
		t.Fatalf("list cash: %v", err)
	}
	if len(none.Orders) != 0 {
		t.Fatalf("expected no cash orders, got %d", len(none.Orders))
	}
}
