package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lc3lx/backend-zouhal/internal/inventory"
	"github.com/lc3lx/backend-zouhal/pkg/db/models"
	"github.com/lc3lx/backend-zouhal/pkg/enums"
	pkgerrors "github.com/lc3lx/backend-zouhal/pkg/errors"
	"github.com/lc3lx/backend-zouhal/pkg/logger"
	"github.com/lc3lx/backend-zouhal/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// OrderPage is a cursor-paginated slice of orders.
type OrderPage struct {
	Orders     []models.Order
	NextCursor string
}

// ReviewInput carries the admin decision parameters for a transfer order.
type ReviewInput struct {
	OrderID    uuid.UUID
	AdminNotes *string
}

// Service exposes order reads and admin lifecycle operations.
type Service interface {
	Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	GetForUser(ctx context.Context, orderID, userID uuid.UUID) (*models.Order, error)
	ListMine(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderPage, error)
	ListAll(ctx context.Context, params pagination.Params, filters ListFilters) (*OrderPage, error)
	MarkPaid(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	MarkDelivered(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	ApproveTransfer(ctx context.Context, input ReviewInput) (*models.Order, error)
	RejectTransfer(ctx context.Context, input ReviewInput) (*models.Order, error)
}

type service struct {
	repo  Repository
	tx    txRunner
	stock inventory.Manager
	logg  *logger.Logger
	now   func() time.Time
}

// NewService builds an order service with the required dependencies.
func NewService(repo Repository, tx txRunner, stock inventory.Manager, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if stock == nil {
		return nil, fmt.Errorf("inventory manager required")
	}
	return &service{
		repo:  repo,
		tx:    tx,
		stock: stock,
		logg:  logg,
		now:   time.Now,
	}, nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, err
	}
	return order, nil
}

func (s *service) GetForUser(ctx context.Context, orderID, userID uuid.UUID) (*models.Order, error) {
	order, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
	}
	return order, nil
}

func (s *service) ListMine(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderPage, error) {
	orders, next, err := s.repo.ListByUser(ctx, userID, params)
	if err != nil {
		return nil, err
	}
	return &OrderPage{Orders: orders, NextCursor: next}, nil
}

func (s *service) ListAll(ctx context.Context, params pagination.Params, filters ListFilters) (*OrderPage, error) {
	orders, next, err := s.repo.List(ctx, params, filters)
	if err != nil {
		return nil, err
	}
	return &OrderPage{Orders: orders, NextCursor: next}, nil
}

func (s *service) MarkPaid(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.IsPaid {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order already paid")
	}
	now := s.now()
	if err := s.repo.Update(ctx, orderID, map[string]any{
		"is_paid": true,
		"paid_at": now,
	}); err != nil {
		return nil, err
	}
	return s.Get(ctx, orderID)
}

func (s *service) MarkDelivered(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.IsDelivered {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order already delivered")
	}
	now := s.now()
	if err := s.repo.Update(ctx, orderID, map[string]any{
		"is_delivered": true,
		"delivered_at": now,
	}); err != nil {
		return nil, err
	}
	return s.Get(ctx, orderID)
}

// ApproveTransfer marks a pending transfer order as approved and paid.
// The status flip is guarded so two concurrent reviews cannot both win.
func (s *service) ApproveTransfer(ctx context.Context, input ReviewInput) (*models.Order, error) {
	order, err := s.Get(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if err := requirePendingTransfer(order); err != nil {
		return nil, err
	}

	now := s.now()
	updates := map[string]any{
		"payment_status": enums.PaymentStatusApproved,
		"is_paid":        true,
		"paid_at":        now,
	}
	if input.AdminNotes != nil {
		updates["admin_notes"] = *input.AdminNotes
	}

	changed, err := s.repo.UpdateWhere(ctx, input.OrderID, map[string]any{
		"payment_status": enums.PaymentStatusPending,
	}, updates)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is no longer pending review")
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithOrderID(ctx, input.OrderID.String()), "transfer order approved")
	}
	return s.Get(ctx, input.OrderID)
}

// RejectTransfer marks a pending transfer order as rejected and returns
// its reserved stock. Both happen in one transaction.
func (s *service) RejectTransfer(ctx context.Context, input ReviewInput) (*models.Order, error) {
	order, err := s.Get(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if err := requirePendingTransfer(order); err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		updates := map[string]any{
			"payment_status": enums.PaymentStatusRejected,
		}
		if input.AdminNotes != nil {
			updates["admin_notes"] = *input.AdminNotes
		}
		changed, uerr := repo.UpdateWhere(ctx, input.OrderID, map[string]any{
			"payment_status": enums.PaymentStatusPending,
		}, updates)
		if uerr != nil {
			return uerr
		}
		if !changed {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is no longer pending review")
		}

		adjustments := make([]inventory.Adjustment, 0, len(order.Items))
		for _, item := range order.Items {
			adjustments = append(adjustments, inventory.Adjustment{
				ProductID: item.ProductID,
				Qty:       item.Quantity,
			})
		}
		return s.stock.Release(ctx, tx, adjustments)
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithOrderID(ctx, input.OrderID.String()), "transfer order rejected, stock returned")
	}
	return s.Get(ctx, input.OrderID)
}

func requirePendingTransfer(order *models.Order) error {
	if order.PaymentMethod != enums.PaymentMethodTransfer {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "only transfer orders are reviewed")
	}
	if order.PaymentStatus != enums.PaymentStatusPending {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order is no longer pending review").
			WithDetails(map[string]any{"payment_status": order.PaymentStatus})
	}
	return nil
}
