package settlement

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/lc3lx/backend-zouhal/internal/wallet"
	"github.com/lc3lx/backend-zouhal/pkg/db/models"
	"github.com/lc3lx/backend-zouhal/pkg/enums"
	pkgerrors "github.com/lc3lx/backend-zouhal/pkg/errors"
	"github.com/lc3lx/backend-zouhal/pkg/types"
)

// CreateCashOrder settles a cart for cash on delivery. The flat
// delivery fee is added on top of the cart total and payment happens at
// the door, so the order starts unpaid.
func (s *service) CreateCashOrder(ctx context.Context, input OrderInput) (order *models.Order, err error) {
	start := s.now()
	defer func() { s.observe(enums.PaymentMethodCash, start, err) }()

	if err = validateOrderInput(input); err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		created, terr := s.settleCart(ctx, tx, input, enums.PaymentMethodCash, nil)
		if terr != nil {
			return terr
		}
		order = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logOrder(ctx, order, "cash order created")
	return order, nil
}

// CreateTransferOrder settles a cart paid by an external money
// transfer. Stock is taken optimistically and the order stays pending
// until an admin approves or rejects the transfer evidence.
func (s *service) CreateTransferOrder(ctx context.Context, input TransferInput) (order *models.Order, err error) {
	start := s.now()
	defer func() { s.observe(enums.PaymentMethodTransfer, start, err) }()

	if err = validateOrderInput(input.OrderInput); err != nil {
		return nil, err
	}
	if input.PayerPhone == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payer phone is required")
	}
	if input.ExternalTransactionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "external transaction id is required")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		created, terr := s.settleCart(ctx, tx, input.OrderInput, enums.PaymentMethodTransfer, func(q quote, order *models.Order) {
			order.TransferDetail = &types.TransferDetail{
				PayerPhone:            input.PayerPhone,
				ExternalTransactionID: input.ExternalTransactionID,
				AmountCents:           q.TotalCents,
			}
		})
		if terr != nil {
			return terr
		}
		order = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logOrder(ctx, order, "transfer order created, awaiting review")
	return order, nil
}

// CreateWalletOrder settles a cart against the buyer's wallet balance.
// The debit and the order land in the same transaction, so a losing
// concurrent spender gets INSUFFICIENT_FUNDS and no order.
func (s *service) CreateWalletOrder(ctx context.Context, input OrderInput) (order *models.Order, err error) {
	start := s.now()
	defer func() { s.observe(enums.PaymentMethodWallet, start, err) }()

	if err = validateOrderInput(input); err != nil {
		return nil, err
	}

	cart, err := s.loadCartForUser(ctx, s.carts, input.CartID, input.UserID)
	if err != nil {
		return nil, err
	}
	total := s.quoteFor(cart, enums.PaymentMethodWallet).TotalCents

	// fast precheck; the guarded debit below still closes the race
	enough, err := s.wallet.HasSufficientBalance(ctx, input.UserID, total)
	if err != nil {
		return nil, err
	}
	if !enough {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientFunds, "wallet balance insufficient").
			WithDetails(map[string]any{"required_cents": total})
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		created, terr := s.settleCart(ctx, tx, input, enums.PaymentMethodWallet, s.markPaid)
		if terr != nil {
			return terr
		}
		_, terr = s.wallet.ApplyTransactionTx(ctx, tx, wallet.TransactionInput{
			UserID:      input.UserID,
			Type:        enums.TransactionTypeDebit,
			AmountCents: created.TotalOrderPriceCents,
			Description: fmt.Sprintf("Payment for order #%s", created.ID),
			OrderID:     &created.ID,
		})
		if terr != nil {
			return terr
		}
		order = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logOrder(ctx, order, "wallet order created and paid")
	return order, nil
}

// settleCart runs the shared path inside the caller's transaction:
// reload the cart, reserve stock, snapshot the items into a new order,
// then drop the cart. decorate, when set, adjusts the order before it
// is written.
func (s *service) settleCart(
	ctx context.Context,
	tx *gorm.DB,
	input OrderInput,
	method enums.PaymentMethod,
	decorate func(quote, *models.Order),
) (*models.Order, error) {
	cartRepo := s.carts.WithTx(tx)
	cart, err := s.loadCartForUser(ctx, cartRepo, input.CartID, input.UserID)
	if err != nil {
		return nil, err
	}

	if err := s.stock.Reserve(ctx, tx, adjustmentsFor(cart)); err != nil {
		return nil, err
	}

	items, err := s.snapshotItems(ctx, tx, cart)
	if err != nil {
		return nil, err
	}

	q := s.quoteFor(cart, method)
	order := &models.Order{
		UserID:               input.UserID,
		ShippingAddress:      input.ShippingAddress,
		PaymentMethod:        method,
		PaymentStatus:        enums.PaymentStatusPending,
		ItemsPriceCents:      q.ItemsCents,
		TaxPriceCents:        q.TaxCents,
		ShippingPriceCents:   q.ShippingCents,
		DeliveryFeeCents:     q.DeliveryCents,
		TotalOrderPriceCents: q.TotalCents,
		Items:                items,
	}
	if decorate != nil {
		decorate(q, order)
	}

	created, err := s.orders.WithTx(tx).Create(ctx, order)
	if err != nil {
		return nil, err
	}

	if err := cartRepo.Delete(ctx, cart.ID); err != nil {
		return nil, err
	}
	return created, nil
}

// markPaid stamps the order as settled at creation time.
func (s *service) markPaid(_ quote, order *models.Order) {
	now := s.now()
	order.PaymentStatus = enums.PaymentStatusApproved
	order.IsPaid = true
	order.PaidAt = &now
}

func (s *service) logOrder(ctx context.Context, order *models.Order, msg string) {
	if s.logg == nil || order == nil {
		return
	}
	s.logg.Info(s.logg.WithOrderID(ctx, order.ID.String()), msg)
}
