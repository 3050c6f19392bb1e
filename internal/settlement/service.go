package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lc3lx/backend-zouhal/internal/carts"
	"github.com/lc3lx/backend-zouhal/internal/inventory"
	"github.com/lc3lx/backend-zouhal/internal/orders"
	"github.com/lc3lx/backend-zouhal/internal/products"
	"github.com/lc3lx/backend-zouhal/internal/wallet"
	"github.com/lc3lx/backend-zouhal/pkg/config"
	"github.com/lc3lx/backend-zouhal/pkg/db/models"
	"github.com/lc3lx/backend-zouhal/pkg/enums"
	pkgerrors "github.com/lc3lx/backend-zouhal/pkg/errors"
	"github.com/lc3lx/backend-zouhal/pkg/logger"
	"github.com/lc3lx/backend-zouhal/pkg/metrics"
	"github.com/lc3lx/backend-zouhal/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// walletPayer is the slice of the wallet service settlement needs to
// charge wallet orders.
type walletPayer interface {
	HasSufficientBalance(ctx context.Context, userID uuid.UUID, amountCents int64) (bool, error)
	ApplyTransactionTx(ctx context.Context, tx *gorm.DB, input wallet.TransactionInput) (*models.WalletTransaction, error)
}

// OrderInput carries what every settlement path needs: the buyer, the
// cart being settled, and where the order ships.
type OrderInput struct {
	UserID          uuid.UUID
	CartID          uuid.UUID
	ShippingAddress types.ShippingAddress
}

// TransferInput adds the external transfer evidence admins review.
type TransferInput struct {
	OrderInput
	PayerPhone            string
	ExternalTransactionID string
}

// CheckoutSession is the hosted payment page handed back to the client.
type CheckoutSession struct {
	SessionID string
	URL       string
}

// CardConfirmation is what the payment webhook reports once the hosted
// session completes.
type CardConfirmation struct {
	UserID           uuid.UUID
	CartID           uuid.UUID
	ShippingAddress  types.ShippingAddress
	AmountTotalCents int64
	SessionID        string
}

// Service turns carts into orders, one payment method at a time. Every
// path reserves stock, snapshots the cart into order items, and deletes
// the cart inside a single transaction.
type Service interface {
	CreateCashOrder(ctx context.Context, input OrderInput) (*models.Order, error)
	CreateTransferOrder(ctx context.Context, input TransferInput) (*models.Order, error)
	CreateWalletOrder(ctx context.Context, input OrderInput) (*models.Order, error)
	CreateCardCheckoutSession(ctx context.Context, input OrderInput) (*CheckoutSession, error)
	ConfirmCardPayment(ctx context.Context, confirmation CardConfirmation) (*models.Order, error)
}

type service struct {
	carts    carts.Repository
	products products.Repository
	orders   orders.Repository
	stock    inventory.Manager
	wallet   walletPayer
	tx       txRunner
	pricing  config.PricingConfig
	checkout checkoutClient
	metrics  *metrics.SettlementMetrics
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds the settlement coordinator. The checkout client may
// be nil when card payments are disabled; card operations then fail
// with a dependency error.
func NewService(
	cartRepo carts.Repository,
	productRepo products.Repository,
	orderRepo orders.Repository,
	stock inventory.Manager,
	walletSvc walletPayer,
	tx txRunner,
	pricing config.PricingConfig,
	checkout checkoutClient,
	settlementMetrics *metrics.SettlementMetrics,
	logg *logger.Logger,
) (Service, error) {
	if cartRepo == nil {
		return nil, fmt.Errorf("carts repository required")
	}
	if productRepo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if orderRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if stock == nil {
		return nil, fmt.Errorf("inventory manager required")
	}
	if walletSvc == nil {
		return nil, fmt.Errorf("wallet service required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		carts:    cartRepo,
		products: productRepo,
		orders:   orderRepo,
		stock:    stock,
		wallet:   walletSvc,
		tx:       tx,
		pricing:  pricing,
		checkout: checkout,
		metrics:  settlementMetrics,
		logg:     logg,
		now:      time.Now,
	}, nil
}

// quote is the priced breakdown of a cart for one payment method.
type quote struct {
	ItemsCents    int64
	TaxCents      int64
	ShippingCents int64
	DeliveryCents int64
	TotalCents    int64
}

func (s *service) quoteFor(cart *models.Cart, method enums.PaymentMethod) quote {
	q := quote{
		ItemsCents:    cart.EffectiveTotalCents(),
		TaxCents:      s.pricing.TaxCents,
		ShippingCents: s.pricing.ShippingCents,
	}
	if method == enums.PaymentMethodCash {
		q.DeliveryCents = s.pricing.CashDeliveryFeeCents
	}
	q.TotalCents = q.ItemsCents + q.TaxCents + q.ShippingCents + q.DeliveryCents
	return q
}

// loadCartForUser fetches the cart and enforces ownership and a
// non-empty item list.
func (s *service) loadCartForUser(ctx context.Context, repo carts.Repository, cartID, userID uuid.UUID) (*models.Cart, error) {
	cart, err := repo.FindByID(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if cart.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cart belongs to another user")
	}
	if len(cart.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	return cart, nil
}

func adjustmentsFor(cart *models.Cart) []inventory.Adjustment {
	adjustments := make([]inventory.Adjustment, 0, len(cart.Items))
	for _, item := range cart.Items {
		adjustments = append(adjustments, inventory.Adjustment{
			ProductID: item.ProductID,
			Qty:       item.Quantity,
		})
	}
	return adjustments
}

// snapshotItems copies cart lines into order items, pulling product
// titles so the order survives later catalog edits.
func (s *service) snapshotItems(ctx context.Context, tx *gorm.DB, cart *models.Cart) ([]models.OrderItem, error) {
	ids := make([]uuid.UUID, 0, len(cart.Items))
	for _, item := range cart.Items {
		ids = append(ids, item.ProductID)
	}
	found, err := s.products.WithTx(tx).FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	titles := make(map[uuid.UUID]string, len(found))
	for _, product := range found {
		titles[product.ID] = product.Title
	}

	items := make([]models.OrderItem, 0, len(cart.Items))
	for _, item := range cart.Items {
		title, ok := titles[item.ProductID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product no longer available").
				WithDetails(map[string]any{"product_id": item.ProductID})
		}
		items = append(items, models.OrderItem{
			ProductID:      item.ProductID,
			Name:           title,
			Quantity:       item.Quantity,
			Color:          item.Color,
			UnitPriceCents: item.UnitPriceCents,
		})
	}
	return items, nil
}

func validateOrderInput(input OrderInput) error {
	if input.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if input.CartID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart id is required")
	}
	if input.ShippingAddress.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "shipping address is required")
	}
	return nil
}

// observe records duration and outcome for one settlement attempt.
func (s *service) observe(method enums.PaymentMethod, start time.Time, err error) {
	s.metrics.ObserveDuration(string(method), time.Since(start))
	if err != nil {
		s.metrics.IncFailure(string(method), failureReason(err))
		return
	}
	s.metrics.IncSuccess(string(method))
}

func failureReason(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		return string(typed.Code())
	}
	return string(pkgerrors.CodeInternal)
}
