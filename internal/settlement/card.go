package settlement

import (
	"context"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/lc3lx/backend-zouhal/pkg/db/models"
	"github.com/lc3lx/backend-zouhal/pkg/enums"
	pkgerrors "github.com/lc3lx/backend-zouhal/pkg/errors"
	"github.com/lc3lx/backend-zouhal/pkg/types"
)

// Metadata keys round-tripped through the hosted checkout session so
// the webhook can reconstruct the order.
const (
	metadataUserID     = "user_id"
	metadataDetails    = "shipping_details"
	metadataPhone      = "shipping_phone"
	metadataCity       = "shipping_city"
	metadataPostalCode = "shipping_postal_code"
)

// ConfirmationFromSession reconstructs the settlement inputs embedded
// in a completed checkout session.
func ConfirmationFromSession(session *stripe.CheckoutSession) (CardConfirmation, error) {
	if session == nil {
		return CardConfirmation{}, pkgerrors.New(pkgerrors.CodeValidation, "checkout session required")
	}
	userID, err := uuid.Parse(session.Metadata[metadataUserID])
	if err != nil {
		return CardConfirmation{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "session metadata user id")
	}
	cartID, err := uuid.Parse(session.ClientReferenceID)
	if err != nil {
		return CardConfirmation{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "session client reference id")
	}
	return CardConfirmation{
		UserID: userID,
		CartID: cartID,
		ShippingAddress: types.ShippingAddress{
			Details:    session.Metadata[metadataDetails],
			Phone:      session.Metadata[metadataPhone],
			City:       session.Metadata[metadataCity],
			PostalCode: session.Metadata[metadataPostalCode],
		},
		AmountTotalCents: session.AmountTotal,
		SessionID:        session.ID,
	}, nil
}

// CreateCardCheckoutSession prices the cart and opens a hosted Stripe
// checkout session for it. The cart is referenced by the session and
// only settled once the payment webhook confirms it.
func (s *service) CreateCardCheckoutSession(ctx context.Context, input OrderInput) (*CheckoutSession, error) {
	if s.checkout == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "card payments are not configured")
	}
	if err := validateOrderInput(input); err != nil {
		return nil, err
	}

	cart, err := s.loadCartForUser(ctx, s.carts, input.CartID, input.UserID)
	if err != nil {
		return nil, err
	}
	total := s.quoteFor(cart, enums.PaymentMethodCard).TotalCents

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		ClientReferenceID: stripe.String(cart.ID.String()),
		SuccessURL:        stripe.String(s.checkout.SuccessURL()),
		CancelURL:         stripe.String(s.checkout.CancelURL()),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String("usd"),
					UnitAmount: stripe.Int64(total),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String("Order payment"),
					},
				},
			},
		},
	}
	params.AddMetadata(metadataUserID, input.UserID.String())
	params.AddMetadata(metadataDetails, input.ShippingAddress.Details)
	params.AddMetadata(metadataPhone, input.ShippingAddress.Phone)
	params.AddMetadata(metadataCity, input.ShippingAddress.City)
	params.AddMetadata(metadataPostalCode, input.ShippingAddress.PostalCode)

	sess, err := s.checkout.CreateSession(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create checkout session")
	}

	if s.logg != nil {
		s.logg.Info(ctx, "checkout session created for cart "+cart.ID.String())
	}
	return &CheckoutSession{SessionID: sess.ID, URL: sess.URL}, nil
}

// ConfirmCardPayment settles the cart once the payment provider reports
// the session as paid. The order is created already paid; a cart that
// is gone means the event was already processed and is not an error
// worth retrying.
func (s *service) ConfirmCardPayment(ctx context.Context, confirmation CardConfirmation) (order *models.Order, err error) {
	start := s.now()
	defer func() { s.observe(enums.PaymentMethodCard, start, err) }()

	input := OrderInput{
		UserID:          confirmation.UserID,
		CartID:          confirmation.CartID,
		ShippingAddress: confirmation.ShippingAddress,
	}
	if err = validateOrderInput(input); err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		created, terr := s.settleCart(ctx, tx, input, enums.PaymentMethodCard, func(q quote, o *models.Order) {
			s.markPaid(q, o)
			// trust the charged amount over the recomputed cart total
			if confirmation.AmountTotalCents > 0 {
				o.TotalOrderPriceCents = confirmation.AmountTotalCents
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

	s.logOrder(ctx, order, "card order settled from checkout session "+confirmation.SessionID)
	return order, nil
}
