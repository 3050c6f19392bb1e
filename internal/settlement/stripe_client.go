package settlement

import (
	"context"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/checkout/session"

	pkgstripe "github.com/lc3lx/backend-zouhal/pkg/stripe"
)

// checkoutClient exposes the subset of Stripe operations settlement
// needs, so card flows can be tested without the network.
type checkoutClient interface {
	CreateSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	SuccessURL() string
	CancelURL() string
}

type stripeCheckoutClient struct {
	api *pkgstripe.Client
}

// NewStripeCheckoutClient wraps the shared Stripe client for hosted
// checkout sessions.
func NewStripeCheckoutClient(api *pkgstripe.Client) checkoutClient {
	if api == nil {
		return nil
	}
	return &stripeCheckoutClient{api: api}
}

func (c *stripeCheckoutClient) CreateSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	if params != nil {
		params.Context = ctx
	}
	return session.New(params)
}

func (c *stripeCheckoutClient) SuccessURL() string {
	return c.api.SuccessURL()
}

func (c *stripeCheckoutClient) CancelURL() string {
	return c.api.CancelURL()
}
