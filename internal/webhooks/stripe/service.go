package stripewebhook

import (
	"context"
	"encoding/json"

	"github.com/stripe/stripe-go/v84"

	"github.com/lc3lx/backend-zouhal/internal/settlement"
	pkgerrors "github.com/lc3lx/backend-zouhal/pkg/errors"
	"github.com/lc3lx/backend-zouhal/pkg/logger"
)

// Service routes verified Stripe events into settlement. Events the
// pipeline does not care about are acknowledged and dropped.
type Service struct {
	settlement settlement.Service
	logg       *logger.Logger
}

func NewService(settle settlement.Service, logg *logger.Logger) (*Service, error) {
	if settle == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "settlement service required")
	}
	return &Service{settlement: settle, logg: logg}, nil
}

func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode checkout session event")
		}
		return s.settleSession(ctx, &session)
	default:
		return nil
	}
}

func (s *Service) settleSession(ctx context.Context, session *stripe.CheckoutSession) error {
	confirmation, err := settlement.ConfirmationFromSession(session)
	if err != nil {
		return err
	}

	order, err := s.settlement.ConfirmCardPayment(ctx, confirmation)
	if err != nil {
		// The cart being gone means a previous delivery of this event
		// already settled it. Acknowledge instead of forcing retries.
		if coded := pkgerrors.As(err); coded != nil && coded.Code() == pkgerrors.CodeNotFound {
			if s.logg != nil {
				s.logg.Warn(ctx, "checkout session "+confirmation.SessionID+" already settled")
			}
			return nil
		}
		return err
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithOrderID(ctx, order.ID.String()), "checkout session settled")
	}
	return nil
}
