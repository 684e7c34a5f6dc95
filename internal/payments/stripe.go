package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tourbook/internal/domain"
	"tourbook/internal/metrics"
	"tourbook/internal/models"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// StripeGateway implements domain.PaymentGateway on top of the Stripe API.
type StripeGateway struct {
	api     *client.API
	timeout time.Duration
	logger  *zerolog.Logger
}

// NewStripeGateway builds a gateway for the given secret key. An empty key yields a
// gateway whose every call fails with domain.ErrGateway.
func NewStripeGateway(secretKey string, timeout time.Duration, logger *zerolog.Logger) *StripeGateway {
	var api *client.API
	if secretKey != "" {
		api = client.New(secretKey, nil)
	}
	return newStripeGateway(api, timeout, logger)
}

// NewStripeGatewayWithBackends is used when the API endpoint must be overridden.
func NewStripeGatewayWithBackends(secretKey string, backends *stripe.Backends, timeout time.Duration, logger *zerolog.Logger) *StripeGateway {
	return newStripeGateway(client.New(secretKey, backends), timeout, logger)
}

func newStripeGateway(api *client.API, timeout time.Duration, logger *zerolog.Logger) *StripeGateway {
	if timeout <= 0 {
		timeout = models.DefaultGatewayTimeout * time.Second
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &StripeGateway{api: api, timeout: timeout, logger: logger}
}

func (g *StripeGateway) CreatePaymentIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*models.PaymentIntent, error) {
	if g.api == nil {
		return nil, fmt.Errorf("stripe is not configured: %w", domain.ErrGateway)
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	pi, err := g.api.PaymentIntents.New(params)
	metrics.ObserveGateway("create_intent", err)
	if err != nil {
		g.logger.Error().Err(err).Int64("amount", amount).Msg("Failed to create payment intent")
		return nil, g.wrap("create payment intent", err)
	}
	return toModel(pi), nil
}

func (g *StripeGateway) GetPaymentIntent(ctx context.Context, id string) (*models.PaymentIntent, error) {
	if g.api == nil {
		return nil, fmt.Errorf("stripe is not configured: %w", domain.ErrGateway)
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := g.api.PaymentIntents.Get(id, params)
	metrics.ObserveGateway("retrieve_intent", err)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Code == stripe.ErrorCodeResourceMissing {
			return nil, fmt.Errorf("payment intent %s does not exist: %w", id, domain.ErrPaymentNotCompleted)
		}
		g.logger.Error().Err(err).Str("payment_intent_id", id).Msg("Failed to retrieve payment intent")
		return nil, g.wrap("retrieve payment intent", err)
	}
	return toModel(pi), nil
}

func (g *StripeGateway) wrap(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(domain.ErrGateway, err))
}

func toModel(pi *stripe.PaymentIntent) *models.PaymentIntent {
	return &models.PaymentIntent{
		ID:           pi.ID,
		Status:       string(pi.Status),
		ClientSecret: pi.ClientSecret,
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
	}
}
