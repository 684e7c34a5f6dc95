package payments

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tourbook/internal/domain"
	"tourbook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
)

func newTestGateway(t *testing.T, handler http.HandlerFunc) *StripeGateway {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(ts.URL),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	})
	return NewStripeGatewayWithBackends("sk_test_123", &stripe.Backends{API: backend, Connect: backend, Uploads: backend}, time.Second, nil)
}

func TestCreatePaymentIntent(t *testing.T) {
	var form string
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/payment_intents", r.URL.Path)
		assert.NoError(t, r.ParseForm())
		form = r.PostForm.Encode()
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"pi_1","object":"payment_intent","amount":30000,"currency":"usd","status":"requires_payment_method","client_secret":"pi_1_secret_abc"}`)
	})

	pi, err := g.CreatePaymentIntent(context.Background(), 30000, "usd", map[string]string{"tour_id": "t1"})
	require.NoError(t, err)
	assert.Equal(t, "pi_1", pi.ID)
	assert.Equal(t, "pi_1_secret_abc", pi.ClientSecret)
	assert.Equal(t, int64(30000), pi.Amount)
	assert.False(t, pi.Succeeded())

	assert.Contains(t, form, "amount=30000")
	assert.Contains(t, form, "currency=usd")
	assert.Contains(t, form, "tour_id")
}

func TestGetPaymentIntent(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/pi_ok"):
			fmt.Fprint(w, `{"id":"pi_ok","object":"payment_intent","amount":100,"currency":"usd","status":"succeeded"}`)
		case strings.HasSuffix(r.URL.Path, "/pi_missing"):
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error":{"type":"invalid_request_error","code":"resource_missing","message":"No such payment_intent"}}`)
		default:
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"error":{"type":"api_error","message":"boom"}}`)
		}
	})
	ctx := context.Background()

	pi, err := g.GetPaymentIntent(ctx, "pi_ok")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentIntentSucceeded, pi.Status)
	assert.True(t, pi.Succeeded())

	_, err = g.GetPaymentIntent(ctx, "pi_missing")
	assert.ErrorIs(t, err, domain.ErrPaymentNotCompleted)

	_, err = g.GetPaymentIntent(ctx, "pi_broken")
	assert.ErrorIs(t, err, domain.ErrGateway)
}

func TestUnconfiguredGateway(t *testing.T) {
	g := NewStripeGateway("", 0, nil)
	assert.Equal(t, models.DefaultGatewayTimeout*time.Second, g.timeout)

	_, err := g.CreatePaymentIntent(context.Background(), 100, "usd", nil)
	assert.ErrorIs(t, err, domain.ErrGateway)
	_, err = g.GetPaymentIntent(context.Background(), "pi_1")
	assert.ErrorIs(t, err, domain.ErrGateway)
}
