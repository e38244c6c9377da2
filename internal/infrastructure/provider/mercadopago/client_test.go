package mercadopago

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/oficiosya/subscription-engine/internal/config"
	"github.com/oficiosya/subscription-engine/internal/domain/provider"
)

func newTestClient(serverURL string) *Client {
	return NewClient(&config.MercadoPagoConfig{
		BaseURL:     serverURL,
		AccessToken: "TEST-token",
	}, zap.NewNop())
}

func TestGetPayment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payments/12345", r.URL.Path)
		assert.Equal(t, "Bearer TEST-token", r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":                 12345,
			"status":             "approved",
			"transaction_amount": 14999.50,
			"currency_id":        "ARS",
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	payment, err := client.GetPayment(context.Background(), "12345")

	assert.NoError(t, err)
	assert.Equal(t, "12345", payment.ProviderRef)
	assert.Equal(t, "approved", payment.Status)
	assert.Equal(t, "ARS", payment.Currency)
	assert.True(t, payment.Amount.Equal(decimal.NewFromFloat(14999.50)))
}

func TestCreateRefund(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/payments/12345/refunds", r.URL.Path)

		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		assert.EqualValues(t, 14999.5, body["amount"])

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":         777,
			"payment_id": 12345,
			"amount":     14999.5,
			"status":     "approved",
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	refund, err := client.CreateRefund(context.Background(), "12345", decimal.NewFromFloat(14999.5))

	assert.NoError(t, err)
	assert.Equal(t, "777", refund.RefundRef)
	assert.Equal(t, "12345", refund.ProviderRef)
	assert.Equal(t, "approved", refund.Status)
}

func TestErrorRetryability(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		retryable bool
	}{
		{"rate limited is retryable", http.StatusTooManyRequests, true},
		{"server error is retryable", http.StatusServiceUnavailable, true},
		{"bad request is permanent", http.StatusBadRequest, false},
		{"not found is permanent", http.StatusNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				json.NewEncoder(w).Encode(map[string]string{
					"error":   "some_error",
					"message": "something went wrong",
				})
			}))
			defer server.Close()

			client := newTestClient(server.URL)
			_, err := client.CreateRefund(context.Background(), "12345", decimal.NewFromInt(100))

			var pe *provider.ProviderError
			assert.True(t, errors.As(err, &pe))
			assert.Equal(t, tt.status, pe.StatusCode)
			assert.Equal(t, tt.retryable, pe.Retryable)
		})
	}
}
