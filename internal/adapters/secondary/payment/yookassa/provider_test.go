package yookassa

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onlyold1/rtg-shop/internal/domain"
	paymentPort "github.com/onlyold1/rtg-shop/internal/ports/payment"

	"github.com/shopspring/decimal"
)

func testProvider(baseURL string) *Provider {
	return NewProvider(Config{
		BaseURL:         baseURL,
		ShopID:          "shop-1",
		SecretKey:       "sk-1",
		WebhookUser:     "hook-user",
		WebhookPassword: "hook-pass",
	}, slog.Default())
}

func TestYooKassaNormalizeStatus(t *testing.T) {
	p := testProvider("")

	assert.Equal(t, domain.CallbackStatusPending, p.NormalizeStatus("pending"))
	assert.Equal(t, domain.CallbackStatusPending, p.NormalizeStatus("waiting_for_capture"))
	assert.Equal(t, domain.CallbackStatusConfirmed, p.NormalizeStatus("succeeded"))
	assert.Equal(t, domain.CallbackStatusCanceled, p.NormalizeStatus("canceled"))
	// Неизвестный статус пропускается как UPPER(raw)
	assert.Equal(t, domain.CallbackStatus("REFUND_SUCCEEDED"), p.NormalizeStatus("refund_succeeded"))
}

func TestYooKassaCreateInvoice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payments", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("Idempotence-Key"))

		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "shop-1", user)
		assert.Equal(t, "sk-1", pass)

		var req createPaymentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "500.00", req.Amount.Value)
		assert.True(t, req.Capture)

		json.NewEncoder(w).Encode(paymentObject{
			ID:     "yk-1",
			Status: "pending",
			Confirmation: &confirmationObject{
				Type:            "redirect",
				ConfirmationURL: "https://yookassa.ru/confirm/yk-1",
			},
		})
	}))
	defer srv.Close()

	p := testProvider(srv.URL)

	result, err := p.CreateInvoice(context.Background(), paymentPort.CreateInvoiceRequest{
		PaymentID: 5,
		Amount:    decimal.NewFromInt(500),
		Currency:  "RUB",
	})

	require.NoError(t, err)
	assert.Equal(t, "yk-1", result.TransactionID)
	assert.Equal(t, "https://yookassa.ru/confirm/yk-1", result.PaymentURL)
}

func TestYooKassaVerifyCallback(t *testing.T) {
	p := testProvider("")

	valid := http.Header{}
	valid.Set("Authorization", "Basic "+basicToken("hook-user", "hook-pass"))
	assert.NoError(t, p.VerifyCallback(valid, nil))

	invalid := http.Header{}
	invalid.Set("Authorization", "Basic "+basicToken("hook-user", "wrong"))
	assert.ErrorIs(t, p.VerifyCallback(invalid, nil), ErrUnauthorizedCallback)

	// Без настроенной учётки проверка выключена
	open := NewProvider(Config{}, slog.Default())
	assert.NoError(t, open.VerifyCallback(http.Header{}, nil))
}

func TestYooKassaParseCallback(t *testing.T) {
	p := testProvider("")

	body := []byte(`{"event":"payment.succeeded","object":{"id":"yk-1","status":"succeeded","amount":{"value":"500.00","currency":"RUB"}}}`)

	event, err := p.ParseCallback(body)
	require.NoError(t, err)
	assert.Equal(t, domain.ProviderYooKassa, event.Provider)
	assert.Equal(t, "yk-1", event.TransactionID)
	assert.Equal(t, domain.CallbackStatusConfirmed, event.Status)
	assert.Equal(t, "RUB", event.Currency)

	_, err = p.ParseCallback([]byte(`{"event":"payment.succeeded","object":{}}`))
	require.Error(t, err)
}
