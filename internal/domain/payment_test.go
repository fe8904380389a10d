package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaymentStatusIsTerminal(t *testing.T) {
	terminal := []PaymentStatus{
		PaymentStatusSucceeded,
		PaymentStatusCanceled,
		PaymentStatusFailed,
		PaymentStatusFailedCreation,
		PaymentStatusExpired,
	}
	for _, s := range terminal {
		assert.True(t, s.IsTerminal(), "status %s", s)
	}

	assert.False(t, PaymentStatusPending.IsTerminal())
	assert.False(t, PaymentStatus("CHARGEBACK").IsTerminal())
}

func TestPaymentProviderIsValid(t *testing.T) {
	assert.True(t, ProviderYooKassa.IsValid())
	assert.True(t, ProviderPlatega.IsValid())
	assert.True(t, ProviderCryptoPay.IsValid())
	assert.True(t, ProviderTelegramStars.IsValid())
	assert.False(t, PaymentProvider("paypal").IsValid())
	assert.False(t, PaymentProvider("").IsValid())
}

func TestCallbackStatusTerminalPaymentStatus(t *testing.T) {
	tests := []struct {
		status CallbackStatus
		want   PaymentStatus
		ok     bool
	}{
		{CallbackStatusCanceled, PaymentStatusCanceled, true},
		{CallbackStatusFailed, PaymentStatusFailed, true},
		{CallbackStatusExpired, PaymentStatusExpired, true},
		{CallbackStatusConfirmed, "", false},
		{CallbackStatusPending, "", false},
		{CallbackStatus("CHARGEBACK"), "", false},
	}

	for _, tt := range tests {
		got, ok := tt.status.TerminalPaymentStatus()
		assert.Equal(t, tt.ok, ok, "status %s", tt.status)
		assert.Equal(t, tt.want, got, "status %s", tt.status)
	}
}

func TestCallbackStatusIsMapped(t *testing.T) {
	assert.True(t, CallbackStatusConfirmed.IsMapped())
	assert.True(t, CallbackStatusPending.IsMapped())
	assert.False(t, CallbackStatus("CHARGEBACK").IsMapped())
}
