package billing

import (
	"context"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onlyold1/rtg-shop/internal/domain"
)

type starsEnv struct {
	*processorEnv
	confirmer *stubConfirmer
	flow      *StarsFlow
}

func newStarsEnv(t *testing.T) *starsEnv {
	t.Helper()

	env := newProcessorEnv(t)
	confirmer := &stubConfirmer{}
	flow := NewStarsFlow(stubTx{}, env.paymentRepo, env.userRepo, confirmer, env.processor, slog.Default())

	return &starsEnv{processorEnv: env, confirmer: confirmer, flow: flow}
}

func (e *starsEnv) seedStarsPayment(amount int64) (*domain.User, *domain.Payment) {
	user := e.userRepo.add(&domain.User{TelegramID: 555, ChatID: 555})
	payment := e.paymentRepo.add(&domain.Payment{
		UserID:   user.ID,
		Amount:   decimal.NewFromInt(amount),
		Currency: "XTR",
		Months:   1,
		Provider: domain.ProviderTelegramStars,
		Status:   domain.PaymentStatusPending,
	})
	return user, payment
}

func TestStarsPreCheckoutConfirmed(t *testing.T) {
	env := newStarsEnv(t)
	user, payment := env.seedStarsPayment(100)

	err := env.flow.HandlePreCheckout(context.Background(), &domain.PreCheckoutQuery{
		ID:             "q-1",
		From:           &domain.TelegramUser{ID: user.TelegramID},
		Currency:       "XTR",
		TotalAmount:    payment.Amount.IntPart(),
		InvoicePayload: "1",
	})

	require.NoError(t, err)
	answer, err := env.confirmer.last()
	require.NoError(t, err)
	assert.True(t, answer.ok)
	assert.Equal(t, "q-1", answer.queryID)
}

func TestStarsPreCheckoutRejections(t *testing.T) {
	tests := []struct {
		name  string
		query func(user *domain.User, payment *domain.Payment) *domain.PreCheckoutQuery
	}{
		{
			name: "unknown payload",
			query: func(user *domain.User, _ *domain.Payment) *domain.PreCheckoutQuery {
				return &domain.PreCheckoutQuery{ID: "q", From: &domain.TelegramUser{ID: user.TelegramID}, Currency: "XTR", TotalAmount: 100, InvoicePayload: "garbage"}
			},
		},
		{
			name: "amount mismatch",
			query: func(user *domain.User, _ *domain.Payment) *domain.PreCheckoutQuery {
				return &domain.PreCheckoutQuery{ID: "q", From: &domain.TelegramUser{ID: user.TelegramID}, Currency: "XTR", TotalAmount: 999, InvoicePayload: "1"}
			},
		},
		{
			name: "foreign user",
			query: func(_ *domain.User, _ *domain.Payment) *domain.PreCheckoutQuery {
				return &domain.PreCheckoutQuery{ID: "q", From: &domain.TelegramUser{ID: 777}, Currency: "XTR", TotalAmount: 100, InvoicePayload: "1"}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newStarsEnv(t)
			user, payment := env.seedStarsPayment(100)

			err := env.flow.HandlePreCheckout(context.Background(), tt.query(user, payment))

			require.NoError(t, err)
			answer, err := env.confirmer.last()
			require.NoError(t, err)
			assert.False(t, answer.ok)
			assert.NotEmpty(t, answer.message)
		})
	}
}

func TestStarsPreCheckoutRejectsNonPending(t *testing.T) {
	env := newStarsEnv(t)
	user, payment := env.seedStarsPayment(100)
	require.NoError(t, env.paymentRepo.UpdateStatus(context.Background(), nil, payment.ID, domain.PaymentStatusSucceeded))

	err := env.flow.HandlePreCheckout(context.Background(), &domain.PreCheckoutQuery{
		ID:             "q",
		From:           &domain.TelegramUser{ID: user.TelegramID},
		Currency:       "XTR",
		TotalAmount:    100,
		InvoicePayload: "1",
	})

	require.NoError(t, err)
	answer, err := env.confirmer.last()
	require.NoError(t, err)
	assert.False(t, answer.ok)
}

func TestStarsSuccessfulPayment(t *testing.T) {
	env := newStarsEnv(t)
	_, payment := env.seedStarsPayment(100)

	err := env.flow.HandleSuccessfulPayment(context.Background(), &domain.SuccessfulPayment{
		Currency:                "XTR",
		TotalAmount:             100,
		InvoicePayload:          "1",
		TelegramPaymentChargeID: "charge-1",
	})

	require.NoError(t, err)

	stored, err := env.paymentRepo.GetByID(context.Background(), nil, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusSucceeded, stored.Status)
	require.NotNil(t, stored.ProviderTxID)
	assert.Equal(t, "charge-1", *stored.ProviderTxID)
	assert.Equal(t, 1, env.activator.calls)
}

func TestStarsSuccessfulPaymentRedelivery(t *testing.T) {
	env := newStarsEnv(t)
	env.seedStarsPayment(100)

	sp := &domain.SuccessfulPayment{
		Currency:                "XTR",
		TotalAmount:             100,
		InvoicePayload:          "1",
		TelegramPaymentChargeID: "charge-1",
	}

	require.NoError(t, env.flow.HandleSuccessfulPayment(context.Background(), sp))
	// Повторная доставка того же обновления идемпотентна
	require.NoError(t, env.flow.HandleSuccessfulPayment(context.Background(), sp))

	assert.Equal(t, 1, env.activator.calls)
	assert.Len(t, env.notifier.succeeded, 1)
}
