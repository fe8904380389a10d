package billing

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onlyold1/rtg-shop/internal/domain"
	"github.com/onlyold1/rtg-shop/internal/ports/persistence"
)

type processorEnv struct {
	txm         *stubTxManager
	paymentRepo *memPaymentRepo
	userRepo    *memUserRepo
	activator   *stubActivator
	notifier    *stubNotifier
	alerter     *stubAlerter
	producer    *stubProducer
	processor   *Processor
}

func newProcessorEnv(t *testing.T) *processorEnv {
	t.Helper()

	env := &processorEnv{
		txm:         &stubTxManager{},
		paymentRepo: newMemPaymentRepo(),
		userRepo:    newMemUserRepo(),
		activator:   &stubActivator{},
		notifier:    &stubNotifier{},
		alerter:     &stubAlerter{},
		producer:    &stubProducer{},
	}

	env.processor = NewProcessor(
		env.txm,
		stubTx{},
		env.paymentRepo,
		env.userRepo,
		env.activator,
		env.notifier,
		env.alerter,
		env.producer,
		slog.Default(),
	)
	return env
}

func (e *processorEnv) seedPayment(txID string, status domain.PaymentStatus) *domain.Payment {
	user := e.userRepo.add(&domain.User{TelegramID: 100, ChatID: 100})
	payment := &domain.Payment{
		UserID:       user.ID,
		Amount:       decimal.NewFromInt(500),
		Currency:     "RUB",
		Months:       1,
		Provider:     domain.ProviderPlatega,
		ProviderTxID: &txID,
		Status:       status,
	}
	return e.paymentRepo.add(payment)
}

func confirmedEvent(txID string) *domain.WebhookEvent {
	return &domain.WebhookEvent{
		Provider:      domain.ProviderPlatega,
		TransactionID: txID,
		Status:        domain.CallbackStatusConfirmed,
		Amount:        decimal.NewFromInt(500),
		Currency:      "RUB",
	}
}

func TestProcessorConfirmedTransition(t *testing.T) {
	env := newProcessorEnv(t)
	payment := env.seedPayment("tx-1", domain.PaymentStatusPending)

	outcome, err := env.processor.Process(context.Background(), confirmedEvent("tx-1"))

	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)
	assert.Equal(t, 1, env.activator.calls)

	stored, err := env.paymentRepo.GetByID(context.Background(), nil, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusSucceeded, stored.Status)

	assert.Equal(t, []int64{payment.ID}, env.notifier.succeeded)
	require.Len(t, env.producer.events, 1)
	assert.Equal(t, domain.PaymentStatusSucceeded, env.producer.events[0].Status)
}

func TestProcessorDuplicateDelivery(t *testing.T) {
	env := newProcessorEnv(t)
	env.seedPayment("tx-1", domain.PaymentStatusPending)

	outcome, err := env.processor.Process(context.Background(), confirmedEvent("tx-1"))
	require.NoError(t, err)
	require.Equal(t, OutcomeApplied, outcome)

	// Повторная доставка того же события
	outcome, err = env.processor.Process(context.Background(), confirmedEvent("tx-1"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, outcome)

	// Активация прошла ровно один раз, уведомление не дублируется
	assert.Equal(t, 1, env.activator.calls)
	assert.Len(t, env.notifier.succeeded, 1)
	assert.Len(t, env.producer.events, 1)
}

func TestProcessorTerminalStatusNotOverwritten(t *testing.T) {
	env := newProcessorEnv(t)
	payment := env.seedPayment("tx-1", domain.PaymentStatusCanceled)

	outcome, err := env.processor.Process(context.Background(), confirmedEvent("tx-1"))

	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, outcome)
	assert.Zero(t, env.activator.calls)

	stored, err := env.paymentRepo.GetByID(context.Background(), nil, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusCanceled, stored.Status)
}

func TestProcessorUnknownTransactionAcked(t *testing.T) {
	env := newProcessorEnv(t)

	outcome, err := env.processor.Process(context.Background(), confirmedEvent("no-such-tx"))

	// Неизвестная транзакция подтверждается, чтобы провайдер не ретраил вечно
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnknownTx, outcome)
	assert.Equal(t, 1, env.alerter.count())
	assert.Zero(t, env.activator.calls)
}

func TestProcessorPendingEventNoTransition(t *testing.T) {
	env := newProcessorEnv(t)
	payment := env.seedPayment("tx-1", domain.PaymentStatusPending)

	event := confirmedEvent("tx-1")
	event.Status = domain.CallbackStatusPending

	outcome, err := env.processor.Process(context.Background(), event)

	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, outcome)

	stored, err := env.paymentRepo.GetByID(context.Background(), nil, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPending, stored.Status)
}

func TestProcessorUnmappedStatusAcked(t *testing.T) {
	env := newProcessorEnv(t)
	payment := env.seedPayment("tx-1", domain.PaymentStatusPending)

	event := confirmedEvent("tx-1")
	event.Status = domain.CallbackStatus("CHARGEBACK")

	outcome, err := env.processor.Process(context.Background(), event)

	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, outcome)
	assert.Equal(t, 1, env.alerter.count())

	stored, err := env.paymentRepo.GetByID(context.Background(), nil, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPending, stored.Status)
}

func TestProcessorUnsuccessfulTerminalTransitions(t *testing.T) {
	tests := []struct {
		event domain.CallbackStatus
		want  domain.PaymentStatus
	}{
		{domain.CallbackStatusCanceled, domain.PaymentStatusCanceled},
		{domain.CallbackStatusFailed, domain.PaymentStatusFailed},
		{domain.CallbackStatusExpired, domain.PaymentStatusExpired},
	}

	for _, tt := range tests {
		t.Run(string(tt.event), func(t *testing.T) {
			env := newProcessorEnv(t)
			payment := env.seedPayment("tx-1", domain.PaymentStatusPending)

			event := confirmedEvent("tx-1")
			event.Status = tt.event

			outcome, err := env.processor.Process(context.Background(), event)

			require.NoError(t, err)
			assert.Equal(t, OutcomeApplied, outcome)
			assert.Zero(t, env.activator.calls)

			stored, err := env.paymentRepo.GetByID(context.Background(), nil, payment.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, stored.Status)

			assert.Equal(t, []int64{payment.ID}, env.notifier.failed)
		})
	}
}

func TestProcessorActivationFailureRollsBack(t *testing.T) {
	env := newProcessorEnv(t)
	env.seedPayment("tx-1", domain.PaymentStatusPending)
	env.activator.err = errors.New("promo lookup failed")

	_, err := env.processor.Process(context.Background(), confirmedEvent("tx-1"))

	// Ошибка активации откатывает транзакцию и уходит наверх (ответ 500)
	require.Error(t, err)
	assert.Equal(t, 1, env.txm.rollbacks)
	assert.Empty(t, env.notifier.succeeded)
	assert.Empty(t, env.producer.events)
}

func TestProcessorTransientDBFailure(t *testing.T) {
	env := newProcessorEnv(t)
	env.seedPayment("tx-1", domain.PaymentStatusPending)
	env.paymentRepo.updateStatusErr = errors.New("connection reset")

	_, err := env.processor.Process(context.Background(), confirmedEvent("tx-1"))

	require.Error(t, err)
	assert.Equal(t, 1, env.txm.rollbacks)
	assert.Zero(t, env.activator.calls)
}

func TestProcessorAmountMismatchStillConfirms(t *testing.T) {
	env := newProcessorEnv(t)
	payment := env.seedPayment("tx-1", domain.PaymentStatusPending)

	event := confirmedEvent("tx-1")
	event.Amount = decimal.NewFromInt(400) // меньше, чем в журнале

	outcome, err := env.processor.Process(context.Background(), event)

	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)

	stored, err := env.paymentRepo.GetByID(context.Background(), nil, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusSucceeded, stored.Status)

	// Расхождение суммы не блокирует подтверждение, но алертит оператора
	assert.Equal(t, 1, env.alerter.count())
}

// panicActivator роняет транзакцию паникой, а не ошибкой
type panicActivator struct{}

func (panicActivator) Activate(context.Context, persistence.Transaction, *domain.Payment) (*domain.ActivationResult, error) {
	panic("promo table missing")
}

func TestProcessorLockReleasedAfterPanic(t *testing.T) {
	env := newProcessorEnv(t)
	env.seedPayment("tx-1", domain.PaymentStatusPending)
	env.seedPayment("tx-2", domain.PaymentStatusPending)
	env.processor.activator = panicActivator{}

	require.Panics(t, func() {
		_, _ = env.processor.Process(context.Background(), confirmedEvent("tx-1"))
	})
	assert.Equal(t, 1, env.txm.rollbacks)

	// Mutex провайдера свободен: следующее событие обрабатывается, а не виснет
	env.processor.activator = env.activator

	done := make(chan Outcome, 1)
	go func() {
		outcome, err := env.processor.Process(context.Background(), confirmedEvent("tx-2"))
		if err != nil {
			outcome = ""
		}
		done <- outcome
	}()

	select {
	case outcome := <-done:
		assert.Equal(t, OutcomeApplied, outcome)
	case <-time.After(2 * time.Second):
		t.Fatal("provider lock still held after panic in transaction")
	}
}

func TestProcessorLockPerProvider(t *testing.T) {
	env := newProcessorEnv(t)

	platega := env.processor.lockFor(domain.ProviderPlatega)
	assert.Same(t, platega, env.processor.lockFor(domain.ProviderPlatega))
	assert.NotSame(t, platega, env.processor.lockFor(domain.ProviderYooKassa))
}
