package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/onlyold1/rtg-shop/internal/domain"
	paymentPort "github.com/onlyold1/rtg-shop/internal/ports/payment"
	"github.com/onlyold1/rtg-shop/internal/ports/persistence"
	repoPorts "github.com/onlyold1/rtg-shop/internal/ports/repository"
	"github.com/onlyold1/rtg-shop/internal/usecases/billing"
)

const (
	pendingWatcherName = "pending-watcher"

	pendingWatcherInterval = 10 * time.Minute
	// Платёж считается зависшим, если висит в pending дольше этого срока
	pendingThreshold = 30 * time.Minute
	pendingBatchSize = 100
)

// PendingWatcher опрашивает провайдеров по зависшим pending-платежам.
// Страховка от потерянных вебхуков: результат опроса уходит в тот же
// процессор, что и обычный колбэк
type PendingWatcher struct {
	db          persistence.Persistence
	paymentRepo repoPorts.IPaymentRepo
	pollers     map[domain.PaymentProvider]paymentPort.IStatusPoller
	processor   *billing.Processor
	log         *slog.Logger
}

func NewPendingWatcher(
	db persistence.Persistence,
	paymentRepo repoPorts.IPaymentRepo,
	pollers map[domain.PaymentProvider]paymentPort.IStatusPoller,
	processor *billing.Processor,
	log *slog.Logger,
) *PendingWatcher {
	return &PendingWatcher{
		db:          db,
		paymentRepo: paymentRepo,
		pollers:     pollers,
		processor:   processor,
		log:         log,
	}
}

func (j *PendingWatcher) Name() string {
	return pendingWatcherName
}

// NextRun каждые 10 минут
func (j *PendingWatcher) NextRun(now time.Time) time.Time {
	return now.Add(pendingWatcherInterval)
}

// Run опрашивает статусы зависших платежей
func (j *PendingWatcher) Run(ctx context.Context) error {
	olderThan := time.Now().Add(-pendingThreshold)

	stale, err := j.paymentRepo.ListStalePending(ctx, j.db, olderThan, pendingBatchSize)
	if err != nil {
		return fmt.Errorf("failed to list stale pending payments: %w", err)
	}

	if len(stale) == 0 {
		return nil
	}

	j.log.Info("polling stale pending payments", "count", len(stale))

	for _, payment := range stale {
		if err := j.pollOne(ctx, &payment); err != nil {
			// Не прерываем проход из-за одного платежа
			j.log.Warn("failed to poll payment status",
				"error", err,
				"payment_id", payment.ID,
				"provider", payment.Provider,
			)
		}
	}

	return nil
}

// pollOne опрашивает провайдера и применяет результат через процессор
func (j *PendingWatcher) pollOne(ctx context.Context, payment *domain.Payment) error {
	poller, ok := j.pollers[payment.Provider]
	if !ok || payment.ProviderTxID == nil {
		return nil
	}

	status, err := poller.GetStatus(ctx, *payment.ProviderTxID)
	if err != nil {
		return fmt.Errorf("get status: %w", err)
	}

	if status == domain.CallbackStatusPending {
		return nil
	}

	outcome, err := j.processor.Process(ctx, &domain.WebhookEvent{
		Provider:      payment.Provider,
		TransactionID: *payment.ProviderTxID,
		Status:        status,
	})
	if err != nil {
		return fmt.Errorf("process polled status: %w", err)
	}

	j.log.Info("polled status applied",
		"payment_id", payment.ID,
		"provider", payment.Provider,
		"status", status,
		"outcome", outcome,
	)
	return nil
}
