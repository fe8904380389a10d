package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/onlyold1/rtg-shop/internal/domain"
	"github.com/onlyold1/rtg-shop/internal/ports/events"
	"github.com/onlyold1/rtg-shop/internal/ports/persistence"
	repoPorts "github.com/onlyold1/rtg-shop/internal/ports/repository"
	servicePorts "github.com/onlyold1/rtg-shop/internal/ports/service"
)

// Outcome исход обработки события провайдера
type Outcome string

const (
	OutcomeApplied   Outcome = "applied"    // переход применён
	OutcomeDuplicate Outcome = "duplicate"  // платёж уже в терминальном статусе
	OutcomeUnknownTx Outcome = "unknown_tx" // транзакция не найдена в журнале
	OutcomeIgnored   Outcome = "ignored"    // PENDING или незамапленный статус, перехода нет
)

// IActivator порог между процессором и активацией (для подмены в тестах)
type IActivator interface {
	Activate(ctx context.Context, tx persistence.Transaction, payment *domain.Payment) (*domain.ActivationResult, error)
}

// Processor идемпотентный обработчик событий провайдеров.
// События одного провайдера обрабатываются последовательно (mutex),
// переход статуса и активация идут в одной транзакции БД
type Processor struct {
	txm         persistence.TxManager
	db          persistence.Persistence
	paymentRepo repoPorts.IPaymentRepo
	userRepo    repoPorts.IUserRepo
	activator   IActivator
	notifier    servicePorts.INotifier
	alerter     servicePorts.IAlerterService
	producer    events.IBillingEventProducer
	log         *slog.Logger

	mu    sync.Mutex
	locks map[domain.PaymentProvider]*sync.Mutex
}

func NewProcessor(
	txm persistence.TxManager,
	db persistence.Persistence,
	paymentRepo repoPorts.IPaymentRepo,
	userRepo repoPorts.IUserRepo,
	activator IActivator,
	notifier servicePorts.INotifier,
	alerter servicePorts.IAlerterService,
	producer events.IBillingEventProducer,
	log *slog.Logger,
) *Processor {
	return &Processor{
		txm:         txm,
		db:          db,
		paymentRepo: paymentRepo,
		userRepo:    userRepo,
		activator:   activator,
		notifier:    notifier,
		alerter:     alerter,
		producer:    producer,
		log:         log,
		locks:       make(map[domain.PaymentProvider]*sync.Mutex),
	}
}

// lockFor возвращает mutex провайдера, создавая его при первом обращении
func (p *Processor) lockFor(provider domain.PaymentProvider) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()

	lock, ok := p.locks[provider]
	if !ok {
		lock = &sync.Mutex{}
		p.locks[provider] = lock
	}
	return lock
}

// transition результат критической секции: что произошло с платежом
type transition struct {
	outcome    Outcome
	payment    *domain.Payment
	activation *domain.ActivationResult
	newStatus  domain.PaymentStatus
}

// Process применяет событие провайдера к журналу платежей.
// Возвращает исход и ошибку: ошибка означает, что транзакция откатилась
// и провайдер должен повторить доставку
func (p *Processor) Process(ctx context.Context, event *domain.WebhookEvent) (Outcome, error) {
	res, err := p.applyLocked(ctx, event)
	if err != nil {
		p.log.Error("failed to process callback",
			"error", err,
			"provider", event.Provider,
			"provider_tx_id", event.TransactionID,
		)
		return "", err
	}

	// Всё ниже - вне критической секции и вне транзакции: best-effort
	p.afterCommit(ctx, event, res.outcome, res.payment, res.activation, res.newStatus)

	return res.outcome, nil
}

// applyLocked держит mutex провайдера на время транзакции. Снятие через
// defer: паника внутри колбэка не должна заклинить очередь провайдера
func (p *Processor) applyLocked(ctx context.Context, event *domain.WebhookEvent) (*transition, error) {
	lock := p.lockFor(event.Provider)
	lock.Lock()
	defer lock.Unlock()

	res := &transition{outcome: OutcomeIgnored}

	err := p.txm.WithTransaction(ctx, func(ctx context.Context, tx persistence.Transaction) error {
		payment, err := p.paymentRepo.GetByProviderTxID(ctx, tx, event.Provider, event.TransactionID)
		if err != nil {
			if errors.Is(err, domain.ErrPaymentNotFound) {
				// Чужая или потерянная транзакция: подтверждаем доставку,
				// чтобы провайдер не ретраил вечно, и зовём оператора
				res.outcome = OutcomeUnknownTx
				p.log.Warn("callback for unknown transaction",
					"provider", event.Provider,
					"provider_tx_id", event.TransactionID,
					"status", event.Status,
				)
				return nil
			}
			return err
		}
		res.payment = payment

		if payment.Status.IsTerminal() {
			// Повторная доставка: состояние не меняем
			res.outcome = OutcomeDuplicate
			p.log.Info("duplicate callback for terminal payment",
				"payment_id", payment.ID,
				"status", payment.Status,
				"event_status", event.Status,
			)
			return nil
		}

		switch {
		case event.Status == domain.CallbackStatusConfirmed:
			p.checkAmount(payment, event)

			if err := p.paymentRepo.UpdateStatus(ctx, tx, payment.ID, domain.PaymentStatusSucceeded); err != nil {
				return err
			}
			res.newStatus = domain.PaymentStatusSucceeded

			// Активация в той же транзакции: её ошибка откатывает и статус
			res.activation, err = p.activator.Activate(ctx, tx, payment)
			if err != nil {
				return fmt.Errorf("activation failed: %w", err)
			}
			res.outcome = OutcomeApplied

		case event.Status == domain.CallbackStatusPending:
			p.log.Debug("pending callback, no transition",
				"payment_id", payment.ID,
				"provider", event.Provider,
			)

		default:
			terminal, ok := event.Status.TerminalPaymentStatus()
			if !ok {
				// Незамапленный статус: фиксируем в логе, перехода нет
				res.outcome = OutcomeIgnored
				p.log.Warn("unmapped provider status",
					"payment_id", payment.ID,
					"provider", event.Provider,
					"raw_status", event.Status,
				)
				return nil
			}

			if err := p.paymentRepo.UpdateStatus(ctx, tx, payment.ID, terminal); err != nil {
				return err
			}
			res.newStatus = terminal
			res.outcome = OutcomeApplied
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return res, nil
}

// checkAmount сверяет сумму и валюту события с журналом. Расхождение
// не блокирует подтверждение: деньги уже списаны, алертим оператора
func (p *Processor) checkAmount(payment *domain.Payment, event *domain.WebhookEvent) {
	if event.Amount.IsZero() && event.Currency == "" {
		return
	}

	mismatch := !event.Amount.IsZero() && !event.Amount.Equal(payment.Amount)
	if event.Currency != "" && event.Currency != payment.Currency {
		mismatch = true
	}
	if !mismatch {
		return
	}

	p.log.Warn("callback amount mismatch",
		"payment_id", payment.ID,
		"expected_amount", payment.Amount,
		"expected_currency", payment.Currency,
		"got_amount", event.Amount,
		"got_currency", event.Currency,
	)
	p.sendAlert(fmt.Sprintf(
		"⚠️ Расхождение суммы по платежу %d (%s): ожидали %s %s, пришло %s %s",
		payment.ID, payment.Provider,
		payment.Amount, payment.Currency,
		event.Amount, event.Currency,
	))
}

// afterCommit уведомления, алерты и телеметрия после фиксации транзакции
func (p *Processor) afterCommit(
	ctx context.Context,
	event *domain.WebhookEvent,
	outcome Outcome,
	payment *domain.Payment,
	activation *domain.ActivationResult,
	newStatus domain.PaymentStatus,
) {
	switch outcome {
	case OutcomeUnknownTx:
		p.sendAlert(fmt.Sprintf(
			"❓ Колбэк %s по неизвестной транзакции %s (статус %s)",
			event.Provider, event.TransactionID, event.Status,
		))
		return
	case OutcomeIgnored:
		if payment != nil && !event.Status.IsMapped() {
			p.sendAlert(fmt.Sprintf(
				"❓ Незамапленный статус %q от %s по платежу %d",
				event.Status, event.Provider, payment.ID,
			))
		}
		return
	case OutcomeDuplicate:
		return
	}

	if payment == nil || newStatus == "" {
		return
	}

	payment.Status = newStatus
	p.publishEvent(ctx, payment, newStatus)

	user, err := p.userRepo.GetByID(ctx, p.db, payment.UserID)
	if err != nil {
		p.log.Warn("failed to load user for notification", "error", err, "user_id", payment.UserID)
		return
	}

	if newStatus == domain.PaymentStatusSucceeded {
		p.notifier.NotifyPaymentSucceeded(ctx, user, payment, activation)
	} else {
		p.notifier.NotifyPaymentFailed(ctx, user, payment)
	}
}

// publishEvent шлёт терминальный переход в шину телеметрии
func (p *Processor) publishEvent(ctx context.Context, payment *domain.Payment, status domain.PaymentStatus) {
	if p.producer == nil {
		return
	}

	err := p.producer.PublishPaymentEvent(ctx, events.PaymentEvent{
		PaymentID:  payment.ID,
		UserID:     payment.UserID,
		Provider:   payment.Provider,
		Status:     status,
		Amount:     payment.Amount.String(),
		Currency:   payment.Currency,
		OccurredAt: time.Now(),
	})
	if err != nil {
		p.log.Warn("failed to publish payment event", "error", err, "payment_id", payment.ID)
	}
}

func (p *Processor) sendAlert(message string) {
	if p.alerter == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := p.alerter.SendAlert(ctx, message); err != nil {
		p.log.Warn("failed to send alert", "error", err)
	}
}
