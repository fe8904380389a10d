package billing

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/onlyold1/rtg-shop/internal/domain"
	paymentPort "github.com/onlyold1/rtg-shop/internal/ports/payment"
	"github.com/onlyold1/rtg-shop/internal/ports/persistence"
	repoPorts "github.com/onlyold1/rtg-shop/internal/ports/repository"
)

// StarsFlow обработка платёжных обновлений Telegram Stars:
// pre_checkout_query валидируется до списания, successful_payment
// привязывает charge id и уходит в общий процессор
type StarsFlow struct {
	db          persistence.Persistence
	paymentRepo repoPorts.IPaymentRepo
	userRepo    repoPorts.IUserRepo
	confirmer   paymentPort.IPreCheckoutConfirmer
	processor   *Processor
	log         *slog.Logger
}

func NewStarsFlow(
	db persistence.Persistence,
	paymentRepo repoPorts.IPaymentRepo,
	userRepo repoPorts.IUserRepo,
	confirmer paymentPort.IPreCheckoutConfirmer,
	processor *Processor,
	log *slog.Logger,
) *StarsFlow {
	return &StarsFlow{
		db:          db,
		paymentRepo: paymentRepo,
		userRepo:    userRepo,
		confirmer:   confirmer,
		processor:   processor,
		log:         log,
	}
}

// HandlePreCheckout валидирует pre_checkout_query и отвечает Telegram.
// Отказ уходит пользователю как error_message в окне оплаты
func (s *StarsFlow) HandlePreCheckout(ctx context.Context, query *domain.PreCheckoutQuery) error {
	reject := func(reason string) error {
		s.log.Warn("pre_checkout rejected",
			"query_id", query.ID,
			"payload", query.InvoicePayload,
			"reason", reason,
		)
		return s.confirmer.ConfirmPreCheckout(ctx, query.ID, false, &reason)
	}

	paymentID, err := strconv.ParseInt(query.InvoicePayload, 10, 64)
	if err != nil {
		return reject("Платёж не найден, создайте новый счёт")
	}

	payment, err := s.paymentRepo.GetByID(ctx, s.db, paymentID)
	if err != nil {
		return reject("Платёж не найден, создайте новый счёт")
	}

	if payment.Status != domain.PaymentStatusPending {
		return reject("Счёт уже оплачен или отменён")
	}

	if query.Currency != "XTR" || payment.Amount.IntPart() != query.TotalAmount {
		return reject("Сумма счёта изменилась, создайте новый")
	}

	if query.From != nil {
		user, err := s.userRepo.GetByID(ctx, s.db, payment.UserID)
		if err != nil || user.TelegramID != query.From.ID {
			return reject("Счёт выставлен другому пользователю")
		}
	}

	if err := s.confirmer.ConfirmPreCheckout(ctx, query.ID, true, nil); err != nil {
		return fmt.Errorf("failed to confirm pre_checkout: %w", err)
	}

	s.log.Info("pre_checkout confirmed", "query_id", query.ID, "payment_id", paymentID)
	return nil
}

// HandleSuccessfulPayment привязывает telegram charge id к платежу
// и прогоняет подтверждение через общий процессор
func (s *StarsFlow) HandleSuccessfulPayment(ctx context.Context, sp *domain.SuccessfulPayment) error {
	paymentID, err := strconv.ParseInt(sp.InvoicePayload, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid invoice payload %q: %w", sp.InvoicePayload, err)
	}

	if err := s.paymentRepo.LinkProviderTx(ctx, s.db, paymentID, sp.TelegramPaymentChargeID); err != nil {
		return fmt.Errorf("failed to link telegram charge id: %w", err)
	}

	event := &domain.WebhookEvent{
		Provider:      domain.ProviderTelegramStars,
		TransactionID: sp.TelegramPaymentChargeID,
		Status:        domain.CallbackStatusConfirmed,
		Amount:        decimal.NewFromInt(sp.TotalAmount),
		Currency:      sp.Currency,
	}

	outcome, err := s.processor.Process(ctx, event)
	if err != nil {
		return fmt.Errorf("failed to process stars payment: %w", err)
	}

	s.log.Info("stars payment processed",
		"payment_id", paymentID,
		"charge_id", sp.TelegramPaymentChargeID,
		"outcome", outcome,
	)
	return nil
}
