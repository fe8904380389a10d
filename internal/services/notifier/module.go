package notifier

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/onlyold1/rtg-shop/internal/domain"
	servicePorts "github.com/onlyold1/rtg-shop/internal/ports/service"
	telegramPort "github.com/onlyold1/rtg-shop/internal/ports/telegram"
)

// Service уведомления пользователей об исходах платежей.
// Best-effort: любые ошибки глотаются с логом, обработка платежа
// от них не зависит
type Service struct {
	client telegramPort.IClient
	log    *slog.Logger
}

func New(client telegramPort.IClient, log *slog.Logger) servicePorts.INotifier {
	return &Service{
		client: client,
		log:    log,
	}
}

// NotifyPaymentSucceeded сообщает об успешной оплате и новой дате подписки
func (s *Service) NotifyPaymentSucceeded(ctx context.Context, user *domain.User, payment *domain.Payment, result *domain.ActivationResult) {
	text := fmt.Sprintf("✅ Оплата получена! Подписка активна до %s.",
		result.EndDate.Format("02.01.2006"))

	bonusDays := result.PromoBonusDays + result.ReferralBonusDays
	if bonusDays > 0 {
		text += fmt.Sprintf("\n🎁 Начислено бонусных дней: %d", bonusDays)
	}

	if err := s.client.SendMessage(ctx, user.ChatID, text); err != nil {
		s.log.Warn("failed to notify payment success",
			"error", err,
			"user_id", user.ID,
			"payment_id", payment.ID,
		)
	}
}

// NotifyPaymentFailed сообщает о неуспешном исходе оплаты
func (s *Service) NotifyPaymentFailed(ctx context.Context, user *domain.User, payment *domain.Payment) {
	var text string
	switch payment.Status {
	case domain.PaymentStatusExpired:
		text = "⏰ Срок оплаты счёта истёк. Создайте новый счёт, чтобы продлить подписку."
	case domain.PaymentStatusCanceled:
		text = "❌ Платёж отменён. Если это ошибка, создайте новый счёт."
	default:
		text = "❌ Оплата не прошла. Попробуйте ещё раз или выберите другой способ оплаты."
	}

	if err := s.client.SendMessage(ctx, user.ChatID, text); err != nil {
		s.log.Warn("failed to notify payment failure",
			"error", err,
			"user_id", user.ID,
			"payment_id", payment.ID,
		)
	}
}

// NotifySubscriptionExpired сообщает об окончании подписки
func (s *Service) NotifySubscriptionExpired(ctx context.Context, user *domain.User) {
	text := "😔 Ваша подписка закончилась. Продлите её, чтобы сохранить доступ."

	if err := s.client.SendMessage(ctx, user.ChatID, text); err != nil {
		s.log.Warn("failed to notify subscription expiry",
			"error", err,
			"user_id", user.ID,
		)
	}
}
