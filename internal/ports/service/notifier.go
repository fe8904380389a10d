package service

import (
	"context"

	"github.com/onlyold1/rtg-shop/internal/domain"
)

// INotifier уведомления пользователя об исходе платежа.
// Вызывается вне критической секции процессора: ошибки логируются,
// но не влияют на результат обработки
type INotifier interface {
	NotifyPaymentSucceeded(ctx context.Context, user *domain.User, payment *domain.Payment, result *domain.ActivationResult)
	NotifyPaymentFailed(ctx context.Context, user *domain.User, payment *domain.Payment)
	NotifySubscriptionExpired(ctx context.Context, user *domain.User)
}
