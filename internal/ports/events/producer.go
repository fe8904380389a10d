package events

import (
	"context"
	"time"

	"github.com/onlyold1/rtg-shop/internal/domain"
)

// PaymentEvent событие жизненного цикла платежа для шины телеметрии
type PaymentEvent struct {
	PaymentID  int64                  `json:"payment_id"`
	UserID     int64                  `json:"user_id"`
	Provider   domain.PaymentProvider `json:"provider"`
	Status     domain.PaymentStatus   `json:"status"`
	Amount     string                 `json:"amount"`
	Currency   string                 `json:"currency"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// IBillingEventProducer интерфейс для публикации событий биллинга
type IBillingEventProducer interface {
	// PublishPaymentEvent публикует терминальный переход платежа
	PublishPaymentEvent(ctx context.Context, event PaymentEvent) error
	// Close закрывает producer
	Close() error
}
