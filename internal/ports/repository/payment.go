package repository

import (
	"context"
	"time"

	"github.com/onlyold1/rtg-shop/internal/domain"
	"github.com/onlyold1/rtg-shop/internal/ports/persistence"
)

// IPaymentRepo интерфейс для работы с журналом платежей в БД.
// Первым аргументом принимает Persistence: репозиторий работает одинаково
// и на соединении, и внутри транзакции
type IPaymentRepo interface {
	// Create сохраняет новую запись и возвращает её id
	Create(ctx context.Context, db persistence.Persistence, payment *domain.Payment) (int64, error)
	GetByID(ctx context.Context, db persistence.Persistence, id int64) (*domain.Payment, error)
	GetByProviderTxID(ctx context.Context, db persistence.Persistence, provider domain.PaymentProvider, txID string) (*domain.Payment, error)
	// LinkProviderTx привязывает id транзакции провайдера; поле write-once,
	// повторная привязка другого id возвращает domain.ErrProviderIDAlreadySet
	LinkProviderTx(ctx context.Context, db persistence.Persistence, id int64, txID string) error
	UpdateStatus(ctx context.Context, db persistence.Persistence, id int64, status domain.PaymentStatus) error
	// MarkActivated проставляет activated_at, если он ещё пуст.
	// false - платёж уже активирован раньше
	MarkActivated(ctx context.Context, db persistence.Persistence, id int64, at time.Time) (bool, error)
	// ListStalePending платежи в pending старше olderThan с привязанной транзакцией
	ListStalePending(ctx context.Context, db persistence.Persistence, olderThan time.Time, limit int) ([]domain.Payment, error)
	// ListCreatedBetween все попытки оплаты за период (для аудиторской выгрузки)
	ListCreatedBetween(ctx context.Context, db persistence.Persistence, from, to time.Time) ([]domain.Payment, error)
}
