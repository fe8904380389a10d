package repository

import (
	"context"
	"time"

	"github.com/onlyold1/rtg-shop/internal/domain"
	"github.com/onlyold1/rtg-shop/internal/ports/persistence"
)

// IUserRepo интерфейс для работы с пользователями
type IUserRepo interface {
	Create(ctx context.Context, db persistence.Persistence, user *domain.User) (int64, error)
	GetByID(ctx context.Context, db persistence.Persistence, id int64) (*domain.User, error)
	GetByTelegramID(ctx context.Context, db persistence.Persistence, telegramID int64) (*domain.User, error)
	UpdateSubscriptionEndDate(ctx context.Context, db persistence.Persistence, id int64, endDate time.Time) error
	// HasSucceededPayments был ли у пользователя успешный платёж, кроме excludePaymentID
	// (проверка "первой оплаты" внутри транзакции, где текущий платёж уже succeeded)
	HasSucceededPayments(ctx context.Context, db persistence.Persistence, userID int64, excludePaymentID int64) (bool, error)
	// RevokeExpiredSubscriptions снимает подписку у всех, чей срок истёк,
	// возвращает id затронутых пользователей
	RevokeExpiredSubscriptions(ctx context.Context, db persistence.Persistence, now time.Time) ([]int64, error)
}
