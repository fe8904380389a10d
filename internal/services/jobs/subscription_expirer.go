package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/onlyold1/rtg-shop/internal/ports/persistence"
	repoPorts "github.com/onlyold1/rtg-shop/internal/ports/repository"
	servicePorts "github.com/onlyold1/rtg-shop/internal/ports/service"
)

const subscriptionExpirerName = "subscription-expirer"

// SubscriptionExpirer джоба для отзыва истёкших подписок, каждый день в 03:00 по Мск
type SubscriptionExpirer struct {
	db       persistence.Persistence
	userRepo repoPorts.IUserRepo
	notifier servicePorts.INotifier
	log      *slog.Logger
	location *time.Location
}

func NewSubscriptionExpirer(
	db persistence.Persistence,
	userRepo repoPorts.IUserRepo,
	notifier servicePorts.INotifier,
	log *slog.Logger,
) *SubscriptionExpirer {
	location, _ := time.LoadLocation("Europe/Moscow")
	if location == nil {
		location = time.UTC
	}

	return &SubscriptionExpirer{
		db:       db,
		userRepo: userRepo,
		notifier: notifier,
		log:      log,
		location: location,
	}
}

func (j *SubscriptionExpirer) Name() string {
	return subscriptionExpirerName
}

// NextRun каждый день в 03:00 по Мск
func (j *SubscriptionExpirer) NextRun(now time.Time) time.Time {
	nowMoscow := now.In(j.location)
	next := time.Date(nowMoscow.Year(), nowMoscow.Month(), nowMoscow.Day(), 3, 0, 0, 0, j.location)
	if next.Before(nowMoscow) || next.Equal(nowMoscow) {
		next = next.Add(24 * time.Hour)
	}
	return next
}

// Run отзывает истёкшие подписки и уведомляет пользователей
func (j *SubscriptionExpirer) Run(ctx context.Context) error {
	revoked, err := j.userRepo.RevokeExpiredSubscriptions(ctx, j.db, time.Now())
	if err != nil {
		return fmt.Errorf("failed to revoke expired subscriptions: %w", err)
	}

	if len(revoked) == 0 {
		return nil
	}

	j.log.Info("expired subscriptions revoked", "count", len(revoked))

	for _, userID := range revoked {
		user, err := j.userRepo.GetByID(ctx, j.db, userID)
		if err != nil {
			j.log.Warn("failed to load user for expiry notification", "error", err, "user_id", userID)
			continue
		}
		j.notifier.NotifySubscriptionExpired(ctx, user)

		// Не душим Bot API при массовом отзыве
		time.Sleep(100 * time.Millisecond)
	}

	return nil
}
