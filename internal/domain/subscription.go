package domain

import "time"

// ExtendSubscription чистая функция продления подписки.
// Если текущая подписка ещё активна, продление идёт от её конца,
// иначе от текущего момента.
func ExtendSubscription(currentEnd *time.Time, months int, now time.Time) time.Time {
	base := now
	if currentEnd != nil && currentEnd.After(now) {
		base = *currentEnd
	}
	return base.AddDate(0, months, 0)
}

// AddBonusDays добавляет бонусные дни к подписке по тем же правилам,
// что и ExtendSubscription
func AddBonusDays(currentEnd *time.Time, days int, now time.Time) time.Time {
	base := now
	if currentEnd != nil && currentEnd.After(now) {
		base = *currentEnd
	}
	return base.AddDate(0, 0, days)
}

// ActivationResult результат активации подписки по подтверждённому платежу
type ActivationResult struct {
	PaymentID         int64
	UserID            int64
	EndDate           time.Time // итоговая дата окончания с учётом бонусов
	PromoBonusDays    int
	ReferralBonusDays int
	AlreadyApplied    bool // повторная активация, подписка не продлевалась
}
