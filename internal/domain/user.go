package domain

import "time"

// User пользователь магазина
type User struct {
	ID                  int64      `json:"id" db:"id"`
	TelegramID          int64      `json:"telegram_id" db:"telegram_id"`
	ChatID              int64      `json:"chat_id" db:"chat_id"`
	Username            *string    `json:"username,omitempty" db:"username"`
	FirstName           *string    `json:"first_name,omitempty" db:"first_name"`
	LanguageCode        *string    `json:"language_code,omitempty" db:"language_code"`
	ReferredByID        *int64     `json:"referred_by_id,omitempty" db:"referred_by_id"`
	SubscriptionEndDate *time.Time `json:"subscription_end_date,omitempty" db:"subscription_end_date"`
	CreatedAt           time.Time  `json:"created_at" db:"created_at"`
}

// HasActiveSubscription активна ли подписка на момент now
func (u *User) HasActiveSubscription(now time.Time) bool {
	return u.SubscriptionEndDate != nil && u.SubscriptionEndDate.After(now)
}
