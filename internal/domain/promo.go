package domain

import "time"

// PromoCode промокод, дающий бонусные дни при оплате
type PromoCode struct {
	ID        int64     `json:"id" db:"id"`
	Code      string    `json:"code" db:"code"`
	BonusDays int       `json:"bonus_days" db:"bonus_days"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
