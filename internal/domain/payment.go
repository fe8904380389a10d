package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentProvider платёжный провайдер, через которого создан платёж
type PaymentProvider string

const (
	ProviderYooKassa      PaymentProvider = "yookassa"       // карточный шлюз
	ProviderPlatega       PaymentProvider = "platega"        // СБП/крипто-агрегатор
	ProviderCryptoPay     PaymentProvider = "cryptopay"      // крипто-инвойсы
	ProviderTelegramStars PaymentProvider = "telegram_stars" // встроенная валюта Telegram
)

// IsValid проверяет, что провайдер известен системе
func (p PaymentProvider) IsValid() bool {
	switch p {
	case ProviderYooKassa, ProviderPlatega, ProviderCryptoPay, ProviderTelegramStars:
		return true
	}
	return false
}

// PaymentStatus статус платежа
type PaymentStatus string

const (
	PaymentStatusPending        PaymentStatus = "pending"         // создан, ожидает оплаты
	PaymentStatusSucceeded      PaymentStatus = "succeeded"       // успешно оплачен, подписка выдана
	PaymentStatusCanceled       PaymentStatus = "canceled"        // отменён пользователем или провайдером
	PaymentStatusFailed         PaymentStatus = "failed"          // оплата не прошла
	PaymentStatusFailedCreation PaymentStatus = "failed_creation" // не удалось создать инвойс у провайдера
	PaymentStatusExpired        PaymentStatus = "expired"         // срок оплаты истёк
)

// IsTerminal терминальный статус: дальнейшие переходы запрещены,
// повторные события провайдера игнорируются
func (s PaymentStatus) IsTerminal() bool {
	switch s {
	case PaymentStatusSucceeded, PaymentStatusCanceled, PaymentStatusFailed,
		PaymentStatusFailedCreation, PaymentStatusExpired:
		return true
	}
	return false
}

// Payment одна попытка оплаты подписки.
// Записи никогда не удаляются: неуспешные попытки остаются для аудита
// и для дедупликации повторных колбэков.
type Payment struct {
	ID           int64           `json:"id" db:"id"`
	UserID       int64           `json:"user_id" db:"user_id"`
	Amount       decimal.Decimal `json:"amount" db:"amount"`
	Currency     string          `json:"currency" db:"currency"`
	Months       int             `json:"months" db:"months"` // оплаченный период подписки
	Description  string          `json:"description" db:"description"`
	Provider     PaymentProvider `json:"provider" db:"provider"`
	ProviderTxID *string         `json:"provider_tx_id,omitempty" db:"provider_tx_id"` // id транзакции у провайдера, write-once
	Status       PaymentStatus   `json:"status" db:"status"`
	PromoCodeID  *int64          `json:"promo_code_id,omitempty" db:"promo_code_id"`
	ActivatedAt  *time.Time      `json:"activated_at,omitempty" db:"activated_at"` // маркер идемпотентности активации
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}
