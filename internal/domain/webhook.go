package domain

import "github.com/shopspring/decimal"

// CallbackStatus канонический статус события от провайдера.
// Неизвестные коды не роняют пайплайн: адаптер пропускает их как
// UPPER(raw), такие события видны оператору как "unmapped".
type CallbackStatus string

const (
	CallbackStatusPending   CallbackStatus = "PENDING"
	CallbackStatusConfirmed CallbackStatus = "CONFIRMED"
	CallbackStatusCanceled  CallbackStatus = "CANCELED"
	CallbackStatusFailed    CallbackStatus = "FAILED"
	CallbackStatusExpired   CallbackStatus = "EXPIRED"
)

// IsMapped true для статусов из канонического набора
func (s CallbackStatus) IsMapped() bool {
	switch s {
	case CallbackStatusPending, CallbackStatusConfirmed, CallbackStatusCanceled,
		CallbackStatusFailed, CallbackStatusExpired:
		return true
	}
	return false
}

// TerminalPaymentStatus соответствующий терминальный статус платежа
// для неуспешных событий (CANCELED/FAILED/EXPIRED)
func (s CallbackStatus) TerminalPaymentStatus() (PaymentStatus, bool) {
	switch s {
	case CallbackStatusCanceled:
		return PaymentStatusCanceled, true
	case CallbackStatusFailed:
		return PaymentStatusFailed, true
	case CallbackStatusExpired:
		return PaymentStatusExpired, true
	}
	return "", false
}

// WebhookEvent нормализованное событие колбэка. Не персистится:
// в БД сохраняется только его эффект на Payment.
type WebhookEvent struct {
	Provider      PaymentProvider
	TransactionID string
	Status        CallbackStatus
	Amount        decimal.Decimal
	Currency      string
}
