package payment

import (
	"context"
	"net/http"

	"github.com/onlyold1/rtg-shop/internal/domain"
	"github.com/shopspring/decimal"
)

// IProvider интерфейс платёжного провайдера (Platega, YooKassa, CryptoPay, Telegram Stars).
// Use case зависит только от этого интерфейса, не зная деталей реализации
type IProvider interface {
	// Provider возвращает идентификатор провайдера
	Provider() domain.PaymentProvider

	// CreateInvoice создаёт инвойс у провайдера и возвращает id транзакции
	// и ссылку на оплату
	CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*CreateInvoiceResult, error)

	// NormalizeStatus переводит сырой код статуса провайдера в канонический.
	// Неизвестные коды возвращаются как UPPER(raw), не как ошибка
	NormalizeStatus(raw string) domain.CallbackStatus

	// VerifyCallback проверяет аутентичность входящего колбэка.
	// Тело передаётся для схем с подписью контента (HMAC)
	VerifyCallback(header http.Header, body []byte) error

	// ParseCallback разбирает тело колбэка в нормализованное событие
	ParseCallback(body []byte) (*domain.WebhookEvent, error)
}

// IStatusPoller опциональная возможность провайдера: опрос статуса транзакции
// для платежей, по которым потерялся вебхук
type IStatusPoller interface {
	GetStatus(ctx context.Context, transactionID string) (domain.CallbackStatus, error)
}

// IPreCheckoutConfirmer опциональная возможность провайдера (Telegram Stars):
// подтверждение pre_checkout_query перед списанием
type IPreCheckoutConfirmer interface {
	ConfirmPreCheckout(ctx context.Context, queryID string, ok bool, errorMessage *string) error
}

// CreateInvoiceRequest запрос на создание инвойса
type CreateInvoiceRequest struct {
	PaymentID   int64 // внутренний id платежа, уходит провайдеру как payload
	ChatID      int64
	Amount      decimal.Decimal
	Currency    string
	Description string
	ReturnURL   string
}

// CreateInvoiceResult результат создания инвойса
type CreateInvoiceResult struct {
	TransactionID string // id транзакции в системе провайдера
	PaymentURL    string // ссылка на оплату (пустая для Telegram Stars - инвойс уходит в чат)
}
