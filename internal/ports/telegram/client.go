package telegram

import (
	"context"
)

// IClient интерфейс для клиента Telegram Bot API
type IClient interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	// SendInvoice отправляет Stars-инвойс в чат, возвращает message_id
	SendInvoice(ctx context.Context, req SendInvoiceRequest) (int64, error)
	AnswerPreCheckoutQuery(ctx context.Context, queryID string, ok bool, errorMessage *string) error
}

// IWebhookManager управление вебхуком бота при старте/остановке приложения
type IWebhookManager interface {
	SetWebhook(ctx context.Context, url string, secretToken string) error
	DeleteWebhook(ctx context.Context) error
}

// SendInvoiceRequest запрос на отправку Stars-инвойса
type SendInvoiceRequest struct {
	ChatID      int64
	Title       string
	Description string
	Payload     string // внутренний id платежа
	Amount      int64  // количество звёзд
}
