package domain

// дока - https://core.telegram.org/bots/api

// Update - входящее обновление от Telegram Bot API.
// Разбираем только платёжные типы обновлений, остальное подтверждаем и игнорируем.
type Update struct {
	UpdateID         int64             `json:"update_id"`
	Message          *Message          `json:"message,omitempty"`
	CallbackQuery    *CallbackQuery    `json:"callback_query,omitempty"`
	PreCheckoutQuery *PreCheckoutQuery `json:"pre_checkout_query,omitempty"`
}

// CallbackQuery - callback query от Telegram Bot API
type CallbackQuery struct {
	ID      string        `json:"id"`
	From    *TelegramUser `json:"from,omitempty"`
	Message *Message      `json:"message,omitempty"`
	Data    *string       `json:"data,omitempty"` // данные callback кнопки
}

// Message - сообщение от Telegram Bot API
type Message struct {
	MessageID         int64              `json:"message_id"`
	From              *TelegramUser      `json:"from,omitempty"` // отправитель (Telegram User)
	Chat              *Chat              `json:"chat"`           // чат
	Date              int64              `json:"date"`           // Unix timestamp
	Text              *string            `json:"text,omitempty"` // текст сообщения
	SuccessfulPayment *SuccessfulPayment `json:"successful_payment,omitempty"`
}

// User - пользователя Telegram (не domain.User)
type TelegramUser struct {
	ID           int64   `json:"id"`
	IsBot        bool    `json:"is_bot"`
	FirstName    string  `json:"first_name"`
	LastName     *string `json:"last_name,omitempty"`
	Username     *string `json:"username,omitempty"`
	LanguageCode *string `json:"language_code,omitempty"`
}

// Chat - чат в Telegram
type Chat struct {
	ID        int64   `json:"id"`
	Type      string  `json:"type"` // "private", "group", "supergroup", "channel"
	Title     *string `json:"title,omitempty"`
	Username  *string `json:"username,omitempty"`
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
}

// PreCheckoutQuery - запрос подтверждения перед списанием Stars.
// Telegram ждёт ответ не дольше 10 секунд.
type PreCheckoutQuery struct {
	ID             string        `json:"id"`
	From           *TelegramUser `json:"from"`
	Currency       string        `json:"currency"` // "XTR" для Stars
	TotalAmount    int64         `json:"total_amount"`
	InvoicePayload string        `json:"invoice_payload"` // наш внутренний id платежа
}

// SuccessfulPayment - подтверждение успешного списания Stars
type SuccessfulPayment struct {
	Currency                string `json:"currency"`
	TotalAmount             int64  `json:"total_amount"`
	InvoicePayload          string `json:"invoice_payload"`
	TelegramPaymentChargeID string `json:"telegram_payment_charge_id"` // id транзакции на стороне Telegram
	ProviderPaymentChargeID string `json:"provider_payment_charge_id"`
}
