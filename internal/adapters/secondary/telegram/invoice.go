package telegram

import (
	"context"
	"fmt"

	telegramPort "github.com/onlyold1/rtg-shop/internal/ports/telegram"
)

// LabeledPrice представляет цену в invoice
type LabeledPrice struct {
	Label  string `json:"label"`  // название позиции
	Amount int64  `json:"amount"` // цена в минимальных единицах валюты (для Stars - количество звёзд)
}

// sendInvoiceRequest запрос на отправку invoice (Telegram Stars)
// Документация: https://core.telegram.org/bots/api#sendinvoice
type sendInvoiceRequest struct {
	ChatID      int64          `json:"chat_id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Payload     string         `json:"payload"`  // уникальный payload для идентификации платежа
	Currency    string         `json:"currency"` // "XTR" для Stars
	Prices      []LabeledPrice `json:"prices"`
}

// sendInvoiceResponse ответ от Telegram API на sendInvoice
type sendInvoiceResponse struct {
	APIResponse
	Result struct {
		MessageID int64 `json:"message_id"`
	} `json:"result"`
}

// SendInvoice отправляет Stars-инвойс пользователю, возвращает message_id
func (c *Client) SendInvoice(ctx context.Context, req telegramPort.SendInvoiceRequest) (int64, error) {
	body := sendInvoiceRequest{
		ChatID:      req.ChatID,
		Title:       req.Title,
		Description: req.Description,
		Payload:     req.Payload,
		Currency:    "XTR",
		Prices: []LabeledPrice{
			{Label: req.Title, Amount: req.Amount},
		},
	}

	var apiResp sendInvoiceResponse
	if err := c.call(ctx, "sendInvoice", body, &apiResp); err != nil {
		return 0, fmt.Errorf("telegram sendInvoice failed [chat_id=%d]: %w", req.ChatID, err)
	}

	c.log.Debug("invoice sent successfully",
		"chat_id", req.ChatID,
		"message_id", apiResp.Result.MessageID,
	)

	return apiResp.Result.MessageID, nil
}

// answerPreCheckoutQueryRequest запрос на ответ pre_checkout_query
type answerPreCheckoutQueryRequest struct {
	PreCheckoutQueryID string  `json:"pre_checkout_query_id"`
	OK                 bool    `json:"ok"`                      // true - подтвердить, false - отклонить
	ErrorMessage       *string `json:"error_message,omitempty"` // сообщение об ошибке (если ok=false)
}

// AnswerPreCheckoutQuery отвечает на pre_checkout_query (подтверждает или отклоняет платёж)
// Документация: https://core.telegram.org/bots/api#answerprecheckoutquery
func (c *Client) AnswerPreCheckoutQuery(ctx context.Context, queryID string, ok bool, errorMessage *string) error {
	body := answerPreCheckoutQueryRequest{
		PreCheckoutQueryID: queryID,
		OK:                 ok,
		ErrorMessage:       errorMessage,
	}

	var apiResp APIResponse
	if err := c.call(ctx, "answerPreCheckoutQuery", body, &apiResp); err != nil {
		return fmt.Errorf("telegram answerPreCheckoutQuery failed [query_id=%s]: %w", queryID, err)
	}

	c.log.Debug("pre_checkout_query answered successfully", "query_id", queryID, "ok", ok)
	return nil
}
