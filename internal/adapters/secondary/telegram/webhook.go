package telegram

import (
	"context"
	"fmt"
)

// setWebhookRequest запрос на регистрацию вебхука бота
type setWebhookRequest struct {
	URL            string   `json:"url"`
	SecretToken    string   `json:"secret_token,omitempty"` // приходит обратно в X-Telegram-Bot-Api-Secret-Token
	AllowedUpdates []string `json:"allowed_updates,omitempty"`
}

// SetWebhook регистрирует вебхук бота. Подписываемся только на нужные типы обновлений
func (c *Client) SetWebhook(ctx context.Context, url string, secretToken string) error {
	body := setWebhookRequest{
		URL:            url,
		SecretToken:    secretToken,
		AllowedUpdates: []string{"message", "callback_query", "pre_checkout_query"},
	}

	var apiResp APIResponse
	if err := c.call(ctx, "setWebhook", body, &apiResp); err != nil {
		return fmt.Errorf("telegram setWebhook failed: %w", err)
	}

	c.log.Info("telegram webhook registered", "url", url)
	return nil
}

// DeleteWebhook снимает вебхук бота
func (c *Client) DeleteWebhook(ctx context.Context) error {
	var apiResp APIResponse
	if err := c.call(ctx, "deleteWebhook", struct{}{}, &apiResp); err != nil {
		return fmt.Errorf("telegram deleteWebhook failed: %w", err)
	}

	c.log.Info("telegram webhook deleted")
	return nil
}
