package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	telegramAPIBaseURL = "https://api.telegram.org/bot"
	apiTimeout         = 30 * time.Second
)

// Client клиент для работы с Telegram Bot API
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	log        *slog.Logger
}

// NewClient создаёт новый клиент для Telegram Bot API
func NewClient(token string, log *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: apiTimeout,
		},
		baseURL: telegramAPIBaseURL + token,
		token:   token,
		log:     log,
	}
}

// SendMessageRequest запрос на отправку сообщения
type SendMessageRequest struct {
	ChatID          int64  `json:"chat_id"`
	Text            string `json:"text"`
	ParseMode       string `json:"parse_mode,omitempty"`        // "HTML", "Markdown", "MarkdownV2"
	MessageThreadID *int64 `json:"message_thread_id,omitempty"` // топик форума
}

// SendMessage отправляет текстовое сообщение
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	return c.SendMessageWithRequest(ctx, SendMessageRequest{
		ChatID: chatID,
		Text:   text,
	})
}

// SendMessageWithRequest отправляет сообщение с полным набором параметров
func (c *Client) SendMessageWithRequest(ctx context.Context, req SendMessageRequest) error {
	var apiResp APIResponse
	if err := c.call(ctx, "sendMessage", req, &apiResp); err != nil {
		return fmt.Errorf("telegram sendMessage failed [chat_id=%d]: %w", req.ChatID, err)
	}

	c.log.Debug("message sent successfully", "chat_id", req.ChatID)
	return nil
}

// call выполняет POST-запрос к методу Bot API и разбирает ответ.
// respDest должен встраивать APIResponse
func (c *Client) call(ctx context.Context, method string, reqBody interface{}, respDest interface{}) error {
	url := c.baseURL + "/" + method

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		c.log.Error("failed to marshal request", "error", err, "method", method)
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		c.log.Error("failed to create request", "error", err, "method", method)
		return fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.log.Error("failed to send request to telegram", "error", err, "method", method)
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.log.Error("failed to read response body",
			"error", err,
			"method", method,
			"status_code", resp.StatusCode,
		)
		return fmt.Errorf("read response body: %w", err)
	}

	if err := json.Unmarshal(body, respDest); err != nil {
		c.log.Error("failed to unmarshal response",
			"error", err,
			"method", method,
			"status_code", resp.StatusCode,
			"body_preview", truncateString(string(body), 200),
		)
		return fmt.Errorf("unmarshal response: %w", err)
	}

	var base APIResponse
	if err := json.Unmarshal(body, &base); err == nil && !base.OK {
		c.log.Error("telegram API returned error",
			"error_code", base.ErrorCode,
			"description", base.Description,
			"method", method,
			"status_code", resp.StatusCode,
		)
		return fmt.Errorf("telegram API error: %s (code: %d)", base.Description, base.ErrorCode)
	}

	return nil
}
