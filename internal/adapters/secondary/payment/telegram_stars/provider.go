package telegram_stars

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/onlyold1/rtg-shop/internal/domain"
	paymentPort "github.com/onlyold1/rtg-shop/internal/ports/payment"
	telegramPort "github.com/onlyold1/rtg-shop/internal/ports/telegram"
)

var ErrUnauthorizedCallback = errors.New("telegram secret token mismatch")

// statusMap Telegram не шлёт явных статусов: successful_payment трактуем как paid
var statusMap = map[string]domain.CallbackStatus{
	"PAID":       domain.CallbackStatusConfirmed,
	"SUCCESSFUL": domain.CallbackStatusConfirmed,
}

// Provider реализует IProvider для Telegram Stars.
// В отличие от внешних шлюзов инвойс уходит прямо в чат, а подтверждение
// приходит объектом successful_payment в обновлении бота
type Provider struct {
	client        telegramPort.IClient
	webhookSecret string
	log           *slog.Logger
}

func NewProvider(client telegramPort.IClient, webhookSecret string, log *slog.Logger) *Provider {
	return &Provider{
		client:        client,
		webhookSecret: webhookSecret,
		log:           log,
	}
}

func (p *Provider) Provider() domain.PaymentProvider {
	return domain.ProviderTelegramStars
}

// CreateInvoice отправляет Stars-инвойс в чат пользователя.
// TransactionID остаётся пустым: charge id станет известен только
// из successful_payment
func (p *Provider) CreateInvoice(ctx context.Context, req paymentPort.CreateInvoiceRequest) (*paymentPort.CreateInvoiceResult, error) {
	messageID, err := p.client.SendInvoice(ctx, telegramPort.SendInvoiceRequest{
		ChatID:      req.ChatID,
		Title:       req.Description,
		Description: req.Description,
		Payload:     fmt.Sprintf("%d", req.PaymentID),
		Amount:      req.Amount.IntPart(), // количество звёзд, всегда целое
	})
	if err != nil {
		return nil, fmt.Errorf("failed to send stars invoice: %w", err)
	}

	p.log.Info("stars invoice sent",
		"payment_id", req.PaymentID,
		"chat_id", req.ChatID,
		"message_id", messageID,
	)

	return &paymentPort.CreateInvoiceResult{}, nil
}

// NormalizeStatus переводит статус в канонический,
// неизвестные пропускаются как UPPER(raw)
func (p *Provider) NormalizeStatus(raw string) domain.CallbackStatus {
	normalized := strings.ToUpper(strings.TrimSpace(raw))
	if status, ok := statusMap[normalized]; ok {
		return status
	}
	return domain.CallbackStatus(normalized)
}

// VerifyCallback сверяет секретный токен вебхука бота
func (p *Provider) VerifyCallback(header http.Header, _ []byte) error {
	token := header.Get("X-Telegram-Bot-Api-Secret-Token")
	if subtle.ConstantTimeCompare([]byte(token), []byte(p.webhookSecret)) != 1 {
		return ErrUnauthorizedCallback
	}
	return nil
}

// ParseCallback разбирает обновление бота с successful_payment
func (p *Provider) ParseCallback(body []byte) (*domain.WebhookEvent, error) {
	var update domain.Update
	if err := json.Unmarshal(body, &update); err != nil {
		return nil, fmt.Errorf("stars update unmarshal: %w", err)
	}

	if update.Message == nil || update.Message.SuccessfulPayment == nil {
		return nil, fmt.Errorf("stars update: no successful_payment")
	}

	sp := update.Message.SuccessfulPayment
	return &domain.WebhookEvent{
		Provider:      domain.ProviderTelegramStars,
		TransactionID: sp.TelegramPaymentChargeID,
		Status:        domain.CallbackStatusConfirmed,
		Amount:        decimal.NewFromInt(sp.TotalAmount),
		Currency:      sp.Currency,
	}, nil
}

// ConfirmPreCheckout отвечает на pre_checkout_query
func (p *Provider) ConfirmPreCheckout(ctx context.Context, queryID string, ok bool, errorMessage *string) error {
	if err := p.client.AnswerPreCheckoutQuery(ctx, queryID, ok, errorMessage); err != nil {
		return fmt.Errorf("failed to answer pre_checkout_query: %w", err)
	}
	return nil
}
