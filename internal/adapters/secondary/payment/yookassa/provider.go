package yookassa

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/onlyold1/rtg-shop/internal/domain"
	paymentPort "github.com/onlyold1/rtg-shop/internal/ports/payment"
)

const apiTimeout = 30 * time.Second

var ErrUnauthorizedCallback = errors.New("yookassa callback credentials mismatch")

// statusMap таблица соответствия статусов шлюза каноническим.
// waiting_for_capture не встречается при capture=true, но на всякий случай замаплен
var statusMap = map[string]domain.CallbackStatus{
	"PENDING":             domain.CallbackStatusPending,
	"WAITING_FOR_CAPTURE": domain.CallbackStatusPending,
	"SUCCEEDED":           domain.CallbackStatusConfirmed,
	"CANCELED":            domain.CallbackStatusCanceled,
}

// Provider реализует IProvider для карточного шлюза YooKassa
type Provider struct {
	httpClient *http.Client
	cfg        Config
	log        *slog.Logger
}

func NewProvider(cfg Config, log *slog.Logger) *Provider {
	return &Provider{
		httpClient: &http.Client{Timeout: apiTimeout},
		cfg:        cfg,
		log:        log,
	}
}

func (p *Provider) Provider() domain.PaymentProvider {
	return domain.ProviderYooKassa
}

type amountObject struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type createPaymentRequest struct {
	Amount       amountObject       `json:"amount"`
	Capture      bool               `json:"capture"`
	Confirmation confirmationObject `json:"confirmation"`
	Description  string             `json:"description"`
	Metadata     map[string]string  `json:"metadata"`
}

type confirmationObject struct {
	Type            string `json:"type"`
	ReturnURL       string `json:"return_url,omitempty"`
	ConfirmationURL string `json:"confirmation_url,omitempty"`
}

type paymentObject struct {
	ID           string              `json:"id"`
	Status       string              `json:"status"`
	Amount       amountObject        `json:"amount"`
	Confirmation *confirmationObject `json:"confirmation,omitempty"`
}

// CreateInvoice создаёт платёж в шлюзе и возвращает ссылку на подтверждение
func (p *Provider) CreateInvoice(ctx context.Context, req paymentPort.CreateInvoiceRequest) (*paymentPort.CreateInvoiceResult, error) {
	returnURL := req.ReturnURL
	if returnURL == "" {
		returnURL = p.cfg.ReturnURL
	}

	body := createPaymentRequest{
		Amount: amountObject{
			Value:    req.Amount.StringFixed(2),
			Currency: req.Currency,
		},
		Capture: true,
		Confirmation: confirmationObject{
			Type:      "redirect",
			ReturnURL: returnURL,
		},
		Description: req.Description,
		Metadata: map[string]string{
			"payment_id": fmt.Sprintf("%d", req.PaymentID),
		},
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("yookassa marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/payments", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("yookassa create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	// Idempotence-Key защищает от дублей при ретраях
	httpReq.Header.Set("Idempotence-Key", uuid.NewString())
	httpReq.SetBasicAuth(p.cfg.ShopID, p.cfg.SecretKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		p.log.Error("failed to create yookassa payment", "error", err, "payment_id", req.PaymentID)
		return nil, fmt.Errorf("yookassa send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yookassa read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		p.log.Error("yookassa returned error",
			"status_code", resp.StatusCode,
			"payment_id", req.PaymentID,
		)
		return nil, fmt.Errorf("yookassa unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var payment paymentObject
	if err := json.Unmarshal(respBody, &payment); err != nil {
		return nil, fmt.Errorf("yookassa unmarshal response: %w", err)
	}

	if payment.ID == "" || payment.Confirmation == nil || payment.Confirmation.ConfirmationURL == "" {
		p.log.Error("yookassa response is incomplete", "payment_id", req.PaymentID)
		return nil, fmt.Errorf("yookassa create payment: incomplete response")
	}

	p.log.Info("yookassa payment created",
		"payment_id", req.PaymentID,
		"transaction_id", payment.ID,
	)

	return &paymentPort.CreateInvoiceResult{
		TransactionID: payment.ID,
		PaymentURL:    payment.Confirmation.ConfirmationURL,
	}, nil
}

// NormalizeStatus переводит статус шлюза в канонический,
// неизвестные пропускаются как UPPER(raw)
func (p *Provider) NormalizeStatus(raw string) domain.CallbackStatus {
	normalized := strings.ToUpper(strings.TrimSpace(raw))
	if status, ok := statusMap[normalized]; ok {
		return status
	}
	return domain.CallbackStatus(normalized)
}

// VerifyCallback сверяет Basic-учётку уведомления, если она настроена
func (p *Provider) VerifyCallback(header http.Header, _ []byte) error {
	if p.cfg.WebhookUser == "" {
		return nil
	}

	auth := header.Get("Authorization")
	expected := "Basic " + basicToken(p.cfg.WebhookUser, p.cfg.WebhookPassword)
	if subtle.ConstantTimeCompare([]byte(auth), []byte(expected)) != 1 {
		return ErrUnauthorizedCallback
	}
	return nil
}

type notificationBody struct {
	Event  string        `json:"event"`
	Object paymentObject `json:"object"`
}

// ParseCallback разбирает уведомление шлюза в нормализованное событие
func (p *Provider) ParseCallback(body []byte) (*domain.WebhookEvent, error) {
	var notification notificationBody
	if err := json.Unmarshal(body, &notification); err != nil {
		return nil, fmt.Errorf("yookassa notification unmarshal: %w", err)
	}

	if notification.Object.ID == "" {
		return nil, fmt.Errorf("yookassa notification: missing payment object id")
	}

	amount, err := decimal.NewFromString(notification.Object.Amount.Value)
	if err != nil {
		return nil, fmt.Errorf("yookassa notification: invalid amount %q: %w", notification.Object.Amount.Value, err)
	}

	return &domain.WebhookEvent{
		Provider:      domain.ProviderYooKassa,
		TransactionID: notification.Object.ID,
		Status:        p.NormalizeStatus(notification.Object.Status),
		Amount:        amount,
		Currency:      notification.Object.Amount.Currency,
	}, nil
}

// GetStatus опрашивает текущий статус платежа в шлюзе
func (p *Provider) GetStatus(ctx context.Context, transactionID string) (domain.CallbackStatus, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.BaseURL+"/payments/"+transactionID, nil)
	if err != nil {
		return "", fmt.Errorf("yookassa create request: %w", err)
	}
	httpReq.SetBasicAuth(p.cfg.ShopID, p.cfg.SecretKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("yookassa get status [transaction_id=%s]: %w", transactionID, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("yookassa read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("yookassa unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var payment paymentObject
	if err := json.Unmarshal(respBody, &payment); err != nil {
		return "", fmt.Errorf("yookassa unmarshal response: %w", err)
	}

	return p.NormalizeStatus(payment.Status), nil
}

func basicToken(user, password string) string {
	return base64.StdEncoding.EncodeToString([]byte(user + ":" + password))
}
