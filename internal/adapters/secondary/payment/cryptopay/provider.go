package cryptopay

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/onlyold1/rtg-shop/internal/domain"
	paymentPort "github.com/onlyold1/rtg-shop/internal/ports/payment"
)

const (
	apiTimeout = 30 * time.Second

	// Подпись колбэка: HMAC-SHA256 тела ключом SHA256(api_token)
	headerSignature = "Crypto-Pay-Api-Signature"
)

var ErrInvalidSignature = errors.New("cryptopay callback signature mismatch")

// statusMap таблица соответствия статусов инвойса каноническим
var statusMap = map[string]domain.CallbackStatus{
	"ACTIVE":  domain.CallbackStatusPending,
	"PAID":    domain.CallbackStatusConfirmed,
	"EXPIRED": domain.CallbackStatusExpired,
}

// Provider реализует IProvider для крипто-инвойсов Crypto Pay
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
	return domain.ProviderCryptoPay
}

type createInvoiceRequest struct {
	Asset       string `json:"asset"`
	Amount      string `json:"amount"`
	Description string `json:"description,omitempty"`
	Payload     string `json:"payload,omitempty"` // внутренний id платежа
	ExpiresIn   int    `json:"expires_in,omitempty"`
}

type invoiceObject struct {
	InvoiceID     int64  `json:"invoice_id"`
	Status        string `json:"status"`
	Asset         string `json:"asset"`
	Amount        string `json:"amount"`
	BotInvoiceURL string `json:"bot_invoice_url"`
	Payload       string `json:"payload"`
}

type apiResponse struct {
	OK     bool            `json:"ok"`
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code int    `json:"code"`
		Name string `json:"name"`
	} `json:"error,omitempty"`
}

// CreateInvoice создаёт крипто-инвойс и возвращает ссылку на оплату
func (p *Provider) CreateInvoice(ctx context.Context, req paymentPort.CreateInvoiceRequest) (*paymentPort.CreateInvoiceResult, error) {
	body := createInvoiceRequest{
		Asset:       p.cfg.Asset,
		Amount:      req.Amount.String(),
		Description: req.Description,
		Payload:     fmt.Sprintf("%d", req.PaymentID),
	}

	var invoice invoiceObject
	if err := p.call(ctx, "createInvoice", body, &invoice); err != nil {
		p.log.Error("failed to create cryptopay invoice", "error", err, "payment_id", req.PaymentID)
		return nil, fmt.Errorf("cryptopay create invoice: %w", err)
	}

	if invoice.InvoiceID == 0 || invoice.BotInvoiceURL == "" {
		p.log.Error("cryptopay response is incomplete", "payment_id", req.PaymentID)
		return nil, fmt.Errorf("cryptopay create invoice: incomplete response")
	}

	p.log.Info("cryptopay invoice created",
		"payment_id", req.PaymentID,
		"invoice_id", invoice.InvoiceID,
	)

	return &paymentPort.CreateInvoiceResult{
		TransactionID: strconv.FormatInt(invoice.InvoiceID, 10),
		PaymentURL:    invoice.BotInvoiceURL,
	}, nil
}

// NormalizeStatus переводит статус инвойса в канонический,
// неизвестные пропускаются как UPPER(raw)
func (p *Provider) NormalizeStatus(raw string) domain.CallbackStatus {
	normalized := strings.ToUpper(strings.TrimSpace(raw))
	if status, ok := statusMap[normalized]; ok {
		return status
	}
	return domain.CallbackStatus(normalized)
}

// VerifyCallback проверяет HMAC-подпись тела колбэка
func (p *Provider) VerifyCallback(header http.Header, body []byte) error {
	signature := header.Get(headerSignature)
	if signature == "" {
		return ErrInvalidSignature
	}

	secret := sha256.Sum256([]byte(p.cfg.APIToken))
	mac := hmac.New(sha256.New, secret[:])
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return ErrInvalidSignature
	}
	return nil
}

type callbackUpdate struct {
	UpdateType string        `json:"update_type"`
	Payload    invoiceObject `json:"payload"`
}

// ParseCallback разбирает колбэк invoice_paid в нормализованное событие
func (p *Provider) ParseCallback(body []byte) (*domain.WebhookEvent, error) {
	var update callbackUpdate
	if err := json.Unmarshal(body, &update); err != nil {
		return nil, fmt.Errorf("cryptopay callback unmarshal: %w", err)
	}

	if update.Payload.InvoiceID == 0 {
		return nil, fmt.Errorf("cryptopay callback: missing invoice id")
	}

	amount, err := decimal.NewFromString(update.Payload.Amount)
	if err != nil {
		return nil, fmt.Errorf("cryptopay callback: invalid amount %q: %w", update.Payload.Amount, err)
	}

	return &domain.WebhookEvent{
		Provider:      domain.ProviderCryptoPay,
		TransactionID: strconv.FormatInt(update.Payload.InvoiceID, 10),
		Status:        p.NormalizeStatus(update.Payload.Status),
		Amount:        amount,
		Currency:      update.Payload.Asset,
	}, nil
}

// GetStatus опрашивает статус инвойса (fallback при потерянном вебхуке)
func (p *Provider) GetStatus(ctx context.Context, transactionID string) (domain.CallbackStatus, error) {
	body := struct {
		InvoiceIDs string `json:"invoice_ids"`
	}{InvoiceIDs: transactionID}

	var result struct {
		Items []invoiceObject `json:"items"`
	}
	if err := p.call(ctx, "getInvoices", body, &result); err != nil {
		return "", fmt.Errorf("cryptopay get status [invoice_id=%s]: %w", transactionID, err)
	}

	if len(result.Items) == 0 {
		return "", fmt.Errorf("cryptopay get status: invoice %s not found", transactionID)
	}

	return p.NormalizeStatus(result.Items[0].Status), nil
}

// call выполняет запрос к Crypto Pay API
func (p *Provider) call(ctx context.Context, method string, reqBody interface{}, respDest interface{}) error {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/"+method, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Crypto-Pay-API-Token", p.cfg.APIToken)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	var api apiResponse
	if err := json.Unmarshal(respBody, &api); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}

	if !api.OK {
		if api.Error != nil {
			return fmt.Errorf("api error %d: %s", api.Error.Code, api.Error.Name)
		}
		return fmt.Errorf("api error: status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(api.Result, respDest); err != nil {
		return fmt.Errorf("unmarshal result: %w", err)
	}

	return nil
}
