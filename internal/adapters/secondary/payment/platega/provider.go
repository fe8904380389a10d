package platega

import (
	"bytes"
	"context"
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

// Заголовки аутентификации агрегатора: ими же он подписывает свои колбэки
const (
	headerMerchantID = "X-MerchantId"
	headerSecret     = "X-Secret"
)

var ErrUnauthorizedCallback = errors.New("platega callback credentials mismatch")

// statusMap таблица соответствия кодов агрегатора каноническим статусам.
// Агрегатор шлёт и числовые коды, и строковые имена
var statusMap = map[string]domain.CallbackStatus{
	"1":         domain.CallbackStatusPending,
	"7":         domain.CallbackStatusConfirmed,
	"8":         domain.CallbackStatusExpired,
	"9":         domain.CallbackStatusCanceled,
	"10":        domain.CallbackStatusFailed,
	"PENDING":   domain.CallbackStatusPending,
	"CONFIRMED": domain.CallbackStatusConfirmed,
	"EXPIRED":   domain.CallbackStatusExpired,
	"CANCELED":  domain.CallbackStatusCanceled,
	"FAILED":    domain.CallbackStatusFailed,
}

// Provider реализует IProvider для СБП/крипто-агрегатора Platega
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
	return domain.ProviderPlatega
}

type createTransactionRequest struct {
	PaymentMethod  int            `json:"paymentMethod"`
	ID             string         `json:"id"` // наш uuid транзакции, по нему приходит колбэк
	PaymentDetails paymentDetails `json:"paymentDetails"`
	Description    string         `json:"description"`
	Return         string         `json:"return"`
	FailedURL      string         `json:"failedUrl"`
	Payload        string         `json:"payload"` // внутренний id платежа
}

type paymentDetails struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

type createTransactionResponse struct {
	Redirect string `json:"redirect"`
}

// CreateInvoice создаёт транзакцию у агрегатора и возвращает ссылку на оплату
func (p *Provider) CreateInvoice(ctx context.Context, req paymentPort.CreateInvoiceRequest) (*paymentPort.CreateInvoiceResult, error) {
	transactionID := uuid.NewString()

	returnURL := req.ReturnURL
	if returnURL == "" {
		returnURL = p.cfg.ReturnURL
	}

	body := createTransactionRequest{
		PaymentMethod: p.cfg.PaymentMethod,
		ID:            transactionID,
		PaymentDetails: paymentDetails{
			Amount:   req.Amount,
			Currency: req.Currency,
		},
		Description: req.Description,
		Return:      returnURL,
		FailedURL:   p.cfg.FailedURL,
		Payload:     fmt.Sprintf("%d", req.PaymentID),
	}

	var resp createTransactionResponse
	if err := p.call(ctx, http.MethodPost, "/transaction/process", body, &resp); err != nil {
		p.log.Error("failed to create platega transaction",
			"error", err,
			"payment_id", req.PaymentID,
		)
		return nil, fmt.Errorf("platega create transaction: %w", err)
	}

	if resp.Redirect == "" {
		p.log.Error("platega response has no redirect url", "payment_id", req.PaymentID)
		return nil, fmt.Errorf("platega create transaction: empty redirect url")
	}

	p.log.Info("platega transaction created",
		"payment_id", req.PaymentID,
		"transaction_id", transactionID,
	)

	return &paymentPort.CreateInvoiceResult{
		TransactionID: transactionID,
		PaymentURL:    resp.Redirect,
	}, nil
}

// NormalizeStatus переводит сырой код агрегатора в канонический статус.
// Неизвестные коды пропускаются как UPPER(raw)
func (p *Provider) NormalizeStatus(raw string) domain.CallbackStatus {
	normalized := strings.ToUpper(strings.TrimSpace(raw))
	if status, ok := statusMap[normalized]; ok {
		return status
	}
	return domain.CallbackStatus(normalized)
}

// VerifyCallback сверяет заголовки колбэка с учётными данными мерчанта
func (p *Provider) VerifyCallback(header http.Header, _ []byte) error {
	if header.Get(headerMerchantID) != p.cfg.MerchantID || header.Get(headerSecret) != p.cfg.Secret {
		return ErrUnauthorizedCallback
	}
	return nil
}

type callbackBody struct {
	ID       string          `json:"id"`
	Status   string          `json:"status"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// ParseCallback разбирает тело колбэка в нормализованное событие
func (p *Provider) ParseCallback(body []byte) (*domain.WebhookEvent, error) {
	var cb callbackBody
	if err := json.Unmarshal(body, &cb); err != nil {
		return nil, fmt.Errorf("platega callback unmarshal: %w", err)
	}

	if cb.ID == "" {
		return nil, fmt.Errorf("platega callback: missing transaction id")
	}

	return &domain.WebhookEvent{
		Provider:      domain.ProviderPlatega,
		TransactionID: cb.ID,
		Status:        p.NormalizeStatus(cb.Status),
		Amount:        cb.Amount,
		Currency:      cb.Currency,
	}, nil
}

type transactionStatusResponse struct {
	Status string `json:"status"`
}

// GetStatus опрашивает текущий статус транзакции (fallback при потерянном вебхуке)
func (p *Provider) GetStatus(ctx context.Context, transactionID string) (domain.CallbackStatus, error) {
	var resp transactionStatusResponse
	if err := p.call(ctx, http.MethodGet, "/transaction/"+transactionID, nil, &resp); err != nil {
		return "", fmt.Errorf("platega get status [transaction_id=%s]: %w", transactionID, err)
	}
	return p.NormalizeStatus(resp.Status), nil
}

type rateResponse struct {
	Rate decimal.Decimal `json:"rate"`
}

// GetRate возвращает курс способа оплаты для валюты (для подсказки суммы в крипте)
func (p *Provider) GetRate(ctx context.Context, currency string) (decimal.Decimal, error) {
	path := fmt.Sprintf("/rates/payment_method_rate?currency=%s&paymentMethod=%d", currency, p.cfg.PaymentMethod)

	var resp rateResponse
	if err := p.call(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return decimal.Zero, fmt.Errorf("platega get rate [currency=%s]: %w", currency, err)
	}
	return resp.Rate, nil
}

// call выполняет запрос к API агрегатора с заголовками аутентификации
func (p *Provider) call(ctx context.Context, method, path string, reqBody interface{}, respDest interface{}) error {
	var bodyReader io.Reader
	if reqBody != nil {
		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewBuffer(jsonData)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, p.cfg.BaseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(headerMerchantID, p.cfg.MerchantID)
	httpReq.Header.Set(headerSecret, p.cfg.Secret)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, respDest); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}

	return nil
}
