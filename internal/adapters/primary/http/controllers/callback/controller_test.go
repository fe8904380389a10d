package callbackController

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onlyold1/rtg-shop/internal/domain"
	paymentPort "github.com/onlyold1/rtg-shop/internal/ports/payment"
	"github.com/onlyold1/rtg-shop/internal/usecases/billing"
)

type stubProvider struct {
	verifyErr error
	parseErr  error
	event     *domain.WebhookEvent
}

func (p *stubProvider) Provider() domain.PaymentProvider { return domain.ProviderPlatega }

func (p *stubProvider) CreateInvoice(context.Context, paymentPort.CreateInvoiceRequest) (*paymentPort.CreateInvoiceResult, error) {
	return nil, errors.New("not implemented")
}

func (p *stubProvider) NormalizeStatus(raw string) domain.CallbackStatus {
	return domain.CallbackStatus(raw)
}

func (p *stubProvider) VerifyCallback(http.Header, []byte) error { return p.verifyErr }

func (p *stubProvider) ParseCallback([]byte) (*domain.WebhookEvent, error) {
	if p.parseErr != nil {
		return nil, p.parseErr
	}
	return p.event, nil
}

type stubProcessor struct {
	outcome billing.Outcome
	err     error
	calls   int
}

func (s *stubProcessor) Process(context.Context, *domain.WebhookEvent) (billing.Outcome, error) {
	s.calls++
	return s.outcome, s.err
}

func newTestRouter(provider *stubProvider, processor *stubProcessor) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	controller := New(
		map[domain.PaymentProvider]paymentPort.IProvider{domain.ProviderPlatega: provider},
		processor,
		slog.Default(),
	)
	controller.RegisterRoutes(router)
	return router
}

func doCallback(router *gin.Engine, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(`{"id":"tx-1","status":"CONFIRMED"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCallbackApplied(t *testing.T) {
	provider := &stubProvider{event: &domain.WebhookEvent{TransactionID: "tx-1", Status: domain.CallbackStatusConfirmed}}
	processor := &stubProcessor{outcome: billing.OutcomeApplied}

	rec := doCallback(newTestRouter(provider, processor), "/callback/platega")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "applied")
	assert.Equal(t, 1, processor.calls)
}

func TestCallbackDuplicateAcked(t *testing.T) {
	provider := &stubProvider{event: &domain.WebhookEvent{TransactionID: "tx-1"}}
	processor := &stubProcessor{outcome: billing.OutcomeDuplicate}

	rec := doCallback(newTestRouter(provider, processor), "/callback/platega")

	// Дубль подтверждается, чтобы провайдер перестал ретраить
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "duplicate")
}

func TestCallbackUnknownProvider(t *testing.T) {
	rec := doCallback(newTestRouter(&stubProvider{}, &stubProcessor{}), "/callback/paypal")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCallbackUnauthenticated(t *testing.T) {
	provider := &stubProvider{verifyErr: errors.New("bad credentials")}
	processor := &stubProcessor{}

	rec := doCallback(newTestRouter(provider, processor), "/callback/platega")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, processor.calls)
}

func TestCallbackMalformedBody(t *testing.T) {
	provider := &stubProvider{parseErr: errors.New("unmarshal failed")}
	processor := &stubProcessor{}

	rec := doCallback(newTestRouter(provider, processor), "/callback/platega")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, processor.calls)
}

func TestCallbackTransientFailure(t *testing.T) {
	provider := &stubProvider{event: &domain.WebhookEvent{TransactionID: "tx-1"}}
	processor := &stubProcessor{err: errors.New("db connection lost")}

	rec := doCallback(newTestRouter(provider, processor), "/callback/platega")

	// Откат транзакции отвечает 500: провайдер должен повторить доставку
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
