package callbackController

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/onlyold1/rtg-shop/internal/domain"
	paymentPort "github.com/onlyold1/rtg-shop/internal/ports/payment"
	"github.com/onlyold1/rtg-shop/internal/usecases/billing"
)

// CallbackProcessor сторона процессора, нужная контроллеру
type CallbackProcessor interface {
	Process(ctx context.Context, event *domain.WebhookEvent) (billing.Outcome, error)
}

// Controller приём колбэков платёжных провайдеров.
// Контракт ответа: 401 - не прошла аутентификация, 400 - нечитаемое тело,
// 500 - транзакция откатилась (провайдер должен повторить),
// 200 - событие обработано, дубль или незамапленный статус
type Controller struct {
	providers map[domain.PaymentProvider]paymentPort.IProvider
	processor CallbackProcessor
	log       *slog.Logger
}

func New(
	providers map[domain.PaymentProvider]paymentPort.IProvider,
	processor CallbackProcessor,
	log *slog.Logger,
) *Controller {
	return &Controller{
		providers: providers,
		processor: processor,
		log:       log,
	}
}

func (c *Controller) RegisterRoutes(router *gin.Engine) {
	router.POST("/callback/:provider", c.handleCallback)
}

func (c *Controller) handleCallback(ctx *gin.Context) {
	providerName := domain.PaymentProvider(ctx.Param("provider"))

	provider, ok := c.providers[providerName]
	if !ok {
		c.log.Warn("callback for unknown provider", "provider", providerName)
		ctx.JSON(http.StatusNotFound, gin.H{"error": "unknown provider"})
		return
	}

	body, err := ctx.GetRawData()
	if err != nil {
		c.log.Error("failed to read callback body", "error", err, "provider", providerName)
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := provider.VerifyCallback(ctx.Request.Header, body); err != nil {
		c.log.Warn("callback authentication failed",
			"error", err,
			"provider", providerName,
			"remote_addr", ctx.Request.RemoteAddr,
		)
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	event, err := provider.ParseCallback(body)
	if err != nil {
		c.log.Warn("failed to parse callback", "error", err, "provider", providerName)
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	outcome, err := c.processor.Process(ctx.Request.Context(), event)
	if err != nil {
		// Транзакция откатилась: отвечаем 500, чтобы провайдер повторил доставку
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"ok": true, "outcome": string(outcome)})
}
