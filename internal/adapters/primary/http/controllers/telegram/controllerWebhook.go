package telegram

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/onlyold1/rtg-shop/internal/domain"
	"github.com/onlyold1/rtg-shop/internal/usecases/billing"
)

type Controller struct {
	starsFlow     *billing.StarsFlow
	webhookSecret string
	Log           *slog.Logger
}

func New(starsFlow *billing.StarsFlow, webhookSecret string, log *slog.Logger) *Controller {
	return &Controller{
		starsFlow:     starsFlow,
		webhookSecret: webhookSecret,
		Log:           log,
	}
}

func (c *Controller) RegisterRoutes(router *gin.Engine) {
	router.POST("/webhook/", c.handleWebhook)
}

func (c *Controller) handleWebhook(ctx *gin.Context) {
	secretToken := ctx.GetHeader("X-Telegram-Bot-Api-Secret-Token")
	if subtle.ConstantTimeCompare([]byte(secretToken), []byte(c.webhookSecret)) != 1 {
		c.Log.Warn("webhook secret token mismatch", "remote_addr", ctx.Request.RemoteAddr)
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var update domain.Update

	if err := ctx.ShouldBindJSON(&update); err != nil {
		c.Log.Error("failed to bind webhook request", "error", err)
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	c.Log.Debug("received webhook update", "update_id", update.UpdateID)

	if err := c.handleUpdate(ctx, &update); err != nil {
		c.Log.Error("failed to handle update",
			"error", err,
			"update_id", update.UpdateID,
		)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process update"})
		return
	}

	// Telegram ожидает 200 OK в ответ
	ctx.JSON(http.StatusOK, gin.H{"ok": true})
}

// handleUpdate разбирает платёжные типы обновлений, остальное молча подтверждает
func (c *Controller) handleUpdate(ctx *gin.Context, update *domain.Update) error {
	reqCtx := ctx.Request.Context()

	switch {
	case update.PreCheckoutQuery != nil:
		return c.starsFlow.HandlePreCheckout(reqCtx, update.PreCheckoutQuery)
	case update.Message != nil && update.Message.SuccessfulPayment != nil:
		return c.starsFlow.HandleSuccessfulPayment(reqCtx, update.Message.SuccessfulPayment)
	default:
		return nil
	}
}
