package paymentsController

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/onlyold1/rtg-shop/internal/domain"
	"github.com/onlyold1/rtg-shop/internal/usecases/checkout"
)

// IRates курс для подсказки суммы в крипте (может отсутствовать)
type IRates interface {
	GetRate(ctx context.Context, currency string) (decimal.Decimal, error)
}

// Controller внутренний API витрины: регистрация покупателя и выставление
// счёта. Наружу не выставляется, живёт за периметром
type Controller struct {
	checkout *checkout.Service
	rates    IRates
	log      *slog.Logger
}

func New(checkoutSvc *checkout.Service, rates IRates, log *slog.Logger) *Controller {
	return &Controller{
		checkout: checkoutSvc,
		rates:    rates,
		log:      log,
	}
}

func (c *Controller) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	api.POST("/users", c.ensureUser)
	api.POST("/payments", c.createPayment)
	api.GET("/rates/:currency", c.getRate)
}

type ensureUserRequest struct {
	TelegramID         int64   `json:"telegram_id" binding:"required"`
	ChatID             int64   `json:"chat_id" binding:"required"`
	Username           *string `json:"username"`
	FirstName          *string `json:"first_name"`
	LanguageCode       *string `json:"language_code"`
	ReferrerTelegramID *int64  `json:"referrer_telegram_id"`
}

func (c *Controller) ensureUser(ctx *gin.Context) {
	var req ensureUserRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := c.checkout.EnsureUser(ctx.Request.Context(), checkout.EnsureUserRequest{
		TelegramID:         req.TelegramID,
		ChatID:             req.ChatID,
		Username:           req.Username,
		FirstName:          req.FirstName,
		LanguageCode:       req.LanguageCode,
		ReferrerTelegramID: req.ReferrerTelegramID,
	})
	if err != nil {
		c.log.Error("failed to ensure user", "error", err, "telegram_id", req.TelegramID)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"user_id":               user.ID,
		"telegram_id":           user.TelegramID,
		"subscription_end_date": user.SubscriptionEndDate,
	})
}

type createPaymentRequest struct {
	UserID      int64  `json:"user_id" binding:"required"`
	Provider    string `json:"provider" binding:"required"`
	Amount      string `json:"amount" binding:"required"`
	Currency    string `json:"currency" binding:"required"`
	Months      int    `json:"months" binding:"required"`
	Description string `json:"description"`
	PromoCode   string `json:"promo_code"`
	ReturnURL   string `json:"return_url"`
}

func (c *Controller) createPayment(ctx *gin.Context) {
	var req createPaymentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	provider := domain.PaymentProvider(req.Provider)
	if !provider.IsValid() {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "unknown provider"})
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || amount.LessThanOrEqual(decimal.Zero) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}

	result, err := c.checkout.CreatePayment(ctx.Request.Context(), checkout.CreatePaymentRequest{
		UserID:      req.UserID,
		Provider:    provider,
		Amount:      amount,
		Currency:    req.Currency,
		Months:      req.Months,
		Description: req.Description,
		PromoCode:   req.PromoCode,
		ReturnURL:   req.ReturnURL,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUserNotFound):
			ctx.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		case domain.IsBusinessError(err):
			// Провайдер отказал в выставлении счёта, запись в журнале осталась
			ctx.JSON(http.StatusBadGateway, gin.H{"error": "provider rejected invoice"})
		default:
			c.log.Error("failed to create payment", "error", err, "user_id", req.UserID)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"payment_id":  result.Payment.ID,
		"status":      result.Payment.Status,
		"payment_url": result.PaymentURL,
	})
}

func (c *Controller) getRate(ctx *gin.Context) {
	if c.rates == nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": "rates are not configured"})
		return
	}

	reqCtx, cancel := context.WithTimeout(ctx.Request.Context(), 10*time.Second)
	defer cancel()

	currency := ctx.Param("currency")

	rate, err := c.rates.GetRate(reqCtx, currency)
	if err != nil {
		c.log.Error("failed to get rate", "error", err, "currency", currency)
		ctx.JSON(http.StatusBadGateway, gin.H{"error": "failed to get rate"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"currency": currency,
		"rate":     rate.String(),
	})
}
