package telegram

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

const testSecret = "webhook-secret"

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	// Платёжные обновления в этих кейсах не приходят, StarsFlow не нужен
	controller := New(nil, testSecret, slog.Default())
	controller.RegisterRoutes(router)
	return router
}

func doWebhook(router *gin.Engine, secret string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook/", bytes.NewBufferString(body))
	if secret != "" {
		req.Header.Set("X-Telegram-Bot-Api-Secret-Token", secret)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestWebhookSecretTokenMismatch(t *testing.T) {
	router := newTestRouter()

	rec := doWebhook(router, "wrong", `{"update_id":1}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doWebhook(router, "", `{"update_id":1}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWebhookMalformedBody(t *testing.T) {
	router := newTestRouter()

	rec := doWebhook(router, testSecret, `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookNonPaymentUpdateAcked(t *testing.T) {
	router := newTestRouter()

	// Обычное сообщение без successful_payment подтверждается и игнорируется
	rec := doWebhook(router, testSecret, `{"update_id":1,"message":{"message_id":5,"chat":{"id":1,"type":"private"},"text":"hi"}}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}
