package yookassa

type Config struct {
	BaseURL   string `envconfig:"BASE_URL" default:"https://api.yookassa.ru/v3"`
	ShopID    string `envconfig:"SHOP_ID"`
	SecretKey string `envconfig:"SECRET_KEY"`
	ReturnURL string `envconfig:"RETURN_URL"`
	// Basic-учётка, которую шлюз подставляет в уведомления (настраивается в кабинете)
	WebhookUser     string `envconfig:"WEBHOOK_USER"`
	WebhookPassword string `envconfig:"WEBHOOK_PASSWORD"`
}
