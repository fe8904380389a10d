package telegram

type Config struct {
	BotToken      string `envconfig:"BOT_TOKEN"`
	WebhookURL    string `envconfig:"WEBHOOK_URL"`
	WebhookSecret string `envconfig:"WEBHOOK_SECRET"` // secret_token для X-Telegram-Bot-Api-Secret-Token
}
