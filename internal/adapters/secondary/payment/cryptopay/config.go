package cryptopay

type Config struct {
	BaseURL  string `envconfig:"BASE_URL" default:"https://pay.crypt.bot/api"`
	APIToken string `envconfig:"API_TOKEN"`
	Asset    string `envconfig:"ASSET" default:"USDT"` // валюта инвойсов
}
