package app

import (
	server "github.com/onlyold1/rtg-shop/internal/adapters/primary/http"
	alerterAdapter "github.com/onlyold1/rtg-shop/internal/adapters/secondary/alerter"
	kafkaAdapter "github.com/onlyold1/rtg-shop/internal/adapters/secondary/kafka"
	"github.com/onlyold1/rtg-shop/internal/adapters/secondary/payment/cryptopay"
	"github.com/onlyold1/rtg-shop/internal/adapters/secondary/payment/platega"
	"github.com/onlyold1/rtg-shop/internal/adapters/secondary/payment/yookassa"
	"github.com/onlyold1/rtg-shop/internal/adapters/secondary/storage/pg"
	redisAdapter "github.com/onlyold1/rtg-shop/internal/adapters/secondary/storage/redis"
	s3Adapter "github.com/onlyold1/rtg-shop/internal/adapters/secondary/storage/s3"
	"github.com/onlyold1/rtg-shop/internal/adapters/secondary/telegram"
	"github.com/onlyold1/rtg-shop/internal/pkg/logger"
	"github.com/onlyold1/rtg-shop/internal/usecases/billing"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Postgres *pg.Config       `envconfig:"POSTGRES"`
	Log      *logger.Config   `envconfig:"LOG"`
	Server   *server.Config   `envconfig:"APISERVER"`
	Telegram *telegram.Config `envconfig:"TELEGRAM"`

	// Платёжные провайдеры: провайдер без учётки считается выключенным
	Platega   *platega.Config   `envconfig:"PLATEGA"`
	YooKassa  *yookassa.Config  `envconfig:"YOOKASSA"`
	CryptoPay *cryptopay.Config `envconfig:"CRYPTOPAY"`

	// Опциональная инфраструктура
	Redis   *redisAdapter.Config   `envconfig:"REDIS"`
	Kafka   *kafkaAdapter.Config   `envconfig:"KAFKA"`
	S3      *s3Adapter.Config      `envconfig:"S3"`
	Alerter *alerterAdapter.Config `envconfig:"ALERTER"`

	Billing billing.BonusConfig `envconfig:"BILLING"`
}

func NewEnvConfig(envPrefix string) (*Config, error) {
	cfg := &Config{}

	_ = godotenv.Load("deployments/local/.env")

	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
