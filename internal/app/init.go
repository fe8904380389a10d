package app

import (
	"context"
	"fmt"
	"net/http"

	server "github.com/onlyold1/rtg-shop/internal/adapters/primary/http"
	callbackController "github.com/onlyold1/rtg-shop/internal/adapters/primary/http/controllers/callback"
	healthcheckController "github.com/onlyold1/rtg-shop/internal/adapters/primary/http/controllers/healthcheck"
	paymentsController "github.com/onlyold1/rtg-shop/internal/adapters/primary/http/controllers/payments"
	telegramController "github.com/onlyold1/rtg-shop/internal/adapters/primary/http/controllers/telegram"
	alerterAdapter "github.com/onlyold1/rtg-shop/internal/adapters/secondary/alerter"
	kafkaAdapter "github.com/onlyold1/rtg-shop/internal/adapters/secondary/kafka"
	"github.com/onlyold1/rtg-shop/internal/adapters/secondary/payment/cryptopay"
	"github.com/onlyold1/rtg-shop/internal/adapters/secondary/payment/platega"
	starsProvider "github.com/onlyold1/rtg-shop/internal/adapters/secondary/payment/telegram_stars"
	"github.com/onlyold1/rtg-shop/internal/adapters/secondary/payment/yookassa"
	"github.com/onlyold1/rtg-shop/internal/adapters/secondary/storage/pg"
	redisAdapter "github.com/onlyold1/rtg-shop/internal/adapters/secondary/storage/redis"
	s3Adapter "github.com/onlyold1/rtg-shop/internal/adapters/secondary/storage/s3"
	tgAdapter "github.com/onlyold1/rtg-shop/internal/adapters/secondary/telegram"
	"github.com/onlyold1/rtg-shop/internal/domain"
	"github.com/onlyold1/rtg-shop/internal/ports/cache"
	"github.com/onlyold1/rtg-shop/internal/ports/events"
	paymentPort "github.com/onlyold1/rtg-shop/internal/ports/payment"
	"github.com/onlyold1/rtg-shop/internal/ports/repository"
	servicePorts "github.com/onlyold1/rtg-shop/internal/ports/service"
	storagePorts "github.com/onlyold1/rtg-shop/internal/ports/storage"
	paymentRepo "github.com/onlyold1/rtg-shop/internal/repository/payment"
	promoRepo "github.com/onlyold1/rtg-shop/internal/repository/promo"
	userRepo "github.com/onlyold1/rtg-shop/internal/repository/user"
	alerterService "github.com/onlyold1/rtg-shop/internal/services/alerter"
	jobScheduler "github.com/onlyold1/rtg-shop/internal/services/jobs"
	notifierService "github.com/onlyold1/rtg-shop/internal/services/notifier"
	"github.com/onlyold1/rtg-shop/internal/usecases/billing"
	"github.com/onlyold1/rtg-shop/internal/usecases/checkout"
	"github.com/jmoiron/sqlx"
)

type Dependencies struct {
	DB             *sqlx.DB
	HTTPServer     *http.Server
	TelegramClient *tgAdapter.Client
	Cache          cache.Cache
	KafkaProducer  *kafkaAdapter.Producer
	JobScheduler   *jobScheduler.Scheduler
}

// initDependencies инициализирует все зависимости приложения
func (a *App) initDependencies(ctx context.Context) (*Dependencies, error) {
	db, err := a.initPostgres()
	if err != nil {
		return nil, fmt.Errorf("failed to init postgres: %w", err)
	}

	persistenceLayer := pg.NewDB(db)
	repos := a.initRepositories()

	if a.Cfg.Telegram == nil || a.Cfg.Telegram.BotToken == "" {
		return nil, fmt.Errorf("telegram bot token is required")
	}
	tgClient := tgAdapter.NewClient(a.Cfg.Telegram.BotToken, a.Log)

	infra := a.initInfra()

	providers, pollers, rateSource := a.initProviders(tgClient)

	activator := billing.NewActivator(repos.Payment, repos.User, repos.Promo, a.Cfg.Billing, a.Log)
	notifier := notifierService.New(tgClient, a.Log)

	processor := billing.NewProcessor(
		persistenceLayer,
		persistenceLayer,
		repos.Payment,
		repos.User,
		activator,
		notifier,
		infra.Alerter, // может быть nil
		infra.Producer,
		a.Log,
	)

	stars := starsProvider.NewProvider(tgClient, a.Cfg.Telegram.WebhookSecret, a.Log)
	providers[domain.ProviderTelegramStars] = stars

	starsFlow := billing.NewStarsFlow(persistenceLayer, repos.Payment, repos.User, stars, processor, a.Log)
	checkoutSvc := checkout.NewService(persistenceLayer, repos.Payment, repos.User, repos.Promo, providers, a.Log)

	var rates *checkout.RateService
	if rateSource != nil && infra.Cache != nil {
		rates = checkout.NewRateService(rateSource, infra.Cache, a.Log)
	}

	httpServer := a.initHTTP(db, providers, processor, starsFlow, checkoutSvc, rates)

	scheduler := a.initJobScheduler(persistenceLayer, repos, pollers, processor, notifier, infra)

	return &Dependencies{
		DB:             db,
		HTTPServer:     httpServer,
		TelegramClient: tgClient,
		Cache:          infra.Cache,
		KafkaProducer:  infra.KafkaProducer,
		JobScheduler:   scheduler,
	}, nil
}

// repositories содержит инициализированные репозитории
type repositories struct {
	Payment repository.IPaymentRepo
	User    repository.IUserRepo
	Promo   repository.IPromoRepo
}

func (a *App) initRepositories() *repositories {
	return &repositories{
		Payment: paymentRepo.New(a.Log),
		User:    userRepo.New(a.Log),
		Promo:   promoRepo.New(a.Log),
	}
}

// infrastructure опциональная инфраструктура: алертер, кэш, кафка, S3.
// Отсутствие любой из них не мешает приёму платежей
type infrastructure struct {
	Alerter       servicePorts.IAlerterService
	Cache         cache.Cache
	Producer      events.IBillingEventProducer
	KafkaProducer *kafkaAdapter.Producer
	S3            storagePorts.IS3Client
}

func (a *App) initInfra() *infrastructure {
	infra := &infrastructure{}

	if a.Cfg.Alerter != nil && a.Cfg.Alerter.BotToken != "" {
		alerterClient := alerterAdapter.NewClient(a.Cfg.Alerter, a.Log)
		infra.Alerter = alerterService.New(alerterClient)
	}

	if a.Cfg.Redis != nil && a.Cfg.Redis.Host != "" {
		redisClient, err := a.Cfg.Redis.NewConnection()
		if err != nil {
			a.Log.Warn("failed to init redis cache, continuing without cache", "error", err)
		} else {
			infra.Cache = redisAdapter.NewClient(redisClient)
			a.Log.Info("redis cache connected successfully")
		}
	}

	if a.Cfg.Kafka != nil && a.Cfg.Kafka.Brokers != "" {
		producer, err := kafkaAdapter.NewProducer(a.Cfg.Kafka, a.Log)
		if err != nil {
			a.Log.Warn("failed to init kafka producer, continuing without event stream", "error", err)
		} else {
			infra.Producer = producer
			infra.KafkaProducer = producer
			a.Log.Info("kafka producer connected successfully", "topic", a.Cfg.Kafka.Topic)
		}
	}

	if a.Cfg.S3 != nil && a.Cfg.S3.Host != "" {
		minioClient, err := a.Cfg.S3.NewClient()
		if err != nil {
			a.Log.Warn("failed to init s3 client, continuing without ledger export", "error", err)
		} else {
			infra.S3 = s3Adapter.NewClient(minioClient, a.Cfg.S3.Bucket, a.Log)
			a.Log.Info("s3 client connected successfully", "bucket", a.Cfg.S3.Bucket)
		}
	}

	return infra
}

// initProviders собирает внешние платёжные шлюзы: провайдер без учётки
// в конфиге выключен. Telegram Stars подключается отдельно, ему нужен бот
func (a *App) initProviders(tgClient *tgAdapter.Client) (
	providers map[domain.PaymentProvider]paymentPort.IProvider,
	pollers map[domain.PaymentProvider]paymentPort.IStatusPoller,
	rateSource checkout.IRateSource,
) {
	providers = make(map[domain.PaymentProvider]paymentPort.IProvider)
	pollers = make(map[domain.PaymentProvider]paymentPort.IStatusPoller)

	if a.Cfg.Platega != nil && a.Cfg.Platega.MerchantID != "" {
		provider := platega.NewProvider(*a.Cfg.Platega, a.Log)
		providers[domain.ProviderPlatega] = provider
		pollers[domain.ProviderPlatega] = provider
		rateSource = provider
		a.Log.Info("payment provider enabled", "provider", domain.ProviderPlatega)
	}

	if a.Cfg.YooKassa != nil && a.Cfg.YooKassa.ShopID != "" {
		provider := yookassa.NewProvider(*a.Cfg.YooKassa, a.Log)
		providers[domain.ProviderYooKassa] = provider
		pollers[domain.ProviderYooKassa] = provider
		a.Log.Info("payment provider enabled", "provider", domain.ProviderYooKassa)
	}

	if a.Cfg.CryptoPay != nil && a.Cfg.CryptoPay.APIToken != "" {
		provider := cryptopay.NewProvider(*a.Cfg.CryptoPay, a.Log)
		providers[domain.ProviderCryptoPay] = provider
		pollers[domain.ProviderCryptoPay] = provider
		a.Log.Info("payment provider enabled", "provider", domain.ProviderCryptoPay)
	}

	return providers, pollers, rateSource
}

// initHTTP инициализирует HTTP сервер и контроллеры
func (a *App) initHTTP(
	db *sqlx.DB,
	providers map[domain.PaymentProvider]paymentPort.IProvider,
	processor *billing.Processor,
	starsFlow *billing.StarsFlow,
	checkoutSvc *checkout.Service,
	rates *checkout.RateService,
) *http.Server {
	var ratesPort paymentsController.IRates
	if rates != nil {
		ratesPort = rates
	}

	controllers := []server.Controller{
		healthcheckController.New(db, a.Log),
		callbackController.New(providers, processor, a.Log),
		telegramController.New(starsFlow, a.Cfg.Telegram.WebhookSecret, a.Log),
		paymentsController.New(checkoutSvc, ratesPort, a.Log),
	}

	return server.NewHTTPServer(a.Cfg.Server, a.Log, controllers...)
}

// initJobScheduler инициализирует планировщик джоб
func (a *App) initJobScheduler(
	persistenceLayer *pg.DB,
	repos *repositories,
	pollers map[domain.PaymentProvider]paymentPort.IStatusPoller,
	processor *billing.Processor,
	notifier servicePorts.INotifier,
	infra *infrastructure,
) *jobScheduler.Scheduler {
	scheduler := jobScheduler.NewScheduler(a.Log, infra.Alerter)

	if len(pollers) > 0 {
		watcher := jobScheduler.NewPendingWatcher(persistenceLayer, repos.Payment, pollers, processor, a.Log)
		scheduler.Register(watcher)
		a.Log.Info("pending watcher job registered")
	}

	expirer := jobScheduler.NewSubscriptionExpirer(persistenceLayer, repos.User, notifier, a.Log)
	scheduler.Register(expirer)
	a.Log.Info("subscription expirer job registered")

	if infra.S3 != nil {
		export := jobScheduler.NewLedgerExport(persistenceLayer, repos.Payment, infra.S3, infra.Alerter, a.Log)
		scheduler.Register(export)
		a.Log.Info("ledger export job registered")
	}

	return scheduler
}

// setupWebhook регистрирует вебхук бота: на него приходят и платёжные
// обновления Telegram (pre_checkout_query, successful_payment)
func (a *App) setupWebhook(ctx context.Context, client *tgAdapter.Client) error {
	if a.Cfg.Telegram.WebhookURL == "" {
		return fmt.Errorf("webhook_url is required")
	}

	webhookURL := fmt.Sprintf("%s/webhook/", a.Cfg.Telegram.WebhookURL)

	if err := client.SetWebhook(ctx, webhookURL, a.Cfg.Telegram.WebhookSecret); err != nil {
		return fmt.Errorf("failed to set webhook: %w", err)
	}

	a.Log.Info("webhook set successfully", "webhook_url", webhookURL)
	return nil
}

// initPostgres инициализирует подключение к PostgreSQL и запускает миграции
func (a *App) initPostgres() (*sqlx.DB, error) {
	db, err := a.Cfg.Postgres.NewConnection()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	a.Log.Info("postgres connected successfully")

	if err := pg.RunMigrations(db, a.Log); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}
