package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/onlyold1/rtg-shop/internal/domain"
	paymentPort "github.com/onlyold1/rtg-shop/internal/ports/payment"
	"github.com/onlyold1/rtg-shop/internal/ports/persistence"
	repoPorts "github.com/onlyold1/rtg-shop/internal/ports/repository"
)

// CreatePaymentRequest запрос на выставление счёта
type CreatePaymentRequest struct {
	UserID      int64
	Provider    domain.PaymentProvider
	Amount      decimal.Decimal
	Currency    string
	Months      int
	Description string
	PromoCode   string // опциональный промокод
	ReturnURL   string
}

// CreatePaymentResult результат выставления счёта
type CreatePaymentResult struct {
	Payment    *domain.Payment
	PaymentURL string // пустая для Telegram Stars: инвойс уходит в чат
}

// Service выставление счетов: pending-запись в журнале создаётся ДО похода
// к провайдеру, чтобы ни одна попытка не потерялась
type Service struct {
	db          persistence.Persistence
	paymentRepo repoPorts.IPaymentRepo
	userRepo    repoPorts.IUserRepo
	promoRepo   repoPorts.IPromoRepo
	providers   map[domain.PaymentProvider]paymentPort.IProvider
	log         *slog.Logger
}

func NewService(
	db persistence.Persistence,
	paymentRepo repoPorts.IPaymentRepo,
	userRepo repoPorts.IUserRepo,
	promoRepo repoPorts.IPromoRepo,
	providers map[domain.PaymentProvider]paymentPort.IProvider,
	log *slog.Logger,
) *Service {
	return &Service{
		db:          db,
		paymentRepo: paymentRepo,
		userRepo:    userRepo,
		promoRepo:   promoRepo,
		providers:   providers,
		log:         log,
	}
}

// CreatePayment создаёт pending-запись и инвойс у провайдера.
// При отказе провайдера запись остаётся в журнале со статусом failed_creation
func (s *Service) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*CreatePaymentResult, error) {
	provider, ok := s.providers[req.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown payment provider: %s", req.Provider)
	}

	user, err := s.userRepo.GetByID(ctx, s.db, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	payment := &domain.Payment{
		UserID:      user.ID,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Months:      req.Months,
		Description: req.Description,
		Provider:    req.Provider,
		Status:      domain.PaymentStatusPending,
	}

	if req.PromoCode != "" {
		promo, err := s.promoRepo.GetActiveByCode(ctx, s.db, req.PromoCode)
		if err != nil {
			// Недействительный промокод не блокирует оплату
			s.log.Warn("promo code not applied", "error", err, "code", req.PromoCode, "user_id", user.ID)
		} else {
			payment.PromoCodeID = &promo.ID
		}
	}

	paymentID, err := s.paymentRepo.Create(ctx, s.db, payment)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment record: %w", err)
	}

	invoice, err := provider.CreateInvoice(ctx, paymentPort.CreateInvoiceRequest{
		PaymentID:   paymentID,
		ChatID:      user.ChatID,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Description: req.Description,
		ReturnURL:   req.ReturnURL,
	})
	if err != nil {
		s.failCreation(ctx, paymentID)
		s.log.Error("failed to create invoice",
			"error", err,
			"payment_id", paymentID,
			"provider", req.Provider,
		)
		return nil, domain.WrapBusinessError(fmt.Errorf("failed to create invoice: %w", err))
	}

	// Внешние шлюзы обязаны вернуть id транзакции; Stars привязывает его
	// позже из successful_payment
	if invoice.TransactionID == "" && req.Provider != domain.ProviderTelegramStars {
		s.failCreation(ctx, paymentID)
		return nil, domain.WrapBusinessError(fmt.Errorf("provider %s returned no transaction id", req.Provider))
	}

	if invoice.TransactionID != "" {
		if err := s.paymentRepo.LinkProviderTx(ctx, s.db, paymentID, invoice.TransactionID); err != nil {
			s.failCreation(ctx, paymentID)
			return nil, fmt.Errorf("failed to link provider tx: %w", err)
		}
	}

	s.log.Info("payment created",
		"payment_id", paymentID,
		"user_id", user.ID,
		"provider", req.Provider,
		"amount", req.Amount,
		"currency", req.Currency,
	)

	payment.ID = paymentID
	return &CreatePaymentResult{
		Payment:    payment,
		PaymentURL: invoice.PaymentURL,
	}, nil
}

// EnsureUserRequest регистрация покупателя при первом обращении
type EnsureUserRequest struct {
	TelegramID   int64
	ChatID       int64
	Username     *string
	FirstName    *string
	LanguageCode *string
	// Telegram id пригласившего (из реферальной ссылки)
	ReferrerTelegramID *int64
}

// EnsureUser возвращает пользователя, создавая запись при первом обращении.
// Повторный вызов с тем же telegram_id возвращает существующую запись
func (s *Service) EnsureUser(ctx context.Context, req EnsureUserRequest) (*domain.User, error) {
	user, err := s.userRepo.GetByTelegramID(ctx, s.db, req.TelegramID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	newUser := &domain.User{
		TelegramID:   req.TelegramID,
		ChatID:       req.ChatID,
		Username:     req.Username,
		FirstName:    req.FirstName,
		LanguageCode: req.LanguageCode,
	}

	if req.ReferrerTelegramID != nil && *req.ReferrerTelegramID != req.TelegramID {
		referrer, err := s.userRepo.GetByTelegramID(ctx, s.db, *req.ReferrerTelegramID)
		if err != nil {
			// Битая реферальная ссылка не блокирует регистрацию
			s.log.Warn("referrer not found", "referrer_telegram_id", *req.ReferrerTelegramID)
		} else {
			newUser.ReferredByID = &referrer.ID
		}
	}

	id, err := s.userRepo.Create(ctx, s.db, newUser)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	newUser.ID = id

	s.log.Info("user registered", "user_id", id, "telegram_id", req.TelegramID)
	return newUser, nil
}

// failCreation помечает запись как failed_creation; запись остаётся для аудита
func (s *Service) failCreation(ctx context.Context, paymentID int64) {
	if err := s.paymentRepo.UpdateStatus(ctx, s.db, paymentID, domain.PaymentStatusFailedCreation); err != nil {
		s.log.Error("failed to mark payment as failed_creation", "error", err, "payment_id", paymentID)
	}
}
