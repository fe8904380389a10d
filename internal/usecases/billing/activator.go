package billing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/onlyold1/rtg-shop/internal/domain"
	"github.com/onlyold1/rtg-shop/internal/ports/persistence"
	repoPorts "github.com/onlyold1/rtg-shop/internal/ports/repository"
)

// BonusConfig бонусные дни, начисляемые при активации
type BonusConfig struct {
	ReferralRefereeBonusDays int `envconfig:"REFERRAL_REFEREE_BONUS_DAYS" default:"3"`
	ReferralInviterBonusDays int `envconfig:"REFERRAL_INVITER_BONUS_DAYS" default:"7"`
}

// Activator выдаёт подписку по подтверждённому платежу.
// Идемпотентен: повторная активация того же платежа не продлевает подписку
type Activator struct {
	paymentRepo repoPorts.IPaymentRepo
	userRepo    repoPorts.IUserRepo
	promoRepo   repoPorts.IPromoRepo
	bonuses     BonusConfig
	log         *slog.Logger
	now         func() time.Time
}

func NewActivator(
	paymentRepo repoPorts.IPaymentRepo,
	userRepo repoPorts.IUserRepo,
	promoRepo repoPorts.IPromoRepo,
	bonuses BonusConfig,
	log *slog.Logger,
) *Activator {
	return &Activator{
		paymentRepo: paymentRepo,
		userRepo:    userRepo,
		promoRepo:   promoRepo,
		bonuses:     bonuses,
		log:         log,
		now:         time.Now,
	}
}

// Activate продлевает подписку пользователя на оплаченный период и бонусы.
// Вызывается внутри транзакции процессора: любая ошибка откатывает
// и смену статуса платежа
func (a *Activator) Activate(ctx context.Context, tx persistence.Transaction, payment *domain.Payment) (*domain.ActivationResult, error) {
	now := a.now()

	applied, err := a.paymentRepo.MarkActivated(ctx, tx, payment.ID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to mark payment activated: %w", err)
	}

	user, err := a.userRepo.GetByID(ctx, tx, payment.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user for activation: %w", err)
	}

	if !applied {
		// Платёж уже активирован раньше: подписку не трогаем
		a.log.Info("payment already activated, skipping",
			"payment_id", payment.ID,
			"user_id", payment.UserID,
		)
		endDate := now
		if user.SubscriptionEndDate != nil {
			endDate = *user.SubscriptionEndDate
		}
		return &domain.ActivationResult{
			PaymentID:      payment.ID,
			UserID:         user.ID,
			EndDate:        endDate,
			AlreadyApplied: true,
		}, nil
	}

	endDate := domain.ExtendSubscription(user.SubscriptionEndDate, payment.Months, now)

	promoBonusDays := 0
	if payment.PromoCodeID != nil {
		promo, err := a.promoRepo.GetByID(ctx, tx, *payment.PromoCodeID)
		if err != nil {
			return nil, fmt.Errorf("failed to get promo code: %w", err)
		}
		promoBonusDays = promo.BonusDays
		endDate = endDate.AddDate(0, 0, promoBonusDays)
	}

	referralBonusDays, err := a.applyReferralBonuses(ctx, tx, user, payment, now, &endDate)
	if err != nil {
		return nil, err
	}

	if err := a.userRepo.UpdateSubscriptionEndDate(ctx, tx, user.ID, endDate); err != nil {
		return nil, fmt.Errorf("failed to extend subscription: %w", err)
	}

	a.log.Info("subscription activated",
		"payment_id", payment.ID,
		"user_id", user.ID,
		"months", payment.Months,
		"promo_bonus_days", promoBonusDays,
		"referral_bonus_days", referralBonusDays,
		"end_date", endDate,
	)

	return &domain.ActivationResult{
		PaymentID:         payment.ID,
		UserID:            user.ID,
		EndDate:           endDate,
		PromoBonusDays:    promoBonusDays,
		ReferralBonusDays: referralBonusDays,
	}, nil
}

// applyReferralBonuses начисляет бонусы за первую оплату приглашённого:
// дни рефералу добавляются к endDate, пригласившему - сразу в его подписку
func (a *Activator) applyReferralBonuses(
	ctx context.Context,
	tx persistence.Transaction,
	user *domain.User,
	payment *domain.Payment,
	now time.Time,
	endDate *time.Time,
) (int, error) {
	if user.ReferredByID == nil {
		return 0, nil
	}

	hasPaid, err := a.userRepo.HasSucceededPayments(ctx, tx, user.ID, payment.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to check first payment: %w", err)
	}
	if hasPaid {
		return 0, nil
	}

	refereeDays := a.bonuses.ReferralRefereeBonusDays
	if refereeDays > 0 {
		*endDate = endDate.AddDate(0, 0, refereeDays)
	}

	inviterDays := a.bonuses.ReferralInviterBonusDays
	if inviterDays > 0 {
		inviter, err := a.userRepo.GetByID(ctx, tx, *user.ReferredByID)
		if err != nil {
			return 0, fmt.Errorf("failed to get inviter: %w", err)
		}

		inviterEnd := domain.AddBonusDays(inviter.SubscriptionEndDate, inviterDays, now)
		if err := a.userRepo.UpdateSubscriptionEndDate(ctx, tx, inviter.ID, inviterEnd); err != nil {
			return 0, fmt.Errorf("failed to extend inviter subscription: %w", err)
		}

		a.log.Info("referral bonus granted to inviter",
			"inviter_id", inviter.ID,
			"referee_id", user.ID,
			"bonus_days", inviterDays,
		)
	}

	return refereeDays, nil
}
