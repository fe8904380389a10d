package userRepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/onlyold1/rtg-shop/internal/domain"
	"github.com/onlyold1/rtg-shop/internal/ports/persistence"
	ports "github.com/onlyold1/rtg-shop/internal/ports/repository"
)

type userColumns struct {
	TableName           string
	ID                  string
	TelegramID          string
	ChatID              string
	Username            string
	FirstName           string
	LanguageCode        string
	ReferredByID        string
	SubscriptionEndDate string
	CreatedAt           string
}

type Repository struct {
	Log     *slog.Logger
	columns userColumns
}

// New создаёт новый репозиторий для работы с пользователями
func New(log *slog.Logger) ports.IUserRepo {
	cols := userColumns{
		TableName:           "users",
		ID:                  "id",
		TelegramID:          "telegram_id",
		ChatID:              "chat_id",
		Username:            "username",
		FirstName:           "first_name",
		LanguageCode:        "language_code",
		ReferredByID:        "referred_by_id",
		SubscriptionEndDate: "subscription_end_date",
		CreatedAt:           "created_at",
	}
	return &Repository{
		Log:     log,
		columns: cols,
	}
}

// allColumns возвращает строку со всеми колонками (9 колонок)
func (r *Repository) allColumns() string {
	return fmt.Sprintf("%s, %s, %s, %s, %s, %s, %s, %s, %s",
		r.columns.ID,
		r.columns.TelegramID,
		r.columns.ChatID,
		r.columns.Username,
		r.columns.FirstName,
		r.columns.LanguageCode,
		r.columns.ReferredByID,
		r.columns.SubscriptionEndDate,
		r.columns.CreatedAt,
	)
}

// Create создаёт нового пользователя и возвращает его id
func (r *Repository) Create(ctx context.Context, db persistence.Persistence, user *domain.User) (int64, error) {
	query := fmt.Sprintf(`INSERT INTO %s (%s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING %s`,
		r.columns.TableName,
		r.columns.TelegramID,
		r.columns.ChatID,
		r.columns.Username,
		r.columns.FirstName,
		r.columns.LanguageCode,
		r.columns.ReferredByID,
		r.columns.ID,
	)

	var id int64
	err := db.QueryRow(ctx, query,
		user.TelegramID,
		user.ChatID,
		user.Username,
		user.FirstName,
		user.LanguageCode,
		user.ReferredByID,
	).Scan(&id)
	if err != nil {
		r.Log.Error("failed to create user", "error", err, "telegram_id", user.TelegramID)
		return 0, fmt.Errorf("failed to create user: %w", err)
	}

	user.ID = id
	return id, nil
}

// GetByID возвращает пользователя по внутреннему id
func (r *Repository) GetByID(ctx context.Context, db persistence.Persistence, id int64) (*domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		r.allColumns(),
		r.columns.TableName,
		r.columns.ID,
	)

	var user domain.User
	err := db.Get(ctx, &user, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		r.Log.Error("failed to get user by id", "error", err, "user_id", id)
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return &user, nil
}

// GetByTelegramID возвращает пользователя по telegram id
func (r *Repository) GetByTelegramID(ctx context.Context, db persistence.Persistence, telegramID int64) (*domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		r.allColumns(),
		r.columns.TableName,
		r.columns.TelegramID,
	)

	var user domain.User
	err := db.Get(ctx, &user, query, telegramID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		r.Log.Error("failed to get user by telegram id", "error", err, "telegram_id", telegramID)
		return nil, fmt.Errorf("failed to get user by telegram id: %w", err)
	}

	return &user, nil
}

// UpdateSubscriptionEndDate обновляет дату окончания подписки
func (r *Repository) UpdateSubscriptionEndDate(ctx context.Context, db persistence.Persistence, id int64, endDate time.Time) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = $1 WHERE %s = $2`,
		r.columns.TableName,
		r.columns.SubscriptionEndDate,
		r.columns.ID,
	)

	affected, err := db.ExecWithResult(ctx, query, endDate, id)
	if err != nil {
		r.Log.Error("failed to update subscription end date", "error", err, "user_id", id)
		return fmt.Errorf("failed to update subscription end date: %w", err)
	}
	if affected == 0 {
		return domain.ErrUserNotFound
	}

	return nil
}

// HasSucceededPayments был ли у пользователя успешный платёж, кроме excludePaymentID
func (r *Repository) HasSucceededPayments(ctx context.Context, db persistence.Persistence, userID int64, excludePaymentID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM payments WHERE user_id = $1 AND status = $2 AND id <> $3)`

	var exists bool
	err := db.Get(ctx, &exists, query, userID, string(domain.PaymentStatusSucceeded), excludePaymentID)
	if err != nil {
		r.Log.Error("failed to check succeeded payments", "error", err, "user_id", userID)
		return false, fmt.Errorf("failed to check succeeded payments: %w", err)
	}

	return exists, nil
}

// RevokeExpiredSubscriptions снимает подписку у всех, чей срок истёк.
// Возвращает id затронутых пользователей для последующего уведомления
func (r *Repository) RevokeExpiredSubscriptions(ctx context.Context, db persistence.Persistence, now time.Time) ([]int64, error) {
	query := fmt.Sprintf(`UPDATE %s SET %s = NULL
		WHERE %s IS NOT NULL AND %s <= $1
		RETURNING %s`,
		r.columns.TableName,
		r.columns.SubscriptionEndDate,
		r.columns.SubscriptionEndDate,
		r.columns.SubscriptionEndDate,
		r.columns.ID,
	)

	var ids []int64
	err := db.Select(ctx, &ids, query, now)
	if err != nil {
		r.Log.Error("failed to revoke expired subscriptions", "error", err)
		return nil, fmt.Errorf("failed to revoke expired subscriptions: %w", err)
	}

	return ids, nil
}
