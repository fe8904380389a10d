package paymentRepo

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

type paymentColumns struct {
	TableName    string
	ID           string
	UserID       string
	Amount       string
	Currency     string
	Months       string
	Description  string
	Provider     string
	ProviderTxID string
	Status       string
	PromoCodeID  string
	ActivatedAt  string
	CreatedAt    string
	UpdatedAt    string
}

type Repository struct {
	Log     *slog.Logger
	columns paymentColumns
}

// New создаёт новый репозиторий для работы с журналом платежей
func New(log *slog.Logger) ports.IPaymentRepo {
	cols := paymentColumns{
		TableName:    "payments",
		ID:           "id",
		UserID:       "user_id",
		Amount:       "amount",
		Currency:     "currency",
		Months:       "months",
		Description:  "description",
		Provider:     "provider",
		ProviderTxID: "provider_tx_id",
		Status:       "status",
		PromoCodeID:  "promo_code_id",
		ActivatedAt:  "activated_at",
		CreatedAt:    "created_at",
		UpdatedAt:    "updated_at",
	}
	return &Repository{
		Log:     log,
		columns: cols,
	}
}

// allColumns возвращает строку со всеми колонками (13 колонок)
func (r *Repository) allColumns() string {
	return fmt.Sprintf("%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s",
		r.columns.ID,
		r.columns.UserID,
		r.columns.Amount,
		r.columns.Currency,
		r.columns.Months,
		r.columns.Description,
		r.columns.Provider,
		r.columns.ProviderTxID,
		r.columns.Status,
		r.columns.PromoCodeID,
		r.columns.ActivatedAt,
		r.columns.CreatedAt,
		r.columns.UpdatedAt,
	)
}

// Create создаёт новую запись о платеже и возвращает её id
func (r *Repository) Create(ctx context.Context, db persistence.Persistence, payment *domain.Payment) (int64, error) {
	query := fmt.Sprintf(`INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING %s`,
		r.columns.TableName,
		r.columns.UserID,
		r.columns.Amount,
		r.columns.Currency,
		r.columns.Months,
		r.columns.Description,
		r.columns.Provider,
		r.columns.Status,
		r.columns.PromoCodeID,
		r.columns.ID,
	)

	var id int64
	err := db.QueryRow(ctx, query,
		payment.UserID,
		payment.Amount,
		payment.Currency,
		payment.Months,
		payment.Description,
		string(payment.Provider),
		string(payment.Status),
		payment.PromoCodeID,
	).Scan(&id)
	if err != nil {
		r.Log.Error("failed to create payment",
			"error", err,
			"user_id", payment.UserID,
			"provider", payment.Provider,
		)
		return 0, fmt.Errorf("failed to create payment: %w", err)
	}

	payment.ID = id
	return id, nil
}

// GetByID возвращает платёж по внутреннему id
func (r *Repository) GetByID(ctx context.Context, db persistence.Persistence, id int64) (*domain.Payment, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		r.allColumns(),
		r.columns.TableName,
		r.columns.ID,
	)

	var payment domain.Payment
	err := db.Get(ctx, &payment, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPaymentNotFound
		}
		r.Log.Error("failed to get payment by id", "error", err, "payment_id", id)
		return nil, fmt.Errorf("failed to get payment by id: %w", err)
	}

	return &payment, nil
}

// GetByProviderTxID возвращает платёж по id транзакции провайдера
func (r *Repository) GetByProviderTxID(ctx context.Context, db persistence.Persistence, provider domain.PaymentProvider, txID string) (*domain.Payment, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 AND %s = $2`,
		r.allColumns(),
		r.columns.TableName,
		r.columns.Provider,
		r.columns.ProviderTxID,
	)

	var payment domain.Payment
	err := db.Get(ctx, &payment, query, string(provider), txID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPaymentNotFound
		}
		r.Log.Error("failed to get payment by provider tx id",
			"error", err,
			"provider", provider,
			"provider_tx_id", txID,
		)
		return nil, fmt.Errorf("failed to get payment by provider tx id: %w", err)
	}

	return &payment, nil
}

// LinkProviderTx привязывает id транзакции провайдера (write-once)
func (r *Repository) LinkProviderTx(ctx context.Context, db persistence.Persistence, id int64, txID string) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = $1, %s = NOW()
		WHERE %s = $2 AND (%s IS NULL OR %s = $1)`,
		r.columns.TableName,
		r.columns.ProviderTxID,
		r.columns.UpdatedAt,
		r.columns.ID,
		r.columns.ProviderTxID,
		r.columns.ProviderTxID,
	)

	affected, err := db.ExecWithResult(ctx, query, txID, id)
	if err != nil {
		r.Log.Error("failed to link provider tx", "error", err, "payment_id", id, "provider_tx_id", txID)
		return fmt.Errorf("failed to link provider tx: %w", err)
	}
	if affected == 0 {
		// Либо платежа нет, либо поле уже занято другим id
		if _, getErr := r.GetByID(ctx, db, id); getErr != nil {
			return getErr
		}
		return domain.ErrProviderIDAlreadySet
	}

	return nil
}

// UpdateStatus обновляет статус платежа
func (r *Repository) UpdateStatus(ctx context.Context, db persistence.Persistence, id int64, status domain.PaymentStatus) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = $1, %s = NOW() WHERE %s = $2`,
		r.columns.TableName,
		r.columns.Status,
		r.columns.UpdatedAt,
		r.columns.ID,
	)

	affected, err := db.ExecWithResult(ctx, query, string(status), id)
	if err != nil {
		r.Log.Error("failed to update payment status", "error", err, "payment_id", id, "status", status)
		return fmt.Errorf("failed to update payment status: %w", err)
	}
	if affected == 0 {
		return domain.ErrPaymentNotFound
	}

	return nil
}

// MarkActivated проставляет activated_at, если он ещё не проставлен.
// Возвращает false, если платёж уже был активирован
func (r *Repository) MarkActivated(ctx context.Context, db persistence.Persistence, id int64, at time.Time) (bool, error) {
	query := fmt.Sprintf(`UPDATE %s SET %s = $1, %s = NOW()
		WHERE %s = $2 AND %s IS NULL`,
		r.columns.TableName,
		r.columns.ActivatedAt,
		r.columns.UpdatedAt,
		r.columns.ID,
		r.columns.ActivatedAt,
	)

	affected, err := db.ExecWithResult(ctx, query, at, id)
	if err != nil {
		r.Log.Error("failed to mark payment activated", "error", err, "payment_id", id)
		return false, fmt.Errorf("failed to mark payment activated: %w", err)
	}

	return affected > 0, nil
}

// ListStalePending возвращает pending-платежи старше olderThan с привязанной транзакцией
func (r *Repository) ListStalePending(ctx context.Context, db persistence.Persistence, olderThan time.Time, limit int) ([]domain.Payment, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s
		WHERE %s = $1 AND %s < $2 AND %s IS NOT NULL
		ORDER BY %s
		LIMIT $3`,
		r.allColumns(),
		r.columns.TableName,
		r.columns.Status,
		r.columns.CreatedAt,
		r.columns.ProviderTxID,
		r.columns.CreatedAt,
	)

	var payments []domain.Payment
	err := db.Select(ctx, &payments, query, string(domain.PaymentStatusPending), olderThan, limit)
	if err != nil {
		r.Log.Error("failed to list stale pending payments", "error", err)
		return nil, fmt.Errorf("failed to list stale pending payments: %w", err)
	}

	return payments, nil
}

// ListCreatedBetween возвращает все попытки оплаты за период
func (r *Repository) ListCreatedBetween(ctx context.Context, db persistence.Persistence, from, to time.Time) ([]domain.Payment, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s
		WHERE %s >= $1 AND %s < $2
		ORDER BY %s`,
		r.allColumns(),
		r.columns.TableName,
		r.columns.CreatedAt,
		r.columns.CreatedAt,
		r.columns.ID,
	)

	var payments []domain.Payment
	err := db.Select(ctx, &payments, query, from, to)
	if err != nil {
		r.Log.Error("failed to list payments by period", "error", err)
		return nil, fmt.Errorf("failed to list payments by period: %w", err)
	}

	return payments, nil
}
