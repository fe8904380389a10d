package promoRepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/onlyold1/rtg-shop/internal/domain"
	"github.com/onlyold1/rtg-shop/internal/ports/persistence"
	ports "github.com/onlyold1/rtg-shop/internal/ports/repository"
)

type Repository struct {
	Log *slog.Logger
}

// New создаёт новый репозиторий для работы с промокодами
func New(log *slog.Logger) ports.IPromoRepo {
	return &Repository{Log: log}
}

// GetByID возвращает промокод по id
func (r *Repository) GetByID(ctx context.Context, db persistence.Persistence, id int64) (*domain.PromoCode, error) {
	query := `SELECT id, code, bonus_days, is_active, created_at FROM promo_codes WHERE id = $1`

	var promo domain.PromoCode
	err := db.Get(ctx, &promo, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPromoCodeNotFound
		}
		r.Log.Error("failed to get promo code by id", "error", err, "promo_code_id", id)
		return nil, fmt.Errorf("failed to get promo code by id: %w", err)
	}

	return &promo, nil
}

// GetActiveByCode возвращает активный промокод по его коду
func (r *Repository) GetActiveByCode(ctx context.Context, db persistence.Persistence, code string) (*domain.PromoCode, error) {
	query := `SELECT id, code, bonus_days, is_active, created_at FROM promo_codes WHERE code = $1 AND is_active = TRUE`

	var promo domain.PromoCode
	err := db.Get(ctx, &promo, query, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPromoCodeNotFound
		}
		r.Log.Error("failed to get promo code by code", "error", err, "code", code)
		return nil, fmt.Errorf("failed to get promo code by code: %w", err)
	}

	return &promo, nil
}
