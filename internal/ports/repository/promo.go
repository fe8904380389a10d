package repository

import (
	"context"

	"github.com/onlyold1/rtg-shop/internal/domain"
	"github.com/onlyold1/rtg-shop/internal/ports/persistence"
)

// IPromoRepo интерфейс для работы с промокодами
type IPromoRepo interface {
	GetByID(ctx context.Context, db persistence.Persistence, id int64) (*domain.PromoCode, error)
	GetActiveByCode(ctx context.Context, db persistence.Persistence, code string) (*domain.PromoCode, error)
}
