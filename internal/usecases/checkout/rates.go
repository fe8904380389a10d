package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	cachePort "github.com/onlyold1/rtg-shop/internal/ports/cache"
)

const rateCacheTTL = 5 * time.Minute

// IRateSource источник курса (агрегатор)
type IRateSource interface {
	GetRate(ctx context.Context, currency string) (decimal.Decimal, error)
}

// RateService курс для подсказки суммы в крипте, с кэшем в Redis
type RateService struct {
	source IRateSource
	cache  cachePort.Cache
	log    *slog.Logger
}

func NewRateService(source IRateSource, cache cachePort.Cache, log *slog.Logger) *RateService {
	return &RateService{
		source: source,
		cache:  cache,
		log:    log,
	}
}

// GetRate возвращает курс валюты, сперва заглядывая в кэш
func (s *RateService) GetRate(ctx context.Context, currency string) (decimal.Decimal, error) {
	key := "rate:" + currency

	if cached, err := s.cache.Get(ctx, key); err == nil {
		rate, parseErr := decimal.NewFromString(cached)
		if parseErr == nil {
			return rate, nil
		}
		s.log.Warn("invalid cached rate, refetching", "currency", currency, "value", cached)
	}

	rate, err := s.source.GetRate(ctx, currency)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get rate: %w", err)
	}

	if err := s.cache.Set(ctx, key, rate.String(), rateCacheTTL); err != nil {
		s.log.Warn("failed to cache rate", "error", err, "currency", currency)
	}

	return rate, nil
}
