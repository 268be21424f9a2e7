package redis

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/iho/goposition/internal/domain"
	"github.com/iho/goposition/internal/usecase"
)

const (
	participantCurrenciesKey = "reference:participant_currencies"
	settlementModelsKey      = "reference:settlement_models"
)

// CachedReferenceRepository serves the participant directory and settlement
// models from Redis and falls back to the wrapped repository on a miss or a
// Redis failure. Net debit caps are always read from the wrapped repository.
type CachedReferenceRepository struct {
	next   usecase.ReferenceDataRepository
	cache  *Cache
	ttl    time.Duration
	logger zerolog.Logger
}

var (
	_ usecase.ReferenceDataRepository = (*CachedReferenceRepository)(nil)
	_ usecase.ReferenceInvalidator    = (*CachedReferenceRepository)(nil)
)

// NewCachedReferenceRepository creates a new CachedReferenceRepository.
func NewCachedReferenceRepository(next usecase.ReferenceDataRepository, cache *Cache, ttl time.Duration, logger zerolog.Logger) *CachedReferenceRepository {
	return &CachedReferenceRepository{next: next, cache: cache, ttl: ttl, logger: logger}
}

// ListParticipantCurrencies implements usecase.ReferenceDataRepository.
func (r *CachedReferenceRepository) ListParticipantCurrencies(ctx context.Context) ([]domain.ParticipantCurrency, error) {
	return cached(ctx, r, participantCurrenciesKey, r.next.ListParticipantCurrencies)
}

// ListSettlementModels implements usecase.ReferenceDataRepository.
func (r *CachedReferenceRepository) ListSettlementModels(ctx context.Context) ([]domain.SettlementModel, error) {
	return cached(ctx, r, settlementModelsKey, r.next.ListSettlementModels)
}

// GetNetDebitCap implements usecase.ReferenceDataRepository.
func (r *CachedReferenceRepository) GetNetDebitCap(ctx context.Context, tx usecase.Transaction, participantCurrencyID int64) (*domain.ParticipantLimit, error) {
	return r.next.GetNetDebitCap(ctx, tx, participantCurrencyID)
}

// Invalidate drops the cached directory and settlement models.
func (r *CachedReferenceRepository) Invalidate(ctx context.Context) error {
	return r.cache.Delete(ctx, participantCurrenciesKey, settlementModelsKey)
}

func cached[T any](ctx context.Context, r *CachedReferenceRepository, key string, load func(context.Context) ([]T, error)) ([]T, error) {
	raw, err := r.cache.Get(ctx, key)
	switch {
	case err == nil:
		var out []T
		if err := json.Unmarshal(raw, &out); err == nil {
			return out, nil
		}
		r.logger.Warn().Str("key", key).Msg("discarding undecodable reference cache entry")
	case !errors.Is(err, ErrCacheMiss):
		r.logger.Warn().Err(err).Str("key", key).Msg("reference cache unavailable, reading database")
	}

	out, err := load(ctx)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(out); err == nil {
		if err := r.cache.Set(ctx, key, encoded, r.ttl); err != nil {
			r.logger.Warn().Err(err).Str("key", key).Msg("failed to fill reference cache")
		}
	}

	return out, nil
}
