package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"tuition-pricing-service/internal/entity"
)

const activeTaxKey = "tax_configurations:active"

type TaxConfigurationProvider interface {
	GetActiveConfigurations(ctx context.Context, at time.Time) ([]entity.TaxConfiguration, error)
}

// TaxCache caches the active tax configuration set for a short TTL. Entries are dropped
// early by Invalidate when administration reports a change.
type TaxCache struct {
	provider TaxConfigurationProvider
	rdb      Client
	ttl      time.Duration
}

func NewTaxCache(provider TaxConfigurationProvider, rdb Client, ttl time.Duration) *TaxCache {
	return &TaxCache{provider: provider, rdb: rdb, ttl: ttl}
}

// GetActiveConfigurations serves the cached set when present. The set may hold configurations
// that are not yet or no longer effective at `at`; callers filter with EffectiveAt.
func (c *TaxCache) GetActiveConfigurations(ctx context.Context, at time.Time) ([]entity.TaxConfiguration, error) {
	cached, err := c.rdb.Get(ctx, activeTaxKey).Bytes()
	switch {
	case err == nil:
		var configs []entity.TaxConfiguration
		uErr := json.Unmarshal(cached, &configs)
		if uErr == nil {
			return configs, nil
		}
		logger.Error().Err(uErr).Msg("Error unmarshalling cached tax configurations")
	case errors.Is(err, redis.Nil):
		logger.Debug().Msg("Tax configurations not found in cache")
	default:
		logger.Error().Err(err).Msg("Error getting tax configurations from cache")
	}

	configs, err := c.provider.GetActiveConfigurations(ctx, at)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(configs)
	if err != nil {
		logger.Error().Err(err).Msg("Error marshalling tax configurations")
		return configs, nil
	}
	if err := c.rdb.Set(ctx, activeTaxKey, data, c.ttl).Err(); err != nil {
		logger.Error().Err(err).Msg("Error setting tax configurations in cache")
	}
	return configs, nil
}

// Invalidate drops the cached set so the next read goes to the provider.
func (c *TaxCache) Invalidate(ctx context.Context) error {
	if err := c.rdb.Del(ctx, activeTaxKey).Err(); err != nil {
		return errors.Wrap(err, "deleting cached tax configurations")
	}
	return nil
}
