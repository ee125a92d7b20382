// Package businessflow contains the core business logic and use cases for the mailing platform
package businessflow

import (
	"context"
	"fmt"

	"github.com/amirphl/Yatagarasu/config"
	"github.com/amirphl/Yatagarasu/models"
	"github.com/amirphl/Yatagarasu/repository"
)

// getCustomer fetches a customer by ID and normalizes the not-found case into
// a business error so flows never branch on nil models.
func getCustomer(ctx context.Context, repo repository.CustomerRepository, customerID uint) (*models.Customer, error) {
	customer, err := repo.ByID(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	if customer == nil {
		return nil, ErrCustomerNotFound
	}
	return customer, nil
}

// redisKey namespaces a cache key with the configured prefix
func redisKey(cfg config.CacheConfig, key string) string {
	return cfg.RedisPrefix + key
}
