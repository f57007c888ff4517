package cache

import (
	"context"
	"time"

	"wrsmile/backend/internal/domain"
)

// CatalogCache holds the full product catalog between repository reads. The
// catalog is small, so it is cached whole and dropped on any product write.
type CatalogCache interface {
	Get(ctx context.Context) ([]domain.Product, bool, error)
	Set(ctx context.Context, products []domain.Product, ttl time.Duration) error
	Drop(ctx context.Context) error
}

type NoopCatalogCache struct{}

func (NoopCatalogCache) Get(_ context.Context) ([]domain.Product, bool, error) {
	return nil, false, nil
}

func (NoopCatalogCache) Set(_ context.Context, _ []domain.Product, _ time.Duration) error {
	return nil
}

func (NoopCatalogCache) Drop(_ context.Context) error {
	return nil
}
