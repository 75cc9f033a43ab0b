package domain

import "context"

// PlatformClient fetches raw review payloads from an external review platform.
type PlatformClient interface {
	GetReviews(ctx context.Context, platform Platform, externalID string, count int) ([]map[string]any, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}
