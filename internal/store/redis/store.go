package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/MrSnakeDoc/jumpgate/internal/domain"
	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when the requested document does not exist.
var ErrNotFound = domain.ErrNotFound

// Store reads (and, for seeding and the gateway record, writes) the
// configuration documents kept in Redis. Values are JSON documents.
type Store struct {
	client *redis.Client
}

// NewStore creates a new Redis store
func NewStore(client *redis.Client) *Store {
	return &Store{
		client: client,
	}
}

// Ping checks that Redis answers.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// getJSON loads the document stored at key into a new T.
func getJSON[T any](ctx context.Context, client *redis.Client, kind, key string) (*T, error) {
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%s %w", kind, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get %s: %w", kind, err)
	}
	return decode[T](kind, data)
}

func decode[T any](kind string, data []byte) (*T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", kind, err)
	}
	return &v, nil
}

// setJSON stores v at key without expiration.
func setJSON(ctx context.Context, client redis.Cmdable, kind, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", kind, err)
	}
	if err := client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save %s: %w", kind, err)
	}
	return nil
}

// setNXJSON stores v at key unless the key already exists.
func setNXJSON(ctx context.Context, client redis.Cmdable, kind, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", kind, err)
	}
	if err := client.SetNX(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save %s: %w", kind, err)
	}
	return nil
}
