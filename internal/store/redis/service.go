package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrSnakeDoc/jumpgate/internal/domain"
)

// SaveService stores a service in Redis
func (s *Store) SaveService(ctx context.Context, service *domain.Service) error {
	if err := setJSON(ctx, s.client, "service", ServiceKey(service.Key), service); err != nil {
		return err
	}

	// Add to set of all services
	if err := s.client.SAdd(ctx, AllServicesKey(), service.Key).Err(); err != nil {
		return fmt.Errorf("failed to add service to set: %w", err)
	}

	return nil
}

// GetService retrieves a service from Redis by its slug
func (s *Store) GetService(ctx context.Context, key string) (*domain.Service, error) {
	return getJSON[domain.Service](ctx, s.client, "service", ServiceKey(key))
}

// GetAllServices retrieves all registered services from Redis.
// Slugs listed in the set but missing their document are skipped; any other
// error aborts so that a partial read never shrinks the route table.
func (s *Store) GetAllServices(ctx context.Context) ([]*domain.Service, error) {
	keys, err := s.client.SMembers(ctx, AllServicesKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get service keys: %w", err)
	}

	services := make([]*domain.Service, 0, len(keys))
	for _, key := range keys {
		service, err := s.GetService(ctx, key)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		services = append(services, service)
	}

	return services, nil
}

// DeleteService removes a service from Redis
func (s *Store) DeleteService(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, ServiceKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete service: %w", err)
	}

	if err := s.client.SRem(ctx, AllServicesKey(), key).Err(); err != nil {
		return fmt.Errorf("failed to remove service from set: %w", err)
	}

	return nil
}
