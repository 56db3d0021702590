package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/jumpgate/internal/domain"
	"github.com/google/uuid"
)

// EnsureGateway returns the gateway record registered for url, creating it
// when absent. An existing record is never overwritten, so concurrent starts
// of the same gateway agree on one id.
func (s *Store) EnsureGateway(ctx context.Context, url, token string, locality domain.Locality) (*domain.Gateway, error) {
	candidate := &domain.Gateway{
		ID:        uuid.NewString(),
		URL:       url,
		Token:     token,
		Running:   true,
		Active:    true,
		Locality:  locality,
		CreatedAt: time.Now().UTC(),
	}

	data, err := json.Marshal(candidate)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal gateway: %w", err)
	}

	created, err := s.client.SetNX(ctx, GatewayKey(url), data, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to register gateway: %w", err)
	}
	if created {
		return candidate, nil
	}

	return getJSON[domain.Gateway](ctx, s.client, "gateway", GatewayKey(url))
}

// GetGateway retrieves the gateway record registered for url
func (s *Store) GetGateway(ctx context.Context, url string) (*domain.Gateway, error) {
	return getJSON[domain.Gateway](ctx, s.client, "gateway", GatewayKey(url))
}
