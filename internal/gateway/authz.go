package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrSnakeDoc/jumpgate/internal/domain"
)

// Store is the read side of the configuration store used on the request
// path. Lookups of absent entities return an error wrapping domain.ErrNotFound.
type Store interface {
	GetService(ctx context.Context, key string) (*domain.Service, error)
	GetApplication(ctx context.Context, appKey string) (*domain.Application, error)
	GetSession(ctx context.Context, token string) (*domain.Session, error)
	GetAccount(ctx context.Context, id string) (*domain.Account, error)
	GetGroups(ctx context.Context, ids []string) ([]*domain.Group, error)
}

// Authorizer decides whether a session's account may invoke a route.
type Authorizer struct {
	store Store
}

func NewAuthorizer(store Store) *Authorizer {
	return &Authorizer{store: store}
}

// Authorized reports whether the route id belongs to the union of the
// route sets of the session account's groups. An account that no longer
// exists is granted nothing.
func (a *Authorizer) Authorized(ctx context.Context, session *domain.Session, routeID string) (bool, error) {
	account, err := a.store.GetAccount(ctx, session.AccountID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to load account: %w", err)
	}

	groups, err := a.store.GetGroups(ctx, account.GroupIDs)
	if err != nil {
		return false, fmt.Errorf("failed to load groups: %w", err)
	}

	return domain.GrantsRoute(groups, routeID), nil
}
