package redis

import (
	"context"
	"fmt"

	"github.com/MrSnakeDoc/jumpgate/internal/domain"
)

// GetApplication retrieves an application by its app key
func (s *Store) GetApplication(ctx context.Context, appKey string) (*domain.Application, error) {
	return getJSON[domain.Application](ctx, s.client, "application", ApplicationKey(appKey))
}

// GetSession retrieves a session by its token
func (s *Store) GetSession(ctx context.Context, token string) (*domain.Session, error) {
	return getJSON[domain.Session](ctx, s.client, "session", SessionKey(token))
}

// GetAccount retrieves an account by id
func (s *Store) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	return getJSON[domain.Account](ctx, s.client, "account", AccountKey(id))
}

// GetGroups retrieves the given groups in one round trip. Unknown ids are
// skipped.
func (s *Store) GetGroups(ctx context.Context, ids []string) ([]*domain.Group, error) {
	if len(ids) == 0 {
		return []*domain.Group{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = GroupKey(id)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get groups: %w", err)
	}

	groups := make([]*domain.Group, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		group, err := decode[domain.Group]("group "+ids[i], []byte(raw))
		if err != nil {
			return nil, err
		}
		groups = append(groups, group)
	}
	return groups, nil
}

// Seed bundles the documents written by SaveFixtures.
type Seed struct {
	Services     []*domain.Service
	Applications []*domain.Application
	Accounts     []*domain.Account
	Groups       []*domain.Group
	Sessions     []*domain.Session
}

// SaveFixtures writes every document of the seed in a single pipeline.
// Sessions are only created: an existing session keeps its creation time.
func (s *Store) SaveFixtures(ctx context.Context, seed Seed) error {
	pipe := s.client.Pipeline()

	for _, svc := range seed.Services {
		if err := setJSON(ctx, pipe, "service "+svc.Key, ServiceKey(svc.Key), svc); err != nil {
			return err
		}
		pipe.SAdd(ctx, AllServicesKey(), svc.Key)
	}
	for _, app := range seed.Applications {
		if err := setJSON(ctx, pipe, "application", ApplicationKey(app.Key), app); err != nil {
			return err
		}
	}
	for _, acc := range seed.Accounts {
		if err := setJSON(ctx, pipe, "account "+acc.ID, AccountKey(acc.ID), acc); err != nil {
			return err
		}
	}
	for _, g := range seed.Groups {
		if err := setJSON(ctx, pipe, "group "+g.ID, GroupKey(g.ID), g); err != nil {
			return err
		}
	}
	for _, sess := range seed.Sessions {
		if err := setNXJSON(ctx, pipe, "session", SessionKey(sess.Token), sess); err != nil {
			return err
		}
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save fixtures: %w", err)
	}
	return nil
}

// ListSessions scans every stored session. Documents that fail to decode
// are skipped.
func (s *Store) ListSessions(ctx context.Context) ([]*domain.Session, error) {
	var sessions []*domain.Session

	iter := s.client.Scan(ctx, 0, KeyPrefixSession+"*", 200).Iterator()
	for iter.Next(ctx) {
		data, err := s.client.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			// deleted between SCAN and GET
			continue
		}
		sess, err := decode[domain.Session]("session", data)
		if err != nil {
			continue
		}
		sessions = append(sessions, sess)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan sessions: %w", err)
	}
	return sessions, nil
}

// DeleteSessions removes the sessions with the given tokens
func (s *Store) DeleteSessions(ctx context.Context, tokens ...string) error {
	if len(tokens) == 0 {
		return nil
	}
	keys := make([]string, len(tokens))
	for i, t := range tokens {
		keys[i] = SessionKey(t)
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete sessions: %w", err)
	}
	return nil
}
