package redis

import (
	"context"
	"testing"
	"time"

	"github.com/MrSnakeDoc/jumpgate/internal/domain"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewStore(client), mr
}

func sampleService() *domain.Service {
	return &domain.Service{
		Key:        "test",
		PathPrefix: "/test",
		Active:     true,
		Routes: []domain.Route{
			{ID: "r1", Verb: "GET", PathTemplate: "/second/:id", Active: true, Authenticated: true},
		},
		Instances: []domain.Instance{
			{ID: "i1", URL: "https://service.com", Running: true, Active: true, Locality: domain.LocalityRemote},
		},
	}
}

func TestServiceRoundTrip(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveService(ctx, sampleService()))

	got, err := store.GetService(ctx, "test")
	require.NoError(t, err)
	assert.Equal(t, "/test", got.PathPrefix)
	require.Len(t, got.Routes, 1)
	assert.Equal(t, "/second/:id", got.Routes[0].PathTemplate)
	assert.True(t, got.Routes[0].Authenticated)

	all, err := store.GetAllServices(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestGetServiceNotFound(t *testing.T) {
	store, _ := setupStore(t)

	_, err := store.GetService(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetAllServicesSkipsDanglingMembers(t *testing.T) {
	store, mr := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveService(ctx, sampleService()))
	_, err := mr.SAdd(AllServicesKey(), "ghost")
	require.NoError(t, err)

	all, err := store.GetAllServices(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "test", all[0].Key)
}

func TestGetAllServicesCorruptDocument(t *testing.T) {
	store, mr := setupStore(t)
	ctx := context.Background()

	require.NoError(t, mr.Set(ServiceKey("broken"), "{not json"))
	_, err := mr.SAdd(AllServicesKey(), "broken")
	require.NoError(t, err)

	_, err = store.GetAllServices(ctx)
	assert.Error(t, err)
}

func TestDeleteService(t *testing.T) {
	store, mr := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveService(ctx, sampleService()))
	require.NoError(t, store.DeleteService(ctx, "test"))

	assert.False(t, mr.Exists(ServiceKey("test")))
	all, err := store.GetAllServices(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSaveFixturesAndLookups(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	seed := Seed{
		Services:     []*domain.Service{sampleService()},
		Applications: []*domain.Application{{Key: "test_key", Name: "demo", OwnerAccountID: "acc1"}},
		Accounts:     []*domain.Account{{ID: "acc1", Username: "demo", GroupIDs: []string{"g1", "g2"}}},
		Groups:       []*domain.Group{{ID: "g1", Slug: "readers", RouteIDs: []string{"r1"}}},
		Sessions:     []*domain.Session{{Token: "sess", AccountID: "acc1", CreatedAt: created, ExpirationSeconds: 3600}},
	}
	require.NoError(t, store.SaveFixtures(ctx, seed))

	app, err := store.GetApplication(ctx, "test_key")
	require.NoError(t, err)
	assert.Equal(t, "acc1", app.OwnerAccountID)

	sess, err := store.GetSession(ctx, "sess")
	require.NoError(t, err)
	assert.True(t, sess.CreatedAt.Equal(created))
	assert.Equal(t, int64(3600), sess.ExpirationSeconds)

	acc, err := store.GetAccount(ctx, "acc1")
	require.NoError(t, err)
	assert.Equal(t, []string{"g1", "g2"}, acc.GroupIDs)

	// g2 is declared on the account but has no document
	groups, err := store.GetGroups(ctx, acc.GroupIDs)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "readers", groups[0].Slug)

	_, err = store.GetSession(ctx, "other")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveFixturesKeepsExistingSession(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	first := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveFixtures(ctx, Seed{Sessions: []*domain.Session{
		{Token: "sess", AccountID: "acc1", CreatedAt: first, ExpirationSeconds: 60},
	}}))
	require.NoError(t, store.SaveFixtures(ctx, Seed{
		Accounts: []*domain.Account{{ID: "acc1", Username: "renamed"}},
		Sessions: []*domain.Session{
			{Token: "sess", AccountID: "acc1", CreatedAt: first.Add(24 * time.Hour), ExpirationSeconds: 60},
		},
	}))

	sess, err := store.GetSession(ctx, "sess")
	require.NoError(t, err)
	assert.True(t, sess.CreatedAt.Equal(first), "created_at = %s", sess.CreatedAt)

	// other documents are still upserted
	acc, err := store.GetAccount(ctx, "acc1")
	require.NoError(t, err)
	assert.Equal(t, "renamed", acc.Username)
}

func TestGetGroupsEmpty(t *testing.T) {
	store, _ := setupStore(t)

	groups, err := store.GetGroups(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestEnsureGatewayIsGetOrCreate(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	first, err := store.EnsureGateway(ctx, "https://gw.example.com", "tok-1", domain.LocalityLocal)
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.True(t, first.Running)
	assert.True(t, first.Active)

	second, err := store.EnsureGateway(ctx, "https://gw.example.com", "tok-2", domain.LocalityRemote)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "tok-1", second.Token)
	assert.Equal(t, domain.LocalityLocal, second.Locality)

	got, err := store.GetGateway(ctx, "https://gw.example.com")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
}

func TestStoreUnavailable(t *testing.T) {
	store, mr := setupStore(t)
	mr.Close()

	_, err := store.GetService(context.Background(), "test")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Error(t, store.Ping(context.Background()))
}

func TestListAndDeleteSessions(t *testing.T) {
	store, mr := setupStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, store.SaveFixtures(ctx, Seed{Sessions: []*domain.Session{
		{Token: "a", AccountID: "acc", CreatedAt: now, ExpirationSeconds: 60},
		{Token: "b", AccountID: "acc", CreatedAt: now, ExpirationSeconds: 60},
	}}))
	require.NoError(t, mr.Set(SessionKey("broken"), "{"))

	sessions, err := store.ListSessions(ctx)
	require.NoError(t, err)
	assert.Len(t, sessions, 2)

	require.NoError(t, store.DeleteSessions(ctx, "a", "broken"))
	require.NoError(t, store.DeleteSessions(ctx))

	sessions, err = store.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "b", sessions[0].Token)
}
