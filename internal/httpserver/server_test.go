package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/jumpgate/internal/domain"
	"github.com/MrSnakeDoc/jumpgate/internal/gateway"
	"github.com/MrSnakeDoc/jumpgate/internal/httpserver/deps"
	"github.com/MrSnakeDoc/jumpgate/internal/index"
	"github.com/MrSnakeDoc/jumpgate/internal/logger"
	redisstore "github.com/MrSnakeDoc/jumpgate/internal/store/redis"
)

type routedFactory struct{}

func (routedFactory) Handler(serviceKey, routeID string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("routed:" + serviceKey + "/" + routeID))
	})
}

type fixture struct {
	handler http.Handler
	deps    deps.Deps
	store   *redisstore.Store
	mr      *miniredis.Miniredis
}

func newFixture(t *testing.T, built bool) *fixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	log := logger.NewNop()
	reg := prometheus.NewRegistry()
	metrics := gateway.NewMetrics(reg)
	table := gateway.NewTable()
	idx := index.NewMemoryIndex()

	if built {
		services := []*domain.Service{{
			Key:        "test",
			PathPrefix: "/test",
			Routes:     []domain.Route{{ID: "r1", Verb: "GET", PathTemplate: "/first"}},
		}}
		h, mounted, err := gateway.NewBuilder("", routedFactory{}, log).Build(services)
		require.NoError(t, err)
		table.Swap(h, mounted)
		idx.Update(services, gateway.Signature(services), mounted)
		metrics.ObserveRebuild(mounted, nil)
	}

	store := redisstore.NewStore(client)
	d := deps.Deps{
		Logger:        log,
		StartTime:     time.Now(),
		Version:       "test",
		Store:         store,
		MemoryIndex:   idx,
		Table:         table,
		Gateway:       &domain.Gateway{ID: "gw-1", URL: "https://gw.example.com", Token: "secret", Locality: domain.LocalityRemote},
		ReloadTrigger: make(chan struct{}, 1),
		Gatherer:      reg,
	}

	return &fixture{handler: NewHandler(log, d), deps: d, store: store, mr: mr}
}

func (f *fixture) do(method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = "127.0.0.1:5555"
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	f := newFixture(t, false)

	rec := f.do("GET", "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)

	var body healthz
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "test", body.Version)
}

type healthz struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

func TestReadyz(t *testing.T) {
	notBuilt := newFixture(t, false)
	rec := notBuilt.do("GET", "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "route table not built")

	built := newFixture(t, true)
	rec = built.do("GET", "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ready":true`)

	built.mr.Close()
	rec = built.do("GET", "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "store unavailable")
}

func TestInfra(t *testing.T) {
	f := newFixture(t, true)

	rec := f.do("GET", "/infra")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret")

	var body struct {
		RoutingMode string `json:"routing_mode"`
		Gateway     struct {
			ID     string `json:"id"`
			Source string `json:"source"`
		} `json:"gateway"`
		Components map[string]struct {
			OK             bool `json:"ok"`
			ServicesLoaded *int `json:"services_loaded"`
			RoutesMounted  *int `json:"routes_mounted"`
		} `json:"components"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "operational", body.RoutingMode)
	assert.Equal(t, "gw-1", body.Gateway.ID)
	assert.Equal(t, "startup", body.Gateway.Source)
	require.NotNil(t, body.Components["route_table"].RoutesMounted)
	assert.Equal(t, 1, *body.Components["route_table"].RoutesMounted)
	assert.True(t, body.Components["redis"].OK)

	f.mr.Close()
	rec = f.do("GET", "/infra")
	assert.Contains(t, rec.Body.String(), `"routing_mode":"degraded"`)
}

func TestInfraReadsStoredGateway(t *testing.T) {
	f := newFixture(t, true)
	stored, err := f.store.EnsureGateway(context.Background(), "https://gw.example.com", "stored-secret", domain.LocalityLocal)
	require.NoError(t, err)

	rec := f.do("GET", "/infra")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret")

	var body struct {
		Gateway struct {
			ID       string `json:"id"`
			Locality string `json:"locality"`
			Running  bool   `json:"running"`
			Active   bool   `json:"active"`
			Source   string `json:"source"`
		} `json:"gateway"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, stored.ID, body.Gateway.ID)
	assert.Equal(t, "local", body.Gateway.Locality)
	assert.True(t, body.Gateway.Running)
	assert.True(t, body.Gateway.Active)
	assert.Equal(t, "store", body.Gateway.Source)
}

func TestInfraCriticalBeforeFirstBuild(t *testing.T) {
	f := newFixture(t, false)

	rec := f.do("GET", "/infra")
	assert.Contains(t, rec.Body.String(), `"routing_mode":"critical"`)
}

func TestReload(t *testing.T) {
	f := newFixture(t, true)

	rec := f.do("POST", "/reload")
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = f.do("POST", "/reload")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	<-f.deps.ReloadTrigger
	rec = f.do("POST", "/reload")
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, true)

	rec := f.do("GET", "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "jumpgate_route_table_routes 1")
}

func TestGatewayFallthrough(t *testing.T) {
	f := newFixture(t, true)

	rec := f.do("GET", "/test/first")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "routed:test/r1", rec.Body.String())

	tests := []struct {
		method string
		path   string
	}{
		{"GET", "/unknown"},
		{"POST", "/test/first"},
		{"GET", "/reload"},
		{"DELETE", "/healthz"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := f.do(tt.method, tt.path)
			assert.Equal(t, http.StatusNotFound, rec.Code)
			assert.JSONEq(t, `{"message":"path_not_found"}`, strings.TrimSpace(rec.Body.String()))
		})
	}
}

func TestAdminRestrictedByCIDR(t *testing.T) {
	f := newFixture(t, true)
	d := f.deps
	d.AllowedCIDRS = []string{"10.0.0.0/8"}
	d.AllowedHosts = []string{"admin.example.com"}
	handler := NewHandler(logger.NewNop(), d)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/infra", nil)
	req.RemoteAddr = "192.168.0.1:1234"
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/infra", nil)
	req.RemoteAddr = "10.1.1.1:1234"
	req.Host = "admin.example.com:8080"
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// the gateway itself is not restricted
	rec = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/test/first", nil)
	req.RemoteAddr = "192.168.0.1:1234"
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
