package deps

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/MrSnakeDoc/jumpgate/internal/domain"
	"github.com/MrSnakeDoc/jumpgate/internal/gateway"
	"github.com/MrSnakeDoc/jumpgate/internal/index"
	"github.com/MrSnakeDoc/jumpgate/internal/logger"
)

// Store is the part of the configuration store the admin endpoints read.
type Store interface {
	Ping(ctx context.Context) error
	GetGateway(ctx context.Context, url string) (*domain.Gateway, error)
}

type Deps struct {
	Logger        logger.Logger
	StartTime     time.Time
	Version       string
	Commit        string
	BuildDate     string
	GoVersion     string
	TimeNow       func() time.Time     // for testing, defaults to time.Now
	AllowedHosts  []string             // Host headers allowed on admin endpoints
	AllowedCIDRS  []string             // IPs allowed on admin endpoints
	TrustProxy    bool                 // true if running behind a trusted reverse proxy
	Store         Store                // configuration store
	MemoryIndex   *index.MemoryIndex   // structure the route table was built from
	Table         *gateway.Table       // live route table, mounted as catch-all
	Gateway       *domain.Gateway      // identity record of this gateway
	ReloadTrigger chan struct{}        // Channel to trigger a manual route table rebuild
	Gatherer      prometheus.Gatherer  // metrics exposed on /metrics
	PingTimeout   time.Duration        // bound on store pings from probes (default: 2s)
}

// Now returns d.TimeNow() or time.Now().
func (d Deps) Now() time.Time {
	if d.TimeNow != nil {
		return d.TimeNow()
	}
	return time.Now()
}

func (d Deps) pingTimeout() time.Duration {
	if d.PingTimeout <= 0 {
		return 2 * time.Second
	}
	return d.PingTimeout
}

// PingStore pings the store within PingTimeout.
func (d Deps) PingStore(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, d.pingTimeout())
	defer cancel()
	return d.Store.Ping(ctx)
}

// StoredGateway reads this gateway's identity record back from the store
// within PingTimeout.
func (d Deps) StoredGateway(ctx context.Context) (*domain.Gateway, error) {
	ctx, cancel := context.WithTimeout(ctx, d.pingTimeout())
	defer cancel()
	return d.Store.GetGateway(ctx, d.Gateway.URL)
}
