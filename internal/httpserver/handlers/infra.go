package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/MrSnakeDoc/jumpgate/internal/httpserver/deps"
	"github.com/MrSnakeDoc/jumpgate/internal/index"
	"github.com/MrSnakeDoc/jumpgate/internal/logger"
)

type componentStatus struct {
	OK             bool                   `json:"ok"`
	ServicesLoaded *int                   `json:"services_loaded,omitempty"`
	RoutesMounted  *int                   `json:"routes_mounted,omitempty"`
	Signature      string                 `json:"signature,omitempty"`
	LastReload     string                 `json:"last_reload,omitempty"`
	LastCheck      string                 `json:"last_check,omitempty"`
	Mode           string                 `json:"mode,omitempty"`
	Impact         string                 `json:"impact,omitempty"`
	Error          string                 `json:"error,omitempty"`
	Services       []index.ServiceSummary `json:"services,omitempty"`
}

type infraResponse struct {
	RoutingMode string                     `json:"routing_mode"`
	Gateway     *gatewayInfo               `json:"gateway,omitempty"`
	Components  map[string]componentStatus `json:"components"`
}

// gatewayInfo is the identity record without its token. Source is "store"
// when the record was read back from the store, "startup" when the store did
// not answer and the record registered at startup is shown instead.
type gatewayInfo struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	Locality string `json:"locality"`
	Running  bool   `json:"running"`
	Active   bool   `json:"active"`
	Source   string `json:"source"`
}

// Infra describes the route table and the store connection.
func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")

		components := map[string]componentStatus{
			"route_table": routeTableStatus(d),
			"redis":       checkRedis(r, d),
		}

		response := infraResponse{
			RoutingMode: determineRoutingMode(components),
			Components:  components,
		}
		if d.Gateway != nil {
			response.Gateway = gatewayStatus(r, d, components["redis"].OK)
		}

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

func gatewayStatus(r *http.Request, d deps.Deps, storeOK bool) *gatewayInfo {
	gw, source := d.Gateway, "startup"
	if storeOK {
		stored, err := d.StoredGateway(r.Context())
		if err == nil {
			gw, source = stored, "store"
		} else {
			d.Logger.Warn("failed to read gateway record", logger.Error(err))
		}
	}

	return &gatewayInfo{
		ID:       gw.ID,
		URL:      gw.URL,
		Locality: string(gw.Locality),
		Running:  gw.Running,
		Active:   gw.Active,
		Source:   source,
	}
}

func routeTableStatus(d deps.Deps) componentStatus {
	idx := d.MemoryIndex
	services := idx.Count()
	routes := idx.RouteCount()
	lastCheck, lastErr := idx.Status()

	return componentStatus{
		OK:             !idx.GetLastReload().IsZero() && lastErr == "",
		ServicesLoaded: &services,
		RoutesMounted:  &routes,
		Signature:      strconv.FormatUint(idx.Signature(), 16),
		LastReload:     formatTime(idx.GetLastReload()),
		LastCheck:      formatTime(lastCheck),
		Error:          lastErr,
		Services:       idx.Services(),
	}
}

// determineRoutingMode is "critical" when no table was ever built and
// "degraded" when the table is stale or the store is down: requests are
// still routed but rejected with store/unavailable.
func determineRoutingMode(components map[string]componentStatus) string {
	if table, exists := components["route_table"]; exists && table.LastReload == "never" {
		return "critical"
	}
	for _, c := range components {
		if !c.OK {
			return "degraded"
		}
	}
	return "operational"
}

func checkRedis(r *http.Request, d deps.Deps) componentStatus {
	if d.Store == nil {
		return componentStatus{
			OK:     false,
			Mode:   "degraded",
			Impact: "all-requests-rejected",
			Error:  "client not initialized",
		}
	}

	if err := d.PingStore(r.Context()); err != nil {
		return componentStatus{
			OK:     false,
			Mode:   "degraded",
			Impact: "all-requests-rejected",
			Error:  err.Error(),
		}
	}

	return componentStatus{
		OK:   true,
		Mode: "optimal",
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.UTC().Format(time.RFC3339)
}
