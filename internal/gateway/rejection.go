package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/MrSnakeDoc/jumpgate/internal/catalog"
)

// Body shapes selectable for rejections.
const (
	FormatStructured = "structured"
	FormatLegacy     = "legacy"
)

// Rejection is the outcome of a failed pipeline stage. It is a value, written
// once by a Responder.
type Rejection struct {
	Status int
	Field  string
	Code   string

	// LegacyStatus and LegacyMessage describe the {message} body.
	LegacyStatus  int
	LegacyMessage string
}

// Pipeline rejections, in stage order, followed by the infrastructure ones.
var (
	RejectServiceInactive = Rejection{http.StatusBadRequest, "service", "inactive", http.StatusBadRequest, "service_inactive"}
	RejectNoInstance      = Rejection{http.StatusBadRequest, "instance", "unavailable", http.StatusBadRequest, "instance_unavailable"}
	RejectRouteInactive   = Rejection{http.StatusBadRequest, "route", "inactive", http.StatusBadRequest, "route_inactive"}
	RejectAppKeyRequired  = Rejection{http.StatusBadRequest, "app_key", "required", http.StatusBadRequest, "missing.app_key"}
	RejectAppKeyUnknown   = Rejection{http.StatusNotFound, "app_key", "unknown", http.StatusNotFound, "application_not_found"}
	RejectSessionRequired = Rejection{http.StatusBadRequest, "session_id", "required", http.StatusBadRequest, "missing.session_id"}
	RejectSessionUnknown  = Rejection{http.StatusNotFound, "session_id", "unknown", http.StatusNotFound, "session_not_found"}
	RejectSessionExpired  = Rejection{http.StatusUnprocessableEntity, "session_id", "invalid_session", http.StatusUnprocessableEntity, "invalid_session"}
	RejectForbidden       = Rejection{http.StatusForbidden, "session_id", "forbidden", http.StatusUnauthorized, "unauthorized"}

	RejectStoreUnavailable = Rejection{http.StatusServiceUnavailable, "store", "unavailable", http.StatusServiceUnavailable, "store_unavailable"}
	RejectUpstreamTimeout  = Rejection{http.StatusGatewayTimeout, "instance", "timeout", http.StatusGatewayTimeout, "instance_timeout"}
	RejectUpstreamFailure  = Rejection{http.StatusBadGateway, "instance", "unreachable", http.StatusBadGateway, "instance_unreachable"}
)

// PathNotFoundMessage is the body message for unregistered paths and verbs.
const PathNotFoundMessage = "path_not_found"

type structuredBody struct {
	Status int    `json:"status"`
	Field  string `json:"field"`
	Error  string `json:"error"`
	Docs   string `json:"docs,omitempty"`
}

type messageBody struct {
	Message string `json:"message"`
}

// Responder writes rejection bodies in the configured shape.
type Responder struct {
	format  string
	catalog *catalog.Catalog
}

// NewResponder returns a Responder. Unknown formats fall back to structured.
func NewResponder(format string, c *catalog.Catalog) Responder {
	if format != FormatLegacy {
		format = FormatStructured
	}
	return Responder{format: format, catalog: c}
}

// Format returns the active body shape.
func (rs Responder) Format() string {
	return rs.format
}

// StatusOf returns the HTTP status the responder uses for rej.
func (rs Responder) StatusOf(rej Rejection) int {
	if rs.format == FormatLegacy {
		return rej.LegacyStatus
	}
	return rej.Status
}

// Reject writes rej.
func (rs Responder) Reject(w http.ResponseWriter, rej Rejection) {
	if rs.format == FormatLegacy {
		writeJSON(w, rej.LegacyStatus, messageBody{Message: rej.LegacyMessage})
		return
	}
	writeJSON(w, rej.Status, structuredBody{
		Status: rej.Status,
		Field:  rej.Field,
		Error:  rej.Code,
		Docs:   rs.catalog.Docs(rej.Field, rej.Code),
	})
}

// PathNotFound writes the 404 returned for any unregistered verb or path.
// The body is the same in both formats.
func PathNotFound(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusNotFound, messageBody{Message: PathNotFoundMessage})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
