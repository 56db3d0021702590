package domain

// Service represents a backend microservice registered on the gateway.
//
// It is owned by the configuration store. The gateway never mutates it on the
// request path and re-reads it before every check that depends on a flag.
//
// A Service is uniquely identified by its Key.
type Service struct {
	// ─────────────────────────────
	// Identity (immutable)
	// ─────────────────────────────

	// Key is the unique slug of the service.
	// Example: "test"
	Key string `json:"key"`

	// PathPrefix is prepended to every route template, on the gateway side
	// and on the forwarded request.
	// Example: "/test"
	PathPrefix string `json:"path_prefix"`

	// ─────────────────────────────
	// Mutable flags (re-read per request)
	// ─────────────────────────────

	// Active is false when the whole service is switched off.
	Active bool `json:"active"`

	// TestMode restricts forwarding to local instances when the deployment
	// itself runs in test mode.
	TestMode bool `json:"test_mode"`

	// ─────────────────────────────
	// Children
	// ─────────────────────────────

	Routes    []Route    `json:"routes"`
	Instances []Instance `json:"instances"`
}

// Route is a single verb+path endpoint exposed on behalf of a service.
type Route struct {
	// ID is the stable identity used to match group grants.
	ID string `json:"id"`

	// Verb is the HTTP method, case-insensitive in storage.
	Verb string `json:"verb"`

	// PathTemplate uses ":name" segments for parameters.
	// Example: "/second/:id"
	PathTemplate string `json:"path"`

	Active        bool `json:"active"`
	Authenticated bool `json:"authenticated"`
}

// FindRoute returns the route with the given ID, or nil when the service no
// longer declares it.
func (s *Service) FindRoute(id string) *Route {
	if s == nil {
		return nil
	}
	for i := range s.Routes {
		if s.Routes[i].ID == id {
			return &s.Routes[i]
		}
	}
	return nil
}

// EligibleInstances returns the instances currently able to take traffic.
func (s *Service) EligibleInstances() []Instance {
	if s == nil {
		return nil
	}
	eligible := make([]Instance, 0, len(s.Instances))
	for _, inst := range s.Instances {
		if inst.Eligible() {
			eligible = append(eligible, inst)
		}
	}
	return eligible
}

// HasEligibleInstance reports whether at least one instance is running and active.
func (s *Service) HasEligibleInstance() bool {
	if s == nil {
		return false
	}
	for _, inst := range s.Instances {
		if inst.Eligible() {
			return true
		}
	}
	return false
}
