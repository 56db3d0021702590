package gateway

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/jumpgate/internal/domain"
	"github.com/MrSnakeDoc/jumpgate/internal/logger"
)

// HandlerFactory returns the handler bound to one declared route.
type HandlerFactory interface {
	Handler(serviceKey, routeID string) http.Handler
}

var supportedVerbs = map[string]bool{
	http.MethodGet:     true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodPatch:   true,
	http.MethodDelete:  true,
	http.MethodHead:    true,
	http.MethodOptions: true,
}

// Builder derives a router from the declared routes of every service.
type Builder struct {
	basePath string
	handlers HandlerFactory
	logger   logger.Logger
}

func NewBuilder(basePath string, handlers HandlerFactory, log logger.Logger) *Builder {
	return &Builder{basePath: basePath, handlers: handlers, logger: log}
}

// Build mounts one handler per (verb, basePath + pathPrefix + pathTemplate).
// Anything else, unknown verbs on known paths included, answers 404
// path_not_found. Routes with an unsupported verb, and routes whose
// (verb, path shape) is already taken, are skipped with a warning.
func (b *Builder) Build(services []*domain.Service) (h http.Handler, mounted int, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			h, mounted, err = nil, 0, fmt.Errorf("route table build failed: %v", rec)
		}
	}()

	r := chi.NewRouter()
	r.NotFound(PathNotFound)
	r.MethodNotAllowed(PathNotFound)

	owners := make(map[string]string)
	for _, svc := range sortedServices(services) {
		for _, route := range svc.Routes {
			verb := strings.ToUpper(route.Verb)
			if !supportedVerbs[verb] {
				b.logger.Warn("skipping route with unsupported verb",
					logger.String("service", svc.Key),
					logger.String("route", route.ID),
					logger.String("verb", route.Verb))
				continue
			}

			pattern := Pattern(b.basePath, svc.PathPrefix, route.PathTemplate)
			shape := verb + " " + patternShape(pattern)
			if owner, taken := owners[shape]; taken {
				b.logger.Warn("skipping duplicate route",
					logger.String("service", svc.Key),
					logger.String("route", route.ID),
					logger.String("pattern", pattern),
					logger.String("owner", owner))
				continue
			}
			owners[shape] = svc.Key + "/" + route.ID

			r.Method(verb, pattern, b.handlers.Handler(svc.Key, route.ID))
			mounted++
		}
	}

	return r, mounted, nil
}

// Pattern joins the path parts and rewrites ":name" segments as chi "{name}".
func Pattern(basePath, prefix, template string) string {
	full := basePath + prefix + template
	if full == "" {
		return "/"
	}
	if !strings.HasPrefix(full, "/") {
		full = "/" + full
	}

	segments := strings.Split(full, "/")
	for i, seg := range segments {
		if len(seg) > 1 && seg[0] == ':' {
			segments[i] = "{" + seg[1:] + "}"
		}
	}
	return strings.Join(segments, "/")
}

// patternShape erases parameter names: "/a/{id}" and "/a/{name}" collide.
func patternShape(pattern string) string {
	var sb strings.Builder
	depth := 0
	for _, c := range pattern {
		switch {
		case c == '{':
			if depth == 0 {
				sb.WriteRune(c)
			}
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				sb.WriteRune(c)
			}
		case depth == 0:
			sb.WriteRune(c)
		}
	}
	return sb.String()
}

// Signature hashes the structural part of the services: keys, prefixes and
// each route's id, verb and template. Flags are not part of it, so toggling
// active, authenticated or running never calls for a rebuild.
func Signature(services []*domain.Service) uint64 {
	tuples := make([]string, 0, len(services))
	for _, svc := range services {
		if len(svc.Routes) == 0 {
			tuples = append(tuples, svc.Key+"\x00"+svc.PathPrefix)
			continue
		}
		for _, route := range svc.Routes {
			tuples = append(tuples, strings.Join([]string{
				svc.Key, svc.PathPrefix, route.ID, strings.ToUpper(route.Verb), route.PathTemplate,
			}, "\x00"))
		}
	}
	slices.Sort(tuples)

	d := xxhash.New()
	for _, t := range tuples {
		_, _ = d.WriteString(t)
		_, _ = d.WriteString("\n")
	}
	return d.Sum64()
}

func sortedServices(services []*domain.Service) []*domain.Service {
	out := make([]*domain.Service, 0, len(services))
	for _, svc := range services {
		if svc != nil {
			out = append(out, svc)
		}
	}
	slices.SortFunc(out, func(a, b *domain.Service) int {
		return strings.Compare(a.Key, b.Key)
	})
	return out
}

// Table is the live route table. Readers never block; Swap replaces the
// whole router at once.
type Table struct {
	current atomic.Pointer[tableState]
}

type tableState struct {
	handler http.Handler
	routes  int
}

// NewTable returns a table answering 404 path_not_found to everything.
func NewTable() *Table {
	t := &Table{}
	t.current.Store(&tableState{handler: http.HandlerFunc(PathNotFound)})
	return t
}

// Swap installs a new router.
func (t *Table) Swap(h http.Handler, routes int) {
	t.current.Store(&tableState{handler: h, routes: routes})
}

// Routes returns the number of routes in the current router.
func (t *Table) Routes() int {
	return t.current.Load().routes
}

func (t *Table) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Drop the enclosing router's context so the table routes on the full path.
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, nil)
	t.current.Load().handler.ServeHTTP(w, r.WithContext(ctx))
}
