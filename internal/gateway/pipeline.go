package gateway

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/MrSnakeDoc/jumpgate/internal/domain"
	"github.com/MrSnakeDoc/jumpgate/internal/logger"
)

// PipelineOptions carries the per-deployment settings of the pipeline.
type PipelineOptions struct {
	BasePath           string
	Gateway            *domain.Gateway // identity: trust token and locality
	DeploymentTestMode bool
	StoreTimeout       time.Duration
	Responder          Responder
	Selector           *domain.InstanceSelector // defaults to a uniform random selector
	Now                func() time.Time         // defaults to time.Now
}

// Pipeline runs the ordered admission and authorization checks in front of
// every route, then selects an instance and forwards. It keeps no state
// between requests: every check reads the store again.
type Pipeline struct {
	store     Store
	authz     *Authorizer
	forwarder *Forwarder
	metrics   *Metrics
	logger    logger.Logger
	opts      PipelineOptions
}

func NewPipeline(store Store, fwd *Forwarder, metrics *Metrics, log logger.Logger, opts PipelineOptions) *Pipeline {
	if opts.Selector == nil {
		opts.Selector = domain.NewInstanceSelector()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = 2 * time.Second
	}
	return &Pipeline{
		store:     store,
		authz:     NewAuthorizer(store),
		forwarder: fwd,
		metrics:   metrics,
		logger:    log,
		opts:      opts,
	}
}

// Handler returns the handler bound to one route. Only the identifiers are
// captured; flags are read from the store on each request.
func (p *Pipeline) Handler(serviceKey, routeID string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.serve(w, r, serviceKey, routeID)
	})
}

// verdict is the result of the admission stages.
type verdict struct {
	service  *domain.Service
	route    *domain.Route
	instance domain.Instance
	reject   *Rejection
	notFound bool
}

func (p *Pipeline) serve(w http.ResponseWriter, r *http.Request, serviceKey, routeID string) {
	start := p.opts.Now()
	ctx := r.Context()
	log := p.logger.With(
		logger.String("service", serviceKey),
		logger.String("route", routeID))

	in := readInbound(r)
	v := p.admit(ctx, r, serviceKey, routeID, in, log)

	switch {
	case v.notFound:
		log.Debug("route no longer declared", logger.String("path", r.URL.Path))
		PathNotFound(w, r)
		p.metrics.observeRequest(serviceKey, http.StatusNotFound, p.opts.Now().Sub(start))
		return
	case v.reject != nil:
		p.reject(w, serviceKey, *v.reject, log, start)
		return
	}

	prefix := p.opts.BasePath + v.service.PathPrefix
	out := Outbound{
		Method:  r.Method,
		BaseURL: v.instance.URL,
		Prefix:  v.service.PathPrefix,
		Subpath: strings.TrimPrefix(r.URL.EscapedPath(), prefix),
		Query:   in.query,
		Body:    in.body,
		Token:   p.opts.Gateway.Token,
	}

	log.Debug("forwarding request",
		logger.String("instance", v.instance.ID),
		logger.String("method", r.Method),
		logger.String("subpath", out.Subpath))

	status, err := p.forwarder.Forward(ctx, w, out)
	if err != nil {
		p.upstreamFailure(w, serviceKey, v.instance, err, log, start)
		return
	}
	p.metrics.observeRequest(serviceKey, status, p.opts.Now().Sub(start))
}

// admit runs the stages in order and stops at the first failure.
func (p *Pipeline) admit(ctx context.Context, r *http.Request, serviceKey, routeID string, in inbound, log logger.Logger) verdict {
	service, err := storeRead(ctx, p.opts.StoreTimeout, func(ctx context.Context) (*domain.Service, error) {
		return p.store.GetService(ctx, serviceKey)
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return verdict{notFound: true}
		}
		return p.storeFailure(err, log)
	}

	route := service.FindRoute(routeID)
	if route == nil || !strings.EqualFold(route.Verb, r.Method) ||
		!strings.HasPrefix(r.URL.EscapedPath(), p.opts.BasePath+service.PathPrefix) {
		return verdict{notFound: true}
	}

	if !service.Active {
		return reject(RejectServiceInactive)
	}
	if !service.HasEligibleInstance() {
		return reject(RejectNoInstance)
	}
	if !route.Active {
		return reject(RejectRouteInactive)
	}

	appKey := in.param(ParamAppKey)
	if appKey == "" {
		return reject(RejectAppKeyRequired)
	}
	if _, err := storeRead(ctx, p.opts.StoreTimeout, func(ctx context.Context) (*domain.Application, error) {
		return p.store.GetApplication(ctx, appKey)
	}); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return reject(RejectAppKeyUnknown)
		}
		return p.storeFailure(err, log)
	}

	if route.Authenticated {
		rej, err := p.checkSession(ctx, in, route.ID)
		if err != nil {
			return p.storeFailure(err, log)
		}
		if rej != nil {
			return reject(*rej)
		}
	}

	instance, err := p.opts.Selector.Select(domain.SelectionInput{
		Service:            service,
		InstanceID:         in.param(ParamInstanceID),
		GatewayLocality:    p.opts.Gateway.Locality,
		DeploymentTestMode: p.opts.DeploymentTestMode,
	})
	if err != nil {
		if !errors.Is(err, domain.ErrNoInstance) {
			log.Error("instance selection failed", logger.Error(err))
		}
		return reject(RejectNoInstance)
	}

	return verdict{service: service, route: route, instance: instance}
}

// checkSession runs the session stages of authenticated routes.
func (p *Pipeline) checkSession(ctx context.Context, in inbound, routeID string) (*Rejection, error) {
	token := in.param(ParamSessionID)
	if token == "" {
		return &RejectSessionRequired, nil
	}

	session, err := storeRead(ctx, p.opts.StoreTimeout, func(ctx context.Context) (*domain.Session, error) {
		return p.store.GetSession(ctx, token)
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return &RejectSessionUnknown, nil
		}
		return nil, err
	}

	if session.Expired(p.opts.Now()) {
		return &RejectSessionExpired, nil
	}

	ok, err := storeRead(ctx, p.opts.StoreTimeout, func(ctx context.Context) (bool, error) {
		return p.authz.Authorized(ctx, session, routeID)
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return &RejectForbidden, nil
	}
	return nil, nil
}

func (p *Pipeline) reject(w http.ResponseWriter, serviceKey string, rej Rejection, log logger.Logger, start time.Time) {
	log.Info("request rejected",
		logger.String("field", rej.Field),
		logger.String("error", rej.Code))
	p.opts.Responder.Reject(w, rej)
	p.metrics.observeRejection(serviceKey, rej)
	p.metrics.observeRequest(serviceKey, p.opts.Responder.StatusOf(rej), p.opts.Now().Sub(start))
}

func (p *Pipeline) storeFailure(err error, log logger.Logger) verdict {
	log.Error("store read failed", logger.Error(err))
	return reject(RejectStoreUnavailable)
}

func (p *Pipeline) upstreamFailure(w http.ResponseWriter, serviceKey string, instance domain.Instance, err error, log logger.Logger, start time.Time) {
	log = log.With(logger.String("instance", instance.ID), logger.Error(err))

	var rej Rejection
	switch {
	case errors.Is(err, ErrUpstreamTimeout):
		rej = RejectUpstreamTimeout
		p.metrics.observeUpstreamError(serviceKey, "timeout")
	case errors.Is(err, ErrUpstreamUnreachable):
		rej = RejectUpstreamFailure
		p.metrics.observeUpstreamError(serviceKey, "unreachable")
	default:
		// The caller went away; there is no one to answer.
		log.Debug("caller cancelled forwarded request")
		p.metrics.observeUpstreamError(serviceKey, "cancelled")
		return
	}

	log.Warn("forwarding failed", logger.Int("status", p.opts.Responder.StatusOf(rej)))
	p.opts.Responder.Reject(w, rej)
	p.metrics.observeRequest(serviceKey, p.opts.Responder.StatusOf(rej), p.opts.Now().Sub(start))
}

func reject(rej Rejection) verdict {
	return verdict{reject: &rej}
}

// storeRead bounds a store call by timeout.
func storeRead[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(ctx)
}
