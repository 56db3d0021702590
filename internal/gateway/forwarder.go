package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MrSnakeDoc/jumpgate/internal/logger"
	"github.com/MrSnakeDoc/jumpgate/internal/utils"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var (
	// ErrUpstreamTimeout is returned when the backend did not answer within
	// the total timeout.
	ErrUpstreamTimeout = errors.New("upstream timeout")
	// ErrUpstreamUnreachable is returned when no backend response was
	// received for any other reason.
	ErrUpstreamUnreachable = errors.New("upstream unreachable")
)

// ForwarderOptions bounds the outbound call.
type ForwarderOptions struct {
	ConnectTimeout time.Duration // dial and TLS handshake
	TotalTimeout   time.Duration // whole call, body relay included
}

// Outbound describes one call to a backend instance.
type Outbound struct {
	Method  string
	BaseURL string // instance url
	Prefix  string // service path prefix
	Subpath string // escaped path below the service prefix
	Query   url.Values
	Body    map[string]any
	Token   string
}

// Forwarder performs the outbound call and relays the backend response.
type Forwarder struct {
	client *http.Client
	total  time.Duration
	logger logger.Logger
}

// NewForwarder builds a forwarder with its own transport.
func NewForwarder(opts ForwarderOptions, log logger.Logger) *Forwarder {
	base := http.DefaultTransport.(*http.Transport).Clone()
	base.DialContext = (&net.Dialer{
		Timeout:   opts.ConnectTimeout,
		KeepAlive: 30 * time.Second,
	}).DialContext
	base.TLSHandshakeTimeout = opts.ConnectTimeout

	return &Forwarder{
		client: &http.Client{
			Transport: otelhttp.NewTransport(base),
			// Redirects are relayed to the caller, not followed.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		total:  opts.TotalTimeout,
		logger: log,
	}
}

// Target returns the outbound URL for out, token injection included.
func (out Outbound) Target() (string, []byte, error) {
	query, body := injectToken(out.Query, out.Body, out.Token)

	target := strings.TrimRight(out.BaseURL, "/") + out.Prefix + out.Subpath
	u, err := url.Parse(target)
	if err != nil {
		return "", nil, fmt.Errorf("invalid target %q: %w", target, err)
	}
	u.RawQuery = query.Encode()

	var payload []byte
	if len(body) > 0 {
		payload, err = json.Marshal(body)
		if err != nil {
			return "", nil, fmt.Errorf("failed to encode body: %w", err)
		}
	}
	return u.String(), payload, nil
}

// Forward sends out and streams the backend status, Content-Type and body
// into w. When an error is returned nothing has been written to w; the error
// wraps ErrUpstreamTimeout, ErrUpstreamUnreachable, or the inbound context
// error when the caller went away.
func (f *Forwarder) Forward(ctx context.Context, w http.ResponseWriter, out Outbound) (int, error) {
	target, payload, err := out.Target()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUpstreamUnreachable, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, f.total)
	defer cancel()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(callCtx, out.Method, target, body)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUpstreamUnreachable, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, classify(ctx, callCtx, err)
	}
	defer utils.Close(resp.Body)

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(resp.StatusCode)

	if _, err := io.Copy(w, resp.Body); err != nil {
		f.logger.Warn("response relay interrupted",
			logger.String("instance", out.BaseURL),
			logger.String("path", out.Prefix+out.Subpath),
			logger.Int("status", resp.StatusCode),
			logger.Error(err))
	}
	return resp.StatusCode, nil
}

func classify(inbound, call context.Context, err error) error {
	if inbound.Err() != nil {
		return inbound.Err()
	}
	if errors.Is(call.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrUpstreamTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrUpstreamTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrUpstreamUnreachable, err)
}
