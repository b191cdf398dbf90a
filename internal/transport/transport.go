// Package transport implements the pipeline's terminal stage: actually
// dispatching a Request over HTTP and wrapping the result as a
// rresponse.Response. It builds an *http.Transport with optional
// HTTP/2 and h2c support.
package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/http2"

	"github.com/resiliate/resiliate/pkg/rrequest"
	"github.com/resiliate/resiliate/pkg/rresponse"
)

// Transport dispatches a single attempt of req against endpoint within
// timeout, returning a response that owns its own close.
type Transport interface {
	Send(ctx context.Context, endpoint string, req rrequest.Request, timeout time.Duration) (rresponse.Response, error)
}

// Config tunes the underlying *http.Client/http.RoundTripper.
type Config struct {
	// MaxConnsPerHost bounds idle/active connections per host. Zero
	// picks a sensible default.
	MaxConnsPerHost int
	// InsecureSkipVerify disables TLS certificate verification; useful
	// against self-signed test endpoints, dangerous anywhere else.
	InsecureSkipVerify bool
	// ForceHTTP2 negotiates HTTP/2 over TLS via ALPN when possible.
	ForceHTTP2 bool
	// H2C dispatches HTTP/2 over plaintext TCP, bypassing ALPN
	// negotiation entirely. Mutually exclusive with ForceHTTP2 in
	// spirit, though nothing stops setting both for an endpoint that
	// mixes schemes.
	H2C bool
	// DisableKeepAlives forces a new connection per attempt.
	DisableKeepAlives bool
}

// DefaultConfig returns reasonable defaults.
func DefaultConfig() Config {
	return Config{MaxConnsPerHost: 100, ForceHTTP2: true}
}

// HTTPTransport is the default Transport, backed by net/http.
type HTTPTransport struct {
	client *http.Client
}

// New builds an HTTPTransport per cfg.
func New(cfg Config) *HTTPTransport {
	maxConns := cfg.MaxConnsPerHost
	if maxConns <= 0 {
		maxConns = 100
	}

	var roundTripper http.RoundTripper
	if cfg.H2C {
		roundTripper = &http2.Transport{
			AllowHTTP: true,
			DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
				return (&net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}).DialContext(ctx, network, addr)
			},
		}
	} else {
		t := &http.Transport{
			TLSClientConfig:     &tls.Config{InsecureSkipVerify: cfg.InsecureSkipVerify},
			MaxIdleConns:        maxConns,
			MaxIdleConnsPerHost: maxConns,
			MaxConnsPerHost:     maxConns,
			IdleConnTimeout:     90 * time.Second,
			DisableKeepAlives:   cfg.DisableKeepAlives,
			ForceAttemptHTTP2:   cfg.ForceHTTP2,
			DialContext:         (&net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		}
		if cfg.ForceHTTP2 {
			_ = http2.ConfigureTransport(t)
		}
		roundTripper = t
	}

	return &HTTPTransport{client: &http.Client{
		Transport: roundTripper,
		// Redirects are never followed: a 3xx response is returned as
		// it is (as an EmptyResponse with its status and headers when
		// Request.AllowRedirects is false). Request.MaxRedirects is not
		// consulted.
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}}
}

func (t *HTTPTransport) Send(ctx context.Context, endpoint string, req rrequest.Request, timeout time.Duration) (rresponse.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	url := endpoint
	if req.URL != "" {
		url = req.URL
	}
	built, err := req.BuildURL()
	if err == nil {
		url = built
	}

	var body *bytes.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	} else {
		body = bytes.NewReader(nil)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, url, body)
	if err != nil {
		return nil, fmt.Errorf("transport: building request: %w", err)
	}
	if req.Headers != nil {
		httpReq.Header = req.Headers.Clone()
	}

	started := time.Now()
	httpResp, err := t.client.Do(httpReq)
	elapsed := time.Since(started)
	if err != nil {
		if ctx.Err() != nil {
			return rresponse.NewEmptyResponse(rresponse.StatusClientCancelled, nil), nil
		}
		return rresponse.NewEmptyResponse(rresponse.StatusNetworkError, nil), nil
	}

	if isRedirect(httpResp.StatusCode) && !req.AllowRedirects {
		httpResp.Body.Close()
		return rresponse.NewEmptyResponse(httpResp.StatusCode, httpResp.Header), nil
	}

	return rresponse.NewTransportResponse(httpResp, elapsed), nil
}

func isRedirect(status int) bool {
	return status >= 300 && status < 400
}
