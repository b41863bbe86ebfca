// Package upstream implements the HTTP transport to the paratime gateway
// and the fault taxonomy the handler maps to JSON-RPC error codes.
package upstream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/sapphire-relay/encrypting-proxy/internal/constants"
)

// FaultKind classifies a transport-level failure reaching upstream.
type FaultKind int

const (
	FaultNone FaultKind = iota
	FaultTimeout
	FaultRateLimited
	FaultErrorResponse
	FaultBadGateway
)

// Fault is returned by Upstream.Post when the call did not yield a usable
// 200 response.
type Fault struct {
	Kind   FaultKind
	Status int // populated for FaultErrorResponse
	Err    error
}

func (f *Fault) Error() string {
	switch f.Kind {
	case FaultTimeout:
		return "upstream: timeout"
	case FaultRateLimited:
		return "upstream: rate limited"
	case FaultErrorResponse:
		return fmt.Sprintf("upstream: error response (status %d)", f.Status)
	default:
		return fmt.Sprintf("upstream: bad gateway: %v", f.Err)
	}
}

func (f *Fault) Unwrap() error { return f.Err }

// Upstream is the capability the handler depends on: a single POST
// operation. Production code uses HTTPUpstream; tests substitute
// MockUpstream. No HTTP client type appears in this contract.
type Upstream interface {
	Post(ctx context.Context, body []byte) ([]byte, error)
}

// HTTPUpstream posts JSON-RPC request bodies to a fixed gateway URL.
type HTTPUpstream struct {
	url        string
	client     *http.Client
	maxRespLen int64
}

// Config configures an HTTPUpstream, following the defaults-struct idiom
// used throughout this codebase's transport layers.
type Config struct {
	URL                string
	Timeout            time.Duration
	MaxResponseBytes   int64
	MaxIdleConnsPerHost int
	IdleConnTimeout    time.Duration
}

// DefaultConfig returns the default HTTPUpstream configuration.
func DefaultConfig(url string) Config {
	return Config{
		URL:                 url,
		Timeout:             constants.UpstreamTimeoutSeconds * time.Second,
		MaxResponseBytes:    constants.DefaultMaxRequestSizeBytes,
		MaxIdleConnsPerHost: 64,
		IdleConnTimeout:     90 * time.Second,
	}
}

// NewHTTPUpstream builds an HTTPUpstream from cfg.
func NewHTTPUpstream(cfg Config) *HTTPUpstream {
	transport := &http.Transport{
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,
	}
	return &HTTPUpstream{
		url: cfg.URL,
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		maxRespLen: cfg.MaxResponseBytes,
	}
}

var _ Upstream = (*HTTPUpstream)(nil)

// Post sends body to the configured gateway URL and classifies the result
// per the fault taxonomy in the component design.
func (u *HTTPUpstream) Post(ctx context.Context, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.url, bytes.NewReader(body))
	if err != nil {
		return nil, &Fault{Kind: FaultBadGateway, Err: err}
	}
	req.Header.Set("content-type", "application/json")

	resp, err := u.client.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, &Fault{Kind: FaultTimeout, Err: err}
		}
		return nil, &Fault{Kind: FaultBadGateway, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		io.Copy(io.Discard, io.LimitReader(resp.Body, u.maxRespLen))
		return nil, &Fault{Kind: FaultRateLimited}
	}
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, u.maxRespLen))
		return nil, &Fault{Kind: FaultErrorResponse, Status: resp.StatusCode}
	}

	limit := u.maxRespLen
	if resp.ContentLength > 0 && resp.ContentLength < limit {
		limit = resp.ContentLength
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, &Fault{Kind: FaultBadGateway, Err: err}
	}
	return data, nil
}
