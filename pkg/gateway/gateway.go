package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/samvad-hq/tokens-api-suite/internal/domain"
	"github.com/samvad-hq/tokens-api-suite/pkg/httpclient"
)

// TokensPath is the token-listing endpoint.
const TokensPath = "/tokens"

// Options configures a Gateway.
type Options struct {
	// BaseURL is prefixed to every endpoint path, e.g. https://li.quest/v1.
	BaseURL  string
	Client   httpclient.Client
	Logger   Logger
	Observer Observer
	// Headers are sent with every request unless a call overrides them.
	Headers map[string]string
}

// Gateway issues single-shot GET requests against a fixed base URL and
// normalizes every failure into a *RequestError. It holds no mutable state
// and is safe for concurrent use.
type Gateway struct {
	baseURL  string
	client   httpclient.Client
	log      Logger
	observer Observer
	headers  map[string]string
}

// DefaultHeaders are attached to every request unless overridden.
func DefaultHeaders() map[string]string {
	return map[string]string{
		"Accept":       "application/json",
		"Content-Type": "application/json",
	}
}

// New validates opts and builds a Gateway.
func New(opts Options) (*Gateway, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("gateway base url is empty")
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse gateway base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("gateway base url %q is not absolute", base)
	}

	client := opts.Client
	if client == nil {
		client = httpclient.NewRestyClient(0)
	}
	var log Logger = noopLogger{}
	if opts.Logger != nil {
		log = opts.Logger
	}
	var obs Observer = noopObserver{}
	if opts.Observer != nil {
		obs = opts.Observer
	}

	headers := DefaultHeaders()
	for k, v := range opts.Headers {
		headers[k] = v
	}

	return &Gateway{
		baseURL:  base,
		client:   client,
		log:      log,
		observer: obs,
		headers:  headers,
	}, nil
}

// BaseURL returns the configured base URL without a trailing slash.
func (g *Gateway) BaseURL() string { return g.baseURL }

// Send issues exactly one GET to baseURL+endpoint and returns the decoded
// JSON body unmodified. A 2xx body that is not JSON is returned as a string.
// Any non-2xx response or transport failure is returned as a *RequestError.
func (g *Gateway) Send(ctx context.Context, endpoint string, params Params, headers map[string]string) (any, error) {
	body, status, err := g.get(ctx, endpoint, params, headers)
	if err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if !json.Valid(trimmed) {
		return string(body), nil
	}
	var out any
	if err := json.Unmarshal(trimmed, &out); err != nil {
		target, _ := g.endpointURL(endpoint)
		return nil, newDecodeError(target, status, body, err)
	}
	return out, nil
}

// SendInto behaves like Send but decodes the body into out. A body that does
// not decode into out is a *RequestError of KindDecode.
func (g *Gateway) SendInto(ctx context.Context, endpoint string, params Params, headers map[string]string, out any) error {
	body, status, err := g.get(ctx, endpoint, params, headers)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		target, _ := g.endpointURL(endpoint)
		reqErr := newDecodeError(target, status, body, err)
		g.log.WarnObj("api response not decodable", "gateway_error", map[string]any{
			"url":   reqErr.URL,
			"error": err.Error(),
			"body":  snippet(body),
		})
		return reqErr
	}
	return nil
}

// Tokens fetches the token listing.
func (g *Gateway) Tokens(ctx context.Context, params Params, headers map[string]string) (*domain.TokensResponse, error) {
	var resp domain.TokensResponse
	if err := g.SendInto(ctx, TokensPath, params, headers, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Probe issues a body-less request with an arbitrary verb and reports the
// status code. Non-2xx statuses are not errors here; only transport failures are.
func (g *Gateway) Probe(ctx context.Context, method, endpoint string) (int, error) {
	target, err := g.endpointURL(endpoint)
	if err != nil {
		return 0, err
	}
	start := time.Now()
	resp, err := g.client.Execute(ctx, strings.ToUpper(method), target, g.mergeHeaders(nil))
	if err != nil {
		g.observer.ObserveRequest(endpoint, 0, KindTransport, time.Since(start))
		return 0, newTransportError(target, err)
	}
	g.observer.ObserveRequest(endpoint, resp.StatusCode(), 0, time.Since(start))
	return resp.StatusCode(), nil
}

func (g *Gateway) get(ctx context.Context, endpoint string, params Params, headers map[string]string) ([]byte, int, error) {
	target, err := g.endpointURL(endpoint)
	if err != nil {
		return nil, 0, err
	}

	start := time.Now()
	resp, err := g.client.Get(ctx, target, params.Encode(), g.mergeHeaders(headers))
	elapsed := time.Since(start)
	if err != nil {
		reqErr := newTransportError(target, err)
		g.observer.ObserveRequest(endpoint, 0, reqErr.Kind, elapsed)
		g.log.WarnObj("api request failed", "gateway_error", map[string]any{
			"url":   target,
			"error": err.Error(),
		})
		return nil, 0, reqErr
	}

	status := resp.StatusCode()
	body := resp.Body()
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		reqErr := newStatusError(target, status, body)
		g.observer.ObserveRequest(endpoint, status, reqErr.Kind, elapsed)
		g.log.WarnObj("api error response", "gateway_error", map[string]any{
			"url":    target,
			"status": status,
			"body":   snippet(body),
		})
		return nil, status, reqErr
	}

	g.observer.ObserveRequest(endpoint, status, 0, elapsed)
	g.log.DebugObj("api request completed", "gateway_request", map[string]any{
		"url":        target,
		"status":     status,
		"bytes":      len(body),
		"elapsed_ms": elapsed.Milliseconds(),
	})
	return body, status, nil
}

func (g *Gateway) endpointURL(endpoint string) (string, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return "", fmt.Errorf("endpoint path is empty")
	}
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}
	return g.baseURL + endpoint, nil
}

// mergeHeaders layers per-call overrides on top of the gateway defaults.
// Keys are matched case-insensitively so "content-type" replaces "Content-Type".
func (g *Gateway) mergeHeaders(overrides map[string]string) map[string]string {
	out := make(map[string]string, len(g.headers)+len(overrides))
	for k, v := range g.headers {
		out[http.CanonicalHeaderKey(k)] = v
	}
	for k, v := range overrides {
		out[http.CanonicalHeaderKey(k)] = v
	}
	return out
}
