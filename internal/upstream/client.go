// Package upstream wraps outbound HTTP calls to the social indexer, the NFT
// indexer and the portfolio GraphQL service.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"go.uber.org/zap"

	"github.com/vanshika/nftgateway/internal/metrics"
)

const (
	// DefaultTimeout applies to REST and JSON-RPC calls.
	DefaultTimeout = 10 * time.Second
	// GraphQLTimeout applies to GraphQL calls.
	GraphQLTimeout = 15 * time.Second

	jsonMIME     = "application/json"
	maxBodyBytes = 16 << 20
)

// Transport performs the *http.Request.
type Transport interface {
	Do(*http.Request) (*http.Response, error)
}

// Provider names an upstream and carries the headers every request to it needs.
type Provider struct {
	Name   string
	Header http.Header

	// Secrets are masked out of logged URLs.
	Secrets []string
}

// NeynarProvider authenticates with the x-api-key header.
func NeynarProvider(apiKey string) Provider {
	h := make(http.Header)
	h.Set("x-api-key", apiKey)
	return Provider{Name: "neynar", Header: h}
}

// AlchemyProvider carries its key in the URL path.
func AlchemyProvider(apiKey string) Provider {
	return Provider{Name: "alchemy", Header: make(http.Header), Secrets: []string{apiKey}}
}

// ZapperProvider authenticates with the x-zapper-api-key header.
func ZapperProvider(apiKey string) Provider {
	h := make(http.Header)
	h.Set("x-zapper-api-key", apiKey)
	return Provider{Name: "zapper", Header: h}
}

func (p Provider) redact(s string) string {
	for _, secret := range p.Secrets {
		if secret != "" {
			s = strings.ReplaceAll(s, secret, "***")
		}
	}
	return s
}

// Request describes one outbound call. Body is JSON encoded unless it is
// already a []byte or json.RawMessage.
type Request struct {
	Method  string
	URL     string
	Query   url.Values
	Body    any
	Header  http.Header
	Timeout time.Duration
}

// Response is a fully read 2xx response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Endpoint is one rung of a fallback ladder.
type Endpoint struct {
	Provider Provider
	URL      string
}

// Client issues upstream calls with per-call timeouts and error classification.
type Client struct {
	transport Transport
	logger    *zap.Logger
	metrics   *metrics.Metrics
	clock     clock.Clock
}

// NewClient returns a Client. A nil transport means http.DefaultClient.
func NewClient(transport Transport, logger *zap.Logger, m *metrics.Metrics) *Client {
	if transport == nil {
		transport = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		transport: transport,
		logger:    logger,
		metrics:   m,
		clock:     clock.WallClock,
	}
}

// Metrics exposes the collector calls are recorded into.
func (c *Client) Metrics() *metrics.Metrics { return c.metrics }

// Call performs req and returns the body of a 2xx response. Non-2xx
// statuses become *Error with KindHTTPStatus.
func (c *Client) Call(ctx context.Context, p Provider, req Request) (Response, error) {
	resp, cancel, err := c.do(ctx, p, req)
	if err != nil {
		return Response{}, err
	}
	defer cancel()
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Response{}, classifyTransport(p, req.URL, err)
	}
	return Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

// CallJSON is Call followed by decoding the body into out.
func (c *Client) CallJSON(ctx context.Context, p Provider, req Request, out any) error {
	resp, err := c.Call(ctx, p, req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return &Error{Kind: KindDecode, Provider: p.Name, URL: p.redact(req.URL), Err: err, Message: err.Error()}
	}
	return nil
}

// Stream performs req and hands back the open response body for a 2xx
// status. The caller must close the body; closing it also releases the
// call's timeout.
func (c *Client) Stream(ctx context.Context, p Provider, req Request) (*http.Response, error) {
	resp, cancel, err := c.do(ctx, p, req)
	if err != nil {
		return nil, err
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// CallWithFallback tries endpoints in order with the same logical request and
// returns on the first response decode accepts. A not-found outcome, or a
// decode that rejects the request itself as bad, stops the ladder. Otherwise
// the last error is returned.
func (c *Client) CallWithFallback(ctx context.Context, endpoints []Endpoint, req Request, decode func([]byte) error) error {
	if len(endpoints) == 0 {
		return errors.NotValidf("empty endpoint list")
	}
	var lastErr error
	for i, ep := range endpoints {
		attempt := req
		attempt.URL = ep.URL
		resp, err := c.Call(ctx, ep.Provider, attempt)
		if err == nil {
			derr := decode(resp.Body)
			if derr == nil {
				return nil
			}
			err = decodeError(ep, derr)
		}
		if IsNotFound(err) || errors.Is(err, errors.BadRequest) {
			return err
		}
		if ctx.Err() != nil {
			return err
		}
		lastErr = err
		if i < len(endpoints)-1 {
			c.logger.Warn("upstream endpoint failed, trying next",
				zap.String("provider", ep.Provider.Name),
				zap.Int("endpoint", i),
				zap.Error(err),
			)
		}
	}
	return lastErr
}

func decodeError(ep Endpoint, err error) error {
	if ue, ok := AsError(err); ok {
		if ue.Provider == "" {
			ue.Provider = ep.Provider.Name
			ue.URL = ep.Provider.redact(ep.URL)
		}
		return ue
	}
	if IsNotFound(err) || errors.Is(err, errors.BadRequest) {
		return err
	}
	return &Error{Kind: KindDecode, Provider: ep.Provider.Name, URL: ep.Provider.redact(ep.URL), Err: err, Message: err.Error()}
}

type graphQLEnvelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// GraphQL posts {query, variables} to the endpoints in order and returns the
// data member. Envelope errors mentioning "not found" are NotFound and stop
// the ladder; other envelope errors are KindGraphQL.
func (c *Client) GraphQL(ctx context.Context, endpoints []Endpoint, query string, variables map[string]any) (json.RawMessage, error) {
	req := Request{
		Method:  http.MethodPost,
		Body:    map[string]any{"query": query, "variables": variables},
		Timeout: GraphQLTimeout,
	}
	var data json.RawMessage
	err := c.CallWithFallback(ctx, endpoints, req, func(body []byte) error {
		d, err := DecodeGraphQL(body)
		if err != nil {
			return err
		}
		data = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// DecodeGraphQL unwraps a GraphQL response envelope.
func DecodeGraphQL(body []byte) (json.RawMessage, error) {
	var env graphQLEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, errors.Annotate(err, "decoding graphql envelope")
	}
	if len(env.Errors) > 0 {
		msgs := make([]string, 0, len(env.Errors))
		notFound := false
		for _, e := range env.Errors {
			msgs = append(msgs, e.Message)
			if strings.Contains(strings.ToLower(e.Message), "not found") {
				notFound = true
			}
		}
		return nil, &Error{Kind: KindGraphQL, Message: strings.Join(msgs, "; "), notFound: notFound}
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil, errors.Errorf("graphql response carries no data")
	}
	return env.Data, nil
}

func (c *Client) do(ctx context.Context, p Provider, req Request) (*http.Response, context.CancelFunc, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)

	httpReq, err := c.newRequest(ctx, p, req)
	if err != nil {
		cancel()
		return nil, nil, errors.Annotate(err, "can not make new request")
	}

	start := c.clock.Now()
	resp, err := c.transport.Do(httpReq)
	elapsed := c.clock.Now().Sub(start)
	if err != nil {
		cancel()
		uerr := classifyTransport(p, req.URL, err)
		c.record(p, httpReq, 0, elapsed, uerr)
		return nil, nil, uerr
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		_ = resp.Body.Close()
		cancel()
		uerr := &Error{
			Kind:       KindHTTPStatus,
			Provider:   p.Name,
			URL:        p.redact(req.URL),
			StatusCode: resp.StatusCode,
			Body:       excerpt(body),
		}
		c.record(p, httpReq, resp.StatusCode, elapsed, uerr)
		return nil, nil, uerr
	}
	c.record(p, httpReq, resp.StatusCode, elapsed, nil)
	return resp, cancel, nil
}

func (c *Client) newRequest(ctx context.Context, p Provider, req Request) (*http.Request, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	target := req.URL
	if len(req.Query) > 0 {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + req.Query.Encode()
	}

	var body io.Reader
	switch b := req.Body.(type) {
	case nil:
	case []byte:
		body = bytes.NewReader(b)
	case json.RawMessage:
		body = bytes.NewReader(b)
	default:
		buf := new(bytes.Buffer)
		if err := json.NewEncoder(buf).Encode(b); err != nil {
			return nil, errors.Trace(err)
		}
		body = buf
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, errors.Trace(err)
	}
	httpReq.Header = composeHeaders(p.Header, req.Header)
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", jsonMIME)
	}
	if body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", jsonMIME)
	}
	return httpReq, nil
}

func (c *Client) record(p Provider, req *http.Request, status int, elapsed time.Duration, err error) {
	c.metrics.ObserveUpstream(p.Name, outcome(err), elapsed)
	fields := []zap.Field{
		zap.String("provider", p.Name),
		zap.String("method", req.Method),
		zap.String("url", p.redact(req.URL.String())),
		zap.Int("status", status),
		zap.Duration("elapsed", elapsed),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	c.logger.Debug("upstream call", fields...)
}

// composeHeaders creates a new set of headers from the provider's and the request's.
func composeHeaders(sets ...http.Header) http.Header {
	result := make(http.Header)
	for _, h := range sets {
		for k, vs := range h {
			result.Del(k)
			for _, v := range vs {
				result.Add(k, v)
			}
		}
	}
	return result
}

func classifyTransport(p Provider, rawURL string, err error) *Error {
	kind := KindNetwork
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		kind = KindTimeout
	}
	return &Error{Kind: kind, Provider: p.Name, URL: p.redact(rawURL), Err: err, Message: p.redact(err.Error())}
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	defer c.cancel()
	return c.ReadCloser.Close()
}
