// Package portfolio forwards GraphQL queries to the portfolio service,
// falling back from the primary to the backup endpoint.
package portfolio

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/juju/collections/set"
	"github.com/juju/errors"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/vanshika/nftgateway/internal/upstream"
)

const (
	DefaultPrimaryURL = "https://public.zapper.xyz/graphql"
	DefaultBackupURL  = "https://api.zapper.xyz/v2/graphql"
)

// ErrNotConfigured is returned when no API key is set.
const ErrNotConfigured = errors.ConstError("portfolio api key not configured")

var clientErrorCodes = set.NewStrings("GRAPHQL_PARSE_FAILED", "GRAPHQL_VALIDATION_FAILED", "BAD_USER_INPUT")

var clientErrorPrefixes = []string{
	"syntax error",
	"cannot query field",
	"unknown argument",
	"unknown type",
	"variable \"",
	"field \"",
	"expected type",
}

// QueryError is a GraphQL envelope the service rejected as a client mistake.
// It matches errors.BadRequest.
type QueryError struct {
	Messages []string
	Body     json.RawMessage
}

func (e *QueryError) Error() string {
	return "graphql query rejected: " + strings.Join(e.Messages, "; ")
}

// Is lets errors.Is match errors.BadRequest.
func (e *QueryError) Is(target error) bool { return target == errors.BadRequest }

// Details is rendered into the error envelope.
func (e *QueryError) Details() any { return e.Body }

// Config lists the endpoints in fallback order.
type Config struct {
	URLs   []string
	APIKey string
}

// Client is safe for concurrent use.
type Client struct {
	client    *upstream.Client
	logger    *zap.Logger
	endpoints []upstream.Endpoint
}

// New builds the endpoint ladder; without an API key every query fails with ErrNotConfigured.
func New(cfg Config, client *upstream.Client, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{client: client, logger: logger}
	if cfg.APIKey == "" {
		return c
	}
	urls := cfg.URLs
	if len(urls) == 0 {
		urls = []string{DefaultPrimaryURL, DefaultBackupURL}
	}
	p := upstream.ZapperProvider(cfg.APIKey)
	for _, u := range urls {
		if u != "" {
			c.endpoints = append(c.endpoints, upstream.Endpoint{Provider: p, URL: u})
		}
	}
	return c
}

// Configured reports whether queries can be forwarded.
func (c *Client) Configured() bool { return len(c.endpoints) > 0 }

// Query forwards a GraphQL request body and returns the upstream response
// envelope unchanged.
func (c *Client) Query(ctx context.Context, body []byte) (json.RawMessage, error) {
	if !c.Configured() {
		return nil, errors.Trace(ErrNotConfigured)
	}
	if !gjson.ValidBytes(body) {
		return nil, errors.BadRequestf("request body must be a JSON GraphQL request")
	}
	if q := gjson.GetBytes(body, "query"); q.Type != gjson.String || strings.TrimSpace(q.String()) == "" {
		return nil, errors.BadRequestf("graphql query is required")
	}

	var out json.RawMessage
	err := c.client.CallWithFallback(ctx, c.endpoints, upstream.Request{
		Method:  http.MethodPost,
		Body:    json.RawMessage(body),
		Timeout: upstream.GraphQLTimeout,
	}, func(resp []byte) error {
		if err := checkEnvelope(resp); err != nil {
			return err
		}
		out = append(json.RawMessage(nil), resp...)
		return nil
	})
	if err != nil {
		if ue, ok := upstream.AsError(err); ok && ue.Kind == upstream.KindHTTPStatus && ue.StatusCode == http.StatusBadRequest {
			return nil, &QueryError{Messages: envelopeMessages(ue.Body), Body: rawOrNil(ue.Body)}
		}
		return nil, errors.Annotate(err, "portfolio query")
	}
	return out, nil
}

// checkEnvelope accepts data (partial data included) and classifies
// error-only envelopes as client mistakes or upstream failures.
func checkEnvelope(resp []byte) error {
	if !gjson.ValidBytes(resp) {
		return errors.Errorf("graphql response is not valid JSON")
	}
	errs := gjson.GetBytes(resp, "errors")
	if !errs.IsArray() || len(errs.Array()) == 0 {
		return nil
	}
	if isClientError(errs) {
		return &QueryError{Messages: envelopeMessages(resp), Body: append(json.RawMessage(nil), resp...)}
	}
	if data := gjson.GetBytes(resp, "data"); data.Exists() && data.Type != gjson.Null {
		return nil
	}
	_, err := upstream.DecodeGraphQL(resp)
	return err
}

func isClientError(errs gjson.Result) bool {
	for _, e := range errs.Array() {
		if clientErrorCodes.Contains(e.Get("extensions.code").String()) {
			return true
		}
		msg := strings.ToLower(e.Get("message").String())
		for _, prefix := range clientErrorPrefixes {
			if strings.HasPrefix(msg, prefix) {
				return true
			}
		}
	}
	return false
}

func envelopeMessages(body []byte) []string {
	var out []string
	for _, e := range gjson.GetBytes(body, "errors").Array() {
		out = append(out, e.Get("message").String())
	}
	if len(out) == 0 {
		out = append(out, "bad request")
	}
	return out
}

func rawOrNil(body []byte) json.RawMessage {
	if gjson.ValidBytes(body) {
		return append(json.RawMessage(nil), body...)
	}
	return nil
}
