package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsExposition(t *testing.T) {
	m, err := New()
	require.NoError(t, err)

	m.ObserveUpstream("neynar", "ok", 120*time.Millisecond)
	m.ObserveProjection("neynar", "result.users")
	m.ObserveCache("profiles", true)
	m.ObserveImage("placeholder")
	m.ObserveRequest("/api/health", http.MethodGet, http.StatusOK)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	for _, want := range []string{
		`nftgateway_upstream_requests_total{outcome="ok",provider="neynar"} 1`,
		`nftgateway_upstream_projection_total{projection="result.users",provider="neynar"} 1`,
		`nftgateway_cache_lookups_total{kind="profiles",result="hit"} 1`,
		`nftgateway_image_proxy_responses_total{outcome="placeholder"} 1`,
		`nftgateway_http_requests_total{method="GET",route="/api/health",status="2xx"} 1`,
	} {
		assert.True(t, strings.Contains(body, want), "missing %s", want)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveUpstream("alchemy", "ok", time.Second)
	m.ObserveCache("generic", false)
	m.ObserveRequest("/", http.MethodGet, http.StatusOK)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
