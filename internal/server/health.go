package server

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/vanshika/nftgateway/internal/cache"
	"github.com/vanshika/nftgateway/internal/graph"
)

const probeTimeout = 2 * time.Second

// HealthService defines behaviour for readiness probes.
type HealthService interface {
	Probe(ctx context.Context) error
}

// GraphHealthService verifies graph connectivity as part of health checks.
// A nil Client means folders are kept in memory and always healthy.
type GraphHealthService struct {
	Client graph.Client
}

// Probe implements the HealthService interface.
func (s GraphHealthService) Probe(ctx context.Context) error {
	if s.Client == nil {
		return nil
	}
	return s.Client.VerifyConnectivity(ctx)
}

// UpstreamStatus reports which upstream credentials are present. It never
// carries the credentials themselves.
type UpstreamStatus struct {
	NeynarConfigured   bool `json:"neynarConfigured"`
	NeynarPublicKey    bool `json:"neynarPublicKey"`
	AlchemyConfigured  bool `json:"alchemyConfigured"`
	ZapperConfigured   bool `json:"zapperConfigured"`
	GraphConfigured    bool `json:"graphConfigured"`
	IPFSGatewayCount   int  `json:"ipfsGatewayCount"`
	CDNKeyConfigured   bool `json:"cdnKeyConfigured"`
	MetricsExported    bool `json:"metricsExported"`
	AuthDisabled       bool `json:"authDisabled"`
	FollowingPageLimit int  `json:"followingPageLimit"`
}

type healthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
	Error     string `json:"error,omitempty"`
}

type diagnosticResponse struct {
	healthResponse
	StartedAt string                     `json:"startedAt"`
	Uptime    string                     `json:"uptime"`
	Upstreams UpstreamStatus             `json:"upstreams"`
	Cache     map[cache.Kind]cache.Stats `json:"cache"`
}

func (h *handlers) probe(ctx context.Context) healthResponse {
	resp := healthResponse{
		Status:    "ok",
		Version:   h.deps.Version,
		Timestamp: h.deps.Clock.Now().UTC().Format(time.RFC3339),
	}
	if h.deps.Health == nil {
		return resp
	}
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if err := h.deps.Health.Probe(ctx); err != nil {
		h.logger.Error("health probe failed", zap.Error(err))
		resp.Status = "degraded"
		resp.Error = err.Error()
	}
	return resp
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	resp := h.probe(r.Context())
	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, resp)
}

func (h *handlers) diagnostic(w http.ResponseWriter, r *http.Request) {
	now := h.deps.Clock.Now()
	respondJSON(w, http.StatusOK, diagnosticResponse{
		healthResponse: h.probe(r.Context()),
		StartedAt:      h.started.UTC().Format(time.RFC3339),
		Uptime:         now.Sub(h.started).Round(time.Second).String(),
		Upstreams:      h.deps.Upstreams,
		Cache:          h.deps.Cache.Stats(),
	})
}
