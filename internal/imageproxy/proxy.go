// Package imageproxy fetches NFT media through IPFS, Arweave and CDN
// fallbacks. It always answers 200 with an image, synthesizing a placeholder
// when every attempt fails.
package imageproxy

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vanshika/nftgateway/internal/cache"
	"github.com/vanshika/nftgateway/internal/metrics"
	"github.com/vanshika/nftgateway/internal/upstream"
)

const (
	DefaultMaxAttempts = 4
	DefaultMaxBytes    = 25 << 20

	fetchTimeout  = 15 * time.Second
	failedTTL     = 5 * time.Minute
	successCache  = "public, max-age=31536000"
	acceptHeader  = "image/avif,image/webp,image/apng,image/svg+xml,image/*,*/*;q=0.8"
	proxyProvider = "image"
)

// DefaultIPFSGateways are tried in order for IPFS content.
var DefaultIPFSGateways = []string{
	"https://ipfs.io/ipfs/",
	"https://dweb.link/ipfs/",
	"https://w3s.link/ipfs/",
	"https://gateway.pinata.cloud/ipfs/",
}

// Config configures the proxy.
type Config struct {
	IPFSGateways []string
	CDNAPIKey    string
	MaxBytes     int64
	MaxAttempts  int
}

// Proxy is an http.Handler serving GET ?url=.
type Proxy struct {
	cfg      Config
	client   *upstream.Client
	cache    *cache.Cache
	logger   *zap.Logger
	metrics  *metrics.Metrics
	provider upstream.Provider
}

// New fills unset config with defaults.
func New(cfg Config, client *upstream.Client, c *cache.Cache, logger *zap.Logger, m *metrics.Metrics) *Proxy {
	if len(cfg.IPFSGateways) == 0 {
		cfg.IPFSGateways = DefaultIPFSGateways
	}
	gateways := make([]string, 0, len(cfg.IPFSGateways))
	for _, g := range cfg.IPFSGateways {
		g = strings.TrimSpace(g)
		if g == "" {
			continue
		}
		if !strings.HasSuffix(g, "/") {
			g += "/"
		}
		gateways = append(gateways, g)
	}
	cfg.IPFSGateways = gateways
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Proxy{
		cfg:      cfg,
		client:   client,
		cache:    c,
		logger:   logger,
		metrics:  m,
		provider: upstream.Provider{Name: proxyProvider, Secrets: []string{cfg.CDNAPIKey}},
	}
}

func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.Serve(r.Context(), w, r.URL.Query().Get("url"))
}

// Serve streams the image at raw to w, or a placeholder.
func (p *Proxy) Serve(ctx context.Context, w http.ResponseWriter, raw string) {
	failedKey := cache.Key("image-failed", raw)
	if _, failed := p.cache.Get(cache.KindGeneric, failedKey); failed {
		p.placeholder(w, raw, "recently failed")
		return
	}

	s, err := plan(raw, p.cfg.IPFSGateways, p.cfg.CDNAPIKey)
	if err != nil {
		p.placeholder(w, raw, err.Error())
		return
	}

	for attempt := 1; attempt <= p.cfg.MaxAttempts && s.mode != modeGiveUp; attempt++ {
		if ctx.Err() != nil {
			break
		}
		ok, f := p.fetch(ctx, w, s.url)
		if ok {
			p.metrics.ObserveImage("upstream")
			return
		}
		p.logger.Debug("image attempt failed",
			zap.Int("attempt", attempt),
			zap.Stringer("mode", s.mode),
			zap.String("url", p.redact(s.url)),
			zap.Int("status", f.status),
		)
		s.advance(f)
	}
	if ctx.Err() == nil {
		p.cache.SetWithTTL(cache.KindGeneric, failedKey, true, failedTTL)
	}
	p.placeholder(w, raw, "attempts exhausted")
}

// fetch performs one attempt. It writes to w only once the body is known to
// be an image.
func (p *Proxy) fetch(ctx context.Context, w http.ResponseWriter, target string) (bool, failure) {
	resp, err := p.client.Stream(ctx, p.provider, upstream.Request{
		Method:  http.MethodGet,
		URL:     target,
		Header:  http.Header{"Accept": {acceptHeader}},
		Timeout: fetchTimeout,
	})
	if err != nil {
		if ue, ok := upstream.AsError(err); ok && ue.Kind == upstream.KindHTTPStatus {
			return false, failure{kind: failStatus, status: ue.StatusCode}
		}
		return false, failure{kind: failNetwork}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.ContentLength > p.cfg.MaxBytes {
		return false, failure{kind: failContent}
	}
	br := bufio.NewReaderSize(resp.Body, sniffLen)
	head, err := br.Peek(sniffLen)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return false, failure{kind: failNetwork}
	}
	ct := contentType(resp.Header.Get("Content-Type"), head)
	if ct == "" {
		return false, failure{kind: failContent}
	}

	w.Header().Set("Content-Type", ct)
	w.Header().Set("Cache-Control", successCache)
	if resp.ContentLength >= 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(resp.ContentLength, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, io.LimitReader(br, p.cfg.MaxBytes)); err != nil {
		p.logger.Debug("image stream interrupted", zap.Error(err))
	}
	return true, failure{}
}

func (p *Proxy) placeholder(w http.ResponseWriter, raw, reason string) {
	p.metrics.ObserveImage("placeholder")
	p.logger.Info("serving image placeholder", zap.String("url", excerpt(raw)), zap.String("reason", reason))
	writePlaceholder(w, raw)
}

func (p *Proxy) redact(s string) string {
	if p.cfg.CDNAPIKey == "" {
		return s
	}
	return strings.ReplaceAll(s, p.cfg.CDNAPIKey, "***")
}
