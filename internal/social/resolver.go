// Package social resolves social identities to profiles and wallet
// addresses and enumerates following lists.
package social

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"go.uber.org/zap"

	"github.com/vanshika/nftgateway/internal/cache"
	"github.com/vanshika/nftgateway/internal/domain"
	"github.com/vanshika/nftgateway/internal/upstream"
)

const (
	// PublicAPIKey is the indexer's documented public key, used when none is configured.
	PublicAPIKey = "NEYNAR_API_DOCS"

	DefaultNeynarBaseURL  = "https://api.neynar.com"
	DefaultPageSize       = 100
	DefaultMaxFollowPages = 100
	searchLimit           = 10
)

// Config describes the social indexer and the portfolio GraphQL endpoints.
type Config struct {
	NeynarBaseURL     string
	NeynarAPIKey      string
	ZapperURLs        []string
	ZapperAPIKey      string
	PageSize          int
	MaxFollowingPages int
}

// Resolver turns handles into profiles. It is safe for concurrent use.
type Resolver struct {
	cfg    Config
	client *upstream.Client
	cache  *cache.Cache
	logger *zap.Logger
	clock  clock.Clock

	neynar upstream.Provider
	zapper []upstream.Endpoint
}

// NewResolver fills unset config with defaults.
func NewResolver(cfg Config, client *upstream.Client, c *cache.Cache, logger *zap.Logger, clk clock.Clock) *Resolver {
	if cfg.NeynarBaseURL == "" {
		cfg.NeynarBaseURL = DefaultNeynarBaseURL
	}
	cfg.NeynarBaseURL = strings.TrimRight(cfg.NeynarBaseURL, "/")
	if cfg.NeynarAPIKey == "" {
		cfg.NeynarAPIKey = PublicAPIKey
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.MaxFollowingPages <= 0 {
		cfg.MaxFollowingPages = DefaultMaxFollowPages
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if clk == nil {
		clk = clock.WallClock
	}
	r := &Resolver{
		cfg:    cfg,
		client: client,
		cache:  c,
		logger: logger,
		clock:  clk,
		neynar: upstream.NeynarProvider(cfg.NeynarAPIKey),
	}
	if cfg.ZapperAPIKey != "" {
		p := upstream.ZapperProvider(cfg.ZapperAPIKey)
		for _, u := range cfg.ZapperURLs {
			if u != "" {
				r.zapper = append(r.zapper, upstream.Endpoint{Provider: p, URL: u})
			}
		}
	}
	return r
}

type source struct {
	name  string
	fetch func(context.Context, domain.Handle) (domain.Profile, error)
}

// Resolve returns the profile for h from the cache, the indexer search, or
// the portfolio GraphQL endpoints, in that order. The first complete profile
// wins. It returns a NotFound error when some source reported the identity
// missing and none produced it.
func (r *Resolver) Resolve(ctx context.Context, h domain.Handle) (domain.Profile, error) {
	if p, ok := cache.Lookup[domain.Profile](r.cache, cache.KindProfiles, h.CacheKey()); ok {
		return p, nil
	}

	sources := []source{{name: "neynar", fetch: r.searchNeynar}}
	if len(r.zapper) > 0 {
		sources = append(sources, source{name: "zapper", fetch: r.queryZapper})
	} else {
		r.logger.Debug("portfolio api key not configured, skipping graphql profile lookup")
	}

	var lastErr error
	sawNotFound := false
	for _, src := range sources {
		p, err := src.fetch(ctx, h)
		if err == nil && !p.Complete() {
			err = &upstream.Error{Kind: upstream.KindDecode, Provider: src.name, Message: "incomplete profile"}
		}
		if err != nil {
			if ctx.Err() != nil {
				return domain.Profile{}, errors.Trace(err)
			}
			if upstream.IsNotFound(err) {
				sawNotFound = true
			} else {
				lastErr = err
			}
			r.logger.Debug("profile source failed",
				zap.String("source", src.name),
				zap.Stringer("handle", h),
				zap.Error(err),
			)
			continue
		}
		r.enrich(ctx, &p)
		p.FetchedAt = r.clock.Now().UTC()
		r.store(h, p)
		return p, nil
	}
	if sawNotFound || lastErr == nil {
		return domain.Profile{}, errors.NotFoundf("profile %s", h)
	}
	return domain.Profile{}, errors.Annotatef(lastErr, "resolving %s", h)
}

// store caches p under the requested handle and both of its canonical keys.
func (r *Resolver) store(h domain.Handle, p domain.Profile) {
	r.cache.Set(cache.KindProfiles, h.CacheKey(), p)
	r.cache.Set(cache.KindProfiles, domain.FIDHandle(p.FID).CacheKey(), p)
	if u, err := domain.NewUsernameHandle(p.Username); err == nil {
		r.cache.Set(cache.KindProfiles, u.CacheKey(), p)
	}
}

// enrich fills in verified addresses when the source returned none.
func (r *Resolver) enrich(ctx context.Context, p *domain.Profile) {
	for _, a := range p.ConnectedAddresses {
		if a != p.CustodyAddress {
			return
		}
	}
	resp, err := r.client.Call(ctx, r.neynar, upstream.Request{
		URL:   r.cfg.NeynarBaseURL + "/v1/farcaster/verifications",
		Query: url.Values{"fid": {strconv.FormatUint(p.FID, 10)}},
	})
	if err != nil {
		r.logger.Warn("address enrichment failed", zap.Uint64("fid", p.FID), zap.Error(err))
		return
	}
	p.MergeAddresses(verifiedAddresses(resp.Body))
}

func (r *Resolver) searchNeynar(ctx context.Context, h domain.Handle) (domain.Profile, error) {
	req := upstream.Request{Method: http.MethodGet}
	if fid, ok := h.FID(); ok {
		req.URL = r.cfg.NeynarBaseURL + "/v2/farcaster/user/bulk"
		req.Query = url.Values{"fids": {strconv.FormatUint(fid, 10)}}
	} else {
		req.URL = r.cfg.NeynarBaseURL + "/v2/farcaster/user/search"
		req.Query = url.Values{"q": {h.Value}, "limit": {strconv.Itoa(searchLimit)}}
	}
	resp, err := r.client.Call(ctx, r.neynar, req)
	if err != nil {
		return domain.Profile{}, errors.Trace(err)
	}
	m, err := upstream.Project(r.client.Metrics(), r.neynar.Name, resp.Body, upstream.ProfileProjections...)
	if err != nil {
		return domain.Profile{}, errors.Trace(err)
	}
	return r.pick(h, profilesFromMatch(m.Value))
}

// pick applies the exact-match policy: the username (case-insensitive) or
// fid equal to the handle, else the first result.
func (r *Resolver) pick(h domain.Handle, candidates []domain.Profile) (domain.Profile, error) {
	if len(candidates) == 0 {
		return domain.Profile{}, errors.NotFoundf("profile %s", h)
	}
	fid, isFID := h.FID()
	for _, p := range candidates {
		if isFID && p.FID == fid {
			return p, nil
		}
		if !isFID && strings.EqualFold(p.Username, h.Value) {
			return p, nil
		}
	}
	r.logger.Warn("approximate profile match",
		zap.Stringer("handle", h),
		zap.String("username", candidates[0].Username),
		zap.Uint64("fid", candidates[0].FID),
	)
	return candidates[0], nil
}

const farcasterProfileQuery = `query FarcasterProfile($username: String, $fid: Int) {
  farcasterProfile(username: $username, fid: $fid) {
    username
    fid
    custodyAddress
    connectedAddresses
    metadata {
      displayName
      description
      imageUrl
    }
  }
}`

var farcasterProfileProjection = upstream.Projection{Name: "farcasterProfile", Path: "farcasterProfile"}

func (r *Resolver) queryZapper(ctx context.Context, h domain.Handle) (domain.Profile, error) {
	vars := map[string]any{}
	if fid, ok := h.FID(); ok {
		vars["fid"] = fid
	} else {
		vars["username"] = h.Value
	}
	data, err := r.client.GraphQL(ctx, r.zapper, farcasterProfileQuery, vars)
	if err != nil {
		return domain.Profile{}, errors.Trace(err)
	}
	m, err := upstream.Project(r.client.Metrics(), "zapper", data, farcasterProfileProjection)
	if err != nil {
		// A null farcasterProfile is how the service reports an unknown identity.
		return domain.Profile{}, errors.NotFoundf("profile %s", h)
	}
	return profileFromJSON(m.Value), nil
}
