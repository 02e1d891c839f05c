package social

import (
	"context"
	"net/url"
	"strconv"

	"github.com/juju/errors"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/vanshika/nftgateway/internal/cache"
	"github.com/vanshika/nftgateway/internal/domain"
	"github.com/vanshika/nftgateway/internal/upstream"
)

// FollowingOptions overrides the configured page size and page cap.
type FollowingOptions struct {
	PageSize int
	MaxPages int
}

// Following is the enumerated following list of one identity, deduplicated
// by fid in upstream page order.
type Following struct {
	FID          uint64           `json:"fid"`
	Profiles     []domain.Profile `json:"users"`
	Partial      bool             `json:"partial"`
	Capped       bool             `json:"capped"`
	PagesFetched int              `json:"pagesFetched"`
}

// ListFollowing walks the cursor-paged following endpoint. When a page fails
// it returns what was gathered so far with Partial set, together with the
// error. Complete results are cached.
func (r *Resolver) ListFollowing(ctx context.Context, fid uint64, opts FollowingOptions) (Following, error) {
	if opts.PageSize <= 0 {
		opts.PageSize = r.cfg.PageSize
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = r.cfg.MaxFollowingPages
	}
	key := cache.Key("following", "fid", strconv.FormatUint(fid, 10), strconv.Itoa(opts.PageSize))
	if f, ok := cache.Lookup[Following](r.cache, cache.KindProfiles, key); ok {
		return f, nil
	}

	pages := upstream.NewPages(r.followingPages(fid, opts.PageSize), opts.MaxPages)
	out := Following{FID: fid, Profiles: []domain.Profile{}}
	seen := make(map[uint64]struct{})
	for {
		page, ok := pages.Next(ctx)
		if !ok {
			break
		}
		for _, p := range page {
			if p.FID == 0 {
				continue
			}
			if _, dup := seen[p.FID]; dup {
				continue
			}
			seen[p.FID] = struct{}{}
			out.Profiles = append(out.Profiles, p)
		}
	}
	out.PagesFetched = pages.Fetched()
	out.Capped = pages.Capped()

	if err := pages.Err(); err != nil {
		out.Partial = true
		r.logger.Warn("following enumeration incomplete",
			zap.Uint64("fid", fid),
			zap.Int("pages", out.PagesFetched),
			zap.Int("profiles", len(out.Profiles)),
			zap.Error(err),
		)
		return out, errors.Annotatef(err, "listing following of fid %d", fid)
	}
	if out.Capped {
		r.logger.Info("following enumeration reached page cap",
			zap.Uint64("fid", fid),
			zap.Int("pages", out.PagesFetched),
		)
	}
	r.cache.Set(cache.KindProfiles, key, out)
	return out, nil
}

// followingPages reads the v2 endpoint and switches to the v1 adapter for
// the whole enumeration when the first v2 page fails.
func (r *Resolver) followingPages(fid uint64, pageSize int) upstream.PageFunc[domain.Profile] {
	useV1 := false
	return func(ctx context.Context, cursor string) ([]domain.Profile, string, error) {
		if !useV1 {
			items, next, err := r.followingV2(ctx, fid, pageSize, cursor)
			if err == nil || cursor != "" || ctx.Err() != nil {
				return items, next, err
			}
			r.logger.Warn("following v2 endpoint failed, using v1 adapter",
				zap.Uint64("fid", fid),
				zap.Error(err),
			)
			useV1 = true
		}
		return r.followingV1(ctx, fid, pageSize, cursor)
	}
}

func (r *Resolver) followingV2(ctx context.Context, fid uint64, pageSize int, cursor string) ([]domain.Profile, string, error) {
	return r.followingPage(ctx, "/v2/farcaster/following", fid, pageSize, cursor, "users", "next.cursor")
}

func (r *Resolver) followingV1(ctx context.Context, fid uint64, pageSize int, cursor string) ([]domain.Profile, string, error) {
	return r.followingPage(ctx, "/v1/farcaster/following", fid, pageSize, cursor, "result.users", "result.next.cursor")
}

func (r *Resolver) followingPage(ctx context.Context, path string, fid uint64, pageSize int, cursor, usersPath, cursorPath string) ([]domain.Profile, string, error) {
	q := url.Values{
		"fid":   {strconv.FormatUint(fid, 10)},
		"limit": {strconv.Itoa(pageSize)},
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	resp, err := r.client.Call(ctx, r.neynar, upstream.Request{URL: r.cfg.NeynarBaseURL + path, Query: q})
	if err != nil {
		return nil, "", errors.Trace(err)
	}
	users := gjson.GetBytes(resp.Body, usersPath)
	if !users.IsArray() {
		return nil, "", &upstream.Error{Kind: upstream.KindDecode, Provider: r.neynar.Name, Message: "following page has no " + usersPath + " array"}
	}
	r.client.Metrics().ObserveProjection(r.neynar.Name, usersPath)
	return profilesFromMatch(users), gjson.GetBytes(resp.Body, cursorPath).String(), nil
}
