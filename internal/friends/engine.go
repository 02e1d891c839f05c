// Package friends answers which accounts a user follows hold a token in a
// given collection.
package friends

import (
	"context"
	"strconv"

	"github.com/juju/collections/set"
	"github.com/juju/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vanshika/nftgateway/internal/cache"
	"github.com/vanshika/nftgateway/internal/domain"
	"github.com/vanshika/nftgateway/internal/social"
)

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// FollowingLister enumerates the accounts an identity follows.
type FollowingLister interface {
	ListFollowing(ctx context.Context, fid uint64, opts social.FollowingOptions) (social.Following, error)
}

// OwnerLister returns the holders of a contract.
type OwnerLister interface {
	OwnersForContract(ctx context.Context, chain domain.Chain, contract domain.Address) (set.Strings, error)
}

// Query identifies one collection-friends request.
type Query struct {
	FID      uint64
	Chain    domain.Chain
	Contract domain.Address
	Limit    int
}

// Engine composes the social resolver and the NFT indexer.
type Engine struct {
	following FollowingLister
	owners    OwnerLister
	cache     *cache.Cache
	logger    *zap.Logger
}

// NewEngine returns an Engine.
func NewEngine(following FollowingLister, owners OwnerLister, c *cache.Cache, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{following: following, owners: owners, cache: c, logger: logger}
}

// CacheKey includes the chain because a contract address can exist on several chains.
func CacheKey(q Query) string {
	return cache.Key("friends", q.Chain.String(), q.Contract.String(), strconv.FormatUint(q.FID, 10))
}

// CollectionFriends lists the followed accounts' wallets that hold the
// collection. Following and owners are fetched in parallel. An incomplete
// following list fails the query.
func (e *Engine) CollectionFriends(ctx context.Context, q Query) (domain.FriendsResult, error) {
	switch {
	case q.Limit <= 0:
		q.Limit = DefaultLimit
	case q.Limit > MaxLimit:
		q.Limit = MaxLimit
	}

	key := CacheKey(q)
	if full, ok := cache.Lookup[domain.FriendsResult](e.cache, cache.KindFriends, key); ok {
		return full.Truncate(q.Limit), nil
	}

	var (
		following social.Following
		owners    set.Strings
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		f, err := e.following.ListFollowing(gctx, q.FID, social.FollowingOptions{})
		if err != nil {
			return errors.Annotatef(err, "following of fid %d", q.FID)
		}
		following = f
		return nil
	})
	g.Go(func() error {
		o, err := e.owners.OwnersForContract(gctx, q.Chain, q.Contract)
		if err != nil {
			return errors.Annotatef(err, "owners of %s on %s", q.Contract, q.Chain)
		}
		owners = o
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.FriendsResult{}, err
	}

	full := Intersect(following.Profiles, owners)
	full.Contract = q.Contract
	full.Network = q.Chain
	full.FID = q.FID
	e.logger.Debug("collection friends computed",
		zap.Uint64("fid", q.FID),
		zap.Stringer("contract", q.Contract),
		zap.Int("following", len(following.Profiles)),
		zap.Int("owners", owners.Size()),
		zap.Int("matches", full.Total),
	)
	e.cache.Set(cache.KindFriends, key, full)
	return full.Truncate(q.Limit), nil
}

// Intersect emits one FriendOwner per followed address that is in owners.
// Each address is attributed to the first profile, in following order, that
// lists it.
func Intersect(following []domain.Profile, owners set.Strings) domain.FriendsResult {
	res := domain.FriendsResult{Friends: []domain.FriendOwner{}}
	seen := set.NewStrings()
	for _, p := range following {
		for _, addr := range p.Addresses() {
			a := string(addr)
			if seen.Contains(a) {
				continue
			}
			seen.Add(a)
			if !owners.Contains(a) {
				continue
			}
			res.Friends = append(res.Friends, domain.FriendOwner{
				FID:         p.FID,
				Username:    p.Username,
				DisplayName: p.DisplayName,
				ImageURL:    p.ImageURL,
				Address:     addr,
			})
		}
	}
	res.Total = len(res.Friends)
	return res
}
