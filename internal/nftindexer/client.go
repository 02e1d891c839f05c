// Package nftindexer queries the multi-chain NFT indexer: holdings by owner,
// owners of a contract and asset transfers.
package nftindexer

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/juju/errors"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/vanshika/nftgateway/internal/cache"
	"github.com/vanshika/nftgateway/internal/domain"
	"github.com/vanshika/nftgateway/internal/upstream"
)

const (
	// DefaultBaseURLTemplate has {network} replaced by the chain's subdomain.
	DefaultBaseURLTemplate = "https://{network}.g.alchemy.com"

	DefaultPageSize      = 100
	DefaultMaxOwnerPages = 100
	spamFilter           = "SPAM"
)

// ErrNotConfigured is returned by every query when no API key is set.
const ErrNotConfigured = errors.ConstError("nft indexer api key not configured")

// Config configures the indexer client.
type Config struct {
	APIKey          string
	BaseURLTemplate string
	MaxOwnerPages   int
}

// Client is safe for concurrent use.
type Client struct {
	cfg      Config
	client   *upstream.Client
	cache    *cache.Cache
	logger   *zap.Logger
	provider upstream.Provider
}

// New fills unset config with defaults.
func New(cfg Config, client *upstream.Client, c *cache.Cache, logger *zap.Logger) *Client {
	if cfg.BaseURLTemplate == "" {
		cfg.BaseURLTemplate = DefaultBaseURLTemplate
	}
	if cfg.MaxOwnerPages <= 0 {
		cfg.MaxOwnerPages = DefaultMaxOwnerPages
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:      cfg,
		client:   client,
		cache:    c,
		logger:   logger,
		provider: upstream.AlchemyProvider(cfg.APIKey),
	}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool { return c.cfg.APIKey != "" }

// BaseURL is the chain's indexer host.
func (c *Client) BaseURL(chain domain.Chain) string {
	return strings.TrimRight(strings.ReplaceAll(c.cfg.BaseURLTemplate, "{network}", chain.AlchemyNetwork()), "/")
}

// NftURL is the REST endpoint URL for the NFT API.
func (c *Client) NftURL(chain domain.Chain, endpoint string) (string, error) {
	if !c.Configured() {
		return "", errors.Trace(ErrNotConfigured)
	}
	return c.BaseURL(chain) + "/nft/v3/" + c.cfg.APIKey + "/" + endpoint, nil
}

// RPCURL is the JSON-RPC endpoint URL.
func (c *Client) RPCURL(chain domain.Chain) (string, error) {
	if !c.Configured() {
		return "", errors.Trace(ErrNotConfigured)
	}
	return c.BaseURL(chain) + "/v2/" + c.cfg.APIKey, nil
}

// Options tunes NftsForOwner. A nil ExcludeFilters means [SPAM]; an empty
// non-nil slice disables filtering.
type Options struct {
	PageKey        string
	PageSize       int
	ExcludeFilters []string
}

func (o Options) normalized() Options {
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	if o.ExcludeFilters == nil {
		o.ExcludeFilters = []string{spamFilter}
	}
	return o
}

// OwnerQuery returns the request parameters for a getNFTsForOwner call.
func OwnerQuery(owner domain.Address, opts Options) url.Values {
	opts = opts.normalized()
	q := url.Values{
		"owner":        {owner.String()},
		"withMetadata": {"true"},
		"pageSize":     {strconv.Itoa(opts.PageSize)},
	}
	for _, f := range opts.ExcludeFilters {
		q.Add("excludeFilters[]", f)
	}
	if opts.PageKey != "" {
		q.Set("pageKey", opts.PageKey)
	}
	return q
}

// NftsForOwner returns one page of owner's holdings on chain, enriched with
// transfer timestamps when a transfer index for the owner is cached.
func (c *Client) NftsForOwner(ctx context.Context, chain domain.Chain, owner domain.Address, opts Options) (domain.NftPage, error) {
	opts = opts.normalized()
	key := cache.Key("getNFTsForOwner", chain.String(), owner.String(),
		strconv.Itoa(opts.PageSize), strings.Join(opts.ExcludeFilters, ","), opts.PageKey)

	page, ok := cache.Lookup[domain.NftPage](c.cache, cache.KindGeneric, key)
	if !ok {
		endpoint, err := c.NftURL(chain, "getNFTsForOwner")
		if err != nil {
			return domain.NftPage{}, err
		}
		resp, err := c.client.Call(ctx, c.provider, upstream.Request{
			Method: http.MethodGet,
			URL:    endpoint,
			Query:  OwnerQuery(owner, opts),
		})
		if err != nil {
			return domain.NftPage{}, errors.Annotatef(err, "getNFTsForOwner %s on %s", owner, chain)
		}
		page, err = parseOwnedNfts(resp.Body, chain, owner)
		if err != nil {
			return domain.NftPage{}, errors.Trace(err)
		}
		c.cache.Set(cache.KindGeneric, key, page)
	}
	return c.enrich(chain, owner, page), nil
}

// enrich copies page, stamping transferTimestamp from a cached index.
func (c *Client) enrich(chain domain.Chain, owner domain.Address, page domain.NftPage) domain.NftPage {
	idx, ok := cache.Lookup[*domain.TransferIndex](c.cache, cache.KindTransfers, transfersKey(chain, []domain.Address{owner}))
	if !ok {
		return page
	}
	out := page
	out.OwnedNfts = make([]domain.Nft, len(page.OwnedNfts))
	for i, n := range page.OwnedNfts {
		if t, hit := idx.LatestFor(n.Contract, n.TokenID); hit {
			ts := t.Timestamp
			n.TransferTimestamp = &ts
		}
		out.OwnedNfts[i] = n
	}
	return out
}

func parseOwnedNfts(body []byte, chain domain.Chain, owner domain.Address) (domain.NftPage, error) {
	if !gjson.ValidBytes(body) {
		return domain.NftPage{}, &upstream.Error{Kind: upstream.KindDecode, Provider: "alchemy", Message: "getNFTsForOwner response is not valid JSON"}
	}
	root := gjson.ParseBytes(body)
	owned := root.Get("ownedNfts")
	if !owned.IsArray() {
		return domain.NftPage{}, &upstream.Error{Kind: upstream.KindDecode, Provider: "alchemy", Message: "getNFTsForOwner response has no ownedNfts"}
	}
	page := domain.NftPage{
		OwnedNfts: []domain.Nft{},
		PageKey:   root.Get("pageKey").String(),
	}
	if tc := root.Get("totalCount"); tc.Exists() {
		n := tc.Int()
		page.TotalCount = &n
	}
	for _, raw := range owned.Array() {
		if n, ok := normalizeNft(raw, chain, owner); ok {
			page.OwnedNfts = append(page.OwnedNfts, n)
		}
	}
	return page, nil
}
