package nftindexer

import (
	"context"
	"net/http"
	"net/url"

	"github.com/juju/collections/set"
	"github.com/juju/errors"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/vanshika/nftgateway/internal/cache"
	"github.com/vanshika/nftgateway/internal/domain"
	"github.com/vanshika/nftgateway/internal/upstream"
)

// OwnersForContract returns every owner of contract on chain, lowercased.
// A 4xx/5xx from the REST endpoint triggers one legacy JSON-RPC attempt.
func (c *Client) OwnersForContract(ctx context.Context, chain domain.Chain, contract domain.Address) (set.Strings, error) {
	key := cache.Key("getOwnersForContract", chain.String(), contract.String())
	if owners, ok := cache.Lookup[set.Strings](c.cache, cache.KindGeneric, key); ok {
		return owners, nil
	}

	endpoint, err := c.NftURL(chain, "getOwnersForContract")
	if err != nil {
		return nil, err
	}
	pages := upstream.NewPages(func(ctx context.Context, pageKey string) ([]domain.Address, string, error) {
		q := url.Values{
			"contractAddress":   {contract.String()},
			"withTokenBalances": {"false"},
		}
		if pageKey != "" {
			q.Set("pageKey", pageKey)
		}
		resp, err := c.client.Call(ctx, c.provider, upstream.Request{Method: http.MethodGet, URL: endpoint, Query: q})
		if err != nil {
			return nil, "", err
		}
		owners := gjson.GetBytes(resp.Body, "owners")
		if !owners.IsArray() {
			return nil, "", &upstream.Error{Kind: upstream.KindDecode, Provider: c.provider.Name, Message: "getOwnersForContract response has no owners"}
		}
		return ownerAddresses(owners), gjson.GetBytes(resp.Body, "pageKey").String(), nil
	}, c.cfg.MaxOwnerPages)

	all, err := upstream.Collect(ctx, pages)
	if err != nil {
		if !upstream.IsStatus(err) || ctx.Err() != nil {
			return nil, errors.Annotatef(err, "getOwnersForContract %s on %s", contract, chain)
		}
		c.logger.Warn("owners endpoint failed, trying legacy rpc",
			zap.Stringer("chain", chain),
			zap.Stringer("contract", contract),
			zap.Error(err),
		)
		all, err = c.legacyOwners(ctx, chain, contract)
		if err != nil {
			return nil, errors.Annotatef(err, "alchemy_getOwnersForToken %s on %s", contract, chain)
		}
	}
	if pages.Capped() {
		c.logger.Info("owners enumeration reached page cap",
			zap.Stringer("contract", contract),
			zap.Int("pages", pages.Fetched()),
		)
	}

	owners := set.NewStrings(domain.AddressStrings(all)...)
	c.cache.Set(cache.KindGeneric, key, owners)
	return owners, nil
}

func (c *Client) legacyOwners(ctx context.Context, chain domain.Chain, contract domain.Address) ([]domain.Address, error) {
	result, err := c.rpc(ctx, chain, "alchemy_getOwnersForToken", []any{contract.String()})
	if err != nil {
		return nil, err
	}
	owners := result
	if !owners.IsArray() {
		owners = result.Get("owners")
	}
	if !owners.IsArray() {
		return nil, &upstream.Error{Kind: upstream.KindDecode, Provider: c.provider.Name, Message: "alchemy_getOwnersForToken result has no owners"}
	}
	return ownerAddresses(owners), nil
}

// ownerAddresses accepts both "0x…" and {"ownerAddress": "0x…"} items.
func ownerAddresses(items gjson.Result) []domain.Address {
	var raw []string
	for _, item := range items.Array() {
		if item.IsObject() {
			item = item.Get("ownerAddress")
		}
		raw = append(raw, item.String())
	}
	return domain.NormalizeAddresses(raw)
}
