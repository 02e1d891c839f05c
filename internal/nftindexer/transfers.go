package nftindexer

import (
	"context"
	"time"

	"github.com/juju/errors"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"github.com/vanshika/nftgateway/internal/cache"
	"github.com/vanshika/nftgateway/internal/domain"
)

const (
	transferMaxCount   = "0x64"
	transferConcurrent = 4
)

var transferCategories = []string{"erc721", "erc1155"}

func transfersKey(chain domain.Chain, owners []domain.Address) string {
	return cache.Key("getAssetTransfers", chain.String(), cache.AddressList(owners))
}

// AssetTransfers indexes the latest ERC721/ERC1155 transfers into addresses
// on chain. The RPC accepts a single toAddress, so one call covering both
// categories is made per address. Each address's own index is cached too,
// which is what NftsForOwner enrichment reads.
func (c *Client) AssetTransfers(ctx context.Context, chain domain.Chain, addresses []domain.Address) (*domain.TransferIndex, error) {
	if len(addresses) == 0 {
		return nil, errors.BadRequestf("at least one address is required")
	}
	key := transfersKey(chain, addresses)
	if idx, ok := cache.Lookup[*domain.TransferIndex](c.cache, cache.KindTransfers, key); ok {
		return idx, nil
	}

	perAddress := make([][]domain.Transfer, len(addresses))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(transferConcurrent)
	for i, addr := range addresses {
		g.Go(func() error {
			transfers, err := c.transfersTo(gctx, chain, addr)
			if err != nil {
				return errors.Annotatef(err, "alchemy_getAssetTransfers to %s on %s", addr, chain)
			}
			perAddress[i] = transfers
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := domain.NewTransferIndex(chain, addresses)
	for i, addr := range addresses {
		own := domain.NewTransferIndex(chain, []domain.Address{addr})
		for _, t := range perAddress[i] {
			own.Add(t)
			merged.Add(t)
		}
		if len(addresses) > 1 {
			c.cache.Set(cache.KindTransfers, transfersKey(chain, []domain.Address{addr}), own)
		}
	}
	c.cache.Set(cache.KindTransfers, key, merged)
	return merged, nil
}

func (c *Client) transfersTo(ctx context.Context, chain domain.Chain, to domain.Address) ([]domain.Transfer, error) {
	result, err := c.rpc(ctx, chain, "alchemy_getAssetTransfers", []any{map[string]any{
		"fromBlock":        "0x0",
		"toBlock":          "latest",
		"toAddress":        to.String(),
		"category":         transferCategories,
		"order":            "desc",
		"maxCount":         transferMaxCount,
		"withMetadata":     true,
		"excludeZeroValue": false,
	}})
	if err != nil {
		return nil, err
	}
	var out []domain.Transfer
	for _, item := range result.Get("transfers").Array() {
		out = append(out, parseTransfers(item, chain)...)
	}
	return out, nil
}

// parseTransfers expands one RPC transfer item; ERC1155 batch items carry
// several token ids.
func parseTransfers(item gjson.Result, chain domain.Chain) []domain.Transfer {
	contract, err := domain.ParseAddress(item.Get("rawContract.address").String())
	if err != nil {
		return nil
	}
	base := domain.Transfer{
		Chain:    chain,
		Contract: contract,
		From:     domain.Address(item.Get("from").String()),
		To:       domain.Address(item.Get("to").String()),
		TxHash:   item.Get("hash").String(),
	}
	if a, err := domain.ParseAddress(string(base.From)); err == nil {
		base.From = a
	}
	if a, err := domain.ParseAddress(string(base.To)); err == nil {
		base.To = a
	}
	if ts, err := time.Parse(time.RFC3339Nano, item.Get("metadata.blockTimestamp").String()); err == nil {
		base.Timestamp = ts.UTC()
	}

	var ids []string
	if meta := item.Get("erc1155Metadata"); meta.IsArray() && len(meta.Array()) > 0 {
		for _, m := range meta.Array() {
			ids = append(ids, m.Get("tokenId").String())
		}
	} else if id := item.Get("erc721TokenId").String(); id != "" {
		ids = append(ids, id)
	} else if id := item.Get("tokenId").String(); id != "" {
		ids = append(ids, id)
	}

	out := make([]domain.Transfer, 0, len(ids))
	for _, id := range ids {
		t := base
		t.TokenID = normalizeTokenID(id)
		out = append(out, t)
	}
	return out
}
