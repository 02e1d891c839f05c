package nftindexer

import (
	"context"

	"github.com/juju/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vanshika/nftgateway/internal/domain"
	"github.com/vanshika/nftgateway/internal/upstream"
)

const multichainConcurrent = 8

// QueryError reports one failed (chain, owner) leg of a fan-out.
type QueryError struct {
	Chain domain.Chain   `json:"chain"`
	Owner domain.Address `json:"owner"`
	Error string         `json:"error"`
}

// MultichainResult is the concatenation of every leg, in request order.
type MultichainResult struct {
	OwnedNfts []domain.Nft `json:"ownedNfts"`
	Errors    []QueryError `json:"errors,omitempty"`
}

type leg struct {
	chain domain.Chain
	owner domain.Address
	nfts  []domain.Nft
	err   error
}

// NftsAcrossChains fetches up to maxPages pages per (chain, owner) in
// parallel. A failing leg is reported in Errors; the query only fails when
// every leg fails.
func (c *Client) NftsAcrossChains(ctx context.Context, chains []domain.Chain, owners []domain.Address, maxPages int) (MultichainResult, error) {
	if len(chains) == 0 || len(owners) == 0 {
		return MultichainResult{}, errors.BadRequestf("chains and owners are required")
	}
	if !c.Configured() {
		return MultichainResult{}, errors.Trace(ErrNotConfigured)
	}
	if maxPages <= 0 {
		maxPages = 1
	}

	legs := make([]leg, 0, len(chains)*len(owners))
	for _, chain := range chains {
		for _, owner := range owners {
			legs = append(legs, leg{chain: chain, owner: owner})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(multichainConcurrent)
	for i := range legs {
		l := &legs[i]
		g.Go(func() error {
			pages := upstream.NewPages(func(ctx context.Context, pageKey string) ([]domain.Nft, string, error) {
				page, err := c.NftsForOwner(ctx, l.chain, l.owner, Options{PageKey: pageKey})
				return page.OwnedNfts, page.PageKey, err
			}, maxPages)
			l.nfts, l.err = upstream.Collect(gctx, pages)
			if l.err != nil {
				c.logger.Warn("multichain leg failed",
					zap.Stringer("chain", l.chain),
					zap.Stringer("owner", l.owner),
					zap.Error(l.err),
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	out := MultichainResult{OwnedNfts: []domain.Nft{}}
	var firstErr error
	for _, l := range legs {
		out.OwnedNfts = append(out.OwnedNfts, l.nfts...)
		if l.err != nil {
			if firstErr == nil {
				firstErr = l.err
			}
			out.Errors = append(out.Errors, QueryError{Chain: l.chain, Owner: l.owner, Error: l.err.Error()})
		}
	}
	if len(out.Errors) == len(legs) {
		return MultichainResult{}, errors.Trace(firstErr)
	}
	return out, nil
}
