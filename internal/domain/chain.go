package domain

import "strings"

// Chain is one of the EVM networks the gateway indexes.
type Chain string

const (
	ChainEthereum Chain = "ethereum"
	ChainPolygon  Chain = "polygon"
	ChainArbitrum Chain = "arbitrum"
	ChainOptimism Chain = "optimism"
	ChainBase     Chain = "base"
	ChainZora     Chain = "zora"
)

// Chains lists every supported chain in display order.
var Chains = []Chain{ChainEthereum, ChainPolygon, ChainArbitrum, ChainOptimism, ChainBase, ChainZora}

var chainAliases = map[string]Chain{
	"ethereum": ChainEthereum,
	"eth":      ChainEthereum,
	"mainnet":  ChainEthereum,
	"polygon":  ChainPolygon,
	"matic":    ChainPolygon,
	"arbitrum": ChainArbitrum,
	"arb":      ChainArbitrum,
	"optimism": ChainOptimism,
	"opt":      ChainOptimism,
	"base":     ChainBase,
	"zora":     ChainZora,
}

var alchemyNetworks = map[Chain]string{
	ChainEthereum: "eth-mainnet",
	ChainPolygon:  "polygon-mainnet",
	ChainArbitrum: "arb-mainnet",
	ChainOptimism: "opt-mainnet",
	ChainBase:     "base-mainnet",
	ChainZora:     "zora-mainnet",
}

// ParseChain folds aliases. ok is false for values outside the closed set.
func ParseChain(s string) (Chain, bool) {
	c, ok := chainAliases[strings.ToLower(strings.TrimSpace(s))]
	return c, ok
}

// ChainOrDefault maps unknown values to ethereum. Callers at the edge log the fallback.
func ChainOrDefault(s string) (Chain, bool) {
	if c, ok := ParseChain(s); ok {
		return c, true
	}
	return ChainEthereum, false
}

// AlchemyNetwork returns the network subdomain used by the NFT indexer.
func (c Chain) AlchemyNetwork() string {
	if n, ok := alchemyNetworks[c]; ok {
		return n
	}
	return alchemyNetworks[ChainEthereum]
}

func (c Chain) String() string { return string(c) }
