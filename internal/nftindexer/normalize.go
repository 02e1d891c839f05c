package nftindexer

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"github.com/vanshika/nftgateway/internal/domain"
)

var (
	collectionNamePaths = []string{"contract.name", "collection.name", "contract.openSeaMetadata.collectionName"}
	tokenNamePaths      = []string{"name", "title", "raw.metadata.name"}
	mediaPaths          = []string{"image.cachedUrl", "image.thumbnailUrl", "image.pngUrl", "image.originalUrl", "raw.metadata.image"}
)

func firstString(v gjson.Result, paths []string) string {
	for _, p := range paths {
		if s := strings.TrimSpace(v.Get(p).String()); s != "" {
			return s
		}
	}
	return ""
}

// normalizeNft maps one ownedNfts item onto the Nft model. Items without a
// valid contract address are dropped.
func normalizeNft(v gjson.Result, chain domain.Chain, owner domain.Address) (domain.Nft, bool) {
	contract, err := domain.ParseAddress(v.Get("contract.address").String())
	if err != nil {
		return domain.Nft{}, false
	}
	tokenID := normalizeTokenID(v.Get("tokenId").String())

	n := domain.Nft{
		Chain:          chain,
		Contract:       contract,
		TokenID:        tokenID,
		OwnerAddress:   owner,
		Name:           firstString(v, tokenNamePaths),
		CollectionName: firstString(v, collectionNamePaths),
		MediaURLs:      mediaURLs(v),
	}
	if n.Name == "" {
		n.Name = "#" + tokenID
	}
	if n.CollectionName == "" {
		n.CollectionName = "Contract " + contract.Short()
	}
	if fp := v.Get("contract.openSeaMetadata.floorPrice"); fp.Type == gjson.Number {
		if d, err := decimal.NewFromString(fp.Raw); err == nil {
			n.FloorPriceUSD = &d
		}
	}
	return n, true
}

func mediaURLs(v gjson.Result) []string {
	out := []string{}
	seen := make(map[string]struct{})
	for _, p := range mediaPaths {
		s := strings.TrimSpace(v.Get(p).String())
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// normalizeTokenID renders hex ids ("0x1f") in decimal so REST and RPC
// payloads agree on token identity.
func normalizeTokenID(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return s
	}
	n, ok := new(big.Int).SetString(s[2:], 16)
	if !ok {
		return s
	}
	return n.String()
}
