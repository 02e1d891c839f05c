package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Nft is a normalized token holding.
type Nft struct {
	Chain             Chain            `json:"chain"`
	Contract          Address          `json:"contract"`
	TokenID           string           `json:"tokenId"`
	OwnerAddress      Address          `json:"ownerAddress"`
	Name              string           `json:"name"`
	CollectionName    string           `json:"collectionName"`
	MediaURLs         []string         `json:"mediaUrls"`
	FloorPriceUSD     *decimal.Decimal `json:"floorPriceUsd,omitempty"`
	TransferTimestamp *time.Time       `json:"transferTimestamp,omitempty"`
}

// NftPage is one page of an owner's holdings.
type NftPage struct {
	OwnedNfts  []Nft  `json:"ownedNfts"`
	PageKey    string `json:"pageKey,omitempty"`
	TotalCount *int64 `json:"totalCount,omitempty"`
}

// TokenKey identifies a token within a chain.
type TokenKey struct {
	Contract Address
	TokenID  string
}

// Transfer is a single ERC721/ERC1155 transfer event.
type Transfer struct {
	Chain     Chain     `json:"chain"`
	Contract  Address   `json:"contract"`
	TokenID   string    `json:"tokenId"`
	From      Address   `json:"from"`
	To        Address   `json:"to"`
	Timestamp time.Time `json:"timestamp"`
	TxHash    string    `json:"txHash"`
}

// TransferIndex keeps the latest transfer per token plus the flat event list.
type TransferIndex struct {
	Chain     Chain                 `json:"chain"`
	Owners    []Address             `json:"owners"`
	Latest    map[TokenKey]Transfer `json:"-"`
	Transfers []Transfer            `json:"transfers"`
}

// NewTransferIndex returns an empty index for chain and owners.
func NewTransferIndex(chain Chain, owners []Address) *TransferIndex {
	return &TransferIndex{
		Chain:     chain,
		Owners:    owners,
		Latest:    make(map[TokenKey]Transfer),
		Transfers: []Transfer{},
	}
}

// Add records t, replacing the latest entry for its token when t is newer.
func (idx *TransferIndex) Add(t Transfer) {
	idx.Transfers = append(idx.Transfers, t)
	key := TokenKey{Contract: t.Contract, TokenID: t.TokenID}
	if cur, ok := idx.Latest[key]; !ok || t.Timestamp.After(cur.Timestamp) {
		idx.Latest[key] = t
	}
}

// LatestFor returns the most recent transfer of the token, if any.
func (idx *TransferIndex) LatestFor(contract Address, tokenID string) (Transfer, bool) {
	if idx == nil {
		return Transfer{}, false
	}
	t, ok := idx.Latest[TokenKey{Contract: contract, TokenID: tokenID}]
	return t, ok
}
