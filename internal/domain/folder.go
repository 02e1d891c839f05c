package domain

import "time"

// Folder is a user curated list of tokens.
type Folder struct {
	ID          string       `json:"id"`
	Owner       string       `json:"owner"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	IsPublic    bool         `json:"isPublic"`
	Items       []FolderItem `json:"items"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// FolderItem references a token by chain, contract and id.
type FolderItem struct {
	Chain    Chain     `json:"chain"`
	Contract Address   `json:"contract"`
	TokenID  string    `json:"tokenId"`
	AddedAt  time.Time `json:"addedAt"`
}

// Key identifies the item within a folder.
func (i FolderItem) Key() string {
	return string(i.Chain) + ":" + string(i.Contract) + ":" + i.TokenID
}
