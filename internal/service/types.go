package service

import (
	"context"

	"github.com/vanshika/nftgateway/internal/domain"
)

// FolderStore is the persistence contract behind folder CRUD.
type FolderStore interface {
	Create(ctx context.Context, f domain.Folder) error
	Get(ctx context.Context, id string) (domain.Folder, error)
	ListByOwner(ctx context.Context, owner string) ([]domain.Folder, error)
	ListPublic(ctx context.Context) ([]domain.Folder, error)
	Update(ctx context.Context, f domain.Folder) error
	Delete(ctx context.Context, id string) error
}

// ItemInput is an inbound token reference. Contract accepts the
// contractAddress spelling as well.
type ItemInput struct {
	Chain           string `json:"chain"`
	Contract        string `json:"contract"`
	ContractAddress string `json:"contractAddress,omitempty"`
	TokenID         string `json:"tokenId"`
}

// FolderInput is the payload for creating or replacing a folder.
type FolderInput struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	IsPublic    bool        `json:"isPublic"`
	Items       []ItemInput `json:"items"`
}

// FolderPatch carries a partial update; nil fields are left untouched.
type FolderPatch struct {
	Name        *string      `json:"name"`
	Description *string      `json:"description"`
	IsPublic    *bool        `json:"isPublic"`
	Items       *[]ItemInput `json:"items"`
}

// ImportRecord seeds one folder for an owner.
type ImportRecord struct {
	Owner  string      `json:"owner"`
	Folder FolderInput `json:"folder"`
}
