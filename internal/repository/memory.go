package repository

import (
	"context"
	"sort"

	"github.com/juju/errors"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/vanshika/nftgateway/internal/domain"
)

// MemoryFolderStore keeps folders in process memory. It serves deployments
// without GRAPH_URI and tests.
type MemoryFolderStore struct {
	folders *xsync.MapOf[string, domain.Folder]
}

// NewMemoryFolderStore returns an empty store.
func NewMemoryFolderStore() *MemoryFolderStore {
	return &MemoryFolderStore{folders: xsync.NewMapOf[string, domain.Folder]()}
}

func (s *MemoryFolderStore) Create(_ context.Context, f domain.Folder) error {
	if f.ID == "" {
		return errors.NotValidf("empty folder id")
	}
	if _, loaded := s.folders.LoadOrStore(f.ID, clone(f)); loaded {
		return errors.AlreadyExistsf("folder %s", f.ID)
	}
	return nil
}

func (s *MemoryFolderStore) Get(_ context.Context, id string) (domain.Folder, error) {
	f, ok := s.folders.Load(id)
	if !ok {
		return domain.Folder{}, errors.NotFoundf("folder %s", id)
	}
	return clone(f), nil
}

func (s *MemoryFolderStore) ListByOwner(_ context.Context, owner string) ([]domain.Folder, error) {
	return s.collect(func(f domain.Folder) bool { return f.Owner == owner }), nil
}

func (s *MemoryFolderStore) ListPublic(context.Context) ([]domain.Folder, error) {
	return s.collect(func(f domain.Folder) bool { return f.IsPublic }), nil
}

func (s *MemoryFolderStore) Update(_ context.Context, f domain.Folder) error {
	var found bool
	s.folders.Compute(f.ID, func(_ domain.Folder, loaded bool) (domain.Folder, bool) {
		found = loaded
		// Returning delete=true for a missing key leaves the map unchanged.
		return clone(f), !loaded
	})
	if !found {
		return errors.NotFoundf("folder %s", f.ID)
	}
	return nil
}

func (s *MemoryFolderStore) Delete(_ context.Context, id string) error {
	if _, loaded := s.folders.LoadAndDelete(id); !loaded {
		return errors.NotFoundf("folder %s", id)
	}
	return nil
}

func (s *MemoryFolderStore) collect(keep func(domain.Folder) bool) []domain.Folder {
	out := []domain.Folder{}
	s.folders.Range(func(_ string, f domain.Folder) bool {
		if keep(f) {
			out = append(out, clone(f))
		}
		return true
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func clone(f domain.Folder) domain.Folder {
	f.Items = append([]domain.FolderItem{}, f.Items...)
	return f
}
