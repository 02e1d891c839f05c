package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/juju/clock"
	"github.com/juju/errors"
	"go.uber.org/zap"

	"github.com/vanshika/nftgateway/internal/domain"
)

// FolderService applies validation and ownership rules over a FolderStore.
type FolderService struct {
	store  FolderStore
	clock  clock.Clock
	newID  func() string
	logger *zap.Logger
}

// NewFolderService wires a service. A nil clock means the wall clock.
func NewFolderService(store FolderStore, clk clock.Clock, logger *zap.Logger) *FolderService {
	if clk == nil {
		clk = clock.WallClock
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FolderService{
		store:  store,
		clock:  clk,
		newID:  uuid.NewString,
		logger: logger,
	}
}

// Create validates in and stores a new folder owned by owner.
func (s *FolderService) Create(ctx context.Context, owner string, in FolderInput) (domain.Folder, error) {
	if owner == "" {
		return domain.Folder{}, errors.Unauthorizedf("missing caller identity")
	}
	now := s.now()
	f := domain.Folder{
		ID:        s.newID(),
		Owner:     owner,
		IsPublic:  in.IsPublic,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.applyInput(&f, in, now); err != nil {
		return domain.Folder{}, err
	}
	if err := s.store.Create(ctx, f); err != nil {
		return domain.Folder{}, errors.Trace(err)
	}
	s.logger.Debug("folder created", zap.String("folder", f.ID), zap.String("owner", owner), zap.Int("items", len(f.Items)))
	return f, nil
}

// Get returns a folder the caller owns, or any public folder.
func (s *FolderService) Get(ctx context.Context, caller, id string) (domain.Folder, error) {
	f, err := s.store.Get(ctx, id)
	if err != nil {
		return domain.Folder{}, errors.Trace(err)
	}
	if f.Owner != caller && !f.IsPublic {
		return domain.Folder{}, errors.Forbiddenf("folder %s belongs to another user", id)
	}
	return f, nil
}

// List returns the caller's folders.
func (s *FolderService) List(ctx context.Context, caller string) ([]domain.Folder, error) {
	folders, err := s.store.ListByOwner(ctx, caller)
	return folders, errors.Trace(err)
}

// ListPublic returns every public folder.
func (s *FolderService) ListPublic(ctx context.Context) ([]domain.Folder, error) {
	folders, err := s.store.ListPublic(ctx)
	return folders, errors.Trace(err)
}

// Replace overwrites name, description, visibility and items.
func (s *FolderService) Replace(ctx context.Context, caller, id string, in FolderInput) (domain.Folder, error) {
	return s.mutate(ctx, caller, id, func(f *domain.Folder, now time.Time) error {
		f.IsPublic = in.IsPublic
		f.Items = nil
		return s.applyInput(f, in, now)
	})
}

// Patch applies the non-nil fields of p.
func (s *FolderService) Patch(ctx context.Context, caller, id string, p FolderPatch) (domain.Folder, error) {
	return s.mutate(ctx, caller, id, func(f *domain.Folder, now time.Time) error {
		if p.Name != nil {
			name, err := normalizeName(*p.Name)
			if err != nil {
				return err
			}
			f.Name = name
		}
		if p.Description != nil {
			desc, err := normalizeDescription(*p.Description)
			if err != nil {
				return err
			}
			f.Description = desc
		}
		if p.IsPublic != nil {
			f.IsPublic = *p.IsPublic
		}
		if p.Items != nil {
			items, err := mergeItems(nil, *p.Items, stampAt(now))
			if err != nil {
				return err
			}
			f.Items = items
		}
		return nil
	})
}

// AddItems appends items, ignoring ones already present.
func (s *FolderService) AddItems(ctx context.Context, caller, id string, items []ItemInput) (domain.Folder, error) {
	if len(items) == 0 {
		return domain.Folder{}, errors.BadRequestf("no items to add")
	}
	return s.mutate(ctx, caller, id, func(f *domain.Folder, now time.Time) error {
		merged, err := mergeItems(f.Items, items, stampAt(now))
		if err != nil {
			return err
		}
		f.Items = merged
		return nil
	})
}

// RemoveItem drops one token reference from a folder.
func (s *FolderService) RemoveItem(ctx context.Context, caller, id string, ref ItemInput) (domain.Folder, error) {
	target, err := normalizeItem(ref)
	if err != nil {
		return domain.Folder{}, err
	}
	return s.mutate(ctx, caller, id, func(f *domain.Folder, _ time.Time) error {
		kept := f.Items[:0:0]
		for _, item := range f.Items {
			if item.Key() != target.Key() {
				kept = append(kept, item)
			}
		}
		if len(kept) == len(f.Items) {
			return errors.NotFoundf("item %s in folder %s", target.Key(), id)
		}
		f.Items = kept
		return nil
	})
}

// Delete removes a folder the caller owns.
func (s *FolderService) Delete(ctx context.Context, caller, id string) error {
	if _, err := s.owned(ctx, caller, id); err != nil {
		return err
	}
	return errors.Trace(s.store.Delete(ctx, id))
}

func (s *FolderService) mutate(ctx context.Context, caller, id string, change func(*domain.Folder, time.Time) error) (domain.Folder, error) {
	f, err := s.owned(ctx, caller, id)
	if err != nil {
		return domain.Folder{}, err
	}
	now := s.now()
	if err := change(&f, now); err != nil {
		return domain.Folder{}, err
	}
	f.UpdatedAt = now
	if err := s.store.Update(ctx, f); err != nil {
		return domain.Folder{}, errors.Trace(err)
	}
	return f, nil
}

func (s *FolderService) owned(ctx context.Context, caller, id string) (domain.Folder, error) {
	f, err := s.store.Get(ctx, id)
	if err != nil {
		return domain.Folder{}, errors.Trace(err)
	}
	if f.Owner != caller {
		return domain.Folder{}, errors.Forbiddenf("folder %s belongs to another user", id)
	}
	return f, nil
}

func (s *FolderService) applyInput(f *domain.Folder, in FolderInput, now time.Time) error {
	name, err := normalizeName(in.Name)
	if err != nil {
		return err
	}
	desc, err := normalizeDescription(in.Description)
	if err != nil {
		return err
	}
	items, err := mergeItems(f.Items, in.Items, stampAt(now))
	if err != nil {
		return err
	}
	f.Name, f.Description, f.Items = name, desc, items
	return nil
}

func (s *FolderService) now() time.Time {
	return s.clock.Now().UTC()
}

func stampAt(now time.Time) func(*domain.FolderItem) {
	return func(item *domain.FolderItem) { item.AddedAt = now }
}
