package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/fjod/go_cart/internal/domain"
	"github.com/fjod/go_cart/internal/pricing"
	"github.com/fjod/go_cart/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type AttachRecipeRequest struct {
	EntryID string
	Title   string
	Image   string
	Lines   []domain.IngredientLine
}

type ProductRequest struct {
	Line domain.IngredientLine
}

// CartService owns every mutation of the cart. Mutations are serialized by one
// mutex so each load, apply, save cycle is atomic with respect to the others.
type CartService struct {
	repo repository.CartRepository
	log  *zap.Logger
	sfg  singleflight.Group // coalesces concurrent snapshot reads

	mu       sync.Mutex
	lastGood *domain.Snapshot
}

func NewCartService(repo repository.CartRepository, log *zap.Logger) *CartService {
	return &CartService{
		repo: repo,
		log:  log,
	}
}

// Snapshot returns the current cart. A failed store read falls back to the last
// snapshot this service saw, or an empty cart.
func (s *CartService) Snapshot(ctx context.Context) (*domain.Snapshot, error) {
	v, _, _ := s.sfg.Do("snapshot", func() (interface{}, error) {
		s.mu.Lock()
		defer s.mu.Unlock()

		snap, err := s.repo.Load(ctx)
		if err != nil {
			s.log.Warn("cart load failed, serving last known snapshot", zap.Error(err))
			return s.lastGood.Clone(), nil
		}
		s.lastGood = snap.Clone()
		return snap, nil
	})

	return v.(*domain.Snapshot).Clone(), nil
}

// Current loads the stored cart without falling back, for callers that must not
// act on a stale copy.
func (s *CartService) Current(ctx context.Context) (*domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	s.lastGood = snap.Clone()
	return snap, nil
}

func (s *CartService) AttachRecipeEntry(ctx context.Context, req AttachRecipeRequest) (*domain.Snapshot, error) {
	entryID := strings.TrimSpace(req.EntryID)
	if entryID == "" || strings.TrimSpace(req.Title) == "" {
		return nil, fmt.Errorf("%w: entry id and title are required", domain.ErrInvalidArgument)
	}
	if entryID == domain.GroceryEntryID {
		return nil, fmt.Errorf("%w: %q is reserved", domain.ErrInvalidArgument, entryID)
	}

	image := strings.TrimSpace(req.Image)
	if image == "" {
		image = domain.PlaceholderImage
	}

	return s.mutate(ctx, "attach recipe", func(snap *domain.Snapshot) error {
		if _, existing := snap.Find(entryID); existing != nil {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateEntry, entryID)
		}

		entry := domain.CartEntry{
			EntryID:    entryID,
			Title:      req.Title,
			Image:      image,
			Selected:   true,
			Lines:      make([]domain.IngredientLine, 0, len(req.Lines)),
			Quantities: make(map[string]int, len(req.Lines)),
		}
		for _, line := range req.Lines {
			if line.ProductID == "" || entry.LineIndex(line.ProductID) >= 0 {
				continue
			}
			entry.Lines = append(entry.Lines, line)
			entry.Quantities[line.ProductID] = 1
		}
		snap.Entries = append(snap.Entries, entry)
		return nil
	})
}

// MergeStandaloneProduct adds one unit of a product to the grocery aggregate,
// creating the aggregate when it does not exist yet.
func (s *CartService) MergeStandaloneProduct(ctx context.Context, req ProductRequest) (*domain.Snapshot, error) {
	if strings.TrimSpace(req.Line.ProductID) == "" {
		return nil, fmt.Errorf("%w: product id is required", domain.ErrInvalidArgument)
	}

	return s.mutate(ctx, "merge product", func(snap *domain.Snapshot) error {
		_, grocery := snap.Find(domain.GroceryEntryID)
		if grocery == nil {
			snap.Entries = append(snap.Entries, domain.CartEntry{
				EntryID:    domain.GroceryEntryID,
				Title:      domain.GroceryEntryTitle,
				Image:      domain.PlaceholderImage,
				Selected:   true,
				Lines:      []domain.IngredientLine{},
				Quantities: map[string]int{},
			})
			grocery = &snap.Entries[len(snap.Entries)-1]
		}

		pid := req.Line.ProductID
		if grocery.LineIndex(pid) >= 0 {
			grocery.Quantities[pid] = grocery.Quantity(pid) + 1
			return nil
		}
		grocery.Lines = append(grocery.Lines, req.Line)
		grocery.Quantities[pid] = 1
		return nil
	})
}

// SetLineQuantity adds delta to a line's quantity, clamping at zero.
func (s *CartService) SetLineQuantity(ctx context.Context, entryID, productID string, delta int) (*domain.Snapshot, error) {
	return s.mutate(ctx, "set quantity", func(snap *domain.Snapshot) error {
		entry, err := findLine(snap, entryID, productID)
		if err != nil {
			return err
		}
		q := entry.Quantity(productID) + delta
		if q < 0 {
			q = 0
		}
		entry.Quantities[productID] = q
		return nil
	})
}

// RemoveLine drops a line together with its quantity override.
func (s *CartService) RemoveLine(ctx context.Context, entryID, productID string) (*domain.Snapshot, error) {
	return s.mutate(ctx, "remove line", func(snap *domain.Snapshot) error {
		entry, err := findLine(snap, entryID, productID)
		if err != nil {
			return err
		}
		idx := entry.LineIndex(productID)
		entry.Lines = append(entry.Lines[:idx], entry.Lines[idx+1:]...)
		delete(entry.Quantities, productID)
		return nil
	})
}

func (s *CartService) ToggleEntrySelection(ctx context.Context, entryID string) (*domain.Snapshot, error) {
	return s.mutate(ctx, "toggle selection", func(snap *domain.Snapshot) error {
		_, entry := snap.Find(entryID)
		if entry == nil {
			return fmt.Errorf("%w: %s", domain.ErrEntryNotFound, entryID)
		}
		entry.Selected = !entry.Selected
		return nil
	})
}

func (s *CartService) RemoveEntry(ctx context.Context, entryID string) (*domain.Snapshot, error) {
	return s.mutate(ctx, "remove entry", func(snap *domain.Snapshot) error {
		idx, _ := snap.Find(entryID)
		if idx < 0 {
			return fmt.Errorf("%w: %s", domain.ErrEntryNotFound, entryID)
		}
		snap.Entries = append(snap.Entries[:idx], snap.Entries[idx+1:]...)
		return nil
	})
}

// RemoveEntries removes exactly the listed entries. Ids no longer in the cart are skipped.
func (s *CartService) RemoveEntries(ctx context.Context, entryIDs []string) (*domain.Snapshot, error) {
	drop := make(map[string]bool, len(entryIDs))
	for _, id := range entryIDs {
		drop[id] = true
	}

	return s.mutate(ctx, "remove entries", func(snap *domain.Snapshot) error {
		kept := snap.Entries[:0]
		for _, e := range snap.Entries {
			if !drop[e.EntryID] {
				kept = append(kept, e)
			}
		}
		snap.Entries = kept
		return nil
	})
}

func (s *CartService) ClearCart(ctx context.Context) (*domain.Snapshot, error) {
	return s.mutate(ctx, "clear cart", func(snap *domain.Snapshot) error {
		snap.Entries = []domain.CartEntry{}
		return nil
	})
}

// mutate runs apply against a fresh copy of the stored cart and persists the result.
// Nothing is kept when apply or the save fails.
func (s *CartService) mutate(ctx context.Context, op string, apply func(*domain.Snapshot) error) (*domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.repo.Load(ctx)
	if err != nil {
		s.log.Error("repo load error", zap.String("op", op), zap.Error(err))
		return nil, err
	}

	next := current.Clone()
	if err := apply(next); err != nil {
		return nil, err
	}
	pricing.Recompute(next)

	if err := s.repo.Save(ctx, next); err != nil {
		s.log.Error("repo save error", zap.String("op", op), zap.Error(err))
		if !errors.Is(err, domain.ErrPersistence) {
			err = fmt.Errorf("%w: %v", domain.ErrPersistence, err)
		}
		return nil, err
	}

	s.lastGood = next.Clone()
	return next, nil
}

func findLine(snap *domain.Snapshot, entryID, productID string) (*domain.CartEntry, error) {
	_, entry := snap.Find(entryID)
	if entry == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrEntryNotFound, entryID)
	}
	if entry.LineIndex(productID) < 0 {
		return nil, fmt.Errorf("%w: %s/%s", domain.ErrLineNotFound, entryID, productID)
	}
	if entry.Quantities == nil {
		entry.Quantities = map[string]int{}
	}
	return entry, nil
}
