package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_cart/internal/domain"
	"github.com/fjod/go_cart/internal/store"
	"github.com/fjod/go_cart/internal/validator"
	"go.uber.org/zap"
)

// SnapshotRepository keeps the whole cart as one document under a single key
// and heals malformed documents as they are loaded.
type SnapshotRepository struct {
	store store.DocumentStore
	key   string
	log   *zap.Logger
	now   func() time.Time
}

func NewSnapshotRepository(s store.DocumentStore, key string, log *zap.Logger) *SnapshotRepository {
	return &SnapshotRepository{
		store: s,
		key:   key,
		log:   log,
		now:   time.Now,
	}
}

func (r *SnapshotRepository) Load(ctx context.Context) (*domain.Snapshot, error) {
	raw, err := r.store.Get(ctx, r.key)
	if errors.Is(err, store.ErrNotFound) {
		return &domain.Snapshot{Entries: []domain.CartEntry{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load cart: %v", domain.ErrPersistence, err)
	}

	res := validator.Validate(raw)
	if res.Backfilled > 0 {
		r.log.Debug("back-filled missing quantities", zap.Int("count", res.Backfilled))
	}
	if !res.NeedsRewrite() {
		return res.Snapshot, nil
	}

	r.log.Warn("stored cart failed validation, rewriting",
		zap.String("key", r.key),
		zap.Strings("dropped", res.Dropped),
		zap.Int("pruned_overrides", res.Pruned),
		zap.Bool("corrupt", res.Corrupt),
		zap.Bool("legacy_layout", res.Legacy),
		zap.Error(domain.ErrDataIntegrity))

	if err := r.Save(ctx, res.Snapshot); err != nil {
		// the healed snapshot is still usable; the next load heals again
		r.log.Error("self-heal save failed", zap.Error(err))
	}
	return res.Snapshot, nil
}

func (r *SnapshotRepository) Save(ctx context.Context, snapshot *domain.Snapshot) error {
	snapshot.UpdatedAt = r.now().UTC()
	if snapshot.Entries == nil {
		snapshot.Entries = []domain.CartEntry{}
	}

	doc, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("%w: marshal cart: %v", domain.ErrPersistence, err)
	}
	if err := r.store.Put(ctx, r.key, doc); err != nil {
		return fmt.Errorf("%w: save cart: %v", domain.ErrPersistence, err)
	}
	return nil
}
