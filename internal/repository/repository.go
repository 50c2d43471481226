package repository

import (
	"context"

	"github.com/fjod/go_cart/internal/domain"
)

type CartRepository interface {
	Load(ctx context.Context) (*domain.Snapshot, error)
	Save(ctx context.Context, snapshot *domain.Snapshot) error
}
