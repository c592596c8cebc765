package repository

import (
	"context"

	"github.com/registre-pyro/registre-api/internal/domain/entity"
)

// StoreRepository port de persistance pour Store.
type StoreRepository interface {
	Create(ctx context.Context, store *entity.Store) error
	GetByID(ctx context.Context, id string) (*entity.Store, error)
	ListStores(ctx context.Context) ([]*entity.Store, error)
}
