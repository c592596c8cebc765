package repository

import (
	"context"

	"github.com/registre-pyro/registre-api/internal/domain/entity"
)

// UserRepository port de persistance pour User (DIP).
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	// ListUsers renvoie tous les utilisateurs (tous magasins confondus).
	ListUsers(ctx context.Context) ([]*entity.User, error)
}
