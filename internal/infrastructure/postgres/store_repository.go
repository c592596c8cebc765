package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/registre-pyro/registre-api/internal/domain"
	"github.com/registre-pyro/registre-api/internal/domain/entity"
	"github.com/registre-pyro/registre-api/internal/domain/repository"
)

var _ repository.StoreRepository = (*StoreRepo)(nil)

const storeColumns = `id, name, siret, address, city, phone, created_at, updated_at`

// StoreRepo implémentation du port StoreRepository sur PostgreSQL.
type StoreRepo struct {
	q Querier
}

// NewStoreRepository construit l'adaptateur. Accepte pool ou tx (Querier).
func NewStoreRepository(q Querier) *StoreRepo {
	return &StoreRepo{q: q}
}

// Create persiste un magasin.
func (r *StoreRepo) Create(ctx context.Context, store *entity.Store) error {
	if store.ID == "" {
		store.ID = uuid.New().String()
	}
	now := time.Now()
	if store.CreatedAt.IsZero() {
		store.CreatedAt = now
	}
	store.UpdatedAt = now
	query := `
		INSERT INTO stores (` + storeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.q.Exec(ctx, query,
		store.ID, store.Name, store.SIRET, store.Address, store.City, store.Phone, store.CreatedAt, store.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert store: %w", err)
	}
	return nil
}

// GetByID obtient un magasin par ID. nil si absent.
func (r *StoreRepo) GetByID(ctx context.Context, id string) (*entity.Store, error) {
	var s entity.Store
	err := r.q.QueryRow(ctx, `SELECT `+storeColumns+` FROM stores WHERE id = $1`, id).Scan(
		&s.ID, &s.Name, &s.SIRET, &s.Address, &s.City, &s.Phone, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get store by id: %w", err)
	}
	return &s, nil
}

// ListStores liste tous les magasins par nom.
func (r *StoreRepo) ListStores(ctx context.Context) ([]*entity.Store, error) {
	rows, err := r.q.Query(ctx, `SELECT `+storeColumns+` FROM stores ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}
	defer rows.Close()
	var list []*entity.Store
	for rows.Next() {
		var s entity.Store
		if err := rows.Scan(&s.ID, &s.Name, &s.SIRET, &s.Address, &s.City, &s.Phone, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan store: %w", err)
		}
		list = append(list, &s)
	}
	return list, rows.Err()
}
