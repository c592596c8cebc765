// Package memory implémente les ports de persistance en mémoire.
// Utilisé par les tests des couches application et HTTP.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/registre-pyro/registre-api/internal/domain"
	"github.com/registre-pyro/registre-api/internal/domain/entity"
	"github.com/registre-pyro/registre-api/internal/domain/repository"
)

var (
	_ repository.UserRepository  = (*UserRepo)(nil)
	_ repository.StoreRepository = (*StoreRepo)(nil)
	_ repository.SaleRepository  = (*SaleRepo)(nil)
)

// UserRepo dépôt d'utilisateurs en mémoire.
type UserRepo struct {
	mu    sync.RWMutex
	users map[string]*entity.User
	// Err, si renseignée, est renvoyée par toutes les lectures.
	Err error
}

func NewUserRepo() *UserRepo {
	return &UserRepo{users: make(map[string]*entity.User)}
}

func (r *UserRepo) Create(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return domain.ErrDuplicate
		}
	}
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *UserRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.Err != nil {
		return nil, r.Err
	}
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *UserRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.Err != nil {
		return nil, r.Err
	}
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *UserRepo) ListUsers(_ context.Context) ([]*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.Err != nil {
		return nil, r.Err
	}
	out := make([]*entity.User, 0, len(r.users))
	for _, u := range r.users {
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

// StoreRepo dépôt de magasins en mémoire.
type StoreRepo struct {
	mu     sync.RWMutex
	stores map[string]*entity.Store
	Err    error
}

func NewStoreRepo() *StoreRepo {
	return &StoreRepo{stores: make(map[string]*entity.Store)}
}

func (r *StoreRepo) Create(_ context.Context, s *entity.Store) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	cp := *s
	r.stores[s.ID] = &cp
	return nil
}

func (r *StoreRepo) GetByID(_ context.Context, id string) (*entity.Store, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.Err != nil {
		return nil, r.Err
	}
	s, ok := r.stores[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *StoreRepo) ListStores(_ context.Context) ([]*entity.Store, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.Err != nil {
		return nil, r.Err
	}
	out := make([]*entity.Store, 0, len(r.stores))
	for _, s := range r.stores {
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// SaleRepo dépôt de ventes en mémoire.
type SaleRepo struct {
	mu    sync.RWMutex
	sales map[string]*entity.Sale
	// Err est renvoyée par toutes les opérations ; DeleteErr uniquement par la suppression par date.
	Err       error
	DeleteErr error
}

func NewSaleRepo() *SaleRepo {
	return &SaleRepo{sales: make(map[string]*entity.Sale)}
}

func (r *SaleRepo) Create(_ context.Context, s *entity.Sale) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	for i := range s.Lines {
		if s.Lines[i].ID == "" {
			s.Lines[i].ID = uuid.New().String()
		}
		s.Lines[i].SaleID = s.ID
	}
	for i := range s.Photos {
		if s.Photos[i].ID == "" {
			s.Photos[i].ID = uuid.New().String()
		}
		s.Photos[i].SaleID = s.ID
	}
	r.sales[s.ID] = cloneSale(s)
	return nil
}

func (r *SaleRepo) GetByID(_ context.Context, id string) (*entity.Sale, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.Err != nil {
		return nil, r.Err
	}
	s, ok := r.sales[id]
	if !ok {
		return nil, nil
	}
	out := cloneSale(s)
	out.Photos = nil
	return out, nil
}

func (r *SaleRepo) ListPhotos(_ context.Context, saleID string) ([]entity.SalePhoto, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.Err != nil {
		return nil, r.Err
	}
	s, ok := r.sales[saleID]
	if !ok {
		return nil, nil
	}
	out := append([]entity.SalePhoto(nil), s.Photos...)
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out, nil
}

func (r *SaleRepo) ListSalesForStore(_ context.Context, f repository.SaleFilter) ([]*entity.Sale, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.Err != nil {
		return nil, r.Err
	}
	out := make([]*entity.Sale, 0)
	for _, s := range r.sales {
		if s.StoreID != f.StoreID {
			continue
		}
		if !f.From.IsZero() && s.CreatedAt.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && !s.CreatedAt.Before(f.To) {
			continue
		}
		cp := cloneSale(s)
		cp.Photos = nil
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *SaleRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	if _, ok := r.sales[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.sales, id)
	return nil
}

func (r *SaleRepo) CountSales(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.Err != nil {
		return 0, r.Err
	}
	return int64(len(r.sales)), nil
}

func (r *SaleRepo) CountSalesOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.Err != nil {
		return 0, r.Err
	}
	var n int64
	for _, s := range r.sales {
		if s.CreatedAt.Before(cutoff) {
			n++
		}
	}
	return n, nil
}

func (r *SaleRepo) DeleteSalesOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return 0, r.Err
	}
	if r.DeleteErr != nil {
		return 0, r.DeleteErr
	}
	var n int64
	for id, s := range r.sales {
		if s.CreatedAt.Before(cutoff) {
			delete(r.sales, id)
			n++
		}
	}
	return n, nil
}

// Photos renvoie les photos stockées d'une vente (vérification des suppressions en cascade).
func (r *SaleRepo) Photos(id string) []entity.SalePhoto {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sales[id]
	if !ok {
		return nil
	}
	return append([]entity.SalePhoto(nil), s.Photos...)
}

func cloneSale(s *entity.Sale) *entity.Sale {
	cp := *s
	cp.Lines = append([]entity.SaleLine(nil), s.Lines...)
	cp.Photos = append([]entity.SalePhoto(nil), s.Photos...)
	return &cp
}

// TxRunner exécute fn directement sur le dépôt en mémoire (pas de rollback).
type TxRunner struct {
	Sales *SaleRepo
}

func (r TxRunner) RunSales(_ context.Context, fn func(repo repository.SaleRepository) error) error {
	return fn(r.Sales)
}
