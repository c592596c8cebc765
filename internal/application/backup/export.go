package backup

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/registre-pyro/registre-api/internal/domain/entity"
	"github.com/registre-pyro/registre-api/internal/domain/repository"
)

// Snapshot export JSON lisible du registre (hors photos et hash de mot de passe).
// Complément du dump SQL, destiné aux contrôles administratifs.
type Snapshot struct {
	ExportedAt time.Time       `json:"exported_at"`
	Counts     Counts          `json:"counts"`
	Users      []SnapshotUser  `json:"users"`
	Stores     []SnapshotStore `json:"stores"`
	Sales      []SnapshotSale  `json:"sales"`
}

// SnapshotUser utilisateur exporté, sans empreinte de mot de passe.
type SnapshotUser struct {
	ID        string    `json:"id"`
	StoreID   string    `json:"store_id,omitempty"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// SnapshotStore magasin exporté.
type SnapshotStore struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	SIRET   string `json:"siret"`
	Address string `json:"address"`
	City    string `json:"city"`
}

// SnapshotSale vente exportée avec ses lignes ; les photos restent en base.
type SnapshotSale struct {
	ID                string          `json:"id"`
	StoreID           string          `json:"store_id"`
	UserID            string          `json:"user_id"`
	CustomerLastName  string          `json:"customer_last_name"`
	CustomerFirstName string          `json:"customer_first_name"`
	CustomerBirthDate string          `json:"customer_birth_date"`
	IDType            string          `json:"id_type"`
	IDNumber          string          `json:"id_number"`
	PaymentMethod     string          `json:"payment_method"`
	Amount            decimal.Decimal `json:"amount"`
	Lines             []SnapshotLine  `json:"lines"`
	CreatedAt         time.Time       `json:"created_at"`
}

// SnapshotLine ligne produit d'une vente exportée.
type SnapshotLine struct {
	ProductType  string `json:"product_type"`
	CategoryCode string `json:"category_code"`
	Quantity     int    `json:"quantity"`
	Barcode      string `json:"barcode,omitempty"`
}

// BuildSnapshot lit l'ensemble du registre.
func (s *Service) BuildSnapshot(ctx context.Context) (*Snapshot, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	stores, err := s.stores.ListStores(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}

	snap := &Snapshot{
		ExportedAt: s.clock().UTC(),
		Users:      make([]SnapshotUser, 0, len(users)),
		Stores:     make([]SnapshotStore, 0, len(stores)),
		Sales:      []SnapshotSale{},
	}
	for _, u := range users {
		snap.Users = append(snap.Users, snapshotUser(u))
	}
	for _, st := range stores {
		snap.Stores = append(snap.Stores, SnapshotStore{
			ID: st.ID, Name: st.Name, SIRET: st.SIRET, Address: st.Address, City: st.City,
		})
		sales, err := s.sales.ListSalesForStore(ctx, repository.SaleFilter{StoreID: st.ID})
		if err != nil {
			return nil, fmt.Errorf("list sales for store %s: %w", st.ID, err)
		}
		for _, sale := range sales {
			snap.Sales = append(snap.Sales, snapshotSale(sale))
		}
	}
	snap.Counts = Counts{Users: len(snap.Users), Stores: len(snap.Stores), Sales: len(snap.Sales)}
	return snap, nil
}

// ExportJSON écrit le snapshot du registre en JSON indenté.
func (s *Service) ExportJSON(ctx context.Context, w io.Writer) (*Snapshot, error) {
	snap, err := s.BuildSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	s.log.Info().
		Int("users", snap.Counts.Users).
		Int("stores", snap.Counts.Stores).
		Int("sales", snap.Counts.Sales).
		Msg("export JSON du registre")
	return snap, nil
}

func snapshotUser(u *entity.User) SnapshotUser {
	return SnapshotUser{
		ID:        u.ID,
		StoreID:   u.StoreID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		Status:    u.Status,
		CreatedAt: u.CreatedAt,
	}
}

func snapshotSale(sale *entity.Sale) SnapshotSale {
	lines := make([]SnapshotLine, 0, len(sale.Lines))
	for _, l := range sale.Lines {
		lines = append(lines, SnapshotLine{
			ProductType:  l.ProductType,
			CategoryCode: l.CategoryCode,
			Quantity:     l.Quantity,
			Barcode:      l.Barcode,
		})
	}
	birth := ""
	if !sale.CustomerBirthDate.IsZero() {
		birth = sale.CustomerBirthDate.Format("2006-01-02")
	}
	return SnapshotSale{
		ID:                sale.ID,
		StoreID:           sale.StoreID,
		UserID:            sale.UserID,
		CustomerLastName:  sale.CustomerLastName,
		CustomerFirstName: sale.CustomerFirstName,
		CustomerBirthDate: birth,
		IDType:            sale.IDType,
		IDNumber:          sale.IDNumber,
		PaymentMethod:     sale.PaymentMethod,
		Amount:            sale.Amount,
		Lines:             lines,
		CreatedAt:         sale.CreatedAt,
	}
}
