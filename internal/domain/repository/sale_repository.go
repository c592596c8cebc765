package repository

import (
	"context"
	"time"

	"github.com/registre-pyro/registre-api/internal/domain/entity"
)

// SaleFilter critères de lecture du registre d'un magasin.
// From/To nuls = pas de borne.
type SaleFilter struct {
	StoreID string
	From    time.Time
	To      time.Time
}

// SaleRepository port de persistance pour Sale (lignes et photos incluses).
type SaleRepository interface {
	// Create insère la vente, ses lignes et ses photos.
	Create(ctx context.Context, sale *entity.Sale) error
	// GetByID charge la vente avec ses lignes (photos non chargées). nil si absente.
	GetByID(ctx context.Context, id string) (*entity.Sale, error)
	// ListPhotos photos d'une vente (contenu inclus), triées par type. Vide si aucune.
	ListPhotos(ctx context.Context, saleID string) ([]entity.SalePhoto, error)
	// ListSalesForStore renvoie les ventes d'un magasin avec leurs lignes, plus récentes d'abord.
	ListSalesForStore(ctx context.Context, filter SaleFilter) ([]*entity.Sale, error)
	Delete(ctx context.Context, id string) error

	// CountSales nombre total de ventes, tous magasins.
	CountSales(ctx context.Context) (int64, error)
	// CountSalesOlderThan nombre de ventes créées strictement avant cutoff.
	CountSalesOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	// DeleteSalesOlderThan supprime les ventes créées strictement avant cutoff et renvoie le nombre supprimé.
	DeleteSalesOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
