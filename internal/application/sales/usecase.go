// Package sales gère le registre des ventes d'artifices : enregistrement,
// consultation par magasin et suppression, avec cloisonnement par rôle.
package sales

import (
	"context"
	"fmt"
	"time"

	"github.com/registre-pyro/registre-api/internal/application/dto"
	"github.com/registre-pyro/registre-api/internal/domain"
	"github.com/registre-pyro/registre-api/internal/domain/entity"
	"github.com/registre-pyro/registre-api/internal/domain/repository"
	"github.com/registre-pyro/registre-api/pkg/logger"
)

const dateLayout = "2006-01-02"

// TxRunner exécute fn dans une transaction avec un dépôt de ventes lié à celle-ci.
type TxRunner interface {
	RunSales(ctx context.Context, fn func(repo repository.SaleRepository) error) error
}

// Actor utilisateur authentifié à l'origine de l'appel (issu du JWT).
type Actor struct {
	UserID  string
	StoreID string
	Role    string
}

// IsAdmin indique un accès tous magasins.
func (a Actor) IsAdmin() bool { return a.Role == entity.RoleAdmin }

// Register ventes d'un magasin sur une période, pour affichage ou export.
type Register struct {
	Store *entity.Store
	From  time.Time
	To    time.Time
	Sales []*entity.Sale
}

// UseCase cas d'usage du registre des ventes.
type UseCase struct {
	tx     TxRunner
	sales  repository.SaleRepository
	stores repository.StoreRepository
	loc    *time.Location
	log    *logger.Logger
}

// NewUseCase construit le cas d'usage. loc sert à interpréter les dates saisies.
func NewUseCase(tx TxRunner, sales repository.SaleRepository, stores repository.StoreRepository, loc *time.Location, log *logger.Logger) *UseCase {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = logger.Nop()
	}
	return &UseCase{tx: tx, sales: sales, stores: stores, loc: loc, log: log}
}

// CreateSale enregistre une vente (lignes et photos) dans une seule transaction.
// Un vendeur ou gérant écrit toujours dans son propre magasin.
func (uc *UseCase) CreateSale(ctx context.Context, actor Actor, in dto.CreateSaleRequest) (*dto.SaleResponse, error) {
	storeID, err := uc.storeFor(actor, in.StoreID)
	if err != nil {
		return nil, err
	}
	if _, err := uc.loadStore(ctx, storeID); err != nil {
		return nil, err
	}
	birth, err := time.ParseInLocation(dateLayout, in.CustomerBirthDate, uc.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: date de naissance", domain.ErrInvalidInput)
	}
	if in.Amount.IsNegative() {
		return nil, fmt.Errorf("%w: montant négatif", domain.ErrInvalidInput)
	}
	if len(in.Lines) == 0 {
		return nil, fmt.Errorf("%w: au moins une ligne produit", domain.ErrInvalidInput)
	}

	sale := &entity.Sale{
		StoreID:           storeID,
		UserID:            actor.UserID,
		CustomerLastName:  in.CustomerLastName,
		CustomerFirstName: in.CustomerFirstName,
		CustomerBirthDate: birth,
		IDType:            in.IDType,
		IDNumber:          in.IDNumber,
		IDIssuedBy:        in.IDIssuedBy,
		PaymentMethod:     in.PaymentMethod,
		Amount:            in.Amount,
		Notes:             in.Notes,
		CreatedAt:         time.Now(),
	}
	for _, l := range in.Lines {
		if l.Quantity < 1 {
			return nil, fmt.Errorf("%w: quantité %d", domain.ErrInvalidInput, l.Quantity)
		}
		sale.Lines = append(sale.Lines, entity.SaleLine{
			ProductType:  l.ProductType,
			CategoryCode: l.CategoryCode,
			Quantity:     l.Quantity,
			Barcode:      l.Barcode,
		})
	}
	for _, p := range in.Photos {
		sale.Photos = append(sale.Photos, entity.SalePhoto{Kind: p.Kind, MimeType: p.MimeType, Data: p.Data})
	}

	if err := uc.tx.RunSales(ctx, func(repo repository.SaleRepository) error {
		return repo.Create(ctx, sale)
	}); err != nil {
		return nil, err
	}
	uc.log.Info().
		Str("sale_id", sale.ID).
		Str("store_id", storeID).
		Str("user_id", actor.UserID).
		Int("quantity", sale.TotalQuantity()).
		Msg("vente enregistrée")
	return ToSaleResponse(sale), nil
}

// GetSale renvoie une vente visible par l'acteur.
func (uc *UseCase) GetSale(ctx context.Context, actor Actor, id string) (*dto.SaleResponse, error) {
	sale, err := uc.sales.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sale == nil || !canSee(actor, sale.StoreID) {
		return nil, domain.ErrNotFound
	}
	photos, err := uc.sales.ListPhotos(ctx, sale.ID)
	if err != nil {
		return nil, err
	}
	sale.Photos = photos
	return ToSaleResponse(sale), nil
}

// GetSalePhoto renvoie une photo d'une vente visible par l'acteur.
func (uc *UseCase) GetSalePhoto(ctx context.Context, actor Actor, saleID, kind string) (*entity.SalePhoto, error) {
	switch kind {
	case entity.PhotoIDFront, entity.PhotoIDBack, entity.PhotoReceipt:
	default:
		return nil, fmt.Errorf("%w: type de photo %q", domain.ErrInvalidInput, kind)
	}
	sale, err := uc.sales.GetByID(ctx, saleID)
	if err != nil {
		return nil, err
	}
	if sale == nil || !canSee(actor, sale.StoreID) {
		return nil, domain.ErrNotFound
	}
	photos, err := uc.sales.ListPhotos(ctx, saleID)
	if err != nil {
		return nil, err
	}
	for i := range photos {
		if photos[i].Kind == kind {
			return &photos[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

// ListSales ventes d'un magasin sur une période (bornes incluses).
func (uc *UseCase) ListSales(ctx context.Context, actor Actor, in dto.PeriodRequest) (*dto.SaleListResponse, error) {
	reg, err := uc.Register(ctx, actor, in)
	if err != nil {
		return nil, err
	}
	out := &dto.SaleListResponse{StoreID: reg.Store.ID, Count: len(reg.Sales), Sales: make([]dto.SaleResponse, 0, len(reg.Sales))}
	for _, s := range reg.Sales {
		out.Sales = append(out.Sales, *ToSaleResponse(s))
	}
	return out, nil
}

// Register charge le registre d'un magasin sur une période.
func (uc *UseCase) Register(ctx context.Context, actor Actor, in dto.PeriodRequest) (*Register, error) {
	storeID, err := uc.storeFor(actor, in.StoreID)
	if err != nil {
		return nil, err
	}
	store, err := uc.loadStore(ctx, storeID)
	if err != nil {
		return nil, err
	}
	from, to, err := uc.period(in)
	if err != nil {
		return nil, err
	}
	list, err := uc.sales.ListSalesForStore(ctx, repository.SaleFilter{StoreID: storeID, From: from, To: to})
	if err != nil {
		return nil, err
	}
	return &Register{Store: store, From: from, To: to, Sales: list}, nil
}

// DeleteSale supprime une vente. Réservé au gérant (son magasin) et à l'admin.
func (uc *UseCase) DeleteSale(ctx context.Context, actor Actor, id string) error {
	if actor.Role != entity.RoleAdmin && actor.Role != entity.RoleGerant {
		return domain.ErrForbidden
	}
	sale, err := uc.sales.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if sale == nil || !canSee(actor, sale.StoreID) {
		return domain.ErrNotFound
	}
	if err := uc.sales.Delete(ctx, id); err != nil {
		return err
	}
	uc.log.Warn().Str("sale_id", id).Str("store_id", sale.StoreID).Str("user_id", actor.UserID).Msg("vente supprimée")
	return nil
}

// storeFor magasin effectif : celui demandé pour un admin, celui de l'acteur sinon.
func (uc *UseCase) storeFor(actor Actor, requested string) (string, error) {
	if actor.IsAdmin() {
		if requested == "" {
			return "", fmt.Errorf("%w: store_id requis", domain.ErrInvalidInput)
		}
		return requested, nil
	}
	if actor.StoreID == "" {
		return "", domain.ErrForbidden
	}
	if requested != "" && requested != actor.StoreID {
		return "", domain.ErrForbidden
	}
	return actor.StoreID, nil
}

func (uc *UseCase) loadStore(ctx context.Context, id string) (*entity.Store, error) {
	store, err := uc.stores.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, domain.ErrNotFound
	}
	return store, nil
}

// period convertit les dates saisies en [from, to[ dans le fuseau du registre.
func (uc *UseCase) period(in dto.PeriodRequest) (time.Time, time.Time, error) {
	var from, to time.Time
	if in.From != "" {
		t, err := time.ParseInLocation(dateLayout, in.From, uc.loc)
		if err != nil {
			return from, to, fmt.Errorf("%w: date de début", domain.ErrInvalidInput)
		}
		from = t
	}
	if in.To != "" {
		t, err := time.ParseInLocation(dateLayout, in.To, uc.loc)
		if err != nil {
			return from, to, fmt.Errorf("%w: date de fin", domain.ErrInvalidInput)
		}
		to = t.AddDate(0, 0, 1)
	}
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		return from, to, fmt.Errorf("%w: période vide", domain.ErrInvalidInput)
	}
	return from, to, nil
}

func canSee(actor Actor, storeID string) bool {
	return actor.IsAdmin() || actor.StoreID == storeID
}

// ToSaleResponse convertit l'entité en DTO de sortie.
func ToSaleResponse(s *entity.Sale) *dto.SaleResponse {
	out := &dto.SaleResponse{
		ID:                s.ID,
		StoreID:           s.StoreID,
		UserID:            s.UserID,
		CustomerLastName:  s.CustomerLastName,
		CustomerFirstName: s.CustomerFirstName,
		IDType:            s.IDType,
		IDNumber:          s.IDNumber,
		IDIssuedBy:        s.IDIssuedBy,
		PaymentMethod:     s.PaymentMethod,
		Amount:            s.Amount,
		Notes:             s.Notes,
		TotalQuantity:     s.TotalQuantity(),
		Lines:             make([]dto.SaleLineResponse, 0, len(s.Lines)),
		CreatedAt:         s.CreatedAt,
	}
	if !s.CustomerBirthDate.IsZero() {
		out.CustomerBirthDate = s.CustomerBirthDate.Format(dateLayout)
	}
	for _, l := range s.Lines {
		out.Lines = append(out.Lines, dto.SaleLineResponse{
			ID:           l.ID,
			ProductType:  l.ProductType,
			CategoryCode: l.CategoryCode,
			Quantity:     l.Quantity,
			Barcode:      l.Barcode,
		})
	}
	for _, ph := range s.Photos {
		out.Photos = append(out.Photos, dto.SalePhotoResponse{Kind: ph.Kind, MimeType: ph.MimeType, Size: len(ph.Data)})
	}
	return out
}
