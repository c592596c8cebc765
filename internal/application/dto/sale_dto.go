package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// SaleLineRequest ligne produit d'une vente.
type SaleLineRequest struct {
	ProductType  string `json:"product_type" validate:"required,max=255"`
	CategoryCode string `json:"category_code" validate:"required,oneof=F1 F2 F3 F4 T1 T2 P1 P2"`
	Quantity     int    `json:"quantity" validate:"required,min=1"`
	Barcode      string `json:"barcode" validate:"omitempty,max=64"`
}

// SalePhotoRequest photo jointe, contenu en base64.
type SalePhotoRequest struct {
	Kind     string `json:"kind" validate:"required,oneof=id_front id_back receipt"`
	MimeType string `json:"mime_type" validate:"required,oneof=image/jpeg image/png image/webp"`
	Data     []byte `json:"data" validate:"required"`
}

// CreateSaleRequest entrée d'enregistrement d'une vente.
// StoreID n'est lu que pour un admin ; les autres rôles écrivent dans leur magasin.
type CreateSaleRequest struct {
	StoreID           string             `json:"store_id" validate:"omitempty,uuid"`
	CustomerLastName  string             `json:"customer_last_name" validate:"required,max=255"`
	CustomerFirstName string             `json:"customer_first_name" validate:"required,max=255"`
	CustomerBirthDate string             `json:"customer_birth_date" validate:"required,datetime=2006-01-02"`
	IDType            string             `json:"id_type" validate:"required,oneof=cni passeport permis titre_sejour"`
	IDNumber          string             `json:"id_number" validate:"required,max=64"`
	IDIssuedBy        string             `json:"id_issued_by" validate:"omitempty,max=255"`
	PaymentMethod     string             `json:"payment_method" validate:"required,oneof=especes carte cheque virement"`
	Amount            decimal.Decimal    `json:"amount"`
	Notes             string             `json:"notes" validate:"omitempty,max=2000"`
	Lines             []SaleLineRequest  `json:"lines" validate:"required,min=1,dive"`
	Photos            []SalePhotoRequest `json:"photos" validate:"omitempty,max=3,dive"`
}

// SaleLineResponse ligne produit en sortie.
type SaleLineResponse struct {
	ID           string `json:"id"`
	ProductType  string `json:"product_type"`
	CategoryCode string `json:"category_code"`
	Quantity     int    `json:"quantity"`
	Barcode      string `json:"barcode,omitempty"`
}

// SalePhotoResponse description d'une photo jointe ; le contenu se lit sur
// /api/sales/{id}/photos/{kind}.
type SalePhotoResponse struct {
	Kind     string `json:"kind"`
	MimeType string `json:"mime_type"`
	Size     int    `json:"size"`
}

// SaleResponse vente en sortie. Photos n'est renseigné qu'à la création et au détail.
type SaleResponse struct {
	ID                string              `json:"id"`
	StoreID           string              `json:"store_id"`
	UserID            string              `json:"user_id"`
	CustomerLastName  string              `json:"customer_last_name"`
	CustomerFirstName string              `json:"customer_first_name"`
	CustomerBirthDate string              `json:"customer_birth_date,omitempty"`
	IDType            string              `json:"id_type"`
	IDNumber          string              `json:"id_number"`
	IDIssuedBy        string              `json:"id_issued_by,omitempty"`
	PaymentMethod     string              `json:"payment_method"`
	Amount            decimal.Decimal     `json:"amount"`
	Notes             string              `json:"notes,omitempty"`
	TotalQuantity     int                 `json:"total_quantity"`
	Lines             []SaleLineResponse  `json:"lines"`
	Photos            []SalePhotoResponse `json:"photos,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
}

// SaleListResponse liste des ventes d'un magasin.
type SaleListResponse struct {
	StoreID string         `json:"store_id"`
	Count   int            `json:"count"`
	Sales   []SaleResponse `json:"sales"`
}
