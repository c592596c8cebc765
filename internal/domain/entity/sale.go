package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Moyens de paiement acceptés.
const (
	PaymentCash     = "especes"
	PaymentCard     = "carte"
	PaymentCheque   = "cheque"
	PaymentTransfer = "virement"
)

// Pièces d'identité acceptées pour l'acheteur.
const (
	IDCardNational = "cni"
	IDCardPassport = "passeport"
	IDCardPermit   = "permis"
	IDCardResident = "titre_sejour"
)

// Types de photos jointes à une vente.
const (
	PhotoIDFront = "id_front"
	PhotoIDBack  = "id_back"
	PhotoReceipt = "receipt"
)

// Sale représente une vente réglementée inscrite au registre.
// Immuable après création : seule la suppression complète est possible.
type Sale struct {
	ID      string
	StoreID string
	UserID  string

	CustomerLastName  string
	CustomerFirstName string
	CustomerBirthDate time.Time
	IDType            string // cni, passeport, permis, titre_sejour
	IDNumber          string
	IDIssuedBy        string
	PaymentMethod     string
	Amount            decimal.Decimal
	Notes             string

	Lines  []SaleLine
	Photos []SalePhoto

	CreatedAt time.Time
}

// SaleLine ligne produit d'une vente (catégorie F1–F4, T1–T2, P1–P2).
type SaleLine struct {
	ID           string
	SaleID       string
	ProductType  string
	CategoryCode string
	Quantity     int
	Barcode      string
}

// SalePhoto photo jointe (recto/verso de la pièce d'identité, ticket).
type SalePhoto struct {
	ID       string
	SaleID   string
	Kind     string // id_front, id_back, receipt
	MimeType string
	Data     []byte
}

// TotalQuantity somme des quantités de toutes les lignes.
func (s *Sale) TotalQuantity() int {
	total := 0
	for _, l := range s.Lines {
		total += l.Quantity
	}
	return total
}
