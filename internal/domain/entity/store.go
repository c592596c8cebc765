package entity

import "time"

// Store représente un point de vente (magasin) soumis à la tenue du registre.
type Store struct {
	ID        string
	Name      string
	SIRET     string // identifiant d'établissement (14 chiffres)
	Address   string
	City      string
	Phone     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
