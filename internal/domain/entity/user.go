package entity

import "time"

// Rôles valides pour User.
const (
	RoleAdmin   = "admin"
	RoleGerant  = "gerant"
	RoleVendeur = "vendeur"
)

// Statuts d'un utilisateur.
const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
)

// User représente un utilisateur du registre (rattaché à un magasin, sauf admin).
type User struct {
	ID           string
	StoreID      string // vide pour un admin multi-magasins
	Email        string
	PasswordHash string // hash bcrypt, jamais en clair après persistance
	Name         string
	Role         string // admin, gerant, vendeur
	Status       string // active, inactive
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CanManageStore indique si l'utilisateur peut agir sur les ventes du magasin donné.
func (u *User) CanManageStore(storeID string) bool {
	if u == nil {
		return false
	}
	return u.Role == RoleAdmin || u.StoreID == storeID
}
