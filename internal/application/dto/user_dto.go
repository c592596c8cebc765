package dto

import "time"

// CreateUserRequest entrée de création d'un utilisateur (mot de passe haché dans le use case).
type CreateUserRequest struct {
	StoreID  string `json:"store_id" validate:"omitempty,uuid"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"required,min=1,max=200"`
	Role     string `json:"role" validate:"required,oneof=admin gerant vendeur"`
}

// UserResponse sortie d'un utilisateur (sans mot de passe).
type UserResponse struct {
	ID        string    `json:"id"`
	StoreID   string    `json:"store_id,omitempty"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// LoginRequest entrée de connexion.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse jeton JWT et utilisateur connecté.
type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}
