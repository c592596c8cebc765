package auth

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/registre-pyro/registre-api/internal/application/dto"
	"github.com/registre-pyro/registre-api/internal/domain"
	"github.com/registre-pyro/registre-api/internal/domain/entity"
	"github.com/registre-pyro/registre-api/internal/domain/repository"
	"github.com/registre-pyro/registre-api/pkg/jwt"
)

// JWTConfig paramètres de génération des jetons.
type JWTConfig struct {
	Secret     string
	ExpMinutes int
	Issuer     string
}

// AuthUseCase cas d'usage d'authentification : création d'utilisateur et connexion.
type AuthUseCase struct {
	userRepo  repository.UserRepository
	storeRepo repository.StoreRepository
	jwtCfg    JWTConfig
}

// NewAuthUseCase construit le cas d'usage.
func NewAuthUseCase(userRepo repository.UserRepository, storeRepo repository.StoreRepository, jwtCfg JWTConfig) *AuthUseCase {
	return &AuthUseCase{userRepo: userRepo, storeRepo: storeRepo, jwtCfg: jwtCfg}
}

// RegisterUser crée un utilisateur (mot de passe haché bcrypt).
// Un gérant ou vendeur doit être rattaché à un magasin existant.
func (uc *AuthUseCase) RegisterUser(ctx context.Context, in dto.CreateUserRequest) (*dto.UserResponse, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	existing, err := uc.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrDuplicate
	}
	if in.Role != entity.RoleAdmin {
		if in.StoreID == "" {
			return nil, domain.ErrInvalidInput
		}
		store, err := uc.storeRepo.GetByID(ctx, in.StoreID)
		if err != nil {
			return nil, err
		}
		if store == nil {
			return nil, domain.ErrNotFound
		}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	name := in.Name
	if name == "" {
		name = email
	}
	user := &entity.User{
		ID:           uuid.New().String(),
		StoreID:      in.StoreID,
		Email:        email,
		PasswordHash: string(hash),
		Name:         name,
		Role:         in.Role,
		Status:       entity.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if in.Role == entity.RoleAdmin {
		user.StoreID = ""
	}
	if err := uc.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return toUserResponse(user), nil
}

// Login vérifie email et mot de passe puis génère le JWT.
func (uc *AuthUseCase) Login(ctx context.Context, in dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := uc.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(in.Email)))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, domain.ErrUnauthorized
	}
	if user.Status != entity.UserStatusActive {
		return nil, domain.ErrForbidden
	}
	token, err := jwt.Generate(uc.jwtCfg.Secret, user.ID, user.StoreID, user.Role, uc.jwtCfg.Issuer, uc.jwtCfg.ExpMinutes)
	if err != nil {
		return nil, err
	}
	return &dto.LoginResponse{
		Token: token,
		User:  *toUserResponse(user),
	}, nil
}

func toUserResponse(u *entity.User) *dto.UserResponse {
	if u == nil {
		return nil
	}
	return &dto.UserResponse{
		ID:        u.ID,
		StoreID:   u.StoreID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		Status:    u.Status,
		CreatedAt: u.CreatedAt,
	}
}
