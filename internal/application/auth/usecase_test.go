package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/registre-pyro/registre-api/internal/application/auth"
	"github.com/registre-pyro/registre-api/internal/application/dto"
	"github.com/registre-pyro/registre-api/internal/domain"
	"github.com/registre-pyro/registre-api/internal/domain/entity"
	"github.com/registre-pyro/registre-api/internal/infrastructure/memory"
	pkgjwt "github.com/registre-pyro/registre-api/pkg/jwt"
)

const secret = "test-secret-key-for-unit-tests"

func newUseCase(t *testing.T) (*auth.AuthUseCase, *entity.Store) {
	t.Helper()
	stores := memory.NewStoreRepo()
	store := &entity.Store{Name: "Artifices du Nord"}
	require.NoError(t, stores.Create(context.Background(), store))
	uc := auth.NewAuthUseCase(memory.NewUserRepo(), stores, auth.JWTConfig{Secret: secret, ExpMinutes: 60, Issuer: "registre-test"})
	return uc, store
}

func TestLogin_JetonAvecMagasinEtRole(t *testing.T) {
	uc, store := newUseCase(t)
	ctx := context.Background()
	_, err := uc.RegisterUser(ctx, dto.CreateUserRequest{
		StoreID: store.ID, Email: "Vendeur@Registre.fr", Password: "motdepasse", Name: "Paul", Role: entity.RoleVendeur,
	})
	require.NoError(t, err)

	out, err := uc.Login(ctx, dto.LoginRequest{Email: "vendeur@registre.fr", Password: "motdepasse"})
	require.NoError(t, err)

	userID, storeID, role, err := pkgjwt.Parse(secret, out.Token)
	require.NoError(t, err)
	assert.Equal(t, out.User.ID, userID)
	assert.Equal(t, store.ID, storeID)
	assert.Equal(t, entity.RoleVendeur, role)
}

func TestLogin_MauvaisMotDePasse(t *testing.T) {
	uc, store := newUseCase(t)
	ctx := context.Background()
	_, err := uc.RegisterUser(ctx, dto.CreateUserRequest{
		StoreID: store.ID, Email: "gerant@registre.fr", Password: "motdepasse", Name: "Anne", Role: entity.RoleGerant,
	})
	require.NoError(t, err)

	_, err = uc.Login(ctx, dto.LoginRequest{Email: "gerant@registre.fr", Password: "autre"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = uc.Login(ctx, dto.LoginRequest{Email: "inconnu@registre.fr", Password: "motdepasse"})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestRegisterUser_Regles(t *testing.T) {
	uc, store := newUseCase(t)
	ctx := context.Background()

	_, err := uc.RegisterUser(ctx, dto.CreateUserRequest{Email: "v@registre.fr", Password: "motdepasse", Name: "V", Role: entity.RoleVendeur})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "un vendeur sans magasin est refusé")

	_, err = uc.RegisterUser(ctx, dto.CreateUserRequest{StoreID: "00000000-0000-0000-0000-000000000099", Email: "v@registre.fr", Password: "motdepasse", Name: "V", Role: entity.RoleVendeur})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	admin, err := uc.RegisterUser(ctx, dto.CreateUserRequest{StoreID: store.ID, Email: "admin@registre.fr", Password: "motdepasse", Name: "A", Role: entity.RoleAdmin})
	require.NoError(t, err)
	assert.Empty(t, admin.StoreID, "un admin n'est rattaché à aucun magasin")

	_, err = uc.RegisterUser(ctx, dto.CreateUserRequest{Email: "admin@registre.fr", Password: "motdepasse", Name: "A", Role: entity.RoleAdmin})
	assert.ErrorIs(t, err, domain.ErrDuplicate)
}
