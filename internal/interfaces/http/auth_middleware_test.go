package http_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apphttp "github.com/registre-pyro/registre-api/internal/interfaces/http"
	pkgjwt "github.com/registre-pyro/registre-api/pkg/jwt"
)

// ──────────────────────────────────────────────────────────────────────────────
// Outils de test
// ──────────────────────────────────────────────────────────────────────────────

const (
	testJWTSecret = "test-secret-key-for-unit-tests"
	testUserID    = "00000000-0000-0000-0000-000000000001"
	testStoreID   = "00000000-0000-0000-0000-000000000002"
	testIssuer    = "registre-test"
	testExpMin    = 60
)

// buildTestApp application Fiber minimale : AuthMiddleware, RequireRole puis un handler 200.
func buildTestApp(allowedRoles ...string) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})
	app.Get("/protected",
		apphttp.AuthMiddleware(testJWTSecret),
		apphttp.RequireRole(allowedRoles...),
		func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusOK).JSON(fiber.Map{
				"ok":   true,
				"role": apphttp.GetRole(c),
			})
		},
	)
	return app
}

// tokenForRole génère un JWT pour le rôle donné.
func tokenForRole(t *testing.T, role string) string {
	t.Helper()
	tok, err := pkgjwt.Generate(testJWTSecret, testUserID, testStoreID, role, testIssuer, testExpMin)
	require.NoError(t, err, "le jeton doit être généré")
	return "Bearer " + tok
}

// doRequest GET /protected avec l'en-tête Authorization donné.
func doRequest(t *testing.T, app *fiber.App, authHeader string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

// ──────────────────────────────────────────────────────────────────────────────
// RequireRole
// ──────────────────────────────────────────────────────────────────────────────

// Rôle autorisé : 200.
func TestRequireRole_AdminAccedeRouteAdmin(t *testing.T) {
	app := buildTestApp("admin")
	resp := doRequest(t, app, tokenForRole(t, "admin"))
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode,
		"un admin accède aux routes admin")

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, true, body["ok"], "la réponse contient ok:true")
	assert.Equal(t, "admin", body["role"], "le rôle doit être admin")
}

// Un des rôles autorisés : 200.
func TestRequireRole_GerantAccedeRouteAdminOuGerant(t *testing.T) {
	app := buildTestApp("admin", "gerant")
	resp := doRequest(t, app, tokenForRole(t, "gerant"))
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode,
		"un gérant accède aux routes admin|gerant")
}

// Rôle non autorisé : 403.
func TestRequireRole_VendeurBloqueSurRouteAdmin(t *testing.T) {
	app := buildTestApp("admin")
	resp := doRequest(t, app, tokenForRole(t, "vendeur"))
	defer resp.Body.Close()

	assert.Equal(t, http.StatusForbidden, resp.StatusCode,
		"un vendeur n'accède pas aux routes admin")

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "FORBIDDEN",
		"le code FORBIDDEN est renvoyé")
}

// Gérant sur une route réservée aux vendeurs : 403.
func TestRequireRole_GerantBloqueSurRouteVendeur(t *testing.T) {
	app := buildTestApp("vendeur")
	resp := doRequest(t, app, tokenForRole(t, "gerant"))
	defer resp.Body.Close()

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

// Jeton sans rôle : 401.
func TestRequireRole_JetonSansRole_401(t *testing.T) {
	app := buildTestApp("admin")
	tok, err := pkgjwt.Generate(testJWTSecret, testUserID, testStoreID, "", testIssuer, testExpMin)
	require.NoError(t, err)

	resp := doRequest(t, app, "Bearer "+tok)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode,
		"un jeton sans rôle renvoie 401")

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "MISSING_ROLE",
		"le code MISSING_ROLE est renvoyé")
}

// Sans en-tête Authorization : 401.
func TestRequireRole_SansEnTete_401(t *testing.T) {
	app := buildTestApp("admin")
	resp := doRequest(t, app, "")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// Jeton malformé : 401.
func TestRequireRole_JetonInvalide_401(t *testing.T) {
	app := buildTestApp("admin")
	resp := doRequest(t, app, "Bearer jeton.invalide.ici")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// ──────────────────────────────────────────────────────────────────────────────
// AuthMiddleware : extraction des claims
// ──────────────────────────────────────────────────────────────────────────────

func TestAuthMiddleware_ExtraitLesClaims(t *testing.T) {
	app := fiber.New()
	app.Get("/me", apphttp.AuthMiddleware(testJWTSecret), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"user_id":  apphttp.GetUserID(c),
			"store_id": apphttp.GetStoreID(c),
			"role":     apphttp.GetRole(c),
		})
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", tokenForRole(t, "admin"))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, testUserID, body["user_id"])
	assert.Equal(t, testStoreID, body["store_id"])
	assert.Equal(t, "admin", body["role"])
}

// ──────────────────────────────────────────────────────────────────────────────
// pkg/jwt : génération et lecture avec rôle
// ──────────────────────────────────────────────────────────────────────────────

func TestJWT_GenerateEtParse_AvecRole(t *testing.T) {
	tok, err := pkgjwt.Generate(testJWTSecret, testUserID, testStoreID, "gerant", testIssuer, testExpMin)
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	userID, storeID, role, err := pkgjwt.Parse(testJWTSecret, tok)
	require.NoError(t, err)

	assert.Equal(t, testUserID, userID)
	assert.Equal(t, testStoreID, storeID)
	assert.Equal(t, "gerant", role)
}

func TestJWT_JetonExpire(t *testing.T) {
	tok, err := pkgjwt.Generate(testJWTSecret, testUserID, testStoreID, "admin", testIssuer, -1)
	require.NoError(t, err)

	_, _, _, err = pkgjwt.Parse(testJWTSecret, tok)
	assert.Error(t, err, "un jeton expiré est refusé")
}

func TestJWT_MauvaisSecret(t *testing.T) {
	tok, err := pkgjwt.Generate(testJWTSecret, testUserID, testStoreID, "admin", testIssuer, testExpMin)
	require.NoError(t, err)

	_, _, _, err = pkgjwt.Parse("un-autre-secret-completement-different", tok)
	assert.Error(t, err, "un mauvais secret invalide le jeton")
}
