package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/registre-pyro/registre-api/internal/application/dto"
	"github.com/registre-pyro/registre-api/internal/application/sales"
	"github.com/registre-pyro/registre-api/pkg/jwt"
)

// Clés Locals renseignées par AuthMiddleware.
const (
	LocalUserID  = "user_id"
	LocalStoreID = "store_id"
	LocalRole    = "role"
)

// AuthMiddleware valide le Bearer Token JWT et place user_id, store_id et role dans c.Locals.
func AuthMiddleware(jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "en-tête Authorization requis"})
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "format : Bearer <token>"})
		}
		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "jeton vide"})
		}
		userID, storeID, role, err := jwt.Parse(jwtSecret, tokenString)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "jeton invalide ou expiré"})
		}
		c.Locals(LocalUserID, userID)
		c.Locals(LocalStoreID, storeID)
		c.Locals(LocalRole, role)
		return c.Next()
	}
}

// RequireRole n'autorise que les rôles listés. À chaîner après AuthMiddleware.
func RequireRole(roles ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *fiber.Ctx) error {
		role := GetRole(c)
		if role == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_ROLE", Message: "le jeton ne contient pas de rôle"})
		}
		if _, ok := allowed[role]; !ok {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "accès refusé pour le rôle " + role})
		}
		return c.Next()
	}
}

// GetUserID renvoie l'identifiant utilisateur du contexte.
func GetUserID(c *fiber.Ctx) string { return localString(c, LocalUserID) }

// GetStoreID renvoie le magasin de l'utilisateur (vide pour un admin).
func GetStoreID(c *fiber.Ctx) string { return localString(c, LocalStoreID) }

// GetRole renvoie le rôle de l'utilisateur.
func GetRole(c *fiber.Ctx) string { return localString(c, LocalRole) }

func actorFrom(c *fiber.Ctx) sales.Actor {
	return sales.Actor{UserID: GetUserID(c), StoreID: GetStoreID(c), Role: GetRole(c)}
}

func localString(c *fiber.Ctx, key string) string {
	v := c.Locals(key)
	if v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}
