package http

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/kardex-api/internal/application/dto"
	"github.com/jhoicas/kardex-api/internal/domain/entity"
	"github.com/jhoicas/kardex-api/pkg/jwt"
)

// LocalUserID key de Locals para el usuario que ejecuta la operación.
const LocalUserID = "user_id"

// UserLookup resuelve el usuario del token contra el catálogo (CatalogRepository lo cumple).
type UserLookup interface {
	GetUser(ctx context.Context, id string) (*entity.User, error)
}

// AuthMiddleware valida el Bearer Token y deja el UserID en c.Locals.
// Con users != nil además exige que el usuario exista: quien firma movimientos debe estar en el catálogo.
func AuthMiddleware(verifier *jwt.Verifier, users UserLookup) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return rejectToken(c, "MISSING_TOKEN", "Authorization header requerido")
		}
		scheme, tokenString, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			return rejectToken(c, "INVALID_TOKEN", "formato: Bearer <token>")
		}
		tokenString = strings.TrimSpace(tokenString)
		if tokenString == "" {
			return rejectToken(c, "MISSING_TOKEN", "token vacío")
		}
		userID, err := verifier.Parse(tokenString)
		if err != nil {
			return rejectToken(c, "INVALID_TOKEN", "token inválido o expirado")
		}
		if users != nil {
			user, err := users.GetUser(c.UserContext(), userID)
			if err != nil {
				return writeError(c, err)
			}
			if user == nil {
				return rejectToken(c, "UNKNOWN_USER", "usuario no registrado")
			}
		}
		c.Locals(LocalUserID, userID)
		return c.Next()
	}
}

func rejectToken(c *fiber.Ctx, code, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: code, Message: msg})
}

// GetUserID devuelve el UserID del contexto (después del middleware de auth).
func GetUserID(c *fiber.Ctx) string {
	s, _ := c.Locals(LocalUserID).(string)
	return s
}
