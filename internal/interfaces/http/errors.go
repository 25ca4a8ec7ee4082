package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/kardex-api/internal/application/dto"
	"github.com/jhoicas/kardex-api/internal/domain"
	dominv "github.com/jhoicas/kardex-api/internal/domain/inventory"
)

// localCause key de Locals con el error que terminó en 500; RequestLogger lo registra.
const localCause = "error_cause"

// writeError traduce los errores de dominio a códigos HTTP.
func writeError(c *fiber.Ctx, err error) error {
	var shortage *domain.InsufficientStockError
	switch {
	case errors.As(err, &shortage):
		body := dto.InsufficientStockResponse{Code: "INSUFFICIENT_STOCK", Message: "stock insuficiente"}
		for _, l := range shortage.Lines {
			body.Lines = append(body.Lines, dto.StockShortageDTO{
				ItemID:     l.ItemID,
				LocationID: l.LocationID,
				Available:  l.Available.StringFixed(dominv.Scale),
				Requested:  l.Requested.StringFixed(dominv.Scale),
				Shortfall:  l.Shortfall.StringFixed(dominv.Scale),
			})
		}
		return c.Status(fiber.StatusConflict).JSON(body)
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: err.Error()})
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	case errors.Is(err, domain.ErrInvalidState):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "INVALID_STATE", Message: err.Error()})
	case errors.Is(err, domain.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "RETRYABLE_CONFLICT", Message: err.Error()})
	}
	c.Locals(localCause, err)
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
}

func invalidBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}
