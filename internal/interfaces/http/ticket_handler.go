package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/kardex-api/internal/application/dto"
	"github.com/jhoicas/kardex-api/internal/application/ticket"
)

// TicketHandler cierre de tickets con conciliación de material (protegido).
type TicketHandler struct {
	uc *ticket.CloseTicketUseCase
}

// NewTicketHandler construye el handler.
func NewTicketHandler(uc *ticket.CloseTicketUseCase) *TicketHandler {
	return &TicketHandler{uc: uc}
}

// Close godoc
// @Summary      Cerrar ticket registrando devoluciones
// @Tags         tickets
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "Ticket"
// @Param        body  body  dto.CloseTicketRequest  true  "location_id, comment, returns"
// @Success      200  {object}  dto.CloseTicketResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/tickets/{id}/close [post]
func (h *TicketHandler) Close(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return unauthorized(c)
	}
	var in dto.CloseTicketRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	returns := make([]ticket.ReturnLine, 0, len(in.Returns))
	for _, r := range in.Returns {
		returns = append(returns, ticket.ReturnLine{MaterialRequestItemID: r.MaterialRequestItemID, QuantityReturned: r.QuantityReturned})
	}
	res, err := h.uc.Close(c.Context(), c.Params("id"), ticket.CloseInput{
		LocationID: in.LocationID,
		Comment:    in.Comment,
		Returns:    returns,
		UserID:     userID,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.CloseTicketFromResult(res))
}
