package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/kardex-api/internal/application/dto"
	"github.com/jhoicas/kardex-api/internal/application/inventory"
	"github.com/jhoicas/kardex-api/internal/domain/entity"
	"github.com/jhoicas/kardex-api/internal/domain/repository"
)

// InventoryHandler maneja las peticiones HTTP de saldos, movimientos y kardex (protegido).
type InventoryHandler struct {
	engine *inventory.StockEngine
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(engine *inventory.StockEngine) *InventoryHandler {
	return &InventoryHandler{engine: engine}
}

// FindStock godoc
// @Summary      Listar saldos
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        item_id      query  string  false  "Filtrar por item"
// @Param        location_id  query  string  false  "Filtrar por ubicación"
// @Success      200  {array}   dto.BalanceDTO
// @Router       /api/inventory [get]
func (h *InventoryHandler) FindStock(c *fiber.Ctx) error {
	list, err := h.engine.FindStock(c.Context(), repository.BalanceFilter{
		ItemID:     c.Query("item_id"),
		LocationID: c.Query("location_id"),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.BalancesFromEntities(list))
}

// CheckStock godoc
// @Summary      Existencia de un item en una ubicación
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        item_id      query  string  true  "Item"
// @Param        location_id  query  string  true  "Ubicación"
// @Success      200  {object}  dto.CheckStockResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/inventory/check [get]
func (h *InventoryHandler) CheckStock(c *fiber.Ctx) error {
	itemID, locationID := c.Query("item_id"), c.Query("location_id")
	qty, err := h.engine.CheckStock(c.Context(), itemID, locationID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.CheckStockResponse{ItemID: itemID, LocationID: locationID, Quantity: qty})
}

// Move godoc
// @Summary      Registrar entrada, salida o ajuste
// @Description  /in suma, /out resta (409 si no alcanza) y /adjust fija el saldo al valor enviado.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.MoveRequest  true  "item_id, location_id, quantity, comment"
// @Success      201   {object}  dto.MovementDTO
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.InsufficientStockResponse
// @Router       /api/inventory/in [post]
// @Router       /api/inventory/out [post]
// @Router       /api/inventory/adjust [post]
func (h *InventoryHandler) Move(typ entity.MovementType) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := GetUserID(c)
		if userID == "" {
			return unauthorized(c)
		}
		var in dto.MoveRequest
		if err := c.BodyParser(&in); err != nil {
			return invalidBody(c)
		}
		mov, err := h.engine.Move(c.Context(), inventory.MoveInput{
			ItemID:     in.ItemID,
			LocationID: in.LocationID,
			Type:       typ,
			Quantity:   in.Quantity,
			UserID:     userID,
			Comment:    in.Comment,
		})
		if err != nil {
			return writeError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(dto.MovementFromEntity(mov))
	}
}

// Transfer godoc
// @Summary      Trasladar stock entre ubicaciones
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.TransferRequest  true  "item_id, from_location_id, to_location_id, quantity"
// @Success      201   {object}  dto.TransferResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.InsufficientStockResponse
// @Router       /api/inventory/transfer [post]
func (h *InventoryHandler) Transfer(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return unauthorized(c)
	}
	var in dto.TransferRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	res, err := h.engine.Transfer(c.Context(), inventory.TransferInput{
		ItemID:         in.ItemID,
		FromLocationID: in.FromLocationID,
		ToLocationID:   in.ToLocationID,
		Quantity:       in.Quantity,
		UserID:         userID,
		Comment:        in.Comment,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.TransferFromResult(res))
}

// FindMovements godoc
// @Summary      Kardex de un item (más reciente primero)
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        itemId       path   string  true   "Item"
// @Param        location_id  query  string  false  "Filtrar por ubicación"
// @Param        limit        query  int     false  "Máximo de registros"
// @Param        offset       query  int     false  "Desplazamiento"
// @Success      200  {array}   dto.MovementDTO
// @Router       /api/inventory/movements/{itemId} [get]
func (h *InventoryHandler) FindMovements(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return invalidBody(c)
	}
	list, err := h.engine.FindMovementsAt(c.Context(), c.Params("itemId"), c.Query("location_id"), page.Limit, page.Offset)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.MovementsFromEntities(list))
}

// VerifyKardex godoc
// @Summary      Reconstruir el saldo desde el kardex y compararlo
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        item_id      query  string  true  "Item"
// @Param        location_id  query  string  true  "Ubicación"
// @Success      200  {object}  dto.KardexReportDTO
// @Router       /api/inventory/kardex/verify [get]
func (h *InventoryHandler) VerifyKardex(c *fiber.Ctx) error {
	rep, err := h.engine.VerifyKardex(c.Context(), c.Query("item_id"), c.Query("location_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.KardexReportFromResult(rep))
}
