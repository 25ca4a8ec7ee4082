package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/kardex-api/internal/application/dto"
	"github.com/jhoicas/kardex-api/internal/application/materialrequest"
	"github.com/jhoicas/kardex-api/internal/domain/entity"
)

// MaterialRequestHandler maneja el flujo de solicitudes de material (protegido).
type MaterialRequestHandler struct {
	uc *materialrequest.WorkflowUseCase
}

// NewMaterialRequestHandler construye el handler.
func NewMaterialRequestHandler(uc *materialrequest.WorkflowUseCase) *MaterialRequestHandler {
	return &MaterialRequestHandler{uc: uc}
}

// Create godoc
// @Summary      Crear solicitud de material
// @Tags         material-requests
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateMaterialRequestRequest  true  "ticket_id, items"
// @Success      201   {object}  dto.MaterialRequestDTO
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/material-requests [post]
func (h *MaterialRequestHandler) Create(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return unauthorized(c)
	}
	var in dto.CreateMaterialRequestRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	lines := make([]materialrequest.CreateLine, 0, len(in.Items))
	for _, it := range in.Items {
		lines = append(lines, materialrequest.CreateLine{ItemID: it.ItemID, QuantityRequested: it.QuantityRequested, Notes: it.Notes})
	}
	req, err := h.uc.Create(c.Context(), materialrequest.CreateInput{
		TicketID:          in.TicketID,
		RequestedBy:       userID,
		Lines:             lines,
		Notes:             in.Notes,
		PresetID:          in.PresetID,
		DiffersFromPreset: in.DiffersFromPreset,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.MaterialRequestFromEntity(req))
}

// FindAll godoc
// @Summary      Listar solicitudes de material
// @Tags         material-requests
// @Security     Bearer
// @Produce      json
// @Param        ticket_id     query  string  false  "Ticket"
// @Param        status        query  string  false  "Estado"
// @Param        requested_by  query  string  false  "Solicitante"
// @Success      200  {array}   dto.MaterialRequestDTO
// @Router       /api/material-requests [get]
func (h *MaterialRequestHandler) FindAll(c *fiber.Ctx) error {
	list, err := h.uc.FindAll(c.Context(), materialrequest.Filter{
		TicketID: c.Query("ticket_id"),
		Status:   entity.MaterialRequestStatus(c.Query("status")),
		UserID:   c.Query("requested_by"),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.MaterialRequestsFromEntities(list))
}

// PresetUsage godoc
// @Summary      Estadísticas de uso de plantillas
// @Tags         material-requests
// @Security     Bearer
// @Produce      json
// @Param        from  query  string  false  "Desde (YYYY-MM-DD, UTC, inclusivo)"
// @Param        to    query  string  false  "Hasta (YYYY-MM-DD, UTC, exclusivo)"
// @Success      200  {array}   dto.PresetUsageDTO
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/material-requests/presets/stats [get]
func (h *MaterialRequestHandler) PresetUsage(c *fiber.Ctx) error {
	from, ok := queryDay(c, "from")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "from: formato YYYY-MM-DD"})
	}
	to, ok := queryDay(c, "to")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "to: formato YYYY-MM-DD"})
	}
	stats, err := h.uc.PresetUsage(c.Context(), from, to)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.PresetUsageFromEntities(stats))
}

// queryDay lee un día UTC del query; ausente devuelve (nil, true).
func queryDay(c *fiber.Ctx, key string) (*time.Time, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	day, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, false
	}
	return &day, true
}

// FindOne godoc
// @Summary      Obtener solicitud de material
// @Tags         material-requests
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "Solicitud"
// @Success      200  {object}  dto.MaterialRequestDTO
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/material-requests/{id} [get]
func (h *MaterialRequestHandler) FindOne(c *fiber.Ctx) error {
	req, err := h.uc.FindOne(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.MaterialRequestFromEntity(req))
}

// Approve godoc
// @Summary      Aprobar y entregar solicitud
// @Description  Descuenta de location_id todas las líneas aprobadas en una sola transacción.
// @Tags         material-requests
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id           path   string  true  "Solicitud"
// @Param        location_id  query  string  true  "Ubicación de salida"
// @Param        body  body  dto.ApproveMaterialRequestRequest  true  "items aprobados"
// @Success      200  {object}  dto.MaterialRequestDTO
// @Failure      409  {object}  dto.InsufficientStockResponse
// @Router       /api/material-requests/{id}/approve [post]
func (h *MaterialRequestHandler) Approve(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return unauthorized(c)
	}
	var in dto.ApproveMaterialRequestRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	lines := make([]materialrequest.ApproveLine, 0, len(in.Items))
	for _, it := range in.Items {
		lines = append(lines, materialrequest.ApproveLine{ItemID: it.ItemID, QuantityApproved: it.QuantityApproved})
	}
	req, err := h.uc.Approve(c.Context(), c.Params("id"), materialrequest.ApproveInput{
		Lines:      lines,
		LocationID: c.Query("location_id"),
		UserID:     userID,
		Notes:      in.Notes,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.MaterialRequestFromEntity(req))
}

// Reject godoc
// @Summary      Rechazar solicitud
// @Tags         material-requests
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "Solicitud"
// @Param        body  body  dto.RejectMaterialRequestRequest  true  "motivo"
// @Success      200  {object}  dto.MaterialRequestDTO
// @Router       /api/material-requests/{id}/reject [post]
func (h *MaterialRequestHandler) Reject(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return unauthorized(c)
	}
	var in dto.RejectMaterialRequestRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	req, err := h.uc.Reject(c.Context(), c.Params("id"), in.Reason, userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.MaterialRequestFromEntity(req))
}

// Cancel godoc
// @Summary      Cancelar solicitud
// @Tags         material-requests
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Solicitud"
// @Success      200  {object}  dto.MaterialRequestDTO
// @Router       /api/material-requests/{id}/cancel [patch]
func (h *MaterialRequestHandler) Cancel(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return unauthorized(c)
	}
	req, err := h.uc.Cancel(c.Context(), c.Params("id"), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.MaterialRequestFromEntity(req))
}

// ProcessReturn godoc
// @Summary      Registrar devolución de material entregado
// @Tags         material-requests
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id           path   string  true  "Solicitud"
// @Param        location_id  query  string  true  "Ubicación de entrada"
// @Param        body  body  dto.ProcessReturnRequest  true  "items devueltos"
// @Success      200  {object}  dto.MaterialRequestDTO
// @Router       /api/material-requests/{id}/returns [post]
func (h *MaterialRequestHandler) ProcessReturn(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return unauthorized(c)
	}
	var in dto.ProcessReturnRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	lines := make([]materialrequest.ReturnLine, 0, len(in.Items))
	for _, it := range in.Items {
		lines = append(lines, materialrequest.ReturnLine{ItemID: it.ItemID, QuantityReturned: it.QuantityReturned})
	}
	req, err := h.uc.ProcessReturn(c.Context(), c.Params("id"), materialrequest.ReturnInput{
		Lines:      lines,
		LocationID: c.Query("location_id"),
		UserID:     userID,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.MaterialRequestFromEntity(req))
}

// DeliveryVoucher godoc
// @Summary      Vale de salida en PDF
// @Tags         material-requests
// @Security     Bearer
// @Produce      application/pdf
// @Param        id  path  string  true  "Solicitud"
// @Success      200  {file}    binary
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/material-requests/{id}/voucher.pdf [get]
func (h *MaterialRequestHandler) DeliveryVoucher(c *fiber.Ctx) error {
	pdfBytes, filename, err := h.uc.DeliveryVoucherPDF(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `inline; filename="`+filename+`"`)
	return c.Send(pdfBytes)
}
