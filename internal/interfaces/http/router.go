package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/kardex-api/internal/application/inventory"
	"github.com/jhoicas/kardex-api/internal/application/materialrequest"
	"github.com/jhoicas/kardex-api/internal/application/ticket"
	"github.com/jhoicas/kardex-api/internal/domain/entity"
	"github.com/jhoicas/kardex-api/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Engine      *inventory.StockEngine
	Workflow    *materialrequest.WorkflowUseCase
	CloseTicket *ticket.CloseTicketUseCase
	Verifier    *jwt.Verifier
	Users       UserLookup // opcional; nil omite la verificación contra el catálogo
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.Verifier, deps.Users))

	// Inventario y kardex
	invGroup := protected.Group("/inventory")
	inventoryHandler := NewInventoryHandler(deps.Engine)
	invGroup.Get("/", inventoryHandler.FindStock)
	invGroup.Get("/check", inventoryHandler.CheckStock)
	invGroup.Post("/in", inventoryHandler.Move(entity.MovementTypeIN))
	invGroup.Post("/out", inventoryHandler.Move(entity.MovementTypeOUT))
	invGroup.Post("/adjust", inventoryHandler.Move(entity.MovementTypeADJUST))
	invGroup.Post("/transfer", inventoryHandler.Transfer)
	invGroup.Get("/movements/:itemId", inventoryHandler.FindMovements)
	invGroup.Get("/kardex/verify", inventoryHandler.VerifyKardex)

	// Solicitudes de material
	mr := protected.Group("/material-requests")
	mrHandler := NewMaterialRequestHandler(deps.Workflow)
	mr.Post("/", mrHandler.Create)
	mr.Get("/", mrHandler.FindAll)
	mr.Get("/presets/stats", mrHandler.PresetUsage)
	mr.Get("/:id/voucher.pdf", mrHandler.DeliveryVoucher)
	mr.Get("/:id", mrHandler.FindOne)
	mr.Post("/:id/approve", mrHandler.Approve)
	mr.Post("/:id/reject", mrHandler.Reject)
	mr.Patch("/:id/cancel", mrHandler.Cancel)
	mr.Post("/:id/returns", mrHandler.ProcessReturn)

	// Tickets
	tickets := protected.Group("/tickets")
	ticketHandler := NewTicketHandler(deps.CloseTicket)
	tickets.Post("/:id/close", ticketHandler.Close)
}
