package repository

import (
	"context"
	"time"

	"github.com/jhoicas/kardex-api/internal/domain/entity"
)

// MaterialRequestFilter filtros opcionales del listado.
type MaterialRequestFilter struct {
	TicketID string
	Status   entity.MaterialRequestStatus
	UserID   string
}

// PresetUsageFilter rango opcional sobre created_at; From inclusivo, To exclusivo.
type PresetUsageFilter struct {
	From *time.Time
	To   *time.Time
}

// MaterialRequestRepository define el puerto de persistencia de solicitudes y sus líneas.
type MaterialRequestRepository interface {
	// Create inserta la cabecera y todas sus líneas.
	Create(ctx context.Context, req *entity.MaterialRequest) error
	// GetByID devuelve (nil, nil) si no existe.
	GetByID(ctx context.Context, id string) (*entity.MaterialRequest, error)
	// GetForUpdate bloquea la cabecera y sus líneas hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, id string) (*entity.MaterialRequest, error)
	// Update guarda cabecera y cantidades de las líneas.
	Update(ctx context.Context, req *entity.MaterialRequest) error
	List(ctx context.Context, filter MaterialRequestFilter) ([]*entity.MaterialRequest, error)

	// LockFolioDay serializa la asignación de folios del prefijo (un día) dentro de la transacción.
	LockFolioDay(ctx context.Context, prefix string) error
	// MaxFolio devuelve el mayor folio existente con el prefijo, o "" si no hay.
	MaxFolio(ctx context.Context, prefix string) (string, error)

	// ItemsByTicketForUpdate bloquea y devuelve las líneas de todas las solicitudes del ticket.
	ItemsByTicketForUpdate(ctx context.Context, ticketID string) ([]*entity.MaterialRequestItem, error)
	UpdateItem(ctx context.Context, item *entity.MaterialRequestItem) error

	// PresetUsage agrega las solicitudes creadas desde plantilla, por plantilla, de más a menos usada.
	PresetUsage(ctx context.Context, filter PresetUsageFilter) ([]*entity.PresetUsage, error)
}
