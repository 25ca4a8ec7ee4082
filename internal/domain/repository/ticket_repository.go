package repository

import (
	"context"

	"github.com/jhoicas/kardex-api/internal/domain/entity"
)

// TicketRepository puerto mínimo sobre tickets para el cierre con devoluciones.
type TicketRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Ticket, error)
	GetForUpdate(ctx context.Context, id string) (*entity.Ticket, error)
	Update(ctx context.Context, ticket *entity.Ticket) error
}
