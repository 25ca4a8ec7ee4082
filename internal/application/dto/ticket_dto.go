package dto

import (
	"time"

	"github.com/shopspring/decimal"

	appticket "github.com/jhoicas/kardex-api/internal/application/ticket"
)

// CloseTicketReturn devolución de una línea de solicitud al cerrar el ticket.
type CloseTicketReturn struct {
	MaterialRequestItemID string          `json:"material_request_item_id"`
	QuantityReturned      decimal.Decimal `json:"quantity_returned"`
}

// CloseTicketRequest body para POST /api/tickets/:id/close.
type CloseTicketRequest struct {
	LocationID string              `json:"location_id,omitempty"`
	Comment    string              `json:"comment,omitempty"`
	Returns    []CloseTicketReturn `json:"returns"`
}

// CloseTicketResponse ticket cerrado y entradas generadas.
type CloseTicketResponse struct {
	TicketID  string        `json:"ticket_id"`
	Status    string        `json:"status"`
	ClosedAt  *time.Time    `json:"closed_at,omitempty"`
	Comment   string        `json:"comment,omitempty"`
	Movements []MovementDTO `json:"movements"`
}

// CloseTicketFromResult convierte el resultado del cierre.
func CloseTicketFromResult(r *appticket.CloseResult) CloseTicketResponse {
	return CloseTicketResponse{
		TicketID:  r.Ticket.ID,
		Status:    string(r.Ticket.Status),
		ClosedAt:  r.Ticket.ClosedAt,
		Comment:   r.Ticket.CloseComment,
		Movements: MovementsFromEntities(r.Movements),
	}
}
