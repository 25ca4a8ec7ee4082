package entity

import "time"

// TicketStatus estado de un ticket de mantenimiento.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusDone       TicketStatus = "DONE"
	TicketStatusCanceled   TicketStatus = "CANCELED"
)

// Closed indica si el ticket ya no admite cierre.
func (s TicketStatus) Closed() bool {
	return s == TicketStatusDone || s == TicketStatusCanceled
}

// Ticket proyección del ticket que necesita la conciliación de devoluciones al cierre.
// El CRUD de tickets vive fuera de este servicio.
type Ticket struct {
	ID           string
	Title        string
	Status       TicketStatus
	CloseComment string
	ClosedAt     *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
